package ws

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"sync"

	"log/slog"

	"github.com/Voxpin/web-tac-toe/internal/game"
	"github.com/Voxpin/web-tac-toe/internal/room"
	"github.com/Voxpin/web-tac-toe/pkg/metrics"
)

// Hub is the session coordinator: it translates inbound protocol
// events into registry calls and pushes the resulting broadcasts to
// every connection joined to the affected room.
type Hub struct {
	log      *slog.Logger
	bus      *RedisBus // nil when cross-instance fanout is disabled
	registry *room.Registry

	mu    sync.RWMutex
	conns map[string]*Conn // by connection ID
}

// NewHub sets up the hub with the room registry and optional bus
func NewHub(logger *slog.Logger, bus *RedisBus, registry *room.Registry) *Hub {
	return &Hub{log: logger, bus: bus, registry: registry, conns: map[string]*Conn{}}
}

// Run forwards bus frames from other instances to local room members
func (h *Hub) Run(ctx context.Context) {
	if h.bus != nil {
		go h.bus.Subscribe(ctx, func(roomID string, payload []byte) {
			h.fanout(roomID, payload)
		})
	}
	<-ctx.Done()
}

// ServeWS handles a new /ws connection for its whole lifetime
func (h *Hub) ServeWS(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	wsc, err := Accept(w, r)
	if err != nil {
		h.log.Error("ws.accept", "err", err)
		return
	}

	c := NewConn(wsc)
	h.register(c)
	metrics.ConnectionsActive.Inc()
	h.log.Debug("ws.connected", "conn", c.ID())

	// Outbound writer
	go c.WriteLoop(ctx)

	// Inbound reader: one event per frame
	for {
		data, ok := c.Read(ctx)
		if !ok {
			break
		}
		var env Envelope
		if err := json.Unmarshal(data, &env); err != nil {
			c.Send(marshal("error", errorMsg{Message: "malformed frame"}))
			continue
		}
		h.handle(ctx, c, env)
	}

	h.disconnect(ctx, c)
	h.unregister(c)
	metrics.ConnectionsActive.Dec()
	_ = c.Close()
}

// handle dispatches one inbound event. Precondition failures reply to
// the sender only and never touch the room.
func (h *Hub) handle(ctx context.Context, c *Conn, env Envelope) {
	switch env.Type {
	case "createRoom":
		h.createRoom(ctx, c, env.Payload)
	case "joinRoom":
		h.joinRoom(ctx, c, env.Payload)
	case "makeMove":
		h.makeMove(ctx, c, env.Payload)
	case "resetGame":
		h.resetGame(ctx, c, env.Payload)
	default:
		c.Send(marshal("error", errorMsg{Message: "unknown event: " + env.Type}))
	}
}

func (h *Hub) createRoom(ctx context.Context, c *Conn, payload json.RawMessage) {
	var req createRoomReq
	if err := json.Unmarshal(payload, &req); err != nil {
		c.Send(marshal("error", errorMsg{Message: "malformed payload"}))
		return
	}

	created, err := h.registry.Create(req.GameType, c.ID(), req.Username)
	if err != nil {
		c.Send(marshal("error", errorMsg{Message: err.Error()}))
		return
	}
	metrics.RoomsActive.Set(float64(h.registry.Len()))
	h.announceDeparture(ctx, created.Left)

	c.Send(marshal("roomCreated", roomCreatedMsg{
		RoomID:      created.RoomID,
		GameType:    created.GameType,
		PlayerIndex: created.Player.Seat,
		PlayerInfo:  created.Player.Attrs,
		GameState:   created.State,
	}))
}

func (h *Hub) joinRoom(ctx context.Context, c *Conn, payload json.RawMessage) {
	var req joinRoomReq
	if err := json.Unmarshal(payload, &req); err != nil {
		c.Send(marshal("error", errorMsg{Message: "malformed payload"}))
		return
	}

	joined, err := h.registry.Join(req.RoomID, c.ID(), req.Username)
	if err != nil {
		c.Send(marshal("error", errorMsg{Message: err.Error()}))
		return
	}
	if joined.Left != nil {
		metrics.RoomsActive.Set(float64(h.registry.Len()))
		h.announceDeparture(ctx, joined.Left)
	}

	if joined.Spectator != nil {
		c.Send(marshal("joinedAsSpectator", joinedAsSpectatorMsg{
			RoomID:    joined.RoomID,
			GameType:  joined.GameType,
			GameState: joined.State,
			Players:   joined.Players,
		}))
		h.broadcast(ctx, joined.RoomID, marshal("spectatorJoined", spectatorJoinedMsg{
			Username: joined.Spectator.Name,
		}))
		return
	}

	c.Send(marshal("roomJoined", roomJoinedMsg{
		RoomID:      joined.RoomID,
		GameType:    joined.GameType,
		PlayerIndex: joined.Player.Seat,
		PlayerInfo:  joined.Player.Attrs,
		GameState:   joined.State,
		Players:     joined.Players,
	}))
	if joined.Started {
		h.broadcast(ctx, joined.RoomID, marshal("gameStart", gameStartMsg{
			GameState: joined.State,
			Players:   joined.Players,
		}))
	}
}

func (h *Hub) makeMove(ctx context.Context, c *Conn, payload json.RawMessage) {
	var req makeMoveReq
	if err := json.Unmarshal(payload, &req); err != nil {
		c.Send(marshal("error", errorMsg{Message: "malformed payload"}))
		return
	}

	st, changed, err := h.registry.Move(req.RoomID, c.ID(), req.Move)
	if errors.Is(err, room.ErrNotAPlayer) {
		// spectators and strangers don't get to move; absorbed
		return
	}
	if err != nil {
		c.Send(marshal("error", errorMsg{Message: err.Error()}))
		return
	}
	if !changed {
		// illegal move or non-player: absorbed, nothing broadcast
		return
	}

	gt := h.registry.GameType(req.RoomID)
	metrics.MovesTotal.WithLabelValues(gt).Inc()
	if st.Status == game.StatusWon || st.Status == game.StatusDraw {
		metrics.GamesFinished.WithLabelValues(gt, string(st.Status)).Inc()
	}

	h.broadcast(ctx, req.RoomID, marshal("gameStateUpdate", gameStateUpdateMsg{GameState: st}))
}

func (h *Hub) resetGame(ctx context.Context, c *Conn, payload json.RawMessage) {
	var req resetGameReq
	if err := json.Unmarshal(payload, &req); err != nil {
		c.Send(marshal("error", errorMsg{Message: "malformed payload"}))
		return
	}

	st, err := h.registry.Reset(req.RoomID)
	if err != nil {
		c.Send(marshal("error", errorMsg{Message: err.Error()}))
		return
	}
	h.broadcast(ctx, req.RoomID, marshal("gameReset", gameResetMsg{GameState: st}))
}

// disconnect runs the transport-level leave flow for a closed connection
func (h *Hub) disconnect(ctx context.Context, c *Conn) {
	dep, ok := h.registry.Remove(c.ID())
	if !ok {
		return
	}
	metrics.RoomsActive.Set(float64(h.registry.Len()))
	h.announceDeparture(ctx, dep)
}

// announceDeparture tells the departed room who left. A departure that
// closed the room is silent: there is nobody left to tell, spectators
// are discarded along with it.
func (h *Hub) announceDeparture(ctx context.Context, dep *room.Departure) {
	if dep == nil || dep.Closed {
		return
	}
	if dep.WasPlayer {
		h.broadcast(ctx, dep.RoomID, marshal("playerDisconnected", playerDisconnectedMsg{
			Username:    dep.Name,
			PlayerIndex: dep.Seat,
			GameState:   dep.State,
		}))
		return
	}
	h.broadcast(ctx, dep.RoomID, marshal("spectatorLeft", spectatorLeftMsg{Username: dep.Name}))
}

// broadcast delivers a frame to every member of a room and mirrors it
// on the bus for other instances
func (h *Hub) broadcast(ctx context.Context, roomID string, payload []byte) {
	h.fanout(roomID, payload)
	if h.bus != nil {
		_ = h.bus.Publish(ctx, roomID, payload)
	}
}

// fanout delivers a frame to local members only
func (h *Hub) fanout(roomID string, payload []byte) {
	members := h.registry.Members(roomID)
	h.mu.RLock()
	defer h.mu.RUnlock()
	for _, id := range members {
		if c := h.conns[id]; c != nil {
			c.Send(payload)
		}
	}
}

func (h *Hub) register(c *Conn) {
	h.mu.Lock()
	h.conns[c.ID()] = c
	h.mu.Unlock()
}

func (h *Hub) unregister(c *Conn) {
	h.mu.Lock()
	delete(h.conns, c.ID())
	h.mu.Unlock()
}
