package room

import (
	"crypto/rand"
	"encoding/json"
	"errors"
	"sync"

	"log/slog"

	"github.com/Voxpin/web-tac-toe/internal/game"
)

var (
	ErrUnknownGameType = errors.New("unknown game type")
	ErrRoomNotFound    = errors.New("room not found")
	ErrNotAPlayer      = errors.New("not a seated player")
)

// Player is a seated participant. Seat is assigned at join time and
// never reassigned while the player stays in the room.
type Player struct {
	ConnID string           `json:"-"`
	Name   string           `json:"username"`
	Seat   int              `json:"playerIndex"`
	Attrs  game.PlayerAttrs `json:"playerInfo"`
}

// Spectator is a read-only participant.
type Spectator struct {
	ConnID string
	Name   string
}

// Room is one match's server-side session.
type Room struct {
	ID         string
	GameType   string
	engine     game.Engine
	State      *game.State
	Seats      []*Player // len = engine.MaxPlayers(), nil = free
	Spectators map[string]*Spectator
}

// Registry owns every live room. A single mutex linearizes all room
// operations so move validation and application are atomic per room.
type Registry struct {
	log   *slog.Logger
	games *game.Registry

	mu     sync.Mutex
	rooms  map[string]*Room
	byConn map[string]*Room
}

// NewRegistry creates an empty registry backed by the given game engines.
func NewRegistry(games *game.Registry, log *slog.Logger) *Registry {
	return &Registry{
		log:    log,
		games:  games,
		rooms:  make(map[string]*Room),
		byConn: make(map[string]*Room),
	}
}

// Games exposes the engine registry for the lobby API.
func (r *Registry) Games() *game.Registry { return r.games }

// Created is the result of a successful room creation.
type Created struct {
	RoomID   string
	GameType string
	Player   *Player
	State    *game.State
	Left     *Departure // departure from the room the creator was in before, if any
}

// Joined is the result of a join: either a seat or spectator admission.
type Joined struct {
	RoomID    string
	GameType  string
	Player    *Player    // nil when admitted as spectator
	Spectator *Spectator // nil when seated
	State     *game.State
	Players   []*Player
	Started   bool       // this join filled the final seat
	Left      *Departure // departure from the room the joiner was in before, if any
}

// Departure describes the effect of removing a connection.
type Departure struct {
	RoomID    string
	Name      string
	Seat      int
	WasPlayer bool
	Closed    bool // the room was discarded
	State     *game.State
}

// Create makes a new room for gameType and seats the creator at index 0.
func (r *Registry) Create(gameType, connID, name string) (*Created, error) {
	engine, ok := r.games.Get(gameType)
	if !ok {
		return nil, ErrUnknownGameType
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	// a connection lives in at most one room; creating a new one
	// counts as leaving the old one first
	var left *Departure
	if r.byConn[connID] != nil {
		left, _ = r.removeLocked(connID)
	}

	id := newRoomID()
	for r.rooms[id] != nil {
		id = newRoomID()
	}

	p := &Player{ConnID: connID, Name: name, Seat: 0, Attrs: engine.PlayerSetup(0)}
	rm := &Room{
		ID:         id,
		GameType:   gameType,
		engine:     engine,
		State:      engine.Init(),
		Seats:      make([]*Player, engine.MaxPlayers()),
		Spectators: make(map[string]*Spectator),
	}
	rm.Seats[0] = p
	r.rooms[id] = rm
	r.byConn[connID] = rm

	r.log.Info("room.created", "room", id, "game", gameType, "by", name)
	return &Created{RoomID: id, GameType: gameType, Player: p, State: rm.State, Left: left}, nil
}

// Join seats the connection if a seat is free, otherwise admits it as a
// spectator. Filling the final seat flips the game from waiting to playing.
func (r *Registry) Join(roomID, connID, name string) (*Joined, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	rm := r.rooms[roomID]
	if rm == nil {
		return nil, ErrRoomNotFound
	}

	// rejoining the room it is already in keeps the existing membership
	if r.byConn[connID] == rm {
		if seat := seatOf(rm.Seats, connID); seat != game.NoPlayer {
			return &Joined{
				RoomID:   roomID,
				GameType: rm.GameType,
				Player:   rm.Seats[seat],
				State:    rm.State,
				Players:  seatedPlayers(rm.Seats),
			}, nil
		}
		return &Joined{
			RoomID:    roomID,
			GameType:  rm.GameType,
			Spectator: rm.Spectators[connID],
			State:     rm.State,
			Players:   seatedPlayers(rm.Seats),
		}, nil
	}

	// joining while in another room counts as leaving that room first
	var left *Departure
	if r.byConn[connID] != nil {
		left, _ = r.removeLocked(connID)
	}

	seat := freeSeat(rm.Seats)
	if seat == game.NoPlayer {
		sp := &Spectator{ConnID: connID, Name: name}
		rm.Spectators[connID] = sp
		r.byConn[connID] = rm
		r.log.Info("room.spectator", "room", roomID, "name", name)
		return &Joined{
			RoomID:    roomID,
			GameType:  rm.GameType,
			Spectator: sp,
			State:     rm.State,
			Players:   seatedPlayers(rm.Seats),
			Left:      left,
		}, nil
	}

	p := &Player{ConnID: connID, Name: name, Seat: seat, Attrs: rm.engine.PlayerSetup(seat)}
	rm.Seats[seat] = p
	r.byConn[connID] = rm

	started := false
	if freeSeat(rm.Seats) == game.NoPlayer && rm.State.Status == game.StatusWaiting {
		rm.State = rm.State.WithStatus(game.StatusPlaying)
		started = true
	}

	r.log.Info("room.joined", "room", roomID, "name", name, "seat", seat, "started", started)
	return &Joined{
		RoomID:   roomID,
		GameType: rm.GameType,
		Player:   p,
		State:    rm.State,
		Players:  seatedPlayers(rm.Seats),
		Started:  started,
		Left:     left,
	}, nil
}

// Move resolves the caller's seat and delegates to the rules engine.
// The returned bool is true only when the state actually changed;
// illegal moves leave the state untouched. A spectator or stranger
// gets ErrNotAPlayer and the state stays untouched as well.
func (r *Registry) Move(roomID, connID string, raw json.RawMessage) (*game.State, bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	rm := r.rooms[roomID]
	if rm == nil {
		return nil, false, ErrRoomNotFound
	}

	seat := seatOf(rm.Seats, connID)
	if seat == game.NoPlayer {
		return rm.State, false, ErrNotAPlayer
	}

	next := rm.engine.Move(rm.State, seat, raw)
	if next == rm.State {
		return rm.State, false, nil
	}
	rm.State = next
	return next, true, nil
}

// Reset starts a fresh game in the room. Status is forced to playing
// regardless of seat count, matching the behavior this server mirrors
// (a lone player may practice against an empty seat).
func (r *Registry) Reset(roomID string) (*game.State, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	rm := r.rooms[roomID]
	if rm == nil {
		return nil, ErrRoomNotFound
	}
	st := rm.engine.Init()
	st.Status = game.StatusPlaying
	rm.State = st
	r.log.Info("room.reset", "room", roomID)
	return rm.State, nil
}

// Remove drops a connection from whatever room holds it. Removing the
// last player discards the room entirely, spectators included.
func (r *Registry) Remove(connID string) (*Departure, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.removeLocked(connID)
}

// removeLocked is Remove's body; the caller holds r.mu.
func (r *Registry) removeLocked(connID string) (*Departure, bool) {
	rm := r.byConn[connID]
	if rm == nil {
		return nil, false
	}
	delete(r.byConn, connID)

	if sp, ok := rm.Spectators[connID]; ok {
		delete(rm.Spectators, connID)
		r.log.Info("room.spectator.left", "room", rm.ID, "name", sp.Name)
		return &Departure{RoomID: rm.ID, Name: sp.Name, Seat: game.NoPlayer, State: rm.State}, true
	}

	seat := seatOf(rm.Seats, connID)
	if seat == game.NoPlayer {
		return nil, false
	}
	name := rm.Seats[seat].Name
	rm.Seats[seat] = nil

	if len(seatedPlayers(rm.Seats)) == 0 {
		for id := range rm.Spectators {
			delete(r.byConn, id)
		}
		delete(r.rooms, rm.ID)
		r.log.Info("room.closed", "room", rm.ID)
		return &Departure{RoomID: rm.ID, Name: name, Seat: seat, WasPlayer: true, Closed: true}, true
	}

	// a finished game keeps its terminal status until an explicit reset;
	// only a game in progress drops back to waiting
	if rm.State.Status == game.StatusPlaying {
		rm.State = rm.State.WithStatus(game.StatusWaiting)
	}
	r.log.Info("room.player.left", "room", rm.ID, "name", name, "seat", seat)
	return &Departure{RoomID: rm.ID, Name: name, Seat: seat, WasPlayer: true, State: rm.State}, true
}

// Members returns the connection IDs of everyone in the room, players
// and spectators, for broadcast fanout.
func (r *Registry) Members(roomID string) []string {
	r.mu.Lock()
	defer r.mu.Unlock()

	rm := r.rooms[roomID]
	if rm == nil {
		return nil
	}
	out := make([]string, 0, len(rm.Seats)+len(rm.Spectators))
	for _, p := range rm.Seats {
		if p != nil {
			out = append(out, p.ConnID)
		}
	}
	for id := range rm.Spectators {
		out = append(out, id)
	}
	return out
}

// Players returns the current roster in seat order.
func (r *Registry) Players(roomID string) []*Player {
	r.mu.Lock()
	defer r.mu.Unlock()

	rm := r.rooms[roomID]
	if rm == nil {
		return nil
	}
	return seatedPlayers(rm.Seats)
}

// GameType returns the game-type tag of a live room, or "" if unknown.
func (r *Registry) GameType(roomID string) string {
	r.mu.Lock()
	defer r.mu.Unlock()
	if rm := r.rooms[roomID]; rm != nil {
		return rm.GameType
	}
	return ""
}

// Len reports the number of live rooms.
func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.rooms)
}

func freeSeat(seats []*Player) int {
	for i, p := range seats {
		if p == nil {
			return i
		}
	}
	return game.NoPlayer
}

func seatOf(seats []*Player, connID string) int {
	for i, p := range seats {
		if p != nil && p.ConnID == connID {
			return i
		}
	}
	return game.NoPlayer
}

func seatedPlayers(seats []*Player) []*Player {
	out := make([]*Player, 0, len(seats))
	for _, p := range seats {
		if p != nil {
			out = append(out, p)
		}
	}
	return out
}

// roomIDAlphabet avoids ambiguous characters in shareable codes
const roomIDAlphabet = "abcdefghjkmnpqrstuvwxyz23456789"

// newRoomID returns a short shareable room code. Collisions are
// checked (and regenerated) by the caller under the registry lock.
func newRoomID() string {
	buf := make([]byte, 6)
	_, _ = rand.Read(buf)
	for i, b := range buf {
		buf[i] = roomIDAlphabet[int(b)%len(roomIDAlphabet)]
	}
	return string(buf)
}
