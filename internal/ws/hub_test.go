package ws

import (
	"context"
	"encoding/json"
	"io"
	"testing"

	"log/slog"

	"github.com/Voxpin/web-tac-toe/internal/game"
	"github.com/Voxpin/web-tac-toe/internal/room"
)

func testHub() *Hub {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	return NewHub(logger, nil, room.NewRegistry(game.Default(), logger))
}

// testConn builds a Conn with no underlying socket; outbound frames
// pile up in its buffer for inspection
func testConn(h *Hub, id string) *Conn {
	c := &Conn{id: id, out: make(chan []byte, 256)}
	h.register(c)
	return c
}

func event(t *testing.T, typ string, payload any) Envelope {
	t.Helper()
	raw, err := json.Marshal(payload)
	if err != nil {
		t.Fatalf("marshal payload: %v", err)
	}
	return Envelope{Type: typ, Payload: raw}
}

// recv pops the next queued frame, failing the test if none is waiting
func recv(t *testing.T, c *Conn) Envelope {
	t.Helper()
	select {
	case b := <-c.out:
		var env Envelope
		if err := json.Unmarshal(b, &env); err != nil {
			t.Fatalf("bad frame %q: %v", b, err)
		}
		return env
	default:
		t.Fatal("expected a frame, got none")
		return Envelope{}
	}
}

func recvTyped(t *testing.T, c *Conn, wantType string, into any) {
	t.Helper()
	env := recv(t, c)
	if env.Type != wantType {
		t.Fatalf("frame type: got %q, want %q", env.Type, wantType)
	}
	if into != nil {
		if err := json.Unmarshal(env.Payload, into); err != nil {
			t.Fatalf("decode %s payload: %v", wantType, err)
		}
	}
}

func expectSilence(t *testing.T, c *Conn) {
	t.Helper()
	select {
	case b := <-c.out:
		t.Fatalf("unexpected frame: %s", b)
	default:
	}
}

func TestCreateRoomRepliesToCreatorOnly(t *testing.T) {
	h := testHub()
	ctx := context.Background()
	a := testConn(h, "conn-a")
	b := testConn(h, "conn-b")

	h.handle(ctx, a, event(t, "createRoom", createRoomReq{Username: "Alice", GameType: "tictactoe"}))

	var created roomCreatedMsg
	recvTyped(t, a, "roomCreated", &created)
	if created.RoomID == "" || created.PlayerIndex != 0 {
		t.Fatalf("bad roomCreated payload: %+v", created)
	}
	if created.PlayerInfo.Symbol != "X" {
		t.Fatalf("creator symbol: got %q, want X", created.PlayerInfo.Symbol)
	}
	if created.GameState.Status != game.StatusWaiting {
		t.Fatalf("fresh room status: %s", created.GameState.Status)
	}
	expectSilence(t, b)
}

func TestCreateRoomUnknownGameErrorsToSender(t *testing.T) {
	h := testHub()
	a := testConn(h, "conn-a")

	h.handle(context.Background(), a, event(t, "createRoom", createRoomReq{Username: "Alice", GameType: "chess"}))

	var em errorMsg
	recvTyped(t, a, "error", &em)
	if em.Message == "" {
		t.Fatal("error frame carried no message")
	}
}

func TestJoinBroadcastsGameStart(t *testing.T) {
	h := testHub()
	ctx := context.Background()
	a := testConn(h, "conn-a")
	b := testConn(h, "conn-b")

	h.handle(ctx, a, event(t, "createRoom", createRoomReq{Username: "Alice", GameType: "tictactoe"}))
	var created roomCreatedMsg
	recvTyped(t, a, "roomCreated", &created)

	h.handle(ctx, b, event(t, "joinRoom", joinRoomReq{RoomID: created.RoomID, Username: "Bob"}))

	var joined roomJoinedMsg
	recvTyped(t, b, "roomJoined", &joined)
	if joined.PlayerIndex != 1 || joined.PlayerInfo.Symbol != "O" {
		t.Fatalf("bad roomJoined payload: %+v", joined)
	}

	var startA, startB gameStartMsg
	recvTyped(t, a, "gameStart", &startA)
	recvTyped(t, b, "gameStart", &startB)
	if startA.GameState.Status != game.StatusPlaying {
		t.Fatalf("gameStart status: %s", startA.GameState.Status)
	}
	if len(startA.Players) != 2 {
		t.Fatalf("gameStart roster: %+v", startA.Players)
	}
}

func TestJoinUnknownRoomErrorsToSenderOnly(t *testing.T) {
	h := testHub()
	a := testConn(h, "conn-a")
	b := testConn(h, "conn-b")

	h.handle(context.Background(), b, event(t, "joinRoom", joinRoomReq{RoomID: "nope", Username: "Bob"}))

	recvTyped(t, b, "error", nil)
	expectSilence(t, a)
}

func TestSpectatorJoinFlow(t *testing.T) {
	h := testHub()
	ctx := context.Background()
	a := testConn(h, "conn-a")
	b := testConn(h, "conn-b")
	c := testConn(h, "conn-c")

	h.handle(ctx, a, event(t, "createRoom", createRoomReq{Username: "Alice", GameType: "connectfour"}))
	var created roomCreatedMsg
	recvTyped(t, a, "roomCreated", &created)

	h.handle(ctx, b, event(t, "joinRoom", joinRoomReq{RoomID: created.RoomID, Username: "Bob"}))
	recvTyped(t, b, "roomJoined", nil)
	recvTyped(t, a, "gameStart", nil)
	recvTyped(t, b, "gameStart", nil)

	h.handle(ctx, c, event(t, "joinRoom", joinRoomReq{RoomID: created.RoomID, Username: "Carol"}))

	var spec joinedAsSpectatorMsg
	recvTyped(t, c, "joinedAsSpectator", &spec)
	if spec.GameType != "connectfour" || len(spec.Players) != 2 {
		t.Fatalf("bad spectator payload: %+v", spec)
	}

	var sj spectatorJoinedMsg
	recvTyped(t, a, "spectatorJoined", &sj)
	if sj.Username != "Carol" {
		t.Fatalf("spectatorJoined username: %q", sj.Username)
	}
	recvTyped(t, b, "spectatorJoined", nil)
	recvTyped(t, c, "spectatorJoined", nil)

	// a spectator's move attempt is absorbed without any traffic
	h.handle(ctx, c, event(t, "makeMove", makeMoveReq{RoomID: created.RoomID, Move: json.RawMessage(`{"column":0}`)}))
	expectSilence(t, a)
	expectSilence(t, b)
	expectSilence(t, c)
}

func TestMoveBroadcastsOnlyOnChange(t *testing.T) {
	h := testHub()
	ctx := context.Background()
	a := testConn(h, "conn-a")
	b := testConn(h, "conn-b")

	h.handle(ctx, a, event(t, "createRoom", createRoomReq{Username: "Alice", GameType: "tictactoe"}))
	var created roomCreatedMsg
	recvTyped(t, a, "roomCreated", &created)
	h.handle(ctx, b, event(t, "joinRoom", joinRoomReq{RoomID: created.RoomID, Username: "Bob"}))
	recvTyped(t, b, "roomJoined", nil)
	recvTyped(t, a, "gameStart", nil)
	recvTyped(t, b, "gameStart", nil)

	// Bob tries to move out of turn: absorbed, nothing goes out
	h.handle(ctx, b, event(t, "makeMove", makeMoveReq{RoomID: created.RoomID, Move: json.RawMessage(`{"index":0}`)}))
	expectSilence(t, a)
	expectSilence(t, b)

	// Alice's legal move reaches everyone
	h.handle(ctx, a, event(t, "makeMove", makeMoveReq{RoomID: created.RoomID, Move: json.RawMessage(`{"index":4}`)}))
	var upA, upB gameStateUpdateMsg
	recvTyped(t, a, "gameStateUpdate", &upA)
	recvTyped(t, b, "gameStateUpdate", &upB)
	if upA.GameState.Board[4] != 0 || upA.GameState.CurrentPlayer != 1 {
		t.Fatalf("bad update payload: %+v", upA.GameState)
	}
}

func TestResetBroadcast(t *testing.T) {
	h := testHub()
	ctx := context.Background()
	a := testConn(h, "conn-a")

	h.handle(ctx, a, event(t, "createRoom", createRoomReq{Username: "Alice", GameType: "tictactoe"}))
	var created roomCreatedMsg
	recvTyped(t, a, "roomCreated", &created)

	h.handle(ctx, a, event(t, "resetGame", resetGameReq{RoomID: created.RoomID}))
	var rst gameResetMsg
	recvTyped(t, a, "gameReset", &rst)
	if rst.GameState.Status != game.StatusPlaying {
		t.Fatalf("reset status: %s", rst.GameState.Status)
	}
}

func TestDisconnectBroadcastsDeparture(t *testing.T) {
	h := testHub()
	ctx := context.Background()
	a := testConn(h, "conn-a")
	b := testConn(h, "conn-b")

	h.handle(ctx, a, event(t, "createRoom", createRoomReq{Username: "Alice", GameType: "tictactoe"}))
	var created roomCreatedMsg
	recvTyped(t, a, "roomCreated", &created)
	h.handle(ctx, b, event(t, "joinRoom", joinRoomReq{RoomID: created.RoomID, Username: "Bob"}))
	recvTyped(t, b, "roomJoined", nil)
	recvTyped(t, a, "gameStart", nil)
	recvTyped(t, b, "gameStart", nil)

	h.disconnect(ctx, a)
	h.unregister(a)

	var pd playerDisconnectedMsg
	recvTyped(t, b, "playerDisconnected", &pd)
	if pd.Username != "Alice" || pd.PlayerIndex != 0 {
		t.Fatalf("bad departure payload: %+v", pd)
	}
	if pd.GameState.Status != game.StatusWaiting {
		t.Fatalf("status after departure: %s", pd.GameState.Status)
	}
}

func TestCreateWhileSeatedAnnouncesDepartureToOldRoom(t *testing.T) {
	h := testHub()
	ctx := context.Background()
	a := testConn(h, "conn-a")
	b := testConn(h, "conn-b")

	h.handle(ctx, a, event(t, "createRoom", createRoomReq{Username: "Alice", GameType: "tictactoe"}))
	var first roomCreatedMsg
	recvTyped(t, a, "roomCreated", &first)
	h.handle(ctx, b, event(t, "joinRoom", joinRoomReq{RoomID: first.RoomID, Username: "Bob"}))
	recvTyped(t, b, "roomJoined", nil)
	recvTyped(t, a, "gameStart", nil)
	recvTyped(t, b, "gameStart", nil)

	h.handle(ctx, b, event(t, "createRoom", createRoomReq{Username: "Bob", GameType: "connectfour"}))

	// Alice is told Bob left; Bob only sees his new room
	var pd playerDisconnectedMsg
	recvTyped(t, a, "playerDisconnected", &pd)
	if pd.Username != "Bob" || pd.PlayerIndex != 1 {
		t.Fatalf("bad departure payload: %+v", pd)
	}
	if pd.GameState.Status != game.StatusWaiting {
		t.Fatalf("old room status: %s", pd.GameState.Status)
	}
	var second roomCreatedMsg
	recvTyped(t, b, "roomCreated", &second)
	if second.RoomID == first.RoomID || second.GameType != "connectfour" {
		t.Fatalf("bad second room: %+v", second)
	}
	expectSilence(t, b)

	// Bob's disconnect releases only the new room
	h.disconnect(ctx, b)
	expectSilence(t, a)
	if h.registry.Len() != 1 {
		t.Fatalf("room count after Bob left: got %d, want 1", h.registry.Len())
	}
}

func TestUnknownEventErrorsToSender(t *testing.T) {
	h := testHub()
	a := testConn(h, "conn-a")

	h.handle(context.Background(), a, Envelope{Type: "teleport"})
	recvTyped(t, a, "error", nil)
}

func TestEnvelopeRoundTrip(t *testing.T) {
	b := marshal("gameStateUpdate", gameStateUpdateMsg{GameState: &game.State{
		Board:         []int{0, 1, game.NoPlayer},
		CurrentPlayer: 1,
		Status:        game.StatusPlaying,
		Winner:        game.NoPlayer,
	}})

	var env Envelope
	if err := json.Unmarshal(b, &env); err != nil {
		t.Fatalf("unmarshal envelope: %v", err)
	}
	if env.Type != "gameStateUpdate" {
		t.Fatalf("type: %q", env.Type)
	}
	var up gameStateUpdateMsg
	if err := json.Unmarshal(env.Payload, &up); err != nil {
		t.Fatalf("unmarshal payload: %v", err)
	}
	if up.GameState.Board[2] != game.NoPlayer || up.GameState.CurrentPlayer != 1 {
		t.Fatalf("payload mangled: %+v", up.GameState)
	}
}
