package ws

import (
	"encoding/json"

	"github.com/Voxpin/web-tac-toe/internal/game"
	"github.com/Voxpin/web-tac-toe/internal/room"
)

// Envelope is the wire frame every event travels in, both directions.
type Envelope struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload,omitempty"`
}

// Inbound event payloads

type createRoomReq struct {
	Username string `json:"username"`
	GameType string `json:"gameType"`
}

type joinRoomReq struct {
	RoomID   string `json:"roomId"`
	Username string `json:"username"`
}

type makeMoveReq struct {
	RoomID string          `json:"roomId"`
	Move   json.RawMessage `json:"move"` // game-shaped: {index} or {column}
}

type resetGameReq struct {
	RoomID string `json:"roomId"`
}

// Outbound event payloads

type roomCreatedMsg struct {
	RoomID      string           `json:"roomId"`
	GameType    string           `json:"gameType"`
	PlayerIndex int              `json:"playerIndex"`
	PlayerInfo  game.PlayerAttrs `json:"playerInfo"`
	GameState   *game.State      `json:"gameState"`
}

type roomJoinedMsg struct {
	RoomID      string           `json:"roomId"`
	GameType    string           `json:"gameType"`
	PlayerIndex int              `json:"playerIndex"`
	PlayerInfo  game.PlayerAttrs `json:"playerInfo"`
	GameState   *game.State      `json:"gameState"`
	Players     []*room.Player   `json:"players"`
}

type joinedAsSpectatorMsg struct {
	RoomID    string         `json:"roomId"`
	GameType  string         `json:"gameType"`
	GameState *game.State    `json:"gameState"`
	Players   []*room.Player `json:"players"`
}

type gameStartMsg struct {
	GameState *game.State    `json:"gameState"`
	Players   []*room.Player `json:"players"`
}

type spectatorJoinedMsg struct {
	Username string `json:"username"`
}

type gameStateUpdateMsg struct {
	GameState *game.State `json:"gameState"`
}

type gameResetMsg struct {
	GameState *game.State `json:"gameState"`
}

type playerDisconnectedMsg struct {
	Username    string      `json:"username"`
	PlayerIndex int         `json:"playerIndex"`
	GameState   *game.State `json:"gameState"`
}

type spectatorLeftMsg struct {
	Username string `json:"username"`
}

type errorMsg struct {
	Message string `json:"message"`
}

// marshal frames a payload in an envelope. Payload marshalling of our
// own message types cannot fail, so errors are swallowed here.
func marshal(typ string, payload any) []byte {
	raw, _ := json.Marshal(payload)
	b, _ := json.Marshal(Envelope{Type: typ, Payload: raw})
	return b
}
