package game

import (
	"encoding/json"
	"fmt"
	"sync"
)

// Status is a room's game lifecycle phase
type Status string

const (
	StatusWaiting Status = "waiting"
	StatusPlaying Status = "playing"
	StatusWon     Status = "won"
	StatusDraw    Status = "draw"
)

// NoPlayer marks an empty cell / absent winner
const NoPlayer = -1

// State is the authoritative game state for one room.
// Only an Engine produces new States; callers treat them as read-only
// and compare by pointer identity to detect "move did nothing".
type State struct {
	Board         []int  `json:"board"` // cell = seat index, NoPlayer = empty
	CurrentPlayer int    `json:"currentPlayer"`
	Status        Status `json:"status"`
	Winner        int    `json:"winner"` // seat index, NoPlayer = none
	Highlight     []int  `json:"highlight,omitempty"`

	lastRow, lastCol int // last placement, for engines that scan from it
}

// PlayerAttrs is the per-seat identity a game assigns (symbol or color)
type PlayerAttrs struct {
	Symbol string `json:"symbol,omitempty"`
	Color  string `json:"color,omitempty"`
}

// Engine is the rules contract one game type implements.
// Engines are stateless: they operate only on the State passed in.
type Engine interface {
	Name() string
	Init() *State
	MaxPlayers() int
	PlayerSetup(seat int) PlayerAttrs

	// ValidMove reports whether raw is a legal move for seat.
	ValidMove(s *State, seat int, raw json.RawMessage) bool

	// Move applies raw for seat. Returns the SAME *State when the move
	// is invalid; a fresh *State otherwise. Callers must not mutate it.
	Move(s *State, seat int, raw json.RawMessage) *State
}

// clone copies a state so a move never mutates its predecessor
func (s *State) clone() *State {
	next := *s
	next.Board = make([]int, len(s.Board))
	copy(next.Board, s.Board)
	next.Highlight = nil
	return &next
}

// WithStatus returns a copy of s with the lifecycle status replaced.
// Room lifecycle transitions (seat fill, disconnect) go through this
// so states already handed to callers stay read-only.
func (s *State) WithStatus(status Status) *State {
	next := *s
	next.Board = append([]int(nil), s.Board...)
	next.Highlight = append([]int(nil), s.Highlight...)
	next.Status = status
	return &next
}

// emptyBoard returns n cells all set to NoPlayer
func emptyBoard(n int) []int {
	b := make([]int, n)
	for i := range b {
		b[i] = NoPlayer
	}
	return b
}

// nextSeat alternates the turn between the two seats
func nextSeat(current int) int { return (current + 1) % 2 }

// Info describes a registered game type for the lobby API
type Info struct {
	Name       string `json:"name"`
	MaxPlayers int    `json:"maxPlayers"`
}

// Registry holds all registered game engines by type tag.
type Registry struct {
	mu      sync.RWMutex
	engines map[string]Engine
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{engines: make(map[string]Engine)}
}

// Register adds an engine. Panics on duplicate names.
func (r *Registry) Register(e Engine) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.engines[e.Name()]; exists {
		panic(fmt.Sprintf("game %q already registered", e.Name()))
	}
	r.engines[e.Name()] = e
}

// Get returns the engine for a game-type tag.
func (r *Registry) Get(name string) (Engine, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	e, ok := r.engines[name]
	return e, ok
}

// List returns info for all registered games.
func (r *Registry) List() []Info {
	r.mu.RLock()
	defer r.mu.RUnlock()
	infos := make([]Info, 0, len(r.engines))
	for _, e := range r.engines {
		infos = append(infos, Info{Name: e.Name(), MaxPlayers: e.MaxPlayers()})
	}
	return infos
}

// Default returns a registry with both built-in games.
func Default() *Registry {
	r := NewRegistry()
	r.Register(TicTacToe{})
	r.Register(ConnectFour{})
	return r
}
