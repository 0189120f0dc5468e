package game

import "encoding/json"

// TicTacToe is the 3x3 grid game, seats 0="X" and 1="O".
type TicTacToe struct{}

// tttTriples are the eight winning lines: 3 rows, 3 columns, 2 diagonals
var tttTriples = [8][3]int{
	{0, 1, 2}, {3, 4, 5}, {6, 7, 8},
	{0, 3, 6}, {1, 4, 7}, {2, 5, 8},
	{0, 4, 8}, {2, 4, 6},
}

type tttMove struct {
	Index int `json:"index"`
}

func (TicTacToe) Name() string    { return "tictactoe" }
func (TicTacToe) MaxPlayers() int { return 2 }

func (TicTacToe) Init() *State {
	return &State{
		Board:         emptyBoard(9),
		CurrentPlayer: 0,
		Status:        StatusWaiting,
		Winner:        NoPlayer,
	}
}

func (TicTacToe) PlayerSetup(seat int) PlayerAttrs {
	if seat == 0 {
		return PlayerAttrs{Symbol: "X"}
	}
	return PlayerAttrs{Symbol: "O"}
}

func (TicTacToe) ValidMove(s *State, seat int, raw json.RawMessage) bool {
	var mv tttMove
	if err := json.Unmarshal(raw, &mv); err != nil {
		return false
	}
	if s.Status != StatusPlaying || s.CurrentPlayer != seat {
		return false
	}
	return mv.Index >= 0 && mv.Index < len(s.Board) && s.Board[mv.Index] == NoPlayer
}

func (g TicTacToe) Move(s *State, seat int, raw json.RawMessage) *State {
	if !g.ValidMove(s, seat, raw) {
		return s
	}
	var mv tttMove
	_ = json.Unmarshal(raw, &mv)

	next := s.clone()
	next.Board[mv.Index] = seat

	if line, won := tttWin(next.Board, seat); won {
		next.Status = StatusWon
		next.Winner = seat
		next.Highlight = line
		return next
	}
	if tttFull(next.Board) {
		next.Status = StatusDraw
		return next
	}
	next.CurrentPlayer = nextSeat(seat)
	return next
}

// tttWin scans the eight fixed triples for three cells owned by seat
func tttWin(board []int, seat int) ([]int, bool) {
	for _, t := range tttTriples {
		if board[t[0]] == seat && board[t[1]] == seat && board[t[2]] == seat {
			return []int{t[0], t[1], t[2]}, true
		}
	}
	return nil, false
}

func tttFull(board []int) bool {
	for _, c := range board {
		if c == NoPlayer {
			return false
		}
	}
	return true
}
