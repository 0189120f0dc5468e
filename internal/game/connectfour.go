package game

import "encoding/json"

// ConnectFour is the drop-a-disc game, seats 0="red" and 1="yellow".
// The board is row-major with row 0 at the top; a drop settles at the
// lowest empty row of its column.
type ConnectFour struct{}

const (
	c4Cols = 7
	c4Rows = 7
)

// c4Lines are the four line orientations through a placed piece:
// horizontal, vertical, and both diagonals, as (dRow, dCol) steps.
var c4Lines = [4][2]int{{0, 1}, {1, 0}, {1, 1}, {1, -1}}

type c4Move struct {
	Column int `json:"column"`
}

func (ConnectFour) Name() string    { return "connectfour" }
func (ConnectFour) MaxPlayers() int { return 2 }

func (ConnectFour) Init() *State {
	return &State{
		Board:         emptyBoard(c4Rows * c4Cols),
		CurrentPlayer: 0,
		Status:        StatusWaiting,
		Winner:        NoPlayer,
		lastRow:       NoPlayer,
		lastCol:       NoPlayer,
	}
}

func (ConnectFour) PlayerSetup(seat int) PlayerAttrs {
	if seat == 0 {
		return PlayerAttrs{Color: "red"}
	}
	return PlayerAttrs{Color: "yellow"}
}

func (ConnectFour) ValidMove(s *State, seat int, raw json.RawMessage) bool {
	var mv c4Move
	if err := json.Unmarshal(raw, &mv); err != nil {
		return false
	}
	if s.Status != StatusPlaying || s.CurrentPlayer != seat {
		return false
	}
	if mv.Column < 0 || mv.Column >= c4Cols {
		return false
	}
	// column is full once its top cell is taken
	return s.Board[mv.Column] == NoPlayer
}

func (g ConnectFour) Move(s *State, seat int, raw json.RawMessage) *State {
	if !g.ValidMove(s, seat, raw) {
		return s
	}
	var mv c4Move
	_ = json.Unmarshal(raw, &mv)

	next := s.clone()
	row := c4Drop(next.Board, mv.Column, seat)
	next.lastRow, next.lastCol = row, mv.Column

	if cells, won := c4Win(next.Board, row, mv.Column, seat); won {
		next.Status = StatusWon
		next.Winner = seat
		next.Highlight = cells
		return next
	}
	if c4Full(next.Board) {
		next.Status = StatusDraw
		return next
	}
	next.CurrentPlayer = nextSeat(seat)
	return next
}

// c4Drop places seat's piece at the lowest empty row of col and
// returns that row. The caller guarantees the column has space.
func c4Drop(board []int, col, seat int) int {
	for row := c4Rows - 1; row >= 0; row-- {
		if board[row*c4Cols+col] == NoPlayer {
			board[row*c4Cols+col] = seat
			return row
		}
	}
	return NoPlayer
}

// c4Win checks only the four lines through the piece just placed at
// (row, col). For each line it walks both directions (step multiplier
// ±1), at most 3 further cells per direction, and accepts a win at 4
// or more contiguous cells owned by seat.
func c4Win(board []int, row, col, seat int) ([]int, bool) {
	for _, d := range c4Lines {
		cells := []int{row*c4Cols + col}
		for _, mult := range [2]int{1, -1} {
			dr, dc := d[0]*mult, d[1]*mult
			r, c := row+dr, col+dc
			for steps := 0; steps < 3; steps++ {
				if r < 0 || r >= c4Rows || c < 0 || c >= c4Cols {
					break
				}
				if board[r*c4Cols+c] != seat {
					break
				}
				cells = append(cells, r*c4Cols+c)
				r += dr
				c += dc
			}
		}
		if len(cells) >= 4 {
			return cells, true
		}
	}
	return nil, false
}

// c4Full reports whether every column's top cell is occupied
func c4Full(board []int) bool {
	for col := 0; col < c4Cols; col++ {
		if board[col] == NoPlayer {
			return false
		}
	}
	return true
}
