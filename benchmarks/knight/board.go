package knight

import (
	"fmt"
	"strings"

	"github.com/zeu5/knight-rl/core"
)

// Coord is a (row, column) cell coordinate
type Coord struct {
	Row int `json:"row" yaml:"row"`
	Col int `json:"col" yaml:"col"`
}

func (c Coord) String() string {
	return fmt.Sprintf("(%d,%d)", c.Row, c.Col)
}

// Add returns c shifted by the move's offset
func (c Coord) Add(m Move) Coord {
	dr, dc := m.Offset()
	return Coord{Row: c.Row + dr, Col: c.Col + dc}
}

// Board tracks which cells the knight has visited and where it currently
// stands. A cell is only ever cleared by Reset.
type Board struct {
	rows     int
	cols     int
	occupied []bool
	visited  int

	current    Coord
	hasCurrent bool
}

var _ core.State = &Board{}
var _ core.Outcome = &Board{}

// NewBoard creates an empty rows x cols board with no knight placed
func NewBoard(rows, cols int) (*Board, error) {
	if rows <= 0 || cols <= 0 {
		return nil, fmt.Errorf("%w: dimensions %dx%d must be positive", ErrConfiguration, rows, cols)
	}
	return &Board{
		rows:     rows,
		cols:     cols,
		occupied: make([]bool, rows*cols),
	}, nil
}

// NewBoardAt creates a board with the knight placed at start
func NewBoardAt(rows, cols int, start Coord) (*Board, error) {
	b, err := NewBoard(rows, cols)
	if err != nil {
		return nil, err
	}
	if !b.InBounds(start) {
		return nil, fmt.Errorf("%w: start %s outside %dx%d grid", ErrConfiguration, start, rows, cols)
	}
	if err := b.Place(start); err != nil {
		return nil, err
	}
	return b, nil
}

func (b *Board) Rows() int { return b.rows }
func (b *Board) Cols() int { return b.cols }

// Cells is the total number of cells on the board
func (b *Board) Cells() int { return b.rows * b.cols }

// Visited is the number of occupied cells
func (b *Board) Visited() int { return b.visited }

// Current returns the knight position, false before the first placement
func (b *Board) Current() (Coord, bool) {
	return b.current, b.hasCurrent
}

func (b *Board) InBounds(c Coord) bool {
	return c.Row >= 0 && c.Row < b.rows && c.Col >= 0 && c.Col < b.cols
}

// Occupied reports whether c has been visited. Out of bounds cells are never occupied.
func (b *Board) Occupied(c Coord) bool {
	if !b.InBounds(c) {
		return false
	}
	return b.occupied[b.index(c)]
}

func (b *Board) index(c Coord) int {
	return c.Row*b.cols + c.Col
}

// Place puts the knight on c and marks it occupied
func (b *Board) Place(c Coord) error {
	if !b.InBounds(c) {
		return fmt.Errorf("%w: %s is outside the %dx%d grid", ErrInvalidState, c, b.rows, b.cols)
	}
	if b.occupied[b.index(c)] {
		return fmt.Errorf("%w: %s is already occupied", ErrInvalidState, c)
	}
	b.occupied[b.index(c)] = true
	b.visited++
	b.current = c
	b.hasCurrent = true
	return nil
}

// Candidate is the cell the move would land on, without any checks
func (b *Board) Candidate(m Move) Coord {
	return b.current.Add(m)
}

// IsLegal is true when the move lands in bounds on an unoccupied cell
func (b *Board) IsLegal(m Move) bool {
	if !b.hasCurrent || !m.Valid() {
		return false
	}
	next := b.Candidate(m)
	if next.Row < 0 || next.Row >= b.rows {
		return false
	}
	if next.Col < 0 || next.Col >= b.cols {
		return false
	}
	return !b.occupied[b.index(next)]
}

// LegalMoves returns the legal subset of the move set. The order carries no
// meaning.
func (b *Board) LegalMoves() []Move {
	out := make([]Move, 0, len(Moves))
	for _, m := range Moves {
		if b.IsLegal(m) {
			out = append(out, m)
		}
	}
	return out
}

// Apply moves the knight
func (b *Board) Apply(m Move) error {
	if !b.IsLegal(m) {
		return fmt.Errorf("%w: move %s from %s", ErrInvalidState, m, b.current)
	}
	return b.Place(b.Candidate(m))
}

// IsTerminal is true when no legal move remains
func (b *Board) IsTerminal() bool {
	for _, m := range Moves {
		if b.IsLegal(m) {
			return false
		}
	}
	return true
}

// IsCovered is true when every cell has been visited
func (b *Board) IsCovered() bool {
	return b.visited == len(b.occupied)
}

func (b *Board) Clone() *Board {
	occupied := make([]bool, len(b.occupied))
	copy(occupied, b.occupied)
	return &Board{
		rows:       b.rows,
		cols:       b.cols,
		occupied:   occupied,
		visited:    b.visited,
		current:    b.current,
		hasCurrent: b.hasCurrent,
	}
}

// Reset clears the board in place keeping its dimensions
func (b *Board) Reset() {
	for i := range b.occupied {
		b.occupied[i] = false
	}
	b.visited = 0
	b.current = Coord{}
	b.hasCurrent = false
}

// Key encodes the board one character per cell in row-major order:
// '0' empty, '1' visited, '2' visited and holding the knight.
func (b *Board) Key() string {
	var sb strings.Builder
	sb.Grow(len(b.occupied))
	for i, occ := range b.occupied {
		switch {
		case !occ:
			sb.WriteByte('0')
		case b.hasCurrent && i == b.index(b.current):
			sb.WriteByte('2')
		default:
			sb.WriteByte('1')
		}
	}
	return sb.String()
}

// Hash implements core.State
func (b *Board) Hash() string {
	return b.Key()
}

func (b *Board) Actions() []core.Action {
	moves := b.LegalMoves()
	out := make([]core.Action, len(moves))
	for i, m := range moves {
		out[i] = m
	}
	return out
}

func (b *Board) Terminal() bool {
	return b.IsTerminal()
}

func (b *Board) Success() bool {
	return b.IsCovered()
}

// After returns a copy of the board with the action applied. The receiver is
// not modified.
func (b *Board) After(a core.Action) (core.State, error) {
	m, ok := a.(Move)
	if !ok {
		return nil, fmt.Errorf("%w: %v is not a knight move", ErrInvalidState, a)
	}
	next := b.Clone()
	if err := next.Apply(m); err != nil {
		return nil, err
	}
	return next, nil
}
