// Package tetris holds the board, piece and solver result types shared by
// the cheese-race harness.
package tetris

import "fmt"

const (
	// Width is the number of columns in a row.
	Width = 10
	// Height is the number of rows in a field.
	Height = 20

	// FullRow has every column bit set.
	FullRow uint16 = 1<<Width - 1
)

// Piece is a tetromino kind, or None for an empty cell or hold slot.
type Piece uint8

// Piece kinds.
const (
	None Piece = iota
	J
	L
	S
	Z
	T
	I
	O
)

// Kinds lists the seven tetromino kinds in bag order.
var Kinds = [...]Piece{J, L, S, Z, T, I, O}

var pieceNames = [...]string{"", "J", "L", "S", "Z", "T", "I", "O"}

func (p Piece) String() string {
	if int(p) < len(pieceNames) {
		return pieceNames[p]
	}

	return fmt.Sprintf("Piece(%d)", uint8(p))
}

// MarshalText encodes the piece as its letter, or an empty string for None.
func (p Piece) MarshalText() ([]byte, error) {
	if int(p) >= len(pieceNames) {
		return nil, fmt.Errorf("invalid piece %d", uint8(p))
	}

	return []byte(pieceNames[p]), nil
}

// UnmarshalText decodes a piece letter.
func (p *Piece) UnmarshalText(text []byte) error {
	parsed, err := ParsePiece(string(text))
	if err != nil {
		return err
	}

	*p = parsed

	return nil
}

// ParsePiece converts a letter into a Piece. The empty string is None.
func ParsePiece(s string) (Piece, error) {
	for i, name := range pieceNames {
		if name == s {
			return Piece(i), nil
		}
	}

	return None, fmt.Errorf("unknown piece %q", s)
}

// Field is the occupancy bitmap: bit x of row y is set when cell (y, x) is
// filled. Row 0 is the top.
type Field [Height]uint16

// PushRow shifts every row up by one, dropping the top row, and writes
// mask into the bottom row.
func (f *Field) PushRow(mask uint16) {
	copy(f[:Height-1], f[1:])
	f[Height-1] = mask & FullRow
}

// Board mirrors a Field with the piece kind that filled each cell.
type Board [Height][Width]Piece

// PushRow shifts the board up like Field.PushRow and paints the set bits
// of mask with kind.
func (b *Board) PushRow(mask uint16, kind Piece) {
	copy(b[:Height-1], b[1:])

	for x := 0; x < Width; x++ {
		if mask&(1<<x) != 0 {
			b[Height-1][x] = kind
		} else {
			b[Height-1][x] = None
		}
	}
}

// RowMask returns the occupancy bitmask of row y.
func (b *Board) RowMask(y int) uint16 {
	var mask uint16
	for x, cell := range b[y] {
		if cell != None {
			mask |= 1 << x
		}
	}

	return mask
}

// Occupancy converts the board back into a Field.
func (b *Board) Occupancy() Field {
	var f Field
	for y := range b {
		f[y] = b.RowMask(y)
	}

	return f
}

// ApplyMove paints the cells of m with the piece that was placed, then
// removes completed rows. When m uses hold, alt is painted instead of
// active.
func (b *Board) ApplyMove(m Move, active, alt Piece) {
	kind := active
	if m.Hold {
		kind = alt
	}

	for _, c := range m.Cells {
		if c.X < 0 || c.X >= Width || c.Y < 0 || c.Y >= Height {
			continue
		}
		b[c.Y][c.X] = kind
	}

	b.clearFull()
}

func (b *Board) clearFull() {
	dst := Height - 1
	for y := Height - 1; y >= 0; y-- {
		if b.RowMask(y) == FullRow {
			continue
		}
		b[dst] = b[y]
		dst--
	}

	for ; dst >= 0; dst-- {
		b[dst] = [Width]Piece{}
	}
}

// NewBoard builds a board whose occupied cells match f. Cells are painted
// with kind since a Field carries no colour.
func NewBoard(f Field, kind Piece) Board {
	var b Board
	for y, row := range f {
		for x := 0; x < Width; x++ {
			if row&(1<<x) != 0 {
				b[y][x] = kind
			}
		}
	}

	return b
}

// Cell is a board coordinate.
type Cell struct {
	X int `json:"x"`
	Y int `json:"y"`
}

// Move is the placement a solver chose.
type Move struct {
	Hold  bool    `json:"hold"`
	Cells [4]Cell `json:"cells"`
}

// State is the game position handed to a solver.
type State struct {
	Field  Field
	Pieces []Piece
	Hold   Piece
}

// NewState returns an empty field with no queued pieces.
func NewState() State {
	return State{Pieces: make([]Piece, 0, 8)}
}

// Outcome is a solver's answer: the position after the move, the move
// itself and the rows it cleared (bit y set when row y was cleared).
type Outcome struct {
	State  State
	Move   Move
	Clears uint32
}
