// Package garbage generates single-gap "cheese" rows. Consecutive rows
// never share a gap column.
package garbage

import (
	"math/bits"
	mrand "math/rand"

	"github.com/weiihann/cheeserace/tetris"
)

// Color is the piece kind garbage cells are painted with on a Board.
const Color = tetris.L

// Generator produces garbage rows and remembers the last gap column.
type Generator struct {
	rng     *mrand.Rand
	lastGap int
}

// NewGenerator creates a Generator drawing from rng. The previous gap
// starts at column 0, so the first row never has its gap there.
func NewGenerator(rng *mrand.Rand) *Generator {
	return &Generator{rng: rng}
}

// NewSeeded creates a Generator with its own deterministic source.
func NewSeeded(seed int64) *Generator {
	return NewGenerator(mrand.New(mrand.NewSource(seed)))
}

// LastGap returns the gap column of the most recent row.
func (g *Generator) LastGap() int {
	return g.lastGap
}

// Next picks a gap column different from the previous one and returns the
// row mask with every other column filled.
func (g *Generator) Next() uint16 {
	gap := g.lastGap
	for gap == g.lastGap {
		gap = g.rng.Intn(tetris.Width)
	}

	g.lastGap = gap

	return tetris.FullRow &^ (1 << gap)
}

// Spawn pushes a new garbage row into the bottom of both field and board.
func (g *Generator) Spawn(field *tetris.Field, board *tetris.Board) uint16 {
	row := g.Next()

	field.PushRow(row)
	board.PushRow(row, Color)

	return row
}

// IsRow reports whether mask is a garbage row: nine columns filled and
// one gap.
func IsRow(mask uint16) bool {
	return mask&^tetris.FullRow == 0 &&
		bits.OnesCount16(mask) == tetris.Width-1
}

// Gap returns the gap column of a garbage row, or -1 if mask is not one.
func Gap(mask uint16) int {
	if !IsRow(mask) {
		return -1
	}

	return bits.TrailingZeros16(^mask)
}
