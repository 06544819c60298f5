package tetris

import mrand "math/rand"

// Bag is the 7-bag randomizer: every kind is dealt once before the bag is
// refilled.
type Bag struct {
	rng       *mrand.Rand
	remaining []Piece
}

// NewBag creates a full bag drawing from rng.
func NewBag(rng *mrand.Rand) *Bag {
	b := &Bag{rng: rng, remaining: make([]Piece, 0, len(Kinds))}
	b.refill()

	return b
}

// Draw removes a random piece from the bag, refilling it first when empty.
func (b *Bag) Draw() Piece {
	if len(b.remaining) == 0 {
		b.refill()
	}

	i := b.rng.Intn(len(b.remaining))
	p := b.remaining[i]

	last := len(b.remaining) - 1
	b.remaining[i] = b.remaining[last]
	b.remaining = b.remaining[:last]

	return p
}

// Len reports how many pieces are left before the next refill.
func (b *Bag) Len() int {
	return len(b.remaining)
}

func (b *Bag) refill() {
	b.remaining = append(b.remaining[:0], Kinds[:]...)
}
