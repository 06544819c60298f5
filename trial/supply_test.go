package trial

import (
	mrand "math/rand"
	"testing"

	"github.com/weiihann/cheeserace/tetris"
)

type countingDrawer struct {
	next  tetris.Piece
	draws int
}

func (d *countingDrawer) Draw() tetris.Piece {
	d.draws++

	return d.next
}

func TestRefill(t *testing.T) {
	tests := []struct {
		name      string
		start     []tetris.Piece
		wantLen   int
		wantDraws int
	}{
		{"empty", nil, QueueLength, QueueLength},
		{"partial", []tetris.Piece{tetris.T, tetris.I}, QueueLength, QueueLength - 2},
		{"full", make([]tetris.Piece, QueueLength), QueueLength, 0},
		{"over", make([]tetris.Piece, QueueLength+3), QueueLength + 3, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d := &countingDrawer{next: tetris.O}

			got := Refill(tt.start, d)

			if len(got) != tt.wantLen {
				t.Errorf("len = %d, want %d", len(got), tt.wantLen)
			}
			if d.draws != tt.wantDraws {
				t.Errorf("draws = %d, want %d", d.draws, tt.wantDraws)
			}
		})
	}
}

func TestRefillKeepsOrder(t *testing.T) {
	queue := []tetris.Piece{tetris.S, tetris.Z}

	got := Refill(queue, tetris.NewBag(mrand.New(mrand.NewSource(1))))

	if got[0] != tetris.S || got[1] != tetris.Z {
		t.Errorf("head = %v %v, want S Z", got[0], got[1])
	}

	seen := make(map[tetris.Piece]bool)
	for _, p := range got[2:] {
		if seen[p] {
			t.Errorf("piece %v dealt twice within one bag", p)
		}
		seen[p] = true
	}
}
