package trial

import "github.com/weiihann/cheeserace/tetris"

// QueueLength is the minimum number of upcoming pieces kept visible to the
// solver.
const QueueLength = 6

// Drawer deals the next piece from a bag.
type Drawer interface {
	Draw() tetris.Piece
}

// Refill appends pieces from d until queue holds at least QueueLength
// pieces. A queue that is already long enough is returned unchanged.
func Refill(queue []tetris.Piece, d Drawer) []tetris.Piece {
	for len(queue) < QueueLength {
		queue = append(queue, d.Draw())
	}

	return queue
}
