// Package harness drives external solver binaries over a JSON-lines
// protocol on stdin and stdout.
package harness

import (
	"fmt"

	"github.com/weiihann/cheeserace/tetris"
	"github.com/weiihann/cheeserace/trial"
)

// Request is one line written to the solver.
type Request struct {
	Field  tetris.Field   `json:"field"`
	Pieces []tetris.Piece `json:"pieces"`
	Hold   tetris.Piece   `json:"hold"`
	Depth  int            `json:"depth"`
	Mode   trial.Mode     `json:"mode"`
}

// Response is one line read back from the solver. Found is false when
// the solver has no move.
type Response struct {
	Found  bool           `json:"found"`
	Field  tetris.Field   `json:"field"`
	Pieces []tetris.Piece `json:"pieces"`
	Hold   tetris.Piece   `json:"hold"`
	Clears uint32         `json:"clears"`
	Move   tetris.Move    `json:"move"`
	Error  string         `json:"error,omitempty"`
}

func newRequest(
	state tetris.State,
	depth int,
	mode trial.Mode,
) Request {
	return Request{
		Field:  state.Field,
		Pieces: state.Pieces,
		Hold:   state.Hold,
		Depth:  depth,
		Mode:   mode,
	}
}

// Outcome converts the response into a solver outcome, or nil when no move
// was found.
func (r *Response) Outcome() (*tetris.Outcome, error) {
	if r.Error != "" {
		return nil, fmt.Errorf("solver error: %s", r.Error)
	}

	if !r.Found {
		return nil, nil
	}

	for y, row := range r.Field {
		if row&^tetris.FullRow != 0 {
			return nil, fmt.Errorf("row %d mask %#x exceeds %d columns",
				y, row, tetris.Width)
		}
	}

	if r.Clears>>tetris.Height != 0 {
		return nil, fmt.Errorf("clears %#x has bits above row %d",
			r.Clears, tetris.Height-1)
	}

	return &tetris.Outcome{
		State: tetris.State{
			Field:  r.Field,
			Pieces: r.Pieces,
			Hold:   r.Hold,
		},
		Move:   r.Move,
		Clears: r.Clears,
	}, nil
}
