// Package trial runs a single cheese race: garbage is seeded under an empty
// field and a solver places pieces until enough garbage rows are cleared or
// it finds no move.
package trial

import (
	"context"
	"fmt"
	"log/slog"
	mrand "math/rand"
	"slices"
	"time"

	"github.com/weiihann/cheeserace/garbage"
	"github.com/weiihann/cheeserace/tetris"
)

// MaxCheeseRows is the most garbage rows kept on the field at once.
const MaxCheeseRows = 10

// Mode names the evaluator a solver scores positions with.
type Mode string

// ModeDS is the downstack evaluator.
const ModeDS Mode = "DS"

// Solver picks the best move for a state. A nil outcome with a nil error
// means no move exists and the game is over.
type Solver interface {
	Solve(
		ctx context.Context,
		state tetris.State,
		depth int,
		mode Mode,
	) (*tetris.Outcome, error)
}

// Status is how a trial ended.
type Status int

// Trial end states.
const (
	Cleared Status = iota + 1
	GameOver
)

func (s Status) String() string {
	switch s {
	case Cleared:
		return "cleared"
	case GameOver:
		return "game over"
	default:
		return "unknown"
	}
}

// MarshalText encodes the status as its name.
func (s Status) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// Budget tracks garbage during a trial.
type Budget struct {
	// CheeseRow is the number of bottom rows still holding uncleared
	// garbage, in [0, MaxCheeseRows].
	CheeseRow int `json:"cheese_row"`
	// CheeseClears counts garbage rows cleared so far.
	CheeseClears int `json:"cheese_clears"`
}

// Metrics is the result of one trial.
type Metrics struct {
	Pieces int `json:"pieces"`
	// TotalElapsed is solver time summed in Granularity units, each
	// placement truncated separately.
	TotalElapsed int64 `json:"total_elapsed"`
	// AvgLatency is the smoothed solver latency in microseconds.
	AvgLatency int64  `json:"avg_latency_us"`
	Status     Status `json:"status"`
	Budget     Budget `json:"budget"`
}

// Placement describes one accepted solver move.
type Placement struct {
	Index      int
	Latency    time.Duration
	AvgLatency int64
	Budget     Budget
	Board      *tetris.Board
	Outcome    *tetris.Outcome
}

// Config controls how trials are played.
type Config struct {
	Depth       int
	Mode        Mode
	Delay       time.Duration
	Granularity time.Duration
	Seed        int64
}

// DefaultConfig returns search depth 2 with the DS evaluator, a 100ms pause
// between placements and elapsed time counted in seconds.
func DefaultConfig() Config {
	return Config{
		Depth:       2,
		Mode:        ModeDS,
		Delay:       100 * time.Millisecond,
		Granularity: time.Second,
	}
}

// Runner plays trials against a Solver. Garbage gaps and bag order come
// from a single seeded source shared by every trial the Runner plays.
type Runner struct {
	Solver Solver
	Config Config
	Logger *slog.Logger

	// OnPlacement, when set, is called after every accepted move.
	OnPlacement func(Placement)
	// OnGameOver, when set, is called when the solver finds no move.
	OnGameOver func()
	// OnSetup, when set, receives the seeded board before the first move.
	OnSetup func(board *tetris.Board, budget Budget)
	// Now is the clock used to time solver calls.
	Now func() time.Time

	rng *mrand.Rand
}

// NewRunner creates a Runner for solver.
func NewRunner(solver Solver, cfg Config, logger *slog.Logger) *Runner {
	if cfg.Granularity <= 0 {
		cfg.Granularity = time.Second
	}

	return &Runner{
		Solver: solver,
		Config: cfg,
		Logger: logger,
		Now:    time.Now,
		rng:    mrand.New(mrand.NewSource(cfg.Seed)),
	}
}

// Run plays one trial until lines garbage rows are cleared or the solver
// gives up. Game over is reported through Metrics.Status, not as an error.
func (r *Runner) Run(ctx context.Context, lines int) (Metrics, error) {
	if lines < 0 {
		return Metrics{}, fmt.Errorf("line target %d is negative", lines)
	}

	state := tetris.NewState()
	board := tetris.NewBoard(state.Field, garbage.Color)
	gen := garbage.NewGenerator(r.rng)
	bag := tetris.NewBag(r.rng)

	budget := Budget{CheeseRow: min(MaxCheeseRows, lines)}
	for i := 0; i < budget.CheeseRow; i++ {
		gen.Spawn(&state.Field, &board)
	}

	state.Pieces = Refill(state.Pieces, bag)

	if r.OnSetup != nil {
		r.OnSetup(&board, budget)
	}

	granularity := r.Config.Granularity
	if granularity <= 0 {
		granularity = time.Second
	}

	r.Logger.DebugContext(ctx, "trial started",
		slog.Int("lines", lines),
		slog.Int("cheese_rows", budget.CheeseRow),
	)

	m := Metrics{Status: Cleared}

	for budget.CheeseClears < lines {
		if err := ctx.Err(); err != nil {
			return m, err
		}

		state.Pieces = Refill(state.Pieces, bag)

		start := r.Now()

		out, err := r.Solver.Solve(ctx, state, r.Config.Depth, r.Config.Mode)
		if err != nil {
			return m, fmt.Errorf("solve piece %d: %w", m.Pieces+1, err)
		}

		if out == nil {
			m.Status = GameOver

			r.Logger.InfoContext(ctx, "no results found, game over",
				slog.Int("pieces", m.Pieces),
				slog.Int("cheese_clears", budget.CheeseClears),
			)

			if r.OnGameOver != nil {
				r.OnGameOver()
			}

			break
		}

		dt := r.Now().Sub(start)
		m.TotalElapsed += int64(dt / granularity)
		m.AvgLatency = smoothLatency(m.AvgLatency, dt.Microseconds(), m.Pieces == 0)

		alt := state.Hold
		if alt == tetris.None && len(state.Pieces) > 1 {
			alt = state.Pieces[1]
		}
		board.ApplyMove(out.Move, state.Pieces[0], alt)

		// The range is fixed before any row is counted.
		lo := tetris.Height - budget.CheeseRow
		for y := lo; y < tetris.Height; y++ {
			if out.Clears&(1<<y) != 0 {
				budget.CheeseRow--
				budget.CheeseClears++
			}
		}

		state.Field = out.State.Field
		state.Pieces = slices.Clone(out.State.Pieces)
		state.Hold = out.State.Hold

		if out.Clears == 0 &&
			budget.CheeseRow < MaxCheeseRows &&
			budget.CheeseClears+budget.CheeseRow < lines {
			for budget.CheeseRow < MaxCheeseRows {
				gen.Spawn(&state.Field, &board)
				budget.CheeseRow++
			}
		}

		m.Pieces++

		if r.OnPlacement != nil {
			r.OnPlacement(Placement{
				Index:      m.Pieces,
				Latency:    dt,
				AvgLatency: m.AvgLatency,
				Budget:     budget,
				Board:      &board,
				Outcome:    out,
			})
		}

		if err := pause(ctx, r.Config.Delay); err != nil {
			return m, err
		}
	}

	m.Budget = budget

	return m, nil
}

// smoothLatency folds sample into avg as the mean of the two. The first
// sample replaces avg outright.
func smoothLatency(avg, sample int64, first bool) int64 {
	if first {
		return sample
	}

	return (avg + sample) / 2
}

func pause(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return nil
	}

	t := time.NewTimer(d)
	defer t.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
