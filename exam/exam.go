// Package exam runs batches of cheese-race trials and summarizes them.
//
// Averages here are smoothed pairwise: the first sample sets the average
// and each later sample moves it halfway towards itself. This is not the
// arithmetic mean of all samples and later trials weigh more.
package exam

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/google/uuid"
	"github.com/weiihann/cheeserace/trial"
)

// TrialRunner plays one trial.
type TrialRunner interface {
	Run(ctx context.Context, lines int) (trial.Metrics, error)
}

// Summary aggregates the metrics of every trial in an exam. Fewer pieces
// and less time are better, so Best is the minimum and Worst the maximum.
type Summary struct {
	ID          string  `json:"id"`
	Iterations  int     `json:"iterations"`
	Lines       int     `json:"lines"`
	AvgPieces   float64 `json:"avg_pieces"`
	WorstPieces int     `json:"worst_pieces"`
	BestPieces  int     `json:"best_pieces"`
	AvgTime     float64 `json:"avg_time"`
	WorstTime   int64   `json:"worst_time"`
	BestTime    int64   `json:"best_time"`
	AvgPPS      float64 `json:"avg_pps"`
	GameOvers   int     `json:"game_overs"`
}

// Add folds the metrics of one more trial into s.
func (s *Summary) Add(m trial.Metrics) {
	pps := Throughput(m.AvgLatency)

	if s.Iterations == 0 {
		s.AvgPieces = float64(m.Pieces)
		s.WorstPieces = m.Pieces
		s.BestPieces = m.Pieces
		s.AvgTime = float64(m.TotalElapsed)
		s.WorstTime = m.TotalElapsed
		s.BestTime = m.TotalElapsed
		s.AvgPPS = pps
	} else {
		s.AvgPieces = smooth(s.AvgPieces, float64(m.Pieces))
		s.WorstPieces = max(s.WorstPieces, m.Pieces)
		s.BestPieces = min(s.BestPieces, m.Pieces)
		s.AvgTime = smooth(s.AvgTime, float64(m.TotalElapsed))
		s.WorstTime = max(s.WorstTime, m.TotalElapsed)
		s.BestTime = min(s.BestTime, m.TotalElapsed)
		s.AvgPPS = smooth(s.AvgPPS, pps)
	}

	if m.Status == trial.GameOver {
		s.GameOvers++
	}

	s.Iterations++
}

// Throughput converts an average latency in microseconds into pieces per
// second. A trial with no measured placement has zero throughput.
func Throughput(avgLatencyMicros int64) float64 {
	if avgLatencyMicros <= 0 {
		return 0
	}

	return 1 / (float64(avgLatencyMicros) / 1e6)
}

func smooth(avg, sample float64) float64 {
	return (avg + sample) / 2
}

// Runner runs exams. OnTrial, when set, receives each trial's metrics and
// throughput as soon as the trial ends.
type Runner struct {
	Trials  TrialRunner
	Logger  *slog.Logger
	OnTrial func(index int, m trial.Metrics, pps float64)
}

// NewRunner creates a Runner playing trials with tr.
func NewRunner(tr TrialRunner, logger *slog.Logger) *Runner {
	return &Runner{
		Trials: tr,
		Logger: logger,
	}
}

// Run plays iterations trials of lines garbage rows each, one after the
// other, and returns their summary.
func (r *Runner) Run(
	ctx context.Context,
	iterations, lines int,
) (Summary, error) {
	if iterations < 1 {
		return Summary{}, fmt.Errorf(
			"iterations must be at least 1, got %d", iterations,
		)
	}

	summary := Summary{
		ID:    uuid.NewString(),
		Lines: lines,
	}

	logger := r.Logger.With(slog.String("exam", summary.ID))
	logger.InfoContext(ctx, "exam started",
		slog.Int("iterations", iterations),
		slog.Int("lines", lines),
	)

	for i := 0; i < iterations; i++ {
		m, err := r.Trials.Run(ctx, lines)
		if err != nil {
			return summary, fmt.Errorf("trial %d: %w", i+1, err)
		}

		summary.Add(m)

		logger.DebugContext(ctx, "trial finished",
			slog.Int("trial", i+1),
			slog.Int("pieces", m.Pieces),
			slog.Int64("total_elapsed", m.TotalElapsed),
			slog.Int64("avg_latency_us", m.AvgLatency),
			slog.String("status", m.Status.String()),
		)

		if r.OnTrial != nil {
			r.OnTrial(i+1, m, Throughput(m.AvgLatency))
		}
	}

	logger.InfoContext(ctx, "exam complete",
		slog.Float64("avg_pieces", summary.AvgPieces),
		slog.Float64("avg_pps", summary.AvgPPS),
	)

	return summary, nil
}
