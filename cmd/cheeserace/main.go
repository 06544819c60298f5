// Package main provides the CLI entry point for cheeserace, a cheese-race
// benchmark for external Tetris move solvers.
package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/mattn/go-isatty"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/weiihann/cheeserace/exam"
	"github.com/weiihann/cheeserace/harness"
	"github.com/weiihann/cheeserace/report"
	"github.com/weiihann/cheeserace/tetris"
	"github.com/weiihann/cheeserace/trial"
)

func main() {
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}))

	root := newRootCmd(logger)
	if err := root.Execute(); err != nil {
		logger.Error("cheeserace failed", slog.String("error", err.Error()))
		os.Exit(1)
	}
}

func newRootCmd(logger *slog.Logger) *cobra.Command {
	root := &cobra.Command{
		Use:   "cheeserace",
		Short: "Cheese-race benchmark for Tetris move solvers",
		Long: `Cheeserace fills the bottom of an empty field with single-gap garbage
rows and lets an external solver place pieces until a target number of
garbage rows has been cleared, measuring pieces used and solver latency.`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	root.AddCommand(newExamCmd(logger))
	root.AddCommand(newSandboxCmd(logger))

	return root
}

type runConfig struct {
	solver     string
	solverArgs []string
	engine     string
	enginesDir string
	skipBuild  bool
	iterations int
	lines      int
	depth      int
	mode       string
	delay      time.Duration
	seed       int64
	log        bool
	color      string
	outputJSON bool
	markdown   bool
}

func addSolverFlags(flags *pflag.FlagSet, cfg *runConfig) {
	flags.StringVar(&cfg.solver, "solver", "",
		"Path to a solver binary speaking the JSON-lines protocol")
	flags.StringSliceVar(&cfg.solverArgs, "solver-args", nil,
		"Extra arguments passed to the solver binary")
	flags.StringVar(&cfg.engine, "engine", "",
		"Solver engine to build from --engines-dir")
	flags.StringVar(&cfg.enginesDir, "engines-dir", "",
		"Path to solver engine sources (default: ./engines)")
	flags.BoolVar(&cfg.skipBuild, "skip-build", false,
		"Skip building the engine binary")
	flags.IntVar(&cfg.lines, "lines", 10,
		"Garbage rows to clear per trial")
	flags.IntVar(&cfg.depth, "depth", 2,
		"Solver search depth")
	flags.StringVar(&cfg.mode, "mode", string(trial.ModeDS),
		"Solver evaluator mode")
	flags.DurationVar(&cfg.delay, "delay", 100*time.Millisecond,
		"Pause after each placement (not counted as solver time)")
	flags.Int64Var(&cfg.seed, "seed", 0,
		"Random seed for garbage and bag (0 = use current time)")
	flags.BoolVar(&cfg.log, "log", false,
		"Print timing and the board after every placement")
	flags.StringVar(&cfg.color, "color", "auto",
		"Colour output: auto, always, never")
}

func newExamCmd(logger *slog.Logger) *cobra.Command {
	var cfg runConfig

	cmd := &cobra.Command{
		Use:   "exam",
		Short: "Run repeated cheese trials and summarize them",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runExam(cmd.Context(), logger,
				cmd.OutOrStdout(), cmd.ErrOrStderr(), cfg)
		},
	}

	flags := cmd.Flags()
	addSolverFlags(flags, &cfg)
	flags.IntVar(&cfg.iterations, "iters", 10,
		"Number of trials")
	flags.BoolVar(&cfg.outputJSON, "json", false,
		"Output the summary as JSON")
	flags.BoolVar(&cfg.markdown, "markdown", false,
		"Output the summary as a markdown table")

	return cmd
}

func newSandboxCmd(logger *slog.Logger) *cobra.Command {
	var cfg runConfig

	cmd := &cobra.Command{
		Use:   "sandbox",
		Short: "Play a single cheese trial",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runSandbox(cmd.Context(), logger, cmd.OutOrStdout(), cfg)
		},
	}

	addSolverFlags(cmd.Flags(), &cfg)

	return cmd
}

// runExam writes the final report to w. Live progress goes to w as well,
// unless a JSON or markdown report was requested, in which case it goes to
// progress so w holds only the report.
func runExam(
	ctx context.Context,
	logger *slog.Logger,
	w, progress io.Writer,
	cfg runConfig,
) error {
	if cfg.iterations < 1 {
		return fmt.Errorf("--iters must be at least 1")
	}

	consoleW := w
	if cfg.outputJSON || cfg.markdown {
		consoleW = progress
	}

	return withSolver(ctx, logger, cfg, func(solver trial.Solver) error {
		console := report.NewConsole(consoleW, useColor(cfg.color, consoleW))
		trials := newTrialRunner(solver, logger, console, cfg)

		console.Header(cfg.iterations, cfg.lines)

		runner := exam.NewRunner(trials, logger)
		runner.OnTrial = func(_ int, m trial.Metrics, pps float64) {
			console.EndLine()
			console.Trial(m, pps)
		}

		summary, err := runner.Run(ctx, cfg.iterations, cfg.lines)
		if err != nil {
			return fmt.Errorf("run exam: %w", err)
		}

		switch {
		case cfg.outputJSON:
			if err := report.GenerateJSON(w, []exam.Summary{summary}); err != nil {
				return fmt.Errorf("generate JSON report: %w", err)
			}
		case cfg.markdown:
			if err := report.Generate(w, []exam.Summary{summary}); err != nil {
				return fmt.Errorf("generate report: %w", err)
			}
		default:
			console.Summary(summary)
		}

		if err := console.Err(); err != nil {
			return fmt.Errorf("write output: %w", err)
		}

		return nil
	})
}

func runSandbox(
	ctx context.Context,
	logger *slog.Logger,
	w io.Writer,
	cfg runConfig,
) error {
	return withSolver(ctx, logger, cfg, func(solver trial.Solver) error {
		console := report.NewConsole(w, useColor(cfg.color, w))
		trials := newTrialRunner(solver, logger, console, cfg)
		trials.OnSetup = func(b *tetris.Board, _ trial.Budget) {
			console.Board(b)
		}

		m, err := trials.Run(ctx, cfg.lines)
		if err != nil {
			return fmt.Errorf("run trial: %w", err)
		}

		console.EndLine()
		console.Trial(m, exam.Throughput(m.AvgLatency))

		if err := console.Err(); err != nil {
			return fmt.Errorf("write output: %w", err)
		}

		return nil
	})
}

func newTrialRunner(
	solver trial.Solver,
	logger *slog.Logger,
	console *report.Console,
	cfg runConfig,
) *trial.Runner {
	seed := cfg.seed
	if seed == 0 {
		seed = time.Now().UnixNano()
	}

	tcfg := trial.DefaultConfig()
	tcfg.Depth = cfg.depth
	tcfg.Mode = trial.Mode(cfg.mode)
	tcfg.Delay = cfg.delay
	tcfg.Seed = seed

	logger.Info("trial settings",
		slog.Int("lines", cfg.lines),
		slog.Int("depth", tcfg.Depth),
		slog.String("mode", string(tcfg.Mode)),
		slog.Duration("delay", tcfg.Delay),
		slog.Int64("seed", seed),
	)

	runner := trial.NewRunner(solver, tcfg, logger)
	runner.OnPlacement = func(p trial.Placement) {
		if cfg.log {
			console.Placement(p)
		}
		console.Dot()
	}
	runner.OnGameOver = console.GameOver

	if cfg.log {
		runner.OnSetup = func(b *tetris.Board, _ trial.Budget) {
			console.Board(b)
		}
	}

	return runner
}

// withSolver starts the configured solver, runs fn against it and stops
// the solver again.
func withSolver(
	ctx context.Context,
	logger *slog.Logger,
	cfg runConfig,
	fn func(trial.Solver) error,
) (err error) {
	if cfg.lines < 0 {
		return fmt.Errorf("--lines must not be negative")
	}

	name, binPath, err := resolveSolver(ctx, logger, cfg)
	if err != nil {
		return err
	}

	proc := harness.NewProcess(name, binPath, cfg.solverArgs, nil, logger)
	if err := proc.Start(ctx); err != nil {
		return err
	}

	defer func() {
		if closeErr := proc.Close(); closeErr != nil && err == nil {
			err = closeErr
		}
	}()

	return fn(proc)
}

func resolveSolver(
	ctx context.Context,
	logger *slog.Logger,
	cfg runConfig,
) (string, string, error) {
	if cfg.solver != "" {
		return filepath.Base(cfg.solver), cfg.solver, nil
	}

	if cfg.engine == "" {
		return "", "", fmt.Errorf(
			"a solver must be specified via --solver or --engine",
		)
	}

	enginesDir := cfg.enginesDir
	if enginesDir == "" {
		enginesDir = "engines"
	}

	enginesDir, err := filepath.Abs(enginesDir)
	if err != nil {
		return "", "", fmt.Errorf("resolve engines dir: %w", err)
	}

	if cfg.skipBuild {
		return cfg.engine, harness.ResolveBinary(enginesDir, cfg.engine), nil
	}

	binPath, err := harness.Build(ctx, logger, enginesDir, cfg.engine)
	if err != nil {
		return "", "", fmt.Errorf("build %s: %w", cfg.engine, err)
	}

	return cfg.engine, binPath, nil
}

func useColor(mode string, w io.Writer) bool {
	switch mode {
	case "always":
		return true
	case "never":
		return false
	}

	f, ok := w.(*os.File)
	if !ok {
		return false
	}

	return isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd())
}
