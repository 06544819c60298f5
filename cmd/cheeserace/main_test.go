package main

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"os"
	"strings"
	"testing"

	"github.com/weiihann/cheeserace/exam"
	"github.com/weiihann/cheeserace/harness"
	"github.com/weiihann/cheeserace/tetris"
)

const helperEnv = "CHEESERACE_HELPER_SOLVER"

var boardFloor = "+" + strings.Repeat("-", tetris.Width) + "+"

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// TestHelperSolver is not a real test. It is a solver that always clears
// the bottom row, started by the command tests below.
func TestHelperSolver(t *testing.T) {
	if os.Getenv(helperEnv) == "" {
		return
	}

	in := bufio.NewScanner(os.Stdin)
	enc := json.NewEncoder(os.Stdout)

	for in.Scan() {
		var req harness.Request
		if err := json.Unmarshal(in.Bytes(), &req); err != nil {
			os.Exit(2)
		}

		field := req.Field
		copy(field[1:], req.Field[:tetris.Height-1])
		field[0] = 0

		enc.Encode(harness.Response{
			Found:  true,
			Field:  field,
			Pieces: req.Pieces[1:],
			Hold:   req.Hold,
			Clears: 1 << (tetris.Height - 1),
		})
	}

	os.Exit(0)
}

func helperConfig(t *testing.T) runConfig {
	t.Helper()
	t.Setenv(helperEnv, "1")

	return runConfig{
		solver:     os.Args[0],
		solverArgs: []string{"-test.run=^TestHelperSolver$"},
		iterations: 2,
		lines:      3,
		depth:      2,
		mode:       "DS",
		seed:       1,
		color:      "never",
	}
}

func TestRunExam(t *testing.T) {
	cfg := helperConfig(t)

	var buf bytes.Buffer
	if err := runExam(context.Background(), testLogger(), &buf, io.Discard, cfg); err != nil {
		t.Fatalf("runExam failed: %v", err)
	}

	output := buf.String()

	for _, want := range []string{
		"--iters: 2, lines: 3--",
		"...\n",
		"Results: pieces: 3",
		"avg pieces: 3, worst: 3, best: 3",
	} {
		if !strings.Contains(output, want) {
			t.Errorf("expected %q in output:\n%s", want, output)
		}
	}
}

func TestRunExamJSON(t *testing.T) {
	cfg := helperConfig(t)
	cfg.outputJSON = true

	var stdout, stderr bytes.Buffer
	if err := runExam(context.Background(), testLogger(), &stdout, &stderr, cfg); err != nil {
		t.Fatalf("runExam failed: %v", err)
	}

	var summaries []exam.Summary
	if err := json.Unmarshal(stdout.Bytes(), &summaries); err != nil {
		t.Fatalf("stdout is not a JSON report: %v\n%s", err, stdout.String())
	}

	if len(summaries) != 1 {
		t.Fatalf("summaries = %d, want 1", len(summaries))
	}

	s := summaries[0]
	if s.Iterations != 2 || s.Lines != 3 {
		t.Errorf("iterations, lines = %d, %d, want 2, 3", s.Iterations, s.Lines)
	}
	if s.BestPieces != 3 || s.WorstPieces != 3 {
		t.Errorf("best, worst pieces = %d, %d, want 3, 3", s.BestPieces, s.WorstPieces)
	}

	progress := stderr.String()
	for _, want := range []string{"--CHEESE EXAM--", "Results: pieces: 3"} {
		if !strings.Contains(progress, want) {
			t.Errorf("expected %q in progress output:\n%s", want, progress)
		}
	}
}

func TestRunExamMarkdown(t *testing.T) {
	cfg := helperConfig(t)
	cfg.markdown = true

	var stdout, stderr bytes.Buffer
	if err := runExam(context.Background(), testLogger(), &stdout, &stderr, cfg); err != nil {
		t.Fatalf("runExam failed: %v", err)
	}

	output := stdout.String()

	if !strings.HasPrefix(output, "## Cheese Exam Results") {
		t.Errorf("stdout does not start with the report:\n%s", output)
	}
	for _, unwanted := range []string{"--CHEESE EXAM--", "Results: pieces:"} {
		if strings.Contains(output, unwanted) {
			t.Errorf("progress %q leaked into the report:\n%s", unwanted, output)
		}
	}

	if !strings.Contains(stderr.String(), "--CHEESE EXAM--") {
		t.Errorf("expected exam header in progress output:\n%s", stderr.String())
	}
}

func TestRunSandboxLog(t *testing.T) {
	cfg := helperConfig(t)
	cfg.log = true

	var buf bytes.Buffer
	if err := runSandbox(context.Background(), testLogger(), &buf, cfg); err != nil {
		t.Fatalf("runSandbox failed: %v", err)
	}

	output := buf.String()

	if got := strings.Count(output, "Time consumed:"); got != 3 {
		t.Errorf("placements logged = %d, want 3", got)
	}
	// The seeded board plus one board per placement.
	if got := strings.Count(output, boardFloor); got != 4 {
		t.Errorf("boards drawn = %d, want 4", got)
	}
	if !strings.Contains(output, "Results: pieces: 3") {
		t.Errorf("expected trial result in output:\n%s", output)
	}
}

func TestRunSandboxShowsSeededBoard(t *testing.T) {
	cfg := helperConfig(t)

	var buf bytes.Buffer
	if err := runSandbox(context.Background(), testLogger(), &buf, cfg); err != nil {
		t.Fatalf("runSandbox failed: %v", err)
	}

	output := buf.String()

	floor := strings.Index(output, boardFloor)
	if floor < 0 {
		t.Fatalf("expected the seeded board in output:\n%s", output)
	}
	if strings.Count(output, boardFloor) != 1 {
		t.Errorf("expected only the seeded board without --log:\n%s", output)
	}
	if dots := strings.Index(output, "..."); dots < floor {
		t.Errorf("board drawn after play started:\n%s", output)
	}
}

func TestRunExamRejectsZeroIterations(t *testing.T) {
	cfg := runConfig{iterations: 0, solver: "unused"}

	if err := runExam(context.Background(), testLogger(), io.Discard, io.Discard, cfg); err == nil {
		t.Error("expected error for zero iterations")
	}
}

func TestResolveSolver(t *testing.T) {
	name, bin, err := resolveSolver(context.Background(), testLogger(),
		runConfig{solver: "/opt/solvers/tetron"})
	if err != nil {
		t.Fatalf("resolveSolver failed: %v", err)
	}
	if name != "tetron" || bin != "/opt/solvers/tetron" {
		t.Errorf("got %s %s, want tetron /opt/solvers/tetron", name, bin)
	}

	if _, _, err := resolveSolver(context.Background(), testLogger(),
		runConfig{}); err == nil {
		t.Error("expected error without --solver or --engine")
	}
}

func TestResolveSolverSkipBuild(t *testing.T) {
	dir := t.TempDir()

	name, bin, err := resolveSolver(context.Background(), testLogger(),
		runConfig{engine: "tetron", enginesDir: dir, skipBuild: true})
	if err != nil {
		t.Fatalf("resolveSolver failed: %v", err)
	}
	if name != "tetron" {
		t.Errorf("name = %s, want tetron", name)
	}
	if bin != harness.ResolveBinary(dir, "tetron") {
		t.Errorf("bin = %s, want %s", bin, harness.ResolveBinary(dir, "tetron"))
	}
}

func TestUseColor(t *testing.T) {
	var buf bytes.Buffer

	tests := []struct {
		mode string
		want bool
	}{
		{"always", true},
		{"never", false},
		{"auto", false},
	}

	for _, tt := range tests {
		if got := useColor(tt.mode, &buf); got != tt.want {
			t.Errorf("useColor(%q) = %v, want %v", tt.mode, got, tt.want)
		}
	}
}
