package report

import (
	"fmt"
	"io"
	"strings"

	"github.com/weiihann/cheeserace/exam"
	"github.com/weiihann/cheeserace/tetris"
	"github.com/weiihann/cheeserace/trial"
	"go.uber.org/multierr"
)

// ANSI styles used when colour is enabled.
const (
	bold      = "\x1b[1m"
	highlight = "\x1b[1;33m"
	reset     = "\x1b[0m"
)

var pieceColors = map[tetris.Piece]string{
	tetris.J: "\x1b[34m",
	tetris.L: "\x1b[90m",
	tetris.S: "\x1b[32m",
	tetris.Z: "\x1b[31m",
	tetris.T: "\x1b[35m",
	tetris.I: "\x1b[36m",
	tetris.O: "\x1b[33m",
}

// Console prints live progress of an exam. Write failures are collected
// and returned by Err.
type Console struct {
	w     io.Writer
	color bool
	err   error
}

// NewConsole creates a Console writing to w, with ANSI colour if color.
func NewConsole(w io.Writer, color bool) *Console {
	return &Console{w: w, color: color}
}

// Err returns every write error seen so far.
func (c *Console) Err() error {
	return c.err
}

func (c *Console) printf(format string, args ...any) {
	_, err := fmt.Fprintf(c.w, format, args...)
	multierr.AppendInto(&c.err, err)
}

func (c *Console) println(args ...any) {
	_, err := fmt.Fprintln(c.w, args...)
	multierr.AppendInto(&c.err, err)
}

func (c *Console) style(s, code string) string {
	if !c.color {
		return s
	}

	return code + s + reset
}

// Header announces an exam.
func (c *Console) Header(iterations, lines int) {
	c.println(c.style("--CHEESE EXAM--", highlight))
	c.println(c.style(
		fmt.Sprintf("--iters: %d, lines: %d--", iterations, lines), bold,
	))
}

// Dot marks one placement.
func (c *Console) Dot() {
	c.printf(".")
}

// EndLine terminates the row of dots after a trial.
func (c *Console) EndLine() {
	c.println()
}

// GameOver reports that the solver found no move.
func (c *Console) GameOver() {
	c.println(c.style("No results found, game over.", bold))
}

// Placement prints the timing of one move and the board after it.
func (c *Console) Placement(p trial.Placement) {
	c.printf("Time consumed: %s\n",
		c.style(formatMicros(p.Latency.Microseconds()), bold))
	c.printf("Avg benchmark: %s\n",
		c.style(formatMicros(p.AvgLatency), bold))
	c.printf("Cheese rows: %d, cleared: %d\n",
		p.Budget.CheeseRow, p.Budget.CheeseClears)
	c.Board(p.Board)
}

// Board draws the board one character per cell, bordered by walls.
func (c *Console) Board(b *tetris.Board) {
	var sb strings.Builder

	for y := range b {
		sb.WriteString("|")

		for _, cell := range b[y] {
			if cell == tetris.None {
				sb.WriteString(" ")

				continue
			}

			letter := cell.String()
			if c.color {
				letter = pieceColors[cell] + letter + reset
			}
			sb.WriteString(letter)
		}

		sb.WriteString("|\n")
	}

	sb.WriteString("+" + strings.Repeat("-", tetris.Width) + "+\n")

	c.printf("%s", sb.String())
}

// Trial prints the result line of one trial.
func (c *Console) Trial(m trial.Metrics, pps float64) {
	c.printf("%s: pieces: %s, time: %s, pps: %s\n",
		c.style("Results", bold),
		c.style(fmt.Sprint(m.Pieces), highlight),
		c.style(fmt.Sprint(m.TotalElapsed), bold),
		c.style(formatPPS(pps), bold),
	)
}

// Summary prints the final results of an exam.
func (c *Console) Summary(s exam.Summary) {
	c.printf("%s:\n", c.style("Final Results", bold))
	c.printf("avg pieces: %s, worst: %s, best: %s\n",
		c.style(formatFloat(s.AvgPieces), highlight),
		c.style(fmt.Sprint(s.WorstPieces), highlight),
		c.style(fmt.Sprint(s.BestPieces), bold),
	)
	c.printf("avg time: %s, worst: %s, best: %s\n",
		c.style(formatFloat(s.AvgTime), highlight),
		c.style(fmt.Sprint(s.WorstTime), highlight),
		c.style(fmt.Sprint(s.BestTime), bold),
	)
	c.printf("avg pps: %s\n", c.style(formatPPS(s.AvgPPS), highlight))

	if s.GameOvers > 0 {
		c.printf("game overs: %d of %d\n", s.GameOvers, s.Iterations)
	}
}
