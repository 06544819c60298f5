// Package report formats exam summaries into tables and JSON.
package report

import (
	"encoding/json"
	"fmt"
	"io"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/shopspring/decimal"
	"github.com/weiihann/cheeserace/exam"
)

// Generate writes a markdown table for the given exam summaries.
func Generate(w io.Writer, summaries []exam.Summary) error {
	if len(summaries) == 0 {
		return fmt.Errorf("no summaries to report")
	}

	c := NewConsole(w, false)

	c.println("## Cheese Exam Results")
	c.println()

	c.println("| Exam | Iterations | Lines | Game Overs |")
	c.println("|------|------------|-------|------------|")

	for _, s := range summaries {
		c.printf("| %s | %d | %d | %d |\n",
			shortID(s.ID),
			s.Iterations,
			s.Lines,
			s.GameOvers,
		)
	}

	c.println()

	c.println("| Exam | Avg Pieces | Worst | Best " +
		"| Avg Time | Worst | Best | Avg PPS |")
	c.println("|------|------------|-------|------" +
		"|----------|-------|------|---------|")

	for _, s := range summaries {
		c.printf("| %s | %s | %s | %s | %s | %s | %s | %s |\n",
			shortID(s.ID),
			formatFloat(s.AvgPieces),
			humanize.Comma(int64(s.WorstPieces)),
			humanize.Comma(int64(s.BestPieces)),
			formatFloat(s.AvgTime),
			humanize.Comma(s.WorstTime),
			humanize.Comma(s.BestTime),
			formatPPS(s.AvgPPS),
		)
	}

	return c.Err()
}

// GenerateJSON writes summaries as JSON to w.
func GenerateJSON(w io.Writer, summaries []exam.Summary) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")

	return enc.Encode(summaries)
}

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}

	return id
}

// formatPPS rounds a throughput to two decimals.
func formatPPS(pps float64) string {
	return decimal.NewFromFloat(pps).StringFixed(2)
}

// formatFloat prints a smoothed average without trailing zeros.
func formatFloat(f float64) string {
	return decimal.NewFromFloat(f).Round(3).String()
}

// formatMicros renders a latency given in microseconds.
func formatMicros(us int64) string {
	d := time.Duration(us) * time.Microsecond

	switch {
	case d < time.Millisecond:
		return fmt.Sprintf("%dus", us)
	case d < time.Second:
		return fmt.Sprintf("%.2fms", float64(us)/1e3)
	default:
		return fmt.Sprintf("%.2fs", d.Seconds())
	}
}
