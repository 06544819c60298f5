package harness

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/exec"
	"sync"

	"github.com/weiihann/cheeserace/tetris"
	"github.com/weiihann/cheeserace/trial"
	"go.uber.org/multierr"
)

// maxLine bounds a single response line.
const maxLine = 1 << 20

// Process is a running solver binary. Each Solve call writes one request
// line and blocks until the matching response line arrives.
type Process struct {
	Name       string
	BinaryPath string
	ExtraArgs  []string
	Env        []string
	Logger     *slog.Logger

	cmd    *exec.Cmd
	stdin  io.WriteCloser
	enc    *json.Encoder
	out    *bufio.Scanner
	stderr *lockedBuffer
}

// NewProcess describes a solver process. Env is appended to the inherited
// environment. The binary is not started until Start.
func NewProcess(
	name, binaryPath string,
	extraArgs, env []string,
	logger *slog.Logger,
) *Process {
	return &Process{
		Name:       name,
		BinaryPath: binaryPath,
		ExtraArgs:  extraArgs,
		Env:        env,
		Logger:     logger.With(slog.String("solver", name)),
	}
}

// Start launches the solver. The process is killed if ctx is canceled.
func (p *Process) Start(ctx context.Context) error {
	if p.cmd != nil {
		return fmt.Errorf("solver %s already started", p.Name)
	}

	cmd := exec.CommandContext(ctx, p.BinaryPath, p.ExtraArgs...)

	if len(p.Env) > 0 {
		cmd.Env = append(os.Environ(), p.Env...)
	}

	stdin, err := cmd.StdinPipe()
	if err != nil {
		return fmt.Errorf("stdin pipe: %w", err)
	}

	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return fmt.Errorf("stdout pipe: %w", err)
	}

	p.stderr = &lockedBuffer{}
	cmd.Stderr = p.stderr

	p.Logger.Info("starting solver",
		slog.String("binary", p.BinaryPath),
	)

	if err := cmd.Start(); err != nil {
		return fmt.Errorf("start solver %s: %w", p.Name, err)
	}

	p.cmd = cmd
	p.stdin = stdin
	p.enc = json.NewEncoder(stdin)
	p.out = bufio.NewScanner(stdout)
	p.out.Buffer(make([]byte, 0, 64*1024), maxLine)

	return nil
}

// Solve asks the solver for the best move from state. It satisfies
// trial.Solver.
func (p *Process) Solve(
	ctx context.Context,
	state tetris.State,
	depth int,
	mode trial.Mode,
) (*tetris.Outcome, error) {
	if p.cmd == nil {
		return nil, fmt.Errorf("solver %s not started", p.Name)
	}

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	if err := p.enc.Encode(newRequest(state, depth, mode)); err != nil {
		return nil, fmt.Errorf(
			"write request to %s: %w\nstderr: %s",
			p.Name, err, p.stderr.String(),
		)
	}

	resp, err := parseResponse(p.out)
	if err != nil {
		// A canceled context kills the process, which reads as EOF.
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, fmt.Errorf("solver %s: %w", p.Name, ctxErr)
		}

		return nil, fmt.Errorf(
			"read response from %s: %w\nstderr: %s",
			p.Name, err, p.stderr.String(),
		)
	}

	return resp.Outcome()
}

// Close ends the solver's input and waits for it to exit.
func (p *Process) Close() error {
	if p.cmd == nil {
		return nil
	}

	err := p.stdin.Close()
	err = multierr.Append(err, p.cmd.Wait())

	p.Logger.Info("solver stopped",
		slog.Int("exit_code", p.cmd.ProcessState.ExitCode()),
	)

	p.cmd = nil

	if err != nil {
		return fmt.Errorf("close solver %s: %w", p.Name, err)
	}

	return nil
}

func parseResponse(s *bufio.Scanner) (*Response, error) {
	for s.Scan() {
		line := bytes.TrimSpace(s.Bytes())
		if len(line) == 0 {
			continue
		}

		var resp Response
		if err := json.Unmarshal(line, &resp); err != nil {
			return nil, fmt.Errorf("decode JSON: %w", err)
		}

		return &resp, nil
	}

	if err := s.Err(); err != nil {
		return nil, err
	}

	return nil, errors.New("solver closed its output")
}

// lockedBuffer collects stderr written by the exec copy goroutine.
type lockedBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *lockedBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	return b.buf.Write(p)
}

func (b *lockedBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()

	return b.buf.String()
}
