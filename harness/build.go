package harness

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/exec"
	"path/filepath"
)

// Toolchain is how a solver source tree is compiled.
type Toolchain int

// Supported toolchains.
const (
	ToolchainUnknown Toolchain = iota
	ToolchainGo
	ToolchainCargo
)

func (t Toolchain) String() string {
	switch t {
	case ToolchainGo:
		return "go"
	case ToolchainCargo:
		return "cargo"
	default:
		return "unknown"
	}
}

// DetectToolchain inspects srcDir for a go.mod or Cargo.toml.
func DetectToolchain(srcDir string) Toolchain {
	if fileExists(filepath.Join(srcDir, "go.mod")) {
		return ToolchainGo
	}

	if fileExists(filepath.Join(srcDir, "Cargo.toml")) {
		return ToolchainCargo
	}

	return ToolchainUnknown
}

// ResolveBinary returns the expected binary path for a solver engine
// given the engines root directory.
func ResolveBinary(enginesDir, engine string) string {
	srcDir := filepath.Join(enginesDir, engine)

	switch DetectToolchain(srcDir) {
	case ToolchainCargo:
		return filepath.Join(srcDir, "target", "release", engine)
	default:
		return filepath.Join(srcDir, engine+"-solver")
	}
}

// Build compiles the solver engine found under enginesDir and returns
// the binary path.
func Build(
	ctx context.Context,
	logger *slog.Logger,
	enginesDir string,
	engine string,
) (string, error) {
	srcDir := filepath.Join(enginesDir, engine)
	binPath := ResolveBinary(enginesDir, engine)
	toolchain := DetectToolchain(srcDir)

	logger.InfoContext(ctx, "building solver",
		slog.String("engine", engine),
		slog.String("source_dir", srcDir),
		slog.String("toolchain", toolchain.String()),
	)

	var cmd *exec.Cmd

	switch toolchain {
	case ToolchainGo:
		cmd = exec.CommandContext(
			ctx, "go", "build", "-o", binPath, ".",
		)

	case ToolchainCargo:
		cmd = exec.CommandContext(
			ctx, "cargo", "build", "--release",
		)

	default:
		return "", fmt.Errorf(
			"no go.mod or Cargo.toml for engine %q in %s", engine, srcDir,
		)
	}

	cmd.Dir = srcDir
	cmd.Stdout = os.Stderr
	cmd.Stderr = os.Stderr

	if err := cmd.Run(); err != nil {
		return "", fmt.Errorf("build %s: %w", engine, err)
	}

	if !fileExists(binPath) {
		return "", fmt.Errorf(
			"build %s: binary not found at %s", engine, binPath,
		)
	}

	logger.InfoContext(ctx, "solver built",
		slog.String("engine", engine),
		slog.String("binary", binPath),
	)

	return binPath, nil
}

func fileExists(path string) bool {
	info, err := os.Stat(path)

	return err == nil && !info.IsDir()
}
