// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package kicad locates kicad-cli and runs its drill export.
package kicad

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"path/filepath"
	"runtime"

	"github.com/pdiddy/drill-export/internal/logger"
	"github.com/pdiddy/drill-export/pkg/types"
)

const binKiCadCLI = "kicad-cli"

// ErrNotFound is returned when no kicad-cli binary can be located.
var ErrNotFound = errors.New("kicad-cli not found")

// drillArgs are the fixed export flags: plot origin, leading zeros
// suppressed, inch units, minimal header.
var drillArgs = []string{
	"pcb", "export", "drill",
	"--drill-origin", "plot",
	"--excellon-zeros-format", "suppressleading",
	"-u", "in",
	"--excellon-min-header",
}

// DrillArgs returns the kicad-cli argument list for exporting source.
func DrillArgs(source string) []string {
	args := make([]string, 0, len(drillArgs)+1)
	args = append(args, drillArgs...)
	return append(args, source)
}

// installCandidates lists where KiCad installers put kicad-cli, newest
// release first.
func installCandidates(goos string) []string {
	switch goos {
	case "windows":
		return []string{
			`C:\Program Files\KiCad\9.0\bin\kicad-cli.exe`,
			`C:\Program Files\KiCad\8.0\bin\kicad-cli.exe`,
			`C:\Program Files\KiCad\7.0\bin\kicad-cli.exe`,
		}
	case "darwin":
		return []string{"/Applications/KiCad/KiCad.app/Contents/MacOS/kicad-cli"}
	default:
		return []string{"/usr/bin/kicad-cli", "/usr/local/bin/kicad-cli"}
	}
}

// executor abstracts command execution for testing.
type executor interface {
	LookPath(file string) (string, error)
	Exists(path string) bool
	Run(ctx context.Context, dir, name string, args []string, stdout, stderr io.Writer) (int, error)
}

// osExecutor is the production executor backed by os/exec.
type osExecutor struct{}

func (o *osExecutor) LookPath(file string) (string, error) {
	return exec.LookPath(file)
}

func (o *osExecutor) Exists(path string) bool {
	info, err := os.Stat(path)
	return err == nil && !info.IsDir()
}

// Run starts name and waits for it. A non-zero exit is returned as the
// exit code with a nil error; the error is reserved for failures to start
// or wait on the process.
func (o *osExecutor) Run(ctx context.Context, dir, name string, args []string, stdout, stderr io.Writer) (int, error) {
	cmd := exec.CommandContext(ctx, name, args...)
	cmd.Dir = dir
	cmd.Stdout = stdout
	cmd.Stderr = stderr
	err := cmd.Run()
	if ctx.Err() != nil {
		return -1, ctx.Err()
	}
	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		return exitErr.ExitCode(), nil
	}
	if err != nil {
		return -1, err
	}
	return 0, nil
}

// CLI runs kicad-cli commands.
type CLI struct {
	// Path is the configured kicad-cli location, or empty to search.
	Path string

	// Stdout receives kicad-cli's standard output. Nil discards it.
	Stdout io.Writer

	exec executor
	goos string
}

// New returns a CLI that uses path when set, or searches for kicad-cli.
func New(path string) *CLI {
	return newCLI(path, &osExecutor{}, runtime.GOOS)
}

func newCLI(path string, exec executor, goos string) *CLI {
	return &CLI{Path: path, exec: exec, goos: goos}
}

// Exists reports whether path names a regular file.
func (c *CLI) Exists(path string) bool {
	return c.exec.Exists(path)
}

// Locate resolves the kicad-cli binary: the configured path, then PATH,
// then the platform's install locations.
func (c *CLI) Locate() (string, error) {
	if c.Path != "" {
		if c.exec.Exists(c.Path) {
			return c.Path, nil
		}
		return "", fmt.Errorf("%w: configured path %s does not exist", ErrNotFound, c.Path)
	}
	if p, err := c.exec.LookPath(binKiCadCLI); err == nil {
		return p, nil
	}
	for _, p := range installCandidates(c.goos) {
		logger.Debug("probing %s", p)
		if c.exec.Exists(p) {
			return p, nil
		}
	}
	return "", fmt.Errorf("%w: not on PATH or in the default install locations", ErrNotFound)
}

// ExportDrill runs the drill export for source in source's directory, so
// kicad-cli writes <name>.drl next to the board. The returned error is
// non-nil only when kicad-cli could not be run; a failing export is
// reported through the result.
func (c *CLI) ExportDrill(ctx context.Context, source string) (types.ExportResult, error) {
	bin, err := c.Locate()
	if err != nil {
		return types.ExportResult{}, err
	}

	abs, err := filepath.Abs(source)
	if err != nil {
		return types.ExportResult{}, fmt.Errorf("resolving %s: %w", source, err)
	}

	stdout := c.Stdout
	if stdout == nil {
		stdout = io.Discard
	}
	var stderr bytes.Buffer

	args := DrillArgs(abs)
	logger.Debug("running %s %v", bin, args)
	code, err := c.exec.Run(ctx, filepath.Dir(abs), bin, args, stdout, &stderr)
	if err != nil {
		return types.ExportResult{}, fmt.Errorf("running %s: %w", bin, err)
	}
	logger.Debug("%s exited with code %d", bin, code)
	return types.ExportResult{ExitCode: code, Stderr: stderr.String()}, nil
}
