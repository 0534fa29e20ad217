// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package export runs the full drill conversion: kicad-cli export, header
// skip and X- rewrite, optional cleanup and history recording.
package export

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/pdiddy/drill-export/internal/drill"
	"github.com/pdiddy/drill-export/internal/logger"
	"github.com/pdiddy/drill-export/pkg/types"
)

// ErrExportFailed is returned when kicad-cli exits non-zero and the
// pipeline is not configured to ignore it.
var ErrExportFailed = errors.New("kicad-cli export failed")

// Exporter produces the .drl file for a board. kicad.CLI implements it.
type Exporter interface {
	ExportDrill(ctx context.Context, source string) (types.ExportResult, error)
}

// Recorder stores finished runs. history.Store implements it.
type Recorder interface {
	Record(ctx context.Context, run types.Run) error
}

// Pipeline converts one board per Run call.
type Pipeline struct {
	Exporter Exporter

	// Recorder is optional; when nil runs are not recorded.
	Recorder Recorder

	Config types.ConverterConfig

	// WorkDir is where kicad-cli may leave the .drl when it ignores the
	// board's directory. Defaults to the process working directory.
	WorkDir string

	// Warnf prints warnings. Defaults to a "warning:" line on the run's writer.
	Warnf func(format string, args ...any)

	now   func() time.Time
	newID func() string
}

// Run converts source, writing per-step status lines to w. The returned
// result is filled as far as the run got, even when err is non-nil. A
// missing T1 line is not an error: the result carries status no-sentinel
// and a warning is printed.
func (p *Pipeline) Run(ctx context.Context, source string, w io.Writer) (types.ConversionResult, error) {
	started := p.clock()
	res, err := p.run(ctx, source, w)
	if err != nil {
		if res.Status == "" {
			res.Status = types.ConversionFailed
		}
		res.Message = err.Error()
	}
	p.record(ctx, started, res, w)
	return res, err
}

func (p *Pipeline) run(ctx context.Context, source string, w io.Writer) (types.ConversionResult, error) {
	res := types.ConversionResult{Paths: types.DrillPaths{Source: source}}

	paths, err := drill.DerivePaths(source)
	if err != nil {
		fmt.Fprintf(w, "failed:  %s (%v)\n", source, err)
		return res, err
	}
	res.Paths = paths

	exportCtx := ctx
	if p.Config.Timeout > 0 {
		var cancel context.CancelFunc
		exportCtx, cancel = context.WithTimeout(ctx, p.Config.Timeout)
		defer cancel()
	}

	fmt.Fprintf(w, "exporting: %s\n", source)
	exp, err := p.Exporter.ExportDrill(exportCtx, source)
	if err != nil {
		fmt.Fprintf(w, "failed:  %s (%v)\n", source, err)
		res.Status = types.ConversionExportFailed
		return res, fmt.Errorf("exporting %s: %w", source, err)
	}
	res.Export = exp

	if !exp.OK() {
		detail := strings.TrimSpace(exp.Stderr)
		if p.Config.IgnoreExportStatus {
			p.warn(w, "kicad-cli exited with code %d, continuing: %s", exp.ExitCode, detail)
		} else {
			fmt.Fprintf(w, "failed:  %s (kicad-cli exited with code %d)\n", source, exp.ExitCode)
			if detail != "" {
				fmt.Fprintln(w, detail)
			}
			res.Status = types.ConversionExportFailed
			return res, fmt.Errorf("%w: exit code %d: %s", ErrExportFailed, exp.ExitCode, detail)
		}
	}

	if err := p.relocate(paths.Drill, w); err != nil {
		fmt.Fprintf(w, "failed:  %s (%v)\n", filepath.Base(paths.Drill), err)
		return res, err
	}

	stats, err := drill.ConvertFile(paths.Drill, paths.Compat)
	res.Rewrite = stats
	if err != nil {
		fmt.Fprintf(w, "failed:  %s (%v)\n", filepath.Base(paths.Compat), err)
		return res, err
	}
	logger.Debug("skipped %d header lines, wrote %d lines", stats.LinesSkipped, stats.LinesWritten)

	if !stats.SentinelFound {
		res.Status = types.ConversionNoSentinel
		res.Message = fmt.Sprintf("no %s line in %s; %s is empty", drill.Sentinel, paths.Drill, paths.Compat)
		p.warn(w, "%s", res.Message)
		return res, nil
	}

	res.Status = types.ConversionDone
	fmt.Fprintf(w, "converted: %s (%d lines, %d X coordinates mirrored)\n",
		paths.Compat, stats.LinesWritten, stats.Substitutions)

	if p.Config.RemoveIntermediate {
		if err := os.Remove(paths.Drill); err != nil {
			p.warn(w, "could not remove %s: %v", paths.Drill, err)
		} else {
			res.IntermediateRemoved = true
			logger.Debug("removed %s", paths.Drill)
		}
	}
	return res, nil
}

// relocate moves the .drl file from the working directory next to the
// board when kicad-cli wrote it there instead.
func (p *Pipeline) relocate(drillPath string, w io.Writer) error {
	if _, err := os.Stat(drillPath); err == nil {
		return nil
	}

	workDir := p.WorkDir
	if workDir == "" {
		wd, err := os.Getwd()
		if err != nil {
			return nil
		}
		workDir = wd
	}
	stray := filepath.Join(workDir, filepath.Base(drillPath))
	if same, _ := samePath(stray, drillPath); same {
		return nil
	}
	if _, err := os.Stat(stray); err != nil {
		return nil
	}

	fmt.Fprintf(w, "moving: %s -> %s\n", stray, drillPath)
	if err := os.Rename(stray, drillPath); err != nil {
		return fmt.Errorf("moving %s: %w", stray, err)
	}
	return nil
}

func samePath(a, b string) (bool, error) {
	absA, err := filepath.Abs(a)
	if err != nil {
		return false, err
	}
	absB, err := filepath.Abs(b)
	if err != nil {
		return false, err
	}
	return absA == absB, nil
}

func (p *Pipeline) record(ctx context.Context, started time.Time, res types.ConversionResult, w io.Writer) {
	if p.Recorder == nil {
		return
	}
	run := types.Run{
		ID:               p.id(),
		StartedAt:        started.UTC(),
		ConversionResult: res,
	}
	if err := p.Recorder.Record(ctx, run); err != nil {
		p.warn(w, "could not record run: %v", err)
	}
}

func (p *Pipeline) warn(w io.Writer, format string, args ...any) {
	if p.Warnf != nil {
		p.Warnf(format, args...)
		return
	}
	fmt.Fprintf(w, "warning: "+format+"\n", args...)
}

func (p *Pipeline) clock() time.Time {
	if p.now != nil {
		return p.now()
	}
	return time.Now()
}

func (p *Pipeline) id() string {
	if p.newID != nil {
		return p.newID()
	}
	return uuid.NewString()
}
