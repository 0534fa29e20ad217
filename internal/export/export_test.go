// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package export

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pdiddy/drill-export/pkg/types"
)

const kicadDrill = "M48\n; DRILL file {KiCad 8.0.1}\nT0\nFMAT,2\nT1\nX010000Y-005000\nX-020000Y010000\n"

// fakeExporter writes a canned .drl file into outDir, imitating kicad-cli.
type fakeExporter struct {
	outDir  string // empty means next to the board
	content string
	result  types.ExportResult
	err     error
	write   bool

	gotCtx context.Context
	calls  int
}

func (f *fakeExporter) ExportDrill(ctx context.Context, source string) (types.ExportResult, error) {
	f.calls++
	f.gotCtx = ctx
	if f.err != nil {
		return types.ExportResult{}, f.err
	}
	if f.write {
		dir := f.outDir
		if dir == "" {
			dir = filepath.Dir(source)
		}
		name := filepath.Base(source)
		name = name[:len(name)-len(filepath.Ext(name))] + ".drl"
		if err := os.WriteFile(filepath.Join(dir, name), []byte(f.content), 0o644); err != nil {
			return types.ExportResult{}, err
		}
	}
	return f.result, nil
}

type fakeRecorder struct {
	runs []types.Run
	err  error
}

func (f *fakeRecorder) Record(_ context.Context, run types.Run) error {
	f.runs = append(f.runs, run)
	return f.err
}

func setupBoard(t *testing.T) (board, dir string) {
	t.Helper()
	dir = t.TempDir()
	board = filepath.Join(dir, "board.kicad_pcb")
	require.NoError(t, os.WriteFile(board, []byte("(kicad_pcb)"), 0o644))
	return board, dir
}

func newPipeline(exp Exporter, rec Recorder, cfg types.ConverterConfig, workDir string) *Pipeline {
	fixed := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	p := &Pipeline{Exporter: exp, Config: cfg, WorkDir: workDir}
	if rec != nil {
		p.Recorder = rec
	}
	p.now = func() time.Time { return fixed }
	p.newID = func() string { return "run-1" }
	return p
}

func TestRun_EndToEnd(t *testing.T) {
	board, dir := setupBoard(t)
	exp := &fakeExporter{content: kicadDrill, write: true}
	rec := &fakeRecorder{}
	var out bytes.Buffer

	res, err := newPipeline(exp, rec, types.ConverterConfig{}, t.TempDir()).Run(context.Background(), board, &out)
	require.NoError(t, err)

	assert.Equal(t, types.ConversionDone, res.Status)
	assert.Equal(t, filepath.Join(dir, "board.exc"), res.Paths.Compat)
	assert.Equal(t, 3, res.Rewrite.LinesWritten)
	assert.Equal(t, 4, res.Rewrite.LinesSkipped)

	got, err := os.ReadFile(res.Paths.Compat)
	require.NoError(t, err)
	assert.Equal(t, "T1\nX010000Y-005000\nX020000Y010000\n", string(got))

	assert.FileExists(t, res.Paths.Drill, "intermediate retained by default")
	assert.False(t, res.IntermediateRemoved)
	assert.Contains(t, out.String(), "converted: ")

	require.Len(t, rec.runs, 1)
	assert.Equal(t, "run-1", rec.runs[0].ID)
	assert.Equal(t, types.ConversionDone, rec.runs[0].Status)
}

func TestRun_RemoveIntermediate(t *testing.T) {
	board, _ := setupBoard(t)
	exp := &fakeExporter{content: kicadDrill, write: true}
	cfg := types.ConverterConfig{RemoveIntermediate: true}

	res, err := newPipeline(exp, nil, cfg, t.TempDir()).Run(context.Background(), board, &bytes.Buffer{})
	require.NoError(t, err)
	assert.True(t, res.IntermediateRemoved)
	assert.NoFileExists(t, res.Paths.Drill)
	assert.FileExists(t, res.Paths.Compat)
}

func TestRun_ExportFailureAborts(t *testing.T) {
	board, _ := setupBoard(t)
	exp := &fakeExporter{result: types.ExportResult{ExitCode: 3, Stderr: "Failed to load board\n"}}
	rec := &fakeRecorder{}
	var out bytes.Buffer

	res, err := newPipeline(exp, rec, types.ConverterConfig{}, t.TempDir()).Run(context.Background(), board, &out)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrExportFailed)
	assert.Equal(t, types.ConversionExportFailed, res.Status)
	assert.Equal(t, 3, res.Export.ExitCode)
	assert.NoFileExists(t, res.Paths.Compat)
	assert.Contains(t, out.String(), "Failed to load board")

	require.Len(t, rec.runs, 1)
	assert.Equal(t, types.ConversionExportFailed, rec.runs[0].Status)
	assert.Contains(t, rec.runs[0].Message, "exit code 3")
}

func TestRun_IgnoreExportStatus(t *testing.T) {
	board, _ := setupBoard(t)
	exp := &fakeExporter{
		content: kicadDrill,
		write:   true,
		result:  types.ExportResult{ExitCode: 1, Stderr: "warning only"},
	}
	var warnings []string
	p := newPipeline(exp, nil, types.ConverterConfig{IgnoreExportStatus: true}, t.TempDir())
	p.Warnf = func(format string, args ...any) { warnings = append(warnings, format) }

	res, err := p.Run(context.Background(), board, &bytes.Buffer{})
	require.NoError(t, err)
	assert.Equal(t, types.ConversionDone, res.Status)
	assert.Len(t, warnings, 1)
}

func TestRun_IgnoredFailureWithoutOutput(t *testing.T) {
	board, _ := setupBoard(t)
	exp := &fakeExporter{result: types.ExportResult{ExitCode: 1}}

	res, err := newPipeline(exp, nil, types.ConverterConfig{IgnoreExportStatus: true}, t.TempDir()).
		Run(context.Background(), board, &bytes.Buffer{})
	require.Error(t, err)
	assert.ErrorIs(t, err, os.ErrNotExist)
	assert.Equal(t, types.ConversionFailed, res.Status)
	assert.NoFileExists(t, res.Paths.Compat)
}

func TestRun_NoSentinelWarns(t *testing.T) {
	board, _ := setupBoard(t)
	exp := &fakeExporter{content: "M48\nT0\nFMAT,2\n", write: true}
	var out bytes.Buffer

	res, err := newPipeline(exp, nil, types.ConverterConfig{RemoveIntermediate: true}, t.TempDir()).
		Run(context.Background(), board, &out)
	require.NoError(t, err)
	assert.Equal(t, types.ConversionNoSentinel, res.Status)
	assert.Contains(t, out.String(), "warning: no T1 line")

	got, err := os.ReadFile(res.Paths.Compat)
	require.NoError(t, err)
	assert.Empty(t, got)
	assert.FileExists(t, res.Paths.Drill, "intermediate kept for inspection")
}

func TestRun_RelocatesFromWorkDir(t *testing.T) {
	board, dir := setupBoard(t)
	workDir := t.TempDir()
	exp := &fakeExporter{content: kicadDrill, write: true, outDir: workDir}
	var out bytes.Buffer

	res, err := newPipeline(exp, nil, types.ConverterConfig{}, workDir).Run(context.Background(), board, &out)
	require.NoError(t, err)
	assert.Equal(t, types.ConversionDone, res.Status)
	assert.FileExists(t, filepath.Join(dir, "board.drl"))
	assert.NoFileExists(t, filepath.Join(workDir, "board.drl"))
	assert.Contains(t, out.String(), "moving: ")
}

func TestRun_NoExtension(t *testing.T) {
	exp := &fakeExporter{}
	rec := &fakeRecorder{}

	res, err := newPipeline(exp, rec, types.ConverterConfig{}, t.TempDir()).
		Run(context.Background(), "board", &bytes.Buffer{})
	require.Error(t, err)
	assert.Equal(t, types.ConversionFailed, res.Status)
	assert.Zero(t, exp.calls, "kicad-cli is not run for an underivable path")
	require.Len(t, rec.runs, 1)
	assert.Equal(t, "board", rec.runs[0].Paths.Source)
}

func TestRun_ExporterError(t *testing.T) {
	board, _ := setupBoard(t)
	exp := &fakeExporter{err: errors.New("kicad-cli not found")}

	res, err := newPipeline(exp, nil, types.ConverterConfig{}, t.TempDir()).
		Run(context.Background(), board, &bytes.Buffer{})
	require.Error(t, err)
	assert.Equal(t, types.ConversionExportFailed, res.Status)
}

func TestRun_TimeoutBoundsExport(t *testing.T) {
	board, _ := setupBoard(t)
	exp := &fakeExporter{content: kicadDrill, write: true}

	_, err := newPipeline(exp, nil, types.ConverterConfig{Timeout: time.Minute}, t.TempDir()).
		Run(context.Background(), board, &bytes.Buffer{})
	require.NoError(t, err)
	_, hasDeadline := exp.gotCtx.Deadline()
	assert.True(t, hasDeadline)
}

func TestRun_RecorderFailureIsWarning(t *testing.T) {
	board, _ := setupBoard(t)
	exp := &fakeExporter{content: kicadDrill, write: true}
	rec := &fakeRecorder{err: errors.New("database is locked")}
	var out bytes.Buffer

	_, err := newPipeline(exp, rec, types.ConverterConfig{}, t.TempDir()).Run(context.Background(), board, &out)
	require.NoError(t, err)
	assert.Contains(t, out.String(), "warning: could not record run: database is locked")
}
