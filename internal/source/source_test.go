// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package source

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeFile(t *testing.T, dir, name string) string {
	t.Helper()
	p := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(p, []byte("(kicad_pcb)"), 0o644))
	return p
}

func newResolver(dir, input string) (*Resolver, *bytes.Buffer) {
	var out bytes.Buffer
	return &Resolver{
		Dir:      dir,
		Prompter: NewLinePrompter(strings.NewReader(input), &out),
		Out:      &out,
	}, &out
}

func TestResolve_ArgumentUsedVerbatim(t *testing.T) {
	r, out := newResolver(t.TempDir(), "")
	got, err := r.Resolve([]string{"missing/board.kicad_pcb", "ignored"})
	require.NoError(t, err)
	assert.Equal(t, "missing/board.kicad_pcb", got)
	assert.Empty(t, out.String(), "no prompt when an argument is given")
}

func TestResolve_SingleBoard(t *testing.T) {
	dir := t.TempDir()
	want := writeFile(t, dir, "board.kicad_pcb")
	writeFile(t, dir, "board.kicad_pro")
	require.NoError(t, os.Mkdir(filepath.Join(dir, "old.kicad_pcb"), 0o755))

	r, _ := newResolver(dir, "")
	got, err := r.Resolve(nil)
	require.NoError(t, err)
	assert.Equal(t, want, got)
}

func TestResolve_ChooseFromSeveral(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "alpha.kicad_pcb")
	beta := writeFile(t, dir, "beta.kicad_pcb")

	r, out := newResolver(dir, "x\n0\n3\n2\n")
	got, err := r.Resolve(nil)
	require.NoError(t, err)
	assert.Equal(t, beta, got)
	assert.Contains(t, out.String(), "1) alpha.kicad_pcb\n2) beta.kicad_pcb\n")
	assert.Equal(t, 4, strings.Count(out.String(), "Source file: "), "invalid answers re-prompt")
}

func TestResolve_PromptWhenNoBoards(t *testing.T) {
	dir := t.TempDir()
	other := t.TempDir()
	want := writeFile(t, other, "board.kicad_pcb")

	input := "\n" + filepath.Join(other, "nope.kicad_pcb") + "\n\"" + want + "\"\n"
	r, out := newResolver(dir, input)
	got, err := r.Resolve(nil)
	require.NoError(t, err)
	assert.Equal(t, want, got)
	assert.Contains(t, out.String(), "no such file")
}

func TestResolve_EndOfInput(t *testing.T) {
	r, _ := newResolver(t.TempDir(), "")
	_, err := r.Resolve(nil)
	assert.ErrorIs(t, err, ErrNoInput)
}

func TestFindBoards_SkipsBareExtension(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, ".kicad_pcb")
	writeFile(t, dir, "b.kicad_pcb")
	writeFile(t, dir, "a.kicad_pcb")

	r, _ := newResolver(dir, "")
	got, err := r.FindBoards()
	require.NoError(t, err)
	assert.Equal(t, []string{filepath.Join(dir, "a.kicad_pcb"), filepath.Join(dir, "b.kicad_pcb")}, got)
}

func TestStripQuotes(t *testing.T) {
	tests := []struct{ in, want string }{
		{`"C:\boards\main.kicad_pcb"`, `C:\boards\main.kicad_pcb`},
		{`  "board.kicad_pcb"  `, "board.kicad_pcb"},
		{"board.kicad_pcb", "board.kicad_pcb"},
		{`"`, `"`},
		{`"unbalanced`, `"unbalanced`},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, StripQuotes(tt.in), tt.in)
	}
}

func TestLinePrompter(t *testing.T) {
	var out bytes.Buffer
	p := NewLinePrompter(strings.NewReader("first\r\nlast"), &out)

	got, err := p.Prompt("> ")
	require.NoError(t, err)
	assert.Equal(t, "first", got)

	got, err = p.Prompt("> ")
	require.NoError(t, err)
	assert.Equal(t, "last", got)

	_, err = p.Prompt("> ")
	assert.ErrorIs(t, err, ErrNoInput)
	assert.Equal(t, "> > > ", out.String())
}
