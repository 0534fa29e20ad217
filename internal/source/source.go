// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package source resolves which board file to convert: the command-line
// argument, a single board in the working directory, a numbered choice
// between several, or a typed path.
package source

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
)

// BoardExt is the KiCad board file extension.
const BoardExt = ".kicad_pcb"

// ErrNoInput is returned when input ends before a usable answer is given.
var ErrNoInput = errors.New("no input")

// Prompter asks the user a question and returns the answer.
type Prompter interface {
	Prompt(label string) (string, error)
}

// LinePrompter reads one line per prompt from in, writing labels to out.
type LinePrompter struct {
	in  *bufio.Reader
	out io.Writer
}

// NewLinePrompter returns a Prompter over in and out, typically os.Stdin
// and os.Stderr.
func NewLinePrompter(in io.Reader, out io.Writer) *LinePrompter {
	return &LinePrompter{in: bufio.NewReader(in), out: out}
}

// Prompt writes label and returns the next input line without its line
// terminator. A final line without newline is still returned.
func (p *LinePrompter) Prompt(label string) (string, error) {
	fmt.Fprint(p.out, label)
	line, err := p.in.ReadString('\n')
	if err != nil {
		if errors.Is(err, io.EOF) && line != "" {
			return strings.TrimRight(line, "\r\n"), nil
		}
		if errors.Is(err, io.EOF) {
			return "", ErrNoInput
		}
		return "", fmt.Errorf("reading input: %w", err)
	}
	return strings.TrimRight(line, "\r\n"), nil
}

// StripQuotes removes one pair of surrounding double quotes, as added by
// file managers when copying a path.
func StripQuotes(s string) string {
	s = strings.TrimSpace(s)
	if len(s) >= 2 && s[0] == '"' && s[len(s)-1] == '"' {
		return s[1 : len(s)-1]
	}
	return s
}

// Resolver picks the board file for a run.
type Resolver struct {
	// Dir is scanned for boards when no argument is given.
	Dir string

	Prompter Prompter

	// Out receives the numbered board list.
	Out io.Writer
}

// Resolve returns args[0] unchanged when present. Otherwise it scans Dir:
// one board is used directly, several are offered as a numbered list, and
// none leads to a prompt for a path.
func (r *Resolver) Resolve(args []string) (string, error) {
	if len(args) > 0 {
		return args[0], nil
	}

	boards, err := r.FindBoards()
	if err != nil {
		return "", err
	}
	switch len(boards) {
	case 0:
		return r.PromptExisting("Path of the " + BoardExt + " file: ")
	case 1:
		return boards[0], nil
	default:
		return r.choose(boards)
	}
}

// FindBoards lists the board files in Dir, sorted by name.
func (r *Resolver) FindBoards() ([]string, error) {
	dir := r.Dir
	if dir == "" {
		dir = "."
	}
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("scanning %s for boards: %w", dir, err)
	}

	var boards []string
	for _, e := range entries {
		name := e.Name()
		if e.IsDir() || !strings.HasSuffix(name, BoardExt) || len(name) == len(BoardExt) {
			continue
		}
		boards = append(boards, filepath.Join(dir, name))
	}
	sort.Strings(boards)
	return boards, nil
}

func (r *Resolver) choose(boards []string) (string, error) {
	for i, b := range boards {
		fmt.Fprintf(r.Out, "%d) %s\n", i+1, filepath.Base(b))
	}
	for {
		answer, err := r.Prompter.Prompt("\nSource file: ")
		if err != nil {
			return "", err
		}
		n, err := strconv.Atoi(strings.TrimSpace(answer))
		if err != nil || n < 1 || n > len(boards) {
			continue
		}
		return boards[n-1], nil
	}
}

// PromptExisting asks with label until the answer names an existing file.
// Surrounding quotes are stripped from each answer.
func (r *Resolver) PromptExisting(label string) (string, error) {
	for {
		answer, err := r.Prompter.Prompt(label)
		if err != nil {
			return "", err
		}
		path := StripQuotes(answer)
		if path == "" {
			continue
		}
		if info, err := os.Stat(path); err == nil && !info.IsDir() {
			return path, nil
		}
		fmt.Fprintf(r.Out, "%s: no such file\n", path)
	}
}
