// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package drill

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/pdiddy/drill-export/pkg/types"
)

const (
	// Sentinel is the first tool selection line; everything before it is
	// the tool definition header.
	Sentinel = "T1"

	negativeX = "X-"
	positiveX = "X"
)

type state int

const (
	skippingHeader state = iota
	copying
)

// StripNegativeX replaces every "X-" in line with "X". Other axes are
// left alone.
func StripNegativeX(line string) string {
	return strings.ReplaceAll(line, negativeX, positiveX)
}

// isSentinel reports whether line is exactly the sentinel plus a line
// terminator. CRLF is accepted alongside LF.
func isSentinel(line string) bool {
	return line == Sentinel+"\n" || line == Sentinel+"\r\n"
}

// Rewrite copies r to w, dropping every line before the sentinel and
// replacing "X-" with "X" from the sentinel line onward. Line terminators
// are preserved. If the sentinel never appears nothing is written and the
// returned stats have SentinelFound unset.
func Rewrite(r io.Reader, w io.Writer) (types.RewriteStats, error) {
	var stats types.RewriteStats
	br := bufio.NewReader(r)
	bw := bufio.NewWriter(w)
	st := skippingHeader

	for {
		line, err := br.ReadString('\n')
		if err != nil && !errors.Is(err, io.EOF) {
			return stats, fmt.Errorf("reading drill file: %w", err)
		}
		if line != "" {
			if st == skippingHeader && isSentinel(line) {
				st = copying
				stats.SentinelFound = true
			}
			switch st {
			case skippingHeader:
				stats.LinesSkipped++
			case copying:
				stats.Substitutions += strings.Count(line, negativeX)
				if _, werr := bw.WriteString(StripNegativeX(line)); werr != nil {
					return stats, fmt.Errorf("writing compat file: %w", werr)
				}
				stats.LinesWritten++
			}
		}
		if err != nil {
			break
		}
	}

	if err := bw.Flush(); err != nil {
		return stats, fmt.Errorf("writing compat file: %w", err)
	}
	return stats, nil
}

// ConvertFile rewrites the drill file at drillPath into compatPath. The
// drill file is opened first so a missing intermediate never leaves an
// empty output behind.
func ConvertFile(drillPath, compatPath string) (types.RewriteStats, error) {
	in, err := os.Open(drillPath)
	if err != nil {
		return types.RewriteStats{}, fmt.Errorf("opening drill file %s: %w", drillPath, err)
	}
	defer in.Close()

	out, err := os.Create(compatPath)
	if err != nil {
		return types.RewriteStats{}, fmt.Errorf("creating %s: %w", compatPath, err)
	}

	stats, err := Rewrite(in, out)
	if cerr := out.Close(); err == nil && cerr != nil {
		err = fmt.Errorf("closing %s: %w", compatPath, cerr)
	}
	return stats, err
}
