// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package drill derives drill file names from a board file and rewrites
// KiCad Excellon output into the EAGLE-compatible form.
package drill

import (
	"errors"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/pdiddy/drill-export/pkg/types"
)

const (
	// DrillExt is the extension kicad-cli gives its Excellon export.
	DrillExt = ".drl"
	// CompatExt is the extension of the rewritten, EAGLE-compatible file.
	CompatExt = ".exc"
)

// ErrNoExtension is returned for a board path whose file name has no
// extension to replace.
var ErrNoExtension = errors.New("board path has no file extension")

// DerivePaths truncates source at the last "." of its file name and
// appends the drill and compat extensions. Directory components are kept.
func DerivePaths(source string) (types.DrillPaths, error) {
	stem, err := stem(source)
	if err != nil {
		return types.DrillPaths{}, err
	}
	return types.DrillPaths{
		Source: source,
		Drill:  stem + DrillExt,
		Compat: stem + CompatExt,
	}, nil
}

func stem(source string) (string, error) {
	if source == "" || strings.HasSuffix(source, "/") || strings.HasSuffix(source, string(filepath.Separator)) {
		return "", fmt.Errorf("%w: %q", ErrNoExtension, source)
	}
	base := filepath.Base(source)
	i := strings.LastIndex(base, ".")
	// A leading dot names a hidden file, not an extension.
	if i <= 0 {
		return "", fmt.Errorf("%w: %s", ErrNoExtension, source)
	}
	return source[:len(source)-len(base)+i], nil
}
