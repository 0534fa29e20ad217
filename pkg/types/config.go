// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package types

import "time"

// HistoryConfig holds settings for the run history store.
type HistoryConfig struct {
	// Enabled controls whether conversion runs are recorded.
	Enabled bool `json:"enabled" yaml:"enabled"`

	// Dir is the directory holding history.db.
	Dir string `json:"dir" yaml:"dir"`
}

// ConverterConfig holds settings for a drill conversion run.
type ConverterConfig struct {
	// KiCadCLI is an explicit path to the kicad-cli binary. When empty the
	// binary is located on PATH or in the usual install locations.
	KiCadCLI string `json:"kicad_cli" yaml:"kicad_cli"`

	// Timeout bounds the kicad-cli subprocess. Zero means no limit.
	Timeout time.Duration `json:"timeout" yaml:"timeout"`

	// RemoveIntermediate deletes the .drl file after a successful conversion.
	RemoveIntermediate bool `json:"remove_intermediate" yaml:"remove_intermediate"`

	// IgnoreExportStatus continues with the rewrite even when kicad-cli
	// exits non-zero.
	IgnoreExportStatus bool `json:"ignore_export_status" yaml:"ignore_export_status"`

	// Verbose enables debug logging on stderr.
	Verbose bool `json:"verbose" yaml:"verbose"`

	History HistoryConfig `json:"history" yaml:"history"`
}
