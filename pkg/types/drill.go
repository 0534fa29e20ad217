// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package types

import "time"

// ConversionStatus indicates the outcome of a drill conversion run.
type ConversionStatus string

const (
	ConversionDone         ConversionStatus = "converted"
	ConversionNoSentinel   ConversionStatus = "no-sentinel"
	ConversionExportFailed ConversionStatus = "export-failed"
	ConversionFailed       ConversionStatus = "failed"
)

// DrillPaths holds the board file and the two drill files derived from it.
type DrillPaths struct {
	// Source is the .kicad_pcb board file.
	Source string `json:"source" yaml:"source"`

	// Drill is the Excellon file written by kicad-cli (<name>.drl).
	Drill string `json:"drill" yaml:"drill"`

	// Compat is the EAGLE-compatible output (<name>.exc).
	Compat string `json:"compat" yaml:"compat"`
}

// ExportResult is the outcome of one kicad-cli invocation.
type ExportResult struct {
	// ExitCode is the process exit status.
	ExitCode int `json:"exit_code" yaml:"exit_code"`

	// Stderr holds whatever kicad-cli wrote to its error stream.
	Stderr string `json:"stderr,omitempty" yaml:"stderr,omitempty"`
}

// OK reports whether kicad-cli exited successfully.
func (r ExportResult) OK() bool {
	return r.ExitCode == 0
}

// RewriteStats counts what the header skip and X- rewrite did.
type RewriteStats struct {
	SentinelFound bool `json:"sentinel_found" yaml:"sentinel_found"`
	LinesSkipped  int  `json:"lines_skipped" yaml:"lines_skipped"`
	LinesWritten  int  `json:"lines_written" yaml:"lines_written"`
	Substitutions int  `json:"substitutions" yaml:"substitutions"`
}

// ConversionResult summarizes one pipeline run.
type ConversionResult struct {
	Paths   DrillPaths       `json:"paths" yaml:"paths"`
	Export  ExportResult     `json:"export" yaml:"export"`
	Rewrite RewriteStats     `json:"rewrite" yaml:"rewrite"`
	Status  ConversionStatus `json:"status" yaml:"status"`

	// IntermediateRemoved is true when the .drl file was deleted afterwards.
	IntermediateRemoved bool `json:"intermediate_removed" yaml:"intermediate_removed"`

	// Message carries the failure or warning text, if any.
	Message string `json:"message,omitempty" yaml:"message,omitempty"`
}

// Run is a recorded conversion, as stored in the history database.
type Run struct {
	ID        string    `json:"id" yaml:"id"`
	StartedAt time.Time `json:"started_at" yaml:"started_at"`

	ConversionResult `yaml:",inline"`
}
