// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"encoding/json"
	"fmt"
	"io"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/pdiddy/drill-export/internal/config"
	"github.com/pdiddy/drill-export/internal/history"
	"github.com/pdiddy/drill-export/pkg/types"
)

var historyCmd = &cobra.Command{
	Use:   "history [run-id]",
	Short: "List past conversion runs",
	Long: `History lists recent conversion runs from the local history database,
newest first. Give a run ID to show one run in full, or --export to write
every run to a YAML file.`,
	Args: cobra.MaximumNArgs(1),
	RunE: runHistory,
}

func init() {
	historyCmd.Flags().Int("limit", 20, "maximum number of runs to list")
	historyCmd.Flags().String("export", "", "write all runs to this YAML file")
	historyCmd.Flags().Bool("json", false, "output runs as JSON")

	rootCmd.AddCommand(historyCmd)
}

func runHistory(cmd *cobra.Command, args []string) error {
	cfg := config.Load(viper.GetViper())
	store, err := history.Open(cfg.History.Dir)
	if err != nil {
		return err
	}
	defer store.Close()

	ctx := cmd.Context()
	out := cmd.OutOrStdout()
	jsonOutput, _ := cmd.Flags().GetBool("json")

	if exportPath, _ := cmd.Flags().GetString("export"); exportPath != "" {
		if err := store.ExportYAML(ctx, exportPath); err != nil {
			return err
		}
		fmt.Fprintf(out, "exported: %s\n", exportPath)
		return nil
	}

	if len(args) == 1 {
		run, err := store.Get(ctx, args[0])
		if err != nil {
			return err
		}
		if jsonOutput {
			return writeJSON(out, run)
		}
		formatRun(out, run)
		return nil
	}

	limit, _ := cmd.Flags().GetInt("limit")
	runs, err := store.Recent(ctx, limit)
	if err != nil {
		return err
	}
	if jsonOutput {
		return writeJSON(out, runs)
	}
	formatRuns(out, runs)
	return nil
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func formatRuns(w io.Writer, runs []types.Run) {
	if len(runs) == 0 {
		fmt.Fprintln(w, "No runs recorded.")
		return
	}

	fmt.Fprintf(w, "%-36s  %-20s  %-13s  %-30s  %s\n",
		"ID", "Started", "Status", "Board", "Lines")
	fmt.Fprintln(w, strings.Repeat("-", 112))

	for _, r := range runs {
		board := filepath.Base(r.Paths.Source)
		if len(board) > 30 {
			board = board[:27] + "..."
		}
		fmt.Fprintf(w, "%-36s  %-20s  %-13s  %-30s  %d\n",
			r.ID, r.StartedAt.Local().Format("2006-01-02 15:04:05"), r.Status, board, r.Rewrite.LinesWritten)
	}

	fmt.Fprintf(w, "\n%d runs\n", len(runs))
}

func formatRun(w io.Writer, r types.Run) {
	fmt.Fprintf(w, "ID:          %s\n", r.ID)
	fmt.Fprintf(w, "Started:     %s\n", r.StartedAt.Local().Format("2006-01-02 15:04:05"))
	fmt.Fprintf(w, "Status:      %s\n", r.Status)
	fmt.Fprintf(w, "Board:       %s\n", r.Paths.Source)
	fmt.Fprintf(w, "Drill:       %s\n", r.Paths.Drill)
	fmt.Fprintf(w, "Output:      %s\n", r.Paths.Compat)
	fmt.Fprintf(w, "Exit code:   %d\n", r.Export.ExitCode)
	fmt.Fprintf(w, "Header:      %d lines skipped\n", r.Rewrite.LinesSkipped)
	fmt.Fprintf(w, "Written:     %d lines, %d X coordinates mirrored\n", r.Rewrite.LinesWritten, r.Rewrite.Substitutions)
	if r.IntermediateRemoved {
		fmt.Fprintln(w, "Drill file removed after conversion")
	}
	if r.Message != "" {
		fmt.Fprintf(w, "Message:     %s\n", r.Message)
	}
	if s := strings.TrimSpace(r.Export.Stderr); s != "" {
		fmt.Fprintf(w, "kicad-cli:\n%s\n", s)
	}
}
