// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/pdiddy/drill-export/internal/config"
	"github.com/pdiddy/drill-export/internal/export"
	"github.com/pdiddy/drill-export/internal/history"
	"github.com/pdiddy/drill-export/internal/kicad"
	"github.com/pdiddy/drill-export/internal/logger"
	"github.com/pdiddy/drill-export/internal/source"
)

var convertCmd = &cobra.Command{
	Use:   "convert [board.kicad_pcb]",
	Short: "Export and rewrite the drill file of one board",
	Long: `Convert runs kicad-cli with plot origin, suppressed leading zeros, inch
units and a minimal header, then writes <name>.exc next to the board with
the header removed and negative X coordinates made positive.

The intermediate <name>.drl is kept unless --remove-intermediate is given.
A non-zero kicad-cli exit aborts the run unless --ignore-export-status is
given.`,
	Args: cobra.MaximumNArgs(1),
	RunE: runConvert,
}

func init() {
	addConvertFlags(convertCmd)
	rootCmd.AddCommand(convertCmd)
}

var convertFlagKeys = map[string]string{
	"kicad-cli":            config.KeyKiCadCLI,
	"timeout":              config.KeyTimeout,
	"remove-intermediate":  config.KeyRemoveIntermediate,
	"ignore-export-status": config.KeyIgnoreExportStatus,
}

func addConvertFlags(cmd *cobra.Command) {
	cmd.Flags().String("kicad-cli", "", "path to kicad-cli (default: search PATH and KiCad install locations)")
	cmd.Flags().Duration("timeout", 0, "abort kicad-cli after this long (default: no limit)")
	cmd.Flags().Bool("remove-intermediate", false, "delete the .drl file after a successful conversion")
	cmd.Flags().Bool("ignore-export-status", false, "continue even if kicad-cli exits non-zero")
	cmd.Flags().Bool("no-history", false, "do not record this run in the history database")
}

// bindConvertFlags binds the executing command's flags, so flags override
// the config file only for the command that actually runs.
func bindConvertFlags(cmd *cobra.Command) error {
	for name, key := range convertFlagKeys {
		if err := viper.BindPFlag(key, cmd.Flags().Lookup(name)); err != nil {
			return fmt.Errorf("binding --%s: %w", name, err)
		}
	}
	return nil
}

func runConvert(cmd *cobra.Command, args []string) error {
	if err := bindConvertFlags(cmd); err != nil {
		return err
	}
	cfg := config.Load(viper.GetViper())
	if noHistory, _ := cmd.Flags().GetBool("no-history"); noHistory {
		cfg.History.Enabled = false
	}
	logger.SetVerbose(cfg.Verbose)

	resolver := &source.Resolver{
		Dir:      ".",
		Prompter: source.NewLinePrompter(os.Stdin, os.Stderr),
		Out:      os.Stderr,
	}
	board, err := resolver.Resolve(args)
	if err != nil {
		return fmt.Errorf("choosing a board: %w", err)
	}
	logger.Debug("board: %s", board)

	cli := kicad.New(cfg.KiCadCLI)
	cli.Stdout = logger.Writer()
	if _, err := cli.Locate(); errors.Is(err, kicad.ErrNotFound) {
		fmt.Fprintln(os.Stderr, err)
		path, perr := resolver.PromptExisting("Path of kicad-cli: ")
		if perr != nil {
			return fmt.Errorf("%w: %v", err, perr)
		}
		cli.Path = path
	}

	pipeline := &export.Pipeline{
		Exporter: cli,
		Config:   cfg,
		Warnf:    warnf,
	}
	if cfg.History.Enabled {
		store, err := history.Open(cfg.History.Dir)
		if err != nil {
			warnf("run history disabled: %v", err)
		} else {
			defer store.Close()
			pipeline.Recorder = store
		}
	}

	_, err = pipeline.Run(cmd.Context(), board, cmd.OutOrStdout())
	return err
}
