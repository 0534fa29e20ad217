// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package main is the entry point for the drill-export CLI. It exports the
// drill file of a KiCad board with kicad-cli and rewrites it into an
// EAGLE-compatible Excellon file.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/pdiddy/drill-export/internal/config"
)

// version is set at build time via ldflags.
var version = "dev"

var warnColor = color.New(color.FgYellow, color.Bold)

// warnf prints a highlighted warning on stderr.
func warnf(format string, args ...any) {
	warnColor.Fprintf(os.Stderr, "warning: "+format+"\n", args...)
}

// rootCmd converts the board given as its argument, like the convert
// subcommand.
var rootCmd = &cobra.Command{
	Use:   "drill-export [board.kicad_pcb]",
	Short: "Export KiCad drill files in an EAGLE-compatible format",
	Long: `drill-export runs "kicad-cli pcb export drill" for a KiCad board and
rewrites the resulting <name>.drl into <name>.exc: the tool definition
header up to the T1 line is dropped and every "X-" becomes "X".

Without an argument the working directory is searched for .kicad_pcb
files; if there are several you pick one, if there are none you are asked
for a path.`,
	Args: cobra.MaximumNArgs(1),
	RunE: runConvert,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		cfgFile, _ := cmd.Flags().GetString("config")
		used, err := config.Init(viper.GetViper(), cfgFile)
		if err != nil {
			return fmt.Errorf("reading config: %w", err)
		}
		if used != "" {
			fmt.Fprintln(os.Stderr, "Using config file:", used)
		}
		return nil
	},
}

func init() {
	rootCmd.PersistentFlags().String("config", "", "config file (default: ./drill-export.yaml or ~/.config/drill-export/drill-export.yaml)")
	rootCmd.PersistentFlags().BoolP("verbose", "v", false, "print debug output and kicad-cli output on stderr")
	_ = viper.BindPFlag(config.KeyVerbose, rootCmd.PersistentFlags().Lookup("verbose"))

	addConvertFlags(rootCmd)
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		os.Exit(1)
	}
}
