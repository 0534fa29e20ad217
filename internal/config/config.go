// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package config builds a ConverterConfig from viper settings: config
// file, DRILL_EXPORT_* environment variables and bound flags.
package config

import (
	"errors"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/viper"

	"github.com/pdiddy/drill-export/pkg/types"
)

const (
	// Name is the config file base name and config directory name.
	Name = "drill-export"
	// EnvPrefix prefixes environment overrides, e.g. DRILL_EXPORT_KICAD_CLI.
	EnvPrefix = "DRILL_EXPORT"
)

// Keys understood in the config file.
const (
	KeyKiCadCLI           = "kicad_cli"
	KeyTimeout            = "timeout"
	KeyRemoveIntermediate = "remove_intermediate"
	KeyIgnoreExportStatus = "ignore_export_status"
	KeyVerbose            = "verbose"
	KeyHistoryEnabled     = "history.enabled"
	KeyHistoryDir         = "history.dir"
)

// DefaultHistoryDir returns <user config dir>/drill-export, falling back
// to ./.drill-export when the user config dir is unknown.
func DefaultHistoryDir() string {
	dir, err := os.UserConfigDir()
	if err != nil {
		return "." + Name
	}
	return filepath.Join(dir, Name)
}

// SetDefaults registers default values on v.
func SetDefaults(v *viper.Viper) {
	v.SetDefault(KeyKiCadCLI, "")
	v.SetDefault(KeyTimeout, 0)
	v.SetDefault(KeyRemoveIntermediate, false)
	v.SetDefault(KeyIgnoreExportStatus, false)
	v.SetDefault(KeyVerbose, false)
	v.SetDefault(KeyHistoryEnabled, true)
	v.SetDefault(KeyHistoryDir, DefaultHistoryDir())
}

// Init points v at cfgFile when set, otherwise at drill-export.yaml in the
// working directory or ~/.config/drill-export, and enables environment
// overrides. It returns the config file used, or "" when none was read.
func Init(v *viper.Viper, cfgFile string) (string, error) {
	SetDefaults(v)

	if cfgFile != "" {
		v.SetConfigFile(cfgFile)
	} else {
		v.SetConfigName(Name)
		v.SetConfigType("yaml")
		v.AddConfigPath(".")

		home, err := os.UserHomeDir()
		if err == nil {
			v.AddConfigPath(filepath.Join(home, ".config", Name))
		}
	}

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if cfgFile == "" && errors.As(err, &notFound) {
			return "", nil
		}
		return "", err
	}
	return v.ConfigFileUsed(), nil
}

// Load reads the converter settings from v.
func Load(v *viper.Viper) types.ConverterConfig {
	return types.ConverterConfig{
		KiCadCLI:           v.GetString(KeyKiCadCLI),
		Timeout:            v.GetDuration(KeyTimeout),
		RemoveIntermediate: v.GetBool(KeyRemoveIntermediate),
		IgnoreExportStatus: v.GetBool(KeyIgnoreExportStatus),
		Verbose:            v.GetBool(KeyVerbose),
		History: types.HistoryConfig{
			Enabled: v.GetBool(KeyHistoryEnabled),
			Dir:     v.GetString(KeyHistoryDir),
		},
	}
}
