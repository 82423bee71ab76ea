// Package cmd provides CLI commands for the replaycast binary.
package cmd

import "github.com/urfave/cli/v2"

// Exit codes.
const (
	exitFailure     = 1
	exitConfigError = 2
)

// Shared flags.
var (
	// ConfigFlag points at a replaycast.yaml file.
	ConfigFlag = &cli.StringFlag{
		Name:    "config",
		Aliases: []string{"c"},
		Usage:   "Path to replaycast.yaml (default: ./replaycast.yaml when present)",
		EnvVars: []string{"REPLAYCAST_CONFIG"},
	}

	// EnvFileFlag names a dotenv file loaded before the config is expanded.
	EnvFileFlag = &cli.StringFlag{
		Name:  "env-file",
		Usage: "Load environment variables from this file (default: ./.env when present)",
	}

	// DirFlag overrides the watched replay directory.
	DirFlag = &cli.StringFlag{
		Name:  "dir",
		Usage: "Replay directory (overrides watch.dir and profile detection)",
	}

	// LogLevelFlag overrides log_level.
	LogLevelFlag = &cli.StringFlag{
		Name:  "log-level",
		Usage: "Log level: debug, info, warn, error",
	}

	// OutputDirFlag overrides render.output_dir.
	OutputDirFlag = &cli.StringFlag{
		Name:  "output-dir",
		Usage: "Directory receiving chat images",
	}

	// FormatFlag selects output format: json, table, yaml.
	FormatFlag = &cli.StringFlag{
		Name:    "format",
		Aliases: []string{"f"},
		Usage:   "Output format: json, table, yaml",
	}

	// NoColorFlag disables colored output.
	NoColorFlag = &cli.BoolFlag{
		Name:  "no-color",
		Usage: "Disable colored output",
	}

	// TUIFlag enables Bubble Tea interactive mode.
	TUIFlag = &cli.BoolFlag{
		Name:  "tui",
		Usage: "Enable interactive TUI mode (today only)",
	}
)

// ConfigFlags returns the flags that locate and override configuration.
func ConfigFlags() []cli.Flag {
	return []cli.Flag{
		ConfigFlag,
		EnvFileFlag,
		DirFlag,
		LogLevelFlag,
	}
}

// ReadOnlyFlags returns the shared flags for all read-only commands.
// Includes --tui so that unsupported commands can provide explicit error messages
// instead of generic "flag not defined" errors.
func ReadOnlyFlags() []cli.Flag {
	return append(ConfigFlags(),
		FormatFlag,
		NoColorFlag,
		TUIFlag,
	)
}
