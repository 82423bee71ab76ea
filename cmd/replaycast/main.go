// Package main provides the replaycast CLI entrypoint.
//
// Usage:
//
//	replaycast [command] [options]
//
// Without a command, replaycast watches the replay directory until SIGINT or
// SIGTERM.
//
// Exit codes:
//   - 0: success, or a clean shutdown of watch
//   - 1: runtime failure (watch setup, processing, failed delivery)
//   - 2: invalid configuration or usage
package main

import (
	"errors"
	"fmt"
	"os"

	"github.com/urfave/cli/v2"

	"github.com/pithecene-io/replaycast/cli/cmd"
	"github.com/pithecene-io/replaycast/types"
)

// Commit is set via ldflags at build time.
var commit = "unknown"

func main() {
	if err := newApp().Run(os.Args); err != nil {
		// ExitErrHandler already handled the exit for cli.ExitCoder errors.
		// This branch handles unexpected errors that weren't wrapped.
		os.Exit(1)
	}
}

func newApp() *cli.App {
	return &cli.App{
		Name:           "replaycast",
		Usage:          "Turn finished Age of Empires II replays into chat images and send them",
		Version:        fmt.Sprintf("%s (commit: %s)", types.Version, commit),
		ExitErrHandler: exitErrHandler,
		DefaultCommand: "watch",
		Commands: []*cli.Command{
			cmd.WatchCommand(),
			cmd.ProcessCommand(),
			cmd.TodayCommand(),
			cmd.HistoryCommand(),
			cmd.VersionCommand(commit),
		},
	}
}

// exitErrHandler handles errors from the CLI, preserving exit codes from cli.Exit().
func exitErrHandler(_ *cli.Context, err error) {
	if err == nil {
		return
	}

	// Check for ExitCoder (from cli.Exit), handles wrapped errors
	var exitCoder cli.ExitCoder
	if errors.As(err, &exitCoder) {
		code := exitCoder.ExitCode()
		msg := exitCoder.Error()

		// cli.Exit("", N).Error() returns "exit status N", so skip those
		if msg != "" && msg != fmt.Sprintf("exit status %d", code) {
			fmt.Fprintln(os.Stderr, msg)
		}
		os.Exit(code)
	}

	fmt.Fprintf(os.Stderr, "Error: %v\n", err)
	os.Exit(1)
}
