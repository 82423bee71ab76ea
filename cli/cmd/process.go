package cmd

import (
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/urfave/cli/v2"

	"github.com/pithecene-io/replaycast/cli/render"
	"github.com/pithecene-io/replaycast/decoder"
	"github.com/pithecene-io/replaycast/iox"
	"github.com/pithecene-io/replaycast/types"
)

// ProcessResponse is the output of the process command.
type ProcessResponse struct {
	Replay   string                  `json:"replay" yaml:"replay"`
	Artifact *types.Artifact         `json:"artifact,omitempty" yaml:"artifact,omitempty"`
	Archived string                  `json:"archived,omitempty" yaml:"archived,omitempty"`
	Outcomes []types.DeliveryOutcome `json:"outcomes" yaml:"outcomes"`
	Duration string                  `json:"duration" yaml:"duration"`
}

// ProcessCommand returns the process command. It handles one replay
// without watching and without waiting for the debounce.
func ProcessCommand() *cli.Command {
	return &cli.Command{
		Name:      "process",
		Usage:     "Render and deliver the chat image of one replay",
		ArgsUsage: "<replay>",
		Flags: append(ConfigFlags(),
			OutputDirFlag,
			FormatFlag,
			NoColorFlag,
			&cli.BoolFlag{
				Name:  "no-deliver",
				Usage: "Render only; skip every delivery channel",
			},
		),
		Action: processAction,
	}
}

func processAction(c *cli.Context) error {
	if c.NArg() != 1 {
		return cli.Exit("process takes exactly one replay path", exitConfigError)
	}
	path, err := filepath.Abs(c.Args().First())
	if err != nil {
		return err
	}

	r, err := render.NewRenderer(c)
	if err != nil {
		return configExit(err)
	}

	cfg, err := loadConfig(c)
	if err != nil {
		return configExit(err)
	}
	deliver := !c.Bool("no-deliver")
	if !deliver {
		cfg.Delivery.WhatsApp.Enabled = false
	}
	if err := cfg.Validate(); err != nil {
		return configExit(err)
	}

	// Ranking looks at the replay's own directory.
	watchDir := filepath.Dir(path)
	logger, err := newLogger(cfg, watchDir)
	if err != nil {
		return configExit(err)
	}
	defer iox.DiscardErr(logger.Sync)

	ctx, stop := signal.NotifyContext(c.Context, os.Interrupt, syscall.SIGTERM)
	defer stop()

	s, err := buildStack(ctx, cfg, watchDir, deliver, logger)
	if err != nil {
		return err
	}
	defer func() {
		_ = s.close()
		if len(cfg.Parser.Command) == 0 {
			_ = decoder.Cleanup()
		}
	}()

	result, err := s.pipeline.Process(ctx, path)
	if err != nil {
		return cli.Exit(fmt.Sprintf("process %s: %v", path, err), exitFailure)
	}

	resp := ProcessResponse{
		Replay:   path,
		Artifact: result.Artifact,
		Outcomes: result.Outcomes,
		Duration: result.Duration.String(),
	}
	if resp.Outcomes == nil {
		resp.Outcomes = []types.DeliveryOutcome{}
	}
	if result.Archived != nil {
		resp.Archived = result.Archived.ArtifactPath
	}
	if err := r.Render(resp); err != nil {
		return err
	}
	if !result.Delivered() {
		return cli.Exit("", exitFailure)
	}
	return nil
}
