package cmd

import (
	"time"

	"github.com/urfave/cli/v2"

	"github.com/pithecene-io/replaycast/cli/config"
	"github.com/pithecene-io/replaycast/cli/render"
	"github.com/pithecene-io/replaycast/cli/tui"
)

// TodayCommand returns the today command: the current game day's replays
// with the rank each one gets in its image name.
func TodayCommand() *cli.Command {
	return &cli.Command{
		Name:   "today",
		Usage:  "List the replays of the current game day",
		Flags:  ReadOnlyFlags(),
		Action: todayAction,
	}
}

func todayAction(c *cli.Context) error {
	r, err := render.NewRenderer(c)
	if err != nil {
		return configExit(err)
	}

	cfg, err := loadConfig(c)
	if err != nil {
		return configExit(err)
	}
	dir, err := config.ResolveWatchDir(cfg.Watch)
	if err != nil {
		return configExit(err)
	}

	listing, err := newLister(cfg, dir).Listing(time.Now())
	if err != nil {
		return cli.Exit(err.Error(), exitFailure)
	}

	if c.Bool(TUIFlag.Name) {
		return r.RenderTUI(tui.ViewToday, listing)
	}
	return r.Render(listing)
}
