package cmd

import (
	"fmt"
	"strconv"
	"time"

	"github.com/urfave/cli/v2"

	"github.com/pithecene-io/replaycast/cli/render"
	"github.com/pithecene-io/replaycast/lode"
	"github.com/pithecene-io/replaycast/replay"
)

// historyRows presents archive records as a table.
type historyRows []lode.Record

func (h historyRows) Columns() []string {
	return []string{"day", "rank", "artifact", "lines", "degraded", "archived"}
}

func (h historyRows) Rows() [][]string {
	rows := make([][]string, 0, len(h))
	for _, rec := range h {
		rows = append(rows, []string{
			rec.Day,
			strconv.Itoa(rec.Rank),
			rec.Artifact,
			strconv.Itoa(rec.Lines),
			strconv.FormatBool(rec.Degraded),
			rec.ArchivedAt.Local().Format("2006-01-02 15:04:05"),
		})
	}
	return rows
}

// HistoryCommand returns the history command. It reads archived artifacts
// and needs an archive backend.
func HistoryCommand() *cli.Command {
	return &cli.Command{
		Name:  "history",
		Usage: "List archived chat images",
		Flags: append(ReadOnlyFlags(),
			&cli.StringFlag{
				Name:  "day",
				Usage: "Game day as YYYY-MM-DD (default: today; \"all\" lists everything)",
			},
		),
		Action: historyAction,
	}
}

func historyAction(c *cli.Context) error {
	r, err := render.NewRenderer(c)
	if err != nil {
		return configExit(err)
	}
	if c.Bool(TUIFlag.Name) {
		return cli.Exit("--tui is not supported for history command", exitFailure)
	}

	cfg, err := loadConfig(c)
	if err != nil {
		return configExit(err)
	}
	if cfg.Archive.Backend == "" {
		return configExit(fmt.Errorf("archive.backend is not configured"))
	}

	day, err := historyDay(c.String("day"), cfg.Watch.DayStartHour, time.Now())
	if err != nil {
		return configExit(err)
	}

	archive, err := buildArchive(c.Context, cfg.Archive)
	if err != nil {
		return cli.Exit(fmt.Sprintf("open archive: %v", err), exitFailure)
	}
	records, err := archive.Records(c.Context, day)
	if err != nil {
		return cli.Exit(fmt.Sprintf("read archive: %v", err), exitFailure)
	}
	if records == nil {
		records = []lode.Record{}
	}
	return r.Render(historyRows(records))
}

// historyDay resolves the --day flag to an archive partition value.
// Empty means the game day containing now; "all" means no filter.
func historyDay(flag string, startHour int, now time.Time) (string, error) {
	switch flag {
	case "":
		return replay.Lister{StartHour: startHour}.Day(now).Start.Format(lode.DayLayout), nil
	case "all":
		return "", nil
	}
	if _, err := time.Parse(lode.DayLayout, flag); err != nil {
		return "", fmt.Errorf("invalid --day %q: want YYYY-MM-DD", flag)
	}
	return flag, nil
}
