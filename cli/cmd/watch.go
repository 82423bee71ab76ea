package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/urfave/cli/v2"

	"github.com/pithecene-io/replaycast/cli/config"
	"github.com/pithecene-io/replaycast/decoder"
	"github.com/pithecene-io/replaycast/iox"
	"github.com/pithecene-io/replaycast/metrics"
	"github.com/pithecene-io/replaycast/telemetry"
	"github.com/pithecene-io/replaycast/types"
	"github.com/pithecene-io/replaycast/watch"
)

// serviceName is reported to the tracing backend.
const serviceName = "replaycast"

// WatchCommand returns the watch command, the long-running default.
func WatchCommand() *cli.Command {
	return &cli.Command{
		Name:  "watch",
		Usage: "Watch the replay directory and deliver a chat image per finished game",
		Flags: append(ConfigFlags(),
			OutputDirFlag,
			&cli.StringFlag{
				Name:  "metrics-addr",
				Usage: "Serve Prometheus metrics on this address (overrides metrics.addr)",
			},
		),
		Action: watchAction,
	}
}

func watchAction(c *cli.Context) error {
	cfg, err := loadConfig(c)
	if err != nil {
		return configExit(err)
	}
	if v := c.String("metrics-addr"); v != "" {
		cfg.Metrics.Addr = v
	}
	if err := cfg.Validate(); err != nil {
		return configExit(err)
	}

	watchDir, err := config.ResolveWatchDir(cfg.Watch)
	if err != nil {
		return configExit(err)
	}
	if info, err := os.Stat(watchDir); err != nil || !info.IsDir() {
		return configExit(fmt.Errorf("replay directory %s does not exist", watchDir))
	}

	logger, err := newLogger(cfg, watchDir)
	if err != nil {
		return configExit(err)
	}
	defer iox.DiscardErr(logger.Sync)

	ctx, stop := signal.NotifyContext(c.Context, os.Interrupt, syscall.SIGTERM)
	defer stop()

	shutdown, err := telemetry.InitTracing(ctx, telemetry.Config{
		ServiceName:    serviceName,
		ServiceVersion: types.Version,
		Endpoint:       cfg.Tracing.Endpoint,
		Insecure:       cfg.Tracing.Insecure,
	}, logger)
	if err != nil {
		return fmt.Errorf("init tracing: %w", err)
	}
	defer func() {
		if err := shutdown(context.Background()); err != nil {
			logger.Warn("tracing shutdown failed", map[string]any{"error": err.Error()})
		}
	}()

	s, err := buildStack(ctx, cfg, watchDir, true, logger)
	if err != nil {
		return err
	}
	defer func() {
		if err := s.close(); err != nil {
			logger.Warn("closing delivery channels failed", map[string]any{"error": err.Error()})
		}
		if len(cfg.Parser.Command) == 0 {
			_ = decoder.Cleanup()
		}
	}()

	if addr := cfg.Metrics.Addr; addr != "" {
		reg, err := metrics.NewRegistry(s.collector)
		if err != nil {
			return fmt.Errorf("metrics registry: %w", err)
		}
		go func() {
			if err := metrics.Serve(ctx, addr, reg); err != nil {
				logger.Error("metrics server stopped", map[string]any{"addr": addr, "error": err.Error()})
			}
		}()
	}

	logger.Info("replaycast starting", map[string]any{
		"version":  types.Version,
		"channels": s.dispatcher.Channels(),
	})

	w := watch.New(watch.Config{
		Dir:       watchDir,
		Extension: cfg.Watch.Extension,
		Delay:     cfg.Watch.Debounce.Duration,
	}, s.pipeline, logger, s.collector)
	if err := w.Run(ctx); err != nil {
		return cli.Exit(fmt.Sprintf("watch failed: %v", err), exitFailure)
	}

	snap := s.collector.Snapshot()
	logger.Info("replaycast stopped", map[string]any{
		"arrivals":         snap.ArrivalsSeen,
		"superseded":       snap.ArrivalsSuperseded,
		"processed":        snap.ReplaysProcessed,
		"degraded":         snap.ParseDegraded,
		"delivery_success": snap.DeliverySuccess,
		"delivery_failure": snap.DeliveryFailure,
		"archive_failure":  snap.ArchiveFailure,
	})
	return nil
}
