package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/google/uuid"
	"github.com/joho/godotenv"
	"github.com/urfave/cli/v2"

	"github.com/pithecene-io/replaycast/adapter"
	"github.com/pithecene-io/replaycast/adapter/redis"
	"github.com/pithecene-io/replaycast/adapter/telegram"
	"github.com/pithecene-io/replaycast/adapter/webhook"
	"github.com/pithecene-io/replaycast/adapter/whatsapp"
	"github.com/pithecene-io/replaycast/chatimage"
	"github.com/pithecene-io/replaycast/cli/config"
	"github.com/pithecene-io/replaycast/decoder"
	"github.com/pithecene-io/replaycast/lode"
	"github.com/pithecene-io/replaycast/log"
	"github.com/pithecene-io/replaycast/metrics"
	"github.com/pithecene-io/replaycast/replay"
	"github.com/pithecene-io/replaycast/runtime"
)

const (
	defaultConfigFile = "replaycast.yaml"
	defaultEnvFile    = ".env"
)

// loadConfig loads the dotenv file and the config file, then applies flag
// overrides. An explicitly named file that is missing is an error; the
// defaults are skipped silently when absent.
func loadConfig(c *cli.Context) (*config.Config, error) {
	if err := loadEnvFile(c.String(EnvFileFlag.Name)); err != nil {
		return nil, err
	}

	path := c.String(ConfigFlag.Name)
	if path == "" && fileExists(defaultConfigFile) {
		path = defaultConfigFile
	}

	cfg := config.Default()
	if path != "" {
		loaded, err := config.Load(path)
		if err != nil {
			return nil, err
		}
		cfg = loaded
	}

	if v := c.String(DirFlag.Name); v != "" {
		cfg.Watch.Dir = v
	}
	if v := c.String(LogLevelFlag.Name); v != "" {
		cfg.LogLevel = v
	}
	if c.IsSet(OutputDirFlag.Name) {
		cfg.Render.OutputDir = c.String(OutputDirFlag.Name)
	}
	return cfg, nil
}

func loadEnvFile(path string) error {
	if path == "" {
		if !fileExists(defaultEnvFile) {
			return nil
		}
		path = defaultEnvFile
	}
	if err := godotenv.Load(path); err != nil {
		return fmt.Errorf("load env file %s: %w", path, err)
	}
	return nil
}

func fileExists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}

// configExit wraps a configuration problem in the config exit code.
func configExit(err error) error {
	return cli.Exit(fmt.Sprintf("invalid configuration: %v", err), exitConfigError)
}

// newLogger creates the session logger. Every process gets a fresh session id.
func newLogger(cfg *config.Config, watchDir string) (*log.Logger, error) {
	return log.NewLoggerWithLevel(log.Session{
		ID:       uuid.NewString(),
		WatchDir: watchDir,
	}, cfg.LogLevel)
}

// newLister builds the game-day lister for dir.
func newLister(cfg *config.Config, dir string) replay.Lister {
	return replay.Lister{
		Dir:       dir,
		Extension: cfg.Watch.Extension,
		StartHour: cfg.Watch.DayStartHour,
	}
}

// buildParser returns the retrying replay parser. A configured command
// replaces the embedded decoder helper.
func buildParser(cfg config.ParserConfig, logger *log.Logger, collector *metrics.Collector) (*replay.Adapter, error) {
	command := cfg.Command
	if len(command) == 0 {
		var err error
		command, err = decoder.Command(cfg.Python)
		if err != nil {
			return nil, fmt.Errorf("prepare decoder: %w", err)
		}
	}
	dec := &replay.ProcessDecoder{
		Command: command,
		Timeout: cfg.Timeout.Duration,
	}
	return replay.NewAdapter(dec, replay.AdapterConfig{
		Attempts: cfg.Attempts,
		Backoff:  cfg.Backoff.Duration,
	}, logger, collector), nil
}

func buildRenderer(cfg config.RenderConfig) (*chatimage.ImageRenderer, error) {
	return chatimage.NewImageRenderer(chatimage.Options{
		FontSize: cfg.FontSize,
		Padding:  cfg.Padding,
		Format:   chatimage.Format(cfg.Format),
		Quality:  cfg.Quality,
	})
}

// buildArchive returns nil when archiving is disabled.
func buildArchive(ctx context.Context, cfg config.ArchiveConfig) (*lode.Archive, error) {
	switch cfg.Backend {
	case "":
		return nil, nil
	case "fs":
		root, err := config.ExpandHome(cfg.Path)
		if err != nil {
			return nil, err
		}
		return lode.NewFSArchive(cfg.Dataset, root)
	case "s3":
		bucket, prefix := lode.ParseS3Path(cfg.Path)
		return lode.NewS3Archive(ctx, cfg.Dataset, lode.S3Config{
			Bucket:       bucket,
			Prefix:       prefix,
			Region:       cfg.Region,
			Endpoint:     cfg.Endpoint,
			UsePathStyle: cfg.S3PathStyle,
		})
	default:
		return nil, fmt.Errorf("unknown archive backend: %s (must be fs or s3)", cfg.Backend)
	}
}

// buildAdapters creates the configured delivery channels in dispatch order.
func buildAdapters(cfg config.DeliveryConfig, logger *log.Logger) ([]adapter.Adapter, error) {
	var adapters []adapter.Adapter

	if wa := cfg.WhatsApp; wa.Enabled {
		profile := wa.ProfileDir
		if profile != "" {
			expanded, err := config.ExpandHome(profile)
			if err != nil {
				return nil, err
			}
			profile = expanded
		}
		a, err := whatsapp.New(whatsapp.Config{
			Destination: wa.Destination,
			ProfileDir:  profile,
			Headless:    wa.Headless,
			RemoteURL:   wa.RemoteURL,
			ChromePath:  wa.ChromePath,
			UserAgent:   wa.UserAgent,
			LoadTimeout: wa.LoadTimeout.Duration,
			StepTimeout: wa.StepTimeout.Duration,
			SendTimeout: wa.SendTimeout.Duration,
		}, logger)
		if err != nil {
			return nil, err
		}
		adapters = append(adapters, a)
	}

	if tg := cfg.Telegram; tg.Token != "" {
		a, err := telegram.New(telegram.Config{
			Token:   tg.Token,
			ChatID:  tg.ChatID,
			Timeout: tg.Timeout.Duration,
		})
		if err != nil {
			return nil, err
		}
		adapters = append(adapters, a)
	}

	if wh := cfg.Webhook; wh.URL != "" {
		a, err := webhook.New(webhook.Config{
			URL:     wh.URL,
			Headers: wh.Headers,
			Timeout: wh.Timeout.Duration,
			Retries: retries(wh.Retries),
		})
		if err != nil {
			return nil, err
		}
		adapters = append(adapters, a)
	}

	if rd := cfg.Redis; rd.URL != "" {
		a, err := redis.New(redis.Config{
			URL:          rd.URL,
			Channel:      rd.Channel,
			HistoryKey:   rd.HistoryKey,
			HistoryLimit: rd.HistoryLimit,
			Timeout:      rd.Timeout.Duration,
			Retries:      retries(rd.Retries),
		})
		if err != nil {
			return nil, err
		}
		adapters = append(adapters, a)
	}

	return adapters, nil
}

// retries maps an absent retries key to no retries.
func retries(n *int) int {
	if n == nil {
		return 0
	}
	return *n
}

// stack is everything a processing command needs. close releases it.
type stack struct {
	pipeline   *runtime.Pipeline
	dispatcher *runtime.Dispatcher
	collector  *metrics.Collector
}

func (s *stack) close() error {
	if s.dispatcher == nil {
		return nil
	}
	return s.dispatcher.Close()
}

// buildStack wires parser, renderer, archive and delivery into a pipeline.
// deliver=false leaves the pipeline without a dispatcher.
func buildStack(ctx context.Context, cfg *config.Config, watchDir string, deliver bool, logger *log.Logger) (*stack, error) {
	collector := metrics.NewCollector()

	parser, err := buildParser(cfg.Parser, logger, collector)
	if err != nil {
		return nil, err
	}
	renderer, err := buildRenderer(cfg.Render)
	if err != nil {
		return nil, configExit(err)
	}
	outputDir, err := config.ExpandHome(cfg.Render.OutputDir)
	if err != nil {
		return nil, configExit(err)
	}
	if err := os.MkdirAll(outputDir, 0o755); err != nil {
		return nil, fmt.Errorf("create output dir: %w", err)
	}

	pcfg := runtime.PipelineConfig{
		OutputDir:         outputDir,
		Format:            renderer.Format(),
		Parser:            parser,
		Renderer:          renderer,
		Lister:            newLister(cfg, watchDir),
		StabilizeInterval: cfg.Watch.StabilizeInterval.Duration,
		StabilizeTimeout:  cfg.Watch.StabilizeTimeout.Duration,
		Collector:         collector,
	}

	archive, err := buildArchive(ctx, cfg.Archive)
	if err != nil {
		return nil, fmt.Errorf("open archive: %w", err)
	}
	// Assigned only when present so the interface stays nil otherwise.
	if archive != nil {
		pcfg.Archive = archive
	}

	s := &stack{collector: collector}
	if deliver {
		adapters, err := buildAdapters(cfg.Delivery, logger)
		if err != nil {
			return nil, configExit(err)
		}
		if len(adapters) == 0 {
			logger.Warn("no delivery channels configured", nil)
		}
		s.dispatcher = runtime.NewDispatcher(adapters, logger, collector)
		pcfg.Dispatcher = s.dispatcher
	}

	s.pipeline, err = runtime.NewPipeline(pcfg, logger)
	if err != nil {
		return nil, errors.Join(err, s.close())
	}
	return s, nil
}
