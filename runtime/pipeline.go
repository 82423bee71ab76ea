// Package runtime turns settled replay arrivals into delivered chat images.
package runtime

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"go.opentelemetry.io/otel/attribute"

	"github.com/pithecene-io/replaycast/adapter"
	"github.com/pithecene-io/replaycast/chatimage"
	"github.com/pithecene-io/replaycast/lode"
	"github.com/pithecene-io/replaycast/log"
	"github.com/pithecene-io/replaycast/metrics"
	"github.com/pithecene-io/replaycast/replay"
	"github.com/pithecene-io/replaycast/telemetry"
	"github.com/pithecene-io/replaycast/types"
	"github.com/pithecene-io/replaycast/watch"
)

// Archiver stores a processed replay. Implemented by *lode.Archive.
type Archiver interface {
	Put(ctx context.Context, e lode.Entry) (lode.Record, error)
}

// PipelineConfig configures a Pipeline.
type PipelineConfig struct {
	// OutputDir receives the rendered images (required).
	OutputDir string
	// Format selects the image encoding; also the output extension.
	Format chatimage.Format
	// Parser decodes replays (required).
	Parser replay.Parser
	// Renderer draws chat images (required).
	Renderer chatimage.Renderer
	// Lister ranks replays within the game day.
	Lister replay.Lister
	// StabilizeInterval is the size polling interval (default 2s).
	StabilizeInterval time.Duration
	// StabilizeTimeout bounds the stabilization wait. Zero waits indefinitely.
	StabilizeTimeout time.Duration
	// Archive optionally stores every artifact. Nil disables archiving.
	Archive Archiver
	// Dispatcher delivers artifacts. Nil renders without delivering.
	Dispatcher *Dispatcher
	// Collector records pipeline metrics. Nil disables metrics.
	Collector *metrics.Collector
	// Size overrides the file size probe (for testing).
	Size watch.SizeFunc
	// Now overrides the clock (for testing).
	Now func() time.Time
}

// Result describes one processed replay.
type Result struct {
	// Replay is the parsed (possibly degraded) replay.
	Replay *types.Replay
	// Artifact is the rendered image, nil if rendering failed.
	Artifact *types.Artifact
	// Archived is the archive record, nil when archiving is off or failed.
	Archived *lode.Record
	// Outcomes holds one entry per delivery adapter.
	Outcomes []types.DeliveryOutcome
	// Duration is the wall time spent in Process.
	Duration time.Duration
}

// Delivered reports whether every delivery succeeded.
// A result with no outcomes counts as delivered.
func (r *Result) Delivered() bool {
	for _, o := range r.Outcomes {
		if !o.OK() {
			return false
		}
	}
	return true
}

// Pipeline runs stabilize, parse, render, archive and deliver for one replay
// at a time. It implements watch.Handler.
type Pipeline struct {
	config PipelineConfig
	logger *log.Logger
}

// NewPipeline validates cfg and applies defaults. logger may be nil.
func NewPipeline(cfg PipelineConfig, logger *log.Logger) (*Pipeline, error) {
	if cfg.OutputDir == "" {
		return nil, errors.New("output directory is required")
	}
	if cfg.Parser == nil {
		return nil, errors.New("parser is required")
	}
	if cfg.Renderer == nil {
		return nil, errors.New("renderer is required")
	}
	if cfg.Format == "" {
		cfg.Format = chatimage.FormatJPEG
	}
	if cfg.StabilizeInterval <= 0 {
		cfg.StabilizeInterval = watch.DefaultStabilizeInterval
	}
	if cfg.Size == nil {
		cfg.Size = watch.FileSize
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	if logger == nil {
		logger = log.NewNop()
	}
	return &Pipeline{config: cfg, logger: logger}, nil
}

// HandleArrival waits for path to stop growing, then processes it.
// Errors are logged; the watch loop carries on with the next arrival.
func (p *Pipeline) HandleArrival(ctx context.Context, path string) {
	size, err := watch.WaitStable(ctx, path, p.config.StabilizeInterval, p.config.StabilizeTimeout, p.config.Size)
	if err != nil {
		if ctx.Err() != nil {
			return
		}
		p.config.Collector.IncStabilizeFailure()
		p.logger.Warn("replay never settled", map[string]any{
			"path":  path,
			"error": err.Error(),
		})
		return
	}

	p.logger.Info("processing replay", map[string]any{
		"path": path,
		"size": size,
	})
	if _, err := p.Process(ctx, path); err != nil && ctx.Err() == nil {
		p.logger.Error("replay processing failed", map[string]any{
			"path":  path,
			"error": err.Error(),
		})
	}
}

// Process parses, renders, archives and delivers a settled replay.
// The returned error covers only failures that prevent an image from being
// produced; archive and delivery failures are reported in the Result.
func (p *Pipeline) Process(ctx context.Context, path string) (*Result, error) {
	start := time.Now()
	ctx, span := telemetry.StartSpan(ctx, "replaycast.process", attribute.String("replay.path", path))
	defer span.End()

	result, err := p.process(ctx, path)
	if result != nil {
		result.Duration = time.Since(start)
	}
	telemetry.RecordError(span, err)
	return result, err
}

func (p *Pipeline) process(ctx context.Context, path string) (*Result, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, fmt.Errorf("stat replay: %w", err)
	}
	modTime := info.ModTime()

	rep := p.config.Parser.Parse(ctx, path)
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	result := &Result{Replay: rep}

	lines := replay.ChatLines(rep)
	header := replay.Header(rep, modTime)

	rank, err := p.config.Lister.Rank(path, p.config.Now())
	if err != nil {
		rank = 1
		p.logger.Warn("game day listing failed, ranking first", map[string]any{
			"path":  path,
			"error": err.Error(),
		})
	}

	name := chatimage.FileName(modTime.Weekday(), rank, p.config.Format)
	dst := filepath.Join(p.config.OutputDir, name)
	if err := p.render(ctx, header, lines, dst); err != nil {
		p.config.Collector.IncRenderFailure()
		return result, fmt.Errorf("render %s: %w", name, err)
	}

	artifact := &types.Artifact{
		Path:       dst,
		Name:       name,
		ReplayPath: path,
		Weekday:    modTime.Weekday(),
		Rank:       rank,
		Lines:      len(lines),
		Degraded:   rep.Degraded,
		CreatedAt:  p.config.Now(),
	}
	result.Artifact = artifact
	p.config.Collector.IncReplayProcessed()
	p.logger.Info("chat image rendered", map[string]any{
		"path":     dst,
		"rank":     rank,
		"lines":    len(lines),
		"degraded": rep.Degraded,
	})

	if p.config.Archive != nil {
		day := p.config.Lister.Day(modTime).Start
		rec, err := p.config.Archive.Put(ctx, lode.Entry{
			Artifact: artifact,
			Lines:    lines,
			Header:   header,
			Day:      day,
		})
		if err != nil {
			p.config.Collector.IncArchiveFailure()
			p.logger.Warn("archive failed", map[string]any{
				"path":  dst,
				"error": err.Error(),
			})
		} else {
			p.config.Collector.IncArchiveSuccess()
			result.Archived = &rec
		}
	}

	if p.config.Dispatcher != nil {
		result.Outcomes = p.config.Dispatcher.Dispatch(ctx, &adapter.Delivery{
			Artifact: artifact,
			Caption:  name,
		})
	}
	return result, nil
}

func (p *Pipeline) render(ctx context.Context, header string, lines []types.ChatLine, dst string) error {
	_, span := telemetry.StartSpan(ctx, "replaycast.render", attribute.String("artifact.path", dst))
	defer span.End()

	if err := os.MkdirAll(p.config.OutputDir, 0o755); err != nil {
		telemetry.RecordError(span, err)
		return err
	}
	err := p.config.Renderer.Render(header, lines, dst)
	telemetry.RecordError(span, err)
	return err
}

// Verify Pipeline implements watch.Handler.
var _ watch.Handler = (*Pipeline)(nil)
