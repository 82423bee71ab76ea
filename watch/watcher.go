package watch

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/pithecene-io/replaycast/log"
	"github.com/pithecene-io/replaycast/metrics"
)

// DefaultExtension is the replay file extension watched for.
const DefaultExtension = ".aoe2record"

// Handler processes one settled arrival. It runs on the watcher's single
// worker goroutine, so arrivals are handled strictly one at a time.
type Handler interface {
	HandleArrival(ctx context.Context, path string)
}

// HandlerFunc adapts a function to the Handler interface.
type HandlerFunc func(ctx context.Context, path string)

// HandleArrival calls f.
func (f HandlerFunc) HandleArrival(ctx context.Context, path string) {
	f(ctx, path)
}

// Config configures a Watcher.
type Config struct {
	// Dir is the directory to watch. Subdirectories are not watched.
	Dir string
	// Extension selects replay files (default ".aoe2record"), case-insensitive.
	Extension string
	// Delay is the debounce quiet period (default 30s).
	Delay time.Duration
}

// Watcher turns filesystem notifications in one directory into settled
// arrivals and hands them to a Handler.
type Watcher struct {
	config  Config
	handler Handler
	logger  *log.Logger
	metrics *metrics.Collector

	debouncer *Debouncer
}

// New creates a watcher. logger and collector may be nil.
func New(cfg Config, handler Handler, logger *log.Logger, collector *metrics.Collector) *Watcher {
	if cfg.Extension == "" {
		cfg.Extension = DefaultExtension
	}
	if !strings.HasPrefix(cfg.Extension, ".") {
		cfg.Extension = "." + cfg.Extension
	}
	if cfg.Delay <= 0 {
		cfg.Delay = DefaultDelay
	}
	if logger == nil {
		logger = log.NewNop()
	}

	w := &Watcher{
		config:  cfg,
		handler: handler,
		logger:  logger,
		metrics: collector,
	}
	w.debouncer = NewDebouncer(cfg.Delay, w.superseded)
	return w
}

// Run watches until ctx is cancelled. It returns after the worker has
// finished the arrival it was handling, if any.
func (w *Watcher) Run(ctx context.Context) error {
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("create fs watcher: %w", err)
	}
	defer fsw.Close()

	if err := fsw.Add(w.config.Dir); err != nil {
		return fmt.Errorf("watch %s: %w", w.config.Dir, err)
	}
	defer w.debouncer.Stop()

	w.logger.Info("watching for replays", map[string]any{
		"dir":       w.config.Dir,
		"extension": w.config.Extension,
		"delay":     w.config.Delay.String(),
	})

	workerDone := make(chan struct{})
	go func() {
		defer close(workerDone)
		w.work(ctx)
	}()

	err = w.pump(ctx, fsw)
	<-workerDone
	return err
}

// pump forwards relevant notifications into the debouncer.
func (w *Watcher) pump(ctx context.Context, fsw *fsnotify.Watcher) error {
	for {
		select {
		case <-ctx.Done():
			return nil
		case event, ok := <-fsw.Events:
			if !ok {
				return errors.New("fs watcher closed")
			}
			if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) {
				continue
			}
			w.observe(event.Name)
		case err, ok := <-fsw.Errors:
			if !ok {
				return errors.New("fs watcher closed")
			}
			w.logger.Warn("fs watcher error", map[string]any{"error": err.Error()})
		}
	}
}

// observe filters one modification event and notifies the debouncer.
func (w *Watcher) observe(path string) {
	if !w.Accepts(path) {
		w.metrics.IncArrivalIgnored()
		return
	}
	if info, err := os.Stat(path); err != nil || info.IsDir() {
		w.metrics.IncArrivalIgnored()
		return
	}

	w.metrics.IncArrivalSeen()
	if pending, ok := w.debouncer.Pending(); !ok || pending != path {
		w.logger.Info("replay spotted", map[string]any{"path": path})
	}
	w.debouncer.Notify(path)
}

// Accepts reports whether path has the watched extension.
func (w *Watcher) Accepts(path string) bool {
	return strings.EqualFold(filepath.Ext(path), w.config.Extension)
}

func (w *Watcher) superseded(path string) {
	w.metrics.IncArrivalSuperseded()
	w.logger.Info("arrival superseded", map[string]any{"path": path})
}

// work runs the handler for each settled arrival.
func (w *Watcher) work(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case path := <-w.debouncer.Ready():
			w.handle(ctx, path)
		}
	}
}

func (w *Watcher) handle(ctx context.Context, path string) {
	defer func() {
		if r := recover(); r != nil {
			w.logger.Error("replay handler panicked", map[string]any{
				"path":  path,
				"panic": fmt.Sprint(r),
			})
		}
	}()

	w.logger.Info("arrival settled", map[string]any{"path": path})
	w.handler.HandleArrival(ctx, path)
}
