package replay

import (
	"context"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/pithecene-io/replaycast/log"
	"github.com/pithecene-io/replaycast/metrics"
	"github.com/pithecene-io/replaycast/types"
)

// DefaultAttempts is the default number of decode attempts per replay.
const DefaultAttempts = 10

// DefaultBackoff is the default pause between decode attempts.
const DefaultBackoff = 5 * time.Second

// ErrEmptyFile is returned for a zero-length read.
var ErrEmptyFile = errors.New("empty file")

// AdapterConfig configures the retrying parser.
type AdapterConfig struct {
	// Attempts is the total number of decode attempts (default 10).
	Attempts int
	// Backoff is the fixed sleep between attempts (default 5s).
	Backoff time.Duration
}

// Adapter is a Parser that retries a Decoder on any failure.
// Transient read errors and malformed data are not distinguished.
type Adapter struct {
	decoder  Decoder
	config   AdapterConfig
	logger   *log.Logger
	metrics  *metrics.Collector
	readFile func(string) ([]byte, error)
}

// NewAdapter creates a retrying parser. logger and collector may be nil.
func NewAdapter(decoder Decoder, cfg AdapterConfig, logger *log.Logger, collector *metrics.Collector) *Adapter {
	if cfg.Attempts <= 0 {
		cfg.Attempts = DefaultAttempts
	}
	if cfg.Backoff < 0 {
		cfg.Backoff = 0
	}
	if logger == nil {
		logger = log.NewNop()
	}
	return &Adapter{
		decoder:  decoder,
		config:   cfg,
		logger:   logger,
		metrics:  collector,
		readFile: os.ReadFile,
	}
}

// Parse reads and decodes path, retrying up to Attempts times.
// When every attempt fails the returned replay is Degraded and carries the
// last error; Parse itself never fails.
func (a *Adapter) Parse(ctx context.Context, path string) *types.Replay {
	var lastErr error

	for i := range a.config.Attempts {
		if i > 0 {
			timer := time.NewTimer(a.config.Backoff)
			select {
			case <-ctx.Done():
				timer.Stop()
				lastErr = fmt.Errorf("%w (after %d attempts: %v)", ctx.Err(), i, lastErr)
				return a.degrade(path, lastErr)
			case <-timer.C:
			}
		}

		a.metrics.IncParseAttempt()
		decoded, err := a.attempt(ctx, path)
		if err == nil {
			return &types.Replay{
				Path:       path,
				Players:    decoded.Players,
				Chat:       decoded.Chat,
				DurationMs: decoded.DurationMs,
			}
		}

		lastErr = err
		a.metrics.IncParseFailure()
		a.logger.Warn("replay parse failed", map[string]any{
			"path":     path,
			"attempt":  i + 1,
			"attempts": a.config.Attempts,
			"error":    err.Error(),
		})
	}

	return a.degrade(path, lastErr)
}

func (a *Adapter) attempt(ctx context.Context, path string) (*Decoded, error) {
	data, err := a.readFile(path)
	if err != nil {
		return nil, err
	}
	if len(data) == 0 {
		return nil, ErrEmptyFile
	}

	decoded, err := a.decoder.Decode(ctx, data)
	if err != nil {
		return nil, err
	}
	if decoded == nil {
		return nil, errors.New("decoder returned no result")
	}
	return decoded, nil
}

func (a *Adapter) degrade(path string, err error) *types.Replay {
	a.metrics.IncParseDegraded()
	a.logger.Error("replay parse gave up", map[string]any{
		"path":  path,
		"error": err.Error(),
	})
	return &types.Replay{
		Path:     path,
		Degraded: true,
		Err:      err.Error(),
	}
}

// Verify Adapter implements Parser.
var _ Parser = (*Adapter)(nil)
