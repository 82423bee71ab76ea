package watch

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"time"
)

// DefaultStabilizeInterval is the pause between size reads.
const DefaultStabilizeInterval = 2 * time.Second

var (
	// ErrFileVanished is returned when the file disappears mid-wait.
	ErrFileVanished = errors.New("file vanished while waiting for it to settle")
	// ErrStabilizeTimeout is returned when the optional timeout elapses.
	ErrStabilizeTimeout = errors.New("file did not settle before timeout")
)

// SizeFunc reports the current size of path.
type SizeFunc func(path string) (int64, error)

// FileSize is the SizeFunc backed by os.Stat.
func FileSize(path string) (int64, error) {
	info, err := os.Stat(path)
	if err != nil {
		return 0, err
	}
	return info.Size(), nil
}

// WaitStable polls the size of path every interval until two consecutive
// reads agree on the same non-zero size, and returns that size.
//
// A zero timeout waits indefinitely. A file that stops existing ends the wait
// with ErrFileVanished; ctx cancellation ends it with ctx.Err().
func WaitStable(ctx context.Context, path string, interval, timeout time.Duration, size SizeFunc) (int64, error) {
	if interval <= 0 {
		interval = DefaultStabilizeInterval
	}
	if size == nil {
		size = FileSize
	}

	var deadline <-chan time.Time
	if timeout > 0 {
		t := time.NewTimer(timeout)
		defer t.Stop()
		deadline = t.C
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	last := int64(-1)
	for {
		current, err := size(path)
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				return 0, fmt.Errorf("%w: %s", ErrFileVanished, path)
			}
			return 0, fmt.Errorf("stat %s: %w", path, err)
		}
		if current > 0 && current == last {
			return current, nil
		}
		last = current

		select {
		case <-ctx.Done():
			return 0, ctx.Err()
		case <-deadline:
			return 0, fmt.Errorf("%w: %s (last size %d)", ErrStabilizeTimeout, path, last)
		case <-ticker.C:
		}
	}
}
