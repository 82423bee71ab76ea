// Package replay turns replay files into parsed chat data.
//
// The binary format itself is handled by a Decoder, treated as a black box
// that may fail on partial or malformed input. Adapter wraps a Decoder with
// a bounded retry so a file still being flushed by the game client can be
// read once the writer is done.
package replay

import (
	"context"

	"github.com/pithecene-io/replaycast/types"
)

// Decoded is what a Decoder extracts from raw replay bytes.
type Decoded struct {
	Players    []types.Player
	Chat       []types.ChatEvent
	DurationMs int64
}

// Decoder extracts players, chat and duration from raw replay bytes.
type Decoder interface {
	Decode(ctx context.Context, data []byte) (*Decoded, error)
}

// DecoderFunc adapts a function to the Decoder interface.
type DecoderFunc func(ctx context.Context, data []byte) (*Decoded, error)

// Decode calls f.
func (f DecoderFunc) Decode(ctx context.Context, data []byte) (*Decoded, error) {
	return f(ctx, data)
}

// Parser produces a Replay for a path. Implementations never fail: a replay
// that cannot be decoded comes back with Degraded set.
type Parser interface {
	Parse(ctx context.Context, path string) *types.Replay
}
