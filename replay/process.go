package replay

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os/exec"
	"strings"
	"time"

	"github.com/pithecene-io/replaycast/ipc"
	"github.com/pithecene-io/replaycast/types"
)

// DefaultDecodeTimeout bounds a single decoder process run.
const DefaultDecodeTimeout = 60 * time.Second

// maxStderr caps how much decoder stderr is kept for error messages.
const maxStderr = 4096

// ProcessDecoder runs an external decoder command per decode.
// The raw replay is written to the process stdin; the process answers with
// ipc frames on stdout.
type ProcessDecoder struct {
	// Command is the program and its arguments.
	Command []string
	// Timeout bounds one run (default 60s).
	Timeout time.Duration
}

// Decode runs the decoder command against data.
func (d *ProcessDecoder) Decode(ctx context.Context, data []byte) (*Decoded, error) {
	if len(d.Command) == 0 {
		return nil, errors.New("decoder command is empty")
	}

	timeout := d.Timeout
	if timeout <= 0 {
		timeout = DefaultDecodeTimeout
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	cmd := exec.CommandContext(ctx, d.Command[0], d.Command[1:]...)
	cmd.Stdin = bytes.NewReader(data)

	var stderr limitedBuffer
	stderr.limit = maxStderr
	cmd.Stderr = &stderr

	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return nil, fmt.Errorf("failed to create stdout pipe: %w", err)
	}

	if err := cmd.Start(); err != nil {
		return nil, fmt.Errorf("failed to start decoder: %w", err)
	}

	decoded, readErr := ReadFrames(stdout)
	if readErr != nil {
		// Drain so Wait does not block on a full pipe.
		_, _ = io.Copy(io.Discard, stdout)
	}
	waitErr := cmd.Wait()

	switch {
	case ctx.Err() != nil:
		return nil, fmt.Errorf("decoder: %w", ctx.Err())
	case waitErr != nil:
		return nil, fmt.Errorf("decoder exited: %w%s", waitErr, stderr.suffix())
	case readErr != nil:
		return nil, fmt.Errorf("decoder: %w%s", readErr, stderr.suffix())
	}
	return decoded, nil
}

// ReadFrames consumes a decoder frame stream until EOF.
// The stream must end with a summary frame; an error frame fails the decode.
func ReadFrames(r io.Reader) (*Decoded, error) {
	dec := ipc.NewFrameDecoder(r)
	out := &Decoded{}
	var sawSummary bool

	for {
		payload, err := dec.ReadFrame()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, err
		}

		frame, err := ipc.DecodeFrame(payload)
		if err != nil {
			return nil, err
		}

		switch f := frame.(type) {
		case *ipc.PlayerFrame:
			out.Players = append(out.Players, types.Player{
				Number:  f.Number,
				Name:    f.Name,
				ColorID: f.ColorID,
			})
		case *ipc.ChatFrame:
			out.Chat = append(out.Chat, types.ChatEvent{
				PlayerNumber: f.PlayerNumber,
				TimestampMs:  f.TimestampMs,
				Message:      f.Message,
			})
		case *ipc.SummaryFrame:
			out.DurationMs = f.DurationMs
			sawSummary = true
		case *ipc.ErrorFrame:
			return nil, fmt.Errorf("decoder reported: %s", f.Message)
		}
	}

	if !sawSummary {
		return nil, errors.New("decoder stream ended without summary")
	}
	return out, nil
}

// limitedBuffer keeps the first limit bytes written to it.
type limitedBuffer struct {
	buf   bytes.Buffer
	limit int
}

func (b *limitedBuffer) Write(p []byte) (int, error) {
	if room := b.limit - b.buf.Len(); room > 0 {
		if len(p) > room {
			b.buf.Write(p[:room])
		} else {
			b.buf.Write(p)
		}
	}
	return len(p), nil
}

// suffix formats captured stderr for appending to an error message.
func (b *limitedBuffer) suffix() string {
	s := strings.TrimSpace(b.buf.String())
	if s == "" {
		return ""
	}
	return ": " + s
}

// Verify ProcessDecoder implements Decoder.
var _ Decoder = (*ProcessDecoder)(nil)
