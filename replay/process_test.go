package replay

import (
	"bytes"
	"fmt"
	"io"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/pithecene-io/replaycast/ipc"
)

func encodeFrames(t *testing.T, frames ...any) *bytes.Buffer {
	t.Helper()
	var buf bytes.Buffer
	enc := ipc.NewFrameEncoder(&buf)
	for _, f := range frames {
		if err := enc.WriteFrame(f); err != nil {
			t.Fatalf("WriteFrame: %v", err)
		}
	}
	return &buf
}

func TestReadFrames(t *testing.T) {
	buf := encodeFrames(t,
		ipc.PlayerFrame{Type: ipc.PlayerType, Number: 1, Name: "Viper", ColorID: 0},
		ipc.PlayerFrame{Type: ipc.PlayerType, Number: 2, Name: "Hera", ColorID: 1},
		ipc.ChatFrame{Type: ipc.ChatType, PlayerNumber: 2, TimestampMs: 9000, Message: "gg"},
		ipc.ChatFrame{Type: ipc.ChatType, PlayerNumber: 1, TimestampMs: 1000, Message: "gl hf"},
		ipc.SummaryFrame{Type: ipc.SummaryType, DurationMs: 170000},
	)

	d, err := ReadFrames(buf)
	if err != nil {
		t.Fatalf("ReadFrames: %v", err)
	}
	if len(d.Players) != 2 || d.Players[1].Name != "Hera" {
		t.Errorf("players = %+v", d.Players)
	}
	// Source order is kept even when timestamps are not ascending.
	if len(d.Chat) != 2 || d.Chat[0].Message != "gg" || d.Chat[1].Message != "gl hf" {
		t.Errorf("chat = %+v", d.Chat)
	}
	if d.DurationMs != 170000 {
		t.Errorf("DurationMs = %d", d.DurationMs)
	}
}

func TestReadFrames_Failures(t *testing.T) {
	tests := []struct {
		name   string
		frames []any
		want   string
	}{
		{
			name:   "missing summary",
			frames: []any{ipc.PlayerFrame{Type: ipc.PlayerType, Number: 1}},
			want:   "without summary",
		},
		{
			name:   "error frame",
			frames: []any{ipc.ErrorFrame{Type: ipc.ErrorType, Message: "bad header"}},
			want:   "bad header",
		},
		{
			name:   "unknown frame",
			frames: []any{map[string]any{"type": "lobby"}},
			want:   "unknown frame type",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ReadFrames(encodeFrames(t, tt.frames...))
			if err == nil || !strings.Contains(err.Error(), tt.want) {
				t.Errorf("err = %v, want containing %q", err, tt.want)
			}
		})
	}
}

func TestReadFrames_Truncated(t *testing.T) {
	buf := encodeFrames(t, ipc.SummaryFrame{Type: ipc.SummaryType, DurationMs: 1})
	raw := buf.Bytes()[:buf.Len()-2]

	_, err := ReadFrames(bytes.NewReader(raw))
	if !ipc.IsFatalFrameError(err) {
		t.Errorf("err = %v, want fatal frame error", err)
	}
}

// TestHelperProcess is not a real test. It acts as a decoder process for
// the ProcessDecoder tests.
func TestHelperProcess(t *testing.T) {
	if os.Getenv("REPLAYCAST_HELPER_DECODER") != "1" {
		return
	}
	defer os.Exit(0)

	input, _ := io.ReadAll(os.Stdin)
	enc := ipc.NewFrameEncoder(os.Stdout)

	switch os.Getenv("REPLAYCAST_HELPER_MODE") {
	case "ok":
		_ = enc.WriteFrame(ipc.PlayerFrame{Type: ipc.PlayerType, Number: 1, Name: "Viper"})
		_ = enc.WriteFrame(ipc.ChatFrame{Type: ipc.ChatType, PlayerNumber: 1, Message: string(input)})
		_ = enc.WriteFrame(ipc.SummaryFrame{Type: ipc.SummaryType, DurationMs: int64(len(input))})
	case "crash":
		fmt.Fprint(os.Stderr, "mgz: unsupported version")
		os.Exit(3)
	case "hang":
		time.Sleep(time.Minute)
	}
}

func helperDecoder(t *testing.T, mode string, timeout time.Duration) *ProcessDecoder {
	t.Helper()
	t.Setenv("REPLAYCAST_HELPER_DECODER", "1")
	t.Setenv("REPLAYCAST_HELPER_MODE", mode)
	return &ProcessDecoder{
		Command: []string{os.Args[0], "-test.run=^TestHelperProcess$"},
		Timeout: timeout,
	}
}

func TestProcessDecoder_Success(t *testing.T) {
	d := helperDecoder(t, "ok", 0)

	got, err := d.Decode(t.Context(), []byte("hello"))
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	if len(got.Chat) != 1 || got.Chat[0].Message != "hello" {
		t.Errorf("chat = %+v, want stdin echoed", got.Chat)
	}
	if got.DurationMs != 5 {
		t.Errorf("DurationMs = %d, want 5", got.DurationMs)
	}
}

func TestProcessDecoder_NonZeroExit(t *testing.T) {
	d := helperDecoder(t, "crash", 0)

	_, err := d.Decode(t.Context(), []byte("x"))
	if err == nil {
		t.Fatal("expected error")
	}
	if !strings.Contains(err.Error(), "unsupported version") {
		t.Errorf("err = %v, want stderr in message", err)
	}
}

func TestProcessDecoder_Timeout(t *testing.T) {
	d := helperDecoder(t, "hang", 200*time.Millisecond)

	start := time.Now()
	_, err := d.Decode(t.Context(), []byte("x"))
	if err == nil {
		t.Fatal("expected timeout error")
	}
	if time.Since(start) > 30*time.Second {
		t.Errorf("Decode took %v", time.Since(start))
	}
}

func TestProcessDecoder_EmptyCommand(t *testing.T) {
	d := &ProcessDecoder{}
	if _, err := d.Decode(t.Context(), []byte("x")); err == nil {
		t.Error("expected error for empty command")
	}
}
