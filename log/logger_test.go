package log

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"

	"go.uber.org/zap/zapcore"
)

func TestLogger_SessionFields(t *testing.T) {
	var buf bytes.Buffer
	l := newLoggerWithWriter(Session{ID: "sess-1", WatchDir: "/replays"}, &buf, zapcore.DebugLevel)

	l.Info("replay spotted", map[string]any{"path": "/replays/a.aoe2record"})

	var entry map[string]any
	if err := json.Unmarshal(buf.Bytes(), &entry); err != nil {
		t.Fatalf("unmarshal: %v (%s)", err, buf.String())
	}
	if entry["session_id"] != "sess-1" {
		t.Errorf("session_id = %v, want sess-1", entry["session_id"])
	}
	if entry["watch_dir"] != "/replays" {
		t.Errorf("watch_dir = %v, want /replays", entry["watch_dir"])
	}
	if entry["message"] != "replay spotted" {
		t.Errorf("message = %v", entry["message"])
	}
	fields, ok := entry["fields"].(map[string]any)
	if !ok || fields["path"] != "/replays/a.aoe2record" {
		t.Errorf("fields = %v", entry["fields"])
	}
}

func TestLogger_LevelFilter(t *testing.T) {
	var buf bytes.Buffer
	l := newLoggerWithWriter(Session{ID: "s"}, &buf, zapcore.WarnLevel)

	l.Info("dropped", nil)
	l.Warn("kept", nil)

	out := buf.String()
	if strings.Contains(out, "dropped") {
		t.Error("info entry should be filtered at warn level")
	}
	if !strings.Contains(out, "kept") {
		t.Error("warn entry missing")
	}
}

func TestNewLoggerWithLevel_Invalid(t *testing.T) {
	if _, err := NewLoggerWithLevel(Session{}, "loud"); err == nil {
		t.Error("expected error for unknown level")
	}
}

func TestLogger_WithOutput(t *testing.T) {
	var buf bytes.Buffer
	l := NewNop().WithOutput(&buf)
	l.Sugar().Infof("rendered %d lines", 3)

	if !strings.Contains(buf.String(), "rendered 3 lines") {
		t.Errorf("output = %q", buf.String())
	}
}
