package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func TestLoad_FullConfig(t *testing.T) {
	yaml := `log_level: debug

watch:
  dir: /replays
  extension: .aoe2record
  debounce: 10s
  stabilize_interval: 1s
  stabilize_timeout: 5m
  day_start_hour: 6

parser:
  python: /usr/bin/python3.12
  attempts: 3
  backoff: 2s
  timeout: 30s

render:
  output_dir: /srv/chat
  format: png
  font_size: 24
  padding: 16
  quality: 90

delivery:
  whatsapp:
    enabled: true
    destination: Gandhicide
    profile_dir: /srv/wa
    headless: false
    step_timeout: 15s
  telegram:
    token: 123:abc
    chat_id: -1001
  webhook:
    url: https://hooks.example.com/replays
    headers:
      Authorization: Bearer token123
    timeout: 10s
    retries: 3
  redis:
    url: redis://localhost:6379/0
    channel: games
    history_key: games:recent
    history_limit: 20

archive:
  backend: s3
  dataset: replaycast
  path: my-bucket/prefix
  region: us-east-1
  endpoint: https://example.com
  s3_path_style: true

metrics:
  addr: ":9090"

tracing:
  endpoint: localhost:4317
  insecure: true
`
	cfg, err := Load(writeTemp(t, yaml))
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if err := cfg.Validate(); err != nil {
		t.Fatalf("Validate: %v", err)
	}

	assertEqual(t, "log_level", cfg.LogLevel, "debug")

	// Watch
	assertEqual(t, "watch.dir", cfg.Watch.Dir, "/replays")
	if cfg.Watch.Debounce.Duration != 10*time.Second {
		t.Errorf("watch.debounce = %v", cfg.Watch.Debounce.Duration)
	}
	if cfg.Watch.StabilizeTimeout.Duration != 5*time.Minute {
		t.Errorf("watch.stabilize_timeout = %v", cfg.Watch.StabilizeTimeout.Duration)
	}
	if cfg.Watch.DayStartHour != 6 {
		t.Errorf("watch.day_start_hour = %d", cfg.Watch.DayStartHour)
	}
	assertEqual(t, "watch.base_dir (default kept)", cfg.Watch.BaseDir, "~/Games/Age of Empires 2 DE")

	// Parser
	assertEqual(t, "parser.python", cfg.Parser.Python, "/usr/bin/python3.12")
	if cfg.Parser.Attempts != 3 || cfg.Parser.Backoff.Duration != 2*time.Second {
		t.Errorf("parser = %+v", cfg.Parser)
	}

	// Render
	assertEqual(t, "render.format", cfg.Render.Format, "png")
	if cfg.Render.FontSize != 24 || cfg.Render.Padding != 16 || cfg.Render.Quality != 90 {
		t.Errorf("render = %+v", cfg.Render)
	}

	// Delivery
	wa := cfg.Delivery.WhatsApp
	assertEqual(t, "whatsapp.destination", wa.Destination, "Gandhicide")
	if wa.Headless {
		t.Error("expected whatsapp.headless=false")
	}
	if wa.StepTimeout.Duration != 15*time.Second {
		t.Errorf("whatsapp.step_timeout = %v", wa.StepTimeout.Duration)
	}
	if cfg.Delivery.Telegram.ChatID != -1001 {
		t.Errorf("telegram.chat_id = %d", cfg.Delivery.Telegram.ChatID)
	}
	wh := cfg.Delivery.Webhook
	if wh.Retries == nil || *wh.Retries != 3 {
		t.Error("expected webhook.retries=3")
	}
	if wh.Headers["Authorization"] != "Bearer token123" {
		t.Error("expected Authorization header")
	}
	assertEqual(t, "redis.history_key", cfg.Delivery.Redis.HistoryKey, "games:recent")
	if cfg.Delivery.Redis.HistoryLimit != 20 {
		t.Errorf("redis.history_limit = %d", cfg.Delivery.Redis.HistoryLimit)
	}

	// Archive
	assertEqual(t, "archive.backend", cfg.Archive.Backend, "s3")
	assertEqual(t, "archive.path", cfg.Archive.Path, "my-bucket/prefix")
	if !cfg.Archive.S3PathStyle {
		t.Error("expected archive.s3_path_style=true")
	}

	assertEqual(t, "metrics.addr", cfg.Metrics.Addr, ":9090")
	assertEqual(t, "tracing.endpoint", cfg.Tracing.Endpoint, "localhost:4317")
}

func TestLoad_EmptyConfigKeepsDefaults(t *testing.T) {
	for _, content := range []string{"", "   \n  \n  \n", "# only comments\n# here\n"} {
		cfg, err := Load(writeTemp(t, content))
		if err != nil {
			t.Fatalf("Load(%q) failed: %v", content, err)
		}
		if cfg.Watch.Debounce.Duration != 30*time.Second {
			t.Errorf("debounce = %v, want 30s", cfg.Watch.Debounce.Duration)
		}
		if cfg.Watch.StabilizeInterval.Duration != 2*time.Second {
			t.Errorf("stabilize_interval = %v, want 2s", cfg.Watch.StabilizeInterval.Duration)
		}
		if cfg.Parser.Attempts != 10 || cfg.Parser.Backoff.Duration != 5*time.Second {
			t.Errorf("parser = %+v", cfg.Parser)
		}
		if cfg.Watch.DayStartHour != 7 || cfg.Render.Format != "jpeg" || cfg.Render.Quality != 95 {
			t.Errorf("defaults not applied: %+v", cfg)
		}
		if !cfg.Delivery.WhatsApp.Enabled || !cfg.Delivery.WhatsApp.Headless {
			t.Errorf("whatsapp defaults = %+v", cfg.Delivery.WhatsApp)
		}
	}
}

func TestLoad_FileNotFound(t *testing.T) {
	_, err := Load("/nonexistent/replaycast.yaml")
	if err == nil || !strings.Contains(err.Error(), "not found") {
		t.Fatalf("err = %v, want not found", err)
	}
}

func TestLoad_InvalidYAML(t *testing.T) {
	if _, err := Load(writeTemp(t, "{{invalid yaml")); err == nil {
		t.Fatal("expected error for invalid YAML")
	}
}

func TestLoad_UnknownKeyRejected(t *testing.T) {
	tests := []string{
		"watch_dir: /replays\n",
		"watch:\n  directory: /replays\n",
	}
	for _, content := range tests {
		if _, err := Load(writeTemp(t, content)); err == nil {
			t.Errorf("Load(%q) accepted an unknown key", content)
		}
	}
}

func TestLoad_EnvExpansion(t *testing.T) {
	t.Setenv("RC_DESTINATION", "Team Chat")

	cfg, err := Load(writeTemp(t, "delivery:\n  whatsapp:\n    destination: ${RC_DESTINATION}\n"))
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	assertEqual(t, "destination", cfg.Delivery.WhatsApp.Destination, "Team Chat")
}

func TestLoad_RetriesZeroDistinctFromNil(t *testing.T) {
	cfg, err := Load(writeTemp(t, "delivery:\n  webhook:\n    url: http://x\n    retries: 0\n"))
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if cfg.Delivery.Webhook.Retries == nil || *cfg.Delivery.Webhook.Retries != 0 {
		t.Error("explicit retries: 0 should be a non-nil zero")
	}

	cfg, err = Load(writeTemp(t, "delivery:\n  webhook:\n    url: http://x\n"))
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if cfg.Delivery.Webhook.Retries != nil {
		t.Error("omitted retries should be nil")
	}
}

func TestDuration_UnmarshalYAML(t *testing.T) {
	tests := []struct {
		in      string
		want    time.Duration
		wantErr bool
	}{
		{`"1m30s"`, 90 * time.Second, false},
		{`""`, 0, false},
		{`"soon"`, 0, true},
	}
	for _, tt := range tests {
		cfg, err := Parse([]byte("parser:\n  backoff: "+tt.in+"\n"), "test")
		if tt.wantErr {
			if err == nil {
				t.Errorf("backoff %s: expected error", tt.in)
			}
			continue
		}
		if err != nil {
			t.Fatalf("backoff %s: %v", tt.in, err)
		}
		// An empty string leaves the default in place.
		want := tt.want
		if want == 0 {
			want = 5 * time.Second
		}
		if cfg.Parser.Backoff.Duration != want {
			t.Errorf("backoff %s = %v, want %v", tt.in, cfg.Parser.Backoff.Duration, want)
		}
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{"defaults need a destination", func(*Config) {}, "destination is required"},
		{"whatsapp disabled", func(c *Config) { c.Delivery.WhatsApp.Enabled = false }, ""},
		{"whatsapp configured", func(c *Config) { c.Delivery.WhatsApp.Destination = "Gandhicide" }, ""},
		{"whatsapp remote only", func(c *Config) {
			c.Delivery.WhatsApp.Destination = "Gandhicide"
			c.Delivery.WhatsApp.ProfileDir = ""
			c.Delivery.WhatsApp.RemoteURL = "ws://127.0.0.1:9222/devtools/browser/x"
		}, ""},
		{"whatsapp no session", func(c *Config) {
			c.Delivery.WhatsApp.Destination = "Gandhicide"
			c.Delivery.WhatsApp.ProfileDir = ""
		}, "profile_dir or remote_url"},
		{"bad format", func(c *Config) {
			c.Delivery.WhatsApp.Enabled = false
			c.Render.Format = "gif"
		}, "render.format"},
		{"bad hour", func(c *Config) {
			c.Delivery.WhatsApp.Enabled = false
			c.Watch.DayStartHour = 24
		}, "day_start_hour"},
		{"zero attempts", func(c *Config) {
			c.Delivery.WhatsApp.Enabled = false
			c.Parser.Attempts = 0
		}, "parser.attempts"},
		{"telegram without chat", func(c *Config) {
			c.Delivery.WhatsApp.Enabled = false
			c.Delivery.Telegram.Token = "123:abc"
		}, "chat_id"},
		{"archive without path", func(c *Config) {
			c.Delivery.WhatsApp.Enabled = false
			c.Archive.Backend = "fs"
		}, "archive.path"},
		{"archive unknown backend", func(c *Config) {
			c.Delivery.WhatsApp.Enabled = false
			c.Archive.Backend = "gcs"
			c.Archive.Path = "x"
		}, "archive.backend"},
		{"no watch location", func(c *Config) {
			c.Delivery.WhatsApp.Enabled = false
			c.Watch.BaseDir = ""
		}, "watch.dir"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(cfg)
			err := cfg.Validate()
			if tt.wantErr == "" {
				if err != nil {
					t.Errorf("Validate: %v", err)
				}
				return
			}
			if err == nil || !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("Validate = %v, want error containing %q", err, tt.wantErr)
			}
		})
	}
}

func writeTemp(t *testing.T, content string) string {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, "replaycast.yaml")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("failed to write temp file: %v", err)
	}
	return path
}

func assertEqual(t *testing.T, field, got, want string) {
	t.Helper()
	if got != want {
		t.Errorf("%s: got %q, want %q", field, got, want)
	}
}
