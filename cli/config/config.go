package config

import (
	"errors"
	"fmt"
	"time"
)

// Config represents a replaycast.yaml configuration file.
// Values not present in the file keep the defaults from Default().
// CLI flags always override config values.
type Config struct {
	LogLevel string         `yaml:"log_level"`
	Watch    WatchConfig    `yaml:"watch"`
	Parser   ParserConfig   `yaml:"parser"`
	Render   RenderConfig   `yaml:"render"`
	Delivery DeliveryConfig `yaml:"delivery"`
	Archive  ArchiveConfig  `yaml:"archive"`
	Metrics  MetricsConfig  `yaml:"metrics"`
	Tracing  TracingConfig  `yaml:"tracing"`
}

// WatchConfig locates the replay directory and tunes arrival handling.
type WatchConfig struct {
	// Dir is the replay directory. Empty auto-detects it under BaseDir.
	Dir string `yaml:"dir"`
	// BaseDir holds numeric profile directories, each with a savegame folder.
	BaseDir string `yaml:"base_dir"`
	// ProfileID pins the profile used for auto-detection.
	ProfileID         string   `yaml:"profile_id"`
	Extension         string   `yaml:"extension"`
	Debounce          Duration `yaml:"debounce"`
	StabilizeInterval Duration `yaml:"stabilize_interval"`
	// StabilizeTimeout bounds the size polling. Zero waits indefinitely.
	StabilizeTimeout Duration `yaml:"stabilize_timeout"`
	// DayStartHour is the local hour a game day starts at.
	DayStartHour int `yaml:"day_start_hour"`
}

// ParserConfig configures the replay decoder.
type ParserConfig struct {
	// Python is the interpreter for the embedded helper.
	Python string `yaml:"python"`
	// Command replaces the embedded helper entirely when set.
	Command  []string `yaml:"command,omitempty"`
	Attempts int      `yaml:"attempts"`
	Backoff  Duration `yaml:"backoff"`
	Timeout  Duration `yaml:"timeout"`
}

// RenderConfig configures the chat image.
type RenderConfig struct {
	OutputDir string  `yaml:"output_dir"`
	Format    string  `yaml:"format"`
	FontSize  float64 `yaml:"font_size"`
	Padding   int     `yaml:"padding"`
	Quality   int     `yaml:"quality"`
}

// DeliveryConfig lists the delivery channels. Channels run in the order
// whatsapp, telegram, webhook, redis; each is off unless configured.
type DeliveryConfig struct {
	WhatsApp WhatsAppConfig `yaml:"whatsapp"`
	Telegram TelegramConfig `yaml:"telegram"`
	Webhook  WebhookConfig  `yaml:"webhook"`
	Redis    RedisConfig    `yaml:"redis"`
}

// WhatsAppConfig configures WhatsApp Web delivery.
type WhatsAppConfig struct {
	Enabled     bool     `yaml:"enabled"`
	Destination string   `yaml:"destination"`
	ProfileDir  string   `yaml:"profile_dir"`
	Headless    bool     `yaml:"headless"`
	RemoteURL   string   `yaml:"remote_url"`
	ChromePath  string   `yaml:"chrome_path"`
	UserAgent   string   `yaml:"user_agent"`
	LoadTimeout Duration `yaml:"load_timeout"`
	StepTimeout Duration `yaml:"step_timeout"`
	SendTimeout Duration `yaml:"send_timeout"`
}

// TelegramConfig configures Telegram delivery. Empty Token disables it.
type TelegramConfig struct {
	Token   string   `yaml:"token"`
	ChatID  int64    `yaml:"chat_id"`
	Timeout Duration `yaml:"timeout"`
}

// WebhookConfig configures the webhook notification. Empty URL disables it.
type WebhookConfig struct {
	URL     string            `yaml:"url"`
	Headers map[string]string `yaml:"headers,omitempty"`
	Timeout Duration          `yaml:"timeout,omitempty"`
	Retries *int              `yaml:"retries,omitempty"`
}

// RedisConfig configures the redis notification. Empty URL disables it.
type RedisConfig struct {
	URL          string   `yaml:"url"`
	Channel      string   `yaml:"channel,omitempty"`
	HistoryKey   string   `yaml:"history_key,omitempty"`
	HistoryLimit int      `yaml:"history_limit,omitempty"`
	Timeout      Duration `yaml:"timeout,omitempty"`
	Retries      *int     `yaml:"retries,omitempty"`
}

// ArchiveConfig configures the optional artifact archive.
type ArchiveConfig struct {
	// Backend is "" (disabled), "fs" or "s3".
	Backend string `yaml:"backend"`
	Dataset string `yaml:"dataset"`
	// Path is the fs root, or "bucket/prefix" for s3.
	Path        string `yaml:"path"`
	Region      string `yaml:"region"`
	Endpoint    string `yaml:"endpoint"`
	S3PathStyle bool   `yaml:"s3_path_style"`
}

// MetricsConfig configures the Prometheus endpoint. Empty Addr disables it.
type MetricsConfig struct {
	Addr string `yaml:"addr"`
}

// TracingConfig configures OTLP tracing. Empty Endpoint defers to
// OTEL_EXPORTER_OTLP_ENDPOINT.
type TracingConfig struct {
	Endpoint string `yaml:"endpoint"`
	Insecure bool   `yaml:"insecure"`
}

// Default returns the configuration used when no file is given.
func Default() *Config {
	return &Config{
		LogLevel: "info",
		Watch: WatchConfig{
			BaseDir:           "~/Games/Age of Empires 2 DE",
			Extension:         ".aoe2record",
			Debounce:          Duration{30 * time.Second},
			StabilizeInterval: Duration{2 * time.Second},
			DayStartHour:      7,
		},
		Parser: ParserConfig{
			Python:   "python3",
			Attempts: 10,
			Backoff:  Duration{5 * time.Second},
			Timeout:  Duration{60 * time.Second},
		},
		Render: RenderConfig{
			OutputDir: "chat_logs",
			Format:    "jpeg",
			FontSize:  20,
			Padding:   20,
			Quality:   95,
		},
		Delivery: DeliveryConfig{
			WhatsApp: WhatsAppConfig{
				Enabled:    true,
				ProfileDir: "whatsapp_session",
				Headless:   true,
			},
		},
		Archive: ArchiveConfig{
			Dataset: "replaycast",
		},
	}
}

// Validate checks cross-field constraints that YAML decoding cannot.
func (c *Config) Validate() error {
	var errs []error

	if c.Watch.Dir == "" && c.Watch.BaseDir == "" {
		errs = append(errs, errors.New("watch.dir or watch.base_dir is required"))
	}
	if c.Watch.Debounce.Duration < 0 {
		errs = append(errs, errors.New("watch.debounce must not be negative"))
	}
	if c.Watch.DayStartHour < 1 || c.Watch.DayStartHour > 23 {
		errs = append(errs, fmt.Errorf("watch.day_start_hour %d out of range 1-23", c.Watch.DayStartHour))
	}
	if c.Parser.Attempts < 1 {
		errs = append(errs, errors.New("parser.attempts must be at least 1"))
	}
	if c.Render.OutputDir == "" {
		errs = append(errs, errors.New("render.output_dir is required"))
	}
	switch c.Render.Format {
	case "jpeg", "png":
	default:
		errs = append(errs, fmt.Errorf("render.format %q must be jpeg or png", c.Render.Format))
	}

	wa := c.Delivery.WhatsApp
	if wa.Enabled {
		if wa.Destination == "" {
			errs = append(errs, errors.New("delivery.whatsapp.destination is required when whatsapp is enabled"))
		}
		if wa.ProfileDir == "" && wa.RemoteURL == "" {
			errs = append(errs, errors.New("delivery.whatsapp needs profile_dir or remote_url"))
		}
	}
	if c.Delivery.Telegram.Token != "" && c.Delivery.Telegram.ChatID == 0 {
		errs = append(errs, errors.New("delivery.telegram.chat_id is required with a token"))
	}

	switch c.Archive.Backend {
	case "":
	case "fs", "s3":
		if c.Archive.Path == "" {
			errs = append(errs, fmt.Errorf("archive.path is required for the %s backend", c.Archive.Backend))
		}
	default:
		errs = append(errs, fmt.Errorf("archive.backend %q must be fs or s3", c.Archive.Backend))
	}

	return errors.Join(errs...)
}

// Duration wraps time.Duration for YAML string parsing (e.g. "10s", "5m").
type Duration struct {
	time.Duration
}

// UnmarshalYAML parses a duration string like "10s" or "5m30s".
func (d *Duration) UnmarshalYAML(unmarshal func(any) error) error {
	var s string
	if err := unmarshal(&s); err != nil {
		return err
	}
	if s == "" {
		return nil
	}
	parsed, err := time.ParseDuration(s)
	if err != nil {
		return fmt.Errorf("invalid duration %q: %w", s, err)
	}
	d.Duration = parsed
	return nil
}

// MarshalYAML renders the duration in time.Duration string form.
func (d Duration) MarshalYAML() (any, error) {
	return d.Duration.String(), nil
}
