// Package telegram sends chat images to a Telegram chat through a bot.
package telegram

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"github.com/pithecene-io/replaycast/adapter"
)

// Name is the channel name reported in delivery outcomes.
const Name = "telegram"

// DefaultTimeout bounds each Bot API request, uploads included.
const DefaultTimeout = 30 * time.Second

// Config configures the Telegram adapter.
type Config struct {
	// Token is the bot token (required).
	Token string
	// ChatID is the destination chat (required).
	ChatID int64
	// Endpoint overrides the Bot API URL pattern (default tgbotapi.APIEndpoint).
	Endpoint string
	// Timeout is the per-request timeout (default 30s).
	Timeout time.Duration
}

// Adapter sends artifacts as photos.
type Adapter struct {
	config Config
	client *http.Client

	// The bot is created on first use: construction calls getMe, and a
	// Telegram outage should not stop the watcher from starting.
	mu  sync.Mutex
	bot *tgbotapi.BotAPI
}

// New creates a Telegram adapter.
func New(cfg Config) (*Adapter, error) {
	if cfg.Token == "" {
		return nil, errors.New("telegram adapter requires a bot token")
	}
	if cfg.ChatID == 0 {
		return nil, errors.New("telegram adapter requires a chat id")
	}
	if cfg.Endpoint == "" {
		cfg.Endpoint = tgbotapi.APIEndpoint
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultTimeout
	}
	return &Adapter{
		config: cfg,
		client: &http.Client{Timeout: cfg.Timeout},
	}, nil
}

// Name returns the channel name.
func (a *Adapter) Name() string { return Name }

// Deliver uploads the artifact with the caption, falling back to the file
// name when the delivery has none.
func (a *Adapter) Deliver(ctx context.Context, d *adapter.Delivery) error {
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("telegram: %w", err)
	}

	bot, err := a.botAPI()
	if err != nil {
		return err
	}

	photo := tgbotapi.NewPhoto(a.config.ChatID, tgbotapi.FilePath(d.Artifact.Path))
	photo.Caption = d.Caption
	if photo.Caption == "" {
		photo.Caption = d.Artifact.Name
	}

	if _, err := bot.Send(photo); err != nil {
		return fmt.Errorf("telegram: send photo: %w", err)
	}
	return nil
}

func (a *Adapter) botAPI() (*tgbotapi.BotAPI, error) {
	a.mu.Lock()
	defer a.mu.Unlock()

	if a.bot != nil {
		return a.bot, nil
	}
	bot, err := tgbotapi.NewBotAPIWithClient(a.config.Token, a.config.Endpoint, a.client)
	if err != nil {
		return nil, fmt.Errorf("telegram: connect bot: %w", err)
	}
	a.bot = bot
	return bot, nil
}

// Close releases adapter resources.
func (a *Adapter) Close() error {
	a.client.CloseIdleConnections()
	return nil
}

// Verify Adapter implements the adapter interface.
var _ adapter.Adapter = (*Adapter)(nil)
