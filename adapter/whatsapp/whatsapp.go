// Package whatsapp delivers chat images to a WhatsApp group through
// WhatsApp Web, driven by a Chrome instance over the DevTools protocol.
//
// The browser profile directory holds the authenticated session; log in
// once with a headed browser and later runs reuse it. Each Deliver starts a
// fresh browser (or a fresh tab on an attached one) and always tears it down,
// whatever the outcome. Failures are returned as-is; nothing is retried here.
package whatsapp

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/chromedp/chromedp"

	"github.com/pithecene-io/replaycast/adapter"
	"github.com/pithecene-io/replaycast/log"
)

// Name is the channel name reported in delivery outcomes.
const Name = "whatsapp"

// WebURL is the WhatsApp Web entry point.
const WebURL = "https://web.whatsapp.com"

// Timeouts and pauses.
const (
	DefaultLoadTimeoutHeadless = 30 * time.Second
	DefaultLoadTimeoutHeaded   = 60 * time.Second
	DefaultStepTimeout         = 10 * time.Second
	DefaultSendTimeout         = 30 * time.Second
	DefaultSettle              = 2 * time.Second
	DefaultPreviewWait         = 10 * time.Second
)

// DefaultUserAgent is presented instead of the HeadlessChrome agent, which
// WhatsApp Web refuses.
const DefaultUserAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36"

// XPath selectors for the WhatsApp Web UI.
const (
	searchBoxXPath    = `//div[@contenteditable="true"][@data-tab="3"]`
	messageBoxXPath   = `//div[@contenteditable="true"][@data-tab="10"]`
	attachButtonXPath = `//span[@data-icon="plus-rounded"]`
	imageInputXPath   = `//input[@accept="image/*,video/mp4,video/3gpp,video/quicktime"]`
	sendButtonXPath   = `//div[@aria-label="Send"]`
)

// Config configures the WhatsApp adapter.
type Config struct {
	// Destination is the group or contact display name (required).
	// The first chat whose title contains it is used.
	Destination string
	// ProfileDir is the Chrome user-data dir holding the logged-in session.
	ProfileDir string
	// Headless runs Chrome without a window.
	Headless bool
	// RemoteURL attaches to a running browser's DevTools WebSocket instead
	// of launching one. ProfileDir, Headless and ChromePath are ignored.
	RemoteURL string
	// ChromePath overrides the Chrome executable lookup.
	ChromePath string
	// UserAgent overrides DefaultUserAgent.
	UserAgent string

	// LoadTimeout bounds the initial page load (default 30s headless, 60s headed).
	LoadTimeout time.Duration
	// StepTimeout bounds each UI step (default 10s).
	StepTimeout time.Duration
	// SendTimeout bounds waiting for the send button (default 30s).
	SendTimeout time.Duration
	// Settle is the pause after typing and clicking (default 2s).
	Settle time.Duration
	// PreviewWait is the pause for the attachment preview (default 10s).
	PreviewWait time.Duration
}

// Step is one stage of a delivery.
type Step struct {
	Name    string
	Timeout time.Duration
	Action  chromedp.Action
}

// Adapter sends artifacts through WhatsApp Web.
type Adapter struct {
	config Config
	logger *log.Logger
}

// New creates a WhatsApp adapter. logger may be nil.
func New(cfg Config, logger *log.Logger) (*Adapter, error) {
	if strings.TrimSpace(cfg.Destination) == "" {
		return nil, errors.New("whatsapp adapter requires a destination")
	}
	if cfg.RemoteURL == "" && cfg.ProfileDir == "" {
		return nil, errors.New("whatsapp adapter requires a profile dir or a remote browser URL")
	}
	if cfg.LoadTimeout <= 0 {
		cfg.LoadTimeout = DefaultLoadTimeoutHeaded
		if cfg.Headless {
			cfg.LoadTimeout = DefaultLoadTimeoutHeadless
		}
	}
	if cfg.StepTimeout <= 0 {
		cfg.StepTimeout = DefaultStepTimeout
	}
	if cfg.SendTimeout <= 0 {
		cfg.SendTimeout = DefaultSendTimeout
	}
	if cfg.Settle <= 0 {
		cfg.Settle = DefaultSettle
	}
	if cfg.PreviewWait <= 0 {
		cfg.PreviewWait = DefaultPreviewWait
	}
	if cfg.UserAgent == "" {
		cfg.UserAgent = DefaultUserAgent
	}
	if logger == nil {
		logger = log.NewNop()
	}
	return &Adapter{config: cfg, logger: logger}, nil
}

// Name returns the channel name.
func (a *Adapter) Name() string { return Name }

// Deliver opens the destination chat and sends the artifact image.
func (a *Adapter) Deliver(ctx context.Context, d *adapter.Delivery) error {
	image, err := filepath.Abs(d.Artifact.Path)
	if err != nil {
		return fmt.Errorf("whatsapp: resolve image path: %w", err)
	}
	if _, err := os.Stat(image); err != nil {
		return fmt.Errorf("whatsapp: %w", err)
	}

	allocCtx, cancelAlloc := a.allocator(ctx)
	defer cancelAlloc()

	browserCtx, cancelBrowser := chromedp.NewContext(allocCtx)
	defer cancelBrowser()

	// Start the browser on a context without a deadline; a timed-out step
	// context would otherwise take the browser down with it.
	if err := chromedp.Run(browserCtx); err != nil {
		return fmt.Errorf("whatsapp: start browser: %w", err)
	}

	for _, step := range a.Plan(image) {
		a.logger.Debug("whatsapp step", map[string]any{
			"step":    step.Name,
			"timeout": step.Timeout.String(),
		})

		stepCtx, cancel := context.WithTimeout(browserCtx, step.Timeout)
		err := chromedp.Run(stepCtx, step.Action)
		cancel()
		if err != nil {
			return fmt.Errorf("whatsapp: %s: %w", step.Name, err)
		}
	}

	a.logger.Info("whatsapp image sent", map[string]any{
		"destination": a.config.Destination,
		"image":       d.Artifact.Name,
	})
	return nil
}

// allocator returns a context that launches or attaches to Chrome.
func (a *Adapter) allocator(ctx context.Context) (context.Context, context.CancelFunc) {
	if a.config.RemoteURL != "" {
		return chromedp.NewRemoteAllocator(ctx, a.config.RemoteURL)
	}
	return chromedp.NewExecAllocator(ctx, a.execOptions()...)
}

func (a *Adapter) execOptions() []chromedp.ExecAllocatorOption {
	opts := append(chromedp.DefaultExecAllocatorOptions[:],
		chromedp.UserDataDir(a.config.ProfileDir),
		chromedp.NoSandbox,
		chromedp.DisableGPU,
		chromedp.WindowSize(1920, 1080),
		chromedp.UserAgent(a.config.UserAgent),
		chromedp.Flag("disable-dev-shm-usage", true),
		chromedp.Flag("disable-blink-features", "AutomationControlled"),
		chromedp.Flag("disable-accelerated-video-decode", true),
	)
	if a.config.Headless {
		opts = append(opts, chromedp.Flag("headless", "new"))
	} else {
		opts = append(opts, chromedp.Flag("headless", false))
	}
	if a.config.ChromePath != "" {
		opts = append(opts, chromedp.ExecPath(a.config.ChromePath))
	}
	return opts
}

// Plan lists the UI steps that send image to the destination.
func (a *Adapter) Plan(image string) []Step {
	cfg := a.config
	chat := chatXPath(cfg.Destination)

	return []Step{
		{
			Name:    "load",
			Timeout: cfg.LoadTimeout,
			Action: chromedp.Tasks{
				chromedp.Navigate(WebURL),
				chromedp.WaitVisible(searchBoxXPath, chromedp.BySearch),
			},
		},
		{
			Name:    "search",
			Timeout: cfg.StepTimeout,
			Action: chromedp.Tasks{
				chromedp.Click(searchBoxXPath, chromedp.BySearch),
				chromedp.SendKeys(searchBoxXPath, cfg.Destination, chromedp.BySearch),
				chromedp.Sleep(cfg.Settle),
			},
		},
		{
			Name:    "open chat",
			Timeout: cfg.StepTimeout,
			Action: chromedp.Tasks{
				chromedp.Click(chat, chromedp.BySearch, chromedp.NodeVisible),
				chromedp.Sleep(cfg.Settle),
			},
		},
		{
			Name:    "message box",
			Timeout: cfg.StepTimeout,
			Action:  chromedp.WaitVisible(messageBoxXPath, chromedp.BySearch),
		},
		{
			Name:    "attach",
			Timeout: cfg.StepTimeout,
			Action:  chromedp.Click(attachButtonXPath, chromedp.BySearch, chromedp.NodeVisible),
		},
		{
			Name:    "upload",
			Timeout: cfg.StepTimeout + cfg.PreviewWait,
			Action: chromedp.Tasks{
				chromedp.SetUploadFiles(imageInputXPath, []string{image}, chromedp.BySearch),
				chromedp.Sleep(cfg.PreviewWait),
			},
		},
		{
			Name:    "send",
			Timeout: cfg.SendTimeout + cfg.Settle,
			Action: chromedp.Tasks{
				chromedp.Click(sendButtonXPath, chromedp.BySearch, chromedp.NodeVisible),
				chromedp.Sleep(cfg.Settle),
			},
		},
	}
}

// Close is a no-op; browsers live only for the duration of Deliver.
func (a *Adapter) Close() error { return nil }

// chatXPath selects a chat entry whose title contains name.
func chatXPath(name string) string {
	return fmt.Sprintf(`//span[contains(@title, %s)]`, xpathLiteral(name))
}

// xpathLiteral quotes s as an XPath 1.0 string literal. XPath has no escape
// sequences, so strings holding both quote kinds are built with concat().
func xpathLiteral(s string) string {
	if !strings.Contains(s, `"`) {
		return `"` + s + `"`
	}
	if !strings.Contains(s, `'`) {
		return `'` + s + `'`
	}

	parts := strings.Split(s, `"`)
	args := make([]string, 0, 2*len(parts)-1)
	for i, p := range parts {
		if i > 0 {
			args = append(args, `'"'`)
		}
		if p != "" {
			args = append(args, `"`+p+`"`)
		}
	}
	return "concat(" + strings.Join(args, ", ") + ")"
}

// Verify Adapter implements the adapter interface.
var _ adapter.Adapter = (*Adapter)(nil)
