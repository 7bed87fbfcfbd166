package browser

import (
	"context"
	"fmt"
	"time"

	"github.com/chromedp/chromedp"
	"github.com/rs/zerolog"
)

// DefaultOpTimeout bounds every single remote interaction.
const DefaultOpTimeout = 30 * time.Second

// Options configures ChromeLauncher.
type Options struct {
	Headless     bool
	OpTimeout    time.Duration
	WindowWidth  int
	WindowHeight int
	UserAgent    string
	Log          zerolog.Logger
}

// ChromeLauncher starts one Chrome instance per Launch call. Sessions never share a
// browser process, so parallel workers cannot alias each other's navigation state.
type ChromeLauncher struct {
	opts Options
}

// NewChromeLauncher creates a launcher, filling unset options with defaults.
func NewChromeLauncher(opts Options) *ChromeLauncher {
	if opts.OpTimeout <= 0 {
		opts.OpTimeout = DefaultOpTimeout
	}
	if opts.WindowWidth <= 0 || opts.WindowHeight <= 0 {
		opts.WindowWidth, opts.WindowHeight = 1440, 1000
	}
	return &ChromeLauncher{opts: opts}
}

// Launch starts Chrome and returns its first tab. Requires Chrome/Chromium on the system.
func (l *ChromeLauncher) Launch(ctx context.Context) (Window, func(), error) {
	log := l.opts.Log.With().Str("component", "browser").Logger()

	allocOpts := append(chromedp.DefaultExecAllocatorOptions[:],
		chromedp.Flag("headless", l.opts.Headless),
		chromedp.Flag("disable-gpu", true),
		chromedp.Flag("no-sandbox", true),
		chromedp.Flag("disable-dev-shm-usage", true),
		chromedp.Flag("disable-popup-blocking", true),
		chromedp.WindowSize(l.opts.WindowWidth, l.opts.WindowHeight),
	)
	if l.opts.UserAgent != "" {
		allocOpts = append(allocOpts, chromedp.UserAgent(l.opts.UserAgent))
	}

	allocCtx, cancelAlloc := chromedp.NewExecAllocator(ctx, allocOpts...)
	browserCtx, cancelBrowser := chromedp.NewContext(allocCtx,
		chromedp.WithLogf(func(format string, args ...any) {
			log.Debug().Msgf(format, args...)
		}),
		chromedp.WithErrorf(func(format string, args ...any) {
			log.Warn().Msgf(format, args...)
		}),
	)
	release := func() {
		cancelBrowser()
		cancelAlloc()
	}

	// First Run starts the browser process.
	if err := chromedp.Run(browserCtx); err != nil {
		release()
		return nil, nil, fmt.Errorf("failed to start browser: %w", err)
	}

	log.Debug().Bool("headless", l.opts.Headless).Msg("browser started")
	return newTab(browserCtx, cancelBrowser, l.opts.OpTimeout, log), release, nil
}
