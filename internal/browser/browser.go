// Package browser drives a headless Chrome instance over the DevTools
// protocol. It owns process lifecycle (launch, idempotent close) and exposes
// the page-level primitives the portal engine is built on: navigation,
// bounded waits, text-targeted clicks, typed input, and page snapshots.
package browser

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/chromedp/chromedp"

	"github.com/nulljosh/claimcheck/internal/logger"
)

// Config controls how the Chrome process is launched.
type Config struct {
	// ExecPath is the Chrome binary to launch. Empty means discover one
	// via FindChromePath.
	ExecPath string

	// Headless runs Chrome without a visible window. On by default;
	// turning it off is only useful for local debugging.
	Headless bool

	// Constrained enables the reduced-footprint flag set for memory-limited
	// hosts (single process model, no shared memory, no GPU).
	Constrained bool

	// UserAgent overrides the browser user agent when non-empty.
	UserAgent string

	// UserDataDir is the Chrome profile directory. Empty means a throwaway
	// temp profile.
	UserDataDir string

	// WindowWidth and WindowHeight set the viewport. Zero values fall back
	// to 1280x900, which is wide enough that the portal does not switch to
	// its mobile layout.
	WindowWidth  int
	WindowHeight int

	// LaunchTimeout bounds how long we wait for the browser to come up.
	LaunchTimeout time.Duration
}

// DefaultConfig returns the launch configuration used by the CLI.
func DefaultConfig() Config {
	return Config{
		Headless:      true,
		WindowWidth:   1280,
		WindowHeight:  900,
		LaunchTimeout: 30 * time.Second,
	}
}

// Session is a running browser process with a single attached tab.
// Close is safe to call multiple times and from deferred paths; the
// underlying process is torn down exactly once.
type Session struct {
	tab *Tab

	cancelTab   context.CancelFunc
	cancelAlloc context.CancelFunc
	closeOnce   sync.Once
}

// Launch starts a Chrome process and attaches a tab to it. The supplied
// context bounds the launch only; the session outlives it and is torn down
// by Close.
func Launch(ctx context.Context, cfg Config) (*Session, error) {
	execPath := cfg.ExecPath
	if execPath == "" {
		execPath = FindChromePath(cfg.Constrained)
		if execPath == "" {
			return nil, fmt.Errorf("no Chrome binary found; install Chrome or set browser.exec_path")
		}
	}

	width := cfg.WindowWidth
	height := cfg.WindowHeight
	if width <= 0 {
		width = 1280
	}
	if height <= 0 {
		height = 900
	}

	opts := append([]chromedp.ExecAllocatorOption{}, chromedp.DefaultExecAllocatorOptions[:]...)
	opts = append(opts,
		chromedp.ExecPath(execPath),
		chromedp.Flag("headless", cfg.Headless),
		chromedp.Flag("disable-gpu", true),
		chromedp.Flag("disable-dev-shm-usage", true),
		chromedp.Flag("no-first-run", true),
		chromedp.Flag("no-default-browser-check", true),
		chromedp.WindowSize(width, height),
	)
	if cfg.Constrained {
		// Flag set for memory-limited serverless hosts.
		opts = append(opts,
			chromedp.Flag("no-sandbox", true),
			chromedp.Flag("no-zygote", true),
			chromedp.Flag("single-process", true),
			chromedp.Flag("disable-setuid-sandbox", true),
			chromedp.Flag("disable-accelerated-2d-canvas", true),
		)
	}
	if cfg.UserAgent != "" {
		opts = append(opts, chromedp.UserAgent(cfg.UserAgent))
	}
	if cfg.UserDataDir != "" {
		opts = append(opts, chromedp.UserDataDir(cfg.UserDataDir))
	}

	allocCtx, cancelAlloc := chromedp.NewExecAllocator(context.Background(), opts...)
	tabCtx, cancelTab := chromedp.NewContext(allocCtx, chromedp.WithLogf(func(format string, args ...any) {
		logger.Debug("chromedp: " + fmt.Sprintf(format, args...))
	}))

	launchTimeout := cfg.LaunchTimeout
	if launchTimeout <= 0 {
		launchTimeout = 30 * time.Second
	}

	// Force the browser process to start now so launch failures surface
	// here rather than on the first navigation.
	startCtx, cancel := context.WithTimeout(tabCtx, launchTimeout)
	defer cancel()
	if err := chromedp.Run(startCtx); err != nil {
		cancelTab()
		cancelAlloc()
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, ctxErr
		}
		return nil, fmt.Errorf("launching browser: %w", err)
	}

	logger.Debug("browser launched",
		"exec_path", execPath,
		"headless", cfg.Headless,
		"constrained", cfg.Constrained)

	return &Session{
		tab:         &Tab{ctx: tabCtx},
		cancelTab:   cancelTab,
		cancelAlloc: cancelAlloc,
	}, nil
}

// Tab returns the session's attached tab.
func (s *Session) Tab() *Tab {
	return s.tab
}

// Close tears down the browser process. Subsequent calls are no-ops.
func (s *Session) Close() error {
	s.closeOnce.Do(func() {
		logger.Debug("closing browser")
		s.cancelTab()
		s.cancelAlloc()
	})
	return nil
}
