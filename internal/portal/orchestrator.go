package portal

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/nulljosh/claimcheck/internal/browser"
	"github.com/nulljosh/claimcheck/internal/logger"
)

// LaunchFunc acquires a browser-backed Navigator. The returned closer
// terminates the browser process; the orchestrator guarantees it is closed
// on every exit path.
type LaunchFunc func(ctx context.Context) (Navigator, io.Closer, error)

// BrowserLaunch returns a LaunchFunc backed by a real headless Chrome
// session.
func BrowserLaunch(bcfg browser.Config) LaunchFunc {
	return func(ctx context.Context) (Navigator, io.Closer, error) {
		sess, err := browser.Launch(ctx, bcfg)
		if err != nil {
			return nil, nil, err
		}
		return sess.Tab(), sess, nil
	}
}

// CookieStore persists session cookies between runs. Load feeds saved
// cookies into the browser before login; Save is called once after a
// successful login.
type CookieStore interface {
	Load() []*http.Cookie
	Save(cookies []*http.Cookie) error
}

// Orchestrator owns one run end to end: browser lifecycle, login with
// retries, section extraction, and the optional monthly report walk, all
// within a single authenticated session. Re-authenticating per section
// trips the portal's rate limiting, so everything is batched under one
// login. The orchestrator is stateless between runs and assumes at most one
// concurrent caller.
type Orchestrator struct {
	cfg     *Config
	launch  LaunchFunc
	shots   ScreenshotSink
	cookies CookieStore
}

// Option customizes an Orchestrator.
type Option func(*Orchestrator)

// WithScreenshots stores page screenshots through sink.
func WithScreenshots(sink ScreenshotSink) Option {
	return func(o *Orchestrator) { o.shots = sink }
}

// WithCookieStore persists session cookies across runs.
func WithCookieStore(cs CookieStore) Option {
	return func(o *Orchestrator) { o.cookies = cs }
}

func New(cfg *Config, launch LaunchFunc, opts ...Option) *Orchestrator {
	o := &Orchestrator{cfg: cfg, launch: launch}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// Check logs in and extracts every configured section.
func (o *Orchestrator) Check(ctx context.Context, creds Credentials) *AggregateResult {
	agg, _ := o.Run(ctx, creds, nil)
	return agg
}

// Run logs in, extracts every configured section, and, when report is
// non-nil, walks the monthly report form in the same session. The aggregate
// result's Success reflects the run itself; per-section errors are recorded
// in place and do not fail the run.
func (o *Orchestrator) Run(ctx context.Context, creds Credentials, report *ReportOptions) (*AggregateResult, *SubmissionResult) {
	agg := &AggregateResult{
		Timestamp: time.Now().UTC(),
		Sections:  make(map[string]*SectionResult),
	}
	var sub *SubmissionResult

	err := o.session(ctx, creds, func(nav Navigator) error {
		ext := NewExtractor(nav, o.cfg, o.shots)
		for _, sec := range o.cfg.Sections {
			logger.Info("extracting section", "section", sec.Name)
			agg.Sections[sec.Name] = ext.Extract(ctx, sec)
		}
		agg.Success = true

		if report != nil {
			logger.Info("walking monthly report", "dry_run", report.DryRun)
			sub = NewWalker(nav, o.cfg, o.shots).Walk(ctx, *report)
		}
		return nil
	})
	if err != nil {
		return Failed(err), sub
	}
	return agg, sub
}

// SubmitReport logs in and walks the monthly report form without extracting
// sections first.
func (o *Orchestrator) SubmitReport(ctx context.Context, creds Credentials, opts ReportOptions) *SubmissionResult {
	var sub *SubmissionResult
	err := o.session(ctx, creds, func(nav Navigator) error {
		sub = NewWalker(nav, o.cfg, o.shots).Walk(ctx, opts)
		return nil
	})
	if err != nil {
		return &SubmissionResult{DryRun: opts.DryRun, Error: err.Error()}
	}
	return sub
}

// session runs fn inside a launched, authenticated browser session. It is
// the single failure boundary: panics below it become structured errors
// with a diagnostic screenshot, and the browser is terminated on every exit
// path, exactly once.
func (o *Orchestrator) session(ctx context.Context, creds Credentials, fn func(Navigator) error) (err error) {
	nav, closer, err := o.launch(ctx)
	if err != nil {
		return fmt.Errorf("launching browser: %w", err)
	}
	defer func() {
		if cerr := closer.Close(); cerr != nil {
			logger.Warn("browser close failed", "error", cerr)
		}
	}()
	defer func() {
		if r := recover(); r != nil {
			logger.Error("panic during portal run", "panic", r)
			capture(ctx, nav, o.shots, "panic-diagnostic")
			err = fmt.Errorf("internal error: %v", r)
		}
	}()

	if o.cookies != nil {
		if saved := o.cookies.Load(); len(saved) > 0 {
			logger.Debug("restoring saved cookies", "count", len(saved))
			if cerr := nav.SetCookies(ctx, saved); cerr != nil {
				logger.Warn("cookie restore failed", "error", cerr)
			}
		}
	}

	auth := NewAuthenticator(nav, o.cfg)
	if err := auth.Login(ctx, creds); err != nil {
		capture(ctx, nav, o.shots, "login-failure")
		return err
	}

	if o.cookies != nil {
		if cs, cerr := nav.Cookies(ctx); cerr != nil {
			logger.Warn("cookie read failed", "error", cerr)
		} else if serr := o.cookies.Save(cs); serr != nil {
			logger.Warn("cookie save failed", "error", serr)
		}
	}

	return fn(nav)
}
