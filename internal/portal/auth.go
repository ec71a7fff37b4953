package portal

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/nulljosh/claimcheck/internal/browser"
	"github.com/nulljosh/claimcheck/internal/logger"
)

// loginOutcome classifies the page state after a submitted login form.
type loginOutcome int

const (
	outcomeLoginPage loginOutcome = iota
	outcomeRateLimited
	outcomeSuccess
)

// Authenticator drives the portal login form. The portal's markup is not
// versioned against, so controls are located by visible text and a small
// selector alias set rather than structural selectors.
type Authenticator struct {
	nav Navigator
	cfg *Config
}

func NewAuthenticator(nav Navigator, cfg *Config) *Authenticator {
	return &Authenticator{nav: nav, cfg: cfg}
}

// Login authenticates the session, retrying up to cfg.LoginAttempts times.
// A rate-limited attempt waits the longer RateLimitBackoff before the next
// try instead of the standard RetryDelay. Credentials never appear in logs.
func (a *Authenticator) Login(ctx context.Context, creds Credentials) error {
	var lastErr error
	for attempt := 1; attempt <= a.cfg.LoginAttempts; attempt++ {
		if attempt > 1 {
			delay := a.cfg.RetryDelay
			if errors.Is(lastErr, ErrRateLimited) {
				delay = a.cfg.RateLimitBackoff
			}
			logger.Debug("waiting before next login attempt", "delay", delay)
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(delay):
			}
		}

		err := a.attempt(ctx, creds)
		if err == nil {
			logger.Info("login succeeded", "attempt", attempt)
			return nil
		}
		lastErr = err
		logger.Warn("login attempt failed", "attempt", attempt, "error", err)
	}
	return fmt.Errorf("login failed after %d attempts: %w", a.cfg.LoginAttempts, lastErr)
}

func (a *Authenticator) attempt(ctx context.Context, creds Credentials) error {
	if err := a.nav.Goto(ctx, a.cfg.PortalURL, a.cfg.NavigationTimeout); err != nil {
		return err
	}

	// Some sessions land directly on the login form, so a missing sign-in
	// control is not an error.
	if _, err := a.nav.ClickByText(ctx, a.cfg.SignInVocab); err != nil {
		if !errors.Is(err, browser.ErrElementNotFound) {
			return err
		}
		logger.Debug("no sign-in control, assuming login form is already shown")
	}

	userSel, err := a.firstVisible(ctx, a.cfg.UsernameSelectors)
	if err != nil {
		return fmt.Errorf("username field: %w", err)
	}
	passSel, err := a.firstVisible(ctx, a.cfg.PasswordSelectors)
	if err != nil {
		return fmt.Errorf("password field: %w", err)
	}

	// Typed keystroke by keystroke; the login form ignores plain DOM value
	// assignment.
	if err := a.nav.TypeField(ctx, userSel, creds.Username); err != nil {
		return err
	}
	if err := a.nav.TypeField(ctx, passSel, creds.Password); err != nil {
		return err
	}

	if err := a.submit(ctx); err != nil {
		return err
	}

	// The post-submit page may be a full navigation or a client-rendered
	// shell, so wait on content state rather than a navigation event. A
	// timed-out wait just means we are still on the login page.
	_ = a.nav.WaitForCondition(ctx, a.cfg.NavigationTimeout, func(st browser.PageState) bool {
		return a.classify(st) != outcomeLoginPage
	})

	st, err := a.nav.State(ctx)
	if err != nil {
		return err
	}
	switch a.classify(st) {
	case outcomeRateLimited:
		return ErrRateLimited
	case outcomeLoginPage:
		return ErrInvalidCredentials
	default:
		return nil
	}
}

// submit clicks the first matching submit control, falling back to text
// matching when none of the selector aliases are present.
func (a *Authenticator) submit(ctx context.Context) error {
	for _, sel := range a.cfg.SubmitSelectors {
		err := a.nav.ClickSelector(ctx, sel, a.cfg.SelectorTimeout)
		if err == nil {
			return nil
		}
		if !errors.Is(err, browser.ErrElementNotFound) {
			return err
		}
	}
	if _, err := a.nav.ClickByText(ctx, a.cfg.SignInVocab); err != nil {
		return fmt.Errorf("submit control: %w", err)
	}
	return nil
}

func (a *Authenticator) firstVisible(ctx context.Context, selectors []string) (string, error) {
	for _, sel := range selectors {
		err := a.nav.WaitForSelector(ctx, sel, a.cfg.SelectorTimeout)
		if err == nil {
			return sel, nil
		}
		if !errors.Is(err, browser.ErrElementNotFound) {
			return "", err
		}
	}
	return "", browser.ErrElementNotFound
}

// classify decides the outcome of a login attempt from page state. Rate
// limiting is checked first: the portal reports it while still on the login
// URL, and it must not be mistaken for bad credentials.
func (a *Authenticator) classify(st browser.PageState) loginOutcome {
	if containsAny(st.BodyText, a.cfg.RateLimitMarkers) || containsAny(st.URL, a.cfg.RateLimitMarkers) {
		return outcomeRateLimited
	}
	if containsAny(st.URL, a.cfg.LoginURLMarkers) {
		return outcomeLoginPage
	}
	return outcomeSuccess
}
