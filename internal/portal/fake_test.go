package portal

import (
	"context"
	"net/http"
	"sort"
	"strings"
	"time"

	"github.com/nulljosh/claimcheck/internal/browser"
)

// baseNav is a Navigator with benign defaults for tests. Fakes embed it and
// override the methods their scenario scripts.
type baseNav struct {
	st browser.PageState
}

func (b *baseNav) Goto(ctx context.Context, url string, timeout time.Duration) error {
	b.st.URL = url
	return nil
}

func (b *baseNav) WaitForSelector(ctx context.Context, sel string, timeout time.Duration) error {
	return nil
}

func (b *baseNav) WaitForCondition(ctx context.Context, timeout time.Duration, pred func(browser.PageState) bool) error {
	if pred(b.st) {
		return nil
	}
	return browser.ErrConditionTimeout
}

func (b *baseNav) WaitForNavigation(ctx context.Context, fromURL string, timeout time.Duration) error {
	if b.st.URL != fromURL {
		return nil
	}
	return browser.ErrNavigationTimeout
}

func (b *baseNav) ClickByText(ctx context.Context, vocab []string) (string, error) {
	return "", browser.ErrElementNotFound
}

func (b *baseNav) ClickSelector(ctx context.Context, sel string, timeout time.Duration) error {
	return browser.ErrElementNotFound
}

func (b *baseNav) TypeField(ctx context.Context, sel, value string) error    { return nil }
func (b *baseNav) SetFieldValue(ctx context.Context, sel, value string) error { return nil }

func (b *baseNav) ChooseRadio(ctx context.Context, field, value string, labelVocab []string) (string, error) {
	return "", browser.ErrElementNotFound
}

func (b *baseNav) CheckBox(ctx context.Context, selectors []string) error {
	return browser.ErrElementNotFound
}

func (b *baseNav) FormFields(ctx context.Context) ([]browser.FormField, error) { return nil, nil }

func (b *baseNav) State(ctx context.Context) (browser.PageState, error) { return b.st, nil }
func (b *baseNav) HTML(ctx context.Context) (string, error)             { return "", nil }

func (b *baseNav) Screenshot(ctx context.Context) ([]byte, error) {
	return []byte("\x89PNG"), nil
}

func (b *baseNav) Cookies(ctx context.Context) ([]*http.Cookie, error) { return nil, nil }
func (b *baseNav) SetCookies(ctx context.Context, cookies []*http.Cookie) error {
	return nil
}

// testConfig returns the default config pointed at a fake portal with
// timeouts collapsed for tests.
func testConfig() *Config {
	cfg := Default()
	cfg.PortalURL = "https://portal.test"
	cfg.RetryDelay = 0
	cfg.RateLimitBackoff = 0
	cfg.NavigationTimeout = time.Second
	cfg.SelectorTimeout = 50 * time.Millisecond
	cfg.Report.StageTimeout = 50 * time.Millisecond
	return cfg
}

func vocabHas(vocab []string, word string) bool {
	for _, v := range vocab {
		if v == word {
			return true
		}
	}
	return false
}

// nameFromSelector extracts the name attribute from selectors like
// input[name="sin"], falling back to the selector itself.
func nameFromSelector(sel string) string {
	_, rest, ok := strings.Cut(sel, `name="`)
	if !ok {
		return sel
	}
	name, _, ok := strings.Cut(rest, `"`)
	if !ok {
		return sel
	}
	return name
}

func sortFields(fields []browser.FormField) {
	sort.Slice(fields, func(i, j int) bool { return fields[i].Name < fields[j].Name })
}
