package portal

import (
	"context"
	"net/http"
	"time"

	"github.com/nulljosh/claimcheck/internal/browser"
)

// Navigator is the page-level contract the engine is written against. The
// production implementation is a browser tab; tests substitute a scripted
// fake. Timed-out waits return the browser package's sentinel errors and are
// always soft: the caller decides whether to retry, continue, or abandon.
type Navigator interface {
	Goto(ctx context.Context, url string, timeout time.Duration) error
	WaitForSelector(ctx context.Context, sel string, timeout time.Duration) error
	WaitForCondition(ctx context.Context, timeout time.Duration, pred func(browser.PageState) bool) error
	WaitForNavigation(ctx context.Context, fromURL string, timeout time.Duration) error

	ClickByText(ctx context.Context, vocab []string) (string, error)
	ClickSelector(ctx context.Context, sel string, timeout time.Duration) error
	TypeField(ctx context.Context, sel, value string) error
	SetFieldValue(ctx context.Context, sel, value string) error
	ChooseRadio(ctx context.Context, field, value string, labelVocab []string) (string, error)
	CheckBox(ctx context.Context, selectors []string) error
	FormFields(ctx context.Context) ([]browser.FormField, error)

	State(ctx context.Context) (browser.PageState, error)
	HTML(ctx context.Context) (string, error)
	Screenshot(ctx context.Context) ([]byte, error)

	Cookies(ctx context.Context) ([]*http.Cookie, error)
	SetCookies(ctx context.Context, cookies []*http.Cookie) error
}

var _ Navigator = (*browser.Tab)(nil)
