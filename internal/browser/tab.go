package browser

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/chromedp/cdproto/cdp"
	"github.com/chromedp/cdproto/network"
	"github.com/chromedp/cdproto/storage"
	"github.com/chromedp/chromedp"
)

// defaultOpTimeout bounds primitives that have no explicit timeout parameter.
const defaultOpTimeout = 15 * time.Second

// conditionPollInterval is how often polled waits re-read the page.
const conditionPollInterval = 250 * time.Millisecond

// PageState is a point-in-time snapshot of the visible page, used by the
// portal engine for marker matching and outcome classification.
type PageState struct {
	URL      string
	Title    string
	BodyText string
}

// FormField is one form control captured from the live page. Snapshots of
// these are what a dry run reports instead of submitting.
type FormField struct {
	Name    string `json:"name"`
	ID      string `json:"id,omitempty"`
	Type    string `json:"type"`
	Value   string `json:"value"`
	Checked bool   `json:"checked,omitempty"`
}

// Tab wraps a single browser tab. All methods honor cancellation of the
// supplied context as well as their own operation timeouts.
type Tab struct {
	ctx context.Context
}

// op derives an operation context from the tab, bounded by timeout and
// cancelled early if the caller's context is done.
func (t *Tab) op(ctx context.Context, timeout time.Duration) (context.Context, context.CancelFunc) {
	if timeout <= 0 {
		timeout = defaultOpTimeout
	}
	opCtx, cancel := context.WithTimeout(t.ctx, timeout)
	stop := context.AfterFunc(ctx, cancel)
	return opCtx, func() { stop(); cancel() }
}

// jsStr quotes s as a JavaScript string literal.
func jsStr(s string) string {
	b, _ := json.Marshal(s)
	return string(b)
}

func jsStrs(ss []string) string {
	b, _ := json.Marshal(ss)
	return string(b)
}

// Goto navigates to url and waits for the document body to be ready.
func (t *Tab) Goto(ctx context.Context, url string, timeout time.Duration) error {
	opCtx, cancel := t.op(ctx, timeout)
	defer cancel()

	err := chromedp.Run(opCtx,
		chromedp.Navigate(url),
		chromedp.WaitReady("body", chromedp.ByQuery),
	)
	if errors.Is(err, context.DeadlineExceeded) {
		return fmt.Errorf("goto %s: %w", url, ErrNavigationTimeout)
	}
	if err != nil {
		return fmt.Errorf("goto %s: %w", url, err)
	}
	return nil
}

// WaitForSelector waits until sel matches a visible element.
func (t *Tab) WaitForSelector(ctx context.Context, sel string, timeout time.Duration) error {
	opCtx, cancel := t.op(ctx, timeout)
	defer cancel()

	err := chromedp.Run(opCtx, chromedp.WaitVisible(sel, chromedp.ByQuery))
	if errors.Is(err, context.DeadlineExceeded) {
		return fmt.Errorf("selector %q: %w", sel, ErrElementNotFound)
	}
	if err != nil {
		return fmt.Errorf("selector %q: %w", sel, err)
	}
	return nil
}

// WaitForCondition polls the page until pred reports true.
func (t *Tab) WaitForCondition(ctx context.Context, timeout time.Duration, pred func(PageState) bool) error {
	opCtx, cancel := t.op(ctx, timeout)
	defer cancel()

	ticker := time.NewTicker(conditionPollInterval)
	defer ticker.Stop()

	for {
		state, err := t.stateIn(opCtx)
		if err == nil && pred(state) {
			return nil
		}

		select {
		case <-opCtx.Done():
			return ErrConditionTimeout
		case <-ticker.C:
		}
	}
}

// WaitForNavigation waits until the page URL differs from fromURL and the
// new document's body is ready. Used for real page loads; in-page hash
// transitions are handled by WaitForCondition instead.
func (t *Tab) WaitForNavigation(ctx context.Context, fromURL string, timeout time.Duration) error {
	opCtx, cancel := t.op(ctx, timeout)
	defer cancel()

	ticker := time.NewTicker(conditionPollInterval)
	defer ticker.Stop()

	for {
		var loc string
		if err := chromedp.Run(opCtx, chromedp.Location(&loc)); err == nil && loc != fromURL {
			err := chromedp.Run(opCtx, chromedp.WaitReady("body", chromedp.ByQuery))
			if errors.Is(err, context.DeadlineExceeded) {
				return ErrNavigationTimeout
			}
			return err
		}

		select {
		case <-opCtx.Done():
			return ErrNavigationTimeout
		case <-ticker.C:
		}
	}
}

// clickByTextJS finds the first clickable element whose visible text (or
// value, for input buttons) contains one of the needles, case-insensitively,
// clicks it, and returns the matched needle. Returns "" if nothing matched.
const clickByTextJS = `(() => {
	const needles = %s.map(n => n.toLowerCase());
	const els = document.querySelectorAll('a, button, input[type="submit"], input[type="button"], [role="button"]');
	for (const el of els) {
		const text = ((el.innerText || el.textContent || '') + ' ' + (el.value || '')).toLowerCase();
		for (const n of needles) {
			if (text.includes(n)) {
				el.click();
				return n;
			}
		}
	}
	return '';
})()`

// ClickByText clicks the first link or button whose text contains one of the
// vocabulary entries (case-insensitive) and returns the entry that matched.
// Returns ErrElementNotFound when no element matches any entry.
func (t *Tab) ClickByText(ctx context.Context, vocab []string) (string, error) {
	opCtx, cancel := t.op(ctx, 0)
	defer cancel()

	var matched string
	js := fmt.Sprintf(clickByTextJS, jsStrs(vocab))
	if err := chromedp.Run(opCtx, chromedp.Evaluate(js, &matched)); err != nil {
		return "", fmt.Errorf("click by text: %w", err)
	}
	if matched == "" {
		return "", fmt.Errorf("no element matching %v: %w", vocab, ErrElementNotFound)
	}
	return matched, nil
}

// ClickSelector waits for sel to be visible and clicks it.
func (t *Tab) ClickSelector(ctx context.Context, sel string, timeout time.Duration) error {
	opCtx, cancel := t.op(ctx, timeout)
	defer cancel()

	err := chromedp.Run(opCtx,
		chromedp.WaitVisible(sel, chromedp.ByQuery),
		chromedp.Click(sel, chromedp.ByQuery),
	)
	if errors.Is(err, context.DeadlineExceeded) {
		return fmt.Errorf("click %q: %w", sel, ErrElementNotFound)
	}
	if err != nil {
		return fmt.Errorf("click %q: %w", sel, err)
	}
	return nil
}

// TypeField clears the field matched by sel and types value into it
// keystroke by keystroke. Used for credential fields, where some portals
// only accept trusted key events.
func (t *Tab) TypeField(ctx context.Context, sel, value string) error {
	opCtx, cancel := t.op(ctx, 0)
	defer cancel()

	clearJS := fmt.Sprintf(`(() => {
		const el = document.querySelector(%s);
		if (!el) return false;
		el.focus();
		el.value = '';
		el.dispatchEvent(new Event('input', { bubbles: true }));
		return true;
	})()`, jsStr(sel))

	var found bool
	err := chromedp.Run(opCtx,
		chromedp.WaitVisible(sel, chromedp.ByQuery),
		chromedp.Evaluate(clearJS, &found),
		chromedp.SendKeys(sel, value, chromedp.ByQuery),
	)
	if errors.Is(err, context.DeadlineExceeded) {
		return fmt.Errorf("type into %q: %w", sel, ErrElementNotFound)
	}
	if err != nil {
		return fmt.Errorf("type into %q: %w", sel, err)
	}
	if !found {
		return fmt.Errorf("type into %q: %w", sel, ErrElementNotFound)
	}
	return nil
}

// SetFieldValue sets the field's value through the DOM and fires synthetic
// input and change events so framework-bound forms register the edit.
func (t *Tab) SetFieldValue(ctx context.Context, sel, value string) error {
	opCtx, cancel := t.op(ctx, 0)
	defer cancel()

	js := fmt.Sprintf(`(() => {
		const el = document.querySelector(%s);
		if (!el) return false;
		el.value = %s;
		el.dispatchEvent(new Event('input', { bubbles: true }));
		el.dispatchEvent(new Event('change', { bubbles: true }));
		return true;
	})()`, jsStr(sel), jsStr(value))

	var found bool
	if err := chromedp.Run(opCtx, chromedp.Evaluate(js, &found)); err != nil {
		return fmt.Errorf("set field %q: %w", sel, err)
	}
	if !found {
		return fmt.Errorf("set field %q: %w", sel, ErrElementNotFound)
	}
	return nil
}

// ChooseRadio selects a radio button in the named group. It prefers an input
// whose value equals value (case-insensitive); failing that it matches the
// surrounding label text against labelVocab. Returns a short description of
// what was clicked.
func (t *Tab) ChooseRadio(ctx context.Context, field, value string, labelVocab []string) (string, error) {
	opCtx, cancel := t.op(ctx, 0)
	defer cancel()

	js := fmt.Sprintf(`(() => {
		const want = %s.toLowerCase();
		const vocab = %s.map(v => v.toLowerCase());
		const radios = document.querySelectorAll('input[type="radio"][name=' + JSON.stringify(%s) + ']');
		const pick = (el, how) => {
			el.click();
			el.dispatchEvent(new Event('change', { bubbles: true }));
			return how;
		};
		for (const el of radios) {
			if ((el.value || '').toLowerCase() === want) return pick(el, 'value=' + el.value);
		}
		for (const el of radios) {
			const label = el.closest('label') ||
				(el.id ? document.querySelector('label[for=' + JSON.stringify(el.id) + ']') : null);
			const text = (label ? label.innerText : el.parentElement ? el.parentElement.innerText : '').toLowerCase();
			for (const v of vocab) {
				if (text.includes(v)) return pick(el, 'label~' + v);
			}
		}
		return '';
	})()`, jsStr(value), jsStrs(labelVocab), jsStr(field))

	var how string
	if err := chromedp.Run(opCtx, chromedp.Evaluate(js, &how)); err != nil {
		return "", fmt.Errorf("radio %q: %w", field, err)
	}
	if how == "" {
		return "", fmt.Errorf("radio %q value %q: %w", field, value, ErrElementNotFound)
	}
	return how, nil
}

// CheckBox checks the first checkbox matched by any of the selectors, firing
// a change event. Returns ErrElementNotFound if no selector matches.
func (t *Tab) CheckBox(ctx context.Context, selectors []string) error {
	opCtx, cancel := t.op(ctx, 0)
	defer cancel()

	js := fmt.Sprintf(`(() => {
		for (const sel of %s) {
			const el = document.querySelector(sel);
			if (el) {
				if (!el.checked) {
					el.click();
					el.dispatchEvent(new Event('change', { bubbles: true }));
				}
				return true;
			}
		}
		return false;
	})()`, jsStrs(selectors))

	var found bool
	if err := chromedp.Run(opCtx, chromedp.Evaluate(js, &found)); err != nil {
		return fmt.Errorf("checkbox: %w", err)
	}
	if !found {
		return fmt.Errorf("checkbox %v: %w", selectors, ErrElementNotFound)
	}
	return nil
}

// formFieldsJS snapshots every form control on the page. Password values are
// masked so the snapshot can be logged and returned to callers.
const formFieldsJS = `(() => {
	const out = [];
	for (const el of document.querySelectorAll('input, select, textarea')) {
		const type = (el.type || el.tagName).toLowerCase();
		out.push({
			name: el.name || '',
			id: el.id || '',
			type: type,
			value: type === 'password' ? '********' : String(el.value || ''),
			checked: !!el.checked,
		});
	}
	return out;
})()`

// FormFields returns a snapshot of all form controls on the current page.
func (t *Tab) FormFields(ctx context.Context) ([]FormField, error) {
	opCtx, cancel := t.op(ctx, 0)
	defer cancel()

	var fields []FormField
	if err := chromedp.Run(opCtx, chromedp.Evaluate(formFieldsJS, &fields)); err != nil {
		return nil, fmt.Errorf("form fields: %w", err)
	}
	return fields, nil
}

// State returns the current page URL, title, and visible body text.
func (t *Tab) State(ctx context.Context) (PageState, error) {
	opCtx, cancel := t.op(ctx, 0)
	defer cancel()
	return t.stateIn(opCtx)
}

func (t *Tab) stateIn(ctx context.Context) (PageState, error) {
	var state PageState
	err := chromedp.Run(ctx,
		chromedp.Location(&state.URL),
		chromedp.Title(&state.Title),
		chromedp.Evaluate(`document.body ? document.body.innerText : ''`, &state.BodyText),
	)
	if err != nil {
		return PageState{}, fmt.Errorf("page state: %w", err)
	}
	return state, nil
}

// HTML returns the full serialized document.
func (t *Tab) HTML(ctx context.Context) (string, error) {
	opCtx, cancel := t.op(ctx, 0)
	defer cancel()

	var html string
	if err := chromedp.Run(opCtx, chromedp.OuterHTML("html", &html, chromedp.ByQuery)); err != nil {
		return "", fmt.Errorf("page html: %w", err)
	}
	return html, nil
}

// Screenshot captures a full-page PNG.
func (t *Tab) Screenshot(ctx context.Context) ([]byte, error) {
	opCtx, cancel := t.op(ctx, 30*time.Second)
	defer cancel()

	var buf []byte
	if err := chromedp.Run(opCtx, chromedp.FullScreenshot(&buf, 90)); err != nil {
		return nil, fmt.Errorf("screenshot: %w", err)
	}
	return buf, nil
}

// Cookies returns all cookies from the browser's cookie store.
func (t *Tab) Cookies(ctx context.Context) ([]*http.Cookie, error) {
	opCtx, cancel := t.op(ctx, 0)
	defer cancel()

	var raw []*network.Cookie
	err := chromedp.Run(opCtx, chromedp.ActionFunc(func(ctx context.Context) error {
		var err error
		raw, err = storage.GetCookies().Do(ctx)
		return err
	}))
	if err != nil {
		return nil, fmt.Errorf("get cookies: %w", err)
	}

	cookies := make([]*http.Cookie, 0, len(raw))
	for _, c := range raw {
		hc := &http.Cookie{
			Name:     c.Name,
			Value:    c.Value,
			Domain:   c.Domain,
			Path:     c.Path,
			Secure:   c.Secure,
			HttpOnly: c.HTTPOnly,
		}
		if c.Expires > 0 {
			hc.Expires = time.Unix(int64(c.Expires), 0)
		}
		cookies = append(cookies, hc)
	}
	return cookies, nil
}

// SetCookies loads cookies into the browser's cookie store, typically from a
// persisted jar before the first navigation of a resumed session.
func (t *Tab) SetCookies(ctx context.Context, cookies []*http.Cookie) error {
	if len(cookies) == 0 {
		return nil
	}

	opCtx, cancel := t.op(ctx, 0)
	defer cancel()

	params := make([]*network.CookieParam, 0, len(cookies))
	for _, c := range cookies {
		domain := strings.TrimPrefix(c.Domain, ".")
		p := &network.CookieParam{
			Name:     c.Name,
			Value:    c.Value,
			Domain:   domain,
			Path:     c.Path,
			Secure:   c.Secure,
			HTTPOnly: c.HttpOnly,
		}
		if !c.Expires.IsZero() {
			exp := cdp.TimeSinceEpoch(c.Expires)
			p.Expires = &exp
		}
		params = append(params, p)
	}

	err := chromedp.Run(opCtx, chromedp.ActionFunc(func(ctx context.Context) error {
		return storage.SetCookies(params).Do(ctx)
	}))
	if err != nil {
		return fmt.Errorf("set cookies: %w", err)
	}
	return nil
}
