package portal

import (
	"context"
	"errors"
	"io"
	"net/http"
	"strings"
	"testing"
	"time"

	"github.com/nulljosh/claimcheck/internal/browser"
)

// siteFake scripts the whole portal: login flow plus section pages. The
// Messages section can be set to bounce back to the login page.
type siteFake struct {
	pageFake
	loginOK bool
}

func newSiteFake(pages map[string]fakePage) *siteFake {
	return &siteFake{pageFake: pageFake{pages: pages}, loginOK: true}
}

func (f *siteFake) ClickByText(ctx context.Context, vocab []string) (string, error) {
	if vocabHas(vocab, "sign in") {
		f.st = browser.PageState{URL: "https://portal.test/BCeID/Logon", BodyText: "Log in"}
		return "sign in", nil
	}
	return "", browser.ErrElementNotFound
}

func (f *siteFake) ClickSelector(ctx context.Context, sel string, timeout time.Duration) error {
	if !strings.Contains(sel, "btnSubmit") {
		return browser.ErrElementNotFound
	}
	if f.loginOK {
		f.st = browser.PageState{URL: "https://portal.test/Auth", BodyText: "Welcome back"}
	}
	return nil
}

func (f *siteFake) Cookies(ctx context.Context) ([]*http.Cookie, error) {
	return []*http.Cookie{{Name: "ASP.NET_SessionId", Value: "abc123"}}, nil
}

type countCloser struct {
	closes int
}

func (c *countCloser) Close() error {
	c.closes++
	return nil
}

type memCookieStore struct {
	loaded int
	saved  [][]*http.Cookie
}

func (m *memCookieStore) Load() []*http.Cookie {
	m.loaded++
	return []*http.Cookie{{Name: "stale", Value: "x"}}
}

func (m *memCookieStore) Save(cookies []*http.Cookie) error {
	m.saved = append(m.saved, cookies)
	return nil
}

func launchFake(nav Navigator, closer io.Closer) LaunchFunc {
	return func(ctx context.Context) (Navigator, io.Closer, error) {
		return nav, closer, nil
	}
}

func sectionPages() map[string]fakePage {
	content := fakePage{
		title: "Section",
		body:  "payment processed",
		html:  "<html><body><p>One payment was processed this month.</p></body></html>",
	}
	return map[string]fakePage{
		"https://portal.test/Auth":                 content,
		"https://portal.test/Auth/Messages":        content,
		"https://portal.test/Auth/ChequeInfo":      content,
		"https://portal.test/Auth/ServiceRequests": content,
	}
}

func TestRun_PartialFailureIsolation(t *testing.T) {
	pages := sectionPages()
	pages["https://portal.test/Auth/Messages"] = fakePage{
		title:    "Login",
		body:     "Please log in",
		html:     "<html></html>",
		redirect: "https://portal.test/BCeID/Logon",
	}
	fake := newSiteFake(pages)
	closer := &countCloser{}
	o := New(testConfig(), launchFake(fake, closer))

	agg := o.Check(context.Background(), Credentials{Username: "u", Password: "p"})

	if !agg.Success {
		t.Fatalf("run success = false (error %q); one bad section must not fail the run", agg.Error)
	}
	if len(agg.Sections) != 4 {
		t.Fatalf("sections = %d, want 4", len(agg.Sections))
	}
	for name, res := range agg.Sections {
		if name == "Messages" {
			if res.Success || res.Error != ErrSessionExpired.Error() {
				t.Errorf("Messages = %+v, want session-expired error", res)
			}
			continue
		}
		if !res.Success {
			t.Errorf("section %s failed: %q", name, res.Error)
		}
	}
	if closer.closes != 1 {
		t.Errorf("browser closed %d times, want exactly 1", closer.closes)
	}
}

func TestRun_LoginFailureClosesBrowser(t *testing.T) {
	fake := newSiteFake(sectionPages())
	fake.loginOK = false
	closer := &countCloser{}
	o := New(testConfig(), launchFake(fake, closer))

	agg := o.Check(context.Background(), Credentials{Username: "u", Password: "bad"})

	if agg.Success {
		t.Fatal("failed login must fail the run")
	}
	if !strings.Contains(agg.Error, ErrInvalidCredentials.Error()) {
		t.Errorf("Error = %q, want invalid-credentials failure", agg.Error)
	}
	if closer.closes != 1 {
		t.Errorf("browser closed %d times, want exactly 1", closer.closes)
	}
}

func TestSession_PanicBecomesStructuredFailure(t *testing.T) {
	fake := newSiteFake(sectionPages())
	closer := &countCloser{}
	o := New(testConfig(), launchFake(fake, closer))

	err := o.session(context.Background(), Credentials{Username: "u", Password: "p"}, func(Navigator) error {
		panic("selector engine exploded")
	})

	if err == nil || !strings.Contains(err.Error(), "selector engine exploded") {
		t.Fatalf("session() error = %v, want structured panic failure", err)
	}
	if closer.closes != 1 {
		t.Errorf("browser closed %d times after panic, want exactly 1", closer.closes)
	}
}

func TestSession_CookiesRestoredAndPersisted(t *testing.T) {
	fake := newSiteFake(sectionPages())
	store := &memCookieStore{}
	o := New(testConfig(), launchFake(fake, &countCloser{}), WithCookieStore(store))

	agg := o.Check(context.Background(), Credentials{Username: "u", Password: "p"})
	if !agg.Success {
		t.Fatalf("run failed: %q", agg.Error)
	}
	if store.loaded != 1 {
		t.Errorf("cookie store loaded %d times, want 1", store.loaded)
	}
	if len(store.saved) != 1 {
		t.Fatalf("cookie store saved %d times, want 1", len(store.saved))
	}
	if len(store.saved[0]) == 0 || store.saved[0][0].Name != "ASP.NET_SessionId" {
		t.Errorf("saved cookies = %+v, want the session cookie", store.saved[0])
	}
}

func TestRun_WithReportWalksInSameSession(t *testing.T) {
	fake := newSiteFake(sectionPages())
	closer := &countCloser{}
	o := New(testConfig(), launchFake(fake, closer))

	// The site fake has no report form, so the walk fails softly; the point
	// is that it runs inside the same session and the browser still closes
	// exactly once.
	agg, sub := o.Run(context.Background(), Credentials{Username: "u", Password: "p"}, &ReportOptions{DryRun: true})

	if !agg.Success {
		t.Fatalf("run failed: %q", agg.Error)
	}
	if sub == nil {
		t.Fatal("report walk result missing")
	}
	if sub.Success {
		t.Error("walk against a portal without a report form must not succeed")
	}
	if closer.closes != 1 {
		t.Errorf("browser closed %d times, want exactly 1", closer.closes)
	}
}

func TestSubmitReport_LaunchFailureIsStructured(t *testing.T) {
	o := New(testConfig(), func(ctx context.Context) (Navigator, io.Closer, error) {
		return nil, nil, errors.New("no chrome binary")
	})

	sub := o.SubmitReport(context.Background(), Credentials{Username: "u", Password: "p"}, ReportOptions{DryRun: true})
	if sub.Success {
		t.Fatal("launch failure must not succeed")
	}
	if !strings.Contains(sub.Error, "no chrome binary") {
		t.Errorf("Error = %q, want launch failure", sub.Error)
	}
	if !sub.DryRun {
		t.Error("dry-run flag must survive into the failure result")
	}
}
