package cookiestore

import (
	"net/http"
	"path/filepath"
	"testing"
	"time"
)

func TestStore_RoundTripAcrossReopen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "cookies.json")

	s, err := New(path, "https://portal.test")
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	cookies := []*http.Cookie{{
		Name:    "ASP.NET_SessionId",
		Value:   "abc123",
		Path:    "/",
		Expires: time.Now().Add(24 * time.Hour),
	}}
	if err := s.Save(cookies); err != nil {
		t.Fatalf("Save() error = %v", err)
	}

	reopened, err := New(path, "https://portal.test")
	if err != nil {
		t.Fatalf("reopen error = %v", err)
	}
	got := reopened.Load()
	if len(got) != 1 {
		t.Fatalf("Load() returned %d cookies, want 1", len(got))
	}
	if got[0].Name != "ASP.NET_SessionId" || got[0].Value != "abc123" {
		t.Errorf("cookie = %+v, want the saved session cookie", got[0])
	}
}

func TestStore_EmptyJarLoadsNothing(t *testing.T) {
	s, err := New(filepath.Join(t.TempDir(), "cookies.json"), "https://portal.test")
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	if got := s.Load(); len(got) != 0 {
		t.Errorf("Load() on fresh jar = %d cookies, want 0", len(got))
	}
}

func TestNew_RejectsBadURL(t *testing.T) {
	if _, err := New(filepath.Join(t.TempDir(), "c.json"), "://bad"); err == nil {
		t.Error("expected error for unparseable portal URL")
	}
}
