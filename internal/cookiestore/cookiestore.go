// Package cookiestore persists portal session cookies between runs, so a
// fresh browser can resume an authenticated session instead of logging in
// again.
package cookiestore

import (
	"fmt"
	"net/http"
	"net/url"
	"os"
	"path/filepath"

	cookiejar "github.com/orirawlings/persistent-cookiejar"

	"github.com/nulljosh/claimcheck/internal/logger"
)

// Store wraps a file-backed cookie jar scoped to one portal origin.
type Store struct {
	jar    *cookiejar.Jar
	origin *url.URL
}

// New opens (or creates) the jar file at path for the given portal URL.
func New(path, portalURL string) (*Store, error) {
	origin, err := url.Parse(portalURL)
	if err != nil {
		return nil, fmt.Errorf("parsing portal URL: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return nil, fmt.Errorf("cookie jar dir: %w", err)
	}
	jar, err := cookiejar.New(&cookiejar.Options{
		Filename:              path,
		PersistSessionCookies: true,
	})
	if err != nil {
		return nil, fmt.Errorf("opening cookie jar: %w", err)
	}
	return &Store{jar: jar, origin: origin}, nil
}

// Load returns the cookies previously saved for the portal origin.
func (s *Store) Load() []*http.Cookie {
	cookies := s.jar.Cookies(s.origin)
	logger.Debug("loaded cookies", "count", len(cookies))
	return cookies
}

// Save stores the session cookies and flushes the jar to disk.
func (s *Store) Save(cookies []*http.Cookie) error {
	s.jar.SetCookies(s.origin, cookies)
	if err := s.jar.Save(); err != nil {
		return fmt.Errorf("saving cookie jar: %w", err)
	}
	logger.Debug("saved cookies", "count", len(cookies))
	return nil
}
