package server

import (
	"crypto/rand"
	"encoding/hex"
	"sync"
	"time"

	"github.com/nulljosh/claimcheck/internal/portal"
)

// session holds one logged-in dashboard user's portal credentials in memory
// only. Nothing here is ever written to disk or logs.
type session struct {
	creds    portal.Credentials
	lastSeen time.Time
}

type sessionStore struct {
	mu       sync.Mutex
	ttl      time.Duration
	sessions map[string]*session
	now      func() time.Time
}

func newSessionStore(ttl time.Duration) *sessionStore {
	return &sessionStore{
		ttl:      ttl,
		sessions: make(map[string]*session),
		now:      time.Now,
	}
}

// Create stores credentials under a fresh random token.
func (s *sessionStore) Create(creds portal.Credentials) string {
	buf := make([]byte, 24)
	if _, err := rand.Read(buf); err != nil {
		panic("session token entropy: " + err.Error())
	}
	token := hex.EncodeToString(buf)

	s.mu.Lock()
	defer s.mu.Unlock()
	s.purgeLocked()
	s.sessions[token] = &session{creds: creds, lastSeen: s.now()}
	return token
}

// Get returns the credentials for a live session and refreshes its idle
// timer.
func (s *sessionStore) Get(token string) (portal.Credentials, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.purgeLocked()

	sess, ok := s.sessions[token]
	if !ok {
		return portal.Credentials{}, false
	}
	sess.lastSeen = s.now()
	return sess.creds, true
}

func (s *sessionStore) Delete(token string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.sessions, token)
}

func (s *sessionStore) purgeLocked() {
	cutoff := s.now().Add(-s.ttl)
	for token, sess := range s.sessions {
		if sess.lastSeen.Before(cutoff) {
			delete(s.sessions, token)
		}
	}
}
