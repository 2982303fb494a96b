// Package auth integrates the external identity provider and guards the
// authenticated API surface.
package auth

import (
	"crypto/rand"
	"encoding/hex"
	"sync"
	"time"
)

// User is the identity supplied by the provider on login.
type User struct {
	ID          string `json:"id"`
	Email       string `json:"email"`
	DisplayName string `json:"displayName"`
	Photo       string `json:"photo"`
}

// SessionCookie is the name of the session token cookie.
const SessionCookie = "hw_session"

type session struct {
	user      User
	expiresAt time.Time
}

// SessionStore holds logged-in sessions in process memory. Sessions are
// lost on restart; users simply log in again.
type SessionStore struct {
	mu       sync.Mutex
	sessions map[string]session
	ttl      time.Duration
	now      func() time.Time
}

// NewSessionStore creates a store whose sessions expire after ttl.
func NewSessionStore(ttl time.Duration) *SessionStore {
	return &SessionStore{
		sessions: make(map[string]session),
		ttl:      ttl,
		now:      time.Now,
	}
}

// Create registers a new session for the user and returns its token.
func (s *SessionStore) Create(u User) (string, error) {
	buf := make([]byte, 32)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	token := hex.EncodeToString(buf)

	s.mu.Lock()
	defer s.mu.Unlock()
	s.sessions[token] = session{user: u, expiresAt: s.now().Add(s.ttl)}
	return token, nil
}

// Get returns the user for a token, if the session exists and has not
// expired. Expired sessions are removed on access.
func (s *SessionStore) Get(token string) (User, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	sess, ok := s.sessions[token]
	if !ok {
		return User{}, false
	}
	if s.now().After(sess.expiresAt) {
		delete(s.sessions, token)
		return User{}, false
	}
	return sess.user, true
}

// Delete removes a session.
func (s *SessionStore) Delete(token string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.sessions, token)
}
