// Package auth holds the user's API session: the bearer access token and
// whatever claims can be read from it.
package auth

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

var (
	ErrNoSession      = errors.New("no active session; log in first")
	ErrSessionExpired = errors.New("session expired; log in again")
)

// SessionStore keeps the current access token and implements the SDK's
// TokenProvider. Tokens are treated as opaque unless they parse as JWTs, in
// which case expiry is enforced client-side.
type SessionStore struct {
	mu        sync.RWMutex
	token     string
	subject   string
	expiresAt time.Time
}

func NewSessionStore() *SessionStore {
	return &SessionStore{}
}

// SetToken installs a new access token. JWT claims are read without signature
// verification; the backend is the verifier, the client only needs expiry.
func (s *SessionStore) SetToken(token string) error {
	if token == "" {
		return errors.New("token is empty")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.token = token
	s.subject = ""
	s.expiresAt = time.Time{}

	claims := jwt.MapClaims{}
	parser := jwt.NewParser()
	if _, _, err := parser.ParseUnverified(token, claims); err != nil {
		// Opaque token; nothing more to learn from it.
		return nil
	}

	if sub, err := claims.GetSubject(); err == nil {
		s.subject = sub
	}
	if exp, err := claims.GetExpirationTime(); err == nil && exp != nil {
		s.expiresAt = exp.Time
	}

	return nil
}

// AccessToken implements boostpanel.TokenProvider.
func (s *SessionStore) AccessToken(ctx context.Context) (string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.token == "" {
		return "", ErrNoSession
	}
	if !s.expiresAt.IsZero() && time.Now().After(s.expiresAt) {
		return "", ErrSessionExpired
	}

	return s.token, nil
}

// Subject returns the token's sub claim, when known.
func (s *SessionStore) Subject() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.subject
}

// ExpiresAt returns the token expiry, when known.
func (s *SessionStore) ExpiresAt() (time.Time, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.expiresAt, !s.expiresAt.IsZero()
}

// Active reports whether a usable session exists.
func (s *SessionStore) Active() bool {
	_, err := s.AccessToken(context.Background())
	return err == nil
}

// Clear logs out.
func (s *SessionStore) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.token = ""
	s.subject = ""
	s.expiresAt = time.Time{}
}
