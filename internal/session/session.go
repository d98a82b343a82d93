// Package session owns the member credential lifecycle: rehydrated once at
// startup, verified against the backend, torn down on logout. It is passed
// explicitly to whatever needs it; there is no ambient global.
package session

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/golang-jwt/jwt/v5"

	"github.com/example/tablesched/internal/resto"
)

// MemberRole is the backend role that marks a registered member. Anything
// else books as a guest.
const MemberRole = "USER"

type Session struct {
	store  *Store
	client *resto.Client
	logger *slog.Logger

	mu   sync.Mutex
	user *resto.User
}

// Rehydrate builds the session for this run. A persisted credential is
// pre-checked for expiry locally, then verified against the backend; anything
// short of a confirmed member yields a guest session and clears the stored
// token.
func Rehydrate(ctx context.Context, store *Store, client *resto.Client, logger *slog.Logger) *Session {
	s := &Session{store: store, client: client, logger: logger}

	token, err := store.Token()
	if err != nil {
		logger.Warn("reading stored credential failed", "err", err)
		return s
	}
	if token == "" {
		return s
	}
	if tokenExpired(token, time.Now()) {
		logger.Info("stored credential expired, discarding")
		s.discard()
		return s
	}

	client.SetToken(token)
	user, err := client.Me(ctx)
	if err != nil {
		logger.Warn("stored credential rejected by backend", "err", err)
		s.discard()
		return s
	}
	s.user = &user
	return s
}

// Login verifies a fresh token against the backend and persists it on
// success.
func (s *Session) Login(ctx context.Context, token string) (resto.User, error) {
	s.client.SetToken(token)
	user, err := s.client.Me(ctx)
	if err != nil {
		s.client.SetToken("")
		return resto.User{}, errors.Wrap(err, "credential rejected")
	}
	if err := s.store.SetToken(token); err != nil {
		return resto.User{}, err
	}
	s.mu.Lock()
	s.user = &user
	s.mu.Unlock()
	return user, nil
}

// Logout clears the stored credential and returns the session to guest.
func (s *Session) Logout() error {
	s.discard()
	return nil
}

func (s *Session) discard() {
	s.client.SetToken("")
	if err := s.store.ClearToken(); err != nil {
		s.logger.Warn("clearing stored credential failed", "err", err)
	}
	s.mu.Lock()
	s.user = nil
	s.mu.Unlock()
}

// Member reports whether this run is an authenticated member session.
func (s *Session) Member() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.user != nil && s.user.Role == MemberRole
}

// User returns the verified member profile, if any.
func (s *Session) User() (resto.User, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.user == nil {
		return resto.User{}, false
	}
	return *s.user, true
}

// tokenExpired pre-checks the credential's exp claim without verifying the
// signature. Verification is the backend's job; this only skips a network
// round trip for a token that cannot possibly work. Unparseable tokens go to
// the backend for the final word.
func tokenExpired(token string, now time.Time) bool {
	claims := jwt.MapClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(token, claims); err != nil {
		return false
	}
	exp, err := claims.GetExpirationTime()
	if err != nil || exp == nil {
		return false
	}
	return exp.Before(now)
}
