// Package session persists the bearer token between CLI runs.
package session

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/conorfennell/knolboard/internal/storage"
)

// Store is the persistence the manager needs. *storage.DB satisfies it.
type Store interface {
	SaveSession(ctx context.Context, s storage.Session) error
	LoadSession(ctx context.Context) (*storage.Session, error)
	ClearSession(ctx context.Context) error
}

// Manager is a token store backed by the local database. Expired tokens are
// dropped on read so requests go out unauthenticated instead of failing with 401.
type Manager struct {
	store  Store
	now    func() time.Time
	logger *slog.Logger
}

// NewManager creates a Manager.
func NewManager(store Store, logger *slog.Logger) *Manager {
	if logger == nil {
		logger = slog.Default()
	}
	return &Manager{store: store, now: time.Now, logger: logger}
}

// Token returns the stored token, or "" when there is none or it has expired.
func (m *Manager) Token(ctx context.Context) (string, error) {
	s, err := m.store.LoadSession(ctx)
	if err != nil {
		return "", err
	}
	if s == nil {
		return "", nil
	}
	if s.ExpiresAt.Valid && !m.now().Before(s.ExpiresAt.Time) {
		m.logger.Info("session expired", "username", s.Username, "expired_at", s.ExpiresAt.Time)
		if err := m.store.ClearSession(ctx); err != nil {
			return "", err
		}
		return "", nil
	}
	return s.Token, nil
}

// SaveToken stores token for username along with its expiry, if the token carries one.
func (m *Manager) SaveToken(ctx context.Context, username, token string) error {
	s := storage.Session{Username: username, Token: token}
	if exp, ok := Expiry(token); ok {
		s.ExpiresAt = sql.NullTime{Time: exp, Valid: true}
	}
	if err := m.store.SaveSession(ctx, s); err != nil {
		return fmt.Errorf("failed to save session: %w", err)
	}
	m.logger.Debug("session saved", "username", username, "expires", s.ExpiresAt.Valid)
	return nil
}

// ClearToken forgets the stored session.
func (m *Manager) ClearToken(ctx context.Context) error {
	return m.store.ClearSession(ctx)
}

// Current returns the stored session, expired or not, or nil when logged out.
func (m *Manager) Current(ctx context.Context) (*storage.Session, error) {
	return m.store.LoadSession(ctx)
}

// Expiry reads the exp claim of a JWT without verifying its signature. The
// server remains the authority on validity; this only avoids sending tokens
// known to be stale. Opaque tokens report false.
func Expiry(token string) (time.Time, bool) {
	parsed, _, err := jwt.NewParser().ParseUnverified(token, jwt.MapClaims{})
	if err != nil {
		return time.Time{}, false
	}
	exp, err := parsed.Claims.GetExpirationTime()
	if err != nil || exp == nil {
		return time.Time{}, false
	}
	return exp.Time, true
}
