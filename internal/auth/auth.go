package auth

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"github.com/Justvicky153/ratplacecopy/internal/store"
	"github.com/Justvicky153/ratplacecopy/pkg/market"
)

var (
	// ErrInvalidCredentials covers both unknown usernames and wrong
	// passwords, so login failures are indistinguishable to the caller.
	ErrInvalidCredentials = errors.New("invalid credentials")

	// ErrSessionExpired is returned for tokens past their TTL.
	ErrSessionExpired = errors.New("session expired")
)

// DefaultSessionTTL is used when no TTL is configured.
const DefaultSessionTTL = 24 * time.Hour

// Manager verifies admin credentials and issues server-side sessions.
type Manager struct {
	store      store.Store
	sessionTTL time.Duration
}

// NewManager creates an auth manager.
func NewManager(s store.Store, sessionTTL time.Duration) *Manager {
	if sessionTTL <= 0 {
		sessionTTL = DefaultSessionTTL
	}
	return &Manager{store: s, sessionTTL: sessionTTL}
}

// HashPassword returns a bcrypt hash for storage.
func HashPassword(password string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return "", fmt.Errorf("hash password: %w", err)
	}
	return string(hash), nil
}

// Login verifies the credentials against the stored bcrypt hash and
// issues a session token with a TTL.
func (m *Manager) Login(ctx context.Context, username, password string) (*market.Session, error) {
	admin, err := m.store.GetAdmin(ctx, username)
	if errors.Is(err, store.ErrNotFound) {
		return nil, ErrInvalidCredentials
	}
	if err != nil {
		return nil, fmt.Errorf("login %s: %w", username, err)
	}

	if bcrypt.CompareHashAndPassword([]byte(admin.PasswordHash), []byte(password)) != nil {
		return nil, ErrInvalidCredentials
	}

	now := time.Now().UTC()
	sess := &market.Session{
		Token:     uuid.NewString(),
		Username:  admin.Username,
		CreatedAt: now,
		ExpiresAt: now.Add(m.sessionTTL),
	}
	if err := m.store.CreateSession(ctx, sess); err != nil {
		return nil, fmt.Errorf("login %s: %w", username, err)
	}
	return sess, nil
}

// Authenticate resolves a session token to its admin account. Expired
// tokens fail even before the periodic purge removes them.
func (m *Manager) Authenticate(ctx context.Context, token string) (*market.Admin, error) {
	sess, err := m.store.GetSession(ctx, token)
	if errors.Is(err, store.ErrNotFound) {
		return nil, ErrInvalidCredentials
	}
	if err != nil {
		return nil, fmt.Errorf("authenticate: %w", err)
	}

	if time.Now().UTC().After(sess.ExpiresAt) {
		_ = m.store.DeleteSession(ctx, token)
		return nil, ErrSessionExpired
	}

	admin, err := m.store.GetAdmin(ctx, sess.Username)
	if errors.Is(err, store.ErrNotFound) {
		// Account deleted while the session was live.
		_ = m.store.DeleteSession(ctx, token)
		return nil, ErrInvalidCredentials
	}
	if err != nil {
		return nil, fmt.Errorf("authenticate: %w", err)
	}
	return admin, nil
}

// Logout invalidates a session token.
func (m *Manager) Logout(ctx context.Context, token string) error {
	return m.store.DeleteSession(ctx, token)
}

// PurgeExpired removes sessions past their TTL.
func (m *Manager) PurgeExpired(ctx context.Context) (int64, error) {
	return m.store.DeleteExpiredSessions(ctx, time.Now().UTC())
}
