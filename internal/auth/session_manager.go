package auth

import (
	"context"
	"errors"
	"time"

	"github.com/videotube/backend/internal/models"
)

var (
	// ErrSessionNotFound indicates the provided refresh token does not map to an active session.
	ErrSessionNotFound = errors.New("session not found")
	// ErrRefreshTokenExpired indicates the refresh token has expired and cannot be used.
	ErrRefreshTokenExpired = errors.New("refresh token expired")
)

// SessionStore persists issued refresh tokens so they can survive process restarts.
// Tokens are stored and looked up by their HashToken digest.
type SessionStore interface {
	Save(ctx context.Context, session Session) error
	Find(ctx context.Context, tokenHash string) (Session, error)
	Delete(ctx context.Context, tokenHash string) error
}

// Session represents a refresh token issued to an account.
type Session struct {
	TokenHash string
	AccountID string
	ExpiresAt time.Time
}

// Manager manages the lifecycle of issued session tokens backed by a persistent store.
type Manager struct {
	tokens     *TokenService
	refreshTTL time.Duration

	store SessionStore
	now   func() time.Time
}

// NewManager constructs a Manager issuing access tokens from tokens and refresh
// tokens valid for refreshTTL.
func NewManager(tokens *TokenService, refreshTTL time.Duration, store SessionStore) *Manager {
	if store == nil {
		panic("auth: session store must not be nil")
	}
	if tokens == nil {
		panic("auth: token service must not be nil")
	}
	return &Manager{
		tokens:     tokens,
		refreshTTL: refreshTTL,
		store:      store,
		now:        time.Now,
	}
}

// Issue creates a new pair of access and refresh tokens for the provided account.
func (m *Manager) Issue(ctx context.Context, accountID string) (models.SessionTokens, error) {
	if accountID == "" {
		return models.SessionTokens{}, errors.New("account id must be provided")
	}

	accessToken, accessExpiresAt, err := m.tokens.IssueAccessToken(accountID)
	if err != nil {
		return models.SessionTokens{}, err
	}

	refreshToken, err := RandomToken()
	if err != nil {
		return models.SessionTokens{}, err
	}

	tokens := models.SessionTokens{
		AccessToken:      accessToken,
		AccessExpiresAt:  accessExpiresAt,
		RefreshToken:     refreshToken,
		RefreshExpiresAt: m.now().UTC().Add(m.refreshTTL),
	}

	if err := m.store.Save(ctx, Session{
		TokenHash: HashToken(refreshToken),
		AccountID: accountID,
		ExpiresAt: tokens.RefreshExpiresAt,
	}); err != nil {
		return models.SessionTokens{}, err
	}

	return tokens, nil
}

// Refresh exchanges a refresh token for a new session token pair. The old
// refresh token is revoked.
func (m *Manager) Refresh(ctx context.Context, refreshToken string) (models.SessionTokens, error) {
	if refreshToken == "" {
		return models.SessionTokens{}, ErrSessionNotFound
	}

	hash := HashToken(refreshToken)
	session, err := m.store.Find(ctx, hash)
	if err != nil {
		return models.SessionTokens{}, err
	}

	if m.now().UTC().After(session.ExpiresAt) {
		_ = m.store.Delete(ctx, hash)
		return models.SessionTokens{}, ErrRefreshTokenExpired
	}

	if err := m.store.Delete(ctx, hash); err != nil {
		return models.SessionTokens{}, err
	}

	return m.Issue(ctx, session.AccountID)
}

// Revoke removes the provided refresh token from the active session store.
func (m *Manager) Revoke(ctx context.Context, refreshToken string) {
	if refreshToken == "" {
		return
	}
	_ = m.store.Delete(ctx, HashToken(refreshToken))
}

// AccountID validates an access token and returns the account it was issued to.
func (m *Manager) AccountID(accessToken string) (string, error) {
	claims, err := m.tokens.ValidateAccessToken(accessToken)
	if err != nil {
		return "", err
	}
	return claims.AccountID, nil
}
