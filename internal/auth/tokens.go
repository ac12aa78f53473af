package auth

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/prk-tuition/homework-service/internal/models"
)

var (
	ErrInvalidToken   = errors.New("invalid or expired token")
	ErrSessionRevoked = errors.New("session has been logged out")
)

// TokenManager issues signed session tokens and checks them against the
// revocation store.
type TokenManager struct {
	secret string
	issuer string
	ttl    time.Duration
	store  SessionStore
	now    func() time.Time
}

func NewTokenManager(secret, issuer string, ttl time.Duration, store SessionStore) *TokenManager {
	return &TokenManager{
		secret: secret,
		issuer: issuer,
		ttl:    ttl,
		store:  store,
		now:    time.Now,
	}
}

func (m *TokenManager) Issue(user *models.User) (string, *Session, error) {
	now := m.now().UTC()
	session := &Session{
		ID:        uuid.New().String(),
		Email:     user.Email,
		Name:      user.Name,
		Role:      user.Role,
		ExpiresAt: now.Add(m.ttl),
	}

	token, err := NewAccessToken(m.secret, m.issuer, session.ID, now, m.ttl, Claims{
		Email: user.Email,
		Name:  user.Name,
		Role:  string(user.Role),
	})
	if err != nil {
		return "", nil, fmt.Errorf("failed to sign token: %w", err)
	}

	return token, session, nil
}

func (m *TokenManager) Verify(ctx context.Context, token string) (*Session, error) {
	claims, err := ParseToken(m.secret, token)
	if err != nil {
		return nil, ErrInvalidToken
	}

	revoked, err := m.store.IsRevoked(ctx, claims.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to check session: %w", err)
	}
	if revoked {
		return nil, ErrSessionRevoked
	}

	session := &Session{
		ID:    claims.ID,
		Email: claims.Email,
		Name:  claims.Name,
		Role:  models.Role(claims.Role),
	}
	if claims.ExpiresAt != nil {
		session.ExpiresAt = claims.ExpiresAt.Time
	}

	return session, nil
}

func (m *TokenManager) Revoke(ctx context.Context, s *Session) error {
	return m.store.Revoke(ctx, s.ID, time.Until(s.ExpiresAt))
}
