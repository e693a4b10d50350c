package token

import (
	"context"
	"time"

	"github.com/jrsteele09/go-jwt-grant/scopes"
)

// AccessToken is an issued access token and its optional refresh token.
type AccessToken struct {
	ID              string        `json:"id"`
	Token           string        `json:"token"`
	RefreshToken    string        `json:"refresh_token,omitempty"`
	ClientUID       string        `json:"client_uid"`
	ResourceOwnerID string        `json:"resource_owner_id"`
	Scopes          scopes.Scopes `json:"scopes,omitempty"`
	ExpiresIn       time.Duration `json:"expires_in"` // Zero means the token never expires
	CreatedAt       time.Time     `json:"created_at"`
	RevokedAt       *time.Time    `json:"revoked_at,omitempty"`
}

func (t *AccessToken) ExpiresAt() time.Time {
	return t.CreatedAt.Add(t.ExpiresIn)
}

func (t *AccessToken) Expired(now time.Time) bool {
	return t.ExpiresIn > 0 && !now.Before(t.ExpiresAt())
}

func (t *AccessToken) Revoked() bool {
	return t.RevokedAt != nil
}

// Accessible reports whether the token can still be used.
func (t *AccessToken) Accessible(now time.Time) bool {
	return !t.Expired(now) && !t.Revoked()
}

// ExpiresInSeconds returns the remaining lifetime, or 0 for non-expiring tokens.
func (t *AccessToken) ExpiresInSeconds(now time.Time) int {
	if t.ExpiresIn == 0 {
		return 0
	}
	remaining := t.ExpiresAt().Sub(now)
	if remaining < 0 {
		return 0
	}
	return int(remaining.Round(time.Second).Seconds())
}

// Store persists access tokens. Create must be atomic: a failed call leaves
// no partial record. Lookups return errors.ErrNotFound when nothing matches.
type Store interface {
	Create(ctx context.Context, token *AccessToken) error
	// FindLatest returns the most recently created unrevoked token for the pair.
	FindLatest(ctx context.Context, clientUID, resourceOwnerID string) (*AccessToken, error)
	GetByToken(ctx context.Context, token string) (*AccessToken, error)
	GetByRefreshToken(ctx context.Context, refreshToken string) (*AccessToken, error)
	Revoke(ctx context.Context, token string, at time.Time) error
	// Count returns how many tokens were ever created.
	Count(ctx context.Context) (int, error)
}
