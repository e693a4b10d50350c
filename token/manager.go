package token

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/jrsteele09/go-jwt-grant/clients"
	"github.com/jrsteele09/go-jwt-grant/internal/errors"
	"github.com/jrsteele09/go-jwt-grant/scopes"
)

// IssueConfig carries the server policy consulted at issuance.
type IssueConfig interface {
	GetReuseAccessToken() bool
}

// Introspection represents the metadata of an OAuth 2.0 token (RFC 7662).
// When Active is false the other fields are not populated.
type Introspection struct {
	Active    bool   `json:"active"`
	Scope     string `json:"scope,omitempty"`
	ClientID  string `json:"client_id,omitempty"`
	TokenType string `json:"token_type,omitempty"`
	Exp       int64  `json:"exp,omitempty"`
	Iat       int64  `json:"iat,omitempty"`
	Sub       string `json:"sub,omitempty"`
	Aud       string `json:"aud,omitempty"`
	Iss       string `json:"iss,omitempty"`
	Jti       string `json:"jti,omitempty"`
}

// Issuer mints, reuses, introspects and revokes access tokens.
type Issuer struct {
	store               Store
	signer              Signer
	issuer              string
	accessTokenExpiry   time.Duration
	refreshTokenEnabled bool
	refreshTokenLength  int
	nowFunc             func() time.Time
}

type IssuerOption func(*Issuer)

func WithAccessTokenExpiry(expiry time.Duration) IssuerOption {
	return func(m *Issuer) {
		m.accessTokenExpiry = expiry
	}
}

// WithRefreshTokens issues an opaque refresh token of length random bytes with every new access token.
func WithRefreshTokens(enabled bool, length int) IssuerOption {
	return func(m *Issuer) {
		m.refreshTokenEnabled = enabled
		m.refreshTokenLength = length
	}
}

func WithIssuer(issuer string) IssuerOption {
	return func(m *Issuer) {
		m.issuer = issuer
	}
}

func WithNowFunc(now func() time.Time) IssuerOption {
	return func(m *Issuer) {
		m.nowFunc = now
	}
}

func NewIssuer(store Store, signer Signer, options ...IssuerOption) *Issuer {
	m := &Issuer{
		store:  store,
		signer: signer,
	}
	for _, opt := range options {
		opt(m)
	}

	if m.accessTokenExpiry == 0 {
		m.accessTokenExpiry = 2 * time.Hour
	}
	if m.refreshTokenLength == 0 {
		m.refreshTokenLength = 32
	}
	if m.nowFunc == nil {
		m.nowFunc = time.Now
	}
	return m
}

// ExpiresIn is the lifetime given to new access tokens.
func (m *Issuer) ExpiresIn() time.Duration {
	return m.accessTokenExpiry
}

// Signer returns the access token signer.
func (m *Issuer) Signer() Signer {
	return m.signer
}

// Now returns the issuer's clock reading.
func (m *Issuer) Now() time.Time {
	return m.nowFunc()
}

// FindOrCreateAccessToken returns the latest accessible token for the client
// and resource owner when reuse is enabled, its scopes match exactly and the
// current signer verifies it. Otherwise a new token is created. Concurrent
// callers may each create one.
func (m *Issuer) FindOrCreateAccessToken(ctx context.Context, client *clients.Client, resourceOwnerID string, requested scopes.Scopes, cfg IssueConfig) (*AccessToken, error) {
	if client == nil {
		return nil, errors.Wrapf(errors.ErrInvalidClient, "Issuer.FindOrCreateAccessToken")
	}

	if cfg != nil && cfg.GetReuseAccessToken() {
		existing, err := m.store.FindLatest(ctx, client.UID, resourceOwnerID)
		switch {
		case err == nil:
			if existing.Accessible(m.nowFunc()) && existing.Scopes.Equal(requested) && m.signedByCurrentKey(existing.Token) {
				return existing, nil
			}
		case !errors.Is(err, errors.ErrNotFound):
			return nil, errors.Wrapf(err, "Issuer.FindOrCreateAccessToken FindLatest")
		}
	}

	return m.CreateAccessToken(ctx, client, resourceOwnerID, requested)
}

// signedByCurrentKey is false for tokens signed before a key rotation or by
// another server sharing the store.
func (m *Issuer) signedByCurrentKey(raw string) bool {
	_, err := jwt.NewParser(jwt.WithoutClaimsValidation()).Parse(raw, m.signer.GetVerificationKey)
	return err == nil
}

// CreateAccessToken mints and persists a new access token.
func (m *Issuer) CreateAccessToken(ctx context.Context, client *clients.Client, resourceOwnerID string, requested scopes.Scopes) (*AccessToken, error) {
	now := m.nowFunc()
	at := &AccessToken{
		ID:              uuid.New().String(),
		ClientUID:       client.UID,
		ResourceOwnerID: resourceOwnerID,
		Scopes:          scopes.New(requested...),
		ExpiresIn:       m.accessTokenExpiry,
		CreatedAt:       now,
	}

	claims := jwt.MapClaims{
		"iss":       m.issuer,        // The issuer of the token
		"sub":       resourceOwnerID, // The resource owner the token acts for
		"aud":       client.UID,      // The client the token was issued to
		"client_id": client.UID,
		"iat":       now.Unix(),                          // Issued At: the time at which the token was issued
		"exp":       now.Add(m.accessTokenExpiry).Unix(), // Expiry: when the token will expire
		"jti":       at.ID,                               // Unique token ID for revocation
	}
	if !at.Scopes.IsEmpty() {
		claims["scope"] = at.Scopes.String()
	}

	signed, err := m.signer.Sign(claims)
	if err != nil {
		return nil, errors.Wrapf(err, "Issuer.CreateAccessToken Sign")
	}
	at.Token = signed

	if m.refreshTokenEnabled {
		if at.RefreshToken, err = randomToken(m.refreshTokenLength); err != nil {
			return nil, errors.Wrapf(err, "Issuer.CreateAccessToken refresh token")
		}
	}

	if err := m.store.Create(ctx, at); err != nil {
		return nil, errors.Wrapf(err, "Issuer.CreateAccessToken Create")
	}
	return at, nil
}

// Introspect reports whether raw is an active access or refresh token.
func (m *Issuer) Introspect(ctx context.Context, raw string) (*Introspection, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return &Introspection{Active: false}, nil
	}

	record, err := m.lookup(ctx, raw)
	if errors.Is(err, errors.ErrNotFound) {
		return &Introspection{Active: false}, nil
	}
	if err != nil {
		return nil, errors.Wrapf(err, "Issuer.Introspect")
	}
	if record.Revoked() {
		return &Introspection{Active: false}, nil
	}

	if raw == record.RefreshToken {
		return &Introspection{
			Active:    true,
			Scope:     record.Scopes.String(),
			ClientID:  record.ClientUID,
			TokenType: "refresh_token",
			Iat:       record.CreatedAt.Unix(),
			Sub:       record.ResourceOwnerID,
		}, nil
	}

	parser := jwt.NewParser(jwt.WithTimeFunc(m.nowFunc), jwt.WithExpirationRequired())
	token, err := parser.Parse(raw, m.signer.GetVerificationKey)
	if err != nil || !token.Valid {
		return &Introspection{Active: false}, nil
	}
	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok {
		return &Introspection{Active: false}, nil
	}

	iss, _ := claims.GetIssuer()
	sub, _ := claims.GetSubject()
	jti, _ := claims["jti"].(string)
	exp, _ := claims.GetExpirationTime()
	iat, _ := claims.GetIssuedAt()

	result := &Introspection{
		Active:    true,
		Scope:     record.Scopes.String(),
		ClientID:  record.ClientUID,
		TokenType: "Bearer",
		Sub:       sub,
		Aud:       record.ClientUID,
		Iss:       iss,
		Jti:       jti,
	}
	if exp != nil {
		result.Exp = exp.Unix()
	}
	if iat != nil {
		result.Iat = iat.Unix()
	}
	return result, nil
}

// Revoke revokes the access token that raw identifies, directly or through
// its refresh token. Unknown tokens are ignored.
func (m *Issuer) Revoke(ctx context.Context, raw string) error {
	record, err := m.lookup(ctx, strings.TrimSpace(raw))
	if errors.Is(err, errors.ErrNotFound) {
		return nil
	}
	if err != nil {
		return errors.Wrapf(err, "Issuer.Revoke")
	}
	if record.Revoked() {
		return nil
	}
	return m.store.Revoke(ctx, record.Token, m.nowFunc())
}

// Find returns the record raw identifies, as an access or refresh token,
// whatever its state. Unknown tokens give errors.ErrNotFound.
func (m *Issuer) Find(ctx context.Context, raw string) (*AccessToken, error) {
	return m.lookup(ctx, strings.TrimSpace(raw))
}

func (m *Issuer) lookup(ctx context.Context, raw string) (*AccessToken, error) {
	if raw == "" {
		return nil, errors.ErrNotFound
	}
	record, err := m.store.GetByToken(ctx, raw)
	if errors.Is(err, errors.ErrNotFound) {
		return m.store.GetByRefreshToken(ctx, raw)
	}
	return record, err
}

func randomToken(length int) (string, error) {
	tokenBytes := make([]byte, length)
	if _, err := rand.Read(tokenBytes); err != nil {
		return "", fmt.Errorf("rand.Read: %w", err)
	}
	return hex.EncodeToString(tokenBytes), nil
}
