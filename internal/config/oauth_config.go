package config

import (
	"strings"
	"time"

	"github.com/jrsteele09/go-jwt-grant/scopes"
	"github.com/spf13/viper"
)

const (
	signingAlgorithmKey    = "oauth.signing.algorithm"
	signingSecretKey       = "oauth.signing.secret"
	signingKeyFileKey      = "oauth.signing.private_key_file"
	accessTokenExpiryKey   = "oauth.access_token_expiry"
	refreshTokenEnabledKey = "oauth.refresh_token_enabled"
	reuseAccessTokenKey    = "oauth.reuse_access_token"
	defaultScopesKey       = "oauth.default_scopes"
	optionalScopesKey      = "oauth.optional_scopes"
)

type OAuthConfig interface {
	GetSigningAlgorithm() string
	GetSigningSecret() string
	GetSigningPrivateKeyFile() string
	HasPersistentSigningKey() bool
	GetAccessTokenExpiry() time.Duration
	GetRefreshTokenEnabled() bool
	GetRefreshTokenLength() int
	GetReuseAccessToken() bool
	GetDefaultScopes() scopes.Scopes
	GetOptionalScopes() scopes.Scopes
	GetScopes() scopes.Scopes
}

type OAuth struct {
	v *viper.Viper
	// fallbackSecret signs HMAC tokens when no secret is configured. It dies
	// with the process.
	fallbackSecret string
}

var _ OAuthConfig = OAuth{}

func (o OAuth) GetSigningAlgorithm() string {
	return o.v.GetString(signingAlgorithmKey)
}

func (o OAuth) GetSigningSecret() string {
	if secret := o.v.GetString(signingSecretKey); secret != "" {
		return secret
	}
	return o.fallbackSecret
}

// GetSigningPrivateKeyFile names a PEM private key for RSA and ECDSA
// algorithms. Without one a key pair is generated at boot.
func (o OAuth) GetSigningPrivateKeyFile() string {
	return o.v.GetString(signingKeyFileKey)
}

// HasPersistentSigningKey reports whether tokens signed now still verify
// after a restart or on another replica.
func (o OAuth) HasPersistentSigningKey() bool {
	if strings.HasPrefix(strings.ToUpper(o.GetSigningAlgorithm()), "HS") {
		return o.v.GetString(signingSecretKey) != ""
	}
	return o.GetSigningPrivateKeyFile() != ""
}

func (o OAuth) GetAccessTokenExpiry() time.Duration {
	return o.v.GetDuration(accessTokenExpiryKey)
}

func (o OAuth) GetRefreshTokenEnabled() bool {
	return o.v.GetBool(refreshTokenEnabledKey)
}

func (OAuth) GetRefreshTokenLength() int {
	return 32 // 32 bytes = 256 bits
}

func (o OAuth) GetReuseAccessToken() bool {
	return o.v.GetBool(reuseAccessTokenKey)
}

func (o OAuth) GetDefaultScopes() scopes.Scopes {
	return scopes.New(o.v.GetStringSlice(defaultScopesKey)...)
}

func (o OAuth) GetOptionalScopes() scopes.Scopes {
	return scopes.New(o.v.GetStringSlice(optionalScopesKey)...)
}

// GetScopes returns every scope the server accepts: defaults plus optionals.
func (o OAuth) GetScopes() scopes.Scopes {
	return o.GetDefaultScopes().Add(o.GetOptionalScopes()...)
}
