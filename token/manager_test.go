package token_test

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/golang-jwt/jwt/v5"
	"github.com/jrsteele09/go-jwt-grant/clients"
	"github.com/jrsteele09/go-jwt-grant/internal/errors"
	"github.com/jrsteele09/go-jwt-grant/scopes"
	"github.com/jrsteele09/go-jwt-grant/token"
	"github.com/jrsteele09/go-jwt-grant/token/memstore"
	"github.com/jrsteele09/go-jwt-grant/token/redisstore"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"
)

type reuse bool

func (r reuse) GetReuseAccessToken() bool { return bool(r) }

type testFixture struct {
	ctx    context.Context
	now    time.Time
	store  token.Store
	issuer *token.Issuer
	client *clients.Client
}

func setupTestFixture(t *testing.T, options ...token.IssuerOption) *testFixture {
	t.Helper()
	f := &testFixture{
		ctx:    context.Background(),
		now:    time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC),
		store:  memstore.New(),
		client: &clients.Client{UID: "some-uid", Secret: "some-secret"},
	}
	options = append([]token.IssuerOption{
		token.WithIssuer("http://localhost:8080"),
		token.WithAccessTokenExpiry(time.Hour),
		token.WithNowFunc(func() time.Time { return f.now }),
	}, options...)
	f.issuer = token.NewIssuer(f.store, token.NewHMACSigner("server-secret"), options...)
	return f
}

func (f *testFixture) count(t *testing.T) int {
	t.Helper()
	n, err := f.store.Count(f.ctx)
	require.NoError(t, err)
	return n
}

func TestFindOrCreateAccessToken(t *testing.T) {
	t.Run("creates a signed token", func(t *testing.T) {
		f := setupTestFixture(t)
		at, err := f.issuer.FindOrCreateAccessToken(f.ctx, f.client, "99", scopes.New("public"), reuse(false))
		require.NoError(t, err)
		require.Equal(t, 1, f.count(t))
		require.Equal(t, "99", at.ResourceOwnerID)
		require.Equal(t, "some-uid", at.ClientUID)
		require.Empty(t, at.RefreshToken)
		require.Equal(t, 3600, at.ExpiresInSeconds(f.now))

		parsed, err := jwt.Parse(at.Token, func(*jwt.Token) (any, error) { return []byte("server-secret"), nil },
			jwt.WithTimeFunc(func() time.Time { return f.now }))
		require.NoError(t, err)
		claims := parsed.Claims.(jwt.MapClaims)
		require.Equal(t, "99", claims["sub"])
		require.Equal(t, "some-uid", claims["client_id"])
		require.Equal(t, "public", claims["scope"])
		require.Equal(t, at.ID, claims["jti"])
		require.Equal(t, "http://localhost:8080", claims["iss"])
	})

	t.Run("creates a token even when there is already one (default)", func(t *testing.T) {
		f := setupTestFixture(t)
		first, err := f.issuer.FindOrCreateAccessToken(f.ctx, f.client, "99", nil, reuse(false))
		require.NoError(t, err)
		second, err := f.issuer.FindOrCreateAccessToken(f.ctx, f.client, "99", nil, reuse(false))
		require.NoError(t, err)
		require.NotEqual(t, first.Token, second.Token)
		require.Equal(t, 2, f.count(t))
	})

	t.Run("reuses an accessible token with the same scopes", func(t *testing.T) {
		f := setupTestFixture(t)
		first, err := f.issuer.FindOrCreateAccessToken(f.ctx, f.client, "99", scopes.New("a", "b"), reuse(true))
		require.NoError(t, err)
		f.now = f.now.Add(10 * time.Minute)

		second, err := f.issuer.FindOrCreateAccessToken(f.ctx, f.client, "99", scopes.New("b", "a"), reuse(true))
		require.NoError(t, err)
		require.Equal(t, first.Token, second.Token)
		require.Equal(t, 1, f.count(t))
		require.Equal(t, 3000, second.ExpiresInSeconds(f.now))
	})

	t.Run("does not reuse across scopes, owners or expiry", func(t *testing.T) {
		f := setupTestFixture(t)
		_, err := f.issuer.FindOrCreateAccessToken(f.ctx, f.client, "99", scopes.New("a"), reuse(true))
		require.NoError(t, err)

		_, err = f.issuer.FindOrCreateAccessToken(f.ctx, f.client, "99", scopes.New("b"), reuse(true))
		require.NoError(t, err)
		require.Equal(t, 2, f.count(t))

		_, err = f.issuer.FindOrCreateAccessToken(f.ctx, f.client, "100", scopes.New("b"), reuse(true))
		require.NoError(t, err)
		require.Equal(t, 3, f.count(t))

		f.now = f.now.Add(2 * time.Hour)
		_, err = f.issuer.FindOrCreateAccessToken(f.ctx, f.client, "100", scopes.New("b"), reuse(true))
		require.NoError(t, err)
		require.Equal(t, 4, f.count(t))
	})

	t.Run("does not reuse a revoked token", func(t *testing.T) {
		f := setupTestFixture(t)
		first, err := f.issuer.FindOrCreateAccessToken(f.ctx, f.client, "99", nil, reuse(true))
		require.NoError(t, err)
		require.NoError(t, f.issuer.Revoke(f.ctx, first.Token))

		second, err := f.issuer.FindOrCreateAccessToken(f.ctx, f.client, "99", nil, reuse(true))
		require.NoError(t, err)
		require.NotEqual(t, first.Token, second.Token)
	})

	t.Run("issues a refresh token when enabled", func(t *testing.T) {
		f := setupTestFixture(t, token.WithRefreshTokens(true, 32))
		at, err := f.issuer.FindOrCreateAccessToken(f.ctx, f.client, "99", nil, reuse(false))
		require.NoError(t, err)
		require.Len(t, at.RefreshToken, 64)

		stored, err := f.store.GetByRefreshToken(f.ctx, at.RefreshToken)
		require.NoError(t, err)
		require.Equal(t, at.Token, stored.Token)
	})

	t.Run("requires a client", func(t *testing.T) {
		f := setupTestFixture(t)
		_, err := f.issuer.FindOrCreateAccessToken(f.ctx, nil, "99", nil, reuse(false))
		require.ErrorIs(t, err, errors.ErrInvalidClient)
		require.Zero(t, f.count(t))
	})
}

func TestIntrospectAndRevoke(t *testing.T) {
	f := setupTestFixture(t, token.WithRefreshTokens(true, 16))
	at, err := f.issuer.CreateAccessToken(f.ctx, f.client, "99", scopes.New("public"))
	require.NoError(t, err)

	t.Run("active access token", func(t *testing.T) {
		info, err := f.issuer.Introspect(f.ctx, at.Token)
		require.NoError(t, err)
		require.True(t, info.Active)
		require.Equal(t, "public", info.Scope)
		require.Equal(t, "some-uid", info.ClientID)
		require.Equal(t, "99", info.Sub)
		require.Equal(t, f.now.Add(time.Hour).Unix(), info.Exp)
	})

	t.Run("active refresh token", func(t *testing.T) {
		info, err := f.issuer.Introspect(f.ctx, at.RefreshToken)
		require.NoError(t, err)
		require.True(t, info.Active)
		require.Equal(t, "refresh_token", info.TokenType)
	})

	t.Run("unknown token", func(t *testing.T) {
		info, err := f.issuer.Introspect(f.ctx, "nope")
		require.NoError(t, err)
		require.False(t, info.Active)

		info, err = f.issuer.Introspect(f.ctx, "  ")
		require.NoError(t, err)
		require.False(t, info.Active)
	})

	t.Run("expired token", func(t *testing.T) {
		g := setupTestFixture(t)
		expired, err := g.issuer.CreateAccessToken(g.ctx, g.client, "99", nil)
		require.NoError(t, err)
		g.now = g.now.Add(2 * time.Hour)

		info, err := g.issuer.Introspect(g.ctx, expired.Token)
		require.NoError(t, err)
		require.False(t, info.Active)
	})

	t.Run("revoked through the refresh token", func(t *testing.T) {
		require.NoError(t, f.issuer.Revoke(f.ctx, at.RefreshToken))
		info, err := f.issuer.Introspect(f.ctx, at.Token)
		require.NoError(t, err)
		require.False(t, info.Active)

		require.NoError(t, f.issuer.Revoke(f.ctx, at.Token))
		require.NoError(t, f.issuer.Revoke(f.ctx, "unknown"))
	})
}

func TestSigners(t *testing.T) {
	for _, alg := range []string{"HS256", "HS384", "RS256", "PS256", "ES256", "ES384"} {
		t.Run(alg, func(t *testing.T) {
			signer, err := token.NewSigner(alg, "server-secret")
			require.NoError(t, err)
			require.Equal(t, alg, signer.GetSigningMethod().Alg())

			raw, err := signer.Sign(jwt.MapClaims{"sub": "99"})
			require.NoError(t, err)
			parsed, err := jwt.Parse(raw, signer.GetVerificationKey)
			require.NoError(t, err)
			require.True(t, parsed.Valid)

			jwks, err := signer.GetJWKS()
			require.NoError(t, err)
			if strings.HasPrefix(alg, "HS") {
				require.Nil(t, jwks)
				return
			}
			require.Len(t, jwks.Keys, 1)
			require.Equal(t, alg, jwks.Keys[0].Alg)
			require.Equal(t, parsed.Header["kid"], jwks.Keys[0].Kid)
		})
	}

	t.Run("curve follows the algorithm", func(t *testing.T) {
		signer, err := token.NewSigner("ES384", "")
		require.NoError(t, err)
		jwks, err := signer.GetJWKS()
		require.NoError(t, err)
		require.Equal(t, "EC", jwks.Keys[0].Kty)
		require.Equal(t, "P-384", jwks.Keys[0].Crv)
		require.Len(t, jwks.Keys[0].X, 64)
	})

	t.Run("rejects tokens from another key", func(t *testing.T) {
		signer, err := token.NewSigner("RS256", "")
		require.NoError(t, err)
		other, err := token.NewSigner("RS256", "")
		require.NoError(t, err)

		raw, err := other.Sign(jwt.MapClaims{"sub": "99"})
		require.NoError(t, err)
		_, err = jwt.Parse(raw, signer.GetVerificationKey)
		require.Error(t, err)
	})

	t.Run("HMAC without a secret", func(t *testing.T) {
		_, err := token.NewSigner("HS256", "")
		require.Error(t, err)
	})

	t.Run("unsupported", func(t *testing.T) {
		_, err := token.NewSigner("none", "")
		require.ErrorIs(t, err, errors.ErrUnsupportedSigner)
	})

	t.Run("loads a stored private key", func(t *testing.T) {
		for _, alg := range []string{"RS256", "PS384", "ES256", "ES512"} {
			keyPair, err := token.GenerateKeyPair("ignored", jwt.GetSigningMethod(alg))
			require.NoError(t, err)
			pemData, err := keyPair.PrivateKeyPEM()
			require.NoError(t, err)

			signer, err := token.NewSignerFromPEM(alg, pemData)
			require.NoError(t, err, alg)
			again, err := token.NewSignerFromPEM(alg, pemData)
			require.NoError(t, err, alg)

			raw, err := signer.Sign(jwt.MapClaims{"sub": "99"})
			require.NoError(t, err)
			parsed, err := jwt.Parse(raw, again.GetVerificationKey)
			require.NoError(t, err, alg)
			require.True(t, parsed.Valid)

			jwks, err := again.GetJWKS()
			require.NoError(t, err)
			require.Equal(t, parsed.Header["kid"], jwks.Keys[0].Kid)
		}
	})

	t.Run("stored key must match the curve", func(t *testing.T) {
		keyPair, err := token.GenerateKeyPair("ignored", jwt.SigningMethodES384)
		require.NoError(t, err)
		pemData, err := keyPair.PrivateKeyPEM()
		require.NoError(t, err)

		_, err = token.NewSignerFromPEM("ES256", pemData)
		require.ErrorContains(t, err, "P-256")
	})

	t.Run("HMAC has no private key", func(t *testing.T) {
		_, err := token.NewSignerFromPEM("HS256", []byte("secret"))
		require.ErrorIs(t, err, errors.ErrUnsupportedSigner)
		_, err = token.NewSignerFromPEM("RS256", []byte("not a key"))
		require.Error(t, err)
	})
}

func TestIssuersSharingRedis(t *testing.T) {
	ctx := context.Background()
	client := &clients.Client{UID: "some-uid", Secret: "some-secret"}

	setup := func(t *testing.T, first, second token.Signer) (*token.Issuer, *token.Issuer, token.Store) {
		t.Helper()
		mr := miniredis.RunT(t)
		rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
		t.Cleanup(func() { _ = rdb.Close() })
		store := redisstore.NewWithClient(rdb, "test:")
		return token.NewIssuer(store, first, token.WithAccessTokenExpiry(time.Hour)),
			token.NewIssuer(store, second, token.WithAccessTokenExpiry(time.Hour)),
			store
	}

	t.Run("a restarted server with a new key issues a fresh token", func(t *testing.T) {
		before, err := token.NewSigner("RS256", "")
		require.NoError(t, err)
		after, err := token.NewSigner("RS256", "")
		require.NoError(t, err)
		old, restarted, store := setup(t, before, after)

		first, err := old.FindOrCreateAccessToken(ctx, client, "99", scopes.New("public"), reuse(true))
		require.NoError(t, err)
		second, err := restarted.FindOrCreateAccessToken(ctx, client, "99", scopes.New("public"), reuse(true))
		require.NoError(t, err)
		require.NotEqual(t, first.Token, second.Token)

		info, err := restarted.Introspect(ctx, second.Token)
		require.NoError(t, err)
		require.True(t, info.Active)

		n, err := store.Count(ctx)
		require.NoError(t, err)
		require.Equal(t, 2, n)
	})

	t.Run("replicas with the same key reuse the token", func(t *testing.T) {
		keyPair, err := token.GenerateKeyPair("ignored", jwt.SigningMethodRS256)
		require.NoError(t, err)
		pemData, err := keyPair.PrivateKeyPEM()
		require.NoError(t, err)
		one, err := token.NewSignerFromPEM("RS256", pemData)
		require.NoError(t, err)
		two, err := token.NewSignerFromPEM("RS256", pemData)
		require.NoError(t, err)
		a, b, store := setup(t, one, two)

		first, err := a.FindOrCreateAccessToken(ctx, client, "99", scopes.New("public"), reuse(true))
		require.NoError(t, err)
		second, err := b.FindOrCreateAccessToken(ctx, client, "99", scopes.New("public"), reuse(true))
		require.NoError(t, err)
		require.Equal(t, first.Token, second.Token)

		info, err := b.Introspect(ctx, first.Token)
		require.NoError(t, err)
		require.True(t, info.Active)

		n, err := store.Count(ctx)
		require.NoError(t, err)
		require.Equal(t, 1, n)
	})
}
