package main

import (
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/jrsteele09/go-jwt-grant/token"
	"github.com/stretchr/testify/require"
)

func TestMintFlags(t *testing.T) {
	t.Run("signs with the client secret", func(t *testing.T) {
		f := mintFlags{clientID: "my-app", secret: "s3cret", subject: "alice", ttl: time.Minute}
		raw, err := f.mint()
		require.NoError(t, err)

		claims := jwt.MapClaims{}
		_, err = jwt.ParseWithClaims(raw, claims, func(*jwt.Token) (any, error) { return []byte("s3cret"), nil })
		require.NoError(t, err)
		require.Equal(t, "my-app", claims["iss"])
		require.Equal(t, "alice", claims["sub"])
	})

	t.Run("requires a client", func(t *testing.T) {
		f := mintFlags{secret: "s3cret"}
		_, err := f.mint()
		require.Error(t, err)
	})
}

func TestGenerateSigningKey(t *testing.T) {
	for _, alg := range []string{"RS256", "PS256", "ES384"} {
		pemData, err := generateSigningKey(alg)
		require.NoError(t, err, alg)
		_, err = token.NewSignerFromPEM(alg, pemData)
		require.NoError(t, err, alg)
	}

	_, err := generateSigningKey("HS256")
	require.Error(t, err)
	_, err = generateSigningKey("nope")
	require.Error(t, err)
}
