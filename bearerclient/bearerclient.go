// Package bearerclient mints JWT bearer assertions and exchanges them for
// access tokens at a discovered token endpoint.
package bearerclient

import (
	"context"
	"fmt"
	"maps"
	"net/http"
	"net/url"
	"time"

	"github.com/coreos/go-oidc/v3/oidc"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	grant "github.com/jrsteele09/go-jwt-grant/oauth2"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/clientcredentials"
)

// DefaultTTL is the assertion lifetime when none is given.
const DefaultTTL = 5 * time.Minute

// Assertion describes the claims of a bearer assertion. Issuer must be the
// client's uid; Subject names the resource owner.
type Assertion struct {
	Issuer   string
	Subject  string
	Audience string
	TTL      time.Duration
	IssuedAt time.Time      // Zero means now
	Extra    map[string]any // Additional claims, never overriding the standard ones
}

func (a Assertion) claims() jwt.MapClaims {
	issuedAt := a.IssuedAt
	if issuedAt.IsZero() {
		issuedAt = time.Now()
	}
	ttl := a.TTL
	if ttl == 0 {
		ttl = DefaultTTL
	}

	claims := jwt.MapClaims{}
	maps.Copy(claims, a.Extra)
	claims["iss"] = a.Issuer
	claims["sub"] = a.Subject
	claims["iat"] = issuedAt.Unix()
	claims["exp"] = issuedAt.Add(ttl).Unix()
	claims["jti"] = uuid.New().String()
	if a.Audience != "" {
		claims["aud"] = a.Audience
	}
	return claims
}

// MintAssertion signs a with the client's shared secret using HS256.
func MintAssertion(a Assertion, secret string) (string, error) {
	if secret == "" {
		return "", fmt.Errorf("a secret is required to sign the assertion")
	}
	return SignAssertion(a, jwt.SigningMethodHS256, []byte(secret))
}

// SignAssertion signs a with key, for clients registered with a public key.
func SignAssertion(a Assertion, method jwt.SigningMethod, key any) (string, error) {
	signed, err := jwt.NewWithClaims(method, a.claims()).SignedString(key)
	if err != nil {
		return "", fmt.Errorf("failed to sign assertion: %w", err)
	}
	return signed, nil
}

// Discover reads the token endpoint from the issuer's discovery document.
func Discover(ctx context.Context, issuerURL string) (string, error) {
	provider, err := oidc.NewProvider(ctx, issuerURL)
	if err != nil {
		return "", fmt.Errorf("discovering %s: %w", issuerURL, err)
	}
	tokenURL := provider.Endpoint().TokenURL
	if tokenURL == "" {
		return "", fmt.Errorf("%s does not advertise a token endpoint", issuerURL)
	}
	return tokenURL, nil
}

// Client exchanges assertions at a token endpoint. ClientSecret may be
// empty when the server does not require client authentication.
type Client struct {
	ClientID     string
	ClientSecret string
	TokenURL     string
	HTTPClient   *http.Client // Defaults to http.DefaultClient
}

// New discovers the token endpoint of issuerURL.
func New(ctx context.Context, issuerURL, clientID, clientSecret string) (*Client, error) {
	tokenURL, err := Discover(ctx, issuerURL)
	if err != nil {
		return nil, err
	}
	return &Client{ClientID: clientID, ClientSecret: clientSecret, TokenURL: tokenURL}, nil
}

// Exchange presents assertion with the JWT bearer grant type. Rejections are
// returned as *oauth2.RetrieveError.
func (c *Client) Exchange(ctx context.Context, assertion string, scopes ...string) (*oauth2.Token, error) {
	cfg := clientcredentials.Config{
		ClientID:     c.ClientID,
		ClientSecret: c.ClientSecret,
		TokenURL:     c.TokenURL,
		Scopes:       scopes,
		EndpointParams: url.Values{
			"grant_type": {string(grant.JWTBearerGrant)},
			"assertion":  {assertion},
		},
		AuthStyle: oauth2.AuthStyleInParams,
	}
	if c.HTTPClient != nil {
		ctx = context.WithValue(ctx, oauth2.HTTPClient, c.HTTPClient)
	}

	tok, err := cfg.Token(ctx)
	if err != nil {
		return nil, fmt.Errorf("exchanging assertion: %w", err)
	}
	return tok, nil
}
