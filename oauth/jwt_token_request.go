package oauth

import (
	"context"
	"crypto/subtle"
	"net/url"
	"strings"

	"github.com/jrsteele09/go-jwt-grant/assertion"
	"github.com/jrsteele09/go-jwt-grant/clients"
	"github.com/jrsteele09/go-jwt-grant/internal/errors"
	"github.com/jrsteele09/go-jwt-grant/owner"
	"github.com/jrsteele09/go-jwt-grant/scopes"
	"github.com/jrsteele09/go-jwt-grant/token"
	"github.com/rs/zerolog"
)

// Request parameters read by the JWT bearer grant.
const (
	ParamAssertion = "assertion"
	ParamScope     = "scope"
)

// JWTTokenRequest is a single JWT bearer grant request (RFC 7523 section 2.1).
// It is validated in a fixed order, client, jwt, resource_owner then scopes,
// and the first failure is the one reported. A request is not safe for
// concurrent use.
type JWTTokenRequest struct {
	server        *Server
	credentials   *clients.Credentials
	client        *clients.Client
	resourceOwner owner.ResourceOwner
	assertion     string
	scope         string

	err         *ValidationError
	accessToken *token.AccessToken
}

// NewJWTTokenRequest builds the request from the credentials extracted by the
// caller, which may be nil when client authentication is optional, and the
// request parameters. When credentials are present the client is looked up
// and the resource owner resolved from the assertion verified against the
// client's secret. A failed lookup or verification leaves them unset; only
// collaborator failures are returned as errors.
func NewJWTTokenRequest(ctx context.Context, server *Server, credentials *clients.Credentials, params url.Values) (*JWTTokenRequest, error) {
	r := &JWTTokenRequest{
		server:      server,
		credentials: credentials,
		assertion:   params.Get(ParamAssertion),
		scope:       params.Get(ParamScope),
	}
	if credentials == nil {
		return r, nil
	}

	client, err := server.findClient(credentials.UID)
	if err != nil {
		return nil, err
	}
	if client != nil && !secretMatches(client, credentials) {
		zerolog.Ctx(ctx).Debug().Str("client_id", credentials.UID).Msg("client secret mismatch")
		client = nil
	}
	r.client = client
	if client == nil {
		return r, nil
	}

	if r.resourceOwner, err = r.retrieveResourceOwner(ctx); err != nil {
		return nil, err
	}
	return r, nil
}

// secretMatches authenticates credentials carrying a secret. Credentials
// with only an identifier name the client without authenticating it; the
// assertion signature is then the proof of possession.
func secretMatches(client *clients.Client, credentials *clients.Credentials) bool {
	if credentials.Secret == "" {
		return true
	}
	return subtle.ConstantTimeCompare([]byte(client.Secret), []byte(credentials.Secret)) == 1
}

func (r *JWTTokenRequest) retrieveResourceOwner(ctx context.Context) (owner.ResourceOwner, error) {
	claims := r.verifiedClaims(ctx)
	if claims == nil {
		return nil, nil
	}
	resourceOwner, err := r.server.deps.Owners.Retrieve(ctx, claims)
	if err != nil {
		return nil, errors.Wrapf(err, "retrieving resource owner")
	}
	return resourceOwner, nil
}

// verifiedClaims decodes the assertion against the client's secret. Any
// decode failure, or no client, yields nil.
func (r *JWTTokenRequest) verifiedClaims(ctx context.Context) assertion.Claims {
	if r.client == nil {
		return nil
	}
	claims, _, err := r.server.deps.Codec.Decode(r.assertion, r.client.Secret, true)
	if err != nil {
		zerolog.Ctx(ctx).Debug().Err(err).Str("client_id", r.client.UID).Msg("assertion rejected")
		return nil
	}
	return claims
}

func (r *JWTTokenRequest) Credentials() *clients.Credentials { return r.credentials }

func (r *JWTTokenRequest) Client() *clients.Client { return r.client }

func (r *JWTTokenRequest) ResourceOwner() owner.ResourceOwner { return r.resourceOwner }

func (r *JWTTokenRequest) Assertion() string { return r.assertion }

// Scope is the scope string as requested.
func (r *JWTTokenRequest) Scope() string { return r.scope }

// AccessToken is the token issued by the last successful Authorize.
func (r *JWTTokenRequest) AccessToken() *token.AccessToken { return r.accessToken }

func (r *JWTTokenRequest) SetCredentials(credentials *clients.Credentials) {
	r.credentials = credentials
}

// SetClient sets the client directly, in place of looking it up from credentials.
func (r *JWTTokenRequest) SetClient(client *clients.Client) { r.client = client }

func (r *JWTTokenRequest) SetResourceOwner(resourceOwner owner.ResourceOwner) {
	r.resourceOwner = resourceOwner
}

func (r *JWTTokenRequest) SetAssertion(assertion string) { r.assertion = assertion }

func (r *JWTTokenRequest) SetScope(scope string) { r.scope = scope }

// Scopes returns the scopes a token would be issued with: those requested,
// or the server defaults when none were.
func (r *JWTTokenRequest) Scopes() scopes.Scopes {
	if strings.TrimSpace(r.scope) != "" {
		return scopes.FromString(r.scope)
	}
	return r.server.config.GetDefaultScopes()
}

// Validate runs every validation from scratch and records the first failure.
func (r *JWTTokenRequest) Validate(ctx context.Context) {
	r.err = nil
	switch {
	case !r.validateClient():
		r.err = NewValidationError(InvalidClient)
	case !r.validateJWT(ctx):
		r.err = NewValidationError(InvalidJWT)
	case !r.validateResourceOwner():
		r.err = NewValidationError(InvalidGrant)
	case !r.validateScopes():
		r.err = NewValidationError(InvalidScope)
	}
}

// Valid validates the request and reports whether it passed.
func (r *JWTTokenRequest) Valid(ctx context.Context) bool {
	r.Validate(ctx)
	return r.err == nil
}

// Error returns the failure recorded by the last validation, or nil.
func (r *JWTTokenRequest) Error() *ValidationError {
	return r.err
}

// Authorize validates the request and, when it passes, finds or creates the
// access token. Validation failures are returned as *ValidationError and
// never issue a token.
func (r *JWTTokenRequest) Authorize(ctx context.Context) (*token.AccessToken, error) {
	r.accessToken = nil
	if !r.Valid(ctx) {
		return nil, r.err
	}

	at, err := r.server.deps.Issuer.FindOrCreateAccessToken(ctx, r.client, r.resourceOwner.GetID(), r.Scopes(), r.server.config)
	if err != nil {
		return nil, errors.Wrapf(err, "issuing access token")
	}
	r.accessToken = at
	return at, nil
}

// validateClient fails when credentials were given but named no client.
// Without credentials it passes unless client authentication is required
// and no client was set.
func (r *JWTTokenRequest) validateClient() bool {
	if r.credentials != nil {
		return r.client != nil
	}
	return r.client != nil || !r.server.config.GetRequireClientAuthentication()
}

func (r *JWTTokenRequest) validateJWT(ctx context.Context) bool {
	return r.verifiedClaims(ctx) != nil
}

func (r *JWTTokenRequest) validateResourceOwner() bool {
	return r.resourceOwner != nil
}

// validateScopes passes a blank request; defaults apply at issuance.
func (r *JWTTokenRequest) validateScopes() bool {
	if strings.TrimSpace(r.scope) == "" {
		return true
	}
	return scopes.IsValid(r.scope, r.server.config.GetScopes(), r.client.AllowedScopes())
}
