package server

import (
	"crypto/subtle"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/jrsteele09/go-jwt-grant/clients"
	"github.com/jrsteele09/go-jwt-grant/credentials"
	"github.com/jrsteele09/go-jwt-grant/internal/errors"
	"github.com/jrsteele09/go-jwt-grant/internal/metrics"
	"github.com/jrsteele09/go-jwt-grant/oauth"
	"github.com/jrsteele09/go-jwt-grant/oauth2"
	"github.com/jrsteele09/go-jwt-grant/request"
	"github.com/jrsteele09/go-jwt-grant/token"
	"github.com/rs/zerolog"
)

const (
	contentTypeJSON = "application/json; charset=utf-8"
)

var authMethods = map[string]string{
	credentials.FromBasicMethod:  oauth2.AuthMethodClientSecretBasic,
	credentials.FromParamsMethod: oauth2.AuthMethodClientSecretPost,
	credentials.FromJWTMethod:    oauth2.AuthMethodClientSecretJWT,
}

// WellKnownOpenIDConfig serves the discovery document
func (s *Server) WellKnownOpenIDConfig() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		baseURL := s.config.GetBaseURL()

		authMethodsSupported := []string{}
		for _, method := range s.config.GetClientCredentialsMethods() {
			if name, ok := authMethods[method]; ok {
				authMethodsSupported = append(authMethodsSupported, name)
			}
		}
		if !s.config.GetRequireClientAuthentication() {
			authMethodsSupported = append(authMethodsSupported, oauth2.AuthMethodNone)
		}

		resp := map[string]any{
			"issuer":                 baseURL,
			"token_endpoint":         baseURL + RouteOAuth2Token,
			"jwks_uri":               baseURL + RouteWellKnownJWKS,
			"revocation_endpoint":    baseURL + RouteOAuth2Revoke,
			"introspection_endpoint": baseURL + RouteOAuth2Introspect,

			"grant_types_supported":    s.registry.GrantTypes(),
			"response_types_supported": s.config.GetResponseTypes(),
			"scopes_supported":         s.config.GetScopes(),

			// Token endpoint auth methods, in the order they are tried
			"token_endpoint_auth_methods_supported": authMethodsSupported,

			// Access tokens are JWTs signed with this algorithm
			"access_token_signing_alg_values_supported": []string{s.issuer.Signer().GetSigningMethod().Alg()},
		}

		w.Header().Set("Cache-Control", "public, max-age=3600") // Cache for 1 hour
		writeJSON(w, http.StatusOK, resp)
	}
}

// JWKS returns the JSON Web Key Set used to validate access tokens. It is
// empty when tokens are signed with a shared secret.
func (s *Server) JWKS() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		jwks, err := s.issuer.Signer().GetJWKS()
		if err != nil {
			zerolog.Ctx(r.Context()).Error().Err(err).Msg("failed to build jwks")
			writeJSONError(w, "server_error", "failed to build jwks", http.StatusInternalServerError)
			return
		}
		if jwks == nil {
			jwks = &token.JWKS{Keys: []token.JWK{}}
		}

		w.Header().Set("Cache-Control", "public, max-age=3600") // Cache for 1 hour
		writeJSON(w, http.StatusOK, jwks)
	}
}

// Token exchanges a grant for an access token
func (s *Server) Token() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		grantLabel := "unknown"
		result := metrics.ResultRejected
		defer func() {
			s.metrics.ObserveTokenRequest(grantLabel, result, time.Since(start))
		}()

		ctx := r.Context()
		logger := zerolog.Ctx(ctx)

		if err := r.ParseForm(); err != nil {
			writeJSONError(w, string(oauth.InvalidRequest), "Failed to parse form data", http.StatusBadRequest)
			return
		}

		grantType := r.Form.Get("grant_type")
		strategy, err := s.registry.TokenStrategy(grantType)
		switch {
		case errors.Is(err, errors.ErrMissingRequestStrategy):
			writeJSONError(w, string(oauth.InvalidRequest), "grant_type parameter is required", http.StatusBadRequest)
			return
		case err != nil:
			logger.Error().Err(err).Str("grant_type", grantType).Msg("token request for a grant type that is not served")
			writeJSONError(w, string(oauth.UnsupportedGrantType), oauth.UnsupportedGrantType.Description(), http.StatusBadRequest)
			return
		}
		grantLabel, _ = url.QueryUnescape(grantType)

		authorizer, err := strategy(ctx, request.Input{
			Credentials: s.extractor(r),
			Parameters:  r.Form,
		})
		if err != nil {
			result = metrics.ResultError
			logger.Error().Err(err).Msg("failed to build token request")
			writeJSONError(w, string(oauth.ServerError), oauth.ServerError.Description(), http.StatusInternalServerError)
			return
		}

		at, err := authorizer.Authorize(ctx)
		var validationErr *oauth.ValidationError
		switch {
		case errors.As(err, &validationErr):
			logger.Info().Str("error", string(validationErr.Code)).Msg("token request rejected")
			status := http.StatusBadRequest
			if validationErr.Code == oauth.InvalidClient {
				status = http.StatusUnauthorized
				if strings.HasPrefix(r.Header.Get("Authorization"), "Basic ") {
					w.Header().Set("WWW-Authenticate", `Basic realm="oauth2"`)
				}
			}
			writeJSONError(w, validationErr.Code.WireCode(), validationErr.Description, status)
			return
		case err != nil:
			result = metrics.ResultError
			logger.Error().Err(err).Msg("failed to issue access token")
			writeJSONError(w, string(oauth.ServerError), oauth.ServerError.Description(), http.StatusInternalServerError)
			return
		}

		result = metrics.ResultIssued
		logger.Info().
			Str("client_id", at.ClientUID).
			Str("sub", at.ResourceOwnerID).
			Str("jti", at.ID).
			Msg("access token issued")

		accessToken := at.Token
		resp := oauth2.TokenResponse{
			AccessToken: &accessToken,
			TokenType:   oauth2.TokenTypeBearer,
			ExpiresIn:   at.ExpiresInSeconds(s.issuer.Now()),
			Scope:       at.Scopes.String(),
		}
		if refreshToken := at.RefreshToken; refreshToken != "" {
			resp.RefreshToken = &refreshToken
		}

		w.Header().Set("Cache-Control", "no-store")
		w.Header().Set("Pragma", "no-cache")
		writeJSON(w, http.StatusOK, resp)
	}
}

// Introspect reports whether a token is active (RFC 7662). The caller must
// authenticate as a registered client.
func (s *Server) Introspect() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if err := r.ParseForm(); err != nil {
			writeJSONError(w, "invalid_request", "Failed to parse form data", http.StatusBadRequest)
			return
		}
		if _, ok := s.authenticateClient(w, r); !ok {
			return
		}

		raw := r.Form.Get("token")
		if raw == "" {
			writeJSONError(w, "invalid_request", "token parameter is required", http.StatusBadRequest)
			return
		}

		introspection, err := s.issuer.Introspect(r.Context(), raw)
		if err != nil {
			zerolog.Ctx(r.Context()).Error().Err(err).Msg("introspection failed")
			writeJSONError(w, "server_error", "introspection failed", http.StatusInternalServerError)
			return
		}

		w.Header().Set("Cache-Control", "no-store")
		writeJSON(w, http.StatusOK, introspection)
	}
}

// Revoke revokes an access or refresh token issued to the calling client
// (RFC 7009). Unknown tokens are not an error.
func (s *Server) Revoke() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if err := r.ParseForm(); err != nil {
			writeJSONError(w, "invalid_request", "Failed to parse form data", http.StatusBadRequest)
			return
		}
		client, ok := s.authenticateClient(w, r)
		if !ok {
			return
		}

		raw := r.Form.Get("token")
		if raw == "" {
			writeJSONError(w, "invalid_request", "token parameter is required", http.StatusBadRequest)
			return
		}

		ctx := r.Context()
		record, err := s.issuer.Find(ctx, raw)
		if errors.Is(err, errors.ErrNotFound) {
			w.WriteHeader(http.StatusOK)
			return
		}
		if err != nil {
			zerolog.Ctx(ctx).Error().Err(err).Msg("revocation lookup failed")
			writeJSONError(w, "server_error", "revocation failed", http.StatusInternalServerError)
			return
		}
		// Expired and revoked tokens still belong to the client they were issued to.
		if record.ClientUID != client.UID {
			writeJSONError(w, "unauthorized_client", "The token was issued to another client.", http.StatusForbidden)
			return
		}

		if err := s.issuer.Revoke(ctx, raw); err != nil {
			zerolog.Ctx(ctx).Error().Err(err).Msg("revocation failed")
			writeJSONError(w, "server_error", "revocation failed", http.StatusInternalServerError)
			return
		}
		w.WriteHeader(http.StatusOK)
	}
}

// authenticateClient resolves the calling client through the configured
// extractors and checks its secret. It writes the 401 itself on failure.
func (s *Server) authenticateClient(w http.ResponseWriter, r *http.Request) (*clients.Client, bool) {
	creds := s.extractor(r)
	if creds != nil {
		client, err := s.repos.Clients.GetByUID(creds.UID)
		if err == nil && client != nil &&
			subtle.ConstantTimeCompare([]byte(client.Secret), []byte(creds.Secret)) == 1 {
			return client, true
		}
		if err != nil && !errors.Is(err, errors.ErrNotFound) {
			zerolog.Ctx(r.Context()).Error().Err(err).Msg("client lookup failed")
			writeJSONError(w, "server_error", "client lookup failed", http.StatusInternalServerError)
			return nil, false
		}
	}

	if strings.HasPrefix(r.Header.Get("Authorization"), "Basic ") {
		w.Header().Set("WWW-Authenticate", `Basic realm="oauth2"`)
	}
	writeJSONError(w, string(oauth.InvalidClient), oauth.InvalidClient.Description(), http.StatusUnauthorized)
	return nil, false
}
