package server

// Route path constants
// All application routes are defined here to ensure consistency and prevent typos
const (
	// OAuth2 / OIDC Routes
	RouteWellKnownOpenIDConfig = "/.well-known/openid-configuration"
	RouteWellKnownJWKS         = "/.well-known/jwks.json"
	RouteOAuth2Token           = "/oauth2/token"
	RouteOAuth2Introspect      = "/oauth2/introspect"
	RouteOAuth2Revoke          = "/oauth2/revoke"

	// Operational Routes
	RouteMetrics = "/metrics"
	RouteHealth  = "/healthz"
)
