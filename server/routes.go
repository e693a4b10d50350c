package server

func (s *Server) initRoutes() {
	// OAuth2 / OIDC API routes
	s.RegisterRouteHandler("GET "+RouteWellKnownOpenIDConfig, ChainMiddleware(s.WellKnownOpenIDConfig(), s.APIMiddleware()...))
	s.RegisterRouteHandler("GET "+RouteWellKnownJWKS, ChainMiddleware(s.JWKS(), s.APIMiddleware()...))
	s.RegisterRouteHandler("POST "+RouteOAuth2Token, ChainMiddleware(s.Token(), s.APIMiddleware(s.TracingMiddleware("oauth2.token"))...))

	// Protected OAuth2 endpoints (require client authentication)
	s.RegisterRouteHandler("POST "+RouteOAuth2Introspect, ChainMiddleware(s.Introspect(), s.APIMiddleware(s.TracingMiddleware("oauth2.introspect"))...))
	s.RegisterRouteHandler("POST "+RouteOAuth2Revoke, ChainMiddleware(s.Revoke(), s.APIMiddleware(s.TracingMiddleware("oauth2.revoke"))...))

	s.RegisterRouteHandler("GET "+RouteMetrics, s.metrics.Handler())
	s.RegisterRouteFunc("GET "+RouteHealth, s.Health())
}
