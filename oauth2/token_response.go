package oauth2

// TokenResponse represents the response from an OAuth2 token request.
// This is the standard OAuth2 token endpoint response format as defined in RFC 6749.
type TokenResponse struct {
	// AccessToken is the JWT token used to access protected resources.
	// Usage: Include in Authorization header: "Bearer <access_token>"
	AccessToken *string `json:"access_token,omitempty"`

	// TokenType indicates how to use the access token (always "Bearer" in this implementation).
	TokenType string `json:"token_type,omitempty"`

	// ExpiresIn is the remaining lifetime in seconds of the access token.
	// A reused token reports what is left, not its original lifetime.
	ExpiresIn int `json:"expires_in,omitempty"`

	// RefreshToken is an opaque token, present only when refresh tokens are enabled.
	RefreshToken *string `json:"refresh_token,omitempty"`

	// Scope is the space-separated list of scopes granted to the access token.
	Scope string `json:"scope,omitempty"`
}

// ErrorResponse is the OAuth2 error body (RFC 6749 section 5.2).
type ErrorResponse struct {
	Error            string `json:"error"`
	ErrorDescription string `json:"error_description,omitempty"`
}
