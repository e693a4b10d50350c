package oauth2

// GrantType represents the OAuth 2.0 grant type used at the token endpoint.
// Determines what credentials are required to obtain tokens.
type GrantType string

const (
	// JWTBearerGrant exchanges a signed assertion for an access token (RFC 7523).
	// Token request includes: assertion, scope (optional), client credentials (optional)
	// Returns: access_token, refresh_token (if enabled)
	JWTBearerGrant GrantType = "urn:ietf:params:oauth:grant-type:jwt-bearer"

	// AuthorizationCodeGrant exchanges an authorization code for tokens.
	// Not served here; listed so configuration can name it.
	AuthorizationCodeGrant GrantType = "authorization_code"

	// ClientCredentialsCodeGrant allows machine-to-machine authentication.
	// Not served here; listed so configuration can name it.
	ClientCredentialsCodeGrant GrantType = "client_credentials"

	// PasswordGrant exchanges resource owner credentials for tokens.
	// Not served here; listed so configuration can name it.
	PasswordGrant GrantType = "password"
)

// TokenTypeBearer is the token_type of every issued access token.
const TokenTypeBearer = "Bearer"

// Token endpoint auth methods advertised in discovery (RFC 8414).
const (
	AuthMethodClientSecretBasic = "client_secret_basic"
	AuthMethodClientSecretPost  = "client_secret_post"
	AuthMethodClientSecretJWT   = "client_secret_jwt"
	AuthMethodNone              = "none"
)
