package clients

import (
	"time"

	"github.com/jrsteele09/go-jwt-grant/scopes"
)

// Client is a registered application. Its secret authenticates the client and
// is also the key material its assertions are verified with: an HMAC secret,
// or a PEM encoded public key for asymmetric signatures.
type Client struct {
	UID       string    `json:"uid" yaml:"uid"`
	Secret    string    `json:"secret" yaml:"secret"`
	Name      string    `json:"name,omitempty" yaml:"name"`
	Scopes    []string  `json:"scopes,omitempty" yaml:"scopes"` // Allowed scopes, empty means unrestricted
	CreatedAt time.Time `json:"created_at,omitempty" yaml:"-"`
}

// Credentials is a client identifier and secret pulled from a request.
type Credentials struct {
	UID    string
	Secret string
}

// AllowedScopes returns the scopes the client is restricted to.
func (c *Client) AllowedScopes() scopes.Scopes {
	if c == nil {
		return nil
	}
	return scopes.New(c.Scopes...)
}

// HasScope checks if the client has permission for a specific scope
func (c *Client) HasScope(scope string) bool {
	return c.AllowedScopes().Has(scope)
}

// Credentials returns the client's own identifier and secret.
func (c *Client) Credentials() *Credentials {
	return &Credentials{UID: c.UID, Secret: c.Secret}
}
