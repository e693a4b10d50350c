// Package oauth holds the token requests the token endpoint authorizes.
package oauth

import (
	"github.com/jrsteele09/go-jwt-grant/assertion"
	"github.com/jrsteele09/go-jwt-grant/clients"
	"github.com/jrsteele09/go-jwt-grant/internal/errors"
	"github.com/jrsteele09/go-jwt-grant/owner"
	"github.com/jrsteele09/go-jwt-grant/scopes"
	"github.com/jrsteele09/go-jwt-grant/token"
)

// Config is the server policy a token request consults.
type Config interface {
	GetScopes() scopes.Scopes
	GetDefaultScopes() scopes.Scopes
	GetReuseAccessToken() bool
	GetRequireClientAuthentication() bool
}

// Deps holds the collaborators shared by every token request.
type Deps struct {
	Clients clients.Repo     // Application registry
	Owners  owner.Delegate   // Resolves resource owners from verified claims
	Codec   *assertion.Codec // Decodes and verifies assertions
	Issuer  *token.Issuer    // Mints or reuses access tokens
}

// Server is the handle token requests are built against. It is safe for
// concurrent use; the requests built from it are not.
type Server struct {
	config Config
	deps   Deps
}

// NewServer validates deps and returns the handle. A nil Owners delegate
// falls back to owner.NoOp.
func NewServer(cfg Config, deps Deps) (*Server, error) {
	if cfg == nil {
		return nil, errors.New("[NewServer] config is required")
	}
	if deps.Clients == nil {
		return nil, errors.New("[NewServer] clients repo is required")
	}
	if deps.Codec == nil {
		return nil, errors.New("[NewServer] codec is required")
	}
	if deps.Issuer == nil {
		return nil, errors.New("[NewServer] issuer is required")
	}
	if deps.Owners == nil {
		deps.Owners = owner.NoOp{}
	}
	return &Server{config: cfg, deps: deps}, nil
}

func (s *Server) Config() Config {
	return s.config
}

func (s *Server) Issuer() *token.Issuer {
	return s.deps.Issuer
}

// findClient returns nil for an unknown uid.
func (s *Server) findClient(uid string) (*clients.Client, error) {
	if uid == "" {
		return nil, nil
	}
	client, err := s.deps.Clients.GetByUID(uid)
	if errors.Is(err, errors.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, errors.Wrapf(err, "looking up client %q", uid)
	}
	return client, nil
}
