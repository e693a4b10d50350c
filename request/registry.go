// Package request dispatches token and authorization requests to the grant
// strategy registered for their grant or response type.
package request

import (
	"context"
	"net/url"
	"slices"
	"strings"
	"sync"

	"github.com/jrsteele09/go-jwt-grant/clients"
	"github.com/jrsteele09/go-jwt-grant/internal/errors"
	"github.com/jrsteele09/go-jwt-grant/token"
)

// Input is what a strategy builds its request from.
type Input struct {
	Credentials *clients.Credentials // Nil when no extractor found any
	Parameters  url.Values
}

// Authorizer is a built request ready to be authorized.
type Authorizer interface {
	Authorize(ctx context.Context) (*token.AccessToken, error)
}

// Strategy builds the request for one grant or response type.
type Strategy func(ctx context.Context, in Input) (Authorizer, error)

// Registry maps enabled grant types and response types to strategies.
type Registry struct {
	mu             sync.RWMutex
	grantTypes     []string
	responseTypes  []string
	tokens         map[string]Strategy
	authorizations map[string]Strategy
}

// NewRegistry enables grantTypes at the token endpoint and responseTypes at
// the authorization endpoint. A registered strategy is only reachable when
// its name is enabled.
func NewRegistry(grantTypes, responseTypes []string) *Registry {
	return &Registry{
		grantTypes:     slices.Clone(grantTypes),
		responseTypes:  slices.Clone(responseTypes),
		tokens:         map[string]Strategy{},
		authorizations: map[string]Strategy{},
	}
}

func (r *Registry) RegisterToken(grantType string, strategy Strategy) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.tokens[grantType] = strategy
}

func (r *Registry) RegisterAuthorization(responseType string, strategy Strategy) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.authorizations[responseType] = strategy
}

// GrantTypes returns the enabled grant types that have a strategy.
func (r *Registry) GrantTypes() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var out []string
	for _, name := range r.grantTypes {
		if _, ok := r.tokens[name]; ok {
			out = append(out, name)
		}
	}
	return out
}

// TokenStrategy resolves the URL escaped grant_type value.
func (r *Registry) TokenStrategy(grantType string) (Strategy, error) {
	return r.resolve(grantType, r.grantTypes, r.tokens, errors.ErrInvalidTokenStrategy)
}

// AuthorizationStrategy resolves the URL escaped response_type value.
func (r *Registry) AuthorizationStrategy(responseType string) (Strategy, error) {
	return r.resolve(responseType, r.responseTypes, r.authorizations, errors.ErrInvalidAuthorizationStrategy)
}

func (r *Registry) resolve(name string, enabled []string, strategies map[string]Strategy, errInvalid error) (Strategy, error) {
	if strings.TrimSpace(name) == "" {
		return nil, errors.ErrMissingRequestStrategy
	}

	unescaped, err := url.QueryUnescape(name)
	if err != nil {
		return nil, errors.Wrapf(errInvalid, "%q", name)
	}
	if !slices.Contains(enabled, unescaped) {
		return nil, errors.Wrapf(errInvalid, "%q is not enabled", unescaped)
	}

	r.mu.RLock()
	strategy, ok := strategies[unescaped]
	r.mu.RUnlock()
	if !ok {
		return nil, errors.Wrapf(errInvalid, "%q has no strategy", unescaped)
	}
	return strategy, nil
}
