// Package owner maps verified assertion claims to the resource owner a token
// is issued for.
package owner

import (
	"context"
	"sort"
	"sync"

	"github.com/jrsteele09/go-jwt-grant/assertion"
	"github.com/jrsteele09/go-jwt-grant/internal/errors"
	"github.com/jrsteele09/go-jwt-grant/users"
	"github.com/rs/zerolog/log"
)

// ResourceOwner is the principal an access token is issued on behalf of.
type ResourceOwner interface {
	GetID() string
}

// Delegate resolves the resource owner described by verified claims. A nil
// owner with a nil error means the claims name nobody this server knows.
type Delegate interface {
	Retrieve(ctx context.Context, claims assertion.Claims) (ResourceOwner, error)
}

// DelegateFunc adapts a function to Delegate.
type DelegateFunc func(ctx context.Context, claims assertion.Claims) (ResourceOwner, error)

func (f DelegateFunc) Retrieve(ctx context.Context, claims assertion.Claims) (ResourceOwner, error) {
	return f(ctx, claims)
}

// NoOp is used when no delegate is configured. The grant stays registered but
// never resolves an owner.
type NoOp struct{}

func (NoOp) Retrieve(ctx context.Context, _ assertion.Claims) (ResourceOwner, error) {
	log.Ctx(ctx).Warn().Msg("jwt flow not configured: set oauth.resource_owner_from_jwt.name to resolve resource owners")
	return nil, nil
}

// Deps are the collaborators a delegate factory may draw on.
type Deps struct {
	Users users.UserRepo
}

// Factory builds a delegate from its free-form configuration options.
type Factory func(options map[string]any, deps Deps) (Delegate, error)

var (
	factoriesLock sync.RWMutex
	factories     = map[string]Factory{
		"noop":  func(map[string]any, Deps) (Delegate, error) { return NoOp{}, nil },
		"users": newUsersDelegate,
	}
)

// Register makes a delegate available under name. Registering an existing
// name replaces it.
func Register(name string, factory Factory) {
	factoriesLock.Lock()
	defer factoriesLock.Unlock()
	factories[name] = factory
}

// Names lists the registered delegate names.
func Names() []string {
	factoriesLock.RLock()
	defer factoriesLock.RUnlock()
	names := make([]string, 0, len(factories))
	for name := range factories {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Build resolves the delegate configured under name. An empty name yields NoOp.
func Build(name string, options map[string]any, deps Deps) (Delegate, error) {
	if name == "" {
		return NoOp{}, nil
	}

	factoriesLock.RLock()
	factory, ok := factories[name]
	factoriesLock.RUnlock()
	if !ok {
		return nil, errors.Wrapf(errors.ErrUnknownDelegate, "%q (known: %v)", name, Names())
	}

	delegate, err := factory(options, deps)
	if err != nil {
		return nil, errors.Wrapf(err, "building resource owner delegate %q", name)
	}
	return delegate, nil
}
