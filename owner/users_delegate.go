package owner

import (
	"context"
	"fmt"

	"github.com/jrsteele09/go-jwt-grant/assertion"
	"github.com/jrsteele09/go-jwt-grant/internal/errors"
	"github.com/jrsteele09/go-jwt-grant/users"
	"github.com/mitchellh/mapstructure"
	"github.com/rs/zerolog/log"
)

const (
	MatchUsername = "username"
	MatchEmail    = "email"
	MatchID       = "id"
)

// UsersOptions configure the users delegate.
type UsersOptions struct {
	// Claim holds the value identifying the user. Defaults to "sub".
	Claim string `mapstructure:"claim"`
	// Match is the user field the claim is compared with: username, email or id.
	Match string `mapstructure:"match"`
}

// UsersDelegate resolves owners from the user store. Blocked users resolve to nobody.
type UsersDelegate struct {
	repo    users.UserRepo
	options UsersOptions
}

var _ Delegate = (*UsersDelegate)(nil)

func NewUsersDelegate(repo users.UserRepo, options UsersOptions) (*UsersDelegate, error) {
	if repo == nil {
		return nil, fmt.Errorf("users delegate requires a user repository")
	}
	if options.Claim == "" {
		options.Claim = "sub"
	}
	if options.Match == "" {
		options.Match = MatchUsername
	}
	switch options.Match {
	case MatchUsername, MatchEmail, MatchID:
	default:
		return nil, fmt.Errorf("unsupported match field %q", options.Match)
	}
	return &UsersDelegate{repo: repo, options: options}, nil
}

func newUsersDelegate(options map[string]any, deps Deps) (Delegate, error) {
	var conf UsersOptions
	decoder, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		Result:      &conf,
		ErrorUnused: true,
	})
	if err != nil {
		return nil, err
	}
	if err := decoder.Decode(options); err != nil {
		return nil, fmt.Errorf("invalid users delegate options: %w", err)
	}
	return NewUsersDelegate(deps.Users, conf)
}

func (d *UsersDelegate) Retrieve(ctx context.Context, claims assertion.Claims) (ResourceOwner, error) {
	value, _ := claims[d.options.Claim].(string)
	if value == "" {
		return nil, nil
	}

	var (
		user *users.User
		err  error
	)
	switch d.options.Match {
	case MatchEmail:
		user, err = d.repo.GetByEmail(value)
	case MatchID:
		user, err = d.repo.GetByID(value)
	default:
		user, err = d.repo.GetByUsername(value)
	}
	if errors.Is(err, errors.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, errors.Wrapf(err, "looking up resource owner by %s", d.options.Match)
	}
	if user == nil {
		return nil, nil
	}

	if user.Blocked {
		log.Ctx(ctx).Info().Str("user_id", user.ID).Msg("blocked resource owner in assertion")
		return nil, nil
	}
	return user, nil
}
