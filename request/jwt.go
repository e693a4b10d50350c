package request

import (
	"context"

	"github.com/jrsteele09/go-jwt-grant/oauth"
	"github.com/jrsteele09/go-jwt-grant/oauth2"
)

// GrantTypeJWTBearer is the grant_type of the JWT bearer assertion grant.
const GrantTypeJWTBearer = string(oauth2.JWTBearerGrant)

// JWT builds the JWT bearer grant strategy.
func JWT(server *oauth.Server) Strategy {
	return func(ctx context.Context, in Input) (Authorizer, error) {
		r, err := oauth.NewJWTTokenRequest(ctx, server, in.Credentials, in.Parameters)
		if err != nil {
			return nil, err
		}
		return r, nil
	}
}
