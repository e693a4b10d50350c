package assertion

import (
	"github.com/jrsteele09/go-jwt-grant/clients"
	"github.com/rs/zerolog/log"
)

// Resolver finds the registered client that signed an assertion.
type Resolver struct {
	codec   *Codec
	clients clients.Repo
}

func NewResolver(codec *Codec, repo clients.Repo) *Resolver {
	return &Resolver{codec: codec, clients: repo}
}

// RetrieveCredentials reads the unverified iss claim, looks up the client it
// names and, when verify is set, confirms the assertion was signed with that
// client's secret and has not expired. It returns nil when any step fails.
// Without verify the claimed issuer is trusted as is.
func (r *Resolver) RetrieveCredentials(assertion string, verify bool) *clients.Credentials {
	claims, _, err := r.codec.Decode(assertion, "", false)
	if err != nil || claims == nil {
		return nil
	}

	iss, err := claims.GetIssuer()
	if err != nil || iss == "" {
		return nil
	}

	client, err := r.clients.GetByUID(iss)
	if err != nil || client == nil {
		return nil
	}

	if !verify {
		return client.Credentials()
	}

	if _, _, err := r.codec.Decode(assertion, client.Secret, true); err != nil {
		log.Debug().Str("iss", iss).Err(err).Msg("assertion not verified for issuer")
		return nil
	}
	return client.Credentials()
}
