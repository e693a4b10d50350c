package config

import (
	"github.com/jrsteele09/go-jwt-grant/oauth2"
	"github.com/spf13/viper"
)

// GrantTypeJWTBearer is the grant_type value of the JWT bearer assertion grant (RFC 7523).
const GrantTypeJWTBearer = string(oauth2.JWTBearerGrant)

const (
	grantFlowsKey        = "oauth.grant_flows"
	responseTypesKey     = "oauth.response_types"
	clientCredentialsKey = "oauth.client_credentials"
	requireClientAuthKey = "oauth.require_client_authentication"
	delegateNameKey      = "oauth.resource_owner_from_jwt.name"
	delegateOptionsKey   = "oauth.resource_owner_from_jwt.options"
)

type GrantConfig interface {
	GetGrantFlows() []string
	GetResponseTypes() []string
	GetClientCredentialsMethods() []string
	GetRequireClientAuthentication() bool
	GetResourceOwnerDelegate() string
	GetResourceOwnerDelegateOptions() map[string]any
}

type Grant struct {
	v *viper.Viper
}

var _ GrantConfig = Grant{}

// GetGrantFlows returns the grant types the token endpoint accepts.
func (g Grant) GetGrantFlows() []string {
	return g.v.GetStringSlice(grantFlowsKey)
}

// GetResponseTypes returns the response types the authorization endpoint accepts.
func (g Grant) GetResponseTypes() []string {
	return g.v.GetStringSlice(responseTypesKey)
}

// GetClientCredentialsMethods returns the credential extractors in the order they are tried.
func (g Grant) GetClientCredentialsMethods() []string {
	return g.v.GetStringSlice(clientCredentialsKey)
}

func (g Grant) GetRequireClientAuthentication() bool {
	return g.v.GetBool(requireClientAuthKey)
}

func (g Grant) GetResourceOwnerDelegate() string {
	return g.v.GetString(delegateNameKey)
}

func (g Grant) GetResourceOwnerDelegateOptions() map[string]any {
	return g.v.GetStringMap(delegateOptionsKey)
}
