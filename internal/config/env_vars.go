package config

import (
	"strings"

	"github.com/spf13/viper"
)

const (
	appNameKey  = "app_name"
	envKey      = "env"
	portKey     = "server.port"
	baseURLKey  = "server.base_url"
	seedFileKey = "seed.file"
)

type EnvVars struct {
	v *viper.Viper
}

var _ EnvConfig = EnvVars{}

// GetPort returns the listen address. A bare port number gets a leading colon;
// host:port values are kept as they are.
func (e EnvVars) GetPort() string {
	port := e.v.GetString(portKey)
	if !strings.Contains(port, ":") {
		port = ":" + port
	}
	return port
}

func (e EnvVars) GetAppName() string {
	return e.v.GetString(appNameKey)
}

func (e EnvVars) GetEnv() string {
	return strings.ToUpper(e.v.GetString(envKey))
}

// GetBaseURL returns the public base URL of the server (e.g. "https://auth.example.com").
// It is the issuer of access tokens and the root of the discovery document.
func (e EnvVars) GetBaseURL() string {
	return strings.TrimSuffix(e.v.GetString(baseURLKey), "/")
}

func (e EnvVars) GetSeedFile() string {
	return e.v.GetString(seedFileKey)
}
