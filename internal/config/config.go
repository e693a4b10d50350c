package config

import (
	"crypto/rand"
	"encoding/hex"
	"errors"
	"os"
	"strings"
	"time"

	"github.com/spf13/viper"
)

const EnvPrefix = "JWTGRANT"

type Config interface {
	EnvConfig
	OAuthConfig
	GrantConfig
	StorageConfig
	LogConfig
}

type EnvConfig interface {
	GetPort() string
	GetAppName() string
	GetBaseURL() string
	GetEnv() string
	GetSeedFile() string
}

type LogConfig interface {
	GetLogLevel() string
	GetLogFormat() string
}

type mainConfig struct {
	EnvVars
	OAuth
	Grant
	Storage
	Logging
}

// New wraps v, registering the defaults for every key the server reads.
// A nil v uses the global viper instance.
func New(v *viper.Viper) Config {
	if v == nil {
		v = viper.GetViper()
	}
	setDefaults(v)
	return mainConfig{
		EnvVars: EnvVars{v: v},
		OAuth:   OAuth{v: v, fallbackSecret: randomSecret()},
		Grant:   Grant{v: v},
		Storage: Storage{v: v},
		Logging: Logging{v: v},
	}
}

// BindEnv makes every key readable from JWTGRANT_* environment variables.
func BindEnv(v *viper.Viper) {
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	v.AutomaticEnv()
}

// ReadInConfig loads path, or searches the working and home directories for
// jwtgrant.yaml when path is empty. A missing file in search mode is not an error.
func ReadInConfig(v *viper.Viper, path string) (string, error) {
	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.AddConfigPath(".")
		if home, err := os.UserHomeDir(); err == nil {
			v.AddConfigPath(home)
		}
		v.SetConfigType("yaml")
		v.SetConfigName("jwtgrant")
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if errors.As(err, &notFound) {
			return "", nil
		}
		return "", err
	}
	return v.ConfigFileUsed(), nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault(appNameKey, "Go JWT Grant Server")
	v.SetDefault(envKey, "DEV")
	v.SetDefault(portKey, "8080")
	v.SetDefault(baseURLKey, "http://localhost:8080")

	v.SetDefault(signingAlgorithmKey, "HS256")
	v.SetDefault(accessTokenExpiryKey, 2*time.Hour)
	v.SetDefault(refreshTokenEnabledKey, false)
	v.SetDefault(reuseAccessTokenKey, false)
	v.SetDefault(defaultScopesKey, []string{})
	v.SetDefault(optionalScopesKey, []string{})

	v.SetDefault(grantFlowsKey, []string{GrantTypeJWTBearer})
	v.SetDefault(responseTypesKey, []string{})
	v.SetDefault(clientCredentialsKey, []string{"from_basic", "from_params"})
	v.SetDefault(requireClientAuthKey, false)
	v.SetDefault(delegateNameKey, "")

	v.SetDefault(storageTypeKey, "memory")
	v.SetDefault(redisAddrKey, "localhost:6379")
	v.SetDefault(redisDBKey, 0)
	v.SetDefault(redisKeyPrefixKey, "jwtgrant:")
	v.SetDefault(redisRefreshTTLKey, 30*24*time.Hour)

	v.SetDefault(logLevelKey, "info")
	v.SetDefault(logFormatKey, "console")
}

func randomSecret() string {
	b := make([]byte, 32)
	if _, err := rand.Read(b); err != nil {
		panic(err)
	}
	return hex.EncodeToString(b)
}
