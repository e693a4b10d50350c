package config

import (
	"time"

	"github.com/spf13/viper"
)

const (
	storageTypeKey     = "storage.type"
	redisAddrKey       = "storage.redis.addr"
	redisPasswordKey   = "storage.redis.password"
	redisDBKey         = "storage.redis.db"
	redisKeyPrefixKey  = "storage.redis.key_prefix"
	redisRefreshTTLKey = "storage.redis.refresh_ttl"

	logLevelKey  = "log.level"
	logFormatKey = "log.format"
)

type StorageConfig interface {
	GetStorageType() string
	GetRedisAddr() string
	GetRedisPassword() string
	GetRedisDB() int
	GetRedisKeyPrefix() string
	GetRedisRefreshTTL() time.Duration
}

type Storage struct {
	v *viper.Viper
}

var _ StorageConfig = Storage{}

func (s Storage) GetStorageType() string {
	return s.v.GetString(storageTypeKey)
}

func (s Storage) GetRedisAddr() string {
	return s.v.GetString(redisAddrKey)
}

func (s Storage) GetRedisPassword() string {
	return s.v.GetString(redisPasswordKey)
}

func (s Storage) GetRedisDB() int {
	return s.v.GetInt(redisDBKey)
}

func (s Storage) GetRedisKeyPrefix() string {
	return s.v.GetString(redisKeyPrefixKey)
}

// GetRedisRefreshTTL is how long records holding a refresh token are kept.
func (s Storage) GetRedisRefreshTTL() time.Duration {
	return s.v.GetDuration(redisRefreshTTLKey)
}

type Logging struct {
	v *viper.Viper
}

var _ LogConfig = Logging{}

func (l Logging) GetLogLevel() string {
	return l.v.GetString(logLevelKey)
}

func (l Logging) GetLogFormat() string {
	return l.v.GetString(logFormatKey)
}
