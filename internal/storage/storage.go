// Package storage builds the token store named by the configuration.
package storage

import (
	"context"
	"io"
	"strings"

	"github.com/jrsteele09/go-jwt-grant/internal/config"
	"github.com/jrsteele09/go-jwt-grant/internal/errors"
	"github.com/jrsteele09/go-jwt-grant/token"
	"github.com/jrsteele09/go-jwt-grant/token/memstore"
	"github.com/jrsteele09/go-jwt-grant/token/redisstore"
	"github.com/rs/zerolog/log"
)

const (
	TypeMemory = "memory"
	TypeRedis  = "redis"
)

type nopCloser struct{}

func (nopCloser) Close() error { return nil }

// NewTokenStore returns the configured store and a closer releasing its
// connections.
func NewTokenStore(ctx context.Context, cfg config.StorageConfig) (token.Store, io.Closer, error) {
	switch strings.ToLower(cfg.GetStorageType()) {
	case TypeMemory, "":
		log.Info().Msg("using in-memory token store")
		return memstore.New(), nopCloser{}, nil

	case TypeRedis:
		store, err := redisstore.New(ctx, redisstore.Config{
			Addr:       cfg.GetRedisAddr(),
			Password:   cfg.GetRedisPassword(),
			DB:         cfg.GetRedisDB(),
			KeyPrefix:  cfg.GetRedisKeyPrefix(),
			RefreshTTL: cfg.GetRedisRefreshTTL(),
		})
		if err != nil {
			return nil, nil, err
		}
		log.Info().Str("addr", cfg.GetRedisAddr()).Msg("using redis token store")
		return store, store, nil

	default:
		return nil, nil, errors.Wrapf(errors.ErrUnsupportedStorage, "%q", cfg.GetStorageType())
	}
}
