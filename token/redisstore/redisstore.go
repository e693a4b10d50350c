// Package redisstore is a token.Store backed by Redis, for servers that run
// more than one replica.
package redisstore

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"time"

	"github.com/jrsteele09/go-jwt-grant/internal/errors"
	"github.com/jrsteele09/go-jwt-grant/token"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
)

// Default timeouts for Redis operations.
const (
	DefaultDialTimeout  = 5 * time.Second
	DefaultReadTimeout  = 3 * time.Second
	DefaultWriteTimeout = 3 * time.Second

	// DefaultRefreshTTL bounds how long a record holding a refresh token is kept.
	DefaultRefreshTTL = 30 * 24 * time.Hour

	revokeRetries = 5
)

// Key types under the configured prefix.
const (
	keyToken   = "token"
	keyRefresh = "refresh"
	keyPair    = "pair"
	keyCount   = "count"
)

// extendTTL raises the expiry of KEYS[1] to ARGV[1] milliseconds unless it
// already lives longer. A key without expiry reports -1 and is always set.
const extendTTL = `
local ttl = redis.call('PTTL', KEYS[1])
if ttl < tonumber(ARGV[1]) then
	return redis.call('PEXPIRE', KEYS[1], ARGV[1])
end
return 0`

// Config holds Redis connection settings.
type Config struct {
	Addr      string
	Password  string
	DB        int
	KeyPrefix string
	// RefreshTTL is the lifetime of records holding a refresh token. Zero
	// means DefaultRefreshTTL.
	RefreshTTL time.Duration
}

var _ token.Store = (*Store)(nil)

type Store struct {
	client     redis.UniversalClient
	keyPrefix  string
	refreshTTL time.Duration
}

type Option func(*Store)

// WithRefreshTTL sets the lifetime of records holding a refresh token.
func WithRefreshTTL(ttl time.Duration) Option {
	return func(s *Store) {
		if ttl > 0 {
			s.refreshTTL = ttl
		}
	}
}

// New connects to Redis and checks the connection.
func New(ctx context.Context, cfg Config) (*Store, error) {
	client := redis.NewClient(&redis.Options{
		Addr:         cfg.Addr,
		Password:     cfg.Password,
		DB:           cfg.DB,
		DialTimeout:  DefaultDialTimeout,
		ReadTimeout:  DefaultReadTimeout,
		WriteTimeout: DefaultWriteTimeout,
	})

	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("failed to connect to redis: %w", err)
	}
	return NewWithClient(client, cfg.KeyPrefix, WithRefreshTTL(cfg.RefreshTTL)), nil
}

// NewWithClient wraps a pre-configured client, e.g. one pointing at miniredis.
func NewWithClient(client redis.UniversalClient, keyPrefix string, options ...Option) *Store {
	s := &Store{client: client, keyPrefix: keyPrefix, refreshTTL: DefaultRefreshTTL}
	for _, opt := range options {
		opt(s)
	}
	return s
}

func (s *Store) Close() error {
	return s.client.Close()
}

func (s *Store) key(parts ...string) string {
	k := s.keyPrefix
	for i, p := range parts {
		if i > 0 {
			k += ":"
		}
		k += p
	}
	return k
}

// pairKey escapes both ids so that no two pairs share a list.
func (s *Store) pairKey(clientUID, resourceOwnerID string) string {
	return s.key(keyPair, url.QueryEscape(clientUID), url.QueryEscape(resourceOwnerID))
}

// ttl is how long the record of at is kept.
func (s *Store) ttl(at *token.AccessToken) time.Duration {
	if at.RefreshToken != "" && s.refreshTTL > at.ExpiresIn {
		return s.refreshTTL
	}
	return at.ExpiresIn
}

// Create writes the record, its refresh token index, the pair index and the
// creation counter in one MULTI/EXEC transaction. Every key expires with the
// record; the pair list lives as long as its longest lived record.
func (s *Store) Create(ctx context.Context, at *token.AccessToken) error {
	if at.Token == "" {
		return errors.Wrapf(errors.ErrInvalidToken, "redisstore.Create empty token")
	}
	data, err := json.Marshal(at)
	if err != nil {
		return fmt.Errorf("failed to marshal access token: %w", err)
	}

	ttl := s.ttl(at)
	if ttl <= 0 {
		return fmt.Errorf("redisstore.Create: token %s has no lifetime", at.ID)
	}
	pairKey := s.pairKey(at.ClientUID, at.ResourceOwnerID)

	_, err = s.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Set(ctx, s.key(keyToken, at.Token), data, ttl)
		if at.RefreshToken != "" {
			pipe.Set(ctx, s.key(keyRefresh, at.RefreshToken), at.Token, ttl)
		}
		pipe.RPush(ctx, pairKey, at.Token)
		pipe.Eval(ctx, extendTTL, []string{pairKey}, ttl.Milliseconds())
		pipe.Incr(ctx, s.key(keyCount))
		return nil
	})
	if err != nil {
		return fmt.Errorf("failed to store access token: %w", err)
	}
	return nil
}

// FindLatest returns the newest unrevoked record of the pair. Entries whose
// record has expired are dropped from the pair list on the way.
func (s *Store) FindLatest(ctx context.Context, clientUID, resourceOwnerID string) (*token.AccessToken, error) {
	pairKey := s.pairKey(clientUID, resourceOwnerID)
	list, err := s.client.LRange(ctx, pairKey, 0, -1).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to list tokens: %w", err)
	}
	if len(list) == 0 {
		return nil, errors.ErrNotFound
	}

	cmds := make([]*redis.StringCmd, len(list))
	_, err = s.client.Pipelined(ctx, func(pipe redis.Pipeliner) error {
		for i, raw := range list {
			cmds[i] = pipe.Get(ctx, s.key(keyToken, raw))
		}
		return nil
	})
	if err != nil && !errors.Is(err, redis.Nil) {
		return nil, fmt.Errorf("failed to get tokens: %w", err)
	}

	var (
		latest *token.AccessToken
		gone   []string
	)
	for i := len(list) - 1; i >= 0; i-- {
		data, err := cmds[i].Bytes()
		if errors.Is(err, redis.Nil) {
			gone = append(gone, list[i])
			continue
		}
		if err != nil {
			return nil, fmt.Errorf("failed to get access token: %w", err)
		}
		if latest != nil {
			continue
		}
		var at token.AccessToken
		if err := json.Unmarshal(data, &at); err != nil {
			return nil, fmt.Errorf("failed to unmarshal access token: %w", err)
		}
		if !at.Revoked() {
			latest = &at
		}
	}

	if len(gone) > 0 {
		s.trim(ctx, pairKey, gone)
	}
	if latest == nil {
		return nil, errors.ErrNotFound
	}
	return latest, nil
}

// trim removes expired entries from a pair list. LREM is idempotent, so
// concurrent trims of the same entries are harmless.
func (s *Store) trim(ctx context.Context, pairKey string, gone []string) {
	_, err := s.client.Pipelined(ctx, func(pipe redis.Pipeliner) error {
		for _, raw := range gone {
			pipe.LRem(ctx, pairKey, 1, raw)
		}
		return nil
	})
	if err != nil {
		zerolog.Ctx(ctx).Warn().Err(err).Str("key", pairKey).Msg("failed to trim expired tokens")
	}
}

func (s *Store) GetByToken(ctx context.Context, raw string) (*token.AccessToken, error) {
	data, err := s.client.Get(ctx, s.key(keyToken, raw)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, errors.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get access token: %w", err)
	}

	var at token.AccessToken
	if err := json.Unmarshal(data, &at); err != nil {
		return nil, fmt.Errorf("failed to unmarshal access token: %w", err)
	}
	return &at, nil
}

func (s *Store) GetByRefreshToken(ctx context.Context, refreshToken string) (*token.AccessToken, error) {
	raw, err := s.client.Get(ctx, s.key(keyRefresh, refreshToken)).Result()
	if errors.Is(err, redis.Nil) {
		return nil, errors.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get refresh token: %w", err)
	}
	return s.GetByToken(ctx, raw)
}

// Revoke marks the record revoked at the given time, keeping its TTL. The
// read and write run under WATCH and retry when another writer gets in first.
func (s *Store) Revoke(ctx context.Context, raw string, at time.Time) error {
	key := s.key(keyToken, raw)
	revoke := func(tx *redis.Tx) error {
		data, err := tx.Get(ctx, key).Bytes()
		if errors.Is(err, redis.Nil) {
			return errors.ErrNotFound
		}
		if err != nil {
			return fmt.Errorf("failed to get access token: %w", err)
		}

		var record token.AccessToken
		if err := json.Unmarshal(data, &record); err != nil {
			return fmt.Errorf("failed to unmarshal access token: %w", err)
		}
		record.RevokedAt = &at
		if data, err = json.Marshal(&record); err != nil {
			return fmt.Errorf("failed to marshal access token: %w", err)
		}

		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.Set(ctx, key, data, redis.KeepTTL)
			return nil
		})
		return err
	}

	for range revokeRetries {
		err := s.client.Watch(ctx, revoke, key)
		if errors.Is(err, redis.TxFailedErr) {
			continue
		}
		if err != nil && !errors.Is(err, errors.ErrNotFound) {
			return fmt.Errorf("failed to revoke access token: %w", err)
		}
		return err
	}
	return fmt.Errorf("failed to revoke access token: %w", redis.TxFailedErr)
}

func (s *Store) Count(ctx context.Context) (int, error) {
	n, err := s.client.Get(ctx, s.key(keyCount)).Int()
	if errors.Is(err, redis.Nil) {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("failed to count tokens: %w", err)
	}
	return n, nil
}
