package token_test

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/jrsteele09/go-jwt-grant/internal/errors"
	"github.com/jrsteele09/go-jwt-grant/scopes"
	"github.com/jrsteele09/go-jwt-grant/token"
	"github.com/jrsteele09/go-jwt-grant/token/memstore"
	"github.com/jrsteele09/go-jwt-grant/token/redisstore"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"
)

func storeImplementations(t *testing.T) map[string]func(t *testing.T) token.Store {
	return map[string]func(t *testing.T) token.Store{
		"memory": func(t *testing.T) token.Store {
			return memstore.New()
		},
		"redis": func(t *testing.T) token.Store {
			mr := miniredis.RunT(t)
			client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
			t.Cleanup(func() { _ = client.Close() })
			return redisstore.NewWithClient(client, "test:")
		},
	}
}

func newRecord(n int, client, owner string) *token.AccessToken {
	return &token.AccessToken{
		ID:              fmt.Sprintf("id-%d", n),
		Token:           fmt.Sprintf("token-%d", n),
		ClientUID:       client,
		ResourceOwnerID: owner,
		Scopes:          scopes.New("public"),
		ExpiresIn:       time.Hour,
		CreatedAt:       time.Date(2026, 3, 1, 12, n, 0, 0, time.UTC),
	}
}

func TestStores(t *testing.T) {
	for name, newStore := range storeImplementations(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()

			t.Run("create and get", func(t *testing.T) {
				s := newStore(t)
				rec := newRecord(1, "c1", "o1")
				rec.RefreshToken = "refresh-1"
				require.NoError(t, s.Create(ctx, rec))

				got, err := s.GetByToken(ctx, "token-1")
				require.NoError(t, err)
				require.Equal(t, "id-1", got.ID)
				require.Equal(t, scopes.New("public"), got.Scopes)
				require.True(t, rec.CreatedAt.Equal(got.CreatedAt))

				byRefresh, err := s.GetByRefreshToken(ctx, "refresh-1")
				require.NoError(t, err)
				require.Equal(t, "token-1", byRefresh.Token)

				n, err := s.Count(ctx)
				require.NoError(t, err)
				require.Equal(t, 1, n)
			})

			t.Run("not found", func(t *testing.T) {
				s := newStore(t)
				_, err := s.GetByToken(ctx, "missing")
				require.ErrorIs(t, err, errors.ErrNotFound)
				_, err = s.GetByRefreshToken(ctx, "missing")
				require.ErrorIs(t, err, errors.ErrNotFound)
				_, err = s.FindLatest(ctx, "c", "o")
				require.ErrorIs(t, err, errors.ErrNotFound)
				require.ErrorIs(t, s.Revoke(ctx, "missing", time.Now()), errors.ErrNotFound)

				n, err := s.Count(ctx)
				require.NoError(t, err)
				require.Zero(t, n)
			})

			t.Run("latest unrevoked token per pair", func(t *testing.T) {
				s := newStore(t)
				require.NoError(t, s.Create(ctx, newRecord(1, "c1", "o1")))
				require.NoError(t, s.Create(ctx, newRecord(2, "c1", "o1")))
				require.NoError(t, s.Create(ctx, newRecord(3, "c1", "o2")))

				latest, err := s.FindLatest(ctx, "c1", "o1")
				require.NoError(t, err)
				require.Equal(t, "token-2", latest.Token)

				require.NoError(t, s.Revoke(ctx, "token-2", time.Now()))
				latest, err = s.FindLatest(ctx, "c1", "o1")
				require.NoError(t, err)
				require.Equal(t, "token-1", latest.Token)

				revoked, err := s.GetByToken(ctx, "token-2")
				require.NoError(t, err)
				require.True(t, revoked.Revoked())
			})

			t.Run("returned records are copies", func(t *testing.T) {
				s := newStore(t)
				rec := newRecord(1, "c1", "o1")
				require.NoError(t, s.Create(ctx, rec))
				rec.ClientUID = "mutated"

				got, err := s.GetByToken(ctx, "token-1")
				require.NoError(t, err)
				require.Equal(t, "c1", got.ClientUID)
			})

			t.Run("concurrent creates are all counted", func(t *testing.T) {
				s := newStore(t)
				var wg sync.WaitGroup
				errs := make(chan error, 20)
				for i := 0; i < 20; i++ {
					wg.Add(1)
					go func(i int) {
						defer wg.Done()
						errs <- s.Create(ctx, newRecord(i, "c1", "o1"))
					}(i)
				}
				wg.Wait()
				close(errs)
				for err := range errs {
					require.NoError(t, err)
				}

				n, err := s.Count(ctx)
				require.NoError(t, err)
				require.Equal(t, 20, n)
			})

			t.Run("pairs do not collide on separators", func(t *testing.T) {
				s := newStore(t)
				require.NoError(t, s.Create(ctx, newRecord(1, "a:b", "c")))

				_, err := s.FindLatest(ctx, "a", "b:c")
				require.ErrorIs(t, err, errors.ErrNotFound)
				latest, err := s.FindLatest(ctx, "a:b", "c")
				require.NoError(t, err)
				require.Equal(t, "token-1", latest.Token)
			})

			t.Run("empty token rejected", func(t *testing.T) {
				s := newStore(t)
				require.ErrorIs(t, s.Create(ctx, &token.AccessToken{}), errors.ErrInvalidToken)
			})
		})
	}
}

func TestRedisStoreExpiresRecords(t *testing.T) {
	ctx := context.Background()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	defer client.Close()
	s := redisstore.NewWithClient(client, "test:")

	require.NoError(t, s.Create(ctx, newRecord(1, "c1", "o1")))
	mr.FastForward(2 * time.Hour)

	_, err := s.GetByToken(ctx, "token-1")
	require.ErrorIs(t, err, errors.ErrNotFound)
	_, err = s.FindLatest(ctx, "c1", "o1")
	require.ErrorIs(t, err, errors.ErrNotFound)
}

func setupRedisStore(t *testing.T, options ...redisstore.Option) (*miniredis.Miniredis, *redisstore.Store) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return mr, redisstore.NewWithClient(client, "test:", options...)
}

func TestRedisStoreIndexesExpire(t *testing.T) {
	ctx := context.Background()

	t.Run("pair list expires with its records", func(t *testing.T) {
		mr, s := setupRedisStore(t)
		for i := range 6 {
			require.NoError(t, s.Create(ctx, newRecord(i, "c1", "o1")))
		}
		require.True(t, mr.Exists("test:pair:c1:o1"))
		require.Equal(t, time.Hour, mr.TTL("test:pair:c1:o1"))

		mr.FastForward(10 * time.Hour)
		require.False(t, mr.Exists("test:pair:c1:o1"))
		require.False(t, mr.Exists("test:token:token-5"))
	})

	t.Run("pair list lives as long as its longest record", func(t *testing.T) {
		mr, s := setupRedisStore(t)
		long := newRecord(1, "c1", "o1")
		long.ExpiresIn = 3 * time.Hour
		require.NoError(t, s.Create(ctx, long))
		require.NoError(t, s.Create(ctx, newRecord(2, "c1", "o1")))
		require.Equal(t, 3*time.Hour, mr.TTL("test:pair:c1:o1"))
	})

	t.Run("refresh tokens keep their record alive", func(t *testing.T) {
		mr, s := setupRedisStore(t, redisstore.WithRefreshTTL(48*time.Hour))
		rec := newRecord(1, "c1", "o1")
		rec.RefreshToken = "refresh-1"
		require.NoError(t, s.Create(ctx, rec))

		require.Equal(t, 48*time.Hour, mr.TTL("test:refresh:refresh-1"))
		require.Equal(t, 48*time.Hour, mr.TTL("test:token:token-1"))
		require.Equal(t, 48*time.Hour, mr.TTL("test:pair:c1:o1"))

		mr.FastForward(49 * time.Hour)
		require.False(t, mr.Exists("test:refresh:refresh-1"))
		_, err := s.GetByRefreshToken(ctx, "refresh-1")
		require.ErrorIs(t, err, errors.ErrNotFound)
	})

	t.Run("FindLatest drops expired entries", func(t *testing.T) {
		mr, s := setupRedisStore(t)
		short := newRecord(1, "c1", "o1")
		short.ExpiresIn = time.Minute
		require.NoError(t, s.Create(ctx, short))
		require.NoError(t, s.Create(ctx, newRecord(2, "c1", "o1")))

		mr.FastForward(2 * time.Minute)
		latest, err := s.FindLatest(ctx, "c1", "o1")
		require.NoError(t, err)
		require.Equal(t, "token-2", latest.Token)

		list, err := mr.List("test:pair:c1:o1")
		require.NoError(t, err)
		require.Equal(t, []string{"token-2"}, list)
	})

	t.Run("separators in ids are escaped", func(t *testing.T) {
		mr, s := setupRedisStore(t)
		require.NoError(t, s.Create(ctx, newRecord(1, "a:b", "c")))
		require.True(t, mr.Exists("test:pair:a%3Ab:c"))
	})
}

func TestRedisStoreRevoke(t *testing.T) {
	ctx := context.Background()

	t.Run("keeps the record's expiry", func(t *testing.T) {
		mr, s := setupRedisStore(t)
		require.NoError(t, s.Create(ctx, newRecord(1, "c1", "o1")))
		mr.FastForward(10 * time.Minute)

		require.NoError(t, s.Revoke(ctx, "token-1", time.Now()))
		require.Equal(t, 50*time.Minute, mr.TTL("test:token:token-1"))

		got, err := s.GetByToken(ctx, "token-1")
		require.NoError(t, err)
		require.True(t, got.Revoked())
	})

	t.Run("concurrent revocations all succeed", func(t *testing.T) {
		_, s := setupRedisStore(t)
		require.NoError(t, s.Create(ctx, newRecord(1, "c1", "o1")))

		var wg sync.WaitGroup
		errs := make(chan error, 5)
		for range 5 {
			wg.Add(1)
			go func() {
				defer wg.Done()
				errs <- s.Revoke(ctx, "token-1", time.Now())
			}()
		}
		wg.Wait()
		close(errs)
		for err := range errs {
			require.NoError(t, err)
		}

		got, err := s.GetByToken(ctx, "token-1")
		require.NoError(t, err)
		require.True(t, got.Revoked())
	})
}
