// Package memstore is an in-memory token.Store.
package memstore

import (
	"context"
	"sync"
	"time"

	"github.com/jrsteele09/go-jwt-grant/internal/errors"
	"github.com/jrsteele09/go-jwt-grant/token"
)

var _ token.Store = (*Store)(nil)

type Store struct {
	tokens    map[string]*token.AccessToken // token string to record
	refreshes map[string]string             // refresh token to token string
	pairs     map[string][]string           // client+owner to token strings, oldest first
	created   int
	lock      sync.RWMutex
}

func New() *Store {
	return &Store{
		tokens:    make(map[string]*token.AccessToken),
		refreshes: make(map[string]string),
		pairs:     make(map[string][]string),
	}
}

func pairKey(clientUID, ownerID string) string {
	return clientUID + "\x00" + ownerID
}

func (s *Store) Create(_ context.Context, at *token.AccessToken) error {
	if at.Token == "" {
		return errors.Wrapf(errors.ErrInvalidToken, "memstore.Create empty token")
	}
	record := *at

	s.lock.Lock()
	defer s.lock.Unlock()

	s.tokens[record.Token] = &record
	if record.RefreshToken != "" {
		s.refreshes[record.RefreshToken] = record.Token
	}
	key := pairKey(record.ClientUID, record.ResourceOwnerID)
	s.pairs[key] = append(s.pairs[key], record.Token)
	s.created++
	return nil
}

func (s *Store) FindLatest(_ context.Context, clientUID, resourceOwnerID string) (*token.AccessToken, error) {
	s.lock.RLock()
	defer s.lock.RUnlock()

	list := s.pairs[pairKey(clientUID, resourceOwnerID)]
	for i := len(list) - 1; i >= 0; i-- {
		record := s.tokens[list[i]]
		if record != nil && !record.Revoked() {
			found := *record
			return &found, nil
		}
	}
	return nil, errors.ErrNotFound
}

func (s *Store) GetByToken(_ context.Context, raw string) (*token.AccessToken, error) {
	s.lock.RLock()
	defer s.lock.RUnlock()

	record, ok := s.tokens[raw]
	if !ok {
		return nil, errors.ErrNotFound
	}
	found := *record
	return &found, nil
}

func (s *Store) GetByRefreshToken(ctx context.Context, refreshToken string) (*token.AccessToken, error) {
	s.lock.RLock()
	raw, ok := s.refreshes[refreshToken]
	s.lock.RUnlock()
	if !ok {
		return nil, errors.ErrNotFound
	}
	return s.GetByToken(ctx, raw)
}

func (s *Store) Revoke(_ context.Context, raw string, at time.Time) error {
	s.lock.Lock()
	defer s.lock.Unlock()

	record, ok := s.tokens[raw]
	if !ok {
		return errors.ErrNotFound
	}
	revokedAt := at
	record.RevokedAt = &revokedAt
	return nil
}

func (s *Store) Count(_ context.Context) (int, error) {
	s.lock.RLock()
	defer s.lock.RUnlock()
	return s.created, nil
}
