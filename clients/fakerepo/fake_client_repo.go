package fakeclientrepo

import (
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/jrsteele09/go-jwt-grant/clients"
	"github.com/jrsteele09/go-jwt-grant/internal/errors"
)

var _ clients.Repo = (*FakeClientRepo)(nil)

type FakeClientRepo struct {
	clients map[string]*clients.Client
	lock    sync.RWMutex
}

func NewFakeClientRepo() clients.Repo {
	return &FakeClientRepo{
		clients: make(map[string]*clients.Client),
	}
}

func (r *FakeClientRepo) Upsert(client *clients.Client) error {
	r.lock.Lock()
	defer r.lock.Unlock()
	if client.UID == "" {
		client.UID = uuid.New().String()
	}
	if client.CreatedAt.IsZero() {
		client.CreatedAt = time.Now()
	}
	r.clients[client.UID] = client
	return nil
}

func (r *FakeClientRepo) Delete(uid string) error {
	r.lock.Lock()
	defer r.lock.Unlock()
	if _, ok := r.clients[uid]; !ok {
		return errors.ErrNotFound
	}
	delete(r.clients, uid)
	return nil
}

func (r *FakeClientRepo) GetByUID(uid string) (*clients.Client, error) {
	r.lock.RLock()
	defer r.lock.RUnlock()
	client, ok := r.clients[uid]
	if !ok {
		return nil, errors.ErrNotFound
	}
	return client, nil
}

func (r *FakeClientRepo) List(offset, limit int) ([]*clients.Client, error) {
	r.lock.RLock()
	defer r.lock.RUnlock()

	list := make([]*clients.Client, 0, len(r.clients))
	for _, v := range r.clients {
		list = append(list, v)
	}

	sort.Slice(list, func(i, j int) bool {
		return list[i].UID < list[j].UID
	})

	if offset >= len(list) {
		return nil, nil
	}
	end := offset + limit
	if limit <= 0 || end > len(list) {
		end = len(list)
	}
	return list[offset:end], nil
}
