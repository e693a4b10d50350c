package fakeuserrepo

import (
	"sort"
	"sync"

	"github.com/google/uuid"
	"github.com/jrsteele09/go-jwt-grant/internal/errors"
	"github.com/jrsteele09/go-jwt-grant/users"
)

var _ users.UserRepo = (*FakeUserRepo)(nil)

type FakeUserRepo struct {
	users     map[string]*users.User
	emailIDs  map[string]string // email to user id
	usernames map[string]string // username to user id
	lock      sync.RWMutex
}

func NewFakeUserRepo() users.UserRepo {
	return &FakeUserRepo{
		users:     make(map[string]*users.User),
		emailIDs:  make(map[string]string),
		usernames: make(map[string]string),
	}
}

func (ur *FakeUserRepo) Upsert(user *users.User) error {
	ur.lock.Lock()
	defer ur.lock.Unlock()

	if user.ID == "" {
		user.ID = uuid.New().String()
	}
	if previous, ok := ur.users[user.ID]; ok {
		ur.unindex(previous)
	}
	ur.users[user.ID] = user
	if user.Email != "" {
		ur.emailIDs[user.Email] = user.ID
	}
	if user.Username != "" {
		ur.usernames[user.Username] = user.ID
	}
	return nil
}

func (ur *FakeUserRepo) Delete(id string) error {
	ur.lock.Lock()
	defer ur.lock.Unlock()

	user, ok := ur.users[id]
	if !ok {
		return errors.ErrNotFound
	}
	ur.unindex(user)
	delete(ur.users, id)
	return nil
}

// unindex drops the lookups of user that still point at it.
func (ur *FakeUserRepo) unindex(user *users.User) {
	if ur.emailIDs[user.Email] == user.ID {
		delete(ur.emailIDs, user.Email)
	}
	if ur.usernames[user.Username] == user.ID {
		delete(ur.usernames, user.Username)
	}
}

func (ur *FakeUserRepo) GetByID(id string) (*users.User, error) {
	ur.lock.RLock()
	defer ur.lock.RUnlock()

	user, ok := ur.users[id]
	if !ok {
		return nil, errors.ErrNotFound
	}
	return user, nil
}

func (ur *FakeUserRepo) GetByEmail(email string) (*users.User, error) {
	ur.lock.RLock()
	defer ur.lock.RUnlock()

	id, ok := ur.emailIDs[email]
	if !ok {
		return nil, errors.ErrNotFound
	}
	return ur.users[id], nil
}

func (ur *FakeUserRepo) GetByUsername(username string) (*users.User, error) {
	ur.lock.RLock()
	defer ur.lock.RUnlock()

	id, ok := ur.usernames[username]
	if !ok {
		return nil, errors.ErrNotFound
	}
	return ur.users[id], nil
}

func (ur *FakeUserRepo) List(offset, limit int) ([]*users.User, error) {
	ur.lock.RLock()
	defer ur.lock.RUnlock()

	userList := make([]*users.User, 0, len(ur.users))
	for _, v := range ur.users {
		userList = append(userList, v)
	}

	sort.Slice(userList, func(i, j int) bool {
		return userList[i].ID < userList[j].ID
	})

	if offset >= len(userList) {
		return nil, nil
	}
	end := offset + limit
	if limit <= 0 || end > len(userList) {
		end = len(userList)
	}
	return userList[offset:end], nil
}
