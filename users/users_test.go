package users_test

import (
	"testing"

	"github.com/jrsteele09/go-jwt-grant/internal/errors"
	"github.com/jrsteele09/go-jwt-grant/users"
	fakeuserrepo "github.com/jrsteele09/go-jwt-grant/users/repofake"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

func TestPasswordHash(t *testing.T) {
	hash, err := users.HashPassword("Secret123")
	require.NoError(t, err)
	require.NoError(t, bcrypt.CompareHashAndPassword([]byte(hash), []byte("Secret123")))
	require.Error(t, bcrypt.CompareHashAndPassword([]byte(hash), []byte("secret123")))
}

func TestValidatePasswordStrength(t *testing.T) {
	require.NoError(t, users.ValidatePasswordStrength("Secret123"))
	require.Error(t, users.ValidatePasswordStrength("short1A"))
	require.Error(t, users.ValidatePasswordStrength("alllowercase1"))
	require.Error(t, users.ValidatePasswordStrength("ALLUPPERCASE1"))
	require.Error(t, users.ValidatePasswordStrength("NoNumbersHere"))
}

func TestFakeUserRepoLookups(t *testing.T) {
	repo := fakeuserrepo.NewFakeUserRepo()
	u := &users.User{Username: "alice", Email: "alice@example.com"}
	require.NoError(t, repo.Upsert(u))
	require.NotEmpty(t, u.GetID())

	byName, err := repo.GetByUsername("alice")
	require.NoError(t, err)
	require.Equal(t, u.ID, byName.ID)

	byEmail, err := repo.GetByEmail("alice@example.com")
	require.NoError(t, err)
	require.Equal(t, u.ID, byEmail.ID)

	require.NoError(t, repo.Delete(u.ID))
	_, err = repo.GetByUsername("alice")
	require.ErrorIs(t, err, errors.ErrNotFound)
}
