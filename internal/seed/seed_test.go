package seed_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/jrsteele09/go-jwt-grant/clients"
	fakeclientrepo "github.com/jrsteele09/go-jwt-grant/clients/fakerepo"
	"github.com/jrsteele09/go-jwt-grant/internal/seed"
	"github.com/jrsteele09/go-jwt-grant/users"
	fakeuserrepo "github.com/jrsteele09/go-jwt-grant/users/repofake"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

const document = `
applications:
  - uid: billing
    secret: s3cret
    name: Billing
    scopes: [read, write]
resource_owners:
  - id: "99"
    username: alice
    email: alice@example.com
    password: Passw0rd!
  - username: bob
    blocked: true
`

type testFixture struct {
	clients clients.Repo
	users   users.UserRepo
}

func setupTestFixture(t *testing.T) *testFixture {
	t.Helper()
	return &testFixture{
		clients: fakeclientrepo.NewFakeClientRepo(),
		users:   fakeuserrepo.NewFakeUserRepo(),
	}
}

func TestLoad(t *testing.T) {
	t.Run("loads applications and resource owners", func(t *testing.T) {
		f := setupTestFixture(t)
		result, err := seed.Load([]byte(document), f.clients, f.users)
		require.NoError(t, err)
		require.Equal(t, seed.Result{Applications: 1, ResourceOwners: 2}, result)

		app, err := f.clients.GetByUID("billing")
		require.NoError(t, err)
		require.Equal(t, "s3cret", app.Secret)
		require.Equal(t, []string{"read", "write"}, app.Scopes)
		require.False(t, app.CreatedAt.IsZero())

		alice, err := f.users.GetByUsername("alice")
		require.NoError(t, err)
		require.Equal(t, "99", alice.ID)
		require.NotEqual(t, "Passw0rd!", alice.PasswordHash)
		require.NoError(t, bcrypt.CompareHashAndPassword([]byte(alice.PasswordHash), []byte("Passw0rd!")))

		bob, err := f.users.GetByUsername("bob")
		require.NoError(t, err)
		require.True(t, bob.Blocked)
		require.NotEmpty(t, bob.ID)
	})

	t.Run("rejects unknown keys", func(t *testing.T) {
		f := setupTestFixture(t)
		_, err := seed.Load([]byte("applications:\n  - uid: a\n    secret: b\n    colour: red\n"), f.clients, f.users)
		require.Error(t, err)
	})

	t.Run("requires a uid and secret", func(t *testing.T) {
		f := setupTestFixture(t)
		_, err := seed.Load([]byte("applications:\n  - uid: a\n"), f.clients, f.users)
		require.ErrorContains(t, err, "uid and secret are required")
	})

	t.Run("rejects weak passwords", func(t *testing.T) {
		f := setupTestFixture(t)
		_, err := seed.Load([]byte("resource_owners:\n  - username: carol\n    password: password\n"), f.clients, f.users)
		require.ErrorContains(t, err, "uppercase letter")

		_, err = f.users.GetByUsername("carol")
		require.Error(t, err)
	})

	t.Run("reads a file", func(t *testing.T) {
		f := setupTestFixture(t)
		path := filepath.Join(t.TempDir(), "seed.yaml")
		require.NoError(t, os.WriteFile(path, []byte(document), 0o600))

		result, err := seed.LoadFile(path, f.clients, f.users)
		require.NoError(t, err)
		require.Equal(t, 1, result.Applications)

		_, err = seed.LoadFile(filepath.Join(t.TempDir(), "missing.yaml"), f.clients, f.users)
		require.Error(t, err)
	})
}
