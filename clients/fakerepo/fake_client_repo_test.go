package fakeclientrepo_test

import (
	"testing"

	"github.com/jrsteele09/go-jwt-grant/clients"
	fakeclientrepo "github.com/jrsteele09/go-jwt-grant/clients/fakerepo"
	"github.com/jrsteele09/go-jwt-grant/internal/errors"
	"github.com/stretchr/testify/require"
)

func TestFakeClientRepo(t *testing.T) {
	repo := fakeclientrepo.NewFakeClientRepo()

	t.Run("generates a uid", func(t *testing.T) {
		c := &clients.Client{Secret: "s"}
		require.NoError(t, repo.Upsert(c))
		require.NotEmpty(t, c.UID)
		require.False(t, c.CreatedAt.IsZero())

		got, err := repo.GetByUID(c.UID)
		require.NoError(t, err)
		require.Same(t, c, got)
	})

	t.Run("unknown uid", func(t *testing.T) {
		_, err := repo.GetByUID("missing")
		require.ErrorIs(t, err, errors.ErrNotFound)
	})

	t.Run("list pages", func(t *testing.T) {
		r := fakeclientrepo.NewFakeClientRepo()
		for _, uid := range []string{"c", "a", "b"} {
			require.NoError(t, r.Upsert(&clients.Client{UID: uid}))
		}
		page, err := r.List(1, 5)
		require.NoError(t, err)
		require.Len(t, page, 2)
		require.Equal(t, "b", page[0].UID)

		page, err = r.List(3, 5)
		require.NoError(t, err)
		require.Empty(t, page)
	})

	t.Run("delete", func(t *testing.T) {
		r := fakeclientrepo.NewFakeClientRepo()
		require.NoError(t, r.Upsert(&clients.Client{UID: "x"}))
		require.NoError(t, r.Delete("x"))
		require.ErrorIs(t, r.Delete("x"), errors.ErrNotFound)
	})
}
