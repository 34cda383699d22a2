// storagetest — общий набор проверок контракта storage.TokenStore,
// прогоняемый каждым бэкендом.
package storagetest

import (
	"context"
	"testing"
	"time"

	"github.com/pribylovaa/skyboot-admin-client/internal/models"
	"github.com/pribylovaa/skyboot-admin-client/internal/storage"
	"github.com/stretchr/testify/require"
)

// Run прогоняет контракт на свежем хранилище из newStore для каждого подтеста.
func Run(t *testing.T, newStore func(t *testing.T) storage.TokenStore) {
	t.Helper()

	t.Run("empty_returns_not_found", func(t *testing.T) {
		s := newStore(t)
		for _, k := range storage.Kinds {
			_, err := s.Get(context.Background(), k)
			require.ErrorIs(t, err, storage.ErrNotFound, k)
		}
	})

	t.Run("set_then_get", func(t *testing.T) {
		ctx := context.Background()
		s := newStore(t)

		exp := time.Date(2030, 1, 2, 3, 4, 5, 0, time.UTC)
		require.NoError(t, s.Set(ctx, models.TokenPair{AccessToken: "acc", RefreshToken: "ref", ExpiresAt: exp}))

		got, err := s.Get(ctx, storage.KindAccess)
		require.NoError(t, err)
		require.Equal(t, "acc", got)

		got, err = s.Get(ctx, storage.KindRefresh)
		require.NoError(t, err)
		require.Equal(t, "ref", got)

		pair, err := storage.LoadPair(ctx, s)
		require.NoError(t, err)
		require.True(t, exp.Equal(pair.ExpiresAt))
	})

	t.Run("set_overwrites_and_drops_expiry", func(t *testing.T) {
		ctx := context.Background()
		s := newStore(t)

		require.NoError(t, s.Set(ctx, models.TokenPair{AccessToken: "a1", RefreshToken: "r1", ExpiresAt: time.Now().Add(time.Hour)}))
		require.NoError(t, s.Set(ctx, models.TokenPair{AccessToken: "a2", RefreshToken: "r2"}))

		got, err := s.Get(ctx, storage.KindAccess)
		require.NoError(t, err)
		require.Equal(t, "a2", got)

		_, err = s.Get(ctx, storage.KindExpiry)
		require.ErrorIs(t, err, storage.ErrNotFound)
	})

	t.Run("set_rejects_incomplete_pair", func(t *testing.T) {
		ctx := context.Background()
		s := newStore(t)

		err := s.Set(ctx, models.TokenPair{AccessToken: "only"})
		require.ErrorIs(t, err, storage.ErrInvalidPair)

		_, err = s.Get(ctx, storage.KindAccess)
		require.ErrorIs(t, err, storage.ErrNotFound)
	})

	t.Run("user_record", func(t *testing.T) {
		ctx := context.Background()
		s := newStore(t)

		require.NoError(t, s.SetUser(ctx, `{"user_id":"admin"}`))
		got, err := s.Get(ctx, storage.KindUser)
		require.NoError(t, err)
		require.JSONEq(t, `{"user_id":"admin"}`, got)
	})

	t.Run("clear_removes_everything", func(t *testing.T) {
		ctx := context.Background()
		s := newStore(t)

		require.NoError(t, s.Set(ctx, models.TokenPair{AccessToken: "a", RefreshToken: "r", ExpiresAt: time.Now()}))
		require.NoError(t, s.SetUser(ctx, `{}`))
		require.NoError(t, s.Clear(ctx))

		for _, k := range storage.Kinds {
			_, err := s.Get(ctx, k)
			require.ErrorIs(t, err, storage.ErrNotFound, k)
		}

		// повторная очистка не ошибка.
		require.NoError(t, s.Clear(ctx))
	})

	t.Run("unknown_kind", func(t *testing.T) {
		s := newStore(t)
		_, err := s.Get(context.Background(), storage.Kind("nope"))
		require.ErrorIs(t, err, storage.ErrUnknownKind)
	})
}
