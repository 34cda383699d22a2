package redis

import (
	"context"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/pribylovaa/skyboot-admin-client/internal/models"
	"github.com/pribylovaa/skyboot-admin-client/internal/storage"
	"github.com/pribylovaa/skyboot-admin-client/internal/storage/storagetest"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"
)

func newMini(t *testing.T, prefix string) (*Store, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)

	s := NewWithClient(redis.NewClient(&redis.Options{Addr: mr.Addr()}), prefix)
	t.Cleanup(func() { _ = s.Close() })
	return s, mr
}

func TestStore_Contract(t *testing.T) {
	storagetest.Run(t, func(t *testing.T) storage.TokenStore {
		s, _ := newMini(t, "")
		return s
	})
}

func TestStore_KeysArePrefixed(t *testing.T) {
	ctx := context.Background()
	s, mr := newMini(t, "adm:")

	require.NoError(t, s.Set(ctx, models.TokenPair{AccessToken: "a", RefreshToken: "r"}))

	got, err := mr.Get("adm:access_token")
	require.NoError(t, err)
	require.Equal(t, "a", got)
	require.False(t, mr.Exists("adm:token_expiry"))

	// срок жизни на ключах не ставится.
	require.Zero(t, mr.TTL("adm:refresh_token"))
}

func TestNewWithClient_DefaultPrefix(t *testing.T) {
	s, _ := newMini(t, "")
	require.Equal(t, "skyboot_access_token", s.key(storage.KindAccess))
}

func TestNew_BadURL(t *testing.T) {
	_, err := New(context.Background(), "://nope", "")
	require.Error(t, err)
}

func TestNew_PingFails(t *testing.T) {
	mr := miniredis.RunT(t)
	addr := mr.Addr()
	mr.Close()

	_, err := New(context.Background(), "redis://"+addr+"/0", "")
	require.Error(t, err)
}

func TestStore_ServerDown(t *testing.T) {
	s, mr := newMini(t, "")
	mr.Close()

	_, err := s.Get(context.Background(), storage.KindAccess)
	require.Error(t, err)
	require.NotErrorIs(t, err, storage.ErrNotFound)
}
