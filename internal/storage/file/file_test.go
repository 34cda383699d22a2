package file

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"runtime"
	"testing"

	"github.com/pribylovaa/skyboot-admin-client/internal/models"
	"github.com/pribylovaa/skyboot-admin-client/internal/storage"
	"github.com/pribylovaa/skyboot-admin-client/internal/storage/storagetest"
	"github.com/stretchr/testify/require"
)

func newStore(t *testing.T, prefix string) (*Store, string) {
	t.Helper()
	path := filepath.Join(t.TempDir(), "nested", "session.json")
	s, err := New(path, prefix)
	require.NoError(t, err)
	return s, path
}

func TestStore_Contract(t *testing.T) {
	storagetest.Run(t, func(t *testing.T) storage.TokenStore {
		s, _ := newStore(t, "skyboot_")
		return s
	})
}

func TestNew_EmptyPath(t *testing.T) {
	t.Parallel()

	_, err := New("", "")
	require.Error(t, err)
}

func TestStore_DocumentLayout(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	s, path := newStore(t, "skyboot_")

	require.NoError(t, s.Set(ctx, models.TokenPair{AccessToken: "a", RefreshToken: "r"}))

	b, err := os.ReadFile(path)
	require.NoError(t, err)

	var doc map[string]string
	require.NoError(t, json.Unmarshal(b, &doc))
	require.Equal(t, map[string]string{
		"skyboot_access_token":  "a",
		"skyboot_refresh_token": "r",
	}, doc)

	if runtime.GOOS != "windows" {
		fi, err := os.Stat(path)
		require.NoError(t, err)
		require.Equal(t, os.FileMode(0o600), fi.Mode().Perm())
	}
}

// Новый экземпляр поверх того же файла видит записанное: значения долговечны.
func TestStore_SurvivesReopen(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	s, path := newStore(t, "")
	require.NoError(t, s.Set(ctx, models.TokenPair{AccessToken: "a", RefreshToken: "r"}))

	reopened, err := New(path, "")
	require.NoError(t, err)

	got, err := reopened.Get(ctx, storage.KindRefresh)
	require.NoError(t, err)
	require.Equal(t, "r", got)
}

// Clear не трогает ключи, не относящиеся к сессии.
func TestStore_ClearKeepsForeignKeys(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	s, path := newStore(t, "skyboot_")
	require.NoError(t, os.WriteFile(path, []byte(`{"theme":"dark","skyboot_access_token":"x"}`), 0o600))

	require.NoError(t, s.Clear(ctx))

	b, err := os.ReadFile(path)
	require.NoError(t, err)
	require.JSONEq(t, `{"theme":"dark"}`, string(b))
}

// Повреждённый файл не блокирует сессию: чтение видит пустоту, запись его заменяет.
func TestStore_CorruptedFileIsDiscarded(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name  string
		write func(ctx context.Context, s *Store) error
		want  string
	}{
		{
			name:  "clear",
			write: func(ctx context.Context, s *Store) error { return s.Clear(ctx) },
			want:  `{}`,
		},
		{
			name: "set",
			write: func(ctx context.Context, s *Store) error {
				return s.Set(ctx, models.TokenPair{AccessToken: "a", RefreshToken: "r"})
			},
			want: `{"access_token":"a","refresh_token":"r"}`,
		},
		{
			name:  "set_user",
			write: func(ctx context.Context, s *Store) error { return s.SetUser(ctx, `{"user_id":"admin"}`) },
			want:  `{"user":"{\"user_id\":\"admin\"}"}`,
		},
	}

	for _, garbage := range []string{`{not json`, `{"access_token":`, `[1,2]`} {
		for _, tt := range tests {
			t.Run(tt.name+"/"+garbage, func(t *testing.T) {
				t.Parallel()

				ctx := context.Background()
				s, path := newStore(t, "")
				require.NoError(t, os.WriteFile(path, []byte(garbage), 0o600))

				_, err := s.Get(ctx, storage.KindAccess)
				require.ErrorIs(t, err, storage.ErrNotFound)

				_, err = storage.LoadPair(ctx, s)
				require.ErrorIs(t, err, storage.ErrNotFound)

				require.NoError(t, tt.write(ctx, s))

				b, err := os.ReadFile(path)
				require.NoError(t, err)
				require.JSONEq(t, tt.want, string(b))
			})
		}
	}
}

// Временные файлы не остаются рядом с документом.
func TestStore_NoTempLeftovers(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	s, path := newStore(t, "")
	for i := 0; i < 3; i++ {
		require.NoError(t, s.Set(ctx, models.TokenPair{AccessToken: "a", RefreshToken: "r"}))
	}

	entries, err := os.ReadDir(filepath.Dir(path))
	require.NoError(t, err)
	require.Len(t, entries, 1)
	require.Equal(t, "session.json", entries[0].Name())
}

func TestSyncDir(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	require.NoError(t, syncDir(dir))
	require.Error(t, syncDir(filepath.Join(dir, "missing")))
}
