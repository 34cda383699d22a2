// file — хранилище токенов в JSON-документе на диске.
//
// Документ — плоский объект {"<prefix><kind>": "<value>"}. Каждая запись
// перечитывает файл и атомарно заменяет его (temp + fsync + rename), так что
// несколько процессов CLI видят согласованное состояние.
package file

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"runtime"
	"sync"

	"github.com/pribylovaa/skyboot-admin-client/internal/models"
	"github.com/pribylovaa/skyboot-admin-client/internal/pkg/log"
	"github.com/pribylovaa/skyboot-admin-client/internal/storage"
)

// errCorrupted — файл есть, но не разбирается как документ сессии.
var errCorrupted = errors.New("session file is corrupted")

type Store struct {
	mu     sync.Mutex
	path   string
	prefix string
}

// New готовит каталог под файл сессии (0700). Сам файл создаётся при первой записи.
func New(path, prefix string) (*Store, error) {
	const op = "storage.file.New"

	if path == "" {
		return nil, fmt.Errorf("%s: empty path", op)
	}

	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	return &Store{path: path, prefix: prefix}, nil
}

func (s *Store) key(k storage.Kind) string { return s.prefix + string(k) }

// Get для повреждённого файла возвращает ErrNotFound: сессии фактически нет.
func (s *Store) Get(ctx context.Context, kind storage.Kind) (string, error) {
	const op = "storage.file.Get"

	if !kind.Valid() {
		return "", fmt.Errorf("%s: %w: %q", op, storage.ErrUnknownKind, kind)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	doc, err := s.read()
	if errors.Is(err, errCorrupted) {
		log.From(ctx).Warn("session_file_corrupted", slog.String("op", op), slog.String("err", err.Error()))
		return "", storage.ErrNotFound
	}
	if err != nil {
		return "", fmt.Errorf("%s: %w", op, err)
	}

	v, ok := doc[s.key(kind)]
	if !ok {
		return "", storage.ErrNotFound
	}

	return v, nil
}

func (s *Store) Set(ctx context.Context, pair models.TokenPair) error {
	const op = "storage.file.Set"

	values, err := storage.Values(pair)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	return s.update(ctx, op, func(doc map[string]string) {
		for k, v := range values {
			if v == "" {
				delete(doc, s.key(k))
				continue
			}
			doc[s.key(k)] = v
		}
	})
}

func (s *Store) SetUser(ctx context.Context, raw string) error {
	return s.update(ctx, "storage.file.SetUser", func(doc map[string]string) {
		doc[s.key(storage.KindUser)] = raw
	})
}

// Clear удаляет только ключи сессии: чужие ключи в документе сохраняются.
func (s *Store) Clear(ctx context.Context) error {
	return s.update(ctx, "storage.file.Clear", func(doc map[string]string) {
		for _, k := range storage.Kinds {
			delete(doc, s.key(k))
		}
	})
}

func (s *Store) Close() error { return nil }

// update перезаписывает документ. Повреждённый файл отбрасывается целиком:
// иначе сессию нельзя ни очистить, ни заменить новым входом.
func (s *Store) update(ctx context.Context, op string, fn func(doc map[string]string)) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	doc, err := s.read()
	if errors.Is(err, errCorrupted) {
		log.From(ctx).Warn("session_file_discarded", slog.String("op", op), slog.String("err", err.Error()))
		doc, err = make(map[string]string), nil
	}
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	fn(doc)

	if err := s.write(doc); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	return nil
}

func (s *Store) read() (map[string]string, error) {
	doc := make(map[string]string)

	b, err := os.ReadFile(s.path)
	if errors.Is(err, fs.ErrNotExist) {
		return doc, nil
	}
	if err != nil {
		return nil, err
	}

	if len(b) == 0 {
		return doc, nil
	}

	if err := json.Unmarshal(b, &doc); err != nil {
		return nil, fmt.Errorf("%w: decode %s: %w", errCorrupted, s.path, err)
	}

	return doc, nil
}

func (s *Store) write(doc map[string]string) error {
	b, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return err
	}

	tmp, err := os.CreateTemp(filepath.Dir(s.path), ".session-*.tmp")
	if err != nil {
		return err
	}
	tmpName := tmp.Name()

	cleanup := func(err error) error {
		_ = tmp.Close()
		_ = os.Remove(tmpName)
		return err
	}

	if err := tmp.Chmod(0o600); err != nil {
		return cleanup(err)
	}
	if _, err := tmp.Write(b); err != nil {
		return cleanup(err)
	}
	if err := tmp.Sync(); err != nil {
		return cleanup(err)
	}
	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmpName)
		return err
	}

	if err := os.Rename(tmpName, s.path); err != nil {
		_ = os.Remove(tmpName)
		return err
	}

	return syncDir(filepath.Dir(s.path))
}

// syncDir фиксирует на диске запись каталога после rename.
func syncDir(dir string) error {
	d, err := os.Open(dir)
	if err != nil {
		return err
	}
	defer d.Close()

	if err := d.Sync(); err != nil && runtime.GOOS != "windows" {
		return fmt.Errorf("sync dir %s: %w", dir, err)
	}

	return nil
}
