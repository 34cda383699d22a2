// memory — хранилище токенов в памяти процесса.
package memory

import (
	"context"
	"fmt"
	"sync"

	"github.com/pribylovaa/skyboot-admin-client/internal/models"
	"github.com/pribylovaa/skyboot-admin-client/internal/storage"
)

type Store struct {
	mu   sync.RWMutex
	data map[storage.Kind]string
}

func New() *Store {
	return &Store{data: make(map[storage.Kind]string, len(storage.Kinds))}
}

func (s *Store) Get(_ context.Context, kind storage.Kind) (string, error) {
	const op = "storage.memory.Get"

	if !kind.Valid() {
		return "", fmt.Errorf("%s: %w: %q", op, storage.ErrUnknownKind, kind)
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	v, ok := s.data[kind]
	if !ok {
		return "", storage.ErrNotFound
	}

	return v, nil
}

func (s *Store) Set(_ context.Context, pair models.TokenPair) error {
	const op = "storage.memory.Set"

	values, err := storage.Values(pair)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	for k, v := range values {
		if v == "" {
			delete(s.data, k)
			continue
		}
		s.data[k] = v
	}

	return nil
}

func (s *Store) SetUser(_ context.Context, raw string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.data[storage.KindUser] = raw
	return nil
}

func (s *Store) Clear(context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	clear(s.data)
	return nil
}

func (s *Store) Close() error { return nil }
