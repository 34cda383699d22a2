// redis — хранилище токенов в Redis: сессия общая для всех процессов,
// подключённых к одному инстансу и префиксу.
package redis

import (
	"context"
	"errors"
	"fmt"

	"github.com/pribylovaa/skyboot-admin-client/internal/models"
	"github.com/pribylovaa/skyboot-admin-client/internal/storage"
	"github.com/redis/go-redis/v9"
)

const defaultPrefix = "skyboot_"

type Store struct {
	rdb    *redis.Client
	prefix string
}

// New создаёт клиент Redis из URL (например, redis://:pass@host:6379/0) и
// проверяет соединение. Если prefix пустой — используется "skyboot_".
func New(ctx context.Context, redisURL, prefix string) (*Store, error) {
	const op = "storage.redis.New"

	opt, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	rdb := redis.NewClient(opt)

	// Fail-fast на старте.
	if err := rdb.Ping(ctx).Err(); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("%s: ping: %w", op, err)
	}

	return NewWithClient(rdb, prefix), nil
}

// NewWithClient оборачивает готовый клиент.
func NewWithClient(rdb *redis.Client, prefix string) *Store {
	if prefix == "" {
		prefix = defaultPrefix
	}

	return &Store{rdb: rdb, prefix: prefix}
}

func (s *Store) key(k storage.Kind) string { return s.prefix + string(k) }

func (s *Store) Get(ctx context.Context, kind storage.Kind) (string, error) {
	const op = "storage.redis.Get"

	if !kind.Valid() {
		return "", fmt.Errorf("%s: %w: %q", op, storage.ErrUnknownKind, kind)
	}

	v, err := s.rdb.Get(ctx, s.key(kind)).Result()
	if errors.Is(err, redis.Nil) {
		return "", storage.ErrNotFound
	}
	if err != nil {
		return "", fmt.Errorf("%s: %w", op, err)
	}

	return v, nil
}

// Set пишет пару в одной транзакции MULTI/EXEC: читатели не видят половину пары.
func (s *Store) Set(ctx context.Context, pair models.TokenPair) error {
	const op = "storage.redis.Set"

	values, err := storage.Values(pair)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	pipe := s.rdb.TxPipeline()
	for k, v := range values {
		if v == "" {
			pipe.Del(ctx, s.key(k))
			continue
		}
		pipe.Set(ctx, s.key(k), v, 0)
	}

	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	return nil
}

func (s *Store) SetUser(ctx context.Context, raw string) error {
	const op = "storage.redis.SetUser"

	if err := s.rdb.Set(ctx, s.key(storage.KindUser), raw, 0).Err(); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	return nil
}

func (s *Store) Clear(ctx context.Context) error {
	const op = "storage.redis.Clear"

	keys := make([]string, 0, len(storage.Kinds))
	for _, k := range storage.Kinds {
		keys = append(keys, s.key(k))
	}

	if err := s.rdb.Del(ctx, keys...).Err(); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	return nil
}

func (s *Store) Close() error { return s.rdb.Close() }
