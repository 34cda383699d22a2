// storage описывает хранилище токенов сессии и общие для бэкендов утилиты.
//
// Бэкенды: memory (тесты, эфемерные процессы), file (JSON-документ на диске),
// redis (общая сессия для нескольких процессов).
package storage

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/pribylovaa/skyboot-admin-client/internal/models"
)

var (
	// ErrNotFound — значение отсутствует (аналог null).
	ErrNotFound = errors.New("not found")
	// ErrInvalidPair — попытка сохранить неполную пару токенов.
	ErrInvalidPair = errors.New("invalid token pair")
	// ErrUnknownKind — запрошен неизвестный вид значения.
	ErrUnknownKind = errors.New("unknown kind")
)

// Kind — вид хранимого значения; строковое значение совпадает с ключом
// (без префикса) в персистентных бэкендах.
type Kind string

const (
	KindAccess  Kind = "access_token"
	KindRefresh Kind = "refresh_token"
	KindExpiry  Kind = "token_expiry"
	KindUser    Kind = "user"
)

// Kinds — все виды значений; Clear удаляет каждый из них.
var Kinds = []Kind{KindAccess, KindRefresh, KindExpiry, KindUser}

// Valid — известен ли вид.
func (k Kind) Valid() bool {
	switch k {
	case KindAccess, KindRefresh, KindExpiry, KindUser:
		return true
	default:
		return false
	}
}

// TokenStore — персистентное хранилище пары токенов и кэша профиля.
//
// Контракт:
//   - токены присутствуют либо оба, либо ни одного (Set требует полную пару,
//     Clear удаляет всё);
//   - каждая запись долговечна сразу после возврата без ошибки;
//   - срок жизни токенов здесь не контролируется.
type TokenStore interface {
	// Get возвращает значение или ErrNotFound.
	Get(ctx context.Context, kind Kind) (string, error)
	// Set атомарно записывает access, refresh и срок истечения.
	Set(ctx context.Context, pair models.TokenPair) error
	// SetUser сохраняет сериализованный профиль пользователя.
	SetUser(ctx context.Context, raw string) error
	// Clear удаляет все значения сессии.
	Clear(ctx context.Context) error
	// Close освобождает ресурсы бэкенда.
	Close() error
}

// Values раскладывает пару в значения по видам. Пустой срок истечения
// означает, что ключ нужно удалить.
func Values(pair models.TokenPair) (map[Kind]string, error) {
	if !pair.Complete() {
		return nil, ErrInvalidPair
	}

	return map[Kind]string{
		KindAccess:  pair.AccessToken,
		KindRefresh: pair.RefreshToken,
		KindExpiry:  FormatExpiry(pair.ExpiresAt),
	}, nil
}

// FormatExpiry сериализует срок истечения (RFC3339, UTC); нулевое время — "".
func FormatExpiry(t time.Time) string {
	if t.IsZero() {
		return ""
	}

	return t.UTC().Format(time.RFC3339Nano)
}

// ParseExpiry — обратное к FormatExpiry.
func ParseExpiry(s string) (time.Time, error) {
	if s == "" {
		return time.Time{}, nil
	}

	t, err := time.Parse(time.RFC3339Nano, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("parse expiry: %w", err)
	}

	return t.UTC(), nil
}

// LoadPair читает полную пару из хранилища.
// Отсутствие любого из токенов — ErrNotFound; отсутствие срока — нулевое время.
func LoadPair(ctx context.Context, s TokenStore) (models.TokenPair, error) {
	const op = "storage.LoadPair"

	access, err := s.Get(ctx, KindAccess)
	if err != nil {
		return models.TokenPair{}, fmt.Errorf("%s: %w", op, err)
	}

	refresh, err := s.Get(ctx, KindRefresh)
	if err != nil {
		return models.TokenPair{}, fmt.Errorf("%s: %w", op, err)
	}

	pair := models.TokenPair{AccessToken: access, RefreshToken: refresh}

	raw, err := s.Get(ctx, KindExpiry)
	switch {
	case errors.Is(err, ErrNotFound):
		return pair, nil
	case err != nil:
		return models.TokenPair{}, fmt.Errorf("%s: %w", op, err)
	}

	if pair.ExpiresAt, err = ParseExpiry(raw); err != nil {
		return models.TokenPair{}, fmt.Errorf("%s: %w", op, err)
	}

	return pair, nil
}
