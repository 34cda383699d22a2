package client

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/pribylovaa/skyboot-admin-client/internal/storage"
)

// Mutator изменяет исходящий запрос до цепочки перехватчиков.
type Mutator func(ctx context.Context, req *http.Request, call *Request) error

// Bearer прикладывает access-токен из хранилища ко всем непубличным вызовам.
// Отсутствие токена — не ошибка: запрос уходит без авторизации.
func Bearer(store storage.TokenStore) Mutator {
	return func(ctx context.Context, req *http.Request, call *Request) error {
		if call.isPublic() {
			return nil
		}

		tok, err := store.Get(ctx, storage.KindAccess)
		if errors.Is(err, storage.ErrNotFound) {
			return nil
		}
		if err != nil {
			return fmt.Errorf("bearer: %w", err)
		}

		req.Header.Set("Authorization", "Bearer "+tok)
		return nil
	}
}

func bearerToken(h http.Header) string {
	tok, ok := strings.CutPrefix(h.Get("Authorization"), "Bearer ")
	if !ok {
		return ""
	}

	return tok
}

// publicPaths — список эндпоинтов без авторизации. Совпадение по точному пути
// или по суффиксу (базовый URL может содержать префикс).
type publicPaths []string

func (p publicPaths) match(path string) bool {
	for _, pp := range p {
		if pp == "" {
			continue
		}
		if path == pp || strings.HasSuffix(path, pp) {
			return true
		}
	}

	return false
}
