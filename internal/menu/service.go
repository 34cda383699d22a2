package menu

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/pribylovaa/skyboot-admin-client/internal/client"
	"github.com/pribylovaa/skyboot-admin-client/internal/config"
	"github.com/pribylovaa/skyboot-admin-client/internal/pkg/log"
)

const defaultCacheTTL = 5 * time.Minute

// Doer — вызов API через конвейер клиента (Bearer, восстановление сессии).
type Doer interface {
	Do(ctx context.Context, req *client.Request) (*client.Response, error)
}

type ServiceOptions struct {
	TreePath string
	// CacheTTL — срок жизни загруженного дерева; 0 — значение по умолчанию.
	CacheTTL time.Duration
	Now      func() time.Time
}

// ServiceOptionsFromConfig переносит настройки меню из конфигурации.
func ServiceOptionsFromConfig(cfg *config.Config) ServiceOptions {
	return ServiceOptions{TreePath: cfg.Menu.TreePath, CacheTTL: cfg.Menu.CacheTTL}
}

// Service загружает дерево меню и держит его в кэше до истечения TTL.
type Service struct {
	api  Doer
	path string
	ttl  time.Duration
	now  func() time.Time

	mu        sync.Mutex
	tree      *Tree
	fetchedAt time.Time
}

func NewService(api Doer, opts ServiceOptions) *Service {
	if opts.CacheTTL <= 0 {
		opts.CacheTTL = defaultCacheTTL
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}

	return &Service{api: api, path: opts.TreePath, ttl: opts.CacheTTL, now: opts.Now}
}

// Tree возвращает дерево из кэша или загружает его заново (force — всегда
// загружать). Конкурентные вызовы выполняют не более одной загрузки.
// При ошибке загрузки кэш не трогается.
func (s *Service) Tree(ctx context.Context, force bool) (*Tree, error) {
	const op = "menu.Tree"

	s.mu.Lock()
	defer s.mu.Unlock()

	if !force && s.tree != nil && s.now().Sub(s.fetchedAt) < s.ttl {
		return s.tree, nil
	}

	lg := log.From(ctx).With(slog.String("op", op))

	resp, err := s.api.Do(ctx, &client.Request{Method: http.MethodGet, Path: s.path})
	if err != nil {
		lg.Warn("menu_fetch_failed", slog.String("err", err.Error()))
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	nodes, err := Normalize(resp.JSON)
	if err != nil {
		lg.Warn("menu_malformed", slog.String("err", err.Error()))
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	s.tree = NewTree(BuildTree(Flatten(nodes)))
	s.fetchedAt = s.now()

	lg.Debug("menu_loaded", slog.Int("nodes", s.tree.Len()))

	return s.tree, nil
}

// Reset сбрасывает кэш (например, при выходе).
func (s *Service) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.tree = nil
	s.fetchedAt = time.Time{}
}
