package client

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"sync"

	"github.com/pribylovaa/skyboot-admin-client/internal/metrics"
	"github.com/pribylovaa/skyboot-admin-client/internal/models"
	"github.com/pribylovaa/skyboot-admin-client/internal/pkg/log"
	"github.com/pribylovaa/skyboot-admin-client/internal/storage"
)

// exchangeFunc обменивает refresh-токен на новую пару.
type exchangeFunc func(ctx context.Context, refreshToken string) (models.TokenPair, error)

// ExpiredHook вызывается один раз на каждое завершение сессии координатором.
type ExpiredHook func(ctx context.Context, err error)

// coordinator сериализует обмен refresh-токена.
//
// Состояния: idle (refreshing == false) и refreshing. Проверка и установка
// флага выполняются в одной критической секции; пока обмен идёт, остальные
// вызовы ставятся в очередь waiters и освобождаются в порядке постановки.
type coordinator struct {
	store    storage.TokenStore
	exchange exchangeFunc
	log      *slog.Logger
	metrics  *metrics.Metrics

	mu         sync.Mutex
	refreshing bool
	waiters    []chan error
	hooks      []ExpiredHook
}

func (c *coordinator) onExpired(h ExpiredHook) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.hooks = append(c.hooks, h)
}

// refresh обеспечивает свежую пару токенов.
//
// sentToken — токен, с которым ушёл отвергнутый запрос. Если он уже заменён
// (завершённым обменом или новым входом), обмен не нужен. Пустой sentToken
// форсирует обмен, если он не идёт прямо сейчас.
func (c *coordinator) refresh(ctx context.Context, sentToken string) error {
	if c.stale(ctx, sentToken) {
		return nil
	}

	c.mu.Lock()
	if c.refreshing {
		done := make(chan error, 1)
		c.waiters = append(c.waiters, done)
		c.metrics.WaiterAdded()
		c.mu.Unlock()

		log.From(ctx).Debug("refresh_wait")

		select {
		case err := <-done:
			return err
		case <-ctx.Done():
			return ctx.Err()
		}
	}

	// Обмен мог завершиться между первой проверкой и захватом мьютекса.
	if c.stale(ctx, sentToken) {
		c.mu.Unlock()
		return nil
	}

	c.refreshing = true
	c.mu.Unlock()

	_, terminal, err := c.run(ctx)

	c.mu.Lock()
	waiters := c.waiters
	c.waiters = nil
	c.refreshing = false
	hooks := c.hooks
	c.mu.Unlock()

	c.metrics.WaitersReleased(len(waiters))
	for _, w := range waiters {
		w <- err
	}

	if terminal {
		for _, h := range hooks {
			h(ctx, err)
		}
	}

	return err
}

// stale — токен отвергнутого запроса уже заменён в хранилище.
func (c *coordinator) stale(ctx context.Context, sentToken string) bool {
	if sentToken == "" {
		return false
	}

	cur, err := c.store.Get(ctx, storage.KindAccess)
	if err != nil || cur == sentToken {
		return false
	}

	c.metrics.Refresh(metrics.RefreshStale)
	return true
}

// run выполняет один обмен. terminal == true — сессия завершена и хранилище очищено.
// Обмен не прерывается отменой контекста инициатора: его результат ждут другие.
func (c *coordinator) run(ctx context.Context) (models.TokenPair, bool, error) {
	const op = "client.refresh"

	ctx = context.WithoutCancel(ctx)
	lg := c.log.With(slog.String("op", op))

	rt, err := c.store.Get(ctx, storage.KindRefresh)
	if errors.Is(err, storage.ErrNotFound) {
		c.metrics.Refresh(metrics.RefreshNoToken)
		lg.Warn("refresh_no_token")
		c.clear(ctx, lg)
		return models.TokenPair{}, true, fmt.Errorf("%s: %w: %w", op, ErrSessionExpired, ErrNoRefreshToken)
	}
	if err != nil {
		c.metrics.Refresh(metrics.RefreshError)
		lg.Error("refresh_lookup_failed", slog.String("err", err.Error()))
		return models.TokenPair{}, false, fmt.Errorf("%s: %w: %w", op, ErrRefreshFailed, err)
	}

	lg.Info("refresh_started")

	pair, err := c.exchange(ctx, rt)
	if err != nil {
		if code := StatusCode(err); rejected(code) {
			c.metrics.Refresh(metrics.RefreshRejected)
			lg.Warn("refresh_rejected", slog.Int("status", code))
			c.clear(ctx, lg)
			return models.TokenPair{}, true, fmt.Errorf("%s: %w: %w: %w", op, ErrSessionExpired, ErrRefreshFailed, err)
		}

		c.metrics.Refresh(metrics.RefreshError)
		lg.Error("refresh_failed", slog.String("err", err.Error()))
		return models.TokenPair{}, false, fmt.Errorf("%s: %w: %w", op, ErrRefreshFailed, err)
	}

	// Сервер может не ротировать refresh-токен.
	if pair.RefreshToken == "" {
		pair.RefreshToken = rt
	}

	if err := c.store.Set(ctx, pair); err != nil {
		c.metrics.Refresh(metrics.RefreshError)
		lg.Error("refresh_store_failed", slog.String("err", err.Error()))
		return models.TokenPair{}, false, fmt.Errorf("%s: %w: %w", op, ErrRefreshFailed, err)
	}

	c.metrics.Refresh(metrics.RefreshSuccess)
	lg.Info("refresh_succeeded", slog.Time("expires_at", pair.ExpiresAt))

	return pair, false, nil
}

// rejected — сервер отверг сам refresh-токен. 408 и 429 говорят о нагрузке,
// а не о токене: сессия сохраняется, как при 5xx.
func rejected(code int) bool {
	switch {
	case code == http.StatusRequestTimeout, code == http.StatusTooManyRequests:
		return false
	default:
		return code >= http.StatusBadRequest && code < http.StatusInternalServerError
	}
}

func (c *coordinator) clear(ctx context.Context, lg *slog.Logger) {
	if err := c.store.Clear(ctx); err != nil {
		lg.Error("session_clear_failed", slog.String("err", err.Error()))
	}
}
