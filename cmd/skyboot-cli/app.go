package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/pribylovaa/skyboot-admin-client/internal/client"
	"github.com/pribylovaa/skyboot-admin-client/internal/config"
	"github.com/pribylovaa/skyboot-admin-client/internal/menu"
	"github.com/pribylovaa/skyboot-admin-client/internal/metrics"
	"github.com/pribylovaa/skyboot-admin-client/internal/session"
	"github.com/pribylovaa/skyboot-admin-client/internal/storage"
	"github.com/pribylovaa/skyboot-admin-client/internal/storage/file"
	"github.com/pribylovaa/skyboot-admin-client/internal/storage/memory"
	redisstore "github.com/pribylovaa/skyboot-admin-client/internal/storage/redis"
)

var errUsage = errors.New("usage")

// app — собранные зависимости одной команды.
type app struct {
	cfg     *config.Config
	log     *slog.Logger
	store   storage.TokenStore
	client  *client.Client
	session *session.Controller
	menu    *menu.Service

	// expired закрывается, когда сессия завершена и нужен повторный вход.
	expired     chan struct{}
	expiredOnce sync.Once
}

func newApp(ctx context.Context, cfg *config.Config, log *slog.Logger) (*app, error) {
	store, err := openStore(ctx, cfg.Storage)
	if err != nil {
		return nil, err
	}

	copts := client.OptionsFromConfig(cfg)
	copts.Store = store
	copts.Logger = log
	copts.Metrics = metrics.New(prometheus.DefaultRegisterer)

	cl, err := client.New(copts)
	if err != nil {
		_ = store.Close()
		return nil, err
	}

	a := &app{
		cfg:     cfg,
		log:     log,
		store:   store,
		client:  cl,
		menu:    menu.NewService(cl, menu.ServiceOptionsFromConfig(cfg)),
		expired: make(chan struct{}),
	}

	sopts := session.OptionsFromConfig(cfg)
	sopts.Logger = log
	sopts.OnExpired = a.onExpired
	a.session = session.New(cl, store, sopts)

	return a, nil
}

func (a *app) onExpired(error) {
	a.menu.Reset()
	a.expiredOnce.Do(func() { close(a.expired) })
}

func (a *app) close() error { return a.store.Close() }

// openStore выбирает хранилище токенов по storage.driver.
func openStore(ctx context.Context, cfg config.StorageConfig) (storage.TokenStore, error) {
	switch cfg.Driver {
	case "memory":
		return memory.New(), nil
	case "redis":
		s, err := redisstore.New(ctx, cfg.RedisURL, cfg.KeyPrefix)
		if err != nil {
			return nil, err
		}
		return s, nil
	case "file", "":
		s, err := file.New(cfg.Path, cfg.KeyPrefix)
		if err != nil {
			return nil, err
		}
		return s, nil
	default:
		return nil, fmt.Errorf("unknown storage driver %q", cfg.Driver)
	}
}
