package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/pribylovaa/skyboot-admin-client/internal/config"
	apperrors "github.com/pribylovaa/skyboot-admin-client/internal/errors"
	"github.com/pribylovaa/skyboot-admin-client/internal/pkg/log"
)

const (
	envLocal = "local"
	envDev   = "dev"
	envProd  = "prod"
)

const usage = `usage: skyboot-cli [-config path] <command> [args]

commands:
  login <user_id>   log in (password from SKYBOOT_PASSWORD or stdin)
  logout            end the session
  whoami            print the current user
  refresh           exchange the refresh token
  menu              print the menu visible to the current user
  watch             keep the session alive, serve /metrics when configured
`

func main() {
	var configPath string
	flag.StringVar(&configPath, "config", "", "path to config file")
	flag.Usage = func() { fmt.Fprint(os.Stderr, usage) }
	flag.Parse()

	if flag.NArg() == 0 {
		flag.Usage()
		os.Exit(2)
	}

	cfg := config.MustLoad(configPath)

	logger := setupLogger(cfg.Env)
	slog.SetDefault(logger)

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()
	ctx = log.Into(ctx, logger)

	a, err := newApp(ctx, cfg, logger)
	if err != nil {
		logger.Error("app_init_failed", slog.String("err", err.Error()))
		os.Exit(1)
	}

	err = a.run(ctx, flag.Arg(0), flag.Args()[1:])

	if cerr := a.close(); cerr != nil {
		logger.Warn("store_close_failed", slog.String("err", cerr.Error()))
	}

	if err != nil {
		if errors.Is(err, errUsage) {
			flag.Usage()
			os.Exit(2)
		}

		p := apperrors.Classify(err)
		logger.Debug("command_failed", slog.String("cmd", flag.Arg(0)), slog.String("err", err.Error()))

		// Ошибки самой CLI (нет сессии, неверный драйвер) показываются как есть.
		msg := p.Message
		if p.Code == "internal" {
			msg = err.Error()
		}
		fmt.Fprintf(os.Stderr, "error: %s\n", msg)
		os.Exit(1)
	}
}

// Логи уходят в stderr: stdout занят результатом команды.
func setupLogger(env string) *slog.Logger {
	switch env {
	case envLocal:
		return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelDebug}))
	case envDev:
		return slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelDebug}))
	case envProd:
		return slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelInfo}))
	default:
		return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelDebug}))
	}
}
