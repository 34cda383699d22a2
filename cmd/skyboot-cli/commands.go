package main

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/pribylovaa/skyboot-admin-client/internal/menu"
	"github.com/pribylovaa/skyboot-admin-client/internal/models"
	"github.com/pribylovaa/skyboot-admin-client/internal/pkg/redact"
)

const passwordEnv = "SKYBOOT_PASSWORD"

func (a *app) run(ctx context.Context, cmd string, args []string) error {
	switch cmd {
	case "login":
		return a.login(ctx, args)
	case "logout":
		a.session.Logout(ctx)
		a.menu.Reset()
		fmt.Fprintln(os.Stdout, "logged out")
		return nil
	case "whoami":
		return a.whoami(ctx)
	case "refresh":
		return a.refresh(ctx)
	case "menu":
		return a.printMenu(ctx)
	case "watch":
		return a.watch(ctx, args)
	default:
		return errUsage
	}
}

func (a *app) login(ctx context.Context, args []string) error {
	if len(args) != 1 {
		return errUsage
	}

	password, err := readPassword(os.Stdin)
	if err != nil {
		return err
	}

	user, err := a.session.Login(ctx, models.Credentials{UserID: args[0], Password: password})
	if err != nil {
		return err
	}

	a.log.Info("logged_in", slog.String("user_id", redact.UserID(user.UserID)))
	fmt.Fprintf(os.Stdout, "logged in as %s (%s)\n", user.UserID, user.Name)

	return nil
}

// readPassword берёт пароль из SKYBOOT_PASSWORD, иначе первую строку r.
func readPassword(r io.Reader) (string, error) {
	if p := os.Getenv(passwordEnv); p != "" {
		return p, nil
	}

	line, err := bufio.NewReader(r).ReadString('\n')
	if err != nil && !errors.Is(err, io.EOF) {
		return "", fmt.Errorf("read password: %w", err)
	}

	return strings.TrimRight(line, "\r\n"), nil
}

// restore поднимает сохранённую сессию; без неё команда бессмысленна.
func (a *app) restore(ctx context.Context) (*models.User, error) {
	a.session.Initialize(ctx)

	u := a.session.User()
	if u == nil {
		return nil, errors.New("not logged in")
	}

	return u, nil
}

func (a *app) whoami(ctx context.Context) error {
	u, err := a.restore(ctx)
	if err != nil {
		return err
	}

	st := a.session.State(ctx)

	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(struct {
		*models.User
		ExpiresAt *time.Time `json:"expires_at,omitempty"`
	}{User: u, ExpiresAt: timePtr(st.ExpiresAt)})
}

func (a *app) refresh(ctx context.Context) error {
	if err := a.session.RefreshTokens(ctx); err != nil {
		return err
	}

	st := a.session.State(ctx)
	if st.ExpiresAt.IsZero() {
		fmt.Fprintln(os.Stdout, "tokens refreshed")
		return nil
	}

	fmt.Fprintf(os.Stdout, "tokens refreshed, expire at %s\n", st.ExpiresAt.Local().Format(time.RFC3339))
	return nil
}

func (a *app) printMenu(ctx context.Context) error {
	u, err := a.restore(ctx)
	if err != nil {
		return err
	}

	tree, err := a.menu.Tree(ctx, false)
	if err != nil {
		return err
	}

	writeMenu(os.Stdout, menu.Filter(tree.Roots(), u), 0)
	return nil
}

func writeMenu(w io.Writer, nodes []*models.MenuNode, depth int) {
	for _, n := range nodes {
		line := strings.Repeat("  ", depth) + n.Name
		if n.Path != "" {
			line += "  " + n.Path
		}
		fmt.Fprintln(w, line)

		writeMenu(w, n.Children, depth+1)
	}
}

// watch держит сессию живой: периодически перечитывает профиль и меню.
// Завершается по сигналу или когда сессию восстановить нельзя.
func (a *app) watch(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("watch", flag.ContinueOnError)
	interval := fs.Duration("interval", time.Minute, "profile check interval")
	if err := fs.Parse(args); err != nil {
		return errUsage
	}

	if _, err := a.restore(ctx); err != nil {
		return err
	}

	if a.cfg.Metrics.Enabled() {
		stop, err := a.serveMetrics()
		if err != nil {
			return err
		}
		defer stop()
	}

	a.log.Info("watch_started", slog.Duration("interval", *interval))

	ticker := time.NewTicker(*interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			a.log.Info("watch_stopped")
			return nil
		case <-a.expired:
			return errors.New("session expired, log in again")
		case <-ticker.C:
		}

		if _, err := a.session.FetchProfile(ctx); err != nil {
			a.log.Warn("watch_profile_failed", slog.String("err", err.Error()))
			continue
		}
		if _, err := a.menu.Tree(ctx, false); err != nil {
			a.log.Warn("watch_menu_failed", slog.String("err", err.Error()))
		}
	}
}

func (a *app) serveMetrics() (func(), error) {
	addr := a.cfg.Metrics.Addr()

	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())

	srv := &http.Server{Handler: mux, ReadHeaderTimeout: 5 * time.Second}

	ln, err := net.Listen("tcp", addr)
	if err != nil {
		a.log.Error("metrics_listen_failed", slog.String("addr", addr), slog.String("err", err.Error()))
		return nil, err
	}

	go func() {
		if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			a.log.Error("metrics_serve_failed", slog.String("err", err.Error()))
		}
	}()

	a.log.Info("metrics_listen_start", slog.String("addr", addr))

	return func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()

		if err := srv.Shutdown(shutdownCtx); err != nil {
			a.log.Warn("metrics_shutdown_incomplete", slog.String("err", err.Error()))
		}
	}, nil
}

func timePtr(t time.Time) *time.Time {
	if t.IsZero() {
		return nil
	}
	return &t
}
