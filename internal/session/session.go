// session — жизненный цикл сессии администратора: вход, выход, обновление
// токенов, восстановление при старте и загрузка профиля.
package session

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/go-playground/validator"

	"github.com/pribylovaa/skyboot-admin-client/internal/client"
	"github.com/pribylovaa/skyboot-admin-client/internal/config"
	"github.com/pribylovaa/skyboot-admin-client/internal/models"
	"github.com/pribylovaa/skyboot-admin-client/internal/pkg/log"
	"github.com/pribylovaa/skyboot-admin-client/internal/storage"
)

var (
	// ErrInvalidArgument — учётные данные не прошли локальную проверку (запрос не отправлялся).
	ErrInvalidArgument = errors.New("invalid argument")
	// ErrInvalidCredentials — сервер отверг логин/пароль (401 на входе).
	ErrInvalidCredentials = errors.New("invalid credentials")
	// ErrProfileUnavailable — токены выданы, но профиль не загрузился; токены удалены.
	ErrProfileUnavailable = errors.New("profile unavailable")
	// ErrMalformedResponse — ответ сервера без обязательных полей.
	ErrMalformedResponse = errors.New("malformed response")
)

// API — то, что контроллеру нужно от REST-клиента.
type API interface {
	Do(ctx context.Context, req *client.Request) (*client.Response, error)
	Refresh(ctx context.Context) error
	OnSessionExpired(h client.ExpiredHook)
}

// Endpoints — пути эндпоинтов сессии.
type Endpoints struct {
	Login   string
	Logout  string
	Profile string
}

type Options struct {
	Endpoints    Endpoints
	ExpiryLeeway time.Duration
	Logger       *slog.Logger
	Now          func() time.Time
	// OnExpired — сигнал "нужен повторный вход" (сессия завершена координатором).
	OnExpired func(err error)
}

// OptionsFromConfig переносит пути и запас истечения из конфигурации.
func OptionsFromConfig(cfg *config.Config) Options {
	return Options{
		Endpoints: Endpoints{
			Login:   cfg.Auth.LoginPath,
			Logout:  cfg.Auth.LogoutPath,
			Profile: cfg.Auth.ProfilePath,
		},
		ExpiryLeeway: cfg.Auth.ExpiryLeeway,
	}
}

// State — снимок сессии.
type State struct {
	Authenticated bool
	Ready         bool
	User          *models.User
	ExpiresAt     time.Time
}

type Controller struct {
	api       API
	store     storage.TokenStore
	validate  *validator.Validate
	endpoints Endpoints
	leeway    time.Duration
	log       *slog.Logger
	now       func() time.Time
	onExpired func(error)

	mu   sync.RWMutex
	user *models.User
}

// New создаёт контроллер и подписывает его на завершение сессии клиентом.
func New(api API, store storage.TokenStore, opts Options) *Controller {
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}

	c := &Controller{
		api:       api,
		store:     store,
		validate:  validator.New(),
		endpoints: opts.Endpoints,
		leeway:    opts.ExpiryLeeway,
		log:       opts.Logger,
		now:       opts.Now,
		onExpired: opts.OnExpired,
	}

	api.OnSessionExpired(c.handleExpired)

	return c
}

// Login выполняет вход, сохраняет пару токенов и загружает профиль.
// Если профиль не загрузился, токены удаляются и вход считается неуспешным.
func (c *Controller) Login(ctx context.Context, creds models.Credentials) (*models.User, error) {
	const op = "session.Login"

	creds.UserID = strings.TrimSpace(creds.UserID)

	lg := log.From(ctx).With(slog.String("op", op), slog.Any("creds", creds))

	if err := c.validate.Struct(creds); err != nil {
		lg.Warn("login_invalid_argument", slog.String("err", err.Error()))
		return nil, fmt.Errorf("%s: %w: %s", op, ErrInvalidArgument, err.Error())
	}

	resp, err := c.api.Do(ctx, &client.Request{
		Method: http.MethodPost,
		Path:   c.endpoints.Login,
		Body:   creds,
		Public: true,
	})
	if err != nil {
		if client.StatusCode(err) == http.StatusUnauthorized {
			lg.Warn("login_rejected")
			return nil, fmt.Errorf("%s: %w", op, ErrInvalidCredentials)
		}
		lg.Error("login_failed", slog.String("err", err.Error()))
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	var lr models.LoginResponse
	if err := resp.Decode(&lr); err != nil {
		return nil, fmt.Errorf("%s: %w: %w", op, ErrMalformedResponse, err)
	}

	pair := models.TokenPair{
		AccessToken:  lr.AccessToken,
		RefreshToken: lr.RefreshToken,
		ExpiresAt:    client.ExpiresAt(c.now(), lr.ExpiresIn, lr.AccessToken),
	}
	if !pair.Complete() {
		return nil, fmt.Errorf("%s: %w: token pair is incomplete", op, ErrMalformedResponse)
	}

	if err := c.store.Set(ctx, pair); err != nil {
		lg.Error("token_store_failed", slog.String("err", err.Error()))
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	user, err := c.FetchProfile(ctx)
	if err != nil {
		lg.Warn("login_profile_failed", slog.String("err", err.Error()))
		c.reset(ctx)
		return nil, fmt.Errorf("%s: %w: %w", op, ErrProfileUnavailable, err)
	}

	lg.Info("login_succeeded", slog.Time("expires_at", pair.ExpiresAt))

	return user, nil
}

// Logout уведомляет сервер (без гарантий) и всегда очищает локальное состояние.
func (c *Controller) Logout(ctx context.Context) {
	const op = "session.Logout"

	lg := log.From(ctx).With(slog.String("op", op))

	if _, err := c.store.Get(ctx, storage.KindAccess); err == nil {
		_, err := c.api.Do(ctx, &client.Request{
			Method:    http.MethodPost,
			Path:      c.endpoints.Logout,
			NoRefresh: true,
		})
		if err != nil {
			lg.Warn("logout_request_failed", slog.String("err", err.Error()))
		}
	}

	c.reset(ctx)
	lg.Info("logout_completed")
}

// RefreshTokens обменивает refresh-токен; при неудаче выполняет Logout.
func (c *Controller) RefreshTokens(ctx context.Context) error {
	const op = "session.RefreshTokens"

	if err := c.api.Refresh(ctx); err != nil {
		log.From(ctx).Warn("refresh_tokens_failed", slog.String("op", op), slog.String("err", err.Error()))
		c.Logout(ctx)
		return fmt.Errorf("%s: %w", op, err)
	}

	return nil
}

// Initialize восстанавливает сессию при старте: при наличии токенов поднимает
// кэшированный профиль и перезагружает его с сервера. Любая неудача тихо
// очищает состояние.
func (c *Controller) Initialize(ctx context.Context) {
	const op = "session.Initialize"

	lg := log.From(ctx).With(slog.String("op", op))

	if _, err := storage.LoadPair(ctx, c.store); err != nil {
		if !errors.Is(err, storage.ErrNotFound) {
			lg.Warn("session_load_failed", slog.String("err", err.Error()))
		}
		return
	}

	if raw, err := c.store.Get(ctx, storage.KindUser); err == nil {
		var u models.User
		if json.Unmarshal([]byte(raw), &u) == nil {
			c.setUser(&u)
		}
	}

	if _, err := c.FetchProfile(ctx); err != nil {
		lg.Info("session_restore_failed", slog.String("err", err.Error()))
		c.reset(ctx)
		return
	}

	lg.Debug("session_restored")
}

// FetchProfile загружает профиль текущего пользователя и кэширует его.
func (c *Controller) FetchProfile(ctx context.Context) (*models.User, error) {
	const op = "session.FetchProfile"

	resp, err := c.api.Do(ctx, &client.Request{Method: http.MethodGet, Path: c.endpoints.Profile})
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	var u models.User
	if err := resp.Decode(&u); err != nil {
		return nil, fmt.Errorf("%s: %w: %w", op, ErrMalformedResponse, err)
	}
	if u.UserID == "" {
		return nil, fmt.Errorf("%s: %w: empty user_id", op, ErrMalformedResponse)
	}

	if err := c.store.SetUser(ctx, string(resp.JSON)); err != nil {
		log.From(ctx).Warn("profile_cache_failed", slog.String("op", op), slog.String("err", err.Error()))
	}

	c.setUser(&u)

	return c.User(), nil
}

// IsAuthenticated — access-токен есть и (если срок известен) не истёк с учётом запаса.
// Готовность профиля — отдельный признак Ready.
func (c *Controller) IsAuthenticated(ctx context.Context) bool {
	pair, err := storage.LoadPair(ctx, c.store)
	if err != nil {
		return false
	}

	return !pair.Expired(c.now(), c.leeway)
}

// Ready — профиль загружен.
func (c *Controller) Ready() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()

	return c.user != nil
}

// User возвращает копию профиля или nil.
func (c *Controller) User() *models.User {
	c.mu.RLock()
	defer c.mu.RUnlock()

	if c.user == nil {
		return nil
	}

	u := *c.user
	return &u
}

// State собирает снимок сессии.
func (c *Controller) State(ctx context.Context) State {
	st := State{Ready: c.Ready(), User: c.User()}

	if pair, err := storage.LoadPair(ctx, c.store); err == nil {
		st.ExpiresAt = pair.ExpiresAt
		st.Authenticated = !pair.Expired(c.now(), c.leeway)
	}

	return st
}

func (c *Controller) handleExpired(ctx context.Context, err error) {
	c.setUser(nil)
	log.From(ctx).Warn("session_expired", slog.String("err", err.Error()))

	if c.onExpired != nil {
		c.onExpired(err)
	}
}

func (c *Controller) setUser(u *models.User) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.user = u
}

func (c *Controller) reset(ctx context.Context) {
	if err := c.store.Clear(ctx); err != nil {
		log.From(ctx).Error("session_clear_failed", slog.String("err", err.Error()))
	}

	c.setUser(nil)
}
