// client — REST-клиент админ-API: конвейер запроса (базовый URL, Bearer,
// таймаут, разбор ответа) и прозрачное восстановление сессии при 401 через
// единственный обмен refresh-токена.
package client

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/time/rate"

	"github.com/pribylovaa/skyboot-admin-client/internal/client/interceptors"
	"github.com/pribylovaa/skyboot-admin-client/internal/config"
	"github.com/pribylovaa/skyboot-admin-client/internal/metrics"
	"github.com/pribylovaa/skyboot-admin-client/internal/models"
	"github.com/pribylovaa/skyboot-admin-client/internal/pkg/log"
	"github.com/pribylovaa/skyboot-admin-client/internal/storage"
)

const defaultTimeout = 15 * time.Second

// Options — параметры клиента. Обязательны BaseURL и Store.
type Options struct {
	BaseURL     string
	Timeout     time.Duration
	UserAgent   string
	PublicPaths []string
	RefreshPath string

	Store      storage.TokenStore
	HTTPClient *http.Client
	Logger     *slog.Logger
	Metrics    *metrics.Metrics
	Limiter    *rate.Limiter

	// Mutators выполняются после Bearer и повторяются при каждой отправке,
	// включая повтор после обмена refresh-токена.
	Mutators []Mutator
	// Interceptors оборачивают отправку внутри встроенных, ближе всего к транспорту.
	Interceptors []interceptors.Interceptor

	// ProactiveRefresh — обновлять токен до отправки, если срок истёк с учётом ExpiryLeeway.
	ProactiveRefresh bool
	ExpiryLeeway     time.Duration

	// Now — источник времени (тесты).
	Now func() time.Time
}

// OptionsFromConfig собирает Options из конфигурации; зависимости задаются отдельно.
func OptionsFromConfig(cfg *config.Config) Options {
	var limiter *rate.Limiter
	if cfg.API.RateLimit > 0 {
		limiter = rate.NewLimiter(rate.Limit(cfg.API.RateLimit), max(cfg.API.RateBurst, 1))
	}

	return Options{
		BaseURL:          cfg.API.BaseURL,
		Timeout:          cfg.API.Timeout,
		UserAgent:        cfg.API.UserAgent,
		PublicPaths:      cfg.API.PublicPaths,
		RefreshPath:      cfg.Auth.RefreshPath,
		Limiter:          limiter,
		ProactiveRefresh: cfg.Auth.ProactiveRefresh,
		ExpiryLeeway:     cfg.Auth.ExpiryLeeway,
	}
}

type Client struct {
	base     string
	public   publicPaths
	store    storage.TokenStore
	mutators []Mutator
	invoke   interceptors.Invoker
	refresh  *coordinator
	log      *slog.Logger
	now      func() time.Time

	refreshPath string
	proactive   bool
	leeway      time.Duration
}

func New(opts Options) (*Client, error) {
	const op = "client.New"

	if opts.Store == nil {
		return nil, fmt.Errorf("%s: token store is required", op)
	}

	base, err := url.Parse(opts.BaseURL)
	if err != nil {
		return nil, fmt.Errorf("%s: parse base url: %w", op, err)
	}
	if base.Scheme == "" || base.Host == "" {
		return nil, fmt.Errorf("%s: base url %q must be absolute", op, opts.BaseURL)
	}

	if opts.Timeout <= 0 {
		opts.Timeout = defaultTimeout
	}
	if opts.HTTPClient == nil {
		opts.HTTPClient = &http.Client{}
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}

	c := &Client{
		base:        strings.TrimRight(base.String(), "/"),
		public:      publicPaths(opts.PublicPaths),
		store:       opts.Store,
		mutators:    append([]Mutator{Bearer(opts.Store)}, opts.Mutators...),
		log:         opts.Logger,
		now:         opts.Now,
		refreshPath: opts.RefreshPath,
		proactive:   opts.ProactiveRefresh,
		leeway:      opts.ExpiryLeeway,
	}

	if c.refreshPath == "" {
		c.refreshPath = "/api/v1/auth/refresh"
	}

	chain := []interceptors.Interceptor{
		interceptors.WithMetadata(opts.UserAgent),
		interceptors.WithTimeout(opts.Timeout),
		interceptors.WithLogging(opts.Logger),
		interceptors.WithMetrics(opts.Metrics),
		interceptors.WithRateLimit(opts.Limiter),
	}
	c.invoke = interceptors.Chain(opts.HTTPClient.Do, append(chain, opts.Interceptors...)...)

	c.refresh = &coordinator{
		store:    opts.Store,
		exchange: c.exchange,
		log:      opts.Logger,
		metrics:  opts.Metrics,
	}

	return c, nil
}

// OnSessionExpired регистрирует обработчик завершения сессии (refresh отвергнут
// или refresh-токена нет). К моменту вызова хранилище уже очищено.
func (c *Client) OnSessionExpired(h ExpiredHook) { c.refresh.onExpired(h) }

// Refresh обменивает refresh-токен; если обмен уже идёт — дожидается его итога.
func (c *Client) Refresh(ctx context.Context) error {
	return c.refresh.refresh(ctx, "")
}

// Do выполняет вызов. Ответ 401 на непубличный запрос запускает (или
// дожидается) обмен refresh-токена, после чего запрос повторяется ровно один
// раз; повторный 401 возвращается как ErrUnauthorized.
func (c *Client) Do(ctx context.Context, req *Request) (*Response, error) {
	const op = "client.Do"

	r, err := req.clone()
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	// Повтор уходит с тем же X-Request-Id.
	if log.RequestID(ctx) == "" {
		ctx = log.WithRequestID(ctx, uuid.NewString())
	}

	if c.proactive && !r.Public && !r.NoRefresh {
		if err := c.refreshIfExpiring(ctx); err != nil {
			return nil, fmt.Errorf("%s: %w", op, err)
		}
	}

	resp, err := c.send(ctx, r)
	if err == nil {
		return resp, nil
	}
	if !IsUnauthorized(err) || r.isPublic() || r.NoRefresh || r.retry {
		return nil, err
	}

	log.From(ctx).Debug("unauthorized_refreshing", slog.String("path", r.Path))

	if err := c.refresh.refresh(ctx, r.sentToken); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	r.retry = true
	resp, err = c.send(ctx, r)
	if IsUnauthorized(err) {
		return nil, fmt.Errorf("%s: %w: %w", op, ErrUnauthorized, err)
	}

	return resp, err
}

// Get — GET с декодированием JSON-ответа в out (nil — не декодировать).
func (c *Client) Get(ctx context.Context, path string, query url.Values, out any) error {
	return c.call(ctx, &Request{Method: http.MethodGet, Path: path, Query: query}, out)
}

// Post — POST с JSON-телом.
func (c *Client) Post(ctx context.Context, path string, body, out any) error {
	return c.call(ctx, &Request{Method: http.MethodPost, Path: path, Body: body}, out)
}

func (c *Client) Put(ctx context.Context, path string, body, out any) error {
	return c.call(ctx, &Request{Method: http.MethodPut, Path: path, Body: body}, out)
}

func (c *Client) Patch(ctx context.Context, path string, body, out any) error {
	return c.call(ctx, &Request{Method: http.MethodPatch, Path: path, Body: body}, out)
}

func (c *Client) Delete(ctx context.Context, path string, out any) error {
	return c.call(ctx, &Request{Method: http.MethodDelete, Path: path}, out)
}

func (c *Client) call(ctx context.Context, req *Request, out any) error {
	resp, err := c.Do(ctx, req)
	if err != nil {
		return err
	}
	if out == nil {
		return nil
	}

	return resp.Decode(out)
}

// send — один проход конвейера без восстановления сессии.
func (c *Client) send(ctx context.Context, r *Request) (*Response, error) {
	const op = "client.send"

	u, err := c.resolve(r.Path, r.Query)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	r.public = c.public.match(u.Path)

	body, err := encodeBody(r.Body)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	method := r.Method
	if method == "" {
		method = http.MethodGet
	}

	hreq, err := http.NewRequestWithContext(ctx, method, u.String(), body)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	for k, vs := range r.Header {
		for _, v := range vs {
			hreq.Header.Add(k, v)
		}
	}
	if body != nil && hreq.Header.Get("Content-Type") == "" {
		hreq.Header.Set("Content-Type", "application/json")
	}

	for _, m := range c.mutators {
		if err := m(ctx, hreq, r); err != nil {
			return nil, fmt.Errorf("%s: %w", op, err)
		}
	}
	r.sentToken = bearerToken(hreq.Header)

	hresp, err := c.invoke(hreq)
	if err != nil {
		return nil, fmt.Errorf("%s: %w: %w", op, ErrNetwork, err)
	}
	defer hresp.Body.Close()

	raw, err := io.ReadAll(hresp.Body)
	if err != nil {
		return nil, fmt.Errorf("%s: read body: %w: %w", op, ErrNetwork, err)
	}

	resp := &Response{Status: hresp.StatusCode, Header: hresp.Header, Request: r}

	switch {
	case isJSON(hresp.Header.Get("Content-Type")) && len(strings.TrimSpace(string(raw))) > 0:
		var doc json.RawMessage
		if err := json.Unmarshal(raw, &doc); err != nil {
			// Битый JSON в ответе-ошибке не скрывает сам статус.
			if resp.Status >= http.StatusBadRequest {
				resp.Text = string(raw)
				return nil, newHTTPError(resp)
			}
			return nil, fmt.Errorf("%s: decode response: %w", op, err)
		}
		resp.JSON = raw
	default:
		resp.Text = string(raw)
	}

	if resp.Status >= http.StatusBadRequest {
		return nil, newHTTPError(resp)
	}

	return resp, nil
}

func (c *Client) resolve(path string, query url.Values) (*url.URL, error) {
	var raw string
	if strings.HasPrefix(path, "http://") || strings.HasPrefix(path, "https://") {
		raw = path
	} else {
		raw = c.base + "/" + strings.TrimLeft(path, "/")
	}

	u, err := url.Parse(raw)
	if err != nil {
		return nil, fmt.Errorf("resolve %q: %w", path, err)
	}

	if len(query) > 0 {
		q := u.Query()
		for k, vs := range query {
			for _, v := range vs {
				q.Add(k, v)
			}
		}
		u.RawQuery = q.Encode()
	}

	return u, nil
}

// exchange — POST на эндпоинт refresh. Вызов публичный и без восстановления
// сессии; у него собственный request_id.
func (c *Client) exchange(ctx context.Context, refreshToken string) (models.TokenPair, error) {
	const op = "client.exchange"

	ctx = log.WithRequestID(ctx, uuid.NewString())

	resp, err := c.send(ctx, &Request{
		Method: http.MethodPost,
		Path:   c.refreshPath,
		Body:   models.RefreshRequest{RefreshToken: refreshToken},
		Public: true,
	})
	if err != nil {
		return models.TokenPair{}, fmt.Errorf("%s: %w", op, err)
	}

	var out models.RefreshResponse
	if err := resp.Decode(&out); err != nil {
		return models.TokenPair{}, fmt.Errorf("%s: %w", op, err)
	}
	if out.AccessToken == "" {
		return models.TokenPair{}, fmt.Errorf("%s: response has no access_token", op)
	}

	return models.TokenPair{
		AccessToken:  out.AccessToken,
		RefreshToken: out.RefreshToken,
		ExpiresAt:    ExpiresAt(c.now(), out.ExpiresIn, out.AccessToken),
	}, nil
}

func (c *Client) refreshIfExpiring(ctx context.Context) error {
	pair, err := storage.LoadPair(ctx, c.store)
	if err != nil {
		// Нет сессии — решение за сервером.
		return nil
	}
	if !pair.Expired(c.now(), c.leeway) {
		return nil
	}

	log.From(ctx).Debug("token_expiring_refreshing", slog.Time("expires_at", pair.ExpiresAt))
	return c.refresh.refresh(ctx, pair.AccessToken)
}
