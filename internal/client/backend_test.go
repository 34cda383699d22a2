package client

import (
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/pribylovaa/skyboot-admin-client/internal/models"
	"github.com/pribylovaa/skyboot-admin-client/internal/storage/memory"
	"github.com/stretchr/testify/require"
)

// fakeAPI — минимальный бэкенд: выдаёт access-токены поколениями и отвергает
// запросы со старым токеном.
type fakeAPI struct {
	mu      sync.Mutex
	access  string
	refresh string
	gen     int

	rotate        bool
	refreshDelay  time.Duration
	refreshStatus int
	expiresIn     int64

	refreshCalls atomic.Int32
	dataCalls    atomic.Int32
	dataRIDs     []string
	dataTenants  []string
	srv          *httptest.Server
}

func newFakeAPI(t *testing.T) *fakeAPI {
	t.Helper()

	f := &fakeAPI{access: "access-0", refresh: "refresh-0"}

	r := chi.NewRouter()
	r.Post("/api/v1/auth/refresh", f.handleRefresh)
	r.Post("/api/v1/auth/login", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusUnauthorized, map[string]any{"detail": "invalid credentials"})
	})
	r.Get("/api/v1/data", f.handleData)
	r.Post("/api/v1/echo", func(w http.ResponseWriter, r *http.Request) {
		if !f.authorized(r) {
			writeJSON(w, http.StatusUnauthorized, map[string]any{"detail": "token expired"})
			return
		}
		b, _ := io.ReadAll(r.Body)
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write(b)
	})
	r.Get("/api/v1/always401", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusUnauthorized, map[string]any{"detail": "nope"})
	})
	r.Get("/api/v1/forbidden", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusForbidden, map[string]any{"detail": "access denied"})
	})

	f.srv = httptest.NewServer(r)
	t.Cleanup(f.srv.Close)

	return f
}

func (f *fakeAPI) current() (string, string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.access, f.refresh
}

func (f *fakeAPI) authorized(r *http.Request) bool {
	access, _ := f.current()
	return r.Header.Get("Authorization") == "Bearer "+access
}

func (f *fakeAPI) handleData(w http.ResponseWriter, r *http.Request) {
	f.dataCalls.Add(1)
	f.mu.Lock()
	f.dataRIDs = append(f.dataRIDs, r.Header.Get("X-Request-Id"))
	f.dataTenants = append(f.dataTenants, r.Header.Get("X-Tenant"))
	f.mu.Unlock()
	if !f.authorized(r) {
		writeJSON(w, http.StatusUnauthorized, map[string]any{"detail": "token expired"})
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"token":      r.Header.Get("Authorization"),
		"request_id": r.Header.Get("X-Request-Id"),
	})
}

func (f *fakeAPI) handleRefresh(w http.ResponseWriter, r *http.Request) {
	f.refreshCalls.Add(1)
	if f.refreshDelay > 0 {
		time.Sleep(f.refreshDelay)
	}
	if f.refreshStatus != 0 {
		writeJSON(w, f.refreshStatus, map[string]any{"detail": "refresh failed"})
		return
	}

	var in models.RefreshRequest
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]any{"detail": "bad body"})
		return
	}

	f.mu.Lock()
	defer f.mu.Unlock()

	if in.RefreshToken != f.refresh {
		writeJSON(w, http.StatusUnauthorized, map[string]any{"detail": "invalid refresh token"})
		return
	}

	f.gen++
	f.access = fmt.Sprintf("access-%d", f.gen)
	out := map[string]any{"access_token": f.access, "token_type": "bearer", "expires_in": f.expiresIn}
	if f.rotate {
		f.refresh = fmt.Sprintf("refresh-%d", f.gen)
		out["refresh_token"] = f.refresh
	}
	writeJSON(w, http.StatusOK, out)
}

func (f *fakeAPI) requestIDs() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.dataRIDs...)
}

func (f *fakeAPI) tenants() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.dataTenants...)
}

// expire делает текущий access-токен недействительным (как истечение срока).
func (f *fakeAPI) expire() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.access = "server-only"
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func discardLogger() *slog.Logger { return slog.New(slog.NewTextHandler(io.Discard, nil)) }

// newTestClient — клиент поверх fakeAPI и хранилища в памяти с токенами поколения 0.
func newTestClient(t *testing.T, f *fakeAPI, mutate ...func(*Options)) (*Client, *memory.Store) {
	t.Helper()

	store := memory.New()
	require.NoError(t, store.Set(t.Context(), models.TokenPair{AccessToken: "access-0", RefreshToken: "refresh-0"}))

	opts := Options{
		BaseURL:     f.srv.URL,
		Timeout:     2 * time.Second,
		UserAgent:   "skyboot-test",
		PublicPaths: []string{"/api/v1/auth/login", "/api/v1/auth/refresh"},
		RefreshPath: "/api/v1/auth/refresh",
		Store:       store,
		Logger:      discardLogger(),
	}
	for _, m := range mutate {
		m(&opts)
	}

	c, err := New(opts)
	require.NoError(t, err)

	return c, store
}

func pairOf(access, refresh string) models.TokenPair {
	return models.TokenPair{AccessToken: access, RefreshToken: refresh}
}

// gaugeValue читает значение гаужа name из реестра.
func gaugeValue(t *testing.T, reg *prometheus.Registry, name string) float64 {
	t.Helper()

	mfs, err := reg.Gather()
	require.NoError(t, err)
	for _, mf := range mfs {
		if mf.GetName() == name {
			return mf.GetMetric()[0].GetGauge().GetValue()
		}
	}

	t.Fatalf("metric %s is not registered", name)
	return 0
}
