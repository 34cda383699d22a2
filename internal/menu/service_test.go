package menu

import (
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/pribylovaa/skyboot-admin-client/internal/client"
	"github.com/pribylovaa/skyboot-admin-client/internal/models"
	"github.com/pribylovaa/skyboot-admin-client/internal/storage/memory"
	"github.com/stretchr/testify/require"
)

const treePath = "/api/v1/menus/tree"

type menuAPI struct {
	calls  atomic.Int32
	status atomic.Int32
	body   atomic.Value // string
	srv    *httptest.Server
}

func newMenuAPI(t *testing.T) *menuAPI {
	t.Helper()

	a := &menuAPI{}
	a.body.Store(`{"data": [{"menu_no": 1, "menu_nm": "Home", "progrm_file_nm": "/home"}]}`)

	r := chi.NewRouter()
	r.Get(treePath, func(w http.ResponseWriter, r *http.Request) {
		a.calls.Add(1)
		if r.Header.Get("Authorization") != "Bearer menu-token" {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		if st := a.status.Load(); st != 0 {
			w.WriteHeader(int(st))
			_, _ = io.WriteString(w, `{"detail": "boom"}`)
			return
		}
		_, _ = io.WriteString(w, a.body.Load().(string))
	})

	a.srv = httptest.NewServer(r)
	t.Cleanup(a.srv.Close)
	return a
}

type clock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *clock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *clock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

func newService(t *testing.T, a *menuAPI, clk *clock) *Service {
	t.Helper()

	store := memory.New()
	require.NoError(t, store.Set(t.Context(), models.TokenPair{AccessToken: "menu-token", RefreshToken: "r"}))

	cl, err := client.New(client.Options{
		BaseURL: a.srv.URL,
		Store:   store,
		Logger:  slog.New(slog.NewTextHandler(io.Discard, nil)),
	})
	require.NoError(t, err)

	return NewService(cl, ServiceOptions{TreePath: treePath, CacheTTL: time.Minute, Now: clk.Now})
}

func TestService_CachesUntilTTL(t *testing.T) {
	t.Parallel()

	a := newMenuAPI(t)
	clk := &clock{now: time.Date(2025, 7, 1, 0, 0, 0, 0, time.UTC)}
	svc := newService(t, a, clk)

	tree, err := svc.Tree(t.Context(), false)
	require.NoError(t, err)
	n, ok := tree.ByPath("/home")
	require.True(t, ok)
	require.Equal(t, "Home", n.Name)

	again, err := svc.Tree(t.Context(), false)
	require.NoError(t, err)
	require.Same(t, tree, again)
	require.EqualValues(t, 1, a.calls.Load())

	a.body.Store(`[{"id": 1, "name": "Home"}, {"id": 2, "name": "Boards", "path": "/boards"}]`)

	clk.Advance(59 * time.Second)
	_, err = svc.Tree(t.Context(), false)
	require.NoError(t, err)
	require.EqualValues(t, 1, a.calls.Load())

	clk.Advance(time.Second)
	fresh, err := svc.Tree(t.Context(), false)
	require.NoError(t, err)
	require.EqualValues(t, 2, a.calls.Load())
	require.Equal(t, 2, fresh.Len())
	_, ok = fresh.ByPath("/boards")
	require.True(t, ok)
}

func TestService_ForceAndReset(t *testing.T) {
	t.Parallel()

	a := newMenuAPI(t)
	svc := newService(t, a, &clock{now: time.Unix(0, 0)})

	_, err := svc.Tree(t.Context(), false)
	require.NoError(t, err)
	_, err = svc.Tree(t.Context(), true)
	require.NoError(t, err)
	require.EqualValues(t, 2, a.calls.Load())

	svc.Reset()
	_, err = svc.Tree(t.Context(), false)
	require.NoError(t, err)
	require.EqualValues(t, 3, a.calls.Load())
}

func TestService_ErrorsKeepCache(t *testing.T) {
	t.Parallel()

	a := newMenuAPI(t)
	clk := &clock{now: time.Unix(0, 0)}
	svc := newService(t, a, clk)

	cached, err := svc.Tree(t.Context(), false)
	require.NoError(t, err)

	a.status.Store(http.StatusForbidden)
	_, err = svc.Tree(t.Context(), true)
	require.Equal(t, http.StatusForbidden, client.StatusCode(err))

	a.status.Store(0)
	a.body.Store(`[{"name": "broken"}]`)
	_, err = svc.Tree(t.Context(), true)
	require.ErrorIs(t, err, ErrMissingID)

	got, err := svc.Tree(t.Context(), false)
	require.NoError(t, err)
	require.Same(t, cached, got)
}

func TestService_ConcurrentCallersShareFetch(t *testing.T) {
	t.Parallel()

	a := newMenuAPI(t)
	svc := newService(t, a, &clock{now: time.Unix(0, 0)})

	errs := make(chan error, 8)
	var wg sync.WaitGroup
	for range 8 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := svc.Tree(t.Context(), false)
			errs <- err
		}()
	}
	wg.Wait()
	close(errs)

	for err := range errs {
		require.NoError(t, err)
	}

	require.EqualValues(t, 1, a.calls.Load())
}
