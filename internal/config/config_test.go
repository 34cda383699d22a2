package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

// writeFile — утилита записи временного файла конфигурации.
func writeFile(t *testing.T, dir, name, data string) string {
	t.Helper()
	p := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(p, []byte(data), 0o600))
	return p
}

// chdir — смена текущего рабочего каталога с авто-возвратом.
func chdir(t *testing.T, dir string) {
	t.Helper()
	wd, err := os.Getwd()
	require.NoError(t, err)
	require.NoError(t, os.Chdir(dir))
	t.Cleanup(func() { _ = os.Chdir(wd) })
}

const sampleYAML = `
env: "prod"
api:
  base_url: "https://admin.example.com"
  timeout: "3s"
  user_agent: "skyboot-test"
  rate_limit: 5
  rate_burst: 2
  public_paths: ["/auth/login", "/auth/refresh", "/health"]
auth:
  login_path: "/auth/login"
  refresh_path: "/auth/refresh"
  logout_path: "/auth/logout"
  profile_path: "/auth/me"
  expiry_leeway: "1m"
  proactive_refresh: true
storage:
  driver: "redis"
  key_prefix: "adm_"
  redis_url: "redis://10.0.0.1:6379/1"
menu:
  tree_path: "/menus/tree"
  cache_ttl: "30s"
metrics:
  host: "0.0.0.0"
  port: "9090"
`

const minimalYAML = `
env: "stage"
`

const brokenYAML = `
env: [unclosed
`

func TestMetricsConfig_Addr(t *testing.T) {
	t.Parallel()

	cfg := MetricsConfig{Host: "127.0.0.1", Port: "9090"}
	require.Equal(t, "127.0.0.1:9090", cfg.Addr())
	require.True(t, cfg.Enabled())
	require.False(t, MetricsConfig{}.Enabled())
}

func TestLoad_WithExplicitPath_OK(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	cfgPath := writeFile(t, dir, "config.yaml", sampleYAML)

	cfg, err := Load(cfgPath)
	require.NoError(t, err)

	require.Equal(t, "prod", cfg.Env)
	require.Equal(t, "https://admin.example.com", cfg.API.BaseURL)
	require.Equal(t, 3*time.Second, cfg.API.Timeout)
	require.Equal(t, "skyboot-test", cfg.API.UserAgent)
	require.InDelta(t, 5.0, cfg.API.RateLimit, 1e-9)
	require.Equal(t, 2, cfg.API.RateBurst)
	require.Equal(t, []string{"/auth/login", "/auth/refresh", "/health"}, cfg.API.PublicPaths)

	require.Equal(t, "/auth/login", cfg.Auth.LoginPath)
	require.Equal(t, "/auth/me", cfg.Auth.ProfilePath)
	require.Equal(t, time.Minute, cfg.Auth.ExpiryLeeway)
	require.True(t, cfg.Auth.ProactiveRefresh)

	require.Equal(t, "redis", cfg.Storage.Driver)
	require.Equal(t, "adm_", cfg.Storage.KeyPrefix)
	require.Equal(t, "redis://10.0.0.1:6379/1", cfg.Storage.RedisURL)

	require.Equal(t, "/menus/tree", cfg.Menu.TreePath)
	require.Equal(t, 30*time.Second, cfg.Menu.CacheTTL)
	require.Equal(t, "0.0.0.0:9090", cfg.Metrics.Addr())
}

func TestLoad_Defaults(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	cfgPath := writeFile(t, dir, "min.yaml", minimalYAML)

	cfg, err := Load(cfgPath)
	require.NoError(t, err)

	require.Equal(t, "stage", cfg.Env)
	require.Equal(t, 15*time.Second, cfg.API.Timeout)
	require.Equal(t, []string{"/api/v1/auth/login", "/api/v1/auth/refresh"}, cfg.API.PublicPaths)
	require.Equal(t, "/api/v1/auth/refresh", cfg.Auth.RefreshPath)
	require.Equal(t, 30*time.Second, cfg.Auth.ExpiryLeeway)
	require.Equal(t, "file", cfg.Storage.Driver)
	require.Equal(t, "skyboot_", cfg.Storage.KeyPrefix)
	require.Equal(t, 5*time.Minute, cfg.Menu.CacheTTL)
	require.False(t, cfg.Metrics.Enabled())
}

func TestLoad_WithExplicitPath_BrokenYAML(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	cfgPath := writeFile(t, dir, "broken.yaml", brokenYAML)

	_, err := Load(cfgPath)
	require.Error(t, err)
	require.Contains(t, err.Error(), "failed to read config")
}

func TestLoad_WithExplicitPath_Missing(t *testing.T) {
	t.Parallel()

	_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	require.Error(t, err)
	require.Contains(t, err.Error(), "stat failed")
}

func TestLoad_WithCONFIG_PATH_OK(t *testing.T) {
	dir := t.TempDir()
	cfgPath := writeFile(t, dir, "from_env_path.yaml", minimalYAML)
	t.Setenv("CONFIG_PATH", cfgPath)

	cfg, err := Load("")
	require.NoError(t, err)
	require.Equal(t, "stage", cfg.Env)
}

func TestLoad_WithLocalYAML_OK(t *testing.T) {
	dir := t.TempDir()
	chdir(t, dir)
	writeFile(t, ".", "local.yaml", sampleYAML)
	t.Setenv("CONFIG_PATH", "")

	cfg, err := Load("")
	require.NoError(t, err)
	require.Equal(t, "prod", cfg.Env)
	require.Equal(t, "https://admin.example.com", cfg.API.BaseURL)
}

// Явный путь важнее CONFIG_PATH и local.yaml.
func TestLoad_Priority_ExplicitWinsOverEnvAndLocal(t *testing.T) {
	dir := t.TempDir()
	chdir(t, dir)

	explicit := writeFile(t, dir, "explicit.yaml", `
env: "prod"
api: { base_url: "http://explicit" }
`)
	badFromEnv := writeFile(t, dir, "bad.yaml", brokenYAML)
	t.Setenv("CONFIG_PATH", badFromEnv)
	writeFile(t, ".", "local.yaml", `
env: "local"
api: { base_url: "http://local" }
`)

	cfg, err := Load(explicit)
	require.NoError(t, err)
	require.Equal(t, "prod", cfg.Env)
	require.Equal(t, "http://explicit", cfg.API.BaseURL)
}

func TestLoad_EnvOverlay_OverridesValuesFromFile(t *testing.T) {
	dir := t.TempDir()
	cfgPath := writeFile(t, dir, "config.yaml", sampleYAML)

	t.Setenv("API_BASE_URL", "http://override:8000")
	t.Setenv("API_TIMEOUT", "5s")
	t.Setenv("STORAGE_DRIVER", "memory")

	cfg, err := Load(cfgPath)
	require.NoError(t, err)

	require.Equal(t, "http://override:8000", cfg.API.BaseURL)
	require.Equal(t, 5*time.Second, cfg.API.Timeout)
	require.Equal(t, "memory", cfg.Storage.Driver)
}

// «Только ENV» без файлов.
func TestLoad_EnvOnly_OK(t *testing.T) {
	dir := t.TempDir()
	chdir(t, dir)
	t.Setenv("CONFIG_PATH", "")

	t.Setenv("ENV", "dev")
	t.Setenv("API_BASE_URL", "http://api:8000")
	t.Setenv("API_PUBLIC_PATHS", "/a,/b")
	t.Setenv("MENU_CACHE_TTL", "1m")

	cfg, err := Load("")
	require.NoError(t, err)

	require.Equal(t, "dev", cfg.Env)
	require.Equal(t, "http://api:8000", cfg.API.BaseURL)
	require.Equal(t, []string{"/a", "/b"}, cfg.API.PublicPaths)
	require.Equal(t, time.Minute, cfg.Menu.CacheTTL)
}

func TestMustLoad_OK(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	cfgPath := writeFile(t, dir, "ok.yaml", minimalYAML)

	cfg := MustLoad(cfgPath)
	require.NotNil(t, cfg)
	require.Equal(t, "stage", cfg.Env)
}

func TestMustLoad_PanicsOnError(t *testing.T) {
	t.Parallel()

	require.Panics(t, func() {
		_ = MustLoad(filepath.Join(t.TempDir(), "nope.yaml"))
	})
}
