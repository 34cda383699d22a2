// config - источник загрузки конфигурации клиента админ-API Skyboot.
//
// Источники (по убыванию приоритета):
//  1. явный путь --config;
//  2. CONFIG_PATH;
//  3. ./local.yaml;
//  4. только ENV (cleanenv).
package config

import (
	"fmt"
	"net"
	"os"
	"time"

	"github.com/ilyakaznacheev/cleanenv"
)

type Config struct {
	Env     string        `yaml:"env" env:"ENV" env-default:"local"`
	API     APIConfig     `yaml:"api"`
	Auth    AuthConfig    `yaml:"auth"`
	Storage StorageConfig `yaml:"storage"`
	Menu    MenuConfig    `yaml:"menu"`
	Metrics MetricsConfig `yaml:"metrics"`
}

// APIConfig — параметры REST-клиента.
// PublicPaths — эндпоинты, к которым Bearer-токен не прикладывается.
type APIConfig struct {
	BaseURL     string        `yaml:"base_url"     env:"API_BASE_URL"     env-default:"http://localhost:8000"`
	Timeout     time.Duration `yaml:"timeout"      env:"API_TIMEOUT"      env-default:"15s"`
	UserAgent   string        `yaml:"user_agent"   env:"API_USER_AGENT"   env-default:"skyboot-cli"`
	RateLimit   float64       `yaml:"rate_limit"   env:"API_RATE_LIMIT"   env-default:"0"`
	RateBurst   int           `yaml:"rate_burst"   env:"API_RATE_BURST"   env-default:"1"`
	PublicPaths []string      `yaml:"public_paths" env:"API_PUBLIC_PATHS" env-separator:"," env-default:"/api/v1/auth/login,/api/v1/auth/refresh"`
}

// AuthConfig — эндпоинты сессии и политика истечения токена.
type AuthConfig struct {
	LoginPath        string        `yaml:"login_path"        env:"AUTH_LOGIN_PATH"        env-default:"/api/v1/auth/login"`
	RefreshPath      string        `yaml:"refresh_path"      env:"AUTH_REFRESH_PATH"      env-default:"/api/v1/auth/refresh"`
	LogoutPath       string        `yaml:"logout_path"       env:"AUTH_LOGOUT_PATH"       env-default:"/api/v1/auth/logout"`
	ProfilePath      string        `yaml:"profile_path"      env:"AUTH_PROFILE_PATH"      env-default:"/api/v1/auth/me"`
	ExpiryLeeway     time.Duration `yaml:"expiry_leeway"     env:"AUTH_EXPIRY_LEEWAY"     env-default:"30s"`
	ProactiveRefresh bool          `yaml:"proactive_refresh" env:"AUTH_PROACTIVE_REFRESH" env-default:"false"`
}

// StorageConfig — где живут токены между запусками.
// Driver: file | redis | memory.
type StorageConfig struct {
	Driver    string `yaml:"driver"     env:"STORAGE_DRIVER"     env-default:"file"`
	Path      string `yaml:"path"       env:"STORAGE_PATH"       env-default:".skyboot/session.json"`
	KeyPrefix string `yaml:"key_prefix" env:"STORAGE_KEY_PREFIX" env-default:"skyboot_"`
	RedisURL  string `yaml:"redis_url"  env:"STORAGE_REDIS_URL"  env-default:"redis://localhost:6379/0"`
}

// MenuConfig — загрузка дерева меню и его кэширование.
type MenuConfig struct {
	TreePath string        `yaml:"tree_path" env:"MENU_TREE_PATH" env-default:"/api/v1/menus/tree"`
	CacheTTL time.Duration `yaml:"cache_ttl" env:"MENU_CACHE_TTL" env-default:"5m"`
}

// MetricsConfig — HTTP для Prometheus (команда watch). Пустой порт — выключено.
type MetricsConfig struct {
	Host string `yaml:"host" env:"METRICS_HOST" env-default:"127.0.0.1"`
	Port string `yaml:"port" env:"METRICS_PORT"`
}

func (m MetricsConfig) Enabled() bool { return m.Port != "" }

func (m MetricsConfig) Addr() string { return net.JoinHostPort(m.Host, m.Port) }

// MustLoad — паника при ошибке загрузки.
func MustLoad(path string) *Config {
	cfg, err := Load(path)

	if err != nil {
		panic(err)
	}

	return cfg
}

func Load(path string) (*Config, error) {
	var cfg Config

	readFile := func(p string) (*Config, error) {
		if _, err := os.Stat(p); err != nil {
			return nil, fmt.Errorf("config file %q stat failed: %w", p, err)
		}

		if err := cleanenv.ReadConfig(p, &cfg); err != nil {
			return nil, fmt.Errorf("failed to read config: %w", err)
		}

		if err := cleanenv.ReadEnv(&cfg); err != nil {
			return nil, fmt.Errorf("failed to overlay env: %w", err)
		}

		return &cfg, nil
	}

	// 1) --config
	if path != "" {
		return readFile(path)
	}

	// 2) CONFIG_PATH
	if envPath := os.Getenv("CONFIG_PATH"); envPath != "" {
		return readFile(envPath)
	}

	// 3) ./local.yaml
	if _, err := os.Stat("local.yaml"); err == nil {
		return readFile("local.yaml")
	}

	// 4) только ENV
	if err := cleanenv.ReadEnv(&cfg); err != nil {
		return nil, fmt.Errorf("config not found: provide --config, CONFIG_PATH, local.yaml or env vars: %w", err)
	}

	return &cfg, nil
}
