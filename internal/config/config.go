package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/fedgate/fedgate/internal/security/secretbox"
)

// ProviderConfig holds the OAuth client credentials for one external
// provider. ClientSecret may carry an "enc:" prefix, in which case it is
// decrypted with the secretbox master key at load time.
type ProviderConfig struct {
	ClientID     string   `yaml:"client_id"`
	ClientSecret string   `yaml:"client_secret"`
	Scopes       []string `yaml:"scopes"`
}

type Config struct {
	App struct {
		// dev | staging | prod
		Env string `yaml:"env"`
	} `yaml:"app"`

	Server struct {
		Addr               string   `yaml:"addr"`
		MetricsAddr        string   `yaml:"metrics_addr"`
		BaseURL            string   `yaml:"base_url"`
		CORSAllowedOrigins []string `yaml:"cors_allowed_origins"`
	} `yaml:"server"`

	Log struct {
		Level string `yaml:"level"`
	} `yaml:"log"`

	Storage struct {
		// memory | postgres
		Driver   string `yaml:"driver"`
		DSN      string `yaml:"dsn"`
		Postgres struct {
			MaxOpenConns    int    `yaml:"max_open_conns"`
			MinIdleConns    int    `yaml:"min_idle_conns"`
			ConnMaxLifetime string `yaml:"conn_max_lifetime"`
		} `yaml:"postgres"`
	} `yaml:"storage"`

	Cache struct {
		// memory | redis
		Kind  string `yaml:"kind"`
		Redis struct {
			Addr   string `yaml:"addr"`
			DB     int    `yaml:"db"`
			Prefix string `yaml:"prefix"`
		} `yaml:"redis"`
		Memory struct {
			DefaultTTL string `yaml:"default_ttl"`
		} `yaml:"memory"`
	} `yaml:"cache"`

	JWT struct {
		Issuer string `yaml:"issuer"`
		// KeyFile holds the ed25519 seed; when empty an ephemeral key
		// is generated at boot (dev only, tokens die with the process).
		KeyFile   string `yaml:"key_file"`
		BearerTTL string `yaml:"bearer_ttl"`
		CookieTTL string `yaml:"cookie_ttl"`
	} `yaml:"jwt"`

	Auth struct {
		// PublicClientID is the fixed client identifier embedded in the
		// descriptor callback URLs handed to SPA/native clients.
		PublicClientID string `yaml:"public_client_id"`
		Cookie         struct {
			Domain   string `yaml:"domain"`
			SameSite string `yaml:"samesite"`
			Secure   bool   `yaml:"secure"`
		} `yaml:"cookie"`
		// StateTTL bounds the replay-guard window for consumed state
		// tokens. The token itself stays an opaque exact-match value.
		StateTTL string `yaml:"state_ttl"`
	} `yaml:"auth"`

	Providers map[string]ProviderConfig `yaml:"providers"`

	Email struct {
		Enabled  bool   `yaml:"enabled"`
		Host     string `yaml:"host"`
		Port     int    `yaml:"port"`
		Username string `yaml:"username"`
		Password string `yaml:"password"`
		From     string `yaml:"from"`
		SkipTLS  bool   `yaml:"skip_tls_verify"`
	} `yaml:"email"`
}

// Load reads the YAML config file, then applies environment overrides.
// A missing file is not an error: env-only configuration is valid.
func Load(path string) (*Config, error) {
	cfg := defaults()

	if path != "" {
		b, err := os.ReadFile(path)
		if err != nil {
			if !os.IsNotExist(err) {
				return nil, fmt.Errorf("config: read %s: %w", path, err)
			}
		} else if err := yaml.Unmarshal(b, cfg); err != nil {
			return nil, fmt.Errorf("config: parse %s: %w", path, err)
		}
	}

	applyEnv(cfg)

	if err := resolveSecrets(cfg); err != nil {
		return nil, err
	}
	if err := validate(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

// resolveSecrets decrypts enc:-prefixed values in place so the rest of
// the process only ever sees plaintext credentials.
func resolveSecrets(cfg *Config) error {
	for caption, pc := range cfg.Providers {
		plain, err := secretbox.Resolve(pc.ClientSecret)
		if err != nil {
			return fmt.Errorf("config: providers.%s.client_secret: %w", caption, err)
		}
		pc.ClientSecret = plain
		cfg.Providers[caption] = pc
	}
	plain, err := secretbox.Resolve(cfg.Email.Password)
	if err != nil {
		return fmt.Errorf("config: email.password: %w", err)
	}
	cfg.Email.Password = plain
	return nil
}

func defaults() *Config {
	cfg := &Config{}
	cfg.App.Env = "dev"
	cfg.Server.Addr = ":8080"
	cfg.Server.MetricsAddr = ":9090"
	cfg.Server.BaseURL = "http://localhost:8080"
	cfg.Log.Level = "info"
	cfg.Storage.Driver = "memory"
	cfg.Cache.Kind = "memory"
	cfg.Cache.Memory.DefaultTTL = "10m"
	cfg.JWT.Issuer = "http://localhost:8080"
	cfg.JWT.BearerTTL = "15m"
	cfg.JWT.CookieTTL = "24h"
	cfg.Auth.PublicClientID = "self"
	cfg.Auth.Cookie.SameSite = "lax"
	cfg.Auth.StateTTL = "10m"
	return cfg
}

func applyEnv(cfg *Config) {
	set := func(dst *string, key string) {
		if v := strings.TrimSpace(os.Getenv(key)); v != "" {
			*dst = v
		}
	}
	set(&cfg.App.Env, "FEDGATE_ENV")
	set(&cfg.Server.Addr, "FEDGATE_ADDR")
	set(&cfg.Server.MetricsAddr, "FEDGATE_METRICS_ADDR")
	set(&cfg.Server.BaseURL, "FEDGATE_BASE_URL")
	set(&cfg.Log.Level, "FEDGATE_LOG_LEVEL")
	set(&cfg.Storage.Driver, "FEDGATE_STORAGE_DRIVER")
	set(&cfg.Storage.DSN, "FEDGATE_STORAGE_DSN")
	set(&cfg.Cache.Kind, "FEDGATE_CACHE_KIND")
	set(&cfg.Cache.Redis.Addr, "FEDGATE_REDIS_ADDR")
	set(&cfg.JWT.Issuer, "FEDGATE_JWT_ISSUER")
	set(&cfg.JWT.KeyFile, "FEDGATE_JWT_KEY_FILE")
	set(&cfg.Email.Host, "FEDGATE_SMTP_HOST")
	set(&cfg.Email.Username, "FEDGATE_SMTP_USER")
	set(&cfg.Email.Password, "FEDGATE_SMTP_PASS")
	set(&cfg.Email.From, "FEDGATE_SMTP_FROM")

	if v := strings.TrimSpace(os.Getenv("FEDGATE_REDIS_DB")); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.Cache.Redis.DB = n
		}
	}
	if v := strings.TrimSpace(os.Getenv("FEDGATE_SMTP_PORT")); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.Email.Port = n
		}
	}
	if v := strings.TrimSpace(os.Getenv("FEDGATE_CORS_ORIGINS")); v != "" {
		parts := strings.Split(v, ",")
		out := make([]string, 0, len(parts))
		for _, p := range parts {
			if p = strings.TrimSpace(p); p != "" {
				out = append(out, p)
			}
		}
		cfg.Server.CORSAllowedOrigins = out
	}
}

func validate(cfg *Config) error {
	switch cfg.Storage.Driver {
	case "memory":
	case "postgres":
		if cfg.Storage.DSN == "" {
			return fmt.Errorf("config: storage.dsn required for postgres driver")
		}
	default:
		return fmt.Errorf("config: unknown storage driver %q", cfg.Storage.Driver)
	}
	switch cfg.Cache.Kind {
	case "memory", "":
	case "redis":
		if cfg.Cache.Redis.Addr == "" {
			return fmt.Errorf("config: cache.redis.addr required for redis cache")
		}
	default:
		return fmt.Errorf("config: unknown cache kind %q", cfg.Cache.Kind)
	}
	return nil
}

// MustDuration parses a duration config value, falling back when empty
// or invalid. Config durations are advisory, not load-bearing.
func MustDuration(s string, fallback time.Duration) time.Duration {
	if s == "" {
		return fallback
	}
	d, err := time.ParseDuration(s)
	if err != nil || d <= 0 {
		return fallback
	}
	return d
}
