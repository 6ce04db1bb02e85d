// Package config loads runtime settings from the environment and an optional
// config file.
package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config is the full runtime configuration.
type Config struct {
	Server   ServerConfig
	Database DatabaseConfig
	Session  SessionConfig
	Auth     AuthConfig
	OIDC     OIDCConfig
	Log      LogConfig
}

type ServerConfig struct {
	Addr        string
	WebDir      string
	CORSOrigins []string
	LoginRate   string
	Metrics     bool
	Development bool
}

type DatabaseConfig struct {
	Driver     string // sqlite, postgres or memory
	URL        string
	SQLitePath string
}

type SessionConfig struct {
	Backend  string // sql or redis
	RedisURL string
	TTL      time.Duration
}

type AuthConfig struct {
	AdminUsername string
	AdminPassword string
	TOTPIssuer    string
}

type OIDCConfig struct {
	IssuerURL    string
	ClientID     string
	ClientSecret string
	RedirectURL  string
}

// Enabled reports whether single sign-on is configured.
func (c OIDCConfig) Enabled() bool {
	return c.IssuerURL != "" && c.ClientID != ""
}

type LogConfig struct {
	Level  string
	Format string // console or json
}

var defaults = map[string]any{
	"ADDR":             ":8080",
	"WEB_DIR":          "web",
	"DB_DRIVER":        "sqlite",
	"SQLITE_PATH":      "data/bpmnstudio.db",
	"SESSION_BACKEND":  "sql",
	"SESSION_TTL":      "24h",
	"ADMIN_USERNAME":   "admin",
	"ADMIN_PASSWORD":   "admin",
	"TOTP_ISSUER":      "BPMN Studio",
	"LOGIN_RATE_LIMIT": "10-M",
	"LOG_LEVEL":        "info",
	"LOG_FORMAT":       "console",
	"METRICS_ENABLED":  true,
	"DEVELOPMENT":      false,
}

// Load reads the environment, and CONFIG_FILE when set, into a validated Config.
func Load() (*Config, error) {
	v := viper.New()
	for k, d := range defaults {
		v.SetDefault(k, d)
	}
	v.AutomaticEnv()
	if p := os.Getenv("CONFIG_FILE"); p != "" {
		v.SetConfigFile(p)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("read config file %s: %w", p, err)
		}
	}

	cfg := &Config{
		Server: ServerConfig{
			Addr:        v.GetString("ADDR"),
			WebDir:      v.GetString("WEB_DIR"),
			CORSOrigins: splitList(v.GetString("CORS_ORIGINS")),
			LoginRate:   v.GetString("LOGIN_RATE_LIMIT"),
			Metrics:     v.GetBool("METRICS_ENABLED"),
			Development: v.GetBool("DEVELOPMENT"),
		},
		Database: DatabaseConfig{
			Driver:     strings.ToLower(v.GetString("DB_DRIVER")),
			URL:        v.GetString("DATABASE_URL"),
			SQLitePath: v.GetString("SQLITE_PATH"),
		},
		Session: SessionConfig{
			Backend:  strings.ToLower(v.GetString("SESSION_BACKEND")),
			RedisURL: v.GetString("REDIS_URL"),
			TTL:      v.GetDuration("SESSION_TTL"),
		},
		Auth: AuthConfig{
			AdminUsername: v.GetString("ADMIN_USERNAME"),
			AdminPassword: v.GetString("ADMIN_PASSWORD"),
			TOTPIssuer:    v.GetString("TOTP_ISSUER"),
		},
		OIDC: OIDCConfig{
			IssuerURL:    v.GetString("OIDC_ISSUER_URL"),
			ClientID:     v.GetString("OIDC_CLIENT_ID"),
			ClientSecret: v.GetString("OIDC_CLIENT_SECRET"),
			RedirectURL:  v.GetString("OIDC_REDIRECT_URL"),
		},
		Log: LogConfig{
			Level:  v.GetString("LOG_LEVEL"),
			Format: strings.ToLower(v.GetString("LOG_FORMAT")),
		},
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) validate() error {
	var errs []error
	switch c.Database.Driver {
	case "sqlite":
		if c.Database.SQLitePath == "" {
			errs = append(errs, errors.New("SQLITE_PATH is required for the sqlite driver"))
		}
	case "postgres":
		if c.Database.URL == "" {
			errs = append(errs, errors.New("DATABASE_URL is required for the postgres driver"))
		}
	case "memory":
	default:
		errs = append(errs, fmt.Errorf("unknown DB_DRIVER %q", c.Database.Driver))
	}

	switch c.Session.Backend {
	case "sql":
	case "redis":
		if c.Session.RedisURL == "" {
			errs = append(errs, errors.New("REDIS_URL is required for the redis session backend"))
		}
	default:
		errs = append(errs, fmt.Errorf("unknown SESSION_BACKEND %q", c.Session.Backend))
	}

	if c.Session.TTL <= 0 {
		errs = append(errs, errors.New("SESSION_TTL must be positive"))
	}
	if c.Auth.AdminUsername == "" {
		errs = append(errs, errors.New("ADMIN_USERNAME must not be empty"))
	}
	return errors.Join(errs...)
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
