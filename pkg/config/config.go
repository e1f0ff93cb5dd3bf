package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

const (
	DefaultKiteBaseURL = "https://api.kite.trade"
	DefaultKiteTimeout = 10 * time.Second
	DefaultPort        = "8080"
	DefaultMaxBodySize = 1 << 20

	// MinKiteTimeout rejects unit-less values such as KITE_TIMEOUT=10, which parse as nanoseconds.
	MinKiteTimeout = 100 * time.Millisecond
)

// Config holds service configuration. It is loaded once and not mutated afterwards.
type Config struct {
	Kite     KiteConfig
	HTTP     HTTPConfig
	Database DatabaseConfig
	Log      LogConfig
}

// KiteConfig holds the vendor credentials and client settings.
type KiteConfig struct {
	APIKey      string
	APISecret   string
	AccessToken string
	BaseURL     string
	Timeout     time.Duration
}

type HTTPConfig struct {
	Port           string
	AllowedOrigins []string
	MaxBodySize    int64
}

// DatabaseConfig is optional; an empty URL selects the in-memory session store.
type DatabaseConfig struct {
	URL             string
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
}

type LogConfig struct {
	Level string
	File  string
}

// bindings maps viper keys to the environment names accepted for them.
// For credentials the first name set wins.
var bindings = map[string][]string{
	"kite.api_key":               {"KITE_API_KEY", "ZERODHA_API_KEY"},
	"kite.api_secret":            {"KITE_API_SECRET", "ZERODHA_API_SECRET"},
	"kite.access_token":          {"KITE_ACCESS_TOKEN", "ZERODHA_ACCESS_TOKEN"},
	"kite.base_url":              {"KITE_BASE_URL"},
	"kite.timeout":               {"KITE_TIMEOUT"},
	"http.port":                  {"PORT"},
	"http.allowed_origins":       {"ALLOWED_ORIGINS"},
	"http.max_body_size":         {"MAX_BODY_SIZE"},
	"database.url":               {"DATABASE_URL"},
	"database.max_open_conns":    {"DATABASE_MAX_OPEN_CONNS"},
	"database.max_idle_conns":    {"DATABASE_MAX_IDLE_CONNS"},
	"database.conn_max_lifetime": {"DATABASE_CONN_MAX_LIFETIME"},
	"log.level":                  {"LOG_LEVEL"},
	"log.file":                   {"LOG_FILE"},
}

// New returns a viper instance with defaults and environment bindings applied.
// Callers such as the cobra server command may bind flags into it before Load.
func New() *viper.Viper {
	v := viper.New()
	v.SetDefault("kite.base_url", DefaultKiteBaseURL)
	v.SetDefault("kite.timeout", DefaultKiteTimeout)
	v.SetDefault("http.port", DefaultPort)
	v.SetDefault("http.allowed_origins", "*")
	v.SetDefault("http.max_body_size", DefaultMaxBodySize)
	v.SetDefault("database.max_open_conns", 5)
	v.SetDefault("database.max_idle_conns", 2)
	v.SetDefault("database.conn_max_lifetime", 5*time.Minute)
	v.SetDefault("log.level", "dev")

	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	for key, envs := range bindings {
		_ = v.BindEnv(append([]string{key}, envs...)...)
	}
	return v
}

// LoadConfig reads an optional .env file and then the environment.
func LoadConfig() Config {
	// A missing .env is the normal case outside local development.
	_ = godotenv.Load()
	return FromViper(New())
}

// FromViper builds a Config from an already prepared viper instance.
func FromViper(v *viper.Viper) Config {
	return Config{
		Kite: KiteConfig{
			APIKey:      strings.TrimSpace(v.GetString("kite.api_key")),
			APISecret:   strings.TrimSpace(v.GetString("kite.api_secret")),
			AccessToken: strings.TrimSpace(v.GetString("kite.access_token")),
			BaseURL:     strings.TrimRight(v.GetString("kite.base_url"), "/"),
			Timeout:     v.GetDuration("kite.timeout"),
		},
		HTTP: HTTPConfig{
			Port:           v.GetString("http.port"),
			AllowedOrigins: splitList(v.GetString("http.allowed_origins")),
			MaxBodySize:    v.GetInt64("http.max_body_size"),
		},
		Database: DatabaseConfig{
			URL:             v.GetString("database.url"),
			MaxOpenConns:    v.GetInt("database.max_open_conns"),
			MaxIdleConns:    v.GetInt("database.max_idle_conns"),
			ConnMaxLifetime: v.GetDuration("database.conn_max_lifetime"),
		},
		Log: LogConfig{
			Level: v.GetString("log.level"),
			File:  v.GetString("log.file"),
		},
	}
}

// Validate reports every problem that would prevent the service from working.
// Missing credentials are not fatal at startup; each request reports them.
func (c Config) Validate() []error {
	var errs []error
	if c.Kite.APIKey == "" {
		errs = append(errs, fmt.Errorf("kite api key is not set (KITE_API_KEY or ZERODHA_API_KEY)"))
	}
	if c.Kite.APISecret == "" {
		errs = append(errs, fmt.Errorf("kite api secret is not set (KITE_API_SECRET or ZERODHA_API_SECRET)"))
	}
	if c.Kite.BaseURL == "" {
		errs = append(errs, fmt.Errorf("kite base url is empty"))
	}
	if c.Kite.Timeout < MinKiteTimeout {
		errs = append(errs, fmt.Errorf("kite timeout must be at least %s with a unit such as 10s, got %s", MinKiteTimeout, c.Kite.Timeout))
	}
	if c.HTTP.MaxBodySize <= 0 {
		errs = append(errs, fmt.Errorf("max body size must be positive, got %d", c.HTTP.MaxBodySize))
	}
	return errs
}

// Addr returns the listen address for the standalone server.
func (c HTTPConfig) Addr() string {
	if strings.HasPrefix(c.Port, ":") {
		return c.Port
	}
	return ":" + c.Port
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	if len(out) == 0 {
		return []string{"*"}
	}
	return out
}
