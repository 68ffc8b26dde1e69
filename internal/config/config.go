package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
)

const minSecretLength = 32

// Data store kinds.
const (
	StorePostgres = "postgres"
	StoreSQLite   = "sqlite"
	StoreMemory   = "memory"
)

// Authorized-party policies applied to native-client assertions.
const (
	AuthorizedPartyWarn   = "warn"
	AuthorizedPartyReject = "reject"
)

// Config aggregates runtime configuration for the session service.
type Config struct {
	Environment    string   `env:"APP_ENV" envDefault:"development"`
	HTTPPort       int      `env:"PORT" envDefault:"4000"`
	LogLevel       string   `env:"LOG_LEVEL" envDefault:"info"`
	LogFormat      string   `env:"LOG_FORMAT" envDefault:"text"`
	AllowedOrigins []string `env:"ALLOWED_ORIGINS" envSeparator:"," envDefault:"*"`

	DataStore   string `env:"DATA_STORE" envDefault:"postgres"`
	SQLitePath  string `env:"SQLITE_PATH" envDefault:"sessiongate.db"`
	DatabaseURL string

	JWTSecret         string
	AccessTokenTTL    time.Duration `env:"ACCESS_TOKEN_TTL" envDefault:"1h"`
	AccessTokenIssuer string        `env:"ACCESS_TOKEN_ISSUER" envDefault:"sessiongate"`

	GoogleWebClientID     string        `env:"GOOGLE_WEB_CLIENT_ID"`
	GoogleAndroidClientID string        `env:"GOOGLE_ANDROID_CLIENT_ID"`
	GoogleIssuerURL       string        `env:"GOOGLE_ISSUER_URL" envDefault:"https://accounts.google.com"`
	GoogleVerifyTimeout   time.Duration `env:"GOOGLE_VERIFY_TIMEOUT" envDefault:"10s"`
	AuthorizedPartyPolicy string        `env:"AUTHORIZED_PARTY_POLICY" envDefault:"warn"`
}

// Load reads configuration from environment variables and fails when a
// required option is absent.
func Load() (Config, error) {
	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return Config{}, fmt.Errorf("config: parse env: %w", err)
	}

	// PORT wins over the legacy HTTP_PORT name.
	if os.Getenv("PORT") == "" {
		if legacy := os.Getenv("HTTP_PORT"); legacy != "" {
			port, err := strconv.Atoi(legacy)
			if err != nil {
				return Config{}, fmt.Errorf("invalid port %q: %w", legacy, err)
			}
			cfg.HTTPPort = port
		}
	}

	databaseURL, err := getEnvOrFile("DATABASE_URL", "/run/secrets/sessiongate_database_url")
	if err != nil {
		return Config{}, err
	}
	cfg.DatabaseURL = strings.TrimSpace(databaseURL)

	secret, err := getEnvOrFile("JWT_SECRET", "/run/secrets/sessiongate_jwt_secret")
	if err != nil {
		return Config{}, err
	}
	cfg.JWTSecret = strings.TrimSpace(secret)

	cfg.DataStore = strings.ToLower(strings.TrimSpace(cfg.DataStore))
	cfg.LogLevel = strings.ToLower(cfg.LogLevel)
	cfg.AuthorizedPartyPolicy = strings.ToLower(strings.TrimSpace(cfg.AuthorizedPartyPolicy))
	cfg.GoogleWebClientID = strings.TrimSpace(cfg.GoogleWebClientID)
	cfg.GoogleAndroidClientID = strings.TrimSpace(cfg.GoogleAndroidClientID)
	cfg.AllowedOrigins = trimAll(cfg.AllowedOrigins)

	if err := cfg.validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (c Config) validate() error {
	if c.HTTPPort <= 0 || c.HTTPPort > 65535 {
		return fmt.Errorf("config: invalid port %d", c.HTTPPort)
	}

	switch c.DataStore {
	case StorePostgres:
		if c.DatabaseURL == "" {
			return errors.New("config: DATA_STORE is postgres but DATABASE_URL is not set")
		}
	case StoreSQLite:
		if strings.TrimSpace(c.SQLitePath) == "" {
			return errors.New("config: DATA_STORE is sqlite but SQLITE_PATH is empty")
		}
	case StoreMemory:
	default:
		return fmt.Errorf("config: unknown DATA_STORE %q", c.DataStore)
	}

	if c.JWTSecret == "" {
		return errors.New("config: JWT_SECRET is required")
	}
	if !c.IsDevelopment() && len(c.JWTSecret) < minSecretLength {
		return fmt.Errorf("config: JWT_SECRET must be at least %d bytes outside development", minSecretLength)
	}
	if c.AccessTokenTTL <= 0 {
		return errors.New("config: ACCESS_TOKEN_TTL must be positive")
	}

	if c.GoogleWebClientID == "" {
		return errors.New("config: GOOGLE_WEB_CLIENT_ID is required")
	}
	if c.GoogleAndroidClientID == "" {
		return errors.New("config: GOOGLE_ANDROID_CLIENT_ID is required")
	}
	if c.GoogleVerifyTimeout <= 0 {
		return errors.New("config: GOOGLE_VERIFY_TIMEOUT must be positive")
	}

	switch c.AuthorizedPartyPolicy {
	case AuthorizedPartyWarn, AuthorizedPartyReject:
	default:
		return fmt.Errorf("config: unknown AUTHORIZED_PARTY_POLICY %q", c.AuthorizedPartyPolicy)
	}

	return nil
}

// HTTPAddress returns the address the HTTP server should bind to.
func (c Config) HTTPAddress() string {
	return fmt.Sprintf(":%d", c.HTTPPort)
}

// IsDevelopment reports whether the service runs in the development environment.
func (c Config) IsDevelopment() bool {
	return strings.EqualFold(c.Environment, "development")
}

// RejectAuthorizedPartyMismatch reports whether an azp mismatch fails the login.
func (c Config) RejectAuthorizedPartyMismatch() bool {
	return c.AuthorizedPartyPolicy == AuthorizedPartyReject
}

func trimAll(values []string) []string {
	out := make([]string, 0, len(values))
	for _, v := range values {
		if trimmed := strings.TrimSpace(v); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}

func getEnvOrFile(key, defaultPath string) (string, error) {
	if value := os.Getenv(key); value != "" {
		return value, nil
	}

	fileKey := key + "_FILE"
	if path := os.Getenv(fileKey); path != "" {
		return readSecret(path, fileKey)
	}

	if defaultPath != "" {
		return readSecret(defaultPath, key)
	}

	return "", nil
}

func readSecret(path, name string) (string, error) {
	contents, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return "", nil
		}
		return "", fmt.Errorf("config: reading %s (%s): %w", name, path, err)
	}

	value := strings.TrimSpace(string(contents))
	if value == "" {
		return "", fmt.Errorf("config: %s (%s) is empty", name, path)
	}
	return value, nil
}
