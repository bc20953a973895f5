package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"transcriptionapi/pkg/logger"

	"github.com/joho/godotenv"
	"github.com/spf13/cast"
)

const (
	AuthJWT      = "jwt"
	AuthFirebase = "firebase"
	AuthStatic   = "static"

	StorePostgres  = "postgres"
	StoreFirestore = "firestore"
	StoreMemory    = "memory"
)

type DatabaseConfig struct {
	Host     string
	Port     string
	User     string
	Password string
	Name     string
	SSLMode  string
}

// DSN builds the lib/pq connection string.
func (d DatabaseConfig) DSN() string {
	return fmt.Sprintf("postgres://%s:%s@%s:%s/%s?sslmode=%s", d.User, d.Password, d.Host, d.Port, d.Name, d.SSLMode)
}

type FirebaseConfig struct {
	CredentialsFile string
	ProjectID       string
	Collection      string
}

type Config struct {
	Addr            string
	AllowedOrigins  []string
	AuthProvider    string
	JWTSecret       string
	StaticTokens    string
	StoreDriver     string
	Database        DatabaseConfig
	Firebase        FirebaseConfig
	StoreTimeout    time.Duration
	DefaultLimit    int
	MaxLimit        int
	RateLimit       string
	RedisURL        string
	EventsEnabled   bool
	MetricsEnabled  bool
	ShutdownTimeout time.Duration
	Log             logger.LogConfig
}

// Load reads .env (when present) and then the process environment.
func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil {
		logger.Sugar.Info("No .env file found, using environment variables from OS")
	}

	cfg := &Config{
		Addr:           getEnv("ADDR", ":8000"),
		AllowedOrigins: splitList(getEnv("CORS_ALLOWED_ORIGINS", "http://localhost:3000")),
		AuthProvider:   strings.ToLower(getEnv("AUTH_PROVIDER", AuthJWT)),
		JWTSecret:      getEnv("JWT_SECRET", ""),
		StaticTokens:   getEnv("STATIC_TOKENS", ""),
		StoreDriver:    strings.ToLower(getEnv("STORE_DRIVER", StorePostgres)),
		Database: DatabaseConfig{
			Host:     getEnv("DB_HOST", "localhost"),
			Port:     getEnv("DB_PORT", "5432"),
			User:     getEnv("DB_USER", ""),
			Password: getEnv("DB_PASSWORD", ""),
			Name:     getEnv("DB_NAME", ""),
			SSLMode:  getEnv("DB_SSLMODE", "require"),
		},
		Firebase: FirebaseConfig{
			CredentialsFile: getEnv("FIREBASE_CREDENTIALS_FILE", "auth-key.json"),
			ProjectID:       getEnv("FIREBASE_PROJECT_ID", ""),
			Collection:      getEnv("FIRESTORE_COLLECTION", "transcriptions"),
		},
		StoreTimeout:    cast.ToDuration(getEnv("STORE_TIMEOUT", "10s")),
		DefaultLimit:    cast.ToInt(getEnv("DEFAULT_LIST_LIMIT", "50")),
		MaxLimit:        cast.ToInt(getEnv("MAX_LIST_LIMIT", "500")),
		RateLimit:       getEnv("RATE_LIMIT", ""),
		RedisURL:        getEnv("REDIS_URL", ""),
		EventsEnabled:   cast.ToBool(getEnv("EVENTS_ENABLED", "false")),
		MetricsEnabled:  cast.ToBool(getEnv("METRICS_ENABLED", "true")),
		ShutdownTimeout: cast.ToDuration(getEnv("SHUTDOWN_TIMEOUT", "10s")),
		Log: logger.LogConfig{
			Level:      getEnv("LOG_LEVEL", "info"),
			Filename:   getEnv("LOG_FILENAME", ""),
			MaxSize:    cast.ToInt(getEnv("LOG_MAX_SIZE", "100")),
			MaxBackups: cast.ToInt(getEnv("LOG_MAX_BACKUPS", "3")),
			MaxAge:     cast.ToInt(getEnv("LOG_MAX_AGE", "28")),
		},
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) Validate() error {
	switch c.AuthProvider {
	case AuthJWT:
		if c.JWTSecret == "" {
			return fmt.Errorf("JWT_SECRET is required when AUTH_PROVIDER=%s", AuthJWT)
		}
	case AuthStatic:
		if c.StaticTokens == "" {
			return fmt.Errorf("STATIC_TOKENS is required when AUTH_PROVIDER=%s", AuthStatic)
		}
	case AuthFirebase:
	default:
		return fmt.Errorf("unknown AUTH_PROVIDER %q", c.AuthProvider)
	}

	switch c.StoreDriver {
	case StorePostgres, StoreFirestore, StoreMemory:
	default:
		return fmt.Errorf("unknown STORE_DRIVER %q", c.StoreDriver)
	}

	if c.StoreTimeout <= 0 {
		return fmt.Errorf("STORE_TIMEOUT must be positive")
	}
	if c.DefaultLimit < 1 || c.MaxLimit < c.DefaultLimit {
		return fmt.Errorf("list limits must satisfy 1 <= DEFAULT_LIST_LIMIT <= MAX_LIST_LIMIT")
	}
	return nil
}

// NeedsFirebase reports whether a Firebase app has to be initialized.
func (c *Config) NeedsFirebase() bool {
	return c.AuthProvider == AuthFirebase || c.StoreDriver == StoreFirestore
}

func getEnv(key, fallback string) string {
	if value := strings.TrimSpace(os.Getenv(key)); value != "" {
		return value
	}
	return fallback
}

func splitList(value string) []string {
	var out []string
	for _, item := range strings.Split(value, ",") {
		if item = strings.TrimSpace(item); item != "" {
			out = append(out, item)
		}
	}
	return out
}
