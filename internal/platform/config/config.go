package config

import (
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/joho/godotenv"
	"go-simpler.org/env"
)

const (
	BackendPostgres = "postgres"
	BackendMemory   = "memory"

	minJWTSecretLength = 32
)

type Config struct {
	AppEnv       string `env:"APP_ENV" default:"development"`
	Port         string `env:"PORT" default:"8080"`
	StoreBackend string `env:"STORE_BACKEND" default:"postgres"`
	DatabaseURL  string `env:"DATABASE_URL"`
	RedisURL     string `env:"REDIS_URL"`
	JWTSecret    string `env:"JWT_SECRET"`
	JWTIssuer    string `env:"JWT_ISSUER"`
	LogLevel     string `env:"LOG_LEVEL" default:"info"`
	LogFormat    string `env:"LOG_FORMAT" default:"text"`

	TransitionMaxAttempts    int           `env:"TRANSITION_MAX_ATTEMPTS" default:"5"`
	TransitionInitialBackoff time.Duration `env:"TRANSITION_INITIAL_BACKOFF" default:"10ms"`

	CounterCacheTTL    time.Duration `env:"COUNTER_CACHE_TTL" default:"30s"`
	ReconcileInterval  time.Duration `env:"RECONCILE_INTERVAL" default:"5m"`
	ReconcileBatchSize int           `env:"RECONCILE_BATCH_SIZE" default:"500"`

	ReactionRatePerSecond float64 `env:"REACTION_RATE_PER_SECOND" default:"5"`
	ReactionRateBurst     int     `env:"REACTION_RATE_BURST" default:"10"`

	// SeedPostIDs is a comma-separated list of post UUIDs created at startup.
	SeedPostIDs string `env:"SEED_POST_IDS"`
}

func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil {
		slog.Info("No .env file found, using environment variables")
	}

	var cfg Config
	if err := env.Load(&cfg, nil); err != nil {
		return nil, fmt.Errorf("failed to load environment variables: %w", err)
	}

	if err := validate(&cfg); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// UsesPostgres reports whether reactions are persisted in PostgreSQL.
func (c *Config) UsesPostgres() bool {
	return c.StoreBackend == BackendPostgres
}

// SeedPosts parses SeedPostIDs. Blank entries are skipped.
func (c *Config) SeedPosts() ([]uuid.UUID, error) {
	var ids []uuid.UUID
	for _, raw := range strings.Split(c.SeedPostIDs, ",") {
		raw = strings.TrimSpace(raw)
		if raw == "" {
			continue
		}
		id, err := uuid.Parse(raw)
		if err != nil {
			return nil, fmt.Errorf("SEED_POST_IDS contains invalid UUID %q: %w", raw, err)
		}
		ids = append(ids, id)
	}
	return ids, nil
}

func validate(cfg *Config) error {
	switch cfg.StoreBackend {
	case BackendPostgres, BackendMemory:
	default:
		return fmt.Errorf("STORE_BACKEND must be %q or %q, got %q", BackendPostgres, BackendMemory, cfg.StoreBackend)
	}

	required := []struct{ name, value string }{
		{"JWT_SECRET", cfg.JWTSecret},
	}
	if cfg.UsesPostgres() {
		required = append(required,
			struct{ name, value string }{"DATABASE_URL", cfg.DatabaseURL},
			struct{ name, value string }{"REDIS_URL", cfg.RedisURL},
		)
	}
	for _, r := range required {
		if r.value == "" {
			return fmt.Errorf("%s is required", r.name)
		}
	}

	if len(cfg.JWTSecret) < minJWTSecretLength {
		return fmt.Errorf("JWT_SECRET must be at least %d bytes", minJWTSecretLength)
	}

	if cfg.TransitionMaxAttempts < 1 {
		return errors.New("TRANSITION_MAX_ATTEMPTS must be at least 1")
	}
	if cfg.ReconcileBatchSize < 1 {
		return errors.New("RECONCILE_BATCH_SIZE must be at least 1")
	}
	if cfg.ReactionRatePerSecond <= 0 || cfg.ReactionRateBurst < 1 {
		return errors.New("REACTION_RATE_PER_SECOND and REACTION_RATE_BURST must be positive")
	}

	if _, err := cfg.SeedPosts(); err != nil {
		return err
	}

	if cfg.AppEnv == "production" && cfg.UsesPostgres() {
		if mode := sslMode(cfg.DatabaseURL); mode == "disable" || mode == "allow" {
			return fmt.Errorf("DATABASE_URL uses sslmode=%s which is not allowed in production", mode)
		}
	}

	return nil
}

func sslMode(databaseURL string) string {
	u, err := url.Parse(databaseURL)
	if err != nil {
		return ""
	}
	return strings.ToLower(u.Query().Get("sslmode"))
}
