package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/sheikh-saqib/atm-ledger/internal/logging"
)

const (
	StoreMemory   = "memory"
	StorePostgres = "postgres"
)

// Config is everything cmd/server needs to start.
type Config struct {
	HTTPAddr        string
	StoreDriver     string
	DatabaseURL     string
	KafkaBrokers    []string
	KafkaTopic      string
	AdminID         string
	AdminPin        string
	IDAllocAttempts int
	ShutdownTimeout time.Duration
	Logging         logging.Config
}

// Load reads an optional .env file and then the environment.
func Load(envFiles ...string) (Config, error) {
	if err := godotenv.Load(envFiles...); err != nil && !errors.Is(err, os.ErrNotExist) {
		return Config{}, fmt.Errorf("config: load env file: %w", err)
	}
	return FromLookup(os.LookupEnv)
}

// FromLookup builds a Config from any key lookup, which keeps it testable.
func FromLookup(lookup func(string) (string, bool)) (Config, error) {
	get := func(key, def string) string {
		if v, ok := lookup(key); ok && strings.TrimSpace(v) != "" {
			return strings.TrimSpace(v)
		}
		return def
	}

	cfg := Config{
		HTTPAddr:    get("HTTP_ADDR", ":8080"),
		StoreDriver: strings.ToLower(get("STORE_DRIVER", StoreMemory)),
		DatabaseURL: get("DATABASE_URL", ""),
		KafkaTopic:  get("KAFKA_TOPIC", "transaction_completed"),
		AdminID:     get("ADMIN_ID", ""),
		AdminPin:    get("ADMIN_PIN", ""),
		Logging: logging.Config{
			Level:       get("LOG_LEVEL", "info"),
			Format:      get("LOG_FORMAT", "json"),
			Development: get("LOG_DEV", "false") == "true",
		},
	}

	if brokers := get("KAFKA_BROKERS", ""); brokers != "" {
		for _, b := range strings.Split(brokers, ",") {
			if b = strings.TrimSpace(b); b != "" {
				cfg.KafkaBrokers = append(cfg.KafkaBrokers, b)
			}
		}
	}

	attempts, err := strconv.Atoi(get("ID_ALLOC_ATTEMPTS", "32"))
	if err != nil || attempts <= 0 {
		return Config{}, fmt.Errorf("config: ID_ALLOC_ATTEMPTS must be a positive integer")
	}
	cfg.IDAllocAttempts = attempts

	timeout, err := time.ParseDuration(get("SHUTDOWN_TIMEOUT", "10s"))
	if err != nil || timeout <= 0 {
		return Config{}, fmt.Errorf("config: SHUTDOWN_TIMEOUT must be a positive duration")
	}
	cfg.ShutdownTimeout = timeout

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate checks cross-field constraints.
func (c Config) Validate() error {
	switch c.StoreDriver {
	case StoreMemory:
	case StorePostgres:
		if c.DatabaseURL == "" {
			return fmt.Errorf("config: DATABASE_URL is required for the postgres store")
		}
	default:
		return fmt.Errorf("config: unknown STORE_DRIVER %q", c.StoreDriver)
	}

	if (c.AdminID == "") != (c.AdminPin == "") {
		return fmt.Errorf("config: ADMIN_ID and ADMIN_PIN must be set together")
	}
	return nil
}
