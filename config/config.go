/*
Package config loads server configuration from the environment.

PURPOSE:
  One place for every knob the server reads. A .env file is loaded when
  present (local development); real deployments set the environment
  directly. Command-line flags in cmd/server override whatever the
  environment provided.

VARIABLES:
  PORT            HTTP port (default 8080)
  STORE_DRIVER    sqlite | postgres | memory (default sqlite)
  SQLITE_PATH     SQLite database path (default lending.db)
  DATABASE_URL    Postgres DSN, required when STORE_DRIVER=postgres
  KAFKA_BROKERS   Comma-separated broker list; empty disables events
  KAFKA_TOPIC     Topic for lending events (default lending_events)
  LOG_LEVEL       zerolog level (default info)
  LOG_FORMAT      json | console (default console)
*/
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
)

type Config struct {
	Port        int
	StoreDriver string
	SQLitePath  string
	DatabaseURL string

	KafkaBrokers []string
	KafkaTopic   string

	LogLevel  string
	LogFormat string
}

// Load reads .env (if present) and the environment.
func Load() (Config, error) {
	// Missing .env is the normal case outside local development.
	_ = godotenv.Load()

	cfg := Config{
		Port:        envInt("PORT", 8080),
		StoreDriver: envStr("STORE_DRIVER", "sqlite"),
		SQLitePath:  envStr("SQLITE_PATH", "lending.db"),
		DatabaseURL: os.Getenv("DATABASE_URL"),
		KafkaTopic:  envStr("KAFKA_TOPIC", "lending_events"),
		LogLevel:    envStr("LOG_LEVEL", "info"),
		LogFormat:   envStr("LOG_FORMAT", "console"),
	}

	if brokers := os.Getenv("KAFKA_BROKERS"); brokers != "" {
		for _, b := range strings.Split(brokers, ",") {
			if b = strings.TrimSpace(b); b != "" {
				cfg.KafkaBrokers = append(cfg.KafkaBrokers, b)
			}
		}
	}

	switch cfg.StoreDriver {
	case "sqlite", "postgres", "memory":
	default:
		return Config{}, fmt.Errorf("unknown STORE_DRIVER %q", cfg.StoreDriver)
	}
	if cfg.StoreDriver == "postgres" && cfg.DatabaseURL == "" {
		return Config{}, fmt.Errorf("STORE_DRIVER=postgres requires DATABASE_URL")
	}
	return cfg, nil
}

func envStr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return fallback
}
