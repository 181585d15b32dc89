package config

import (
	"os"
	"strconv"
	"strings"
)

type AppConfig struct {
	APIAddr string
	WSAddr  string

	RedisURL    string
	DatabaseURL string

	RulesPath string

	ShutdownTimeoutSec int
}

func Load() (*AppConfig, error) {
	cfg := &AppConfig{
		APIAddr:            ":8080",
		WSAddr:             ":8081",
		ShutdownTimeoutSec: 10,
	}

	if v := strings.TrimSpace(os.Getenv("API_ADDR")); v != "" {
		cfg.APIAddr = v
	}
	if v := strings.TrimSpace(os.Getenv("WS_ADDR")); v != "" {
		cfg.WSAddr = v
	}

	cfg.RedisURL = strings.TrimSpace(os.Getenv("REDIS_URL"))
	cfg.DatabaseURL = strings.TrimSpace(os.Getenv("DATABASE_URL"))
	cfg.RulesPath = strings.TrimSpace(os.Getenv("GAME_RULES_FILE"))

	if v := strings.TrimSpace(os.Getenv("SHUTDOWN_TIMEOUT")); v != "" { // seconds
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			cfg.ShutdownTimeoutSec = n
		}
	}

	return cfg, nil
}
