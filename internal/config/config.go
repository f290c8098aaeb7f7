package config

import (
	"os"
	"strconv"
	"time"

	"github.com/shopspring/decimal"
)

type Config struct {
	DatabaseURL string
	JWTSecret   string
	Port        string

	// External AI service (milestone proposals and proof assessment).
	// Empty AIAPIKey disables external calls; the planner falls back to
	// templates and proof assessment degrades to pending.
	AIAPIKey  string
	AIBaseURL string
	AIModel   string
	AITimeout time.Duration

	// Wallet seed credited once at registration. Payment rails are out of
	// scope, so this is the only way funds enter the system.
	InitialWalletBalance decimal.Decimal
}

func Load() *Config {
	return &Config{
		DatabaseURL:          getEnv("DATABASE_URL", "escrow.db"),
		JWTSecret:            getEnv("JWT_SECRET", "your-secret-key-change-in-production"),
		Port:                 getEnv("PORT", "8080"),
		AIAPIKey:             getEnv("AI_API_KEY", ""),
		AIBaseURL:            getEnv("AI_BASE_URL", ""),
		AIModel:              getEnv("AI_MODEL", "gpt-4o-mini"),
		AITimeout:            getEnvSeconds("AI_TIMEOUT_SECONDS", 15),
		InitialWalletBalance: getEnvDecimal("INITIAL_WALLET_BALANCE", "100"),
	}
}

func getEnv(key, fallback string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return fallback
}

func getEnvSeconds(key string, fallback int) time.Duration {
	if value, exists := os.LookupEnv(key); exists {
		if n, err := strconv.Atoi(value); err == nil && n > 0 {
			return time.Duration(n) * time.Second
		}
	}
	return time.Duration(fallback) * time.Second
}

func getEnvDecimal(key, fallback string) decimal.Decimal {
	if value, exists := os.LookupEnv(key); exists {
		if d, err := decimal.NewFromString(value); err == nil && !d.IsNegative() {
			return d
		}
	}
	d, _ := decimal.NewFromString(fallback)
	return d
}
