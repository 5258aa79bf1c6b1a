package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/clockout/clockout/internal/models"
)

type Config struct {
	Server    ServerConfig
	Store     StoreConfig
	Redis     RedisConfig
	JWT       JWTConfig
	RateLimit RateLimitConfig
	Admin     AdminConfig
	CORS      CORSConfig
	Frontend  FrontendConfig
}

type ServerConfig struct {
	Port         string
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
	LogLevel     string
}

// StoreConfig selects the timer-settings backend. "memory" needs nothing,
// "postgres" uses DatabaseURL, "sqlite" uses File, "dynamo" uses the
// DynamoDB fields.
type StoreConfig struct {
	Backend     string
	DatabaseURL string
	File        string
	DynamoDB    DynamoDBConfig
}

type DynamoDBConfig struct {
	Endpoint  string
	Region    string
	TableName string
}

type RedisConfig struct {
	Endpoint string
	Password string
	DB       int
}

type JWTConfig struct {
	AccessSecret  string
	RefreshSecret string
	AccessExpiry  time.Duration
	RefreshExpiry time.Duration
}

// RateLimitConfig carries the fixed-window rules for the auth endpoints
// plus the token-bucket throttle on the public read surface.
type RateLimitConfig struct {
	Backend       string
	LoginLimit    int
	LoginWindow   time.Duration
	RefreshLimit  int
	RefreshWindow time.Duration
	BlockDuration time.Duration
	SweepInterval time.Duration
	PublicPerSec  float64
	PublicBurst   int
}

// AdminConfig holds the per-tenant admin passwords. A tenant with no
// configured password cannot log in at all.
type AdminConfig struct {
	Passwords map[models.Tenant]string
}

type CORSConfig struct {
	AllowedOrigins []string
}

type FrontendConfig struct {
	BaseURL string
}

func Load() (*Config, error) {
	cfg := &Config{
		Server: ServerConfig{
			Port:         getEnv("PORT", "8080"),
			ReadTimeout:  getEnvAsDuration("SERVER_READ_TIMEOUT", 15*time.Second),
			WriteTimeout: getEnvAsDuration("SERVER_WRITE_TIMEOUT", 15*time.Second),
			LogLevel:     getEnv("LOG_LEVEL", "info"),
		},
		Store: StoreConfig{
			Backend:     getEnv("STORE_BACKEND", "memory"),
			DatabaseURL: postgresURL(),
			File:        getEnv("SQLITE_FILE", "clockout.db"),
			DynamoDB: DynamoDBConfig{
				Endpoint:  getEnv("DYNAMODB_ENDPOINT", ""),
				Region:    getEnv("DYNAMODB_REGION", "us-east-1"),
				TableName: getEnv("DYNAMODB_TABLE_NAME", "ClockoutTable"),
			},
		},
		Redis: RedisConfig{
			Endpoint: getEnv("REDIS_ENDPOINT", "localhost:6379"),
			Password: getEnv("REDIS_PASSWORD", ""),
			DB:       getEnvAsInt("REDIS_DB", 0),
		},
		JWT: JWTConfig{
			AccessSecret:  getEnv("JWT_ACCESS_SECRET", ""),
			RefreshSecret: getEnv("JWT_REFRESH_SECRET", ""),
			AccessExpiry:  getEnvAsDuration("JWT_ACCESS_EXPIRY", 15*time.Minute),
			RefreshExpiry: getEnvAsDuration("JWT_REFRESH_EXPIRY", 7*24*time.Hour),
		},
		RateLimit: RateLimitConfig{
			Backend:       getEnv("RATE_LIMIT_BACKEND", "memory"),
			LoginLimit:    getEnvAsInt("RATE_LIMIT_LOGIN_LIMIT", 10),
			LoginWindow:   getEnvAsDuration("RATE_LIMIT_LOGIN_WINDOW", time.Minute),
			RefreshLimit:  getEnvAsInt("RATE_LIMIT_REFRESH_LIMIT", 30),
			RefreshWindow: getEnvAsDuration("RATE_LIMIT_REFRESH_WINDOW", time.Minute),
			BlockDuration: getEnvAsDuration("RATE_LIMIT_BLOCK_DURATION", time.Hour),
			SweepInterval: getEnvAsDuration("RATE_LIMIT_SWEEP_INTERVAL", 10*time.Minute),
			PublicPerSec:  getEnvAsFloat("PUBLIC_RATE_PER_SECOND", 20),
			PublicBurst:   getEnvAsInt("PUBLIC_RATE_BURST", 40),
		},
		Admin: AdminConfig{
			Passwords: loadAdminPasswords(),
		},
		CORS: CORSConfig{
			AllowedOrigins: splitAndTrim(getEnv("ALLOWED_ORIGINS", "*")),
		},
		Frontend: FrontendConfig{
			BaseURL: getEnv("FRONTEND_BASE_URL", ""),
		},
	}

	if cfg.JWT.AccessSecret == "" {
		return nil, fmt.Errorf("JWT_ACCESS_SECRET environment variable is required")
	}

	if cfg.JWT.RefreshSecret == "" {
		return nil, fmt.Errorf("JWT_REFRESH_SECRET environment variable is required")
	}

	if len(cfg.JWT.AccessSecret) < 32 || len(cfg.JWT.RefreshSecret) < 32 {
		return nil, fmt.Errorf("JWT signing secrets must be at least 32 bytes (256 bits)")
	}

	if cfg.JWT.AccessSecret == cfg.JWT.RefreshSecret {
		return nil, fmt.Errorf("JWT_ACCESS_SECRET and JWT_REFRESH_SECRET must be distinct key material")
	}

	return cfg, nil
}

// loadAdminPasswords reads ADMIN_PASSWORD_<SLUG> for every known tenant.
// The bare ADMIN_PASSWORD variable is kept as a fallback for the default
// tenant, matching the single-password deployments this service replaced.
func loadAdminPasswords() map[models.Tenant]string {
	passwords := make(map[models.Tenant]string)
	for _, tenant := range models.Tenants() {
		key := "ADMIN_PASSWORD_" + strings.ToUpper(tenant.String())
		if value := os.Getenv(key); value != "" {
			passwords[tenant] = value
		}
	}
	if _, ok := passwords[models.DefaultTenant]; !ok {
		if value := os.Getenv("ADMIN_PASSWORD"); value != "" {
			passwords[models.DefaultTenant] = value
		}
	}
	return passwords
}

// postgresURL prefers the platform-injected DATABASE_URL and falls back
// to assembling one from discrete POSTGRES_* variables.
func postgresURL() string {
	if url := os.Getenv("DATABASE_URL"); url != "" {
		return url
	}
	host := os.Getenv("POSTGRES_HOST")
	if host == "" {
		return ""
	}
	return fmt.Sprintf("postgres://%s:%s@%s:%s/%s?sslmode=%s",
		getEnv("POSTGRES_USER", "postgres"),
		os.Getenv("POSTGRES_PASSWORD"),
		host,
		getEnv("POSTGRES_PORT", "5432"),
		getEnv("POSTGRES_DB", "clockout"),
		getEnv("POSTGRES_SSLMODE", "disable"),
	)
}

func splitAndTrim(value string) []string {
	parts := strings.Split(value, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if trimmed := strings.TrimSpace(p); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

func getEnvAsFloat(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if floatValue, err := strconv.ParseFloat(value, 64); err == nil {
			return floatValue
		}
	}
	return defaultValue
}

func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if duration, err := time.ParseDuration(value); err == nil {
			return duration
		}
	}
	return defaultValue
}
