package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

type Config struct {
	Server   ServerConfig
	Database DatabaseConfig
	Redis    RedisConfig
	Auth     AuthConfig
	AI       AIConfig
	Session  SessionConfig
	Staging  StagingConfig
}

type ServerConfig struct {
	Host string
	Port int
}

type DatabaseConfig struct {
	URL            string
	MaxConns       int
	MinConns       int
	MigrationsPath string
}

type RedisConfig struct {
	Addr     string
	Password string
	DB       int
}

type AuthConfig struct {
	JWTSecret string
}

// RetryConfig is the per-driver retry policy. Only transient failures
// (transport errors, 5xx) are retried; 429 only when On429 is set.
type RetryConfig struct {
	Times int
	Sleep time.Duration
	On429 bool
}

// DriverConfig is the static configuration for one AI vendor driver.
// Read-only after Load.
type DriverConfig struct {
	BaseURL      string
	Host         string
	APIKey       string
	Endpoint     string
	DefaultModel string
	Timeout      time.Duration
	Retry        RetryConfig

	// AllowSystem is false for vendors that reject a system role; the
	// shaping layer folds the system prompt into the first user turn.
	AllowSystem bool
	// StrictMinimal collapses history to the latest user utterance plus
	// folded instructions, for vendors intolerant of full context.
	StrictMinimal bool
	// WantsURL means the vendor fetches audio itself, so file input has
	// to be staged at a public URL first.
	WantsURL bool
}

type AIConfig struct {
	DefaultDriver string
	ChatDriver    string
	STTDriver     string
	Drivers       map[string]DriverConfig
}

type SessionConfig struct {
	TTL time.Duration
}

type StagingConfig struct {
	SupabaseURL   string
	ServiceKey    string
	Bucket        string
	PublicBaseURL string
}

func Load() (*Config, error) {
	port, err := getEnvInt("SERVER_PORT", 8080)
	if err != nil {
		return nil, fmt.Errorf("invalid SERVER_PORT: %w", err)
	}

	maxConns, err := getEnvInt("DB_MAX_CONNS", 20)
	if err != nil {
		return nil, fmt.Errorf("invalid DB_MAX_CONNS: %w", err)
	}

	minConns, err := getEnvInt("DB_MIN_CONNS", 5)
	if err != nil {
		return nil, fmt.Errorf("invalid DB_MIN_CONNS: %w", err)
	}

	redisDB, err := getEnvInt("REDIS_DB", 0)
	if err != nil {
		return nil, fmt.Errorf("invalid REDIS_DB: %w", err)
	}

	timeoutSec, err := getEnvInt("AI_HTTP_TIMEOUT", 30)
	if err != nil {
		return nil, fmt.Errorf("invalid AI_HTTP_TIMEOUT: %w", err)
	}
	sttTimeoutSec, err := getEnvInt("AI_STT_TIMEOUT", 120)
	if err != nil {
		return nil, fmt.Errorf("invalid AI_STT_TIMEOUT: %w", err)
	}

	retryTimes, err := getEnvInt("AI_RETRY_TIMES", 2)
	if err != nil {
		return nil, fmt.Errorf("invalid AI_RETRY_TIMES: %w", err)
	}
	retrySleepMs, err := getEnvInt("AI_RETRY_SLEEP_MS", 200)
	if err != nil {
		return nil, fmt.Errorf("invalid AI_RETRY_SLEEP_MS: %w", err)
	}

	sessionTTLMin, err := getEnvInt("SESSION_TTL_MINUTES", 120)
	if err != nil {
		return nil, fmt.Errorf("invalid SESSION_TTL_MINUTES: %w", err)
	}

	retry := RetryConfig{
		Times: retryTimes,
		Sleep: time.Duration(retrySleepMs) * time.Millisecond,
		On429: getEnvBool("AI_RETRY_ON_429", false),
	}
	timeout := time.Duration(timeoutSec) * time.Second
	sttTimeout := time.Duration(sttTimeoutSec) * time.Second

	drivers := map[string]DriverConfig{}

	if key := getEnv("OPENAI_API_KEY", ""); key != "" {
		drivers["openai"] = DriverConfig{
			BaseURL:      getEnv("OPENAI_BASE_URL", "https://api.openai.com/v1"),
			APIKey:       key,
			DefaultModel: getEnv("OPENAI_DEFAULT_MODEL", "gpt-4o-mini"),
			Timeout:      timeout,
			Retry:        retry,
			AllowSystem:  true,
		}
	}
	if key := getEnv("ANTHROPIC_API_KEY", ""); key != "" {
		drivers["anthropic"] = DriverConfig{
			APIKey:       key,
			DefaultModel: getEnv("ANTHROPIC_DEFAULT_MODEL", "claude-3-haiku-20240307"),
			Timeout:      timeout,
			Retry:        retry,
			AllowSystem:  true,
		}
	}
	if host := getEnv("RAPIDAPI_CHAT_HOST", ""); host != "" {
		drivers["rapidchat"] = DriverConfig{
			Host:          host,
			APIKey:        getEnv("RAPIDAPI_KEY", ""),
			Endpoint:      getEnv("RAPIDAPI_CHAT_ENDPOINT", "/v1/chat/completions"),
			DefaultModel:  getEnv("RAPIDAPI_CHAT_MODEL", "gpt-4o"),
			Timeout:       timeout,
			Retry:         retry,
			AllowSystem:   getEnvBool("RAPIDAPI_CHAT_ALLOW_SYSTEM", false),
			StrictMinimal: getEnvBool("RAPIDAPI_CHAT_STRICT_MINIMAL", false),
		}
	}
	if host := getEnv("RAPIDAPI_STT_HOST", ""); host != "" {
		drivers["rapidstt"] = DriverConfig{
			Host:     host,
			APIKey:   getEnv("RAPIDAPI_KEY", ""),
			Endpoint: getEnv("RAPIDAPI_STT_ENDPOINT", "/transcribe"),
			Timeout:  sttTimeout,
			Retry:    retry,
			WantsURL: true,
		}
	}

	cfg := &Config{
		Server: ServerConfig{
			Host: getEnv("SERVER_HOST", "0.0.0.0"),
			Port: port,
		},
		Database: DatabaseConfig{
			URL:            getEnv("DATABASE_URL", ""),
			MaxConns:       maxConns,
			MinConns:       minConns,
			MigrationsPath: getEnv("MIGRATIONS_PATH", "migrations"),
		},
		Redis: RedisConfig{
			Addr:     getEnv("REDIS_ADDR", "localhost:6379"),
			Password: getEnv("REDIS_PASSWORD", ""),
			DB:       redisDB,
		},
		Auth: AuthConfig{
			JWTSecret: getEnv("JWT_SECRET", ""),
		},
		AI: AIConfig{
			DefaultDriver: getEnv("AI_DEFAULT_DRIVER", "openai"),
			ChatDriver:    getEnv("AI_CHAT_DRIVER", ""),
			STTDriver:     getEnv("AI_STT_DRIVER", "rapidstt"),
			Drivers:       drivers,
		},
		Session: SessionConfig{
			TTL: time.Duration(sessionTTLMin) * time.Minute,
		},
		Staging: StagingConfig{
			SupabaseURL:   getEnv("SUPABASE_URL", ""),
			ServiceKey:    getEnv("SUPABASE_SERVICE_KEY", ""),
			Bucket:        getEnv("STAGING_BUCKET", "temp-audio"),
			PublicBaseURL: getEnv("STAGING_PUBLIC_BASE_URL", ""),
		},
	}

	return cfg, nil
}

func (c *Config) Addr() string {
	return fmt.Sprintf("%s:%d", c.Server.Host, c.Server.Port)
}

func (c *Config) Validate() error {
	var missing []string
	if c.Database.URL == "" {
		missing = append(missing, "DATABASE_URL")
	}
	if c.Auth.JWTSecret == "" {
		missing = append(missing, "JWT_SECRET")
	}
	if len(missing) > 0 {
		return fmt.Errorf("missing required env vars: %s", strings.Join(missing, ", "))
	}
	return nil
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getEnvInt(key string, fallback int) (int, error) {
	v := os.Getenv(key)
	if v == "" {
		return fallback, nil
	}
	return strconv.Atoi(v)
}

func getEnvBool(key string, fallback bool) bool {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return fallback
	}
	return b
}
