// Package config loads server configuration from the environment
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Storage drivers
const (
	DriverMemory   = "memory"
	DriverSQLite   = "sqlite"
	DriverPostgres = "postgres"
)

// Config holds all configuration for the AvatarFlowX server
type Config struct {
	App     AppConfig
	Storage StorageConfig
	LLM     LLMConfig
	Editor  EditorConfig
	CORS    CORSConfig
}

type AppConfig struct {
	Environment     string
	LogLevel        string
	ServerAddress   string
	RequestTimeout  time.Duration
	ShutdownTimeout time.Duration
	EnableProfiler  bool // mounts /debug/pprof
}

type StorageConfig struct {
	Driver          string
	SQLitePath      string
	PostgresDSN     string
	Codec           string // msgpack or json
	Compression     string // none, gzip or zstd
	CheckpointTable string
	RecordTable     string
}

type LLMConfig struct {
	Provider      string // none, gemini or openai
	GeminiAPIKey  string
	GeminiModel   string
	GeminiBaseURL string
	OpenAIAPIKey  string
	OpenAIModel   string
	OpenAIBaseURL string
	MaxTokens     int
	Temperature   float64
	Timeout       time.Duration
}

type EditorConfig struct {
	HistoryLimit      int
	ExtractorStrategy string
	SessionIdleTTL    time.Duration // zero keeps sessions until closed
	SessionSweep      time.Duration
}

type CORSConfig struct {
	AllowedOrigins []string
}

// LoadConfig loads configuration from environment variables
func LoadConfig() (*Config, error) {
	// Try to load .env file (ignore error if it doesn't exist)
	_ = godotenv.Load()

	env := getEnvWithDefault("ENVIRONMENT", "development")

	cfg := &Config{
		App: AppConfig{
			Environment:     env,
			LogLevel:        getEnvWithDefault("LOG_LEVEL", "info"),
			ServerAddress:   getEnvWithDefault("SERVER_ADDRESS", ":8080"),
			RequestTimeout:  getEnvAsDuration("REQUEST_TIMEOUT", 90*time.Second),
			ShutdownTimeout: getEnvAsDuration("SHUTDOWN_TIMEOUT", 10*time.Second),
			EnableProfiler:  getEnvAsBool("PPROF_ENABLED", env != "production"),
		},
		Storage: StorageConfig{
			Driver:          strings.ToLower(getEnvWithDefault("STORAGE_DRIVER", DriverSQLite)),
			SQLitePath:      getEnvWithDefault("SQLITE_PATH", "avatarflowx.db"),
			PostgresDSN:     getEnvWithDefault("DATABASE_URL", ""),
			Codec:           getEnvWithDefault("SNAPSHOT_CODEC", "msgpack"),
			Compression:     getEnvWithDefault("SNAPSHOT_COMPRESSION", "zstd"),
			CheckpointTable: getEnvWithDefault("CHECKPOINT_TABLE", "flow_checkpoints"),
			RecordTable:     getEnvWithDefault("RECORD_TABLE", "form_submissions"),
		},
		LLM: LLMConfig{
			Provider:      strings.ToLower(getEnvWithDefault("LLM_PROVIDER", "gemini")),
			GeminiAPIKey:  getEnvWithDefault("GEMINI_API_KEY", ""),
			GeminiModel:   getEnvWithDefault("GEMINI_MODEL", "gemini-1.5-flash"),
			GeminiBaseURL: getEnvWithDefault("GEMINI_BASE_URL", ""),
			OpenAIAPIKey:  getEnvWithDefault("OPENAI_API_KEY", ""),
			OpenAIModel:   getEnvWithDefault("OPENAI_MODEL", "gpt-4o-mini"),
			OpenAIBaseURL: getEnvWithDefault("OPENAI_BASE_URL", ""),
			MaxTokens:     getEnvAsInt("LLM_MAX_TOKENS", 2048),
			Temperature:   getEnvAsFloat("LLM_TEMPERATURE", 0.4),
			Timeout:       getEnvAsDuration("LLM_TIMEOUT", 60*time.Second),
		},
		Editor: EditorConfig{
			HistoryLimit:      getEnvAsInt("HISTORY_LIMIT", 0),
			ExtractorStrategy: getEnvWithDefault("EXTRACTOR_STRATEGY", "balanced"),
			SessionIdleTTL:    getEnvAsDuration("SESSION_IDLE_TIMEOUT", 2*time.Hour),
			SessionSweep:      getEnvAsDuration("SESSION_SWEEP_INTERVAL", 5*time.Minute),
		},
		CORS: CORSConfig{
			AllowedOrigins: getEnvAsList("CORS_ALLOWED_ORIGINS", []string{"http://localhost:3000"}),
		},
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return cfg, nil
}

// Validate checks if the configuration is valid
func (c *Config) Validate() error {
	switch c.Storage.Driver {
	case DriverMemory, DriverSQLite:
	case DriverPostgres:
		if c.Storage.PostgresDSN == "" {
			return fmt.Errorf("DATABASE_URL is required for the postgres driver")
		}
	default:
		return fmt.Errorf("STORAGE_DRIVER must be memory, sqlite or postgres, got %q", c.Storage.Driver)
	}

	if c.Storage.Driver == DriverSQLite && c.Storage.SQLitePath == "" {
		return fmt.Errorf("SQLITE_PATH is required for the sqlite driver")
	}

	switch c.LLM.Provider {
	case "none":
	case "gemini":
		if c.LLM.GeminiAPIKey == "" && c.IsProduction() {
			return fmt.Errorf("GEMINI_API_KEY is required in production")
		}
	case "openai":
		if c.LLM.OpenAIAPIKey == "" && c.IsProduction() {
			return fmt.Errorf("OPENAI_API_KEY is required in production")
		}
	default:
		return fmt.Errorf("LLM_PROVIDER must be none, gemini or openai, got %q", c.LLM.Provider)
	}

	if c.LLM.Temperature < 0 || c.LLM.Temperature > 2 {
		return fmt.Errorf("LLM_TEMPERATURE must be between 0 and 2")
	}

	if c.Editor.HistoryLimit < 0 {
		return fmt.Errorf("HISTORY_LIMIT cannot be negative")
	}

	if c.Editor.SessionIdleTTL < 0 || c.Editor.SessionSweep < 0 {
		return fmt.Errorf("SESSION_IDLE_TIMEOUT and SESSION_SWEEP_INTERVAL cannot be negative")
	}

	switch c.Editor.ExtractorStrategy {
	case "balanced", "lazy":
	default:
		return fmt.Errorf("EXTRACTOR_STRATEGY must be balanced or lazy, got %q", c.Editor.ExtractorStrategy)
	}

	return nil
}

// LLMEnabled reports whether a provider is configured with a key
func (c *Config) LLMEnabled() bool {
	switch c.LLM.Provider {
	case "gemini":
		return c.LLM.GeminiAPIKey != ""
	case "openai":
		return c.LLM.OpenAIAPIKey != ""
	}
	return false
}

// IsDevelopment checks if running in development mode
func (c *Config) IsDevelopment() bool {
	return c.App.Environment == "development"
}

// IsProduction checks if running in production mode
func (c *Config) IsProduction() bool {
	return c.App.Environment == "production"
}

// Helper functions for environment variable parsing

func getEnvWithDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	if valueStr := os.Getenv(key); valueStr != "" {
		if value, err := strconv.Atoi(valueStr); err == nil {
			return value
		}
	}
	return defaultValue
}

func getEnvAsFloat(key string, defaultValue float64) float64 {
	if valueStr := os.Getenv(key); valueStr != "" {
		if value, err := strconv.ParseFloat(valueStr, 64); err == nil {
			return value
		}
	}
	return defaultValue
}

func getEnvAsBool(key string, defaultValue bool) bool {
	if valueStr := os.Getenv(key); valueStr != "" {
		if value, err := strconv.ParseBool(valueStr); err == nil {
			return value
		}
	}
	return defaultValue
}

func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	if valueStr := os.Getenv(key); valueStr != "" {
		if value, err := time.ParseDuration(valueStr); err == nil {
			return value
		}
	}
	return defaultValue
}

func getEnvAsList(key string, defaultValue []string) []string {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}
	var out []string
	for _, part := range strings.Split(valueStr, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}
