// Package config holds environment-driven settings for the TWS client.
package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Config holds connection and library settings.
type Config struct {
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	ClientID int    `yaml:"client_id"`

	// ConnectTimeout bounds the TCP dial; ReadTimeout, when non-zero, bounds
	// each socket read (used by test harnesses to avoid hanging forever).
	ConnectTimeout time.Duration `yaml:"connect_timeout"`
	ReadTimeout    time.Duration `yaml:"read_timeout"`

	// MaxReconnectAttempts caps the backoff loop before the connection is
	// declared permanently failed.
	MaxReconnectAttempts int `yaml:"max_reconnect_attempts"`

	// MessageRate caps outgoing requests per second. TWS disconnects clients
	// exceeding roughly 50 messages per second.
	MessageRate float64 `yaml:"message_rate"`

	// RecordDir, when set, mirrors raw traffic to numbered files for
	// diagnostics. Never load-bearing.
	RecordDir string `yaml:"record_dir"`

	// JournalPath, when set, enables the sqlite order/execution journal.
	JournalPath string `yaml:"journal_path"`

	LogLevel string `yaml:"log_level"`
}

// Load reads environment variables (optionally via .env) into Config.
func Load() (*Config, error) {
	// Ignore error so the library still works when .env is missing.
	_ = godotenv.Load()

	cfg := &Config{
		Host:                 getEnv("TWS_HOST", "127.0.0.1"),
		Port:                 getEnvInt("TWS_PORT", 4002),
		ClientID:             getEnvInt("TWS_CLIENT_ID", 100),
		ConnectTimeout:       getEnvDuration("TWS_CONNECT_TIMEOUT", 5*time.Second),
		ReadTimeout:          getEnvDuration("TWS_READ_TIMEOUT", 0),
		MaxReconnectAttempts: getEnvInt("TWS_MAX_RECONNECT_ATTEMPTS", 10),
		MessageRate:          getEnvFloat("TWS_MESSAGE_RATE", 50),
		RecordDir:            os.Getenv("TWS_RECORD_DIR"),
		JournalPath:          os.Getenv("TWS_JOURNAL_PATH"),
		LogLevel:             getEnv("TWS_LOG_LEVEL", "info"),
	}

	// Optional YAML overlay for settings that do not fit env vars well.
	if path := os.Getenv("TWS_CONFIG_FILE"); path != "" {
		if err := cfg.mergeFile(path); err != nil {
			return nil, err
		}
	}

	return cfg, nil
}

func (c *Config) mergeFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read config file: %w", err)
	}
	if err := yaml.Unmarshal(data, c); err != nil {
		return fmt.Errorf("parse config file %s: %w", path, err)
	}
	return nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, def int) int {
	if v := os.Getenv(key); v != "" {
		if i, err := strconv.Atoi(v); err == nil {
			return i
		}
	}
	return def
}

func getEnvFloat(key string, def float64) float64 {
	if v := os.Getenv(key); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			return f
		}
	}
	return def
}

func getEnvDuration(key string, def time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return def
}
