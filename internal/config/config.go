package config

import (
	"fmt"
	"os"
	"strconv"

	"github.com/joho/godotenv"
)

// Config holds application runtime configuration
type Config struct {
	DatabasePath     string
	HistoryDir       string
	AnalysisConfig   string
	LogLevel         string
	Port             int
	DevMode          bool
	TelegramBotToken string
	TelegramChatID   string
	WeeklyCron       string
}

// Load reads configuration from environment variables
func Load() (*Config, error) {
	// Load .env file if it exists
	_ = godotenv.Load()

	cfg := &Config{
		Port:             getEnvAsInt("LE_PORT", 8000),
		DevMode:          getEnvAsBool("LE_DEV_MODE", false),
		DatabasePath:     getEnv("LE_DATABASE_PATH", "./data/longentry.db"),
		HistoryDir:       getEnv("LE_HISTORY_DIR", "./data/history"),
		AnalysisConfig:   getEnv("LE_ANALYSIS_CONFIG", "./config/analysis.yaml"),
		LogLevel:         getEnv("LE_LOG_LEVEL", "info"),
		TelegramBotToken: getEnv("LE_TELEGRAM_BOT_TOKEN", ""),
		TelegramChatID:   getEnv("LE_TELEGRAM_CHAT_ID", ""),
		// Saturday 07:00 server time, after the weekly candle close
		WeeklyCron: getEnv("LE_WEEKLY_CRON", "0 0 7 * * SAT"),
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Validate checks if required configuration is present
func (c *Config) Validate() error {
	if c.DatabasePath == "" {
		return fmt.Errorf("LE_DATABASE_PATH is required")
	}
	if c.HistoryDir == "" {
		return fmt.Errorf("LE_HISTORY_DIR is required")
	}
	if c.AnalysisConfig == "" {
		return fmt.Errorf("LE_ANALYSIS_CONFIG is required")
	}
	return nil
}

// Helper functions
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return defaultValue
}

func getEnvAsBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if boolVal, err := strconv.ParseBool(value); err == nil {
			return boolVal
		}
	}
	return defaultValue
}
