package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"

	"sequel-tracker/internal/service"
)

const (
	BackendMemory = "memory"
	BackendSQLite = "sqlite"
)

// Config holds all application configuration
type Config struct {
	// TMDB
	TMDBAPIKey   string
	TMDBBaseURL  string
	TMDBLanguage string
	TMDBCacheTTL time.Duration

	// Store
	StoreBackend string
	SeedFixtures bool
	DBPath       string
	UserID       string
	BackupDir    string

	// Server
	ServerPort  string
	WebAPIToken string

	// Telegram
	TelegramBotToken string
	TelegramChatID   int64
	DigestTime       string // Format: "HH:MM"

	// Logging
	LogLevel    string
	Environment string
}

// Load loads configuration from environment variables and an optional .env
// file in the working directory
func Load() (*Config, error) {
	v := viper.New()
	v.SetConfigName(".env")
	v.SetConfigType("env")
	v.AddConfigPath(".")
	v.AutomaticEnv()

	// Load .env file if it exists (ignore if not found)
	_ = v.ReadInConfig()

	v.SetDefault("TMDB_BASE_URL", "https://api.themoviedb.org/3")
	v.SetDefault("TMDB_LANGUAGE", "en-US")
	v.SetDefault("TMDB_CACHE_TTL", "6h")
	v.SetDefault("STORE_BACKEND", BackendMemory)
	v.SetDefault("SEED_FIXTURES", true)
	v.SetDefault("DB_PATH", "sequel_tracker.db")
	v.SetDefault("USER_ID", "local")
	v.SetDefault("BACKUP_DIR", "backups")
	v.SetDefault("SERVER_PORT", "8080")
	v.SetDefault("TELEGRAM_CHAT_ID", 0)
	v.SetDefault("DIGEST_TIME", "08:00")
	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("ENVIRONMENT", "development")

	cfg := &Config{
		// TMDB
		TMDBAPIKey:   v.GetString("TMDB_API_KEY"),
		TMDBBaseURL:  v.GetString("TMDB_BASE_URL"),
		TMDBLanguage: v.GetString("TMDB_LANGUAGE"),
		TMDBCacheTTL: v.GetDuration("TMDB_CACHE_TTL"),

		// Store
		StoreBackend: strings.ToLower(strings.TrimSpace(v.GetString("STORE_BACKEND"))),
		SeedFixtures: v.GetBool("SEED_FIXTURES"),
		DBPath:       v.GetString("DB_PATH"),
		UserID:       v.GetString("USER_ID"),
		BackupDir:    v.GetString("BACKUP_DIR"),

		// Server
		ServerPort:  v.GetString("SERVER_PORT"),
		WebAPIToken: v.GetString("WEB_API_TOKEN"),

		// Telegram
		TelegramBotToken: v.GetString("TELEGRAM_BOT_TOKEN"),
		TelegramChatID:   v.GetInt64("TELEGRAM_CHAT_ID"),
		DigestTime:       v.GetString("DIGEST_TIME"),

		// Logging
		LogLevel:    v.GetString("LOG_LEVEL"),
		Environment: v.GetString("ENVIRONMENT"),
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks values that have no usable fallback
func (c *Config) Validate() error {
	switch c.StoreBackend {
	case BackendMemory, BackendSQLite:
	default:
		return fmt.Errorf("STORE_BACKEND must be %q or %q, got %q", BackendMemory, BackendSQLite, c.StoreBackend)
	}
	if _, _, err := service.ParseClock(c.DigestTime); err != nil {
		return fmt.Errorf("DIGEST_TIME: %w", err)
	}
	if c.TMDBCacheTTL <= 0 {
		return fmt.Errorf("TMDB_CACHE_TTL must be positive")
	}
	if c.UserID == "" {
		return fmt.Errorf("USER_ID is required")
	}
	return nil
}

// TelegramEnabled reports whether the Telegram bot should run
func (c *Config) TelegramEnabled() bool {
	return c.TelegramBotToken != ""
}

// Production reports whether the logger runs in production mode
func (c *Config) Production() bool {
	return c.Environment == "production"
}
