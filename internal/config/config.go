package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// Config holds all configuration for the application
type Config struct {
	// Server configuration
	Port  string
	Debug bool

	// Scraping provider configuration
	ApifyBaseURL       string
	ApifyToken         string
	ApifyActorID       string
	ScrapePollInterval time.Duration
	ScrapePollTimeout  time.Duration

	// Media rehosting configuration
	ImageProxyURL   string
	RehostBatchSize int
	RehostRetries   int
	RehostTimeout   time.Duration

	// Azure Storage configuration
	StorageAccount   string
	StorageContainer string

	// Postgres configuration
	DatabaseURL string

	// Schedule configuration
	CollectSchedule string // cron expression, empty disables scheduled runs
	TimeZone        string

	// Scheduled collection targets
	Hashtags     []string
	ResultsLimit int

	// Notification configuration
	TeamsWebhookURL   string
	NotificationEmail string
	SMTPHost          string
	SMTPPort          int
	SMTPUsername      string
	SMTPPassword      string
}

// Load loads configuration from environment variables
func Load() (*Config, error) {
	cfg := &Config{
		Port:  getEnv("PORT", "8080"),
		Debug: getBoolEnv("DEBUG", false),

		ApifyBaseURL:       getEnv("APIFY_BASE_URL", "https://api.apify.com"),
		ApifyToken:         getEnv("APIFY_TOKEN", ""),
		ApifyActorID:       getEnv("APIFY_ACTOR_ID", "apify~instagram-hashtag-scraper"),
		ScrapePollInterval: getDurationEnv("SCRAPE_POLL_INTERVAL", 3*time.Second),
		ScrapePollTimeout:  getDurationEnv("SCRAPE_POLL_TIMEOUT", 5*time.Minute),

		ImageProxyURL:   getEnv("IMAGE_PROXY_URL", ""),
		RehostBatchSize: getIntEnv("REHOST_BATCH_SIZE", 3),
		RehostRetries:   getIntEnv("REHOST_RETRIES", 2),
		RehostTimeout:   getDurationEnv("REHOST_TIMEOUT", 30*time.Second),

		StorageAccount:   getEnv("AZURE_STORAGE_ACCOUNT", ""),
		StorageContainer: getEnv("AZURE_STORAGE_CONTAINER", "ugc-media"),

		DatabaseURL: getEnv("DATABASE_URL", ""),

		CollectSchedule: getEnv("COLLECT_SCHEDULE", ""),
		TimeZone:        getEnv("TIMEZONE", "UTC"),

		Hashtags:     getSliceEnv("HASHTAGS", nil),
		ResultsLimit: getIntEnv("RESULTS_LIMIT", 50),

		TeamsWebhookURL:   getEnv("TEAMS_WEBHOOK_URL", ""),
		NotificationEmail: getEnv("NOTIFICATION_EMAIL", ""),
		SMTPHost:          getEnv("SMTP_HOST", ""),
		SMTPPort:          getIntEnv("SMTP_PORT", 587),
		SMTPUsername:      getEnv("SMTP_USERNAME", ""),
		SMTPPassword:      getEnv("SMTP_PASSWORD", ""),
	}

	// Validate required configuration
	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return cfg, nil
}

func (c *Config) validate() error {
	if c.ApifyToken == "" {
		return fmt.Errorf("APIFY_TOKEN is required")
	}

	if c.DatabaseURL == "" {
		return fmt.Errorf("DATABASE_URL is required")
	}

	if c.ResultsLimit <= 0 {
		return fmt.Errorf("RESULTS_LIMIT must be positive")
	}

	if c.RehostBatchSize <= 0 {
		return fmt.Errorf("REHOST_BATCH_SIZE must be positive")
	}

	if c.CollectSchedule != "" && len(c.Hashtags) == 0 {
		return fmt.Errorf("HASHTAGS is required when COLLECT_SCHEDULE is set")
	}

	if c.NotificationEmail != "" {
		if c.SMTPHost == "" || c.SMTPUsername == "" || c.SMTPPassword == "" {
			return fmt.Errorf("SMTP configuration is required when NOTIFICATION_EMAIL is set")
		}
	}

	return nil
}

// Helper functions for environment variable parsing
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getBoolEnv(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if parsed, err := strconv.ParseBool(value); err == nil {
			return parsed
		}
	}
	return defaultValue
}

func getIntEnv(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if parsed, err := strconv.Atoi(value); err == nil {
			return parsed
		}
	}
	return defaultValue
}

func getDurationEnv(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if parsed, err := time.ParseDuration(value); err == nil {
			return parsed
		}
	}
	return defaultValue
}

func getSliceEnv(key string, defaultValue []string) []string {
	if value := os.Getenv(key); value != "" {
		return strings.Split(value, ",")
	}
	return defaultValue
}
