package config

import (
	"fmt"
	"os"
	"strconv"
	"time"
)

type Config struct {
	// Storage settings
	DatabaseDSN string

	// Model endpoint settings
	LLMAPIURL        string
	LLMAPIKey        string
	LLMModel         string
	LLMTimeout       time.Duration
	LLMMaxInputChars int
	LLMMaxTokens     int
	RepairMaxTokens  int
	EnableSummary    bool
	MaxLLMCalls      int // per-run budget (0 = unlimited)
	LLMTripThreshold int // consecutive transport failures before halting summaries

	// Feed settings
	FeedsConfigPath   string
	MaxEntriesPerFeed int
	GoogleWindowDays  int
	MaxGoogleWindows  int

	// Ingestion settings
	PublishFloor    time.Time
	WatermarkBuffer time.Duration

	// Fetch settings
	FetchTimeout   time.Duration
	RequestTimeout time.Duration
	RetryAttempts  int
	RetryDelay     time.Duration
}

func Load() (*Config, error) {
	cfg := &Config{
		LLMModel:          "bedrock-claude-4-5-sonnet",
		LLMTimeout:        60 * time.Second,
		LLMMaxInputChars:  6000,
		LLMMaxTokens:      2000,
		RepairMaxTokens:   800,
		EnableSummary:     true,
		MaxLLMCalls:       0,
		LLMTripThreshold:  3,
		FeedsConfigPath:   "configs/feeds.yaml",
		MaxEntriesPerFeed: 80,
		GoogleWindowDays:  7,
		MaxGoogleWindows:  24,
		PublishFloor:      time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC),
		WatermarkBuffer:   time.Hour,
		FetchTimeout:      15 * time.Second,
		RequestTimeout:    10 * time.Second,
		RetryAttempts:     3,
		RetryDelay:        5 * time.Second,
	}

	cfg.DatabaseDSN = os.Getenv("DATABASE_DSN")
	cfg.LLMAPIURL = getEnvOrDefault("LLM_API_URL", "https://litellm.shoplazza.site/chat/completions")
	cfg.LLMAPIKey = os.Getenv("LLM_API_KEY")

	if model := os.Getenv("LLM_MODEL"); model != "" {
		cfg.LLMModel = model
	}

	cfg.FeedsConfigPath = getEnvOrDefault("FEEDS_CONFIG_PATH", cfg.FeedsConfigPath)
	cfg.MaxEntriesPerFeed = getEnvIntOrDefault("MAX_ENTRIES_PER_FEED", cfg.MaxEntriesPerFeed)
	cfg.GoogleWindowDays = getEnvIntOrDefault("GOOGLE_WINDOW_DAYS", cfg.GoogleWindowDays)
	cfg.MaxGoogleWindows = getEnvIntOrDefault("MAX_GOOGLE_WINDOWS", cfg.MaxGoogleWindows)
	cfg.MaxLLMCalls = getEnvIntOrDefault("MAX_LLM_CALLS", cfg.MaxLLMCalls)
	cfg.LLMMaxInputChars = getEnvIntOrDefault("LLM_MAX_INPUT_CHARS", cfg.LLMMaxInputChars)

	if v := os.Getenv("ENABLE_SUMMARY"); v != "" {
		cfg.EnableSummary = v == "true"
	}

	if v := os.Getenv("PUBLISH_FLOOR"); v != "" {
		floor, err := time.Parse("2006-01-02", v)
		if err != nil {
			return nil, fmt.Errorf("invalid PUBLISH_FLOOR %q: %w", v, err)
		}
		cfg.PublishFloor = floor
	}

	if v := os.Getenv("WATERMARK_BUFFER_MINUTES"); v != "" {
		if minutes, err := strconv.Atoi(v); err == nil && minutes > 0 {
			cfg.WatermarkBuffer = time.Duration(minutes) * time.Minute
		}
	}

	return cfg, cfg.Validate()
}

func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvIntOrDefault(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

// Validate rejects configurations the pipeline cannot start with. Anything
// it flags is fatal at startup, never worked around at runtime.
func (c *Config) Validate() error {
	if c.DatabaseDSN == "" {
		return fmt.Errorf("DATABASE_DSN is required")
	}
	if c.EnableSummary && c.LLMAPIKey == "" {
		return fmt.Errorf("LLM_API_KEY is required when summaries are enabled")
	}
	if c.EnableSummary && c.LLMAPIURL == "" {
		return fmt.Errorf("LLM_API_URL is required when summaries are enabled")
	}
	if c.GoogleWindowDays <= 0 {
		return fmt.Errorf("GOOGLE_WINDOW_DAYS must be positive")
	}
	if c.MaxGoogleWindows <= 0 {
		return fmt.Errorf("MAX_GOOGLE_WINDOWS must be positive")
	}
	return nil
}
