package config

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/joho/godotenv"

	"video-annotator/internal/annotation"
)

// DefaultVideoSrc is served by /api/video/config when nothing else is set.
const DefaultVideoSrc = "http://commondatastorage.googleapis.com/gtv-videos-bucket/sample/BigBuckBunny.mp4"

// Config holds all configuration for the API server.
type Config struct {
	APIPort            string
	StoreDriver        string
	DBPath             string
	BadgerPath         string
	VideoConfigPath    string
	VideoSrc           string
	LogLevel           slog.Level
	LogFormat          string
	RateLimitPerMinute int
	WindowPolicy       annotation.WindowPolicy
	DefaultDuration    float64
	DefaultColor       string
}

// ClientConfig holds configuration for binaries that talk to the API.
type ClientConfig struct {
	APIBaseURL   string
	CachePath    string
	Video        string
	WindowPolicy annotation.WindowPolicy
	LogLevel     slog.Level
	LogFormat    string
}

// Load reads configuration from environment variables and returns a Config struct.
// It applies defaults for optional fields and validates the rest.
// If a .env file exists in the current directory or project root, it will be loaded automatically.
// Environment variables already set take precedence over .env file values.
func Load() (*Config, error) {
	loadDotEnv()

	cfg := &Config{
		APIPort:         getEnv("API_PORT", "5000"),
		StoreDriver:     strings.ToLower(getEnv("STORE_DRIVER", "sqlite")),
		DBPath:          getEnv("DB_PATH", "./data/annotations.db"),
		BadgerPath:      getEnv("BADGER_PATH", "./data/badger"),
		VideoConfigPath: getEnv("VIDEO_CONFIG_PATH", ""),
		VideoSrc:        getEnv("VIDEO_SRC", DefaultVideoSrc),
		LogFormat:       strings.ToLower(getEnv("LOG_FORMAT", "text")),
		DefaultColor:    getEnv("DEFAULT_COLOR", annotation.DefaultColor),
	}

	var err error
	if cfg.LogLevel, err = parseLevel(getEnv("LOG_LEVEL", "info")); err != nil {
		return nil, err
	}
	if cfg.WindowPolicy, err = annotation.ParseWindowPolicy(getEnv("WINDOW_POLICY", "fixed")); err != nil {
		return nil, fmt.Errorf("WINDOW_POLICY: %w", err)
	}

	limit, err := strconv.Atoi(getEnv("RATE_LIMIT_PER_MINUTE", "600"))
	if err != nil {
		return nil, fmt.Errorf("RATE_LIMIT_PER_MINUTE must be a valid integer: %w", err)
	}
	if limit < 0 {
		return nil, fmt.Errorf("RATE_LIMIT_PER_MINUTE must not be negative")
	}
	cfg.RateLimitPerMinute = limit

	duration, err := strconv.ParseFloat(getEnv("DEFAULT_DURATION", "3"), 64)
	if err != nil {
		return nil, fmt.Errorf("DEFAULT_DURATION must be a number: %w", err)
	}
	if duration <= 0 {
		return nil, fmt.Errorf("DEFAULT_DURATION must be greater than 0")
	}
	cfg.DefaultDuration = duration

	// Create the data directory for the selected store
	var dataDir string
	switch cfg.StoreDriver {
	case "sqlite":
		dataDir = filepath.Dir(cfg.DBPath)
	case "badger":
		dataDir = cfg.BadgerPath
	default:
		return nil, fmt.Errorf("STORE_DRIVER must be sqlite or badger, got %q", cfg.StoreDriver)
	}
	if err := os.MkdirAll(dataDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create data directory: %w", err)
	}

	return cfg, nil
}

// LoadClient reads the configuration of an API client binary.
func LoadClient() (*ClientConfig, error) {
	loadDotEnv()

	cfg := &ClientConfig{
		APIBaseURL: strings.TrimRight(getEnv("API_BASE_URL", "http://localhost:5000/api"), "/"),
		CachePath:  getEnv("CACHE_PATH", "./data/annotations.cache.json"),
		Video:      getEnv("VIDEO_ID", annotation.DefaultVideo),
		LogFormat:  strings.ToLower(getEnv("LOG_FORMAT", "text")),
	}

	var err error
	if cfg.LogLevel, err = parseLevel(getEnv("LOG_LEVEL", "info")); err != nil {
		return nil, err
	}
	if cfg.WindowPolicy, err = annotation.ParseWindowPolicy(getEnv("WINDOW_POLICY", "fixed")); err != nil {
		return nil, fmt.Errorf("WINDOW_POLICY: %w", err)
	}
	return cfg, nil
}

// loadDotEnv loads .env from the current directory, then from the first
// parent directory (up to five levels) that has one.
func loadDotEnv() {
	_ = godotenv.Load() // Try current directory

	wd, err := os.Getwd()
	if err != nil {
		return
	}
	dir := wd
	for i := 0; i < 5; i++ { // Limit search depth
		envPath := filepath.Join(dir, ".env")
		if _, err := os.Stat(envPath); err == nil {
			_ = godotenv.Load(envPath)
			return
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			return // Reached filesystem root
		}
		dir = parent
	}
}

func parseLevel(s string) (slog.Level, error) {
	var level slog.Level
	if err := level.UnmarshalText([]byte(s)); err != nil {
		return 0, fmt.Errorf("LOG_LEVEL: %w", err)
	}
	return level, nil
}

// getEnv gets an environment variable or returns a default value.
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}
