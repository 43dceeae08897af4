package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
)

type Config struct {
	DBPath     string
	RawDataDir string
	OutputDir  string

	BaseURL          string
	UserAgent        string
	RateLimitDelayMs int
	HTTPTimeoutMs    int
	MaxPosts         int

	LogLevel string

	WatchIntervalSec  int
	WatchCrawlMax     int
	WatchProcessBatch int
	WatchAutoExport   bool
}

func Load() (Config, error) {
	_ = godotenv.Load()

	cwd, err := os.Getwd()
	if err != nil {
		return Config{}, err
	}

	cfg := Config{
		DBPath:     getEnv("DB_PATH", filepath.Join(cwd, "data", "app.db")),
		RawDataDir: getEnv("RAW_DATA_DIR", filepath.Join(cwd, "data", "raw")),
		OutputDir:  getEnv("OUTPUT_DIR", filepath.Join(cwd, "data", "processed")),

		BaseURL:          getEnv("MTF_BASE_URL", "https://www.mytechfun.com/videos/material_test"),
		UserAgent:        getEnv("MTF_USER_AGENT", "mytechfun-research-bot/1.0 (contact: research@example.com)"),
		RateLimitDelayMs: getEnvInt("MTF_RATE_LIMIT_DELAY_MS", 1000),
		HTTPTimeoutMs:    getEnvInt("MTF_TIMEOUT_MS", 30000),
		MaxPosts:         getEnvInt("MTF_MAX_POSTS", 0),

		LogLevel: getEnv("LOG_LEVEL", "info"),

		WatchIntervalSec:  getEnvInt("WATCH_INTERVAL_SEC", 3600),
		WatchCrawlMax:     getEnvInt("WATCH_CRAWL_MAX", 20),
		WatchProcessBatch: getEnvInt("WATCH_PROCESS_BATCH", 20),
		WatchAutoExport:   getEnvBool("WATCH_AUTO_EXPORT", true),
	}

	return cfg, nil
}

func (c Config) Require(name, value string) error {
	if strings.TrimSpace(value) == "" {
		return fmt.Errorf("missing required env var: %s", name)
	}
	return nil
}

func getEnv(key, fallback string) string {
	if value, ok := os.LookupEnv(key); ok {
		return value
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	value := getEnv(key, "")
	if value == "" {
		return fallback
	}
	parsed, err := strconv.Atoi(value)
	if err != nil {
		return fallback
	}
	return parsed
}

func getEnvBool(key string, fallback bool) bool {
	value := strings.ToLower(strings.TrimSpace(getEnv(key, "")))
	if value == "" {
		return fallback
	}
	if value == "1" || value == "true" || value == "yes" || value == "on" {
		return true
	}
	if value == "0" || value == "false" || value == "no" || value == "off" {
		return false
	}
	return fallback
}
