package main

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/nbhson/git-book-reader/apps/server/internal/book"
)

const serviceName = "git-book-reader"

type config struct {
	Port string

	GitHubAPIURL   string
	GitHubRawURL   string
	GitHubToken    string
	AppID          int64
	InstallationID int64
	AppKeyPath     string

	HistoryBackend string
	HistoryFile    string
	RedisURL       string
	PostgresURL    string

	ContentCache         string
	ContentCacheMaxBytes int
	ContentCacheTTL      time.Duration

	OTelEnabled bool
}

// loadConfig reads the server configuration through getenv, normally
// os.Getenv.
func loadConfig(getenv func(string) string) (config, error) {
	envOr := func(key, fallback string) string {
		if v := getenv(key); v != "" {
			return v
		}
		return fallback
	}

	cfg := config{
		Port:           envOr("PORT", "8080"),
		GitHubAPIURL:   getenv("GITHUB_API_URL"),
		GitHubRawURL:   envOr("GITHUB_RAW_URL", book.DefaultRawBaseURL),
		GitHubToken:    getenv("GITHUB_TOKEN"),
		AppKeyPath:     getenv("GITHUB_APP_PRIVATE_KEY_PATH"),
		HistoryBackend: envOr("HISTORY_BACKEND", "file"),
		HistoryFile:    envOr("HISTORY_FILE", defaultHistoryFile()),
		RedisURL:       getenv("REDIS_URL"),
		PostgresURL:    getenv("POSTGRES_URL"),
		ContentCache:   envOr("CONTENT_CACHE", "memory"),
		OTelEnabled:    getenv("OTEL_ENABLED") == "true",
	}

	var err error
	if cfg.AppID, err = parseInt64(getenv, "GITHUB_APP_ID"); err != nil {
		return config{}, err
	}
	if cfg.InstallationID, err = parseInt64(getenv, "GITHUB_APP_INSTALLATION_ID"); err != nil {
		return config{}, err
	}
	if cfg.AppID != 0 && (cfg.InstallationID == 0 || cfg.AppKeyPath == "") {
		return config{}, errors.New("GITHUB_APP_ID needs GITHUB_APP_INSTALLATION_ID and GITHUB_APP_PRIVATE_KEY_PATH")
	}

	maxBytes := envOr("CONTENT_CACHE_MAX_BYTES", strconv.Itoa(book.DefaultCacheMaxBytes))
	if cfg.ContentCacheMaxBytes, err = strconv.Atoi(maxBytes); err != nil || cfg.ContentCacheMaxBytes < 0 {
		return config{}, fmt.Errorf("CONTENT_CACHE_MAX_BYTES: invalid byte count %q", maxBytes)
	}
	ttl := envOr("CONTENT_CACHE_TTL", "1h")
	if cfg.ContentCacheTTL, err = time.ParseDuration(ttl); err != nil {
		return config{}, fmt.Errorf("CONTENT_CACHE_TTL: %w", err)
	}

	switch cfg.HistoryBackend {
	case "file":
	case "redis":
		if cfg.RedisURL == "" {
			return config{}, errors.New("HISTORY_BACKEND=redis needs REDIS_URL")
		}
	case "postgres":
		if cfg.PostgresURL == "" {
			return config{}, errors.New("HISTORY_BACKEND=postgres needs POSTGRES_URL")
		}
	default:
		return config{}, fmt.Errorf("HISTORY_BACKEND: unknown backend %q (file, redis, postgres)", cfg.HistoryBackend)
	}

	switch cfg.ContentCache {
	case "memory":
	case "redis":
		if cfg.RedisURL == "" {
			return config{}, errors.New("CONTENT_CACHE=redis needs REDIS_URL")
		}
	default:
		return config{}, fmt.Errorf("CONTENT_CACHE: unknown cache %q (memory, redis)", cfg.ContentCache)
	}

	return cfg, nil
}

func parseInt64(getenv func(string) string, key string) (int64, error) {
	v := getenv(key)
	if v == "" {
		return 0, nil
	}
	n, err := strconv.ParseInt(v, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", key, err)
	}
	return n, nil
}

func defaultHistoryFile() string {
	dir, err := os.UserConfigDir()
	if err != nil {
		return "history.yaml"
	}
	return filepath.Join(dir, serviceName, "history.yaml")
}
