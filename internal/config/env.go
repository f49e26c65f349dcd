package config

import (
	"os"
	"strconv"
	"time"
)

// LoadFromEnv loads configuration from environment variables
// Environment variables override file and default values
func LoadFromEnv(cfg *Config) {
	if title := os.Getenv("CHATSENTRY_WINDOW_TITLE"); title != "" {
		cfg.App.WindowTitle = title
	}

	if title := os.Getenv("CHATSENTRY_DETAILS_TITLE"); title != "" {
		cfg.App.DetailsWindowTitle = title
	}

	if interval := parseDurationEnv("CHATSENTRY_POLL_INTERVAL"); interval > 0 {
		cfg.App.PollingInterval = interval
	}

	if threshold := os.Getenv("CHATSENTRY_CHANGE_THRESHOLD"); threshold != "" {
		if px, err := strconv.Atoi(threshold); err == nil && px >= 0 {
			cfg.Thresholds.ChangeDetection = px
		}
	}

	if debounce := parseDurationEnv("CHATSENTRY_DEBOUNCE_INTERVAL"); debounce > 0 {
		cfg.Thresholds.DebounceInterval = debounce
	}

	if baseURL := os.Getenv("CHATSENTRY_AI_BASE_URL"); baseURL != "" {
		cfg.AI.BaseURL = baseURL
	}

	if dbPath := os.Getenv("CHATSENTRY_DB_PATH"); dbPath != "" {
		cfg.Paths.Database = dbPath
	}

	if pidFile := os.Getenv("CHATSENTRY_PID_FILE"); pidFile != "" {
		cfg.Daemon.PIDFile = pidFile
	}

	if level := os.Getenv("CHATSENTRY_LOG_LEVEL"); level != "" {
		cfg.Log.Level = level
	}

	if webHost := os.Getenv("CHATSENTRY_WEB_HOST"); webHost != "" {
		cfg.Web.Host = webHost
	}

	if webPort := os.Getenv("CHATSENTRY_WEB_PORT"); webPort != "" {
		if port, err := strconv.Atoi(webPort); err == nil && port > 0 && port <= 65535 {
			cfg.Web.Port = port
		}
	}
}

// parseDurationEnv accepts either a Go duration ("1500ms") or whole seconds ("2")
func parseDurationEnv(key string) time.Duration {
	raw := os.Getenv(key)
	if raw == "" {
		return 0
	}
	if d, err := time.ParseDuration(raw); err == nil {
		return d
	}
	if seconds, err := strconv.Atoi(raw); err == nil && seconds > 0 {
		return time.Duration(seconds) * time.Second
	}
	return 0
}

// New creates a new Config with default values and loads from environment
func New() *Config {
	cfg := Default()
	LoadFromEnv(cfg)
	return cfg
}
