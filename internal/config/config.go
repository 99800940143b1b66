package config

import (
	"os"
	"strconv"
	"time"
)

// Config holds application configuration from environment variables.
type Config struct {
	Port         int
	DBPath       string
	DatabaseID   int
	ProfilePath  string        // optional YAML routing profile
	ScanTimeout  time.Duration // per request
	MaxWindow    time.Duration // longest time window a request may ask for
	RealtimeURL  string        // GTFS-realtime TripUpdates feed, empty to disable
	RealtimePoll time.Duration
	LogLevel     string
}

// Load reads configuration from environment variables with defaults.
func Load() *Config {
	return &Config{
		Port:         envInt("TRANSITSCAN_PORT", 8080),
		DBPath:       envStr("TRANSITSCAN_DB_PATH", "./transitscan.db"),
		DatabaseID:   envInt("TRANSITSCAN_DATABASE_ID", 0),
		ProfilePath:  envStr("TRANSITSCAN_PROFILE", ""),
		ScanTimeout:  envDuration("TRANSITSCAN_SCAN_TIMEOUT", 10*time.Second),
		MaxWindow:    envDuration("TRANSITSCAN_MAX_WINDOW", 24*time.Hour),
		RealtimeURL:  envStr("TRANSITSCAN_REALTIME_URL", ""),
		RealtimePoll: envDuration("TRANSITSCAN_REALTIME_POLL", 60*time.Second),
		LogLevel:     envStr("TRANSITSCAN_LOG_LEVEL", "info"),
	}
}

func envStr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return fallback
}

func envDuration(key string, fallback time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return fallback
}
