// Package config holds runtime settings with env var overrides.
package config

import (
	"os"
	"path/filepath"
	"strconv"
	"time"
)

// Config holds application configuration.
type Config struct {
	// MediaPort is the media server listen port.
	MediaPort int

	// APIAddr is the HTTP API listen address.
	APIAddr string

	// DiscoverTimeout bounds the SSDP search window and description fetches.
	DiscoverTimeout time.Duration

	// Media library settings.
	MediaPaths []string
	DBPath     string

	// LogPath is the log file location; truncated on startup.
	LogPath string
	// LogLevel is a zerolog level name (debug, info, warn, error).
	LogLevel string
}

// DefaultConfig returns configuration with sensible defaults.
func DefaultConfig() *Config {
	homeDir, _ := os.UserHomeDir()
	dataDir := filepath.Join(homeDir, ".localcast")

	return &Config{
		MediaPort:       9000,
		APIAddr:         "127.0.0.1:8080",
		DiscoverTimeout: 5 * time.Second,
		MediaPaths:      []string{filepath.Join(homeDir, "Videos")},
		DBPath:          filepath.Join(dataDir, "library.db"),
		LogPath:         filepath.Join(os.TempDir(), "localcast.log"),
		LogLevel:        "info",
	}
}

// LoadFromEnv overrides fields from LOCALCAST_* environment variables.
func (c *Config) LoadFromEnv() {
	if val := os.Getenv("LOCALCAST_MEDIA_PORT"); val != "" {
		if port, err := strconv.Atoi(val); err == nil {
			c.MediaPort = port
		}
	}
	if val := os.Getenv("LOCALCAST_API_ADDR"); val != "" {
		c.APIAddr = val
	}
	if val := os.Getenv("LOCALCAST_DISCOVER_TIMEOUT"); val != "" {
		if d, err := time.ParseDuration(val); err == nil && d > 0 {
			c.DiscoverTimeout = d
		}
	}
	if val := os.Getenv("LOCALCAST_MEDIA_PATHS"); val != "" {
		c.MediaPaths = filepath.SplitList(val)
	}
	if val := os.Getenv("LOCALCAST_DB_PATH"); val != "" {
		c.DBPath = val
	}
	if val := os.Getenv("LOCALCAST_LOG_PATH"); val != "" {
		c.LogPath = val
	}
	if val := os.Getenv("LOCALCAST_LOG_LEVEL"); val != "" {
		c.LogLevel = val
	}
}

// EnsureDirectories creates the data directories the config points at.
func (c *Config) EnsureDirectories() error {
	dirs := []string{
		filepath.Dir(c.DBPath),
		filepath.Dir(c.LogPath),
	}
	for _, dir := range dirs {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return err
		}
	}
	return nil
}
