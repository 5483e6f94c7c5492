package config

import (
	"fmt"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/spimanov/prdbd/internal/constants"
)

// Config holds all application configuration
type Config struct {
	Port     string
	DBPath   string
	MusicDir string

	// Path or name of the chromaprint fpcalc binary.
	FpcalcBin string

	// Number of concurrent fingerprint computations per pass.
	Workers int

	// Optional remote peer. At most one of PeerURL/PeerFile may be set;
	// both empty disables the remote merge phase.
	PeerURL  string
	PeerFile string

	// Interval between background reconciliation passes; zero disables
	// the background worker (passes run on request only).
	PassInterval time.Duration

	LogLevel  string
	LogFormat string
}

// Load loads configuration from environment variables with defaults
func Load() *Config {
	return &Config{
		Port:         getEnv("PORT", constants.DefaultPort),
		DBPath:       getEnv("DB_PATH", constants.DefaultDBPath),
		MusicDir:     getEnv("MUSIC_DIR", ""),
		FpcalcBin:    getEnv("FPCALC_BIN", constants.DefaultFpcalc),
		Workers:      getEnvInt("WORKERS", constants.DefaultWorkers),
		PeerURL:      getEnv("PEER_URL", ""),
		PeerFile:     getEnv("PEER_FILE", ""),
		PassInterval: getEnvDuration("PASS_INTERVAL", 0),
		LogLevel:     getEnv("LOG_LEVEL", "info"),
		LogFormat:    getEnv("LOG_FORMAT", "text"),
	}
}

// Validate validates the configuration and returns detailed errors
func (c *Config) Validate() error {
	var errors []string

	if c.Port == "" {
		errors = append(errors, "PORT cannot be empty")
	} else {
		port, err := strconv.Atoi(c.Port)
		if err != nil {
			errors = append(errors, fmt.Sprintf("PORT must be a valid number, got: %s", c.Port))
		} else if port < 1 || port > 65535 {
			errors = append(errors, fmt.Sprintf("PORT must be between 1 and 65535, got: %d", port))
		}
	}

	if c.DBPath == "" {
		errors = append(errors, "DB_PATH cannot be empty")
	}

	if c.MusicDir == "" {
		errors = append(errors, "MUSIC_DIR cannot be empty")
	} else if info, err := os.Stat(c.MusicDir); err != nil || !info.IsDir() {
		errors = append(errors, fmt.Sprintf("MUSIC_DIR must be an existing directory, got: %s", c.MusicDir))
	}

	if c.FpcalcBin == "" {
		errors = append(errors, "FPCALC_BIN cannot be empty")
	}

	if c.Workers < 1 {
		errors = append(errors, fmt.Sprintf("WORKERS must be at least 1, got: %d", c.Workers))
	}

	if c.PeerURL != "" {
		if c.PeerFile != "" {
			errors = append(errors, "PEER_URL and PEER_FILE are mutually exclusive")
		}
		u, err := url.Parse(c.PeerURL)
		if err != nil || u.Scheme == "" || u.Host == "" {
			errors = append(errors, fmt.Sprintf("PEER_URL is not a valid URL: %s", c.PeerURL))
		}
	}

	if c.PassInterval < 0 {
		errors = append(errors, fmt.Sprintf("PASS_INTERVAL cannot be negative, got: %s", c.PassInterval))
	}

	validLogLevels := map[string]bool{
		"debug": true,
		"info":  true,
		"warn":  true,
		"error": true,
	}
	if !validLogLevels[c.LogLevel] {
		errors = append(errors, fmt.Sprintf("LOG_LEVEL must be one of: debug, info, warn, error, got: %s", c.LogLevel))
	}

	validLogFormats := map[string]bool{
		"text": true,
		"json": true,
	}
	if !validLogFormats[c.LogFormat] {
		errors = append(errors, fmt.Sprintf("LOG_FORMAT must be one of: text, json, got: %s", c.LogFormat))
	}

	if len(errors) > 0 {
		return fmt.Errorf("configuration validation failed:\n  - %s", strings.Join(errors, "\n  - "))
	}

	return nil
}

// getEnv retrieves an environment variable with a fallback default
func getEnv(key, fallback string) string {
	if value, ok := os.LookupEnv(key); ok {
		return value
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	if value, ok := os.LookupEnv(key); ok {
		if n, err := strconv.Atoi(value); err == nil {
			return n
		}
	}
	return fallback
}

func getEnvDuration(key string, fallback time.Duration) time.Duration {
	if value, ok := os.LookupEnv(key); ok {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return fallback
}
