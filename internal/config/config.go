// Package config provides configuration for the assistant client.
package config

import (
	"os"
	"strconv"
	"time"
)

// Config holds the client configuration.
type Config struct {
	// Backend settings
	BackendAPIURL string // Base URL of the answer-generation backend, e.g. http://localhost:8091/api

	// WebSocket settings
	HandshakeTimeout time.Duration
	WriteTimeout     time.Duration
	MaxMessageSize   int64

	// Logging
	LogLevel string
}

// Load loads configuration from environment variables.
func Load() *Config {
	return &Config{
		BackendAPIURL:    getEnv("BACKEND_API_URL", "http://localhost:8091/api"),
		HandshakeTimeout: time.Duration(getEnvInt("WS_HANDSHAKE_TIMEOUT_MS", 10000)) * time.Millisecond,
		WriteTimeout:     time.Duration(getEnvInt("WS_WRITE_TIMEOUT_MS", 10000)) * time.Millisecond,
		MaxMessageSize:   int64(getEnvInt("WS_MAX_MESSAGE_SIZE", 65536)),
		LogLevel:         getEnv("LOG_LEVEL", "info"),
	}
}

func getEnv(key, defaultVal string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return defaultVal
}

func getEnvInt(key string, defaultVal int) int {
	if val := os.Getenv(key); val != "" {
		if intVal, err := strconv.Atoi(val); err == nil {
			return intVal
		}
	}
	return defaultVal
}
