// Package config loads process configuration from the environment, grouped
// by subsystem.
package config

import (
	"fmt"
	"os"
	"strconv"
	"time"
)

// Config is the full set of settings a server or worker process needs.
type Config struct {
	Server   ServerConfig
	Database DatabaseConfig
	Queue    QueueConfig
	EventBus EventBusConfig
}

// ServerConfig controls the CloudEvents HTTP ingress (component G).
type ServerConfig struct {
	Port            int
	ShutdownTimeout time.Duration
}

// DatabaseConfig describes the relational store backing both the event
// store and the queue (components D, H). Driver names the backend; the
// server and worker commands wire only "postgres" (pkg/store/postgres and
// pkg/queue/postgres) and exit on any other value. Path is read for
// "sqlite" but no command opens pkg/store/sqlite with it.
type DatabaseConfig struct {
	Driver   string
	Host     string
	Port     int
	User     string
	Password string
	Database string
	SSLMode  string
	Path     string // sqlite file path, used when Driver == "sqlite"
}

// DSN renders a libpq-style connection string for the postgres driver.
func (d DatabaseConfig) DSN() string {
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		d.Host, d.Port, d.User, d.Password, d.Database, d.SSLMode,
	)
}

// QueueConfig tunes the queue receiver's poll loop (component I).
type QueueConfig struct {
	VisibilityTimeout time.Duration
	StartupTimeout    time.Duration
	ShutdownTimeout   time.Duration
}

// EventBusConfig controls the optional NATS fan-out publisher.
type EventBusConfig struct {
	Enabled    bool
	URL        string
	StreamName string
	MaxAgeDays int
}

// Load reads Config from the environment, falling back to development
// defaults for anything unset.
func Load() (*Config, error) {
	return &Config{
		Server: ServerConfig{
			Port:            getEnvInt("SERVER_PORT", 8080),
			ShutdownTimeout: getEnvDuration("SERVER_SHUTDOWN_TIMEOUT", 10*time.Second),
		},
		Database: DatabaseConfig{
			Driver:   getEnv("DB_DRIVER", "postgres"),
			Host:     getEnv("DB_HOST", "localhost"),
			Port:     getEnvInt("DB_PORT", 5432),
			User:     getEnv("DB_USER", "eventcore"),
			Password: getEnv("DB_PASSWORD", "eventcore"),
			Database: getEnv("DB_NAME", "eventcore"),
			SSLMode:  getEnv("DB_SSLMODE", "disable"),
			Path:     getEnv("DB_SQLITE_PATH", "eventcore.db"),
		},
		Queue: QueueConfig{
			VisibilityTimeout: getEnvDuration("QUEUE_VISIBILITY_TIMEOUT", 30*time.Second),
			StartupTimeout:    getEnvDuration("QUEUE_STARTUP_TIMEOUT", time.Minute),
			ShutdownTimeout:   getEnvDuration("QUEUE_SHUTDOWN_TIMEOUT", 30*time.Second),
		},
		EventBus: EventBusConfig{
			Enabled:    getEnvBool("EVENTBUS_ENABLED", false),
			URL:        getEnv("EVENTBUS_URL", "nats://localhost:4222"),
			StreamName: getEnv("EVENTBUS_STREAM", "EVENTS"),
			MaxAgeDays: getEnvInt("EVENTBUS_MAX_AGE_DAYS", 7),
		},
	}, nil
}

func getEnv(key, defaultValue string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if v := os.Getenv(key); v != "" {
		if i, err := strconv.Atoi(v); err == nil {
			return i
		}
	}
	return defaultValue
}

func getEnvBool(key string, defaultValue bool) bool {
	if v := os.Getenv(key); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			return b
		}
	}
	return defaultValue
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return defaultValue
}
