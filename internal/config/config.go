package config

import (
	"os"
	"time"

	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"
)

// Config holds everything the server reads from the environment.
type Config struct {
	Port      string
	MongoURI  string
	DBName    string
	JWTSecret string

	// OutboxPath is the BadgerDB directory for undelivered events;
	// OutboxRetention bounds how long unacknowledged entries survive.
	OutboxPath      string
	OutboxRetention time.Duration

	// WriteTimeout bounds each websocket write; PingInterval drives the
	// heartbeat that detects dead connections.
	WriteTimeout time.Duration
	PingInterval time.Duration
}

// LoadConfig reads .env (if present) and the process environment.
func LoadConfig() *Config {
	if err := godotenv.Load(); err != nil {
		logrus.Warn("No .env file found, relying on environment variables")
	}

	return &Config{
		Port:            getEnv("PORT", "8080"),
		MongoURI:        getEnv("MONGO_URI", "mongodb://localhost:27017"),
		DBName:          getEnv("DB_NAME", "userDB"),
		JWTSecret:       getEnv("JWT_SECRET", "dev-secret"),
		OutboxPath:      getEnv("OUTBOX_PATH", "./data/outbox"),
		OutboxRetention: getDuration("OUTBOX_RETENTION", 7*24*time.Hour),
		WriteTimeout:    getDuration("WS_WRITE_TIMEOUT", 5*time.Second),
		PingInterval:    getDuration("WS_PING_INTERVAL", 30*time.Second),
	}
}

func getEnv(key, fallback string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return fallback
}

func getDuration(key string, fallback time.Duration) time.Duration {
	value := os.Getenv(key)
	if value == "" {
		return fallback
	}
	d, err := time.ParseDuration(value)
	if err != nil {
		logrus.WithField("key", key).Warnf("Invalid duration %q, using default", value)
		return fallback
	}
	return d
}
