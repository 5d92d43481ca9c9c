// Package config loads runtime settings from the environment, with a .env
// file picked up in development.
package config

import (
	"os"
	"strconv"

	"github.com/joho/godotenv"
	log "github.com/sirupsen/logrus"
)

// Config holds every runtime setting for the server.
type Config struct {
	Port          string
	MongoURI      string
	MongoDatabase string

	// UserStoreBackend selects "memory" (default) or "mongo".
	UserStoreBackend string

	CORSOrigin string

	RateLimitRequests int
	RateLimitWindow   int // seconds

	// MQTTBroker enables the MQTT ingestion bridge when non-empty.
	MQTTBroker string
	MQTTTopic  string

	RetentionDays int
}

// Load reads the configuration from the environment. Missing values fall back
// to development defaults.
func Load() *Config {
	if err := godotenv.Load(); err != nil {
		log.Debug("No .env file found, using environment variables")
	}

	return &Config{
		Port:              getEnv("PORT", "8080"),
		MongoURI:          getEnv("MONGO_URI", "mongodb://localhost:27017"),
		MongoDatabase:     getEnv("MONGO_DB", "cartracker"),
		UserStoreBackend:  getEnv("USER_STORE", "memory"),
		CORSOrigin:        getEnv("CORS_ORIGIN", "*"),
		RateLimitRequests: getEnvInt("RATE_LIMIT_REQUESTS", 100),
		RateLimitWindow:   getEnvInt("RATE_LIMIT_WINDOW", 60),
		MQTTBroker:        getEnv("MQTT_BROKER", ""),
		MQTTTopic:         getEnv("MQTT_TOPIC", "cartracker/location/+"),
		RetentionDays:     getEnvInt("RETENTION_DAYS", 30),
	}
}

func getEnv(key, fallback string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	raw := os.Getenv(key)
	if raw == "" {
		return fallback
	}
	value, err := strconv.Atoi(raw)
	if err != nil {
		log.WithField("key", key).Warnf("Invalid integer %q, using default %d", raw, fallback)
		return fallback
	}
	return value
}
