package config

import (
	"os"
	"strconv"
	"strings"
	"time"
)

// Config holds all configuration for the application.
type Config struct {
	Server    ServerConfig
	Database  DatabaseConfig
	Redis     RedisConfig
	NewRelic  NewRelicConfig
	Log       LogConfig
	Simulator SimulatorConfig
	MQTT      MQTTConfig
	Mongo     MongoConfig
	CORS      CORSConfig
}

// ServerConfig holds HTTP server configuration.
type ServerConfig struct {
	Port         string
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
}

// DatabaseConfig holds PostgreSQL configuration.
type DatabaseConfig struct {
	Host     string
	Port     string
	User     string
	Password string
	DBName   string
	SSLMode  string
}

// RedisConfig holds Redis configuration.
type RedisConfig struct {
	Addr     string
	Password string
	DB       int
}

// NewRelicConfig holds New Relic configuration.
type NewRelicConfig struct {
	AppName    string
	LicenseKey string
	Enabled    bool
}

// LogConfig holds logger configuration.
type LogConfig struct {
	Level  string
	Format string // "text" or "json"
}

// SimulatorConfig holds telemetry simulator configuration.
type SimulatorConfig struct {
	Enabled   bool
	Interval  time.Duration
	Workers   int
	SeedCosts bool
}

// MQTTConfig holds the telemetry broker configuration.
type MQTTConfig struct {
	Enabled     bool
	BrokerURL   string
	ClientID    string
	TopicPrefix string
	QoS         int
	Username    string
	Password    string
}

// MongoConfig holds the telemetry archive configuration.
type MongoConfig struct {
	Enabled             bool
	URI                 string
	Database            string
	TelemetryCollection string
}

// CORSConfig holds cross-origin configuration.
type CORSConfig struct {
	AllowedOrigins []string
}

// Load loads configuration from environment variables.
func Load() *Config {
	return &Config{
		Server: ServerConfig{
			Port:         getEnv("SERVER_PORT", "8080"),
			ReadTimeout:  getDurationEnv("SERVER_READ_TIMEOUT", 10*time.Second),
			WriteTimeout: getDurationEnv("SERVER_WRITE_TIMEOUT", 10*time.Second),
		},
		Database: DatabaseConfig{
			Host:     getEnv("DB_HOST", "localhost"),
			Port:     getEnv("DB_PORT", "5432"),
			User:     getEnv("DB_USER", "postgres"),
			Password: getEnv("DB_PASSWORD", "postgres"),
			DBName:   getEnv("DB_NAME", "car_monitoring"),
			SSLMode:  getEnv("DB_SSLMODE", "disable"),
		},
		Redis: RedisConfig{
			Addr:     getEnv("REDIS_ADDR", "localhost:6379"),
			Password: getEnv("REDIS_PASSWORD", ""),
			DB:       getIntEnv("REDIS_DB", 0),
		},
		NewRelic: NewRelicConfig{
			AppName:    getEnv("NEW_RELIC_APP_NAME", "car-monitoring-service"),
			LicenseKey: getEnv("NEW_RELIC_LICENSE_KEY", ""),
			Enabled:    getBoolEnv("NEW_RELIC_ENABLED", false),
		},
		Log: LogConfig{
			Level:  getEnv("LOG_LEVEL", "info"),
			Format: getEnv("LOG_FORMAT", "text"),
		},
		Simulator: SimulatorConfig{
			Enabled:   getBoolEnv("SIMULATOR_ENABLED", true),
			Interval:  getDurationEnv("SIMULATOR_INTERVAL", 5*time.Second),
			Workers:   getIntEnv("SIMULATOR_WORKERS", 8),
			SeedCosts: getBoolEnv("SEED_TRIP_COSTS", true),
		},
		MQTT: MQTTConfig{
			Enabled:     getBoolEnv("MQTT_ENABLED", false),
			BrokerURL:   getEnv("MQTT_BROKER_URL", "tcp://localhost:1883"),
			ClientID:    getEnv("MQTT_CLIENT_ID", "car-monitoring-simulator"),
			TopicPrefix: getEnv("MQTT_TOPIC_PREFIX", "carmonitor"),
			QoS:         getIntEnv("MQTT_QOS", 1),
			Username:    getEnv("MQTT_USERNAME", ""),
			Password:    getEnv("MQTT_PASSWORD", ""),
		},
		Mongo: MongoConfig{
			Enabled:             getBoolEnv("MONGO_ENABLED", false),
			URI:                 getEnv("MONGO_URI", "mongodb://localhost:27017"),
			Database:            getEnv("MONGO_DATABASE", "car_monitoring"),
			TelemetryCollection: getEnv("MONGO_TELEMETRY_COLLECTION", "telemetry"),
		},
		CORS: CORSConfig{
			AllowedOrigins: getListEnv("CORS_ALLOWED_ORIGINS", []string{"http://localhost:3000"}),
		},
	}
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getIntEnv(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return defaultValue
}

func getBoolEnv(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if boolVal, err := strconv.ParseBool(value); err == nil {
			return boolVal
		}
	}
	return defaultValue
}

// getDurationEnv accepts Go durations ("5s") and bare integers, read as milliseconds.
func getDurationEnv(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if duration, err := time.ParseDuration(value); err == nil {
			return duration
		}
		if ms, err := strconv.Atoi(value); err == nil {
			return time.Duration(ms) * time.Millisecond
		}
	}
	return defaultValue
}

func getListEnv(key string, defaultValue []string) []string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	var items []string
	for _, item := range strings.Split(value, ",") {
		if item = strings.TrimSpace(item); item != "" {
			items = append(items, item)
		}
	}
	if len(items) == 0 {
		return defaultValue
	}
	return items
}
