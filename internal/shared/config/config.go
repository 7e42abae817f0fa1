package config

import (
	"fmt"
	"os"
	"strconv"

	"github.com/joho/godotenv"
)

type Config struct {
	Server     ServerConfig
	Database   DatabaseConfig
	Redis      RedisConfig
	EventStore EventStoreConfig
	Legacy     LegacyConfig
	Auth       AuthConfig
	Region     RegionConfig
}

type ServerConfig struct {
	Port int
	Env  string
	// RateLimitRPS / RateLimitBurst throttle the public resolve endpoints
	RateLimitRPS   int
	RateLimitBurst int
}

type DatabaseConfig struct {
	Host     string
	Port     int
	User     string
	Password string
	Database string
	SSLMode  string
}

func (d DatabaseConfig) DSN() string {
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		d.Host, d.Port, d.User, d.Password, d.Database, d.SSLMode,
	)
}

// RedisConfig holds the resolution-cache connection settings.
type RedisConfig struct {
	Addr     string
	Password string
	DB       int
	Enabled  bool
	// TTLSeconds bounds how long a cached resolution may be served after a
	// coverage edit
	TTLSeconds int
}

// EventStoreConfig holds configuration for the EventStoreDB audit bus.
type EventStoreConfig struct {
	Host     string
	Port     int
	Insecure bool
	Username string
	Password string
	Enabled  bool
}

// LegacyConfig points at the previous storefront's SQL Server, read by the
// one-way import adapter.
type LegacyConfig struct {
	Enabled     bool
	Host        string
	Port        int
	User        string
	Password    string
	Database    string
	SSLMode     string
	PollSeconds int
	AreaTable   string
	ZoneTable   string
	MenuTable   string
}

type AuthConfig struct {
	JWTSecret string
}

// RegionConfig defines the operating bounding box. Coordinates outside it are
// rejected as out of service region before any polygon is consulted. Defaults
// cover Pakistan.
type RegionConfig struct {
	MinLat float64
	MaxLat float64
	MinLng float64
	MaxLng float64
	// VenueLat/VenueLng is the restaurant origin, used to derive delivery
	// distance when the caller does not supply one
	VenueLat float64
	VenueLng float64
}

func Load() (*Config, error) {
	// Optional .env for local development; the process env always wins.
	_ = godotenv.Load()

	return &Config{
		Server: ServerConfig{
			Port:           getEnvInt("SERVER_PORT", 8080),
			Env:            getEnv("ENV", "development"),
			RateLimitRPS:   getEnvInt("RATE_LIMIT_RPS", 50),
			RateLimitBurst: getEnvInt("RATE_LIMIT_BURST", 100),
		},
		Database: DatabaseConfig{
			Host:     getEnv("DB_HOST", "localhost"),
			Port:     getEnvInt("DB_PORT", 5432),
			User:     getEnv("DB_USER", "storefront"),
			Password: getEnv("DB_PASSWORD", "storefront"),
			Database: getEnv("DB_NAME", "storefront"),
			SSLMode:  getEnv("DB_SSLMODE", "disable"),
		},
		Redis: RedisConfig{
			Addr:       getEnv("REDIS_ADDR", "localhost:6379"),
			Password:   getEnv("REDIS_PASSWORD", ""),
			DB:         getEnvInt("REDIS_DB", 0),
			Enabled:    getEnvBool("REDIS_ENABLED", false),
			TTLSeconds: getEnvInt("RESOLVE_CACHE_TTL_S", 300),
		},
		EventStore: EventStoreConfig{
			Host:     getEnv("EVENTSTORE_HOST", "localhost"),
			Port:     getEnvInt("EVENTSTORE_PORT", 2113),
			Insecure: getEnvBool("EVENTSTORE_INSECURE", true),
			Username: getEnv("EVENTSTORE_USERNAME", ""),
			Password: getEnv("EVENTSTORE_PASSWORD", ""),
			Enabled:  getEnvBool("EVENTSTORE_ENABLED", false),
		},
		Legacy: LegacyConfig{
			Enabled:     getEnvBool("LEGACY_IMPORT_ENABLED", false),
			Host:        getEnv("LEGACY_DB_HOST", "localhost"),
			Port:        getEnvInt("LEGACY_DB_PORT", 1433),
			User:        getEnv("LEGACY_DB_USER", "sa"),
			Password:    getEnv("LEGACY_DB_PASSWORD", ""),
			Database:    getEnv("LEGACY_DB_NAME", "storefront_v1"),
			SSLMode:     getEnv("LEGACY_DB_SSLMODE", "disable"),
			PollSeconds: getEnvInt("LEGACY_POLL_SECONDS", 300),
			AreaTable:   getEnv("LEGACY_AREA_TABLE", "dbo.DeliveryAreas"),
			ZoneTable:   getEnv("LEGACY_ZONE_TABLE", "dbo.DeliveryZones"),
			MenuTable:   getEnv("LEGACY_MENU_TABLE", "dbo.MenuItems"),
		},
		Auth: AuthConfig{
			JWTSecret: getEnv("JWT_SECRET", "dev-secret-change-in-prod"),
		},
		Region: RegionConfig{
			MinLat:   getEnvFloat("REGION_MIN_LAT", 23.5),
			MaxLat:   getEnvFloat("REGION_MAX_LAT", 37.5),
			MinLng:   getEnvFloat("REGION_MIN_LNG", 60.5),
			MaxLng:   getEnvFloat("REGION_MAX_LNG", 77.5),
			VenueLat: getEnvFloat("VENUE_LAT", 31.5204),
			VenueLng: getEnvFloat("VENUE_LNG", 74.3587),
		},
	}, nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if i, err := strconv.Atoi(value); err == nil {
			return i
		}
	}
	return defaultValue
}

func getEnvBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if b, err := strconv.ParseBool(value); err == nil {
			return b
		}
	}
	return defaultValue
}

func getEnvFloat(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if f, err := strconv.ParseFloat(value, 64); err == nil {
			return f
		}
	}
	return defaultValue
}
