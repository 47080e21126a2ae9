// internal/config/config.go
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	Environment string
	Server      ServerConfig
	Database    DatabaseConfig
	Log         LogConfig
	Sync        SyncConfig
	Search      SearchConfig
	Dashboard   DashboardConfig
	RateLimit   RateLimitConfig
	CORS        CORSConfig
	AWS         AWSConfig
	I18n        I18nConfig
}

type ServerConfig struct {
	Port         string
	Host         string
	ReadTimeout  int
	WriteTimeout int
	IdleTimeout  int
}

type DatabaseConfig struct {
	Driver       string // postgres | sqlite
	URL          string
	Host         string
	Port         string
	User         string
	Password     string
	Database     string
	SSLMode      string
	Path         string // sqlite file or DSN
	MaxOpenConns int
	MaxIdleConns int
	MaxLifetime  int
	LogLevel     string
	Seed         bool
}

type LogConfig struct {
	Level  string
	Format string // json | text
}

type SyncConfig struct {
	// Mode applied by POST /sync. POST /update_stock always replaces.
	Mode              string
	EnforceSingleMode bool
	MaxItems          int
}

type SearchConfig struct {
	AverageSpeedKmh float64
	PrepMinutes     int
	Currency        string
}

type DashboardConfig struct {
	JWTSecret string
	Timezone  string
}

type RateLimitConfig struct {
	RequestsPerSecond float64
	Burst             int
}

type CORSConfig struct {
	AllowedOrigins []string
}

type AWSConfig struct {
	Region          string
	AccessKeyID     string
	SecretAccessKey string
	S3Bucket        string
	S3Prefix        string
}

type I18nConfig struct {
	DefaultLocale string
}

func Load() (*Config, error) {
	// Load .env file if it exists
	godotenv.Load()

	config := &Config{
		Environment: getEnv("ENVIRONMENT", "development"),
		Server: ServerConfig{
			Port:         getEnv("SERVER_PORT", "5000"),
			Host:         getEnv("SERVER_HOST", "0.0.0.0"),
			ReadTimeout:  getEnvAsInt("SERVER_READ_TIMEOUT", 15),
			WriteTimeout: getEnvAsInt("SERVER_WRITE_TIMEOUT", 15),
			IdleTimeout:  getEnvAsInt("SERVER_IDLE_TIMEOUT", 60),
		},
		Database: DatabaseConfig{
			Driver:       getEnv("DB_DRIVER", "postgres"),
			URL:          getEnv("DATABASE_URL", ""),
			Host:         getEnv("DB_HOST", "localhost"),
			Port:         getEnv("DB_PORT", "5432"),
			User:         getEnv("DB_USER", "postgres"),
			Password:     getEnv("DB_PASSWORD", ""),
			Database:     getEnv("DB_NAME", "farma_hub"),
			SSLMode:      getEnv("DB_SSL_MODE", "disable"),
			Path:         getEnv("DB_PATH", "farma_hub.db"),
			MaxOpenConns: getEnvAsInt("DB_MAX_OPEN_CONNS", 25),
			MaxIdleConns: getEnvAsInt("DB_MAX_IDLE_CONNS", 25),
			MaxLifetime:  getEnvAsInt("DB_MAX_LIFETIME", 300),
			LogLevel:     getEnv("DB_LOG_LEVEL", "warn"),
			Seed:         getEnvAsBool("DB_SEED", false),
		},
		Log: LogConfig{
			Level:  getEnv("LOG_LEVEL", "info"),
			Format: getEnv("LOG_FORMAT", "json"),
		},
		Sync: SyncConfig{
			Mode:              getEnv("SYNC_MODE", "merge"),
			EnforceSingleMode: getEnvAsBool("SYNC_ENFORCE_SINGLE_MODE", true),
			MaxItems:          getEnvAsInt("SYNC_MAX_ITEMS", 10000),
		},
		Search: SearchConfig{
			AverageSpeedKmh: getEnvAsFloat("ETA_AVERAGE_SPEED_KMH", 20),
			PrepMinutes:     getEnvAsInt("ETA_PREP_MINUTES", 10),
			Currency:        getEnv("CURRENCY_SYMBOL", "R$"),
		},
		Dashboard: DashboardConfig{
			JWTSecret: getEnv("DASHBOARD_JWT_SECRET", ""),
			Timezone:  getEnv("DASHBOARD_TIMEZONE", "America/Sao_Paulo"),
		},
		RateLimit: RateLimitConfig{
			RequestsPerSecond: getEnvAsFloat("RATE_LIMIT_RPS", 10),
			Burst:             getEnvAsInt("RATE_LIMIT_BURST", 20),
		},
		CORS: CORSConfig{
			AllowedOrigins: getEnvAsList("CORS_ALLOWED_ORIGINS", []string{"*"}),
		},
		AWS: AWSConfig{
			Region:          getEnv("AWS_REGION", "sa-east-1"),
			AccessKeyID:     getEnv("AWS_ACCESS_KEY_ID", ""),
			SecretAccessKey: getEnv("AWS_SECRET_ACCESS_KEY", ""),
			S3Bucket:        getEnv("AWS_S3_BUCKET", ""),
			S3Prefix:        getEnv("AWS_S3_PREFIX", "snapshots"),
		},
		I18n: I18nConfig{
			DefaultLocale: getEnv("DEFAULT_LOCALE", "pt_BR"),
		},
	}

	return config, config.Validate()
}

func (c *Config) Validate() error {
	switch c.Database.Driver {
	case "postgres", "sqlite":
	default:
		return fmt.Errorf("unsupported database driver %q", c.Database.Driver)
	}

	if c.Database.Password == "" && c.Database.URL == "" &&
		c.Database.Driver == "postgres" && c.Environment == "production" {
		return fmt.Errorf("database password is required in production")
	}

	switch c.Sync.Mode {
	case "merge", "replace":
	default:
		return fmt.Errorf("SYNC_MODE must be merge or replace, got %q", c.Sync.Mode)
	}

	if c.Sync.MaxItems < 1 {
		return fmt.Errorf("SYNC_MAX_ITEMS must be positive")
	}

	if c.Search.AverageSpeedKmh <= 0 {
		return fmt.Errorf("ETA_AVERAGE_SPEED_KMH must be positive")
	}

	if c.Search.PrepMinutes < 0 {
		return fmt.Errorf("ETA_PREP_MINUTES must not be negative")
	}

	if c.Dashboard.JWTSecret == "" && c.Environment == "production" {
		return fmt.Errorf("dashboard JWT secret is required in production")
	}

	return nil
}

// Location resolves the dashboard timezone. Hosts without tzdata fall back to
// Brasília time.
func (d DashboardConfig) Location() *time.Location {
	if loc, err := time.LoadLocation(d.Timezone); err == nil {
		return loc
	}
	return time.FixedZone("BRT", -3*60*60)
}

// Helper functions
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

func getEnvAsFloat(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if floatValue, err := strconv.ParseFloat(value, 64); err == nil {
			return floatValue
		}
	}
	return defaultValue
}

func getEnvAsBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if boolValue, err := strconv.ParseBool(strings.ToLower(value)); err == nil {
			return boolValue
		}
	}
	return defaultValue
}

func getEnvAsList(key string, defaultValue []string) []string {
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

func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return defaultValue
}
