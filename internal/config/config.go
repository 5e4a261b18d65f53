package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// Config holds all application configuration.
type Config struct {
	Database DatabaseConfig
	GRPC     GRPCConfig
	HTTP     HTTPConfig
	Auth     AuthConfig
	Redis    RedisConfig
	Kafka    KafkaConfig
	Orders   OrdersConfig
	Reports  ReportsConfig
}

// DatabaseConfig contains database-related settings.
type DatabaseConfig struct {
	Driver string // "sqlite3" or "postgres"
	Path   string // SQLite database file path
	URL    string // Postgres connection string (DATABASE_URL)
}

// DSN is the connection string for the configured driver.
func (d DatabaseConfig) DSN() string {
	if d.Driver == "postgres" {
		return d.URL
	}
	return d.Path
}

// GRPCConfig contains gRPC server settings.
type GRPCConfig struct {
	Address string // gRPC server listen address (e.g., ":50051")
}

// HTTPConfig contains REST server settings.
type HTTPConfig struct {
	Address       string // e.g. ":8080"
	PublicBaseURL string // base of links encoded in pickup QR codes
}

// AuthConfig contains authentication settings.
type AuthConfig struct {
	JWTSecret string // JWT signing secret
}

// RedisConfig enables the daily order-number sequence when Addr is set.
type RedisConfig struct {
	Addr string
}

// KafkaConfig enables lifecycle events when Broker is set.
type KafkaConfig struct {
	Broker string
	Topic  string
}

// OrdersConfig tunes the lifecycle engine.
type OrdersConfig struct {
	PrepTime             time.Duration
	OwnerCancelConfirmed bool
	ServiceFee           decimal.Decimal
	PollInterval         time.Duration // dashboard refresh
}

// ReportsConfig holds the calendar used to cut report periods.
type ReportsConfig struct {
	TimeZone string
	Location *time.Location
}

// Load loads configuration from environment variables with sensible defaults.
func Load() (*Config, error) {
	cfg, err := load("")
	if err != nil {
		return nil, err
	}

	// Validate critical settings
	if cfg.Auth.JWTSecret == "" {
		return nil, fmt.Errorf("JWT_SECRET environment variable is not set; required for production")
	}
	return cfg, nil
}

// LoadWithDefaults is like Load but uses a safe default for JWT_SECRET in development.
// WARNING: Only use in development! Use Load() in production.
func LoadWithDefaults() (*Config, error) {
	return load("dev-secret-change-me")
}

func load(defaultSecret string) (*Config, error) {
	cfg := &Config{
		Database: DatabaseConfig{
			Driver: strings.ToLower(getEnv("DB_DRIVER", "sqlite3")),
			Path:   getEnv("DB_PATH", "canteen.db"),
			URL:    getEnv("DATABASE_URL", ""),
		},
		GRPC: GRPCConfig{
			Address: getEnv("GRPC_ADDRESS", ":50051"),
		},
		HTTP: HTTPConfig{
			Address:       getEnv("HTTP_ADDRESS", ":8080"),
			PublicBaseURL: getEnv("PUBLIC_BASE_URL", "http://localhost:8080"),
		},
		Auth: AuthConfig{
			JWTSecret: getEnv("JWT_SECRET", defaultSecret),
		},
		Redis: RedisConfig{Addr: getEnv("REDIS_ADDR", "")},
		Kafka: KafkaConfig{
			Broker: getEnv("KAFKA_BROKER", ""),
			Topic:  getEnv("KAFKA_TOPIC", "canteen.orders"),
		},
		Reports: ReportsConfig{TimeZone: getEnv("REPORT_TZ", "Local")},
	}

	switch cfg.Database.Driver {
	case "sqlite3":
	case "postgres":
		if cfg.Database.URL == "" {
			return nil, fmt.Errorf("DATABASE_URL is required when DB_DRIVER=postgres")
		}
	default:
		return nil, fmt.Errorf("unsupported DB_DRIVER %q", cfg.Database.Driver)
	}

	var err error
	if cfg.Orders.PrepTime, err = getEnvDuration("PREP_TIME", 30*time.Minute); err != nil {
		return nil, err
	}
	if cfg.Orders.PollInterval, err = getEnvDuration("POLL_INTERVAL", 20*time.Second); err != nil {
		return nil, err
	}
	if cfg.Orders.OwnerCancelConfirmed, err = getEnvBool("OWNER_CANCEL_CONFIRMED", false); err != nil {
		return nil, err
	}
	if cfg.Orders.ServiceFee, err = decimal.NewFromString(getEnv("SERVICE_FEE", "0")); err != nil {
		return nil, fmt.Errorf("invalid decimal for SERVICE_FEE: %w", err)
	}
	if cfg.Orders.ServiceFee.IsNegative() {
		return nil, fmt.Errorf("SERVICE_FEE must not be negative")
	}
	if cfg.Reports.Location, err = time.LoadLocation(cfg.Reports.TimeZone); err != nil {
		return nil, fmt.Errorf("invalid REPORT_TZ: %w", err)
	}
	return cfg, nil
}

// getEnv retrieves an environment variable with a default fallback.
func getEnv(key, defaultVal string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return defaultVal
}

// getEnvDuration retrieves an environment variable as a positive time.Duration.
func getEnvDuration(key string, defaultVal time.Duration) (time.Duration, error) {
	if value, exists := os.LookupEnv(key); exists {
		d, err := time.ParseDuration(value)
		if err != nil {
			return 0, fmt.Errorf("invalid duration for %s: %w", key, err)
		}
		if d <= 0 {
			return 0, fmt.Errorf("%s must be positive", key)
		}
		return d, nil
	}
	return defaultVal, nil
}

// getEnvBool retrieves an environment variable as a boolean with a default fallback.
func getEnvBool(key string, defaultVal bool) (bool, error) {
	if value, exists := os.LookupEnv(key); exists {
		b, err := strconv.ParseBool(value)
		if err != nil {
			return false, fmt.Errorf("invalid boolean for %s: %w", key, err)
		}
		return b, nil
	}
	return defaultVal, nil
}

// String returns a string representation of the config (sensitive values are masked).
func (c *Config) String() string {
	db := c.Database.Path
	if c.Database.Driver == "postgres" {
		db = "postgres://*** (masked) ***"
	}
	return fmt.Sprintf("Config{DB: %s %s, gRPC: %s, HTTP: %s, Redis: %q, Kafka: %q, TZ: %s, Auth: *** (masked) ***}",
		c.Database.Driver, db, c.GRPC.Address, c.HTTP.Address, c.Redis.Addr, c.Kafka.Broker, c.Reports.TimeZone)
}
