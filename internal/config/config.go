package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config holds all configuration for the café POS
type Config struct {
	Database DatabaseConfig
	RabbitMQ RabbitMQConfig
	HTTP     HTTPConfig
	Auth     AuthConfig
	Shop     ShopConfig
}

// DatabaseConfig holds database connection configuration
type DatabaseConfig struct {
	Host     string
	Port     int
	User     string
	Password string
	Database string
}

// RabbitMQConfig holds RabbitMQ connection configuration
type RabbitMQConfig struct {
	Host     string
	Port     int
	User     string
	Password string
}

// HTTPConfig holds the listener port and the browser origins allowed to
// open websockets. No origins means same-origin only.
type HTTPConfig struct {
	Port           int
	AllowedOrigins []string
}

// MinJWTSecretLength is the shortest HMAC key accepted for staff tokens.
const MinJWTSecretLength = 32

var ErrMissingJWTSecret = errors.New("JWT_SECRET must be set for services that issue or verify staff tokens")

// AuthConfig holds token settings and the optional first staff account
// created at startup.
type AuthConfig struct {
	JWTSecret    string
	TokenTTL     time.Duration
	SeedUsername string
	SeedPassword string
	SeedRole     string
}

// ShopConfig holds storefront and business settings
type ShopConfig struct {
	Name            string
	CurrencySymbol  string
	Timezone        string
	RateLimitWindow time.Duration
	SessionIdleTTL  time.Duration
	AutoConfirm     bool
	RequireContact  bool
	MigrationsPath  string
}

// Load reads an optional dotenv file and then the process environment.
// A missing file is not an error; the environment and defaults still apply.
func Load(filename string) (*Config, error) {
	if filename != "" {
		if err := godotenv.Load(filename); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("failed to load env file: %w", err)
		}
	}

	var (
		cfg = &Config{}
		err error
	)

	cfg.Database.Host = getEnv("DB_HOST", "localhost")
	cfg.Database.User = getEnv("DB_USER", "cafe")
	cfg.Database.Password = getEnv("DB_PASSWORD", "cafe")
	cfg.Database.Database = getEnv("DB_NAME", "cafe_pos")
	if cfg.Database.Port, err = getInt("DB_PORT", 5432); err != nil {
		return nil, err
	}

	cfg.RabbitMQ.Host = getEnv("RABBITMQ_HOST", "localhost")
	cfg.RabbitMQ.User = getEnv("RABBITMQ_USER", "guest")
	cfg.RabbitMQ.Password = getEnv("RABBITMQ_PASSWORD", "guest")
	if cfg.RabbitMQ.Port, err = getInt("RABBITMQ_PORT", 5672); err != nil {
		return nil, err
	}

	if cfg.HTTP.Port, err = getInt("HTTP_PORT", 3000); err != nil {
		return nil, err
	}
	cfg.HTTP.AllowedOrigins = getList("WS_ALLOWED_ORIGINS")

	cfg.Auth.JWTSecret = getEnv("JWT_SECRET", "")
	if cfg.Auth.JWTSecret != "" && len(cfg.Auth.JWTSecret) < MinJWTSecretLength {
		return nil, fmt.Errorf("JWT_SECRET must be at least %d bytes", MinJWTSecretLength)
	}
	if cfg.Auth.TokenTTL, err = getDuration("JWT_TTL", 24*time.Hour); err != nil {
		return nil, err
	}
	cfg.Auth.SeedUsername = getEnv("STAFF_SEED_USERNAME", "")
	cfg.Auth.SeedPassword = getEnv("STAFF_SEED_PASSWORD", "")
	cfg.Auth.SeedRole = getEnv("STAFF_SEED_ROLE", "staff")

	cfg.Shop.Name = getEnv("SHOP_NAME", "Kalye 11 Kafe")
	cfg.Shop.CurrencySymbol = getEnv("SHOP_CURRENCY", "₱")
	cfg.Shop.Timezone = getEnv("SHOP_TIMEZONE", "Asia/Manila")
	cfg.Shop.MigrationsPath = getEnv("MIGRATIONS_PATH", "migrations")
	if cfg.Shop.RateLimitWindow, err = getDuration("ORDER_RATE_LIMIT_WINDOW", time.Minute); err != nil {
		return nil, err
	}
	if cfg.Shop.SessionIdleTTL, err = getDuration("SESSION_IDLE_TTL", 2*time.Hour); err != nil {
		return nil, err
	}
	if cfg.Shop.AutoConfirm, err = getBool("ORDER_AUTO_CONFIRM", false); err != nil {
		return nil, err
	}
	if cfg.Shop.RequireContact, err = getBool("ORDER_REQUIRE_CONTACT", true); err != nil {
		return nil, err
	}

	return cfg, nil
}

// RequireAuth reports whether staff tokens can be issued and verified.
// Modes serving staff routes call it before starting.
func (c *Config) RequireAuth() error {
	if c.Auth.JWTSecret == "" {
		return ErrMissingJWTSecret
	}
	return nil
}

// Location resolves the shop timezone, falling back to UTC.
func (c *Config) Location() *time.Location {
	loc, err := time.LoadLocation(c.Shop.Timezone)
	if err != nil {
		return time.UTC
	}
	return loc
}

// DatabaseURL returns a PostgreSQL connection URL
func (c *Config) DatabaseURL() string {
	return fmt.Sprintf("postgres://%s:%s@%s:%d/%s?sslmode=disable",
		c.Database.User, c.Database.Password, c.Database.Host, c.Database.Port, c.Database.Database)
}

// RabbitMQURL returns an AMQP connection URL
func (c *Config) RabbitMQURL() string {
	return fmt.Sprintf("amqp://%s:%s@%s:%d/",
		c.RabbitMQ.User, c.RabbitMQ.Password, c.RabbitMQ.Host, c.RabbitMQ.Port)
}

func getEnv(key, fallback string) string {
	if v, ok := os.LookupEnv(key); ok {
		return v
	}
	return fallback
}

// getList splits a comma-separated variable, dropping empty entries.
func getList(key string) []string {
	var out []string
	for _, v := range strings.Split(os.Getenv(key), ",") {
		if v = strings.TrimSpace(v); v != "" {
			out = append(out, v)
		}
	}
	return out
}

func getInt(key string, fallback int) (int, error) {
	v, ok := os.LookupEnv(key)
	if !ok || v == "" {
		return fallback, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, fmt.Errorf("invalid %s value: %w", key, err)
	}
	return n, nil
}

func getBool(key string, fallback bool) (bool, error) {
	v, ok := os.LookupEnv(key)
	if !ok || v == "" {
		return fallback, nil
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return false, fmt.Errorf("invalid %s value: %w", key, err)
	}
	return b, nil
}

func getDuration(key string, fallback time.Duration) (time.Duration, error) {
	v, ok := os.LookupEnv(key)
	if !ok || v == "" {
		return fallback, nil
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return 0, fmt.Errorf("invalid %s value: %w", key, err)
	}
	return d, nil
}
