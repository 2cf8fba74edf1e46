package config

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/joho/godotenv"
	"github.com/pelletier/go-toml/v2"
)

const defaultJWTSecret = "your-secret-key-change-in-production"

type Config struct {
	Env         string `toml:"env"`
	LogMode     string `toml:"log_mode"`
	Port        string `toml:"port"`
	BindAddress string `toml:"bind_address"`
	CORSOrigin  string `toml:"cors_origin"`

	DBDriver   string `toml:"db_driver"`
	DBHost     string `toml:"db_host"`
	DBPort     string `toml:"db_port"`
	DBUser     string `toml:"db_user"`
	DBPassword string `toml:"db_password"`
	DBName     string `toml:"db_name"`
	DBSSLMode  string `toml:"db_sslmode"`
	SQLitePath string `toml:"sqlite_path"`

	RedisHost     string `toml:"redis_host"`
	RedisPort     string `toml:"redis_port"`
	RedisPassword string `toml:"redis_password"`

	JWTSecret      string `toml:"jwt_secret"`
	AdminEmail     string `toml:"admin_email"`
	ProviderSecret string `toml:"provider_secret"`

	TypesenseHost   string `toml:"typesense_host"`
	TypesenseAPIKey string `toml:"typesense_api_key"`

	OtelEnabled  bool   `toml:"otel_enabled"`
	OtelEndpoint string `toml:"otel_endpoint"`
}

func Default() Config {
	return Config{
		Env:         "development",
		LogMode:     "development",
		Port:        "8080",
		BindAddress: "localhost",
		DBDriver:    "postgres",
		DBHost:      "localhost",
		DBPort:      "5432",
		DBUser:      "gtp",
		DBPassword:  "gtp123",
		DBName:      "guess_the_performer",
		DBSSLMode:   "disable",
		SQLitePath:  "guess_the_performer.db",
		RedisPort:   "6379",
		JWTSecret:   defaultJWTSecret,
		AdminEmail:  "admin@guesstheperformer.local",
	}
}

// Load builds the configuration from defaults, an optional TOML file, an
// optional .env file and the process environment, in that order of
// precedence (environment wins).
func Load(path string) (*Config, error) {
	cfg := Default()

	if path == "" {
		path = os.Getenv("GTP_CONFIG")
	}
	if path != "" {
		file, err := os.Open(path)
		if err != nil {
			return nil, fmt.Errorf("open config: %w", err)
		}
		defer file.Close()
		if err := toml.NewDecoder(file).Decode(&cfg); err != nil {
			return nil, fmt.Errorf("parse config: %w", err)
		}
	}

	// .env is optional; a missing file is not an error.
	_ = godotenv.Load()

	cfg.Env = getEnv("ENV", cfg.Env)
	cfg.LogMode = getEnv("LOG_MODE", cfg.LogMode)
	cfg.Port = getEnv("PORT", cfg.Port)
	cfg.BindAddress = getEnv("BIND_ADDRESS", cfg.BindAddress)
	cfg.CORSOrigin = getEnv("CORS_ORIGIN", cfg.CORSOrigin)
	cfg.DBDriver = strings.ToLower(getEnv("DB_DRIVER", cfg.DBDriver))
	cfg.DBHost = getEnv("DB_HOST", cfg.DBHost)
	cfg.DBPort = getEnv("DB_PORT", cfg.DBPort)
	cfg.DBUser = getEnv("DB_USER", cfg.DBUser)
	cfg.DBPassword = getEnv("DB_PASSWORD", cfg.DBPassword)
	cfg.DBName = getEnv("DB_NAME", cfg.DBName)
	cfg.DBSSLMode = getEnv("DB_SSLMODE", cfg.DBSSLMode)
	cfg.SQLitePath = getEnv("SQLITE_PATH", cfg.SQLitePath)
	cfg.RedisHost = getEnv("REDIS_HOST", cfg.RedisHost)
	cfg.RedisPort = getEnv("REDIS_PORT", cfg.RedisPort)
	cfg.RedisPassword = getEnv("REDIS_PASSWORD", cfg.RedisPassword)
	cfg.JWTSecret = getEnv("JWT_SECRET", cfg.JWTSecret)
	cfg.AdminEmail = getEnv("ADMIN_EMAIL", cfg.AdminEmail)
	cfg.ProviderSecret = getEnv("PROVIDER_SECRET", cfg.ProviderSecret)
	cfg.TypesenseHost = getEnv("TYPESENSE_HOST", cfg.TypesenseHost)
	cfg.TypesenseAPIKey = getEnv("TYPESENSE_API_KEY", cfg.TypesenseAPIKey)
	cfg.OtelEndpoint = getEnv("OTEL_EXPORTER_OTLP_ENDPOINT", cfg.OtelEndpoint)
	if v := os.Getenv("OTEL_ENABLED"); v != "" {
		cfg.OtelEnabled = parseBool(v)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) Validate() error {
	switch c.DBDriver {
	case "postgres", "sqlite":
	default:
		return fmt.Errorf("unknown DB_DRIVER %q (want postgres or sqlite)", c.DBDriver)
	}
	if c.JWTSecret == "" {
		return errors.New("JWT_SECRET must not be empty")
	}
	if c.IsProduction() && c.JWTSecret == defaultJWTSecret {
		return errors.New("JWT_SECRET must be set in production")
	}
	if strings.TrimSpace(c.AdminEmail) == "" {
		return errors.New("ADMIN_EMAIL must not be empty")
	}
	return nil
}

func (c *Config) IsProduction() bool {
	return c.Env == "production" || c.Env == "prod"
}

func (c *Config) Addr() string {
	return c.BindAddress + ":" + c.Port
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func parseBool(v string) bool {
	switch strings.ToLower(strings.TrimSpace(v)) {
	case "1", "true", "yes", "on":
		return true
	default:
		return false
	}
}
