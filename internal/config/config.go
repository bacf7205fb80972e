package config

import (
	"errors"
	"fmt"
	"os"
	"runtime"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

const (
	TokenFormatJWT    = "jwt"
	TokenFormatPaseto = "paseto"

	DriverPostgres = "postgres"
	DriverSQLite   = "sqlite"
)

// Argon2 parameter ceilings. Stored hashes above them are refused on verify.
const (
	MaxArgon2Time      = 16
	MaxArgon2MemoryKiB = 1024 * 1024 // 1 GiB
	MaxArgon2Threads   = 255
)

type Config struct {
	Server    ServerConfig
	Database  DatabaseConfig
	Redis     RedisConfig
	Auth      AuthConfig
	RateLimit RateLimitConfig
}

type ServerConfig struct {
	Port            string
	Env             string // dev or prod
	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
	ShutdownTimeout time.Duration
	TrustedOrigins  []string // CORS allowed origins
}

type DatabaseConfig struct {
	Driver         string // postgres or sqlite
	Host           string
	Port           string
	User           string
	Password       string
	DBName         string
	SSLMode        string
	ChannelBinding string // "require" for Neon DB, empty for local
	SQLitePath     string
	MaxOpenConns   int
	MaxIdleConns   int
}

type RedisConfig struct {
	Enabled  bool
	Host     string
	Port     string
	Password string
	DB       int
}

type AuthConfig struct {
	// TokenFormat selects the token implementation: jwt (HS256) or paseto (v4.local)
	TokenFormat string
	// TokenSecret is the symmetric signing key. At least 32 bytes for jwt,
	// exactly 32 bytes for paseto.
	TokenSecret         []byte
	Issuer              string
	Audience            string
	AccessTokenDuration time.Duration
	ClockSkew           time.Duration

	Argon2Time        int
	Argon2MemoryKiB   int
	Argon2Threads     int
	HashConcurrency   int
	MaxPasswordLength int
}

type RateLimitConfig struct {
	Enabled         bool
	Window          time.Duration
	MaxIPRequests   int // per purpose (login, register) per window
	MaxFailedLogins int // per email per window
}

// Load reads configuration from environment variables.
// A .env file in the working directory is loaded first if present.
func Load() (*Config, error) {
	// Try to load .env file (ignore error if it doesn't exist)
	_ = godotenv.Load()

	cfg := &Config{
		Server: ServerConfig{
			Port:            getEnv("SERVER_PORT", "8080"),
			Env:             getEnv("APP_ENV", "dev"),
			ReadTimeout:     getDurationEnv("SERVER_READ_TIMEOUT", 10*time.Second),
			WriteTimeout:    getDurationEnv("SERVER_WRITE_TIMEOUT", 10*time.Second),
			ShutdownTimeout: getDurationEnv("SERVER_SHUTDOWN_TIMEOUT", 15*time.Second),
			TrustedOrigins:  getSliceEnv("TRUSTED_ORIGINS", []string{"http://localhost:3000"}),
		},
		Database: DatabaseConfig{
			Driver:         getEnv("DB_DRIVER", DriverPostgres),
			Host:           getEnv("DB_HOST", "localhost"),
			Port:           getEnv("DB_PORT", "5432"),
			User:           getEnv("DB_USER", "postgres"),
			Password:       getEnv("DB_PASSWORD", "postgres"),
			DBName:         getEnv("DB_NAME", "tasks"),
			SSLMode:        getEnv("DB_SSLMODE", "disable"),
			ChannelBinding: getEnv("DB_CHANNEL_BINDING", ""),
			SQLitePath:     getEnv("DB_SQLITE_PATH", "tasks.db"),
			MaxOpenConns:   getIntEnv("DB_MAX_OPEN_CONNS", 25),
			MaxIdleConns:   getIntEnv("DB_MAX_IDLE_CONNS", 5),
		},
		Redis: RedisConfig{
			Enabled:  getBoolEnv("REDIS_ENABLED", true),
			Host:     getEnv("REDIS_HOST", "localhost"),
			Port:     getEnv("REDIS_PORT", "6379"),
			Password: getEnv("REDIS_PASSWORD", ""),
			DB:       getIntEnv("REDIS_DB", 0),
		},
		Auth: AuthConfig{
			TokenFormat:         strings.ToLower(getEnv("TOKEN_FORMAT", TokenFormatJWT)),
			TokenSecret:         []byte(getEnv("TOKEN_SECRET", "")),
			Issuer:              getEnv("TOKEN_ISSUER", "go-task-api"),
			Audience:            getEnv("TOKEN_AUDIENCE", "go-task-api-clients"),
			AccessTokenDuration: getDurationEnv("ACCESS_TOKEN_DURATION", 15*time.Minute),
			ClockSkew:           getDurationEnv("TOKEN_CLOCK_SKEW", 0),
			Argon2Time:          getIntEnv("ARGON2_TIME", 3),
			Argon2MemoryKiB:     getIntEnv("ARGON2_MEMORY_KIB", 64*1024),
			Argon2Threads:       getIntEnv("ARGON2_THREADS", 4),
			HashConcurrency:     getIntEnv("HASH_CONCURRENCY", runtime.GOMAXPROCS(0)),
			MaxPasswordLength:   getIntEnv("MAX_PASSWORD_LENGTH", 1024),
		},
		RateLimit: RateLimitConfig{
			Enabled:         getBoolEnv("RATE_LIMIT_ENABLED", true),
			Window:          getDurationEnv("RATE_LIMIT_WINDOW", 15*time.Minute),
			MaxIPRequests:   getIntEnv("RATE_LIMIT_MAX_IP_REQUESTS", 20),
			MaxFailedLogins: getIntEnv("RATE_LIMIT_MAX_FAILED_LOGINS", 5),
		},
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Validate checks the values that would make the service insecure or unusable.
func (c *Config) Validate() error {
	switch c.Auth.TokenFormat {
	case TokenFormatJWT:
		if len(c.Auth.TokenSecret) < 32 {
			return fmt.Errorf("TOKEN_SECRET must be at least 32 bytes for jwt, got %d", len(c.Auth.TokenSecret))
		}
	case TokenFormatPaseto:
		// PASETO symmetric key (must be 32 bytes for v4.local)
		if len(c.Auth.TokenSecret) != 32 {
			return fmt.Errorf("TOKEN_SECRET must be exactly 32 bytes for paseto, got %d", len(c.Auth.TokenSecret))
		}
	default:
		return fmt.Errorf("unsupported TOKEN_FORMAT %q", c.Auth.TokenFormat)
	}

	if c.Auth.Issuer == "" || c.Auth.Audience == "" {
		return errors.New("TOKEN_ISSUER and TOKEN_AUDIENCE must not be empty")
	}
	if c.Auth.AccessTokenDuration <= 0 {
		return errors.New("ACCESS_TOKEN_DURATION must be positive")
	}
	if err := c.Auth.validateArgon2(); err != nil {
		return err
	}
	if c.Auth.HashConcurrency < 1 {
		c.Auth.HashConcurrency = 1
	}

	switch c.Database.Driver {
	case DriverPostgres, DriverSQLite:
	default:
		return fmt.Errorf("unsupported DB_DRIVER %q", c.Database.Driver)
	}

	return nil
}

// validateArgon2 keeps the hashing parameters inside the range the hasher
// accepts when it decodes a stored hash.
func (c *AuthConfig) validateArgon2() error {
	if c.Argon2Time < 1 || c.Argon2Time > MaxArgon2Time {
		return fmt.Errorf("ARGON2_TIME must be between 1 and %d, got %d", MaxArgon2Time, c.Argon2Time)
	}
	if c.Argon2Threads < 1 || c.Argon2Threads > MaxArgon2Threads {
		return fmt.Errorf("ARGON2_THREADS must be between 1 and %d, got %d", MaxArgon2Threads, c.Argon2Threads)
	}
	if c.Argon2MemoryKiB < 8*c.Argon2Threads || c.Argon2MemoryKiB > MaxArgon2MemoryKiB {
		return fmt.Errorf("ARGON2_MEMORY_KIB must be between %d and %d, got %d", 8*c.Argon2Threads, MaxArgon2MemoryKiB, c.Argon2MemoryKiB)
	}
	return nil
}

func (c *DatabaseConfig) ConnectionString() string {
	if c.Driver == DriverSQLite {
		return fmt.Sprintf("file:%s?_pragma=busy_timeout(5000)&_pragma=foreign_keys(1)", c.SQLitePath)
	}

	connStr := fmt.Sprintf(
		"host=%s port=%s user=%s password=%s dbname=%s sslmode=%s",
		c.Host, c.Port, c.User, c.Password, c.DBName, c.SSLMode,
	)

	// Add channel_binding if configured (required for Neon DB)
	if c.ChannelBinding != "" {
		connStr += fmt.Sprintf(" channel_binding=%s", c.ChannelBinding)
	}

	return connStr
}

// Address returns Redis connection address (host:port)
func (c *RedisConfig) Address() string {
	return fmt.Sprintf("%s:%s", c.Host, c.Port)
}

// IsDevelopment returns true if the environment is set to dev
func (c *ServerConfig) IsDevelopment() bool {
	return c.Env == "dev"
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getIntEnv(key string, defaultValue int) int {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}

	intValue, err := strconv.Atoi(value)
	if err != nil {
		return defaultValue
	}

	return intValue
}

func getBoolEnv(key string, defaultValue bool) bool {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}

	boolValue, err := strconv.ParseBool(value)
	if err != nil {
		return defaultValue
	}

	return boolValue
}

// getDurationEnv accepts either whole seconds ("900") or a Go duration ("15m").
func getDurationEnv(key string, defaultValue time.Duration) time.Duration {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}

	if seconds, err := strconv.Atoi(value); err == nil {
		return time.Duration(seconds) * time.Second
	}

	d, err := time.ParseDuration(value)
	if err != nil {
		return defaultValue
	}

	return d
}

func getSliceEnv(key string, defaultValue []string) []string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}

	// Split by comma and trim whitespace
	parts := strings.Split(value, ",")
	result := make([]string, 0, len(parts))
	for _, part := range parts {
		if trimmed := strings.TrimSpace(part); trimmed != "" {
			result = append(result, trimmed)
		}
	}

	if len(result) == 0 {
		return defaultValue
	}

	return result
}
