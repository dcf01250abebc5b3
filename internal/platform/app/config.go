package app

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/aussiebroadwan/multiman/internal/platform/service"
	"github.com/aussiebroadwan/multiman/pkg/jwtx"
	"github.com/joho/godotenv"
)

// minSecretLength is the shortest JWT_SECRET accepted for HS256.
const minSecretLength = 32

type Config struct {
	Env       string // Environment (dev, staging, prod) (default: dev)
	LogLevel  string // Log level (debug, info, warn, error) (default: info)
	LogFormat string // Log format (json, text) (default: json)
	Port      int    // HTTP server port (default: 8080)

	DatabaseFile string // Path to SQLite database file (default: ./multiman.db)
	PepperFile   string // Path to the password pepper, created on first start (default: ./pepper)

	JWTSecret      string        // HS256 secret, required outside dev
	Issuer         string        // Issuer claim for tokens (default: multiman)
	AccessTokenTTL time.Duration // Token lifetime (default: 12h)

	SignupPolicy service.SignupPolicy // ADMIN_SIGNUP: open, bootstrap or closed (default: open)

	ShutdownGracePeriod time.Duration // Graceful shutdown timeout (default: 10s)

	AMQPURL      string // Optional: activity fan-out broker
	AMQPExchange string // Exchange for activity events (default: multiman.activity)

	RedisAddr     string // Optional: shared rate limit state
	RedisPassword string
	RedisDB       int
}

// IsDev reports whether the process runs in the development environment.
func (c Config) IsDev() bool { return c.Env == "dev" }

// LoadConfig reads the environment after loading an optional .env file
// named by ENV_FILE. Variables already set in the environment win over the
// file.
func LoadConfig() (Config, error) {
	if err := loadDotEnv(getEnvOrDefault("ENV_FILE", ".env")); err != nil {
		return Config{}, err
	}

	policy, err := service.ParseSignupPolicy(os.Getenv("ADMIN_SIGNUP"))
	if err != nil {
		return Config{}, fmt.Errorf("config: ADMIN_SIGNUP: %w", err)
	}

	cfg := Config{
		Env:                 getEnvOrDefault("ENV", "dev"),
		LogLevel:            getEnvOrDefault("LOG_LEVEL", "info"),
		LogFormat:           getEnvOrDefault("LOG_FORMAT", "json"),
		Port:                getEnvIntOrDefault("PORT", 8080),
		DatabaseFile:        getEnvOrDefault("DATABASE_FILE", "multiman.db"),
		PepperFile:          getEnvOrDefault("PEPPER_FILE", "pepper"),
		JWTSecret:           os.Getenv("JWT_SECRET"),
		Issuer:              getEnvOrDefault("JWT_ISSUER", "multiman"),
		AccessTokenTTL:      getEnvDurationOrDefault("ACCESS_TOKEN_TTL", jwtx.DefaultAccessTokenTTL),
		SignupPolicy:        policy,
		ShutdownGracePeriod: getEnvDurationOrDefault("SHUTDOWN_GRACE_PERIOD", 10*time.Second),
		AMQPURL:             os.Getenv("AMQP_URL"),
		AMQPExchange:        getEnvOrDefault("AMQP_EXCHANGE", "multiman.activity"),
		RedisAddr:           os.Getenv("REDIS_ADDR"),
		RedisPassword:       os.Getenv("REDIS_PASSWORD"),
		RedisDB:             getEnvIntOrDefault("REDIS_DB", 0),
	}

	if err := cfg.validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (c Config) validate() error {
	if c.JWTSecret == "" && !c.IsDev() {
		return errors.New("config: JWT_SECRET is required outside dev")
	}
	if c.JWTSecret != "" && len(c.JWTSecret) < minSecretLength {
		return fmt.Errorf("config: JWT_SECRET must be at least %d bytes", minSecretLength)
	}
	if c.AccessTokenTTL <= 0 {
		return errors.New("config: ACCESS_TOKEN_TTL must be positive")
	}
	if c.Port <= 0 || c.Port > 65535 {
		return fmt.Errorf("config: PORT %d out of range", c.Port)
	}
	return nil
}

func loadDotEnv(path string) error {
	if path == "" {
		return nil
	}
	err := godotenv.Load(path)
	if err == nil || errors.Is(err, fs.ErrNotExist) {
		return nil
	}
	return fmt.Errorf("config: load %s: %w", path, err)
}

func getEnvOrDefault(key, defaultValue string) string {
	if value := strings.TrimSpace(os.Getenv(key)); value != "" {
		return value
	}
	return defaultValue
}

func getEnvIntOrDefault(key string, defaultValue int) int {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}

	if intValue, err := strconv.Atoi(value); err == nil {
		return intValue
	}

	return defaultValue
}

func getEnvDurationOrDefault(key string, defaultValue time.Duration) time.Duration {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}

	// Try parsing as duration (e.g., "1h", "30m", "90s")
	if duration, err := time.ParseDuration(value); err == nil {
		return duration
	}

	// Bare integers are seconds
	if seconds, err := strconv.Atoi(value); err == nil {
		return time.Duration(seconds) * time.Second
	}

	return defaultValue
}
