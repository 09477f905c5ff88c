package config

import (
	"fmt"
	"os"
	"strconv"

	"github.com/joho/godotenv"
)

// Load reads the .env file specified by QALILEO_ENV (or .env by default),
// then loads the corresponding .secret file if it exists.
// All config is flat env vars read via os.Getenv after loading.
func Load() error {
	envFile := os.Getenv("QALILEO_ENV")
	if envFile == "" {
		envFile = ".env"
	}

	// Load main env file (ignore error if file doesn't exist)
	_ = godotenv.Load(envFile)

	// Load secret sidecar if it exists
	_ = godotenv.Load(envFile + ".secret")

	return nil
}

func ServerPort() int {
	port, err := strconv.Atoi(os.Getenv("SERVER_PORT"))
	if err != nil {
		return 8080
	}
	return port
}

func ServerAddr() string {
	return fmt.Sprintf(":%d", ServerPort())
}

func DatabaseURL() string {
	return os.Getenv("DATABASE_URL")
}

// BaseHostname is the apex hostname the platform itself is served on.
// Hostname resolution cannot run without it, so there is no default.
func BaseHostname() string {
	return os.Getenv("BASE_HOSTNAME")
}

// RedisAddr returns the address of the redis used for hot-path lookup
// caching. Empty means caching is disabled and lookups go straight to
// postgres.
func RedisAddr() string {
	return os.Getenv("REDIS_ADDR")
}

func RedisPassword() string {
	return os.Getenv("REDIS_PASSWORD")
}

func SessionSecret() string {
	return os.Getenv("SESSION_SECRET")
}

// ProvisionerProvider returns the configured domain provisioning provider.
// Defaults to "vercel" if not set.
// Valid values: vercel, mock
func ProvisionerProvider() string {
	p := os.Getenv("PROVISIONER_PROVIDER")
	if p == "" {
		return "vercel"
	}
	return p
}

func ProvisionerToken() string {
	return os.Getenv("PROVISIONER_TOKEN")
}

func ProvisionerProjectID() string {
	return os.Getenv("PROVISIONER_PROJECT_ID")
}

func MigrationsPath() string {
	p := os.Getenv("MIGRATIONS_PATH")
	if p == "" {
		return "migrations"
	}
	return p
}

// RateLimitRPS returns requests per second limit.
// Defaults to 100 if not set.
func RateLimitRPS() float64 {
	rps, err := strconv.ParseFloat(os.Getenv("RATE_LIMIT_RPS"), 64)
	if err != nil || rps <= 0 {
		return 100
	}
	return rps
}

// RateLimitBurst returns the burst size for rate limiting.
// Defaults to 20 if not set.
func RateLimitBurst() int {
	burst, err := strconv.Atoi(os.Getenv("RATE_LIMIT_BURST"))
	if err != nil || burst <= 0 {
		return 20
	}
	return burst
}

// LogLevel returns the log level (debug, info, warn, error).
// Defaults to "info" if not set.
func LogLevel() string {
	level := os.Getenv("LOG_LEVEL")
	if level == "" {
		return "info"
	}
	return level
}
