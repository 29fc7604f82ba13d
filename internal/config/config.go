package config

import (
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
)

type Config struct {
	// Environment
	Environment string
	InstanceID  string

	// Database
	DatabaseURL    string
	MigrateOnStart bool

	// Redis
	RedisURL string

	// Server
	Port        string
	FrontendURL string

	// Drawing
	Mode            string
	SpinDurationMs  int
	WinnerWaitMs    int
	FrameIntervalMs int

	// Ticket registry
	RegistryBaseURL           string
	RegistryFetchTimeoutSecs  int
	RegistrySelectTimeoutSecs int

	// Security
	JWTSecret       string
	TokenTTLMinutes int
	OperatorName    string
	OperatorToken   string
}

func Load() *Config {
	// Load .env file if it exists
	godotenv.Load()

	hostname, _ := os.Hostname()

	return &Config{
		// Environment
		Environment: getEnv("APP_ENV", "development"),
		InstanceID:  getEnv("INSTANCE_ID", hostname),

		// Database (empty disables draw history and operator accounts)
		DatabaseURL:    getEnv("DATABASE_URL", ""),
		MigrateOnStart: getEnvBool("MIGRATE_ON_START", false),

		// Redis (empty disables event fan-out)
		RedisURL: getEnv("REDIS_URL", ""),

		// Server
		Port:        getEnv("APP_PORT", "8080"),
		FrontendURL: getEnv("FRONTEND_URL", "http://localhost:5173"),

		// Drawing
		Mode:            getEnv("TOMBOLA_MODE", "registry"),
		SpinDurationMs:  getEnvInt("SPIN_DURATION_MS", 3000),
		WinnerWaitMs:    getEnvInt("WINNER_WAIT_MS", 1000),
		FrameIntervalMs: getEnvInt("FRAME_INTERVAL_MS", 16),

		// Ticket registry
		RegistryBaseURL:           getEnv("REGISTRY_BASE_URL", "https://www.aspid50.com/api"),
		RegistryFetchTimeoutSecs:  getEnvInt("REGISTRY_FETCH_TIMEOUT_SECONDS", 10),
		RegistrySelectTimeoutSecs: getEnvInt("REGISTRY_SELECT_TIMEOUT_SECONDS", 10),

		// Security
		JWTSecret:       getEnv("JWT_SECRET", "change-me-in-production"),
		TokenTTLMinutes: getEnvInt("TOKEN_TTL_MINUTES", 12*60),

		// Static operator used when no database is configured
		OperatorName:  getEnv("OPERATOR_NAME", ""),
		OperatorToken: getEnv("OPERATOR_TOKEN", ""),
	}
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return defaultValue
}

func getEnvBool(key string, defaultValue bool) bool {
	switch strings.ToLower(os.Getenv(key)) {
	case "true", "1", "yes":
		return true
	case "false", "0", "no":
		return false
	}
	return defaultValue
}
