package config

import (
	"errors"
	"os"
	"strings"

	"github.com/joho/godotenv"
)

type Config struct {
	Port           string
	AdminPrincipal string
	JWTSecret      string
	DatabaseURL    string
	LogLevel       string
	AllowedOrigins []string
}

// Load reads the configuration from the environment, honouring a .env file when present.
func Load(envFiles ...string) (*Config, error) {
	// a missing .env is fine, the OS environment is used instead
	_ = godotenv.Load(envFiles...)

	cfg := &Config{
		Port:           getEnvOrDefault("PORT", "8080"),
		AdminPrincipal: strings.TrimSpace(os.Getenv("ADMIN_PRINCIPAL")),
		JWTSecret:      os.Getenv("JWT_SECRET"),
		DatabaseURL:    strings.TrimSpace(os.Getenv("DATABASE_URL")),
		LogLevel:       getEnvOrDefault("LOG_LEVEL", "info"),
		AllowedOrigins: splitList(getEnvOrDefault("ALLOWED_ORIGINS", "*")),
	}

	if cfg.AdminPrincipal == "" {
		return nil, errors.New("ADMIN_PRINCIPAL environment variable not set")
	}
	if cfg.JWTSecret == "" {
		return nil, errors.New("JWT_SECRET environment variable not set")
	}
	return cfg, nil
}

func getEnvOrDefault(key, defaultValue string) string {
	if value := strings.TrimSpace(os.Getenv(key)); value != "" {
		return value
	}
	return defaultValue
}

func splitList(value string) []string {
	var out []string
	for _, part := range strings.Split(value, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
