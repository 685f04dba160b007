// Package config reads the process configuration once at startup.
//
// Precedence, lowest to highest: built-in defaults, a .env file in the
// working directory (optional), the real process environment. godotenv never
// overwrites a variable that is already set, which gives the environment the
// last word.
package config

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"

	"github.com/sakif/marketplace-api/internal/auth"
)

// Defaults.
const (
	DefaultPort        = 3000
	DefaultDatabaseURL = "data/marketplace.db"
)

type Config struct {
	Port int
	// DatabaseURL is a postgres:// URL or a SQLite file path.
	DatabaseURL string
	JWTSecret   string
	// CORSOrigins are the allowed browser origins. "*" allows any.
	CORSOrigins []string
	// EnforceOwnership restricts update/delete to the owning account.
	EnforceOwnership bool
	LogLevel         slog.Level
}

// Load builds a Config from the environment. envFiles default to ".env";
// missing files are skipped. Malformed values are errors. Missing required
// values are left for Validate.
func Load(envFiles ...string) (*Config, error) {
	if len(envFiles) == 0 {
		envFiles = []string{".env"}
	}
	for _, f := range envFiles {
		_ = godotenv.Load(f) // ok if missing
	}

	cfg := &Config{
		DatabaseURL: getEnv("DATABASE_URL", DefaultDatabaseURL),
		JWTSecret:   os.Getenv("JWT_SECRET"),
		CORSOrigins: splitList(getEnv("CORS_ORIGINS", "*")),
	}

	var errs []error

	port, err := strconv.Atoi(getEnv("PORT", strconv.Itoa(DefaultPort)))
	if err != nil {
		errs = append(errs, fmt.Errorf("PORT must be an integer: %w", err))
	}
	cfg.Port = port

	if raw := os.Getenv("ENFORCE_OWNERSHIP"); raw != "" {
		enforce, err := strconv.ParseBool(raw)
		if err != nil {
			errs = append(errs, fmt.Errorf("ENFORCE_OWNERSHIP must be a boolean: %w", err))
		}
		cfg.EnforceOwnership = enforce
	}

	if raw := os.Getenv("LOG_LEVEL"); raw != "" {
		if err := cfg.LogLevel.UnmarshalText([]byte(raw)); err != nil {
			errs = append(errs, fmt.Errorf("LOG_LEVEL must be debug, info, warn or error: %w", err))
		}
	}

	if err := errors.Join(errs...); err != nil {
		return nil, fmt.Errorf("config: %w", err)
	}
	return cfg, nil
}

// Validate reports every problem that would stop the server from starting.
func (c *Config) Validate() error {
	var errs []error

	if c.JWTSecret == "" {
		errs = append(errs, errors.New("JWT_SECRET is required"))
	} else if len(c.JWTSecret) < auth.MinSecretLength {
		errs = append(errs, fmt.Errorf("JWT_SECRET must be at least %d characters", auth.MinSecretLength))
	}
	if c.Port < 1 || c.Port > 65535 {
		errs = append(errs, fmt.Errorf("PORT %d is out of range", c.Port))
	}
	if strings.TrimSpace(c.DatabaseURL) == "" {
		errs = append(errs, errors.New("DATABASE_URL must not be empty"))
	}

	if err := errors.Join(errs...); err != nil {
		return fmt.Errorf("config: %w", err)
	}
	return nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// splitList splits a comma list, trimming blanks and trailing slashes.
func splitList(raw string) []string {
	var out []string
	for _, p := range strings.Split(raw, ",") {
		if v := strings.TrimRight(strings.TrimSpace(p), "/"); v != "" {
			out = append(out, v)
		}
	}
	return out
}
