package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// Authentication modes. Fixed mode pins every request to one identity and
// exists for demos and local frontend work only.
const (
	AuthModeReal  = "real"
	AuthModeFixed = "fixed"
)

// Config holds runtime configuration sourced from env vars.
type Config struct {
	Port        string
	DatabaseURL string
	LogMode     string

	// Upstream bank API.
	BankBaseURL   string
	BankAPIKey    string
	BankAPISecret string
	MasterAccount string

	// Timezone transaction bucketing and display formatting use.
	Timezone string

	JWTSecret string
	JWTIssuer string
	JWTTTL    time.Duration

	AuthMode           string
	FixedUserID        int64
	FixedDocument      string
	FixedAccountNumber string

	CORSOrigins []string
}

// Load reads configuration from the environment and performs minimal validation.
func Load() (Config, error) {
	cfg := Config{
		Port:          fallback(os.Getenv("PORT"), "8080"),
		DatabaseURL:   strings.TrimSpace(os.Getenv("DATABASE_URL")),
		LogMode:       fallback(os.Getenv("LOG_MODE"), "production"),
		BankBaseURL:   strings.TrimSpace(os.Getenv("B8_BASE_URL")),
		BankAPIKey:    strings.TrimSpace(os.Getenv("B8_API_KEY")),
		BankAPISecret: strings.TrimSpace(os.Getenv("B8_API_SECRET")),
		MasterAccount: strings.TrimSpace(os.Getenv("MASTER_ACCOUNT_NUMBER")),
		Timezone:      fallback(os.Getenv("TIMEZONE"), "America/Sao_Paulo"),
		JWTSecret:     strings.TrimSpace(os.Getenv("JWT_SECRET")),
		JWTIssuer:     fallback(os.Getenv("JWT_ISSUER"), "pixbank-backend"),
		AuthMode:      fallback(os.Getenv("AUTH_MODE"), AuthModeReal),
		CORSOrigins:   parseCSV(fallback(os.Getenv("CORS_ALLOWED_ORIGINS"), "*")),
	}

	minutes := fallback(os.Getenv("JWT_TTL_MINUTES"), "60")
	if ttlMinutes, err := strconv.Atoi(minutes); err == nil && ttlMinutes > 0 {
		cfg.JWTTTL = time.Duration(ttlMinutes) * time.Minute
	} else {
		cfg.JWTTTL = 60 * time.Minute
	}

	if cfg.DatabaseURL == "" {
		return Config{}, errors.New("DATABASE_URL is required")
	}
	if cfg.BankBaseURL == "" {
		return Config{}, errors.New("B8_BASE_URL is required")
	}
	if cfg.BankAPIKey == "" || cfg.BankAPISecret == "" {
		return Config{}, errors.New("B8_API_KEY and B8_API_SECRET are required")
	}
	if cfg.MasterAccount == "" {
		return Config{}, errors.New("MASTER_ACCOUNT_NUMBER is required")
	}

	switch cfg.AuthMode {
	case AuthModeReal:
		if cfg.JWTSecret == "" {
			return Config{}, errors.New("JWT_SECRET is required")
		}
	case AuthModeFixed:
		cfg.FixedDocument = strings.TrimSpace(os.Getenv("FIXED_DOCUMENT"))
		cfg.FixedAccountNumber = strings.TrimSpace(os.Getenv("FIXED_ACCOUNT_NUMBER"))
		if cfg.FixedDocument == "" || cfg.FixedAccountNumber == "" {
			return Config{}, errors.New("FIXED_DOCUMENT and FIXED_ACCOUNT_NUMBER are required in fixed auth mode")
		}
		if id, err := strconv.ParseInt(fallback(os.Getenv("FIXED_USER_ID"), "1"), 10, 64); err == nil {
			cfg.FixedUserID = id
		} else {
			cfg.FixedUserID = 1
		}
	default:
		return Config{}, fmt.Errorf("AUTH_MODE must be %q or %q", AuthModeReal, AuthModeFixed)
	}

	return cfg, nil
}

// Location resolves the configured timezone, falling back to UTC when the
// name is unknown to the host's zone database.
func (c Config) Location() *time.Location {
	loc, err := time.LoadLocation(c.Timezone)
	if err != nil {
		return time.UTC
	}
	return loc
}

// HTTPAddress returns the host:port pair for the HTTP server to bind to.
func (c Config) HTTPAddress() string {
	return fmt.Sprintf(":%s", c.Port)
}

func fallback(value, def string) string {
	if strings.TrimSpace(value) == "" {
		return def
	}
	return strings.TrimSpace(value)
}

func parseCSV(input string) []string {
	parts := strings.Split(input, ",")
	var out []string
	for _, part := range parts {
		trimmed := strings.TrimSpace(part)
		if trimmed != "" {
			out = append(out, trimmed)
		}
	}
	if len(out) == 0 {
		return []string{"*"}
	}
	return out
}
