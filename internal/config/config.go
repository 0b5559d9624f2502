package config

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/crucial707/asset-custody/internal/db"
	"github.com/crucial707/asset-custody/internal/middleware"
	"github.com/joho/godotenv"
)

// DefaultJWTSecret is the development secret. Validate rejects it in prod.
const DefaultJWTSecret = "supersecretkey"

type Config struct {
	Port string

	DBHost string
	DBPort string
	DBName string
	DBUser string
	DBPass string

	// DBMaxOpenConns is the maximum number of open connections to the database (default 25).
	DBMaxOpenConns int
	// DBMaxIdleConns is the maximum number of idle connections (default 5).
	DBMaxIdleConns int

	// AutoMigrate applies the embedded migrations on startup (default true).
	AutoMigrate bool

	JWTSecret string

	// Env is "dev" (default) or "prod". When "prod", JWT_SECRET must be set and not the default.
	Env string

	// JWTExpireHours is the token lifetime in hours (default 12). Set via JWT_EXPIRE_HOURS.
	JWTExpireHours int

	// TLSCertFile and TLSKeyFile enable HTTPS when both are set.
	TLSCertFile string
	TLSKeyFile  string

	// LogFormat is "text" (default) or "json"; LogLevel is debug, info, warn or error.
	LogFormat string
	LogLevel  string

	// CORSAllowedOrigins is a list of origins allowed for CORS.
	// Set via CORS_ALLOWED_ORIGINS (comma-separated). When empty, no CORS headers are sent.
	CORSAllowedOrigins []string

	// ActaDir is where generated delivery actas are written.
	ActaDir string

	// IntegrityCron is the cron spec of the ledger integrity check. Empty disables it.
	IntegrityCron string

	LoginRatePerMin int
	LoginRateBurst  int

	// TrustedProxies lists proxy IPs or CIDRs whose forwarding headers name the
	// client for rate limiting. Set via TRUSTED_PROXIES (comma-separated).
	TrustedProxies []string

	// AdminEmail and AdminPassword create the first admin when the users table is empty.
	AdminEmail    string
	AdminPassword string
}

// Load reads the configuration from the environment, after loading a .env
// file from the working directory if one exists.
func Load() Config {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		slog.Warn("could not read .env file", "error", err)
	}

	return Config{
		Port: getEnv("PORT", "8080"),

		DBHost: getEnv("DB_HOST", "localhost"),
		DBPort: getEnv("DB_PORT", "5432"),
		DBName: getEnv("DB_NAME", "custody"),
		DBUser: getEnv("DB_USER", "custody"),
		DBPass: getEnv("DB_PASS", "custody"),

		DBMaxOpenConns: getEnvInt("DB_MAX_OPEN_CONNS", 25),
		DBMaxIdleConns: getEnvInt("DB_MAX_IDLE_CONNS", 5),
		AutoMigrate:    getEnvBool("AUTO_MIGRATE", true),

		JWTSecret:      getEnv("JWT_SECRET", DefaultJWTSecret),
		Env:            getEnv("ENV", "dev"),
		JWTExpireHours: getEnvInt("JWT_EXPIRE_HOURS", 12),

		TLSCertFile: getEnv("TLS_CERT_FILE", ""),
		TLSKeyFile:  getEnv("TLS_KEY_FILE", ""),

		LogFormat: getEnv("LOG_FORMAT", "text"),
		LogLevel:  getEnv("LOG_LEVEL", "info"),

		CORSAllowedOrigins: parseCORSOrigins(getEnv("CORS_ALLOWED_ORIGINS", "")),

		ActaDir:       getEnv("ACTA_DIR", "storage/actas"),
		IntegrityCron: getEnv("INTEGRITY_CRON", "@every 1h"),

		LoginRatePerMin: getEnvInt("LOGIN_RATE_PER_MIN", 10),
		LoginRateBurst:  getEnvInt("LOGIN_RATE_BURST", 5),
		TrustedProxies:  parseCORSOrigins(getEnv("TRUSTED_PROXIES", "")),

		AdminEmail:    getEnv("ADMIN_EMAIL", ""),
		AdminPassword: getEnv("ADMIN_PASSWORD", ""),
	}
}

// Validate reports settings the server must not start with.
func (c Config) Validate() error {
	if c.Env == "prod" && (c.JWTSecret == "" || c.JWTSecret == DefaultJWTSecret) {
		return errors.New("JWT_SECRET must be set to a non-default value when ENV=prod")
	}
	if (c.TLSCertFile == "") != (c.TLSKeyFile == "") {
		return errors.New("TLS_CERT_FILE and TLS_KEY_FILE must be set together")
	}
	if c.LogFormat != "text" && c.LogFormat != "json" {
		return fmt.Errorf("LOG_FORMAT must be text or json, got %q", c.LogFormat)
	}
	if _, err := middleware.ParseProxies(c.TrustedProxies); err != nil {
		return fmt.Errorf("TRUSTED_PROXIES: %w", err)
	}
	if c.AdminEmail != "" && len(c.AdminPassword) < 8 {
		return errors.New("ADMIN_PASSWORD must have at least 8 characters")
	}
	return nil
}

// DB returns the connection options for the database package.
func (c Config) DB() db.Options {
	return db.Options{
		Host:         c.DBHost,
		Port:         c.DBPort,
		Name:         c.DBName,
		User:         c.DBUser,
		Password:     c.DBPass,
		MaxOpenConns: c.DBMaxOpenConns,
		MaxIdleConns: c.DBMaxIdleConns,
	}
}

// TokenTTL is the lifetime of issued tokens.
func (c Config) TokenTTL() time.Duration {
	return time.Duration(c.JWTExpireHours) * time.Hour
}

// SlogLevel maps LogLevel to a slog level; unknown values mean info.
func (c Config) SlogLevel() slog.Level {
	switch strings.ToLower(c.LogLevel) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	}
	return slog.LevelInfo
}

// parseCORSOrigins splits a comma-separated list and trims spaces. Empty strings are omitted.
func parseCORSOrigins(s string) []string {
	if s == "" {
		return nil
	}
	parts := strings.Split(s, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if o := strings.TrimSpace(p); o != "" {
			out = append(out, o)
		}
	}
	return out
}

func getEnvInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			return n
		}
	}
	return fallback
}

func getEnvBool(key string, fallback bool) bool {
	if v := os.Getenv(key); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			return b
		}
	}
	return fallback
}

func getEnv(key, fallback string) string {
	if v, ok := os.LookupEnv(key); ok {
		return v
	}
	return fallback
}
