package config

import (
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestLoad_Defaults(t *testing.T) {
	t.Setenv("PORT", "9090")
	t.Setenv("AUTO_MIGRATE", "false")
	t.Setenv("DB_MAX_OPEN_CONNS", "not-a-number")
	t.Setenv("CORS_ALLOWED_ORIGINS", " http://a.test , ,http://b.test")

	cfg := Load()
	assert.Equal(t, "9090", cfg.Port)
	assert.False(t, cfg.AutoMigrate)
	assert.Equal(t, 25, cfg.DBMaxOpenConns)
	assert.Equal(t, []string{"http://a.test", "http://b.test"}, cfg.CORSAllowedOrigins)
	assert.Equal(t, 10, cfg.LoginRatePerMin)
}

func TestLoad_EmptyCronDisablesCheck(t *testing.T) {
	t.Setenv("INTEGRITY_CRON", "")
	assert.Equal(t, "", Load().IntegrityCron)
}

func TestLoad_TrustedProxies(t *testing.T) {
	t.Setenv("TRUSTED_PROXIES", " 10.0.0.1 , ,172.16.0.0/12")
	assert.Equal(t, []string{"10.0.0.1", "172.16.0.0/12"}, Load().TrustedProxies)
}

func TestValidate(t *testing.T) {
	base := Config{Env: "dev", JWTSecret: DefaultJWTSecret, LogFormat: "text"}
	assert.NoError(t, base.Validate())

	prod := base
	prod.Env = "prod"
	assert.Error(t, prod.Validate())
	prod.JWTSecret = "a-real-secret"
	assert.NoError(t, prod.Validate())

	tls := base
	tls.TLSCertFile = "cert.pem"
	assert.Error(t, tls.Validate())

	format := base
	format.LogFormat = "xml"
	assert.Error(t, format.Validate())

	admin := base
	admin.AdminEmail = "admin@example.com"
	admin.AdminPassword = "short"
	assert.Error(t, admin.Validate())

	proxies := base
	proxies.TrustedProxies = []string{"10.0.0.1", "172.16.0.0/12"}
	assert.NoError(t, proxies.Validate())
	proxies.TrustedProxies = []string{"proxy.local"}
	assert.Error(t, proxies.Validate())
}

func TestSlogLevel(t *testing.T) {
	assert.Equal(t, slog.LevelDebug, Config{LogLevel: "DEBUG"}.SlogLevel())
	assert.Equal(t, slog.LevelWarn, Config{LogLevel: "warn"}.SlogLevel())
	assert.Equal(t, slog.LevelInfo, Config{LogLevel: "verbose"}.SlogLevel())
}

func TestDBOptions(t *testing.T) {
	cfg := Config{DBHost: "db", DBPort: "5433", DBName: "custody", DBUser: "u", DBPass: "p", DBMaxOpenConns: 3}
	o := cfg.DB()
	assert.Equal(t, "db", o.Host)
	assert.Equal(t, 3, o.MaxOpenConns)
}
