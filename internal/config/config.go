package config

import (
	"context"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// Config carries every tunable of the service. The session/remember timing
// values default to the documented contract (15m idle, 8h absolute, 5m
// rotation) and stay configurable so tests can run at simulated clocks.
type Config struct {
	Env      string
	HTTPAddr string

	DBDriver string // "sqlite" or "postgres"
	DBDSN    string

	RedisAddr     string
	RedisPassword string
	RedisDB       int

	SessionCookieName      string
	SessionIdleTimeout     time.Duration
	SessionAbsoluteTimeout time.Duration
	SessionRegenInterval   time.Duration

	RememberCookieName string
	RememberLifetime   time.Duration
	RememberSecret     string

	BotTokenSecret string
	BotTokenTTL    time.Duration
	JWTIssuer      string
	JWTAudience    string

	CORSOrigins      []string
	APIRateLimitRPM  int
	AuthRateLimitRPM int
	BodyLimitBytes   int64

	LoginGuardMaxFailures int
	LoginGuardWindow      time.Duration

	CookieSecure bool

	OTELServiceName           string
	OTELEnvironment           string
	OTELExporterOTLPEndpoint  string
	OTELExporterOTLPInsecure  bool
	OTELMetricsEnabled        bool
	OTELTracesEnabled         bool
	OTELLogsEnabled           bool
	OTELMetricsExportInterval int // seconds
	EnableOTelHTTP            bool
}

func Load() (*Config, error) {
	cfg := &Config{
		Env:      envStr("APP_ENV", "development"),
		HTTPAddr: envStr("HTTP_ADDR", ":8080"),

		DBDriver: envStr("DB_DRIVER", "sqlite"),
		DBDSN:    envStr("DB_DSN", "file:eraverse.db?cache=shared"),

		RedisAddr:     envStr("REDIS_ADDR", "localhost:6379"),
		RedisPassword: envStr("REDIS_PASSWORD", ""),
		RedisDB:       envInt("REDIS_DB", 0),

		SessionCookieName:      envStr("SESSION_COOKIE_NAME", "ERASESSID"),
		SessionIdleTimeout:     envDuration("SESSION_IDLE_TIMEOUT", 15*time.Minute),
		SessionAbsoluteTimeout: envDuration("SESSION_ABSOLUTE_TIMEOUT", 8*time.Hour),
		SessionRegenInterval:   envDuration("SESSION_REGEN_INTERVAL", 5*time.Minute),

		RememberCookieName: envStr("REMEMBER_COOKIE_NAME", "era_remember"),
		RememberLifetime:   envDuration("REMEMBER_LIFETIME", 30*24*time.Hour),
		RememberSecret:     envStr("REMEMBER_SECRET", ""),

		BotTokenSecret: envStr("BOT_TOKEN_SECRET", ""),
		BotTokenTTL:    envDuration("BOT_TOKEN_TTL", 15*time.Minute),
		JWTIssuer:      envStr("JWT_ISSUER", "sales-admin-service"),
		JWTAudience:    envStr("JWT_AUDIENCE", "eraverse-bot"),

		CORSOrigins:      envCSV("CORS_ORIGINS", []string{"http://localhost:5173"}),
		APIRateLimitRPM:  envInt("API_RATE_LIMIT_RPM", 600),
		AuthRateLimitRPM: envInt("AUTH_RATE_LIMIT_RPM", 30),
		BodyLimitBytes:   int64(envInt("BODY_LIMIT_BYTES", 1<<20)),

		LoginGuardMaxFailures: envInt("LOGIN_GUARD_MAX_FAILURES", 10),
		LoginGuardWindow:      envDuration("LOGIN_GUARD_WINDOW", 15*time.Minute),

		CookieSecure: envBool("COOKIE_SECURE", false),

		OTELServiceName:           envStr("OTEL_SERVICE_NAME", "sales-admin-service"),
		OTELEnvironment:           envStr("OTEL_ENVIRONMENT", "development"),
		OTELExporterOTLPEndpoint:  envStr("OTEL_EXPORTER_OTLP_ENDPOINT", "localhost:4317"),
		OTELExporterOTLPInsecure:  envBool("OTEL_EXPORTER_OTLP_INSECURE", true),
		OTELMetricsEnabled:        envBool("OTEL_METRICS_ENABLED", false),
		OTELTracesEnabled:         envBool("OTEL_TRACES_ENABLED", false),
		OTELLogsEnabled:           envBool("OTEL_LOGS_ENABLED", false),
		OTELMetricsExportInterval: envInt("OTEL_METRICS_EXPORT_INTERVAL", 30),
		EnableOTelHTTP:            envBool("OTEL_HTTP_ENABLED", false),
	}

	if err := cfg.validate(); err != nil {
		recordConfigValidationEvent(context.Background(), cfg.Env, "invalid", classifyConfigLoadError(err))
		return nil, err
	}
	recordConfigValidationEvent(context.Background(), cfg.Env, "valid", "none")
	return cfg, nil
}

func (c *Config) validate() error {
	if c.DBDriver != "sqlite" && c.DBDriver != "postgres" {
		return fmt.Errorf("validate config: unsupported DB_DRIVER %q", c.DBDriver)
	}
	if c.SessionIdleTimeout <= 0 || c.SessionAbsoluteTimeout <= 0 || c.SessionRegenInterval <= 0 {
		return fmt.Errorf("validate config: session timeouts must be positive")
	}
	if c.SessionIdleTimeout > c.SessionAbsoluteTimeout {
		return fmt.Errorf("validate config: idle timeout exceeds absolute timeout")
	}
	if c.RememberLifetime <= 0 {
		return fmt.Errorf("validate config: REMEMBER_LIFETIME must be positive")
	}
	if c.Production() {
		if len(c.RememberSecret) < 32 {
			return fmt.Errorf("validate config: REMEMBER_SECRET must be at least 32 bytes in production")
		}
		if len(c.BotTokenSecret) < 32 {
			return fmt.Errorf("validate config: BOT_TOKEN_SECRET must be at least 32 bytes in production")
		}
		if !c.CookieSecure {
			return fmt.Errorf("validate config: COOKIE_SECURE must be enabled in production")
		}
	}
	// Dev fallbacks keep local runs working without a secret manager.
	if c.RememberSecret == "" {
		c.RememberSecret = "dev-only-remember-secret-0123456789ab"
	}
	if c.BotTokenSecret == "" {
		c.BotTokenSecret = "dev-only-bot-token-secret-0123456789"
	}
	return nil
}

func (c *Config) Production() bool {
	return strings.EqualFold(c.Env, "production")
}

func envStr(key, fallback string) string {
	if v, ok := os.LookupEnv(key); ok && strings.TrimSpace(v) != "" {
		return strings.TrimSpace(v)
	}
	return fallback
}

func envInt(key string, fallback int) int {
	if v, ok := os.LookupEnv(key); ok {
		if n, err := strconv.Atoi(strings.TrimSpace(v)); err == nil {
			return n
		}
	}
	return fallback
}

func envBool(key string, fallback bool) bool {
	if v, ok := os.LookupEnv(key); ok {
		if b, err := strconv.ParseBool(strings.TrimSpace(v)); err == nil {
			return b
		}
	}
	return fallback
}

// envDuration accepts Go duration strings and, for compatibility with the
// legacy config, bare integers meaning seconds.
func envDuration(key string, fallback time.Duration) time.Duration {
	v, ok := os.LookupEnv(key)
	if !ok {
		return fallback
	}
	v = strings.TrimSpace(v)
	if d, err := time.ParseDuration(v); err == nil {
		return d
	}
	if n, err := strconv.Atoi(v); err == nil {
		return time.Duration(n) * time.Second
	}
	return fallback
}

func envCSV(key string, fallback []string) []string {
	v, ok := os.LookupEnv(key)
	if !ok || strings.TrimSpace(v) == "" {
		return fallback
	}
	parts := strings.Split(v, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
