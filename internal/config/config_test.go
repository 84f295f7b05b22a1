package config

import (
	"strings"
	"testing"
	"time"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load()
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.SessionIdleTimeout != 15*time.Minute {
		t.Fatalf("idle timeout = %s, want 15m", cfg.SessionIdleTimeout)
	}
	if cfg.SessionAbsoluteTimeout != 8*time.Hour {
		t.Fatalf("absolute timeout = %s, want 8h", cfg.SessionAbsoluteTimeout)
	}
	if cfg.SessionRegenInterval != 5*time.Minute {
		t.Fatalf("regen interval = %s, want 5m", cfg.SessionRegenInterval)
	}
	if cfg.SessionCookieName != "ERASESSID" || cfg.RememberCookieName != "era_remember" {
		t.Fatalf("unexpected cookie names %q / %q", cfg.SessionCookieName, cfg.RememberCookieName)
	}
	if cfg.RememberSecret == "" {
		t.Fatalf("expected dev fallback remember secret")
	}
}

func TestLoadDurationFormats(t *testing.T) {
	t.Setenv("SESSION_IDLE_TIMEOUT", "900") // bare seconds, legacy form
	t.Setenv("SESSION_REGEN_INTERVAL", "5m")
	cfg, err := Load()
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.SessionIdleTimeout != 900*time.Second {
		t.Fatalf("idle timeout = %s, want 900s", cfg.SessionIdleTimeout)
	}
	if cfg.SessionRegenInterval != 5*time.Minute {
		t.Fatalf("regen interval = %s, want 5m", cfg.SessionRegenInterval)
	}
}

func TestLoadRejectsBadDriver(t *testing.T) {
	t.Setenv("DB_DRIVER", "oracle")
	if _, err := Load(); err == nil || !strings.Contains(err.Error(), "validate config:") {
		t.Fatalf("expected validation error, got %v", err)
	}
}

func TestLoadRejectsInvertedTimeouts(t *testing.T) {
	t.Setenv("SESSION_IDLE_TIMEOUT", "9h")
	if _, err := Load(); err == nil {
		t.Fatalf("expected idle > absolute to fail validation")
	}
}

func TestProductionRequiresSecrets(t *testing.T) {
	t.Setenv("APP_ENV", "production")
	t.Setenv("COOKIE_SECURE", "true")
	if _, err := Load(); err == nil {
		t.Fatalf("expected missing secrets to fail in production")
	}
	t.Setenv("REMEMBER_SECRET", strings.Repeat("r", 32))
	t.Setenv("BOT_TOKEN_SECRET", strings.Repeat("b", 32))
	if _, err := Load(); err != nil {
		t.Fatalf("load: %v", err)
	}
}

func TestClassifyConfigLoadError(t *testing.T) {
	if got := classifyConfigLoadError(nil); got != "none" {
		t.Fatalf("nil error class = %q", got)
	}
	_, err := Load()
	if err != nil {
		t.Fatalf("unexpected: %v", err)
	}
	t.Setenv("DB_DRIVER", "oracle")
	_, err = Load()
	if got := classifyConfigLoadError(err); got != "validation" {
		t.Fatalf("error class = %q, want validation", got)
	}
}
