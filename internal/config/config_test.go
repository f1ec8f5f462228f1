package config

import (
	"strings"
	"testing"
	"time"
)

func setBaseEnv(t *testing.T) {
	t.Helper()
	t.Setenv("APP_ENV", "local")
	t.Setenv("APP_PORT", "8080")
	t.Setenv("DB_HOST", "localhost")
	t.Setenv("DB_PORT", "5432")
	t.Setenv("DB_USER", "app")
	t.Setenv("DB_PASSWORD", "secret")
	t.Setenv("DB_NAME", "smarttv")
	t.Setenv("REDIS_HOST", "localhost")
	t.Setenv("REDIS_PORT", "6379")
}

func TestLoad_AppliesJobDefaults(t *testing.T) {
	setBaseEnv(t)

	c, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}

	if c.Jobs.PresenceFreshness != 120*time.Second {
		t.Errorf("PresenceFreshness = %v, want 120s", c.Jobs.PresenceFreshness)
	}
	if c.Jobs.PresenceSweepInterval != 2*time.Minute {
		t.Errorf("PresenceSweepInterval = %v, want 2m", c.Jobs.PresenceSweepInterval)
	}
	if c.Jobs.ReconcileInterval != 3*time.Minute {
		t.Errorf("ReconcileInterval = %v, want 3m", c.Jobs.ReconcileInterval)
	}
	if c.Jobs.RetentionMaxAge != time.Hour {
		t.Errorf("RetentionMaxAge = %v, want 1h", c.Jobs.RetentionMaxAge)
	}
	if c.Twilio.TokenTTL != time.Hour {
		t.Errorf("TokenTTL = %v, want 1h", c.Twilio.TokenTTL)
	}
	if c.DB.SSLMode != "disable" {
		t.Errorf("SSLMode default = %q, want disable", c.DB.SSLMode)
	}
}

func TestLoad_OverridesJobDurations(t *testing.T) {
	setBaseEnv(t)
	t.Setenv("PRESENCE_FRESHNESS_WINDOW", "90s")
	t.Setenv("RECONCILE_INTERVAL", "1m")

	c, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if c.Jobs.PresenceFreshness != 90*time.Second {
		t.Errorf("PresenceFreshness = %v, want 90s", c.Jobs.PresenceFreshness)
	}
	if c.Jobs.ReconcileInterval != time.Minute {
		t.Errorf("ReconcileInterval = %v, want 1m", c.Jobs.ReconcileInterval)
	}
}

func TestLoad_RequiresTwilioOutsideLocal(t *testing.T) {
	setBaseEnv(t)
	t.Setenv("APP_ENV", "production")
	t.Setenv("DB_SSLMODE", "require")

	_, err := Load()
	if err == nil {
		t.Fatal("expected error for missing Twilio credentials")
	}
	if !strings.Contains(err.Error(), "TWILIO_ACCOUNT_SID") {
		t.Errorf("error should mention TWILIO_ACCOUNT_SID, got %v", err)
	}
}

func TestLoad_RejectsBadEnv(t *testing.T) {
	setBaseEnv(t)
	t.Setenv("APP_ENV", "weird")

	if _, err := Load(); err == nil {
		t.Fatal("expected error for invalid APP_ENV")
	}
}

func TestHTTPAddrAndDSN(t *testing.T) {
	c := Config{}
	c.App.Port = 9000
	c.DB = DBConfig{Host: "h", Port: 5432, User: "u", Password: "p", Name: "d", SSLMode: "disable"}
	c.Redis = RedisConfig{Host: "r", Port: 6379}

	if got := c.HTTPAddr(); got != ":9000" {
		t.Errorf("HTTPAddr = %q", got)
	}
	if got := c.RedisAddr(); got != "r:6379" {
		t.Errorf("RedisAddr = %q", got)
	}
	if got := c.PostgresDSN(); !strings.Contains(got, "dbname=d") {
		t.Errorf("PostgresDSN = %q", got)
	}
}
