package config

import (
	"os"
	"reflect"
	"testing"
	"time"
)

func TestLoad_Defaults(t *testing.T) {
	os.Clearenv()

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.HTTPAddr != ":8080" {
		t.Errorf("HTTPAddr = %q, want %q", cfg.HTTPAddr, ":8080")
	}
	if cfg.GRPCAddr != ":9090" {
		t.Errorf("GRPCAddr = %q, want %q", cfg.GRPCAddr, ":9090")
	}
	if cfg.SessionDefaultTimeout != 86400 {
		t.Errorf("SessionDefaultTimeout = %d, want 86400", cfg.SessionDefaultTimeout)
	}
	if cfg.SessionDefaultMaxConcurrent != 5 {
		t.Errorf("SessionDefaultMaxConcurrent = %d, want 5", cfg.SessionDefaultMaxConcurrent)
	}
	if !cfg.SessionDefaultRememberMe {
		t.Error("SessionDefaultRememberMe should default to true")
	}
	if cfg.RememberTokenRotateOnUse {
		t.Error("RememberTokenRotateOnUse should default to false")
	}
	if cfg.RiskHardBlockFailedLogins != 5 || cfg.RiskBlockScore != 90 {
		t.Errorf("risk = %d/%d, want 5/90", cfg.RiskHardBlockFailedLogins, cfg.RiskBlockScore)
	}
	if cfg.SecurityEventsTopic != "sessionguard-security-events" {
		t.Errorf("SecurityEventsTopic = %q", cfg.SecurityEventsTopic)
	}
	if cfg.RememberTokenTTL() != 720*time.Hour {
		t.Errorf("RememberTokenTTL = %v, want 720h", cfg.RememberTokenTTL())
	}
	if cfg.RiskFailedLoginWindow() != 15*time.Minute {
		t.Errorf("RiskFailedLoginWindow = %v, want 15m", cfg.RiskFailedLoginWindow())
	}
	if cfg.RiskActivityWindow() != 24*time.Hour {
		t.Errorf("RiskActivityWindow = %v, want 24h", cfg.RiskActivityWindow())
	}
	if cfg.IsProduction() {
		t.Error("IsProduction should be false by default")
	}
}

func TestLoad_EnvVarOverride(t *testing.T) {
	os.Clearenv()
	t.Setenv("HTTP_ADDR", ":8081")
	t.Setenv("SESSION_DEFAULT_TIMEOUT", "3600")
	t.Setenv("SESSION_DEFAULT_MAX_CONCURRENT", "2")
	t.Setenv("SESSION_DEFAULT_REMEMBER_ME", "false")
	t.Setenv("REMEMBER_TOKEN_ROTATE_ON_USE", "true")
	t.Setenv("REMEMBER_TOKEN_TTL", "48h")
	t.Setenv("APP_ENV", "production")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.HTTPAddr != ":8081" {
		t.Errorf("HTTPAddr = %q, want %q", cfg.HTTPAddr, ":8081")
	}
	if cfg.SessionDefaultTimeout != 3600 || cfg.SessionDefaultMaxConcurrent != 2 {
		t.Errorf("session defaults = %d/%d, want 3600/2", cfg.SessionDefaultTimeout, cfg.SessionDefaultMaxConcurrent)
	}
	if cfg.SessionDefaultRememberMe {
		t.Error("SessionDefaultRememberMe should be false")
	}
	if !cfg.RememberTokenRotateOnUse {
		t.Error("RememberTokenRotateOnUse should be true")
	}
	if cfg.RememberTokenTTL() != 48*time.Hour {
		t.Errorf("RememberTokenTTL = %v, want 48h", cfg.RememberTokenTTL())
	}
	if !cfg.IsProduction() {
		t.Error("IsProduction should be true")
	}
}

func TestLoad_Validation(t *testing.T) {
	tests := []struct {
		name  string
		key   string
		value string
	}{
		{"timeout below minimum", "SESSION_DEFAULT_TIMEOUT", "299"},
		{"timeout above maximum", "SESSION_DEFAULT_TIMEOUT", "86401"},
		{"zero concurrent sessions", "SESSION_DEFAULT_MAX_CONCURRENT", "0"},
		{"too many concurrent sessions", "SESSION_DEFAULT_MAX_CONCURRENT", "11"},
		{"hard block threshold zero", "RISK_HARD_BLOCK_FAILED_LOGINS", "0"},
		{"block score above 100", "RISK_BLOCK_SCORE", "101"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			os.Clearenv()
			t.Setenv(tt.key, tt.value)
			if _, err := Load(); err == nil {
				t.Errorf("Load with %s=%q should fail", tt.key, tt.value)
			}
		})
	}
}

func TestDurationFallbacks(t *testing.T) {
	cfg := &Config{PolicyCacheTTLRaw: "bogus", CleanupIntervalRaw: "-1m", RiskActivityWindowRaw: "1h"}
	if cfg.PolicyCacheTTL() != 5*time.Minute {
		t.Errorf("PolicyCacheTTL = %v, want 5m", cfg.PolicyCacheTTL())
	}
	if cfg.CleanupInterval() != 10*time.Minute {
		t.Errorf("CleanupInterval = %v, want 10m", cfg.CleanupInterval())
	}
	if cfg.RiskActivityWindow() != time.Hour {
		t.Errorf("RiskActivityWindow = %v, want 1h", cfg.RiskActivityWindow())
	}
}

func TestKafkaBrokersList(t *testing.T) {
	tests := []struct {
		in   string
		want []string
	}{
		{"", nil},
		{"localhost:9092", []string{"localhost:9092"}},
		{" a:1 , ,b:2 ", []string{"a:1", "b:2"}},
	}
	for _, tt := range tests {
		got := (&Config{KafkaBrokers: tt.in}).KafkaBrokersList()
		if !reflect.DeepEqual(got, tt.want) {
			t.Errorf("KafkaBrokersList(%q) = %v, want %v", tt.in, got, tt.want)
		}
	}
	var nilCfg *Config
	if nilCfg.KafkaBrokersList() != nil {
		t.Error("nil config should yield nil brokers")
	}
}
