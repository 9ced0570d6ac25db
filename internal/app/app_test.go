package app

import (
	"context"
	"testing"

	"sessionguard/internal/clientip"
	"sessionguard/internal/config"
)

func memoryConfig() *config.Config {
	return &config.Config{
		OTelServiceName:             "sessionguard-test",
		SessionDefaultTimeout:       3600,
		SessionDefaultMaxConcurrent: 3,
		SessionDefaultRememberMe:    true,
		RiskHardBlockFailedLogins:   5,
		RiskBlockScore:              90,
	}
}

func TestNew_InMemoryRoundTrip(t *testing.T) {
	ctx := context.Background()
	a, err := New(ctx, memoryConfig())
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	defer func() {
		if err := a.Close(ctx); err != nil {
			t.Errorf("Close: %v", err)
		}
	}()
	if a.DB != nil || a.Redis != nil {
		t.Fatal("in-memory config should not open Postgres or Redis")
	}
	if err := a.Policy.HealthCheck(ctx); err != nil {
		t.Fatalf("policy health: %v", err)
	}

	req := clientip.Headers{Values: map[string]string{"User-Agent": "Mozilla/5.0"}, Remote: "192.0.2.1:5000"}
	created, err := a.Manager.CreateUserSession(ctx, "user-1", req, true, "")
	if err != nil {
		t.Fatalf("CreateUserSession: %v", err)
	}
	if created.RememberToken == "" {
		t.Error("remember token should be issued when policy allows it")
	}
	s, err := a.Manager.ValidateSession(ctx, created.SessionToken, req)
	if err != nil || s == nil {
		t.Fatalf("ValidateSession = %v, %v", s, err)
	}
	if s.UserID != "user-1" {
		t.Errorf("UserID = %q, want user-1", s.UserID)
	}
}

func TestClose_Idempotent(t *testing.T) {
	ctx := context.Background()
	a, err := New(ctx, memoryConfig())
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if err := a.Close(ctx); err != nil {
		t.Fatalf("Close: %v", err)
	}
	if err := a.Close(ctx); err != nil {
		t.Errorf("second Close: %v", err)
	}
}

func TestNew_BadPolicyFile(t *testing.T) {
	cfg := memoryConfig()
	cfg.RiskPolicyFile = "/nonexistent/policy.rego"
	if _, err := New(context.Background(), cfg); err == nil {
		t.Error("New should fail when the policy file cannot be loaded")
	}
}
