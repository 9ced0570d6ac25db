package risk

import (
	"context"
	"os"
	"path/filepath"
	"testing"
)

func TestOPAPolicy_DefaultThreshold(t *testing.T) {
	ctx := context.Background()
	p, err := NewOPAPolicy(ctx, "", 90)
	if err != nil {
		t.Fatalf("NewOPAPolicy: %v", err)
	}
	if err := p.HealthCheck(ctx); err != nil {
		t.Fatalf("HealthCheck: %v", err)
	}
	for _, tc := range []struct {
		score int
		want  bool
	}{{0, false}, {89, false}, {90, true}, {100, true}} {
		got, err := p.ShouldBlock(ctx, Decision{RiskScore: tc.score})
		if err != nil {
			t.Fatalf("ShouldBlock(%d): %v", tc.score, err)
		}
		if got != tc.want {
			t.Errorf("ShouldBlock(%d) = %v, want %v", tc.score, got, tc.want)
		}
	}
}

func TestOPAPolicy_CustomPolicyUsesSignals(t *testing.T) {
	src := `package sessionguard.risk

default block := false

block if {
	input.signals.distinct_ips >= 3
	not input.signals.ip_seen_before
}
`
	ctx := context.Background()
	p, err := NewOPAPolicy(ctx, src, 90)
	if err != nil {
		t.Fatalf("NewOPAPolicy: %v", err)
	}
	got, err := p.ShouldBlock(ctx, Decision{RiskScore: 20, Signals: Signals{DistinctIPs: 3}})
	if err != nil || !got {
		t.Errorf("ShouldBlock = %v, %v; want true", got, err)
	}
	got, _ = p.ShouldBlock(ctx, Decision{RiskScore: 20, Signals: Signals{DistinctIPs: 3, IPSeenBefore: true}})
	if got {
		t.Error("known IP should not be blocked by the custom policy")
	}
}

func TestOPAPolicy_InvalidPolicy(t *testing.T) {
	if _, err := NewOPAPolicy(context.Background(), "package broken\nblock if {", 90); err == nil {
		t.Fatal("expected compile error")
	}
}

func TestOPAPolicy_NonBooleanResultIsError(t *testing.T) {
	src := "package sessionguard.risk\n\nblock := \"yes\"\n"
	ctx := context.Background()
	p, err := NewOPAPolicy(ctx, src, 90)
	if err != nil {
		t.Fatalf("NewOPAPolicy: %v", err)
	}
	if _, err := p.ShouldBlock(ctx, Decision{}); err == nil {
		t.Error("expected error for non-boolean block")
	}
}

func TestLoadOPAPolicy(t *testing.T) {
	ctx := context.Background()
	if _, err := LoadOPAPolicy(ctx, "", 90); err != nil {
		t.Fatalf("LoadOPAPolicy(default): %v", err)
	}
	path := filepath.Join(t.TempDir(), "risk.rego")
	if err := os.WriteFile(path, []byte(DefaultRegoPolicy), 0o600); err != nil {
		t.Fatal(err)
	}
	if _, err := LoadOPAPolicy(ctx, path, 50); err != nil {
		t.Fatalf("LoadOPAPolicy(file): %v", err)
	}
	if _, err := LoadOPAPolicy(ctx, filepath.Join(t.TempDir(), "missing.rego"), 50); err == nil {
		t.Error("expected error for missing file")
	}
}

func TestThresholdPolicy(t *testing.T) {
	p := ThresholdPolicy{Score: 90}
	if block, _ := p.ShouldBlock(context.Background(), Decision{RiskScore: 89}); block {
		t.Error("89 should not block")
	}
	if block, _ := p.ShouldBlock(context.Background(), Decision{RiskScore: 90}); !block {
		t.Error("90 should block")
	}
}
