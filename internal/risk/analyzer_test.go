package risk

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	auditdomain "sessionguard/internal/audit/domain"
	"sessionguard/internal/risk/domain"
)

// fakeSignals implements EventCounter, SessionStats and LimitSource for tests.
type fakeSignals struct {
	mu          sync.Mutex
	failed      int
	suspicious  int
	active      int
	limit       int
	distinctIPs int
	knownIPs    map[string]bool
	failedErr   error
	activeErr   error
	calls       []string
}

func (f *fakeSignals) record(name string) {
	f.mu.Lock()
	f.calls = append(f.calls, name)
	f.mu.Unlock()
}

func (f *fakeSignals) CountSince(ctx context.Context, userID string, types []auditdomain.EventType, since time.Time) (int, error) {
	if len(types) == 1 && types[0] == auditdomain.EventLoginFailed {
		f.record("failed")
		return f.failed, f.failedErr
	}
	f.record("suspicious")
	return f.suspicious, nil
}

func (f *fakeSignals) CountActiveByUser(ctx context.Context, userID string, now time.Time) (int, error) {
	f.record("active")
	return f.active, f.activeErr
}

func (f *fakeSignals) CountDistinctIPsSince(ctx context.Context, userID string, since time.Time) (int, error) {
	f.record("ips")
	return f.distinctIPs, nil
}

func (f *fakeSignals) HasSessionFromIP(ctx context.Context, userID, ip string) (bool, error) {
	f.record("known-ip")
	return f.knownIPs[ip], nil
}

func (f *fakeSignals) MaxConcurrentSessions(ctx context.Context, userID string) (int, error) {
	f.record("limit")
	return f.limit, nil
}

func newTestAnalyzer(f *fakeSignals, policy BlockPolicy) *Analyzer {
	return NewAnalyzer(f, f, f, policy, Config{})
}

func TestAnalyze_ThreeFailedLogins_ScoredNotBlocked(t *testing.T) {
	f := &fakeSignals{failed: 3, limit: 5}
	a, err := newTestAnalyzer(f, nil).Analyze(context.Background(), "u1", "10.0.0.1", "ua")
	if err != nil {
		t.Fatalf("Analyze: %v", err)
	}
	if a.RiskScore <= 0 {
		t.Errorf("RiskScore = %d, want > 0", a.RiskScore)
	}
	if a.IsBlocked {
		t.Errorf("3 failed logins should not block: %+v", a)
	}
	if len(a.Factors) == 0 || a.Factors[0] != "Multiple failed login attempts" {
		t.Errorf("Factors = %v", a.Factors)
	}
}

func TestAnalyze_FiveFailedLogins_HardBlockShortCircuits(t *testing.T) {
	f := &fakeSignals{failed: 5, limit: 5, activeErr: errors.New("must not be read")}
	a, err := newTestAnalyzer(f, nil).Analyze(context.Background(), "u1", "10.0.0.1", "ua")
	if err != nil {
		t.Fatalf("Analyze: %v", err)
	}
	if !a.IsBlocked || a.RiskScore != 100 || a.BlockReason != domain.ReasonTooManyFailedLogins {
		t.Errorf("assessment = %+v", a)
	}
	if len(f.calls) != 1 || f.calls[0] != "failed" {
		t.Errorf("calls = %v, want only the failed-login count", f.calls)
	}
}

func TestAnalyze_HardBlockRegardlessOfOtherSignals(t *testing.T) {
	f := &fakeSignals{failed: 12, limit: 5, knownIPs: map[string]bool{"10.0.0.1": true}}
	a, _ := newTestAnalyzer(f, nil).Analyze(context.Background(), "u1", "10.0.0.1", "ua")
	if !a.IsBlocked || a.BlockReason != domain.ReasonTooManyFailedLogins {
		t.Errorf("assessment = %+v", a)
	}
}

func TestAnalyze_CleanHistory_ZeroRisk(t *testing.T) {
	f := &fakeSignals{limit: 5}
	a, err := newTestAnalyzer(f, nil).Analyze(context.Background(), "u1", "10.0.0.1", "ua")
	if err != nil {
		t.Fatalf("Analyze: %v", err)
	}
	if a.RiskScore != 0 || a.IsBlocked || len(a.Factors) != 0 {
		t.Errorf("assessment = %+v", a)
	}
}

func TestAnalyze_SecondaryBlockAtThreshold(t *testing.T) {
	f := &fakeSignals{failed: 4, suspicious: 2, active: 5, limit: 5, distinctIPs: 4}
	a, err := newTestAnalyzer(f, nil).Analyze(context.Background(), "u1", "10.9.9.9", "ua")
	if err != nil {
		t.Fatalf("Analyze: %v", err)
	}
	if a.RiskScore < DefaultBlockScore {
		t.Fatalf("RiskScore = %d, want >= %d", a.RiskScore, DefaultBlockScore)
	}
	if !a.IsBlocked || a.BlockReason != scoreReason(a.RiskScore) {
		t.Errorf("assessment = %+v", a)
	}
}

func TestAnalyze_FailsClosedOnSignalError(t *testing.T) {
	tests := []struct {
		name string
		f    *fakeSignals
	}{
		{"failed logins", &fakeSignals{failedErr: errors.New("db down")}},
		{"active sessions", &fakeSignals{limit: 5, activeErr: errors.New("db down")}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			a, err := newTestAnalyzer(tt.f, nil).Analyze(context.Background(), "u1", "10.0.0.1", "ua")
			if !errors.Is(err, ErrSignalUnavailable) {
				t.Fatalf("err = %v, want ErrSignalUnavailable", err)
			}
			if !a.IsBlocked || a.RiskScore != 100 || a.BlockReason != domain.ReasonSignalsUnavailable {
				t.Errorf("assessment = %+v, want fail-closed block", a)
			}
		})
	}
}

type errPolicy struct{}

func (errPolicy) ShouldBlock(context.Context, Decision) (bool, error) {
	return false, errors.New("policy broken")
}

func TestAnalyze_PolicyErrorFailsClosed(t *testing.T) {
	a, err := newTestAnalyzer(&fakeSignals{limit: 5}, errPolicy{}).Analyze(context.Background(), "u1", "1.1.1.1", "ua")
	if !errors.Is(err, ErrSignalUnavailable) || !a.IsBlocked {
		t.Errorf("Analyze = %+v, %v; want blocked with ErrSignalUnavailable", a, err)
	}
}

func TestAnalyze_WithHeuristics(t *testing.T) {
	always := func(Signals) (int, string) { return 95, "Custom signal" }
	a, err := newTestAnalyzer(&fakeSignals{limit: 5}, nil).WithHeuristics(always).
		Analyze(context.Background(), "u1", "1.1.1.1", "ua")
	if err != nil {
		t.Fatalf("Analyze: %v", err)
	}
	if !a.IsBlocked || a.RiskScore != 95 || a.Factors[0] != "Custom signal" {
		t.Errorf("assessment = %+v", a)
	}
}
