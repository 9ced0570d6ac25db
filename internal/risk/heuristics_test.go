package risk

import (
	"reflect"
	"testing"
)

func TestHeuristics(t *testing.T) {
	tests := []struct {
		name       string
		h          Heuristic
		s          Signals
		wantScore  int
		wantFactor string
	}{
		{"no failed logins", FailedLoginHeuristic, Signals{}, 0, ""},
		{"one failed login", FailedLoginHeuristic, Signals{FailedLogins: 1}, 10, "Recent failed login attempt"},
		{"three failed logins", FailedLoginHeuristic, Signals{FailedLogins: 3}, 30, "Multiple failed login attempts"},
		{"one suspicious", SuspiciousActivityHeuristic, Signals{SuspiciousEvents: 1}, 20, "Recent suspicious activity"},
		{"suspicious capped", SuspiciousActivityHeuristic, Signals{SuspiciousEvents: 9}, 40, "Recent suspicious activity"},
		{"under limit", ConcurrentSessionHeuristic, Signals{ActiveSessions: 2, MaxConcurrentSessions: 5}, 0, ""},
		{"at limit", ConcurrentSessionHeuristic, Signals{ActiveSessions: 5, MaxConcurrentSessions: 5}, 15, "Maximum concurrent sessions reached"},
		{"unknown limit", ConcurrentSessionHeuristic, Signals{ActiveSessions: 5}, 0, ""},
		{"two ips", IPChurnHeuristic, Signals{DistinctIPs: 2}, 0, ""},
		{"three ips", IPChurnHeuristic, Signals{DistinctIPs: 3}, 10, "Multiple IP addresses in a short period"},
		{"ip churn capped", IPChurnHeuristic, Signals{DistinctIPs: 20}, 30, "Multiple IP addresses in a short period"},
		{"first ever session", UnrecognizedIPHeuristic, Signals{}, 0, ""},
		{"known ip", UnrecognizedIPHeuristic, Signals{ActiveSessions: 1, IPSeenBefore: true}, 0, ""},
		{"new ip with history", UnrecognizedIPHeuristic, Signals{DistinctIPs: 1}, 10, "Unrecognized IP address"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			score, factor := tt.h(tt.s)
			if score != tt.wantScore || factor != tt.wantFactor {
				t.Errorf("got (%d, %q), want (%d, %q)", score, factor, tt.wantScore, tt.wantFactor)
			}
		})
	}
}

func TestScore_SumsAndClamps(t *testing.T) {
	score, factors := Score(Signals{FailedLogins: 3, SuspiciousEvents: 1}, DefaultHeuristics)
	if score != 50 {
		t.Errorf("score = %d, want 50", score)
	}
	want := []string{"Multiple failed login attempts", "Recent suspicious activity"}
	if !reflect.DeepEqual(factors, want) {
		t.Errorf("factors = %v, want %v", factors, want)
	}

	worst := Signals{
		FailedLogins: 4, SuspiciousEvents: 5, ActiveSessions: 10, MaxConcurrentSessions: 10, DistinctIPs: 10,
	}
	if score, _ := Score(worst, DefaultHeuristics); score != 100 {
		t.Errorf("clamped score = %d, want 100", score)
	}

	negative := func(Signals) (int, string) { return -50, "ignored" }
	score, factors = Score(Signals{}, []Heuristic{negative})
	if score != 0 || len(factors) != 0 {
		t.Errorf("negative heuristic = (%d, %v), want (0, [])", score, factors)
	}
}
