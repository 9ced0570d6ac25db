package risk

// Signals are the per-user counts a risk decision is based on.
type Signals struct {
	FailedLogins          int
	SuspiciousEvents      int
	ActiveSessions        int
	MaxConcurrentSessions int
	DistinctIPs           int
	// IPSeenBefore is true when the user already has a session from the requesting IP.
	IPSeenBefore bool
}

// Heuristic scores one aspect of Signals. A zero score means the heuristic does not apply and its factor is ignored.
type Heuristic func(s Signals) (score int, factor string)

// DefaultHeuristics is the weighting used by NewAnalyzer.
var DefaultHeuristics = []Heuristic{
	FailedLoginHeuristic,
	SuspiciousActivityHeuristic,
	ConcurrentSessionHeuristic,
	IPChurnHeuristic,
	UnrecognizedIPHeuristic,
}

// FailedLoginHeuristic adds 10 per recent failed login below the hard-block threshold.
func FailedLoginHeuristic(s Signals) (int, string) {
	switch {
	case s.FailedLogins > 1:
		return 10 * s.FailedLogins, "Multiple failed login attempts"
	case s.FailedLogins == 1:
		return 10, "Recent failed login attempt"
	}
	return 0, ""
}

// SuspiciousActivityHeuristic adds 20 per recent suspicious or blocked event, up to 40.
func SuspiciousActivityHeuristic(s Signals) (int, string) {
	if s.SuspiciousEvents <= 0 {
		return 0, ""
	}
	return min(20*s.SuspiciousEvents, 40), "Recent suspicious activity"
}

// ConcurrentSessionHeuristic adds 15 when the user is already at the concurrent-session limit.
func ConcurrentSessionHeuristic(s Signals) (int, string) {
	if s.MaxConcurrentSessions > 0 && s.ActiveSessions >= s.MaxConcurrentSessions {
		return 15, "Maximum concurrent sessions reached"
	}
	return 0, ""
}

// IPChurnHeuristic adds 10 per distinct IP beyond two in the activity window, up to 30.
func IPChurnHeuristic(s Signals) (int, string) {
	if s.DistinctIPs < 3 {
		return 0, ""
	}
	return min(10*(s.DistinctIPs-2), 30), "Multiple IP addresses in a short period"
}

// UnrecognizedIPHeuristic adds 10 when a user with session history signs in from a new IP.
func UnrecognizedIPHeuristic(s Signals) (int, string) {
	hasHistory := s.ActiveSessions > 0 || s.DistinctIPs > 0
	if hasHistory && !s.IPSeenBefore {
		return 10, "Unrecognized IP address"
	}
	return 0, ""
}

// Score sums the heuristics over s, clamped to [0, 100], and collects the factors that applied.
func Score(s Signals, heuristics []Heuristic) (int, []string) {
	total := 0
	factors := []string{}
	for _, h := range heuristics {
		score, factor := h(s)
		if score <= 0 {
			continue
		}
		total += score
		if factor != "" {
			factors = append(factors, factor)
		}
	}
	return max(0, min(total, 100)), factors
}
