package risk

import (
	"context"
	"fmt"
	"os"

	"github.com/open-policy-agent/opa/v1/ast"
	"github.com/open-policy-agent/opa/v1/rego"
)

const blockQuery = "data.sessionguard.risk.block"

// DefaultRegoPolicy blocks at the configured threshold. Operators can replace it through RISK_POLICY_FILE;
// a replacement must define data.sessionguard.risk.block as a boolean.
const DefaultRegoPolicy = `package sessionguard.risk

default block := false

block if {
	input.risk_score >= input.threshold
}
`

// OPAPolicy is a BlockPolicy evaluated by the in-process OPA Rego engine.
type OPAPolicy struct {
	query     rego.PreparedEvalQuery
	threshold int
}

// NewOPAPolicy compiles source (DefaultRegoPolicy when empty) and prepares the block query.
// threshold is passed to the policy as input.threshold.
func NewOPAPolicy(ctx context.Context, source string, threshold int) (*OPAPolicy, error) {
	if source == "" {
		source = DefaultRegoPolicy
	}
	compiler, err := ast.CompileModules(map[string]string{"risk.rego": source})
	if err != nil {
		return nil, fmt.Errorf("compile risk policy: %w", err)
	}
	q, err := rego.New(
		rego.Query(blockQuery),
		rego.Compiler(compiler),
	).PrepareForEval(ctx)
	if err != nil {
		return nil, fmt.Errorf("prepare risk policy: %w", err)
	}
	return &OPAPolicy{query: q, threshold: threshold}, nil
}

// LoadOPAPolicy reads a Rego module from path, or uses DefaultRegoPolicy when path is empty.
func LoadOPAPolicy(ctx context.Context, path string, threshold int) (*OPAPolicy, error) {
	if path == "" {
		return NewOPAPolicy(ctx, "", threshold)
	}
	src, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read risk policy %s: %w", path, err)
	}
	return NewOPAPolicy(ctx, string(src), threshold)
}

// ShouldBlock evaluates the policy. A policy that yields no boolean result is an error.
func (p *OPAPolicy) ShouldBlock(ctx context.Context, d Decision) (bool, error) {
	rs, err := p.query.Eval(ctx, rego.EvalInput(p.input(d)))
	if err != nil {
		return false, fmt.Errorf("eval risk policy: %w", err)
	}
	if len(rs) == 0 || len(rs[0].Expressions) == 0 {
		return false, fmt.Errorf("risk policy returned no result")
	}
	block, ok := rs[0].Expressions[0].Value.(bool)
	if !ok {
		return false, fmt.Errorf("risk policy block is %T, want bool", rs[0].Expressions[0].Value)
	}
	return block, nil
}

// HealthCheck verifies that the compiled policy evaluates for a zero-risk input.
// Does not touch storage. Returns nil on success.
func (p *OPAPolicy) HealthCheck(ctx context.Context) error {
	_, err := p.ShouldBlock(ctx, Decision{})
	return err
}

func (p *OPAPolicy) input(d Decision) map[string]interface{} {
	factors := make([]interface{}, len(d.Factors))
	for i, f := range d.Factors {
		factors[i] = f
	}
	return map[string]interface{}{
		"user_id":    d.UserID,
		"ip":         d.IP,
		"user_agent": d.UserAgent,
		"risk_score": d.RiskScore,
		"threshold":  p.threshold,
		"factors":    factors,
		"signals": map[string]interface{}{
			"failed_logins":           d.Signals.FailedLogins,
			"suspicious_events":       d.Signals.SuspiciousEvents,
			"active_sessions":         d.Signals.ActiveSessions,
			"max_concurrent_sessions": d.Signals.MaxConcurrentSessions,
			"distinct_ips":            d.Signals.DistinctIPs,
			"ip_seen_before":          d.Signals.IPSeenBefore,
		},
	}
}
