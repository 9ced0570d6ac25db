package risk

import (
	"context"
	"fmt"
)

// DefaultBlockScore is the soft-score threshold at or above which an attempt is blocked.
const DefaultBlockScore = 90

// Decision is the input to a BlockPolicy.
type Decision struct {
	UserID    string
	IP        string
	UserAgent string
	RiskScore int
	Factors   []string
	Signals   Signals
}

// BlockPolicy decides whether a scored attempt that passed the hard-block check should still be denied.
type BlockPolicy interface {
	ShouldBlock(ctx context.Context, d Decision) (bool, error)
}

// ThresholdPolicy blocks when the score reaches Score.
type ThresholdPolicy struct {
	Score int
}

func (p ThresholdPolicy) ShouldBlock(_ context.Context, d Decision) (bool, error) {
	return d.RiskScore >= p.Score, nil
}

// scoreReason formats the block reason for a policy-based denial.
func scoreReason(score int) string {
	return fmt.Sprintf("High risk score (%d)", score)
}
