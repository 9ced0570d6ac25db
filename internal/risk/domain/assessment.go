package domain

// Reasons reported on blocked assessments.
const (
	ReasonTooManyFailedLogins = "Too many failed login attempts"
	ReasonSignalsUnavailable  = "Unable to assess session risk"
)

// MaxScore is the upper bound of RiskScore.
const MaxScore = 100

// Assessment is the outcome of analysing one session-creation attempt. It is never persisted as such;
// blocked assessments are recorded as security events.
type Assessment struct {
	RiskScore   int
	IsBlocked   bool
	BlockReason string
	Factors     []string
}
