package service

import (
	"context"
	"log"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"
)

const instrumentationName = "sessionguard/internal/session/service"

// instruments are the tracer and counters the manager reports through.
type instruments struct {
	tracer       trace.Tracer
	created      metric.Int64Counter
	blocked      metric.Int64Counter
	evicted      metric.Int64Counter
	expired      metric.Int64Counter
	rememberUsed metric.Int64Counter
	riskScore    metric.Int64Histogram
}

// newInstruments builds instruments from the global providers. Creation errors are logged and the
// affected instrument is replaced by a no-op.
func newInstruments() instruments {
	meter := otel.Meter(instrumentationName)
	counter := func(name, desc string) metric.Int64Counter {
		c, err := meter.Int64Counter(name, metric.WithDescription(desc))
		if err != nil {
			log.Printf("session: metric %s: %v", name, err)
		}
		return c
	}
	hist, err := meter.Int64Histogram("sessions.risk_score",
		metric.WithDescription("Risk score of session creation attempts"))
	if err != nil {
		log.Printf("session: metric sessions.risk_score: %v", err)
	}
	return instruments{
		tracer:       otel.Tracer(instrumentationName),
		created:      counter("sessions.created", "Sessions created"),
		blocked:      counter("sessions.blocked", "Session creation attempts blocked by risk analysis"),
		evicted:      counter("sessions.evicted", "Sessions evicted to enforce the concurrent-session limit"),
		expired:      counter("sessions.expired", "Sessions deactivated after expiry"),
		rememberUsed: counter("remember_tokens.used", "Remember tokens exchanged for a new session"),
		riskScore:    hist,
	}
}

func add(ctx context.Context, c metric.Int64Counter, n int64) {
	if c != nil && n > 0 {
		c.Add(ctx, n)
	}
}
