package worker

import (
	"context"
	"log"
	"time"

	"github.com/segmentio/kafka-go"

	"sessionguard/internal/audit/domain"
	"sessionguard/internal/telemetry/producer"
)

// AlertScore is the risk score at or above which a consumed event is reported as an alert.
const AlertScore = 70

// MessageReader is the subset of *kafka.Reader used by Consume.
type MessageReader interface {
	ReadMessage(ctx context.Context) (kafka.Message, error)
}

// Alert reports whether a security event needs operator attention: blocked attempts,
// suspicious activity, and anything scored at or above AlertScore.
func Alert(e *domain.SecurityEvent) bool {
	return e.IsBlocked || e.Type == domain.EventSuspiciousActivity || e.RiskScore >= AlertScore
}

// Consume reads security events until ctx is done, logging alerts. Undecodable messages are skipped.
// It returns the number of alerts raised.
func Consume(ctx context.Context, reader MessageReader) int {
	alerts := 0
	for {
		msg, err := reader.ReadMessage(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return alerts
			}
			log.Printf("worker: kafka read error: %v", err)
			select {
			case <-ctx.Done():
				return alerts
			case <-time.After(time.Second):
			}
			continue
		}
		e, err := producer.DecodeMessage(msg.Value)
		if err != nil {
			log.Printf("worker: skipping malformed event at offset %d: %v", msg.Offset, err)
			continue
		}
		if Alert(e) {
			alerts++
			log.Printf("worker: ALERT %s user=%s ip=%s score=%d reason=%q",
				e.Type, e.UserID, e.IPAddress, e.RiskScore, e.BlockReason)
		}
	}
}
