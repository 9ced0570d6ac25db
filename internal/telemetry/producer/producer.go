// Package producer publishes security events to a message broker (Kafka) and decodes them on the consumer side.
package producer

import (
	"context"
	"encoding/json"
	"time"

	"sessionguard/internal/audit/domain"
)

// Producer emits security events. Callers use it best-effort: log and ignore errors.
type Producer interface {
	// Emit sends a single event. Implementations may block briefly; call from a goroutine if needed.
	Emit(ctx context.Context, event *domain.SecurityEvent) error
	// Close releases resources (e.g. Kafka writer). Safe to call if already closed.
	Close() error
}

// Message is the JSON wire form of a security event on the topic.
type Message struct {
	ID          string    `json:"id"`
	UserID      string    `json:"user_id"`
	EventType   string    `json:"event_type"`
	IPAddress   string    `json:"ip_address,omitempty"`
	UserAgent   string    `json:"user_agent,omitempty"`
	RiskScore   int       `json:"risk_score"`
	IsBlocked   bool      `json:"is_blocked"`
	BlockReason string    `json:"block_reason,omitempty"`
	Metadata    string    `json:"metadata,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
}

// NewMessage converts a domain event into its wire form.
func NewMessage(e *domain.SecurityEvent) Message {
	return Message{
		ID:          e.ID,
		UserID:      e.UserID,
		EventType:   string(e.Type),
		IPAddress:   e.IPAddress,
		UserAgent:   e.UserAgent,
		RiskScore:   e.RiskScore,
		IsBlocked:   e.IsBlocked,
		BlockReason: e.BlockReason,
		Metadata:    e.Metadata,
		CreatedAt:   e.CreatedAt,
	}
}

// DecodeMessage parses a message value written by KafkaProducer.
func DecodeMessage(value []byte) (*domain.SecurityEvent, error) {
	var m Message
	if err := json.Unmarshal(value, &m); err != nil {
		return nil, err
	}
	return &domain.SecurityEvent{
		ID:          m.ID,
		UserID:      m.UserID,
		Type:        domain.EventType(m.EventType),
		IPAddress:   m.IPAddress,
		UserAgent:   m.UserAgent,
		RiskScore:   m.RiskScore,
		IsBlocked:   m.IsBlocked,
		BlockReason: m.BlockReason,
		Metadata:    m.Metadata,
		CreatedAt:   m.CreatedAt,
	}, nil
}
