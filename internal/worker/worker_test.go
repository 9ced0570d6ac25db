package worker

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/segmentio/kafka-go"

	"sessionguard/internal/audit/domain"
	"sessionguard/internal/telemetry/producer"
)

type countingCleaner struct {
	mu    sync.Mutex
	calls int
	err   error
}

func (c *countingCleaner) CleanupExpired(context.Context) (int, int, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.calls++
	return 1, 0, c.err
}

func (c *countingCleaner) count() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.calls
}

func TestSweep_RunsImmediatelyAndOnTicks(t *testing.T) {
	c := &countingCleaner{}
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		Sweep(ctx, c, 10*time.Millisecond)
		close(done)
	}()

	deadline := time.After(2 * time.Second)
	for c.count() < 3 {
		select {
		case <-deadline:
			t.Fatalf("cleanup ran %d times, want at least 3", c.count())
		case <-time.After(5 * time.Millisecond):
		}
	}
	cancel()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("Sweep did not stop after cancel")
	}
}

func TestSweep_ContinuesAfterError(t *testing.T) {
	c := &countingCleaner{err: errors.New("db down")}
	ctx, cancel := context.WithCancel(context.Background())
	go Sweep(ctx, c, 5*time.Millisecond)
	defer cancel()

	deadline := time.After(2 * time.Second)
	for c.count() < 2 {
		select {
		case <-deadline:
			t.Fatal("sweeper stopped after a failed cleanup")
		case <-time.After(5 * time.Millisecond):
		}
	}
}

func TestAlert(t *testing.T) {
	tests := []struct {
		name  string
		event domain.SecurityEvent
		want  bool
	}{
		{"blocked", domain.SecurityEvent{Type: domain.EventSessionBlocked, IsBlocked: true, RiskScore: 100}, true},
		{"suspicious", domain.SecurityEvent{Type: domain.EventSuspiciousActivity}, true},
		{"high score", domain.SecurityEvent{Type: domain.EventSessionCreated, RiskScore: AlertScore}, true},
		{"routine", domain.SecurityEvent{Type: domain.EventSessionCreated, RiskScore: 20}, false},
		{"failed login", domain.SecurityEvent{Type: domain.EventLoginFailed}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Alert(&tt.event); got != tt.want {
				t.Errorf("Alert = %v, want %v", got, tt.want)
			}
		})
	}
}

// queueReader serves queued messages, then cancels the consumer context and blocks until it is done.
type queueReader struct {
	msgs   []kafka.Message
	cancel context.CancelFunc
}

func (q *queueReader) ReadMessage(ctx context.Context) (kafka.Message, error) {
	if len(q.msgs) == 0 {
		q.cancel()
		<-ctx.Done()
		return kafka.Message{}, ctx.Err()
	}
	m := q.msgs[0]
	q.msgs = q.msgs[1:]
	return m, nil
}

func encode(t *testing.T, e *domain.SecurityEvent) kafka.Message {
	t.Helper()
	b, err := json.Marshal(producer.NewMessage(e))
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	return kafka.Message{Value: b}
}

func TestConsume_CountsAlertsAndSkipsMalformed(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	r := &queueReader{cancel: cancel, msgs: []kafka.Message{
		encode(t, &domain.SecurityEvent{ID: "e1", UserID: "u1", Type: domain.EventSessionBlocked, IsBlocked: true, RiskScore: 100}),
		{Value: []byte("not json")},
		encode(t, &domain.SecurityEvent{ID: "e2", UserID: "u1", Type: domain.EventSessionCreated, RiskScore: 10}),
		encode(t, &domain.SecurityEvent{ID: "e3", UserID: "u2", Type: domain.EventSuspiciousActivity}),
	}}

	if got := Consume(ctx, r); got != 2 {
		t.Errorf("alerts = %d, want 2", got)
	}
}
