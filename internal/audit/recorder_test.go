package audit

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"sessionguard/internal/audit/domain"
	auditrepo "sessionguard/internal/audit/repository"
)

type failingRepo struct {
	*auditrepo.MemoryRepository
	createErr error
}

func (f *failingRepo) Create(ctx context.Context, e *domain.SecurityEvent) error {
	if f.createErr != nil {
		return f.createErr
	}
	return f.MemoryRepository.Create(ctx, e)
}

type captureEmitter struct {
	mu     sync.Mutex
	events []*domain.SecurityEvent
	done   chan struct{}
}

func newCaptureEmitter() *captureEmitter {
	return &captureEmitter{done: make(chan struct{}, 16)}
}

func (c *captureEmitter) Emit(ctx context.Context, e *domain.SecurityEvent) error {
	c.mu.Lock()
	c.events = append(c.events, e)
	c.mu.Unlock()
	c.done <- struct{}{}
	return nil
}

func TestRecorder_Record_FillsIDAndTimeAndEmits(t *testing.T) {
	repo := auditrepo.NewMemoryRepository()
	em := newCaptureEmitter()
	r := NewRecorder(repo, em)
	ctx := context.Background()

	e := &domain.SecurityEvent{UserID: "u1", Type: domain.EventLoginFailed, IPAddress: "10.0.0.1"}
	if err := r.Record(ctx, e); err != nil {
		t.Fatalf("Record: %v", err)
	}
	if e.ID == "" {
		t.Error("ID should be generated")
	}
	if e.CreatedAt.IsZero() {
		t.Error("CreatedAt should be set")
	}

	select {
	case <-em.done:
	case <-time.After(2 * time.Second):
		t.Fatal("event was not emitted")
	}

	n, err := r.CountSince(ctx, "u1", []domain.EventType{domain.EventLoginFailed}, time.Now().Add(-time.Minute))
	if err != nil || n != 1 {
		t.Errorf("CountSince = %d, %v; want 1, nil", n, err)
	}
}

func TestRecorder_Record_PropagatesStoreErrorAndSkipsEmit(t *testing.T) {
	storeErr := errors.New("db down")
	repo := &failingRepo{MemoryRepository: auditrepo.NewMemoryRepository(), createErr: storeErr}
	em := newCaptureEmitter()
	r := NewRecorder(repo, em)

	err := r.Record(context.Background(), &domain.SecurityEvent{UserID: "u1", Type: domain.EventSessionBlocked})
	if !errors.Is(err, storeErr) {
		t.Fatalf("Record err = %v, want %v", err, storeErr)
	}
	select {
	case <-em.done:
		t.Error("unstored event should not be emitted")
	case <-time.After(50 * time.Millisecond):
	}
}

func TestRecorder_RecordBestEffort_SwallowsError(t *testing.T) {
	repo := &failingRepo{MemoryRepository: auditrepo.NewMemoryRepository(), createErr: errors.New("db down")}
	r := NewRecorder(repo, nil)
	r.RecordBestEffort(context.Background(), &domain.SecurityEvent{UserID: "u1", Type: domain.EventSessionCreated})
}

func TestRecorder_ListByUser(t *testing.T) {
	r := NewRecorder(auditrepo.NewMemoryRepository(), nil)
	ctx := context.Background()
	_ = r.Record(ctx, &domain.SecurityEvent{UserID: "u1", Type: domain.EventSessionCreated})
	_ = r.Record(ctx, &domain.SecurityEvent{UserID: "u2", Type: domain.EventSessionCreated})

	list, err := r.ListByUser(ctx, "u1", 10, 0)
	if err != nil {
		t.Fatalf("ListByUser: %v", err)
	}
	if len(list) != 1 || list[0].UserID != "u1" {
		t.Errorf("ListByUser = %+v", list)
	}
}
