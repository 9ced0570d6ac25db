// Package audit records security and activity events for sessions and forwards them to telemetry sinks.
package audit

import (
	"context"
	"log"
	"time"

	"github.com/google/uuid"

	"sessionguard/internal/audit/domain"
	auditrepo "sessionguard/internal/audit/repository"
	"sessionguard/internal/telemetry"
)

// Recorder persists security events and fans each stored event out to an optional emitter.
// The store is authoritative; the emitter is fire-and-forget.
type Recorder struct {
	repo    auditrepo.Repository
	emitter telemetry.EventEmitter
	now     func() time.Time
}

// NewRecorder returns a Recorder over repo. emitter may be nil.
func NewRecorder(repo auditrepo.Repository, emitter telemetry.EventEmitter) *Recorder {
	return &Recorder{repo: repo, emitter: emitter, now: func() time.Time { return time.Now().UTC() }}
}

// Record stores the event, filling ID and CreatedAt when unset, and returns any storage error.
// The event is emitted to sinks only after it has been stored.
func (r *Recorder) Record(ctx context.Context, e *domain.SecurityEvent) error {
	if e.ID == "" {
		e.ID = uuid.New().String()
	}
	if e.CreatedAt.IsZero() {
		e.CreatedAt = r.now()
	}
	if err := r.repo.Create(ctx, e); err != nil {
		return err
	}
	telemetry.EmitAsync(r.emitter, e)
	return nil
}

// RecordBestEffort is Record for transitions whose outcome must not depend on the audit trail.
// Failures are logged and not returned.
func (r *Recorder) RecordBestEffort(ctx context.Context, e *domain.SecurityEvent) {
	if err := r.Record(ctx, e); err != nil {
		log.Printf("audit: failed to record %s for user %s: %v", e.Type, e.UserID, err)
	}
}

// CountSince counts the user's events of the given types created at or after since.
func (r *Recorder) CountSince(ctx context.Context, userID string, types []domain.EventType, since time.Time) (int, error) {
	return r.repo.CountByUserAndTypes(ctx, userID, types, since)
}

// ListByUser returns the user's events, newest first.
func (r *Recorder) ListByUser(ctx context.Context, userID string, limit, offset int32) ([]*domain.SecurityEvent, error) {
	return r.repo.ListByUser(ctx, userID, limit, offset)
}
