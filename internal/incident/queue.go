// Package incident handles field incident reports: optimistic audit
// logging, remote submission, and the store-and-forward queue that
// replays reports recorded while the rider was offline.
package incident

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/unilove/ridersync/internal/fault"
	"github.com/unilove/ridersync/internal/gateway"
	"github.com/unilove/ridersync/internal/model"
	"github.com/unilove/ridersync/internal/store"
)

// Queue submits incident reports and replays the ones saved offline.
// Flushes serialize on an internal mutex so a scheduled flush and a
// manual one never double-submit the same row.
type Queue struct {
	gw     gateway.Gateway
	store  *store.Store
	logger *slog.Logger
	now    func() time.Time
	newID  func() string

	flushMu sync.Mutex
}

// Option configures a Queue.
type Option func(*Queue)

// WithClock overrides the wall clock used for record timestamps.
func WithClock(now func() time.Time) Option {
	return func(q *Queue) { q.now = now }
}

// WithIDGenerator overrides the incident id source. Production uses
// UUIDv7 so ids sort by creation time; tests substitute a sequential
// generator.
func WithIDGenerator(newID func() string) Option {
	return func(q *Queue) { q.newID = newID }
}

// New creates a Queue.
func New(gw gateway.Gateway, st *store.Store, logger *slog.Logger, opts ...Option) *Queue {
	q := &Queue{
		gw:     gw,
		store:  st,
		logger: logger,
		now:    time.Now,
		newID:  func() string { return uuid.Must(uuid.NewV7()).String() },
	}
	for _, opt := range opts {
		opt(q)
	}
	return q
}

// Submit records the draft in the audit log, then attempts remote
// submission. Any remote failure parks the report in the pending queue
// so the rider's work is never lost to a dead network or a flaky server;
// the caller sees a SAVED_OFFLINE fault, except that session expiry
// still propagates so the rider is routed back to login. The queued row
// replays on the next flush either way.
func (q *Queue) Submit(ctx context.Context, session *model.Session, draft model.IncidentDraft) (model.IncidentRecord, error) {
	if session == nil || session.AuthToken == "" {
		return model.IncidentRecord{}, fault.New(fault.CodeNotAuthenticated, "Sign in to report an incident.")
	}
	if strings.TrimSpace(draft.Note) == "" {
		return model.IncidentRecord{}, fault.New(fault.CodeValidationFailed, "Describe the incident before submitting.")
	}

	now := q.now().UTC()
	rec := model.IncidentRecord{
		ID:         q.newID(),
		OrderID:    draft.OrderID,
		Category:   draft.Category,
		Note:       strings.TrimSpace(draft.Note),
		Location:   draft.Location,
		CreatedAt:  now,
		SyncStatus: model.IncidentPending,
	}
	if err := q.store.InsertIncident(ctx, rec); err != nil {
		return model.IncidentRecord{}, fmt.Errorf("record incident: %w", err)
	}

	_, err := q.gw.SubmitIncident(ctx, session.AuthToken, requestFor(rec))
	if err == nil {
		if err := q.store.MarkIncidentSynced(ctx, rec.ID, now); err != nil {
			return model.IncidentRecord{}, fmt.Errorf("mark incident synced: %w", err)
		}
		rec.SyncStatus = model.IncidentSynced
		rec.SyncedAt = now
		// The network just proved itself; drain anything queued earlier.
		if _, err := q.FlushPending(ctx, session); err != nil {
			q.logger.Debug("opportunistic flush failed", "code", fault.CodeOf(err))
		}
		return rec, nil
	}

	pending := model.PendingIncident{
		ID:         q.newID(),
		IncidentID: rec.ID,
		OrderID:    rec.OrderID,
		RiderID:    session.RiderID,
		Category:   rec.Category,
		Note:       rec.Note,
		CreatedAt:  now,
	}
	if err := q.store.InsertPendingIncident(ctx, pending); err != nil {
		return rec, fmt.Errorf("queue incident offline: %w", err)
	}
	q.logger.Info("incident saved offline", "incident", rec.ID, "category", rec.Category, "code", fault.CodeOf(err))
	if fault.IsSessionExpired(err) {
		return rec, fmt.Errorf("submit incident: %w", err)
	}
	return rec, fault.New(fault.CodeSavedOffline, "Incident saved offline and will sync automatically.")
}

// FlushPending replays queued incidents oldest first and returns how
// many reached the server. A transport failure stops the pass early
// since later rows would fail the same way; a per-row server rejection
// is logged and skipped so one bad report cannot wedge the queue.
func (q *Queue) FlushPending(ctx context.Context, session *model.Session) (int, error) {
	if session == nil || session.AuthToken == "" {
		return 0, fault.New(fault.CodeNotAuthenticated, "Sign in to sync incidents.")
	}

	q.flushMu.Lock()
	defer q.flushMu.Unlock()

	rows, err := q.store.ListPendingIncidents(ctx)
	if err != nil {
		return 0, fmt.Errorf("list pending incidents: %w", err)
	}

	flushed := 0
	for _, row := range rows {
		req := gateway.IncidentRequest{
			OrderID:  row.OrderID,
			Reason:   row.Category.ServerReason(),
			Note:     row.Note,
			Severity: row.Category.Severity(),
		}
		if _, err := q.gw.SubmitIncident(ctx, session.AuthToken, req); err != nil {
			if fault.IsTransport(err) || fault.IsSessionExpired(err) {
				return flushed, fmt.Errorf("flush incidents: %w", err)
			}
			q.logger.Warn("pending incident rejected", "pending", row.ID, "code", fault.CodeOf(err))
			continue
		}
		if err := q.store.DeletePendingIncident(ctx, row.ID); err != nil {
			return flushed, fmt.Errorf("dequeue incident: %w", err)
		}
		if row.IncidentID != "" {
			if err := q.store.MarkIncidentSynced(ctx, row.IncidentID, q.now().UTC()); err != nil {
				return flushed, fmt.Errorf("mark incident synced: %w", err)
			}
		}
		flushed++
	}

	if flushed > 0 {
		q.logger.Info("pending incidents flushed", "count", flushed)
	}
	return flushed, nil
}

// PendingCount reports how many incidents await replay.
func (q *Queue) PendingCount(ctx context.Context) (int, error) {
	return q.store.CountPendingIncidents(ctx)
}

// History returns the audit log, newest first.
func (q *Queue) History(ctx context.Context) ([]model.IncidentRecord, error) {
	return q.store.ListIncidents(ctx)
}

func requestFor(rec model.IncidentRecord) gateway.IncidentRequest {
	return gateway.IncidentRequest{
		OrderID:  rec.OrderID,
		Reason:   rec.Category.ServerReason(),
		Note:     rec.Note,
		Location: rec.Location,
		Severity: rec.Category.Severity(),
	}
}
