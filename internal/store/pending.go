package store

import (
	"context"
	"fmt"
	"time"

	"github.com/unilove/ridersync/internal/model"
)

// InsertPendingIncident queues a failed incident write for later replay.
// Idempotent on id.
func (s *Store) InsertPendingIncident(ctx context.Context, p model.PendingIncident) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO pending_incidents
		(id, incident_id, order_id, rider_id, category, note, created_at_epoch_ms)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO NOTHING
	`,
		p.ID,
		p.IncidentID,
		p.OrderID,
		p.RiderID,
		string(p.Category),
		p.Note,
		p.CreatedAt.UnixMilli(),
	)
	if err != nil {
		return fmt.Errorf("insert pending incident: %w", err)
	}
	return nil
}

// ListPendingIncidents returns queued writes oldest first, preserving the
// narrative sequence for replay.
func (s *Store) ListPendingIncidents(ctx context.Context) ([]model.PendingIncident, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, incident_id, order_id, rider_id, category, note, created_at_epoch_ms
		FROM pending_incidents
		ORDER BY created_at_epoch_ms ASC, id ASC
	`)
	if err != nil {
		return nil, fmt.Errorf("list pending incidents: %w", err)
	}
	defer rows.Close()

	pending := []model.PendingIncident{}
	for rows.Next() {
		var (
			p           model.PendingIncident
			category    string
			createdAtMs int64
		)
		if err := rows.Scan(&p.ID, &p.IncidentID, &p.OrderID, &p.RiderID, &category, &p.Note, &createdAtMs); err != nil {
			return nil, fmt.Errorf("scan pending incident: %w", err)
		}
		p.Category = model.ParseIncidentCategory(category)
		p.CreatedAt = time.UnixMilli(createdAtMs).UTC()
		pending = append(pending, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate pending incidents: %w", err)
	}

	return pending, nil
}

// DeletePendingIncident removes a queued write after its replay was
// confirmed by the server.
func (s *Store) DeletePendingIncident(ctx context.Context, id string) error {
	if _, err := s.db.ExecContext(ctx, `DELETE FROM pending_incidents WHERE id = ?`, id); err != nil {
		return fmt.Errorf("delete pending incident: %w", err)
	}
	return nil
}

// CountPendingIncidents returns the number of queued writes.
func (s *Store) CountPendingIncidents(ctx context.Context) (int, error) {
	var count int
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM pending_incidents`).Scan(&count); err != nil {
		return 0, fmt.Errorf("count pending incidents: %w", err)
	}
	return count, nil
}
