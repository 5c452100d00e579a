package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/unilove/ridersync/internal/model"
)

// InsertIncident writes a row of the incident audit log. Called before
// the remote submission is attempted, so the report is visible locally
// regardless of the network outcome. Idempotent on id.
func (s *Store) InsertIncident(ctx context.Context, rec model.IncidentRecord) error {
	var syncedAt any
	if !rec.SyncedAt.IsZero() {
		syncedAt = rec.SyncedAt.UnixMilli()
	}
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO incident_log
		(id, order_id, category, note, location, sync_status, created_at_epoch_ms, synced_at_epoch_ms)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO NOTHING
	`,
		rec.ID,
		rec.OrderID,
		string(rec.Category),
		rec.Note,
		rec.Location,
		string(rec.SyncStatus),
		rec.CreatedAt.UnixMilli(),
		syncedAt,
	)
	if err != nil {
		return fmt.Errorf("insert incident: %w", err)
	}
	return s.republishIncidents(ctx)
}

// MarkIncidentSynced flips an audit-log row to SYNCED with the given
// confirmation time.
func (s *Store) MarkIncidentSynced(ctx context.Context, id string, syncedAt time.Time) error {
	_, err := s.db.ExecContext(ctx, `
		UPDATE incident_log SET sync_status = ?, synced_at_epoch_ms = ? WHERE id = ?
	`, string(model.IncidentSynced), syncedAt.UnixMilli(), id)
	if err != nil {
		return fmt.Errorf("mark incident synced: %w", err)
	}
	return s.republishIncidents(ctx)
}

// ListIncidents returns the audit log newest first. Returns an empty
// slice (not nil) when the log is empty.
func (s *Store) ListIncidents(ctx context.Context) ([]model.IncidentRecord, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, order_id, category, note, location, sync_status, created_at_epoch_ms, synced_at_epoch_ms
		FROM incident_log
		ORDER BY created_at_epoch_ms DESC, id ASC
	`)
	if err != nil {
		return nil, fmt.Errorf("list incidents: %w", err)
	}
	defer rows.Close()

	records := []model.IncidentRecord{}
	for rows.Next() {
		var (
			rec         model.IncidentRecord
			category    string
			syncStatus  string
			createdAtMs int64
			syncedAtMs  sql.NullInt64
		)
		if err := rows.Scan(&rec.ID, &rec.OrderID, &category, &rec.Note, &rec.Location,
			&syncStatus, &createdAtMs, &syncedAtMs); err != nil {
			return nil, fmt.Errorf("scan incident: %w", err)
		}
		rec.Category = model.ParseIncidentCategory(category)
		rec.SyncStatus = model.IncidentSyncStatus(syncStatus)
		rec.CreatedAt = time.UnixMilli(createdAtMs).UTC()
		if syncedAtMs.Valid {
			rec.SyncedAt = time.UnixMilli(syncedAtMs.Int64).UTC()
		}
		records = append(records, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate incidents: %w", err)
	}

	return records, nil
}
