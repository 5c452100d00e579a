package store

import (
	"context"
	"testing"
	"time"

	"github.com/unilove/ridersync/internal/model"
)

func TestInsertIncident_AndMarkSynced(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	rec := model.IncidentRecord{
		ID:         "inc-1",
		OrderID:    "o1",
		Category:   model.IncidentMotorBreakdown,
		Note:       "chain snapped",
		Location:   "Osu roundabout",
		CreatedAt:  time.UnixMilli(1700000000000).UTC(),
		SyncStatus: model.IncidentPending,
	}
	if err := s.InsertIncident(ctx, rec); err != nil {
		t.Fatalf("InsertIncident failed: %v", err)
	}

	records, err := s.ListIncidents(ctx)
	if err != nil {
		t.Fatalf("ListIncidents failed: %v", err)
	}
	if len(records) != 1 {
		t.Fatalf("expected 1 record, got %d", len(records))
	}
	if records[0].SyncStatus != model.IncidentPending {
		t.Errorf("expected PENDING, got %s", records[0].SyncStatus)
	}
	if !records[0].SyncedAt.IsZero() {
		t.Errorf("SyncedAt should be zero before sync")
	}

	syncedAt := time.UnixMilli(1700000099000).UTC()
	if err := s.MarkIncidentSynced(ctx, "inc-1", syncedAt); err != nil {
		t.Fatalf("MarkIncidentSynced failed: %v", err)
	}

	records, err = s.ListIncidents(ctx)
	if err != nil {
		t.Fatalf("ListIncidents failed: %v", err)
	}
	if records[0].SyncStatus != model.IncidentSynced {
		t.Errorf("expected SYNCED, got %s", records[0].SyncStatus)
	}
	if !records[0].SyncedAt.Equal(syncedAt) {
		t.Errorf("SyncedAt = %v, want %v", records[0].SyncedAt, syncedAt)
	}
}

func TestListIncidents_NewestFirst(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	for i, id := range []string{"inc-a", "inc-b", "inc-c"} {
		rec := model.IncidentRecord{
			ID:         id,
			Category:   model.IncidentOther,
			Note:       "note",
			CreatedAt:  time.UnixMilli(int64(1700000000000 + i*1000)).UTC(),
			SyncStatus: model.IncidentPending,
		}
		if err := s.InsertIncident(ctx, rec); err != nil {
			t.Fatalf("InsertIncident failed: %v", err)
		}
	}

	records, err := s.ListIncidents(ctx)
	if err != nil {
		t.Fatalf("ListIncidents failed: %v", err)
	}
	if len(records) != 3 {
		t.Fatalf("expected 3 records, got %d", len(records))
	}
	if records[0].ID != "inc-c" || records[2].ID != "inc-a" {
		t.Errorf("unexpected order: %s ... %s", records[0].ID, records[2].ID)
	}
}

func TestPendingIncidents_OldestFirstLifecycle(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	rows := []model.PendingIncident{
		{ID: "p2", IncidentID: "inc-2", RiderID: "R42", Category: model.IncidentAccident, Note: "later", CreatedAt: time.UnixMilli(1700000002000).UTC()},
		{ID: "p1", IncidentID: "inc-1", RiderID: "R42", Category: model.IncidentRoadBlock, Note: "earlier", CreatedAt: time.UnixMilli(1700000001000).UTC()},
	}
	for _, p := range rows {
		if err := s.InsertPendingIncident(ctx, p); err != nil {
			t.Fatalf("InsertPendingIncident failed: %v", err)
		}
	}

	count, err := s.CountPendingIncidents(ctx)
	if err != nil {
		t.Fatalf("CountPendingIncidents failed: %v", err)
	}
	if count != 2 {
		t.Fatalf("expected 2 pending, got %d", count)
	}

	pending, err := s.ListPendingIncidents(ctx)
	if err != nil {
		t.Fatalf("ListPendingIncidents failed: %v", err)
	}
	if pending[0].ID != "p1" || pending[1].ID != "p2" {
		t.Errorf("replay order wrong: %s, %s", pending[0].ID, pending[1].ID)
	}

	if err := s.DeletePendingIncident(ctx, "p1"); err != nil {
		t.Fatalf("DeletePendingIncident failed: %v", err)
	}
	count, err = s.CountPendingIncidents(ctx)
	if err != nil {
		t.Fatalf("CountPendingIncidents failed: %v", err)
	}
	if count != 1 {
		t.Errorf("expected 1 pending after delete, got %d", count)
	}
}

func TestInsertPendingIncident_Idempotent(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	p := model.PendingIncident{
		ID: "p1", IncidentID: "inc-1", RiderID: "R42",
		Category: model.IncidentOther, Note: "x",
		CreatedAt: time.UnixMilli(1700000001000).UTC(),
	}
	if err := s.InsertPendingIncident(ctx, p); err != nil {
		t.Fatalf("first insert failed: %v", err)
	}
	if err := s.InsertPendingIncident(ctx, p); err != nil {
		t.Fatalf("duplicate insert failed: %v", err)
	}

	count, err := s.CountPendingIncidents(ctx)
	if err != nil {
		t.Fatalf("CountPendingIncidents failed: %v", err)
	}
	if count != 1 {
		t.Errorf("duplicate id duplicated the row: count=%d", count)
	}
}
