package lifecycle

import (
	"context"
	"io"
	"log/slog"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/unilove/ridersync/internal/fault"
	"github.com/unilove/ridersync/internal/gateway"
	"github.com/unilove/ridersync/internal/model"
	"github.com/unilove/ridersync/internal/store"
	"github.com/unilove/ridersync/internal/testutil"
	"github.com/unilove/ridersync/internal/vault"
)

func newTracker(t *testing.T) (*testutil.FakeGateway, *store.Store, *vault.Vault, *Tracker) {
	t.Helper()
	dir := t.TempDir()

	st, err := store.Open(filepath.Join(dir, "cache.db"))
	require.NoError(t, err)
	t.Cleanup(func() { st.Close() })

	v, err := vault.Open(dir)
	require.NoError(t, err)

	gw := testutil.NewFakeGateway()
	return gw, st, v, New(gw, st, v, slog.New(slog.NewTextHandler(io.Discard, nil)))
}

func seedOrder(t *testing.T, st *store.Store, o model.Order) {
	t.Helper()
	if o.CreatedAt == "" {
		o.CreatedAt = "2025-06-01T08:00:00Z"
	}
	if o.UpdatedAt == "" {
		o.UpdatedAt = o.CreatedAt
	}
	o.CachedAt = time.Date(2025, 6, 1, 9, 0, 0, 0, time.UTC)
	require.NoError(t, st.ReplaceQueue(context.Background(), []model.Order{o}))
}

func trackerSession() *model.Session {
	return &model.Session{RiderID: "R42", AuthToken: "tok-1", Mode: model.LoginModeStaff}
}

func TestStartArrive_Progression(t *testing.T) {
	_, _, _, tr := newTracker(t)

	require.NoError(t, tr.Start("ord-1"))
	assert.True(t, tr.Started("ord-1"))
	require.NoError(t, tr.Start("ord-1"), "start is idempotent")

	require.NoError(t, tr.Arrive("ord-1"))
	assert.True(t, tr.Arrived("ord-1"))
}

func TestArrive_RequiresStart(t *testing.T) {
	_, _, _, tr := newTracker(t)

	err := tr.Arrive("ord-1")
	assert.Equal(t, fault.CodeValidationFailed, fault.CodeOf(err))
	assert.False(t, tr.Arrived("ord-1"))
}

func TestState_SurvivesReopen(t *testing.T) {
	gw, st, v, tr := newTracker(t)
	_ = gw

	require.NoError(t, tr.Start("ord-1"))
	require.NoError(t, tr.Arrive("ord-1"))

	// Fresh tracker over the same vault, as after an app restart.
	tr2 := New(testutil.NewFakeGateway(), st, v, slog.New(slog.NewTextHandler(io.Discard, nil)))
	assert.True(t, tr2.Started("ord-1"))
	assert.True(t, tr2.Arrived("ord-1"))
}

func TestConfirmCollection(t *testing.T) {
	gw, st, _, tr := newTracker(t)
	seedOrder(t, st, model.Order{
		ID: "ord-1", OrderNumber: "UL-1001", CustomerName: "Kofi",
		Status:             model.StatusOutForDelivery,
		RequiresCollection: true, AmountDueCedis: 120,
		PaymentStatus: model.PaymentUnpaid,
	})

	refreshed := 0
	tr.SetRefresh(func(context.Context) { refreshed++ })

	require.NoError(t, tr.ConfirmCollection(context.Background(), trackerSession(), "ord-1"))
	assert.Equal(t, "ord-1", gw.LastCollectID)
	assert.Equal(t, 1, refreshed, "confirmed collection refreshes the cache")
}

func TestConfirmCollection_NothingDue(t *testing.T) {
	gw, st, _, tr := newTracker(t)
	seedOrder(t, st, model.Order{
		ID: "ord-1", OrderNumber: "UL-1001", CustomerName: "Kofi",
		Status: model.StatusOutForDelivery,
	})

	err := tr.ConfirmCollection(context.Background(), trackerSession(), "ord-1")
	assert.Equal(t, fault.CodeValidationFailed, fault.CodeOf(err))
	assert.Zero(t, gw.CollectCalls)
}

func TestVerifyOTP_HappyPath(t *testing.T) {
	gw, st, v, tr := newTracker(t)
	seedOrder(t, st, model.Order{
		ID: "ord-1", OrderNumber: "UL-1001", CustomerName: "Kofi",
		Status: model.StatusOutForDelivery,
	})
	require.NoError(t, tr.Start("ord-1"))
	require.NoError(t, tr.Arrive("ord-1"))

	refreshed := 0
	tr.SetRefresh(func(context.Context) { refreshed++ })

	require.NoError(t, tr.VerifyOTP(context.Background(), trackerSession(), "ord-1", "123456"))
	assert.Equal(t, "ord-1", gw.LastVerifyID)
	assert.Equal(t, "123456", gw.LastCode)
	assert.False(t, tr.Started("ord-1"), "completed delivery leaves the sets")
	assert.False(t, tr.Arrived("ord-1"))
	assert.Empty(t, v.StartedOrderIDs())
	assert.Equal(t, 1, refreshed)
}

func TestVerifyOTP_RequiresArrival(t *testing.T) {
	gw, _, _, tr := newTracker(t)

	err := tr.VerifyOTP(context.Background(), trackerSession(), "ord-1", "123456")
	assert.Equal(t, fault.CodeValidationFailed, fault.CodeOf(err))
	assert.Equal(t, "Mark arrival before OTP verification.", fault.MessageOf(err))
	assert.Zero(t, gw.VerifyCalls)
}

func TestVerifyOTP_RequiresCachedOrder(t *testing.T) {
	gw, _, _, tr := newTracker(t)

	// Arrived state can outlive the cache entry between refreshes; the
	// gate must not be skippable through the gap.
	require.NoError(t, tr.Start("ord-1"))
	require.NoError(t, tr.Arrive("ord-1"))

	err := tr.VerifyOTP(context.Background(), trackerSession(), "ord-1", "123456")
	assert.Equal(t, fault.CodeValidationFailed, fault.CodeOf(err))
	assert.Equal(t, "Order not found in the local queue.", fault.MessageOf(err))
	assert.Zero(t, gw.VerifyCalls)
}

func TestVerifyOTP_CollectionGate(t *testing.T) {
	gw, st, _, tr := newTracker(t)
	seedOrder(t, st, model.Order{
		ID: "ord-1", OrderNumber: "UL-1001", CustomerName: "Kofi",
		Status:             model.StatusOutForDelivery,
		RequiresCollection: true, AmountDueCedis: 80,
		PaymentStatus: model.PaymentUnpaid,
	})
	require.NoError(t, tr.Start("ord-1"))
	require.NoError(t, tr.Arrive("ord-1"))

	err := tr.VerifyOTP(context.Background(), trackerSession(), "ord-1", "123456")
	assert.Equal(t, fault.CodeValidationFailed, fault.CodeOf(err))
	assert.Equal(t, "Confirm payment collection before OTP verification.", fault.MessageOf(err))
	assert.Zero(t, gw.VerifyCalls)

	// Once the server reports the order paid, the gate opens.
	seedOrder(t, st, model.Order{
		ID: "ord-1", OrderNumber: "UL-1001", CustomerName: "Kofi",
		Status:             model.StatusOutForDelivery,
		RequiresCollection: true, AmountDueCedis: 80,
		PaymentStatus: model.PaymentPaid,
	})
	require.NoError(t, tr.VerifyOTP(context.Background(), trackerSession(), "ord-1", "123456"))
}

func TestVerifyOTP_CodeShape(t *testing.T) {
	gw, st, _, tr := newTracker(t)
	seedOrder(t, st, model.Order{
		ID: "ord-1", OrderNumber: "UL-1001", CustomerName: "Kofi",
		Status: model.StatusOutForDelivery,
	})
	require.NoError(t, tr.Start("ord-1"))
	require.NoError(t, tr.Arrive("ord-1"))

	for _, code := range []string{"", "12345", "1234567", "12a456"} {
		err := tr.VerifyOTP(context.Background(), trackerSession(), "ord-1", code)
		assert.Equal(t, fault.CodeValidationFailed, fault.CodeOf(err), "code %q", code)
		assert.Equal(t, "Enter the 6-digit OTP", fault.MessageOf(err))
	}
	assert.Zero(t, gw.VerifyCalls)
}

func TestVerifyOTP_WrongCodeKeepsState(t *testing.T) {
	gw, st, _, tr := newTracker(t)
	seedOrder(t, st, model.Order{
		ID: "ord-1", OrderNumber: "UL-1001", CustomerName: "Kofi",
		Status: model.StatusOutForDelivery,
	})
	require.NoError(t, tr.Start("ord-1"))
	require.NoError(t, tr.Arrive("ord-1"))

	gw.Verify = &gateway.VerifyResult{Success: false, AttemptsRemaining: 2}

	err := tr.VerifyOTP(context.Background(), trackerSession(), "ord-1", "000000")
	assert.Equal(t, fault.CodeServerRejected, fault.CodeOf(err))
	assert.Equal(t, "Invalid OTP. Please recheck with customer.", fault.MessageOf(err))
	assert.True(t, tr.Started("ord-1"), "rejection leaves state for a retry")
	assert.True(t, tr.Arrived("ord-1"))
}

func TestCollectGarbage_Intersections(t *testing.T) {
	_, _, v, tr := newTracker(t)

	require.NoError(t, tr.Start("gone"))    // left the queue
	require.NoError(t, tr.Start("settled")) // delivered, no longer active
	require.NoError(t, tr.Start("live"))
	require.NoError(t, tr.Arrive("gone"))
	require.NoError(t, tr.Arrive("live"))

	tr.CollectGarbage(
		map[string]struct{}{"settled": {}, "live": {}},
		map[string]struct{}{"live": {}},
	)

	assert.False(t, tr.Started("gone"))
	assert.False(t, tr.Started("settled"))
	assert.True(t, tr.Started("live"))
	assert.False(t, tr.Arrived("gone"), "arrived never outlives started")
	assert.True(t, tr.Arrived("live"))

	started := v.StartedOrderIDs()
	assert.Len(t, started, 1)
}
