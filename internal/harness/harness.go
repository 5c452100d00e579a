// Package harness drives end-to-end scenarios against a real store and
// vault with a scripted gateway, recording every step's outcome as a
// trace. Traces are compared against golden files, which double as
// executable documentation of the offline-sync behavior.
package harness

import (
	"context"
	"io"
	"log/slog"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/unilove/ridersync/internal/app"
	"github.com/unilove/ridersync/internal/config"
	"github.com/unilove/ridersync/internal/fault"
	"github.com/unilove/ridersync/internal/model"
	"github.com/unilove/ridersync/internal/store"
	"github.com/unilove/ridersync/internal/testutil"
	"github.com/unilove/ridersync/internal/vault"
)

// Event is one recorded step outcome. Outcome is "ok" or the fault code.
type Event struct {
	Op      string `json:"op"`
	Outcome string `json:"outcome"`
	Count   *int   `json:"count,omitempty"`
}

// Runner executes scenario steps in order and accumulates the trace.
type Runner struct {
	t     *testing.T
	ctx   context.Context
	App   *app.App
	GW    *testutil.FakeGateway
	Clock *testutil.Clock

	trace []Event
}

// NewRunner builds a runner over a fresh store and vault in a temp
// directory, with the clock frozen at a fixed instant so traces are
// byte-stable.
func NewRunner(t *testing.T) *Runner {
	t.Helper()
	dir := t.TempDir()

	st, err := store.Open(filepath.Join(dir, "cache.db"))
	require.NoError(t, err)
	t.Cleanup(func() { st.Close() })

	v, err := vault.Open(dir)
	require.NoError(t, err)

	gw := testutil.NewFakeGateway()
	clock := testutil.NewClock(time.Date(2025, 6, 1, 9, 0, 0, 0, time.UTC))
	cfg := &config.Config{BaseURL: "https://api.unilove.app", QueueLimit: 120, Timezone: "UTC"}
	a := app.New(cfg, gw, st, v, slog.New(slog.NewTextHandler(io.Discard, nil)), app.WithClock(clock.Now))

	return &Runner{t: t, ctx: context.Background(), App: a, GW: gw, Clock: clock}
}

// GoOffline scripts every network operation to fail unreachable.
func (r *Runner) GoOffline() {
	err := fault.New(fault.CodeTransportUnreachable, "Cannot reach server. Check internet and retry.")
	r.GW.LoginErr = err
	r.GW.QueueErr = err
	r.GW.VerifyErr = err
	r.GW.CollectErr = err
	r.GW.IncidentErr = err
	r.GW.ShiftErr = err
	r.GW.LogoutErr = err
}

// GoOnline clears all scripted network failures.
func (r *Runner) GoOnline() {
	r.GW.LoginErr = nil
	r.GW.QueueErr = nil
	r.GW.VerifyErr = nil
	r.GW.CollectErr = nil
	r.GW.IncidentErr = nil
	r.GW.ShiftErr = nil
	r.GW.LogoutErr = nil
}

func (r *Runner) record(op string, err error) {
	outcome := "ok"
	if err != nil {
		outcome = string(fault.CodeOf(err))
	}
	r.trace = append(r.trace, Event{Op: op, Outcome: outcome})
}

func (r *Runner) recordCount(op string, n int, err error) {
	outcome := "ok"
	if err != nil {
		outcome = string(fault.CodeOf(err))
	}
	r.trace = append(r.trace, Event{Op: op, Outcome: outcome, Count: &n})
}

// Login runs a staff login attempt with the offline fallback enabled.
func (r *Runner) Login(riderID, pin string) {
	r.t.Helper()
	_, offline, err := r.App.Login(r.ctx, riderID, pin, model.LoginModeStaff, "", true)
	op := "login"
	if err == nil && offline {
		op = "login_offline"
	}
	r.record(op, err)
}

// Logout runs a logout.
func (r *Runner) Logout() {
	r.t.Helper()
	r.record("logout", r.App.Logout(r.ctx))
}

// Refresh pulls the queue, recording the snapshot size.
func (r *Runner) Refresh() {
	r.t.Helper()
	orders, err := r.App.Refresh(r.ctx)
	r.recordCount("refresh", len(orders), err)
}

// Start marks a delivery started.
func (r *Runner) Start(orderID string) {
	r.t.Helper()
	r.record("start", r.App.StartDelivery(orderID))
}

// Arrive marks arrival.
func (r *Runner) Arrive(orderID string) {
	r.t.Helper()
	r.record("arrive", r.App.MarkArrived(orderID))
}

// Collect confirms cash collection.
func (r *Runner) Collect(orderID string) {
	r.t.Helper()
	r.record("collect", r.App.ConfirmCollection(r.ctx, orderID))
}

// Verify submits an OTP for the order.
func (r *Runner) Verify(orderID, code string) {
	r.t.Helper()
	r.record("verify", r.App.VerifyDelivery(r.ctx, orderID, code))
}

// ReportIncident submits a report with the given category.
func (r *Runner) ReportIncident(category model.IncidentCategory, note string) {
	r.t.Helper()
	_, err := r.App.ReportIncident(r.ctx, model.IncidentDraft{Category: category, Note: note})
	r.record("incident_report", err)
}

// SyncIncidents replays the offline incident queue, recording the count.
func (r *Runner) SyncIncidents() {
	r.t.Helper()
	n, err := r.App.SyncIncidents(r.ctx)
	r.recordCount("incident_sync", n, err)
}

// Shift declares availability.
func (r *Runner) Shift(status model.ShiftStatus) {
	r.t.Helper()
	_, err := r.App.UpdateShift(r.ctx, status, "")
	r.record("shift", err)
}
