// Package lifecycle tracks the rider-side delivery state machine:
// started, arrived at the customer, cash collected, OTP verified. The
// started/arrived sets persist in the vault so a restart mid-delivery
// resumes where the rider left off.
package lifecycle

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync"

	"github.com/unilove/ridersync/internal/fault"
	"github.com/unilove/ridersync/internal/gateway"
	"github.com/unilove/ridersync/internal/model"
	"github.com/unilove/ridersync/internal/store"
	"github.com/unilove/ridersync/internal/vault"
)

// Tracker owns the per-order delivery progression. All methods are safe
// for concurrent use; set mutations serialize on an internal mutex with
// the vault as the durable copy.
type Tracker struct {
	gw     gateway.Gateway
	store  *store.Store
	vault  *vault.Vault
	logger *slog.Logger

	// refresh, when set, is invoked after server-confirmed transitions so
	// the cache catches up without waiting for the next scheduled pull.
	refresh func(context.Context)

	mu sync.Mutex
}

// New creates a Tracker seeded from the vault's persisted sets.
func New(gw gateway.Gateway, st *store.Store, v *vault.Vault, logger *slog.Logger) *Tracker {
	return &Tracker{gw: gw, store: st, vault: v, logger: logger}
}

// SetRefresh registers the silent-refresh trigger. Composition wires the
// reconciler in here; tests leave it unset.
func (t *Tracker) SetRefresh(fn func(context.Context)) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.refresh = fn
}

// Started reports whether the order's delivery run has begun.
func (t *Tracker) Started(orderID string) bool {
	_, ok := t.vault.StartedOrderIDs()[orderID]
	return ok
}

// Arrived reports whether the rider has marked arrival for the order.
func (t *Tracker) Arrived(orderID string) bool {
	_, ok := t.vault.ArrivedOrderIDs()[orderID]
	return ok
}

// Start marks the order's delivery as underway. Calling it again for the
// same order is a no-op.
func (t *Tracker) Start(orderID string) error {
	if strings.TrimSpace(orderID) == "" {
		return fault.New(fault.CodeValidationFailed, "Select an order first.")
	}
	t.mu.Lock()
	defer t.mu.Unlock()

	started := t.vault.StartedOrderIDs()
	if _, ok := started[orderID]; ok {
		return nil
	}
	started[orderID] = struct{}{}
	if err := t.vault.SaveDeliveryState(started, t.vault.ArrivedOrderIDs()); err != nil {
		return fmt.Errorf("persist delivery state: %w", err)
	}
	t.logger.Info("delivery started", "order", orderID)
	return nil
}

// Arrive marks arrival at the customer. The delivery must have been
// started first.
func (t *Tracker) Arrive(orderID string) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	started := t.vault.StartedOrderIDs()
	if _, ok := started[orderID]; !ok {
		return fault.New(fault.CodeValidationFailed, "Start the delivery before marking arrival.")
	}
	arrived := t.vault.ArrivedOrderIDs()
	if _, ok := arrived[orderID]; ok {
		return nil
	}
	arrived[orderID] = struct{}{}
	if err := t.vault.SaveDeliveryState(started, arrived); err != nil {
		return fmt.Errorf("persist delivery state: %w", err)
	}
	t.logger.Info("arrival marked", "order", orderID)
	return nil
}

// ConfirmCollection reports cash collection for an order that requires
// it. On server confirmation a silent refresh is triggered so the cached
// payment status reflects server truth.
func (t *Tracker) ConfirmCollection(ctx context.Context, session *model.Session, orderID string) error {
	if session == nil || session.AuthToken == "" {
		return fault.New(fault.CodeNotAuthenticated, "Sign in to confirm collection.")
	}
	order, err := t.store.GetOrder(ctx, orderID)
	if err != nil {
		return fmt.Errorf("load order: %w", err)
	}
	if order == nil {
		return fault.New(fault.CodeValidationFailed, "Order not found in the local queue.")
	}
	if !order.RequiresCollection || order.AmountDueCedis <= 0 {
		return fault.New(fault.CodeValidationFailed, "No payment collection is due for this order.")
	}

	res, err := t.gw.ConfirmCollection(ctx, session.AuthToken, orderID)
	if err != nil {
		return fmt.Errorf("confirm collection: %w", err)
	}
	if !res.Confirmed {
		return fault.New(fault.CodeServerRejected, "Server did not confirm the collection.")
	}
	t.logger.Info("collection confirmed", "order", orderID)
	t.silentRefresh(ctx)
	return nil
}

// VerifyOTP completes a delivery with the customer's one-time code. The
// order must be marked arrived, any due cash collection must be
// confirmed first, and the code must be exactly six digits. A wrong code
// is a server rejection; local state is untouched so the rider can retry.
func (t *Tracker) VerifyOTP(ctx context.Context, session *model.Session, orderID, code string) error {
	if session == nil || session.AuthToken == "" {
		return fault.New(fault.CodeNotAuthenticated, "Sign in to verify delivery.")
	}
	if !t.Arrived(orderID) {
		return fault.New(fault.CodeValidationFailed, "Mark arrival before OTP verification.")
	}

	order, err := t.store.GetOrder(ctx, orderID)
	if err != nil {
		return fmt.Errorf("load order: %w", err)
	}
	if order == nil {
		return fault.New(fault.CodeValidationFailed, "Order not found in the local queue.")
	}
	if order.CollectionPending() {
		return fault.New(fault.CodeValidationFailed, "Confirm payment collection before OTP verification.")
	}

	code = strings.TrimSpace(code)
	if !isSixDigits(code) {
		return fault.New(fault.CodeValidationFailed, "Enter the 6-digit OTP")
	}

	res, err := t.gw.VerifyDelivery(ctx, session.AuthToken, orderID, code)
	if err != nil {
		return fmt.Errorf("verify delivery: %w", err)
	}
	if !res.Success {
		return fault.New(fault.CodeServerRejected, "Invalid OTP. Please recheck with customer.")
	}

	t.mu.Lock()
	started := t.vault.StartedOrderIDs()
	arrived := t.vault.ArrivedOrderIDs()
	delete(started, orderID)
	delete(arrived, orderID)
	err = t.vault.SaveDeliveryState(started, arrived)
	t.mu.Unlock()
	if err != nil {
		return fmt.Errorf("persist delivery state: %w", err)
	}

	t.logger.Info("delivery verified", "order", orderID)
	t.silentRefresh(ctx)
	return nil
}

// CollectGarbage drops state for orders that left the queue or are no
// longer active. Started keeps only ids present and active in the
// snapshot; arrived can never outlive started. Registered with the
// reconciler so it runs after every cache replace.
func (t *Tracker) CollectGarbage(currentIDs, activeIDs map[string]struct{}) {
	t.mu.Lock()
	defer t.mu.Unlock()

	started := t.vault.StartedOrderIDs()
	arrived := t.vault.ArrivedOrderIDs()

	changed := false
	for id := range started {
		if _, ok := currentIDs[id]; !ok {
			delete(started, id)
			changed = true
			continue
		}
		if _, ok := activeIDs[id]; !ok {
			delete(started, id)
			changed = true
		}
	}
	for id := range arrived {
		if _, ok := started[id]; !ok {
			delete(arrived, id)
			changed = true
		}
	}
	if !changed {
		return
	}
	if err := t.vault.SaveDeliveryState(started, arrived); err != nil {
		t.logger.Warn("delivery state cleanup failed", "error", err)
	}
}

func (t *Tracker) silentRefresh(ctx context.Context) {
	t.mu.Lock()
	fn := t.refresh
	t.mu.Unlock()
	if fn != nil {
		fn(ctx)
	}
}

func isSixDigits(code string) bool {
	if len(code) != 6 {
		return false
	}
	for _, r := range code {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}
