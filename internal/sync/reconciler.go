// Package sync reconciles the remote order queue with the local cache.
// A refresh pulls the queue through the gateway, maps raw statuses into
// the internal vocabulary, and atomically replaces the cache so it
// mirrors server truth. Failures leave the cache untouched.
package sync

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/unilove/ridersync/internal/fault"
	"github.com/unilove/ridersync/internal/gateway"
	"github.com/unilove/ridersync/internal/model"
	"github.com/unilove/ridersync/internal/store"
	"github.com/unilove/ridersync/internal/vault"
)

// DefaultQueueLimit bounds one queue page, newest orders first.
const DefaultQueueLimit = 120

// ReplaceHook observes every committed cache replacement. The lifecycle
// tracker registers one to garbage-collect its per-order state.
type ReplaceHook func(currentIDs, activeIDs map[string]struct{})

// Reconciler drives refreshes. Safe for concurrent use: overlapping
// Refresh calls coalesce onto one in-flight fetch and share its result.
type Reconciler struct {
	gw     gateway.Gateway
	store  *store.Store
	vault  *vault.Vault
	logger *slog.Logger
	limit  int
	now    func() time.Time

	mu       sync.Mutex
	inflight *refreshCall
	hooks    []ReplaceHook
}

type refreshCall struct {
	done   chan struct{}
	orders []model.Order
	err    error
}

// Option configures a Reconciler.
type Option func(*Reconciler)

// WithQueueLimit overrides the page size requested from the gateway.
func WithQueueLimit(limit int) Option {
	return func(r *Reconciler) { r.limit = limit }
}

// WithClock overrides the wall clock, for deterministic cachedAt stamps
// in tests.
func WithClock(now func() time.Time) Option {
	return func(r *Reconciler) { r.now = now }
}

// New creates a Reconciler.
func New(gw gateway.Gateway, st *store.Store, v *vault.Vault, logger *slog.Logger, opts ...Option) *Reconciler {
	r := &Reconciler{
		gw:     gw,
		store:  st,
		vault:  v,
		logger: logger,
		limit:  DefaultQueueLimit,
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// OnReplace registers a hook invoked after every committed replacement
// with the snapshot's order ids and its active-status subset.
func (r *Reconciler) OnReplace(hook ReplaceHook) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.hooks = append(r.hooks, hook)
}

// Refresh pulls the remote queue and replaces the cache. A missing
// session fails fast with NOT_AUTHENTICATED and no network call. A call
// arriving while another refresh is in flight waits for that refresh and
// returns its result instead of duplicating the fetch; the cache merge
// is idempotent either way.
func (r *Reconciler) Refresh(ctx context.Context, session *model.Session) ([]model.Order, error) {
	if session == nil || session.AuthToken == "" {
		return nil, fault.New(fault.CodeNotAuthenticated, "Sign in to load the dispatch queue.")
	}

	r.mu.Lock()
	if c := r.inflight; c != nil {
		r.mu.Unlock()
		select {
		case <-c.done:
			return c.orders, c.err
		case <-ctx.Done():
			return nil, fault.Wrap(fault.CodeTransportUnreachable, "Request cancelled.", ctx.Err())
		}
	}
	c := &refreshCall{done: make(chan struct{})}
	r.inflight = c
	r.mu.Unlock()

	c.orders, c.err = r.doRefresh(ctx, session)
	r.mu.Lock()
	r.inflight = nil
	r.mu.Unlock()
	close(c.done)

	return c.orders, c.err
}

func (r *Reconciler) doRefresh(ctx context.Context, session *model.Session) ([]model.Order, error) {
	remote, err := r.gw.FetchQueue(ctx, session.AuthToken, r.limit)
	if err != nil {
		r.logger.Debug("queue refresh failed", "code", fault.CodeOf(err))
		return nil, fmt.Errorf("refresh queue: %w", err)
	}

	now := r.now().UTC()
	orders := make([]model.Order, 0, len(remote))
	for _, dto := range remote {
		orders = append(orders, mapOrder(dto, now))
	}

	// A refresh that outlives its session must not resurrect stale data:
	// logout may have cleared the vault while the fetch was in flight.
	current := r.vault.Session()
	if current == nil || current.AuthToken != session.AuthToken {
		return nil, fault.New(fault.CodeNotAuthenticated, "Session ended before refresh completed.")
	}

	if err := r.store.ReplaceQueue(ctx, orders); err != nil {
		return nil, fmt.Errorf("refresh queue: %w", err)
	}

	currentIDs := make(map[string]struct{}, len(orders))
	activeIDs := make(map[string]struct{}, len(orders))
	for _, o := range orders {
		currentIDs[o.ID] = struct{}{}
		if o.Status.Active() {
			activeIDs[o.ID] = struct{}{}
		}
	}

	r.mu.Lock()
	hooks := append([]ReplaceHook(nil), r.hooks...)
	r.mu.Unlock()
	for _, hook := range hooks {
		hook(currentIDs, activeIDs)
	}

	r.logger.Debug("queue refreshed", "orders", len(orders))
	return orders, nil
}

// mapOrder converts a remote order into its cached form. The phone is
// masked before it can persist; the server's pre-masked value wins when
// present.
func mapOrder(dto gateway.RemoteOrder, cachedAt time.Time) model.Order {
	phone := dto.CustomerPhoneMasked
	if phone == "" {
		phone = model.MaskPhone(dto.CustomerPhone)
	}
	return model.Order{
		ID:                    dto.ID,
		OrderNumber:           dto.OrderNumber,
		CustomerName:          dto.CustomerName,
		CustomerPhoneMasked:   phone,
		Address:               dto.Address,
		Status:                model.ParseDeliveryStatus(dto.Status),
		PaymentMethod:         dto.PaymentMethod,
		PaymentStatus:         model.ParsePaymentStatus(dto.PaymentStatus),
		AmountDueCedis:        dto.AmountDueCedis,
		RequiresCollection:    dto.RequiresCollection,
		SubtotalCedis:         dto.SubtotalCedis,
		CommissionRatePercent: dto.CommissionRatePercent,
		CommissionCedis:       dto.CommissionCedis,
		CreatedAt:             dto.CreatedAt,
		UpdatedAt:             dto.UpdatedAt,
		CachedAt:              cachedAt,
	}
}
