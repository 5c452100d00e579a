// Package app composes the storage, vault, gateway, and engine pieces
// into the rider-facing use cases. Every operation a command invokes
// lives here; the CLI layer only parses arguments and renders results.
package app

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/unilove/ridersync/internal/config"
	"github.com/unilove/ridersync/internal/fault"
	"github.com/unilove/ridersync/internal/gateway"
	"github.com/unilove/ridersync/internal/incident"
	"github.com/unilove/ridersync/internal/lifecycle"
	"github.com/unilove/ridersync/internal/metrics"
	"github.com/unilove/ridersync/internal/model"
	"github.com/unilove/ridersync/internal/store"
	"github.com/unilove/ridersync/internal/sync"
	"github.com/unilove/ridersync/internal/vault"
)

// App is the composition root for a single rider device.
type App struct {
	cfg       *config.Config
	gw        gateway.Gateway
	store     *store.Store
	vault     *vault.Vault
	rec       *sync.Reconciler
	incidents *incident.Queue
	tracker   *lifecycle.Tracker
	logger    *slog.Logger
	now       func() time.Time
}

// Option configures an App.
type Option func(*App)

// WithClock overrides the wall clock for deterministic tests.
func WithClock(now func() time.Time) Option {
	return func(a *App) { a.now = now }
}

// New wires an App over already-opened store and vault. The reconciler,
// incident queue, and tracker are constructed here so the lifecycle
// garbage collector and the silent-refresh trigger are hooked up exactly
// once.
func New(cfg *config.Config, gw gateway.Gateway, st *store.Store, v *vault.Vault, logger *slog.Logger, opts ...Option) *App {
	a := &App{
		cfg:    cfg,
		gw:     gw,
		store:  st,
		vault:  v,
		logger: logger,
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(a)
	}

	a.rec = sync.New(gw, st, v, logger, sync.WithQueueLimit(cfg.QueueLimit), sync.WithClock(a.now))
	a.incidents = incident.New(gw, st, logger, incident.WithClock(a.now))
	a.tracker = lifecycle.New(gw, st, v, logger)

	a.rec.OnReplace(a.tracker.CollectGarbage)
	a.tracker.SetRefresh(func(ctx context.Context) {
		if _, err := a.Refresh(ctx); err != nil {
			logger.Debug("silent refresh failed", "code", fault.CodeOf(err))
		}
	})
	return a
}

// Store exposes the cache for read-side subscriptions.
func (a *App) Store() *store.Store { return a.store }

// Vault exposes the credential vault for read-side subscriptions.
func (a *App) Vault() *vault.Vault { return a.vault }

// Tracker exposes the delivery lifecycle tracker.
func (a *App) Tracker() *lifecycle.Tracker { return a.tracker }

// Session returns the active session, or nil.
func (a *App) Session() *model.Session { return a.vault.Session() }

// Login signs the rider in. The online path is always attempted first;
// when it fails and offline is permitted, the cached credential is
// tried with the same inputs. The offline failure is the one surfaced
// when both fail; with offline disallowed the original online failure
// comes back untouched. The returned bool reports an offline session.
func (a *App) Login(ctx context.Context, riderID, pin string, mode model.LoginMode, riderName string, offlineAllowed bool) (*model.Session, bool, error) {
	riderID = strings.TrimSpace(riderID)
	pin = strings.TrimSpace(pin)
	riderName = strings.TrimSpace(riderName)

	if mode == model.LoginModeGuest {
		if riderName == "" {
			return nil, false, fault.New(fault.CodeValidationFailed, "Enter a display name for guest access.")
		}
	} else if riderID == "" || pin == "" {
		return nil, false, fault.New(fault.CodeValidationFailed, "Enter your rider ID and PIN.")
	}

	session, err := a.loginOnline(ctx, riderID, pin, mode, riderName)
	if err == nil {
		return session, false, nil
	}
	if !offlineAllowed || mode == model.LoginModeGuest {
		return nil, false, err
	}

	a.logger.Info("online login failed, trying offline credential", "code", fault.CodeOf(err))
	session, offErr := a.loginOffline(riderID, pin)
	if offErr != nil {
		return nil, false, offErr
	}
	return session, true, nil
}

func (a *App) loginOnline(ctx context.Context, riderID, pin string, mode model.LoginMode, riderName string) (*model.Session, error) {
	res, err := a.gw.Login(ctx, gateway.LoginRequest{
		Mode:      strings.ToLower(string(mode)),
		RiderID:   riderID,
		RiderName: riderName,
		PIN:       pin,
		Platform:  "cli",
	})
	if err != nil {
		return nil, fmt.Errorf("online login: %w", err)
	}

	session := model.Session{
		RiderID:         res.Rider.ID,
		RiderName:       res.Rider.FullName,
		AuthToken:       res.Token,
		AuthenticatedAt: a.now().UTC(),
		Mode:            mode,
	}
	if session.RiderID == "" {
		session.RiderID = riderID
	}
	if err := a.vault.SaveSession(session); err != nil {
		return nil, fmt.Errorf("persist session: %w", err)
	}
	if mode == model.LoginModeStaff && riderID != "" && pin != "" {
		if err := a.vault.SaveOfflinePIN(riderID, pin); err != nil {
			return nil, fmt.Errorf("persist offline credential: %w", err)
		}
	}
	if err := a.vault.SaveShiftStatus(model.ShiftOffline); err != nil {
		return nil, fmt.Errorf("reset shift: %w", err)
	}

	// Best effort: the device stays reachable for dispatch pushes.
	if a.cfg.DeviceToken != "" {
		if err := a.gw.RegisterDeviceToken(ctx, session.AuthToken, a.cfg.DeviceToken, a.cfg.DeviceID); err != nil {
			a.logger.Debug("device token registration failed", "code", fault.CodeOf(err))
		}
	}

	// Best effort: drain incidents reported while signed out.
	if n, err := a.incidents.FlushPending(ctx, &session); err != nil {
		a.logger.Debug("post-login incident flush failed", "code", fault.CodeOf(err))
	} else if n > 0 {
		a.logger.Info("post-login incident flush", "count", n)
	}

	a.logger.Info("signed in", "rider", session.RiderID, "mode", mode)
	return &session, nil
}

func (a *App) loginOffline(riderID, pin string) (*model.Session, error) {
	cached := a.vault.Session()
	if cached == nil || cached.Mode == model.LoginModeGuest {
		return nil, fault.New(fault.CodeInvalidOfflineCredential, "Offline sign-in unavailable. Connect and sign in once first.")
	}
	if !a.vault.VerifyOfflinePIN(riderID, pin) {
		return nil, fault.New(fault.CodeInvalidOfflineCredential, "Offline sign-in failed. Check rider ID and PIN.")
	}
	a.logger.Info("signed in offline", "rider", cached.RiderID)
	return cached, nil
}

// Logout ends the session. The remote call is best effort; local state
// always normalizes: session and lifecycle state cleared, preferences
// kept, shift OFFLINE. Without a session only the local normalize runs.
func (a *App) Logout(ctx context.Context) error {
	if s := a.vault.Session(); s != nil && s.AuthToken != "" {
		if err := a.gw.Logout(ctx, s.AuthToken); err != nil {
			a.logger.Warn("remote logout failed", "code", fault.CodeOf(err))
		}
	}
	if err := a.vault.Clear(); err != nil {
		return fmt.Errorf("clear vault: %w", err)
	}
	a.logger.Info("signed out")
	return nil
}

// Refresh pulls the dispatch queue into the cache.
func (a *App) Refresh(ctx context.Context) ([]model.Order, error) {
	orders, err := a.rec.Refresh(ctx, a.vault.Session())
	return orders, a.normalize(err)
}

// Orders lists the cached queue without touching the network.
func (a *App) Orders(ctx context.Context) ([]model.Order, error) {
	return a.store.ListOrders(ctx)
}

// Metrics computes today's performance numbers from the cached queue.
func (a *App) Metrics(ctx context.Context) (model.Metrics, error) {
	orders, err := a.store.ListOrders(ctx)
	if err != nil {
		return model.Metrics{}, err
	}
	return metrics.Compute(orders, a.now(), a.cfg.Zone()), nil
}

// StartDelivery marks an order's run as begun.
func (a *App) StartDelivery(orderID string) error {
	return a.tracker.Start(orderID)
}

// MarkArrived records arrival at the customer.
func (a *App) MarkArrived(orderID string) error {
	return a.tracker.Arrive(orderID)
}

// ConfirmCollection reports cash collection for the order.
func (a *App) ConfirmCollection(ctx context.Context, orderID string) error {
	return a.normalize(a.tracker.ConfirmCollection(ctx, a.vault.Session(), orderID))
}

// VerifyDelivery completes a delivery with the customer's OTP.
func (a *App) VerifyDelivery(ctx context.Context, orderID, code string) error {
	return a.normalize(a.tracker.VerifyOTP(ctx, a.vault.Session(), orderID, code))
}

// ReportIncident submits an incident report, falling back to the
// offline queue when the submission fails.
func (a *App) ReportIncident(ctx context.Context, draft model.IncidentDraft) (model.IncidentRecord, error) {
	rec, err := a.incidents.Submit(ctx, a.vault.Session(), draft)
	return rec, a.normalize(err)
}

// SyncIncidents replays incidents saved offline.
func (a *App) SyncIncidents(ctx context.Context) (int, error) {
	n, err := a.incidents.FlushPending(ctx, a.vault.Session())
	return n, a.normalize(err)
}

// IncidentHistory returns the audit log, newest first.
func (a *App) IncidentHistory(ctx context.Context) ([]model.IncidentRecord, error) {
	return a.incidents.History(ctx)
}

// PendingIncidentCount reports how many incidents await replay.
func (a *App) PendingIncidentCount(ctx context.Context) (int, error) {
	return a.incidents.PendingCount(ctx)
}

// UpdateShift declares the rider's availability. The server's resolved
// status is what gets persisted, not the requested one.
func (a *App) UpdateShift(ctx context.Context, status model.ShiftStatus, note string) (model.ShiftStatus, error) {
	s := a.vault.Session()
	if s == nil || s.AuthToken == "" {
		return a.vault.ShiftStatus(), fault.New(fault.CodeNotAuthenticated, "Sign in to change shift status.")
	}
	res, err := a.gw.UpdateShift(ctx, s.AuthToken, status.APIValue(), note)
	if err != nil {
		return a.vault.ShiftStatus(), a.normalize(fmt.Errorf("update shift: %w", err))
	}
	resolved := model.ParseShiftStatus(res.ShiftStatus, status)
	if err := a.vault.SaveShiftStatus(resolved); err != nil {
		return a.vault.ShiftStatus(), fmt.Errorf("persist shift: %w", err)
	}
	a.logger.Info("shift updated", "status", resolved)
	return resolved, nil
}

// RegisterDeviceToken registers a push token for the active session.
// Best effort by contract; callers treat failures as soft.
func (a *App) RegisterDeviceToken(ctx context.Context, deviceToken, deviceID string) error {
	s := a.vault.Session()
	if s == nil || s.AuthToken == "" {
		return fault.New(fault.CodeNotAuthenticated, "Sign in to register this device.")
	}
	if err := a.gw.RegisterDeviceToken(ctx, s.AuthToken, deviceToken, deviceID); err != nil {
		return a.normalize(fmt.Errorf("register device token: %w", err))
	}
	return nil
}

// RunAutoRefresh periodically pulls the queue and drains the incident
// backlog while a session exists and the rider is on shift. Blocks until
// the context ends.
func (a *App) RunAutoRefresh(ctx context.Context) {
	ticker := time.NewTicker(a.cfg.RefreshInterval())
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			a.autoRefreshTick(ctx)
		}
	}
}

func (a *App) autoRefreshTick(ctx context.Context) {
	s := a.vault.Session()
	if s == nil || s.AuthToken == "" || a.vault.ShiftStatus() != model.ShiftOnline {
		return
	}
	if _, err := a.Refresh(ctx); err != nil {
		a.logger.Debug("scheduled refresh failed", "code", fault.CodeOf(err))
	}
	if _, err := a.SyncIncidents(ctx); err != nil {
		a.logger.Debug("scheduled incident flush failed", "code", fault.CodeOf(err))
	}
}

// normalize applies the forced-logout rule: a 401 observed anywhere
// clears the session so the next command routes to login.
func (a *App) normalize(err error) error {
	if err == nil {
		return nil
	}
	if fault.IsSessionExpired(err) {
		if clearErr := a.vault.Clear(); clearErr != nil {
			a.logger.Warn("session clear after 401 failed", "error", clearErr)
		}
	}
	return err
}
