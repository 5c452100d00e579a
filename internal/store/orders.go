package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/unilove/ridersync/internal/model"
)

// ReplaceQueue atomically replaces the cached order queue with the given
// snapshot: rows whose id is not in the snapshot are deleted, then the
// snapshot is upserted, all inside one transaction. A concurrent reader
// never observes an intermediate state, and replaying the same snapshot
// leaves the cache unchanged.
//
// An empty snapshot empties the cache: the cache mirrors server truth,
// never a superset of it.
func (s *Store) ReplaceQueue(ctx context.Context, orders []model.Order) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("replace queue: %w", err)
	}
	defer tx.Rollback()

	if len(orders) == 0 {
		if _, err := tx.ExecContext(ctx, `DELETE FROM order_cache`); err != nil {
			return fmt.Errorf("replace queue: clear: %w", err)
		}
	} else {
		// Delete rows absent from the snapshot. Ids are passed through a
		// temp table to keep the statement bounded regardless of size.
		if _, err := tx.ExecContext(ctx, `
			CREATE TEMP TABLE IF NOT EXISTS snapshot_ids (id TEXT PRIMARY KEY)
		`); err != nil {
			return fmt.Errorf("replace queue: temp table: %w", err)
		}
		if _, err := tx.ExecContext(ctx, `DELETE FROM snapshot_ids`); err != nil {
			return fmt.Errorf("replace queue: temp table: %w", err)
		}
		for _, o := range orders {
			if _, err := tx.ExecContext(ctx,
				`INSERT INTO snapshot_ids (id) VALUES (?) ON CONFLICT(id) DO NOTHING`, o.ID); err != nil {
				return fmt.Errorf("replace queue: temp table: %w", err)
			}
		}
		if _, err := tx.ExecContext(ctx, `
			DELETE FROM order_cache WHERE id NOT IN (SELECT id FROM snapshot_ids)
		`); err != nil {
			return fmt.Errorf("replace queue: prune: %w", err)
		}

		for _, o := range orders {
			if _, err := tx.ExecContext(ctx, `
				INSERT INTO order_cache
				(id, order_number, customer_name, customer_phone_masked, address, status,
				 payment_method, payment_status, amount_due_cedis, requires_collection,
				 subtotal_cedis, commission_rate_percent, commission_cedis,
				 created_at, updated_at, cached_at_epoch_ms)
				VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
				ON CONFLICT(id) DO UPDATE SET
					order_number = excluded.order_number,
					customer_name = excluded.customer_name,
					customer_phone_masked = excluded.customer_phone_masked,
					address = excluded.address,
					status = excluded.status,
					payment_method = excluded.payment_method,
					payment_status = excluded.payment_status,
					amount_due_cedis = excluded.amount_due_cedis,
					requires_collection = excluded.requires_collection,
					subtotal_cedis = excluded.subtotal_cedis,
					commission_rate_percent = excluded.commission_rate_percent,
					commission_cedis = excluded.commission_cedis,
					created_at = excluded.created_at,
					updated_at = excluded.updated_at,
					cached_at_epoch_ms = excluded.cached_at_epoch_ms
			`,
				o.ID,
				o.OrderNumber,
				o.CustomerName,
				o.CustomerPhoneMasked,
				o.Address,
				string(o.Status),
				o.PaymentMethod,
				string(o.PaymentStatus),
				o.AmountDueCedis,
				boolToInt(o.RequiresCollection),
				o.SubtotalCedis,
				o.CommissionRatePercent,
				o.CommissionCedis,
				o.CreatedAt,
				o.UpdatedAt,
				o.CachedAt.UnixMilli(),
			); err != nil {
				return fmt.Errorf("replace queue: upsert %s: %w", o.ID, err)
			}
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("replace queue: commit: %w", err)
	}

	return s.republishOrders(ctx)
}

// ListOrders returns the cached queue ordered by creation time, oldest
// first. Returns an empty slice (not nil) when the cache is empty.
func (s *Store) ListOrders(ctx context.Context) ([]model.Order, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, order_number, customer_name, customer_phone_masked, address, status,
		       payment_method, payment_status, amount_due_cedis, requires_collection,
		       subtotal_cedis, commission_rate_percent, commission_cedis,
		       created_at, updated_at, cached_at_epoch_ms
		FROM order_cache
		ORDER BY created_at ASC, id ASC
	`)
	if err != nil {
		return nil, fmt.Errorf("list orders: %w", err)
	}
	defer rows.Close()

	orders := []model.Order{}
	for rows.Next() {
		var (
			o          model.Order
			status     string
			payStatus  string
			collecting int
			cachedAtMs int64
		)
		if err := rows.Scan(
			&o.ID, &o.OrderNumber, &o.CustomerName, &o.CustomerPhoneMasked, &o.Address, &status,
			&o.PaymentMethod, &payStatus, &o.AmountDueCedis, &collecting,
			&o.SubtotalCedis, &o.CommissionRatePercent, &o.CommissionCedis,
			&o.CreatedAt, &o.UpdatedAt, &cachedAtMs,
		); err != nil {
			return nil, fmt.Errorf("scan order: %w", err)
		}
		o.Status = model.DeliveryStatus(status)
		o.PaymentStatus = model.PaymentStatus(payStatus)
		o.RequiresCollection = collecting != 0
		o.CachedAt = time.UnixMilli(cachedAtMs).UTC()
		orders = append(orders, o)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate orders: %w", err)
	}

	return orders, nil
}

// GetOrder returns one cached order by id, or (nil, nil) when absent.
func (s *Store) GetOrder(ctx context.Context, id string) (*model.Order, error) {
	var (
		o          model.Order
		status     string
		payStatus  string
		collecting int
		cachedAtMs int64
	)
	err := s.db.QueryRowContext(ctx, `
		SELECT id, order_number, customer_name, customer_phone_masked, address, status,
		       payment_method, payment_status, amount_due_cedis, requires_collection,
		       subtotal_cedis, commission_rate_percent, commission_cedis,
		       created_at, updated_at, cached_at_epoch_ms
		FROM order_cache
		WHERE id = ?
	`, id).Scan(
		&o.ID, &o.OrderNumber, &o.CustomerName, &o.CustomerPhoneMasked, &o.Address, &status,
		&o.PaymentMethod, &payStatus, &o.AmountDueCedis, &collecting,
		&o.SubtotalCedis, &o.CommissionRatePercent, &o.CommissionCedis,
		&o.CreatedAt, &o.UpdatedAt, &cachedAtMs,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get order: %w", err)
	}
	o.Status = model.DeliveryStatus(status)
	o.PaymentStatus = model.PaymentStatus(payStatus)
	o.RequiresCollection = collecting != 0
	o.CachedAt = time.UnixMilli(cachedAtMs).UTC()
	return &o, nil
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
