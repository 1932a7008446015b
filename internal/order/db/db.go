package db

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"ms-ticketshop/internal/apperrors"
	"ms-ticketshop/internal/models"

	"github.com/uptrace/bun"
)

type DB struct {
	Bun *bun.DB
}

// ---------------- ORDERS ----------------

// CreateOrder → insert a new order row
func (d *DB) CreateOrder(ctx context.Context, order *models.Order) error {
	_, err := d.Bun.NewInsert().Model(order).Exec(ctx)
	if err != nil {
		return fmt.Errorf("%w: insert order %s: %v", apperrors.ErrStorage, order.ExtOrderID, err)
	}
	return nil
}

// GetOrderByID → fetch one order by its external id
func (d *DB) GetOrderByID(ctx context.Context, extOrderID string) (*models.Order, error) {
	var order models.Order
	err := d.Bun.NewSelect().
		Model(&order).
		Where("ext_order_id = ?", extOrderID).
		Limit(1).
		Scan(ctx)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("order %s: %w", extOrderID, apperrors.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("%w: select order %s: %v", apperrors.ErrStorage, extOrderID, err)
	}
	return &order, nil
}

// MergeOrderStatus → write status and remote id without ever nulling a stored value.
// The merge is done by the database, so concurrent webhook and poll writers
// need no coordination.
func (d *DB) MergeOrderStatus(ctx context.Context, update models.StatusUpdate) error {
	res, err := d.Bun.NewUpdate().
		Model((*models.Order)(nil)).
		Set("status = COALESCE(?, status)", update.Status).
		Set("payu_order_id = COALESCE(?, payu_order_id)", update.RemoteOrderID).
		Set("updated_at = ?", time.Now().UTC()).
		Where("ext_order_id = ?", update.ExtOrderID).
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("%w: merge order %s: %v", apperrors.ErrStorage, update.ExtOrderID, err)
	}

	n, err := res.RowsAffected()
	if err == nil && n == 0 {
		return fmt.Errorf("order %s: %w", update.ExtOrderID, apperrors.ErrNotFound)
	}
	return nil
}
