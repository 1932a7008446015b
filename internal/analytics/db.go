package analytics

import (
	"context"
	"fmt"
	"time"

	"ms-ticketshop/internal/apperrors"
	"ms-ticketshop/internal/models"

	"github.com/uptrace/bun"
)

// DB handles analytics database operations
type DB struct {
	bun *bun.DB
}

// NewDB creates a new analytics DB handler
func NewDB(db *bun.DB) *DB {
	return &DB{bun: db}
}

// StatusTotals is one row of the orders-by-status breakdown
type StatusTotals struct {
	Status string `bun:"status" json:"status"`
	Orders int    `bun:"cnt" json:"orders"`
	Amount int64  `bun:"amount" json:"amount"`
}

// TypeTotals counts tickets issued per ticket type
type TypeTotals struct {
	TicketType string `bun:"ticket_type" json:"ticketType"`
	Tickets    int    `bun:"cnt" json:"tickets"`
}

// CheckpointTotals counts scans and distinct tickets at one checkpoint
type CheckpointTotals struct {
	ScannedFor string `bun:"scanned_for" json:"scannedFor"`
	Scans      int    `bun:"cnt" json:"scans"`
	Tickets    int    `bun:"tickets" json:"tickets"`
}

// PaidOrder is the slice of a completed order daily sales are built from
type PaidOrder struct {
	TotalAmount  int64     `bun:"total_amount"`
	Quantity     int       `bun:"quantity"`
	PromoApplied bool      `bun:"promo_applied"`
	CreatedAt    time.Time `bun:"created_at"`
}

// GetOrderTotalsByStatus groups all orders by their stored status
func (db *DB) GetOrderTotalsByStatus(ctx context.Context) ([]StatusTotals, error) {
	var rows []StatusTotals
	err := db.bun.NewSelect().
		Model((*models.Order)(nil)).
		Column("status").
		ColumnExpr("COUNT(*) AS cnt").
		ColumnExpr("COALESCE(SUM(total_amount), 0) AS amount").
		Group("status").
		Order("status ASC").
		Scan(ctx, &rows)
	if err != nil {
		return nil, fmt.Errorf("%w: order totals: %v", apperrors.ErrStorage, err)
	}
	return rows, nil
}

// GetPaidOrders returns completed orders, oldest first
func (db *DB) GetPaidOrders(ctx context.Context) ([]PaidOrder, error) {
	var rows []PaidOrder
	err := db.bun.NewSelect().
		Model((*models.Order)(nil)).
		Column("total_amount", "quantity", "promo_applied", "created_at").
		Where("UPPER(status) = ?", models.StatusCompleted).
		Order("created_at ASC").
		Scan(ctx, &rows)
	if err != nil {
		return nil, fmt.Errorf("%w: paid orders: %v", apperrors.ErrStorage, err)
	}
	return rows, nil
}

// GetTicketTotalsByType groups issued tickets by type name
func (db *DB) GetTicketTotalsByType(ctx context.Context) ([]TypeTotals, error) {
	var rows []TypeTotals
	err := db.bun.NewSelect().
		Model((*models.Ticket)(nil)).
		Column("ticket_type").
		ColumnExpr("COUNT(*) AS cnt").
		Group("ticket_type").
		Order("ticket_type ASC").
		Scan(ctx, &rows)
	if err != nil {
		return nil, fmt.Errorf("%w: ticket totals: %v", apperrors.ErrStorage, err)
	}
	return rows, nil
}

// GetScanTotalsByCheckpoint groups the scan log by checkpoint
func (db *DB) GetScanTotalsByCheckpoint(ctx context.Context) ([]CheckpointTotals, error) {
	var rows []CheckpointTotals
	err := db.bun.NewSelect().
		Model((*models.ScanEvent)(nil)).
		Column("scanned_for").
		ColumnExpr("COUNT(*) AS cnt").
		ColumnExpr("COUNT(DISTINCT ticket_no) AS tickets").
		Group("scanned_for").
		Order("scanned_for ASC").
		Scan(ctx, &rows)
	if err != nil {
		return nil, fmt.Errorf("%w: scan totals: %v", apperrors.ErrStorage, err)
	}
	return rows, nil
}

// CountScannedTickets counts tickets scanned at least once anywhere
func (db *DB) CountScannedTickets(ctx context.Context) (int, error) {
	var n int
	err := db.bun.NewSelect().
		Model((*models.ScanEvent)(nil)).
		ColumnExpr("COUNT(DISTINCT ticket_no)").
		Scan(ctx, &n)
	if err != nil {
		return 0, fmt.Errorf("%w: scanned tickets: %v", apperrors.ErrStorage, err)
	}
	return n, nil
}
