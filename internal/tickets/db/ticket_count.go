package db

import (
	"context"
	"fmt"

	"ms-ticketshop/internal/apperrors"
	"ms-ticketshop/internal/models"
)

type TicketTypeCount struct {
	TicketType string `bun:"ticket_type" json:"ticketType"`
	Count      int    `bun:"cnt" json:"count"`
}

// GetTotalTicketsCount returns the number of issued tickets
func (d *DB) GetTotalTicketsCount(ctx context.Context) (int, error) {
	count, err := d.Bun.NewSelect().
		Model((*models.Ticket)(nil)).
		Count(ctx)
	if err != nil {
		return 0, fmt.Errorf("%w: count tickets: %v", apperrors.ErrStorage, err)
	}
	return count, nil
}

// GetTicketCountsByType returns issued tickets grouped by ticket type name
func (d *DB) GetTicketCountsByType(ctx context.Context) ([]TicketTypeCount, error) {
	var counts []TicketTypeCount
	err := d.Bun.NewSelect().
		Model((*models.Ticket)(nil)).
		ColumnExpr("ticket_type").
		ColumnExpr("COUNT(*) AS cnt").
		GroupExpr("ticket_type").
		OrderExpr("ticket_type ASC").
		Scan(ctx, &counts)
	if err != nil {
		return nil, fmt.Errorf("%w: count tickets by type: %v", apperrors.ErrStorage, err)
	}
	return counts, nil
}
