package db

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"ms-ticketshop/internal/apperrors"
	"ms-ticketshop/internal/models"

	"github.com/uptrace/bun"
)

type DB struct {
	Bun *bun.DB
}

// InsertTicketIfAbsent inserts the ticket unless its ticket_no already exists.
// Reports whether a row was written; on conflict the stored token is kept.
func (d *DB) InsertTicketIfAbsent(ctx context.Context, ticket *models.Ticket) (bool, error) {
	return insertTicketIfAbsent(ctx, d.Bun, ticket)
}

// InsertTicketsTx runs the same insert-or-ignore for a whole batch inside one
// transaction. Any failure rolls back every ticket of the batch.
func (d *DB) InsertTicketsTx(ctx context.Context, tickets []models.Ticket) (int, error) {
	inserted := 0
	err := d.Bun.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		for i := range tickets {
			ok, err := insertTicketIfAbsent(ctx, tx, &tickets[i])
			if err != nil {
				return err
			}
			if ok {
				inserted++
			}
		}
		return nil
	})
	if err != nil {
		return 0, err
	}
	return inserted, nil
}

func insertTicketIfAbsent(ctx context.Context, db bun.IDB, ticket *models.Ticket) (bool, error) {
	res, err := db.NewInsert().
		Model(ticket).
		On("CONFLICT (ticket_no) DO NOTHING").
		Returning("NULL").
		Exec(ctx)
	if err != nil {
		return false, fmt.Errorf("%w: insert ticket %s: %v", apperrors.ErrStorage, ticket.TicketNo, err)
	}

	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("%w: insert ticket %s: %v", apperrors.ErrStorage, ticket.TicketNo, err)
	}
	return n > 0, nil
}

// GetTicketsByOrder → all tickets of an order in issue order
func (d *DB) GetTicketsByOrder(ctx context.Context, extOrderID string) ([]models.Ticket, error) {
	var tickets []models.Ticket
	err := d.Bun.NewSelect().
		Model(&tickets).
		Where("ext_order_id = ?", extOrderID).
		OrderExpr("id ASC").
		Scan(ctx)
	if err != nil {
		return nil, fmt.Errorf("%w: select tickets for %s: %v", apperrors.ErrStorage, extOrderID, err)
	}
	return tickets, nil
}

// GetTicketByToken → ticket joined with its order's status
func (d *DB) GetTicketByToken(ctx context.Context, token string) (*models.TicketLookup, error) {
	var lookup models.TicketLookup
	err := d.Bun.NewSelect().
		ColumnExpr("t.ticket_no, t.ticket_token, t.ext_order_id, t.full_name, t.email, t.ticket_type, t.created_at").
		ColumnExpr("o.status AS order_status").
		TableExpr("tickets AS t").
		Join("LEFT JOIN orders AS o ON o.ext_order_id = t.ext_order_id").
		Where("t.ticket_token = ?", token).
		Limit(1).
		Scan(ctx, &lookup)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("ticket: %w", apperrors.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("%w: select ticket by token: %v", apperrors.ErrStorage, err)
	}
	return &lookup, nil
}

// RecordScan appends a scan event and returns the per-checkpoint counts for
// the same token, both inside one transaction.
func (d *DB) RecordScan(ctx context.Context, scan *models.ScanEvent) ([]models.ScanCount, error) {
	var counts []models.ScanCount
	err := d.Bun.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		if _, err := tx.NewInsert().Model(scan).Returning("NULL").Exec(ctx); err != nil {
			return err
		}
		return countScans(ctx, tx, scan.TicketToken, &counts)
	})
	if err != nil {
		return nil, fmt.Errorf("%w: record scan %s: %v", apperrors.ErrStorage, scan.TicketNo, err)
	}
	return counts, nil
}

func countScans(ctx context.Context, db bun.IDB, token string, counts *[]models.ScanCount) error {
	return db.NewSelect().
		Model((*models.ScanEvent)(nil)).
		ColumnExpr("scanned_for").
		ColumnExpr("COUNT(*) AS cnt").
		Where("ticket_token = ?", token).
		GroupExpr("scanned_for").
		OrderExpr("scanned_for ASC").
		Scan(ctx, counts)
}
