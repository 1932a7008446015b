package tickets

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"ms-ticketshop/internal/apperrors"
	"ms-ticketshop/internal/logger"
	"ms-ticketshop/internal/models"
	"ms-ticketshop/internal/utils"
)

type TicketDBLayer interface {
	InsertTicketIfAbsent(ctx context.Context, ticket *models.Ticket) (bool, error)
	InsertTicketsTx(ctx context.Context, tickets []models.Ticket) (int, error)
	GetTicketsByOrder(ctx context.Context, extOrderID string) ([]models.Ticket, error)
	GetTicketByToken(ctx context.Context, token string) (*models.TicketLookup, error)
	RecordScan(ctx context.Context, scan *models.ScanEvent) ([]models.ScanCount, error)
}

type OrderReader interface {
	GetOrderByID(ctx context.Context, extOrderID string) (*models.Order, error)
}

type EventPublisher interface {
	PublishTicketsIssued(ctx context.Context, event models.OrderEvent) error
}

type TicketService struct {
	DB       TicketDBLayer
	Orders   OrderReader
	Events   EventPublisher
	Logger   *logger.Logger
	NewToken func() (string, error)
	Now      func() time.Time

	// Atomic routes IssueTickets through IssueTicketsTx.
	Atomic bool
}

func NewTicketService(db TicketDBLayer, orders OrderReader, events EventPublisher, log *logger.Logger) *TicketService {
	return &TicketService{
		DB:       db,
		Orders:   orders,
		Events:   events,
		Logger:   log,
		NewToken: utils.GenerateTicketToken,
		Now:      time.Now,
	}
}

// TicketNumber is deterministic in (order, index). Issuance relies on the
// unique ticket_no to make repeated calls insert nothing new.
func TicketNumber(extOrderID string, i int) string {
	return fmt.Sprintf("%s-%d", extOrderID, i)
}

// IssueTickets makes sure tickets 1..quantity exist for a completed order.
// Safe to call any number of times, concurrently. A failed insert does not
// stop the remaining ones; all failures are returned joined.
func (s *TicketService) IssueTickets(ctx context.Context, extOrderID string) (int, error) {
	if s.Atomic {
		return s.IssueTicketsTx(ctx, extOrderID)
	}

	order, err := s.completedOrder(ctx, extOrderID)
	if err != nil {
		return 0, err
	}

	issued := 0
	var errs []error
	for i := 1; i <= order.Quantity; i++ {
		ticket, err := s.newTicket(order, i)
		if err != nil {
			errs = append(errs, err)
			continue
		}

		inserted, err := s.DB.InsertTicketIfAbsent(ctx, ticket)
		if err != nil {
			errs = append(errs, err)
			continue
		}
		if inserted {
			issued++
		}
	}

	s.Logger.LogOrder("ISSUE", extOrderID, fmt.Sprintf("quantity=%d new=%d failed=%d", order.Quantity, issued, len(errs)))
	s.publishIssued(ctx, order, issued)

	return issued, errors.Join(errs...)
}

// IssueTicketsTx is the all-or-nothing variant: the 1..quantity batch is
// written in one transaction, so either every missing ticket is stored or
// none is. Existing tickets are still skipped, keeping it idempotent.
func (s *TicketService) IssueTicketsTx(ctx context.Context, extOrderID string) (int, error) {
	order, err := s.completedOrder(ctx, extOrderID)
	if err != nil {
		return 0, err
	}

	batch := make([]models.Ticket, 0, order.Quantity)
	for i := 1; i <= order.Quantity; i++ {
		ticket, err := s.newTicket(order, i)
		if err != nil {
			return 0, err
		}
		batch = append(batch, *ticket)
	}

	issued, err := s.DB.InsertTicketsTx(ctx, batch)
	if err != nil {
		s.Logger.Error("ISSUE", fmt.Sprintf("Batch for %s rolled back: %v", extOrderID, err))
		return 0, err
	}

	s.Logger.LogOrder("ISSUE", extOrderID, fmt.Sprintf("quantity=%d new=%d atomic", order.Quantity, issued))
	s.publishIssued(ctx, order, issued)

	return issued, nil
}

func (s *TicketService) completedOrder(ctx context.Context, extOrderID string) (*models.Order, error) {
	order, err := s.Orders.GetOrderByID(ctx, extOrderID)
	if err != nil {
		return nil, err
	}
	if !models.IsCompleted(order.Status) {
		return nil, fmt.Errorf("issue tickets for %s (status %s): %w", extOrderID, order.Status, apperrors.ErrOrderNotCompleted)
	}
	return order, nil
}

func (s *TicketService) newTicket(order *models.Order, i int) (*models.Ticket, error) {
	token, err := s.NewToken()
	if err != nil {
		return nil, err
	}
	return &models.Ticket{
		TicketNo:    TicketNumber(order.ExtOrderID, i),
		TicketToken: token,
		ExtOrderID:  order.ExtOrderID,
		FullName:    order.FullName,
		Email:       order.Email,
		TicketType:  order.TicketType,
		CreatedAt:   s.Now().UTC(),
	}, nil
}

func (s *TicketService) publishIssued(ctx context.Context, order *models.Order, issued int) {
	if issued == 0 || s.Events == nil {
		return
	}
	event := models.OrderEvent{
		Type:          models.EventTicketsIssued,
		ExtOrderID:    order.ExtOrderID,
		Status:        order.Status,
		TicketType:    order.TicketType,
		Quantity:      order.Quantity,
		TicketsIssued: issued,
		OccurredAt:    s.Now().UTC(),
	}
	if err := s.Events.PublishTicketsIssued(ctx, event); err != nil {
		s.Logger.Warn("KAFKA", fmt.Sprintf("tickets.issued for %s not published: %v", order.ExtOrderID, err))
	}
}

// GetTicketsByOrder lists (ticketNo, token) pairs in issue order.
func (s *TicketService) GetTicketsByOrder(ctx context.Context, extOrderID string) ([]models.TicketSummary, error) {
	tickets, err := s.DB.GetTicketsByOrder(ctx, extOrderID)
	if err != nil {
		return nil, err
	}

	out := make([]models.TicketSummary, 0, len(tickets))
	for _, t := range tickets {
		out = append(out, models.TicketSummary{TicketNo: t.TicketNo, Token: t.TicketToken})
	}
	return out, nil
}

// GetTicketDocuments returns full ticket rows for rendering.
func (s *TicketService) GetTicketDocuments(ctx context.Context, extOrderID string) ([]models.Ticket, error) {
	return s.DB.GetTicketsByOrder(ctx, extOrderID)
}

func (s *TicketService) GetTicketByToken(ctx context.Context, token string) (*models.TicketLookup, error) {
	if strings.TrimSpace(token) == "" {
		return nil, apperrors.NewValidation(apperrors.CodeMissingToken, "Missing token")
	}
	return s.DB.GetTicketByToken(ctx, token)
}
