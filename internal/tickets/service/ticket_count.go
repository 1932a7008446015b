package tickets

import (
	"context"

	ticket_db "ms-ticketshop/internal/tickets/db"
)

// TicketCountDBLayer represents the interface for ticket count database operations
type TicketCountDBLayer interface {
	GetTotalTicketsCount(ctx context.Context) (int, error)
	GetTicketCountsByType(ctx context.Context) ([]ticket_db.TicketTypeCount, error)
}

// TicketCountService reports how many tickets have been issued
type TicketCountService struct {
	DB TicketCountDBLayer
}

func NewTicketCountService(db TicketCountDBLayer) *TicketCountService {
	return &TicketCountService{DB: db}
}

type TicketCounts struct {
	TotalCount int                         `json:"total_count"`
	ByType     []ticket_db.TicketTypeCount `json:"by_type"`
}

// GetTicketCounts returns the total and the per-type breakdown
func (s *TicketCountService) GetTicketCounts(ctx context.Context) (*TicketCounts, error) {
	total, err := s.DB.GetTotalTicketsCount(ctx)
	if err != nil {
		return nil, err
	}
	byType, err := s.DB.GetTicketCountsByType(ctx)
	if err != nil {
		return nil, err
	}
	if byType == nil {
		byType = []ticket_db.TicketTypeCount{}
	}
	return &TicketCounts{TotalCount: total, ByType: byType}, nil
}
