package tickets

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"ms-ticketshop/internal/apperrors"
	"ms-ticketshop/internal/models"
)

// AccessFor derives gate rights from the ticket type name.
func AccessFor(ticketType string) models.Access {
	t := strings.ToLower(ticketType)
	return models.Access{
		Day1:    strings.Contains(t, "1") || strings.Contains(t, "2") || strings.Contains(t, "vip"),
		Day2:    strings.Contains(t, "2") || strings.Contains(t, "vip"),
		Banquet: strings.Contains(t, "vip") || strings.Contains(t, "bankiet"),
	}
}

// Verify checks a scanned token. Unknown tokens and unpaid orders are
// answered with a negative result, not an error, and leave no scan behind.
// Every accepted scan is logged; re-entry is never refused here.
func (s *TicketService) Verify(ctx context.Context, req models.VerifyRequest) (*models.VerificationResult, error) {
	if strings.TrimSpace(req.Token) == "" {
		return nil, apperrors.NewValidation(apperrors.CodeMissingToken, "Missing token")
	}

	ticket, err := s.DB.GetTicketByToken(ctx, req.Token)
	if errors.Is(err, apperrors.ErrNotFound) {
		s.Logger.LogSecurity("VERIFY_NOT_FOUND", fmt.Sprintf("unknown token from ip=%s", req.IP))
		return &models.VerificationResult{Valid: false, Reason: models.ReasonNotFound}, nil
	}
	if err != nil {
		return nil, err
	}

	if ticket.OrderStatus == nil || !models.IsCompleted(*ticket.OrderStatus) {
		s.Logger.LogScan(checkpoint(req.ScannedFor), ticket.TicketNo, "rejected, order not completed")
		return &models.VerificationResult{
			Valid:       false,
			Reason:      models.ReasonOrderNotCompleted,
			OrderStatus: ticket.OrderStatus,
		}, nil
	}

	scan := &models.ScanEvent{
		TicketNo:    ticket.TicketNo,
		TicketToken: req.Token,
		ScannedAt:   s.Now().UTC(),
		ScannedFor:  checkpoint(req.ScannedFor),
		IP:          req.IP,
		UserAgent:   req.UserAgent,
	}
	if by := strings.TrimSpace(req.ScannedBy); by != "" {
		scan.ScannedBy = &by
	}

	counts, err := s.DB.RecordScan(ctx, scan)
	if err != nil {
		return nil, err
	}

	s.Logger.LogScan(scan.ScannedFor, ticket.TicketNo, "accepted")

	access := AccessFor(ticket.TicketType)
	return &models.VerificationResult{
		Valid:      true,
		TicketNo:   ticket.TicketNo,
		TicketType: ticket.TicketType,
		FullName:   ticket.FullName,
		OrderID:    ticket.ExtOrderID,
		Access:     &access,
		ScanCounts: counts,
	}, nil
}

func checkpoint(scannedFor string) string {
	if s := strings.TrimSpace(scannedFor); s != "" {
		return s
	}
	return models.DefaultCheckpoint
}
