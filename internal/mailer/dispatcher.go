package mailer

import (
	"context"
	"fmt"

	"ms-ticketshop/internal/logger"
	"ms-ticketshop/internal/models"
)

type OrderReader interface {
	GetOrderByID(ctx context.Context, extOrderID string) (*models.Order, error)
}

type TicketReader interface {
	GetTicketDocuments(ctx context.Context, extOrderID string) ([]models.Ticket, error)
}

type PDFRenderer interface {
	Generate(tickets []models.Ticket) ([]byte, error)
}

type TicketSender interface {
	SendTickets(ctx context.Context, to, fullName, extOrderID string, count int, pdf []byte) error
}

// Dispatcher turns tickets.issued events into e-mails. Buyer data is read
// from the store; events carry ids only.
type Dispatcher struct {
	Orders  OrderReader
	Tickets TicketReader
	PDF     PDFRenderer
	Sender  TicketSender
	Logger  *logger.Logger
}

func NewDispatcher(orders OrderReader, tickets TicketReader, pdf PDFRenderer, sender TicketSender, log *logger.Logger) *Dispatcher {
	return &Dispatcher{Orders: orders, Tickets: tickets, PDF: pdf, Sender: sender, Logger: log}
}

// HandleEvent sends every ticket of the order, including ones mailed
// before, so a buyer always gets the complete set.
func (d *Dispatcher) HandleEvent(ctx context.Context, event models.OrderEvent) error {
	if event.Type != models.EventTicketsIssued {
		return nil
	}

	order, err := d.Orders.GetOrderByID(ctx, event.ExtOrderID)
	if err != nil {
		return err
	}
	docs, err := d.Tickets.GetTicketDocuments(ctx, event.ExtOrderID)
	if err != nil {
		return err
	}
	if len(docs) == 0 {
		d.Logger.Warn("MAIL", fmt.Sprintf("No tickets stored for %s, nothing to send", event.ExtOrderID))
		return nil
	}

	pdf, err := d.PDF.Generate(docs)
	if err != nil {
		return fmt.Errorf("render tickets for %s: %w", event.ExtOrderID, err)
	}
	return d.Sender.SendTickets(ctx, order.Email, order.FullName, order.ExtOrderID, len(docs), pdf)
}
