package mailer

import (
	"bytes"
	"context"
	"fmt"

	"ms-ticketshop/internal/config"
	"ms-ticketshop/internal/logger"
	"ms-ticketshop/internal/utils"

	"github.com/wneessen/go-mail"
)

// Sender is the SMTP side, satisfied by *mail.Client.
type Sender interface {
	DialAndSendWithContext(ctx context.Context, messages ...*mail.Msg) error
}

type Mailer struct {
	client     Sender
	from       string
	eventTitle string
	logger     *logger.Logger
}

func NewMailer(cfg config.EmailConfig, eventTitle string, log *logger.Logger) (*Mailer, error) {
	c, err := mail.NewClient(cfg.SMTPHost,
		mail.WithPort(cfg.SMTPPort),
		mail.WithSMTPAuth(mail.SMTPAuthPlain),
		mail.WithUsername(cfg.SMTPUsername),
		mail.WithPassword(cfg.SMTPPassword),
	)
	if err != nil {
		return nil, fmt.Errorf("smtp client: %w", err)
	}
	return NewMailerWithSender(c, cfg.From, eventTitle, log), nil
}

func NewMailerWithSender(sender Sender, from, eventTitle string, log *logger.Logger) *Mailer {
	return &Mailer{client: sender, from: from, eventTitle: eventTitle, logger: log}
}

// TicketMessage builds the e-mail carrying an order's tickets as one PDF.
func (m *Mailer) TicketMessage(to, fullName, extOrderID string, count int, pdf []byte) (*mail.Msg, error) {
	msg := mail.NewMsg()
	if err := msg.From(m.from); err != nil {
		return nil, fmt.Errorf("invalid from address: %w", err)
	}
	if err := msg.To(to); err != nil {
		return nil, fmt.Errorf("invalid recipient: %w", err)
	}

	title := utils.SafeOneLine(m.eventTitle, 80)
	msg.Subject(fmt.Sprintf("Twoje bilety - %s", title))
	msg.SetBodyString(mail.TypeTextPlain, fmt.Sprintf(
		"Dzień dobry %s,\n\nw załączniku znajdziesz bilety (%d) na wydarzenie %s.\nNumer zamówienia: %s\n\nKażdy bilet ma własny kod QR sprawdzany przy wejściu.\n",
		utils.SafeOneLine(fullName, 80), count, title, extOrderID))

	if err := msg.AttachReader("bilety-"+extOrderID+".pdf", bytes.NewReader(pdf),
		mail.WithFileContentType(mail.ContentType("application/pdf"))); err != nil {
		return nil, fmt.Errorf("attach tickets: %w", err)
	}
	return msg, nil
}

func (m *Mailer) SendTickets(ctx context.Context, to, fullName, extOrderID string, count int, pdf []byte) error {
	msg, err := m.TicketMessage(to, fullName, extOrderID, count, pdf)
	if err != nil {
		return err
	}
	if err := m.client.DialAndSendWithContext(ctx, msg); err != nil {
		return fmt.Errorf("send tickets for %s: %w", extOrderID, err)
	}
	m.logger.LogOrder("MAIL", extOrderID, fmt.Sprintf("%d tickets sent", count))
	return nil
}
