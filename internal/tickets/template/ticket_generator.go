package template

import (
	"bytes"
	"errors"
	"fmt"
	"image/png"
	"time"

	"ms-ticketshop/internal/models"
	"ms-ticketshop/internal/tickets/qr"
	"ms-ticketshop/internal/utils"

	"github.com/signintech/gopdf"
)

const (
	fontFamily   = "ticket"
	maxLineRunes = 80
	marginX      = 50.0
	qrSide       = 200.0
)

var ErrNoTickets = errors.New("no tickets to render")

type TicketPDFGenerator struct {
	FontPath   string
	EventTitle string
	QR         *qr.QRGenerator
}

func NewTicketPDFGenerator(fontPath, eventTitle string, qrGen *qr.QRGenerator) *TicketPDFGenerator {
	return &TicketPDFGenerator{FontPath: fontPath, EventTitle: eventTitle, QR: qrGen}
}

// Generate renders one A4 page per ticket, in the order given.
func (g *TicketPDFGenerator) Generate(tickets []models.Ticket) ([]byte, error) {
	if len(tickets) == 0 {
		return nil, ErrNoTickets
	}

	pdf := &gopdf.GoPdf{}
	pdf.Start(gopdf.Config{PageSize: *gopdf.PageSizeA4})
	pdf.SetInfo(gopdf.PdfInfo{Title: utils.SafeOneLine(g.EventTitle, maxLineRunes), CreationDate: time.Now()})

	if err := pdf.AddTTFFont(fontFamily, g.FontPath); err != nil {
		return nil, fmt.Errorf("failed to load font %s: %w", g.FontPath, err)
	}

	for _, ticket := range tickets {
		code, err := g.QR.Generate(ticket.TicketToken)
		if err != nil {
			return nil, fmt.Errorf("qr for %s: %w", ticket.TicketNo, err)
		}

		pdf.AddPage()
		if err := addHeader(pdf, g.EventTitle); err != nil {
			return nil, err
		}
		if err := addTicketInfo(pdf, ticket); err != nil {
			return nil, err
		}
		addQRCode(pdf, code)
		if err := addFooter(pdf, g.QR.VerifyURL(ticket.TicketToken)); err != nil {
			return nil, err
		}
	}

	var buf bytes.Buffer
	if err := pdf.Write(&buf); err != nil {
		return nil, fmt.Errorf("failed to write PDF: %w", err)
	}
	return buf.Bytes(), nil
}

func addHeader(pdf *gopdf.GoPdf, title string) error {
	if err := pdf.SetFont(fontFamily, "", 22); err != nil {
		return fmt.Errorf("failed to set font: %w", err)
	}
	pdf.SetXY(marginX, 60)
	return pdf.Cell(nil, utils.SafeOneLine(title, maxLineRunes))
}

func addTicketInfo(pdf *gopdf.GoPdf, ticket models.Ticket) error {
	if err := pdf.SetFont(fontFamily, "", 14); err != nil {
		return fmt.Errorf("failed to set font: %w", err)
	}

	info := []struct {
		Label string
		Value string
	}{
		{"Bilet", ticket.TicketType},
		{"Numer", ticket.TicketNo},
		{"Uczestnik", ticket.FullName},
		{"Wystawiono", utils.FormatInZone(ticket.CreatedAt, "Europe/Warsaw", "2006-01-02 15:04")},
	}

	pdf.SetY(110)
	for _, item := range info {
		pdf.SetX(marginX)
		if err := pdf.Cell(nil, item.Label+": "+utils.SafeOneLine(item.Value, maxLineRunes)); err != nil {
			return err
		}
		pdf.Br(24)
	}
	return nil
}

func addQRCode(pdf *gopdf.GoPdf, qrCode []byte) {
	y := pdf.GetY() + 20
	img, err := png.Decode(bytes.NewReader(qrCode))
	if err != nil {
		pdf.SetXY(marginX, y)
		pdf.Cell(nil, "Failed to load QR code")
		return
	}

	if err := pdf.ImageFrom(img, marginX, y, &gopdf.Rect{W: qrSide, H: qrSide}); err != nil {
		pdf.SetXY(marginX, y)
		pdf.Cell(nil, "Failed to draw QR code")
		return
	}
	pdf.SetY(y + qrSide)
}

func addFooter(pdf *gopdf.GoPdf, verifyURL string) error {
	if err := pdf.SetFont(fontFamily, "", 9); err != nil {
		return fmt.Errorf("failed to set font: %w", err)
	}
	pdf.SetXY(marginX, pdf.GetY()+20)
	if err := pdf.Cell(nil, verifyURL); err != nil {
		return err
	}
	pdf.SetXY(marginX, pdf.GetY()+16)
	return pdf.Cell(nil, "Bilet jest ważny tylko z kodem QR. Nie udostępniaj go innym osobom.")
}
