package ticket_api

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"ms-ticketshop/internal/apperrors"
	"ms-ticketshop/internal/auth"
	"ms-ticketshop/internal/logger"
	"ms-ticketshop/internal/models"
	tickets "ms-ticketshop/internal/tickets/service"
	"ms-ticketshop/internal/tickets/template"
	"ms-ticketshop/internal/utils"
)

type TicketService interface {
	Verify(ctx context.Context, req models.VerifyRequest) (*models.VerificationResult, error)
	GetTicketsByOrder(ctx context.Context, extOrderID string) ([]models.TicketSummary, error)
	GetTicketDocuments(ctx context.Context, extOrderID string) ([]models.Ticket, error)
	GetTicketByToken(ctx context.Context, token string) (*models.TicketLookup, error)
}

type TicketCounter interface {
	GetTicketCounts(ctx context.Context) (*tickets.TicketCounts, error)
}

type PDFRenderer interface {
	Generate(tickets []models.Ticket) ([]byte, error)
}

type Handler struct {
	TicketService TicketService
	Counter       TicketCounter
	PDF           PDFRenderer
	Logger        *logger.Logger
}

// NewHandler creates a new Handler instance
func NewHandler(ticketService TicketService, counter TicketCounter, pdf PDFRenderer, log *logger.Logger) *Handler {
	return &Handler{
		TicketService: ticketService,
		Counter:       counter,
		PDF:           pdf,
		Logger:        log,
	}
}

type ticketsByOrderResponse struct {
	OK      bool                   `json:"ok"`
	Tickets []models.TicketSummary `json:"tickets"`
}

// VerifyTicket → GET /api/verify?t=&for=&by=
// The scan key has already been checked by auth.ScanKeyMiddleware.
func (h *Handler) VerifyTicket(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	scannedBy := q.Get("by")
	if scannedBy == "" {
		scannedBy = auth.ScannerID(r.Context())
	}

	result, err := h.TicketService.Verify(r.Context(), models.VerifyRequest{
		Token:      strings.TrimSpace(q.Get("t")),
		ScannedFor: q.Get("for"),
		ScannedBy:  scannedBy,
		IP:         utils.ClientIP(r),
		UserAgent:  r.UserAgent(),
	})
	if err != nil {
		h.Logger.Error("API", fmt.Sprintf("VerifyTicket: %v", err))
		utils.WriteError(w, err)
		return
	}

	if err := utils.WriteJSON(w, http.StatusOK, result); err != nil {
		h.Logger.Error("API", fmt.Sprintf("VerifyTicket: failed to encode response: %v", err))
	}
}

// ListTicketsByOrder → GET /api/tickets-by-order?order=
func (h *Handler) ListTicketsByOrder(w http.ResponseWriter, r *http.Request) {
	extOrderID, ok := orderParam(w, r)
	if !ok {
		return
	}

	list, err := h.TicketService.GetTicketsByOrder(r.Context(), extOrderID)
	if err != nil {
		h.Logger.Error("API", fmt.Sprintf("ListTicketsByOrder: %s: %v", extOrderID, err))
		utils.WriteError(w, err)
		return
	}
	if list == nil {
		list = []models.TicketSummary{}
	}

	if err := utils.WriteJSON(w, http.StatusOK, ticketsByOrderResponse{OK: true, Tickets: list}); err != nil {
		h.Logger.Error("API", fmt.Sprintf("ListTicketsByOrder: failed to encode response: %v", err))
	}
}

// TicketPDF → GET /api/ticket-pdf?t=
func (h *Handler) TicketPDF(w http.ResponseWriter, r *http.Request) {
	lookup, err := h.TicketService.GetTicketByToken(r.Context(), strings.TrimSpace(r.URL.Query().Get("t")))
	if err != nil {
		h.Logger.Warn("API", fmt.Sprintf("TicketPDF: %v", err))
		utils.WriteError(w, err)
		return
	}

	ticket := models.Ticket{
		TicketNo:    lookup.TicketNo,
		TicketToken: lookup.TicketToken,
		ExtOrderID:  lookup.ExtOrderID,
		FullName:    lookup.FullName,
		Email:       lookup.Email,
		TicketType:  lookup.TicketType,
		CreatedAt:   lookup.CreatedAt,
	}
	h.writePDF(w, []models.Ticket{ticket}, "bilet-"+ticket.TicketNo+".pdf")
}

// AllTicketsPDF → GET /api/tickets-pdf-all?order=
func (h *Handler) AllTicketsPDF(w http.ResponseWriter, r *http.Request) {
	extOrderID, ok := orderParam(w, r)
	if !ok {
		return
	}

	docs, err := h.TicketService.GetTicketDocuments(r.Context(), extOrderID)
	if err != nil {
		h.Logger.Error("API", fmt.Sprintf("AllTicketsPDF: %s: %v", extOrderID, err))
		utils.WriteError(w, err)
		return
	}
	if len(docs) == 0 {
		utils.WriteError(w, fmt.Errorf("tickets for %s: %w", extOrderID, apperrors.ErrNotFound))
		return
	}

	h.writePDF(w, docs, "bilety-"+extOrderID+".pdf")
}

func (h *Handler) writePDF(w http.ResponseWriter, docs []models.Ticket, filename string) {
	data, err := h.PDF.Generate(docs)
	if errors.Is(err, template.ErrNoTickets) {
		utils.WriteError(w, apperrors.ErrNotFound)
		return
	}
	if err != nil {
		h.Logger.Error("API", fmt.Sprintf("PDF render failed: %v", err))
		utils.WriteError(w, err)
		return
	}

	w.Header().Set("Content-Type", "application/pdf")
	w.Header().Set("Content-Disposition", fmt.Sprintf(`inline; filename="%s"`, strings.ReplaceAll(utils.SafeOneLine(filename, 120), `"`, "")))
	w.WriteHeader(http.StatusOK)
	w.Write(data)
}

func orderParam(w http.ResponseWriter, r *http.Request) (string, bool) {
	extOrderID := strings.TrimSpace(r.URL.Query().Get("order"))
	if extOrderID == "" {
		utils.WriteError(w, apperrors.NewValidation(apperrors.CodeMissingOrder, "Missing order"))
		return "", false
	}
	return extOrderID, true
}
