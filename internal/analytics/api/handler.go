package analytics_api

import (
	"context"
	"fmt"
	"net/http"

	"ms-ticketshop/internal/analytics"
	"ms-ticketshop/internal/logger"
	"ms-ticketshop/internal/utils"

	"github.com/go-chi/chi/v5"
)

type AnalyticsService interface {
	GetSalesReport(ctx context.Context) (*analytics.SalesReport, error)
	GetScanReport(ctx context.Context) (*analytics.ScanReport, error)
}

// Handler handles analytics HTTP endpoints
type Handler struct {
	Service AnalyticsService
	Logger  *logger.Logger
}

// NewHandler creates a new analytics handler
func NewHandler(service AnalyticsService, logger *logger.Logger) *Handler {
	return &Handler{Service: service, Logger: logger}
}

// RegisterRoutes registers the analytics routes on a chi router. Callers
// put the scan-key middleware in front.
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Route("/analytics", func(r chi.Router) {
		r.Get("/sales", h.GetSalesReport)
		r.Get("/scans", h.GetScanReport)
	})
}

// GetSalesReport → GET /api/analytics/sales
func (h *Handler) GetSalesReport(w http.ResponseWriter, r *http.Request) {
	report, err := h.Service.GetSalesReport(r.Context())
	if err != nil {
		h.Logger.Error("ANALYTICS", fmt.Sprintf("Sales report failed: %v", err))
		utils.WriteError(w, err)
		return
	}

	h.Logger.Debug("ANALYTICS", fmt.Sprintf("Sales report: paid=%d revenue=%d", report.PaidOrders, report.PaidRevenue))
	if err := utils.WriteJSON(w, http.StatusOK, report); err != nil {
		h.Logger.Error("ANALYTICS", fmt.Sprintf("Failed to encode sales report: %v", err))
	}
}

// GetScanReport → GET /api/analytics/scans
func (h *Handler) GetScanReport(w http.ResponseWriter, r *http.Request) {
	report, err := h.Service.GetScanReport(r.Context())
	if err != nil {
		h.Logger.Error("ANALYTICS", fmt.Sprintf("Scan report failed: %v", err))
		utils.WriteError(w, err)
		return
	}

	if err := utils.WriteJSON(w, http.StatusOK, report); err != nil {
		h.Logger.Error("ANALYTICS", fmt.Sprintf("Failed to encode scan report: %v", err))
	}
}
