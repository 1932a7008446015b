package order_api

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"

	"ms-ticketshop/internal/apperrors"
	"ms-ticketshop/internal/catalog"
	"ms-ticketshop/internal/logger"
	"ms-ticketshop/internal/models"
	"ms-ticketshop/internal/utils"
)

const (
	maxCreateBody = 64 << 10
	maxNotifyBody = 1 << 20

	signatureHeader = "OpenPayu-Signature"
)

type OrderService interface {
	CreateOrder(ctx context.Context, req models.CreateOrderRequest, origin, customerIP string) (*models.CreateOrderResponse, error)
	ApplyNotification(ctx context.Context, body []byte, signatureHeader string) (*models.NotificationOutcome, error)
	Reconcile(ctx context.Context, extOrderID string) (*models.SyncStatusResult, error)
	GetOrderStatus(ctx context.Context, extOrderID string) (*models.OrderStatusResponse, error)
}

type Handler struct {
	OrderService OrderService
	Logger       *logger.Logger

	// PublicBaseURL is the origin PayU sends the buyer back to. Request
	// headers are used instead only when TrustProxy is set.
	PublicBaseURL string
	TrustProxy    bool
}

func NewHandler(orderService OrderService, log *logger.Logger) *Handler {
	return &Handler{OrderService: orderService, Logger: log}
}

// CreateOrder → POST /api/create-order
func (h *Handler) CreateOrder(w http.ResponseWriter, r *http.Request) {
	var req models.CreateOrderRequest
	if err := json.NewDecoder(io.LimitReader(r.Body, maxCreateBody)).Decode(&req); err != nil {
		h.Logger.Warn("API", fmt.Sprintf("CreateOrder: bad JSON: %v", err))
		utils.WriteError(w, apperrors.NewValidation(apperrors.CodeBadJSON, "Bad JSON"))
		return
	}

	resp, err := h.OrderService.CreateOrder(r.Context(), req, h.origin(r), utils.ClientIP(r))
	if err != nil {
		h.Logger.Error("API", fmt.Sprintf("CreateOrder: %v", err))
		utils.WriteError(w, err)
		return
	}

	if err := utils.WriteJSON(w, http.StatusOK, resp); err != nil {
		h.Logger.Error("API", fmt.Sprintf("CreateOrder: failed to encode response: %v", err))
		return
	}
	h.Logger.Info("API", fmt.Sprintf("CreateOrder: order %s redirected to PayU", resp.ExtOrderID))
}

// Notify → POST /api/notify. PayU keeps retrying anything but a 200, so
// every delivery is acknowledged unless there is no store to write to.
func (h *Handler) Notify(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(io.LimitReader(r.Body, maxNotifyBody))
	if err != nil {
		h.Logger.Warn("WEBHOOK", fmt.Sprintf("Notify: failed to read body: %v", err))
	}

	outcome, err := h.OrderService.ApplyNotification(r.Context(), body, r.Header.Get(signatureHeader))
	if err != nil {
		h.Logger.Error("WEBHOOK", fmt.Sprintf("Notify: %v", err))
		http.Error(w, apperrors.PublicMessage(err), apperrors.HTTPStatus(err))
		return
	}
	if outcome.Ignored != "" {
		h.Logger.Warn("WEBHOOK", fmt.Sprintf("Notify: %s not applied: %s", outcome.ExtOrderID, outcome.Ignored))
	}

	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	w.Write([]byte("OK"))
}

// SyncStatus → GET /api/sync-status?order=
func (h *Handler) SyncStatus(w http.ResponseWriter, r *http.Request) {
	extOrderID, ok := h.orderParam(w, r)
	if !ok {
		return
	}

	result, err := h.OrderService.Reconcile(r.Context(), extOrderID)
	if err != nil {
		h.Logger.Error("API", fmt.Sprintf("SyncStatus: %s: %v", extOrderID, err))
		utils.WriteError(w, err)
		return
	}

	if err := utils.WriteJSON(w, http.StatusOK, result); err != nil {
		h.Logger.Error("API", fmt.Sprintf("SyncStatus: failed to encode response: %v", err))
	}
}

// OrderStatus → GET /api/order-status?order=
func (h *Handler) OrderStatus(w http.ResponseWriter, r *http.Request) {
	extOrderID, ok := h.orderParam(w, r)
	if !ok {
		return
	}

	result, err := h.OrderService.GetOrderStatus(r.Context(), extOrderID)
	if err != nil {
		h.Logger.Error("API", fmt.Sprintf("OrderStatus: %s: %v", extOrderID, err))
		utils.WriteError(w, err)
		return
	}

	if err := utils.WriteJSON(w, http.StatusOK, result); err != nil {
		h.Logger.Error("API", fmt.Sprintf("OrderStatus: failed to encode response: %v", err))
	}
}

// TicketTypes → GET /api/ticket-types
func (h *Handler) TicketTypes(w http.ResponseWriter, r *http.Request) {
	if err := utils.WriteJSON(w, http.StatusOK, catalog.Types()); err != nil {
		h.Logger.Error("API", fmt.Sprintf("TicketTypes: failed to encode response: %v", err))
	}
}

func (h *Handler) origin(r *http.Request) string {
	if !h.TrustProxy && h.PublicBaseURL != "" {
		return h.PublicBaseURL
	}
	return utils.RequestOrigin(r, h.TrustProxy)
}

func (h *Handler) orderParam(w http.ResponseWriter, r *http.Request) (string, bool) {
	extOrderID := strings.TrimSpace(r.URL.Query().Get("order"))
	if extOrderID == "" {
		utils.WriteError(w, apperrors.NewValidation(apperrors.CodeMissingOrder, "Missing order"))
		return "", false
	}
	return extOrderID, true
}
