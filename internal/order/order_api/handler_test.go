package order_api

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"ms-ticketshop/internal/apperrors"
	"ms-ticketshop/internal/catalog"
	"ms-ticketshop/internal/logger"
	"ms-ticketshop/internal/models"
	"ms-ticketshop/internal/utils"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type MockOrderService struct {
	mock.Mock
}

func (m *MockOrderService) CreateOrder(ctx context.Context, req models.CreateOrderRequest, origin, customerIP string) (*models.CreateOrderResponse, error) {
	args := m.Called(ctx, req, origin, customerIP)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.CreateOrderResponse), args.Error(1)
}

func (m *MockOrderService) ApplyNotification(ctx context.Context, body []byte, sig string) (*models.NotificationOutcome, error) {
	args := m.Called(ctx, body, sig)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.NotificationOutcome), args.Error(1)
}

func (m *MockOrderService) Reconcile(ctx context.Context, extOrderID string) (*models.SyncStatusResult, error) {
	args := m.Called(ctx, extOrderID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.SyncStatusResult), args.Error(1)
}

func (m *MockOrderService) GetOrderStatus(ctx context.Context, extOrderID string) (*models.OrderStatusResponse, error) {
	args := m.Called(ctx, extOrderID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.OrderStatusResponse), args.Error(1)
}

func newRouter(svc *MockOrderService) http.Handler {
	return routerFor(NewHandler(svc, logger.NewDiscard()))
}

func routerFor(h *Handler) http.Handler {
	r := chi.NewRouter()
	r.Post("/api/create-order", h.CreateOrder)
	r.Post("/api/notify", h.Notify)
	r.Get("/api/sync-status", h.SyncStatus)
	r.Get("/api/order-status", h.OrderStatus)
	r.Get("/api/ticket-types", h.TicketTypes)
	return r
}

func TestCreateOrder_PassesOriginAndIP(t *testing.T) {
	tests := []struct {
		name       string
		trustProxy bool
		baseURL    string
		wantOrigin string
	}{
		{"trusted proxy headers", true, "https://tickets.example", "https://shop.example"},
		{"configured base url", false, "https://tickets.example", "https://tickets.example"},
		{"forwarded headers ignored", false, "", "http://example.com"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := new(MockOrderService)
			svc.On("CreateOrder", mock.Anything, mock.MatchedBy(func(req models.CreateOrderRequest) bool {
				return req.TicketType == "vip" && req.Quantity == "2"
			}), tt.wantOrigin, "203.0.113.5").
				Return(&models.CreateOrderResponse{RedirectURI: "https://payu/pay", ExtOrderID: "order-1"}, nil)

			h := NewHandler(svc, logger.NewDiscard())
			h.TrustProxy = tt.trustProxy
			h.PublicBaseURL = tt.baseURL

			req := httptest.NewRequest(http.MethodPost, "/api/create-order", strings.NewReader(`{"ticketType":"vip","quantity":"2"}`))
			req.Header.Set("X-Forwarded-Proto", "https")
			req.Header.Set("X-Forwarded-Host", "shop.example")
			req.Header.Set("X-Forwarded-For", "203.0.113.5")
			w := httptest.NewRecorder()

			routerFor(h).ServeHTTP(w, req)

			require.Equal(t, http.StatusOK, w.Code)
			var resp models.CreateOrderResponse
			require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
			assert.Equal(t, "https://payu/pay", resp.RedirectURI)
			assert.Equal(t, "order-1", resp.ExtOrderID)
			svc.AssertExpectations(t)
		})
	}
}

func TestTicketTypes(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/api/ticket-types", nil)
	w := httptest.NewRecorder()

	newRouter(new(MockOrderService)).ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)
	var types []catalog.TicketType
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &types))
	require.Len(t, types, 5)
	assert.Equal(t, "biznes_plus", types[0].Code)
	assert.Equal(t, catalog.TicketType{Code: "vip", Name: "VIP", UnitPrice: 99900}, types[4])
}

func TestCreateOrder_ErrorMapping(t *testing.T) {
	tests := []struct {
		name   string
		err    error
		status int
		code   string
	}{
		{"missing fields", apperrors.NewValidation(apperrors.CodeMissingFields, "Missing fields", "email"), http.StatusBadRequest, apperrors.CodeMissingFields},
		{"storage", apperrors.ErrStorage, http.StatusInternalServerError, ""},
		{"gateway", apperrors.ErrGatewayCreateFailed, http.StatusBadGateway, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := new(MockOrderService)
			svc.On("CreateOrder", mock.Anything, mock.Anything, mock.Anything, mock.Anything).Return(nil, tt.err)

			req := httptest.NewRequest(http.MethodPost, "/api/create-order", strings.NewReader(`{}`))
			w := httptest.NewRecorder()
			newRouter(svc).ServeHTTP(w, req)

			assert.Equal(t, tt.status, w.Code)
			var body utils.ErrorBody
			require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
			assert.Equal(t, tt.code, body.Code)
		})
	}
}

func TestCreateOrder_BadJSON(t *testing.T) {
	svc := new(MockOrderService)
	req := httptest.NewRequest(http.MethodPost, "/api/create-order", strings.NewReader(`{"fullName":`))
	w := httptest.NewRecorder()

	newRouter(svc).ServeHTTP(w, req)

	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, w.Body.String(), apperrors.CodeBadJSON)
	svc.AssertNotCalled(t, "CreateOrder", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestNotify_AlwaysAcknowledges(t *testing.T) {
	svc := new(MockOrderService)
	body := `{"order":{"extOrderId":"order-1","status":"COMPLETED"}}`
	svc.On("ApplyNotification", mock.Anything, []byte(body), "signature=abc;algorithm=MD5").
		Return(&models.NotificationOutcome{ExtOrderID: "order-1", Ignored: "storage failure"}, nil)

	req := httptest.NewRequest(http.MethodPost, "/api/notify", strings.NewReader(body))
	req.Header.Set("OpenPayu-Signature", "signature=abc;algorithm=MD5")
	w := httptest.NewRecorder()

	newRouter(svc).ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "OK", w.Body.String())
	svc.AssertExpectations(t)
}

func TestNotify_NoStore(t *testing.T) {
	svc := new(MockOrderService)
	svc.On("ApplyNotification", mock.Anything, mock.Anything, mock.Anything).Return(nil, apperrors.ErrStoreUnavailable)

	req := httptest.NewRequest(http.MethodPost, "/api/notify", strings.NewReader(`{}`))
	w := httptest.NewRecorder()
	newRouter(svc).ServeHTTP(w, req)

	assert.Equal(t, http.StatusInternalServerError, w.Code)
}

func TestSyncStatus(t *testing.T) {
	svc := new(MockOrderService)
	payuID, payuStatus := "PAYU-1", "COMPLETED"
	svc.On("Reconcile", mock.Anything, "order-1").Return(&models.SyncStatusResult{
		Found: true, ExtOrderID: "order-1", RemoteOrderID: &payuID, PayUStatus: &payuStatus, Status: "COMPLETED",
	}, nil)
	svc.On("Reconcile", mock.Anything, "order-2").Return(nil, apperrors.ErrGatewayUnavailable)
	svc.On("Reconcile", mock.Anything, "missing").Return(&models.SyncStatusResult{Found: false}, nil)

	router := newRouter(svc)

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/sync-status?order=order-1", nil))
	require.Equal(t, http.StatusOK, w.Code)
	var got map[string]interface{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &got))
	assert.Equal(t, true, got["found"])
	assert.Equal(t, "PAYU-1", got["payuOrderId"])
	assert.Equal(t, "COMPLETED", got["payuStatus"])

	w = httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/sync-status?order=order-2", nil))
	assert.Equal(t, http.StatusBadGateway, w.Code)

	w = httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/sync-status?order=missing", nil))
	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"found":false,"payuOrderId":null}`, w.Body.String())

	w = httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/sync-status", nil))
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, w.Body.String(), apperrors.CodeMissingOrder)
}

func TestOrderStatus(t *testing.T) {
	svc := new(MockOrderService)
	svc.On("GetOrderStatus", mock.Anything, "order-1").
		Return(&models.OrderStatusResponse{Found: true, ExtOrderID: "order-1", Status: "PENDING"}, nil)

	w := httptest.NewRecorder()
	newRouter(svc).ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/order-status?order=order-1", nil))

	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"found":true,"extOrderId":"order-1","status":"PENDING"}`, w.Body.String())
}
