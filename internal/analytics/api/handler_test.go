package analytics_api

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"ms-ticketshop/internal/analytics"
	"ms-ticketshop/internal/apperrors"
	"ms-ticketshop/internal/auth"
	"ms-ticketshop/internal/logger"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type MockAnalyticsService struct {
	mock.Mock
}

func (m *MockAnalyticsService) GetSalesReport(ctx context.Context) (*analytics.SalesReport, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*analytics.SalesReport), args.Error(1)
}

func (m *MockAnalyticsService) GetScanReport(ctx context.Context) (*analytics.ScanReport, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*analytics.ScanReport), args.Error(1)
}

func newRouter(svc *MockAnalyticsService) http.Handler {
	log := logger.NewDiscard()
	r := chi.NewRouter()
	r.Route("/api", func(r chi.Router) {
		r.Use(auth.ScanKeyMiddleware("secret", log))
		NewHandler(svc, log).RegisterRoutes(r)
	})
	return r
}

func TestGetSalesReport(t *testing.T) {
	svc := new(MockAnalyticsService)
	svc.On("GetSalesReport", mock.Anything).Return(&analytics.SalesReport{PaidOrders: 2, PaidRevenue: 149800}, nil)

	w := httptest.NewRecorder()
	newRouter(svc).ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/analytics/sales?k=secret", nil))

	require.Equal(t, http.StatusOK, w.Code)
	var report analytics.SalesReport
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &report))
	assert.Equal(t, 2, report.PaidOrders)
	assert.Equal(t, int64(149800), report.PaidRevenue)
}

func TestGetScanReport_Errors(t *testing.T) {
	svc := new(MockAnalyticsService)
	svc.On("GetScanReport", mock.Anything).Return(nil, apperrors.ErrStorage)

	w := httptest.NewRecorder()
	newRouter(svc).ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/analytics/scans?k=secret", nil))
	assert.Equal(t, http.StatusInternalServerError, w.Code)

	w = httptest.NewRecorder()
	newRouter(svc).ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/analytics/scans", nil))
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}
