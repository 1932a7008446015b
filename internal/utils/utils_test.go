package utils

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"ms-ticketshop/internal/apperrors"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGenerateTicketToken(t *testing.T) {
	a, err := GenerateTicketToken()
	require.NoError(t, err)
	b, err := GenerateTicketToken()
	require.NoError(t, err)

	assert.Len(t, a, 64)
	assert.NotEqual(t, a, b)
}

func TestRequestOrigin(t *testing.T) {
	r := httptest.NewRequest(http.MethodPost, "http://internal:8080/api/create-order", nil)
	assert.Equal(t, "http://internal:8080", RequestOrigin(r, false))
	assert.Equal(t, "http://internal:8080", RequestOrigin(r, true))

	r.Header.Set("X-Forwarded-Proto", "https, http")
	r.Header.Set("X-Forwarded-Host", "shop.example")
	assert.Equal(t, "https://shop.example", RequestOrigin(r, true))
	assert.Equal(t, "http://internal:8080", RequestOrigin(r, false), "forwarded headers from an untrusted client")
}

func TestClientIP(t *testing.T) {
	r := httptest.NewRequest(http.MethodGet, "/", nil)
	r.RemoteAddr = "192.0.2.10:5555"
	assert.Equal(t, "192.0.2.10", ClientIP(r))

	r.Header.Set("X-Forwarded-For", "203.0.113.5, 10.0.0.1")
	assert.Equal(t, "203.0.113.5", ClientIP(r))

	r.Header.Set("Cf-Connecting-Ip", "198.51.100.7")
	assert.Equal(t, "198.51.100.7", ClientIP(r))
}

func TestSafeOneLine(t *testing.T) {
	assert.Equal(t, "Anna Nowak", SafeOneLine("  Anna\n\tNowak\x00 ", 0))
	assert.Equal(t, "Zażó", SafeOneLine("Zażółć", 4))
}

func TestWriteError(t *testing.T) {
	tests := []struct {
		err    error
		status int
		code   string
	}{
		{apperrors.NewValidation(apperrors.CodeMissingFields, "Missing fields", "email"), http.StatusBadRequest, apperrors.CodeMissingFields},
		{fmt.Errorf("wrap: %w", apperrors.ErrGatewayAuthFailed), http.StatusBadGateway, ""},
		{apperrors.ErrStorage, http.StatusInternalServerError, ""},
	}

	for _, tt := range tests {
		w := httptest.NewRecorder()
		WriteError(w, tt.err)

		assert.Equal(t, tt.status, w.Code)
		var body ErrorBody
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
		assert.Equal(t, tt.code, body.Code)
		assert.NotEmpty(t, body.Error)
	}
}

func TestFormatInZone(t *testing.T) {
	ts := time.Date(2025, time.February, 28, 23, 30, 0, 0, time.UTC)
	assert.Equal(t, "2025-03-01 00:30", FormatInZone(ts, "Europe/Warsaw", "2006-01-02 15:04"))
	assert.Equal(t, "2025-02-28 23:30", FormatInZone(ts, "Nowhere/Else", "2006-01-02 15:04"))
}
