package auth

import (
	"context"
	"crypto/subtle"
	"net/http"
	"strings"

	"ms-ticketshop/internal/apperrors"
	"ms-ticketshop/internal/logger"
	"ms-ticketshop/internal/utils"
)

type contextKey string

const scannerIDKey contextKey = "scanner_id"

const (
	ScanKeyHeader   = "X-Scan-Key"
	ScanKeyParam    = "k"
	ScannerIDHeader = "X-Scanner-Id"
)

// ScanKeyMiddleware gates gate-device endpoints behind a shared key passed
// as ?k= or X-Scan-Key. An empty key disables the check.
func ScanKeyMiddleware(key string, log *logger.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if key != "" {
				given := r.URL.Query().Get(ScanKeyParam)
				if given == "" {
					given = r.Header.Get(ScanKeyHeader)
				}
				if subtle.ConstantTimeCompare([]byte(given), []byte(key)) != 1 {
					log.LogSecurity("SCAN_KEY_REJECTED", r.Method+" "+r.URL.Path+" from "+utils.ClientIP(r))
					utils.WriteError(w, apperrors.ErrUnauthorized)
					return
				}
			}

			ctx := r.Context()
			if id := strings.TrimSpace(r.Header.Get(ScannerIDHeader)); id != "" {
				ctx = context.WithValue(ctx, scannerIDKey, id)
			}
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// ScannerID returns the device id sent alongside the scan key, if any.
func ScannerID(ctx context.Context) string {
	if id, ok := ctx.Value(scannerIDKey).(string); ok {
		return id
	}
	return ""
}
