package qr

import (
	"fmt"
	"net/url"
	"strings"

	"github.com/skip2/go-qrcode"
)

const defaultSize = 256

// QRGenerator encodes a ticket's verification link. The token travels in
// clear; it is random and carries no ticket data.
type QRGenerator struct {
	baseURL string
	size    int
}

func NewQRGenerator(publicBaseURL string) *QRGenerator {
	return &QRGenerator{baseURL: strings.TrimRight(publicBaseURL, "/"), size: defaultSize}
}

// VerifyURL is the link a gate device opens after scanning.
func (q *QRGenerator) VerifyURL(token string) string {
	return q.baseURL + "/verify?t=" + url.QueryEscape(token)
}

// Generate returns a PNG of the verify URL for token.
func (q *QRGenerator) Generate(token string) ([]byte, error) {
	png, err := qrcode.Encode(q.VerifyURL(token), qrcode.Medium, q.size)
	if err != nil {
		return nil, fmt.Errorf("encode qr: %w", err)
	}
	return png, nil
}
