package utils

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
)

const ticketTokenBytes = 32

// GenerateTicketToken returns 64 hex chars from crypto/rand. The token is the
// only credential a gate needs, so it must not be derivable from anything.
func GenerateTicketToken() (string, error) {
	buf := make([]byte, ticketTokenBytes)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("generate ticket token: %w", err)
	}
	return hex.EncodeToString(buf), nil
}
