package payu

import (
	"crypto/md5"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/hex"
	"errors"
	"hash"
	"strings"

	"github.com/tidwall/gjson"
)

var ErrMalformedNotification = errors.New("malformed notification payload")

// Notification is the part of a PayU webhook body the lifecycle cares about.
// Status and RemoteOrderID are nil when absent so they never overwrite
// stored values.
type Notification struct {
	ExtOrderID    string
	RemoteOrderID *string
	Status        *string
}

// ParseNotification reads {"order":{"extOrderId","orderId","status"}}.
func ParseNotification(body []byte) (*Notification, error) {
	if len(body) == 0 || !gjson.ValidBytes(body) {
		return nil, ErrMalformedNotification
	}

	order := gjson.GetBytes(body, "order")
	if !order.IsObject() {
		return &Notification{}, nil
	}

	return &Notification{
		ExtOrderID:    strings.TrimSpace(order.Get("extOrderId").String()),
		RemoteOrderID: optional(order.Get("orderId")),
		Status:        optional(order.Get("status")),
	}, nil
}

func optional(r gjson.Result) *string {
	s := strings.TrimSpace(r.String())
	if !r.Exists() || s == "" {
		return nil
	}
	return &s
}

// VerifySignature checks the OpenPayu-Signature header against the raw body.
// Without a configured second key every notification is accepted.
func (c *Client) VerifySignature(body []byte, header string) bool {
	if c.secondKey == "" {
		return true
	}

	fields := parseSignatureHeader(header)
	signature := fields["signature"]
	if signature == "" {
		return false
	}

	var h hash.Hash
	switch strings.ToUpper(fields["algorithm"]) {
	case "", "MD5":
		h = md5.New()
	case "SHA256", "SHA-256":
		h = sha256.New()
	default:
		return false
	}
	h.Write(body)
	h.Write([]byte(c.secondKey))
	expected := hex.EncodeToString(h.Sum(nil))

	return subtle.ConstantTimeCompare([]byte(expected), []byte(strings.ToLower(signature))) == 1
}

// parseSignatureHeader splits "sender=checkout;signature=...;algorithm=MD5".
func parseSignatureHeader(header string) map[string]string {
	fields := map[string]string{}
	for _, part := range strings.Split(header, ";") {
		key, value, ok := strings.Cut(strings.TrimSpace(part), "=")
		if ok {
			fields[strings.ToLower(key)] = value
		}
	}
	return fields
}
