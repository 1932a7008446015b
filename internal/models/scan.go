package models

import (
	"time"

	"github.com/uptrace/bun"
)

const DefaultCheckpoint = "unknown"

// Negative verification reasons.
const (
	ReasonNotFound          = "NOT_FOUND"
	ReasonOrderNotCompleted = "ORDER_NOT_COMPLETED"
)

// ScanEvent is one gate check. Rows are only ever appended.
type ScanEvent struct {
	bun.BaseModel `bun:"table:ticket_scans"`

	ID          int64     `bun:"id,pk,autoincrement"`
	TicketNo    string    `bun:"ticket_no,notnull"`
	TicketToken string    `bun:"ticket_token,notnull"`
	ScannedAt   time.Time `bun:"scanned_at,notnull"`
	ScannedFor  string    `bun:"scanned_for,notnull"`
	ScannedBy   *string   `bun:"scanned_by"`
	IP          string    `bun:"ip"`
	UserAgent   string    `bun:"user_agent"`
}

type ScanCount struct {
	ScannedFor string `bun:"scanned_for" json:"scannedFor"`
	Count      int    `bun:"cnt" json:"count"`
}

type Access struct {
	Day1    bool `json:"day1"`
	Day2    bool `json:"day2"`
	Banquet bool `json:"banquet"`
}

type VerifyRequest struct {
	Token      string
	ScannedFor string
	ScannedBy  string
	IP         string
	UserAgent  string
}

type VerificationResult struct {
	Valid       bool        `json:"valid"`
	Reason      string      `json:"reason,omitempty"`
	OrderStatus *string     `json:"orderStatus,omitempty"`
	TicketNo    string      `json:"ticketNo,omitempty"`
	TicketType  string      `json:"ticketType,omitempty"`
	FullName    string      `json:"fullName,omitempty"`
	OrderID     string      `json:"orderId,omitempty"`
	Access      *Access     `json:"access,omitempty"`
	ScanCounts  []ScanCount `json:"scanCounts,omitempty"`
}
