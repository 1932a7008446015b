package models

import (
	"strings"
	"time"

	"github.com/uptrace/bun"
)

// Locally assigned statuses. Gateway statuses (NEW, WAITING_FOR_CONFIRMATION,
// COMPLETED, CANCELED) are stored verbatim.
const (
	StatusPending                = "PENDING"
	StatusCompleted              = "COMPLETED"
	StatusCanceled               = "CANCELED"
	StatusWaitingForConfirmation = "WAITING_FOR_CONFIRMATION"
	StatusPayUCreateFailed       = "PAYU_CREATE_FAILED"
	StatusPayUCreateError        = "PAYU_CREATE_ERROR"
)

func IsCompleted(status string) bool {
	return strings.EqualFold(status, StatusCompleted)
}

type Order struct {
	bun.BaseModel `bun:"table:orders"`

	ExtOrderID    string    `bun:"ext_order_id,pk" json:"extOrderId"`
	Status        string    `bun:"status,notnull" json:"status"`
	RemoteOrderID *string   `bun:"payu_order_id" json:"payuOrderId"`
	FullName      string    `bun:"full_name,notnull" json:"fullName"`
	Email         string    `bun:"email,notnull" json:"email"`
	Phone         string    `bun:"phone,notnull" json:"phone"`
	Street        string    `bun:"street,notnull" json:"street"`
	City          string    `bun:"city,notnull" json:"city"`
	PostalCode    string    `bun:"postal_code,notnull" json:"postalCode"`
	TicketType    string    `bun:"ticket_type,notnull" json:"ticketType"`
	Quantity      int       `bun:"quantity,notnull" json:"quantity"`
	UnitPrice     int64     `bun:"unit_price,notnull" json:"unitPrice"`
	TotalAmount   int64     `bun:"total_amount,notnull" json:"totalAmount"`
	PromoCode     *string   `bun:"promo_code" json:"promoCode,omitempty"`
	PromoApplied  bool      `bun:"promo_applied,notnull" json:"promoApplied"`
	CreatedAt     time.Time `bun:"created_at,notnull" json:"createdAt"`
	UpdatedAt     time.Time `bun:"updated_at,notnull" json:"updatedAt"`
}

// StatusUpdate is a partial write against an order. Nil fields leave the
// stored value untouched.
type StatusUpdate struct {
	ExtOrderID    string
	Status        *string
	RemoteOrderID *string
}

// CreateOrderRequest is the buyer form. Quantity arrives as a string or a
// number, so it is kept loosely typed until clamped.
type CreateOrderRequest struct {
	FullName   string `json:"fullName" validate:"required"`
	Email      string `json:"email" validate:"required"`
	Phone      string `json:"phone" validate:"required"`
	Street     string `json:"street" validate:"required"`
	City       string `json:"city" validate:"required"`
	PostalCode string `json:"postalCode" validate:"required"`
	TicketType string `json:"ticketType" validate:"required"`
	Quantity   any    `json:"quantity"`
	PromoCode  string `json:"promoCode"`
}

type CreateOrderResponse struct {
	RedirectURI string `json:"redirectUri"`
	ExtOrderID  string `json:"extOrderId"`
}

type OrderStatusResponse struct {
	Found         bool    `json:"found"`
	ExtOrderID    string  `json:"extOrderId,omitempty"`
	Status        string  `json:"status,omitempty"`
	RemoteOrderID *string `json:"payuOrderId,omitempty"`
}

// SyncStatusResult is what reconciliation reports back to the polling client.
type SyncStatusResult struct {
	Found         bool    `json:"found"`
	ExtOrderID    string  `json:"extOrderId,omitempty"`
	RemoteOrderID *string `json:"payuOrderId"`
	PayUStatus    *string `json:"payuStatus,omitempty"`
	Status        string  `json:"status,omitempty"`
	TicketsIssued int     `json:"ticketsIssued,omitempty"`
}

// NotificationOutcome describes what a webhook delivery did. Only logged.
type NotificationOutcome struct {
	ExtOrderID    string
	Applied       bool
	Ignored       string
	Status        string
	TicketsIssued int
}
