package models

import (
	"time"

	"github.com/uptrace/bun"
)

type Ticket struct {
	bun.BaseModel `bun:"table:tickets"`

	ID          int64     `bun:"id,pk,autoincrement" json:"-"`
	TicketNo    string    `bun:"ticket_no,notnull,unique" json:"ticketNo"`
	TicketToken string    `bun:"ticket_token,notnull,unique" json:"token"`
	ExtOrderID  string    `bun:"ext_order_id,notnull" json:"orderId"`
	FullName    string    `bun:"full_name,notnull" json:"fullName"`
	Email       string    `bun:"email,notnull" json:"-"`
	TicketType  string    `bun:"ticket_type,notnull" json:"ticketType"`
	CreatedAt   time.Time `bun:"created_at,notnull" json:"createdAt"`
}

// TicketSummary is the public listing shape for an order's tickets.
type TicketSummary struct {
	TicketNo string `json:"ticketNo"`
	Token    string `json:"token"`
}

// TicketLookup is a ticket joined with its order's current status.
// OrderStatus is nil when the order row is missing.
type TicketLookup struct {
	TicketNo    string    `bun:"ticket_no"`
	TicketToken string    `bun:"ticket_token"`
	ExtOrderID  string    `bun:"ext_order_id"`
	FullName    string    `bun:"full_name"`
	Email       string    `bun:"email"`
	TicketType  string    `bun:"ticket_type"`
	CreatedAt   time.Time `bun:"created_at"`
	OrderStatus *string   `bun:"order_status"`
}
