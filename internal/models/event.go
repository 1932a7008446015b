package models

import "time"

const (
	EventOrderCreated  = "order.created"
	EventOrderStatus   = "order.status"
	EventTicketsIssued = "tickets.issued"
)

// OrderEvent is the lifecycle message written to Kafka. It carries ids and
// counts; consumers load buyer data from the store.
type OrderEvent struct {
	Type          string    `json:"type"`
	ExtOrderID    string    `json:"extOrderId"`
	Status        string    `json:"status,omitempty"`
	RemoteOrderID string    `json:"payuOrderId,omitempty"`
	TicketType    string    `json:"ticketType,omitempty"`
	Quantity      int       `json:"quantity,omitempty"`
	TotalAmount   int64     `json:"totalAmount,omitempty"`
	TicketsIssued int       `json:"ticketsIssued,omitempty"`
	OccurredAt    time.Time `json:"occurredAt"`
}
