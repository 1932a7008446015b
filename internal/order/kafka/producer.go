package kafka

import (
	"context"
	"encoding/json"
	"fmt"

	"ms-ticketshop/internal/config"
	"ms-ticketshop/internal/models"
)

// Publisher is the raw message sink, satisfied by internal/kafka.Producer.
type Publisher interface {
	Publish(ctx context.Context, topic, key string, value []byte) error
}

// EventPublisher maps lifecycle events to their topics, keyed by order id.
type EventPublisher struct {
	Producer Publisher
	Topics   config.TopicConfig
}

func NewEventPublisher(producer Publisher, topics config.TopicConfig) *EventPublisher {
	return &EventPublisher{Producer: producer, Topics: topics}
}

// PublishOrderEvent streams an order.created or order.status event
func (p *EventPublisher) PublishOrderEvent(ctx context.Context, event models.OrderEvent) error {
	topic := p.Topics.OrderStatus
	if event.Type == models.EventOrderCreated {
		topic = p.Topics.OrderCreated
	}
	return p.publish(ctx, topic, event)
}

// PublishTicketsIssued streams the tickets.issued event the mailer consumes
func (p *EventPublisher) PublishTicketsIssued(ctx context.Context, event models.OrderEvent) error {
	return p.publish(ctx, p.Topics.TicketsIssued, event)
}

func (p *EventPublisher) publish(ctx context.Context, topic string, event models.OrderEvent) error {
	msgBytes, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("marshal %s event: %w", event.Type, err)
	}
	return p.Producer.Publish(ctx, topic, event.ExtOrderID, msgBytes)
}
