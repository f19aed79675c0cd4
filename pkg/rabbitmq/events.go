package rabbitmq

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/rs/zerolog"
	amqp "github.com/streadway/amqp"
)

// Routing keys for order events.
const (
	RoutingOrderCreated       = "order.created"
	RoutingOrderStatusUpdated = "order.status_updated"
)

// OrderEvent is the JSON payload of every order event.
type OrderEvent struct {
	Type          string    `json:"type"`
	OrderID       string    `json:"orderId"`
	UserID        string    `json:"userId"`
	OrderStatus   string    `json:"orderStatus"`
	PaymentStatus string    `json:"paymentStatus"`
	Total         float64   `json:"total"`
	VendorIDs     []string  `json:"vendorIds"`
	ActorID       string    `json:"actorId,omitempty"`
	OccurredAt    time.Time `json:"occurredAt"`
}

// Encode marshals e for publishing.
func (e OrderEvent) Encode() ([]byte, error) {
	body, err := json.Marshal(e)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal order event: %w", err)
	}
	return body, nil
}

// DecodeOrderEvent parses a message body produced by OrderEvent.Encode.
func DecodeOrderEvent(body []byte) (OrderEvent, error) {
	var e OrderEvent
	if err := json.Unmarshal(body, &e); err != nil {
		return OrderEvent{}, fmt.Errorf("failed to decode order event: %w", err)
	}
	if e.OrderID == "" {
		return OrderEvent{}, fmt.Errorf("order event without order ID")
	}
	return e, nil
}

// LogOrderEvents returns a consumer handler that records each order event.
// Malformed payloads are rejected so they are not redelivered forever.
func LogOrderEvents(logger zerolog.Logger) func(msg amqp.Delivery) error {
	return func(msg amqp.Delivery) error {
		event, err := DecodeOrderEvent(msg.Body)
		if err != nil {
			return err
		}
		logger.Info().
			Str("routing_key", msg.RoutingKey).
			Str("order_id", event.OrderID).
			Str("order_status", event.OrderStatus).
			Float64("total", event.Total).
			Msg("order event received")
		return nil
	}
}
