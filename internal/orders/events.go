package orders

import (
	"encoding/json"
	"time"
)

const (
	EventOrderCreated   = "OrderCreated"
	EventOrderClaimed   = "OrderClaimed"
	EventOrderDelivered = "OrderDelivered"
	EventOrderCancelled = "OrderCancelled"
)

type Envelope struct {
	EventID       string          `json:"event_id"`
	EventType     string          `json:"event_type"`
	EventVersion  int             `json:"event_version"`
	OccurredAt    time.Time       `json:"occurred_at"`
	Producer      string          `json:"producer"`
	TraceID       string          `json:"trace_id,omitempty"`
	CorrelationID string          `json:"correlation_id,omitempty"` // order id
	Payload       json.RawMessage `json:"payload"`
}

type OrderCreatedPayload struct {
	OrderID          string      `json:"order_id"`
	CustomerID       string      `json:"customer_id"`
	Items            []OrderItem `json:"items"`
	DeliveryAddress  string      `json:"delivery_address"`
	SubtotalCents    int         `json:"subtotal_cents"`
	DeliveryFeeCents int         `json:"delivery_fee_cents"`
	TotalCents       int         `json:"total_cents"`
}

type OrderClaimedPayload struct {
	OrderID   string `json:"order_id"`
	CourierID string `json:"courier_id"`
}

type OrderDeliveredPayload struct {
	OrderID   string `json:"order_id"`
	CourierID string `json:"courier_id"`
}

type OrderCancelledPayload struct {
	OrderID    string `json:"order_id"`
	CustomerID string `json:"customer_id"`
}

// StatusForEvent maps a lifecycle event type to the status the order holds
// after it, for consumers that only track the current state.
func StatusForEvent(eventType string) (Status, bool) {
	switch eventType {
	case EventOrderCreated:
		return StatusPending, true
	case EventOrderClaimed:
		return StatusAccepted, true
	case EventOrderDelivered:
		return StatusDelivered, true
	case EventOrderCancelled:
		return StatusCancelled, true
	}
	return "", false
}
