package order

import (
	"encoding/json"
	"time"
)

const (
	EventOrderPlaced = "OrderPlaced"
)

// Envelope wraps every event published to the bus.
type Envelope struct {
	EventID       string          `json:"event_id"`                 // uuid
	EventType     string          `json:"event_type"`               // EventOrderPlaced
	EventVersion  int             `json:"event_version"`            // 1
	OccurredAt    time.Time       `json:"occurred_at"`              // RFC3339
	Producer      string          `json:"producer"`                 // e.g. "pos-terminal"
	CorrelationID string          `json:"correlation_id,omitempty"` // order id
	Payload       json.RawMessage `json:"payload"`
}

type OrderPlacedPayload struct {
	OrderID    string     `json:"order_id"`
	Table      int        `json:"table"`
	TotalCents int        `json:"total_cents"`
	Items      []LineItem `json:"items"`
	CommitTime time.Time  `json:"commit_time"`
}
