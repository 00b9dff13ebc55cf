package model

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

const EventTypeChargeComplete = "charge.complete"

// APIEvent is an append-only audit record of a raw gateway event received
// about a transaction. Rows are never updated or deleted.
type APIEvent struct {
	ID            uuid.UUID       `json:"id"`
	TransactionID uuid.UUID       `json:"transaction_id"`
	EventType     string          `json:"event_type"`
	Payload       json.RawMessage `json:"payload"`
	CreatedAt     time.Time       `json:"created_at"`
}

func (APIEvent) TableName() string { return "api_events" }
