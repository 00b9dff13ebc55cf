package repository

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/nimasrn/vending-gateway/internal/model"
	"gorm.io/gorm"
)

// APIEventEntity is append-only: no updated_at, no update path.
type APIEventEntity struct {
	ID            uuid.UUID       `db:"id"             gorm:"primaryKey;type:uuid;column:id"`
	TransactionID uuid.UUID       `db:"transaction_id" gorm:"column:transaction_id;type:uuid;not null;index"`
	EventType     string          `db:"event_type"     gorm:"column:event_type;not null"`
	Payload       json.RawMessage `db:"payload"        gorm:"column:payload;type:jsonb"`
	CreatedAt     time.Time       `db:"created_at"     gorm:"column:created_at;autoCreateTime"`
}

func (APIEventEntity) TableName() string {
	return "api_events"
}

func (e *APIEventEntity) BeforeCreate(*gorm.DB) error {
	if e.ID == uuid.Nil {
		e.ID = uuid.New()
	}
	return nil
}

func toAPIEventEntity(m *model.APIEvent) *APIEventEntity {
	if m == nil {
		return nil
	}
	return &APIEventEntity{
		ID:            m.ID,
		TransactionID: m.TransactionID,
		EventType:     m.EventType,
		Payload:       m.Payload,
		CreatedAt:     m.CreatedAt,
	}
}

func toAPIEventModel(e *APIEventEntity) *model.APIEvent {
	if e == nil {
		return nil
	}
	return &model.APIEvent{
		ID:            e.ID,
		TransactionID: e.TransactionID,
		EventType:     e.EventType,
		Payload:       e.Payload,
		CreatedAt:     e.CreatedAt,
	}
}
