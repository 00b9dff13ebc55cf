package pg

import (
	"time"

	"github.com/google/uuid"
)

// Model is the shared base for uuid-keyed entities. Ids are generated
// app-side in BeforeCreate hooks so the same entities run against postgres
// and the sqlite test database.
type Model struct {
	ID        uuid.UUID  `gorm:"primaryKey;type:uuid;column:id"`
	CreatedAt time.Time  `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt *time.Time `gorm:"column:updated_at"`
}

// EnsureID assigns a fresh uuid if none is set yet.
func (m *Model) EnsureID() {
	if m.ID == uuid.Nil {
		m.ID = uuid.New()
	}
}
