package repository

import (
	"github.com/google/uuid"
	"github.com/nimasrn/vending-gateway/internal/model"
	"github.com/nimasrn/vending-gateway/pkg/pg"
	"gorm.io/gorm"
)

type SlotEntity struct {
	pg.Model
	MachineID   uuid.UUID `db:"machine_id"   gorm:"column:machine_id;type:uuid;not null;index"`
	Row         int       `db:"row"          gorm:"column:row;not null"`
	Column      int       `db:"column"       gorm:"column:column;not null"`
	ProductName string    `db:"product_name" gorm:"column:product_name;not null"`
	Price       float64   `db:"price"        gorm:"column:price;not null"`
	IsAvailable bool      `db:"is_available" gorm:"column:is_available;not null;default:true"`
}

func (SlotEntity) TableName() string {
	return "slots"
}

func (e *SlotEntity) BeforeCreate(*gorm.DB) error {
	e.EnsureID()
	return nil
}

func toSlotEntity(m *model.Slot) *SlotEntity {
	if m == nil {
		return nil
	}
	e := &SlotEntity{
		MachineID:   m.MachineID,
		Row:         m.Row,
		Column:      m.Column,
		ProductName: m.ProductName,
		Price:       m.Price,
		IsAvailable: m.IsAvailable,
	}
	e.ID = m.ID
	e.CreatedAt = m.CreatedAt
	e.UpdatedAt = m.UpdatedAt
	return e
}

func toSlotModel(e *SlotEntity) *model.Slot {
	if e == nil {
		return nil
	}
	return &model.Slot{
		ID:          e.ID,
		MachineID:   e.MachineID,
		Row:         e.Row,
		Column:      e.Column,
		ProductName: e.ProductName,
		Price:       e.Price,
		IsAvailable: e.IsAvailable,
		CreatedAt:   e.CreatedAt,
		UpdatedAt:   e.UpdatedAt,
	}
}

func toSlotModels(entities []*SlotEntity) []*model.Slot {
	if entities == nil {
		return nil
	}
	models := make([]*model.Slot, len(entities))
	for i, e := range entities {
		models[i] = toSlotModel(e)
	}
	return models
}
