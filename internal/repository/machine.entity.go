package repository

import (
	"github.com/nimasrn/vending-gateway/internal/model"
	"github.com/nimasrn/vending-gateway/pkg/pg"
	"gorm.io/gorm"
)

type MachineEntity struct {
	pg.Model
	Location string `db:"location" gorm:"column:location;not null"`
	Status   string `db:"status"   gorm:"column:status;not null"`
}

func (MachineEntity) TableName() string {
	return "machines"
}

func (e *MachineEntity) BeforeCreate(*gorm.DB) error {
	e.EnsureID()
	return nil
}

func toMachineEntity(m *model.Machine) *MachineEntity {
	if m == nil {
		return nil
	}
	e := &MachineEntity{
		Location: m.Location,
		Status:   m.Status,
	}
	e.ID = m.ID
	e.CreatedAt = m.CreatedAt
	e.UpdatedAt = m.UpdatedAt
	return e
}

func toMachineModel(e *MachineEntity) *model.Machine {
	if e == nil {
		return nil
	}
	return &model.Machine{
		ID:        e.ID,
		Location:  e.Location,
		Status:    e.Status,
		CreatedAt: e.CreatedAt,
		UpdatedAt: e.UpdatedAt,
	}
}

func toMachineModels(entities []*MachineEntity) []*model.Machine {
	if entities == nil {
		return nil
	}
	models := make([]*model.Machine, len(entities))
	for i, e := range entities {
		models[i] = toMachineModel(e)
	}
	return models
}
