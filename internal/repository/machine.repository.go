package repository

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/nimasrn/vending-gateway/internal/model"
	"github.com/nimasrn/vending-gateway/pkg/pg"
	"gorm.io/gorm"
)

var (
	// ErrMachineNotFound is returned when a machine does not exist.
	ErrMachineNotFound = errors.New("machine not found")
)

type MachineRepository struct {
	*pg.DB
}

func NewMachineRepository(db *pg.DB) *MachineRepository {
	return &MachineRepository{
		db,
	}
}

func (r *MachineRepository) Create(ctx context.Context, m *model.Machine) (*model.Machine, error) {
	entity := toMachineEntity(m)

	if err := r.Write(ctx).WithContext(ctx).Create(entity).Error; err != nil {
		return nil, err
	}

	return toMachineModel(entity), nil
}

func (r *MachineRepository) GetByID(ctx context.Context, id uuid.UUID) (*model.Machine, error) {
	var entity MachineEntity
	err := r.Read(ctx).WithContext(ctx).
		Where("id = ?", id).
		First(&entity).
		Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrMachineNotFound
		}
		return nil, err
	}
	return toMachineModel(&entity), nil
}

func (r *MachineRepository) List(ctx context.Context) ([]*model.Machine, error) {
	var entities []*MachineEntity
	err := r.Read(ctx).WithContext(ctx).
		Order("created_at ASC").
		Find(&entities).
		Error
	if err != nil {
		return nil, err
	}
	return toMachineModels(entities), nil
}
