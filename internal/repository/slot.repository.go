package repository

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/nimasrn/vending-gateway/internal/model"
	"github.com/nimasrn/vending-gateway/pkg/pg"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

var (
	// ErrSlotNotFound is returned when a slot does not exist.
	ErrSlotNotFound = errors.New("slot not found")
	// ErrSlotUnavailable is returned when a reservation races a sold or
	// already reserved slot.
	ErrSlotUnavailable = errors.New("slot not available")
)

type SlotRepository struct {
	*pg.DB
}

func NewSlotRepository(db *pg.DB) *SlotRepository {
	return &SlotRepository{
		db,
	}
}

func (r *SlotRepository) GetByID(ctx context.Context, id uuid.UUID) (*model.Slot, error) {
	var entity SlotEntity
	err := r.Read(ctx).WithContext(ctx).
		Where("id = ?", id).
		First(&entity).
		Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrSlotNotFound
		}
		return nil, err
	}
	return toSlotModel(&entity), nil
}

func (r *SlotRepository) ListByMachine(ctx context.Context, machineID uuid.UUID) ([]*model.Slot, error) {
	var entities []*SlotEntity
	err := r.Read(ctx).WithContext(ctx).
		Where("machine_id = ?", machineID).
		Order(`"row", "column"`).
		Find(&entities).
		Error
	if err != nil {
		return nil, err
	}
	return toSlotModels(entities), nil
}

// CreateBatch inserts the full batch in one statement. Callers wanting
// all-or-nothing run it inside WithinTransaction.
func (r *SlotRepository) CreateBatch(ctx context.Context, slots []*model.Slot) ([]*model.Slot, error) {
	entities := make([]*SlotEntity, len(slots))
	for i, s := range slots {
		entities[i] = toSlotEntity(s)
	}

	if err := r.Write(ctx).WithContext(ctx).Create(&entities).Error; err != nil {
		return nil, err
	}

	return toSlotModels(entities), nil
}

// Reserve flips is_available from true to false for exactly one caller.
// The row lock plus the guarded update serialize concurrent payment
// attempts: the loser sees zero affected rows and gets ErrSlotUnavailable.
func (r *SlotRepository) Reserve(ctx context.Context, id uuid.UUID) error {
	var entity SlotEntity

	err := r.Write(ctx).WithContext(ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("id = ?", id).
		First(&entity).
		Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrSlotNotFound
		}
		return err
	}

	if !entity.IsAvailable {
		return ErrSlotUnavailable
	}

	result := r.Write(ctx).WithContext(ctx).
		Model(&SlotEntity{}).
		Where("id = ? AND is_available = ?", id, true).
		Updates(map[string]interface{}{
			"is_available": false,
			"updated_at":   time.Now().UTC(),
		})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return ErrSlotUnavailable
	}

	return nil
}

// SetAvailability is the explicit lock/unlock path used by status
// reconciliation and the manual release operation.
func (r *SlotRepository) SetAvailability(ctx context.Context, id uuid.UUID, available bool) error {
	result := r.Write(ctx).WithContext(ctx).
		Model(&SlotEntity{}).
		Where("id = ?", id).
		Updates(map[string]interface{}{
			"is_available": available,
			"updated_at":   time.Now().UTC(),
		})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return ErrSlotNotFound
	}
	return nil
}
