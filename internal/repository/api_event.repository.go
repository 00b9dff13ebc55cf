package repository

import (
	"context"

	"github.com/google/uuid"
	"github.com/nimasrn/vending-gateway/internal/model"
	"github.com/nimasrn/vending-gateway/pkg/pg"
)

type APIEventRepository struct {
	*pg.DB
}

func NewAPIEventRepository(db *pg.DB) *APIEventRepository {
	return &APIEventRepository{
		db,
	}
}

func (r *APIEventRepository) Create(ctx context.Context, event *model.APIEvent) (*model.APIEvent, error) {
	entity := toAPIEventEntity(event)

	if err := r.Write(ctx).WithContext(ctx).Create(entity).Error; err != nil {
		return nil, err
	}

	return toAPIEventModel(entity), nil
}

// ListByTransaction returns the audit trail for one transaction, oldest
// first.
func (r *APIEventRepository) ListByTransaction(ctx context.Context, transactionID uuid.UUID) ([]*model.APIEvent, error) {
	var entities []*APIEventEntity
	err := r.Read(ctx).WithContext(ctx).
		Where("transaction_id = ?", transactionID).
		Order("created_at ASC").
		Find(&entities).
		Error
	if err != nil {
		return nil, err
	}

	models := make([]*model.APIEvent, len(entities))
	for i, e := range entities {
		models[i] = toAPIEventModel(e)
	}
	return models, nil
}
