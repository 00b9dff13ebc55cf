package repository

import (
	"github.com/google/uuid"
	"github.com/nimasrn/vending-gateway/internal/model"
	"github.com/nimasrn/vending-gateway/pkg/pg"
	"gorm.io/gorm"
)

type TransactionEntity struct {
	pg.Model
	SlotID        uuid.UUID `db:"slot_id"        gorm:"column:slot_id;type:uuid;not null;index"`
	ChargeID      string    `db:"charge_id"      gorm:"column:charge_id;not null;uniqueIndex"`
	QRCode        string    `db:"qr_code"        gorm:"column:qr_code;not null"`
	PaymentStatus string    `db:"payment_status" gorm:"column:payment_status;not null"`
	Amount        float64   `db:"amount"         gorm:"column:amount;not null"`
}

func (TransactionEntity) TableName() string {
	return "transactions"
}

func (e *TransactionEntity) BeforeCreate(*gorm.DB) error {
	e.EnsureID()
	return nil
}

func toTransactionEntity(m *model.Transaction) *TransactionEntity {
	if m == nil {
		return nil
	}
	e := &TransactionEntity{
		SlotID:        m.SlotID,
		ChargeID:      m.ChargeID,
		QRCode:        m.QRCode,
		PaymentStatus: m.PaymentStatus,
		Amount:        m.Amount,
	}
	e.ID = m.ID
	e.CreatedAt = m.CreatedAt
	e.UpdatedAt = m.UpdatedAt
	return e
}

func toTransactionModel(e *TransactionEntity) *model.Transaction {
	if e == nil {
		return nil
	}
	return &model.Transaction{
		ID:            e.ID,
		SlotID:        e.SlotID,
		ChargeID:      e.ChargeID,
		QRCode:        e.QRCode,
		PaymentStatus: e.PaymentStatus,
		Amount:        e.Amount,
		CreatedAt:     e.CreatedAt,
		UpdatedAt:     e.UpdatedAt,
	}
}

func toTransactionModels(entities []*TransactionEntity) []*model.Transaction {
	if entities == nil {
		return nil
	}
	models := make([]*model.Transaction, len(entities))
	for i, e := range entities {
		models[i] = toTransactionModel(e)
	}
	return models
}
