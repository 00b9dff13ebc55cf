package model

import (
	"time"

	"github.com/google/uuid"
)

// PaymentStatus is the lifecycle state of a payment attempt. The gateway is
// the source of truth: statuses outside the known set are stored verbatim.
type PaymentStatus = string

const (
	PaymentStatusPending    PaymentStatus = "pending"
	PaymentStatusSuccessful PaymentStatus = "successful"
	PaymentStatusFailed     PaymentStatus = "failed"
)

// Transaction is one payment attempt against one slot. Amount is held in
// major currency units (baht); the gateway quotes minor units (satang).
type Transaction struct {
	ID            uuid.UUID     `json:"id"`
	SlotID        uuid.UUID     `json:"slot_id"`
	ChargeID      string        `json:"charge_id"`
	QRCode        string        `json:"qr_code"`
	PaymentStatus PaymentStatus `json:"payment_status"`
	Amount        float64       `json:"amount"`
	CreatedAt     time.Time     `json:"created_at"`
	UpdatedAt     *time.Time    `json:"updated_at"`
}

func (Transaction) TableName() string { return "transactions" }

// MinorToMajor converts gateway minor units (satang) to major units (baht).
func MinorToMajor(amount int64) float64 {
	return float64(amount) / 100
}
