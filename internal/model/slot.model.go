package model

import (
	"fmt"
	"time"

	"github.com/google/uuid"
)

// Slot is one addressable dispensing position in a machine's grid.
// IsAvailable is the sole lock flag: false means reserved or dispensing,
// true means free to purchase.
type Slot struct {
	ID          uuid.UUID  `json:"id"`
	MachineID   uuid.UUID  `json:"machine_id"`
	Row         int        `json:"row"`
	Column      int        `json:"column"`
	ProductName string     `json:"product_name"`
	Price       float64    `json:"price"`
	IsAvailable bool       `json:"is_available"`
	CreatedAt   time.Time  `json:"created_at"`
	UpdatedAt   *time.Time `json:"updated_at"`
}

func (Slot) TableName() string { return "slots" }

// GridInitRequest describes a bulk slot layout for one machine.
type GridInitRequest struct {
	MachineID   uuid.UUID
	Rows        int
	Cols        int
	ProductName string
	Price       float64
}

const (
	DefaultGridRows    = 5
	DefaultGridCols    = 6
	DefaultProductName = "Water Bottle"
	DefaultSlotPrice   = 20.0
)

// ApplyDefaults fills zero-valued layout fields with the standard grid.
func (p *GridInitRequest) ApplyDefaults() {
	if p.Rows == 0 {
		p.Rows = DefaultGridRows
	}
	if p.Cols == 0 {
		p.Cols = DefaultGridCols
	}
	if p.ProductName == "" {
		p.ProductName = DefaultProductName
	}
	if p.Price == 0 {
		p.Price = DefaultSlotPrice
	}
}

func (p GridInitRequest) Validate() error {
	if p.MachineID == uuid.Nil {
		return fmt.Errorf("%w: machine_id is required", ErrValidation)
	}
	if p.Rows <= 0 || p.Cols <= 0 {
		return fmt.Errorf("%w: rows and cols must be positive", ErrValidation)
	}
	if p.Price < 0 {
		return fmt.Errorf("%w: price must not be negative", ErrValidation)
	}
	return nil
}
