package model

import (
	"fmt"
	"time"

	"github.com/google/uuid"
)

type Machine struct {
	ID        uuid.UUID  `json:"id"`
	Location  string     `json:"location"`
	Status    string     `json:"status"`
	CreatedAt time.Time  `json:"created_at"`
	UpdatedAt *time.Time `json:"updated_at"`
}

func (Machine) TableName() string { return "machines" }

// MachineCreateRequest is the input for provisioning a machine.
type MachineCreateRequest struct {
	Location string
	Status   string
}

func (p MachineCreateRequest) Validate() error {
	if p.Location == "" {
		return fmt.Errorf("%w: location is required", ErrValidation)
	}
	if p.Status == "" {
		return fmt.Errorf("%w: status is required", ErrValidation)
	}
	return nil
}
