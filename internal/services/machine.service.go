package services

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/nimasrn/vending-gateway/internal/model"
	"github.com/nimasrn/vending-gateway/internal/repository"
)

type MachineService struct {
	machineRepo MachineRepository
}

func NewMachineService(machineRepo MachineRepository) *MachineService {
	return &MachineService{
		machineRepo: machineRepo,
	}
}

func (s *MachineService) Create(ctx context.Context, p model.MachineCreateRequest) (*model.Machine, error) {
	if err := p.Validate(); err != nil {
		return nil, err
	}

	m := &model.Machine{
		Location: p.Location,
		Status:   p.Status,
	}
	return s.machineRepo.Create(ctx, m)
}

func (s *MachineService) Get(ctx context.Context, id uuid.UUID) (*model.Machine, error) {
	m, err := s.machineRepo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrMachineNotFound) {
			return nil, ErrMachineNotFound
		}
		return nil, fmt.Errorf("get machine: %w", err)
	}
	return m, nil
}

func (s *MachineService) List(ctx context.Context) ([]*model.Machine, error) {
	return s.machineRepo.List(ctx)
}
