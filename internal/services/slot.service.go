package services

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/nimasrn/vending-gateway/internal/model"
	"github.com/nimasrn/vending-gateway/internal/repository"
)

var (
	ErrMachineNotFound = errors.New("machine not found")
	ErrSlotNotFound    = errors.New("slot not found")
	ErrSlotUnavailable = errors.New("slot is not available")
)

type SlotRepository interface {
	GetByID(ctx context.Context, id uuid.UUID) (*model.Slot, error)
	ListByMachine(ctx context.Context, machineID uuid.UUID) ([]*model.Slot, error)
	CreateBatch(ctx context.Context, slots []*model.Slot) ([]*model.Slot, error)
	Reserve(ctx context.Context, id uuid.UUID) error
	SetAvailability(ctx context.Context, id uuid.UUID, available bool) error
	WithinTransaction(ctx context.Context, fn func(ctx context.Context) error) error
}

type MachineRepository interface {
	Create(ctx context.Context, m *model.Machine) (*model.Machine, error)
	GetByID(ctx context.Context, id uuid.UUID) (*model.Machine, error)
	List(ctx context.Context) ([]*model.Machine, error)
}

type SlotService struct {
	slotRepo    SlotRepository
	machineRepo MachineRepository
}

func NewSlotService(slotRepo SlotRepository, machineRepo MachineRepository) *SlotService {
	return &SlotService{
		slotRepo:    slotRepo,
		machineRepo: machineRepo,
	}
}

func (s *SlotService) Get(ctx context.Context, id uuid.UUID) (*model.Slot, error) {
	slot, err := s.slotRepo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrSlotNotFound) {
			return nil, ErrSlotNotFound
		}
		return nil, fmt.Errorf("get slot: %w", err)
	}
	return slot, nil
}

func (s *SlotService) ListByMachine(ctx context.Context, machineID uuid.UUID) ([]*model.Slot, error) {
	return s.slotRepo.ListByMachine(ctx, machineID)
}

// InitializeGrid lays out a rows x cols grid of slots for one machine in a
// single transaction. Either every slot is created or none are.
func (s *SlotService) InitializeGrid(ctx context.Context, p model.GridInitRequest) ([]*model.Slot, error) {
	p.ApplyDefaults()
	if err := p.Validate(); err != nil {
		return nil, err
	}

	if _, err := s.machineRepo.GetByID(ctx, p.MachineID); err != nil {
		if errors.Is(err, repository.ErrMachineNotFound) {
			return nil, ErrMachineNotFound
		}
		return nil, fmt.Errorf("get machine: %w", err)
	}

	slots := make([]*model.Slot, 0, p.Rows*p.Cols)
	for row := 1; row <= p.Rows; row++ {
		for col := 1; col <= p.Cols; col++ {
			slots = append(slots, &model.Slot{
				MachineID:   p.MachineID,
				Row:         row,
				Column:      col,
				ProductName: p.ProductName,
				Price:       p.Price,
				IsAvailable: true,
			})
		}
	}

	var created []*model.Slot
	err := s.slotRepo.WithinTransaction(ctx, func(ctx context.Context) error {
		var err error
		created, err = s.slotRepo.CreateBatch(ctx, slots)
		if err != nil {
			return fmt.Errorf("create slots: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return created, nil
}

// Release re-opens a slot after the physical collect-and-reset step. It is
// the only path that flips is_available back to true, and it is idempotent.
func (s *SlotService) Release(ctx context.Context, id uuid.UUID) error {
	err := s.slotRepo.SetAvailability(ctx, id, true)
	if err != nil {
		if errors.Is(err, repository.ErrSlotNotFound) {
			return ErrSlotNotFound
		}
		return fmt.Errorf("release slot: %w", err)
	}
	return nil
}
