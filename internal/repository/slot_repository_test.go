package repository

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/google/uuid"
	"github.com/nimasrn/vending-gateway/internal/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func seedMachine(t *testing.T, db *testDB) uuid.UUID {
	t.Helper()
	machine := &MachineEntity{
		Location: "Test Building",
		Status:   "active",
	}
	err := db.Write(context.Background()).Create(machine).Error
	require.NoError(t, err)
	return machine.ID
}

func seedSlot(t *testing.T, db *testDB, machineID uuid.UUID, available bool) uuid.UUID {
	t.Helper()
	slot := &SlotEntity{
		MachineID:   machineID,
		Row:         1,
		Column:      1,
		ProductName: "Water Bottle",
		Price:       20.0,
		IsAvailable: available,
	}
	err := db.Write(context.Background()).Create(slot).Error
	require.NoError(t, err)
	return slot.ID
}

func TestSlotRepository_GetByID(t *testing.T) {
	db := setupTestDB(t)
	repo := NewSlotRepository(db.DB)
	ctx := context.Background()

	machineID := seedMachine(t, db)

	t.Run("existing slot", func(t *testing.T) {
		slotID := seedSlot(t, db, machineID, true)

		slot, err := repo.GetByID(ctx, slotID)
		require.NoError(t, err)
		assert.Equal(t, slotID, slot.ID)
		assert.Equal(t, machineID, slot.MachineID)
		assert.Equal(t, "Water Bottle", slot.ProductName)
		assert.True(t, slot.IsAvailable)
	})

	t.Run("slot not found", func(t *testing.T) {
		_, err := repo.GetByID(ctx, uuid.New())
		assert.ErrorIs(t, err, ErrSlotNotFound)
	})
}

func TestSlotRepository_Reserve(t *testing.T) {
	db := setupTestDB(t)
	repo := NewSlotRepository(db.DB)
	ctx := context.Background()

	machineID := seedMachine(t, db)

	t.Run("successful reservation", func(t *testing.T) {
		slotID := seedSlot(t, db, machineID, true)

		err := repo.Reserve(ctx, slotID)
		assert.NoError(t, err)

		slot, err := repo.GetByID(ctx, slotID)
		require.NoError(t, err)
		assert.False(t, slot.IsAvailable)
	})

	t.Run("already reserved", func(t *testing.T) {
		slotID := seedSlot(t, db, machineID, false)

		err := repo.Reserve(ctx, slotID)
		assert.ErrorIs(t, err, ErrSlotUnavailable)
	})

	t.Run("double reservation", func(t *testing.T) {
		slotID := seedSlot(t, db, machineID, true)

		err := repo.Reserve(ctx, slotID)
		require.NoError(t, err)

		err = repo.Reserve(ctx, slotID)
		assert.ErrorIs(t, err, ErrSlotUnavailable)
	})

	t.Run("slot not found", func(t *testing.T) {
		err := repo.Reserve(ctx, uuid.New())
		assert.ErrorIs(t, err, ErrSlotNotFound)
	})
}

func TestSlotRepository_ReserveConcurrent(t *testing.T) {
	db := setupTestDB(t)

	// a single pooled connection keeps both goroutines on the same
	// in-memory database
	sqlDB, err := db.rawDB.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)

	repo := NewSlotRepository(db.DB)
	machineID := seedMachine(t, db)
	slotID := seedSlot(t, db, machineID, true)

	results := make(chan error, 2)
	var wg sync.WaitGroup
	for i := 0; i < 2; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			results <- repo.WithinTransaction(context.Background(), func(ctx context.Context) error {
				return repo.Reserve(ctx, slotID)
			})
		}()
	}
	wg.Wait()
	close(results)

	var won, lost int
	for err := range results {
		switch {
		case err == nil:
			won++
		case errors.Is(err, ErrSlotUnavailable):
			lost++
		default:
			t.Fatalf("unexpected reserve error: %v", err)
		}
	}
	assert.Equal(t, 1, won)
	assert.Equal(t, 1, lost)

	slot, err := repo.GetByID(context.Background(), slotID)
	require.NoError(t, err)
	assert.False(t, slot.IsAvailable)
}

func TestSlotRepository_SetAvailability(t *testing.T) {
	db := setupTestDB(t)
	repo := NewSlotRepository(db.DB)
	ctx := context.Background()

	machineID := seedMachine(t, db)

	t.Run("release reserved slot", func(t *testing.T) {
		slotID := seedSlot(t, db, machineID, false)

		err := repo.SetAvailability(ctx, slotID, true)
		assert.NoError(t, err)

		slot, err := repo.GetByID(ctx, slotID)
		require.NoError(t, err)
		assert.True(t, slot.IsAvailable)
	})

	t.Run("release is idempotent", func(t *testing.T) {
		slotID := seedSlot(t, db, machineID, true)

		err := repo.SetAvailability(ctx, slotID, true)
		assert.NoError(t, err)

		err = repo.SetAvailability(ctx, slotID, true)
		assert.NoError(t, err)
	})

	t.Run("slot not found", func(t *testing.T) {
		err := repo.SetAvailability(ctx, uuid.New(), true)
		assert.ErrorIs(t, err, ErrSlotNotFound)
	})
}

func TestSlotRepository_CreateBatch(t *testing.T) {
	db := setupTestDB(t)
	repo := NewSlotRepository(db.DB)
	ctx := context.Background()

	machineID := seedMachine(t, db)

	slots := make([]*model.Slot, 0, 6)
	for row := 1; row <= 2; row++ {
		for col := 1; col <= 3; col++ {
			slots = append(slots, &model.Slot{
				MachineID:   machineID,
				Row:         row,
				Column:      col,
				ProductName: "Water Bottle",
				Price:       20.0,
				IsAvailable: true,
			})
		}
	}

	created, err := repo.CreateBatch(ctx, slots)
	require.NoError(t, err)
	assert.Len(t, created, 6)
	for _, s := range created {
		assert.NotEqual(t, uuid.Nil, s.ID)
	}
}

func TestSlotRepository_ListByMachine(t *testing.T) {
	db := setupTestDB(t)
	repo := NewSlotRepository(db.DB)
	ctx := context.Background()

	machineID := seedMachine(t, db)
	otherMachineID := seedMachine(t, db)

	// insert out of order, listing must come back row-major
	entities := []*SlotEntity{
		{MachineID: machineID, Row: 2, Column: 1, ProductName: "Water Bottle", Price: 20.0, IsAvailable: true},
		{MachineID: machineID, Row: 1, Column: 2, ProductName: "Water Bottle", Price: 20.0, IsAvailable: true},
		{MachineID: machineID, Row: 1, Column: 1, ProductName: "Water Bottle", Price: 20.0, IsAvailable: true},
		{MachineID: otherMachineID, Row: 1, Column: 1, ProductName: "Water Bottle", Price: 20.0, IsAvailable: true},
	}
	for _, e := range entities {
		require.NoError(t, db.Write(ctx).Create(e).Error)
	}

	slots, err := repo.ListByMachine(ctx, machineID)
	require.NoError(t, err)
	require.Len(t, slots, 3)
	assert.Equal(t, 1, slots[0].Row)
	assert.Equal(t, 1, slots[0].Column)
	assert.Equal(t, 1, slots[1].Row)
	assert.Equal(t, 2, slots[1].Column)
	assert.Equal(t, 2, slots[2].Row)
	assert.Equal(t, 1, slots[2].Column)
}

func TestSlotRepository_WithinTransactionRollback(t *testing.T) {
	db := setupTestDB(t)
	repo := NewSlotRepository(db.DB)
	ctx := context.Background()

	machineID := seedMachine(t, db)
	slotID := seedSlot(t, db, machineID, true)

	err := repo.WithinTransaction(ctx, func(ctx context.Context) error {
		if err := repo.Reserve(ctx, slotID); err != nil {
			return err
		}
		return assert.AnError
	})
	assert.ErrorIs(t, err, assert.AnError)

	slot, err := repo.GetByID(ctx, slotID)
	require.NoError(t, err)
	assert.True(t, slot.IsAvailable)
}
