package repository

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/nimasrn/vending-gateway/internal/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMachineRepository_Create(t *testing.T) {
	db := setupTestDB(t)
	repo := NewMachineRepository(db.DB)
	ctx := context.Background()

	created, err := repo.Create(ctx, &model.Machine{
		Location: "Lobby",
		Status:   "active",
	})
	require.NoError(t, err)
	assert.NotEqual(t, uuid.Nil, created.ID)
	assert.Equal(t, "Lobby", created.Location)
	assert.False(t, created.CreatedAt.IsZero())
}

func TestMachineRepository_GetByID(t *testing.T) {
	db := setupTestDB(t)
	repo := NewMachineRepository(db.DB)
	ctx := context.Background()

	t.Run("existing machine", func(t *testing.T) {
		created, err := repo.Create(ctx, &model.Machine{
			Location: "Floor 2",
			Status:   "active",
		})
		require.NoError(t, err)

		machine, err := repo.GetByID(ctx, created.ID)
		require.NoError(t, err)
		assert.Equal(t, created.ID, machine.ID)
		assert.Equal(t, "Floor 2", machine.Location)
	})

	t.Run("machine not found", func(t *testing.T) {
		_, err := repo.GetByID(ctx, uuid.New())
		assert.ErrorIs(t, err, ErrMachineNotFound)
	})
}

func TestMachineRepository_List(t *testing.T) {
	db := setupTestDB(t)
	repo := NewMachineRepository(db.DB)
	ctx := context.Background()

	machines, err := repo.List(ctx)
	require.NoError(t, err)
	assert.Empty(t, machines)

	for _, loc := range []string{"A", "B", "C"} {
		_, err := repo.Create(ctx, &model.Machine{Location: loc, Status: "active"})
		require.NoError(t, err)
	}

	machines, err = repo.List(ctx)
	require.NoError(t, err)
	assert.Len(t, machines, 3)
}
