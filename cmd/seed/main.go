package main

import (
	"context"
	"os"
	"strings"

	"github.com/nimasrn/vending-gateway/internal/config"
	"github.com/nimasrn/vending-gateway/internal/model"
	"github.com/nimasrn/vending-gateway/internal/repository"
	"github.com/nimasrn/vending-gateway/internal/services"
	"github.com/nimasrn/vending-gateway/pkg/logger"
	"github.com/nimasrn/vending-gateway/pkg/pg"
)

// Seeds a demo machine with the default slot grid so the API has something
// to sell right after a fresh migration.
func main() {
	cfg, err := config.Load(getEnvPath())
	if err != nil {
		logger.Error("failed to load config", "error", err)
		return
	}

	writeConf := pg.Config{
		User:     cfg.PostgresWriteUser,
		Host:     cfg.PostgresWriteHost,
		Port:     cfg.PostgresWritePort,
		Password: cfg.PostgresWritePassword,
		Database: cfg.PostgresWriteDatabase,
	}

	db, err := pg.CreateReadWrite(writeConf, writeConf, cfg.AppEnv == "dev")
	if err != nil {
		logger.Error("failed connecting to pg", "error", err)
		return
	}

	machineRepo := repository.NewMachineRepository(db)
	slotRepo := repository.NewSlotRepository(db)

	machineService := services.NewMachineService(machineRepo)
	slotService := services.NewSlotService(slotRepo, machineRepo)

	ctx := context.Background()

	machine, err := machineService.Create(ctx, model.MachineCreateRequest{
		Location: "Demo Building, Floor 1",
		Status:   "active",
	})
	if err != nil {
		logger.Error("failed creating machine", "error", err)
		return
	}

	slots, err := slotService.InitializeGrid(ctx, model.GridInitRequest{MachineID: machine.ID})
	if err != nil {
		logger.Error("failed initializing slot grid", "error", err)
		return
	}

	logger.Info("seed complete", "machine_id", machine.ID, "slots", len(slots))
}

func getEnvPath() string {
	for _, v := range os.Args {
		if strings.Contains(v, "--env=") {
			s := strings.Split(v, "=")
			if _, err := os.Open(s[1]); err != nil {
				logger.Error("failed to open the passed env file, got error" + err.Error())
				return ""
			}
			return s[1]
		}
	}
	if _, err := os.Open(".env"); err != nil {
		return ""
	}
	return ".env"
}
