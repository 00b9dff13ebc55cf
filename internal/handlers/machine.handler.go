package handlers

import (
	"context"

	"github.com/fasthttp/router"
	"github.com/google/uuid"
	"github.com/nimasrn/vending-gateway/internal/model"
	xhttp "github.com/nimasrn/vending-gateway/pkg/http"
)

type MachineService interface {
	Create(ctx context.Context, p model.MachineCreateRequest) (*model.Machine, error)
	Get(ctx context.Context, id uuid.UUID) (*model.Machine, error)
	List(ctx context.Context) ([]*model.Machine, error)
}

type MachineSlotService interface {
	ListByMachine(ctx context.Context, machineID uuid.UUID) ([]*model.Slot, error)
	InitializeGrid(ctx context.Context, p model.GridInitRequest) ([]*model.Slot, error)
}

type MachineHandler struct {
	svc     MachineService
	slotSvc MachineSlotService
}

func RegisterMachineRoutes(e *router.Router, h *MachineHandler) {
	e.POST("/machines", h.CreateMachine)
	e.GET("/machines", h.ListMachines)
	e.GET("/machines/{machine_id}", h.GetMachine)
	e.GET("/machines/{machine_id}/slots", h.ListMachineSlots)
	e.POST("/machines/{machine_id}/slots/init", h.InitMachineSlots)
}

func NewMachineHandler(machineService MachineService, slotService MachineSlotService) *MachineHandler {
	return &MachineHandler{
		svc:     machineService,
		slotSvc: slotService,
	}
}

type createMachineRequest struct {
	Location string `json:"location"`
	Status   string `json:"status"`
}

type initSlotsRequest struct {
	Rows        int     `json:"rows"`
	Cols        int     `json:"cols"`
	ProductName string  `json:"product_name"`
	Price       float64 `json:"price"`
}

type slotListResponse struct {
	Items []*model.Slot `json:"items"`
	Total int           `json:"total"`
}

/* --------------------------------- Routes ----------------------------------- */

func (h *MachineHandler) CreateMachine(ctx *xhttp.RequestCtx) {
	var req createMachineRequest
	if err := readJSON(ctx, &req); err != nil {
		writeError(ctx, xhttp.StatusBadRequest, "invalid JSON: "+err.Error())
		return
	}

	m, err := h.svc.Create(ctx, model.MachineCreateRequest{
		Location: req.Location,
		Status:   req.Status,
	})
	if err != nil {
		writeServiceError(ctx, err)
		return
	}
	writeJSON(ctx, xhttp.StatusCreated, m)
}

func (h *MachineHandler) ListMachines(ctx *xhttp.RequestCtx) {
	items, err := h.svc.List(ctx)
	if err != nil {
		writeServiceError(ctx, err)
		return
	}
	writeJSON(ctx, xhttp.StatusOK, items)
}

func (h *MachineHandler) GetMachine(ctx *xhttp.RequestCtx) {
	id, err := paramUUID(ctx, "machine_id")
	if err != nil {
		writeError(ctx, xhttp.StatusBadRequest, "machine_id must be a uuid")
		return
	}

	m, err := h.svc.Get(ctx, id)
	if err != nil {
		writeServiceError(ctx, err)
		return
	}
	writeJSON(ctx, xhttp.StatusOK, m)
}

func (h *MachineHandler) ListMachineSlots(ctx *xhttp.RequestCtx) {
	id, err := paramUUID(ctx, "machine_id")
	if err != nil {
		writeError(ctx, xhttp.StatusBadRequest, "machine_id must be a uuid")
		return
	}

	items, err := h.slotSvc.ListByMachine(ctx, id)
	if err != nil {
		writeServiceError(ctx, err)
		return
	}
	writeJSON(ctx, xhttp.StatusOK, slotListResponse{Items: items, Total: len(items)})
}

func (h *MachineHandler) InitMachineSlots(ctx *xhttp.RequestCtx) {
	id, err := paramUUID(ctx, "machine_id")
	if err != nil {
		writeError(ctx, xhttp.StatusBadRequest, "machine_id must be a uuid")
		return
	}

	var req initSlotsRequest
	if len(ctx.PostBody()) > 0 {
		if err := readJSON(ctx, &req); err != nil {
			writeError(ctx, xhttp.StatusBadRequest, "invalid JSON: "+err.Error())
			return
		}
	}

	items, err := h.slotSvc.InitializeGrid(ctx, model.GridInitRequest{
		MachineID:   id,
		Rows:        req.Rows,
		Cols:        req.Cols,
		ProductName: req.ProductName,
		Price:       req.Price,
	})
	if err != nil {
		writeServiceError(ctx, err)
		return
	}
	writeJSON(ctx, xhttp.StatusCreated, slotListResponse{Items: items, Total: len(items)})
}
