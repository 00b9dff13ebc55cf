package handlers

import (
	"context"

	"github.com/fasthttp/router"
	"github.com/google/uuid"
	"github.com/nimasrn/vending-gateway/internal/model"
	xhttp "github.com/nimasrn/vending-gateway/pkg/http"
)

type SlotService interface {
	Get(ctx context.Context, id uuid.UUID) (*model.Slot, error)
	Release(ctx context.Context, id uuid.UUID) error
}

type SlotHandler struct {
	svc SlotService
}

func RegisterSlotRoutes(e *router.Group, h *SlotHandler) {
	e.GET("/slots/{slot_id}", h.GetSlot)
	e.POST("/slots/{slot_id}/release", h.ReleaseSlot)
}

func NewSlotHandler(slotService SlotService) *SlotHandler {
	return &SlotHandler{
		svc: slotService,
	}
}

/* --------------------------------- Routes ----------------------------------- */

func (h *SlotHandler) GetSlot(ctx *xhttp.RequestCtx) {
	id, err := paramUUID(ctx, "slot_id")
	if err != nil {
		writeError(ctx, xhttp.StatusBadRequest, "slot_id must be a uuid")
		return
	}

	slot, err := h.svc.Get(ctx, id)
	if err != nil {
		writeServiceError(ctx, err)
		return
	}
	writeJSON(ctx, xhttp.StatusOK, slot)
}

func (h *SlotHandler) ReleaseSlot(ctx *xhttp.RequestCtx) {
	id, err := paramUUID(ctx, "slot_id")
	if err != nil {
		writeError(ctx, xhttp.StatusBadRequest, "slot_id must be a uuid")
		return
	}

	if err := h.svc.Release(ctx, id); err != nil {
		writeServiceError(ctx, err)
		return
	}
	writeJSON(ctx, xhttp.StatusOK, map[string]any{"success": true})
}
