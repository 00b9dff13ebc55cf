package handlers

import (
	"context"

	"github.com/fasthttp/router"
	xhttp "github.com/nimasrn/vending-gateway/pkg/http"
)

type HealthService interface {
	Check(ctx context.Context) error
}

type HealthHandler struct {
	svc HealthService
}

func RegisterHealthRoutes(e *router.Router, h *HealthHandler) {
	e.GET("/health", h.GetHealth)
}

func NewHealthHandler(healthService HealthService) *HealthHandler {
	return &HealthHandler{
		svc: healthService,
	}
}

func (h *HealthHandler) GetHealth(ctx *xhttp.RequestCtx) {
	overall, database := "ok", "connected"
	status := xhttp.StatusOK
	if err := h.svc.Check(ctx); err != nil {
		overall, database = "degraded", "disconnected"
		status = xhttp.StatusInternalServerError
	}
	writeJSON(ctx, status, map[string]string{"status": overall, "database": database})
}
