package handlers

import (
	"encoding/json"
	"errors"

	"github.com/google/uuid"
	gateway "github.com/nimasrn/vending-gateway/internal/gateways"
	"github.com/nimasrn/vending-gateway/internal/model"
	"github.com/nimasrn/vending-gateway/internal/services"
	xhttp "github.com/nimasrn/vending-gateway/pkg/http"
)

func readJSON(ctx *xhttp.RequestCtx, dst any) error {
	body := ctx.PostBody()
	return json.Unmarshal(body, dst)
}

func writeJSON(ctx *xhttp.RequestCtx, status int, v any) {
	b, _ := json.Marshal(v)
	ctx.Response.Header.Set("Content-Type", "application/json; charset=utf-8")
	ctx.Response.SetStatusCode(status)
	ctx.Response.SetBodyRaw(b)
}

func writeError(ctx *xhttp.RequestCtx, status int, msg string) {
	writeJSON(ctx, status, map[string]any{"success": false, "error": msg})
}

// writeServiceError maps service-layer failures onto HTTP status codes.
// Gateway failures surface as 502 so callers can tell an upstream outage
// apart from our own faults.
func writeServiceError(ctx *xhttp.RequestCtx, err error) {
	var gwErr *gateway.Error
	switch {
	case errors.Is(err, services.ErrSlotUnavailable):
		writeError(ctx, xhttp.StatusConflict, err.Error())
	case errors.Is(err, services.ErrSlotNotFound),
		errors.Is(err, services.ErrMachineNotFound),
		errors.Is(err, services.ErrTransactionNotFound):
		writeError(ctx, xhttp.StatusNotFound, err.Error())
	case errors.Is(err, services.ErrInvalidAmount),
		errors.Is(err, services.ErrInvalidPayload),
		errors.Is(err, services.ErrMissingChargeID),
		errors.Is(err, model.ErrValidation):
		writeError(ctx, xhttp.StatusBadRequest, err.Error())
	case errors.As(err, &gwErr):
		// pass the provider's own error detail through to the caller
		var detail any = string(gwErr.Body)
		if json.Valid(gwErr.Body) {
			detail = json.RawMessage(gwErr.Body)
		}
		writeJSON(ctx, xhttp.StatusBadGateway, map[string]any{
			"success": false,
			"error":   "payment gateway error",
			"status":  gwErr.StatusCode,
			"detail":  detail,
		})
	default:
		writeError(ctx, xhttp.StatusInternalServerError, "internal error")
	}
}

func paramUUID(ctx *xhttp.RequestCtx, name string) (uuid.UUID, error) {
	raw, _ := ctx.UserValue(name).(string)
	return uuid.Parse(raw)
}

func param(ctx *xhttp.RequestCtx, name string) string {
	raw, _ := ctx.UserValue(name).(string)
	return raw
}
