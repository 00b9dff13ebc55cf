package handlers

import (
	"context"

	"github.com/fasthttp/router"
	"github.com/google/uuid"
	"github.com/nimasrn/vending-gateway/internal/services"
	xhttp "github.com/nimasrn/vending-gateway/pkg/http"
)

type PaymentService interface {
	InitiatePayment(ctx context.Context, slotID uuid.UUID, amount int64) (*services.PaymentReceipt, error)
	CheckStatus(ctx context.Context, chargeID string) (*services.PaymentStatusResult, error)
	HandleWebhook(ctx context.Context, payload []byte) error
}

type PaymentHandler struct {
	svc PaymentService
}

func RegisterPaymentRoutes(e *router.Group, h *PaymentHandler) {
	e.POST("/payment/create", h.CreatePayment)
	e.GET("/payment/status/{charge_id}", h.GetPaymentStatus)
	e.POST("/webhook", h.Webhook)
}

func NewPaymentHandler(paymentService PaymentService) *PaymentHandler {
	return &PaymentHandler{
		svc: paymentService,
	}
}

type createPaymentRequest struct {
	SlotID uuid.UUID `json:"slot_id"`
	Amount int64     `json:"amount"`
}

type createPaymentResponse struct {
	Success  bool    `json:"success"`
	QRCode   string  `json:"qrCode"`
	ChargeID string  `json:"chargeId"`
	Amount   float64 `json:"amount"`
}

type paymentStatusResponse struct {
	Success bool    `json:"success"`
	Status  string  `json:"status"`
	Paid    bool    `json:"paid"`
	Amount  float64 `json:"amount"`
}

type webhookResponse struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
}

/* --------------------------------- Routes ----------------------------------- */

func (h *PaymentHandler) CreatePayment(ctx *xhttp.RequestCtx) {
	var req createPaymentRequest
	if err := readJSON(ctx, &req); err != nil {
		writeError(ctx, xhttp.StatusBadRequest, "invalid JSON: "+err.Error())
		return
	}
	if req.SlotID == uuid.Nil {
		writeError(ctx, xhttp.StatusBadRequest, "slot_id is required")
		return
	}

	receipt, err := h.svc.InitiatePayment(ctx, req.SlotID, req.Amount)
	if err != nil {
		writeServiceError(ctx, err)
		return
	}

	writeJSON(ctx, xhttp.StatusOK, createPaymentResponse{
		Success:  true,
		QRCode:   receipt.QRCode,
		ChargeID: receipt.ChargeID,
		Amount:   receipt.Amount,
	})
}

func (h *PaymentHandler) GetPaymentStatus(ctx *xhttp.RequestCtx) {
	chargeID := param(ctx, "charge_id")
	if chargeID == "" {
		writeError(ctx, xhttp.StatusBadRequest, "charge_id is required")
		return
	}

	result, err := h.svc.CheckStatus(ctx, chargeID)
	if err != nil {
		writeServiceError(ctx, err)
		return
	}

	writeJSON(ctx, xhttp.StatusOK, paymentStatusResponse{
		Success: true,
		Status:  result.Status,
		Paid:    result.Paid,
		Amount:  result.Amount,
	})
}

func (h *PaymentHandler) Webhook(ctx *xhttp.RequestCtx) {
	if err := h.svc.HandleWebhook(ctx, ctx.PostBody()); err != nil {
		writeServiceError(ctx, err)
		return
	}
	writeJSON(ctx, xhttp.StatusOK, webhookResponse{
		Success: true,
		Message: "webhook processed",
	})
}
