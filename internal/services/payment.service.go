package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/google/uuid"
	gateway "github.com/nimasrn/vending-gateway/internal/gateways"
	"github.com/nimasrn/vending-gateway/internal/model"
	"github.com/nimasrn/vending-gateway/internal/repository"
	"github.com/nimasrn/vending-gateway/pkg/logger"
	"github.com/nimasrn/vending-gateway/pkg/prom"
)

var (
	ErrInvalidAmount       = errors.New("amount must be positive")
	ErrTransactionNotFound = errors.New("transaction not found")
	ErrMissingChargeID     = errors.New("webhook payload carries no charge id")
	ErrInvalidPayload      = errors.New("invalid webhook payload")
	ErrMissingQRCode       = errors.New("charge carries no scannable code")
)

type TransactionRepository interface {
	Create(ctx context.Context, txn *model.Transaction) (*model.Transaction, error)
	GetByChargeID(ctx context.Context, chargeID string) (*model.Transaction, error)
	UpdateStatus(ctx context.Context, id uuid.UUID, status model.PaymentStatus) error
}

type APIEventRepository interface {
	Create(ctx context.Context, event *model.APIEvent) (*model.APIEvent, error)
}

type PaymentGateway interface {
	CreateSource(ctx context.Context, sourceType string, amount int64, currency string) (*gateway.Source, error)
	CreateCharge(ctx context.Context, amount int64, currency, sourceID string) (*gateway.Charge, error)
	GetCharge(ctx context.Context, chargeID string) (*gateway.Charge, error)
}

// PaymentReceipt is what the caller needs to put in front of the end user.
type PaymentReceipt struct {
	QRCode   string
	ChargeID string
	Amount   float64
}

// PaymentStatusResult reports the gateway's view of a charge, amount
// converted to major units.
type PaymentStatusResult struct {
	Status model.PaymentStatus
	Paid   bool
	Amount float64
}

type PaymentService struct {
	slotRepo        SlotRepository
	transactionRepo TransactionRepository
	eventRepo       APIEventRepository
	gateway         PaymentGateway
	guard           *WebhookGuard
	currency        string
	sourceType      string
}

func NewPaymentService(slotRepo SlotRepository, transactionRepo TransactionRepository, eventRepo APIEventRepository, gw PaymentGateway, guard *WebhookGuard, currency, sourceType string) *PaymentService {
	return &PaymentService{
		slotRepo:        slotRepo,
		transactionRepo: transactionRepo,
		eventRepo:       eventRepo,
		gateway:         gw,
		guard:           guard,
		currency:        currency,
		sourceType:      sourceType,
	}
}

// InitiatePayment creates a gateway charge for an available slot, records a
// pending transaction and locks the slot. Both gateway calls happen before
// the database transaction opens, so no row lock spans network I/O.
func (s *PaymentService) InitiatePayment(ctx context.Context, slotID uuid.UUID, amount int64) (*PaymentReceipt, error) {
	if amount <= 0 {
		return nil, ErrInvalidAmount
	}

	// Fast-fail before talking to the gateway. The authoritative check is
	// the guarded reserve below.
	slot, err := s.slotRepo.GetByID(ctx, slotID)
	if err != nil {
		if errors.Is(err, repository.ErrSlotNotFound) {
			prom.IncPaymentInitiated("slot_not_found")
			return nil, ErrSlotNotFound
		}
		return nil, fmt.Errorf("get slot: %w", err)
	}
	if !slot.IsAvailable {
		prom.IncPaymentInitiated("slot_unavailable")
		return nil, ErrSlotUnavailable
	}

	source, err := s.gateway.CreateSource(ctx, s.sourceType, amount, s.currency)
	if err != nil {
		prom.IncPaymentInitiated("gateway_error")
		return nil, err
	}

	charge, err := s.gateway.CreateCharge(ctx, amount, s.currency, source.ID)
	if err != nil {
		prom.IncPaymentInitiated("gateway_error")
		return nil, err
	}

	qrCode := charge.QRCodeURI()
	if qrCode == "" {
		prom.IncPaymentInitiated("gateway_error")
		return nil, ErrMissingQRCode
	}

	txn := &model.Transaction{
		SlotID:        slot.ID,
		ChargeID:      charge.ID,
		QRCode:        qrCode,
		PaymentStatus: model.PaymentStatusPending,
		Amount:        model.MinorToMajor(amount),
	}

	// Reserve and record atomically: the slot must never end up locked
	// without its transaction, nor the other way around.
	err = s.slotRepo.WithinTransaction(ctx, func(ctx context.Context) error {
		if err := s.slotRepo.Reserve(ctx, slot.ID); err != nil {
			if errors.Is(err, repository.ErrSlotUnavailable) {
				return ErrSlotUnavailable
			}
			if errors.Is(err, repository.ErrSlotNotFound) {
				return ErrSlotNotFound
			}
			return fmt.Errorf("reserve slot: %w", err)
		}

		created, err := s.transactionRepo.Create(ctx, txn)
		if err != nil {
			return fmt.Errorf("create transaction: %w", err)
		}
		txn = created
		return nil
	})
	if err != nil {
		if errors.Is(err, ErrSlotUnavailable) {
			prom.IncPaymentInitiated("slot_unavailable")
		} else {
			prom.IncPaymentInitiated("db_error")
		}
		return nil, err
	}

	prom.IncPaymentInitiated("ok")
	logger.Info("payment initiated", "slot_id", slot.ID, "charge_id", charge.ID, "amount", txn.Amount)

	return &PaymentReceipt{
		QRCode:   qrCode,
		ChargeID: charge.ID,
		Amount:   txn.Amount,
	}, nil
}

// CheckStatus reconciles one transaction against the gateway's current view
// of its charge. The gateway-reported status is written through verbatim,
// replays included; on success the slot stays locked until the physical
// collection step releases it.
func (s *PaymentService) CheckStatus(ctx context.Context, chargeID string) (*PaymentStatusResult, error) {
	charge, err := s.gateway.GetCharge(ctx, chargeID)
	if err != nil {
		return nil, err
	}

	txn, err := s.transactionRepo.GetByChargeID(ctx, chargeID)
	if err != nil {
		if errors.Is(err, repository.ErrTransactionNotFound) {
			return nil, ErrTransactionNotFound
		}
		return nil, fmt.Errorf("get transaction: %w", err)
	}

	if err := s.applyStatus(ctx, txn, charge.Status); err != nil {
		return nil, err
	}

	return &PaymentStatusResult{
		Status: charge.Status,
		Paid:   charge.Paid,
		Amount: model.MinorToMajor(charge.Amount),
	}, nil
}

type webhookEnvelope struct {
	Data struct {
		ID     string `json:"id"`
		Status string `json:"status"`
	} `json:"data"`
}

// HandleWebhook applies a gateway event to the matching transaction and
// appends an audit record with the raw payload. Replaying the same event is
// safe: the status write is idempotent and duplicates are short-circuited
// by the guard when one is configured.
func (s *PaymentService) HandleWebhook(ctx context.Context, payload []byte) error {
	var envelope webhookEnvelope
	if err := json.Unmarshal(payload, &envelope); err != nil {
		prom.IncWebhookEvent("invalid")
		return ErrInvalidPayload
	}
	if envelope.Data.ID == "" {
		prom.IncWebhookEvent("invalid")
		return ErrMissingChargeID
	}

	if s.guard != nil && s.guard.Seen(envelope.Data.ID, envelope.Data.Status) {
		prom.IncWebhookEvent("duplicate")
		logger.Debug("duplicate webhook ignored", "charge_id", envelope.Data.ID, "status", envelope.Data.Status)
		return nil
	}

	txn, err := s.transactionRepo.GetByChargeID(ctx, envelope.Data.ID)
	if err != nil {
		if errors.Is(err, repository.ErrTransactionNotFound) {
			prom.IncWebhookEvent("not_found")
			return ErrTransactionNotFound
		}
		return fmt.Errorf("get transaction: %w", err)
	}

	err = s.slotRepo.WithinTransaction(ctx, func(ctx context.Context) error {
		if err := s.transactionRepo.UpdateStatus(ctx, txn.ID, envelope.Data.Status); err != nil {
			return fmt.Errorf("update transaction status: %w", err)
		}
		if envelope.Data.Status == model.PaymentStatusSuccessful {
			// keep locked until the item is collected
			if err := s.slotRepo.SetAvailability(ctx, txn.SlotID, false); err != nil {
				return fmt.Errorf("lock slot: %w", err)
			}
		}
		_, err := s.eventRepo.Create(ctx, &model.APIEvent{
			TransactionID: txn.ID,
			EventType:     model.EventTypeChargeComplete,
			Payload:       json.RawMessage(payload),
		})
		if err != nil {
			return fmt.Errorf("create api event: %w", err)
		}
		return nil
	})
	if err != nil {
		return err
	}

	// marked only after the commit: a failed delivery must stay retryable
	if s.guard != nil {
		s.guard.Mark(envelope.Data.ID, envelope.Data.Status)
	}

	prom.IncWebhookEvent("ok")
	logger.Info("webhook processed", "charge_id", envelope.Data.ID, "status", envelope.Data.Status)
	return nil
}

func (s *PaymentService) applyStatus(ctx context.Context, txn *model.Transaction, status model.PaymentStatus) error {
	return s.slotRepo.WithinTransaction(ctx, func(ctx context.Context) error {
		if err := s.transactionRepo.UpdateStatus(ctx, txn.ID, status); err != nil {
			return fmt.Errorf("update transaction status: %w", err)
		}
		if status == model.PaymentStatusSuccessful {
			// keep locked until the item is collected
			if err := s.slotRepo.SetAvailability(ctx, txn.SlotID, false); err != nil {
				return fmt.Errorf("lock slot: %w", err)
			}
		}
		return nil
	})
}
