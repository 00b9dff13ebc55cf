package services

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	gateway "github.com/nimasrn/vending-gateway/internal/gateways"
	"github.com/nimasrn/vending-gateway/internal/model"
	"github.com/nimasrn/vending-gateway/internal/repository"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type MockSlotRepository struct {
	mock.Mock
}

func (m *MockSlotRepository) GetByID(ctx context.Context, id uuid.UUID) (*model.Slot, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Slot), args.Error(1)
}

func (m *MockSlotRepository) ListByMachine(ctx context.Context, machineID uuid.UUID) ([]*model.Slot, error) {
	args := m.Called(ctx, machineID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*model.Slot), args.Error(1)
}

func (m *MockSlotRepository) CreateBatch(ctx context.Context, slots []*model.Slot) ([]*model.Slot, error) {
	args := m.Called(ctx, slots)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	if fn, ok := args.Get(0).(func(context.Context, []*model.Slot) []*model.Slot); ok {
		return fn(ctx, slots), args.Error(1)
	}
	return args.Get(0).([]*model.Slot), args.Error(1)
}

func (m *MockSlotRepository) Reserve(ctx context.Context, id uuid.UUID) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

func (m *MockSlotRepository) SetAvailability(ctx context.Context, id uuid.UUID, available bool) error {
	args := m.Called(ctx, id, available)
	return args.Error(0)
}

func (m *MockSlotRepository) WithinTransaction(ctx context.Context, fn func(ctx context.Context) error) error {
	args := m.Called(ctx, fn)
	if args.Error(0) != nil {
		return args.Error(0)
	}
	return fn(ctx)
}

type MockTransactionRepository struct {
	mock.Mock
}

func (m *MockTransactionRepository) Create(ctx context.Context, txn *model.Transaction) (*model.Transaction, error) {
	args := m.Called(ctx, txn)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Transaction), args.Error(1)
}

func (m *MockTransactionRepository) GetByChargeID(ctx context.Context, chargeID string) (*model.Transaction, error) {
	args := m.Called(ctx, chargeID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Transaction), args.Error(1)
}

func (m *MockTransactionRepository) UpdateStatus(ctx context.Context, id uuid.UUID, status model.PaymentStatus) error {
	args := m.Called(ctx, id, status)
	return args.Error(0)
}

type MockAPIEventRepository struct {
	mock.Mock
}

func (m *MockAPIEventRepository) Create(ctx context.Context, event *model.APIEvent) (*model.APIEvent, error) {
	args := m.Called(ctx, event)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.APIEvent), args.Error(1)
}

type MockPaymentGateway struct {
	mock.Mock
}

func (m *MockPaymentGateway) CreateSource(ctx context.Context, sourceType string, amount int64, currency string) (*gateway.Source, error) {
	args := m.Called(ctx, sourceType, amount, currency)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*gateway.Source), args.Error(1)
}

func (m *MockPaymentGateway) CreateCharge(ctx context.Context, amount int64, currency, sourceID string) (*gateway.Charge, error) {
	args := m.Called(ctx, amount, currency, sourceID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*gateway.Charge), args.Error(1)
}

func (m *MockPaymentGateway) GetCharge(ctx context.Context, chargeID string) (*gateway.Charge, error) {
	args := m.Called(ctx, chargeID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*gateway.Charge), args.Error(1)
}

func testCharge(id, status string, amount int64, paid bool) *gateway.Charge {
	return &gateway.Charge{
		ID:       id,
		Status:   status,
		Paid:     paid,
		Amount:   amount,
		Currency: "THB",
		Source: &gateway.ChargeSource{
			ID:   "src_1",
			Type: "promptpay",
			ScannableCode: &gateway.ScannableCode{
				Image: gateway.ScannableImage{
					DownloadURI: "https://gateway.example/qr/" + id + ".png",
				},
			},
		},
	}
}

func newTestPaymentService(slotRepo *MockSlotRepository, txnRepo *MockTransactionRepository, eventRepo *MockAPIEventRepository, gw *MockPaymentGateway) *PaymentService {
	return NewPaymentService(slotRepo, txnRepo, eventRepo, gw, nil, "THB", "promptpay")
}

func TestPaymentService_InitiatePayment(t *testing.T) {
	ctx := context.Background()
	slotID := uuid.New()

	t.Run("successful initiation converts minor units", func(t *testing.T) {
		slotRepo := new(MockSlotRepository)
		txnRepo := new(MockTransactionRepository)
		eventRepo := new(MockAPIEventRepository)
		gw := new(MockPaymentGateway)
		service := newTestPaymentService(slotRepo, txnRepo, eventRepo, gw)

		slotRepo.On("GetByID", ctx, slotID).
			Return(&model.Slot{ID: slotID, IsAvailable: true, Price: 20.0}, nil)
		gw.On("CreateSource", ctx, "promptpay", int64(2000), "THB").
			Return(&gateway.Source{ID: "src_1", Type: "promptpay", Amount: 2000, Currency: "THB"}, nil)
		gw.On("CreateCharge", ctx, int64(2000), "THB", "src_1").
			Return(testCharge("chrg_1", "pending", 2000, false), nil)
		slotRepo.On("WithinTransaction", ctx, mock.AnythingOfType("func(context.Context) error")).
			Return(nil)
		slotRepo.On("Reserve", ctx, slotID).Return(nil)
		txnRepo.On("Create", ctx, mock.MatchedBy(func(txn *model.Transaction) bool {
			return txn.SlotID == slotID &&
				txn.ChargeID == "chrg_1" &&
				txn.PaymentStatus == model.PaymentStatusPending &&
				txn.Amount == 20.0
		})).Return(&model.Transaction{
			ID:            uuid.New(),
			SlotID:        slotID,
			ChargeID:      "chrg_1",
			PaymentStatus: model.PaymentStatusPending,
			Amount:        20.0,
		}, nil)

		receipt, err := service.InitiatePayment(ctx, slotID, 2000)
		require.NoError(t, err)
		assert.Equal(t, "chrg_1", receipt.ChargeID)
		assert.Equal(t, 20.0, receipt.Amount)
		assert.Equal(t, "https://gateway.example/qr/chrg_1.png", receipt.QRCode)

		slotRepo.AssertExpectations(t)
		gw.AssertExpectations(t)
		txnRepo.AssertExpectations(t)
	})

	t.Run("non-positive amount", func(t *testing.T) {
		slotRepo := new(MockSlotRepository)
		service := newTestPaymentService(slotRepo, new(MockTransactionRepository), new(MockAPIEventRepository), new(MockPaymentGateway))

		_, err := service.InitiatePayment(ctx, slotID, 0)
		assert.ErrorIs(t, err, ErrInvalidAmount)

		_, err = service.InitiatePayment(ctx, slotID, -100)
		assert.ErrorIs(t, err, ErrInvalidAmount)

		slotRepo.AssertNotCalled(t, "GetByID")
	})

	t.Run("unavailable slot fails before gateway calls", func(t *testing.T) {
		slotRepo := new(MockSlotRepository)
		gw := new(MockPaymentGateway)
		service := newTestPaymentService(slotRepo, new(MockTransactionRepository), new(MockAPIEventRepository), gw)

		slotRepo.On("GetByID", ctx, slotID).
			Return(&model.Slot{ID: slotID, IsAvailable: false}, nil)

		_, err := service.InitiatePayment(ctx, slotID, 2000)
		assert.ErrorIs(t, err, ErrSlotUnavailable)

		gw.AssertNotCalled(t, "CreateSource")
		gw.AssertNotCalled(t, "CreateCharge")
	})

	t.Run("slot not found", func(t *testing.T) {
		slotRepo := new(MockSlotRepository)
		service := newTestPaymentService(slotRepo, new(MockTransactionRepository), new(MockAPIEventRepository), new(MockPaymentGateway))

		slotRepo.On("GetByID", ctx, slotID).
			Return(nil, repository.ErrSlotNotFound)

		_, err := service.InitiatePayment(ctx, slotID, 2000)
		assert.ErrorIs(t, err, ErrSlotNotFound)
	})

	t.Run("reservation race loses", func(t *testing.T) {
		slotRepo := new(MockSlotRepository)
		txnRepo := new(MockTransactionRepository)
		gw := new(MockPaymentGateway)
		service := newTestPaymentService(slotRepo, txnRepo, new(MockAPIEventRepository), gw)

		slotRepo.On("GetByID", ctx, slotID).
			Return(&model.Slot{ID: slotID, IsAvailable: true}, nil)
		gw.On("CreateSource", ctx, "promptpay", int64(2000), "THB").
			Return(&gateway.Source{ID: "src_1"}, nil)
		gw.On("CreateCharge", ctx, int64(2000), "THB", "src_1").
			Return(testCharge("chrg_2", "pending", 2000, false), nil)
		slotRepo.On("WithinTransaction", ctx, mock.AnythingOfType("func(context.Context) error")).
			Return(nil)
		slotRepo.On("Reserve", ctx, slotID).Return(repository.ErrSlotUnavailable)

		_, err := service.InitiatePayment(ctx, slotID, 2000)
		assert.ErrorIs(t, err, ErrSlotUnavailable)

		txnRepo.AssertNotCalled(t, "Create")
	})

	t.Run("charge without scannable code", func(t *testing.T) {
		slotRepo := new(MockSlotRepository)
		gw := new(MockPaymentGateway)
		service := newTestPaymentService(slotRepo, new(MockTransactionRepository), new(MockAPIEventRepository), gw)

		slotRepo.On("GetByID", ctx, slotID).
			Return(&model.Slot{ID: slotID, IsAvailable: true}, nil)
		gw.On("CreateSource", ctx, "promptpay", int64(2000), "THB").
			Return(&gateway.Source{ID: "src_1"}, nil)
		gw.On("CreateCharge", ctx, int64(2000), "THB", "src_1").
			Return(&gateway.Charge{ID: "chrg_3", Status: "pending"}, nil)

		_, err := service.InitiatePayment(ctx, slotID, 2000)
		assert.ErrorIs(t, err, ErrMissingQRCode)

		slotRepo.AssertNotCalled(t, "Reserve")
	})
}

func TestPaymentService_CheckStatus(t *testing.T) {
	ctx := context.Background()
	slotID := uuid.New()
	txnID := uuid.New()

	t.Run("successful charge keeps slot locked", func(t *testing.T) {
		slotRepo := new(MockSlotRepository)
		txnRepo := new(MockTransactionRepository)
		gw := new(MockPaymentGateway)
		service := newTestPaymentService(slotRepo, txnRepo, new(MockAPIEventRepository), gw)

		gw.On("GetCharge", ctx, "chrg_1").
			Return(testCharge("chrg_1", model.PaymentStatusSuccessful, 2000, true), nil)
		txnRepo.On("GetByChargeID", ctx, "chrg_1").
			Return(&model.Transaction{ID: txnID, SlotID: slotID, ChargeID: "chrg_1"}, nil)
		slotRepo.On("WithinTransaction", ctx, mock.AnythingOfType("func(context.Context) error")).
			Return(nil)
		txnRepo.On("UpdateStatus", ctx, txnID, model.PaymentStatusSuccessful).Return(nil)
		slotRepo.On("SetAvailability", ctx, slotID, false).Return(nil)

		result, err := service.CheckStatus(ctx, "chrg_1")
		require.NoError(t, err)
		assert.Equal(t, model.PaymentStatusSuccessful, result.Status)
		assert.True(t, result.Paid)
		assert.Equal(t, 20.0, result.Amount)

		slotRepo.AssertCalled(t, "SetAvailability", ctx, slotID, false)
		slotRepo.AssertNotCalled(t, "SetAvailability", ctx, slotID, true)
	})

	t.Run("failed charge does not touch the slot", func(t *testing.T) {
		slotRepo := new(MockSlotRepository)
		txnRepo := new(MockTransactionRepository)
		gw := new(MockPaymentGateway)
		service := newTestPaymentService(slotRepo, txnRepo, new(MockAPIEventRepository), gw)

		gw.On("GetCharge", ctx, "chrg_1").
			Return(testCharge("chrg_1", model.PaymentStatusFailed, 2000, false), nil)
		txnRepo.On("GetByChargeID", ctx, "chrg_1").
			Return(&model.Transaction{ID: txnID, SlotID: slotID, ChargeID: "chrg_1"}, nil)
		slotRepo.On("WithinTransaction", ctx, mock.AnythingOfType("func(context.Context) error")).
			Return(nil)
		txnRepo.On("UpdateStatus", ctx, txnID, model.PaymentStatusFailed).Return(nil)

		result, err := service.CheckStatus(ctx, "chrg_1")
		require.NoError(t, err)
		assert.Equal(t, model.PaymentStatusFailed, result.Status)
		assert.False(t, result.Paid)

		slotRepo.AssertNotCalled(t, "SetAvailability")
	})

	t.Run("opaque gateway status passes through", func(t *testing.T) {
		slotRepo := new(MockSlotRepository)
		txnRepo := new(MockTransactionRepository)
		gw := new(MockPaymentGateway)
		service := newTestPaymentService(slotRepo, txnRepo, new(MockAPIEventRepository), gw)

		gw.On("GetCharge", ctx, "chrg_1").
			Return(testCharge("chrg_1", "expired", 2000, false), nil)
		txnRepo.On("GetByChargeID", ctx, "chrg_1").
			Return(&model.Transaction{ID: txnID, SlotID: slotID, ChargeID: "chrg_1"}, nil)
		slotRepo.On("WithinTransaction", ctx, mock.AnythingOfType("func(context.Context) error")).
			Return(nil)
		txnRepo.On("UpdateStatus", ctx, txnID, "expired").Return(nil)

		result, err := service.CheckStatus(ctx, "chrg_1")
		require.NoError(t, err)
		assert.Equal(t, "expired", result.Status)
	})

	t.Run("unknown charge", func(t *testing.T) {
		txnRepo := new(MockTransactionRepository)
		gw := new(MockPaymentGateway)
		service := newTestPaymentService(new(MockSlotRepository), txnRepo, new(MockAPIEventRepository), gw)

		gw.On("GetCharge", ctx, "chrg_missing").
			Return(testCharge("chrg_missing", "pending", 2000, false), nil)
		txnRepo.On("GetByChargeID", ctx, "chrg_missing").
			Return(nil, repository.ErrTransactionNotFound)

		_, err := service.CheckStatus(ctx, "chrg_missing")
		assert.ErrorIs(t, err, ErrTransactionNotFound)
	})

	t.Run("gateway failure surfaces", func(t *testing.T) {
		txnRepo := new(MockTransactionRepository)
		gw := new(MockPaymentGateway)
		service := newTestPaymentService(new(MockSlotRepository), txnRepo, new(MockAPIEventRepository), gw)

		gwErr := &gateway.Error{StatusCode: 503}
		gw.On("GetCharge", ctx, "chrg_1").Return(nil, gwErr)

		_, err := service.CheckStatus(ctx, "chrg_1")
		assert.ErrorAs(t, err, &gwErr)

		txnRepo.AssertNotCalled(t, "GetByChargeID")
	})
}

func TestPaymentService_HandleWebhook(t *testing.T) {
	ctx := context.Background()
	slotID := uuid.New()
	txnID := uuid.New()

	successPayload := []byte(`{"key":"charge.complete","data":{"id":"chrg_1","status":"successful"}}`)

	t.Run("successful event locks slot and records audit", func(t *testing.T) {
		slotRepo := new(MockSlotRepository)
		txnRepo := new(MockTransactionRepository)
		eventRepo := new(MockAPIEventRepository)
		service := newTestPaymentService(slotRepo, txnRepo, eventRepo, new(MockPaymentGateway))

		txnRepo.On("GetByChargeID", ctx, "chrg_1").
			Return(&model.Transaction{ID: txnID, SlotID: slotID, ChargeID: "chrg_1"}, nil)
		slotRepo.On("WithinTransaction", ctx, mock.AnythingOfType("func(context.Context) error")).
			Return(nil)
		txnRepo.On("UpdateStatus", ctx, txnID, model.PaymentStatusSuccessful).Return(nil)
		slotRepo.On("SetAvailability", ctx, slotID, false).Return(nil)
		eventRepo.On("Create", ctx, mock.MatchedBy(func(e *model.APIEvent) bool {
			return e.TransactionID == txnID && e.EventType == model.EventTypeChargeComplete
		})).Return(&model.APIEvent{ID: uuid.New()}, nil)

		err := service.HandleWebhook(ctx, successPayload)
		require.NoError(t, err)

		slotRepo.AssertExpectations(t)
		txnRepo.AssertExpectations(t)
		eventRepo.AssertExpectations(t)
	})

	t.Run("replay applies the same state again", func(t *testing.T) {
		slotRepo := new(MockSlotRepository)
		txnRepo := new(MockTransactionRepository)
		eventRepo := new(MockAPIEventRepository)
		service := newTestPaymentService(slotRepo, txnRepo, eventRepo, new(MockPaymentGateway))

		txnRepo.On("GetByChargeID", ctx, "chrg_1").
			Return(&model.Transaction{ID: txnID, SlotID: slotID, ChargeID: "chrg_1"}, nil)
		slotRepo.On("WithinTransaction", ctx, mock.AnythingOfType("func(context.Context) error")).
			Return(nil)
		txnRepo.On("UpdateStatus", ctx, txnID, model.PaymentStatusSuccessful).Return(nil)
		slotRepo.On("SetAvailability", ctx, slotID, false).Return(nil)
		eventRepo.On("Create", ctx, mock.Anything).
			Return(&model.APIEvent{ID: uuid.New()}, nil)

		require.NoError(t, service.HandleWebhook(ctx, successPayload))
		require.NoError(t, service.HandleWebhook(ctx, successPayload))

		txnRepo.AssertNumberOfCalls(t, "UpdateStatus", 2)
		eventRepo.AssertNumberOfCalls(t, "Create", 2)
	})

	t.Run("failed delivery stays retryable with the guard", func(t *testing.T) {
		_, guard := setupTestGuard(t, time.Hour)

		slotRepo := new(MockSlotRepository)
		txnRepo := new(MockTransactionRepository)
		eventRepo := new(MockAPIEventRepository)
		service := NewPaymentService(slotRepo, txnRepo, eventRepo, new(MockPaymentGateway), guard, "THB", "promptpay")

		txnRepo.On("GetByChargeID", ctx, "chrg_1").
			Return(&model.Transaction{ID: txnID, SlotID: slotID, ChargeID: "chrg_1"}, nil)
		slotRepo.On("WithinTransaction", ctx, mock.AnythingOfType("func(context.Context) error")).
			Return(nil)
		txnRepo.On("UpdateStatus", ctx, txnID, model.PaymentStatusSuccessful).
			Return(assert.AnError).Once()
		txnRepo.On("UpdateStatus", ctx, txnID, model.PaymentStatusSuccessful).Return(nil)
		slotRepo.On("SetAvailability", ctx, slotID, false).Return(nil)
		eventRepo.On("Create", ctx, mock.Anything).
			Return(&model.APIEvent{ID: uuid.New()}, nil)

		// transient update failure: the delivery errors out and must not
		// poison the dedup key
		require.Error(t, service.HandleWebhook(ctx, successPayload))

		// the gateway retries the same delivery and it goes through
		require.NoError(t, service.HandleWebhook(ctx, successPayload))
		txnRepo.AssertNumberOfCalls(t, "UpdateStatus", 2)

		// only the committed delivery is deduplicated
		require.NoError(t, service.HandleWebhook(ctx, successPayload))
		txnRepo.AssertNumberOfCalls(t, "UpdateStatus", 2)
	})

	t.Run("failed event leaves slot untouched", func(t *testing.T) {
		slotRepo := new(MockSlotRepository)
		txnRepo := new(MockTransactionRepository)
		eventRepo := new(MockAPIEventRepository)
		service := newTestPaymentService(slotRepo, txnRepo, eventRepo, new(MockPaymentGateway))

		txnRepo.On("GetByChargeID", ctx, "chrg_1").
			Return(&model.Transaction{ID: txnID, SlotID: slotID, ChargeID: "chrg_1"}, nil)
		slotRepo.On("WithinTransaction", ctx, mock.AnythingOfType("func(context.Context) error")).
			Return(nil)
		txnRepo.On("UpdateStatus", ctx, txnID, model.PaymentStatusFailed).Return(nil)
		eventRepo.On("Create", ctx, mock.Anything).
			Return(&model.APIEvent{ID: uuid.New()}, nil)

		payload := []byte(`{"data":{"id":"chrg_1","status":"failed"}}`)
		require.NoError(t, service.HandleWebhook(ctx, payload))

		slotRepo.AssertNotCalled(t, "SetAvailability")
	})

	t.Run("malformed payload", func(t *testing.T) {
		service := newTestPaymentService(new(MockSlotRepository), new(MockTransactionRepository), new(MockAPIEventRepository), new(MockPaymentGateway))

		err := service.HandleWebhook(ctx, []byte(`{not json`))
		assert.ErrorIs(t, err, ErrInvalidPayload)
	})

	t.Run("payload without charge id", func(t *testing.T) {
		service := newTestPaymentService(new(MockSlotRepository), new(MockTransactionRepository), new(MockAPIEventRepository), new(MockPaymentGateway))

		err := service.HandleWebhook(ctx, []byte(`{"data":{"status":"successful"}}`))
		assert.ErrorIs(t, err, ErrMissingChargeID)
	})

	t.Run("unknown charge", func(t *testing.T) {
		txnRepo := new(MockTransactionRepository)
		service := newTestPaymentService(new(MockSlotRepository), txnRepo, new(MockAPIEventRepository), new(MockPaymentGateway))

		txnRepo.On("GetByChargeID", ctx, "chrg_1").
			Return(nil, repository.ErrTransactionNotFound)

		err := service.HandleWebhook(ctx, successPayload)
		assert.ErrorIs(t, err, ErrTransactionNotFound)
	})
}
