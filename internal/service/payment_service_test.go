package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"campuseats/internal/domain"
	"campuseats/internal/gateway"
)

func pendingMpesaOrder(orders *fakeOrderRepo, txns *fakeTxnRepo, token string) *domain.Order {
	now := time.Now().UTC()
	order := &domain.Order{
		ID:                uuid.New(),
		UserID:            uuid.New(),
		CafeteriaID:       uuid.New(),
		Total:             decimal.NewFromInt(200),
		Status:            domain.OrderPending,
		PaymentStatus:     domain.PaymentPending,
		PaymentMethod:     domain.MethodMpesa,
		CheckoutRequestID: token,
		CreatedAt:         now,
		UpdatedAt:         now,
	}
	orders.Create(context.Background(), order, nil)
	txns.Create(context.Background(), &domain.MpesaTransaction{
		ID:                uuid.New(),
		OrderID:           order.ID,
		CheckoutRequestID: token,
		Phone:             "254712345678",
		Amount:            order.Total,
		Status:            domain.PaymentPending,
		CreatedAt:         now,
		UpdatedAt:         now,
	})
	return order
}

func newPaymentService(orders *fakeOrderRepo, txns *fakeTxnRepo, card *fakeCardGateway, mobile *fakeMobileGateway) (*PaymentService, *fakeHub, *fakeNotifier) {
	hub := &fakeHub{}
	notifier := &fakeNotifier{}
	svc := NewPaymentService(orders, txns, card, mobile, hub, notifier, testLog)
	return svc, hub, notifier
}

func passthroughMobile() *fakeMobileGateway {
	real := gateway.NewMpesaGateway(gateway.MpesaConfig{})
	return &fakeMobileGateway{
		parseFn: real.ParseCallback,
		queryFn: func(ctx context.Context, token string) (*gateway.ConfirmationEvent, error) {
			return &gateway.ConfirmationEvent{Kind: gateway.EventUnknown, CheckoutRequestID: token}, nil
		},
	}
}

const successCallback = `{"Body":{"stkCallback":{"MerchantRequestID":"29115-34620561-1",
	"CheckoutRequestID":"ws_CO_191220191020363925","ResultCode":0,
	"ResultDesc":"The service request is processed successfully.",
	"CallbackMetadata":{"Item":[
		{"Name":"Amount","Value":200.00},
		{"Name":"MpesaReceiptNumber","Value":"NLJ7RT61SV"},
		{"Name":"PhoneNumber","Value":254712345678}]}}}}`

const failedCallback = `{"Body":{"stkCallback":{"MerchantRequestID":"29115-34620561-1",
	"CheckoutRequestID":"ws_CO_191220191020363925","ResultCode":1032,
	"ResultDesc":"Request cancelled by user."}}}`

func TestMpesaCallbackSuccess(t *testing.T) {
	orders := newFakeOrderRepo()
	txns := newFakeTxnRepo()
	order := pendingMpesaOrder(orders, txns, "ws_CO_191220191020363925")
	svc, hub, notifier := newPaymentService(orders, txns, stripeOK(), passthroughMobile())

	err := svc.HandleMpesaCallback(context.Background(), []byte(successCallback))
	require.NoError(t, err)

	stored, _ := orders.FindByID(context.Background(), order.ID)
	assert.Equal(t, domain.PaymentPaid, stored.PaymentStatus)
	assert.Equal(t, domain.OrderConfirmed, stored.Status)
	assert.Equal(t, "NLJ7RT61SV", stored.MpesaReceipt)

	txn, _ := txns.FindByCheckoutRequestID(context.Background(), order.CheckoutRequestID)
	assert.Equal(t, domain.PaymentPaid, txn.Status)
	assert.Equal(t, "NLJ7RT61SV", txn.Receipt)

	assert.Len(t, hub.events, 1)
	assert.Equal(t, 1, notifier.calls)
}

func TestMpesaCallbackIdempotent(t *testing.T) {
	orders := newFakeOrderRepo()
	txns := newFakeTxnRepo()
	order := pendingMpesaOrder(orders, txns, "ws_CO_191220191020363925")
	svc, hub, _ := newPaymentService(orders, txns, stripeOK(), passthroughMobile())

	require.NoError(t, svc.HandleMpesaCallback(context.Background(), []byte(successCallback)))
	require.NoError(t, svc.HandleMpesaCallback(context.Background(), []byte(successCallback)))

	stored, _ := orders.FindByID(context.Background(), order.ID)
	assert.Equal(t, domain.PaymentPaid, stored.PaymentStatus)
	// The second delivery is a no-op: one upgrade, one audit update, one event.
	assert.Equal(t, 1, orders.markPaid)
	assert.Equal(t, 1, txns.updates)
	assert.Len(t, hub.events, 1)
}

func TestMpesaCallbackFailure(t *testing.T) {
	orders := newFakeOrderRepo()
	txns := newFakeTxnRepo()
	order := pendingMpesaOrder(orders, txns, "ws_CO_191220191020363925")
	svc, hub, _ := newPaymentService(orders, txns, stripeOK(), passthroughMobile())

	err := svc.HandleMpesaCallback(context.Background(), []byte(failedCallback))
	require.NoError(t, err)

	stored, _ := orders.FindByID(context.Background(), order.ID)
	assert.Equal(t, domain.PaymentFailed, stored.PaymentStatus)
	// The order stays recoverable: fulfilment status untouched.
	assert.Equal(t, domain.OrderPending, stored.Status)
	assert.Empty(t, hub.events)
}

func TestMpesaCallbackUnknownTokenAcked(t *testing.T) {
	orders := newFakeOrderRepo()
	txns := newFakeTxnRepo()
	svc, _, _ := newPaymentService(orders, txns, stripeOK(), passthroughMobile())

	// No matching order exists; the provider still gets a success ack.
	err := svc.HandleMpesaCallback(context.Background(), []byte(successCallback))
	assert.NoError(t, err)
}

func TestPaidIsMonotonic(t *testing.T) {
	orders := newFakeOrderRepo()
	txns := newFakeTxnRepo()
	order := pendingMpesaOrder(orders, txns, "ws_CO_191220191020363925")
	svc, _, _ := newPaymentService(orders, txns, stripeOK(), passthroughMobile())

	require.NoError(t, svc.HandleMpesaCallback(context.Background(), []byte(successCallback)))
	// A late failure event must not downgrade the paid state.
	require.NoError(t, svc.HandleMpesaCallback(context.Background(), []byte(failedCallback)))

	stored, _ := orders.FindByID(context.Background(), order.ID)
	assert.Equal(t, domain.PaymentPaid, stored.PaymentStatus)
	assert.Equal(t, "NLJ7RT61SV", stored.MpesaReceipt)
}

func TestStripeWebhookPaid(t *testing.T) {
	orders := newFakeOrderRepo()
	txns := newFakeTxnRepo()
	order := pendingMpesaOrder(orders, txns, "")
	card := &fakeCardGateway{
		verifyFn: func(payload []byte, signature string) (*gateway.ConfirmationEvent, error) {
			return &gateway.ConfirmationEvent{
				Kind:    gateway.EventPaid,
				OrderID: order.ID,
				Detail:  "payment_intent.succeeded",
			}, nil
		},
	}
	svc, _, _ := newPaymentService(orders, txns, card, passthroughMobile())

	err := svc.HandleStripeWebhook(context.Background(), []byte(`{}`), "sig")
	require.NoError(t, err)

	stored, _ := orders.FindByID(context.Background(), order.ID)
	assert.Equal(t, domain.PaymentPaid, stored.PaymentStatus)
	// Card settlement does not advance fulfilment; that is the admin's move.
	assert.Equal(t, domain.OrderPending, stored.Status)
}

func TestStripeWebhookBadSignature(t *testing.T) {
	orders := newFakeOrderRepo()
	lookups := 0
	card := &fakeCardGateway{
		verifyFn: func(payload []byte, signature string) (*gateway.ConfirmationEvent, error) {
			return nil, errors.New("no signatures found matching the expected signature")
		},
	}
	svc, _, _ := newPaymentService(orders, newFakeTxnRepo(), card, passthroughMobile())

	err := svc.HandleStripeWebhook(context.Background(), []byte(`{}`), "bad")
	assert.Error(t, err)
	assert.Zero(t, lookups)
	assert.Empty(t, orders.orders)
}

func TestPollStatusReconcilesDrift(t *testing.T) {
	orders := newFakeOrderRepo()
	txns := newFakeTxnRepo()
	order := pendingMpesaOrder(orders, txns, "ws_CO_191220191020363925")
	mobile := passthroughMobile()
	mobile.queryFn = func(ctx context.Context, token string) (*gateway.ConfirmationEvent, error) {
		return &gateway.ConfirmationEvent{
			Kind:              gateway.EventPaid,
			CheckoutRequestID: token,
			Receipt:           "NLJ7RT61SV",
		}, nil
	}
	svc, _, _ := newPaymentService(orders, txns, stripeOK(), mobile)

	status, err := svc.Status(context.Background(), order.CheckoutRequestID)
	require.NoError(t, err)
	assert.Equal(t, domain.PaymentPaid, status)

	stored, _ := orders.FindByID(context.Background(), order.ID)
	assert.Equal(t, domain.PaymentPaid, stored.PaymentStatus)
	assert.Equal(t, domain.OrderConfirmed, stored.Status)
}

func TestPollStatusKeepsPendingWhenRailUnreachable(t *testing.T) {
	orders := newFakeOrderRepo()
	txns := newFakeTxnRepo()
	order := pendingMpesaOrder(orders, txns, "ws_CO_191220191020363925")
	mobile := passthroughMobile()
	mobile.queryFn = func(ctx context.Context, token string) (*gateway.ConfirmationEvent, error) {
		return nil, domain.ErrRailUnavailable
	}
	svc, _, _ := newPaymentService(orders, txns, stripeOK(), mobile)

	status, err := svc.Status(context.Background(), order.CheckoutRequestID)
	require.NoError(t, err)
	assert.Equal(t, domain.PaymentPending, status)
}

func TestPollStatusUnknownToken(t *testing.T) {
	svc, _, _ := newPaymentService(newFakeOrderRepo(), newFakeTxnRepo(), stripeOK(), passthroughMobile())

	_, err := svc.Status(context.Background(), "ws_CO_nope")
	assert.ErrorIs(t, err, domain.ErrOrderNotFound)
}
