package service

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	"campuseats/internal/domain"
	"campuseats/internal/gateway"
	"campuseats/internal/realtime"
)

// fakeOrderRepo mirrors the SQL predicates of the real repo: MarkPaid is
// upgrade-only, MarkFailed only applies to pending, UpdateStatus checks the
// version column.
type fakeOrderRepo struct {
	mu     sync.Mutex
	orders map[uuid.UUID]*domain.Order
	items  map[uuid.UUID][]domain.OrderLineItem

	createErr error
	markPaid  int
}

func newFakeOrderRepo() *fakeOrderRepo {
	return &fakeOrderRepo{
		orders: make(map[uuid.UUID]*domain.Order),
		items:  make(map[uuid.UUID][]domain.OrderLineItem),
	}
}

func (f *fakeOrderRepo) Create(ctx context.Context, order *domain.Order, items []domain.OrderLineItem) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.createErr != nil {
		return f.createErr
	}
	cp := *order
	f.orders[order.ID] = &cp
	f.items[order.ID] = append([]domain.OrderLineItem(nil), items...)
	return nil
}

func (f *fakeOrderRepo) FindByID(ctx context.Context, id uuid.UUID) (*domain.Order, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	o, ok := f.orders[id]
	if !ok {
		return nil, nil
	}
	cp := *o
	return &cp, nil
}

func (f *fakeOrderRepo) FindByCheckoutRequestID(ctx context.Context, token string) (*domain.Order, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, o := range f.orders {
		if o.CheckoutRequestID == token {
			cp := *o
			return &cp, nil
		}
	}
	return nil, nil
}

func (f *fakeOrderRepo) ListItems(ctx context.Context, orderID uuid.UUID) ([]domain.OrderLineItem, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]domain.OrderLineItem(nil), f.items[orderID]...), nil
}

func (f *fakeOrderRepo) SetPaymentRef(ctx context.Context, orderID uuid.UUID, method domain.PaymentMethod, intentID, checkoutRequestID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	o, ok := f.orders[orderID]
	if !ok {
		return nil
	}
	o.PaymentMethod = method
	if intentID != "" {
		o.PaymentIntentID = intentID
	}
	if checkoutRequestID != "" {
		o.CheckoutRequestID = checkoutRequestID
	}
	o.Version++
	return nil
}

func (f *fakeOrderRepo) MarkPaid(ctx context.Context, orderID uuid.UUID, receipt string, confirm bool) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	o, ok := f.orders[orderID]
	if !ok || o.PaymentStatus == domain.PaymentPaid {
		return false, nil
	}
	f.markPaid++
	o.PaymentStatus = domain.PaymentPaid
	if confirm && o.Status == domain.OrderPending {
		o.Status = domain.OrderConfirmed
	}
	if receipt != "" {
		o.MpesaReceipt = receipt
	}
	o.Version++
	return true, nil
}

func (f *fakeOrderRepo) MarkFailed(ctx context.Context, orderID uuid.UUID) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	o, ok := f.orders[orderID]
	if !ok || o.PaymentStatus != domain.PaymentPending {
		return false, nil
	}
	o.PaymentStatus = domain.PaymentFailed
	o.Version++
	return true, nil
}

func (f *fakeOrderRepo) UpdateStatus(ctx context.Context, orderID uuid.UUID, status domain.OrderStatus, version int64) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	o, ok := f.orders[orderID]
	if !ok || o.Version != version {
		return domain.ErrVersionConflict
	}
	o.Status = status
	o.Version++
	return nil
}

type fakeMenuRepo struct {
	items map[uuid.UUID]*domain.MenuItem
}

func (f *fakeMenuRepo) FindItem(ctx context.Context, id uuid.UUID) (*domain.MenuItem, error) {
	item, ok := f.items[id]
	if !ok {
		return nil, nil
	}
	cp := *item
	return &cp, nil
}

type fakeTxnRepo struct {
	mu      sync.Mutex
	txns    map[string]*domain.MpesaTransaction
	updates int
}

func newFakeTxnRepo() *fakeTxnRepo {
	return &fakeTxnRepo{txns: make(map[string]*domain.MpesaTransaction)}
}

func (f *fakeTxnRepo) Create(ctx context.Context, t *domain.MpesaTransaction) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	cp := *t
	f.txns[t.CheckoutRequestID] = &cp
	return nil
}

func (f *fakeTxnRepo) FindByCheckoutRequestID(ctx context.Context, token string) (*domain.MpesaTransaction, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	t, ok := f.txns[token]
	if !ok {
		return nil, nil
	}
	cp := *t
	return &cp, nil
}

func (f *fakeTxnRepo) UpdateStatus(ctx context.Context, token string, status domain.PaymentStatus, receipt string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	t, ok := f.txns[token]
	if !ok || t.Status != domain.PaymentPending {
		return nil
	}
	f.updates++
	t.Status = status
	if receipt != "" {
		t.Receipt = receipt
	}
	return nil
}

func (f *fakeTxnRepo) FindPendingBefore(ctx context.Context, before time.Time, limit int) ([]domain.MpesaTransaction, error) {
	return nil, nil
}

type fakeCardGateway struct {
	initiateFn func(ctx context.Context, order *domain.Order) (*gateway.InitiationResult, error)
	verifyFn   func(payload []byte, signature string) (*gateway.ConfirmationEvent, error)
}

func (f *fakeCardGateway) Initiate(ctx context.Context, order *domain.Order) (*gateway.InitiationResult, error) {
	return f.initiateFn(ctx, order)
}

func (f *fakeCardGateway) VerifyWebhook(payload []byte, signature string) (*gateway.ConfirmationEvent, error) {
	return f.verifyFn(payload, signature)
}

type fakeMobileGateway struct {
	initiateFn func(ctx context.Context, order *domain.Order, phone string) (*gateway.InitiationResult, error)
	parseFn    func(payload []byte) (*gateway.ConfirmationEvent, error)
	queryFn    func(ctx context.Context, token string) (*gateway.ConfirmationEvent, error)
}

func (f *fakeMobileGateway) Initiate(ctx context.Context, order *domain.Order, phone string) (*gateway.InitiationResult, error) {
	return f.initiateFn(ctx, order, phone)
}

func (f *fakeMobileGateway) ParseCallback(payload []byte) (*gateway.ConfirmationEvent, error) {
	return f.parseFn(payload)
}

func (f *fakeMobileGateway) QueryStatus(ctx context.Context, token string) (*gateway.ConfirmationEvent, error) {
	return f.queryFn(ctx, token)
}

type fakeHub struct {
	mu     sync.Mutex
	events []realtime.OrderEvent
}

func (f *fakeHub) Publish(userID uuid.UUID, ev realtime.OrderEvent) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.events = append(f.events, ev)
}

type fakeNotifier struct {
	mu    sync.Mutex
	calls int
}

func (f *fakeNotifier) OrderStatusChanged(ctx context.Context, userID, orderID uuid.UUID, status domain.OrderStatus) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
}
