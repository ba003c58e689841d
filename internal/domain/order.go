package domain

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

type OrderStatus string

const (
	OrderPending   OrderStatus = "pending"
	OrderConfirmed OrderStatus = "confirmed"
	OrderPreparing OrderStatus = "preparing"
	OrderReady     OrderStatus = "ready"
	OrderDelivered OrderStatus = "delivered"
	OrderCancelled OrderStatus = "cancelled"
)

type PaymentStatus string

const (
	PaymentPending PaymentStatus = "pending"
	PaymentPaid    PaymentStatus = "paid"
	PaymentFailed  PaymentStatus = "failed"
)

type PaymentMethod string

const (
	MethodStripe PaymentMethod = "stripe"
	MethodMpesa  PaymentMethod = "mpesa"
)

// statusFlow is the fulfilment lifecycle graph. cancelled is reachable from
// every pre-delivered state; delivered and cancelled are terminal.
var statusFlow = map[OrderStatus][]OrderStatus{
	OrderPending:   {OrderConfirmed, OrderCancelled},
	OrderConfirmed: {OrderPreparing, OrderCancelled},
	OrderPreparing: {OrderReady, OrderCancelled},
	OrderReady:     {OrderDelivered, OrderCancelled},
	OrderDelivered: {},
	OrderCancelled: {},
}

func (s OrderStatus) Valid() bool {
	_, ok := statusFlow[s]
	return ok
}

func (s OrderStatus) CanTransitionTo(next OrderStatus) bool {
	for _, allowed := range statusFlow[s] {
		if allowed == next {
			return true
		}
	}
	return false
}

// Order is one checkout transaction. Status and PaymentStatus are independent
// axes: Status tracks fulfilment, PaymentStatus tracks settlement.
type Order struct {
	ID                uuid.UUID
	UserID            uuid.UUID
	CafeteriaID       uuid.UUID
	Total             decimal.Decimal
	Status            OrderStatus
	PaymentStatus     PaymentStatus
	PaymentMethod     PaymentMethod
	PaymentIntentID   string // Stripe correlation
	CheckoutRequestID string // M-Pesa correlation
	MpesaReceipt      string
	Version           int64
	CreatedAt         time.Time
	UpdatedAt         time.Time
}

// OrderLineItem captures name and unit price at order time; the snapshot never
// changes even if the menu item is renamed or repriced later.
type OrderLineItem struct {
	OrderID    uuid.UUID
	MenuItemID uuid.UUID
	Name       string
	Quantity   int
	UnitPrice  decimal.Decimal
}

// MenuItem is the read-side view of the menu store this workflow consumes.
type MenuItem struct {
	ID          uuid.UUID
	CafeteriaID uuid.UUID
	Name        string
	Price       decimal.Decimal
	Available   bool
}

type User struct {
	ID      uuid.UUID
	Name    string
	Email   string
	Phone   string
	Address string
}

type Cafeteria struct {
	ID            uuid.UUID
	Name          string
	InvoicePrefix string
}
