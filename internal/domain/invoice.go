package domain

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

type InvoiceStatus string

const (
	InvoiceDraft     InvoiceStatus = "draft"
	InvoiceSent      InvoiceStatus = "sent"
	InvoicePaid      InvoiceStatus = "paid"
	InvoiceOverdue   InvoiceStatus = "overdue"
	InvoiceCancelled InvoiceStatus = "cancelled"
)

// Invoice is the billing artifact derived from a settled order. Client details
// and line items are copied at generation time, not live references. OrderID
// carries a database uniqueness constraint: at most one invoice per order.
type Invoice struct {
	ID          uuid.UUID
	OrderID     uuid.UUID
	CafeteriaID uuid.UUID
	Number      string
	ClientName  string
	ClientEmail string
	ClientPhone string
	ClientAddr  string
	Items       []InvoiceItem
	Subtotal    decimal.Decimal
	TaxRate     decimal.Decimal
	TaxAmount   decimal.Decimal
	Discount    decimal.Decimal
	Total       decimal.Decimal
	Status      InvoiceStatus
	DueDate     time.Time
	Notes       string
	CreatedBy   uuid.UUID
	CreatedAt   time.Time
}

type InvoiceItem struct {
	Description string          `json:"description"`
	Quantity    int             `json:"quantity"`
	UnitPrice   decimal.Decimal `json:"unit_price"`
}

// MpesaTransaction is the audit record of one STK push attempt.
type MpesaTransaction struct {
	ID                uuid.UUID
	OrderID           uuid.UUID
	CheckoutRequestID string
	Phone             string
	Amount            decimal.Decimal
	Status            PaymentStatus
	Receipt           string
	CreatedAt         time.Time
	UpdatedAt         time.Time
}
