// Package gateway wraps the two payment rails behind one confirmation
// contract. Each rail initiates a payment in its own shape; both converge on
// ConfirmationEvent so the settlement services never branch on provider field
// layouts.
package gateway

import (
	"context"

	"github.com/google/uuid"

	"campuseats/internal/domain"
)

type EventKind string

const (
	EventPaid   EventKind = "paid"
	EventFailed EventKind = "failed"
	// EventUnknown is returned by status queries while the rail has no final
	// result yet.
	EventUnknown EventKind = "unknown"
)

// InitiationResult carries what the client needs to complete the payment:
// a client secret for card confirmation, or a correlation token and prompt
// message for a push-to-phone flow.
type InitiationResult struct {
	ClientSecret      string
	PaymentIntentID   string
	CheckoutRequestID string
	ResponseCode      string
	CustomerMessage   string
}

// ConfirmationEvent is the provider-neutral outcome of a callback, webhook or
// status query. Exactly one of OrderID or CheckoutRequestID identifies the
// order, depending on which rail produced the event.
type ConfirmationEvent struct {
	Kind              EventKind
	OrderID           uuid.UUID
	CheckoutRequestID string
	Receipt           string
	Detail            string
}

// CardGateway is the Stripe-shaped rail: intent creation up front, signed
// webhook for the outcome.
type CardGateway interface {
	Initiate(ctx context.Context, order *domain.Order) (*InitiationResult, error)
	// VerifyWebhook rejects unverifiable payloads before any order lookup.
	VerifyWebhook(payload []byte, signature string) (*ConfirmationEvent, error)
}

// MobileMoneyGateway is the M-Pesa-shaped rail: STK push to the phone, async
// callback, and an on-demand status query for reconciliation.
type MobileMoneyGateway interface {
	Initiate(ctx context.Context, order *domain.Order, phone string) (*InitiationResult, error)
	ParseCallback(payload []byte) (*ConfirmationEvent, error)
	QueryStatus(ctx context.Context, checkoutRequestID string) (*ConfirmationEvent, error)
}
