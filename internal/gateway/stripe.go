package gateway

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"
	"github.com/stripe/stripe-go/v82"
	"github.com/stripe/stripe-go/v82/paymentintent"
	"github.com/stripe/stripe-go/v82/webhook"

	"campuseats/internal/domain"
)

const orderIDMetadataKey = "order_id"

type StripeGateway struct {
	webhookSecret string
	currency      string
}

func NewStripeGateway(secretKey, webhookSecret, currency string) *StripeGateway {
	stripe.Key = secretKey
	return &StripeGateway{webhookSecret: webhookSecret, currency: currency}
}

func (g *StripeGateway) Initiate(ctx context.Context, order *domain.Order) (*InitiationResult, error) {
	params := &stripe.PaymentIntentParams{
		Amount:   stripe.Int64(minorUnits(order)),
		Currency: stripe.String(g.currency),
	}
	params.Context = ctx
	params.AddMetadata(orderIDMetadataKey, order.ID.String())

	pi, err := paymentintent.New(params)
	if err != nil {
		return nil, fmt.Errorf("create payment intent: %w (%w)", err, domain.ErrRailUnavailable)
	}

	return &InitiationResult{
		ClientSecret:    pi.ClientSecret,
		PaymentIntentID: pi.ID,
	}, nil
}

func (g *StripeGateway) VerifyWebhook(payload []byte, signature string) (*ConfirmationEvent, error) {
	event, err := webhook.ConstructEventWithOptions(payload, signature, g.webhookSecret,
		webhook.ConstructEventOptions{IgnoreAPIVersionMismatch: true})
	if err != nil {
		return nil, fmt.Errorf("verify webhook signature: %w", err)
	}

	switch string(event.Type) {
	case "payment_intent.succeeded", "payment_intent.payment_failed":
	default:
		// Other event types are acknowledged without acting on them.
		return &ConfirmationEvent{Kind: EventUnknown, Detail: string(event.Type)}, nil
	}

	var pi stripe.PaymentIntent
	if err := json.Unmarshal(event.Data.Raw, &pi); err != nil {
		return nil, fmt.Errorf("decode payment intent payload: %w", err)
	}

	orderID, err := uuid.Parse(pi.Metadata[orderIDMetadataKey])
	if err != nil {
		return nil, fmt.Errorf("payment intent %s carries no usable order id: %w", pi.ID, err)
	}

	kind := EventPaid
	if string(event.Type) == "payment_intent.payment_failed" {
		kind = EventFailed
	}
	return &ConfirmationEvent{
		Kind:    kind,
		OrderID: orderID,
		Detail:  string(event.Type),
	}, nil
}

// minorUnits converts the order total into the smallest currency unit.
func minorUnits(order *domain.Order) int64 {
	return order.Total.Shift(2).Round(0).IntPart()
}
