package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"campuseats/internal/domain"
	"campuseats/internal/gateway"
	"campuseats/internal/realtime"
	"campuseats/internal/repo"
)

// Publisher pushes order lifecycle events onto a user-scoped channel.
type Publisher interface {
	Publish(userID uuid.UUID, ev realtime.OrderEvent)
}

// PaymentService is the convergence point for every confirmation path: the
// Stripe webhook, the M-Pesa callback, client polling, and the background
// reconciliation sweep all funnel into the same upgrade-only state mutation.
type PaymentService struct {
	orders   repo.OrderRepo
	txns     repo.TransactionRepo
	card     gateway.CardGateway
	mobile   gateway.MobileMoneyGateway
	hub      Publisher
	notifier Notifier
	log      *slog.Logger
}

// Notifier mirrors notify.Notifier; declared here so the service depends on
// the capability, not the package.
type Notifier interface {
	OrderStatusChanged(ctx context.Context, userID, orderID uuid.UUID, status domain.OrderStatus)
}

func NewPaymentService(
	orders repo.OrderRepo,
	txns repo.TransactionRepo,
	card gateway.CardGateway,
	mobile gateway.MobileMoneyGateway,
	hub Publisher,
	notifier Notifier,
	log *slog.Logger,
) *PaymentService {
	return &PaymentService{
		orders:   orders,
		txns:     txns,
		card:     card,
		mobile:   mobile,
		hub:      hub,
		notifier: notifier,
		log:      log,
	}
}

// HandleStripeWebhook verifies the signature and applies the event. A
// verification failure is returned so the handler can respond 400 before any
// order lookup happens.
func (s *PaymentService) HandleStripeWebhook(ctx context.Context, payload []byte, signature string) error {
	ev, err := s.card.VerifyWebhook(payload, signature)
	if err != nil {
		return err
	}
	if ev.Kind == gateway.EventUnknown {
		return nil
	}

	order, err := s.orders.FindByID(ctx, ev.OrderID)
	if err != nil {
		return fmt.Errorf("look up order %s: %w", ev.OrderID, err)
	}
	if order == nil {
		s.log.WarnContext(ctx, "stripe event references unknown order",
			"order_id", ev.OrderID, "detail", ev.Detail)
		return nil
	}
	s.apply(ctx, order, ev)
	return nil
}

// HandleMpesaCallback applies an STK push result. Unknown correlation tokens
// are swallowed: Daraja's retry semantics do not tolerate error responses, so
// the mismatch is only logged.
func (s *PaymentService) HandleMpesaCallback(ctx context.Context, payload []byte) error {
	ev, err := s.mobile.ParseCallback(payload)
	if err != nil {
		return err
	}

	order, err := s.orders.FindByCheckoutRequestID(ctx, ev.CheckoutRequestID)
	if err != nil {
		return fmt.Errorf("look up checkout request %s: %w", ev.CheckoutRequestID, err)
	}
	if order == nil {
		s.log.WarnContext(ctx, "mpesa callback references unknown checkout request",
			"checkout_request_id", ev.CheckoutRequestID, "detail", ev.Detail)
		return nil
	}
	s.apply(ctx, order, ev)
	return nil
}

// Status reflects the stored payment state for a poll. While the order is
// still pending a live query against the rail reconciles any drift.
func (s *PaymentService) Status(ctx context.Context, checkoutRequestID string) (domain.PaymentStatus, error) {
	order, err := s.orders.FindByCheckoutRequestID(ctx, checkoutRequestID)
	if err != nil {
		return "", err
	}
	if order == nil {
		return "", domain.ErrOrderNotFound
	}
	if order.PaymentStatus != domain.PaymentPending {
		return order.PaymentStatus, nil
	}
	return s.Reconcile(ctx, order)
}

// Reconcile asks the mobile rail for the authoritative result of a pending
// attempt and applies it. Transport failures leave the order pending; only an
// explicit provider-reported decline marks it failed.
func (s *PaymentService) Reconcile(ctx context.Context, order *domain.Order) (domain.PaymentStatus, error) {
	if order.CheckoutRequestID == "" {
		return order.PaymentStatus, nil
	}

	ev, err := s.mobile.QueryStatus(ctx, order.CheckoutRequestID)
	if err != nil {
		if errors.Is(err, domain.ErrRailUnavailable) {
			s.log.WarnContext(ctx, "status query unreachable, keeping pending",
				"order_id", order.ID, "error", err)
			return order.PaymentStatus, nil
		}
		return order.PaymentStatus, err
	}
	if ev.Kind == gateway.EventUnknown {
		return order.PaymentStatus, nil
	}

	s.apply(ctx, order, ev)
	return order.PaymentStatus, nil
}

// apply performs the single shared state mutation. Upgrades to paid are
// monotonic: a duplicate delivery or a late failure event cannot move an
// already-paid order. The confirm flag on mobile-money events also advances a
// pending order to confirmed and captures the receipt.
func (s *PaymentService) apply(ctx context.Context, order *domain.Order, ev *gateway.ConfirmationEvent) {
	fromMobile := ev.CheckoutRequestID != ""

	switch ev.Kind {
	case gateway.EventPaid:
		upgraded, err := s.orders.MarkPaid(ctx, order.ID, ev.Receipt, fromMobile)
		if err != nil {
			s.log.ErrorContext(ctx, "mark order paid", "order_id", order.ID, "error", err)
			return
		}
		order.PaymentStatus = domain.PaymentPaid
		if !upgraded {
			// Already paid; duplicate delivery, nothing more to do.
			return
		}
		if fromMobile {
			if order.Status == domain.OrderPending {
				order.Status = domain.OrderConfirmed
			}
			order.MpesaReceipt = ev.Receipt
			if err := s.txns.UpdateStatus(ctx, ev.CheckoutRequestID, domain.PaymentPaid, ev.Receipt); err != nil {
				s.log.ErrorContext(ctx, "update mpesa transaction",
					"checkout_request_id", ev.CheckoutRequestID, "error", err)
			}
		}
		s.log.InfoContext(ctx, "payment settled",
			"order_id", order.ID, "receipt", ev.Receipt, "detail", ev.Detail)
		s.hub.Publish(order.UserID, realtime.OrderEvent{
			OrderID:   order.ID,
			Status:    order.Status,
			UpdatedAt: time.Now().UTC(),
		})
		s.notifier.OrderStatusChanged(ctx, order.UserID, order.ID, order.Status)

	case gateway.EventFailed:
		changed, err := s.orders.MarkFailed(ctx, order.ID)
		if err != nil {
			s.log.ErrorContext(ctx, "mark order failed", "order_id", order.ID, "error", err)
			return
		}
		if changed {
			order.PaymentStatus = domain.PaymentFailed
		}
		if fromMobile {
			if err := s.txns.UpdateStatus(ctx, ev.CheckoutRequestID, domain.PaymentFailed, ""); err != nil {
				s.log.ErrorContext(ctx, "update mpesa transaction",
					"checkout_request_id", ev.CheckoutRequestID, "error", err)
			}
		}
		s.log.InfoContext(ctx, "payment declined",
			"order_id", order.ID, "detail", ev.Detail)
	}
}
