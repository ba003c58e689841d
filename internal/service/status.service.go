package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"campuseats/internal/domain"
	"campuseats/internal/realtime"
	"campuseats/internal/repo"
)

// StatusUpdate is the outcome of one admin transition: the moved order, and
// whether this transition produced the invoice.
type StatusUpdate struct {
	Order            *domain.Order
	InvoiceGenerated bool
	Invoice          *domain.Invoice
}

// StatusService drives the admin-facing fulfilment state machine.
type StatusService struct {
	orders   repo.OrderRepo
	invoices *InvoiceService
	hub      Publisher
	notifier Notifier
	log      *slog.Logger
}

func NewStatusService(
	orders repo.OrderRepo,
	invoices *InvoiceService,
	hub Publisher,
	notifier Notifier,
	log *slog.Logger,
) *StatusService {
	return &StatusService{
		orders:   orders,
		invoices: invoices,
		hub:      hub,
		notifier: notifier,
		log:      log,
	}
}

// Transition moves an order along the fulfilment lifecycle. The admin must own
// the order's cafeteria; a wrong-tenant attempt is an authorization failure,
// never a not-found. On delivered+paid the invoice is generated synchronously,
// but an invoicing failure does not fail the transition: fulfilment is not
// allowed to depend on billing health.
func (s *StatusService) Transition(ctx context.Context, adminID, adminCafeteriaID, orderID uuid.UUID, next domain.OrderStatus) (*StatusUpdate, error) {
	order, err := s.orders.FindByID(ctx, orderID)
	if err != nil {
		return nil, err
	}
	if order == nil {
		return nil, domain.ErrOrderNotFound
	}
	if order.CafeteriaID != adminCafeteriaID {
		return nil, domain.ErrWrongCafeteria
	}
	if !next.Valid() || !order.Status.CanTransitionTo(next) {
		return nil, fmt.Errorf("%w: %s -> %s", domain.ErrInvalidTransition, order.Status, next)
	}

	if err := s.orders.UpdateStatus(ctx, order.ID, next, order.Version); err != nil {
		return nil, err
	}
	order.Status = next
	order.Version++
	order.UpdatedAt = time.Now().UTC()

	update := &StatusUpdate{Order: order}

	if next == domain.OrderDelivered && order.PaymentStatus == domain.PaymentPaid {
		inv, err := s.invoices.Generate(ctx, order, adminID)
		switch {
		case err == nil:
			update.InvoiceGenerated = true
			update.Invoice = inv
		case errors.Is(err, domain.ErrInvoiceExists):
			s.log.InfoContext(ctx, "invoice already generated", "order_id", order.ID)
		default:
			// Swallowed deliberately; a backfill sweep picks up orders that
			// reached delivered+paid without an invoice.
			s.log.ErrorContext(ctx, "invoice generation failed",
				"order_id", order.ID, "error", err)
		}
	}

	s.hub.Publish(order.UserID, realtime.OrderEvent{
		OrderID:   order.ID,
		Status:    order.Status,
		UpdatedAt: order.UpdatedAt,
	})
	s.notifier.OrderStatusChanged(ctx, order.UserID, order.ID, order.Status)

	return update, nil
}
