package service

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"campuseats/internal/domain"
	"campuseats/internal/repo"
)

const invoiceDueDays = 30

// InvoiceService derives the billing artifact from a settled order. The
// invoices table carries a unique order_id constraint, so generation is
// exactly-once no matter how many callers race.
type InvoiceService struct {
	invoices  repo.InvoiceRepo
	orders    repo.OrderRepo
	directory repo.DirectoryRepo
	log       *slog.Logger
}

func NewInvoiceService(
	invoices repo.InvoiceRepo,
	orders repo.OrderRepo,
	directory repo.DirectoryRepo,
	log *slog.Logger,
) *InvoiceService {
	return &InvoiceService{
		invoices:  invoices,
		orders:    orders,
		directory: directory,
		log:       log,
	}
}

// Generate snapshots the order's line items and the client's contact details
// into a new invoice. Returns domain.ErrInvoiceExists if the order already has
// one.
func (s *InvoiceService) Generate(ctx context.Context, order *domain.Order, createdBy uuid.UUID) (*domain.Invoice, error) {
	exists, err := s.invoices.ExistsForOrder(ctx, order.ID)
	if err != nil {
		return nil, err
	}
	if exists {
		return nil, domain.ErrInvoiceExists
	}

	items, err := s.orders.ListItems(ctx, order.ID)
	if err != nil {
		return nil, fmt.Errorf("load order items: %w", err)
	}
	user, err := s.directory.FindUser(ctx, order.UserID)
	if err != nil {
		return nil, err
	}
	if user == nil {
		return nil, fmt.Errorf("user %s not found", order.UserID)
	}
	cafeteria, err := s.directory.FindCafeteria(ctx, order.CafeteriaID)
	if err != nil {
		return nil, err
	}
	if cafeteria == nil {
		return nil, fmt.Errorf("cafeteria %s not found", order.CafeteriaID)
	}

	invItems := make([]domain.InvoiceItem, 0, len(items))
	for _, it := range items {
		invItems = append(invItems, domain.InvoiceItem{
			Description: it.Name,
			Quantity:    it.Quantity,
			UnitPrice:   it.UnitPrice,
		})
	}

	now := time.Now().UTC()
	inv := &domain.Invoice{
		ID:          uuid.New(),
		OrderID:     order.ID,
		CafeteriaID: order.CafeteriaID,
		ClientName:  user.Name,
		ClientEmail: user.Email,
		ClientPhone: user.Phone,
		ClientAddr:  user.Address,
		Items:       invItems,
		// Discounts were already applied to the order total at order time.
		Subtotal:  order.Total,
		TaxRate:   decimal.Zero,
		TaxAmount: decimal.Zero,
		Discount:  decimal.Zero,
		Total:     order.Total,
		Status:    domain.InvoiceDraft,
		DueDate:   now.AddDate(0, 0, invoiceDueDays),
		Notes:     fmt.Sprintf("Order %s at %s", order.ID, cafeteria.Name),
		CreatedBy: createdBy,
		CreatedAt: now,
	}

	if err := s.invoices.Create(ctx, inv, invoicePrefix(cafeteria), now.Year()); err != nil {
		return nil, err
	}
	s.log.InfoContext(ctx, "invoice generated",
		"order_id", order.ID, "number", inv.Number)
	return inv, nil
}

// FindByOrder returns the invoice for an order, or ErrInvoiceNotFound.
func (s *InvoiceService) FindByOrder(ctx context.Context, orderID uuid.UUID) (*domain.Invoice, error) {
	inv, err := s.invoices.FindByOrder(ctx, orderID)
	if err != nil {
		return nil, err
	}
	if inv == nil {
		return nil, domain.ErrInvoiceNotFound
	}
	return inv, nil
}

// invoicePrefix prefers the cafeteria's configured prefix and falls back to
// its name's initials.
func invoicePrefix(c *domain.Cafeteria) string {
	if c.InvoicePrefix != "" {
		return c.InvoicePrefix
	}
	var b strings.Builder
	for _, word := range strings.Fields(c.Name) {
		b.WriteString(strings.ToUpper(word[:1]))
		if b.Len() >= 3 {
			break
		}
	}
	if b.Len() == 0 {
		return "INV"
	}
	return b.String()
}
