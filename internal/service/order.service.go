package service

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"campuseats/internal/domain"
	"campuseats/internal/gateway"
	"campuseats/internal/repo"
)

// totalTolerance absorbs client-side floating point rounding on the declared
// total. Anything beyond it is treated as tampering.
var totalTolerance = decimal.NewFromFloat(0.01)

type CartItem struct {
	MenuItemID uuid.UUID
	Quantity   int
}

type CreateOrderInput struct {
	UserID        uuid.UUID
	Items         []CartItem
	Total         decimal.Decimal
	PaymentMethod domain.PaymentMethod
	PhoneNumber   string
}

// CreateOrderResult reports the committed order plus the initiation outcome.
// InitiationErr is non-nil when the order was persisted but the rail could not
// be started; the order stays payment-pending and initiation is retried via
// the payments endpoint.
type CreateOrderResult struct {
	Order         *domain.Order
	Payment       *gateway.InitiationResult
	InitiationErr error
}

type OrderService struct {
	orders repo.OrderRepo
	menu   repo.MenuRepo
	txns   repo.TransactionRepo
	card   gateway.CardGateway
	mobile gateway.MobileMoneyGateway
	log    *slog.Logger
}

func NewOrderService(
	orders repo.OrderRepo,
	menu repo.MenuRepo,
	txns repo.TransactionRepo,
	card gateway.CardGateway,
	mobile gateway.MobileMoneyGateway,
	log *slog.Logger,
) *OrderService {
	return &OrderService{
		orders: orders,
		menu:   menu,
		txns:   txns,
		card:   card,
		mobile: mobile,
		log:    log,
	}
}

// Create validates the cart against live menu state, persists the order with
// its line-item price snapshots in one transaction, then initiates payment.
// Initiation failure after commit does not roll the order back.
func (s *OrderService) Create(ctx context.Context, in CreateOrderInput) (*CreateOrderResult, error) {
	if len(in.Items) == 0 {
		return nil, domain.ErrEmptyCart
	}
	if in.PaymentMethod == domain.MethodMpesa && in.PhoneNumber == "" {
		return nil, domain.ErrPhoneRequired
	}

	now := time.Now().UTC()
	orderID := uuid.New()

	var (
		cafeteriaID uuid.UUID
		recomputed  decimal.Decimal
		lineItems   []domain.OrderLineItem
	)
	for _, ci := range in.Items {
		if ci.Quantity < 1 {
			return nil, domain.ErrInvalidQuantity
		}
		item, err := s.menu.FindItem(ctx, ci.MenuItemID)
		if err != nil {
			return nil, fmt.Errorf("look up menu item %s: %w", ci.MenuItemID, err)
		}
		if item == nil || !item.Available {
			return nil, fmt.Errorf("%w: %s", domain.ErrItemUnavailable, ci.MenuItemID)
		}
		if cafeteriaID == uuid.Nil {
			cafeteriaID = item.CafeteriaID
		} else if item.CafeteriaID != cafeteriaID {
			return nil, domain.ErrMixedCafeterias
		}

		recomputed = recomputed.Add(item.Price.Mul(decimal.NewFromInt(int64(ci.Quantity))))
		lineItems = append(lineItems, domain.OrderLineItem{
			OrderID:    orderID,
			MenuItemID: item.ID,
			Name:       item.Name,
			Quantity:   ci.Quantity,
			UnitPrice:  item.Price,
		})
	}

	if recomputed.Sub(in.Total).Abs().GreaterThan(totalTolerance) {
		return nil, domain.ErrTotalMismatch
	}

	order := &domain.Order{
		ID:            orderID,
		UserID:        in.UserID,
		CafeteriaID:   cafeteriaID,
		Total:         recomputed,
		Status:        domain.OrderPending,
		PaymentStatus: domain.PaymentPending,
		PaymentMethod: in.PaymentMethod,
		CreatedAt:     now,
		UpdatedAt:     now,
	}
	if err := s.orders.Create(ctx, order, lineItems); err != nil {
		return nil, fmt.Errorf("persist order: %w", err)
	}

	result := &CreateOrderResult{Order: order}
	payment, err := s.initiate(ctx, order, in.PaymentMethod, in.PhoneNumber)
	if err != nil {
		// The order is already committed; surface the failure to the caller
		// and let them retry initiation separately.
		s.log.WarnContext(ctx, "payment initiation failed after order commit",
			"order_id", order.ID, "method", in.PaymentMethod, "error", err)
		result.InitiationErr = err
		return result, nil
	}
	result.Payment = payment
	return result, nil
}

// Initiate starts (or restarts) payment for an order that is still awaiting
// settlement.
func (s *OrderService) Initiate(ctx context.Context, orderID uuid.UUID, method domain.PaymentMethod, phone string) (*gateway.InitiationResult, error) {
	order, err := s.orders.FindByID(ctx, orderID)
	if err != nil {
		return nil, err
	}
	if order == nil {
		return nil, domain.ErrOrderNotFound
	}
	if order.PaymentStatus != domain.PaymentPending {
		return nil, domain.ErrOrderNotPending
	}
	if method == domain.MethodMpesa && phone == "" {
		return nil, domain.ErrPhoneRequired
	}
	return s.initiate(ctx, order, method, phone)
}

func (s *OrderService) initiate(ctx context.Context, order *domain.Order, method domain.PaymentMethod, phone string) (*gateway.InitiationResult, error) {
	switch method {
	case domain.MethodStripe:
		res, err := s.card.Initiate(ctx, order)
		if err != nil {
			return nil, err
		}
		if err := s.orders.SetPaymentRef(ctx, order.ID, method, res.PaymentIntentID, ""); err != nil {
			return nil, fmt.Errorf("record payment intent: %w", err)
		}
		order.PaymentIntentID = res.PaymentIntentID
		return res, nil

	case domain.MethodMpesa:
		res, err := s.mobile.Initiate(ctx, order, phone)
		if err != nil {
			return nil, err
		}
		if err := s.orders.SetPaymentRef(ctx, order.ID, method, "", res.CheckoutRequestID); err != nil {
			return nil, fmt.Errorf("record checkout request: %w", err)
		}
		order.CheckoutRequestID = res.CheckoutRequestID

		now := time.Now().UTC()
		txn := &domain.MpesaTransaction{
			ID:                uuid.New(),
			OrderID:           order.ID,
			CheckoutRequestID: res.CheckoutRequestID,
			Phone:             phone,
			Amount:            order.Total,
			Status:            domain.PaymentPending,
			CreatedAt:         now,
			UpdatedAt:         now,
		}
		if err := s.txns.Create(ctx, txn); err != nil {
			// The push already went out; losing the audit row is not worth
			// failing the initiation over.
			s.log.ErrorContext(ctx, "record mpesa transaction",
				"order_id", order.ID, "checkout_request_id", res.CheckoutRequestID, "error", err)
		}
		return res, nil

	default:
		return nil, fmt.Errorf("unsupported payment method %q", method)
	}
}

// Get returns the order with its line items.
func (s *OrderService) Get(ctx context.Context, orderID uuid.UUID) (*domain.Order, []domain.OrderLineItem, error) {
	order, err := s.orders.FindByID(ctx, orderID)
	if err != nil {
		return nil, nil, err
	}
	if order == nil {
		return nil, nil, domain.ErrOrderNotFound
	}
	items, err := s.orders.ListItems(ctx, orderID)
	if err != nil {
		return nil, nil, err
	}
	return order, items, nil
}
