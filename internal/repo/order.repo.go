package repo

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/google/uuid"

	"campuseats/internal/domain"
)

type OrderRepo interface {
	// Create persists the order and all line items in one transaction.
	Create(ctx context.Context, order *domain.Order, items []domain.OrderLineItem) error
	FindByID(ctx context.Context, id uuid.UUID) (*domain.Order, error)
	FindByCheckoutRequestID(ctx context.Context, checkoutRequestID string) (*domain.Order, error)
	ListItems(ctx context.Context, orderID uuid.UUID) ([]domain.OrderLineItem, error)
	// SetPaymentRef records the method and provider correlation tokens after
	// initiation.
	SetPaymentRef(ctx context.Context, orderID uuid.UUID, method domain.PaymentMethod, intentID, checkoutRequestID string) error
	// MarkPaid upgrades payment_status to paid. The paid state is terminal in
	// the successful direction: the predicate makes a repeat delivery a no-op
	// and reports whether this call performed the upgrade. When confirm is set
	// a pending order is also moved to confirmed (mobile-money flow).
	MarkPaid(ctx context.Context, orderID uuid.UUID, receipt string, confirm bool) (bool, error)
	// MarkFailed records an explicit provider decline. It only applies while
	// payment_status is still pending, so it can never downgrade paid.
	MarkFailed(ctx context.Context, orderID uuid.UUID) (bool, error)
	// UpdateStatus moves the fulfilment status, guarded by the version column.
	UpdateStatus(ctx context.Context, orderID uuid.UUID, status domain.OrderStatus, version int64) error
}

type orderRepo struct {
	db *sql.DB
}

func NewOrderRepo(db *sql.DB) OrderRepo {
	return &orderRepo{db: db}
}

const orderColumns = `id, user_id, cafeteria_id, total, status, payment_status,
	payment_method, payment_intent_id, checkout_request_id, mpesa_receipt,
	version, created_at, updated_at`

func scanOrder(row interface{ Scan(...any) error }) (*domain.Order, error) {
	var o domain.Order
	err := row.Scan(
		&o.ID,
		&o.UserID,
		&o.CafeteriaID,
		&o.Total,
		&o.Status,
		&o.PaymentStatus,
		&o.PaymentMethod,
		&o.PaymentIntentID,
		&o.CheckoutRequestID,
		&o.MpesaReceipt,
		&o.Version,
		&o.CreatedAt,
		&o.UpdatedAt,
	)
	if err == sql.ErrNoRows {
		return nil, nil // not found
	}
	if err != nil {
		return nil, err // system error
	}
	return &o, nil
}

func (r *orderRepo) Create(ctx context.Context, order *domain.Order, items []domain.OrderLineItem) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx,
		`INSERT INTO orders (id, user_id, cafeteria_id, total, status, payment_status,
			payment_method, payment_intent_id, checkout_request_id, mpesa_receipt,
			version, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)`,
		order.ID, order.UserID, order.CafeteriaID, order.Total, order.Status,
		order.PaymentStatus, order.PaymentMethod, order.PaymentIntentID,
		order.CheckoutRequestID, order.MpesaReceipt, order.Version,
		order.CreatedAt, order.UpdatedAt,
	)
	if err != nil {
		return err
	}

	for _, item := range items {
		_, err = tx.ExecContext(ctx,
			`INSERT INTO order_items (order_id, menu_item_id, name, quantity, unit_price)
			 VALUES ($1, $2, $3, $4, $5)`,
			item.OrderID, item.MenuItemID, item.Name, item.Quantity, item.UnitPrice,
		)
		if err != nil {
			return err
		}
	}

	return tx.Commit()
}

func (r *orderRepo) FindByID(ctx context.Context, id uuid.UUID) (*domain.Order, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT `+orderColumns+` FROM orders WHERE id = $1`, id)
	return scanOrder(row)
}

func (r *orderRepo) FindByCheckoutRequestID(ctx context.Context, checkoutRequestID string) (*domain.Order, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT `+orderColumns+` FROM orders WHERE checkout_request_id = $1`, checkoutRequestID)
	return scanOrder(row)
}

func (r *orderRepo) ListItems(ctx context.Context, orderID uuid.UUID) ([]domain.OrderLineItem, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT order_id, menu_item_id, name, quantity, unit_price
		 FROM order_items WHERE order_id = $1`, orderID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var items []domain.OrderLineItem
	for rows.Next() {
		var it domain.OrderLineItem
		if err := rows.Scan(&it.OrderID, &it.MenuItemID, &it.Name, &it.Quantity, &it.UnitPrice); err != nil {
			return nil, err
		}
		items = append(items, it)
	}
	return items, rows.Err()
}

func (r *orderRepo) SetPaymentRef(ctx context.Context, orderID uuid.UUID, method domain.PaymentMethod, intentID, checkoutRequestID string) error {
	_, err := r.db.ExecContext(ctx,
		`UPDATE orders
		 SET payment_method = $2,
		     payment_intent_id = CASE WHEN $3 <> '' THEN $3 ELSE payment_intent_id END,
		     checkout_request_id = CASE WHEN $4 <> '' THEN $4 ELSE checkout_request_id END,
		     version = version + 1,
		     updated_at = now()
		 WHERE id = $1`,
		orderID, method, intentID, checkoutRequestID)
	return err
}

func (r *orderRepo) MarkPaid(ctx context.Context, orderID uuid.UUID, receipt string, confirm bool) (bool, error) {
	res, err := r.db.ExecContext(ctx,
		`UPDATE orders
		 SET payment_status = $2,
		     status = CASE WHEN $3 AND status = $4 THEN $5 ELSE status END,
		     mpesa_receipt = CASE WHEN $6 <> '' THEN $6 ELSE mpesa_receipt END,
		     version = version + 1,
		     updated_at = now()
		 WHERE id = $1 AND payment_status <> $2`,
		orderID, domain.PaymentPaid, confirm, domain.OrderPending, domain.OrderConfirmed, receipt)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	return n > 0, err
}

func (r *orderRepo) MarkFailed(ctx context.Context, orderID uuid.UUID) (bool, error) {
	res, err := r.db.ExecContext(ctx,
		`UPDATE orders
		 SET payment_status = $2, version = version + 1, updated_at = now()
		 WHERE id = $1 AND payment_status = $3`,
		orderID, domain.PaymentFailed, domain.PaymentPending)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	return n > 0, err
}

func (r *orderRepo) UpdateStatus(ctx context.Context, orderID uuid.UUID, status domain.OrderStatus, version int64) error {
	res, err := r.db.ExecContext(ctx,
		`UPDATE orders
		 SET status = $2, version = version + 1, updated_at = now()
		 WHERE id = $1 AND version = $3`,
		orderID, status, version)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return fmt.Errorf("order %s at version %d: %w", orderID, version, domain.ErrVersionConflict)
	}
	return nil
}
