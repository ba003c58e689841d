package repo

import (
	"context"
	"database/sql"
	"time"

	"campuseats/internal/domain"
)

type TransactionRepo interface {
	Create(ctx context.Context, t *domain.MpesaTransaction) error
	FindByCheckoutRequestID(ctx context.Context, checkoutRequestID string) (*domain.MpesaTransaction, error)
	// UpdateStatus resolves a pending attempt. Resolved rows are left alone, so
	// a duplicate callback delivery cannot flip a settled attempt.
	UpdateStatus(ctx context.Context, checkoutRequestID string, status domain.PaymentStatus, receipt string) error
	// FindPendingBefore returns attempts still awaiting a callback, oldest
	// first, for the reconciliation sweep.
	FindPendingBefore(ctx context.Context, before time.Time, limit int) ([]domain.MpesaTransaction, error)
}

type transactionRepo struct {
	db *sql.DB
}

func NewTransactionRepo(db *sql.DB) TransactionRepo {
	return &transactionRepo{db: db}
}

func (r *transactionRepo) Create(ctx context.Context, t *domain.MpesaTransaction) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO mpesa_transactions (id, order_id, checkout_request_id, phone,
			amount, status, receipt, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`,
		t.ID, t.OrderID, t.CheckoutRequestID, t.Phone, t.Amount, t.Status,
		t.Receipt, t.CreatedAt, t.UpdatedAt,
	)
	return err
}

func (r *transactionRepo) FindByCheckoutRequestID(ctx context.Context, checkoutRequestID string) (*domain.MpesaTransaction, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT id, order_id, checkout_request_id, phone, amount, status, receipt,
			created_at, updated_at
		 FROM mpesa_transactions WHERE checkout_request_id = $1`, checkoutRequestID)

	var t domain.MpesaTransaction
	err := row.Scan(&t.ID, &t.OrderID, &t.CheckoutRequestID, &t.Phone, &t.Amount,
		&t.Status, &t.Receipt, &t.CreatedAt, &t.UpdatedAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &t, nil
}

func (r *transactionRepo) UpdateStatus(ctx context.Context, checkoutRequestID string, status domain.PaymentStatus, receipt string) error {
	_, err := r.db.ExecContext(ctx,
		`UPDATE mpesa_transactions
		 SET status = $2,
		     receipt = CASE WHEN $3 <> '' THEN $3 ELSE receipt END,
		     updated_at = now()
		 WHERE checkout_request_id = $1 AND status = $4`,
		checkoutRequestID, status, receipt, domain.PaymentPending)
	return err
}

func (r *transactionRepo) FindPendingBefore(ctx context.Context, before time.Time, limit int) ([]domain.MpesaTransaction, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT id, order_id, checkout_request_id, phone, amount, status, receipt,
			created_at, updated_at
		 FROM mpesa_transactions
		 WHERE status = $1 AND created_at < $2
		 ORDER BY created_at
		 LIMIT $3`,
		domain.PaymentPending, before, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var txns []domain.MpesaTransaction
	for rows.Next() {
		var t domain.MpesaTransaction
		if err := rows.Scan(&t.ID, &t.OrderID, &t.CheckoutRequestID, &t.Phone,
			&t.Amount, &t.Status, &t.Receipt, &t.CreatedAt, &t.UpdatedAt); err != nil {
			return nil, err
		}
		txns = append(txns, t)
	}
	return txns, rows.Err()
}
