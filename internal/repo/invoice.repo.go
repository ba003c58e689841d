package repo

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"

	"campuseats/internal/domain"
)

type InvoiceRepo interface {
	// Create assigns the next per-(cafeteria, year) invoice number and inserts
	// the invoice in one transaction. A second invoice for the same order trips
	// the unique order_id constraint and returns domain.ErrInvoiceExists.
	Create(ctx context.Context, inv *domain.Invoice, prefix string, year int) error
	ExistsForOrder(ctx context.Context, orderID uuid.UUID) (bool, error)
	FindByOrder(ctx context.Context, orderID uuid.UUID) (*domain.Invoice, error)
}

type invoiceRepo struct {
	db *sql.DB
}

func NewInvoiceRepo(db *sql.DB) InvoiceRepo {
	return &invoiceRepo{db: db}
}

func (r *invoiceRepo) Create(ctx context.Context, inv *domain.Invoice, prefix string, year int) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	// Counter row is locked by the upsert until commit, so two concurrent
	// generations cannot draw the same sequence number.
	var seq int64
	err = tx.QueryRowContext(ctx,
		`INSERT INTO invoice_counters (cafeteria_id, year, last_seq)
		 VALUES ($1, $2, 1)
		 ON CONFLICT (cafeteria_id, year)
		 DO UPDATE SET last_seq = invoice_counters.last_seq + 1
		 RETURNING last_seq`,
		inv.CafeteriaID, year).Scan(&seq)
	if err != nil {
		return err
	}
	inv.Number = fmt.Sprintf("%s-%d-%04d", prefix, year, seq)

	itemsJSON, err := json.Marshal(inv.Items)
	if err != nil {
		return err
	}

	_, err = tx.ExecContext(ctx,
		`INSERT INTO invoices (id, order_id, cafeteria_id, number, client_name,
			client_email, client_phone, client_address, items, subtotal, tax_rate,
			tax_amount, discount, total, status, due_date, notes, created_by, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18, $19)`,
		inv.ID, inv.OrderID, inv.CafeteriaID, inv.Number, inv.ClientName,
		inv.ClientEmail, inv.ClientPhone, inv.ClientAddr, itemsJSON, inv.Subtotal,
		inv.TaxRate, inv.TaxAmount, inv.Discount, inv.Total, inv.Status,
		inv.DueDate, inv.Notes, inv.CreatedBy, inv.CreatedAt,
	)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return domain.ErrInvoiceExists
		}
		return err
	}

	return tx.Commit()
}

func (r *invoiceRepo) ExistsForOrder(ctx context.Context, orderID uuid.UUID) (bool, error) {
	var exists bool
	err := r.db.QueryRowContext(ctx,
		`SELECT EXISTS (SELECT 1 FROM invoices WHERE order_id = $1)`, orderID).Scan(&exists)
	return exists, err
}

func (r *invoiceRepo) FindByOrder(ctx context.Context, orderID uuid.UUID) (*domain.Invoice, error) {
	var inv domain.Invoice
	var itemsJSON []byte
	err := r.db.QueryRowContext(ctx,
		`SELECT id, order_id, cafeteria_id, number, client_name, client_email,
			client_phone, client_address, items, subtotal, tax_rate, tax_amount,
			discount, total, status, due_date, notes, created_by, created_at
		 FROM invoices WHERE order_id = $1`, orderID).Scan(
		&inv.ID, &inv.OrderID, &inv.CafeteriaID, &inv.Number, &inv.ClientName,
		&inv.ClientEmail, &inv.ClientPhone, &inv.ClientAddr, &itemsJSON,
		&inv.Subtotal, &inv.TaxRate, &inv.TaxAmount, &inv.Discount, &inv.Total,
		&inv.Status, &inv.DueDate, &inv.Notes, &inv.CreatedBy, &inv.CreatedAt,
	)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	if err := json.Unmarshal(itemsJSON, &inv.Items); err != nil {
		return nil, err
	}
	return &inv, nil
}
