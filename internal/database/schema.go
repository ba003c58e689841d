package database

import (
	"context"
	"database/sql"
	"fmt"
)

// schema is applied at startup; every statement is idempotent.
var schema = []string{
	`CREATE TABLE IF NOT EXISTS cafeterias (
		id UUID PRIMARY KEY,
		name TEXT NOT NULL,
		invoice_prefix TEXT NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS users (
		id UUID PRIMARY KEY,
		name TEXT NOT NULL,
		email TEXT NOT NULL DEFAULT '',
		phone TEXT NOT NULL DEFAULT '',
		address TEXT NOT NULL DEFAULT ''
	)`,
	`CREATE TABLE IF NOT EXISTS menu_items (
		id UUID PRIMARY KEY,
		cafeteria_id UUID NOT NULL,
		name TEXT NOT NULL,
		price NUMERIC(12,2) NOT NULL,
		available BOOLEAN NOT NULL DEFAULT TRUE
	)`,
	`CREATE TABLE IF NOT EXISTS orders (
		id UUID PRIMARY KEY,
		user_id UUID NOT NULL,
		cafeteria_id UUID NOT NULL,
		total NUMERIC(12,2) NOT NULL,
		status TEXT NOT NULL,
		payment_status TEXT NOT NULL,
		payment_method TEXT NOT NULL,
		payment_intent_id TEXT NOT NULL DEFAULT '',
		checkout_request_id TEXT NOT NULL DEFAULT '',
		mpesa_receipt TEXT NOT NULL DEFAULT '',
		version BIGINT NOT NULL DEFAULT 0,
		created_at TIMESTAMPTZ NOT NULL,
		updated_at TIMESTAMPTZ NOT NULL
	)`,
	`CREATE INDEX IF NOT EXISTS idx_orders_checkout_request
		ON orders (checkout_request_id) WHERE checkout_request_id <> ''`,
	`CREATE TABLE IF NOT EXISTS order_items (
		order_id UUID NOT NULL REFERENCES orders(id),
		menu_item_id UUID NOT NULL,
		name TEXT NOT NULL,
		quantity INT NOT NULL CHECK (quantity > 0),
		unit_price NUMERIC(12,2) NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS invoices (
		id UUID PRIMARY KEY,
		order_id UUID NOT NULL UNIQUE,
		cafeteria_id UUID NOT NULL,
		number TEXT NOT NULL UNIQUE,
		client_name TEXT NOT NULL,
		client_email TEXT NOT NULL DEFAULT '',
		client_phone TEXT NOT NULL DEFAULT '',
		client_address TEXT NOT NULL DEFAULT '',
		items JSONB NOT NULL,
		subtotal NUMERIC(12,2) NOT NULL,
		tax_rate NUMERIC(5,2) NOT NULL DEFAULT 0,
		tax_amount NUMERIC(12,2) NOT NULL DEFAULT 0,
		discount NUMERIC(12,2) NOT NULL DEFAULT 0,
		total NUMERIC(12,2) NOT NULL,
		status TEXT NOT NULL,
		due_date TIMESTAMPTZ NOT NULL,
		notes TEXT NOT NULL DEFAULT '',
		created_by UUID NOT NULL,
		created_at TIMESTAMPTZ NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS invoice_counters (
		cafeteria_id UUID NOT NULL,
		year INT NOT NULL,
		last_seq BIGINT NOT NULL DEFAULT 0,
		PRIMARY KEY (cafeteria_id, year)
	)`,
	`CREATE TABLE IF NOT EXISTS mpesa_transactions (
		id UUID PRIMARY KEY,
		order_id UUID NOT NULL,
		checkout_request_id TEXT NOT NULL,
		phone TEXT NOT NULL,
		amount NUMERIC(12,2) NOT NULL,
		status TEXT NOT NULL,
		receipt TEXT NOT NULL DEFAULT '',
		created_at TIMESTAMPTZ NOT NULL,
		updated_at TIMESTAMPTZ NOT NULL
	)`,
	`CREATE INDEX IF NOT EXISTS idx_mpesa_checkout_request
		ON mpesa_transactions (checkout_request_id)`,
}

// Migrate applies the schema.
func Migrate(ctx context.Context, db *sql.DB) error {
	for _, stmt := range schema {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("apply schema: %w", err)
		}
	}
	return nil
}
