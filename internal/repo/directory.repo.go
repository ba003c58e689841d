package repo

import (
	"context"
	"database/sql"

	"github.com/google/uuid"

	"campuseats/internal/domain"
)

// MenuRepo is the read-side lookup into the menu store. Menu management itself
// lives elsewhere; the settlement workflow only needs price, availability and
// the owning cafeteria.
type MenuRepo interface {
	FindItem(ctx context.Context, id uuid.UUID) (*domain.MenuItem, error)
}

// DirectoryRepo resolves the user and cafeteria snapshots taken at invoice
// generation time.
type DirectoryRepo interface {
	FindUser(ctx context.Context, id uuid.UUID) (*domain.User, error)
	FindCafeteria(ctx context.Context, id uuid.UUID) (*domain.Cafeteria, error)
}

type menuRepo struct {
	db *sql.DB
}

func NewMenuRepo(db *sql.DB) MenuRepo {
	return &menuRepo{db: db}
}

func (r *menuRepo) FindItem(ctx context.Context, id uuid.UUID) (*domain.MenuItem, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT id, cafeteria_id, name, price, available FROM menu_items WHERE id = $1`, id)

	var m domain.MenuItem
	err := row.Scan(&m.ID, &m.CafeteriaID, &m.Name, &m.Price, &m.Available)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &m, nil
}

type directoryRepo struct {
	db *sql.DB
}

func NewDirectoryRepo(db *sql.DB) DirectoryRepo {
	return &directoryRepo{db: db}
}

func (r *directoryRepo) FindUser(ctx context.Context, id uuid.UUID) (*domain.User, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT id, name, email, phone, address FROM users WHERE id = $1`, id)

	var u domain.User
	err := row.Scan(&u.ID, &u.Name, &u.Email, &u.Phone, &u.Address)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &u, nil
}

func (r *directoryRepo) FindCafeteria(ctx context.Context, id uuid.UUID) (*domain.Cafeteria, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT id, name, invoice_prefix FROM cafeterias WHERE id = $1`, id)

	var c domain.Cafeteria
	err := row.Scan(&c.ID, &c.Name, &c.InvoicePrefix)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &c, nil
}
