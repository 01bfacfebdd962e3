package repository

import (
	"context"
	"database/sql"
	"errors"
)

// ErrNotFound is returned when a lookup matches no row.
var ErrNotFound = errors.New("repository: not found")

// CustomerRepo handles customers and their ship-to addresses.
type CustomerRepo struct {
	db DBTX
}

func NewCustomerRepo(db DBTX) *CustomerRepo { return &CustomerRepo{db: db} }

func (r *CustomerRepo) Upsert(ctx context.Context, c Customer) error {
	_, err := r.db.ExecContext(ctx, `
	INSERT INTO customers(no, name, city, created_at)
	VALUES (?, ?, ?, CURRENT_TIMESTAMP)
	ON CONFLICT(no) DO UPDATE SET
	 name=excluded.name,
	 city=excluded.city;
	`, c.No, c.Name, c.City)
	return err
}

func (r *CustomerRepo) Get(ctx context.Context, no string) (Customer, error) {
	var c Customer
	err := r.db.QueryRowContext(ctx, `SELECT no, name, city, created_at FROM customers WHERE no = ?`, no).
		Scan(&c.No, &c.Name, &c.City, &c.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return Customer{}, ErrNotFound
	}
	return c, err
}

func (r *CustomerRepo) List(ctx context.Context) ([]Customer, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT no, name, city, created_at FROM customers ORDER BY no`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []Customer
	for rows.Next() {
		var c Customer
		if err := rows.Scan(&c.No, &c.Name, &c.City, &c.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

func (r *CustomerRepo) UpsertShipTo(ctx context.Context, s ShipTo) error {
	_, err := r.db.ExecContext(ctx, `
	INSERT INTO ship_to(customer_no, code, name, address, city, created_at)
	VALUES (?, ?, ?, ?, ?, CURRENT_TIMESTAMP)
	ON CONFLICT(customer_no, code) DO UPDATE SET
	 name=excluded.name,
	 address=excluded.address,
	 city=excluded.city;
	`, s.CustomerNo, s.Code, s.Name, s.Address, s.City)
	return err
}

func (r *CustomerRepo) ShipTos(ctx context.Context, customerNo string) ([]ShipTo, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT customer_no, code, name, address, city FROM ship_to WHERE customer_no = ? ORDER BY code`, customerNo)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []ShipTo
	for rows.Next() {
		var s ShipTo
		if err := rows.Scan(&s.CustomerNo, &s.Code, &s.Name, &s.Address, &s.City); err != nil {
			return nil, err
		}
		out = append(out, s)
	}
	return out, rows.Err()
}
