package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
)

// OrderRepo handles sales order headers and lines.
type OrderRepo struct {
	db DBTX
}

func NewOrderRepo(db DBTX) *OrderRepo { return &OrderRepo{db: db} }

// NextNo returns the next order number in the SO/0001 series.
func (r *OrderRepo) NextNo(ctx context.Context) (string, error) {
	var n int
	if err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM sales_orders`).Scan(&n); err != nil {
		return "", err
	}
	return fmt.Sprintf("SO/%04d", n+1), nil
}

// Insert writes the header and all lines. Run it inside a transaction.
func (r *OrderRepo) Insert(ctx context.Context, o SalesOrder) error {
	_, err := r.db.ExecContext(ctx, `
	INSERT INTO sales_orders(id, no, customer_no, ship_to_code, order_date, status, created_at)
	VALUES(?, ?, ?, ?, ?, ?, CURRENT_TIMESTAMP);
	`, o.ID, o.No, o.CustomerNo, o.ShipToCode, o.OrderDate, o.Status)
	if err != nil {
		return fmt.Errorf("insert order: %w", err)
	}
	for _, l := range o.Lines {
		_, err := r.db.ExecContext(ctx, `
		INSERT INTO sales_lines(order_id, line_no, item_no, description, quantity, unit_price_cents, amount_cents)
		VALUES(?, ?, ?, ?, ?, ?, ?);
		`, o.ID, l.LineNo, l.ItemNo, l.Description, l.Quantity, l.UnitPriceCents, l.AmountCents)
		if err != nil {
			return fmt.Errorf("insert line %d: %w", l.LineNo, err)
		}
	}
	return nil
}

func (r *OrderRepo) Get(ctx context.Context, id string) (SalesOrder, error) {
	var o SalesOrder
	err := r.db.QueryRowContext(ctx, `
	SELECT id, no, customer_no, ship_to_code, order_date, status, created_at
	FROM sales_orders WHERE id = ?`, id).
		Scan(&o.ID, &o.No, &o.CustomerNo, &o.ShipToCode, &o.OrderDate, &o.Status, &o.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return SalesOrder{}, ErrNotFound
	}
	if err != nil {
		return SalesOrder{}, err
	}
	rows, err := r.db.QueryContext(ctx, `
	SELECT order_id, line_no, item_no, description, quantity, unit_price_cents, amount_cents
	FROM sales_lines WHERE order_id = ? ORDER BY line_no`, id)
	if err != nil {
		return SalesOrder{}, err
	}
	defer rows.Close()
	for rows.Next() {
		var l SalesLine
		if err := rows.Scan(&l.OrderID, &l.LineNo, &l.ItemNo, &l.Description, &l.Quantity, &l.UnitPriceCents, &l.AmountCents); err != nil {
			return SalesOrder{}, err
		}
		o.Lines = append(o.Lines, l)
	}
	return o, rows.Err()
}

// List returns order headers, newest first.
func (r *OrderRepo) List(ctx context.Context) ([]SalesOrder, error) {
	rows, err := r.db.QueryContext(ctx, `
	SELECT id, no, customer_no, ship_to_code, order_date, status, created_at
	FROM sales_orders ORDER BY no DESC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []SalesOrder
	for rows.Next() {
		var o SalesOrder
		if err := rows.Scan(&o.ID, &o.No, &o.CustomerNo, &o.ShipToCode, &o.OrderDate, &o.Status, &o.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, o)
	}
	return out, rows.Err()
}
