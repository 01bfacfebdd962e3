package repository

import (
	"context"
	"database/sql"
	"time"
)

// DBTX is satisfied by *sql.DB and *sql.Tx so repos can run inside a transaction.
type DBTX interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// Customer represents a customer row.
type Customer struct {
	No        string
	Name      string
	City      string
	CreatedAt time.Time
}

// ShipTo is a delivery address belonging to a customer.
type ShipTo struct {
	CustomerNo string
	Code       string
	Name       string
	Address    string
	City       string
}

// Item represents an item master row.
type Item struct {
	No             string
	Description    string
	UnitPriceCents int64
	UOM            string
}

// SalesOrder represents an order header.
type SalesOrder struct {
	ID         string
	No         string
	CustomerNo string
	ShipToCode *string
	OrderDate  time.Time
	Status     string
	CreatedAt  time.Time
	Lines      []SalesLine
}

// SalesLine is one order line.
type SalesLine struct {
	OrderID        string
	LineNo         int
	ItemNo         string
	Description    string
	Quantity       float64
	UnitPriceCents int64
	AmountCents    int64
}

// TotalCents sums the line amounts.
func (o SalesOrder) TotalCents() int64 {
	var total int64
	for _, l := range o.Lines {
		total += l.AmountCents
	}
	return total
}
