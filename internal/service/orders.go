package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"math"
	"strings"

	"github.com/google/uuid"
	"pkt.systems/pslog"

	"github.com/sampoorna-feeds/PLM-webApplication-Frontend-sub001/internal/database"
	"github.com/sampoorna-feeds/PLM-webApplication-Frontend-sub001/internal/database/repository"
	"github.com/sampoorna-feeds/PLM-webApplication-Frontend-sub001/internal/logx"
)

var (
	ErrUnknownCustomer = errors.New("order: unknown customer")
	ErrNoLines         = errors.New("order: no lines")
	ErrInvalidLine     = errors.New("order: invalid line")
	ErrInvalidShipTo   = errors.New("order: invalid ship-to")
)

// LineDraft is an order line as entered in the form.
type LineDraft struct {
	ItemNo      string
	Description string
	Quantity    float64
	UnitPrice   float64
}

// OrderDraft is a sales order ready to submit.
type OrderDraft struct {
	CustomerNo string
	ShipToCode string
	Lines      []LineDraft
}

// OrderService submits orders and maintains customer addresses.
type OrderService struct {
	DB  *sql.DB
	Log pslog.Logger
}

// Customers lists all customers.
func (s *OrderService) Customers(ctx context.Context) ([]repository.Customer, error) {
	return repository.NewCustomerRepo(s.DB).List(ctx)
}

// ShipTos lists a customer's delivery addresses.
func (s *OrderService) ShipTos(ctx context.Context, customerNo string) ([]repository.ShipTo, error) {
	return repository.NewCustomerRepo(s.DB).ShipTos(ctx, customerNo)
}

// AddShipTo creates or updates a delivery address.
func (s *OrderService) AddShipTo(ctx context.Context, st repository.ShipTo) error {
	st.Code = strings.ToUpper(strings.TrimSpace(st.Code))
	st.Name = strings.TrimSpace(st.Name)
	if st.Code == "" || st.Name == "" {
		return fmt.Errorf("%w: code and name are required", ErrInvalidShipTo)
	}
	customers := repository.NewCustomerRepo(s.DB)
	if _, err := customers.Get(ctx, st.CustomerNo); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return fmt.Errorf("%w: %s", ErrUnknownCustomer, st.CustomerNo)
		}
		return err
	}
	if err := customers.UpsertShipTo(ctx, st); err != nil {
		return fmt.Errorf("save ship-to: %w", err)
	}
	s.logger(ctx).Info("ship-to saved", "customer", st.CustomerNo, "code", st.Code)
	return nil
}

// Submit validates the draft and writes the order with its lines in one transaction.
func (s *OrderService) Submit(ctx context.Context, d OrderDraft) (repository.SalesOrder, error) {
	if len(d.Lines) == 0 {
		return repository.SalesOrder{}, ErrNoLines
	}
	order := repository.SalesOrder{
		ID:         uuid.NewString(),
		CustomerNo: d.CustomerNo,
		OrderDate:  database.Now(),
		Status:     "open",
	}
	if code := strings.TrimSpace(d.ShipToCode); code != "" {
		order.ShipToCode = &code
	}
	for i, l := range d.Lines {
		if strings.TrimSpace(l.ItemNo) == "" || l.Quantity <= 0 || l.UnitPrice < 0 {
			return repository.SalesOrder{}, fmt.Errorf("%w: line %d", ErrInvalidLine, i+1)
		}
		price := toCents(l.UnitPrice)
		order.Lines = append(order.Lines, repository.SalesLine{
			OrderID:        order.ID,
			LineNo:         (i + 1) * 10000,
			ItemNo:         l.ItemNo,
			Description:    l.Description,
			Quantity:       l.Quantity,
			UnitPriceCents: price,
			AmountCents:    int64(math.Round(l.Quantity * float64(price))),
		})
	}

	err := database.WithTx(ctx, s.DB, func(tx *sql.Tx) error {
		if _, err := repository.NewCustomerRepo(tx).Get(ctx, d.CustomerNo); err != nil {
			if errors.Is(err, repository.ErrNotFound) {
				return fmt.Errorf("%w: %s", ErrUnknownCustomer, d.CustomerNo)
			}
			return err
		}
		orders := repository.NewOrderRepo(tx)
		no, err := orders.NextNo(ctx)
		if err != nil {
			return err
		}
		order.No = no
		return orders.Insert(ctx, order)
	})
	if err != nil {
		return repository.SalesOrder{}, err
	}
	s.logger(ctx).Info("sales order submitted", "order", order.No, "customer", order.CustomerNo, "lines", len(order.Lines), "total_cents", order.TotalCents())
	return order, nil
}

// logger prefers the configured logger and falls back to the one on ctx.
func (s *OrderService) logger(ctx context.Context) pslog.Logger {
	log := s.Log
	if log == nil {
		log = logx.Ctx(ctx)
	}
	return logx.WithTab(log, logx.TabFromContext(ctx), "")
}

func toCents(v float64) int64 {
	return int64(math.Round(v * 100))
}
