package database

import (
	"context"
	"database/sql"

	"github.com/sampoorna-feeds/PLM-webApplication-Frontend-sub001/internal/database/repository"
)

var sampleCustomers = []repository.Customer{
	{No: "C0001", Name: "Sampoorna Agro Traders", City: "Pune"},
	{No: "C0002", Name: "Green Valley Poultry", City: "Nashik"},
	{No: "C0003", Name: "Shree Dairy Farms", City: "Kolhapur"},
}

var sampleShipTos = []repository.ShipTo{
	{CustomerNo: "C0001", Code: "MAIN", Name: "Head Office", Address: "Market Yard", City: "Pune"},
	{CustomerNo: "C0002", Code: "FARM1", Name: "Farm 1", Address: "Igatpuri Road", City: "Nashik"},
}

var sampleItems = []repository.Item{
	{No: "FD-1001", Description: "Broiler Starter Feed 50kg", UnitPriceCents: 185000, UOM: "BAG"},
	{No: "FD-1002", Description: "Broiler Finisher Feed 50kg", UnitPriceCents: 172000, UOM: "BAG"},
	{No: "FD-2001", Description: "Layer Mash 50kg", UnitPriceCents: 158000, UOM: "BAG"},
	{No: "FD-3001", Description: "Cattle Feed Pellets 25kg", UnitPriceCents: 98000, UOM: "BAG"},
	{No: "SP-0001", Description: "Mineral Mixture 1kg", UnitPriceCents: 12000, UOM: "PCS"},
}

// SeedDefaults loads sample customers and items into an empty database.
// It is idempotent and safe to run on every startup.
func SeedDefaults(ctx context.Context, db *sql.DB) error {
	existing, err := repository.NewCustomerRepo(db).List(ctx)
	if err == nil && len(existing) > 0 {
		return nil
	}
	return WithTx(ctx, db, func(tx *sql.Tx) error {
		customers := repository.NewCustomerRepo(tx)
		for _, c := range sampleCustomers {
			if err := customers.Upsert(ctx, c); err != nil {
				return err
			}
		}
		for _, s := range sampleShipTos {
			if err := customers.UpsertShipTo(ctx, s); err != nil {
				return err
			}
		}
		items := repository.NewItemRepo(tx)
		for _, it := range sampleItems {
			if err := items.Upsert(ctx, it); err != nil {
				return err
			}
		}
		return nil
	})
}
