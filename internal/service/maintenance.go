package service

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/sampoorna-feeds/PLM-webApplication-Frontend-sub001/internal/database"
)

// MaintenanceService houses destructive/ops actions surfaced through the CLI.
type MaintenanceService struct {
	DB *sql.DB
	// Search is invalidated after a reset so dropdowns do not show wiped items.
	Search *ItemSearch
}

// Reset wipes all ERP data. It keeps the schema intact so the app can continue running.
func (s *MaintenanceService) Reset(ctx context.Context) error {
	if s.DB == nil {
		return fmt.Errorf("maintenance: db not configured")
	}
	if err := database.WithTx(ctx, s.DB, func(tx *sql.Tx) error {
		tables := []string{
			"sales_lines",
			"sales_orders",
			"ship_to",
			"items",
			"customers",
		}
		for _, t := range tables {
			if _, err := tx.ExecContext(ctx, "DELETE FROM "+t); err != nil {
				return fmt.Errorf("reset table %s: %w", t, err)
			}
		}
		return nil
	}); err != nil {
		return err
	}
	if s.Search != nil {
		s.Search.Invalidate()
	}
	_, _ = s.DB.ExecContext(ctx, "VACUUM")
	return nil
}
