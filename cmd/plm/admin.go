package main

import (
	"fmt"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"
	"pkt.systems/pslog"

	"github.com/sampoorna-feeds/PLM-webApplication-Frontend-sub001/internal/config"
	"github.com/sampoorna-feeds/PLM-webApplication-Frontend-sub001/internal/database"
	"github.com/sampoorna-feeds/PLM-webApplication-Frontend-sub001/internal/database/repository"
	"github.com/sampoorna-feeds/PLM-webApplication-Frontend-sub001/internal/forms"
	"github.com/sampoorna-feeds/PLM-webApplication-Frontend-sub001/internal/formstack"
	"github.com/sampoorna-feeds/PLM-webApplication-Frontend-sub001/internal/service"
)

func newMigrateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Apply database migrations",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load()
			if err != nil {
				return fmt.Errorf("config: %w", err)
			}
			log := pslog.Ctx(cmd.Context())
			if err := database.RunMigrations(cfg.Database.Path, log); err != nil {
				return fmt.Errorf("migrate: %w", err)
			}
			version, dirty, err := database.Version(cfg.Database.Path)
			if err != nil {
				return err
			}
			_, err = fmt.Fprintf(cmd.OutOrStdout(), "schema version %d (dirty=%t) at %s\n", version, dirty, cfg.Database.Path)
			return err
		},
	}
}

func newSeedCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "seed",
		Short: "Load the sample customers and items",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load()
			if err != nil {
				return fmt.Errorf("config: %w", err)
			}
			db, err := prepareDB(cmd.Context(), cfg, pslog.Ctx(cmd.Context()), true)
			if err != nil {
				return err
			}
			defer db.Close()
			_, err = fmt.Fprintln(cmd.OutOrStdout(), "seeded", cfg.Database.Path)
			return err
		},
	}
}

func newFormsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "forms",
		Short: "List form types and whether a renderer is registered",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load()
			if err != nil {
				return fmt.Errorf("config: %w", err)
			}
			cat, _, err := loadCatalog(cfg)
			if err != nil {
				return err
			}
			reg := formstack.NewRegistry[forms.Factory](pslog.Ctx(cmd.Context()))
			forms.Register(reg)
			registered := make(map[string]bool)
			for _, t := range reg.Types() {
				registered[t] = true
			}

			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(w, "TYPE\tTITLE\tAUTO-CLOSE\tRULES\tRENDERER")
			for _, f := range cat.Forms {
				renderer := "missing"
				if registered[f.Type] {
					renderer = "ok"
				}
				fmt.Fprintf(w, "%s\t%s\t%t\t%d\t%s\n", f.Type, f.Title, f.AutoCloseOnSuccess, len(f.Rules), renderer)
			}
			return w.Flush()
		},
	}
}

func newResetCmd() *cobra.Command {
	var yes bool
	cmd := &cobra.Command{
		Use:   "reset",
		Short: "Delete all customers, items and orders",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if !yes {
				return fmt.Errorf("reset deletes all data; rerun with --yes")
			}
			cfg, err := config.Load()
			if err != nil {
				return fmt.Errorf("config: %w", err)
			}
			db, err := prepareDB(cmd.Context(), cfg, pslog.Ctx(cmd.Context()), false)
			if err != nil {
				return err
			}
			defer db.Close()
			m := &service.MaintenanceService{DB: db, Search: &service.ItemSearch{Items: repository.NewItemRepo(db)}}
			if err := m.Reset(cmd.Context()); err != nil {
				return err
			}
			_, err = fmt.Fprintln(cmd.OutOrStdout(), strings.TrimSpace("database reset: "+cfg.Database.Path))
			return err
		},
	}
	cmd.Flags().BoolVar(&yes, "yes", false, "confirm the reset")
	return cmd
}
