package main

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"
	"pkt.systems/pslog"

	"github.com/sampoorna-feeds/PLM-webApplication-Frontend-sub001/internal/catalog"
	"github.com/sampoorna-feeds/PLM-webApplication-Frontend-sub001/internal/config"
	"github.com/sampoorna-feeds/PLM-webApplication-Frontend-sub001/internal/database"
	"github.com/sampoorna-feeds/PLM-webApplication-Frontend-sub001/internal/database/repository"
	"github.com/sampoorna-feeds/PLM-webApplication-Frontend-sub001/internal/forms"
	"github.com/sampoorna-feeds/PLM-webApplication-Frontend-sub001/internal/formstack"
	"github.com/sampoorna-feeds/PLM-webApplication-Frontend-sub001/internal/logx"
	"github.com/sampoorna-feeds/PLM-webApplication-Frontend-sub001/internal/service"
	"github.com/sampoorna-feeds/PLM-webApplication-Frontend-sub001/internal/tui"
)

func newRunCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "run",
		Short: "Open the order entry terminal UI",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runUI(cmd.Context())
		},
	}
}

func runUI(ctx context.Context) error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("config: %w", err)
	}

	// the terminal belongs to bubbletea, so logs go to a file
	if err := os.MkdirAll(filepath.Dir(cfg.Log.Path), 0o755); err != nil {
		return fmt.Errorf("mkdir log dir: %w", err)
	}
	logFile, err := os.OpenFile(cfg.Log.Path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		return fmt.Errorf("open log: %w", err)
	}
	defer logFile.Close()
	log := logx.New(logFile, cfg.Log.Level, true)
	ctx = pslog.ContextWithLogger(ctx, log)

	db, err := prepareDB(ctx, cfg, log, true)
	if err != nil {
		return err
	}
	defer db.Close()

	cat, validator, err := loadCatalog(cfg)
	if err != nil {
		return err
	}

	items := &service.ItemSearch{
		Items: repository.NewItemRepo(db),
		Cache: formstack.NewSearchCache[[]repository.Item](cfg.Cache.SearchEntries),
	}
	orders := &service.OrderService{DB: db, Log: log}

	ctl := formstack.NewController(formstack.NewStore(),
		formstack.WithLogger(log),
		formstack.WithConfirmUnsavedClose(cfg.UI.ConfirmUnsavedClose),
	)
	if cfg.UI.StartCollapsed {
		ctl.Store().SetCollapsed(true)
	}
	reg := formstack.NewRegistry[forms.Factory](log)
	forms.Register(reg)

	app := tui.New(ctx, tui.Options{
		Controller: ctl,
		Registry:   reg,
		Log:        log,
		Deps: forms.Deps{
			Orders:    orders,
			Items:     items,
			Catalog:   cat,
			Validator: validator,
			Currency:  cfg.UI.CurrencySymbol,
		},
	})
	defer app.Close()

	log.Info("plm ui starting", "db", cfg.Database.Path, "forms", len(cat.Forms))
	_, err = tea.NewProgram(app, tea.WithAltScreen(), tea.WithContext(ctx)).Run()
	if errors.Is(err, tea.ErrProgramKilled) && ctx.Err() != nil {
		return nil
	}
	return err
}

// prepareDB migrates, opens and optionally seeds the database.
func prepareDB(ctx context.Context, cfg config.Config, log pslog.Logger, seed bool) (*sql.DB, error) {
	if err := database.RunMigrations(cfg.Database.Path, log); err != nil {
		return nil, fmt.Errorf("migrate: %w", err)
	}
	db, err := database.Open(cfg.Database.Path)
	if err != nil {
		return nil, fmt.Errorf("open db: %w", err)
	}
	if seed {
		if err := database.SeedDefaults(ctx, db); err != nil {
			db.Close()
			return nil, fmt.Errorf("seed defaults: %w", err)
		}
	}
	return db, nil
}

func loadCatalog(cfg config.Config) (*catalog.Catalog, *catalog.Validator, error) {
	var (
		cat *catalog.Catalog
		err error
	)
	if cfg.Forms.Catalog != "" {
		cat, err = catalog.LoadFile(cfg.Forms.Catalog)
	} else {
		cat, err = catalog.Default()
	}
	if err != nil {
		return nil, nil, fmt.Errorf("form catalog: %w", err)
	}
	validator := catalog.NewValidator(cat)
	if err := validator.Check(); err != nil {
		return nil, nil, fmt.Errorf("form catalog: %w", err)
	}
	return cat, validator, nil
}
