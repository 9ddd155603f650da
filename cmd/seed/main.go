// seed carga el catálogo del portafolio desde CSV y ejecuta las migraciones de arranque
// contra el store configurado (STORE_DRIVER, DATABASE_URL, SQLITE_PATH...).
//
// Uso:
//
//	go run ./cmd/seed import --dir ./data [--encoding windows-1252] [--dry-run]
//	go run ./cmd/seed migrate
//	go run ./cmd/seed rebuild
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/jhoicas/portfolio-status-api/internal/application/catalog"
	"github.com/jhoicas/portfolio-status-api/internal/application/portfolio"
	"github.com/jhoicas/portfolio-status-api/internal/infrastructure/store"
	"github.com/jhoicas/portfolio-status-api/pkg/config"
	"github.com/jhoicas/portfolio-status-api/pkg/logger"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	if err := newRootCmd().ExecuteContext(ctx); err != nil {
		stop()
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "seed",
		Short:         "Carga y mantenimiento del catálogo del portafolio",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.AddCommand(newImportCmd(), newMigrateCmd(), newRebuildCmd())
	return root
}

// app servicios sobre el store configurado.
type app struct {
	log       *logger.Logger
	portfolio *portfolio.Service
	catalog   *catalog.Service
	close     func() error
}

func openApp(ctx context.Context) (*app, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("cargar configuración: %w", err)
	}
	log := logger.New(logger.Config{Env: cfg.App.Env, Level: cfg.App.LogLevel, Service: "seed"})
	s, err := store.Open(ctx, cfg, log.Component("store"))
	if err != nil {
		return nil, err
	}
	svc := portfolio.NewService(s,
		portfolio.WithLogger(log),
		portfolio.WithCacheTTL(0),
		portfolio.WithConflictRetries(cfg.Store.ConflictRetries),
	)
	return &app{log: log, portfolio: svc, catalog: catalog.NewService(svc, log), close: s.Close}, nil
}

func newMigrateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Asegura los estados None y Ready to be Ordered",
		RunE: func(cmd *cobra.Command, _ []string) error {
			a, err := openApp(cmd.Context())
			if err != nil {
				return err
			}
			defer a.close()
			if err := a.portfolio.Migrate(cmd.Context()); err != nil {
				return fmt.Errorf("migrar: %w", err)
			}
			a.log.Info().Msg("migraciones aplicadas")
			return nil
		},
	}
}

func newRebuildCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "rebuild",
		Short: "Reconstruye la vista de estados desde las colecciones fuente",
		RunE: func(cmd *cobra.Command, _ []string) error {
			a, err := openApp(cmd.Context())
			if err != nil {
				return err
			}
			defer a.close()
			res, err := a.portfolio.RebuildPortfolioStatusView(cmd.Context())
			if err != nil {
				return fmt.Errorf("reconstruir vista: %w", err)
			}
			a.log.Info().Int("rows", len(res.Rows)).Int("skipped", len(res.Skipped)).Msg("vista reconstruida")
			return nil
		},
	}
}
