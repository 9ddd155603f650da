// Package store abre el CollectionStore configurado con su política de reintentos.
package store

import (
	"context"
	"fmt"

	"github.com/jhoicas/portfolio-status-api/internal/domain/repository"
	"github.com/jhoicas/portfolio-status-api/internal/infrastructure/memory"
	"github.com/jhoicas/portfolio-status-api/internal/infrastructure/postgres"
	"github.com/jhoicas/portfolio-status-api/internal/infrastructure/retry"
	"github.com/jhoicas/portfolio-status-api/internal/infrastructure/sqlite"
	"github.com/jhoicas/portfolio-status-api/pkg/config"
	"github.com/jhoicas/portfolio-status-api/pkg/logger"
)

// Open crea el backend de STORE_DRIVER y lo envuelve en retry.Store.
// Close del store devuelto libera el backend (pool, archivo).
func Open(ctx context.Context, cfg *config.Config, log *logger.Logger) (repository.CollectionStore, error) {
	var (
		inner repository.CollectionStore
		err   error
	)
	switch cfg.Store.Driver {
	case config.StoreMemory:
		inner = memory.NewCollectionStore()
	case config.StoreSQLite:
		inner, err = sqlite.NewCollectionStore(cfg.Store.SQLitePath)
	case config.StorePostgres:
		pool, perr := postgres.NewPool(ctx, cfg.DB)
		if perr != nil {
			return nil, fmt.Errorf("conexión a PostgreSQL: %w", perr)
		}
		inner, err = postgres.NewCollectionStore(ctx, pool)
		if err != nil {
			pool.Close()
		}
	default:
		return nil, fmt.Errorf("store: driver desconocido %q", cfg.Store.Driver)
	}
	if err != nil {
		return nil, fmt.Errorf("abrir store %s: %w", cfg.Store.Driver, err)
	}
	log.Info().Str("driver", cfg.Store.Driver).Int("retry_attempts", cfg.Store.RetryAttempts).
		Dur("retry_delay", cfg.Store.RetryDelay).Msg("store de colecciones listo")
	return retry.NewStore(inner, retry.Policy{Attempts: cfg.Store.RetryAttempts, Delay: cfg.Store.RetryDelay}, log), nil
}
