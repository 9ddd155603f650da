// Package catalog contiene el CRUD validado de países, procedimientos, tipos de producto,
// productos y estados. Cada mutación es un leer-modificar-escribir optimista que invalida la vista.
package catalog

import (
	"context"

	"github.com/google/uuid"

	"github.com/jhoicas/portfolio-status-api/internal/application/collection"
	"github.com/jhoicas/portfolio-status-api/internal/application/portfolio"
	"github.com/jhoicas/portfolio-status-api/pkg/logger"
)

// ViewMaintainer parte del servicio de portafolio que el catálogo necesita.
type ViewMaintainer interface {
	Runner() *collection.Runner
	Invalidate(ctx context.Context, reason string, keys ...string)
	RebuildPortfolioStatusView(ctx context.Context) (portfolio.RebuildResult, error)
}

// Service casos de uso del catálogo.
type Service struct {
	view  ViewMaintainer
	log   *logger.Logger
	newID func() string
}

// NewService construye el caso de uso. log puede ser nil.
func NewService(view ViewMaintainer, log *logger.Logger) *Service {
	if log == nil {
		log = logger.Nop()
	}
	return &Service{view: view, log: log.Component("catalog"), newID: uuid.NewString}
}

// mutate ejecuta fn sobre keys y, si hubo escritura, invalida la vista.
func (s *Service) mutate(ctx context.Context, op string, keys []string, fn func(*collection.Set) error) error {
	_, versions, err := s.view.Runner().Mutate(ctx, op, keys, fn)
	if err != nil {
		return err
	}
	if len(versions) > 0 {
		s.view.Invalidate(ctx, op, keys...)
	}
	return nil
}

func list[T any](ctx context.Context, s *Service, key string) ([]T, error) {
	set, err := s.view.Runner().Load(ctx, key)
	if err != nil {
		return nil, err
	}
	return collection.Get[T](set, key), nil
}

// saveAndRebuild reemplaza una colección completa y reconstruye la vista.
func (s *Service) saveAndRebuild(ctx context.Context, op string, keys []string, fn func(*collection.Set) error) (portfolio.RebuildResult, error) {
	if err := s.mutate(ctx, op, keys, fn); err != nil {
		return portfolio.RebuildResult{}, err
	}
	res, err := s.view.RebuildPortfolioStatusView(ctx)
	if err != nil {
		// La colección ya quedó guardada; la vista queda obsoleta y se recalcula en la próxima lectura.
		s.log.Warn().Err(err).Str("op", op).Msg("guardado sin reconstrucción de vista")
		return portfolio.RebuildResult{}, err
	}
	return res, nil
}
