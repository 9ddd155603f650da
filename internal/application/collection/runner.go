package collection

import (
	"context"
	"errors"
	"fmt"

	"github.com/jhoicas/portfolio-status-api/internal/domain"
	"github.com/jhoicas/portfolio-status-api/internal/domain/repository"
	"github.com/jhoicas/portfolio-status-api/pkg/logger"
)

// Runner ejecuta leer-modificar-escribir optimista sobre el store.
type Runner struct {
	store      repository.CollectionStore
	attempts   int
	log        *logger.Logger
	onConflict func(op string)
}

// NewRunner attempts es el máximo de intentos completos ante ErrConflict (mínimo 1).
func NewRunner(store repository.CollectionStore, attempts int, log *logger.Logger) *Runner {
	if attempts < 1 {
		attempts = 1
	}
	if log == nil {
		log = logger.Nop()
	}
	return &Runner{store: store, attempts: attempts, log: log}
}

// OnConflict registra un callback por cada conflicto que provoca un reintento.
func (r *Runner) OnConflict(fn func(op string)) { r.onConflict = fn }

// Store devuelve el store subyacente.
func (r *Runner) Store() repository.CollectionStore { return r.store }

// Log devuelve el logger del runner.
func (r *Runner) Log() *logger.Logger { return r.log }

// Load lee keys en una instantánea.
func (r *Runner) Load(ctx context.Context, keys ...string) (*Set, error) {
	return Load(ctx, r.store, r.log, keys...)
}

// Mutate lee keys, aplica fn y confirma sus escrituras de forma atómica.
// Ante ErrConflict repite el ciclo completo desde una lectura nueva. Si fn no deja escrituras
// con payload no se confirma nada. Devuelve el Set del intento confirmado y las versiones nuevas.
func (r *Runner) Mutate(ctx context.Context, op string, keys []string, fn func(*Set) error) (*Set, map[string]int64, error) {
	var lastErr error
	for attempt := 1; attempt <= r.attempts; attempt++ {
		set, err := r.Load(ctx, keys...)
		if err != nil {
			return nil, nil, fmt.Errorf("%s: %w", op, err)
		}
		if err := fn(set); err != nil {
			return set, nil, err
		}
		if !set.Dirty() {
			return set, map[string]int64{}, nil
		}
		versions, err := r.store.Commit(ctx, set.Writes()...)
		if err == nil {
			return set, versions, nil
		}
		if !errors.Is(err, domain.ErrConflict) {
			return set, nil, fmt.Errorf("%s: %w", op, err)
		}
		lastErr = err
		r.log.Debug().Str("op", op).Int("attempt", attempt).Msg("conflicto de versión, reintentando")
		if r.onConflict != nil && attempt < r.attempts {
			r.onConflict(op)
		}
	}
	r.log.Warn().Str("op", op).Int("attempts", r.attempts).Msg("conflictos persistentes, se abandona")
	return nil, nil, fmt.Errorf("%s: %w", op, lastErr)
}
