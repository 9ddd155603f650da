// Package retry decora un CollectionStore con reintentos de backoff lineal ante fallos transitorios.
package retry

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/cenkalti/backoff/v4"

	"github.com/jhoicas/portfolio-status-api/internal/domain"
	"github.com/jhoicas/portfolio-status-api/internal/domain/repository"
	"github.com/jhoicas/portfolio-status-api/pkg/logger"
)

// Policy configura los reintentos. Attempts es el número de reintentos tras el primer intento.
type Policy struct {
	Attempts int
	Delay    time.Duration
}

// Store aplica Policy a Load y Commit del store interno.
type Store struct {
	inner  repository.CollectionStore
	policy Policy
	log    *logger.Logger
}

var _ repository.CollectionStore = (*Store)(nil)

// NewStore crea el decorador. log puede ser nil.
func NewStore(inner repository.CollectionStore, policy Policy, log *logger.Logger) *Store {
	if policy.Attempts < 0 {
		policy.Attempts = 0
	}
	if log == nil {
		log = logger.Nop()
	}
	return &Store{inner: inner, policy: policy, log: log.Component("store_retry")}
}

func (s *Store) Load(ctx context.Context, keys ...string) (map[string]repository.Snapshot, error) {
	return do(ctx, s, "load", func() (map[string]repository.Snapshot, error) {
		return s.inner.Load(ctx, keys...)
	})
}

func (s *Store) Commit(ctx context.Context, writes ...repository.Write) (map[string]int64, error) {
	return do(ctx, s, "commit", func() (map[string]int64, error) {
		return s.inner.Commit(ctx, writes...)
	})
}

func (s *Store) Close() error { return s.inner.Close() }

func do[T any](ctx context.Context, s *Store, op string, fn func() (T, error)) (T, error) {
	attempt := 0
	operation := func() (T, error) {
		attempt++
		res, err := fn()
		if err != nil && !retryable(err) {
			return res, backoff.Permanent(err)
		}
		return res, err
	}
	notify := func(err error, wait time.Duration) {
		s.log.Warn().Err(err).Str("op", op).Int("attempt", attempt).Dur("wait", wait).Msg("fallo transitorio del store, reintentando")
	}

	b := backoff.WithContext(backoff.WithMaxRetries(&linear{step: s.policy.Delay}, uint64(s.policy.Attempts)), ctx)
	res, err := backoff.RetryNotifyWithData(operation, b, notify)
	if err == nil {
		return res, nil
	}
	if !retryable(err) {
		return res, err
	}
	s.log.Error().Err(err).Str("op", op).Int("attempts", attempt).Msg("store no disponible tras reintentos")
	return res, fmt.Errorf("%w: %s tras %d intentos: %v", domain.ErrStoreUnavailable, op, attempt, err)
}

// retryable: conflictos y cancelaciones se devuelven sin reintentar.
func retryable(err error) bool {
	switch {
	case errors.Is(err, domain.ErrConflict),
		errors.Is(err, domain.ErrInvalidInput),
		errors.Is(err, context.Canceled),
		errors.Is(err, context.DeadlineExceeded):
		return false
	}
	return true
}

// linear espera step, 2*step, 3*step...
type linear struct {
	step time.Duration
	n    int64
}

func (l *linear) NextBackOff() time.Duration {
	l.n++
	return time.Duration(l.n) * l.step
}

func (l *linear) Reset() { l.n = 0 }
