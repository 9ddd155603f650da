package observability

import (
	"context"
	"errors"
	"strings"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/jhoicas/portfolio-status-api/internal/domain"
	"github.com/jhoicas/portfolio-status-api/internal/domain/repository"
)

const tracerName = "github.com/jhoicas/portfolio-status-api/internal/infrastructure/observability"

// Store decora un CollectionStore con un span por operación y métricas de duración/resultado.
type Store struct {
	inner   repository.CollectionStore
	tracer  trace.Tracer
	metrics *Metrics
}

var _ repository.CollectionStore = (*Store)(nil)

type StoreOption func(*Store)

func WithTracer(tr trace.Tracer) StoreOption {
	return func(s *Store) { s.tracer = tr }
}

// NewStore envuelve inner. metrics puede ser nil.
func NewStore(inner repository.CollectionStore, metrics *Metrics, opts ...StoreOption) *Store {
	s := &Store{inner: inner, metrics: metrics, tracer: otel.Tracer(tracerName)}
	for _, opt := range opts {
		if opt != nil {
			opt(s)
		}
	}
	return s
}

func (s *Store) Load(ctx context.Context, keys ...string) (map[string]repository.Snapshot, error) {
	ctx, span := s.tracer.Start(ctx, "CollectionStore.Load",
		trace.WithAttributes(attribute.StringSlice("store.keys", keys)))
	defer span.End()

	started := time.Now()
	snaps, err := s.inner.Load(ctx, keys...)
	s.finish(span, "load", started, err)
	return snaps, err
}

func (s *Store) Commit(ctx context.Context, writes ...repository.Write) (map[string]int64, error) {
	keys := make([]string, 0, len(writes))
	for _, w := range writes {
		if w.Payload == nil {
			keys = append(keys, w.Key+"?")
			continue
		}
		keys = append(keys, w.Key)
	}
	ctx, span := s.tracer.Start(ctx, "CollectionStore.Commit",
		trace.WithAttributes(attribute.String("store.writes", strings.Join(keys, ","))))
	defer span.End()

	started := time.Now()
	versions, err := s.inner.Commit(ctx, writes...)
	s.finish(span, "commit", started, err)
	return versions, err
}

func (s *Store) Close() error { return s.inner.Close() }

func (s *Store) finish(span trace.Span, op string, started time.Time, err error) {
	if s.metrics != nil {
		s.metrics.observeStore(op, started, err)
	}
	if err == nil {
		span.SetStatus(codes.Ok, "")
		return
	}
	// Un conflicto es parte del protocolo optimista, no un fallo del store.
	if errors.Is(err, domain.ErrConflict) {
		span.SetAttributes(attribute.Bool("store.conflict", true))
		return
	}
	span.RecordError(err)
	span.SetStatus(codes.Error, err.Error())
}
