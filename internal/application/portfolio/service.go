// Package portfolio es el núcleo de agregación y actualización del estado del portafolio:
// construye la vista desnormalizada, aplica actualizaciones de estado y la mantiene fresca.
package portfolio

import (
	"context"
	"fmt"
	"time"

	"github.com/jhoicas/portfolio-status-api/internal/application/collection"
	"github.com/jhoicas/portfolio-status-api/internal/domain/entity"
	"github.com/jhoicas/portfolio-status-api/internal/domain/repository"
	"github.com/jhoicas/portfolio-status-api/pkg/logger"
)

const (
	defaultConflictRetries = 5
	defaultCacheTTL        = 30 * time.Second
)

// Service casos de uso del portafolio sobre el CollectionStore.
type Service struct {
	runner   *collection.Runner
	log      *logger.Logger
	bus      InvalidationBus
	metrics  Metrics
	sink     SnapshotSink
	renderer ReportRenderer
	now      func() time.Time
	cache    *viewCache

	conflictRetries int
	snapshotPrefix  string
}

// Option configura Service.
type Option func(*Service)

func WithLogger(l *logger.Logger) Option { return func(s *Service) { s.log = l } }

func WithBus(b InvalidationBus) Option { return func(s *Service) { s.bus = b } }

func WithMetrics(m Metrics) Option { return func(s *Service) { s.metrics = m } }

func WithClock(now func() time.Time) Option { return func(s *Service) { s.now = now } }

func WithCacheTTL(ttl time.Duration) Option { return func(s *Service) { s.cache.ttl = ttl } }

// WithConflictRetries máximo de intentos completos de leer-modificar-escribir.
func WithConflictRetries(n int) Option { return func(s *Service) { s.conflictRetries = n } }

// WithSnapshotSink habilita ExportSnapshot; prefix se antepone al nombre del objeto.
func WithSnapshotSink(sink SnapshotSink, prefix string) Option {
	return func(s *Service) {
		s.sink = sink
		s.snapshotPrefix = prefix
	}
}

func WithReportRenderer(r ReportRenderer) Option { return func(s *Service) { s.renderer = r } }

// NewService crea el servicio.
func NewService(store repository.CollectionStore, opts ...Option) *Service {
	s := &Service{
		log:             logger.Nop(),
		metrics:         noopMetrics{},
		now:             time.Now,
		cache:           newViewCache(defaultCacheTTL),
		conflictRetries: defaultConflictRetries,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(s)
		}
	}
	s.cache.now = s.now
	s.log = s.log.Component("portfolio")
	s.runner = collection.NewRunner(store, s.conflictRetries, s.log)
	s.runner.OnConflict(s.metrics.ConflictRetry)
	return s
}

// Runner expone el ciclo optimista para los casos de uso del catálogo.
func (s *Service) Runner() *collection.Runner { return s.runner }

// Listen suscribe la caché local a las invalidaciones del bus. Devuelve la función para
// cancelar la suscripción. Sin bus no hace nada.
func (s *Service) Listen() (func(), error) {
	if s.bus == nil {
		return func() {}, nil
	}
	return s.bus.Subscribe(s.HandleInvalidation)
}

// HandleInvalidation descarta la vista cacheada.
func (s *Service) HandleInvalidation(ev Invalidation) {
	s.cache.invalidate()
	s.log.Debug().Str("reason", ev.Reason).Strs("keys", ev.Keys).Msg("vista invalidada")
}

// Invalidate descarta la caché local y publica el evento para las demás instancias.
func (s *Service) Invalidate(ctx context.Context, reason string, keys ...string) {
	s.cache.invalidate()
	if s.bus == nil {
		return
	}
	ev := Invalidation{Reason: reason, Keys: keys, At: s.now().UTC()}
	if err := s.bus.Publish(ctx, ev); err != nil {
		s.log.Warn().Err(err).Str("reason", reason).Msg("no se pudo publicar la invalidación")
	}
}

// ─── Accesores ───────────────────────────────────────────────────────────────

func loadOne[T any](ctx context.Context, s *Service, key string) ([]T, error) {
	set, err := s.runner.Load(ctx, key)
	if err != nil {
		return nil, fmt.Errorf("leer %s: %w", key, err)
	}
	return collection.Get[T](set, key), nil
}

func (s *Service) GetCountries(ctx context.Context) ([]entity.Country, error) {
	return loadOne[entity.Country](ctx, s, collection.Countries)
}

func (s *Service) GetProducts(ctx context.Context) ([]entity.Product, error) {
	return loadOne[entity.Product](ctx, s, collection.Products)
}

// GetProcedures solo lee: la frescura de la vista se resuelve en GetPortfolioStatusView.
func (s *Service) GetProcedures(ctx context.Context) ([]entity.Procedure, error) {
	return loadOne[entity.Procedure](ctx, s, collection.Procedures)
}

func (s *Service) GetProductTypes(ctx context.Context) ([]entity.ProductType, error) {
	return loadOne[entity.ProductType](ctx, s, collection.ProductTypes)
}

// GetStatuses solo lee; el estado "Ready to be Ordered" lo garantiza la migración de arranque.
func (s *Service) GetStatuses(ctx context.Context) ([]entity.Status, error) {
	return loadOne[entity.Status](ctx, s, collection.Statuses)
}

func (s *Service) GetStatusPortfolios(ctx context.Context) ([]entity.StatusPortfolio, error) {
	return loadOne[entity.StatusPortfolio](ctx, s, collection.StatusPortfolios)
}

// GetLastUpdate devuelve la marca de lastUpdate (cero si nunca se escribió).
func (s *Service) GetLastUpdate(ctx context.Context) (time.Time, error) {
	marks, err := loadOne[string](ctx, s, collection.LastUpdate)
	if err != nil || len(marks) == 0 {
		return time.Time{}, err
	}
	ts, err := time.Parse(time.RFC3339Nano, marks[0])
	if err != nil {
		s.log.Warn().Err(err).Str("value", marks[0]).Msg("marca lastUpdate ilegible")
		return time.Time{}, nil
	}
	return ts, nil
}

// ─── Vista ───────────────────────────────────────────────────────────────────

var viewKeys = append(append([]string{}, collection.ViewSources...), collection.PortfolioStatusView, collection.ViewMeta)

// GetPortfolioStatusView sirve la vista desde la caché local; en un fallo de caché la lee del store
// y la reconstruye solo si las versiones de sus fuentes cambiaron desde que se construyó.
func (s *Service) GetPortfolioStatusView(ctx context.Context) ([]entity.PortfolioStatusView, error) {
	if rows, ok := s.cache.get(); ok {
		s.metrics.ViewCache(true)
		return rows, nil
	}
	s.metrics.ViewCache(false)
	gen := s.cache.generation()

	set, err := s.runner.Load(ctx, viewKeys...)
	if err != nil {
		return nil, fmt.Errorf("leer vista: %w", err)
	}
	if fresh(set) {
		rows := collection.Get[entity.PortfolioStatusView](set, collection.PortfolioStatusView)
		s.cache.put(gen, rows)
		return cloneRows(rows), nil
	}

	res, err := s.rebuild(ctx, "stale")
	if err != nil {
		return nil, err
	}
	s.cache.put(gen, res.Rows)
	return cloneRows(res.Rows), nil
}

// RebuildResult resultado de RebuildPortfolioStatusView.
type RebuildResult struct {
	Rows    []entity.PortfolioStatusView `json:"rows"`
	Skipped []SkippedRecord              `json:"skipped"`
}

// RebuildPortfolioStatusView recalcula la vista completa y la persiste junto con su meta.
// Si falla la persistencia la vista anterior queda intacta.
func (s *Service) RebuildPortfolioStatusView(ctx context.Context) (RebuildResult, error) {
	res, err := s.rebuild(ctx, "explicit")
	if err != nil {
		return RebuildResult{}, err
	}
	s.Invalidate(ctx, "view_rebuilt", collection.PortfolioStatusView)
	return res, nil
}

func (s *Service) rebuild(ctx context.Context, reason string) (RebuildResult, error) {
	var (
		build  ViewBuild
		reused bool
	)
	_, _, err := s.runner.Mutate(ctx, "rebuild_view", viewKeys, func(set *collection.Set) error {
		// Otra instancia pudo reconstruirla entre la lectura inicial y este intento.
		if reason == "stale" && fresh(set) {
			build, reused = ViewBuild{Rows: collection.Get[entity.PortfolioStatusView](set, collection.PortfolioStatusView)}, true
			return nil
		}
		reused = false
		build = BuildView(sourcesFrom(set))
		if err := collection.Put(set, collection.PortfolioStatusView, build.Rows); err != nil {
			return err
		}
		if err := putMeta(set, s.now(), nil); err != nil {
			return err
		}
		set.Assert(collection.ViewSources...)
		return nil
	})
	if err != nil {
		s.log.Error().Err(err).Str("reason", reason).Msg("no se pudo reconstruir la vista")
		return RebuildResult{}, fmt.Errorf("reconstruir vista: %w", err)
	}
	if reused {
		return RebuildResult{Rows: build.Rows, Skipped: []SkippedRecord{}}, nil
	}

	for _, sk := range build.Skipped {
		s.log.Warn().Str("kind", sk.Kind).Str("id", sk.ID).Str("product_id", sk.ProductID).
			Str("country_id", sk.CountryID).Str("reason", sk.Reason).Msg("registro omitido en la vista")
	}
	s.metrics.ViewRebuilt(reason, build.SkippedByReason())
	s.log.Info().Str("reason", reason).Int("rows", len(build.Rows)).Int("skipped", len(build.Skipped)).Msg("vista reconstruida")

	if build.Skipped == nil {
		build.Skipped = []SkippedRecord{}
	}
	return RebuildResult{Rows: build.Rows, Skipped: build.Skipped}, nil
}

// putMeta registra las versiones de las fuentes tal como quedarán tras el commit: las que se
// escriben en el mismo lote avanzan en uno.
func putMeta(set *collection.Set, builtAt time.Time, written map[string]bool) error {
	versions := set.Versions(collection.ViewSources...)
	for k := range written {
		versions[k]++
	}
	return collection.Put(set, collection.ViewMeta, []entity.ViewMeta{{SourceVersions: versions, BuiltAt: builtAt.UTC()}})
}

// fresh informa si la vista leída corresponde a las versiones actuales de sus fuentes.
func fresh(set *collection.Set) bool {
	if !set.Snapshot(collection.PortfolioStatusView).Exists() {
		return false
	}
	metas := collection.Get[entity.ViewMeta](set, collection.ViewMeta)
	if len(metas) == 0 || metas[0].SourceVersions == nil {
		return false
	}
	for _, k := range collection.ViewSources {
		if metas[0].SourceVersions[k] != set.Version(k) {
			return false
		}
	}
	return true
}

// RefreshCache escribe la marca lastUpdate, descarta la caché local y avisa a las demás instancias.
func (s *Service) RefreshCache(ctx context.Context) (time.Time, error) {
	now := s.now().UTC()
	payload, err := collection.Encode([]string{now.Format(time.RFC3339Nano)})
	if err != nil {
		return time.Time{}, err
	}
	if _, err := s.runner.Store().Commit(ctx, repository.Write{
		Key: collection.LastUpdate, Payload: payload, ExpectedVersion: repository.AnyVersion,
	}); err != nil {
		return time.Time{}, fmt.Errorf("escribir lastUpdate: %w", err)
	}
	s.Invalidate(ctx, "refresh", collection.LastUpdate)
	return now, nil
}

func cloneRows(rows []entity.PortfolioStatusView) []entity.PortfolioStatusView {
	out := make([]entity.PortfolioStatusView, len(rows))
	for i, r := range rows {
		out[i] = r
		out[i].CountryStatuses = append([]entity.CountryStatus{}, r.CountryStatuses...)
	}
	return out
}
