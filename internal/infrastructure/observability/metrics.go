// Package observability agrupa métricas Prometheus, trazas OpenTelemetry y el decorador
// instrumentado del store de colecciones.
package observability

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "portfolio"

// Metrics colectores de la aplicación sobre un registro propio (no el global).
type Metrics struct {
	registry *prometheus.Registry

	storeOps       *prometheus.CounterVec
	storeDuration  *prometheus.HistogramVec
	viewRebuilds   *prometheus.CounterVec
	skippedRecords *prometheus.CounterVec
	statusUpdates  *prometheus.CounterVec
	conflictRetry  *prometheus.CounterVec
	viewCache      *prometheus.CounterVec
}

// NewMetrics registra todos los colectores, más los de runtime de Go y del proceso.
func NewMetrics() *Metrics {
	reg := prometheus.NewRegistry()
	m := &Metrics{
		registry: reg,
		storeOps: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace, Subsystem: "store", Name: "operations_total",
			Help: "Operaciones sobre el store de colecciones por resultado.",
		}, []string{"op", "result"}),
		storeDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace, Subsystem: "store", Name: "operation_duration_seconds",
			Help:    "Duración de las operaciones del store.",
			Buckets: prometheus.DefBuckets,
		}, []string{"op"}),
		viewRebuilds: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace, Subsystem: "view", Name: "rebuilds_total",
			Help: "Reconstrucciones completas de portfolioStatusView por motivo.",
		}, []string{"reason"}),
		skippedRecords: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace, Subsystem: "view", Name: "skipped_records_total",
			Help: "Registros omitidos por referencias colgantes.",
		}, []string{"reason"}),
		statusUpdates: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace, Subsystem: "status", Name: "updates_total",
			Help: "Actualizaciones de estado procesadas por tipo.",
		}, []string{"kind"}),
		conflictRetry: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace, Subsystem: "store", Name: "conflict_retries_total",
			Help: "Reintentos de leer-modificar-escribir por conflicto de versión.",
		}, []string{"operation"}),
		viewCache: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace, Subsystem: "view", Name: "cache_requests_total",
			Help: "Lecturas de la vista servidas desde caché (hit) o desde el store (miss).",
		}, []string{"result"}),
	}
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		m.storeOps, m.storeDuration, m.viewRebuilds, m.skippedRecords,
		m.statusUpdates, m.conflictRetry, m.viewCache,
	)
	return m
}

// Registry expone el registro, útil en tests.
func (m *Metrics) Registry() *prometheus.Registry { return m.registry }

// Handler sirve el formato de exposición de Prometheus.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}

func (m *Metrics) observeStore(op string, started time.Time, err error) {
	result := "ok"
	if err != nil {
		result = "error"
	}
	m.storeOps.WithLabelValues(op, result).Inc()
	m.storeDuration.WithLabelValues(op).Observe(time.Since(started).Seconds())
}

// ViewRebuilt registra una reconstrucción completa de la vista.
func (m *Metrics) ViewRebuilt(reason string, skipped map[string]int) {
	m.viewRebuilds.WithLabelValues(reason).Inc()
	for r, n := range skipped {
		m.skippedRecords.WithLabelValues(r).Add(float64(n))
	}
}

func (m *Metrics) StatusUpdates(applied, removed, skipped int) {
	m.statusUpdates.WithLabelValues("applied").Add(float64(applied))
	m.statusUpdates.WithLabelValues("removed").Add(float64(removed))
	m.statusUpdates.WithLabelValues("skipped").Add(float64(skipped))
}

func (m *Metrics) ConflictRetry(operation string) {
	m.conflictRetry.WithLabelValues(operation).Inc()
}

func (m *Metrics) ViewCache(hit bool) {
	if hit {
		m.viewCache.WithLabelValues("hit").Inc()
		return
	}
	m.viewCache.WithLabelValues("miss").Inc()
}
