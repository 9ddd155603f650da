package portfolio

import (
	"context"
	"errors"
	"time"
)

// ErrExportDisabled la exportación de snapshots no está configurada.
var ErrExportDisabled = errors.New("exportación de snapshots deshabilitada")

// Invalidation evento que indica que la vista cacheada dejó de ser válida.
type Invalidation struct {
	Reason string    `json:"reason"`
	Keys   []string  `json:"keys,omitempty"`
	At     time.Time `json:"at"`
}

// InvalidationBus distribuye invalidaciones entre los consumidores de la vista,
// locales o de otras instancias.
type InvalidationBus interface {
	Publish(ctx context.Context, ev Invalidation) error
	Subscribe(handler func(Invalidation)) (unsubscribe func(), err error)
	Close() error
}

// SnapshotSink destino de los snapshots JSON de la vista. Devuelve la ubicación escrita.
type SnapshotSink interface {
	PutSnapshot(ctx context.Context, name string, body []byte) (string, error)
}

// ReportRenderer genera el documento del reporte de portafolio (PDF).
type ReportRenderer interface {
	Render(report Report) ([]byte, error)
}

// Metrics observador de las operaciones del servicio.
type Metrics interface {
	ViewRebuilt(reason string, skipped map[string]int)
	StatusUpdates(applied, removed, skipped int)
	ConflictRetry(operation string)
	ViewCache(hit bool)
}

type noopMetrics struct{}

func (noopMetrics) ViewRebuilt(string, map[string]int) {}
func (noopMetrics) StatusUpdates(int, int, int)        {}
func (noopMetrics) ConflictRetry(string)               {}
func (noopMetrics) ViewCache(bool)                     {}
