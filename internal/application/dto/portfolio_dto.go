package dto

import (
	"time"

	"github.com/jhoicas/portfolio-status-api/internal/domain/entity"
)

// StatusUpdateRequest cambio de estado de un producto en un país. StatusID vacío elimina la asignación.
type StatusUpdateRequest struct {
	ProductID string `json:"productId" validate:"required"`
	CountryID string `json:"countryId" validate:"required"`
	StatusID  string `json:"statusId"`
	SetsQty   string `json:"setsQty" validate:"max=50"`
	Notes     string `json:"notes" validate:"max=1000"`
}

// BulkStatusUpdateRequest lote de cambios de estado aplicados en orden.
type BulkStatusUpdateRequest struct {
	Updates []StatusUpdateRequest `json:"updates" validate:"required,min=1,max=5000,dive"`
}

// PortfolioViewResponse vista desnormalizada y la marca de última actualización.
type PortfolioViewResponse struct {
	Items      []entity.PortfolioStatusView `json:"items"`
	LastUpdate *time.Time                   `json:"lastUpdate,omitempty"`
}

// RefreshResponse respuesta de POST /api/portfolio/refresh.
type RefreshResponse struct {
	LastUpdate time.Time `json:"lastUpdate"`
}

// SnapshotResponse ubicación del snapshot exportado.
type SnapshotResponse struct {
	Location string `json:"location"`
}

// ListResponse envoltorio genérico de listados.
type ListResponse[T any] struct {
	Items []T `json:"items"`
	Total int `json:"total"`
}

// NewListResponse construye el envoltorio; nunca serializa items como null.
func NewListResponse[T any](items []T) ListResponse[T] {
	if items == nil {
		items = []T{}
	}
	return ListResponse[T]{Items: items, Total: len(items)}
}
