package portfolio

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/jhoicas/portfolio-status-api/internal/application/collection"
	"github.com/jhoicas/portfolio-status-api/internal/domain"
	"github.com/jhoicas/portfolio-status-api/internal/domain/entity"
)

// StatusUpdate cambio de estado de un producto en un país. StatusID vacío elimina la asignación.
type StatusUpdate struct {
	ProductID string `json:"productId"`
	CountryID string `json:"countryId"`
	StatusID  string `json:"statusId"`
	SetsQty   string `json:"setsQty,omitempty"`
	Notes     string `json:"notes,omitempty"`
}

// SkippedUpdate actualización señalada y su motivo. Index es la posición en el lote.
type SkippedUpdate struct {
	Index     int    `json:"index"`
	ProductID string `json:"productId"`
	CountryID string `json:"countryId"`
	Reason    string `json:"reason"`
}

// BulkResult resumen de BulkUpdateStatus. Skipped son las peticiones sin productId o countryId;
// Dangling son asignaciones guardadas cuyas referencias no existen y que la vista no muestra.
type BulkResult struct {
	Applied  int             `json:"applied"`
	Removed  int             `json:"removed"`
	Skipped  []SkippedUpdate `json:"skipped"`
	Dangling []SkippedUpdate `json:"dangling"`
}

var updateKeys = []string{
	collection.StatusPortfolios, collection.PortfolioStatusView, collection.ViewMeta,
	collection.Statuses, collection.Countries, collection.Products,
	collection.Procedures, collection.ProductTypes, collection.LastUpdate,
}

// UpdateStatus aplica una única actualización con la misma política que BulkUpdateStatus.
// Sin productId o countryId devuelve ErrInvalidInput; una referencia inexistente no es error.
func (s *Service) UpdateStatus(ctx context.Context, u StatusUpdate) (BulkResult, error) {
	res, err := s.BulkUpdateStatus(ctx, []StatusUpdate{u})
	if err != nil {
		return res, err
	}
	if len(res.Skipped) > 0 {
		return res, fmt.Errorf("%w: productId y countryId son requeridos", domain.ErrInvalidInput)
	}
	return res, nil
}

// BulkUpdateStatus aplica las actualizaciones en orden sobre statusPortfolios y la vista, y persiste
// ambas junto con la meta y la marca lastUpdate en un único commit condicionado a las versiones
// leídas. Ante un conflicto repite todo desde una lectura nueva. Dentro del lote gana la última
// actualización de cada par (producto, país).
func (s *Service) BulkUpdateStatus(ctx context.Context, updates []StatusUpdate) (BulkResult, error) {
	var (
		res     BulkResult
		rebuilt bool
		build   ViewBuild
	)
	_, _, err := s.runner.Mutate(ctx, "bulk_update_status", updateKeys, func(set *collection.Set) error {
		res = BulkResult{Skipped: []SkippedUpdate{}, Dangling: []SkippedUpdate{}}
		now := s.now().UTC()

		src := sourcesFrom(set)
		view := collection.Get[entity.PortfolioStatusView](set, collection.PortfolioStatusView)
		a := newApplier(src, view, now)
		a.needRebuild = !fresh(set)

		for i, u := range updates {
			outcome, reason := a.apply(u)
			switch outcome {
			case outcomeApplied:
				res.Applied++
				if reason != "" {
					res.Dangling = append(res.Dangling, SkippedUpdate{Index: i, ProductID: u.ProductID, CountryID: u.CountryID, Reason: reason})
				}
			case outcomeRemoved:
				res.Removed++
			case outcomeSkipped:
				res.Skipped = append(res.Skipped, SkippedUpdate{Index: i, ProductID: u.ProductID, CountryID: u.CountryID, Reason: reason})
			}
		}
		if !a.changed {
			return nil
		}

		src.StatusPortfolios = a.rows
		view = a.view
		rebuilt = a.needRebuild
		if rebuilt {
			build = BuildView(src)
			view = build.Rows
		}

		if err := collection.Put(set, collection.StatusPortfolios, src.StatusPortfolios); err != nil {
			return err
		}
		if err := collection.Put(set, collection.PortfolioStatusView, view); err != nil {
			return err
		}
		if err := putMeta(set, now, map[string]bool{collection.StatusPortfolios: true}); err != nil {
			return err
		}
		if err := collection.Put(set, collection.LastUpdate, []string{now.Format(time.RFC3339Nano)}); err != nil {
			return err
		}
		set.Assert(collection.ViewSources...)
		return nil
	})
	if err != nil {
		s.log.Error().Err(err).Int("updates", len(updates)).Msg("falló la actualización de estados")
		return BulkResult{}, fmt.Errorf("actualizar estados: %w", err)
	}

	for _, sk := range res.Skipped {
		s.log.Warn().Int("index", sk.Index).Str("product_id", sk.ProductID).Str("country_id", sk.CountryID).
			Str("reason", sk.Reason).Msg("actualización de estado omitida")
	}
	for _, d := range res.Dangling {
		s.log.Warn().Int("index", d.Index).Str("product_id", d.ProductID).Str("country_id", d.CountryID).
			Str("reason", d.Reason).Msg("asignación guardada con referencia inexistente")
	}
	if rebuilt {
		s.metrics.ViewRebuilt("status_update", build.SkippedByReason())
	}
	s.metrics.StatusUpdates(res.Applied, res.Removed, len(res.Skipped))

	if res.Applied+res.Removed > 0 {
		s.Invalidate(ctx, "status_update", collection.StatusPortfolios, collection.PortfolioStatusView)
		s.log.Info().Int("applied", res.Applied).Int("removed", res.Removed).Int("skipped", len(res.Skipped)).
			Bool("rebuilt", rebuilt).Msg("estados actualizados")
	}
	return res, nil
}

type outcome int

const (
	outcomeNoop outcome = iota
	outcomeApplied
	outcomeRemoved
	outcomeSkipped
)

// applier mantiene en memoria statusPortfolios y la vista mientras se recorre el lote.
type applier struct {
	src   Sources
	rows  []entity.StatusPortfolio
	view  []entity.PortfolioStatusView
	now   time.Time
	index struct {
		products, procedures, productTypes, countries, statuses map[string]int
	}
	changed     bool
	needRebuild bool
}

func newApplier(src Sources, view []entity.PortfolioStatusView, now time.Time) *applier {
	a := &applier{
		src:  src,
		rows: append([]entity.StatusPortfolio{}, src.StatusPortfolios...),
		view: cloneRows(view),
		now:  now,
	}
	a.index.products = collection.IndexByID(src.Products)
	a.index.procedures = collection.IndexByID(src.Procedures)
	a.index.productTypes = collection.IndexByID(src.ProductTypes)
	a.index.countries = collection.IndexByID(src.Countries)
	a.index.statuses = collection.IndexByID(src.Statuses)
	return a
}

func (a *applier) apply(u StatusUpdate) (outcome, string) {
	if u.ProductID == "" || u.CountryID == "" {
		return outcomeSkipped, ReasonInvalidRequest
	}
	if u.StatusID == "" {
		return a.remove(u), ""
	}
	return a.upsert(u)
}

// remove elimina todas las filas del par y la entrada del país en la vista. Sin coincidencias no hace nada.
func (a *applier) remove(u StatusUpdate) outcome {
	kept := a.rows[:0:0]
	for _, sp := range a.rows {
		if !sp.Matches(u.ProductID, u.CountryID) {
			kept = append(kept, sp)
		}
	}
	removedRows := len(kept) != len(a.rows)
	a.rows = kept

	removedEntry := false
	if vi := a.viewRow(u.ProductID); vi >= 0 {
		row := &a.view[vi]
		if ci := row.FindCountry(u.CountryID); ci >= 0 {
			row.CountryStatuses = append(row.CountryStatuses[:ci], row.CountryStatuses[ci+1:]...)
			removedEntry = true
		}
	}
	if !removedRows && !removedEntry {
		return outcomeNoop
	}
	if removedEntry && !removedRows {
		// La vista tenía una entrada sin fila que la respalde: se recalcula completa.
		a.needRebuild = true
	}
	a.changed = true
	return outcomeRemoved
}

// upsert guarda siempre la fila del par. Si alguna referencia falta la vista no la muestra y el
// motivo se devuelve como aviso.
func (a *applier) upsert(u StatusUpdate) (outcome, string) {
	sp, existed := a.upsertRow(u)
	a.changed = true

	if reason := a.danglingReason(u); reason != "" {
		if vi := a.viewRow(u.ProductID); vi >= 0 && a.view[vi].FindCountry(u.CountryID) >= 0 {
			// La entrada anterior ya no tiene respaldo válido.
			a.needRebuild = true
		}
		return outcomeApplied, reason
	}
	product := a.src.Products[a.index.products[u.ProductID]]
	ci := a.index.countries[u.CountryID]
	si := a.index.statuses[u.StatusID]

	if !product.IsActive || a.needRebuild {
		return outcomeApplied, ""
	}
	vi := a.viewRow(u.ProductID)
	if vi < 0 {
		// Producto activo sin fila: se sintetiza con un recálculo completo.
		a.needRebuild = true
		return outcomeApplied, ""
	}
	entry := newCountryStatus(a.src.Countries[ci], a.src.Statuses[si], sp)
	row := &a.view[vi]
	switch idx := row.FindCountry(u.CountryID); {
	case existed && idx >= 0:
		row.CountryStatuses[idx] = entry
	case !existed && idx < 0:
		row.CountryStatuses = append(row.CountryStatuses, entry)
	default:
		a.needRebuild = true
	}
	return outcomeApplied, ""
}

// danglingReason devuelve el primer motivo por el que la vista no puede mostrar la asignación.
func (a *applier) danglingReason(u StatusUpdate) string {
	pi, ok := a.index.products[u.ProductID]
	if !ok {
		return ReasonMissingProduct
	}
	product := a.src.Products[pi]
	if _, ok := a.index.procedures[product.ProcedureID]; !ok {
		return ReasonMissingProcedure
	}
	if _, ok := a.index.productTypes[product.ProductTypeID]; !ok {
		return ReasonMissingProductType
	}
	if _, ok := a.index.countries[u.CountryID]; !ok {
		return ReasonMissingCountry
	}
	if _, ok := a.index.statuses[u.StatusID]; !ok {
		return ReasonMissingStatus
	}
	return ""
}

// upsertRow sobrescribe la fila del par (eliminando duplicados) o agrega una nueva al final.
func (a *applier) upsertRow(u StatusUpdate) (entity.StatusPortfolio, bool) {
	first := -1
	kept := a.rows[:0:0]
	for _, sp := range a.rows {
		if sp.Matches(u.ProductID, u.CountryID) {
			if first >= 0 {
				a.needRebuild = true
				continue
			}
			first = len(kept)
		}
		kept = append(kept, sp)
	}
	a.rows = kept

	if first >= 0 {
		row := &a.rows[first]
		row.StatusID = u.StatusID
		row.SetsQty = u.SetsQty
		row.Notes = u.Notes
		row.LastUpdated = a.now
		return *row, true
	}
	sp := entity.StatusPortfolio{
		ID:          newStatusPortfolioID(a.now),
		ProductID:   u.ProductID,
		CountryID:   u.CountryID,
		StatusID:    u.StatusID,
		SetsQty:     u.SetsQty,
		Notes:       u.Notes,
		LastUpdated: a.now,
	}
	a.rows = append(a.rows, sp)
	return sp, false
}

func (a *applier) viewRow(productID string) int {
	for i := range a.view {
		if a.view[i].ProductID == productID {
			return i
		}
	}
	return -1
}

// newStatusPortfolioID genera ids con la forma sp-<unixmillis>-<8 hex>.
func newStatusPortfolioID(now time.Time) string {
	suffix := strings.ReplaceAll(uuid.NewString(), "-", "")[:8]
	return fmt.Sprintf("sp-%d-%s", now.UnixMilli(), suffix)
}
