package portfolio

import (
	"github.com/jhoicas/portfolio-status-api/internal/application/collection"
	"github.com/jhoicas/portfolio-status-api/internal/domain/entity"
)

// Motivos por los que un registro queda fuera de la vista o una actualización se omite.
const (
	ReasonMissingProduct     = "missing_product"
	ReasonMissingProcedure   = "missing_procedure"
	ReasonMissingProductType = "missing_product_type"
	ReasonMissingCountry     = "missing_country"
	ReasonMissingStatus      = "missing_status"
	ReasonInvalidRequest     = "invalid_request"
)

// Sources colecciones normalizadas de las que se deriva la vista.
type Sources struct {
	Products         []entity.Product
	Procedures       []entity.Procedure
	ProductTypes     []entity.ProductType
	StatusPortfolios []entity.StatusPortfolio
	Countries        []entity.Country
	Statuses         []entity.Status
}

func sourcesFrom(set *collection.Set) Sources {
	return Sources{
		Products:         collection.Get[entity.Product](set, collection.Products),
		Procedures:       collection.Get[entity.Procedure](set, collection.Procedures),
		ProductTypes:     collection.Get[entity.ProductType](set, collection.ProductTypes),
		StatusPortfolios: collection.Get[entity.StatusPortfolio](set, collection.StatusPortfolios),
		Countries:        collection.Get[entity.Country](set, collection.Countries),
		Statuses:         collection.Get[entity.Status](set, collection.Statuses),
	}
}

// SkippedRecord registro omitido por una referencia colgante.
type SkippedRecord struct {
	Kind      string `json:"kind"` // product | statusPortfolio
	ID        string `json:"id"`
	ProductID string `json:"productId,omitempty"`
	CountryID string `json:"countryId,omitempty"`
	Reason    string `json:"reason"`
}

// ViewBuild resultado de BuildView.
type ViewBuild struct {
	Rows    []entity.PortfolioStatusView
	Skipped []SkippedRecord
}

// SkippedByReason cuenta los omitidos por motivo.
func (b ViewBuild) SkippedByReason() map[string]int {
	out := map[string]int{}
	for _, s := range b.Skipped {
		out[s.Reason]++
	}
	return out
}

// BuildView une las colecciones normalizadas en filas de PortfolioStatusView: una por producto
// activo, en el orden de products, con sus estados por país en el orden de statusPortfolios.
// Es una función pura.
func BuildView(src Sources) ViewBuild {
	procedures := collection.IndexByID(src.Procedures)
	productTypes := collection.IndexByID(src.ProductTypes)
	countries := collection.IndexByID(src.Countries)
	statuses := collection.IndexByID(src.Statuses)

	byProduct := make(map[string][]entity.StatusPortfolio)
	for _, sp := range src.StatusPortfolios {
		byProduct[sp.ProductID] = append(byProduct[sp.ProductID], sp)
	}

	out := ViewBuild{Rows: make([]entity.PortfolioStatusView, 0, len(src.Products))}
	for _, p := range src.Products {
		if !p.IsActive {
			continue
		}
		pi, ok := procedures[p.ProcedureID]
		if !ok {
			out.Skipped = append(out.Skipped, SkippedRecord{Kind: "product", ID: p.ID, ProductID: p.ID, Reason: ReasonMissingProcedure})
			continue
		}
		ti, ok := productTypes[p.ProductTypeID]
		if !ok {
			out.Skipped = append(out.Skipped, SkippedRecord{Kind: "product", ID: p.ID, ProductID: p.ID, Reason: ReasonMissingProductType})
			continue
		}

		row := newViewRow(p, src.Procedures[pi], src.ProductTypes[ti])
		for _, sp := range byProduct[p.ID] {
			ci, ok := countries[sp.CountryID]
			if !ok {
				out.Skipped = append(out.Skipped, SkippedRecord{Kind: "statusPortfolio", ID: sp.ID, ProductID: sp.ProductID, CountryID: sp.CountryID, Reason: ReasonMissingCountry})
				continue
			}
			si, ok := statuses[sp.StatusID]
			if !ok {
				out.Skipped = append(out.Skipped, SkippedRecord{Kind: "statusPortfolio", ID: sp.ID, ProductID: sp.ProductID, CountryID: sp.CountryID, Reason: ReasonMissingStatus})
				continue
			}
			row.CountryStatuses = append(row.CountryStatuses, newCountryStatus(src.Countries[ci], src.Statuses[si], sp))
		}
		out.Rows = append(out.Rows, row)
	}
	return out
}

func newViewRow(p entity.Product, proc entity.Procedure, pt entity.ProductType) entity.PortfolioStatusView {
	return entity.PortfolioStatusView{
		Category:         proc.Category,
		Procedure:        proc.Name,
		ProcedureID:      proc.ID,
		ProductType:      pt.Name,
		ProductTypeID:    pt.ID,
		Product:          p.Name,
		ProductID:        p.ID,
		ProductTier:      p.ProductTier,
		ProductLifeCycle: p.ProductLifeCycle,
		CountryStatuses:  []entity.CountryStatus{},
	}
}

func newCountryStatus(c entity.Country, st entity.Status, sp entity.StatusPortfolio) entity.CountryStatus {
	return entity.CountryStatus{
		CountryID:   c.ID,
		CountryName: c.Name,
		StatusID:    st.ID,
		StatusCode:  st.Code,
		StatusName:  st.Name,
		StatusColor: st.Color,
		SetsQty:     sp.SetsQty,
		LastUpdated: sp.LastUpdated,
	}
}
