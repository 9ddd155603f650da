package entity

import "time"

// PortfolioStatusView fila desnormalizada de la vista: un producto activo con sus estados por país.
// Es una caché materializada del join Country/Status/Product/Procedure/ProductType/StatusPortfolio.
type PortfolioStatusView struct {
	Category         string          `json:"category"`
	Procedure        string          `json:"procedure"`
	ProcedureID      string          `json:"procedureId"`
	ProductType      string          `json:"productType"`
	ProductTypeID    string          `json:"productTypeId"`
	Product          string          `json:"product"`
	ProductID        string          `json:"productId"`
	ProductTier      string          `json:"productTier"`
	ProductLifeCycle string          `json:"productLifeCycle"`
	CountryStatuses  []CountryStatus `json:"countryStatuses"`
}

// CountryStatus entrada por país dentro de una fila de la vista. Solo existen entradas para
// países con asignación explícita (representación dispersa).
type CountryStatus struct {
	CountryID   string    `json:"countryId"`
	CountryName string    `json:"countryName"`
	StatusID    string    `json:"statusId"`
	StatusCode  string    `json:"statusCode"`
	StatusName  string    `json:"statusName"`
	StatusColor string    `json:"statusColor"`
	SetsQty     string    `json:"setsQty"`
	LastUpdated time.Time `json:"lastUpdated"`
}

// FindCountry devuelve el índice de la entrada del país o -1.
func (v *PortfolioStatusView) FindCountry(countryID string) int {
	for i := range v.CountryStatuses {
		if v.CountryStatuses[i].CountryID == countryID {
			return i
		}
	}
	return -1
}

// ViewMeta registra las versiones de las colecciones fuente con las que se construyó la vista.
// Si alguna versión actual difiere, la vista está obsoleta.
type ViewMeta struct {
	SourceVersions map[string]int64 `json:"sourceVersions"`
	BuiltAt        time.Time        `json:"builtAt"`
}
