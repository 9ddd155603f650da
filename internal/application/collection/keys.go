// Package collection traduce entre colecciones tipadas y el CollectionStore de bytes versionados,
// y ofrece el ciclo optimista leer-modificar-escribir.
package collection

// Claves de colección. Cada una guarda un único arreglo JSON.
const (
	Countries           = "countries"
	Products            = "products"
	Procedures          = "procedures"
	ProductTypes        = "productTypes"
	Statuses            = "statuses"
	StatusPortfolios    = "statusPortfolios"
	PortfolioStatusView = "portfolioStatusView"
	LastUpdate          = "lastUpdate"
	ViewMeta            = "portfolioStatusViewMeta"
	Users               = "users"
)

// ViewSources colecciones de las que se deriva portfolioStatusView.
var ViewSources = []string{Products, Procedures, ProductTypes, StatusPortfolios, Countries, Statuses}

// Identifiable entidades con id propio.
type Identifiable interface {
	GetID() string
}

// IndexByID construye un índice id -> posición.
func IndexByID[T Identifiable](items []T) map[string]int {
	idx := make(map[string]int, len(items))
	for i, it := range items {
		if _, dup := idx[it.GetID()]; !dup {
			idx[it.GetID()] = i
		}
	}
	return idx
}

// FindByID devuelve el elemento con id y si existe.
func FindByID[T Identifiable](items []T, id string) (T, bool) {
	for _, it := range items {
		if it.GetID() == id {
			return it, true
		}
	}
	var zero T
	return zero, false
}
