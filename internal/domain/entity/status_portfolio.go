package entity

import "time"

// StatusPortfolio fila fuente de verdad: estado de un producto en un país.
// Invariante: a lo sumo una fila por (ProductID, CountryID); lo garantiza la lógica de
// buscar-y-reemplazar del motor de actualización, no el store.
type StatusPortfolio struct {
	ID          string    `json:"id"`
	ProductID   string    `json:"productId"`
	CountryID   string    `json:"countryId"`
	StatusID    string    `json:"statusId"`
	SetsQty     string    `json:"setsQty,omitempty"`
	Notes       string    `json:"notes,omitempty"`
	LastUpdated time.Time `json:"lastUpdated"`
}

// GetID implementa collection.Identifiable.
func (sp StatusPortfolio) GetID() string { return sp.ID }

// Matches informa si la fila corresponde al par (producto, país).
func (sp StatusPortfolio) Matches(productID, countryID string) bool {
	return sp.ProductID == productID && sp.CountryID == countryID
}
