package entity

// ProductType clasifica productos (ej. "Retractor", "Plate").
type ProductType struct {
	ID       string `json:"id"`
	Name     string `json:"name"`
	IsActive bool   `json:"isActive"`
}

// GetID implementa collection.Identifiable.
func (t ProductType) GetID() string { return t.ID }
