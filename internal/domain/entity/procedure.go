package entity

// Procedure procedimiento quirúrgico; Category es una agrupación libre (ej. "CERVICAL").
type Procedure struct {
	ID       string `json:"id"`
	Name     string `json:"name"`
	Category string `json:"category"`
	IsActive bool   `json:"isActive"`
}

// GetID implementa collection.Identifiable.
func (p Procedure) GetID() string { return p.ID }
