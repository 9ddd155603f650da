package entity

// Country país donde se comercializa el portafolio. Se desactiva con IsActive, nunca se valida
// integridad referencial al borrarlo.
type Country struct {
	ID            string `json:"id"`
	Name          string `json:"name"` // único, sin distinguir mayúsculas
	Code          string `json:"code"` // único, almacenado en mayúsculas
	HasTiers      bool   `json:"hasTiers"`
	NumberOfTiers int    `json:"numberOfTiers"` // 0 si HasTiers es false
	IsActive      bool   `json:"isActive"`
}

// GetID implementa collection.Identifiable.
func (c Country) GetID() string { return c.ID }
