package entity

// Tiers válidos de producto.
const (
	TierOne = "Tier 1"
	TierTwo = "Tier 2"
)

// Ciclos de vida válidos de producto.
const (
	LifeCycleMaintain    = "Maintain"
	LifeCycleFlagship    = "Flagship"
	LifeCycleDeEmphasize = "De-emphasize"
)

// Product dispositivo médico del portafolio. Referencia un Procedure y un ProductType por id;
// el store no garantiza esas referencias.
type Product struct {
	ID               string `json:"id"`
	Name             string `json:"name"`
	ProcedureID      string `json:"procedureId"`
	ProductTypeID    string `json:"productTypeId"`
	ProductTier      string `json:"productTier"`      // Tier 1 | Tier 2
	ProductLifeCycle string `json:"productLifeCycle"` // Maintain | Flagship | De-emphasize
	IsActive         bool   `json:"isActive"`
}

// GetID implementa collection.Identifiable.
func (p Product) GetID() string { return p.ID }

// ValidTier informa si el tier pertenece a la enumeración.
func ValidTier(t string) bool {
	return t == TierOne || t == TierTwo
}

// ValidLifeCycle informa si el ciclo de vida pertenece a la enumeración.
func ValidLifeCycle(lc string) bool {
	switch lc {
	case LifeCycleMaintain, LifeCycleFlagship, LifeCycleDeEmphasize:
		return true
	}
	return false
}
