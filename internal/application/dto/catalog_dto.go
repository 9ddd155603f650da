package dto

// CountryRequest alta o edición de país.
type CountryRequest struct {
	Name          string `json:"name" validate:"required,max=100"`
	Code          string `json:"code" validate:"required,max=10"`
	HasTiers      bool   `json:"hasTiers"`
	NumberOfTiers int    `json:"numberOfTiers" validate:"min=0,max=10"`
	IsActive      *bool  `json:"isActive"`
}

// ProcedureRequest alta o edición de procedimiento.
type ProcedureRequest struct {
	Name     string `json:"name" validate:"required,max=150"`
	Category string `json:"category" validate:"required,max=100"`
	IsActive *bool  `json:"isActive"`
}

// ProductTypeRequest alta o edición de tipo de producto.
type ProductTypeRequest struct {
	Name     string `json:"name" validate:"required,max=100"`
	IsActive *bool  `json:"isActive"`
}

// ProductRequest alta o edición de producto.
type ProductRequest struct {
	Name             string `json:"name" validate:"required,max=150"`
	ProcedureID      string `json:"procedureId" validate:"required"`
	ProductTypeID    string `json:"productTypeId" validate:"required"`
	ProductTier      string `json:"productTier" validate:"required,oneof='Tier 1' 'Tier 2'"`
	ProductLifeCycle string `json:"productLifeCycle" validate:"required,oneof=Maintain Flagship De-emphasize"`
	IsActive         *bool  `json:"isActive"`
}

// StatusRequest alta o edición de estado.
type StatusRequest struct {
	Code        string `json:"code" validate:"max=50"`
	Name        string `json:"name" validate:"required,max=100"`
	Color       string `json:"color" validate:"required,hexcolor,len=7"`
	Description string `json:"description" validate:"max=500"`
	IsActive    *bool  `json:"isActive"`
}

// ActiveOr devuelve *b o def si es nil.
func ActiveOr(b *bool, def bool) bool {
	if b == nil {
		return def
	}
	return *b
}
