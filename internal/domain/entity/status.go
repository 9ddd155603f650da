package entity

// Estados conocidos.
const (
	// NoneStatusID es el centinela "None" (código vacío): sin asignación.
	NoneStatusID = "status-5"

	ReadyToOrderName  = "Ready to be Ordered"
	ReadyToOrderCode  = "AVAILABLE_TO_ORDER"
	ReadyToOrderColor = "#FFA500"
	ReadyToOrderIDPfx = "status-available-to-order-"
)

// Status estado regulatorio/comercial de un producto en un país (Available, RA Submitted, ...).
type Status struct {
	ID          string `json:"id"`
	Code        string `json:"code"`
	Name        string `json:"name"`
	Color       string `json:"color"` // hex #RRGGBB
	IsActive    bool   `json:"isActive"`
	Description string `json:"description,omitempty"`
}

// GetID implementa collection.Identifiable.
func (s Status) GetID() string { return s.ID }

// IsReadyToOrder reconoce el estado "Ready to be Ordered" por nombre o por código.
func (s Status) IsReadyToOrder() bool {
	return s.Name == ReadyToOrderName || s.Code == ReadyToOrderCode
}

// NoneStatus devuelve el centinela "None".
func NoneStatus() Status {
	return Status{ID: NoneStatusID, Code: "", Name: "None", Color: "#FFFFFF", IsActive: true}
}
