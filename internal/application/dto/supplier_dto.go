package dto

// SupplierRequest alta o edición de un proveedor. Active nil deja el proveedor activo al crearlo
// y no cambia el estado al editarlo.
type SupplierRequest struct {
	Name        string `json:"name" validate:"required,max=255"`
	ContactName string `json:"contact_name,omitempty" validate:"max=255"`
	Email       string `json:"email,omitempty" validate:"omitempty,email,max=255"`
	Phone       string `json:"phone,omitempty" validate:"max=32"`
	Address     string `json:"address,omitempty" validate:"max=500"`
	TaxID       string `json:"tax_id,omitempty" validate:"max=32"`
	Notes       string `json:"notes,omitempty" validate:"max=1000"`
	Active      *bool  `json:"active,omitempty"`
}
