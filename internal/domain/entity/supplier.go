package entity

import "time"

// Supplier proveedor de mercancía. Un proveedor con órdenes no se borra: se desactiva.
type Supplier struct {
	ID          string
	Name        string
	ContactName string
	Email       string
	Phone       string
	Address     string
	TaxID       string
	Notes       string
	Active      bool
	CreatedAt   time.Time
	UpdatedAt   time.Time
}
