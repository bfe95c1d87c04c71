package entity

import (
	"time"

	"github.com/shopspring/decimal"
)

// PurchaseStatus estado del ciclo de vida de una orden de compra.
type PurchaseStatus string

// Estados de la orden de compra: DRAFT → APPROVED → PAID → RECEIVED → CLOSED, o CANCELLED.
const (
	PurchaseStatusDraft     PurchaseStatus = "DRAFT"
	PurchaseStatusApproved  PurchaseStatus = "APPROVED"
	PurchaseStatusPaid      PurchaseStatus = "PAID"
	PurchaseStatusReceived  PurchaseStatus = "RECEIVED"
	PurchaseStatusClosed    PurchaseStatus = "CLOSED"
	PurchaseStatusCancelled PurchaseStatus = "CANCELLED"
)

// PurchaseOrder orden de compra a un proveedor.
type PurchaseOrder struct {
	ID          string
	SupplierID  string
	Status      PurchaseStatus
	TotalAmount decimal.Decimal
	Notes       string
	CreatedBy   string
	ApprovedAt  *time.Time
	PaidAt      *time.Time
	ReceivedAt  *time.Time
	CreatedAt   time.Time
	UpdatedAt   time.Time
	Items       []PurchaseItem
}

// PurchaseItem línea de la orden. UnitPrice se convierte en el UnitCost del lote al recibir.
// Invariante: ReceivedQty <= Quantity.
type PurchaseItem struct {
	ID              string
	PurchaseOrderID string
	ProductID       string
	Quantity        int
	ReceivedQty     int
	UnitPrice       decimal.Decimal
	TotalPrice      decimal.Decimal
}

// Pending unidades aún por recibir.
func (i *PurchaseItem) Pending() int {
	return i.Quantity - i.ReceivedQty
}

// Item busca una línea por ID.
func (o *PurchaseOrder) Item(itemID string) (*PurchaseItem, bool) {
	for i := range o.Items {
		if o.Items[i].ID == itemID {
			return &o.Items[i], true
		}
	}
	return nil, false
}

// FullyReceived indica si todas las líneas se recibieron completas.
func (o *PurchaseOrder) FullyReceived() bool {
	if len(o.Items) == 0 {
		return false
	}
	for _, it := range o.Items {
		if it.ReceivedQty < it.Quantity {
			return false
		}
	}
	return true
}

// CanTransition valida las transiciones del ciclo de vida.
func (s PurchaseStatus) CanTransition(to PurchaseStatus) bool {
	switch to {
	case PurchaseStatusApproved:
		return s == PurchaseStatusDraft
	case PurchaseStatusPaid:
		return s == PurchaseStatusApproved
	case PurchaseStatusReceived:
		return s == PurchaseStatusPaid
	case PurchaseStatusClosed:
		return s == PurchaseStatusReceived
	case PurchaseStatusCancelled:
		return s == PurchaseStatusDraft || s == PurchaseStatusApproved || s == PurchaseStatusPaid
	}
	return false
}

// Receivable indica si la orden admite recepción de mercancía.
func (s PurchaseStatus) Receivable() bool {
	return s == PurchaseStatusPaid
}
