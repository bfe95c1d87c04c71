package entity

import (
	"time"

	"github.com/shopspring/decimal"
)

// InventoryBatch es una recepción de inventario a un costo unitario fijo.
// QuantityReceived y UnitCost no cambian; QuantityRemaining solo baja por consumo o ajuste.
// Invariante: 0 <= QuantityRemaining <= QuantityReceived.
type InventoryBatch struct {
	ID                string
	ProductID         string
	QuantityReceived  int
	QuantityRemaining int
	UnitCost          decimal.Decimal
	ReceivedAt        time.Time // orden FIFO
	PurchaseOrderID   string
	SupplierID        string
	BatchNumber       string
	ExpiresAt         *time.Time
}

// IsLive indica si el lote aún tiene unidades disponibles.
func (b *InventoryBatch) IsLive() bool {
	return b.QuantityRemaining > 0
}

// Value devuelve el valor del remanente (QuantityRemaining * UnitCost).
func (b *InventoryBatch) Value() decimal.Decimal {
	return decimal.NewFromInt(int64(b.QuantityRemaining)).Mul(b.UnitCost)
}

// Consumed devuelve las unidades ya despachadas del lote.
func (b *InventoryBatch) Consumed() int {
	return b.QuantityReceived - b.QuantityRemaining
}
