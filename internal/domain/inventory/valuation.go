package inventory

import (
	"time"

	"github.com/jhoicas/retail-pos/internal/domain/entity"
	"github.com/shopspring/decimal"
)

// BatchValue valoración de un lote vivo.
type BatchValue struct {
	BatchID     string
	ProductID   string
	ProductName string
	Quantity    int
	UnitCost    decimal.Decimal
	TotalValue  decimal.Decimal
	ReceivedAt  time.Time
}

// Valuation valoración del inventario: total y detalle por lote.
type Valuation struct {
	TotalValue    decimal.Decimal
	TotalQuantity int
	PerBatch      []BatchValue
}

// Valuate calcula la valoración de los lotes vivos. names mapea productID → nombre (opcional).
func Valuate(batches []entity.InventoryBatch, names map[string]string) Valuation {
	v := Valuation{TotalValue: decimal.Zero, PerBatch: make([]BatchValue, 0, len(batches))}
	for i := range batches {
		b := &batches[i]
		if !b.IsLive() {
			continue
		}
		value := b.Value()
		v.TotalValue = v.TotalValue.Add(value)
		v.TotalQuantity += b.QuantityRemaining
		v.PerBatch = append(v.PerBatch, BatchValue{
			BatchID:     b.ID,
			ProductID:   b.ProductID,
			ProductName: names[b.ProductID],
			Quantity:    b.QuantityRemaining,
			UnitCost:    b.UnitCost,
			TotalValue:  value,
			ReceivedAt:  b.ReceivedAt,
		})
	}
	return v
}
