package inventory

import (
	"github.com/jhoicas/retail-pos/internal/domain/entity"
	"github.com/shopspring/decimal"
)

// CostScale decimales con que se publica el costo promedio en Product.CostPrice.
const CostScale = 4

// MoneyScale decimales de precios, impuestos y descuentos de venta.
const MoneyScale = 2

// WeightedAverageCost implementa el costo promedio ponderado sobre los lotes vivos (servicio de dominio).
// Costo = Σ(QuantityRemaining * UnitCost) / Σ(QuantityRemaining)
// Sin lotes vivos el costo es 0: no hay base de costo hasta la próxima entrada.
func WeightedAverageCost(batches []entity.InventoryBatch) decimal.Decimal {
	totalValue := decimal.Zero
	totalQty := int64(0)
	for i := range batches {
		b := &batches[i]
		if !b.IsLive() {
			continue
		}
		totalValue = totalValue.Add(b.Value())
		totalQty += int64(b.QuantityRemaining)
	}
	if totalQty == 0 {
		return decimal.Zero
	}
	return totalValue.Div(decimal.NewFromInt(totalQty)).Round(CostScale)
}

// RemainingQuantity suma QuantityRemaining de los lotes.
func RemainingQuantity(batches []entity.InventoryBatch) int {
	total := 0
	for i := range batches {
		if batches[i].QuantityRemaining > 0 {
			total += batches[i].QuantityRemaining
		}
	}
	return total
}
