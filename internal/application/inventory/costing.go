package inventory

import (
	"context"
	"fmt"

	"github.com/jhoicas/retail-pos/internal/domain/inventory"
	"github.com/shopspring/decimal"
)

// CostingEngine publica en Product.CostPrice el costo promedio ponderado de los lotes vivos.
// No es incremental: recorre todos los lotes vivos en cada llamada.
type CostingEngine struct{}

// NewCostingEngine construye el motor de costeo.
func NewCostingEngine() *CostingEngine {
	return &CostingEngine{}
}

// Recompute recalcula y guarda el costo del producto. Debe correr en la misma tx que mutó los lotes.
func (e *CostingEngine) Recompute(ctx context.Context, repos Repos, productID string) (decimal.Decimal, error) {
	batches, err := repos.Batches.ListLive(ctx, productID)
	if err != nil {
		return decimal.Zero, err
	}
	cost := inventory.WeightedAverageCost(batches)
	if err := repos.Products.UpdateCost(ctx, productID, cost); err != nil {
		return decimal.Zero, fmt.Errorf("recompute cost %s: %w", productID, err)
	}
	return cost, nil
}
