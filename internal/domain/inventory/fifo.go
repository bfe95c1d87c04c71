package inventory

import (
	"fmt"
	"sort"

	"github.com/jhoicas/retail-pos/internal/domain"
	"github.com/jhoicas/retail-pos/internal/domain/entity"
	"github.com/shopspring/decimal"
)

// Deduction unidades tomadas de un lote en un consumo FIFO.
type Deduction struct {
	BatchID       string
	Quantity      int
	UnitCost      decimal.Decimal
	RemainingLeft int // QuantityRemaining del lote después del consumo
}

// Cost costo de las unidades tomadas del lote.
func (d Deduction) Cost() decimal.Decimal {
	return decimal.NewFromInt(int64(d.Quantity)).Mul(d.UnitCost)
}

// ConsumptionPlan resultado de PlanFIFO.
type ConsumptionPlan struct {
	Requested  int
	Consumed   int
	Shortfall  int // unidades que los lotes no alcanzaron a cubrir
	TotalCost  decimal.Decimal
	Deductions []Deduction
}

// FullyFulfilled indica si los lotes cubrieron toda la cantidad.
func (p ConsumptionPlan) FullyFulfilled() bool {
	return p.Shortfall == 0
}

// PlanFIFO decide qué lotes se descuentan para consumir quantity unidades, del más antiguo al más reciente.
// No modifica batches. Empates en ReceivedAt conservan el orden de entrada (el repositorio ordena por inserción).
func PlanFIFO(batches []entity.InventoryBatch, quantity int) (ConsumptionPlan, error) {
	if quantity <= 0 {
		return ConsumptionPlan{}, fmt.Errorf("%w: la cantidad a consumir debe ser positiva", domain.ErrInvalidInput)
	}
	ordered := make([]entity.InventoryBatch, 0, len(batches))
	for _, b := range batches {
		if b.IsLive() {
			ordered = append(ordered, b)
		}
	}
	sort.SliceStable(ordered, func(i, j int) bool {
		return ordered[i].ReceivedAt.Before(ordered[j].ReceivedAt)
	})

	plan := ConsumptionPlan{Requested: quantity, TotalCost: decimal.Zero}
	remaining := quantity
	for _, b := range ordered {
		if remaining == 0 {
			break
		}
		take := min(remaining, b.QuantityRemaining)
		d := Deduction{
			BatchID:       b.ID,
			Quantity:      take,
			UnitCost:      b.UnitCost,
			RemainingLeft: b.QuantityRemaining - take,
		}
		plan.Deductions = append(plan.Deductions, d)
		plan.TotalCost = plan.TotalCost.Add(d.Cost())
		remaining -= take
	}
	plan.Consumed = quantity - remaining
	plan.Shortfall = remaining
	return plan, nil
}

// AverageUnitCost costo unitario promedio del consumo; 0 si no se consumió nada.
func (p ConsumptionPlan) AverageUnitCost() decimal.Decimal {
	if p.Consumed == 0 {
		return decimal.Zero
	}
	return p.TotalCost.Div(decimal.NewFromInt(int64(p.Consumed))).Round(CostScale)
}
