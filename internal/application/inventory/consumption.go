package inventory

import (
	"context"
	"fmt"

	"github.com/jhoicas/retail-pos/internal/domain"
	"github.com/jhoicas/retail-pos/internal/domain/inventory"
	"github.com/jhoicas/retail-pos/pkg/logger"
	"github.com/shopspring/decimal"
)

// ShortfallPolicy qué hacer cuando los lotes no cubren un consumo que el stock agregado sí permitía.
type ShortfallPolicy int

const (
	// ShortfallLenient registra la discrepancia y costea solo lo disponible (datos heredados sin lotes).
	ShortfallLenient ShortfallPolicy = iota
	// ShortfallStrict rechaza el consumo con domain.ErrDataInconsistency.
	ShortfallStrict
)

// ConsumptionResult resultado de un consumo FIFO aplicado.
type ConsumptionResult struct {
	inventory.ConsumptionPlan
	CostPrice decimal.Decimal // costo promedio del producto después del consumo
}

// FIFOConsumer descuenta unidades de los lotes más antiguos primero y calcula el costo de lo vendido.
type FIFOConsumer struct {
	costing  *CostingEngine
	policy   ShortfallPolicy
	log      *logger.Logger
	observer Observer
}

// NewFIFOConsumer construye el consumidor FIFO.
func NewFIFOConsumer(costing *CostingEngine, policy ShortfallPolicy, log *logger.Logger, observer Observer) *FIFOConsumer {
	if log == nil {
		log = logger.Nop()
	}
	return &FIFOConsumer{costing: costing, policy: policy, log: log.Named("fifo"), observer: observer}
}

// Consume aplica el plan FIFO sobre los lotes del producto y recalcula su costo.
// Debe correr dentro de la tx del caller, con la fila del producto ya bloqueada.
func (c *FIFOConsumer) Consume(ctx context.Context, repos Repos, productID string, quantity int) (ConsumptionResult, error) {
	batches, err := repos.Batches.ListLive(ctx, productID)
	if err != nil {
		return ConsumptionResult{}, err
	}
	plan, err := inventory.PlanFIFO(batches, quantity)
	if err != nil {
		return ConsumptionResult{}, err
	}
	if plan.Shortfall > 0 {
		if c.policy == ShortfallStrict {
			return ConsumptionResult{}, fmt.Errorf("%w: producto %s, faltan %d de %d unidades en lotes",
				domain.ErrDataInconsistency, productID, plan.Shortfall, quantity)
		}
		c.log.Product(productID).Warn().
			Int("requested", quantity).
			Int("missing", plan.Shortfall).
			Msg("lotes insuficientes para el consumo; se costea solo lo disponible")
		if c.observer != nil {
			c.observer.FIFOShortfall(plan.Shortfall)
		}
	}
	for _, d := range plan.Deductions {
		if err := repos.Batches.UpdateRemaining(ctx, d.BatchID, d.RemainingLeft); err != nil {
			return ConsumptionResult{}, err
		}
	}
	cost, err := c.costing.Recompute(ctx, repos, productID)
	if err != nil {
		return ConsumptionResult{}, err
	}
	return ConsumptionResult{ConsumptionPlan: plan, CostPrice: cost}, nil
}
