package inventory_test

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jhoicas/retail-pos/internal/domain"
	"github.com/jhoicas/retail-pos/internal/domain/entity"
	"github.com/jhoicas/retail-pos/internal/domain/inventory"
)

var t0 = time.Date(2024, 3, 1, 8, 0, 0, 0, time.UTC)

func batch(id string, received, remaining int, cost string, at time.Time) entity.InventoryBatch {
	return entity.InventoryBatch{
		ID:                id,
		ProductID:         "p1",
		QuantityReceived:  received,
		QuantityRemaining: remaining,
		UnitCost:          decimal.RequireFromString(cost),
		ReceivedAt:        at,
	}
}

// ──────────────────────────────────────────────────────────────────────────────
// Costo promedio ponderado
// ──────────────────────────────────────────────────────────────────────────────

func TestWeightedAverageCost_DosLotes(t *testing.T) {
	batches := []entity.InventoryBatch{
		batch("b1", 10, 10, "5", t0),
		batch("b2", 5, 5, "8", t0.Add(time.Hour)),
	}
	got := inventory.WeightedAverageCost(batches)
	assert.True(t, got.Equal(decimal.NewFromInt(6)), "(10*5 + 5*8)/15 = 6, obtenido %s", got)
}

func TestWeightedAverageCost_IgnoraLotesAgotados(t *testing.T) {
	batches := []entity.InventoryBatch{
		batch("b1", 10, 0, "100", t0),
		batch("b2", 4, 4, "2.5", t0.Add(time.Hour)),
	}
	assert.True(t, inventory.WeightedAverageCost(batches).Equal(decimal.RequireFromString("2.5")))
}

func TestWeightedAverageCost_SinLotesEsCero(t *testing.T) {
	assert.True(t, inventory.WeightedAverageCost(nil).IsZero())
	assert.True(t, inventory.WeightedAverageCost([]entity.InventoryBatch{batch("b1", 3, 0, "9", t0)}).IsZero())
}

func TestWeightedAverageCost_RedondeaACuatroDecimales(t *testing.T) {
	batches := []entity.InventoryBatch{
		batch("b1", 1, 1, "1", t0),
		batch("b2", 2, 2, "2", t0),
	}
	// 5/3 = 1.6666...
	assert.Equal(t, "1.6667", inventory.WeightedAverageCost(batches).String())
}

// ──────────────────────────────────────────────────────────────────────────────
// Consumo FIFO
// ──────────────────────────────────────────────────────────────────────────────

func TestPlanFIFO_ConsumeDelMasAntiguo(t *testing.T) {
	batches := []entity.InventoryBatch{
		batch("t2", 10, 10, "6", t0.Add(24*time.Hour)),
		batch("t1", 10, 10, "4", t0),
	}
	plan, err := inventory.PlanFIFO(batches, 15)
	require.NoError(t, err)

	assert.True(t, plan.TotalCost.Equal(decimal.NewFromInt(70)), "10*4 + 5*6 = 70, obtenido %s", plan.TotalCost)
	assert.True(t, plan.FullyFulfilled())
	require.Len(t, plan.Deductions, 2)
	assert.Equal(t, "t1", plan.Deductions[0].BatchID)
	assert.Equal(t, 0, plan.Deductions[0].RemainingLeft)
	assert.Equal(t, "t2", plan.Deductions[1].BatchID)
	assert.Equal(t, 5, plan.Deductions[1].RemainingLeft)

	// El plan no muta la entrada
	assert.Equal(t, 10, batches[0].QuantityRemaining)
	assert.Equal(t, 10, batches[1].QuantityRemaining)
}

func TestPlanFIFO_EmpateEnFechaConservaOrdenDeEntrada(t *testing.T) {
	batches := []entity.InventoryBatch{
		batch("b", 5, 5, "2", t0),
		batch("a", 5, 5, "1", t0),
	}
	plan, err := inventory.PlanFIFO(batches, 3)
	require.NoError(t, err)
	require.Len(t, plan.Deductions, 1)
	assert.Equal(t, "b", plan.Deductions[0].BatchID)
}

func TestPlanFIFO_Faltante(t *testing.T) {
	batches := []entity.InventoryBatch{batch("b1", 4, 4, "3", t0)}
	plan, err := inventory.PlanFIFO(batches, 10)
	require.NoError(t, err)

	assert.False(t, plan.FullyFulfilled())
	assert.Equal(t, 4, plan.Consumed)
	assert.Equal(t, 6, plan.Shortfall)
	assert.True(t, plan.TotalCost.Equal(decimal.NewFromInt(12)))
	assert.True(t, plan.AverageUnitCost().Equal(decimal.NewFromInt(3)))
}

func TestPlanFIFO_SinLotes(t *testing.T) {
	plan, err := inventory.PlanFIFO(nil, 2)
	require.NoError(t, err)
	assert.Empty(t, plan.Deductions)
	assert.Equal(t, 2, plan.Shortfall)
	assert.True(t, plan.AverageUnitCost().IsZero())
}

func TestPlanFIFO_CantidadInvalida(t *testing.T) {
	for _, q := range []int{0, -3} {
		_, err := inventory.PlanFIFO([]entity.InventoryBatch{batch("b1", 1, 1, "1", t0)}, q)
		assert.ErrorIs(t, err, domain.ErrInvalidInput)
	}
}

// ──────────────────────────────────────────────────────────────────────────────
// Valoración
// ──────────────────────────────────────────────────────────────────────────────

func TestValuate_TotalYDetalle(t *testing.T) {
	batches := []entity.InventoryBatch{
		batch("b1", 10, 0, "4", t0),
		batch("b2", 10, 5, "6", t0.Add(time.Hour)),
		batch("b3", 2, 2, "10.5", t0.Add(2*time.Hour)),
	}
	v := inventory.Valuate(batches, map[string]string{"p1": "Café 500g"})

	assert.True(t, v.TotalValue.Equal(decimal.NewFromInt(51)), "5*6 + 2*10.5 = 51")
	assert.Equal(t, 7, v.TotalQuantity)
	require.Len(t, v.PerBatch, 2)
	assert.Equal(t, "Café 500g", v.PerBatch[0].ProductName)
	assert.True(t, v.PerBatch[1].TotalValue.Equal(decimal.NewFromInt(21)))
}
