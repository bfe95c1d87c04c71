package inventory_test

import (
	"context"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jhoicas/retail-pos/internal/application/dto"
	"github.com/jhoicas/retail-pos/internal/application/inventory"
	"github.com/jhoicas/retail-pos/internal/domain"
	"github.com/jhoicas/retail-pos/internal/domain/entity"
)

func TestValuation_EsIdempotente(t *testing.T) {
	f := newFixture(t, false)
	f.seedProduct(t, testProductID, 0, "0")
	f.stockIn(t, 10, "4")
	f.stockIn(t, 10, "6")
	_, err := f.coord.ConsumeForSale(context.Background(), testProductID, 15)
	require.NoError(t, err)

	q := inventory.NewInventoryQueries(f.store.Repos(), 10)
	first, err := q.Valuation(context.Background(), "")
	require.NoError(t, err)
	second, err := q.Valuation(context.Background(), "")
	require.NoError(t, err)

	assert.True(t, first.TotalValue.Equal(decimal.NewFromInt(30)), "5*6 = 30, obtenido %s", first.TotalValue)
	assert.Equal(t, 5, first.TotalQuantity)
	require.Len(t, first.PerBatch, 1, "los lotes agotados no se valoran")
	assert.Equal(t, "Café molido 500g", first.PerBatch[0].ProductName)
	assert.Equal(t, first, second)
}

func TestStockHistory_PaginaMasRecientePrimero(t *testing.T) {
	f := newFixture(t, false)
	f.seedProduct(t, testProductID, 0, "0")
	f.stockIn(t, 10, "4")
	f.stockIn(t, 2, "4")
	_, err := f.coord.StockOut(context.Background(), testUserID, dto.StockOutRequest{ProductID: testProductID, Quantity: 3})
	require.NoError(t, err)

	q := inventory.NewInventoryQueries(f.store.Repos(), 10)
	h, err := q.StockHistory(context.Background(), testProductID, dto.PageRequest{Limit: 2})
	require.NoError(t, err)
	assert.Equal(t, 9, h.CurrentStock)
	require.Len(t, h.History, 2)
	assert.Equal(t, entity.StockLogOut, h.History[0].Type)
	assert.Equal(t, 3, h.Pagination.Total)
	assert.Equal(t, 2, h.Pagination.Pages)

	_, err = q.StockHistory(context.Background(), "no-existe", dto.PageRequest{})
	assert.ErrorIs(t, err, domain.ErrNotFound)

	page, err := q.StockLogs(context.Background(), "", dto.PageRequest{Limit: 10, Offset: 2})
	require.NoError(t, err)
	require.Len(t, page.Logs, 1)
	assert.Equal(t, 10, page.Logs[0].Quantity)
}

func TestLowStock_NivelesDeAlerta(t *testing.T) {
	f := newFixture(t, false)
	f.seedProduct(t, "00000000-0000-0000-0000-0000000000b1", 0, "1")
	f.seedProduct(t, "00000000-0000-0000-0000-0000000000b2", 5, "1")
	f.seedProduct(t, "00000000-0000-0000-0000-0000000000b3", 8, "1")
	f.seedProduct(t, "00000000-0000-0000-0000-0000000000b4", 30, "1")

	q := inventory.NewInventoryQueries(f.store.Repos(), 10)
	res, err := q.LowStock(context.Background(), nil, dto.PageRequest{})
	require.NoError(t, err)

	assert.Equal(t, 10, res.Threshold)
	require.Len(t, res.Products, 3)
	assert.Equal(t, dto.AlertCritical, res.Products[0].AlertLevel)
	assert.Equal(t, dto.AlertHigh, res.Products[1].AlertLevel)
	assert.Equal(t, 50, res.Products[1].StockPercentage)
	assert.Equal(t, dto.AlertMedium, res.Products[2].AlertLevel)
	assert.Equal(t, 1, res.CriticalCount)
	assert.Equal(t, 1, res.HighCount)
	assert.Equal(t, 1, res.MediumCount)

	negative := -1
	_, err = q.LowStock(context.Background(), &negative, dto.PageRequest{})
	assert.ErrorIs(t, err, domain.ErrInvalidInput)
}

func TestLowStock_UmbralCeroSoloAgotados(t *testing.T) {
	f := newFixture(t, false)
	f.seedProduct(t, "00000000-0000-0000-0000-0000000000b1", 0, "1")
	f.seedProduct(t, "00000000-0000-0000-0000-0000000000b2", 5, "1")

	q := inventory.NewInventoryQueries(f.store.Repos(), 10)
	zero := 0
	res, err := q.LowStock(context.Background(), &zero, dto.PageRequest{})
	require.NoError(t, err)

	assert.Equal(t, 0, res.Threshold, "0 no se reemplaza por el umbral configurado")
	require.Len(t, res.Products, 1)
	assert.Equal(t, "00000000-0000-0000-0000-0000000000b1", res.Products[0].ProductID)
	assert.Equal(t, 1, res.CriticalCount)
}

func TestSummary_FranjasYPorcentajes(t *testing.T) {
	f := newFixture(t, false)
	f.seedProduct(t, "00000000-0000-0000-0000-0000000000b1", 0, "1")
	f.seedProduct(t, "00000000-0000-0000-0000-0000000000b2", 5, "1")
	f.seedProduct(t, "00000000-0000-0000-0000-0000000000b3", 10, "1")
	f.seedProduct(t, "00000000-0000-0000-0000-0000000000b4", 30, "1")

	q := inventory.NewInventoryQueries(f.store.Repos(), 10)
	s, err := q.Summary(context.Background(), nil)
	require.NoError(t, err)

	assert.Equal(t, 4, s.TotalProducts)
	assert.Equal(t, 45, s.TotalStock)
	assert.Equal(t, 1, s.OutOfStock)
	assert.Equal(t, 2, s.LowStock, "el umbral es inclusivo")
	assert.Equal(t, 1, s.NormalStock)
	assert.Equal(t, dto.StockHealth{OutOfStock: 25, LowStock: 50, NormalStock: 25}, s.Health)

	five := 5
	s, err = q.Summary(context.Background(), &five)
	require.NoError(t, err)
	assert.Equal(t, 1, s.LowStock)
	assert.Equal(t, 2, s.NormalStock)
}

func TestSummary_CatalogoVacio(t *testing.T) {
	q := inventory.NewInventoryQueries(newFixture(t, false).store.Repos(), 10)
	s, err := q.Summary(context.Background(), nil)
	require.NoError(t, err)
	assert.Zero(t, s.TotalProducts)
	assert.Equal(t, dto.StockHealth{}, s.Health, "sin productos no hay porcentajes")
}

func TestAlertLevel_MitadRedondeaHaciaArriba(t *testing.T) {
	assert.Equal(t, dto.AlertHigh, inventory.AlertLevel(3, 5), "ceil(5/2) = 3")
	assert.Equal(t, dto.AlertMedium, inventory.AlertLevel(4, 5))
	assert.Equal(t, dto.AlertCritical, inventory.AlertLevel(0, 5))
}
