package inventory_test

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/sync/errgroup"

	"github.com/jhoicas/retail-pos/internal/application/dto"
	"github.com/jhoicas/retail-pos/internal/application/inventory"
	"github.com/jhoicas/retail-pos/internal/domain"
	"github.com/jhoicas/retail-pos/internal/domain/entity"
	"github.com/jhoicas/retail-pos/internal/infrastructure/memory"
)

// ──────────────────────────────────────────────────────────────────────────────
// Helpers de test
// ──────────────────────────────────────────────────────────────────────────────

const (
	testProductID = "00000000-0000-0000-0000-0000000000a1"
	testUserID    = "00000000-0000-0000-0000-000000000001"
	testUnknownID = "00000000-0000-0000-0000-00000000ffff"
)

// stepClock reloj que avanza un minuto por lectura: cada lote queda con un ReceivedAt distinto.
type stepClock struct {
	mu  sync.Mutex
	now time.Time
}

func newStepClock() *stepClock {
	return &stepClock{now: time.Date(2024, 3, 1, 8, 0, 0, 0, time.UTC)}
}

func (c *stepClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(time.Minute)
	return c.now
}

// recordingObserver guarda los eventos reportados por el coordinador.
type recordingObserver struct {
	mu        sync.Mutex
	ops       map[string]int
	failures  map[string]int
	shortfall int
}

func newRecordingObserver() *recordingObserver {
	return &recordingObserver{ops: map[string]int{}, failures: map[string]int{}}
}

func (o *recordingObserver) MutationCompleted(op string, err error) {
	o.mu.Lock()
	defer o.mu.Unlock()
	if err != nil {
		o.failures[op]++
		return
	}
	o.ops[op]++
}

func (o *recordingObserver) FIFOShortfall(missing int) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.shortfall += missing
}

type fixture struct {
	store    *memory.Store
	coord    *inventory.StockCoordinator
	observer *recordingObserver
}

func newFixture(t *testing.T, strict bool) *fixture {
	t.Helper()
	store := memory.NewStore()
	observer := newRecordingObserver()
	coord := inventory.NewStockCoordinator(store, inventory.CoordinatorConfig{
		StrictFIFO: strict,
		Observer:   observer,
		Clock:      newStepClock().Now,
	})
	return &fixture{store: store, coord: coord, observer: observer}
}

func (f *fixture) seedProduct(t *testing.T, id string, stock int, cost string) {
	t.Helper()
	err := f.store.Repos().Products.Create(context.Background(), &entity.Product{
		ID:           id,
		Name:         "Café molido 500g",
		SKU:          "SKU-" + id[len(id)-4:],
		Price:        decimal.NewFromInt(20),
		CostPrice:    decimal.RequireFromString(cost),
		Stock:        stock,
		ReorderLevel: 5,
	})
	require.NoError(t, err)
}

func (f *fixture) product(t *testing.T, id string) *entity.Product {
	t.Helper()
	p, err := f.store.Repos().Products.GetByID(context.Background(), id)
	require.NoError(t, err)
	require.NotNil(t, p)
	return p
}

func (f *fixture) stockIn(t *testing.T, qty int, cost string) *dto.StockMutationResponse {
	t.Helper()
	c := decimal.RequireFromString(cost)
	res, err := f.coord.StockIn(context.Background(), testUserID, dto.StockInRequest{
		ProductID: testProductID,
		Quantity:  qty,
		UnitCost:  &c,
	})
	require.NoError(t, err)
	return res
}

// assertLedgerConsistent verifica stock == Σ remanentes y 0 <= remanente <= recibido en cada lote.
func (f *fixture) assertLedgerConsistent(t *testing.T, productID string) {
	t.Helper()
	sum := 0
	for _, b := range f.store.AllBatches(productID) {
		assert.GreaterOrEqual(t, b.QuantityRemaining, 0, "lote %s con remanente negativo", b.ID)
		assert.LessOrEqual(t, b.QuantityRemaining, b.QuantityReceived, "lote %s con remanente mayor a lo recibido", b.ID)
		sum += b.QuantityRemaining
	}
	assert.Equal(t, sum, f.product(t, productID).Stock, "stock agregado debe coincidir con el libro de lotes")
}

func dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

// ──────────────────────────────────────────────────────────────────────────────
// Entradas de stock
// ──────────────────────────────────────────────────────────────────────────────

func TestStockIn_CreaLoteYRecalculaCosto(t *testing.T) {
	f := newFixture(t, false)
	f.seedProduct(t, testProductID, 0, "0")

	first := f.stockIn(t, 10, "5")
	assert.Equal(t, 10, first.Stock)
	assert.True(t, first.CostPrice.Equal(dec("5")))
	assert.NotEmpty(t, first.BatchID)
	assert.True(t, first.TotalCost.Equal(dec("50")))

	second := f.stockIn(t, 5, "8")
	assert.Equal(t, 15, second.Stock)
	assert.True(t, second.CostPrice.Equal(dec("6")), "(10*5 + 5*8)/15 = 6, obtenido %s", second.CostPrice)

	logs := f.store.Logs()
	require.Len(t, logs, 2)
	assert.Equal(t, entity.StockLogIn, logs[0].Type)
	assert.Equal(t, "Reposición de stock", logs[0].Reason)
	assert.Equal(t, testUserID, logs[0].CreatedBy)
	f.assertLedgerConsistent(t, testProductID)
	assert.Equal(t, 2, f.observer.ops[inventory.OpStockIn])
}

func TestStockIn_SinCostoUsaCostoVigente(t *testing.T) {
	f := newFixture(t, false)
	f.seedProduct(t, testProductID, 0, "7.5")

	res, err := f.coord.StockIn(context.Background(), testUserID, dto.StockInRequest{
		ProductID: testProductID,
		Quantity:  4,
		Reason:    "Conteo inicial",
	})
	require.NoError(t, err)
	assert.True(t, res.CostPrice.Equal(dec("7.5")))

	batches := f.store.AllBatches(testProductID)
	require.Len(t, batches, 1)
	assert.True(t, batches[0].UnitCost.Equal(dec("7.5")))
	assert.Equal(t, "Conteo inicial", f.store.Logs()[0].Reason)
}

func TestStockIn_ValidaEntrada(t *testing.T) {
	f := newFixture(t, false)
	f.seedProduct(t, testProductID, 0, "0")

	_, err := f.coord.StockIn(context.Background(), testUserID, dto.StockInRequest{ProductID: testProductID, Quantity: 0})
	assert.ErrorIs(t, err, domain.ErrInvalidInput)

	neg := dec("-1")
	_, err = f.coord.StockIn(context.Background(), testUserID, dto.StockInRequest{ProductID: testProductID, Quantity: 1, UnitCost: &neg})
	assert.ErrorIs(t, err, domain.ErrInvalidInput)

	_, err = f.coord.StockIn(context.Background(), testUserID, dto.StockInRequest{ProductID: testUnknownID, Quantity: 1})
	assert.ErrorIs(t, err, domain.ErrNotFound)

	assert.Empty(t, f.store.AllBatches(""))
	assert.Empty(t, f.store.Logs())
}

func TestStockIn_CostoConEscalaDeLaColumna(t *testing.T) {
	f := newFixture(t, false)
	f.seedProduct(t, testProductID, 0, "0")

	res := f.stockIn(t, 10, "0.1235")
	batches := f.store.AllBatches(testProductID)
	require.Len(t, batches, 1)
	logs := f.store.Logs()
	require.Len(t, logs, 1)
	require.NotNil(t, logs[0].UnitCost)

	assert.True(t, batches[0].UnitCost.Equal(dec("0.1235")))
	assert.True(t, logs[0].UnitCost.Equal(batches[0].UnitCost), "bitácora y lote con el mismo costo")
	assert.True(t, res.TotalCost.Equal(batches[0].Value()), "TotalCost %s = valor del lote %s", res.TotalCost, batches[0].Value())
	assert.True(t, res.TotalCost.Equal(dec("1.235")))

	fiveDecimals := dec("0.12345")
	_, err := f.coord.StockIn(context.Background(), testUserID, dto.StockInRequest{
		ProductID: testProductID,
		Quantity:  10,
		UnitCost:  &fiveDecimals,
	})
	assert.ErrorIs(t, err, domain.ErrInvalidInput, "más decimales de los que guarda la columna")
	assert.Len(t, f.store.AllBatches(testProductID), 1)
	assert.Len(t, f.store.Logs(), 1)
}

func TestAddBatch_RedondeaCostoUnitario(t *testing.T) {
	f := newFixture(t, false)
	f.seedProduct(t, testProductID, 0, "0")

	var batch *entity.InventoryBatch
	err := f.store.Run(context.Background(), func(ctx context.Context, repos inventory.Repos) error {
		var err error
		batch, err = f.coord.Ledger().AddBatch(ctx, repos, inventory.NewBatch{
			ProductID: testProductID,
			Quantity:  10,
			UnitCost:  dec("0.12345"),
		})
		return err
	})
	require.NoError(t, err)

	stored := f.store.AllBatches(testProductID)
	require.Len(t, stored, 1)
	assert.True(t, batch.UnitCost.Equal(dec("0.1235")), "obtenido %s", batch.UnitCost)
	assert.True(t, stored[0].UnitCost.Equal(batch.UnitCost))
	assert.True(t, f.product(t, testProductID).CostPrice.Equal(dec("0.1235")))
}

// ──────────────────────────────────────────────────────────────────────────────
// Salidas y ventas (FIFO)
// ──────────────────────────────────────────────────────────────────────────────

func TestConsumeForSale_CostoFIFO(t *testing.T) {
	f := newFixture(t, false)
	f.seedProduct(t, testProductID, 0, "0")
	f.stockIn(t, 10, "4")
	f.stockIn(t, 10, "6")

	cogs, err := f.coord.ConsumeForSale(context.Background(), testProductID, 15)
	require.NoError(t, err)
	assert.True(t, cogs.Equal(dec("70")), "10*4 + 5*6 = 70, obtenido %s", cogs)

	batches := f.store.AllBatches(testProductID)
	require.Len(t, batches, 2)
	assert.Equal(t, 0, batches[0].QuantityRemaining)
	assert.Equal(t, 5, batches[1].QuantityRemaining)

	p := f.product(t, testProductID)
	assert.Equal(t, 5, p.Stock)
	assert.True(t, p.CostPrice.Equal(dec("6")), "solo queda el lote a 6")

	logs := f.store.Logs()
	last := logs[len(logs)-1]
	assert.Equal(t, entity.StockLogOut, last.Type)
	assert.Equal(t, "Venta", last.Reason)
	assert.Equal(t, 15, last.Quantity)
	f.assertLedgerConsistent(t, testProductID)
}

func TestStockOut_RecorreLotesFIFO(t *testing.T) {
	f := newFixture(t, false)
	f.seedProduct(t, testProductID, 0, "0")
	f.stockIn(t, 10, "4")
	f.stockIn(t, 10, "6")

	res, err := f.coord.StockOut(context.Background(), testUserID, dto.StockOutRequest{ProductID: testProductID, Quantity: 12})
	require.NoError(t, err)
	assert.Equal(t, 8, res.Stock)
	assert.True(t, res.TotalCost.Equal(dec("52")))
	assert.Zero(t, res.Shortfall)

	last := f.store.Logs()[2]
	assert.Equal(t, "Reducción manual de stock", last.Reason)
	require.NotNil(t, last.UnitCost)
	assert.True(t, last.UnitCost.Equal(dec("4.3333")), "52/12 redondeado a 4 decimales")
	f.assertLedgerConsistent(t, testProductID)
}

func TestStockOut_StockInsuficienteNoCambiaNada(t *testing.T) {
	f := newFixture(t, false)
	f.seedProduct(t, testProductID, 0, "0")
	f.stockIn(t, 3, "4")
	before := f.store.AllBatches(testProductID)
	logsBefore := len(f.store.Logs())

	_, err := f.coord.StockOut(context.Background(), testUserID, dto.StockOutRequest{ProductID: testProductID, Quantity: 4})
	require.ErrorIs(t, err, domain.ErrInsufficientStock)

	assert.Equal(t, 3, f.product(t, testProductID).Stock)
	assert.Equal(t, before, f.store.AllBatches(testProductID))
	assert.Len(t, f.store.Logs(), logsBefore)
	assert.Equal(t, 1, f.observer.failures[inventory.OpStockOut])
}

func TestConsumeForSale_FalloEnBitacoraRevierteTodo(t *testing.T) {
	f := newFixture(t, false)
	f.seedProduct(t, testProductID, 0, "0")
	f.stockIn(t, 10, "4")
	f.stockIn(t, 10, "6")
	before := f.store.AllBatches(testProductID)
	costBefore := f.product(t, testProductID).CostPrice

	injected := errors.New("disco lleno")
	f.store.FailOn(memory.OpStockLogCreate, injected)

	_, err := f.coord.ConsumeForSale(context.Background(), testProductID, 15)
	require.ErrorIs(t, err, injected)

	p := f.product(t, testProductID)
	assert.Equal(t, 20, p.Stock, "no debe quedar decremento parcial")
	assert.True(t, p.CostPrice.Equal(costBefore))
	assert.Equal(t, before, f.store.AllBatches(testProductID))

	f.store.FailOn(memory.OpStockLogCreate, nil)
	_, err = f.coord.ConsumeForSale(context.Background(), testProductID, 15)
	require.NoError(t, err)
	f.assertLedgerConsistent(t, testProductID)
}

func TestConsumeForSale_VentasConcurrentesNoSobrevenden(t *testing.T) {
	f := newFixture(t, false)
	f.seedProduct(t, testProductID, 0, "0")
	f.stockIn(t, 10, "5")

	var ok, rejected atomic.Int32
	var g errgroup.Group
	for i := 0; i < 15; i++ {
		g.Go(func() error {
			_, err := f.coord.ConsumeForSale(context.Background(), testProductID, 1)
			switch {
			case err == nil:
				ok.Add(1)
			case errors.Is(err, domain.ErrInsufficientStock):
				rejected.Add(1)
			default:
				return err
			}
			return nil
		})
	}
	require.NoError(t, g.Wait())

	assert.Equal(t, int32(10), ok.Load())
	assert.Equal(t, int32(5), rejected.Load())
	assert.Equal(t, 0, f.product(t, testProductID).Stock)
	f.assertLedgerConsistent(t, testProductID)
}

// Stock heredado sin lotes: en modo permisivo la venta procede y se reporta la diferencia.
func TestConsumeForSale_FaltanteEnLotesModoPermisivo(t *testing.T) {
	f := newFixture(t, false)
	f.seedProduct(t, testProductID, 5, "3")
	f.stockIn(t, 2, "4")

	cogs, err := f.coord.ConsumeForSale(context.Background(), testProductID, 6)
	require.NoError(t, err)
	assert.True(t, cogs.Equal(dec("8")), "solo se costea lo que cubren los lotes")
	assert.Equal(t, 1, f.product(t, testProductID).Stock)
	assert.Equal(t, 4, f.observer.shortfall)
}

func TestConsumeForSale_FaltanteEnLotesModoEstricto(t *testing.T) {
	f := newFixture(t, true)
	f.seedProduct(t, testProductID, 5, "3")
	f.stockIn(t, 2, "4")

	_, err := f.coord.ConsumeForSale(context.Background(), testProductID, 6)
	require.ErrorIs(t, err, domain.ErrDataInconsistency)
	assert.Equal(t, 7, f.product(t, testProductID).Stock)
	assert.Equal(t, 2, f.store.AllBatches(testProductID)[0].QuantityRemaining)
}

// ──────────────────────────────────────────────────────────────────────────────
// Recepción de órdenes de compra
// ──────────────────────────────────────────────────────────────────────────────

const (
	testOtherProductID = "00000000-0000-0000-0000-0000000000a2"
	testSupplierID     = "00000000-0000-0000-0000-0000000000e1"
	testOrderID        = "00000000-0000-0000-0000-0000000000e2"
)

func (f *fixture) seedPaidOrder(t *testing.T) {
	t.Helper()
	ctx := context.Background()
	repos := f.store.Repos()
	require.NoError(t, repos.Suppliers.Create(ctx, &entity.Supplier{ID: testSupplierID, Name: "Distribuidora Andina"}))
	require.NoError(t, repos.PurchaseOrders.Create(ctx, &entity.PurchaseOrder{
		ID:         testOrderID,
		SupplierID: testSupplierID,
		Status:     entity.PurchaseStatusPaid,
		Items: []entity.PurchaseItem{
			{ID: "item-1", PurchaseOrderID: testOrderID, ProductID: testProductID, Quantity: 10, UnitPrice: dec("4")},
			{ID: "item-2", PurchaseOrderID: testOrderID, ProductID: testOtherProductID, Quantity: 6, UnitPrice: dec("2.5")},
		},
	}))
}

func (f *fixture) receive(t *testing.T, itemID string, qty int) (*entity.PurchaseOrder, error) {
	t.Helper()
	return f.coord.ReceivePurchaseGoods(context.Background(), testUserID, dto.ReceiveGoodsRequest{
		OrderID:     testOrderID,
		ItemID:      itemID,
		ReceivedQty: qty,
	})
}

func TestReceivePurchaseGoods_RecepcionParcialHastaCompletar(t *testing.T) {
	f := newFixture(t, false)
	f.seedProduct(t, testProductID, 0, "0")
	f.seedProduct(t, testOtherProductID, 0, "0")
	f.seedPaidOrder(t)

	steps := []struct {
		item   string
		qty    int
		status entity.PurchaseStatus
	}{
		{"item-1", 5, entity.PurchaseStatusPaid},
		{"item-2", 3, entity.PurchaseStatusPaid},
		{"item-1", 5, entity.PurchaseStatusPaid},
		{"item-2", 3, entity.PurchaseStatusReceived},
	}
	for _, s := range steps {
		order, err := f.receive(t, s.item, s.qty)
		require.NoError(t, err)
		assert.Equal(t, s.status, order.Status)
		for _, it := range order.Items {
			assert.LessOrEqual(t, it.ReceivedQty, it.Quantity)
		}
	}

	order, err := f.store.Repos().PurchaseOrders.GetByID(context.Background(), testOrderID)
	require.NoError(t, err)
	require.NotNil(t, order.ReceivedAt)

	p := f.product(t, testProductID)
	assert.Equal(t, 10, p.Stock)
	assert.True(t, p.CostPrice.Equal(dec("4")))
	batches := f.store.AllBatches(testProductID)
	require.Len(t, batches, 2)
	assert.Equal(t, testOrderID, batches[0].PurchaseOrderID)
	assert.Equal(t, testSupplierID, batches[0].SupplierID)
	f.assertLedgerConsistent(t, testProductID)
	f.assertLedgerConsistent(t, testOtherProductID)
}

func TestReceivePurchaseGoods_CostoPasaPorPromedio(t *testing.T) {
	f := newFixture(t, false)
	f.seedProduct(t, testProductID, 0, "0")
	f.seedProduct(t, testOtherProductID, 0, "0")
	f.stockIn(t, 10, "6")
	f.seedPaidOrder(t)

	_, err := f.receive(t, "item-1", 10)
	require.NoError(t, err)
	assert.True(t, f.product(t, testProductID).CostPrice.Equal(dec("5")), "(10*6 + 10*4)/20 = 5")
}

func TestReceivePurchaseGoods_RechazaExcesoYEstadoInvalido(t *testing.T) {
	f := newFixture(t, false)
	f.seedProduct(t, testProductID, 0, "0")
	f.seedProduct(t, testOtherProductID, 0, "0")
	f.seedPaidOrder(t)

	_, err := f.receive(t, "item-1", 11)
	assert.ErrorIs(t, err, domain.ErrInvalidState)

	_, err = f.receive(t, "item-x", 1)
	assert.ErrorIs(t, err, domain.ErrNotFound)

	_, err = f.receive(t, "item-1", 10)
	require.NoError(t, err)
	_, err = f.receive(t, "item-2", 6)
	require.NoError(t, err)

	_, err = f.receive(t, "item-1", 1)
	assert.ErrorIs(t, err, domain.ErrInvalidState, "una orden RECEIVED ya no admite recepciones")
	assert.Equal(t, 10, f.product(t, testProductID).Stock)
}

// ──────────────────────────────────────────────────────────────────────────────
// Ajustes y migración
// ──────────────────────────────────────────────────────────────────────────────

func TestAdjustBatch_MueveStockYBitacora(t *testing.T) {
	f := newFixture(t, false)
	f.seedProduct(t, testProductID, 0, "0")
	first := f.stockIn(t, 10, "4")
	f.stockIn(t, 10, "8")

	batch, err := f.coord.AdjustBatch(context.Background(), testUserID, dto.AdjustBatchRequest{
		BatchID:      first.BatchID,
		NewRemaining: 7,
		Reason:       "Producto dañado",
	})
	require.NoError(t, err)
	assert.Equal(t, 7, batch.QuantityRemaining)

	p := f.product(t, testProductID)
	assert.Equal(t, 17, p.Stock)
	assert.True(t, p.CostPrice.Equal(dec("6.3529")), "(7*4 + 10*8)/17 redondeado")

	last := f.store.Logs()[2]
	assert.Equal(t, entity.StockLogOut, last.Type)
	assert.Equal(t, 3, last.Quantity)
	assert.Equal(t, "Producto dañado", last.Reason)

	_, err = f.coord.AdjustBatch(context.Background(), testUserID, dto.AdjustBatchRequest{BatchID: first.BatchID, NewRemaining: 9})
	require.NoError(t, err)
	assert.Equal(t, 19, f.product(t, testProductID).Stock)
	assert.Equal(t, entity.StockLogIn, f.store.Logs()[3].Type)
	f.assertLedgerConsistent(t, testProductID)
}

func TestAdjustBatch_FueraDeRango(t *testing.T) {
	f := newFixture(t, false)
	f.seedProduct(t, testProductID, 0, "0")
	res := f.stockIn(t, 10, "4")

	_, err := f.coord.AdjustBatch(context.Background(), testUserID, dto.AdjustBatchRequest{BatchID: res.BatchID, NewRemaining: 11})
	assert.ErrorIs(t, err, domain.ErrInvalidState)

	_, err = f.coord.AdjustBatch(context.Background(), testUserID, dto.AdjustBatchRequest{BatchID: res.BatchID, NewRemaining: -1})
	assert.ErrorIs(t, err, domain.ErrInvalidState, "ambos extremos del rango fallan igual")
	assert.NotErrorIs(t, err, domain.ErrInvalidInput)

	_, err = f.coord.AdjustBatch(context.Background(), "cajero-1", dto.AdjustBatchRequest{BatchID: res.BatchID, NewRemaining: 5})
	assert.ErrorIs(t, err, domain.ErrInvalidInput, "el actor debe ser un UUID")

	_, err = f.coord.AdjustBatch(context.Background(), testUserID, dto.AdjustBatchRequest{BatchID: testUnknownID, NewRemaining: 1})
	assert.ErrorIs(t, err, domain.ErrNotFound)
	assert.Equal(t, 10, f.product(t, testProductID).Stock)
}

func TestBackfillUntrackedStock_CreaLoteDeMigracion(t *testing.T) {
	f := newFixture(t, false)
	f.seedProduct(t, testProductID, 12, "3.5")
	f.stockIn(t, 2, "3.5")

	batch, err := f.coord.BackfillUntrackedStock(context.Background(), testProductID)
	require.NoError(t, err)
	require.NotNil(t, batch)
	assert.Equal(t, 12, batch.QuantityReceived)
	assert.Equal(t, "MIGRATION-"+testProductID, batch.BatchNumber)
	assert.True(t, batch.UnitCost.Equal(dec("3.5")))
	assert.Equal(t, 14, f.product(t, testProductID).Stock, "la migración no cambia el stock")
	f.assertLedgerConsistent(t, testProductID)

	again, err := f.coord.BackfillUntrackedStock(context.Background(), testProductID)
	require.NoError(t, err)
	assert.Nil(t, again, "sin stock pendiente no se crea lote")
}
