// Package memory implementa los repositorios en memoria con transacciones serializadas.
// Se usa en pruebas y en herramientas locales sin base de datos.
package memory

import (
	"context"
	"fmt"
	"sync"

	"github.com/jhoicas/retail-pos/internal/application/inventory"
	"github.com/jhoicas/retail-pos/internal/domain/entity"
)

var _ inventory.TxRunner = (*Store)(nil)

// Operaciones donde FailOn puede inyectar un error.
const (
	OpProductAdjustStock   = "products.adjust_stock"
	OpProductUpdateCost    = "products.update_cost"
	OpBatchCreate          = "batches.create"
	OpBatchUpdateRemaining = "batches.update_remaining"
	OpStockLogCreate       = "stock_logs.create"
	OpSaleCreate           = "sales.create"
	OpOrderUpdateStatus    = "purchase_orders.update_status"
)

// Store guarda el estado completo en memoria. Run trabaja sobre una copia y la publica solo si fn
// no devuelve error (commit); las transacciones se serializan con un mutex, lo que equivale a
// bloquear todas las filas.
type Store struct {
	mu     sync.Mutex
	state  *state
	faults map[string]error
}

// NewStore crea un store vacío.
func NewStore() *Store {
	return &Store{state: newState(), faults: make(map[string]error)}
}

// Run ejecuta fn en una transacción. Con error no queda ningún efecto visible.
func (s *Store) Run(ctx context.Context, fn func(ctx context.Context, repos inventory.Repos) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	working := s.state.clone()
	if err := fn(ctx, newView(working, s.faults, nil).repos()); err != nil {
		return err
	}
	s.state = working
	return nil
}

// Repos repositorios fuera de transacción: cada llamada toma el mutex. No usar dentro de Run.
func (s *Store) Repos() inventory.Repos {
	return newView(nil, s.faults, s).repos()
}

// FailOn hace que la operación op devuelva err hasta que se llame con err nil.
func (s *Store) FailOn(op string, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err == nil {
		delete(s.faults, op)
		return
	}
	s.faults[op] = err
}

// AllBatches todos los lotes del producto (incluidos los agotados) en orden de inserción.
func (s *Store) AllBatches(productID string) []entity.InventoryBatch {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []entity.InventoryBatch
	for _, b := range s.state.batches {
		if productID == "" || b.ProductID == productID {
			out = append(out, b)
		}
	}
	return out
}

// Logs la bitácora completa en orden de inserción.
func (s *Store) Logs() []entity.StockLog {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]entity.StockLog, len(s.state.logs))
	copy(out, s.state.logs)
	return out
}

type state struct {
	products  map[string]entity.Product
	batches   []entity.InventoryBatch
	logs      []entity.StockLog
	sales     map[string]entity.Sale
	orders    map[string]entity.PurchaseOrder
	suppliers map[string]entity.Supplier
}

func newState() *state {
	return &state{
		products:  make(map[string]entity.Product),
		sales:     make(map[string]entity.Sale),
		orders:    make(map[string]entity.PurchaseOrder),
		suppliers: make(map[string]entity.Supplier),
	}
}

func (st *state) clone() *state {
	c := &state{
		products:  make(map[string]entity.Product, len(st.products)),
		batches:   make([]entity.InventoryBatch, len(st.batches)),
		logs:      make([]entity.StockLog, len(st.logs)),
		sales:     make(map[string]entity.Sale, len(st.sales)),
		orders:    make(map[string]entity.PurchaseOrder, len(st.orders)),
		suppliers: make(map[string]entity.Supplier, len(st.suppliers)),
	}
	for k, v := range st.products {
		c.products[k] = v
	}
	copy(c.batches, st.batches)
	copy(c.logs, st.logs)
	for k, v := range st.sales {
		c.sales[k] = cloneSale(v)
	}
	for k, v := range st.orders {
		c.orders[k] = cloneOrder(v)
	}
	for k, v := range st.suppliers {
		c.suppliers[k] = v
	}
	return c
}

func cloneSale(s entity.Sale) entity.Sale {
	items := make([]entity.SaleItem, len(s.Items))
	copy(items, s.Items)
	s.Items = items
	return s
}

func cloneOrder(o entity.PurchaseOrder) entity.PurchaseOrder {
	items := make([]entity.PurchaseItem, len(o.Items))
	copy(items, o.Items)
	o.Items = items
	return o
}

// view da acceso a un estado. Dentro de una tx (store == nil) el mutex ya lo tiene Run;
// fuera de ella cada operación lo toma y lee el estado publicado.
type view struct {
	st     *state
	faults map[string]error
	store  *Store
}

func newView(st *state, faults map[string]error, store *Store) *view {
	return &view{st: st, faults: faults, store: store}
}

// begin devuelve el estado a usar y la función que libera el mutex.
func (v *view) begin() (*state, func()) {
	if v.store == nil {
		return v.st, func() {}
	}
	v.store.mu.Lock()
	return v.store.state, v.store.mu.Unlock
}

func (v *view) fault(op string) error {
	if err, ok := v.faults[op]; ok {
		return fmt.Errorf("%s: %w", op, err)
	}
	return nil
}

func (v *view) repos() inventory.Repos {
	return inventory.Repos{
		Products:       &productRepo{v},
		Batches:        &batchRepo{v},
		StockLogs:      &stockLogRepo{v},
		Sales:          &saleRepo{v},
		PurchaseOrders: &purchaseOrderRepo{v},
		Suppliers:      &supplierRepo{v},
	}
}
