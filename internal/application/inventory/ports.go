package inventory

import (
	"context"

	"github.com/jhoicas/retail-pos/internal/domain/repository"
)

// Repos repositorios atados a una misma transacción (o al pool fuera de ella).
type Repos struct {
	Products       repository.ProductRepository
	Batches        repository.InventoryBatchRepository
	StockLogs      repository.StockLogRepository
	Sales          repository.SaleRepository
	PurchaseOrders repository.PurchaseOrderRepository
	Suppliers      repository.SupplierRepository
}

// TxRunner ejecuta una función dentro de una transacción de BD, pasando repositorios atados a esa tx.
// Si fn devuelve error se hace Rollback y ningún efecto queda visible.
type TxRunner interface {
	Run(ctx context.Context, fn func(ctx context.Context, repos Repos) error) error
}

// Observer recibe eventos del motor de inventario (métricas). Puede ser nil.
type Observer interface {
	MutationCompleted(op string, err error)
	FIFOShortfall(missing int)
}

// Operaciones reportadas al Observer.
const (
	OpStockIn     = "stock_in"
	OpStockOut    = "stock_out"
	OpSale        = "sale"
	OpReceive     = "purchase_receive"
	OpAdjustBatch = "adjust_batch"
	OpBackfill    = "backfill"
)
