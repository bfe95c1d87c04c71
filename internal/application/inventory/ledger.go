package inventory

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jhoicas/retail-pos/internal/domain"
	"github.com/jhoicas/retail-pos/internal/domain/entity"
	"github.com/jhoicas/retail-pos/internal/domain/inventory"
	"github.com/shopspring/decimal"
)

// NewBatch datos de una recepción de inventario.
type NewBatch struct {
	ProductID       string
	Quantity        int
	UnitCost        decimal.Decimal
	PurchaseOrderID string
	SupplierID      string
	BatchNumber     string
	ExpiresAt       *time.Time
}

// BatchLedger registra las entradas de inventario por lote. Los lotes no se borran.
// El stock agregado del producto lo mueve el coordinador, no el libro.
type BatchLedger struct {
	costing *CostingEngine
	now     func() time.Time
}

// NewBatchLedger construye el libro de lotes.
func NewBatchLedger(costing *CostingEngine, clock func() time.Time) *BatchLedger {
	if clock == nil {
		clock = time.Now
	}
	return &BatchLedger{costing: costing, now: clock}
}

// AddBatch crea un lote con QuantityRemaining = Quantity y recalcula el costo del producto.
// El costo unitario se guarda con CostScale decimales, la misma escala de la columna.
func (l *BatchLedger) AddBatch(ctx context.Context, repos Repos, in NewBatch) (*entity.InventoryBatch, error) {
	if in.ProductID == "" || in.Quantity <= 0 {
		return nil, fmt.Errorf("%w: el lote requiere producto y cantidad positiva", domain.ErrInvalidInput)
	}
	if in.UnitCost.IsNegative() {
		return nil, fmt.Errorf("%w: costo unitario negativo", domain.ErrInvalidInput)
	}
	batch := &entity.InventoryBatch{
		ID:                uuid.New().String(),
		ProductID:         in.ProductID,
		QuantityReceived:  in.Quantity,
		QuantityRemaining: in.Quantity,
		UnitCost:          in.UnitCost.Round(inventory.CostScale),
		ReceivedAt:        l.now().UTC(),
		PurchaseOrderID:   in.PurchaseOrderID,
		SupplierID:        in.SupplierID,
		BatchNumber:       in.BatchNumber,
		ExpiresAt:         in.ExpiresAt,
	}
	if err := repos.Batches.Create(ctx, batch); err != nil {
		return nil, err
	}
	if _, err := l.costing.Recompute(ctx, repos, in.ProductID); err != nil {
		return nil, err
	}
	return batch, nil
}

// AdjustBatch fija QuantityRemaining (ajuste manual por daño, pérdida o conteo) y recalcula el costo.
// Devuelve el lote actualizado y la variación aplicada (nuevo - anterior).
func (l *BatchLedger) AdjustBatch(ctx context.Context, repos Repos, batchID string, newRemaining int) (*entity.InventoryBatch, int, error) {
	batch, err := repos.Batches.GetByID(ctx, batchID)
	if err != nil {
		return nil, 0, err
	}
	if batch == nil {
		return nil, 0, fmt.Errorf("%w: lote %s", domain.ErrNotFound, batchID)
	}
	if newRemaining < 0 || newRemaining > batch.QuantityReceived {
		return nil, 0, fmt.Errorf("%w: remanente %d fuera de [0, %d]", domain.ErrInvalidState, newRemaining, batch.QuantityReceived)
	}
	delta := newRemaining - batch.QuantityRemaining
	if delta == 0 {
		return batch, 0, nil
	}
	if err := repos.Batches.UpdateRemaining(ctx, batch.ID, newRemaining); err != nil {
		return nil, 0, err
	}
	batch.QuantityRemaining = newRemaining
	if _, err := l.costing.Recompute(ctx, repos, batch.ProductID); err != nil {
		return nil, 0, err
	}
	return batch, delta, nil
}

// BatchesWithRemaining vista FIFO: lotes vivos del producto, del más antiguo al más reciente.
func (l *BatchLedger) BatchesWithRemaining(ctx context.Context, repos Repos, productID string) ([]entity.InventoryBatch, error) {
	return repos.Batches.ListLive(ctx, productID)
}
