package repository

import (
	"context"

	"github.com/jhoicas/retail-pos/internal/domain/entity"
)

// InventoryBatchRepository define el puerto del libro de lotes. Los lotes nunca se borran.
type InventoryBatchRepository interface {
	Create(ctx context.Context, batch *entity.InventoryBatch) error
	GetByID(ctx context.Context, id string) (*entity.InventoryBatch, error)
	// ListLive lotes con QuantityRemaining > 0 ordenados por ReceivedAt ascendente (vista FIFO).
	// productID vacío devuelve los lotes vivos de todos los productos.
	ListLive(ctx context.Context, productID string) ([]entity.InventoryBatch, error)
	UpdateRemaining(ctx context.Context, id string, remaining int) error
}
