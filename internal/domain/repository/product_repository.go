package repository

import (
	"context"

	"github.com/jhoicas/retail-pos/internal/domain/entity"
	"github.com/shopspring/decimal"
)

// ProductRepository define el puerto de persistencia para Product (DIP).
// Stock y CostPrice solo se modifican con AdjustStock/UpdateCost, invocados por el coordinador de stock.
type ProductRepository interface {
	Create(ctx context.Context, product *entity.Product) error
	GetByID(ctx context.Context, id string) (*entity.Product, error)
	// GetForUpdate bloquea la fila del producto hasta el fin de la transacción (SELECT FOR UPDATE).
	GetForUpdate(ctx context.Context, id string) (*entity.Product, error)
	AdjustStock(ctx context.Context, id string, delta int) error
	UpdateCost(ctx context.Context, id string, cost decimal.Decimal) error
	// ListBelowThreshold productos con stock <= threshold, ordenados por stock y nombre.
	ListBelowThreshold(ctx context.Context, threshold, limit, offset int) ([]*entity.Product, int, error)
	// ListUntracked productos cuyo stock supera la suma de remanentes de sus lotes.
	ListUntracked(ctx context.Context) ([]UntrackedStock, error)
	// StockSummary cuenta productos por franja: sin stock, 0 < stock <= threshold y por encima.
	StockSummary(ctx context.Context, threshold int) (StockSummary, error)
}

// StockSummary conteos del catálogo por franja de stock.
type StockSummary struct {
	TotalProducts int
	TotalStock    int
	OutOfStock    int
	LowStock      int
	NormalStock   int
}

// UntrackedStock producto con existencias sin lote (datos heredados).
type UntrackedStock struct {
	ProductID string
	Stock     int
	Tracked   int // Σ QuantityRemaining de sus lotes
}

// Untracked unidades sin respaldo en lotes.
func (u UntrackedStock) Untracked() int {
	return u.Stock - u.Tracked
}
