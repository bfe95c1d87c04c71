package repository

import (
	"context"

	"github.com/jhoicas/retail-pos/internal/domain/entity"
)

// StockLogRepository bitácora de movimientos (solo inserción).
type StockLogRepository interface {
	Create(ctx context.Context, log *entity.StockLog) error
	// List devuelve los movimientos más recientes primero; productID vacío lista todos.
	List(ctx context.Context, productID string, limit, offset int) ([]*entity.StockLog, int, error)
}
