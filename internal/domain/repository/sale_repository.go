package repository

import (
	"context"

	"github.com/jhoicas/retail-pos/internal/domain/entity"
)

// SaleRepository persiste ventas con sus líneas.
type SaleRepository interface {
	Create(ctx context.Context, sale *entity.Sale) error
	GetByID(ctx context.Context, id string) (*entity.Sale, error)
}
