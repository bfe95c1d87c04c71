package repository

import (
	"context"
	"time"

	"github.com/jhoicas/retail-pos/internal/domain/entity"
	"github.com/shopspring/decimal"
)

// PurchaseOrderRepository persiste órdenes de compra con sus líneas.
type PurchaseOrderRepository interface {
	Create(ctx context.Context, order *entity.PurchaseOrder) error
	GetByID(ctx context.Context, id string) (*entity.PurchaseOrder, error)
	// GetForUpdate bloquea la orden (y por extensión sus líneas) hasta el fin de la transacción.
	GetForUpdate(ctx context.Context, id string) (*entity.PurchaseOrder, error)
	UpdateStatus(ctx context.Context, id string, status entity.PurchaseStatus, at time.Time) error
	UpdateItemReceived(ctx context.Context, itemID string, receivedQty int) error
	// List cabeceras de órdenes (sin líneas), más recientes primero, con el total para paginar.
	List(ctx context.Context, filter PurchaseOrderFilter, limit, offset int) ([]*entity.PurchaseOrder, int, error)
	// StatusTotals cantidad y valor de las órdenes agrupadas por estado. Los estados sin órdenes no aparecen.
	StatusTotals(ctx context.Context) ([]PurchaseStatusTotal, error)
}

// PurchaseOrderFilter filtros del listado de órdenes; un campo vacío no filtra.
type PurchaseOrderFilter struct {
	Status     entity.PurchaseStatus
	SupplierID string
}

// PurchaseStatusTotal agregado de órdenes en un estado.
type PurchaseStatusTotal struct {
	Status      entity.PurchaseStatus
	Orders      int
	TotalAmount decimal.Decimal
}

// SupplierRepository puerto de proveedores.
type SupplierRepository interface {
	Create(ctx context.Context, supplier *entity.Supplier) error
	GetByID(ctx context.Context, id string) (*entity.Supplier, error)
	// List proveedores ordenados por nombre, con el total para paginar.
	List(ctx context.Context, limit, offset int) ([]*entity.Supplier, int, error)
	Update(ctx context.Context, supplier *entity.Supplier) error
	Delete(ctx context.Context, id string) error
}
