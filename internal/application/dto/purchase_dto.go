package dto

import (
	"time"

	"github.com/shopspring/decimal"
)

// PurchaseItemRequest línea de una orden de compra.
type PurchaseItemRequest struct {
	ProductID string          `json:"product_id" validate:"required,uuid"`
	Quantity  int             `json:"quantity" validate:"gt=0"`
	UnitPrice decimal.Decimal `json:"unit_price" validate:"gte=0,scale=4"`
}

// CreatePurchaseOrderRequest crea una orden en estado DRAFT.
type CreatePurchaseOrderRequest struct {
	SupplierID string                `json:"supplier_id" validate:"required,uuid"`
	Items      []PurchaseItemRequest `json:"items" validate:"required,min=1,dive"`
	Notes      string                `json:"notes,omitempty" validate:"max=1000"`
}

// ReceiveGoodsRequest recepción (parcial o total) de una línea de la orden.
// IdempotencyKey opcional: reintentos con la misma llave no duplican la recepción.
type ReceiveGoodsRequest struct {
	OrderID        string     `json:"order_id" validate:"required,uuid"`
	ItemID         string     `json:"item_id" validate:"required"`
	ReceivedQty    int        `json:"received_qty" validate:"gt=0"`
	BatchNumber    string     `json:"batch_number,omitempty" validate:"max=64"`
	ExpiresAt      *time.Time `json:"expires_at,omitempty"`
	IdempotencyKey string     `json:"idempotency_key,omitempty" validate:"max=128"`
}

// ListPurchaseOrdersRequest filtros del listado de órdenes.
type ListPurchaseOrdersRequest struct {
	Status     string `query:"status" validate:"omitempty,oneof=DRAFT APPROVED PAID RECEIVED CLOSED CANCELLED"`
	SupplierID string `query:"supplier_id" validate:"omitempty,uuid"`
	PageRequest
}
