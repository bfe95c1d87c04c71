package dto

import (
	"time"

	"github.com/shopspring/decimal"
)

// StockInRequest entrada manual de stock.
// UnitCost es opcional: si es nil se usa el costo promedio vigente del producto.
// Admite hasta 4 decimales, la escala con que se guardan los costos.
type StockInRequest struct {
	ProductID   string           `json:"product_id" validate:"required,uuid"`
	Quantity    int              `json:"quantity" validate:"gt=0"`
	Reason      string           `json:"reason,omitempty" validate:"max=255"`
	UnitCost    *decimal.Decimal `json:"unit_cost,omitempty" validate:"omitempty,gte=0,scale=4"`
	SupplierID  string           `json:"supplier_id,omitempty" validate:"omitempty,uuid"`
	BatchNumber string           `json:"batch_number,omitempty" validate:"max=64"`
	ExpiresAt   *time.Time       `json:"expires_at,omitempty"`
}

// StockOutRequest salida manual de stock (merma, consumo interno, etc.).
type StockOutRequest struct {
	ProductID string `json:"product_id" validate:"required,uuid"`
	Quantity  int    `json:"quantity" validate:"gt=0"`
	Reason    string `json:"reason,omitempty" validate:"max=255"`
}

// AdjustBatchRequest corrección de un lote (daño, pérdida, conteo físico).
// El rango de NewRemaining depende del lote y lo valida el libro de lotes.
type AdjustBatchRequest struct {
	BatchID      string `json:"batch_id" validate:"required,uuid"`
	NewRemaining int    `json:"new_remaining"`
	Reason       string `json:"reason,omitempty" validate:"max=255"`
}

// StockMutationResponse resultado de un movimiento de stock.
type StockMutationResponse struct {
	ProductID string          `json:"product_id"`
	Stock     int             `json:"stock"`
	CostPrice decimal.Decimal `json:"cost_price"`
	LogID     string          `json:"log_id"`
	BatchID   string          `json:"batch_id,omitempty"`
	TotalCost decimal.Decimal `json:"total_cost"` // costo de las unidades movidas
	Shortfall int             `json:"shortfall,omitempty"`
}

// BatchValuationDTO detalle de valoración por lote.
type BatchValuationDTO struct {
	BatchID     string          `json:"batch_id"`
	ProductID   string          `json:"product_id"`
	ProductName string          `json:"product_name"`
	Quantity    int             `json:"quantity"`
	UnitCost    decimal.Decimal `json:"unit_cost"`
	TotalValue  decimal.Decimal `json:"total_value"`
	ReceivedAt  time.Time       `json:"received_at"`
}

// ValuationResponse valoración del inventario.
type ValuationResponse struct {
	TotalValue    decimal.Decimal     `json:"total_value"`
	TotalQuantity int                 `json:"total_quantity"`
	PerBatch      []BatchValuationDTO `json:"per_batch"`
}

// StockLogDTO entrada de la bitácora.
type StockLogDTO struct {
	ID        string           `json:"id"`
	ProductID string           `json:"product_id"`
	Type      string           `json:"type"`
	Quantity  int              `json:"quantity"`
	Reason    string           `json:"reason"`
	UnitCost  *decimal.Decimal `json:"unit_cost,omitempty"`
	Reference string           `json:"reference,omitempty"`
	CreatedBy string           `json:"created_by,omitempty"`
	CreatedAt time.Time        `json:"created_at"`
}

// StockLogPage listado paginado de la bitácora.
type StockLogPage struct {
	Logs       []StockLogDTO `json:"logs"`
	Pagination PageResponse  `json:"pagination"`
}

// StockHistoryResponse historial de un producto.
type StockHistoryResponse struct {
	ProductID    string        `json:"product_id"`
	ProductName  string        `json:"product_name"`
	SKU          string        `json:"sku"`
	CurrentStock int           `json:"current_stock"`
	History      []StockLogDTO `json:"history"`
	Pagination   PageResponse  `json:"pagination"`
}

// Niveles de alerta de stock bajo.
const (
	AlertCritical = "critical"
	AlertHigh     = "high"
	AlertMedium   = "medium"
)

// LowStockItemDTO producto con stock bajo.
type LowStockItemDTO struct {
	ProductID       string          `json:"product_id"`
	Name            string          `json:"name"`
	SKU             string          `json:"sku"`
	Stock           int             `json:"stock"`
	ReorderLevel    int             `json:"reorder_level"`
	CostPrice       decimal.Decimal `json:"cost_price"`
	AlertLevel      string          `json:"alert_level"`
	StockPercentage int             `json:"stock_percentage"`
}

// LowStockResponse listado de stock bajo con resumen por nivel.
type LowStockResponse struct {
	Products      []LowStockItemDTO `json:"products"`
	Threshold     int               `json:"threshold"`
	CriticalCount int               `json:"critical_count"`
	HighCount     int               `json:"high_count"`
	MediumCount   int               `json:"medium_count"`
	Pagination    PageResponse      `json:"pagination"`
}

// StockHealth porcentaje del catálogo en cada franja de stock.
type StockHealth struct {
	OutOfStock  int `json:"out_of_stock"`
	LowStock    int `json:"low_stock"`
	NormalStock int `json:"normal_stock"`
}

// InventorySummaryResponse resumen del catálogo por franja de stock.
type InventorySummaryResponse struct {
	TotalProducts int         `json:"total_products"`
	TotalStock    int         `json:"total_stock"`
	OutOfStock    int         `json:"out_of_stock"`
	LowStock      int         `json:"low_stock"`
	NormalStock   int         `json:"normal_stock"`
	Threshold     int         `json:"threshold"`
	Health        StockHealth `json:"stock_health"`
}
