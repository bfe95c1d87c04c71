package entity

import (
	"time"

	"github.com/shopspring/decimal"
)

// Product representa un producto del catálogo del punto de venta.
// CostPrice y Stock son derivados del libro de lotes: solo los escribe el coordinador de stock.
type Product struct {
	ID           string
	Name         string
	SKU          string
	CategoryID   string          // vacío si no tiene categoría
	Price        decimal.Decimal // precio de venta
	CostPrice    decimal.Decimal // costo promedio ponderado de los lotes vivos
	Stock        int             // existencia agregada
	ReorderLevel int
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// BelowReorder indica si la existencia está en o por debajo del punto de reorden.
func (p *Product) BelowReorder() bool {
	return p.Stock <= p.ReorderLevel
}
