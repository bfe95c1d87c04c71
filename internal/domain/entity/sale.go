package entity

import (
	"time"

	"github.com/shopspring/decimal"
)

// Medios de pago aceptados en caja.
const (
	PaymentMethodCash = "cash"
	PaymentMethodCard = "card"
)

// Sale agrupa las líneas de una venta. Se crea junto con el descuento de stock.
type Sale struct {
	ID             string
	InvoiceNumber  string
	CustomerName   string
	CustomerPhone  string
	Subtotal       decimal.Decimal
	TaxAmount      decimal.Decimal
	DiscountAmount decimal.Decimal
	TotalAmount    decimal.Decimal
	PaymentMethod  string
	SoldBy         string
	CreatedAt      time.Time
	Items          []SaleItem
}

// SaleItem línea de venta. TotalCost es el costo FIFO real; nil en registros anteriores a los lotes.
type SaleItem struct {
	ID         string
	SaleID     string
	ProductID  string
	Quantity   int
	UnitPrice  decimal.Decimal // precio de venta al momento de la venta
	TotalPrice decimal.Decimal
	TotalCost  *decimal.Decimal
}

// CostOfGoods devuelve el costo de la línea. Sin TotalCost usa fallbackUnitCost * Quantity
// (normalmente el CostPrice actual del producto).
func (i *SaleItem) CostOfGoods(fallbackUnitCost decimal.Decimal) decimal.Decimal {
	if i.TotalCost != nil {
		return *i.TotalCost
	}
	return fallbackUnitCost.Mul(decimal.NewFromInt(int64(i.Quantity)))
}

// GrossProfit margen bruto de la línea.
func (i *SaleItem) GrossProfit(fallbackUnitCost decimal.Decimal) decimal.Decimal {
	return i.TotalPrice.Sub(i.CostOfGoods(fallbackUnitCost))
}
