package dto

import "github.com/shopspring/decimal"

// CreateSaleItemRequest línea de venta; el precio se toma del producto.
type CreateSaleItemRequest struct {
	ProductID string `json:"product_id" validate:"required,uuid"`
	Quantity  int    `json:"quantity" validate:"gt=0"`
}

// CreateSaleRequest venta de mostrador.
type CreateSaleRequest struct {
	Items          []CreateSaleItemRequest `json:"items" validate:"required,min=1,dive"`
	CustomerName   string                  `json:"customer_name,omitempty" validate:"max=255"`
	CustomerPhone  string                  `json:"customer_phone,omitempty" validate:"max=32"`
	TaxAmount      decimal.Decimal         `json:"tax_amount" validate:"gte=0,scale=2"`
	DiscountAmount decimal.Decimal         `json:"discount_amount" validate:"gte=0,scale=2"`
	PaymentMethod  string                  `json:"payment_method" validate:"required,oneof=cash card"`
	IdempotencyKey string                  `json:"idempotency_key,omitempty" validate:"max=128"`
}

// SaleItemResponse línea de venta con costo y margen.
type SaleItemResponse struct {
	ID          string          `json:"id"`
	ProductID   string          `json:"product_id"`
	Quantity    int             `json:"quantity"`
	UnitPrice   decimal.Decimal `json:"unit_price"`
	TotalPrice  decimal.Decimal `json:"total_price"`
	TotalCost   decimal.Decimal `json:"total_cost"`
	GrossProfit decimal.Decimal `json:"gross_profit"`
}

// SaleResponse venta creada.
type SaleResponse struct {
	ID             string             `json:"id"`
	InvoiceNumber  string             `json:"invoice_number"`
	Subtotal       decimal.Decimal    `json:"subtotal"`
	TaxAmount      decimal.Decimal    `json:"tax_amount"`
	DiscountAmount decimal.Decimal    `json:"discount_amount"`
	TotalAmount    decimal.Decimal    `json:"total_amount"`
	TotalCost      decimal.Decimal    `json:"total_cost"`
	PaymentMethod  string             `json:"payment_method"`
	Items          []SaleItemResponse `json:"items"`
}
