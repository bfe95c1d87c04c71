package entity

import (
	"time"

	"github.com/shopspring/decimal"
)

// Tipos de movimiento en la bitácora de stock.
const (
	StockLogIn  = "in"  // entrada
	StockLogOut = "out" // salida
)

// StockLog es una entrada inmutable de la bitácora de movimientos de stock.
// Quantity siempre es positiva; Type indica el sentido.
type StockLog struct {
	ID        string
	ProductID string
	Type      string
	Quantity  int
	Reason    string
	UnitCost  *decimal.Decimal // costo unitario aplicado (promedio FIFO en salidas)
	Reference string           // venta, orden de compra o lote relacionado
	CreatedBy string           // UserID, vacío si es un proceso del sistema
	CreatedAt time.Time
}
