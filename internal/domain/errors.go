package domain

import "errors"

// Errores de dominio (sin dependencias externas).
// Los casos de uso los envuelven con fmt.Errorf("%w: ...") para dar detalle; comparar con errors.Is.
var (
	ErrNotFound          = errors.New("recurso no encontrado")
	ErrInvalidInput      = errors.New("entrada inválida")
	ErrInvalidState      = errors.New("operación no permitida en el estado actual")
	ErrDuplicate         = errors.New("recurso duplicado")
	ErrConflict          = errors.New("conflicto con el estado actual")
	ErrInsufficientStock = errors.New("stock insuficiente")
	// ErrDataInconsistency: el stock agregado indica disponibilidad pero los lotes no la cubren.
	ErrDataInconsistency = errors.New("inconsistencia entre stock y lotes de inventario")
)
