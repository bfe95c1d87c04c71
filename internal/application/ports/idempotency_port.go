package ports

import (
	"context"
	"errors"
)

// ErrIdempotencyConflict la llave ya fue usada por una operación procesada o en curso.
var ErrIdempotencyConflict = errors.New("operación ya procesada (llave de idempotencia repetida)")

// IdempotencyStore reserva llaves para que los reintentos del cliente no repitan un movimiento de stock.
// Reserve devuelve ErrIdempotencyConflict si la llave existe; Release la libera cuando la operación falla.
type IdempotencyStore interface {
	Reserve(ctx context.Context, scope, key string) error
	Release(ctx context.Context, scope, key string) error
}
