package cache

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/jhoicas/retail-pos/internal/application/ports"
)

var _ ports.IdempotencyStore = (*IdempotencyStore)(nil)

const keyPrefix = "pos:idem"

// IdempotencyStore reserva llaves con SET NX y vencimiento.
type IdempotencyStore struct {
	client *redis.Client
	ttl    time.Duration
}

// NewIdempotencyStore construye el store. ttl <= 0 usa 24 horas.
func NewIdempotencyStore(client *redis.Client, ttl time.Duration) *IdempotencyStore {
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}
	return &IdempotencyStore{client: client, ttl: ttl}
}

func buildKey(scope, key string) string {
	return fmt.Sprintf("%s:%s:%s", keyPrefix, scope, key)
}

// Reserve marca la llave como usada; ports.ErrIdempotencyConflict si ya existía.
func (s *IdempotencyStore) Reserve(ctx context.Context, scope, key string) error {
	if scope == "" || key == "" {
		return errors.New("idempotency: scope y llave requeridos")
	}
	ok, err := s.client.SetNX(ctx, buildKey(scope, key), time.Now().UTC().Format(time.RFC3339), s.ttl).Result()
	if err != nil {
		return fmt.Errorf("idempotency reserve: %w", err)
	}
	if !ok {
		return ports.ErrIdempotencyConflict
	}
	return nil
}

// Release borra la llave para permitir reintentar una operación que falló.
func (s *IdempotencyStore) Release(ctx context.Context, scope, key string) error {
	if err := s.client.Del(ctx, buildKey(scope, key)).Err(); err != nil {
		return fmt.Errorf("idempotency release: %w", err)
	}
	return nil
}
