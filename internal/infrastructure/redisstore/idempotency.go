// Package redisstore agrupa los adaptadores sobre Redis: claves de idempotencia y
// publicación de eventos por Pub/Sub.
package redisstore

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/jhoicas/prestamos-api/internal/application/ports"
)

const idempotencyKeyPrefix = "idem:"

var _ ports.IdempotencyStore = (*IdempotencyStore)(nil)

// IdempotencyStore claves SETNX con TTL.
type IdempotencyStore struct {
	client *redis.Client
}

// NewIdempotencyStore construye el adaptador.
func NewIdempotencyStore(client *redis.Client) *IdempotencyStore {
	return &IdempotencyStore{client: client}
}

// Acquire devuelve false si la clave ya existe.
func (s *IdempotencyStore) Acquire(ctx context.Context, key string, ttl time.Duration) (bool, error) {
	ok, err := s.client.SetNX(ctx, idempotencyKeyPrefix+key, 1, ttl).Result()
	if err != nil {
		return false, fmt.Errorf("idempotencia: %w", err)
	}
	return ok, nil
}

// Release borra la clave.
func (s *IdempotencyStore) Release(ctx context.Context, key string) error {
	if err := s.client.Del(ctx, idempotencyKeyPrefix+key).Err(); err != nil {
		return fmt.Errorf("idempotencia: %w", err)
	}
	return nil
}
