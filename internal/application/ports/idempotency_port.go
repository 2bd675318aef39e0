package ports

import (
	"context"
	"time"
)

// IdempotencyStore define el puerto de salida para claves de idempotencia de las llamadas
// que cambian estado (decidir, devolver). Cualquier adaptador (Redis, memoria) debe implementarlo.
type IdempotencyStore interface {
	// Acquire registra key por ttl. Devuelve false si la clave ya estaba registrada.
	Acquire(ctx context.Context, key string, ttl time.Duration) (bool, error)
	// Release libera la clave para que un reintento legítimo pueda ejecutarse.
	Release(ctx context.Context, key string) error
}
