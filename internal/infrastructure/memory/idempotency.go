package memory

import (
	"context"
	"sync"
	"time"

	"github.com/jhoicas/prestamos-api/internal/application/ports"
)

var _ ports.IdempotencyStore = (*IdempotencyStore)(nil)

// IdempotencyStore claves de idempotencia en proceso (cuando Redis está deshabilitado).
type IdempotencyStore struct {
	mu   sync.Mutex
	keys map[string]time.Time
	now  func() time.Time
}

// NewIdempotencyStore construye el almacén vacío.
func NewIdempotencyStore() *IdempotencyStore {
	return &IdempotencyStore{keys: make(map[string]time.Time), now: time.Now}
}

// Acquire devuelve false si la clave existe y no ha vencido.
func (s *IdempotencyStore) Acquire(_ context.Context, key string, ttl time.Duration) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	now := s.now()
	if exp, ok := s.keys[key]; ok && now.Before(exp) {
		return false, nil
	}
	s.keys[key] = now.Add(ttl)
	// purga perezosa
	for k, exp := range s.keys {
		if !now.Before(exp) {
			delete(s.keys, k)
		}
	}
	return true, nil
}

// Release borra la clave.
func (s *IdempotencyStore) Release(_ context.Context, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.keys, key)
	return nil
}
