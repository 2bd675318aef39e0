// Package memory implementa los puertos de persistencia en memoria (driver "memory"):
// desarrollo local y tests. Una sola cerradura serializa las unidades de trabajo; la
// espera está acotada por lockTimeout y por el contexto del caller.
package memory

import (
	"context"
	"fmt"
	"time"

	"github.com/jhoicas/prestamos-api/internal/domain"
	"github.com/jhoicas/prestamos-api/internal/domain/entity"
)

// Store estado compartido de todos los repositorios en memoria.
type Store struct {
	sem         chan struct{}
	lockTimeout time.Duration
	state       *state
}

type state struct {
	items       map[string]*entity.Item
	requests    map[string]*entity.BorrowRequest
	movements   map[string][]*entity.StockMovement // por ítem, Sequence ascendente
	users       map[string]*entity.User
	departments map[string]*entity.Department
}

// NewStore crea un almacén vacío. lockTimeout <= 0 usa 3s.
func NewStore(lockTimeout time.Duration) *Store {
	if lockTimeout <= 0 {
		lockTimeout = 3 * time.Second
	}
	return &Store{
		sem:         make(chan struct{}, 1),
		lockTimeout: lockTimeout,
		state: &state{
			items:       make(map[string]*entity.Item),
			requests:    make(map[string]*entity.BorrowRequest),
			movements:   make(map[string][]*entity.StockMovement),
			users:       make(map[string]*entity.User),
			departments: make(map[string]*entity.Department),
		},
	}
}

// acquire toma la cerradura o falla con domain.ErrConflict (reintentable) al vencer lockTimeout.
func (s *Store) acquire(ctx context.Context) error {
	timer := time.NewTimer(s.lockTimeout)
	defer timer.Stop()
	select {
	case s.sem <- struct{}{}:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return fmt.Errorf("%w: tiempo de espera de bloqueo agotado", domain.ErrConflict)
	}
}

func (s *Store) release() { <-s.sem }

// locked ejecuta fn con la cerradura tomada salvo que el caller ya la tenga (dentro de tx).
func (s *Store) locked(ctx context.Context, inTx bool, fn func(st *state) error) error {
	if !inTx {
		if err := s.acquire(ctx); err != nil {
			return err
		}
		defer s.release()
	}
	return fn(s.state)
}

// clone copia profunda del estado para poder deshacer una unidad de trabajo fallida.
func (st *state) clone() *state {
	c := &state{
		items:       make(map[string]*entity.Item, len(st.items)),
		requests:    make(map[string]*entity.BorrowRequest, len(st.requests)),
		movements:   make(map[string][]*entity.StockMovement, len(st.movements)),
		users:       st.users,
		departments: st.departments,
	}
	for id, it := range st.items {
		c.items[id] = copyItem(it)
	}
	for id, r := range st.requests {
		c.requests[id] = copyRequest(r)
	}
	for id, list := range st.movements {
		// los movimientos son inmutables: basta copiar el slice
		c.movements[id] = append([]*entity.StockMovement(nil), list...)
	}
	return c
}

// SeedItem registra un ítem de dato maestro con cantidad cero (el stock entra por el libro).
func (s *Store) SeedItem(item entity.Item) {
	s.sem <- struct{}{}
	defer s.release()
	item.Quantity = 0
	now := time.Now()
	if item.CreatedAt.IsZero() {
		item.CreatedAt = now
	}
	item.UpdatedAt = item.CreatedAt
	s.state.items[item.ID] = &item
}

// SeedUser registra un usuario de dato maestro.
func (s *Store) SeedUser(user entity.User) {
	s.sem <- struct{}{}
	defer s.release()
	s.state.users[user.ID] = &user
}

// SeedDepartment registra una dependencia de dato maestro.
func (s *Store) SeedDepartment(dept entity.Department) {
	s.sem <- struct{}{}
	defer s.release()
	s.state.departments[dept.ID] = &dept
}

func copyItem(it *entity.Item) *entity.Item {
	c := *it
	return &c
}

func copyRequest(r *entity.BorrowRequest) *entity.BorrowRequest {
	c := *r
	c.Lines = append([]entity.BorrowLine(nil), r.Lines...)
	if r.DecidedAt != nil {
		t := *r.DecidedAt
		c.DecidedAt = &t
	}
	if r.ReturnedAt != nil {
		t := *r.ReturnedAt
		c.ReturnedAt = &t
	}
	return &c
}

func copyMovement(m *entity.StockMovement) *entity.StockMovement {
	c := *m
	if m.RequestID != nil {
		id := *m.RequestID
		c.RequestID = &id
	}
	return &c
}
