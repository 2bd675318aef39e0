package memory

import (
	"context"
	"fmt"

	"github.com/jhoicas/prestamos-api/internal/domain"
	"github.com/jhoicas/prestamos-api/internal/domain/entity"
	"github.com/jhoicas/prestamos-api/internal/domain/repository"
)

var _ repository.StockMovementRepository = (*StockMovementRepo)(nil)

// StockMovementRepo libro de stock en memoria (solo inserción).
type StockMovementRepo struct {
	store *Store
	inTx  bool
}

// NewStockMovementRepository construye el repositorio fuera de transacción.
func NewStockMovementRepository(store *Store) *StockMovementRepo {
	return &StockMovementRepo{store: store}
}

// Create agrega el movimiento; la secuencia debe ser la siguiente del ítem.
func (r *StockMovementRepo) Create(ctx context.Context, m *entity.StockMovement) error {
	return r.store.locked(ctx, r.inTx, func(st *state) error {
		list := st.movements[m.ItemID]
		var last int64
		if len(list) > 0 {
			last = list[len(list)-1].Sequence
		}
		if m.Sequence != last+1 {
			return fmt.Errorf("%w: secuencia %d duplicada para ítem %s", domain.ErrConflict, m.Sequence, m.ItemID)
		}
		st.movements[m.ItemID] = append(list, copyMovement(m))
		return nil
	})
}

// LastSequence devuelve la última secuencia del ítem.
func (r *StockMovementRepo) LastSequence(ctx context.Context, itemID string) (int64, error) {
	var last int64
	err := r.store.locked(ctx, r.inTx, func(st *state) error {
		if list := st.movements[itemID]; len(list) > 0 {
			last = list[len(list)-1].Sequence
		}
		return nil
	})
	return last, err
}

// ListByItem lista del más reciente al más antiguo.
func (r *StockMovementRepo) ListByItem(ctx context.Context, itemID string, beforeSeq int64, limit int) ([]*entity.StockMovement, error) {
	out := []*entity.StockMovement{}
	err := r.store.locked(ctx, r.inTx, func(st *state) error {
		list := st.movements[itemID]
		for i := len(list) - 1; i >= 0; i-- {
			m := list[i]
			if beforeSeq > 0 && m.Sequence >= beforeSeq {
				continue
			}
			out = append(out, copyMovement(m))
			if limit > 0 && len(out) == limit {
				break
			}
		}
		return nil
	})
	return out, err
}

// ListByRequest lista en orden cronológico los movimientos de una solicitud.
func (r *StockMovementRepo) ListByRequest(ctx context.Context, requestID string) ([]*entity.StockMovement, error) {
	var out []*entity.StockMovement
	err := r.store.locked(ctx, r.inTx, func(st *state) error {
		for _, list := range st.movements {
			for _, m := range list {
				if m.RequestID != nil && *m.RequestID == requestID {
					out = append(out, copyMovement(m))
				}
			}
		}
		return nil
	})
	sortChronological(out)
	return out, err
}
