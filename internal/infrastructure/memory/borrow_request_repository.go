package memory

import (
	"context"
	"fmt"
	"sort"

	"github.com/jhoicas/prestamos-api/internal/domain"
	"github.com/jhoicas/prestamos-api/internal/domain/entity"
	"github.com/jhoicas/prestamos-api/internal/domain/repository"
	"github.com/jhoicas/prestamos-api/pkg/textutil"
)

var _ repository.BorrowRequestRepository = (*BorrowRequestRepo)(nil)

// BorrowRequestRepo solicitudes de préstamo en memoria.
type BorrowRequestRepo struct {
	store *Store
	inTx  bool
}

// NewBorrowRequestRepository construye el repositorio fuera de transacción.
func NewBorrowRequestRepository(store *Store) *BorrowRequestRepo {
	return &BorrowRequestRepo{store: store}
}

// Create persiste la solicitud con sus líneas.
func (r *BorrowRequestRepo) Create(ctx context.Context, req *entity.BorrowRequest) error {
	return r.store.locked(ctx, r.inTx, func(st *state) error {
		if _, ok := st.requests[req.ID]; ok {
			return fmt.Errorf("%w: solicitud %s duplicada", domain.ErrConflict, req.ID)
		}
		st.requests[req.ID] = copyRequest(req)
		return nil
	})
}

// GetByID obtiene la solicitud o nil.
func (r *BorrowRequestRepo) GetByID(ctx context.Context, id string) (*entity.BorrowRequest, error) {
	var out *entity.BorrowRequest
	err := r.store.locked(ctx, r.inTx, func(st *state) error {
		if req, ok := st.requests[id]; ok {
			out = copyRequest(req)
		}
		return nil
	})
	return out, err
}

// GetForUpdate dentro de la unidad de trabajo la cerradura del almacén ya es exclusiva.
func (r *BorrowRequestRepo) GetForUpdate(ctx context.Context, id string) (*entity.BorrowRequest, error) {
	return r.GetByID(ctx, id)
}

// UpdateState persiste el cambio de estado con verificación de versión.
func (r *BorrowRequestRepo) UpdateState(ctx context.Context, req *entity.BorrowRequest, expectedVersion int) error {
	return r.store.locked(ctx, r.inTx, func(st *state) error {
		cur, ok := st.requests[req.ID]
		if !ok {
			return &domain.NotFoundError{Kind: "request", ID: req.ID}
		}
		if cur.Version != expectedVersion {
			return fmt.Errorf("%w: solicitud %s modificada concurrentemente", domain.ErrConflict, req.ID)
		}
		next := copyRequest(req)
		next.Lines = cur.Lines // las líneas no cambian después de crearse
		st.requests[req.ID] = next
		return nil
	})
}

// List aplica los filtros de la proyección y devuelve la página y el total.
func (r *BorrowRequestRepo) List(ctx context.Context, filter repository.RequestFilter) ([]repository.RequestSummary, int, error) {
	var all []repository.RequestSummary
	err := r.store.locked(ctx, r.inTx, func(st *state) error {
		for _, req := range st.requests {
			if len(filter.States) > 0 && !hasState(filter.States, req.State) {
				continue
			}
			if filter.DepartmentID != "" && req.DepartmentID != filter.DepartmentID {
				continue
			}
			if filter.RequesterID != "" && req.RequesterID != filter.RequesterID {
				continue
			}
			if filter.DueBefore != nil && !req.ReturnDate.Before(*filter.DueBefore) {
				continue
			}
			var name, number string
			if u, ok := st.users[req.RequesterID]; ok {
				name, number = u.Name, u.EmployeeNumber
			}
			if filter.Search != "" && !textutil.Contains(name+" "+number, filter.Search) {
				continue
			}
			all = append(all, repository.RequestSummary{
				Request:        copyRequest(req),
				RequesterName:  name,
				EmployeeNumber: number,
			})
		}
		return nil
	})
	if err != nil {
		return nil, 0, err
	}
	sort.Slice(all, func(i, j int) bool {
		a, b := all[i].Request, all[j].Request
		if !a.CreatedAt.Equal(b.CreatedAt) {
			if filter.NewestFirst {
				return a.CreatedAt.After(b.CreatedAt)
			}
			return a.CreatedAt.Before(b.CreatedAt)
		}
		return a.ID < b.ID
	})
	return paginate(all, filter.Limit, filter.Offset), len(all), nil
}

func hasState(states []entity.RequestState, s entity.RequestState) bool {
	for _, x := range states {
		if x == s {
			return true
		}
	}
	return false
}
