package memory

import (
	"context"
	"sort"

	"github.com/jhoicas/prestamos-api/internal/domain/entity"
	"github.com/jhoicas/prestamos-api/internal/domain/repository"
)

var _ repository.UserRepository = (*UserRepo)(nil)

// UserRepo lectura de datos maestros en memoria.
type UserRepo struct {
	store *Store
}

// NewUserRepository construye el repositorio.
func NewUserRepository(store *Store) *UserRepo {
	return &UserRepo{store: store}
}

// GetByID obtiene un usuario o nil.
func (r *UserRepo) GetByID(ctx context.Context, id string) (*entity.User, error) {
	var out *entity.User
	err := r.store.locked(ctx, false, func(st *state) error {
		if u, ok := st.users[id]; ok {
			c := *u
			out = &c
		}
		return nil
	})
	return out, err
}

// GetDepartment obtiene una dependencia o nil.
func (r *UserRepo) GetDepartment(ctx context.Context, id string) (*entity.Department, error) {
	var out *entity.Department
	err := r.store.locked(ctx, false, func(st *state) error {
		if d, ok := st.departments[id]; ok {
			c := *d
			out = &c
		}
		return nil
	})
	return out, err
}

func sortChronological(list []*entity.StockMovement) {
	sort.SliceStable(list, func(i, j int) bool {
		if !list[i].CreatedAt.Equal(list[j].CreatedAt) {
			return list[i].CreatedAt.Before(list[j].CreatedAt)
		}
		if list[i].ItemID != list[j].ItemID {
			return list[i].ItemID < list[j].ItemID
		}
		return list[i].Sequence < list[j].Sequence
	})
}
