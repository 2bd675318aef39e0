package memory

import (
	"context"
	"sort"
	"time"

	"github.com/jhoicas/prestamos-api/internal/domain"
	"github.com/jhoicas/prestamos-api/internal/domain/entity"
	"github.com/jhoicas/prestamos-api/internal/domain/repository"
	"github.com/jhoicas/prestamos-api/pkg/textutil"
)

var _ repository.ItemRepository = (*ItemRepo)(nil)

// ItemRepo almacén de inventario en memoria.
type ItemRepo struct {
	store *Store
	inTx  bool
}

// NewItemRepository construye el repositorio fuera de transacción.
func NewItemRepository(store *Store) *ItemRepo {
	return &ItemRepo{store: store}
}

// Create registra un ítem; la cantidad inicial siempre es cero.
func (r *ItemRepo) Create(ctx context.Context, item *entity.Item) error {
	return r.store.locked(ctx, r.inTx, func(st *state) error {
		if _, ok := st.items[item.ID]; ok {
			return domain.Invalid("ítem %s ya existe", item.ID)
		}
		c := copyItem(item)
		c.Quantity = 0
		st.items[item.ID] = c
		return nil
	})
}

// GetByID obtiene un ítem o nil si no existe.
func (r *ItemRepo) GetByID(ctx context.Context, id string) (*entity.Item, error) {
	var out *entity.Item
	err := r.store.locked(ctx, r.inTx, func(st *state) error {
		if it, ok := st.items[id]; ok {
			out = copyItem(it)
		}
		return nil
	})
	return out, err
}

// List lista ítems ordenados por código.
func (r *ItemRepo) List(ctx context.Context, filter repository.ItemFilter) ([]*entity.Item, int, error) {
	var out []*entity.Item
	err := r.store.locked(ctx, r.inTx, func(st *state) error {
		for _, it := range st.items {
			if filter.Category != "" && it.Category != filter.Category {
				continue
			}
			if filter.Search != "" && !textutil.Contains(it.Code+" "+it.Name, filter.Search) {
				continue
			}
			out = append(out, copyItem(it))
		}
		return nil
	})
	if err != nil {
		return nil, 0, err
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Code < out[j].Code })
	return paginate(out, filter.Limit, filter.Offset), len(out), nil
}

// Reserve descuenta amount si hay stock suficiente.
func (r *ItemRepo) Reserve(ctx context.Context, itemID string, amount int64) (int64, int64, error) {
	var before, after int64
	err := r.store.locked(ctx, r.inTx, func(st *state) error {
		it, ok := st.items[itemID]
		if !ok {
			return &domain.NotFoundError{Kind: "item", ID: itemID}
		}
		if it.Quantity < amount {
			return &domain.InsufficientStockError{Shortages: []domain.StockShortage{
				{ItemID: itemID, Requested: amount, Available: it.Quantity},
			}}
		}
		before = it.Quantity
		it.Quantity -= amount
		it.UpdatedAt = time.Now()
		after = it.Quantity
		return nil
	})
	return before, after, err
}

// Release incrementa amount.
func (r *ItemRepo) Release(ctx context.Context, itemID string, amount int64) (int64, int64, error) {
	var before, after int64
	err := r.store.locked(ctx, r.inTx, func(st *state) error {
		it, ok := st.items[itemID]
		if !ok {
			return &domain.NotFoundError{Kind: "item", ID: itemID}
		}
		before = it.Quantity
		it.Quantity += amount
		it.UpdatedAt = time.Now()
		after = it.Quantity
		return nil
	})
	return before, after, err
}

func paginate[T any](list []T, limit, offset int) []T {
	if offset < 0 {
		offset = 0
	}
	if offset >= len(list) {
		return []T{}
	}
	list = list[offset:]
	if limit > 0 && limit < len(list) {
		list = list[:limit]
	}
	return list
}
