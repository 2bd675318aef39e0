package repository

import (
	"context"

	"github.com/jhoicas/prestamos-api/internal/domain/entity"
)

// ItemFilter filtros del listado de ítems.
type ItemFilter struct {
	Category string
	Search   string // código o nombre
	Limit    int
	Offset   int
}

// ItemRepository es el almacén de inventario: dueño de la cantidad autoritativa por ítem.
// Reserve y Release son atómicos y solo los invoca el libro de stock, dentro de la misma
// unidad de trabajo que el StockMovement correspondiente.
type ItemRepository interface {
	Create(ctx context.Context, item *entity.Item) error
	GetByID(ctx context.Context, id string) (*entity.Item, error)
	// List devuelve la página pedida y el total de ítems que cumplen el filtro.
	List(ctx context.Context, filter ItemFilter) ([]*entity.Item, int, error)

	// Reserve descuenta amount solo si quantity >= amount (compare-and-decrement) y devuelve
	// la cantidad antes/después. Devuelve *domain.InsufficientStockError o *domain.NotFoundError.
	Reserve(ctx context.Context, itemID string, amount int64) (before, after int64, err error)
	// Release incrementa amount de forma atómica.
	Release(ctx context.Context, itemID string, amount int64) (before, after int64, err error)
}
