package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/doug-martin/goqu/v9"
	"github.com/jackc/pgx/v5"
	"github.com/jhoicas/prestamos-api/internal/domain"
	"github.com/jhoicas/prestamos-api/internal/domain/entity"
	"github.com/jhoicas/prestamos-api/internal/domain/repository"
)

var _ repository.ItemRepository = (*ItemRepo)(nil)

// ItemRepo implementación de ItemRepository sobre PostgreSQL (usable con pool o tx).
type ItemRepo struct {
	q Querier
}

// NewItemRepository construye el adaptador de ítems. Pasar pool o tx (Querier).
func NewItemRepository(q Querier) *ItemRepo {
	return &ItemRepo{q: q}
}

const itemColumns = `id, code, name, category, quantity, created_at, updated_at`

// Create persiste un ítem con cantidad cero; el stock entra por el libro.
func (r *ItemRepo) Create(ctx context.Context, item *entity.Item) error {
	query := `
		INSERT INTO items (id, code, name, category, quantity, created_at, updated_at)
		VALUES ($1, $2, $3, $4, 0, $5, $6)`
	_, err := r.q.Exec(ctx, query, item.ID, item.Code, item.Name, item.Category, item.CreatedAt, item.UpdatedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return domain.Invalid("ítem con código %s ya existe", item.Code)
		}
		return wrapErr("insert item", err)
	}
	item.Quantity = 0
	return nil
}

// GetByID obtiene un ítem por ID.
func (r *ItemRepo) GetByID(ctx context.Context, id string) (*entity.Item, error) {
	query := `SELECT ` + itemColumns + ` FROM items WHERE id = $1`
	var it entity.Item
	err := r.q.QueryRow(ctx, query, id).Scan(
		&it.ID, &it.Code, &it.Name, &it.Category, &it.Quantity, &it.CreatedAt, &it.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, wrapErr("get item", err)
	}
	return &it, nil
}

// List lista ítems por código, con búsqueda sin tildes sobre código y nombre.
// Devuelve la página y el total filtrado.
func (r *ItemRepo) List(ctx context.Context, filter repository.ItemFilter) ([]*entity.Item, int, error) {
	base := goqu.Dialect(dialectPostgres).From(tableItems)
	if filter.Category != "" {
		base = base.Where(goqu.Ex{"category": filter.Category})
	}
	if filter.Search != "" {
		base = base.Where(goqu.L(`unaccent(lower(code || ' ' || name)) LIKE unaccent(lower(?))`, likePattern(filter.Search)))
	}

	countSQL, countArgs, err := base.Select(goqu.COUNT(goqu.Star())).Prepared(true).ToSQL()
	if err != nil {
		return nil, 0, fmt.Errorf("build count items: %w", err)
	}
	var total int
	if err := r.q.QueryRow(ctx, countSQL, countArgs...).Scan(&total); err != nil {
		return nil, 0, wrapErr("count items", err)
	}

	ds := base.Select(goqu.L(itemColumns)).Order(goqu.I("code").Asc())
	if filter.Limit > 0 {
		ds = ds.Limit(uint(filter.Limit))
	}
	if filter.Offset > 0 {
		ds = ds.Offset(uint(filter.Offset))
	}
	query, args, err := ds.Prepared(true).ToSQL()
	if err != nil {
		return nil, 0, fmt.Errorf("build list items: %w", err)
	}

	rows, err := r.q.Query(ctx, query, args...)
	if err != nil {
		return nil, 0, wrapErr("list items", err)
	}
	defer rows.Close()
	list := []*entity.Item{}
	for rows.Next() {
		var it entity.Item
		if err := rows.Scan(&it.ID, &it.Code, &it.Name, &it.Category, &it.Quantity, &it.CreatedAt, &it.UpdatedAt); err != nil {
			return nil, 0, fmt.Errorf("scan item: %w", err)
		}
		list = append(list, &it)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, wrapErr("list items", err)
	}
	return list, total, nil
}

// Reserve compare-and-decrement: la fila queda bloqueada hasta el fin de la transacción.
func (r *ItemRepo) Reserve(ctx context.Context, itemID string, amount int64) (int64, int64, error) {
	query := `
		UPDATE items SET quantity = quantity - $2, updated_at = now()
		WHERE id = $1 AND quantity >= $2
		RETURNING quantity`
	var after int64
	err := r.q.QueryRow(ctx, query, itemID, amount).Scan(&after)
	if err == nil {
		return after + amount, after, nil
	}
	if !errors.Is(err, pgx.ErrNoRows) {
		return 0, 0, wrapErr("reserve item", err)
	}

	// Sin fila actualizada: el ítem no existe o no alcanza.
	var available int64
	err = r.q.QueryRow(ctx, `SELECT quantity FROM items WHERE id = $1`, itemID).Scan(&available)
	if errors.Is(err, pgx.ErrNoRows) {
		return 0, 0, &domain.NotFoundError{Kind: "item", ID: itemID}
	}
	if err != nil {
		return 0, 0, wrapErr("read item quantity", err)
	}
	return 0, 0, &domain.InsufficientStockError{Shortages: []domain.StockShortage{
		{ItemID: itemID, Requested: amount, Available: available},
	}}
}

// Release incrementa la cantidad y bloquea la fila.
func (r *ItemRepo) Release(ctx context.Context, itemID string, amount int64) (int64, int64, error) {
	query := `
		UPDATE items SET quantity = quantity + $2, updated_at = now()
		WHERE id = $1
		RETURNING quantity`
	var after int64
	err := r.q.QueryRow(ctx, query, itemID, amount).Scan(&after)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return 0, 0, &domain.NotFoundError{Kind: "item", ID: itemID}
		}
		return 0, 0, wrapErr("release item", err)
	}
	return after - amount, after, nil
}
