package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jhoicas/prestamos-api/internal/domain/entity"
	"github.com/jhoicas/prestamos-api/internal/domain/repository"
)

var _ repository.StockMovementRepository = (*StockMovementRepo)(nil)

// StockMovementRepo libro de stock sobre PostgreSQL (usable con pool o tx). Solo inserción.
type StockMovementRepo struct {
	q Querier
}

// NewStockMovementRepository construye el adaptador. Pasar pool o tx (Querier).
func NewStockMovementRepository(q Querier) *StockMovementRepo {
	return &StockMovementRepo{q: q}
}

const movementColumns = `id, item_id, sequence, type, amount, quantity_before, quantity_after, request_id, actor_id, notes, created_at`

// Create persiste un movimiento. (item_id, sequence) es único: un duplicado es ErrConflict.
func (r *StockMovementRepo) Create(ctx context.Context, m *entity.StockMovement) error {
	query := `
		INSERT INTO stock_movements (` + movementColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)`
	_, err := r.q.Exec(ctx, query,
		m.ID, m.ItemID, m.Sequence, m.Type, m.Amount, m.QuantityBefore, m.QuantityAfter,
		m.RequestID, m.ActorID, m.Notes, m.CreatedAt,
	)
	return wrapErr("create stock movement", err)
}

// LastSequence devuelve la última secuencia del ítem (0 si no hay movimientos).
func (r *StockMovementRepo) LastSequence(ctx context.Context, itemID string) (int64, error) {
	var last int64
	err := r.q.QueryRow(ctx, `SELECT COALESCE(MAX(sequence), 0) FROM stock_movements WHERE item_id = $1`, itemID).Scan(&last)
	if err != nil {
		return 0, wrapErr("last sequence", err)
	}
	return last, nil
}

// ListByItem lista movimientos del más reciente al más antiguo.
func (r *StockMovementRepo) ListByItem(ctx context.Context, itemID string, beforeSeq int64, limit int) ([]*entity.StockMovement, error) {
	query := `SELECT ` + movementColumns + ` FROM stock_movements WHERE item_id = $1`
	args := []any{itemID}
	pos := 2
	if beforeSeq > 0 {
		query += fmt.Sprintf(" AND sequence < $%d", pos)
		args = append(args, beforeSeq)
		pos++
	}
	query += " ORDER BY sequence DESC"
	if limit > 0 {
		query += fmt.Sprintf(" LIMIT $%d", pos)
		args = append(args, limit)
	}
	rows, err := r.q.Query(ctx, query, args...)
	if err != nil {
		return nil, wrapErr("list movements by item", err)
	}
	return scanMovements(rows)
}

// ListByRequest lista en orden cronológico los movimientos causados por una solicitud.
func (r *StockMovementRepo) ListByRequest(ctx context.Context, requestID string) ([]*entity.StockMovement, error) {
	query := `SELECT ` + movementColumns + ` FROM stock_movements
		WHERE request_id = $1 ORDER BY created_at, item_id, sequence`
	rows, err := r.q.Query(ctx, query, requestID)
	if err != nil {
		return nil, wrapErr("list movements by request", err)
	}
	return scanMovements(rows)
}

func scanMovements(rows pgx.Rows) ([]*entity.StockMovement, error) {
	defer rows.Close()
	list := []*entity.StockMovement{}
	for rows.Next() {
		var m entity.StockMovement
		if err := rows.Scan(&m.ID, &m.ItemID, &m.Sequence, &m.Type, &m.Amount, &m.QuantityBefore,
			&m.QuantityAfter, &m.RequestID, &m.ActorID, &m.Notes, &m.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan movement: %w", err)
		}
		list = append(list, &m)
	}
	return list, wrapErr("scan movements", rows.Err())
}
