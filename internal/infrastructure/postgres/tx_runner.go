package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jhoicas/prestamos-api/internal/application/borrowing"
	"github.com/jhoicas/prestamos-api/internal/application/inventory"
	"github.com/jhoicas/prestamos-api/internal/domain/repository"
)

// Ensure TxRunner implements inventory.TxRunner and borrowing.BorrowTxRunner.
var _ inventory.TxRunner = (*TxRunner)(nil)
var _ borrowing.BorrowTxRunner = (*TxRunner)(nil)

// TxRunner ejecuta callbacks dentro de una transacción PostgreSQL.
type TxRunner struct {
	pool        *pgxpool.Pool
	lockTimeout time.Duration
}

// NewTxRunner construye el runner con el pool. lockTimeout acota la espera por filas bloqueadas.
func NewTxRunner(pool *pgxpool.Pool, lockTimeout time.Duration) *TxRunner {
	if lockTimeout <= 0 {
		lockTimeout = 3 * time.Second
	}
	return &TxRunner{pool: pool, lockTimeout: lockTimeout}
}

// Run inicia una transacción, ejecuta fn con repos de inventario atados a la tx y hace Commit o Rollback.
func (r *TxRunner) Run(ctx context.Context, fn func(
	itemRepo repository.ItemRepository,
	movRepo repository.StockMovementRepository,
) error) error {
	return r.inTx(ctx, func(tx pgx.Tx) error {
		return fn(NewItemRepository(tx), NewStockMovementRepository(tx))
	})
}

// RunBorrow inicia una transacción con repos de solicitudes, inventario y libro (transiciones del flujo).
func (r *TxRunner) RunBorrow(ctx context.Context, fn func(
	reqRepo repository.BorrowRequestRepository,
	itemRepo repository.ItemRepository,
	movRepo repository.StockMovementRepository,
) error) error {
	return r.inTx(ctx, func(tx pgx.Tx) error {
		return fn(NewBorrowRequestRepository(tx), NewItemRepository(tx), NewStockMovementRepository(tx))
	})
}

func (r *TxRunner) inTx(ctx context.Context, fn func(tx pgx.Tx) error) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return wrapErr("begin transaction", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	// SET no admite parámetros; el valor viene de configuración, no del usuario.
	if _, err := tx.Exec(ctx, fmt.Sprintf("SET LOCAL lock_timeout = '%dms'", r.lockTimeout.Milliseconds())); err != nil {
		return wrapErr("set lock_timeout", err)
	}

	if err := fn(tx); err != nil {
		return err
	}
	if err := tx.Commit(ctx); err != nil {
		return wrapErr("commit transaction", err)
	}
	return nil
}
