package memory

import (
	"context"

	"github.com/jhoicas/prestamos-api/internal/application/borrowing"
	"github.com/jhoicas/prestamos-api/internal/application/inventory"
	"github.com/jhoicas/prestamos-api/internal/domain/repository"
)

var _ inventory.TxRunner = (*TxRunner)(nil)
var _ borrowing.BorrowTxRunner = (*TxRunner)(nil)

// TxRunner ejecuta callbacks como unidad de trabajo: cerradura exclusiva + copia del estado
// para restaurarlo si fn falla, entra en pánico o el caller abandona la operación.
type TxRunner struct {
	store *Store
}

// NewTxRunner construye el runner sobre el almacén.
func NewTxRunner(store *Store) *TxRunner {
	return &TxRunner{store: store}
}

// Run ejecuta fn con repos de inventario atados a la unidad de trabajo.
func (r *TxRunner) Run(ctx context.Context, fn func(
	itemRepo repository.ItemRepository,
	movRepo repository.StockMovementRepository,
) error) error {
	return r.run(ctx, func() error {
		return fn(&ItemRepo{store: r.store, inTx: true}, &StockMovementRepo{store: r.store, inTx: true})
	})
}

// RunBorrow ejecuta fn con repos de solicitudes, ítems y libro atados a la unidad de trabajo.
func (r *TxRunner) RunBorrow(ctx context.Context, fn func(
	reqRepo repository.BorrowRequestRepository,
	itemRepo repository.ItemRepository,
	movRepo repository.StockMovementRepository,
) error) error {
	return r.run(ctx, func() error {
		return fn(
			&BorrowRequestRepo{store: r.store, inTx: true},
			&ItemRepo{store: r.store, inTx: true},
			&StockMovementRepo{store: r.store, inTx: true},
		)
	})
}

func (r *TxRunner) run(ctx context.Context, fn func() error) error {
	if err := r.store.acquire(ctx); err != nil {
		return err
	}
	defer r.store.release()

	snapshot := r.store.state.clone()
	defer func() {
		if p := recover(); p != nil {
			r.store.state = snapshot
			panic(p)
		}
	}()
	if err := fn(); err != nil {
		r.store.state = snapshot
		return err
	}
	if err := ctx.Err(); err != nil {
		r.store.state = snapshot
		return err
	}
	return nil
}
