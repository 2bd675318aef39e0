package borrowing

import (
	"context"

	"github.com/jhoicas/prestamos-api/internal/application/inventory"
	"github.com/jhoicas/prestamos-api/internal/domain/entity"
	"github.com/jhoicas/prestamos-api/internal/domain/repository"
)

// BorrowTxRunner ejecuta una función dentro de una transacción que incluye solicitudes,
// ítems y libro de stock: estado + movimientos se confirman juntos o no se confirman.
type BorrowTxRunner interface {
	RunBorrow(ctx context.Context, fn func(
		reqRepo repository.BorrowRequestRepository,
		itemRepo repository.ItemRepository,
		movRepo repository.StockMovementRepository,
	) error) error
}

// Ledger es la parte del libro de stock que usa el motor: registrar un movimiento
// con los repositorios de la transacción del caller.
type Ledger interface {
	RecordMovementInTx(
		ctx context.Context,
		itemRepo repository.ItemRepository,
		movRepo repository.StockMovementRepository,
		input inventory.MovementInput,
	) (*entity.StockMovement, error)
}

// EventPublisher recibe los eventos de dominio después del commit.
// Es fire-and-forget: no devuelve error y no debe bloquear.
type EventPublisher interface {
	Publish(ctx context.Context, evt entity.DomainEvent)
}
