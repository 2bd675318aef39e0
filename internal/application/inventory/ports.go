package inventory

import (
	"context"

	"github.com/jhoicas/prestamos-api/internal/domain/repository"
)

// TxRunner ejecuta una función dentro de una transacción, pasando repositorios atados a esa tx.
// Garantiza que cantidad del ítem y movimiento del libro se escriben juntos o no se escriben.
type TxRunner interface {
	Run(ctx context.Context, fn func(
		itemRepo repository.ItemRepository,
		movRepo repository.StockMovementRepository,
	) error) error
}
