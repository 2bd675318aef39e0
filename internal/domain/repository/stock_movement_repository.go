package repository

import (
	"context"

	"github.com/jhoicas/prestamos-api/internal/domain/entity"
)

// StockMovementRepository define el puerto de persistencia del libro de stock (solo inserción).
type StockMovementRepository interface {
	Create(ctx context.Context, movement *entity.StockMovement) error
	// LastSequence devuelve la última secuencia del ítem (0 si no tiene movimientos).
	// Debe llamarse con la fila del ítem ya bloqueada por Reserve/Release.
	LastSequence(ctx context.Context, itemID string) (int64, error)
	// ListByItem lista movimientos del más reciente al más antiguo con Sequence < beforeSeq
	// (beforeSeq <= 0 empieza desde el último).
	ListByItem(ctx context.Context, itemID string, beforeSeq int64, limit int) ([]*entity.StockMovement, error)
	// ListByRequest lista en orden cronológico los movimientos causados por una solicitud.
	ListByRequest(ctx context.Context, requestID string) ([]*entity.StockMovement, error)
}
