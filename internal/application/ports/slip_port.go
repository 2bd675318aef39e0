package ports

import (
	"context"

	"github.com/jhoicas/prestamos-api/internal/application/dto"
)

// SlipGenerator genera el comprobante imprimible de una solicitud de préstamo.
type SlipGenerator interface {
	GenerateSlip(ctx context.Context, req *dto.BorrowRequestResponse) ([]byte, error)
}
