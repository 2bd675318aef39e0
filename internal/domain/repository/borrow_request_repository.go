package repository

import (
	"context"
	"time"

	"github.com/jhoicas/prestamos-api/internal/domain/entity"
)

// RequestFilter filtros de las proyecciones de solicitudes.
type RequestFilter struct {
	States       []entity.RequestState
	DepartmentID string
	RequesterID  string
	Search       string // nombre del solicitante o número de empleado (ya normalizado)
	DueBefore    *time.Time // return_date < DueBefore
	NewestFirst  bool
	Limit        int
	Offset       int
}

// RequestSummary fila de listado: la solicitud (con líneas) más datos del solicitante.
type RequestSummary struct {
	Request        *entity.BorrowRequest
	RequesterName  string
	EmployeeNumber string
}

// BorrowRequestRepository define el puerto de persistencia de solicitudes de préstamo.
type BorrowRequestRepository interface {
	// Create persiste la solicitud y sus líneas.
	Create(ctx context.Context, req *entity.BorrowRequest) error
	GetByID(ctx context.Context, id string) (*entity.BorrowRequest, error)
	// GetForUpdate obtiene la solicitud y bloquea su fila hasta el fin de la transacción.
	GetForUpdate(ctx context.Context, id string) (*entity.BorrowRequest, error)
	// UpdateState persiste estado y datos de decisión/devolución solo si la versión
	// almacenada sigue siendo expectedVersion; si no, devuelve domain.ErrConflict.
	UpdateState(ctx context.Context, req *entity.BorrowRequest, expectedVersion int) error
	List(ctx context.Context, filter RequestFilter) ([]RequestSummary, int, error)
}
