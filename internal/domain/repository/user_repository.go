package repository

import (
	"context"

	"github.com/jhoicas/prestamos-api/internal/domain/entity"
)

// UserRepository lectura de datos maestros de personal y dependencias.
type UserRepository interface {
	GetByID(ctx context.Context, id string) (*entity.User, error)
	GetDepartment(ctx context.Context, id string) (*entity.Department, error)
}
