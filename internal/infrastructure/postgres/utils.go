package postgres

import (
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jhoicas/prestamos-api/internal/domain"
)

const (
	codeUniqueViolation      = "23505"
	codeLockNotAvailable     = "55P03"
	codeSerializationFailure = "40001"
	codeDeadlockDetected     = "40P01"
)

func pgCode(err error) string {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code
	}
	return ""
}

// isUniqueViolation verifica si un error es una violación de constraint único (23505).
func isUniqueViolation(err error) bool {
	return pgCode(err) == codeUniqueViolation
}

// isRetryable lock_timeout, serialización y deadlock: otro escritor ganó la carrera.
func isRetryable(err error) bool {
	switch pgCode(err) {
	case codeLockNotAvailable, codeSerializationFailure, codeDeadlockDetected:
		return true
	}
	return false
}

// wrapErr envuelve err con op; los errores de contención se traducen a domain.ErrConflict.
func wrapErr(op string, err error) error {
	if err == nil {
		return nil
	}
	if isRetryable(err) || isUniqueViolation(err) {
		return fmt.Errorf("%s: %w (%v)", op, domain.ErrConflict, err)
	}
	return fmt.Errorf("%s: %w", op, err)
}
