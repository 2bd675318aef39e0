package http

import (
	"errors"

	"github.com/gofiber/fiber/v2"
	"github.com/jhoicas/prestamos-api/internal/application/dto"
	"github.com/jhoicas/prestamos-api/internal/domain"
)

// retryAfterSeconds sugerido al cliente ante CONFLICT (contención de locks).
const retryAfterSeconds = "1"

// errDuplicateKey Idempotency-Key ya aplicada por el mismo usuario.
var errDuplicateKey = errors.New("idempotency key duplicada")

// writeError traduce los errores del núcleo a la respuesta HTTP. Único punto de mapeo.
func writeError(c *fiber.Ctx, err error) error {
	var stockErr *domain.InsufficientStockError
	switch {
	case errors.As(err, &stockErr):
		details := make([]dto.ShortageDetail, 0, len(stockErr.Shortages))
		for _, s := range stockErr.Shortages {
			details = append(details, dto.ShortageDetail{
				LineNo:    s.LineNo,
				ItemID:    s.ItemID,
				Requested: s.Requested,
				Available: s.Available,
			})
		}
		return c.Status(fiber.StatusConflict).JSON(dto.ErrorResponse{Code: "INSUFFICIENT_STOCK", Message: "stock insuficiente", Details: details})
	case errors.Is(err, domain.ErrInvalidInput):
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Code: "VALIDATION", Message: err.Error()})
	case errors.Is(err, domain.ErrUnauthorized):
		return c.Status(fiber.StatusForbidden).JSON(dto.ErrorResponse{Code: "UNAUTHORIZED", Message: "acción no permitida para el usuario"})
	case errors.Is(err, domain.ErrNotFound):
		return c.Status(fiber.StatusNotFound).JSON(dto.ErrorResponse{Code: "NOT_FOUND", Message: err.Error()})
	case errors.Is(err, domain.ErrInvalidTransition):
		return c.Status(fiber.StatusConflict).JSON(dto.ErrorResponse{Code: "INVALID_TRANSITION", Message: err.Error()})
	case errors.Is(err, domain.ErrInsufficientStock):
		return c.Status(fiber.StatusConflict).JSON(dto.ErrorResponse{Code: "INSUFFICIENT_STOCK", Message: "stock insuficiente"})
	case errors.Is(err, domain.ErrConflict):
		c.Set(fiber.HeaderRetryAfter, retryAfterSeconds)
		return c.Status(fiber.StatusConflict).JSON(dto.ErrorResponse{Code: "CONFLICT", Message: "recurso ocupado, reintente"})
	default:
		c.Locals(localInternalError, err)
		return c.Status(fiber.StatusInternalServerError).JSON(dto.ErrorResponse{Code: "INTERNAL", Message: "error interno"})
	}
}

func badBody(c *fiber.Ctx) error {
	return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Code: "INVALID_BODY", Message: "cuerpo inválido"})
}
