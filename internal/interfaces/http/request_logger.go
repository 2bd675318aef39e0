package http

import (
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/jhoicas/prestamos-api/pkg/logger"
)

// localInternalError guarda el error original de una respuesta 500 para el access log.
const localInternalError = "internal_error"

// RequestLogger registra una línea por petición con método, ruta, estado y latencia.
func RequestLogger(log *logger.Logger) fiber.Handler {
	log = log.WithComponent("http")
	return func(c *fiber.Ctx) error {
		start := time.Now()
		err := c.Next()
		status := c.Response().StatusCode()
		if err != nil {
			if fe, ok := err.(*fiber.Error); ok {
				status = fe.Code
			} else {
				status = fiber.StatusInternalServerError
			}
		}

		evt := log.Info()
		switch {
		case status >= fiber.StatusInternalServerError:
			evt = log.Error()
		case status >= fiber.StatusBadRequest:
			evt = log.Warn()
		}
		if err != nil {
			evt = evt.Err(err)
		} else if internal, ok := c.Locals(localInternalError).(error); ok {
			evt = evt.Err(internal)
		}
		evt.
			Str("method", c.Method()).
			Str("path", c.Path()).
			Int("status", status).
			Dur("latency", time.Since(start)).
			Str("user_id", GetUserID(c)).
			Msg("petición HTTP")
		return err
	}
}
