package http

import (
	"github.com/gofiber/fiber/v2"
	"github.com/jhoicas/prestamos-api/internal/application/query"
)

// MeHandler devuelve el usuario autenticado.
type MeHandler struct {
	queries *query.Service
}

// NewMeHandler construye el handler.
func NewMeHandler(queries *query.Service) *MeHandler {
	return &MeHandler{queries: queries}
}

// Get godoc
// @Summary      Usuario autenticado
// @Description  Claims del token, capacidades derivadas del rol y datos maestros del usuario.
// @Tags         me
// @Security     Bearer
// @Produce      json
// @Success      200  {object}  dto.UserResponse
// @Failure      401  {object}  dto.ErrorResponse
// @Router       /api/me [get]
func (h *MeHandler) Get(c *fiber.Ctx) error {
	out, err := h.queries.Me(c.Context(), GetPrincipal(c))
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(out)
}
