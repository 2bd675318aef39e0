package http

import (
	"github.com/gofiber/fiber/v2"
	"github.com/jhoicas/prestamos-api/internal/application/dto"
	"github.com/jhoicas/prestamos-api/internal/application/inventory"
	"github.com/jhoicas/prestamos-api/internal/application/query"
	"github.com/jhoicas/prestamos-api/internal/domain/entity"
)

// ItemHandler maneja ítems y su libro de stock (protegido).
type ItemHandler struct {
	ledger  *inventory.StockLedger
	queries *query.Service
}

// NewItemHandler construye el handler.
func NewItemHandler(ledger *inventory.StockLedger, queries *query.Service) *ItemHandler {
	return &ItemHandler{ledger: ledger, queries: queries}
}

// List godoc
// @Summary      Listar ítems con su cantidad disponible
// @Tags         items
// @Security     Bearer
// @Produce      json
// @Param        category  query  string  false  "categoría"
// @Param        search    query  string  false  "código o nombre, sin distinguir tildes"
// @Param        limit     query  int     false  "máx. 100"
// @Param        offset    query  int     false  "desplazamiento"
// @Success      200  {object}  dto.ItemListResponse
// @Failure      400  {object}  dto.ErrorResponse
// @Router       /api/items [get]
func (h *ItemHandler) List(c *fiber.Ctx) error {
	var page dto.PageRequest
	if err := c.QueryParser(&page); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Code: "VALIDATION", Message: "parámetros de paginación inválidos"})
	}
	out, err := h.queries.Items(c.Context(), c.Query("category"), c.Query("search"), page)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(out)
}

// History godoc
// @Summary      Historial de movimientos de un ítem
// @Description  Más reciente primero. next_page_token vacío indica el final.
// @Tags         items
// @Security     Bearer
// @Produce      json
// @Param        id          path   string  true   "ID del ítem"
// @Param        page_token  query  string  false  "token de la página anterior"
// @Param        limit       query  int     false  "máx. 100"
// @Success      200  {object}  dto.MovementPageResponse
// @Failure      400  {object}  dto.ErrorResponse
// @Failure      404  {object}  dto.ErrorResponse
// @Router       /api/items/{id}/movements [get]
func (h *ItemHandler) History(c *fiber.Ctx) error {
	page, err := h.ledger.History(c.Context(), c.Params("id"), c.Query("page_token"), c.QueryInt("limit", 0))
	if err != nil {
		return writeError(c, err)
	}
	out := dto.MovementPageResponse{
		Items:         make([]dto.MovementResponse, 0, len(page.Items)),
		NextPageToken: page.NextPageToken,
	}
	for _, m := range page.Items {
		out.Items = append(out.Items, toMovementResponse(m))
	}
	return c.JSON(out)
}

// Adjust godoc
// @Summary      Ajuste manual de stock
// @Description  Entrada (alta de equipos) o salida (baja) sin solicitud asociada. Requiere nota.
// @Tags         items
// @Security     Bearer
// @Accept       json
// @Produce      json
// @Param        id    path  string                  true  "ID del ítem"
// @Param        body  body  dto.AdjustStockRequest  true  "type IN|OUT, amount, notes"
// @Success      201  {object}  dto.MovementResponse
// @Failure      400  {object}  dto.ErrorResponse
// @Failure      403  {object}  dto.ErrorResponse
// @Failure      404  {object}  dto.ErrorResponse
// @Failure      409  {object}  dto.ErrorResponse
// @Router       /api/items/{id}/adjustments [post]
func (h *ItemHandler) Adjust(c *fiber.Ctx) error {
	var in dto.AdjustStockRequest
	if err := c.BodyParser(&in); err != nil {
		return badBody(c)
	}
	mov, err := h.ledger.Adjust(c.Context(), GetPrincipal(c), c.Params("id"), in.Type, in.Amount, in.Notes)
	if err != nil {
		return writeError(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(toMovementResponse(mov))
}

// Verify godoc
// @Summary      Verificar el libro de un ítem
// @Description  Reconstruye la cantidad desde cero con todo el historial y la compara con la almacenada.
// @Tags         items
// @Security     Bearer
// @Produce      json
// @Param        id  path  string  true  "ID del ítem"
// @Success      200  {object}  dto.LedgerCheckResponse
// @Failure      404  {object}  dto.ErrorResponse
// @Router       /api/items/{id}/ledger-check [get]
func (h *ItemHandler) Verify(c *fiber.Ctx) error {
	check, err := h.ledger.Verify(c.Context(), c.Params("id"))
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(dto.LedgerCheckResponse{
		ItemID:           check.ItemID,
		StoredQuantity:   check.StoredQuantity,
		ReplayedQuantity: check.ReplayedQuantity,
		TotalIn:          check.TotalIn,
		TotalOut:         check.TotalOut,
		Movements:        check.Movements,
		Consistent:       check.Consistent,
		Problem:          check.Problem,
	})
}

func toMovementResponse(m *entity.StockMovement) dto.MovementResponse {
	return dto.MovementResponse{
		ID:             m.ID,
		ItemID:         m.ItemID,
		Sequence:       m.Sequence,
		Type:           m.Type,
		Amount:         m.Amount,
		QuantityBefore: m.QuantityBefore,
		QuantityAfter:  m.QuantityAfter,
		RequestID:      m.RequestID,
		ActorID:        m.ActorID,
		Notes:          m.Notes,
		CreatedAt:      m.CreatedAt,
	}
}
