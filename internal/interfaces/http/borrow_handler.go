package http

import (
	"context"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/jhoicas/prestamos-api/internal/application/borrowing"
	"github.com/jhoicas/prestamos-api/internal/application/dto"
	"github.com/jhoicas/prestamos-api/internal/application/ports"
	"github.com/jhoicas/prestamos-api/internal/application/query"
	"github.com/jhoicas/prestamos-api/internal/domain"
	domainborrow "github.com/jhoicas/prestamos-api/internal/domain/borrowing"
	"github.com/jhoicas/prestamos-api/internal/domain/entity"
)

const (
	dateLayout = "2006-01-02"

	// HeaderIdempotencyKey permite reintentar una escritura sin aplicarla dos veces.
	HeaderIdempotencyKey = "Idempotency-Key"
	idempotencyTTL       = 24 * time.Hour
)

// BorrowHandler maneja las peticiones HTTP de solicitudes de préstamo (protegido).
type BorrowHandler struct {
	engine  *borrowing.WorkflowEngine
	queries *query.Service
	slips   ports.SlipGenerator
	idem    ports.IdempotencyStore
}

// NewBorrowHandler construye el handler. idem nil desactiva Idempotency-Key.
func NewBorrowHandler(engine *borrowing.WorkflowEngine, queries *query.Service, slips ports.SlipGenerator, idem ports.IdempotencyStore) *BorrowHandler {
	return &BorrowHandler{engine: engine, queries: queries, slips: slips, idem: idem}
}

// Submit godoc
// @Summary      Crear solicitud de préstamo
// @Description  Crea la solicitud en PENDING. No reserva stock; la disponibilidad se verifica al aprobar.
// @Tags         borrow-requests
// @Security     Bearer
// @Accept       json
// @Produce      json
// @Param        Idempotency-Key  header  string                    false  "clave de idempotencia (24 h)"
// @Param        body             body    dto.CreateBorrowRequest  true   "fechas YYYY-MM-DD y líneas item_id + quantity"
// @Success      201  {object}  dto.BorrowRequestResponse
// @Failure      400  {object}  dto.ErrorResponse
// @Failure      403  {object}  dto.ErrorResponse
// @Failure      404  {object}  dto.ErrorResponse
// @Failure      409  {object}  dto.ErrorResponse
// @Router       /api/borrow-requests [post]
func (h *BorrowHandler) Submit(c *fiber.Ctx) error {
	var in dto.CreateBorrowRequest
	if err := c.BodyParser(&in); err != nil {
		return badBody(c)
	}
	borrowDate, err := parseDate("borrow_date", in.BorrowDate)
	if err != nil {
		return writeError(c, err)
	}
	returnDate, err := parseDate("return_date", in.ReturnDate)
	if err != nil {
		return writeError(c, err)
	}
	lines := make([]domainborrow.LineInput, 0, len(in.Lines))
	for _, l := range in.Lines {
		lines = append(lines, domainborrow.LineInput{ItemID: l.ItemID, Quantity: l.Quantity, Remark: l.Remark})
	}

	var req *entity.BorrowRequest
	err = h.idempotent(c, func(ctx context.Context) error {
		var err error
		req, err = h.engine.Submit(ctx, GetPrincipal(c), borrowing.SubmitInput{
			Lines:      lines,
			BorrowDate: borrowDate,
			ReturnDate: returnDate,
			Purpose:    in.Purpose,
		})
		return err
	})
	if err != nil {
		return h.fail(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(query.ToRequestResponse(req, time.Now()))
}

// Decide godoc
// @Summary      Aprobar o rechazar una solicitud
// @Description  Aprobar registra una salida por línea, todo o nada. Si falta stock responde
//
//	INSUFFICIENT_STOCK con el detalle de cada línea afectada.
//
// @Tags         borrow-requests
// @Security     Bearer
// @Accept       json
// @Produce      json
// @Param        id               path    string               true   "ID de la solicitud"
// @Param        Idempotency-Key  header  string               false  "clave de idempotencia (24 h)"
// @Param        body             body    dto.DecisionRequest  true   "action: approve | reject"
// @Success      200  {object}  dto.BorrowRequestResponse
// @Failure      400  {object}  dto.ErrorResponse
// @Failure      403  {object}  dto.ErrorResponse
// @Failure      404  {object}  dto.ErrorResponse
// @Failure      409  {object}  dto.ErrorResponse
// @Router       /api/borrow-requests/{id}/decision [post]
func (h *BorrowHandler) Decide(c *fiber.Ctx) error {
	var in dto.DecisionRequest
	if err := c.BodyParser(&in); err != nil {
		return badBody(c)
	}
	var req *entity.BorrowRequest
	err := h.idempotent(c, func(ctx context.Context) error {
		var err error
		req, err = h.engine.Decide(ctx, GetPrincipal(c), c.Params("id"), borrowing.Decision{Action: in.Action, Reason: in.Reason})
		return err
	})
	if err != nil {
		return h.fail(c, err)
	}
	return c.JSON(query.ToRequestResponse(req, time.Now()))
}

// Return godoc
// @Summary      Registrar devolución
// @Description  Devuelve al almacén exactamente lo reservado en la aprobación. Solo desde APPROVED.
// @Tags         borrow-requests
// @Security     Bearer
// @Accept       json
// @Produce      json
// @Param        id               path    string             true   "ID de la solicitud"
// @Param        Idempotency-Key  header  string             false  "clave de idempotencia (24 h)"
// @Param        body             body    dto.ReturnRequest  false  "nota de devolución"
// @Success      200  {object}  dto.BorrowRequestResponse
// @Failure      403  {object}  dto.ErrorResponse
// @Failure      404  {object}  dto.ErrorResponse
// @Failure      409  {object}  dto.ErrorResponse
// @Router       /api/borrow-requests/{id}/return [post]
func (h *BorrowHandler) Return(c *fiber.Ctx) error {
	var in dto.ReturnRequest
	if len(c.Body()) > 0 {
		if err := c.BodyParser(&in); err != nil {
			return badBody(c)
		}
	}
	var req *entity.BorrowRequest
	err := h.idempotent(c, func(ctx context.Context) error {
		var err error
		req, err = h.engine.MarkReturned(ctx, GetPrincipal(c), c.Params("id"), in.Note)
		return err
	})
	if err != nil {
		return h.fail(c, err)
	}
	return c.JSON(query.ToRequestResponse(req, time.Now()))
}

// Pending godoc
// @Summary      Solicitudes pendientes
// @Description  Más antiguas primero. search busca por nombre o número de empleado, sin distinguir tildes.
// @Tags         borrow-requests
// @Security     Bearer
// @Produce      json
// @Param        department_id  query  string  false  "filtrar por dependencia"
// @Param        search         query  string  false  "nombre o número de empleado"
// @Param        limit          query  int     false  "máx. 100"
// @Param        offset         query  int     false  "desplazamiento"
// @Success      200  {object}  dto.BorrowRequestListResponse
// @Failure      403  {object}  dto.ErrorResponse
// @Router       /api/borrow-requests/pending [get]
func (h *BorrowHandler) Pending(c *fiber.Ctx) error {
	f, err := listFilter(c)
	if err != nil {
		return writeError(c, err)
	}
	out, err := h.queries.Pending(c.Context(), GetPrincipal(c), f)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(out)
}

// Mine godoc
// @Summary      Mis solicitudes
// @Tags         borrow-requests
// @Security     Bearer
// @Produce      json
// @Param        state   query  string  false  "estados separados por coma (PENDING,APPROVED,...)"
// @Param        limit   query  int     false  "máx. 100"
// @Param        offset  query  int     false  "desplazamiento"
// @Success      200  {object}  dto.BorrowRequestListResponse
// @Failure      400  {object}  dto.ErrorResponse
// @Router       /api/borrow-requests/mine [get]
func (h *BorrowHandler) Mine(c *fiber.Ctx) error {
	f, err := listFilter(c)
	if err != nil {
		return writeError(c, err)
	}
	out, err := h.queries.Mine(c.Context(), GetPrincipal(c), f)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(out)
}

// Overdue godoc
// @Summary      Préstamos vencidos
// @Description  Aprobados y no devueltos cuya fecha de devolución ya terminó (UTC).
// @Tags         borrow-requests
// @Security     Bearer
// @Produce      json
// @Param        department_id  query  string  false  "filtrar por dependencia"
// @Param        search         query  string  false  "nombre o número de empleado"
// @Param        limit          query  int     false  "máx. 100"
// @Param        offset         query  int     false  "desplazamiento"
// @Success      200  {object}  dto.BorrowRequestListResponse
// @Failure      403  {object}  dto.ErrorResponse
// @Router       /api/borrow-requests/overdue [get]
func (h *BorrowHandler) Overdue(c *fiber.Ctx) error {
	f, err := listFilter(c)
	if err != nil {
		return writeError(c, err)
	}
	out, err := h.queries.Overdue(c.Context(), GetPrincipal(c), f)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(out)
}

// Detail godoc
// @Summary      Detalle de una solicitud
// @Tags         borrow-requests
// @Security     Bearer
// @Produce      json
// @Param        id  path  string  true  "ID de la solicitud"
// @Success      200  {object}  dto.BorrowRequestResponse
// @Failure      403  {object}  dto.ErrorResponse
// @Failure      404  {object}  dto.ErrorResponse
// @Router       /api/borrow-requests/{id} [get]
func (h *BorrowHandler) Detail(c *fiber.Ctx) error {
	out, err := h.queries.Detail(c.Context(), GetPrincipal(c), c.Params("id"))
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(out)
}

// Slip godoc
// @Summary      Comprobante de préstamo en PDF
// @Tags         borrow-requests
// @Security     Bearer
// @Produce      application/pdf
// @Param        id  path  string  true  "ID de la solicitud"
// @Success      200  {file}    binary
// @Failure      403  {object}  dto.ErrorResponse
// @Failure      404  {object}  dto.ErrorResponse
// @Router       /api/borrow-requests/{id}/slip [get]
func (h *BorrowHandler) Slip(c *fiber.Ctx) error {
	detail, err := h.queries.Detail(c.Context(), GetPrincipal(c), c.Params("id"))
	if err != nil {
		return writeError(c, err)
	}
	pdf, err := h.slips.GenerateSlip(c.Context(), detail)
	if err != nil {
		return writeError(c, err)
	}
	c.Set(fiber.HeaderContentType, "application/pdf")
	c.Set(fiber.HeaderContentDisposition, `inline; filename="prestamo-`+detail.ID+`.pdf"`)
	return c.Send(pdf)
}

// idempotent ejecuta fn una sola vez por Idempotency-Key y usuario dentro del TTL.
// Si fn falla la clave se libera para que un reintento legítimo pueda aplicarse.
func (h *BorrowHandler) idempotent(c *fiber.Ctx, fn func(ctx context.Context) error) error {
	ctx := c.Context()
	key := strings.TrimSpace(c.Get(HeaderIdempotencyKey))
	if key == "" || h.idem == nil {
		return fn(ctx)
	}
	scoped := GetUserID(c) + ":" + c.Method() + ":" + c.Path() + ":" + key
	ok, err := h.idem.Acquire(ctx, scoped, idempotencyTTL)
	if err != nil {
		return err
	}
	if !ok {
		return errDuplicateKey
	}
	if err := fn(ctx); err != nil {
		_ = h.idem.Release(ctx, scoped)
		return err
	}
	return nil
}

func (h *BorrowHandler) fail(c *fiber.Ctx, err error) error {
	if err == errDuplicateKey {
		return c.Status(fiber.StatusConflict).JSON(dto.ErrorResponse{Code: "CONFLICT", Message: "Idempotency-Key ya utilizada; la operación no se repitió"})
	}
	return writeError(c, err)
}

func listFilter(c *fiber.Ctx) (query.ListFilter, error) {
	var page dto.PageRequest
	if err := c.QueryParser(&page); err != nil {
		return query.ListFilter{}, domain.Invalid("parámetros de paginación inválidos")
	}
	f := query.ListFilter{
		DepartmentID: c.Query("department_id"),
		Search:       c.Query("search"),
		Page:         page,
	}
	if raw := c.Query("state"); raw != "" {
		for _, s := range strings.Split(raw, ",") {
			if s = strings.TrimSpace(s); s != "" {
				f.States = append(f.States, entity.RequestState(strings.ToUpper(s)))
			}
		}
	}
	return f, nil
}

// parseDate interpreta una fecha calendario YYYY-MM-DD en UTC.
func parseDate(field, s string) (time.Time, error) {
	if strings.TrimSpace(s) == "" {
		return time.Time{}, domain.Invalid("%s requerido", field)
	}
	t, err := time.ParseInLocation(dateLayout, strings.TrimSpace(s), time.UTC)
	if err != nil {
		return time.Time{}, domain.Invalid("%s debe tener formato YYYY-MM-DD", field)
	}
	return t, nil
}
