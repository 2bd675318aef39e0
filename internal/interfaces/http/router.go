package http

import (
	"github.com/gofiber/fiber/v2"
	"github.com/jhoicas/prestamos-api/internal/application/borrowing"
	"github.com/jhoicas/prestamos-api/internal/application/inventory"
	"github.com/jhoicas/prestamos-api/internal/application/ports"
	"github.com/jhoicas/prestamos-api/internal/application/query"
	"github.com/jhoicas/prestamos-api/internal/domain/entity"
)

// RouterDeps dependencias para el router.
type RouterDeps struct {
	Engine      *borrowing.WorkflowEngine
	Ledger      *inventory.StockLedger
	Queries     *query.Service
	Slips       ports.SlipGenerator
	Idempotency ports.IdempotencyStore
	JWTSecret   string
}

// Router registra las rutas de la API. Todas requieren Bearer Token.
func Router(app *fiber.App, deps RouterDeps) {
	api := app.Group("/api", AuthMiddleware(deps.JWTSecret))
	approver := RequireCapability(entity.CapabilityApprover)

	meHandler := NewMeHandler(deps.Queries)
	api.Get("/me", meHandler.Get)

	// Solicitudes de préstamo. Las rutas fijas van antes de /:id.
	requests := api.Group("/borrow-requests")
	borrowHandler := NewBorrowHandler(deps.Engine, deps.Queries, deps.Slips, deps.Idempotency)
	requests.Post("/", RequireCapability(entity.CapabilityRequester), borrowHandler.Submit)
	requests.Get("/mine", borrowHandler.Mine)
	requests.Get("/pending", approver, borrowHandler.Pending)
	requests.Get("/overdue", approver, borrowHandler.Overdue)
	requests.Get("/:id", borrowHandler.Detail)
	requests.Get("/:id/slip", borrowHandler.Slip)
	requests.Post("/:id/decision", approver, borrowHandler.Decide)
	requests.Post("/:id/return", borrowHandler.Return)

	// Ítems y libro de stock
	items := api.Group("/items")
	itemHandler := NewItemHandler(deps.Ledger, deps.Queries)
	items.Get("/", itemHandler.List)
	items.Get("/:id/movements", itemHandler.History)
	items.Get("/:id/ledger-check", approver, itemHandler.Verify)
	items.Post("/:id/adjustments", approver, itemHandler.Adjust)
}
