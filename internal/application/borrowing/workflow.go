package borrowing

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jhoicas/prestamos-api/internal/application/inventory"
	"github.com/jhoicas/prestamos-api/internal/domain"
	domainborrow "github.com/jhoicas/prestamos-api/internal/domain/borrowing"
	"github.com/jhoicas/prestamos-api/internal/domain/entity"
	domaininv "github.com/jhoicas/prestamos-api/internal/domain/inventory"
	"github.com/jhoicas/prestamos-api/internal/domain/repository"
	"github.com/jhoicas/prestamos-api/pkg/logger"
	"github.com/jhoicas/prestamos-api/pkg/retry"
)

// Acciones de decisión del aprobador.
const (
	ActionApprove = "approve"
	ActionReject  = "reject"
)

// SubmitInput entrada para crear una solicitud de préstamo.
type SubmitInput struct {
	Lines      []domainborrow.LineInput
	BorrowDate time.Time
	ReturnDate time.Time
	Purpose    string
}

// Decision decisión del aprobador sobre una solicitud pendiente.
type Decision struct {
	Action string // approve | reject
	Reason string
}

// Config parámetros del motor.
type Config struct {
	RetryAttempts  int           // intentos ante domain.ErrConflict (incluye el primero)
	RetryBaseDelay time.Duration // retardo base del backoff exponencial
}

// WorkflowEngine es el único componente que dispara transiciones de una solicitud.
// Cada transición (estado + movimientos del libro) es una sola unidad de trabajo.
type WorkflowEngine struct {
	txRunner BorrowTxRunner
	ledger   Ledger
	itemRepo repository.ItemRepository
	events   EventPublisher
	log      *logger.Logger
	cfg      Config
	now      func() time.Time
}

// NewWorkflowEngine construye el motor. itemRepo se usa solo para validar existencia al crear.
func NewWorkflowEngine(
	txRunner BorrowTxRunner,
	ledger Ledger,
	itemRepo repository.ItemRepository,
	events EventPublisher,
	log *logger.Logger,
	cfg Config,
) *WorkflowEngine {
	if cfg.RetryAttempts <= 0 {
		cfg.RetryAttempts = 3
	}
	if cfg.RetryBaseDelay <= 0 {
		cfg.RetryBaseDelay = 25 * time.Millisecond
	}
	return &WorkflowEngine{
		txRunner: txRunner,
		ledger:   ledger,
		itemRepo: itemRepo,
		events:   events,
		log:      log,
		cfg:      cfg,
		now:      time.Now,
	}
}

// WithClock reemplaza el reloj (tests).
func (e *WorkflowEngine) WithClock(now func() time.Time) *WorkflowEngine {
	e.now = now
	return e
}

// Submit valida las guardas estructurales y persiste la solicitud en PENDING.
// No reserva stock: la verificación final de disponibilidad ocurre al aprobar.
func (e *WorkflowEngine) Submit(ctx context.Context, actor entity.Principal, in SubmitInput) (*entity.BorrowRequest, error) {
	if err := domainborrow.ValidateSubmission(actor, in.Lines, in.BorrowDate, in.ReturnDate); err != nil {
		return nil, err
	}

	// Existencia de ítems (fuera de la tx, solo lectura)
	for _, l := range in.Lines {
		item, err := e.itemRepo.GetByID(ctx, l.ItemID)
		if err != nil {
			return nil, err
		}
		if item == nil {
			return nil, &domain.NotFoundError{Kind: "item", ID: l.ItemID}
		}
		if item.Quantity < 0 {
			return nil, domain.Invalid("ítem %s con cantidad negativa", item.ID)
		}
	}

	now := e.now()
	req := &entity.BorrowRequest{
		ID:           uuid.New().String(),
		RequesterID:  actor.UserID,
		DepartmentID: actor.DepartmentID,
		CreatedAt:    now,
		UpdatedAt:    now,
		BorrowDate:   in.BorrowDate,
		ReturnDate:   in.ReturnDate,
		Purpose:      strings.TrimSpace(in.Purpose),
		State:        entity.StatePending,
		Version:      1,
	}
	for i, l := range in.Lines {
		req.Lines = append(req.Lines, entity.BorrowLine{
			ID:       uuid.New().String(),
			LineNo:   i + 1,
			ItemID:   l.ItemID,
			Quantity: l.Quantity,
			Remark:   strings.TrimSpace(l.Remark),
		})
	}

	err := e.txRunner.RunBorrow(ctx, func(
		reqRepo repository.BorrowRequestRepository,
		_ repository.ItemRepository,
		_ repository.StockMovementRepository,
	) error {
		return reqRepo.Create(ctx, req)
	})
	if err != nil {
		return nil, err
	}

	e.log.Info().
		Str("request_id", req.ID).
		Str("requester_id", req.RequesterID).
		Int("lines", len(req.Lines)).
		Msg("solicitud de préstamo creada")
	e.publish(ctx, entity.EventRequestSubmitted, req, actor.UserID, "")
	return req, nil
}

// Decide aprueba o rechaza una solicitud PENDING.
// Aprobar registra una salida (OUT) por línea; si alguna línea no tiene stock, nada se aplica
// y el error nombra todas las líneas afectadas.
func (e *WorkflowEngine) Decide(ctx context.Context, actor entity.Principal, requestID string, d Decision) (*entity.BorrowRequest, error) {
	var ev domainborrow.Event
	switch strings.ToLower(d.Action) {
	case ActionApprove:
		ev = domainborrow.EventApprove
	case ActionReject:
		ev = domainborrow.EventReject
	default:
		return nil, domain.Invalid("acción %q inválida", d.Action)
	}
	return e.apply(ctx, actor, requestID, ev, strings.TrimSpace(d.Reason))
}

// MarkReturned registra la devolución de una solicitud APPROVED: una entrada (IN) por ítem
// restituyendo exactamente lo reservado en la aprobación según el libro.
func (e *WorkflowEngine) MarkReturned(ctx context.Context, actor entity.Principal, requestID, note string) (*entity.BorrowRequest, error) {
	return e.apply(ctx, actor, requestID, domainborrow.EventReturn, strings.TrimSpace(note))
}

func (e *WorkflowEngine) apply(ctx context.Context, actor entity.Principal, requestID string, ev domainborrow.Event, note string) (*entity.BorrowRequest, error) {
	if requestID == "" {
		return nil, domain.Invalid("request_id requerido")
	}
	if actor.UserID == "" {
		return nil, domain.ErrUnauthorized
	}

	var out *entity.BorrowRequest
	var from entity.RequestState
	err := retry.Do(ctx, func(ctx context.Context) error {
		return e.txRunner.RunBorrow(ctx, func(
			reqRepo repository.BorrowRequestRepository,
			itemRepo repository.ItemRepository,
			movRepo repository.StockMovementRepository,
		) error {
			req, err := reqRepo.GetForUpdate(ctx, requestID)
			if err != nil {
				return err
			}
			if req == nil {
				return &domain.NotFoundError{Kind: "request", ID: requestID}
			}
			if err := domainborrow.Authorize(actor, req, ev); err != nil {
				return err
			}
			to, err := domainborrow.Next(req, ev)
			if err != nil {
				return err
			}

			switch ev {
			case domainborrow.EventApprove:
				if err := e.reserveLines(ctx, itemRepo, movRepo, req, actor); err != nil {
					return err
				}
			case domainborrow.EventReturn:
				if err := e.restoreReserved(ctx, itemRepo, movRepo, req, actor); err != nil {
					return err
				}
			}

			now := e.now()
			expected := req.Version
			from = req.State
			req.State = to
			req.Version++
			req.UpdatedAt = now
			switch ev {
			case domainborrow.EventApprove, domainborrow.EventReject:
				req.DecidedBy = actor.UserID
				req.DecidedAt = &now
				req.DecisionReason = note
			case domainborrow.EventReturn:
				req.ReturnedBy = actor.UserID
				req.ReturnedAt = &now
				req.ReturnNote = note
			}
			if err := reqRepo.UpdateState(ctx, req, expected); err != nil {
				return err
			}
			out = req
			return nil
		})
	}, retry.On(domain.ErrConflict), retry.WithMaxAttempts(e.cfg.RetryAttempts), retry.WithBaseDelay(e.cfg.RetryBaseDelay))
	if err != nil {
		e.logRejected(requestID, actor, ev, err)
		return nil, err
	}

	e.log.Info().
		Str("request_id", out.ID).
		Str("from", string(from)).
		Str("to", string(out.State)).
		Str("actor_id", actor.UserID).
		Msg("transición aplicada")

	switch ev {
	case domainborrow.EventApprove:
		e.publish(ctx, entity.EventRequestApproved, out, actor.UserID, note)
	case domainborrow.EventReject:
		e.publish(ctx, entity.EventRequestRejected, out, actor.UserID, note)
	case domainborrow.EventReturn:
		e.publish(ctx, entity.EventRequestReturned, out, actor.UserID, note)
	}
	return out, nil
}

// reserveLines registra una salida por línea en orden de item_id (orden de bloqueo estable
// entre transacciones concurrentes). Sigue evaluando tras el primer faltante para informar
// todas las líneas; cualquier faltante aborta la transacción completa.
func (e *WorkflowEngine) reserveLines(
	ctx context.Context,
	itemRepo repository.ItemRepository,
	movRepo repository.StockMovementRepository,
	req *entity.BorrowRequest,
	actor entity.Principal,
) error {
	lines := make([]entity.BorrowLine, len(req.Lines))
	copy(lines, req.Lines)
	sort.SliceStable(lines, func(i, j int) bool { return lines[i].ItemID < lines[j].ItemID })

	requestID := req.ID
	var shortages []domain.StockShortage
	for _, line := range lines {
		_, err := e.ledger.RecordMovementInTx(ctx, itemRepo, movRepo, inventory.MovementInput{
			ItemID:    line.ItemID,
			Type:      entity.MovementTypeOUT,
			Amount:    line.Quantity,
			RequestID: &requestID,
			ActorID:   actor.UserID,
			Notes:     "préstamo aprobado",
		})
		if err == nil {
			continue
		}
		var stockErr *domain.InsufficientStockError
		if !errors.As(err, &stockErr) {
			return err
		}
		for _, s := range stockErr.Shortages {
			s.LineNo = line.LineNo
			shortages = append(shortages, s)
		}
	}
	if len(shortages) > 0 {
		sort.Slice(shortages, func(i, j int) bool { return shortages[i].LineNo < shortages[j].LineNo })
		return &domain.InsufficientStockError{Shortages: shortages}
	}
	return nil
}

// restoreReserved registra una entrada por línea, en el mismo orden de item_id que
// reserveLines. Antes de escribir comprueba que la suma por ítem coincide con lo que el
// libro mantiene reservado para la solicitud.
func (e *WorkflowEngine) restoreReserved(
	ctx context.Context,
	itemRepo repository.ItemRepository,
	movRepo repository.StockMovementRepository,
	req *entity.BorrowRequest,
	actor entity.Principal,
) error {
	movs, err := movRepo.ListByRequest(ctx, req.ID)
	if err != nil {
		return err
	}
	outstanding := domaininv.Outstanding(movs)

	lines := make([]entity.BorrowLine, len(req.Lines))
	copy(lines, req.Lines)
	sort.SliceStable(lines, func(i, j int) bool { return lines[i].ItemID < lines[j].ItemID })

	perItem := make(map[string]int64, len(outstanding))
	for _, line := range lines {
		perItem[line.ItemID] += line.Quantity
	}
	if len(perItem) != len(outstanding) {
		return fmt.Errorf("devolución %s: el libro reserva %d ítems y la solicitud tiene %d", req.ID, len(outstanding), len(perItem))
	}
	for id, qty := range perItem {
		if outstanding[id] != qty {
			return fmt.Errorf("devolución %s: ítem %s reservado %d, líneas suman %d", req.ID, id, outstanding[id], qty)
		}
	}

	requestID := req.ID
	for _, line := range lines {
		if _, err := e.ledger.RecordMovementInTx(ctx, itemRepo, movRepo, inventory.MovementInput{
			ItemID:    line.ItemID,
			Type:      entity.MovementTypeIN,
			Amount:    line.Quantity,
			RequestID: &requestID,
			ActorID:   actor.UserID,
			Notes:     "devolución de préstamo",
		}); err != nil {
			return err
		}
	}
	return nil
}

func (e *WorkflowEngine) publish(ctx context.Context, eventType string, req *entity.BorrowRequest, actorID, reason string) {
	if e.events == nil {
		return
	}
	e.events.Publish(ctx, NewEvent(eventType, req, actorID, reason, e.now()))
}

func (e *WorkflowEngine) logRejected(requestID string, actor entity.Principal, ev domainborrow.Event, err error) {
	evt := e.log.Warn()
	if !isDomainError(err) {
		evt = e.log.Error()
	}
	evt.Err(err).
		Str("request_id", requestID).
		Str("event", string(ev)).
		Str("actor_id", actor.UserID).
		Msg("transición rechazada")
}

func isDomainError(err error) bool {
	for _, target := range []error{
		domain.ErrInvalidInput, domain.ErrUnauthorized, domain.ErrNotFound,
		domain.ErrInvalidTransition, domain.ErrInsufficientStock, domain.ErrConflict,
	} {
		if errors.Is(err, target) {
			return true
		}
	}
	return false
}

// NewEvent construye el evento de dominio para una solicitud.
func NewEvent(eventType string, req *entity.BorrowRequest, actorID, reason string, at time.Time) entity.DomainEvent {
	lines := make([]entity.EventLine, 0, len(req.Lines))
	for _, l := range req.Lines {
		lines = append(lines, entity.EventLine{ItemID: l.ItemID, Quantity: l.Quantity})
	}
	return entity.DomainEvent{
		ID:          uuid.New().String(),
		Type:        eventType,
		RequestID:   req.ID,
		RequesterID: req.RequesterID,
		ActorID:     actorID,
		State:       string(req.State),
		Reason:      reason,
		Lines:       lines,
		OccurredAt:  at,
	}
}
