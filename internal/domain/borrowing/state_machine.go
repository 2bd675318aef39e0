// Package borrowing contiene la máquina de estados de la solicitud de préstamo
// (servicio de dominio puro, sin persistencia).
//
//	(ninguno) --Create--> PENDING
//	PENDING   --Approve-> APPROVED   (salida de stock por línea, todo o nada)
//	PENDING   --Reject--> REJECTED   (sin efecto en stock)
//	APPROVED  --Return--> RETURNED   (entrada de stock por lo reservado)
package borrowing

import (
	"strings"
	"time"

	"github.com/jhoicas/prestamos-api/internal/domain"
	"github.com/jhoicas/prestamos-api/internal/domain/entity"
)

// Event es un evento de la máquina de estados.
type Event string

const (
	EventApprove Event = "APPROVE"
	EventReject  Event = "REJECT"
	EventReturn  Event = "RETURN"
)

type transition struct {
	from  entity.RequestState
	event Event
}

var transitions = map[transition]entity.RequestState{
	{entity.StatePending, EventApprove}: entity.StateApproved,
	{entity.StatePending, EventReject}:  entity.StateRejected,
	{entity.StateApproved, EventReturn}: entity.StateReturned,
}

// Next devuelve el estado destino o un *domain.TransitionError si el par (estado, evento) no existe.
func Next(req *entity.BorrowRequest, ev Event) (entity.RequestState, error) {
	to, ok := transitions[transition{from: req.State, event: ev}]
	if !ok {
		return "", &domain.TransitionError{RequestID: req.ID, From: string(req.State), Event: string(ev)}
	}
	return to, nil
}

// Authorize verifica que el actor pueda disparar el evento sobre la solicitud.
// Aprobar y rechazar exigen capacidad de aprobador; devolver la admite el aprobador
// o el propio solicitante.
func Authorize(actor entity.Principal, req *entity.BorrowRequest, ev Event) error {
	switch ev {
	case EventApprove, EventReject:
		if actor.Can(entity.CapabilityApprover) {
			return nil
		}
	case EventReturn:
		if actor.Can(entity.CapabilityApprover) {
			return nil
		}
		if actor.Can(entity.CapabilityRequester) && actor.UserID == req.RequesterID {
			return nil
		}
	}
	return domain.ErrUnauthorized
}

// LineInput es una línea tal como llega al crear la solicitud.
type LineInput struct {
	ItemID   string
	Quantity int64
	Remark   string
}

// ValidateSubmission aplica las guardas estructurales de Create.
func ValidateSubmission(actor entity.Principal, lines []LineInput, borrowDate, returnDate time.Time) error {
	if actor.UserID == "" || !actor.Can(entity.CapabilityRequester) {
		return domain.ErrUnauthorized
	}
	if len(lines) == 0 {
		return domain.Invalid("la solicitud debe tener al menos una línea")
	}
	for i, l := range lines {
		if strings.TrimSpace(l.ItemID) == "" {
			return domain.Invalid("línea %d: item_id requerido", i+1)
		}
		if l.Quantity <= 0 {
			return domain.Invalid("línea %d: la cantidad debe ser mayor que cero", i+1)
		}
	}
	if borrowDate.IsZero() || returnDate.IsZero() {
		return domain.Invalid("fechas de préstamo y devolución requeridas")
	}
	if returnDate.Before(borrowDate) {
		return domain.Invalid("la fecha de devolución no puede ser anterior a la de préstamo")
	}
	return nil
}
