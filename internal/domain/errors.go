package domain

import (
	"errors"
	"fmt"
	"strings"
)

// Errores de dominio (sin dependencias externas).
var (
	ErrNotFound          = errors.New("recurso no encontrado")
	ErrInvalidInput      = errors.New("entrada inválida")
	ErrUnauthorized      = errors.New("no autorizado")
	ErrInvalidTransition = errors.New("transición de estado inválida")
	ErrInsufficientStock = errors.New("stock insuficiente")
	ErrConflict          = errors.New("conflicto con el estado actual")
)

// StockShortage describe una línea (o ítem) que no puede cubrirse con el stock actual.
type StockShortage struct {
	LineNo    int // 0 para movimientos sin línea (ajustes manuales)
	ItemID    string
	Requested int64
	Available int64
}

// InsufficientStockError lista todas las líneas sin stock suficiente.
// errors.Is(err, ErrInsufficientStock) es true.
type InsufficientStockError struct {
	Shortages []StockShortage
}

func (e *InsufficientStockError) Error() string {
	parts := make([]string, 0, len(e.Shortages))
	for _, s := range e.Shortages {
		parts = append(parts, fmt.Sprintf("línea %d ítem %s: solicitado %d, disponible %d", s.LineNo, s.ItemID, s.Requested, s.Available))
	}
	return ErrInsufficientStock.Error() + ": " + strings.Join(parts, "; ")
}

func (e *InsufficientStockError) Is(target error) bool { return target == ErrInsufficientStock }

// TransitionError indica que el evento no es válido desde el estado actual de la solicitud.
type TransitionError struct {
	RequestID string
	From      string
	Event     string
}

func (e *TransitionError) Error() string {
	return fmt.Sprintf("%s: solicitud %s en estado %s no admite %s", ErrInvalidTransition.Error(), e.RequestID, e.From, e.Event)
}

func (e *TransitionError) Is(target error) bool { return target == ErrInvalidTransition }

// NotFoundError identifica el recurso que no existe.
type NotFoundError struct {
	Kind string // "item", "request", "user"
	ID   string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s: %s %s", ErrNotFound.Error(), e.Kind, e.ID)
}

func (e *NotFoundError) Is(target error) bool { return target == ErrNotFound }

// Invalid envuelve ErrInvalidInput con el detalle del campo.
func Invalid(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrInvalidInput, fmt.Sprintf(format, args...))
}
