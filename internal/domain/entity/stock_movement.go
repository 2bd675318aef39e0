package entity

import "time"

// Tipos de movimiento del libro de stock.
const (
	MovementTypeIN  = "IN"  // entrada (devolución, ajuste positivo)
	MovementTypeOUT = "OUT" // salida (aprobación de préstamo, baja)
)

// StockMovement es una entrada inmutable del libro de stock.
// QuantityAfter = QuantityBefore ± Amount según Type; Sequence crece de forma estricta por ítem.
type StockMovement struct {
	ID             string
	ItemID         string
	Sequence       int64
	Type           string
	Amount         int64
	QuantityBefore int64
	QuantityAfter  int64
	RequestID      *string // nil en ajustes manuales
	ActorID        string
	Notes          string
	CreatedAt      time.Time
}

// Delta devuelve el cambio firmado que el movimiento aplica a la cantidad.
func (m *StockMovement) Delta() int64 {
	if m.Type == MovementTypeOUT {
		return -m.Amount
	}
	return m.Amount
}

// Consistent verifica la aritmética before/after del movimiento.
func (m *StockMovement) Consistent() bool {
	if m.Amount <= 0 {
		return false
	}
	if m.Type != MovementTypeIN && m.Type != MovementTypeOUT {
		return false
	}
	return m.QuantityAfter == m.QuantityBefore+m.Delta() && m.QuantityAfter >= 0
}
