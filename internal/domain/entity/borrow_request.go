package entity

import "time"

// RequestState es el estado persistido de una solicitud de préstamo (enum cerrado).
type RequestState string

const (
	StatePending  RequestState = "PENDING"
	StateApproved RequestState = "APPROVED"
	StateRejected RequestState = "REJECTED"
	StateReturned RequestState = "RETURNED"
)

// Valid indica si s es uno de los estados conocidos.
func (s RequestState) Valid() bool {
	switch s {
	case StatePending, StateApproved, StateRejected, StateReturned:
		return true
	}
	return false
}

// Terminal indica que la solicitud ya no admite transiciones.
func (s RequestState) Terminal() bool {
	return s == StateRejected || s == StateReturned
}

// BorrowLine es un ítem + cantidad dentro de una solicitud. Inmutable después de aprobada.
type BorrowLine struct {
	ID       string
	LineNo   int
	ItemID   string
	Quantity int64
	Remark   string
}

// BorrowRequest es una transacción de préstamo con una o más líneas.
// Solo el motor de flujo de aprobación cambia State; nunca se elimina.
type BorrowRequest struct {
	ID             string
	RequesterID    string
	DepartmentID   string
	CreatedAt      time.Time
	BorrowDate     time.Time
	ReturnDate     time.Time
	Purpose        string
	State          RequestState
	Lines          []BorrowLine
	Version        int
	DecidedBy      string
	DecidedAt      *time.Time
	DecisionReason string
	ReturnedBy     string
	ReturnedAt     *time.Time
	ReturnNote     string
	UpdatedAt      time.Time
}

// DueAt es el instante a partir del cual la solicitud aprobada se considera vencida:
// el final del día de devolución solicitado.
func (r *BorrowRequest) DueAt() time.Time {
	y, m, d := r.ReturnDate.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, r.ReturnDate.Location()).AddDate(0, 0, 1)
}

// IsOverdue es una condición derivada (no persistida): aprobada, sin devolver y pasada la fecha de devolución.
func (r *BorrowRequest) IsOverdue(now time.Time) bool {
	return r.State == StateApproved && r.ReturnedAt == nil && !now.Before(r.DueAt())
}

// TotalQuantity suma las cantidades de todas las líneas.
func (r *BorrowRequest) TotalQuantity() int64 {
	var total int64
	for _, l := range r.Lines {
		total += l.Quantity
	}
	return total
}
