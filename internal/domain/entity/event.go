package entity

import "time"

// Tipos de evento de dominio emitidos después de cada commit.
const (
	EventRequestSubmitted = "RequestSubmitted"
	EventRequestApproved  = "RequestApproved"
	EventRequestRejected  = "RequestRejected"
	EventRequestReturned  = "RequestReturned"
	EventRequestOverdue   = "RequestOverdue"
)

// EventLine resume una línea afectada por el evento.
type EventLine struct {
	ItemID   string `json:"item_id"`
	Quantity int64  `json:"quantity"`
}

// DomainEvent es la notificación que consume el despachador externo (fire-and-forget).
type DomainEvent struct {
	ID          string      `json:"id"`
	Type        string      `json:"type"`
	RequestID   string      `json:"request_id"`
	RequesterID string      `json:"requester_id"`
	ActorID     string      `json:"actor_id,omitempty"`
	State       string      `json:"state"`
	Reason      string      `json:"reason,omitempty"`
	Lines       []EventLine `json:"lines,omitempty"`
	OccurredAt  time.Time   `json:"occurred_at"`
}
