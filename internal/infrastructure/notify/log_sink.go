package notify

import (
	"context"

	"github.com/jhoicas/prestamos-api/internal/domain/entity"
	"github.com/jhoicas/prestamos-api/pkg/logger"
)

// LogSink escribe cada evento en el log estructurado (cuando Redis está deshabilitado).
type LogSink struct {
	log *logger.Logger
}

// NewLogSink construye el sink.
func NewLogSink(log *logger.Logger) *LogSink {
	return &LogSink{log: log.WithComponent("events")}
}

// Deliver nunca falla.
func (s *LogSink) Deliver(_ context.Context, evt entity.DomainEvent) error {
	s.log.Info().
		Str("event_id", evt.ID).
		Str("event_type", evt.Type).
		Str("request_id", evt.RequestID).
		Str("requester_id", evt.RequesterID).
		Str("actor_id", evt.ActorID).
		Str("state", evt.State).
		Int("lines", len(evt.Lines)).
		Time("occurred_at", evt.OccurredAt).
		Msg("evento de préstamo")
	return nil
}
