package query

import (
	"context"
	"sync"
	"time"

	"github.com/jhoicas/prestamos-api/internal/application/borrowing"
	"github.com/jhoicas/prestamos-api/internal/domain/entity"
	"github.com/jhoicas/prestamos-api/internal/domain/repository"
	"github.com/jhoicas/prestamos-api/pkg/logger"
)

const sweepPageSize = 200

// OverdueSweeper recorre periódicamente las solicitudes vencidas y emite RequestOverdue
// una vez por solicitud. No modifica ninguna solicitud.
type OverdueSweeper struct {
	requests repository.BorrowRequestRepository
	events   borrowing.EventPublisher
	log      *logger.Logger
	interval time.Duration
	now      func() time.Time

	mu       sync.Mutex
	notified map[string]struct{}
}

// NewOverdueSweeper construye el barrido. interval <= 0 lo deshabilita (Run retorna de inmediato).
func NewOverdueSweeper(requests repository.BorrowRequestRepository, events borrowing.EventPublisher, log *logger.Logger, interval time.Duration) *OverdueSweeper {
	return &OverdueSweeper{
		requests: requests,
		events:   events,
		log:      log.WithComponent("overdue_sweeper"),
		interval: interval,
		now:      time.Now,
		notified: make(map[string]struct{}),
	}
}

// WithClock reemplaza el reloj (tests).
func (s *OverdueSweeper) WithClock(now func() time.Time) *OverdueSweeper {
	s.now = now
	return s
}

// Run ejecuta Sweep cada interval hasta que ctx termine.
func (s *OverdueSweeper) Run(ctx context.Context) {
	if s.interval <= 0 {
		return
	}
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if _, err := s.Sweep(ctx); err != nil && ctx.Err() == nil {
				s.log.Error().Err(err).Msg("barrido de vencidas fallido")
			}
		}
	}
}

// Sweep una pasada: devuelve cuántas solicitudes se notificaron por primera vez.
// Al terminar olvida las solicitudes que ya no están vencidas (devueltas).
func (s *OverdueSweeper) Sweep(ctx context.Context) (int, error) {
	now := s.now()
	cutoff := startOfDay(now)
	emitted := 0
	current := make(map[string]struct{})
	for offset := 0; ; offset += sweepPageSize {
		rows, total, err := s.requests.List(ctx, repository.RequestFilter{
			States:    []entity.RequestState{entity.StateApproved},
			DueBefore: &cutoff,
			Limit:     sweepPageSize,
			Offset:    offset,
		})
		if err != nil {
			return emitted, err
		}
		for _, r := range rows {
			if !r.Request.IsOverdue(now) {
				continue
			}
			current[r.Request.ID] = struct{}{}
			if s.markNotified(r.Request.ID) {
				s.publish(ctx, r.Request, now)
				emitted++
			}
		}
		if offset+len(rows) >= total || len(rows) == 0 {
			break
		}
	}
	s.forgetExcept(current)
	s.log.Info().Int("overdue", len(current)).Int("notified", emitted).Msg("barrido de vencidas")
	return emitted, nil
}

// Tracked cantidad de solicitudes vencidas ya notificadas que el barrido recuerda.
func (s *OverdueSweeper) Tracked() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.notified)
}

func (s *OverdueSweeper) forgetExcept(current map[string]struct{}) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for id := range s.notified {
		if _, ok := current[id]; !ok {
			delete(s.notified, id)
		}
	}
}

func (s *OverdueSweeper) markNotified(id string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.notified[id]; ok {
		return false
	}
	s.notified[id] = struct{}{}
	return true
}

func (s *OverdueSweeper) publish(ctx context.Context, req *entity.BorrowRequest, now time.Time) {
	if s.events == nil {
		return
	}
	s.events.Publish(ctx, borrowing.NewEvent(entity.EventRequestOverdue, req, "", "", now))
}
