// Package notify entrega los eventos de dominio fuera de la transacción: una cola acotada
// alimenta un pool de workers que llaman al Sink configurado (Redis Pub/Sub o log).
package notify

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/jhoicas/prestamos-api/internal/application/borrowing"
	"github.com/jhoicas/prestamos-api/internal/domain/entity"
	"github.com/jhoicas/prestamos-api/pkg/logger"
)

var _ borrowing.EventPublisher = (*Dispatcher)(nil)

// Sink destino final de los eventos.
type Sink interface {
	Deliver(ctx context.Context, evt entity.DomainEvent) error
}

// Config tamaño de cola, workers y tiempo máximo por entrega.
type Config struct {
	QueueSize       int
	Workers         int
	DeliveryTimeout time.Duration
}

// Dispatcher publicador asíncrono. Publish nunca bloquea: con la cola llena el evento se descarta.
type Dispatcher struct {
	sink    Sink
	log     *logger.Logger
	timeout time.Duration
	queue   chan entity.DomainEvent
	wg      sync.WaitGroup

	mu     sync.RWMutex
	closed bool

	dropped   atomic.Int64
	delivered atomic.Int64
	failed    atomic.Int64
}

// NewDispatcher arranca los workers.
func NewDispatcher(sink Sink, log *logger.Logger, cfg Config) *Dispatcher {
	if cfg.QueueSize <= 0 {
		cfg.QueueSize = 256
	}
	if cfg.Workers <= 0 {
		cfg.Workers = 2
	}
	if cfg.DeliveryTimeout <= 0 {
		cfg.DeliveryTimeout = 5 * time.Second
	}
	d := &Dispatcher{
		sink:    sink,
		log:     log.WithComponent("notify"),
		timeout: cfg.DeliveryTimeout,
		queue:   make(chan entity.DomainEvent, cfg.QueueSize),
	}
	for i := 0; i < cfg.Workers; i++ {
		d.wg.Add(1)
		go func(id int) {
			defer d.wg.Done()
			d.workerLoop(id)
		}(i)
	}
	return d
}

// Publish encola el evento. El contexto del caller no se propaga: la entrega ocurre después
// de que la petición que lo originó ya respondió.
func (d *Dispatcher) Publish(_ context.Context, evt entity.DomainEvent) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	if d.closed {
		d.drop(evt, "dispatcher cerrado")
		return
	}
	select {
	case d.queue <- evt:
	default:
		d.drop(evt, "cola de notificaciones llena")
	}
}

func (d *Dispatcher) drop(evt entity.DomainEvent, reason string) {
	d.dropped.Add(1)
	d.log.Warn().
		Str("event_id", evt.ID).
		Str("event_type", evt.Type).
		Str("request_id", evt.RequestID).
		Msg(reason)
}

func (d *Dispatcher) workerLoop(id int) {
	for evt := range d.queue {
		ctx, cancel := context.WithTimeout(context.Background(), d.timeout)
		err := d.sink.Deliver(ctx, evt)
		cancel()
		if err != nil {
			d.failed.Add(1)
			d.log.Error().Err(err).
				Int("worker", id).
				Str("event_id", evt.ID).
				Str("event_type", evt.Type).
				Msg("entrega de notificación fallida")
			continue
		}
		d.delivered.Add(1)
	}
}

// Close deja de aceptar eventos y espera a que la cola se vacíe o venza ctx.
func (d *Dispatcher) Close(ctx context.Context) error {
	d.mu.Lock()
	if !d.closed {
		d.closed = true
		close(d.queue)
	}
	d.mu.Unlock()

	done := make(chan struct{})
	go func() {
		d.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Stats contadores acumulados.
type Stats struct {
	Delivered int64
	Failed    int64
	Dropped   int64
}

// Stats devuelve los contadores actuales.
func (d *Dispatcher) Stats() Stats {
	return Stats{
		Delivered: d.delivered.Load(),
		Failed:    d.failed.Load(),
		Dropped:   d.dropped.Load(),
	}
}
