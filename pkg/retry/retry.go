// Package retry implementa reintentos con backoff exponencial y jitter para
// operaciones que fallan por conflictos de concurrencia.
package retry

import (
	"context"
	"errors"
	"math/rand"
	"time"
)

const (
	defaultMaxAttempts  = 4
	defaultBaseDelay    = 20 * time.Millisecond
	defaultJitterFactor = 0.3
)

var (
	// ErrInvalidMaxAttempts se devuelve cuando el número de intentos no es positivo.
	ErrInvalidMaxAttempts = errors.New("retry: max attempts debe ser positivo")
	// ErrNegativeBaseDelay se devuelve cuando el retardo base es negativo.
	ErrNegativeBaseDelay = errors.New("retry: base delay no puede ser negativo")
	// ErrInvalidJitterFactor se devuelve cuando el jitter no está entre 0.0 y 1.0.
	ErrInvalidJitterFactor = errors.New("retry: jitter debe estar entre 0.0 y 1.0")
)

// Func es la operación a reintentar.
type Func func(ctx context.Context) error

type config struct {
	maxAttempts  int
	baseDelay    time.Duration
	jitterFactor float64
	retryable    func(error) bool
}

// Option configura el comportamiento de Do.
type Option func(*config) error

// WithMaxAttempts fija el número máximo de intentos (incluye el primero).
func WithMaxAttempts(n int) Option {
	return func(c *config) error {
		if n <= 0 {
			return ErrInvalidMaxAttempts
		}
		c.maxAttempts = n
		return nil
	}
}

// WithBaseDelay fija el retardo base: base, base*2, base*4...
func WithBaseDelay(d time.Duration) Option {
	return func(c *config) error {
		if d < 0 {
			return ErrNegativeBaseDelay
		}
		c.baseDelay = d
		return nil
	}
}

// WithJitterFactor fija el jitter como fracción del retardo calculado.
func WithJitterFactor(f float64) Option {
	return func(c *config) error {
		if f < 0.0 || f > 1.0 {
			return ErrInvalidJitterFactor
		}
		c.jitterFactor = f
		return nil
	}
}

// On indica qué errores se reintentan (por defecto ninguno).
func On(target error) Option {
	return func(c *config) error {
		prev := c.retryable
		c.retryable = func(err error) bool {
			return errors.Is(err, target) || (prev != nil && prev(err))
		}
		return nil
	}
}

// Do ejecuta fn y la reintenta mientras el error sea reintentable y queden intentos.
// context.DeadlineExceeded y context.Canceled nunca se reintentan.
func Do(ctx context.Context, fn Func, opts ...Option) error {
	cfg := &config{
		maxAttempts:  defaultMaxAttempts,
		baseDelay:    defaultBaseDelay,
		jitterFactor: defaultJitterFactor,
	}
	for _, opt := range opts {
		if err := opt(cfg); err != nil {
			return err
		}
	}

	var lastErr error
	for attempt := 0; attempt < cfg.maxAttempts; attempt++ {
		if attempt > 0 {
			delay := cfg.baseDelay * time.Duration(1<<(attempt-1))
			jitter := rand.Float64() * float64(delay) * cfg.jitterFactor //nolint:gosec // jitter no requiere crypto/rand
			select {
			case <-time.After(delay + time.Duration(jitter)):
			case <-ctx.Done():
				return ctx.Err()
			}
		}

		lastErr = fn(ctx)
		if lastErr == nil {
			return nil
		}
		if errors.Is(lastErr, context.Canceled) || errors.Is(lastErr, context.DeadlineExceeded) {
			return lastErr
		}
		if cfg.retryable == nil || !cfg.retryable(lastErr) {
			return lastErr
		}
	}
	return lastErr
}
