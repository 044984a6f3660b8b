// Package sequence issues human-readable identifiers of the form PP-YYYYMM-NNNN.
//
// Each entity type keeps one counter row per calendar month. The counter is advanced
// inside a serializable transaction that also creates the entity, so a counter value
// is consumed only when the entity that carries it is committed.
package sequence

import (
	"context"
	"errors"
	"fmt"
	"log"
	"math/rand/v2"
	"time"

	"github.com/amirphl/estatedesk/models"
	"github.com/amirphl/estatedesk/repository"
	"github.com/amirphl/estatedesk/utils"
)

// Config tunes the allocator
type Config struct {
	// TxTimeout bounds a single attempt, from BEGIN to COMMIT
	TxTimeout time.Duration
	// MaxAttempts is the total number of attempts, including the first
	MaxAttempts int
	BackoffBase time.Duration
	BackoffMax  time.Duration
	// Location decides which calendar month a reference date falls into
	Location *time.Location
	// Clock supplies the reference date when the caller gives none
	Clock func() time.Time
}

// DefaultConfig returns the production defaults
func DefaultConfig() Config {
	return Config{
		TxTimeout:   10 * time.Second,
		MaxAttempts: 5,
		BackoffBase: 25 * time.Millisecond,
		BackoffMax:  time.Second,
		Location:    time.UTC,
		Clock:       utils.UTCNow,
	}
}

func (c Config) withDefaults() Config {
	d := DefaultConfig()
	if c.TxTimeout <= 0 {
		c.TxTimeout = d.TxTimeout
	}
	if c.MaxAttempts <= 0 {
		c.MaxAttempts = d.MaxAttempts
	}
	if c.BackoffBase <= 0 {
		c.BackoffBase = d.BackoffBase
	}
	if c.BackoffMax <= 0 {
		c.BackoffMax = d.BackoffMax
	}
	if c.BackoffMax < c.BackoffBase {
		c.BackoffMax = c.BackoffBase
	}
	if c.Location == nil {
		c.Location = d.Location
	}
	if c.Clock == nil {
		c.Clock = d.Clock
	}
	return c
}

// Allocator hands out identifiers backed by per-type, per-month counters
type Allocator struct {
	counters   repository.SequenceCounterRepository
	transactor repository.Transactor
	cfg        Config
	sleep      func(ctx context.Context, d time.Duration) error
}

// NewAllocator creates an allocator. Zero fields in cfg fall back to DefaultConfig.
func NewAllocator(counters repository.SequenceCounterRepository, transactor repository.Transactor, cfg Config) *Allocator {
	return &Allocator{
		counters:   counters,
		transactor: transactor,
		cfg:        cfg.withDefaults(),
		sleep:      sleepContext,
	}
}

// Config returns the effective configuration
func (a *Allocator) Config() Config {
	return a.cfg
}

// Option customizes a single AllocateAndCreate call
type Option func(*callOptions)

type callOptions struct {
	at time.Time
}

// At sets the reference date that selects the counter period
func At(t time.Time) Option {
	return func(o *callOptions) {
		o.at = t
	}
}

// AllocateAndCreate mints the next identifier for entityType and calls create with it inside
// one serializable transaction. The transaction travels in the context passed to create, so
// repository writes made there commit or roll back together with the counter.
//
// create may run more than once when the transaction has to be retried; it must not have
// side effects outside the database.
func AllocateAndCreate[T any](ctx context.Context, a *Allocator, entityType string, create func(ctx context.Context, id string) (T, error), opts ...Option) (T, error) {
	var o callOptions
	for _, opt := range opts {
		opt(&o)
	}

	var result T
	_, err := a.Run(ctx, entityType, o.at, func(ctx context.Context, id string) error {
		v, err := create(ctx, id)
		if err != nil {
			return err
		}
		result = v
		return nil
	})
	if err != nil {
		var zero T
		return zero, err
	}
	return result, nil
}

// Run is the untyped form of AllocateAndCreate. A zero at means now.
func (a *Allocator) Run(ctx context.Context, entityType string, at time.Time, fn func(ctx context.Context, id string) error) (string, error) {
	prefix, err := Prefix(entityType)
	if err != nil {
		return "", err
	}
	if at.IsZero() {
		at = a.cfg.Clock()
	}
	yearMonth := YearMonth(at, a.cfg.Location)

	start := time.Now()
	defer func() {
		allocationDuration.WithLabelValues(entityType).Observe(time.Since(start).Seconds())
	}()

	var lastErr error
	for attempt := 1; attempt <= a.cfg.MaxAttempts; attempt++ {
		id, err := a.attempt(ctx, entityType, prefix, yearMonth, fn)
		if err == nil {
			allocationsTotal.WithLabelValues(entityType, resultSuccess).Inc()
			return id, nil
		}

		if errors.Is(err, ErrAllocationTimeout) {
			allocationsTotal.WithLabelValues(entityType, resultTimeout).Inc()
			log.Printf("sequence: allocation of %s for %s timed out after %s", entityType, yearMonth, a.cfg.TxTimeout)
			return "", err
		}
		if !isConflict(err) {
			allocationsTotal.WithLabelValues(entityType, resultError).Inc()
			return "", err
		}

		lastErr = err
		if attempt == a.cfg.MaxAttempts {
			break
		}

		allocationRetriesTotal.WithLabelValues(entityType).Inc()
		if err := a.sleep(ctx, a.backoff(attempt)); err != nil {
			allocationsTotal.WithLabelValues(entityType, resultError).Inc()
			return "", err
		}
	}

	allocationsTotal.WithLabelValues(entityType, resultConflict).Inc()
	log.Printf("sequence: allocation of %s for %s gave up after %d attempts: %v", entityType, yearMonth, a.cfg.MaxAttempts, lastErr)
	return "", &ConflictError{
		EntityType: entityType,
		YearMonth:  yearMonth,
		Attempts:   a.cfg.MaxAttempts,
		Err:        lastErr,
	}
}

// attempt runs one serializable transaction: advance the counter, format the ID, call fn
func (a *Allocator) attempt(ctx context.Context, entityType, prefix, yearMonth string, fn func(ctx context.Context, id string) error) (string, error) {
	txCtx, cancel := context.WithTimeout(ctx, a.cfg.TxTimeout)
	defer cancel()

	var id string
	err := a.transactor.WithinSerializable(txCtx, func(txCtx context.Context) error {
		value, err := a.counters.Next(txCtx, entityType, yearMonth)
		if err != nil {
			return err
		}
		id = FormatID(prefix, yearMonth, value)
		return fn(txCtx, id)
	})
	if err != nil {
		if errors.Is(txCtx.Err(), context.DeadlineExceeded) && ctx.Err() == nil {
			return "", fmt.Errorf("%w: %w", ErrAllocationTimeout, err)
		}
		return "", err
	}
	return id, nil
}

// Peek returns the counter for entityType in the period of at without changing it.
// It returns nil, nil when nothing was allocated in that period yet.
func (a *Allocator) Peek(ctx context.Context, entityType string, at time.Time) (*models.SequenceCounter, error) {
	if _, err := Prefix(entityType); err != nil {
		return nil, err
	}
	if at.IsZero() {
		at = a.cfg.Clock()
	}
	return a.counters.ByKey(ctx, CounterKey(entityType, YearMonth(at, a.cfg.Location)))
}

// Allocate advances the counter and returns the identifier without creating anything.
//
// Deprecated: the increment commits on its own, so an identifier the caller fails to
// use is lost and leaves a gap in the sequence. Use AllocateAndCreate.
func (a *Allocator) Allocate(ctx context.Context, entityType string, at time.Time) (string, error) {
	return a.Run(ctx, entityType, at, func(context.Context, string) error { return nil })
}

// backoff returns the delay before attempt+1: exponential from BackoffBase, capped at
// BackoffMax, with the upper half randomized.
func (a *Allocator) backoff(attempt int) time.Duration {
	d := a.cfg.BackoffBase
	for i := 1; i < attempt && d < a.cfg.BackoffMax; i++ {
		d *= 2
	}
	if d > a.cfg.BackoffMax {
		d = a.cfg.BackoffMax
	}
	half := d / 2
	return half + rand.N(half+1)
}

func isConflict(err error) bool {
	return errors.Is(err, repository.ErrCounterConflict) || repository.IsSerializationFailure(err)
}

func sleepContext(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
