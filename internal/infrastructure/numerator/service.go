// Package numerator provides the sequential number allocator.
// This is the infrastructure layer - it implements core/numerator.Generator
// on top of any core/numerator.Store.
package numerator

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"bizdesk/internal/core/apperror"
	corenumerator "bizdesk/internal/core/numerator"
	numfmt "bizdesk/pkg/numerator"
	"bizdesk/pkg/logger"
)

var tracer = otel.Tracer("bizdesk/numerator")

// Option configures Service.
type Option func(*Service)

// WithRetryPolicy sets the policy applied to NextNumber and Advance.
func WithRetryPolicy(p corenumerator.RetryPolicy) Option {
	return func(s *Service) {
		s.policy = p
	}
}

// WithDefaultConfig sets the numbering config for keys without their own.
func WithDefaultConfig(cfg corenumerator.Config) Option {
	return func(s *Service) {
		s.defaults = cfg
	}
}

// WithConfig sets the numbering config for one domain key.
func WithConfig(key string, cfg corenumerator.Config) Option {
	return func(s *Service) {
		s.configs[key] = cfg
	}
}

// WithClock replaces time.Now (tests).
func WithClock(now func() time.Time) Option {
	return func(s *Service) {
		s.now = now
	}
}

// Service allocates sequential document numbers.
// It holds no counter state of its own; every increment is a store transaction.
type Service struct {
	store    corenumerator.Store
	policy   corenumerator.RetryPolicy
	defaults corenumerator.Config
	configs  map[string]corenumerator.Config
	now      func() time.Time
}

// Ensure compile-time interface compliance.
var _ corenumerator.Generator = (*Service)(nil)

// New creates a new allocator over store.
func New(store corenumerator.Store, opts ...Option) *Service {
	s := &Service{
		store:    store,
		policy:   corenumerator.DefaultRetryPolicy(),
		defaults: corenumerator.DefaultConfig(),
		configs:  make(map[string]corenumerator.Config),
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Config returns the numbering config used for key.
func (s *Service) Config(key string) corenumerator.Config {
	if cfg, ok := s.configs[key]; ok {
		return cfg
	}
	return s.defaults
}

// InvalidKey is the validation error for a key rejected by ValidateKey.
func InvalidKey(key string) *apperror.AppError {
	return apperror.NewValidation("invalid sequence key").
		WithDetail("field", "key").
		WithDetail("value", key)
}

// storeKey resolves the counter key, including the reset period suffix.
func (s *Service) storeKey(key string) (string, corenumerator.Config, error) {
	if err := corenumerator.ValidateKey(key); err != nil {
		return "", corenumerator.Config{}, InvalidKey(key)
	}
	cfg := s.Config(key)
	return numfmt.BuildKey(key, cfg, s.now()), cfg, nil
}

// Initialize creates the counter for key with the configured initial value.
// An existing counter is left untouched.
func (s *Service) Initialize(ctx context.Context, key string) error {
	if s == nil {
		return fmt.Errorf("numerator service is not initialized")
	}
	storeKey, cfg, err := s.storeKey(key)
	if err != nil {
		return err
	}

	ctx, span := tracer.Start(ctx, "numerator.initialize",
		trace.WithAttributes(attribute.String("sequence.key", storeKey)))
	defer span.End()

	created, err := s.store.CreateIfAbsent(ctx, corenumerator.Counter{
		Key:          storeKey,
		CurrentValue: cfg.InitialValue,
		LastUpdated:  s.now().UTC(),
	})
	if err != nil {
		span.SetStatus(codes.Error, err.Error())
		return apperror.NewSequenceInit(storeKey, fmt.Errorf("%w: %w", corenumerator.ErrInitialization, err))
	}

	if !created {
		// Verify the existing document is readable.
		if _, err := s.store.Get(ctx, storeKey); err != nil {
			span.SetStatus(codes.Error, err.Error())
			return apperror.NewSequenceInit(storeKey, fmt.Errorf("%w: %w", corenumerator.ErrInitialization, err))
		}
		return nil
	}

	logger.Info(ctx, "sequence counter initialized",
		"component", "numerator",
		"key", storeKey,
		"initial_value", cfg.InitialValue)
	return nil
}

// NextNumber commits one increment of the counter and returns the formatted value.
// A missing counter is seeded with the configured initial value in the same
// transaction, so the first number is InitialValue+1.
func (s *Service) NextNumber(ctx context.Context, key string) (string, error) {
	if s == nil {
		return "", fmt.Errorf("numerator service is not initialized")
	}
	storeKey, cfg, err := s.storeKey(key)
	if err != nil {
		return "", err
	}

	ctx, span := tracer.Start(ctx, "numerator.next",
		trace.WithAttributes(attribute.String("sequence.key", storeKey)))
	defer span.End()

	var counter corenumerator.Counter
	err = s.retry(ctx, span, storeKey, func(ctx context.Context) error {
		var err error
		counter, err = s.store.Update(ctx, storeKey, s.increment(cfg))
		return err
	})
	if err != nil {
		span.SetStatus(codes.Error, err.Error())
		return "", err
	}

	span.SetAttributes(attribute.Int64("sequence.value", counter.CurrentValue))
	logger.Debug(ctx, "sequence number issued",
		"component", "numerator",
		"key", storeKey,
		"value", counter.CurrentValue)

	return numfmt.Format(cfg, counter.CurrentValue), nil
}

// increment computes the next counter state.
func (s *Service) increment(cfg corenumerator.Config) corenumerator.UpdateFunc {
	return func(current *corenumerator.Counter) (corenumerator.Counter, error) {
		value := cfg.InitialValue
		if current != nil {
			if current.CurrentValue < 0 {
				return corenumerator.Counter{}, fmt.Errorf("counter %q holds negative value %d", current.Key, current.CurrentValue)
			}
			value = current.CurrentValue
		}
		return corenumerator.Counter{
			CurrentValue: value + 1,
			LastUpdated:  s.now().UTC(),
		}, nil
	}
}

// Current returns the counter for key without modifying it.
func (s *Service) Current(ctx context.Context, key string) (corenumerator.Counter, error) {
	storeKey, _, err := s.storeKey(key)
	if err != nil {
		return corenumerator.Counter{}, err
	}

	counter, err := s.store.Get(ctx, storeKey)
	if err != nil {
		if errors.Is(err, corenumerator.ErrNotFound) {
			return corenumerator.Counter{}, apperror.NewNotFound("sequence", storeKey)
		}
		return corenumerator.Counter{}, fmt.Errorf("get counter: %w", err)
	}
	return counter, nil
}

// Advance raises the counter to value so the next number is value+1.
// Used when migrating from a legacy numbering; lowering is rejected.
func (s *Service) Advance(ctx context.Context, key string, value int64) error {
	storeKey, cfg, err := s.storeKey(key)
	if err != nil {
		return err
	}
	if value < 0 {
		return apperror.NewValidation("counter value must not be negative").
			WithDetail("field", "value")
	}

	ctx, span := tracer.Start(ctx, "numerator.advance",
		trace.WithAttributes(
			attribute.String("sequence.key", storeKey),
			attribute.Int64("sequence.value", value),
		))
	defer span.End()

	err = s.retry(ctx, span, storeKey, func(ctx context.Context) error {
		_, err := s.store.Update(ctx, storeKey, func(current *corenumerator.Counter) (corenumerator.Counter, error) {
			base := cfg.InitialValue
			if current != nil {
				base = current.CurrentValue
			}
			if value < base {
				return corenumerator.Counter{}, apperror.NewSequenceRegression(storeKey, base, value)
			}
			return corenumerator.Counter{CurrentValue: value, LastUpdated: s.now().UTC()}, nil
		})
		return err
	})
	if err != nil {
		span.SetStatus(codes.Error, err.Error())
		return err
	}

	logger.Info(ctx, "sequence counter advanced",
		"component", "numerator",
		"key", storeKey,
		"value", value)
	return nil
}

// retry runs attempt under the retry policy.
// Conflicts and store failures both consume an attempt; any other error is
// returned as is. After the last failed attempt the error is AllocationExhausted.
func (s *Service) retry(ctx context.Context, span trace.Span, key string, attempt func(ctx context.Context) error) error {
	attempts := s.policy.Attempts()

	var lastErr error
	for n := 1; n <= attempts; n++ {
		if n > 1 {
			if err := wait(ctx, s.policy.Delay(n-1)); err != nil {
				return err
			}
		}

		err := attempt(ctx)
		if err == nil {
			span.AddEvent("committed", trace.WithAttributes(attribute.Int("attempt", n)))
			return nil
		}
		if !corenumerator.IsRetryable(err) {
			return err
		}
		lastErr = err

		if errors.Is(err, corenumerator.ErrConflict) {
			span.AddEvent("conflicted", trace.WithAttributes(attribute.Int("attempt", n)))
			logger.Warn(ctx, "sequence transaction conflict",
				"component", "numerator",
				"key", key,
				"attempt", n,
				"max_attempts", attempts)
		} else {
			span.AddEvent("store_unavailable", trace.WithAttributes(attribute.Int("attempt", n)))
			logger.Error(ctx, "sequence store unavailable",
				"component", "numerator",
				"key", key,
				"attempt", n,
				"max_attempts", attempts,
				"error", err)
		}
	}

	return apperror.NewSequenceExhausted(key, attempts, fmt.Errorf("%w: %w", corenumerator.ErrExhausted, lastErr))
}

// wait sleeps for d unless ctx is done first.
func wait(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
