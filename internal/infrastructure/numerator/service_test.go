package numerator

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
	"golang.org/x/sync/errgroup"

	"bizdesk/internal/core/apperror"
	corenumerator "bizdesk/internal/core/numerator"
	"bizdesk/internal/infrastructure/storage/memory"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

// noDelay keeps tests fast while preserving the 3-attempt bound.
func noDelay(attempts int) Option {
	return WithRetryPolicy(corenumerator.RetryPolicy{MaxAttempts: attempts})
}

var fixedNow = time.Date(2026, time.October, 18, 9, 30, 0, 0, time.UTC)

func clock() time.Time { return fixedNow }

// conflictingStore fails the first k Update calls with err, then delegates.
type conflictingStore struct {
	corenumerator.Store
	failures int32
	err      error
	calls    atomic.Int32
}

func (s *conflictingStore) Update(ctx context.Context, key string, fn corenumerator.UpdateFunc) (corenumerator.Counter, error) {
	n := s.calls.Add(1)
	if n <= s.failures {
		return corenumerator.Counter{}, s.err
	}
	return s.Store.Update(ctx, key, fn)
}

// countingStore counts conflicts reported by the wrapped store.
type countingStore struct {
	corenumerator.Store
	conflicts atomic.Int32
}

func (s *countingStore) Update(ctx context.Context, key string, fn corenumerator.UpdateFunc) (corenumerator.Counter, error) {
	c, err := s.Store.Update(ctx, key, fn)
	if errors.Is(err, corenumerator.ErrConflict) {
		s.conflicts.Add(1)
	}
	return c, err
}

func TestNextNumber_FreshKeyDefaultSeed(t *testing.T) {
	store := memory.New()
	svc := New(store, noDelay(3), WithClock(clock))
	ctx := context.Background()

	num, err := svc.NextNumber(ctx, "orders")
	require.NoError(t, err)
	assert.Equal(t, "0001", num)

	num, err = svc.NextNumber(ctx, "orders")
	require.NoError(t, err)
	assert.Equal(t, "0002", num)

	c, err := svc.Current(ctx, "orders")
	require.NoError(t, err)
	assert.Equal(t, int64(2), c.CurrentValue)
	assert.Equal(t, fixedNow, c.LastUpdated)
}

func TestNextNumber_SeedOneScenario(t *testing.T) {
	store := memory.New()
	svc := New(store, noDelay(3), WithClock(clock),
		WithDefaultConfig(corenumerator.Config{PadWidth: 4, InitialValue: 1}))
	ctx := context.Background()

	require.NoError(t, svc.Initialize(ctx, "orders"))

	c, err := svc.Current(ctx, "orders")
	require.NoError(t, err)
	assert.Equal(t, int64(1), c.CurrentValue)
	assert.Equal(t, fixedNow, c.LastUpdated)

	num, err := svc.NextNumber(ctx, "orders")
	require.NoError(t, err)
	assert.Equal(t, "0002", num)

	c, err = svc.Current(ctx, "orders")
	require.NoError(t, err)
	assert.Equal(t, int64(2), c.CurrentValue)
}

func TestNextNumber_SeedAppliesWithoutInitialize(t *testing.T) {
	svc := New(memory.New(), noDelay(3),
		WithConfig("service_order", corenumerator.Config{PadWidth: 4, InitialValue: 1}))

	num, err := svc.NextNumber(context.Background(), "service_order")
	require.NoError(t, err)
	assert.Equal(t, "0002", num)
}

func TestInitialize_Idempotent(t *testing.T) {
	svc := New(memory.New(), noDelay(3))
	ctx := context.Background()

	require.NoError(t, svc.Initialize(ctx, "orders"))
	_, err := svc.NextNumber(ctx, "orders")
	require.NoError(t, err)

	require.NoError(t, svc.Initialize(ctx, "orders"))
	require.NoError(t, svc.Initialize(ctx, "orders"))

	c, err := svc.Current(ctx, "orders")
	require.NoError(t, err)
	assert.Equal(t, int64(1), c.CurrentValue)
}

func TestInitialize_StoreFailure(t *testing.T) {
	store := &corenumerator.MockStore{
		CreateIfAbsentFunc: func(ctx context.Context, c corenumerator.Counter) (bool, error) {
			return false, corenumerator.Unavailable("create", errors.New("permission denied"))
		},
	}
	svc := New(store)

	err := svc.Initialize(context.Background(), "orders")
	require.Error(t, err)
	assert.ErrorIs(t, err, corenumerator.ErrInitialization)
	assert.ErrorIs(t, err, corenumerator.ErrUnavailable)
	assert.True(t, apperror.HasCode(err, apperror.CodeSequenceInit))
}

func TestInitialize_MalformedExistingCounter(t *testing.T) {
	store := &corenumerator.MockStore{
		CreateIfAbsentFunc: func(ctx context.Context, c corenumerator.Counter) (bool, error) {
			return false, nil
		},
		GetFunc: func(ctx context.Context, key string) (corenumerator.Counter, error) {
			return corenumerator.Counter{}, fmt.Errorf("decode counter %q: invalid value", key)
		},
	}

	err := New(store).Initialize(context.Background(), "orders")
	assert.ErrorIs(t, err, corenumerator.ErrInitialization)
}

func TestEmptyKeyRejected(t *testing.T) {
	svc := New(memory.New())
	ctx := context.Background()

	_, err := svc.NextNumber(ctx, "")
	assert.True(t, apperror.HasCode(err, apperror.CodeValidation))
	assert.True(t, apperror.HasCode(svc.Initialize(ctx, ""), apperror.CodeValidation))
}

func TestMalformedKeyRejectedBeforeStore(t *testing.T) {
	store := &conflictingStore{
		Store:    memory.New(),
		failures: 10,
		err:      corenumerator.Unavailable("zk get", errors.New("zk: invalid path")),
	}
	svc := New(store, noDelay(3))
	ctx := context.Background()

	for _, key := range []string{"../etc", "a/b", "with space", "ç"} {
		_, err := svc.NextNumber(ctx, key)
		assert.True(t, apperror.HasCode(err, apperror.CodeValidation), key)
		assert.False(t, apperror.HasCode(err, apperror.CodeSequenceExhausted), key)

		_, err = svc.Current(ctx, key)
		assert.True(t, apperror.HasCode(err, apperror.CodeValidation), key)
		assert.True(t, apperror.HasCode(svc.Initialize(ctx, key), apperror.CodeValidation), key)
		assert.True(t, apperror.HasCode(svc.Advance(ctx, key, 5), apperror.CodeValidation), key)
	}
	assert.Zero(t, store.calls.Load())
}

func TestNextNumber_Formatting(t *testing.T) {
	tests := []struct {
		current int64
		want    string
	}{
		{6, "0007"},
		{41, "0042"},
		{12344, "12345"},
	}

	for _, tt := range tests {
		t.Run(tt.want, func(t *testing.T) {
			svc := New(memory.New(), noDelay(3))
			ctx := context.Background()
			require.NoError(t, svc.Advance(ctx, "orders", tt.current))

			num, err := svc.NextNumber(ctx, "orders")
			require.NoError(t, err)
			assert.Equal(t, tt.want, num)
		})
	}
}

func TestNextNumber_PrefixConfig(t *testing.T) {
	svc := New(memory.New(), noDelay(3),
		WithConfig("service_order", corenumerator.Config{Prefix: "OS", PadWidth: 5}))

	num, err := svc.NextNumber(context.Background(), "service_order")
	require.NoError(t, err)
	assert.Equal(t, "OS-00001", num)
}

func TestNextNumber_RetryBound(t *testing.T) {
	for k := int32(0); k <= 4; k++ {
		t.Run(fmt.Sprintf("conflicts=%d", k), func(t *testing.T) {
			store := &conflictingStore{
				Store:    memory.New(),
				failures: k,
				err:      corenumerator.Conflict("orders"),
			}
			svc := New(store, noDelay(3))

			num, err := svc.NextNumber(context.Background(), "orders")
			if k < 3 {
				require.NoError(t, err)
				assert.Equal(t, "0001", num)
				assert.Equal(t, k+1, store.calls.Load())
				return
			}

			require.Error(t, err)
			assert.ErrorIs(t, err, corenumerator.ErrExhausted)
			assert.ErrorIs(t, err, corenumerator.ErrConflict)
			assert.True(t, apperror.HasCode(err, apperror.CodeSequenceExhausted))
			assert.Equal(t, int32(3), store.calls.Load())

			// The losing call never committed an increment.
			_, err = store.Get(context.Background(), "orders")
			assert.ErrorIs(t, err, corenumerator.ErrNotFound)
		})
	}
}

func TestNextNumber_UnavailableCountsTowardAttempts(t *testing.T) {
	store := &conflictingStore{
		Store:    memory.New(),
		failures: 3,
		err:      corenumerator.Unavailable("update", errors.New("connection reset")),
	}
	svc := New(store, noDelay(3))

	_, err := svc.NextNumber(context.Background(), "orders")
	assert.ErrorIs(t, err, corenumerator.ErrExhausted)
	assert.ErrorIs(t, err, corenumerator.ErrUnavailable)
	assert.Equal(t, int32(3), store.calls.Load())
}

func TestNextNumber_NonRetryableErrorStopsImmediately(t *testing.T) {
	boom := errors.New("malformed counter document")
	store := &conflictingStore{Store: memory.New(), failures: 10, err: boom}
	svc := New(store, noDelay(3))

	_, err := svc.NextNumber(context.Background(), "orders")
	assert.ErrorIs(t, err, boom)
	assert.NotErrorIs(t, err, corenumerator.ErrExhausted)
	assert.Equal(t, int32(1), store.calls.Load())
}

func TestNextNumber_NegativeCounterRejected(t *testing.T) {
	store := &corenumerator.MockStore{
		UpdateFunc: func(ctx context.Context, key string, fn corenumerator.UpdateFunc) (corenumerator.Counter, error) {
			return fn(&corenumerator.Counter{Key: key, CurrentValue: -4})
		},
	}

	_, err := New(store, noDelay(3)).NextNumber(context.Background(), "orders")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "negative")
}

func TestNextNumber_BackoffBetweenAttempts(t *testing.T) {
	var delays []int
	policy := corenumerator.RetryPolicy{
		MaxAttempts: 3,
		Backoff: func(attempt int) time.Duration {
			delays = append(delays, attempt)
			return time.Millisecond
		},
	}
	store := &conflictingStore{Store: memory.New(), failures: 2, err: corenumerator.Conflict("orders")}

	_, err := New(store, WithRetryPolicy(policy)).NextNumber(context.Background(), "orders")
	require.NoError(t, err)
	assert.Equal(t, []int{1, 2}, delays)
}

func TestNextNumber_CancelledDuringBackoff(t *testing.T) {
	store := &conflictingStore{Store: memory.New(), failures: 10, err: corenumerator.Conflict("orders")}
	svc := New(store, WithRetryPolicy(corenumerator.RetryPolicy{
		MaxAttempts: 3,
		Backoff:     corenumerator.FixedBackoff(time.Hour),
	}))

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	start := time.Now()
	_, err := svc.NextNumber(ctx, "orders")
	assert.ErrorIs(t, err, context.DeadlineExceeded)
	assert.Less(t, time.Since(start), time.Minute)
	assert.Equal(t, int32(1), store.calls.Load())
}

func TestNextNumber_ConcurrentUniqueness(t *testing.T) {
	store := memory.New()
	svc := New(store, noDelay(10000))
	ctx := context.Background()

	const workers, perWorker = 16, 25
	var mu sync.Mutex
	seen := make(map[string]bool)

	g, ctx := errgroup.WithContext(ctx)
	for i := 0; i < workers; i++ {
		g.Go(func() error {
			for j := 0; j < perWorker; j++ {
				num, err := svc.NextNumber(ctx, "sales")
				if err != nil {
					return err
				}
				mu.Lock()
				if seen[num] {
					mu.Unlock()
					return fmt.Errorf("duplicate number %s", num)
				}
				seen[num] = true
				mu.Unlock()
			}
			return nil
		})
	}
	require.NoError(t, g.Wait())

	assert.Len(t, seen, workers*perWorker)
	c, err := svc.Current(context.Background(), "sales")
	require.NoError(t, err)
	assert.Equal(t, int64(workers*perWorker), c.CurrentValue)
}

func TestNextNumber_Monotonic(t *testing.T) {
	svc := New(memory.New(), noDelay(3))
	ctx := context.Background()

	var prev int64
	for i := 0; i < 50; i++ {
		num, err := svc.NextNumber(ctx, "orders")
		require.NoError(t, err)

		c, err := svc.Current(ctx, "orders")
		require.NoError(t, err)
		assert.Greater(t, c.CurrentValue, prev)
		assert.Equal(t, fmt.Sprintf("%04d", c.CurrentValue), num)
		prev = c.CurrentValue
	}
}

func TestNextNumber_TwoCallersRace(t *testing.T) {
	// Both callers read currentValue=10 before either writes.
	var armed atomic.Bool
	var reads atomic.Int32
	bothRead := make(chan struct{})
	inner := memory.New(memory.WithAfterRead(func(string) {
		if !armed.Load() {
			return
		}
		n := reads.Add(1)
		if n == 2 {
			close(bothRead)
		}
		if n <= 2 {
			<-bothRead
		}
	}))
	store := &countingStore{Store: inner}
	svc := New(store, noDelay(3))
	ctx := context.Background()

	require.NoError(t, svc.Advance(ctx, "sales", 10))
	armed.Store(true)

	results := make([]string, 2)
	var g errgroup.Group
	for i := range results {
		i := i
		g.Go(func() error {
			num, err := svc.NextNumber(ctx, "sales")
			results[i] = num
			return err
		})
	}
	require.NoError(t, g.Wait())

	sort.Strings(results)
	assert.Equal(t, []string{"0011", "0012"}, results)
	assert.Equal(t, int32(1), store.conflicts.Load())

	c, err := svc.Current(ctx, "sales")
	require.NoError(t, err)
	assert.Equal(t, int64(12), c.CurrentValue)
}

func TestAdvance_RejectsRegression(t *testing.T) {
	svc := New(memory.New(), noDelay(3))
	ctx := context.Background()

	require.NoError(t, svc.Advance(ctx, "service_order", 40))

	err := svc.Advance(ctx, "service_order", 10)
	assert.True(t, apperror.HasCode(err, apperror.CodeSequenceRegression))

	err = svc.Advance(ctx, "service_order", -1)
	assert.True(t, apperror.HasCode(err, apperror.CodeValidation))

	num, err := svc.NextNumber(ctx, "service_order")
	require.NoError(t, err)
	assert.Equal(t, "0041", num)
}

func TestCurrent_Missing(t *testing.T) {
	_, err := New(memory.New()).Current(context.Background(), "nothing")
	assert.True(t, apperror.IsNotFound(err))
}

func TestResetPeriod_UsesPeriodKey(t *testing.T) {
	store := memory.New()
	now := fixedNow
	svc := New(store, noDelay(3),
		WithClock(func() time.Time { return now }),
		WithConfig("productSales", corenumerator.Config{PadWidth: 4, ResetPeriod: corenumerator.ResetYear}))
	ctx := context.Background()

	num, err := svc.NextNumber(ctx, "productSales")
	require.NoError(t, err)
	assert.Equal(t, "0001", num)

	now = now.AddDate(1, 0, 0)
	num, err = svc.NextNumber(ctx, "productSales")
	require.NoError(t, err)
	assert.Equal(t, "0001", num)

	assert.Equal(t, []string{"productSales_2026", "productSales_2027"}, store.Keys())
}

func TestNilService(t *testing.T) {
	var svc *Service
	_, err := svc.NextNumber(context.Background(), "orders")
	assert.Error(t, err)
}
