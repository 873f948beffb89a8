package reembed

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNextDelay(t *testing.T) {
	tests := []struct {
		in   time.Duration
		want time.Duration
	}{
		{100 * time.Millisecond, 200 * time.Millisecond},
		{4 * time.Second, 8 * time.Second},
		{14 * time.Second, 28 * time.Second},
		{15 * time.Second, MaxRetryDelay},
		{20 * time.Second, MaxRetryDelay},
		{MaxRetryDelay, MaxRetryDelay},
		{time.Hour, MaxRetryDelay},
	}
	for _, tt := range tests {
		t.Run(tt.in.String(), func(t *testing.T) {
			assert.Equal(t, tt.want, nextDelay(tt.in))
		})
	}
}

func TestNextDelayReachesCap(t *testing.T) {
	d := time.Second
	for i := 0; i < 10; i++ {
		d = nextDelay(d)
		assert.LessOrEqual(t, d, MaxRetryDelay)
	}
	assert.Equal(t, MaxRetryDelay, d)
}

func TestRetryReturnsLastError(t *testing.T) {
	var calls int
	err := RetryWithBackoff(context.Background(), func(context.Context) error {
		calls++
		return fmt.Errorf("embed batch %d: rate limited", calls)
	}, 3, time.Millisecond)

	assert.EqualError(t, err, "embed batch 3: rate limited")
	assert.Equal(t, 3, calls)
}

func TestRetryStopsOnFirstSuccess(t *testing.T) {
	var calls int
	err := RetryWithBackoff(context.Background(), func(context.Context) error {
		calls++
		if calls == 2 {
			return nil
		}
		return errors.New("503")
	}, 4, time.Millisecond)

	require.NoError(t, err)
	assert.Equal(t, 2, calls)
}

func TestRetryPassesContextToOperation(t *testing.T) {
	type key struct{}
	ctx := context.WithValue(context.Background(), key{}, "chunk-batch")

	var seen any
	err := RetryWithBackoff(ctx, func(ctx context.Context) error {
		seen = ctx.Value(key{})
		return nil
	}, 1, time.Millisecond)

	require.NoError(t, err)
	assert.Equal(t, "chunk-batch", seen)
}

func TestRetryDoublesDelayBetweenAttempts(t *testing.T) {
	var stamps []time.Time
	_ = RetryWithBackoff(context.Background(), func(context.Context) error {
		stamps = append(stamps, time.Now())
		return errors.New("down")
	}, 3, 20*time.Millisecond)

	require.Len(t, stamps, 3)
	assert.GreaterOrEqual(t, stamps[1].Sub(stamps[0]), 20*time.Millisecond)
	assert.GreaterOrEqual(t, stamps[2].Sub(stamps[1]), 40*time.Millisecond)
}

func TestRetryAbandonsWaitWhenContextEnds(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Millisecond)
	defer cancel()

	var calls int
	start := time.Now()
	err := RetryWithBackoff(ctx, func(context.Context) error {
		calls++
		return errors.New("down")
	}, 5, time.Hour)

	assert.ErrorIs(t, err, context.DeadlineExceeded)
	assert.Equal(t, 1, calls)
	assert.Less(t, time.Since(start), time.Second, "a long backoff must not outlive the context")
}

func TestRetryOperationCancelsContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	var calls int
	err := RetryWithBackoff(ctx, func(context.Context) error {
		calls++
		cancel()
		return errors.New("interrupted")
	}, 3, time.Millisecond)

	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, 1, calls)
}

func TestRetryRejectsNonPositiveAttempts(t *testing.T) {
	for _, n := range []int{0, -2} {
		err := RetryWithBackoff(context.Background(), func(context.Context) error {
			t.Fatal("operation must not run")
			return nil
		}, n, time.Millisecond)
		assert.ErrorIs(t, err, ErrInvalidMaxAttempts)
	}
}
