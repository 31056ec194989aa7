package async

import (
	"context"
	"testing"
	"time"

	"github.com/pkg/errors"

	"github.com/filegate/filegate/testing/assert"
	"github.com/filegate/filegate/testing/require"
)

var errBoom = errors.New("boom")

func TestRetry_SucceedsWithinSchedule(t *testing.T) {
	attempts := 0
	err := Retry(context.Background(), []time.Duration{time.Millisecond, time.Millisecond}, nil, func() error {
		attempts++
		if attempts < 3 {
			return errBoom
		}
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, 3, attempts)
}

func TestRetry_ExhaustsSchedule(t *testing.T) {
	attempts := 0
	err := Retry(context.Background(), []time.Duration{time.Millisecond}, nil, func() error {
		attempts++
		return errBoom
	})
	require.ErrorIs(t, err, errBoom)
	assert.Equal(t, 2, attempts)
}

func TestRetry_StopsOnNonRetryable(t *testing.T) {
	permanent := errors.New("permanent")
	attempts := 0
	err := Retry(context.Background(), []time.Duration{time.Millisecond}, func(err error) bool {
		return !errors.Is(err, permanent)
	}, func() error {
		attempts++
		return permanent
	})
	require.ErrorIs(t, err, permanent)
	assert.Equal(t, 1, attempts)
}

func TestRetry_CancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	err := Retry(ctx, []time.Duration{time.Minute}, nil, func() error {
		return errBoom
	})
	require.ErrorIs(t, err, context.Canceled)
}
