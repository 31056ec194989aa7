package async

import (
	"context"
	"time"
)

// Retry runs fn, retrying on error once per entry in the backoff schedule.
// shouldRetry filters which errors are worth retrying; a nil shouldRetry
// retries everything. Returns the last error when the schedule is
// exhausted. Context cancellation aborts the wait and surfaces ctx.Err().
func Retry(ctx context.Context, schedule []time.Duration, shouldRetry func(error) bool, fn func() error) error {
	err := fn()
	if err == nil {
		return nil
	}
	for _, wait := range schedule {
		if shouldRetry != nil && !shouldRetry(err) {
			return err
		}
		timer := time.NewTimer(wait)
		select {
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()
		case <-timer.C:
		}
		if err = fn(); err == nil {
			return nil
		}
	}
	return err
}
