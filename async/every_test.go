package async

import (
	"context"
	"sync/atomic"
	"testing"
	"time"
)

func TestRunEvery_StopsOnCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	var calls int32
	RunEvery(ctx, 10*time.Millisecond, func() {
		atomic.AddInt32(&calls, 1)
	})

	deadline := time.Now().Add(2 * time.Second)
	for atomic.LoadInt32(&calls) == 0 {
		if time.Now().After(deadline) {
			t.Fatal("periodic function never ran")
		}
		time.Sleep(time.Millisecond)
	}
	cancel()
	time.Sleep(50 * time.Millisecond)
	settled := atomic.LoadInt32(&calls)
	time.Sleep(50 * time.Millisecond)
	if got := atomic.LoadInt32(&calls); got > settled+1 {
		t.Fatalf("function kept running after cancel: %d then %d", settled, got)
	}
}
