package tx_test

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"pomo/internal/platform/tx"
)

func TestKeyedMutexSerializesSameKey(t *testing.T) {
	t.Parallel()
	locks := tx.NewKeyedMutex()
	var inside, maxInside int32
	var wg sync.WaitGroup
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_ = locks.Within(context.Background(), "sess-1", func(context.Context) error {
				n := atomic.AddInt32(&inside, 1)
				for {
					cur := atomic.LoadInt32(&maxInside)
					if n <= cur || atomic.CompareAndSwapInt32(&maxInside, cur, n) {
						break
					}
				}
				time.Sleep(time.Millisecond)
				atomic.AddInt32(&inside, -1)
				return nil
			})
		}()
	}
	wg.Wait()
	if maxInside != 1 {
		t.Fatalf("expected one holder at a time, saw %d", maxInside)
	}
}

func TestKeyedMutexHonoursContext(t *testing.T) {
	t.Parallel()
	locks := tx.NewKeyedMutex()
	held := make(chan struct{})
	release := make(chan struct{})
	go func() {
		_ = locks.Within(context.Background(), "sess-1", func(context.Context) error {
			close(held)
			<-release
			return nil
		})
	}()
	<-held
	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	err := locks.Within(ctx, "sess-1", func(context.Context) error { return nil })
	close(release)
	if err != context.DeadlineExceeded {
		t.Fatalf("expected deadline exceeded, got %v", err)
	}
	if err := locks.Within(context.Background(), "sess-2", func(context.Context) error { return nil }); err != nil {
		t.Fatalf("independent key should not block: %v", err)
	}
}
