package pool_test

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/manolodalbo/nurse-cadet/internal/pool"
	"github.com/manolodalbo/nurse-cadet/internal/services"
)

func itemsUpTo(n int) []int {
	items := make([]int, n)
	for i := range items {
		items[i] = i
	}
	return items
}

func TestRunHandlesEveryItemOnceWithinPoolSize(t *testing.T) {
	items := itemsUpTo(100)
	var (
		mu      sync.Mutex
		seen    = map[int]int{}
		active  atomic.Int32
		peak    atomic.Int32
		workers sync.Map
	)
	stats, err := pool.Run(context.Background(), items, pool.Options{Size: 7}, func(ctx context.Context, item int) error {
		current := active.Add(1)
		defer active.Add(-1)
		for {
			old := peak.Load()
			if current <= old || peak.CompareAndSwap(old, current) {
				break
			}
		}
		worker, ok := services.WorkerFromContext(ctx)
		if !ok {
			t.Errorf("handler context lacks worker number")
		}
		workers.Store(worker, true)
		time.Sleep(time.Millisecond)
		mu.Lock()
		seen[item]++
		mu.Unlock()
		return nil
	})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if stats.Workers != 7 || stats.Claimed != 100 || stats.Unclaimed != 0 {
		t.Fatalf("unexpected stats %+v", stats)
	}
	if len(seen) != 100 {
		t.Fatalf("expected 100 distinct items, got %d", len(seen))
	}
	for item, count := range seen {
		if count != 1 {
			t.Fatalf("item %d handled %d times", item, count)
		}
	}
	if peak.Load() > 7 {
		t.Fatalf("observed %d concurrent handlers, pool size 7", peak.Load())
	}
}

func TestRunNeverStartsMoreWorkersThanItems(t *testing.T) {
	stats, err := pool.Run(context.Background(), itemsUpTo(3), pool.Options{Size: 200}, func(context.Context, int) error { return nil })
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if stats.Workers != 3 {
		t.Fatalf("expected 3 workers, got %d", stats.Workers)
	}

	stats, err = pool.Run[int](context.Background(), nil, pool.Options{Size: 5}, func(context.Context, int) error {
		t.Fatal("handler must not run for empty input")
		return nil
	})
	if err != nil || stats != (pool.Stats{}) {
		t.Fatalf("expected zero stats for empty input, got %+v %v", stats, err)
	}
}

func TestCooldownSleepsRemainderAndSkipsWhenQueueEmpty(t *testing.T) {
	var (
		mu    sync.Mutex
		slept []time.Duration
	)
	clock := time.Unix(0, 0)
	var clockMu sync.Mutex
	now := func() time.Time {
		clockMu.Lock()
		defer clockMu.Unlock()
		clock = clock.Add(2 * time.Second)
		return clock
	}
	opts := pool.Options{
		Size:     1,
		Cooldown: 30 * time.Second,
		Now:      now,
		Sleep: func(_ context.Context, d time.Duration) error {
			mu.Lock()
			slept = append(slept, d)
			mu.Unlock()
			return nil
		},
	}
	if _, err := pool.Run(context.Background(), itemsUpTo(3), opts, func(context.Context, int) error { return nil }); err != nil {
		t.Fatalf("Run: %v", err)
	}
	// Each handler appears to take 2s; no sleep after the last item.
	if len(slept) != 2 {
		t.Fatalf("expected 2 cooldown sleeps, got %v", slept)
	}
	for _, d := range slept {
		if d != 28*time.Second {
			t.Fatalf("expected 28s remainder, got %s", d)
		}
	}
}

func TestStopHaltsClaimsAndSkipsCooldown(t *testing.T) {
	var stopped atomic.Bool
	var handled atomic.Int32
	var sleeps atomic.Int32
	opts := pool.Options{
		Size:     1,
		Cooldown: time.Hour,
		Stop:     stopped.Load,
		Sleep: func(context.Context, time.Duration) error {
			sleeps.Add(1)
			return nil
		},
	}
	stats, err := pool.Run(context.Background(), itemsUpTo(10), opts, func(_ context.Context, item int) error {
		handled.Add(1)
		if item == 2 {
			stopped.Store(true)
		}
		return nil
	})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if handled.Load() != 3 || stats.Claimed != 3 || stats.Unclaimed != 7 {
		t.Fatalf("expected 3 handled and 7 unclaimed, got handled=%d stats=%+v", handled.Load(), stats)
	}
	if sleeps.Load() != 2 {
		t.Fatalf("expected no sleep after stop, got %d sleeps", sleeps.Load())
	}
}

func TestHandlerErrorIsReturnedAndStopsClaims(t *testing.T) {
	boom := errors.New("disk full")
	var handled atomic.Int32
	stats, err := pool.Run(context.Background(), itemsUpTo(50), pool.Options{Size: 1}, func(_ context.Context, item int) error {
		handled.Add(1)
		if item == 4 {
			return boom
		}
		return nil
	})
	if !errors.Is(err, boom) {
		t.Fatalf("expected handler error, got %v", err)
	}
	if handled.Load() != 5 || stats.Unclaimed != 45 {
		t.Fatalf("expected claims to stop after failure, handled=%d stats=%+v", handled.Load(), stats)
	}
}

func TestCancellationLetsInFlightHandlersFinish(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	started := make(chan struct{})
	release := make(chan struct{})
	var handlerCtxErr error
	var handled atomic.Int32

	done := make(chan struct{})
	var stats pool.Stats
	go func() {
		defer close(done)
		stats, _ = pool.Run(ctx, itemsUpTo(5), pool.Options{Size: 1}, func(hctx context.Context, item int) error {
			handled.Add(1)
			if item == 0 {
				close(started)
				<-release
				handlerCtxErr = hctx.Err()
			}
			return nil
		})
	}()

	<-started
	cancel()
	close(release)
	<-done

	if handlerCtxErr != nil {
		t.Fatalf("in-flight handler saw cancellation: %v", handlerCtxErr)
	}
	if handled.Load() != 1 || stats.Unclaimed != 4 {
		t.Fatalf("expected only the in-flight item handled, got handled=%d stats=%+v", handled.Load(), stats)
	}
}

func TestNewLimiter(t *testing.T) {
	if pool.NewLimiter(0) != nil {
		t.Fatal("expected nil limiter when disabled")
	}
	limiter := pool.NewLimiter(120)
	if limiter == nil || limiter.Burst() != 1 {
		t.Fatalf("unexpected limiter %+v", limiter)
	}
	if got := limiter.Limit(); got != 2 {
		t.Fatalf("expected 2 events per second, got %v", got)
	}
}
