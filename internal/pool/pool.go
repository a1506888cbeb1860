// Package pool runs a handler over a slice of items with a fixed number of
// self-paced workers.
//
// Workers claim items from a shared cursor, so no item is handled twice. After
// each item a worker sleeps out the remainder of its cooldown window, unless
// the queue is already empty or the stop condition has been raised. An
// optional shared rate limiter additionally caps call starts across workers.
//
// Cancelling the parent context stops workers from claiming more items but
// never interrupts a handler already running: handlers receive a context that
// carries the parent's values without its cancellation.
package pool

import (
	"context"
	"sync/atomic"
	"time"

	"golang.org/x/sync/errgroup"
	"golang.org/x/time/rate"

	"github.com/manolodalbo/nurse-cadet/internal/services"
)

// Handler processes one item. A returned error is fatal: no further items are
// claimed and Run returns the first error once running handlers finish.
type Handler[T any] func(ctx context.Context, item T) error

// Options configures a run.
type Options struct {
	// Size is the maximum number of workers; the pool never starts more workers than items.
	Size int
	// Cooldown is the minimum spacing between one worker's consecutive items.
	Cooldown time.Duration
	// Stop is polled before each claim and before each cooldown sleep.
	Stop func() bool
	// Limiter, when set, is waited on before each claim.
	Limiter *rate.Limiter
	// Sleep replaces the cooldown sleep, for tests. It must return early with
	// ctx.Err() when ctx is cancelled.
	Sleep func(ctx context.Context, d time.Duration) error
	// Now replaces the clock used to time handlers, for tests.
	Now func() time.Time
}

// Stats describes how far a run got.
type Stats struct {
	Workers   int
	Claimed   int
	Unclaimed int
}

// Run handles items until they are exhausted, the stop condition is raised,
// ctx is cancelled, or a handler fails.
func Run[T any](ctx context.Context, items []T, opts Options, handle Handler[T]) (Stats, error) {
	n := len(items)
	if n == 0 {
		return Stats{}, nil
	}
	size := min(max(opts.Size, 1), n)
	stop := opts.Stop
	if stop == nil {
		stop = func() bool { return false }
	}
	sleep := opts.Sleep
	if sleep == nil {
		sleep = sleepContext
	}
	now := opts.Now
	if now == nil {
		now = time.Now
	}

	var cursor atomic.Int64
	group, groupCtx := errgroup.WithContext(ctx)
	handlerCtx := context.WithoutCancel(ctx)

	for worker := 1; worker <= size; worker++ {
		workerCtx := services.WithWorker(handlerCtx, worker)
		group.Go(func() error {
			for {
				if stop() || groupCtx.Err() != nil {
					return nil
				}
				if opts.Limiter != nil {
					if err := opts.Limiter.Wait(groupCtx); err != nil {
						return nil
					}
					if stop() {
						return nil
					}
				}
				idx := int(cursor.Add(1) - 1)
				if idx >= n {
					return nil
				}

				start := now()
				if err := handle(workerCtx, items[idx]); err != nil {
					return err
				}

				remaining := opts.Cooldown - now().Sub(start)
				if remaining <= 0 || int(cursor.Load()) >= n || stop() {
					continue
				}
				if err := sleep(groupCtx, remaining); err != nil {
					return nil
				}
			}
		})
	}

	err := group.Wait()
	claimed := min(int(cursor.Load()), n)
	return Stats{Workers: size, Claimed: claimed, Unclaimed: n - claimed}, err
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

// NewLimiter returns a limiter allowing perMinute call starts per minute with
// a burst of one, or nil when perMinute is zero or less.
func NewLimiter(perMinute int) *rate.Limiter {
	if perMinute <= 0 {
		return nil
	}
	return rate.NewLimiter(rate.Every(time.Minute/time.Duration(perMinute)), 1)
}
