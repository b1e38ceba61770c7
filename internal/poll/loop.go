// Package poll runs a function repeatedly on a fixed interval.
package poll

import (
	"context"
	"sync"
	"time"
)

// Func is one poll. It receives a context cancelled when the loop stops.
type Func func(ctx context.Context)

// Loop calls a Func immediately on Start and then on every tick until Stop.
// Each call runs in its own goroutine, so a slow backend never delays the
// next tick; callers apply whichever response completes last.
type Loop struct {
	interval time.Duration
	fn       Func

	mu      sync.Mutex
	cancel  context.CancelFunc
	done    chan struct{}
	trigger chan struct{}
	running sync.WaitGroup
}

// New creates a stopped Loop.
func New(interval time.Duration, fn Func) *Loop {
	if interval <= 0 {
		interval = time.Second
	}
	return &Loop{
		interval: interval,
		fn:       fn,
		trigger:  make(chan struct{}, 1),
	}
}

// Start begins polling. It runs until Stop is called or ctx is cancelled.
// Calling Start on a running loop does nothing.
func (l *Loop) Start(ctx context.Context) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.cancel != nil {
		return
	}

	select {
	case <-l.trigger:
	default:
	}

	ctx, l.cancel = context.WithCancel(ctx)
	l.done = make(chan struct{})
	done := l.done

	go func() {
		defer close(done)
		ticker := time.NewTicker(l.interval)
		defer ticker.Stop()

		l.run(ctx)
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				l.run(ctx)
			case <-l.trigger:
				l.run(ctx)
			}
		}
	}()
}

func (l *Loop) run(ctx context.Context) {
	l.running.Add(1)
	go func() {
		defer l.running.Done()
		l.fn(ctx)
	}()
}

// Trigger requests an immediate poll without waiting for the next tick.
// Requests made while one is already pending are coalesced. Trigger on a
// stopped loop does nothing; Start always polls immediately anyway.
func (l *Loop) Trigger() {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.cancel == nil {
		return
	}
	select {
	case l.trigger <- struct{}{}:
	default:
	}
}

// Running reports whether the loop has been started and not stopped.
func (l *Loop) Running() bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.cancel != nil
}

// Stop halts polling and waits for in-flight polls to return.
func (l *Loop) Stop() {
	l.mu.Lock()
	cancel, done := l.cancel, l.done
	l.cancel, l.done = nil, nil
	l.mu.Unlock()

	if cancel == nil {
		return
	}
	cancel()
	<-done
	l.running.Wait()
}
