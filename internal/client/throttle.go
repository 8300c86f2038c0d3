package client

import (
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// DefaultMoveInterval bounds how often a tracker forwards its full view.
const DefaultMoveInterval = 80 * time.Millisecond

// throttle forwards at most one value per interval. Values pushed while
// waiting replace each other so the trailing call carries the latest one.
type throttle[T any] struct {
	limiter *rate.Limiter
	fn      func(T)

	mu      sync.Mutex
	pending T
	waiting bool
	timer   *time.Timer
	stopped bool
	// gen identifies the scheduled trailing call. A timer from an earlier
	// generation finds it changed and does nothing.
	gen uint64
}

func newThrottle[T any](interval time.Duration, fn func(T)) *throttle[T] {
	if interval <= 0 {
		interval = DefaultMoveInterval
	}
	return &throttle[T]{
		limiter: rate.NewLimiter(rate.Every(interval), 1),
		fn:      fn,
	}
}

func (t *throttle[T]) Push(v T) {
	t.mu.Lock()
	if t.stopped {
		t.mu.Unlock()
		return
	}
	if t.waiting {
		t.pending = v
		t.mu.Unlock()
		return
	}

	r := t.limiter.Reserve()
	delay := r.Delay()
	if delay == 0 {
		t.mu.Unlock()
		t.fn(v)
		return
	}

	t.pending = v
	t.waiting = true
	t.gen++
	gen := t.gen
	t.timer = time.AfterFunc(delay, func() { t.flush(gen) })
	t.mu.Unlock()
}

func (t *throttle[T]) flush(gen uint64) {
	t.mu.Lock()
	if t.stopped || !t.waiting || gen != t.gen {
		t.mu.Unlock()
		return
	}
	v := t.pending
	t.waiting = false
	t.mu.Unlock()

	t.fn(v)
}

// Flush forwards a pending value now instead of at the end of the interval.
func (t *throttle[T]) Flush() {
	t.mu.Lock()
	if t.stopped || !t.waiting {
		t.mu.Unlock()
		return
	}
	if t.timer != nil {
		t.timer.Stop()
		t.timer = nil
	}
	t.gen++
	v := t.pending
	t.waiting = false
	t.mu.Unlock()

	t.fn(v)
}

// Stop drops any pending value. Later pushes are ignored until Reset.
func (t *throttle[T]) Stop() {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.stopped = true
	t.waiting = false
	t.gen++
	if t.timer != nil {
		t.timer.Stop()
		t.timer = nil
	}
}

func (t *throttle[T]) Reset() {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.stopped = false
}
