// Package eventloop runs the single logical thread on which all LSP
// connection state is touched. Other goroutines hand work to it with
// Post or Invoke; the loop goroutine drains it with Run, ProcessPending
// or WaitUntil.
package eventloop

import (
	"context"
	"sync"
)

// Loop is a queue of tasks executed in posting order on whichever
// goroutine is draining it. Only one goroutine may drain at a time.
type Loop struct {
	mu     sync.Mutex
	queue  []func()
	signal chan struct{}
}

func New() *Loop {
	return &Loop{signal: make(chan struct{}, 1)}
}

// Post queues fn. It never blocks and is safe from any goroutine.
func (l *Loop) Post(fn func()) {
	l.mu.Lock()
	l.queue = append(l.queue, fn)
	l.mu.Unlock()

	select {
	case l.signal <- struct{}{}:
	default:
	}
}

func (l *Loop) pop() (func(), bool) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if len(l.queue) == 0 {
		return nil, false
	}
	fn := l.queue[0]
	l.queue[0] = nil
	l.queue = l.queue[1:]
	return fn, true
}

// Pending returns the number of queued tasks.
func (l *Loop) Pending() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.queue)
}

// ProcessPending runs queued tasks, including ones posted while it runs,
// until the queue is empty. It returns the number of tasks run. Tasks
// may themselves call ProcessPending or WaitUntil.
func (l *Loop) ProcessPending() int {
	n := 0
	for {
		fn, ok := l.pop()
		if !ok {
			return n
		}
		fn()
		n++
	}
}

// WaitUntil processes tasks until cond returns true or ctx is done, in
// which case it returns the context's error.
func (l *Loop) WaitUntil(ctx context.Context, cond func() bool) error {
	for {
		l.ProcessPending()
		if cond() {
			return nil
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-l.signal:
		}
	}
}

// Run processes tasks until ctx is done.
func (l *Loop) Run(ctx context.Context) error {
	return l.WaitUntil(ctx, func() bool { return false })
}

// Invoke runs fn on the loop and waits for it to finish. It must not be
// called from the goroutine draining the loop. fn is skipped if ctx is
// done by the time the loop reaches it.
func (l *Loop) Invoke(ctx context.Context, fn func()) error {
	done := make(chan struct{})
	ran := false
	l.Post(func() {
		defer close(done)
		if ctx.Err() != nil {
			return
		}
		fn()
		ran = true
	})

	select {
	case <-done:
		if !ran {
			return ctx.Err()
		}
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Call runs fn on the loop and returns its results.
func Call[T any](ctx context.Context, l *Loop, fn func() (T, error)) (T, error) {
	var (
		ret T
		err error
	)
	if ierr := l.Invoke(ctx, func() { ret, err = fn() }); ierr != nil {
		var zero T
		return zero, ierr
	}
	return ret, err
}
