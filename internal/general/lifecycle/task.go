// Package lifecycle wraps timers, sensor watches and channel handles in one
// cancellable handle whose Dispose runs at most once.
package lifecycle

import (
	"context"
	"sync"
	"sync/atomic"
)

// Task owns a release function. Dispose is safe to call any number of times
// from any goroutine, and on a nil Task.
type Task struct {
	once     sync.Once
	disposed atomic.Bool
	release  func()
}

// NewTask wraps release. A nil release yields a no-op task.
func NewTask(release func()) *Task {
	return &Task{release: release}
}

// Dispose runs the release function the first time and blocks until it returns.
func (t *Task) Dispose() {
	if t == nil {
		return
	}
	t.once.Do(func() {
		if t.release != nil {
			t.release()
		}
		t.disposed.Store(true)
	})
}

// Disposed reports whether Dispose has completed.
func (t *Task) Disposed() bool {
	return t != nil && t.disposed.Load()
}

// Go runs fn in a goroutine with a context derived from parent. Dispose
// cancels that context and waits for fn to return.
func Go(parent context.Context, fn func(ctx context.Context)) *Task {
	ctx, cancel := context.WithCancel(parent)
	done := make(chan struct{})

	go func() {
		defer close(done)
		fn(ctx)
	}()

	return NewTask(func() {
		cancel()
		<-done
	})
}

// Compose disposes tasks in reverse order, like deferred calls.
func Compose(tasks ...*Task) *Task {
	return NewTask(func() {
		for i := len(tasks) - 1; i >= 0; i-- {
			tasks[i].Dispose()
		}
	})
}

// GoReentrant is Go for delivery loops. fn wraps each handler invocation in
// call; call skips the handler once the task is cancelled. Dispose issued
// while a handler is running cancels without waiting, so a handler may
// dispose its own task. Otherwise Dispose waits for fn to return.
func GoReentrant(parent context.Context, fn func(ctx context.Context, call func(func()))) *Task {
	ctx, cancel := context.WithCancel(parent)
	done := make(chan struct{})
	var inCall atomic.Int32

	call := func(h func()) {
		if ctx.Err() != nil {
			return
		}
		inCall.Add(1)
		defer inCall.Add(-1)
		h()
	}

	go func() {
		defer close(done)
		fn(ctx, call)
	}()

	return NewTask(func() {
		cancel()
		if inCall.Load() == 0 {
			<-done
		}
	})
}
