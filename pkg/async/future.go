package async

import (
	"context"
	"errors"
	"sync"
	"time"
)

// ErrTimeout is returned by AwaitWithTimeout when the future did not complete in time.
var ErrTimeout = errors.New("async: timed out waiting for future completion")

// Future is the result of an asynchronous operation. It completes exactly once.
type Future[U any] struct {
	result U
	err    error
	once   sync.Once
	done   chan struct{}
	cancel context.CancelFunc
}

// Go runs fn in its own goroutine and returns a Future for its result.
// fn is always invoked, even when ctx is already canceled, so that it can
// release anything it owns; it receives a context that Cancel cancels.
func Go[U any](ctx context.Context, fn func(context.Context) (U, error)) *Future[U] {
	ctx, cancel := context.WithCancel(ctx)
	f := &Future[U]{done: make(chan struct{}), cancel: cancel}

	go func() {
		defer cancel()
		res, err := fn(ctx)
		f.complete(res, err)
	}()

	return f
}

// Resolved returns a Future that has already completed with the given result.
func Resolved[U any](result U, err error) *Future[U] {
	f := &Future[U]{done: make(chan struct{}), cancel: func() {}}
	f.complete(result, err)
	return f
}

func (f *Future[U]) complete(result U, err error) {
	f.once.Do(func() {
		f.result = result
		f.err = err
		close(f.done)
	})
}

// Await blocks until the future completes.
func (f *Future[U]) Await() (U, error) {
	<-f.done
	return f.result, f.err
}

// AwaitWithTimeout blocks until the future completes or timeout elapses.
// A timeout does not cancel the underlying operation.
func (f *Future[U]) AwaitWithTimeout(timeout time.Duration) (U, error) {
	select {
	case <-f.done:
		return f.result, f.err
	case <-time.After(timeout):
		var zero U
		return zero, ErrTimeout
	}
}

// Done is closed when the future completes.
func (f *Future[U]) Done() <-chan struct{} {
	return f.done
}

// IsComplete reports whether the future has completed, without blocking.
func (f *Future[U]) IsComplete() bool {
	select {
	case <-f.done:
		return true
	default:
		return false
	}
}

// Cancel cancels the context handed to the operation. The future still
// completes with whatever the operation returns.
func (f *Future[U]) Cancel() {
	f.cancel()
}
