// Package schedule runs periodic work on a background goroutine.
package schedule

import (
	"context"
	"time"
)

// Task is a running periodic job created by Every.
type Task struct {
	cancel context.CancelFunc
	done   chan struct{}
}

// Every calls work once per interval until ctx is cancelled or Cancel is
// called. work runs inline on a single goroutine, so executions never
// overlap; ticks that arrive while work is still running are dropped by the
// ticker. The context passed to work is cancelled when the task stops.
func Every(ctx context.Context, interval time.Duration, work func(ctx context.Context)) *Task {
	ctx, cancel := context.WithCancel(ctx)
	t := &Task{
		cancel: cancel,
		done:   make(chan struct{}),
	}

	go func() {
		defer close(t.done)

		ticker := time.NewTicker(interval)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				if ctx.Err() != nil {
					return
				}
				work(ctx)
			}
		}
	}()

	return t
}

// Cancel stops the task. It does not wait for an in-flight execution to
// finish, so it is safe to call from inside work.
func (t *Task) Cancel() {
	t.cancel()
}

// Done is closed once the task goroutine has exited.
func (t *Task) Done() <-chan struct{} {
	return t.done
}
