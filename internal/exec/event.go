package exec

import (
	"context"

	"github.com/pkg/errors"

	"github.com/born-ml/tensorexpr/internal/tensor"
)

// Event tracks the completion of one work item on a queue.
type Event struct {
	queue string
	work  string
	done  chan struct{}
	err   error
}

func newEvent(queue, work string) *Event {
	return &Event{queue: queue, work: work, done: make(chan struct{})}
}

func (e *Event) complete(err error) {
	e.err = err
	close(e.done)
}

// Queue returns the id of the queue the work was submitted to.
func (e *Event) Queue() string { return e.queue }

// Work returns the name of the work item.
func (e *Event) Work() string { return e.work }

// Done is closed once the work item finished, successfully or not.
func (e *Event) Done() <-chan struct{} { return e.done }

// Err returns the work item's error once it finished, nil before.
func (e *Event) Err() error {
	select {
	case <-e.done:
		return e.err
	default:
		return nil
	}
}

// Wait blocks until the work item finished or ctx is done. A failed work item, or a wait
// cut short by ctx, is reported as a tensor.SynchronizationError. Cutting the wait short
// does not cancel the work.
func (e *Event) Wait(ctx context.Context) error {
	select {
	case <-e.done:
		if e.err != nil {
			return errors.WithStack(&tensor.SynchronizationError{Queue: e.queue, Work: e.work, Err: e.err})
		}
		return nil
	case <-ctx.Done():
		return errors.WithStack(&tensor.SynchronizationError{Queue: e.queue, Work: e.work, Err: ctx.Err()})
	}
}
