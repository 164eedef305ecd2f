package exec

import (
	"context"
	"fmt"
	"runtime/debug"
	"sync"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"k8s.io/klog/v2"

	"github.com/born-ml/tensorexpr/internal/tensor"
)

// Work is a unit submitted to a queue. It runs to completion once started.
type Work func(ctx context.Context) error

// Queue is an ordered sequence of work items.
//
// Work submitted to the same queue runs in submission order. Work on different queues is
// unordered unless a cross-queue dependency is inserted (see Stream.WaitFor).
type Queue interface {
	// ID identifies the queue in logs and errors.
	ID() string

	// Enqueue submits work and returns its completion event. It never blocks on the work.
	Enqueue(name string, work Work) *Event

	// Synchronize waits for every item submitted so far, then reports the first failure
	// since the previous Synchronize, as a tensor.SynchronizationError.
	Synchronize(ctx context.Context) error
}

// failures remembers the first failed event since the last synchronization.
type failures struct {
	mu    sync.Mutex
	first *Event
}

func (f *failures) record(ev *Event) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.first == nil {
		f.first = ev
	}
}

func (f *failures) take() error {
	f.mu.Lock()
	ev := f.first
	f.first = nil
	f.mu.Unlock()
	if ev == nil {
		return nil
	}
	return errors.WithStack(&tensor.SynchronizationError{Queue: ev.queue, Work: ev.work, Err: ev.err})
}

// runWork runs work, turning a panic into an error.
func runWork(ctx context.Context, name string, work Work) (err error) {
	defer func() {
		if r := recover(); r != nil {
			klog.V(2).Infof("work %s panicked: %v\n%s", name, r, debug.Stack())
			err = errors.Errorf("panic: %v", r)
		}
	}()
	return work(ctx)
}

// Immediate runs work synchronously in the submitting goroutine.
type Immediate struct {
	id     string
	failed failures
}

// Verify that Immediate implements Queue.
var _ Queue = (*Immediate)(nil)

// NewImmediate creates an immediate queue.
func NewImmediate() *Immediate {
	return &Immediate{id: "immediate"}
}

// ID returns "immediate".
func (q *Immediate) ID() string { return q.id }

// Enqueue runs work now; the returned event is already complete.
func (q *Immediate) Enqueue(name string, work Work) *Event {
	ev := newEvent(q.id, name)
	err := runWork(context.Background(), name, work)
	if err != nil {
		klog.Warningf("queue %s: %s failed: %v", q.id, name, err)
		q.failed.record(ev)
	}
	ev.complete(err)
	return ev
}

// Synchronize reports the first failure since the previous call.
func (q *Immediate) Synchronize(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return errors.WithStack(&tensor.SynchronizationError{Queue: q.id, Err: err})
	}
	return q.failed.take()
}

type item struct {
	name  string
	work  Work
	event *Event
}

// Stream is an asynchronous FIFO queue served by one goroutine.
type Stream struct {
	id string

	mu      sync.Mutex
	cond    *sync.Cond
	pending []item
	last    *Event
	closed  bool
	stopped chan struct{}

	failed failures
}

// Verify that Stream implements Queue.
var _ Queue = (*Stream)(nil)

// NewStream starts a stream. Close it to stop its goroutine.
func NewStream() *Stream {
	s := &Stream{
		id:      "stream-" + uuid.NewString(),
		stopped: make(chan struct{}),
	}
	s.cond = sync.NewCond(&s.mu)
	go s.loop()
	klog.V(1).Infof("queue %s: started", s.id)
	return s
}

// ID returns the stream's unique id.
func (s *Stream) ID() string { return s.id }

func (s *Stream) loop() {
	defer close(s.stopped)
	for {
		s.mu.Lock()
		for len(s.pending) == 0 && !s.closed {
			s.cond.Wait()
		}
		if len(s.pending) == 0 {
			s.mu.Unlock()
			return
		}
		it := s.pending[0]
		s.pending[0] = item{}
		s.pending = s.pending[1:]
		s.mu.Unlock()

		err := runWork(context.Background(), it.name, it.work)
		if err != nil {
			klog.Warningf("queue %s: %s failed: %v", s.id, it.name, err)
			s.failed.record(it.event)
		}
		it.event.complete(err)
	}
}

// Enqueue appends work to the stream. Work enqueued after Close fails immediately, and the
// next Synchronize reports it.
func (s *Stream) Enqueue(name string, work Work) *Event {
	ev := newEvent(s.id, name)
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		ev.complete(errors.Errorf("queue %s is closed", s.id))
		s.failed.record(ev)
		return ev
	}
	s.pending = append(s.pending, item{name: name, work: work, event: ev})
	s.last = ev
	s.cond.Signal()
	return ev
}

// WaitFor makes work enqueued after this call start only once ev completed. If the work behind
// ev failed, the barrier fails too.
func (s *Stream) WaitFor(ev *Event) *Event {
	name := fmt.Sprintf("wait %s/%s", ev.queue, ev.work)
	return s.Enqueue(name, func(context.Context) error {
		<-ev.done
		if ev.err != nil {
			return errors.WithMessagef(ev.err, "dependency %s on %s failed", ev.work, ev.queue)
		}
		return nil
	})
}

// Synchronize waits for everything enqueued so far.
func (s *Stream) Synchronize(ctx context.Context) error {
	s.mu.Lock()
	last := s.last
	s.mu.Unlock()
	if last != nil {
		select {
		case <-last.done:
		case <-ctx.Done():
			return errors.WithStack(&tensor.SynchronizationError{Queue: s.id, Err: ctx.Err()})
		}
	}
	return s.failed.take()
}

// Close lets queued work finish, then stops the stream's goroutine.
func (s *Stream) Close() {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	s.closed = true
	s.cond.Signal()
	s.mu.Unlock()
	<-s.stopped
	klog.V(1).Infof("queue %s: closed", s.id)
}
