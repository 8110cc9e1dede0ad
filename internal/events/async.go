package events

import (
	"context"
	"sync"
)

// DefaultAsyncBuffer is the queue length used when NewAsync is given zero.
const DefaultAsyncBuffer = 256

// Async decouples a slow sink from request handling. Events are queued on a
// bounded channel and delivered serially by Run; when the queue is full the
// event is dropped and a warning logged.
type Async struct {
	name   string
	next   Sink
	ch     chan Event
	logger Logger
	done   chan struct{}
	once   sync.Once
}

// NewAsync wraps next. name identifies the sink in log lines.
func NewAsync(name string, next Sink, buffer int, logger Logger) *Async {
	if buffer <= 0 {
		buffer = DefaultAsyncBuffer
	}
	return &Async{
		name:   name,
		next:   next,
		ch:     make(chan Event, buffer),
		logger: logger,
		done:   make(chan struct{}),
	}
}

// Publish enqueues ev without blocking.
func (a *Async) Publish(_ context.Context, ev Event) {
	select {
	case a.ch <- ev:
	default:
		if a.logger != nil {
			a.logger.Warn("event queue full, dropping event",
				"sink", a.name,
				"type", string(ev.Type),
			)
		}
	}
}

// Run delivers queued events until ctx is cancelled, then drains whatever is
// still queued and returns.
func (a *Async) Run(ctx context.Context) {
	defer a.once.Do(func() { close(a.done) })

	for {
		select {
		case ev := <-a.ch:
			a.next.Publish(context.WithoutCancel(ctx), ev)
		case <-ctx.Done():
			for {
				select {
				case ev := <-a.ch:
					a.next.Publish(context.WithoutCancel(ctx), ev)
				default:
					return
				}
			}
		}
	}
}

// Done is closed once Run has returned.
func (a *Async) Done() <-chan struct{} {
	return a.done
}

// Pending returns the number of queued events.
func (a *Async) Pending() int {
	return len(a.ch)
}
