package notify

import (
	"context"
	"log/slog"
	"sync"
)

// Async decouples event delivery from the caller: Notify enqueues and
// returns immediately, a single worker drains the queue. Events are dropped
// when the buffer is full rather than stalling the engine.
type Async struct {
	inner Notifier
	ch    chan Event
	log   *slog.Logger

	stop     chan struct{}
	stopOnce sync.Once
	done     chan struct{}
}

// NewAsync wraps inner with a buffered delivery queue and starts the worker.
func NewAsync(inner Notifier, bufSize int, log *slog.Logger) *Async {
	a := &Async{
		inner: inner,
		ch:    make(chan Event, bufSize),
		log:   log,
		stop:  make(chan struct{}),
		done:  make(chan struct{}),
	}
	go a.run()
	return a
}

// Notify enqueues the event without blocking.
func (a *Async) Notify(_ context.Context, ev Event) {
	select {
	case a.ch <- ev:
	default:
		a.log.Warn("notification queue full, dropping event",
			"type", string(ev.Type), "order_id", ev.Order.ID)
	}
}

// Close stops the worker after draining queued events.
func (a *Async) Close() {
	a.stopOnce.Do(func() { close(a.stop) })
	<-a.done
}

func (a *Async) run() {
	defer close(a.done)
	for {
		select {
		case ev := <-a.ch:
			a.inner.Notify(context.Background(), ev)
		case <-a.stop:
			// Drain whatever is left, then exit.
			for {
				select {
				case ev := <-a.ch:
					a.inner.Notify(context.Background(), ev)
				default:
					return
				}
			}
		}
	}
}
