package events

import (
	"context"
	"log"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
)

const defaultQueueSize = 256

type Stats struct {
	Delivered uint64 `json:"delivered"`
	Failed    uint64 `json:"failed"`
	Dropped   uint64 `json:"dropped"`
}

type job struct {
	event        *Event
	notification *Notification
}

// Dispatcher runs side effects after the primary write has committed. A full
// queue or a failing sink is logged and counted, never returned to callers.
type Dispatcher struct {
	sink     Sink
	notifier Notifier
	queue    chan job
	wg       sync.WaitGroup
	started  atomic.Bool
	closed   atomic.Bool
	mu       sync.RWMutex

	delivered atomic.Uint64
	failed    atomic.Uint64
	dropped   atomic.Uint64
}

func NewDispatcher(sink Sink, notifier Notifier, queueSize int) *Dispatcher {
	if queueSize <= 0 {
		queueSize = defaultQueueSize
	}
	return &Dispatcher{
		sink:     sink,
		notifier: notifier,
		queue:    make(chan job, queueSize),
	}
}

func (dispatcher *Dispatcher) Start(ctx context.Context) {
	if !dispatcher.started.CompareAndSwap(false, true) {
		return
	}

	dispatcher.wg.Add(1)
	go func() {
		defer dispatcher.wg.Done()
		for {
			select {
			case <-ctx.Done():
				dispatcher.drain()
				return
			case next, ok := <-dispatcher.queue:
				if !ok {
					return
				}
				dispatcher.handle(next)
			}
		}
	}()
}

// Stop closes the queue and waits for queued jobs to finish.
func (dispatcher *Dispatcher) Stop() {
	dispatcher.mu.Lock()
	if dispatcher.closed.CompareAndSwap(false, true) {
		close(dispatcher.queue)
	}
	dispatcher.mu.Unlock()
	dispatcher.wg.Wait()
}

func (dispatcher *Dispatcher) Publish(events ...Event) {
	now := time.Now().UTC()
	for index := range events {
		event := events[index]
		if event.ID == "" {
			event.ID = uuid.NewString()
		}
		if event.At.IsZero() {
			event.At = now
		}
		dispatcher.enqueue(job{event: &event})
	}
}

func (dispatcher *Dispatcher) Notify(notifications ...Notification) {
	for index := range notifications {
		notification := notifications[index]
		if notification.UserID == 0 {
			continue
		}
		dispatcher.enqueue(job{notification: &notification})
	}
}

func (dispatcher *Dispatcher) Stats() Stats {
	return Stats{
		Delivered: dispatcher.delivered.Load(),
		Failed:    dispatcher.failed.Load(),
		Dropped:   dispatcher.dropped.Load(),
	}
}

func (dispatcher *Dispatcher) enqueue(next job) {
	dispatcher.mu.RLock()
	defer dispatcher.mu.RUnlock()

	if dispatcher.closed.Load() {
		dispatcher.dropped.Add(1)
		log.Printf("event dispatcher closed, dropping %s", next.describe())
		return
	}
	select {
	case dispatcher.queue <- next:
	default:
		dispatcher.dropped.Add(1)
		log.Printf("event queue full, dropping %s", next.describe())
	}
}

func (dispatcher *Dispatcher) drain() {
	for {
		select {
		case next, ok := <-dispatcher.queue:
			if !ok {
				return
			}
			dispatcher.handle(next)
		default:
			return
		}
	}
}

func (dispatcher *Dispatcher) handle(next job) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	var err error
	switch {
	case next.event != nil && dispatcher.sink != nil:
		err = dispatcher.sink.Emit(ctx, *next.event)
	case next.notification != nil && dispatcher.notifier != nil:
		err = dispatcher.notifier.Notify(ctx, *next.notification)
	default:
		return
	}

	if err != nil {
		dispatcher.failed.Add(1)
		log.Printf("deliver %s failed: %v", next.describe(), err)
		return
	}
	dispatcher.delivered.Add(1)
}

func (next job) describe() string {
	if next.event != nil {
		return "event " + next.event.Name + " on " + next.event.Channel
	}
	if next.notification != nil {
		return "notification " + next.notification.Type
	}
	return "empty job"
}
