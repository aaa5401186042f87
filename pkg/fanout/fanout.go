package fanout

import (
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// Event is a domain change notification delivered to subscribers.
type Event struct {
	ID         uuid.UUID
	Topic      string
	Payload    interface{}
	OccurredAt time.Time
}

// Handler consumes events. Handlers must be idempotent: delivery is
// at-least-once and duplicates are possible after broker retries.
type Handler func(Event)

// Subscription identifies an active subscriber on a topic.
type Subscription struct {
	id    uuid.UUID
	topic string
}

func (s *Subscription) Topic() string { return s.topic }

type subscriber struct {
	ch      chan Event
	done    chan struct{}
	handler Handler
}

// Dispatcher fans events out to topic subscribers. Events published on the
// same topic by the same caller are delivered to each subscriber in publish
// order; there is no cross-topic ordering. A subscriber that panics is
// isolated and does not affect delivery to others.
type Dispatcher struct {
	mu     sync.RWMutex
	subs   map[string]map[uuid.UUID]*subscriber
	logger *zerolog.Logger
	buffer int
}

func NewDispatcher(logger *zerolog.Logger) *Dispatcher {
	return &Dispatcher{
		subs:   make(map[string]map[uuid.UUID]*subscriber),
		logger: logger,
		buffer: 64,
	}
}

func (d *Dispatcher) Subscribe(topic string, h Handler) *Subscription {
	sub := &subscriber{
		ch:      make(chan Event, d.buffer),
		done:    make(chan struct{}),
		handler: h,
	}
	handle := &Subscription{id: uuid.New(), topic: topic}

	d.mu.Lock()
	if d.subs[topic] == nil {
		d.subs[topic] = make(map[uuid.UUID]*subscriber)
	}
	d.subs[topic][handle.id] = sub
	d.mu.Unlock()

	go sub.run(d.logger)
	return handle
}

func (d *Dispatcher) Unsubscribe(handle *Subscription) {
	if handle == nil {
		return
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	if subs, ok := d.subs[handle.topic]; ok {
		if sub, ok := subs[handle.id]; ok {
			close(sub.done)
			delete(subs, handle.id)
		}
		if len(subs) == 0 {
			delete(d.subs, handle.topic)
		}
	}
}

// Publish delivers evt to every subscriber of evt.Topic. It blocks when a
// subscriber's buffer is full rather than dropping the event.
func (d *Dispatcher) Publish(evt Event) {
	if evt.ID == uuid.Nil {
		evt.ID = uuid.New()
	}
	if evt.OccurredAt.IsZero() {
		evt.OccurredAt = time.Now()
	}

	d.mu.RLock()
	targets := make([]*subscriber, 0, len(d.subs[evt.Topic]))
	for _, sub := range d.subs[evt.Topic] {
		targets = append(targets, sub)
	}
	d.mu.RUnlock()

	for _, sub := range targets {
		select {
		case sub.ch <- evt:
		case <-sub.done:
		}
	}
}

func (s *subscriber) run(logger *zerolog.Logger) {
	for {
		select {
		case <-s.done:
			return
		case evt := <-s.ch:
			s.deliver(evt, logger)
		}
	}
}

func (s *subscriber) deliver(evt Event, logger *zerolog.Logger) {
	defer func() {
		if r := recover(); r != nil {
			logger.Error().
				Interface("panic", r).
				Str("topic", evt.Topic).
				Str("event_id", evt.ID.String()).
				Msg("subscriber panicked")
		}
	}()
	s.handler(evt)
}
