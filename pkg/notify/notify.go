// Package notify implements the completion-event broker: every object
// operation the exec layer finishes publishes an event here, and anything
// that cares — the admin CLI, metrics scrapers, a future replication
// consumer — subscribes to a channel of them instead of polling the engine.
package notify

import (
	"sync"
	"time"

	"github.com/raleighsl/raleighsl/pkg/types"
)

// EventType names the kind of completion an Event reports.
type EventType string

const (
	EventObjectCreated    EventType = "object.created"
	EventObjectRead       EventType = "object.read"
	EventObjectWritten    EventType = "object.written"
	EventObjectUnlinked   EventType = "object.unlinked"
	EventObjectRenamed    EventType = "object.renamed"
	EventTxnCommitted     EventType = "txn.committed"
	EventTxnRolledBack    EventType = "txn.rolledback"
	EventPluginInstalled  EventType = "plugin.installed"
	EventPluginForgotten  EventType = "plugin.forgotten"
)

// Event is one completed engine operation.
type Event struct {
	ID        string
	Type      EventType
	OID       types.OID
	Timestamp time.Time
	Message   string
	Errno     types.Errno
	Metadata  map[string]string
}

// Subscriber receives events published after the subscription began.
type Subscriber chan *Event

// Broker fans completed-operation events out to every subscriber. A slow
// or absent subscriber never blocks the operation that published the
// event: Publish enqueues onto an internal buffered channel and broadcast
// drops an event for any subscriber whose own buffer is full.
type Broker struct {
	mu          sync.RWMutex
	subscribers map[Subscriber]bool
	eventCh     chan *Event
	stopCh      chan struct{}
}

// NewBroker returns an idle broker; call Start to begin distribution.
func NewBroker() *Broker {
	return &Broker{
		subscribers: make(map[Subscriber]bool),
		eventCh:     make(chan *Event, 256),
		stopCh:      make(chan struct{}),
	}
}

// Start begins the distribution loop.
func (b *Broker) Start() {
	go b.run()
}

// Stop ends the distribution loop and closes every subscriber channel.
func (b *Broker) Stop() {
	close(b.stopCh)

	b.mu.Lock()
	defer b.mu.Unlock()
	for sub := range b.subscribers {
		delete(b.subscribers, sub)
		close(sub)
	}
}

// Subscribe registers a new subscriber with its own 64-event buffer.
func (b *Broker) Subscribe() Subscriber {
	b.mu.Lock()
	defer b.mu.Unlock()

	sub := make(Subscriber, 64)
	b.subscribers[sub] = true
	return sub
}

// Unsubscribe deregisters sub and closes its channel.
func (b *Broker) Unsubscribe(sub Subscriber) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.subscribers[sub] {
		delete(b.subscribers, sub)
		close(sub)
	}
}

// Publish hands ev to the distribution loop, stamping its timestamp if
// unset. It never blocks the caller past the broker shutting down.
func (b *Broker) Publish(ev *Event) {
	if ev.Timestamp.IsZero() {
		ev.Timestamp = time.Now()
	}
	select {
	case b.eventCh <- ev:
	case <-b.stopCh:
	}
}

func (b *Broker) run() {
	for {
		select {
		case ev := <-b.eventCh:
			b.broadcast(ev)
		case <-b.stopCh:
			return
		}
	}
}

func (b *Broker) broadcast(ev *Event) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	for sub := range b.subscribers {
		select {
		case sub <- ev:
		default:
		}
	}
}

// SubscriberCount reports how many subscriptions are active.
func (b *Broker) SubscriberCount() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.subscribers)
}
