// Package outbox decouples event-of-record writes from notification
// dispatch. Producers publish after a successful database write;
// consumers run on their own goroutines, so a slow or failing
// dispatcher can never roll back the write that triggered it.
package outbox

import (
	"log/slog"
	"sync"
	"time"
)

// Message is one published item.
type Message struct {
	Topic       string
	Payload     any
	PublishedAt time.Time
}

// Topics used by the service.
const (
	TopicMatchEvents   = "match.events"
	TopicAnnouncements = "announcements"
)

// Broker is an in-process topic broker backed by buffered channels.
type Broker struct {
	mu        sync.RWMutex
	consumers map[string][]chan Message
	closed    bool
	buffer    int
}

// NewBroker creates a Broker whose consumer channels hold up to
// buffer messages before publishes start dropping.
func NewBroker(buffer int) *Broker {
	if buffer <= 0 {
		buffer = 256
	}
	return &Broker{
		consumers: make(map[string][]chan Message),
		buffer:    buffer,
	}
}

// Publish delivers the message to every subscriber of the topic.
// Publishing never blocks: a full subscriber channel drops the
// message and logs, since notifications are best-effort relative to
// the event of record.
func (b *Broker) Publish(topic string, payload any) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	if b.closed {
		return
	}

	msg := Message{Topic: topic, Payload: payload, PublishedAt: time.Now()}
	for _, ch := range b.consumers[topic] {
		select {
		case ch <- msg:
		default:
			slog.Warn("outbox consumer channel full, message dropped", "topic", topic)
		}
	}
}

// Subscribe registers a new consumer for the topic and returns its
// channel. The channel is closed when the broker closes.
func (b *Broker) Subscribe(topic string) <-chan Message {
	b.mu.Lock()
	defer b.mu.Unlock()

	ch := make(chan Message, b.buffer)
	b.consumers[topic] = append(b.consumers[topic], ch)
	return ch
}

// Close closes all consumer channels. Publish becomes a no-op.
func (b *Broker) Close() {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.closed {
		return
	}
	b.closed = true
	for _, chans := range b.consumers {
		for _, ch := range chans {
			close(ch)
		}
	}
	b.consumers = make(map[string][]chan Message)
}
