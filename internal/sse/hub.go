package sse

import (
	"encoding/json"
	"log/slog"
	"sync"

	"github.com/google/uuid"
)

// Topics verdicts are published on.
const (
	TopicText = "text"
	TopicURL  = "url"
)

// Event represents a server-sent event to be published to subscribers.
type Event struct {
	ID   string // unique per event, sent as the SSE id field
	Type string // "verdict", "malware_verdict"
	Data []byte // JSON payload
}

// NewEvent marshals payload into an Event with a fresh ID.
func NewEvent(eventType string, payload any) (Event, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return Event{}, err
	}
	return Event{ID: uuid.NewString(), Type: eventType, Data: data}, nil
}

// Hub is a fan-out hub that manages per-topic SSE subscriptions.
// Subscribers receive events published for the topics they are subscribed to.
type Hub struct {
	mu          sync.RWMutex
	subscribers map[string]map[chan Event]struct{} // topic -> set of channels
	logger      *slog.Logger
}

// NewHub creates a new SSE hub.
func NewHub(logger *slog.Logger) *Hub {
	return &Hub{
		subscribers: make(map[string]map[chan Event]struct{}),
		logger:      logger,
	}
}

// Subscribe registers a new subscriber for the given topic.
// It returns a channel that will receive events and a cancel function that
// must be called when the subscriber disconnects.
func (h *Hub) Subscribe(topic string) (chan Event, func()) {
	ch := make(chan Event, 64)
	h.mu.Lock()
	if h.subscribers[topic] == nil {
		h.subscribers[topic] = make(map[chan Event]struct{})
	}
	h.subscribers[topic][ch] = struct{}{}
	h.mu.Unlock()

	var once sync.Once
	cancel := func() {
		once.Do(func() {
			h.mu.Lock()
			delete(h.subscribers[topic], ch)
			if len(h.subscribers[topic]) == 0 {
				delete(h.subscribers, topic)
			}
			close(ch)
			h.mu.Unlock()
		})
	}
	return ch, cancel
}

// Publish sends an event to all subscribers of the given topic.
// If a subscriber's channel is full, the event is dropped and a warning is logged.
func (h *Hub) Publish(topic string, event Event) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	for ch := range h.subscribers[topic] {
		select {
		case ch <- event:
		default:
			h.logger.Warn("sse: dropped event for slow client", "topic", topic)
		}
	}
}

// SubscriberCount returns the number of active subscribers for the given topic.
func (h *Hub) SubscriberCount(topic string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.subscribers[topic])
}

// PublishJSON wraps payload in a new Event and publishes it on topic.
// Nothing is marshalled when the topic has no subscribers.
func (h *Hub) PublishJSON(topic, eventType string, payload any) {
	if h.SubscriberCount(topic) == 0 {
		return
	}
	event, err := NewEvent(eventType, payload)
	if err != nil {
		h.logger.Error("sse: marshal event", "topic", topic, "err", err)
		return
	}
	h.Publish(topic, event)
}
