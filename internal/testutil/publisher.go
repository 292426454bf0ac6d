package testutil

import (
	"sync"

	"github.com/bingovintage/loan-engine/internal/websocket"
)

// PublishedEvent is one event captured by RecordingPublisher
type PublishedEvent struct {
	Topic string
	Event websocket.Event
}

// RecordingPublisher captures published events for assertions
type RecordingPublisher struct {
	mu     sync.Mutex
	events []PublishedEvent
}

var _ websocket.EventPublisher = (*RecordingPublisher)(nil)

// Publish records the event
func (p *RecordingPublisher) Publish(topic string, event websocket.Event) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, PublishedEvent{Topic: topic, Event: event})
}

// Events returns the captured events in publish order
func (p *RecordingPublisher) Events() []PublishedEvent {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]PublishedEvent(nil), p.events...)
}

// Types returns the event types a subscriber of topic would receive
func (p *RecordingPublisher) Types(topic string) []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	var types []string
	for _, e := range p.events {
		if websocket.Reaches(e.Topic, topic) {
			types = append(types, e.Event.Type)
		}
	}
	return types
}
