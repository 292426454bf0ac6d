package websocket

import "github.com/google/uuid"

// EventPublisher defines the interface for publishing events to WebSocket clients
type EventPublisher interface {
	// Publish sends an event to all clients subscribed to the topic
	Publish(topic string, event Event)
}

// Ensure Hub implements EventPublisher
var _ EventPublisher = (*Hub)(nil)

// Publish implements EventPublisher by broadcasting the event to the topic
func (h *Hub) Publish(topic string, event Event) {
	h.Broadcast(topic, event)
}

// PublishLoanEvent sends a loan event on the loan's topic; the hub also
// delivers it to portfolio dashboards
func PublishLoanEvent(p EventPublisher, loanID uuid.UUID, event Event) {
	if p == nil {
		return
	}
	p.Publish(LoanTopic(loanID), event)
}

// NoOpPublisher is a publisher that does nothing (for testing or when WebSocket is disabled)
type NoOpPublisher struct{}

// Publish does nothing
func (n *NoOpPublisher) Publish(topic string, event Event) {}
