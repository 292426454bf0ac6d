package websocket

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

// EventType is what happened to the entity
type EventType string

const (
	EventTypeCreated         EventType = "created"
	EventTypeStatusChanged   EventType = "status_changed"
	EventTypePaymentPosted   EventType = "payment_posted"
	EventTypePaymentReversed EventType = "payment_reversed"
	EventTypeEvaluated       EventType = "evaluated"
	EventTypeUpdated         EventType = "updated"
)

// EntityType represents the type of entity the event is about
type EntityType string

const (
	EntityTypeLoan   EntityType = "loan"
	EntityTypeClient EntityType = "client"
)

// TopicPortfolio receives every loan and client event
const TopicPortfolio = "portfolio"

const loanTopicPrefix = "loan:"

// LoanTopic is the topic of clients following a single loan
func LoanTopic(loanID uuid.UUID) string {
	return loanTopicPrefix + loanID.String()
}

// IsLoanTopic reports whether topic follows a single loan
func IsLoanTopic(topic string) bool {
	return strings.HasPrefix(topic, loanTopicPrefix)
}

// Reaches reports whether an event broadcast on topic is delivered to clients
// subscribed to subscription. Portfolio dashboards see every loan's events.
func Reaches(topic, subscription string) bool {
	return topic == subscription || (subscription == TopicPortfolio && IsLoanTopic(topic))
}

// Event represents a WebSocket event message sent to clients
// Format: { type, entity, payload, timestamp }
type Event struct {
	Type      string     `json:"type"`   // Combined type e.g. "loan.payment_posted"
	Entity    EntityType `json:"entity"` // Entity type e.g. "loan"
	Payload   any        `json:"payload"`
	Timestamp time.Time  `json:"timestamp"`
}

// NewEvent creates a new event with the given type, entity, and payload
func NewEvent(eventType EventType, entityType EntityType, payload any) Event {
	return Event{
		Type:      fmt.Sprintf("%s.%s", entityType, eventType),
		Entity:    entityType,
		Payload:   payload,
		Timestamp: time.Now().UTC(),
	}
}

// ToJSON serializes the event to JSON bytes
func (e Event) ToJSON() ([]byte, error) {
	return json.Marshal(e)
}

// LoanCreated creates a loan.created event
func LoanCreated(payload any) Event {
	return NewEvent(EventTypeCreated, EntityTypeLoan, payload)
}

// LoanStatusChanged creates a loan.status_changed event
func LoanStatusChanged(payload any) Event {
	return NewEvent(EventTypeStatusChanged, EntityTypeLoan, payload)
}

// LoanPaymentPosted creates a loan.payment_posted event
func LoanPaymentPosted(payload any) Event {
	return NewEvent(EventTypePaymentPosted, EntityTypeLoan, payload)
}

// LoanPaymentReversed creates a loan.payment_reversed event
func LoanPaymentReversed(payload any) Event {
	return NewEvent(EventTypePaymentReversed, EntityTypeLoan, payload)
}

// LoanEvaluated creates a loan.evaluated event
func LoanEvaluated(payload any) Event {
	return NewEvent(EventTypeEvaluated, EntityTypeLoan, payload)
}

// ClientUpdated creates a client.updated event
func ClientUpdated(payload any) Event {
	return NewEvent(EventTypeUpdated, EntityTypeClient, payload)
}
