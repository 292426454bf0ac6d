package websocket

import (
	"errors"
	"sync"

	"github.com/rs/zerolog/log"
)

// ErrClientClosed is returned when attempting to send to a closed client
var ErrClientClosed = errors.New("client is closed")

// ClientInterface defines the interface that clients must implement
type ClientInterface interface {
	ID() string
	Topic() string
	Send(data []byte) error
	Close() error
}

// Hub manages WebSocket connections organized by topic
// It is safe for concurrent use
type Hub struct {
	// topics maps a topic to a map of client ID to client
	topics map[string]map[string]ClientInterface
	mu     sync.RWMutex
}

// NewHub creates a new Hub instance
func NewHub() *Hub {
	return &Hub{
		topics: make(map[string]map[string]ClientInterface),
	}
}

// Register adds a client to the hub under its topic
func (h *Hub) Register(client ClientInterface) {
	h.mu.Lock()
	defer h.mu.Unlock()

	topic := client.Topic()
	if h.topics[topic] == nil {
		h.topics[topic] = make(map[string]ClientInterface)
	}
	h.topics[topic][client.ID()] = client

	log.Debug().
		Str("topic", topic).
		Str("client_id", client.ID()).
		Msg("WebSocket client registered")
}

// Unregister removes a client from the hub
func (h *Hub) Unregister(client ClientInterface) {
	h.mu.Lock()
	defer h.mu.Unlock()

	topic := client.Topic()
	clients, ok := h.topics[topic]
	if !ok {
		return
	}
	if _, exists := clients[client.ID()]; !exists {
		return
	}

	delete(clients, client.ID())
	if len(clients) == 0 {
		delete(h.topics, topic)
	}

	log.Debug().
		Str("topic", topic).
		Str("client_id", client.ID()).
		Msg("WebSocket client unregistered")
}

// recipients snapshots the clients an event on topic reaches. Clients hold a
// single subscription, so the sets never overlap. Caller holds h.mu.
func (h *Hub) recipients(topic string) []ClientInterface {
	subscriptions := []string{topic}
	if IsLoanTopic(topic) {
		subscriptions = append(subscriptions, TopicPortfolio)
	}

	var out []ClientInterface
	for _, sub := range subscriptions {
		for _, client := range h.topics[sub] {
			out = append(out, client)
		}
	}
	return out
}

// Broadcast sends an event to every client the topic reaches: its own
// subscribers and, for a loan topic, the portfolio dashboards
func (h *Hub) Broadcast(topic string, event Event) {
	data, err := event.ToJSON()
	if err != nil {
		log.Error().
			Err(err).
			Str("topic", topic).
			Str("event_type", event.Type).
			Msg("Failed to serialize event")
		return
	}

	h.mu.RLock()
	recipients := h.recipients(topic)
	h.mu.RUnlock()
	if len(recipients) == 0 {
		return
	}

	for _, client := range recipients {
		go func(c ClientInterface) {
			if err := c.Send(data); err != nil {
				log.Warn().
					Err(err).
					Str("topic", topic).
					Str("client_id", c.ID()).
					Msg("Failed to send to client")
			}
		}(client)
	}

	log.Debug().
		Str("topic", topic).
		Str("event_type", event.Type).
		Int("client_count", len(recipients)).
		Msg("Broadcast event")
}

// ClientCount returns the number of clients subscribed to a topic
func (h *Hub) ClientCount(topic string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.topics[topic])
}

// TotalClientCount returns the total number of connected clients across all topics
func (h *Hub) TotalClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()

	total := 0
	for _, clients := range h.topics {
		total += len(clients)
	}
	return total
}
