package websocket

import (
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = pongWait * 9 / 10
	maxInboundSize = 512

	// sendBuffer is how many events may queue for one dashboard
	sendBuffer = 64
)

// ErrSlowConsumer is returned when a client's queue is full. The client is
// disconnected and expected to reconnect and refetch loan state.
var ErrSlowConsumer = errors.New("client cannot keep up with the event feed")

// Client is one back-office connection following a single topic
type Client struct {
	id      string
	actorID string
	topic   string
	conn    *websocket.Conn
	hub     *Hub

	queue chan []byte
	done  chan struct{}
	once  sync.Once
}

// NewClient creates a client for an authenticated staff member
func NewClient(conn *websocket.Conn, actorID, topic string, hub *Hub) *Client {
	return &Client{
		id:      uuid.NewString(),
		actorID: actorID,
		topic:   topic,
		conn:    conn,
		hub:     hub,
		queue:   make(chan []byte, sendBuffer),
		done:    make(chan struct{}),
	}
}

func (c *Client) ID() string    { return c.id }
func (c *Client) Topic() string { return c.topic }

// Send queues an event without blocking the publisher
func (c *Client) Send(data []byte) error {
	select {
	case <-c.done:
		return ErrClientClosed
	default:
	}

	select {
	case c.queue <- data:
		return nil
	case <-c.done:
		return ErrClientClosed
	default:
		log.Warn().
			Str("client_id", c.id).
			Str("actor_id", c.actorID).
			Str("topic", c.topic).
			Msg("Dropping slow WebSocket client")
		c.hub.Unregister(c)
		c.Close()
		return ErrSlowConsumer
	}
}

// Close stops both pumps; later calls are no-ops
func (c *Client) Close() error {
	var err error
	c.once.Do(func() {
		close(c.done)
		err = c.conn.Close()
	})
	return err
}

// IsClosed reports whether Close has been called
func (c *Client) IsClosed() bool {
	select {
	case <-c.done:
		return true
	default:
		return false
	}
}

// ReadPump discards inbound frames and keeps the read deadline fresh from
// pongs. It unregisters the client when the peer goes away.
func (c *Client) ReadPump() {
	defer func() {
		c.hub.Unregister(c)
		c.Close()
	}()

	c.conn.SetReadLimit(maxInboundSize)
	_ = c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		if _, _, err := c.conn.ReadMessage(); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				log.Debug().
					Err(err).
					Str("client_id", c.id).
					Str("actor_id", c.actorID).
					Msg("WebSocket peer went away")
			}
			return
		}
	}
}

// WritePump delivers queued events one per frame and pings the peer
func (c *Client) WritePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.Close()
	}()

	for {
		select {
		case <-c.done:
			_ = c.conn.WriteControl(websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
				time.Now().Add(writeWait))
			return

		case data := <-c.queue:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.TextMessage, data); err != nil {
				log.Debug().Err(err).Str("client_id", c.id).Msg("WebSocket write failed")
				return
			}

		case <-ticker.C:
			if err := c.conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(writeWait)); err != nil {
				return
			}
		}
	}
}
