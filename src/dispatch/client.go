package dispatch

import (
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/relaychat/coordinator/src/types"
)

// Client wraps one transport connection with a buffered send queue.
// A single write pump drains the queue, so two sends enqueued in
// order reach the connection in that order.
type Client struct {
	ID          string
	conn        types.Conn
	send        chan types.Envelope
	connectedAt time.Time
	logger      zerolog.Logger

	mu     sync.Mutex
	closed bool
	done   chan struct{}
}

func newClient(id string, conn types.Conn, buffer int, logger zerolog.Logger) *Client {
	return &Client{
		ID:          id,
		conn:        conn,
		send:        make(chan types.Envelope, buffer),
		connectedAt: time.Now(),
		logger:      logger,
		done:        make(chan struct{}),
	}
}

// WritePump writes queued envelopes to the connection. Call in a
// goroutine; it returns when the client is closed or a write fails.
func (c *Client) WritePump() {
	defer c.conn.Close()

	for {
		select {
		case env, ok := <-c.send:
			if !ok {
				return
			}
			if err := c.conn.WriteJSON(env); err != nil {
				c.logger.Warn().Err(err).Str("conn_id", c.ID).Msg("write failed, closing pump")
				return
			}
		case <-c.done:
			return
		}
	}
}

// Close signals the write pump to stop. Safe to call more than once.
func (c *Client) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.closed {
		c.closed = true
		close(c.done)
	}
}
