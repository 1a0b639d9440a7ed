// Package agent talks to the remote voice agent: a duplex websocket channel
// for live audio and its HTTP endpoints for chat, upload and translation.
package agent

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"sync"
	"time"

	"github.com/google/uuid"
	"nhooyr.io/websocket"
)

// ErrNotOpen is returned by SendFrame when the connection is not ready.
var ErrNotOpen = errors.New("agent connection not open")

// Client handles one websocket connection to the remote agent.
// Outbound binary frames carry raw little-endian PCM16 audio; inbound text
// frames carry JSON events.
type Client struct {
	url string
	id  string

	mu     sync.Mutex
	conn   *websocket.Conn
	open   bool
	closed bool

	events chan Event
	errs   chan error
	done   chan struct{}
}

// NewClient creates a client for the agent behind serverURL.
// The channel endpoint is derived from the server's own transport security:
// https becomes wss, anything else ws, always at path /ws.
func NewClient(serverURL string) (*Client, error) {
	wsURL, err := channelURL(serverURL)
	if err != nil {
		return nil, err
	}

	return &Client{
		url:    wsURL,
		id:     uuid.NewString(),
		events: make(chan Event, 100),
		errs:   make(chan error, 1),
		done:   make(chan struct{}),
	}, nil
}

// channelURL derives the duplex channel URL from the agent's base URL.
func channelURL(serverURL string) (string, error) {
	u, err := url.Parse(serverURL)
	if err != nil {
		return "", fmt.Errorf("parse server url: %w", err)
	}
	if u.Host == "" {
		return "", fmt.Errorf("server url %q has no host", serverURL)
	}

	switch u.Scheme {
	case "https", "wss":
		u.Scheme = "wss"
	default:
		u.Scheme = "ws"
	}
	u.Path = "/ws"
	u.RawQuery = ""
	u.Fragment = ""
	return u.String(), nil
}

// Dial establishes the websocket connection and starts the read loop.
func (c *Client) Dial(ctx context.Context) error {
	conn, _, err := websocket.Dial(ctx, c.url, nil)
	if err != nil {
		return fmt.Errorf("websocket dial: %w", err)
	}

	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		// Close raced ahead of the dial; don't leak the connection.
		return conn.Close(websocket.StatusNormalClosure, "closing")
	}
	c.conn = conn
	c.open = true
	c.mu.Unlock()

	slog.Info("agent channel connected", "conn_id", c.id, "url", c.url)

	go c.readLoop()
	return nil
}

// IsOpen reports whether the connection is established and accepting frames.
func (c *Client) IsOpen() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.open && c.conn != nil
}

// SendFrame transmits one binary audio frame. Fire-and-forget: no
// acknowledgment is awaited.
func (c *Client) SendFrame(ctx context.Context, frame []byte) error {
	c.mu.Lock()
	conn := c.conn
	open := c.open
	c.mu.Unlock()

	if !open || conn == nil {
		return ErrNotOpen
	}
	return conn.Write(ctx, websocket.MessageBinary, frame)
}

// Events returns the channel of inbound events, delivered in receipt order.
// The channel is closed when the connection terminates.
func (c *Client) Events() <-chan Event {
	return c.events
}

// Errors returns a channel reporting the read loop's terminal error.
func (c *Client) Errors() <-chan error {
	return c.errs
}

// Close terminates the connection. Callable at any point in the lifecycle,
// including before Dial completes, and idempotent.
func (c *Client) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return nil
	}

	c.closed = true
	c.open = false
	close(c.done)

	if c.conn != nil {
		return c.conn.Close(websocket.StatusNormalClosure, "closing")
	}
	return nil
}

func (c *Client) readLoop() {
	defer close(c.events)

	ctx := context.Background()

	for {
		select {
		case <-c.done:
			return
		default:
			_, data, err := c.conn.Read(ctx)
			if err != nil {
				c.mu.Lock()
				c.open = false
				c.mu.Unlock()

				select {
				case c.errs <- fmt.Errorf("read error: %w", err):
				default:
				}
				return
			}

			var event Event
			if err := json.Unmarshal(data, &event); err != nil {
				slog.Error("failed to unmarshal event", "conn_id", c.id, "error", err, "data", string(data))
				continue
			}

			select {
			case c.events <- event:
			case <-time.After(100 * time.Millisecond):
				slog.Warn("event channel full, dropping event", "conn_id", c.id, "type", event.Type)
			}
		}
	}
}
