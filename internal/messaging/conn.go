package messaging

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

// MaxRetries is the bounded number of connection attempts Connect makes
// before giving up with ErrUnreachable.
const MaxRetries = 5

// RetryDelay is the fixed delay between connection attempts.
const RetryDelay = 2 * time.Second

// sendQueueSize bounds the number of messages Send can buffer before it
// starts to apply backpressure on the caller.
const sendQueueSize = 256

// Callbacks bundles the event hooks a caller wants on a Conn. They are
// passed into Connect/Accept and installed before the reader/sender
// goroutines start, so no inbound message or close event can arrive in a
// gap where the hooks are not yet wired. Each hook receives the Conn
// itself as its first argument rather than relying on the caller to
// capture it from an outer variable, since that variable may not be
// assigned yet at the moment the first event fires.
type Callbacks struct {
	// OnMessage is invoked from the reader goroutine for every inbound
	// message. It must not block for long.
	OnMessage func(c *Conn, raw []byte)
	// OnClose is invoked exactly once when the connection is torn down,
	// for any reason (peer close, write failure, explicit Close).
	OnClose func(c *Conn)
	// OnOpen is invoked once the connection is established, before the
	// reader/sender goroutines start.
	OnOpen func(c *Conn)
}

// Conn is a full-duplex typed channel over a single WebSocket connection.
// It owns one reader goroutine and one sender goroutine (spec.md §5: "one
// sender thread per active outbound connection"), and is safe for
// concurrent Send calls from multiple goroutines.
type Conn struct {
	ws *websocket.Conn

	sendCh chan []byte
	done   chan struct{}

	closeOnce sync.Once
	closeErr  error

	mu     sync.Mutex
	closed bool

	callbacks Callbacks
}

// newConn wraps an already-established *websocket.Conn, installs callbacks,
// invokes OnOpen, and only then starts the reader/sender goroutines.
func newConn(ws *websocket.Conn, callbacks Callbacks) *Conn {
	c := &Conn{
		ws:        ws,
		sendCh:    make(chan []byte, sendQueueSize),
		done:      make(chan struct{}),
		callbacks: callbacks,
	}
	if c.callbacks.OnOpen != nil {
		c.callbacks.OnOpen(c)
	}
	go c.readLoop()
	go c.writeLoop()
	return c
}

// Connect dials uri (ws:// or wss://), making up to MaxRetries attempts in
// total and waiting a fixed RetryDelay after each failed one. tlsMode must be TLSUndefined for a
// ws:// uri and one of the Mozilla modes for a wss:// uri, or
// ErrConfigMismatch is returned immediately without retrying.
func Connect(ctx context.Context, uri string, tlsMode TLSMode, callbacks Callbacks) (*Conn, error) {
	parsed, err := url.Parse(uri)
	if err != nil {
		return nil, fmt.Errorf("%w: parsing uri: %v", ErrConfigMismatch, err)
	}
	if err := CheckSchemeAgreement(parsed.Scheme, tlsMode); err != nil {
		return nil, err
	}

	dialer := *websocket.DefaultDialer
	if tlsMode != TLSUndefined {
		tlsCfg, err := NewTLSConfig(tlsMode)
		if err != nil {
			return nil, err
		}
		dialer.TLSClientConfig = tlsCfg
	}

	var lastErr error
	for attempt := 0; attempt < MaxRetries; attempt++ {
		ws, _, err := dialer.DialContext(ctx, uri, nil)
		if err == nil {
			return newConn(ws, callbacks), nil
		}
		lastErr = err

		select {
		case <-ctx.Done():
			return nil, fmt.Errorf("%w: %v", ErrUnreachable, ctx.Err())
		case <-time.After(RetryDelay):
		}
	}
	return nil, fmt.Errorf("%w: %v", ErrUnreachable, lastErr)
}

// Accept wraps a server-side *websocket.Conn obtained from an
// websocket.Upgrader.Upgrade call.
func Accept(ws *websocket.Conn, callbacks Callbacks) *Conn {
	return newConn(ws, callbacks)
}

// Send enqueues one logical message for delivery, JSON-encoding it first.
// It fails with ErrClosed if the channel is not open.
func (c *Conn) Send(msg interface{}) error {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return ErrClosed
	}
	c.mu.Unlock()

	raw, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("marshalling message: %w", err)
	}

	select {
	case c.sendCh <- raw:
		return nil
	case <-c.done:
		return ErrClosed
	}
}

// Close shuts the connection down and invokes OnClose exactly once.
func (c *Conn) Close() error {
	c.closeOnce.Do(func() {
		c.mu.Lock()
		c.closed = true
		c.mu.Unlock()

		close(c.done)
		c.closeErr = c.ws.Close()

		if c.callbacks.OnClose != nil {
			c.callbacks.OnClose(c)
		}
	})
	return c.closeErr
}

func (c *Conn) readLoop() {
	defer c.Close()
	for {
		_, raw, err := c.ws.ReadMessage()
		if err != nil {
			return
		}
		if c.callbacks.OnMessage != nil {
			c.callbacks.OnMessage(c, raw)
		}
	}
}

func (c *Conn) writeLoop() {
	for {
		select {
		case <-c.done:
			return
		case raw := <-c.sendCh:
			if err := c.ws.WriteMessage(websocket.TextMessage, raw); err != nil {
				c.Close()
				return
			}
		}
	}
}
