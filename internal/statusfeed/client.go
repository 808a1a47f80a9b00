package statusfeed

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/coder/websocket"
	"github.com/pkg/errors"
	"github.com/rs/zerolog"
)

type State string

const (
	StateDisconnected State = "disconnected"
	StateConnecting   State = "connecting"
	StateConnected    State = "connected"
)

// Client consumes the status feed with an explicit reconnect state machine:
// Disconnected -> Connecting -> Connected -> Disconnected, looping. After an
// unexpected closure exactly one reconnect attempt is scheduled on a single
// timer handle, after a fixed delay, indefinitely and without backoff.
type Client struct {
	url    string
	delay  time.Duration
	logger zerolog.Logger

	mu        sync.Mutex
	state     State
	conn      *websocket.Conn
	lastErr   error
	reconnect *time.Timer
	closed    bool
	gen       int

	frames chan Frame
}

func NewClient(url string, reconnectDelay time.Duration, logger zerolog.Logger) *Client {
	if reconnectDelay <= 0 {
		reconnectDelay = 5 * time.Second
	}
	return &Client{
		url:    url,
		delay:  reconnectDelay,
		logger: logger.With().Str("component", "statusfeed_client").Logger(),
		state:  StateDisconnected,
		frames: make(chan Frame, 16),
	}
}

// Frames delivers decoded feed frames. Malformed inbound frames are dropped
// silently and never appear here.
func (c *Client) Frames() <-chan Frame {
	return c.frames
}

func (c *Client) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

func (c *Client) IsConnected() bool {
	return c.State() == StateConnected
}

// LastErr reports the most recent connection error; connection failures are
// observable here, they are never raised as panics.
func (c *Client) LastErr() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.lastErr
}

// Connect dials the feed. Any live socket is closed first, so at most one
// socket is live at a time; a pending reconnect timer is cancelled.
func (c *Client) Connect(ctx context.Context) error {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return errors.New("client is closed")
	}
	c.stopReconnectLocked()
	c.closeConnLocked()
	c.state = StateConnecting
	c.gen++
	gen := c.gen
	c.mu.Unlock()

	conn, _, err := websocket.Dial(ctx, c.url, nil)

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed || gen != c.gen {
		if conn != nil {
			conn.CloseNow() //nolint:errcheck
		}
		return nil
	}
	if err != nil {
		c.lastErr = err
		c.state = StateDisconnected
		c.scheduleReconnectLocked()
		c.logger.Warn().Err(err).Msg("feed connect failed")
		return err
	}

	c.conn = conn
	c.state = StateConnected
	c.lastErr = nil
	go c.readLoop(conn, gen)
	return nil
}

// Close shuts the client down: the socket is closed and any pending
// reconnect timer is cleared.
func (c *Client) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.closed = true
	c.gen++
	c.stopReconnectLocked()
	c.closeConnLocked()
	c.state = StateDisconnected
}

func (c *Client) readLoop(conn *websocket.Conn, gen int) {
	for {
		_, data, err := conn.Read(context.Background())
		if err != nil {
			c.onDisconnect(gen, err)
			return
		}
		var frame Frame
		if err := json.Unmarshal(data, &frame); err != nil {
			// parse failure: drop the message
			continue
		}
		select {
		case c.frames <- frame:
		default:
		}
	}
}

func (c *Client) onDisconnect(gen int, err error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed || gen != c.gen {
		return
	}
	c.conn = nil
	c.state = StateDisconnected
	c.lastErr = err
	c.scheduleReconnectLocked()
	c.logger.Warn().Err(err).Dur("retry_in", c.delay).Msg("feed connection lost")
}

// scheduleReconnectLocked arms the single reconnect timer; a no-op when an
// attempt is already pending.
func (c *Client) scheduleReconnectLocked() {
	if c.reconnect != nil || c.closed {
		return
	}
	c.reconnect = time.AfterFunc(c.delay, func() {
		c.mu.Lock()
		c.reconnect = nil
		closed := c.closed
		c.mu.Unlock()
		if closed {
			return
		}
		c.Connect(context.Background()) //nolint:errcheck
	})
}

func (c *Client) stopReconnectLocked() {
	if c.reconnect != nil {
		c.reconnect.Stop()
		c.reconnect = nil
	}
}

func (c *Client) closeConnLocked() {
	if c.conn != nil {
		c.conn.Close(websocket.StatusNormalClosure, "client closing") //nolint:errcheck
		c.conn = nil
	}
}
