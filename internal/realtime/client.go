package realtime

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"sync"
	"time"

	"github.com/coder/websocket"
)

// ErrNotConnected is returned by Publish while the channel is down. The
// caller's connectivity indicator is the user-visible signal; callers log
// and move on.
var ErrNotConnected = errors.New("realtime: not connected")

const (
	redialMin = time.Second
	redialMax = 30 * time.Second
)

// ClientConfig configures a participant's channel connection.
type ClientConfig struct {
	// BaseURL is the gateway origin, e.g. ws://localhost:8080 or
	// https://pos.example.com.
	BaseURL  string
	TenantID string
	// Token is the bearer access token; empty against a gateway running
	// without auth.
	Token  string
	Logger *slog.Logger
}

// Client is the participant side of the realtime channel. It dials the
// gateway, redials with backoff after a drop, and dispatches inbound
// frames to registered handlers. It implements cobrowse.Transport.
type Client struct {
	cfg    ClientConfig
	logger *slog.Logger

	mu         sync.Mutex
	conn       *websocket.Conn
	connected  bool
	closed     bool
	handlers   map[string]map[int]func(json.RawMessage)
	statusSubs map[int]func(bool)
	nextID     int

	cancel context.CancelFunc
	done   chan struct{}
}

// NewClient returns a connecting client. The connection is established in
// the background; OnStatus reports when the channel comes up.
func NewClient(cfg ClientConfig) *Client {
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	ctx, cancel := context.WithCancel(context.Background())
	c := &Client{
		cfg:        cfg,
		logger:     cfg.Logger,
		handlers:   make(map[string]map[int]func(json.RawMessage)),
		statusSubs: make(map[int]func(bool)),
		cancel:     cancel,
		done:       make(chan struct{}),
	}
	go c.run(ctx)
	return c
}

// Publish sends one envelope. It fails fast while disconnected; the
// transport gives no delivery guarantee either way.
func (c *Client) Publish(ctx context.Context, event string, payload any) error {
	raw, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("realtime: encode payload: %w", err)
	}
	data, err := json.Marshal(Envelope{Event: event, Payload: raw})
	if err != nil {
		return fmt.Errorf("realtime: encode envelope: %w", err)
	}

	c.mu.Lock()
	conn := c.conn
	c.mu.Unlock()
	if conn == nil {
		return ErrNotConnected
	}
	writeCtx, cancel := context.WithTimeout(ctx, writeTimeout)
	defer cancel()
	return conn.Write(writeCtx, websocket.MessageText, data)
}

// OnMessage registers a handler for an event kind. The returned function
// removes the handler.
func (c *Client) OnMessage(event string, handler func(payload json.RawMessage)) (remove func()) {
	c.mu.Lock()
	if c.handlers[event] == nil {
		c.handlers[event] = make(map[int]func(json.RawMessage))
	}
	id := c.nextID
	c.nextID++
	c.handlers[event][id] = handler
	c.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			c.mu.Lock()
			delete(c.handlers[event], id)
			c.mu.Unlock()
		})
	}
}

// OnStatus registers a connectivity callback, invoked immediately with the
// current status and again on every change.
func (c *Client) OnStatus(fn func(connected bool)) (remove func()) {
	c.mu.Lock()
	id := c.nextID
	c.nextID++
	c.statusSubs[id] = fn
	connected := c.connected
	c.mu.Unlock()

	fn(connected)

	var once sync.Once
	return func() {
		once.Do(func() {
			c.mu.Lock()
			delete(c.statusSubs, id)
			c.mu.Unlock()
		})
	}
}

// Close tears the connection down and stops redialing.
func (c *Client) Close() {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return
	}
	c.closed = true
	conn := c.conn
	c.conn = nil
	c.mu.Unlock()

	c.cancel()
	if conn != nil {
		conn.Close(websocket.StatusNormalClosure, "")
	}
	<-c.done
}

// run dials and reads until Close. Reconnects use doubling backoff capped
// at redialMax; there is no message replay after a reconnect.
func (c *Client) run(ctx context.Context) {
	defer close(c.done)
	backoff := redialMin
	for {
		if ctx.Err() != nil {
			return
		}
		conn, err := c.dial(ctx)
		if err != nil {
			c.logger.Warn("realtime: dial failed", "tenant_id", c.cfg.TenantID, "err", err)
			select {
			case <-ctx.Done():
				return
			case <-time.After(backoff):
			}
			if backoff *= 2; backoff > redialMax {
				backoff = redialMax
			}
			continue
		}
		backoff = redialMin
		c.setConnected(conn, true)
		c.readFrames(ctx, conn)
		c.setConnected(nil, false)
		conn.Close(websocket.StatusNormalClosure, "")
	}
}

func (c *Client) dial(ctx context.Context) (*websocket.Conn, error) {
	u := fmt.Sprintf("%s/realtime?tenant_id=%s", c.cfg.BaseURL, url.QueryEscape(c.cfg.TenantID))
	opts := &websocket.DialOptions{}
	if c.cfg.Token != "" {
		opts.HTTPHeader = http.Header{"Authorization": {"Bearer " + c.cfg.Token}}
	}
	dialCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	conn, _, err := websocket.Dial(dialCtx, u, opts)
	return conn, err
}

func (c *Client) readFrames(ctx context.Context, conn *websocket.Conn) {
	for {
		typ, data, err := conn.Read(ctx)
		if err != nil {
			return
		}
		if typ != websocket.MessageText {
			continue
		}
		var env Envelope
		if err := json.Unmarshal(data, &env); err != nil {
			c.logger.Warn("realtime: dropping malformed frame", "err", err)
			continue
		}
		c.dispatch(env)
	}
}

func (c *Client) dispatch(env Envelope) {
	c.mu.Lock()
	fns := make([]func(json.RawMessage), 0, len(c.handlers[env.Event]))
	for _, fn := range c.handlers[env.Event] {
		fns = append(fns, fn)
	}
	c.mu.Unlock()
	for _, fn := range fns {
		fn(env.Payload)
	}
}

func (c *Client) setConnected(conn *websocket.Conn, connected bool) {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return
	}
	c.conn = conn
	c.connected = connected
	fns := make([]func(bool), 0, len(c.statusSubs))
	for _, fn := range c.statusSubs {
		fns = append(fns, fn)
	}
	c.mu.Unlock()
	for _, fn := range fns {
		fn(connected)
	}
}
