// Package feed streams live bar events from the upstream websocket source
// into the ingest ring. It owns authentication, subscription, heartbeats
// and reconnection; the chart loop never touches the socket.
package feed

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"
	"github.com/pquerna/otp/totp"

	"chartcore/internal/ringbuf"
)

const (
	heartbeatInterval = 10 * time.Second
	readTimeout       = 30 * time.Second
	writeTimeout      = 5 * time.Second
)

// Config holds feed connection settings.
type Config struct {
	URL        string
	APIKey     string
	ClientCode string
	// TOTPSecret is the base32 seed for the one-time auth code sent in the
	// handshake, empty disables the header.
	TOTPSecret string

	Symbol    string
	Timeframe int // seconds

	// Reconnect backoff. Delay doubles per attempt up to MaxDelay;
	// MaxAttempts <= 0 retries forever.
	InitialDelay time.Duration
	MaxDelay     time.Duration
	MaxAttempts  int
}

func (c Config) withDefaults() Config {
	if c.InitialDelay <= 0 {
		c.InitialDelay = time.Second
	}
	if c.MaxDelay <= 0 {
		c.MaxDelay = time.Minute
	}
	return c
}

// Client streams bar events into a ring buffer.
type Client struct {
	cfg  Config
	log  *slog.Logger
	ring *ringbuf.Ring

	dialer *websocket.Dialer

	lastEventUnixNano atomic.Int64

	// Hooks for metrics and health. All optional.
	OnConnect    func()
	OnDisconnect func()
	OnReconnect  func()
	OnOverflow   func()
}

// New creates a feed client that pushes into ring.
func New(cfg Config, ring *ringbuf.Ring, log *slog.Logger) *Client {
	return &Client{
		cfg:    cfg.withDefaults(),
		log:    log.With(slog.String("component", "feed")),
		ring:   ring,
		dialer: websocket.DefaultDialer,
	}
}

// LastEventAt returns the wall-clock time of the last decoded bar event,
// zero before the first one.
func (c *Client) LastEventAt() time.Time {
	ns := c.lastEventUnixNano.Load()
	if ns == 0 {
		return time.Time{}
	}
	return time.Unix(0, ns)
}

// Run connects and streams until ctx is cancelled, reconnecting with
// exponential backoff on failure. Returns nil on cancellation, or the last
// error once MaxAttempts is exhausted.
func (c *Client) Run(ctx context.Context) error {
	delay := c.cfg.InitialDelay
	attempts := 0
	for {
		err := c.runOnce(ctx)
		if ctx.Err() != nil {
			return nil
		}
		attempts++
		if c.cfg.MaxAttempts > 0 && attempts >= c.cfg.MaxAttempts {
			return fmt.Errorf("feed: giving up after %d attempts: %w", attempts, err)
		}
		c.log.Warn("feed disconnected, reconnecting",
			slog.Any("error", err),
			slog.Duration("delay", delay),
			slog.Int("attempt", attempts))
		if c.OnReconnect != nil {
			c.OnReconnect()
		}

		select {
		case <-ctx.Done():
			return nil
		case <-time.After(delay):
		}
		delay *= 2
		if delay > c.cfg.MaxDelay {
			delay = c.cfg.MaxDelay
		}
	}
}

// runOnce performs one connect-subscribe-read cycle.
func (c *Client) runOnce(ctx context.Context) error {
	conn, err := c.dial(ctx)
	if err != nil {
		return err
	}
	defer conn.Close()

	if c.OnConnect != nil {
		c.OnConnect()
	}
	defer func() {
		if c.OnDisconnect != nil {
			c.OnDisconnect()
		}
	}()

	if err := c.subscribe(conn); err != nil {
		return err
	}

	conn.SetReadDeadline(time.Now().Add(readTimeout))
	conn.SetPongHandler(func(string) error {
		conn.SetReadDeadline(time.Now().Add(readTimeout))
		return nil
	})

	// Heartbeat writer; closing the conn unblocks the read loop.
	hbCtx, stopHB := context.WithCancel(ctx)
	defer stopHB()
	go c.heartbeat(hbCtx, conn)

	for {
		_, raw, err := conn.ReadMessage()
		if err != nil {
			return fmt.Errorf("feed: read: %w", err)
		}
		conn.SetReadDeadline(time.Now().Add(readTimeout))

		ev, ok, err := decodeFrame(raw)
		if err != nil {
			c.log.Warn("dropping malformed frame", slog.Any("error", err))
			continue
		}
		if !ok {
			continue
		}

		c.lastEventUnixNano.Store(time.Now().UnixNano())
		if !c.ring.Push(ev) {
			c.log.Warn("ingest ring full, dropping bar event",
				slog.String("key", ev.Key()),
				slog.Int64("time", ev.Payload.Time))
			if c.OnOverflow != nil {
				c.OnOverflow()
			}
		}
	}
}

func (c *Client) dial(ctx context.Context) (*websocket.Conn, error) {
	header := http.Header{}
	if c.cfg.APIKey != "" {
		header.Set("x-api-key", c.cfg.APIKey)
	}
	if c.cfg.ClientCode != "" {
		header.Set("x-client-code", c.cfg.ClientCode)
	}
	if c.cfg.TOTPSecret != "" {
		code, err := totp.GenerateCode(c.cfg.TOTPSecret, time.Now())
		if err != nil {
			return nil, fmt.Errorf("feed: generate totp: %w", err)
		}
		header.Set("x-totp", code)
	}

	conn, resp, err := c.dialer.DialContext(ctx, c.cfg.URL, header)
	if err != nil {
		if resp != nil {
			return nil, fmt.Errorf("feed: dial %s: status %s: %w", c.cfg.URL, resp.Status, err)
		}
		return nil, fmt.Errorf("feed: dial %s: %w", c.cfg.URL, err)
	}
	c.log.Info("feed connected", slog.String("url", c.cfg.URL))
	return conn, nil
}

func (c *Client) subscribe(conn *websocket.Conn) error {
	sub := map[string]any{
		"action":    "subscribe",
		"symbol":    c.cfg.Symbol,
		"timeframe": c.cfg.Timeframe,
	}
	conn.SetWriteDeadline(time.Now().Add(writeTimeout))
	if err := conn.WriteJSON(sub); err != nil {
		return fmt.Errorf("feed: subscribe: %w", err)
	}
	c.log.Info("subscription sent",
		slog.String("symbol", c.cfg.Symbol),
		slog.Int("timeframe", c.cfg.Timeframe))
	return nil
}

func (c *Client) heartbeat(ctx context.Context, conn *websocket.Conn) {
	ticker := time.NewTicker(heartbeatInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			conn.SetWriteDeadline(time.Now().Add(writeTimeout))
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				conn.Close()
				return
			}
		}
	}
}
