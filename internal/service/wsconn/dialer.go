package wsconn

import (
	"context"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"arbwatch/internal/domain/models"
	drepo "arbwatch/internal/domain/repository"
)

// Endpoint describes how to reach one venue.
type Endpoint struct {
	URL              string
	UserAgent        string
	HandshakeTimeout time.Duration
	PingInterval     time.Duration
}

// Dialer implements the connection factory on top of gorilla/websocket.
// TLS negotiation and host verification are handled by the websocket dialer for wss URLs.
type Dialer struct {
	endpoints map[models.Venue]Endpoint
}

// New creates a Dialer for the given venues.
func New(endpoints map[models.Venue]Endpoint) *Dialer {
	return &Dialer{endpoints: endpoints}
}

// Dial connects to venue and starts the keepalive loop.
func (d *Dialer) Dial(ctx context.Context, venue models.Venue) (drepo.Conn, error) {
	ep, ok := d.endpoints[venue]
	if !ok {
		return nil, fmt.Errorf("%s: no endpoint configured", venue)
	}
	dialer := websocket.Dialer{
		Proxy:            http.ProxyFromEnvironment,
		HandshakeTimeout: ep.HandshakeTimeout,
	}
	header := http.Header{}
	if ep.UserAgent != "" {
		header.Set("User-Agent", ep.UserAgent)
	}
	ws, _, err := dialer.DialContext(ctx, ep.URL, header)
	if err != nil {
		return nil, fmt.Errorf("%s connect: %w", venue, err)
	}
	c := &Conn{ws: ws, venue: venue, done: make(chan struct{})}
	if ep.PingInterval > 0 {
		go c.pingLoop(ep.PingInterval)
	}
	return c, nil
}

// Conn is one websocket session. Writes are serialized; Receive must be called
// from a single goroutine.
type Conn struct {
	ws    *websocket.Conn
	venue models.Venue

	writeMu   sync.Mutex
	closeOnce sync.Once
	done      chan struct{}
}

// Send writes a text frame.
func (c *Conn) Send(ctx context.Context, msg []byte) error {
	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	if dl, ok := ctx.Deadline(); ok {
		_ = c.ws.SetWriteDeadline(dl)
		defer func() { _ = c.ws.SetWriteDeadline(time.Time{}) }()
	}
	if err := c.ws.WriteMessage(websocket.TextMessage, msg); err != nil {
		return fmt.Errorf("%s write: %w", c.venue, err)
	}
	return nil
}

// Receive returns the next text frame. Binary frames are skipped; control frames
// are handled by gorilla before they reach here. Cancelling ctx closes the connection.
func (c *Conn) Receive(ctx context.Context) ([]byte, error) {
	stop := context.AfterFunc(ctx, func() { _ = c.Close() })
	defer stop()
	for {
		typ, b, err := c.ws.ReadMessage()
		if err != nil {
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			return nil, fmt.Errorf("%s read: %w", c.venue, err)
		}
		if typ == websocket.TextMessage {
			return b, nil
		}
	}
}

// Close closes the connection; safe to call more than once.
func (c *Conn) Close() error {
	var err error
	c.closeOnce.Do(func() {
		close(c.done)
		err = c.ws.Close()
	})
	return err
}

func (c *Conn) pingLoop(interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-c.done:
			return
		case <-ticker.C:
			c.writeMu.Lock()
			err := c.ws.WriteControl(websocket.PingMessage, nil, time.Now().Add(interval))
			c.writeMu.Unlock()
			if err != nil {
				return
			}
		}
	}
}
