package usecase

import (
	"context"
	"errors"
	"io"
	"sync"

	"github.com/prometheus/client_golang/prometheus"

	"arbwatch/internal/domain/models"
	drepo "arbwatch/internal/domain/repository"
	"arbwatch/pkg/metrics"
)

func newMetrics() *metrics.Recorder { return metrics.New(prometheus.NewRegistry()) }

// scriptConn replays msgs then fails with io.EOF, or blocks until ctx ends when hold is set.
type scriptConn struct {
	mu     sync.Mutex
	msgs   [][]byte
	sent   [][]byte
	hold   bool
	closed bool
}

func (c *scriptConn) Send(_ context.Context, msg []byte) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.sent = append(c.sent, msg)
	return nil
}

func (c *scriptConn) Receive(ctx context.Context) ([]byte, error) {
	c.mu.Lock()
	if len(c.msgs) > 0 {
		m := c.msgs[0]
		c.msgs = c.msgs[1:]
		c.mu.Unlock()
		return m, nil
	}
	hold := c.hold
	c.mu.Unlock()
	if hold {
		<-ctx.Done()
		return nil, ctx.Err()
	}
	return nil, io.EOF
}

func (c *scriptConn) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.closed = true
	return nil
}

type fakeDialer struct {
	mu    sync.Mutex
	conns []*scriptConn
	err   error
	dials int
}

func (d *fakeDialer) Dial(_ context.Context, _ models.Venue) (drepo.Conn, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.dials++
	if d.err != nil {
		return nil, d.err
	}
	if len(d.conns) == 0 {
		return nil, errors.New("no more connections")
	}
	c := d.conns[0]
	d.conns = d.conns[1:]
	return c, nil
}

type recordingEmitter struct {
	events []models.MonitorEvent
	full   bool
}

func (e *recordingEmitter) Publish(ev models.MonitorEvent) bool {
	if e.full {
		return false
	}
	e.events = append(e.events, ev)
	return true
}

func (e *recordingEmitter) count(kind models.EventKind) int {
	n := 0
	for _, ev := range e.events {
		if ev.Kind == kind {
			n++
		}
	}
	return n
}
