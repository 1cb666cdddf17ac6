package feed

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sync"

	"ofi-stream-go/gateway"
)

var errConnClosed = errors.New("use of closed connection")

// fakeConn replays scripted messages. When drop is set the read after the
// last message fails with io.EOF; otherwise it blocks until Close.
type fakeConn struct {
	msgs   chan []byte
	closed chan struct{}
	once   sync.Once

	mu     sync.Mutex
	writes []any
}

func newFakeConn(drop bool, msgs ...string) *fakeConn {
	c := &fakeConn{
		msgs:   make(chan []byte, len(msgs)),
		closed: make(chan struct{}),
	}
	for _, m := range msgs {
		c.msgs <- []byte(m)
	}
	if drop {
		close(c.msgs)
	}
	return c
}

func (c *fakeConn) ReadMessage() ([]byte, error) {
	select {
	case <-c.closed:
		return nil, errConnClosed
	default:
	}
	select {
	case m, ok := <-c.msgs:
		if !ok {
			return nil, io.EOF
		}
		return m, nil
	case <-c.closed:
		return nil, errConnClosed
	}
}

func (c *fakeConn) WriteJSON(v any) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.writes = append(c.writes, v)
	return nil
}

func (c *fakeConn) Close() error {
	c.once.Do(func() { close(c.closed) })
	return nil
}

func (c *fakeConn) Writes() []any {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]any(nil), c.writes...)
}

// fakeDialer hands out scripted connections in order; once exhausted every
// dial fails.
type fakeDialer struct {
	mu    sync.Mutex
	conns []*fakeConn
	dials int
}

func (d *fakeDialer) Dial(ctx context.Context, uri string) (gateway.Conn, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.dials++
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if len(d.conns) == 0 {
		return nil, fmt.Errorf("connection refused")
	}
	c := d.conns[0]
	d.conns = d.conns[1:]
	return c, nil
}

func (d *fakeDialer) Dials() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.dials
}

func delta(channel string, bids, asks string) string {
	return fmt.Sprintf(`{"topic":%q,"type":"delta","ts":1700000000000,"data":{"b":%s,"a":%s}}`, channel, bids, asks)
}
