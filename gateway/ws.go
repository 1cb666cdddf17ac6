package gateway

import (
	"context"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

const (
	DefaultPingInterval = 20 * time.Second
	DefaultReadTimeout  = 30 * time.Second
	writeWait           = 10 * time.Second
)

// Conn 一条已建立的行情连接。
type Conn interface {
	ReadMessage() ([]byte, error)
	WriteJSON(v any) error
	Close() error
}

// Dialer 建立行情连接；测试中可替换为内存实现。
type Dialer interface {
	Dial(ctx context.Context, uri string) (Conn, error)
}

// WSDialer 基于 gorilla/websocket 的 Dialer，连接建立后自动发送应用层 ping。
type WSDialer struct {
	PingInterval time.Duration
	ReadTimeout  time.Duration
	Header       http.Header
	// OnPingError 心跳写失败时回调，可为空。
	OnPingError func(error)
}

func (d *WSDialer) Dial(ctx context.Context, uri string) (Conn, error) {
	dialer := websocket.Dialer{
		Proxy:            http.ProxyFromEnvironment,
		HandshakeTimeout: 10 * time.Second,
	}
	ws, resp, err := dialer.DialContext(ctx, uri, d.Header)
	if err != nil {
		if resp != nil {
			return nil, fmt.Errorf("dial %s: %w (status %d)", uri, err, resp.StatusCode)
		}
		return nil, fmt.Errorf("dial %s: %w", uri, err)
	}

	readTimeout := d.ReadTimeout
	if readTimeout <= 0 {
		readTimeout = DefaultReadTimeout
	}
	pingInterval := d.PingInterval
	if pingInterval <= 0 {
		pingInterval = DefaultPingInterval
	}

	c := &wsConn{
		conn:        ws,
		readTimeout: readTimeout,
		done:        make(chan struct{}),
	}
	ws.SetPongHandler(func(string) error {
		return ws.SetReadDeadline(time.Now().Add(readTimeout))
	})
	go c.pingLoop(pingInterval, d.OnPingError)
	return c, nil
}

type wsConn struct {
	conn        *websocket.Conn
	readTimeout time.Duration
	writeMu     sync.Mutex
	closeOnce   sync.Once
	done        chan struct{}
}

func (c *wsConn) ReadMessage() ([]byte, error) {
	if err := c.conn.SetReadDeadline(time.Now().Add(c.readTimeout)); err != nil {
		return nil, err
	}
	_, msg, err := c.conn.ReadMessage()
	return msg, err
}

func (c *wsConn) WriteJSON(v any) error {
	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
	return c.conn.WriteJSON(v)
}

func (c *wsConn) Close() error {
	var err error
	c.closeOnce.Do(func() {
		close(c.done)
		c.writeMu.Lock()
		_ = c.conn.WriteControl(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
			time.Now().Add(time.Second))
		c.writeMu.Unlock()
		err = c.conn.Close()
	})
	return err
}

// pingLoop 按固定间隔发送 {"op":"ping"}；写失败时关闭连接，让读循环退出并触发重连。
func (c *wsConn) pingLoop(interval time.Duration, onErr func(error)) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-c.done:
			return
		case <-ticker.C:
			if err := c.WriteJSON(PingRequest{Op: "ping"}); err != nil {
				if onErr != nil {
					onErr(err)
				}
				_ = c.Close()
				return
			}
		}
	}
}
