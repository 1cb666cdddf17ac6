package gateway

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
)

func TestWSDialerSubscribeAndPing(t *testing.T) {
	upgrader := websocket.Upgrader{}
	received := make(chan map[string]any, 4)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		defer conn.Close()
		for {
			var msg map[string]any
			if err := conn.ReadJSON(&msg); err != nil {
				return
			}
			received <- msg
			if msg["op"] == "subscribe" {
				_ = conn.WriteMessage(websocket.TextMessage,
					[]byte(`{"topic":"orderbook.1.ETHUSDT","type":"delta","data":{"b":[],"a":[]}}`))
			}
		}
	}))
	defer srv.Close()

	d := &WSDialer{PingInterval: 20 * time.Millisecond, ReadTimeout: time.Second}
	conn, err := d.Dial(context.Background(), "ws"+strings.TrimPrefix(srv.URL, "http"))
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer conn.Close()

	if err := conn.WriteJSON(NewSubscribeRequest("orderbook.1.ETHUSDT")); err != nil {
		t.Fatalf("subscribe: %v", err)
	}
	raw, err := conn.ReadMessage()
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	if !strings.Contains(string(raw), `"type":"delta"`) {
		t.Fatalf("unexpected payload %s", raw)
	}

	var sawSubscribe, sawPing bool
	deadline := time.After(2 * time.Second)
	for !(sawSubscribe && sawPing) {
		select {
		case msg := <-received:
			switch msg["op"] {
			case "subscribe":
				sawSubscribe = true
			case "ping":
				sawPing = true
			}
		case <-deadline:
			t.Fatalf("subscribe=%v ping=%v", sawSubscribe, sawPing)
		}
	}
}

func TestWSDialerCloseUnblocksRead(t *testing.T) {
	upgrader := websocket.Upgrader{}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		defer conn.Close()
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}))
	defer srv.Close()

	d := &WSDialer{PingInterval: time.Hour, ReadTimeout: time.Minute}
	conn, err := d.Dial(context.Background(), "ws"+strings.TrimPrefix(srv.URL, "http"))
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	done := make(chan error, 1)
	go func() {
		_, err := conn.ReadMessage()
		done <- err
	}()
	time.Sleep(20 * time.Millisecond)
	_ = conn.Close()
	_ = conn.Close()
	select {
	case err := <-done:
		if err == nil {
			t.Fatalf("expected read error after close")
		}
	case <-time.After(2 * time.Second):
		t.Fatalf("read not interrupted by close")
	}
}

func TestWSDialerDialFailure(t *testing.T) {
	d := &WSDialer{}
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	if _, err := d.Dial(ctx, "ws://127.0.0.1:1/none"); err == nil {
		t.Fatalf("expected dial error")
	}
}
