package feed

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"ofi-stream-go/gateway"
	"ofi-stream-go/market"
)

type harness struct {
	sup    *Supervisor
	dialer *fakeDialer
	events chan market.SignalEvent
	cancel context.CancelFunc
	done   chan error
}

func startSupervisor(t *testing.T, backoff time.Duration, conns ...*fakeConn) *harness {
	t.Helper()
	sub, err := NewSubscription("ws://feed.test", "ETHUSDT", 1)
	if err != nil {
		t.Fatalf("subscription: %v", err)
	}
	h := &harness{
		dialer: &fakeDialer{conns: conns},
		events: make(chan market.SignalEvent, 16),
		done:   make(chan error, 1),
	}
	bus := market.NewSignalBus(nil)
	bus.OnSignal("collect", func(ev market.SignalEvent) error {
		h.events <- ev
		return nil
	})
	h.sup = NewSupervisor(sub, h.dialer, bus, 3, backoff, nil)
	ctx, cancel := context.WithCancel(context.Background())
	h.cancel = cancel
	go func() { h.done <- h.sup.Run(ctx) }()
	t.Cleanup(cancel)
	return h
}

func (h *harness) next(t *testing.T) market.SignalEvent {
	t.Helper()
	select {
	case ev := <-h.events:
		return ev
	case <-time.After(2 * time.Second):
		t.Fatalf("timed out waiting for event")
	}
	return market.SignalEvent{}
}

func (h *harness) stop(t *testing.T) {
	t.Helper()
	h.cancel()
	select {
	case err := <-h.done:
		if !errors.Is(err, context.Canceled) {
			t.Fatalf("expected context.Canceled, got %v", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatalf("supervisor did not stop")
	}
	if h.sup.State() != Disconnected {
		t.Fatalf("expected disconnected after stop, got %s", h.sup.State())
	}
}

func (h *harness) assertNoEvent(t *testing.T) {
	t.Helper()
	select {
	case ev := <-h.events:
		t.Fatalf("unexpected event %+v", ev)
	default:
	}
}

func TestSupervisorReconnectResetsBaseline(t *testing.T) {
	first := newFakeConn(true,
		delta(testChannel, `[["100","1"]]`, `[]`),
		delta(testChannel, `[["100","2"]]`, `[]`),
	)
	second := newFakeConn(false,
		delta(testChannel, `[["100","5"]]`, `[]`),
		delta(testChannel, `[["100","9"]]`, `[]`),
	)
	h := startSupervisor(t, time.Millisecond, first, second)

	ev := h.next(t)
	if ev.RawOFI != 1 || ev.Smoothed != 1 {
		t.Fatalf("first connection: %+v", ev)
	}
	// Against the stale book the 5 would emit +3; a fresh session takes it as baseline.
	ev = h.next(t)
	if ev.RawOFI != 4 {
		t.Fatalf("expected +4 against the new baseline, got %+v", ev)
	}
	if ev.Smoothed != 4 {
		t.Fatalf("smoothing window carried over a reconnect: %+v", ev)
	}
	if ev.Seq != 2 {
		t.Fatalf("expected seq 2 on fresh book, got %d", ev.Seq)
	}
	h.assertNoEvent(t)
	if h.sup.State() != Subscribed {
		t.Fatalf("expected subscribed, got %s", h.sup.State())
	}
	h.stop(t)
	if h.dialer.Dials() != 2 {
		t.Fatalf("expected 2 dials, got %d", h.dialer.Dials())
	}
}

func TestSupervisorSendsOneSubscribePerConnection(t *testing.T) {
	conns := []*fakeConn{
		newFakeConn(true),
		newFakeConn(true, delta(testChannel, `[["100","1"]]`, `[]`)),
		newFakeConn(false,
			delta(testChannel, `[["100","1"]]`, `[]`),
			delta(testChannel, `[["100","2"]]`, `[]`),
		),
	}
	h := startSupervisor(t, time.Millisecond, conns...)
	h.next(t)
	h.stop(t)

	for i, c := range conns {
		writes := c.Writes()
		if len(writes) != 1 {
			t.Fatalf("conn %d: expected exactly one write, got %d", i, len(writes))
		}
		req, ok := writes[0].(gateway.SubscribeRequest)
		if !ok || req.Op != "subscribe" || len(req.Args) != 1 || req.Args[0] != testChannel {
			t.Fatalf("conn %d: unexpected subscribe %#v", i, writes[0])
		}
	}
}

func TestSupervisorDropsMalformedWithoutReconnect(t *testing.T) {
	conn := newFakeConn(false,
		`not json`,
		delta(testChannel, `[["100","1"]]`, `[]`),
		delta(testChannel, `[["100","NaN"]]`, `[]`),
		`{"topic":"orderbook.1.ETHUSDT","type":"snapshot","data":{"b":[],"a":[]}}`,
		delta("orderbook.1.BTCUSDT", `[["100","9"]]`, `[]`),
		delta(testChannel, `[["100","4"]]`, `[]`),
	)
	h := startSupervisor(t, time.Millisecond, conn)
	ev := h.next(t)
	if ev.RawOFI != 3 {
		t.Fatalf("expected +3, got %+v", ev)
	}
	h.stop(t)
	if h.dialer.Dials() != 1 {
		t.Fatalf("malformed message caused reconnect: %d dials", h.dialer.Dials())
	}
}

func TestSupervisorRejectedSubscriptionReconnects(t *testing.T) {
	rejected := newFakeConn(false, `{"success":false,"ret_msg":"invalid topic","op":"subscribe"}`)
	good := newFakeConn(false,
		delta(testChannel, `[["100","1"]]`, `[]`),
		delta(testChannel, `[]`, `[["101","1"]]`),
	)
	h := startSupervisor(t, time.Millisecond, rejected, good)
	ev := h.next(t)
	if ev.RawOFI != -1 {
		t.Fatalf("expected -1, got %+v", ev)
	}
	h.stop(t)
	if h.dialer.Dials() != 2 {
		t.Fatalf("expected reconnect after rejection, got %d dials", h.dialer.Dials())
	}
	select {
	case <-rejected.closed:
	default:
		t.Fatalf("rejected connection was not closed")
	}
}

func TestSupervisorCancelInterruptsRead(t *testing.T) {
	conn := newFakeConn(false)
	h := startSupervisor(t, time.Hour, conn)
	waitFor(t, func() bool { return len(conn.Writes()) == 1 })
	if h.sup.State() != Connecting {
		t.Fatalf("expected connecting before first message, got %s", h.sup.State())
	}
	h.stop(t)
	select {
	case <-conn.closed:
	default:
		t.Fatalf("connection left open after cancel")
	}
}

func TestSupervisorCancelInterruptsBackoff(t *testing.T) {
	h := startSupervisor(t, time.Hour)
	waitFor(t, func() bool { return h.sup.State() == Degraded })
	h.stop(t)
	if h.dialer.Dials() != 1 {
		t.Fatalf("expected a single dial during backoff, got %d", h.dialer.Dials())
	}
}

func TestSupervisorRetriesIndefinitely(t *testing.T) {
	h := startSupervisor(t, time.Millisecond)
	waitFor(t, func() bool { return h.dialer.Dials() >= 20 })
	h.stop(t)
}

func TestRunAllStopsEverySupervisor(t *testing.T) {
	var sups []*Supervisor
	var conns []*fakeConn
	for _, sym := range []string{"ETHUSDT", "BTCUSDT"} {
		sub, err := NewSubscription("ws://feed.test", sym, 50)
		if err != nil {
			t.Fatalf("subscription: %v", err)
		}
		c := newFakeConn(false)
		conns = append(conns, c)
		sups = append(sups, NewSupervisor(sub, &fakeDialer{conns: []*fakeConn{c}}, nil, 3, time.Hour, nil))
	}

	ctx, cancel := context.WithCancel(context.Background())
	var wg sync.WaitGroup
	wg.Add(1)
	var err error
	go func() {
		defer wg.Done()
		err = RunAll(ctx, sups...)
	}()
	for _, c := range conns {
		waitFor(t, func() bool { return len(c.Writes()) == 1 })
	}
	cancel()
	wg.Wait()
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
	for _, s := range sups {
		if s.State() != Disconnected {
			t.Fatalf("%s still %s", s.Subscription().Channel, s.State())
		}
	}
}

func waitFor(t *testing.T, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for !cond() {
		if time.Now().After(deadline) {
			t.Fatalf("condition not met in time")
		}
		time.Sleep(time.Millisecond)
	}
}

func TestSupervisorReportsStateChanges(t *testing.T) {
	sub, err := NewSubscription("ws://feed.test", "ETHUSDT", 1)
	if err != nil {
		t.Fatalf("subscription: %v", err)
	}
	conn := newFakeConn(true,
		delta(testChannel, `[["100","1"]]`, `[]`),
		delta(testChannel, `[["100","2"]]`, `[]`),
	)
	type change struct {
		from, to State
		err      error
	}
	changes := make(chan change, 64)
	sup := NewSupervisor(sub, &fakeDialer{conns: []*fakeConn{conn}}, nil, 3, time.Hour, nil)
	sup.OnStateChange = func(from, to State, err error) {
		select {
		case changes <- change{from, to, err}:
		default:
		}
	}
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- sup.Run(ctx) }()

	want := []State{Connecting, Subscribed, Degraded}
	for _, st := range want {
		select {
		case c := <-changes:
			if c.to != st {
				t.Fatalf("expected transition to %s, got %s -> %s", st, c.from, c.to)
			}
			if st == Degraded && !errors.Is(c.err, ErrTransport) {
				t.Fatalf("degraded without transport error: %v", c.err)
			}
		case <-time.After(2 * time.Second):
			t.Fatalf("timed out waiting for %s", st)
		}
	}
	cancel()
	<-done
	c := <-changes
	if c.from != Degraded || c.to != Disconnected {
		t.Fatalf("expected degraded -> disconnected, got %s -> %s", c.from, c.to)
	}
}
