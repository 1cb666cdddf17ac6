package feed

import (
	"errors"
	"fmt"
	"sync/atomic"

	"ofi-stream-go/gateway"
	"ofi-stream-go/metrics"
)

// ErrTransport dial/write/read failures, read timeouts and rejected subscriptions.
// Always recovered by reconnecting with a fresh session.
var ErrTransport = errors.New("transport failure")

// State of one subscription as seen by its supervisor.
type State int32

const (
	Disconnected State = iota
	Connecting
	Subscribed
	Degraded
)

func (s State) String() string {
	switch s {
	case Disconnected:
		return "disconnected"
	case Connecting:
		return "connecting"
	case Subscribed:
		return "subscribed"
	case Degraded:
		return "degraded"
	default:
		return fmt.Sprintf("state(%d)", int32(s))
	}
}

// Subscription identifies one feed endpoint + channel pair and tracks its state.
type Subscription struct {
	URI     string
	Symbol  string
	Depth   int
	Channel string

	state atomic.Int32
}

// NewSubscription derives the channel name from symbol and depth.
func NewSubscription(uri, symbol string, depth int) (*Subscription, error) {
	if uri == "" {
		return nil, fmt.Errorf("feed uri required")
	}
	channel, err := gateway.ChannelName(symbol, depth)
	if err != nil {
		return nil, err
	}
	return &Subscription{
		URI:     uri,
		Symbol:  gateway.NormalizeSymbol(symbol),
		Depth:   depth,
		Channel: channel,
	}, nil
}

func (s *Subscription) State() State {
	return State(s.state.Load())
}

func (s *Subscription) setState(st State) {
	s.state.Store(int32(st))
	metrics.SubscriptionState.WithLabelValues(s.Channel).Set(float64(st))
}
