package feed

import (
	"time"

	"github.com/google/uuid"

	"ofi-stream-go/gateway"
	"ofi-stream-go/market"
	"ofi-stream-go/metrics"
)

// ImbalanceLevels is the number of top levels used for the auxiliary depth imbalance.
const ImbalanceLevels = 5

// SessionState is the per-connection state machine.
type SessionState int

const (
	AwaitingFirstUpdate SessionState = iota
	Streaming
)

func (s SessionState) String() string {
	if s == Streaming {
		return "streaming"
	}
	return "awaiting_first_update"
}

// Session owns the book and smoothing window of one connection.
// It is not safe for concurrent use; one receive loop drives it.
type Session struct {
	ID      string
	Channel string
	// Now stamps events whose message carries no ts.
	Now func() time.Time

	state    SessionState
	book     market.BookState
	smoother *market.Smoother
}

// NewSession starts in AwaitingFirstUpdate with an empty book and window.
func NewSession(channel string, window int) *Session {
	return &Session{
		ID:       uuid.NewString(),
		Channel:  channel,
		Now:      time.Now,
		state:    AwaitingFirstUpdate,
		book:     market.NewBookState(channel),
		smoother: market.NewSmoother(window),
	}
}

func (s *Session) State() SessionState { return s.state }

// Book returns the current baseline.
func (s *Session) Book() market.BookState { return s.book }

// Handle consumes one raw inbound message.
//
// ok is true only when a SignalEvent was produced. Non-delta or foreign-topic
// messages return ok=false with a nil error. Errors wrap
// gateway.ErrMalformedMessage or gateway.ErrSubscriptionRejected.
func (s *Session) Handle(raw []byte) (market.SignalEvent, bool, error) {
	env, err := gateway.DecodeEnvelope(raw)
	if err != nil {
		return market.SignalEvent{}, false, err
	}
	if !env.IsDelta(s.Channel) {
		metrics.IgnoredMessages.WithLabelValues(s.Channel).Inc()
		return market.SignalEvent{}, false, nil
	}
	bids, asks, err := gateway.ParseDelta(env)
	if err != nil {
		return market.SignalEvent{}, false, err
	}

	ts := env.Timestamp()
	if ts.IsZero() {
		ts = s.Now()
	}
	next := s.book.ApplyDelta(bids, asks)
	next.UpdatedAt = ts

	if s.state == AwaitingFirstUpdate {
		// 首个增量只建立基线
		s.book = next
		s.state = Streaming
		return market.SignalEvent{}, false, nil
	}

	rawOFI := market.ComputeOFI(s.book, next)
	smoothed := s.smoother.Push(rawOFI)
	s.book = next

	return market.SignalEvent{
		Timestamp: ts,
		Channel:   s.Channel,
		RawOFI:    rawOFI,
		Smoothed:  smoothed,
		Window:    s.smoother.Capacity(),
		Mid:       next.Mid(),
		Imbalance: market.TopImbalance(next, ImbalanceLevels),
		Seq:       next.Seq,
	}, true, nil
}
