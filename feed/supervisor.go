package feed

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"ofi-stream-go/gateway"
	"ofi-stream-go/market"
	"ofi-stream-go/metrics"
)

// DefaultBackoff 固定重连间隔，不增长、不抖动、不限次数。
const DefaultBackoff = 3 * time.Second

// Supervisor 负责单个订阅的连接生命周期：连接、订阅、读循环、失败后固定间隔重连。
type Supervisor struct {
	sub     *Subscription
	dialer  gateway.Dialer
	bus     *market.SignalBus
	logger  *zap.Logger
	window  int
	backoff time.Duration

	// OnRaw 收到的每条原始消息都会先交给它（raw 模式），可为空。
	OnRaw func([]byte)
	// Now 传给每个新会话。
	Now func() time.Time
	// OnStateChange 状态实际变化时调用；进入 Degraded 时 err 为断线原因。
	OnStateChange func(from, to State, err error)
}

// NewSupervisor backoff<=0 时使用 DefaultBackoff，window<=0 时使用默认窗口。
func NewSupervisor(sub *Subscription, dialer gateway.Dialer, bus *market.SignalBus, window int, backoff time.Duration, logger *zap.Logger) *Supervisor {
	if backoff <= 0 {
		backoff = DefaultBackoff
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Supervisor{
		sub:     sub,
		dialer:  dialer,
		bus:     bus,
		logger:  logger.With(zap.String("channel", sub.Channel)),
		window:  window,
		backoff: backoff,
		Now:     time.Now,
	}
}

func (s *Supervisor) Subscription() *Subscription { return s.sub }

func (s *Supervisor) State() State { return s.sub.State() }

// Run 阻塞直到 ctx 取消，返回 ctx.Err()；其它错误都通过重连恢复。
func (s *Supervisor) Run(ctx context.Context) error {
	defer s.transition(Disconnected, nil)
	for {
		if err := ctx.Err(); err != nil {
			return err
		}
		err := s.runOnce(ctx)
		if ctx.Err() != nil {
			return ctx.Err()
		}

		s.transition(Degraded, err)
		metrics.Reconnects.WithLabelValues(s.sub.Channel).Inc()
		if errors.Is(err, gateway.ErrSubscriptionRejected) {
			s.logger.Error("subscription rejected, reconnecting", zap.Error(err), zap.Duration("backoff", s.backoff))
		} else {
			s.logger.Warn("feed disconnected, reconnecting", zap.Error(err), zap.Duration("backoff", s.backoff))
		}

		timer := time.NewTimer(s.backoff)
		select {
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()
		case <-timer.C:
		}
	}
}

func (s *Supervisor) transition(to State, err error) {
	from := s.sub.State()
	s.sub.setState(to)
	if from != to && s.OnStateChange != nil {
		s.OnStateChange(from, to, err)
	}
}

// runOnce 一次连接尝试；返回时连接已关闭。
func (s *Supervisor) runOnce(ctx context.Context) error {
	s.transition(Connecting, nil)
	conn, err := s.dialer.Dial(ctx, s.sub.URI)
	if err != nil {
		return fmt.Errorf("%w: dial: %w", ErrTransport, err)
	}
	defer conn.Close()

	// 取消时关闭连接以打断阻塞的读
	connCtx, cancel := context.WithCancel(ctx)
	defer cancel()
	go func() {
		<-connCtx.Done()
		_ = conn.Close()
	}()

	if err := conn.WriteJSON(gateway.NewSubscribeRequest(s.sub.Channel)); err != nil {
		return fmt.Errorf("%w: subscribe: %w", ErrTransport, err)
	}

	sess := NewSession(s.sub.Channel, s.window)
	sess.Now = s.Now
	log := s.logger.With(zap.String("session", sess.ID))
	log.Info("subscribe sent", zap.String("uri", s.sub.URI))

	for {
		raw, err := conn.ReadMessage()
		if err != nil {
			return fmt.Errorf("%w: read: %w", ErrTransport, err)
		}
		if s.OnRaw != nil {
			s.OnRaw(raw)
		}

		ev, ok, err := sess.Handle(raw)
		if err != nil {
			if errors.Is(err, gateway.ErrSubscriptionRejected) {
				return fmt.Errorf("%w: %w", ErrTransport, err)
			}
			metrics.MalformedMessages.WithLabelValues(s.sub.Channel).Inc()
			log.Warn("dropping malformed message", zap.Error(err))
			continue
		}
		if sess.State() == Streaming && s.sub.State() != Subscribed {
			s.transition(Subscribed, nil)
			log.Info("subscribed, baseline recorded")
		}
		if !ok {
			continue
		}
		metrics.ObserveSignal(ev.Channel, ev.RawOFI, ev.Smoothed)
		if s.bus != nil {
			s.bus.Publish(ev)
		}
	}
}
