package market

import (
	"errors"
	"fmt"
	"sync"

	"go.uber.org/zap"

	"ofi-stream-go/metrics"
)

// ErrConsumer wraps any failure raised while delivering an event to one consumer.
var ErrConsumer = errors.New("signal consumer failed")

// Consumer 接收信号事件的唯一能力。
type Consumer interface {
	Consume(ev SignalEvent) error
}

// ConsumerFunc 函数适配器。
type ConsumerFunc func(ev SignalEvent) error

// Consume implements Consumer.
func (f ConsumerFunc) Consume(ev SignalEvent) error { return f(ev) }

type registration struct {
	id       int
	name     string
	consumer Consumer
}

// SignalBus 同步、按注册顺序分发事件，单个消费者失败不影响其余消费者。
// 多个 Session 并发 Publish 时串行化，避免有状态消费者收到交错的数据。
type SignalBus struct {
	mu        sync.RWMutex
	publishMu sync.Mutex
	nextID    int
	consumers []registration
	logger    *zap.Logger
}

// NewSignalBus logger 可为 nil。
func NewSignalBus(logger *zap.Logger) *SignalBus {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &SignalBus{logger: logger.With(zap.String("component", "signal_bus"))}
}

// Register 注册消费者，返回用于注销的 id。
func (b *SignalBus) Register(name string, c Consumer) int {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.nextID++
	b.consumers = append(b.consumers, registration{id: b.nextID, name: name, consumer: c})
	return b.nextID
}

// OnSignal registers a callback consumer.
func (b *SignalBus) OnSignal(name string, fn func(SignalEvent) error) int {
	return b.Register(name, ConsumerFunc(fn))
}

// Unregister 注销；未知 id 返回 false。
func (b *SignalBus) Unregister(id int) bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	for i, r := range b.consumers {
		if r.id == id {
			b.consumers = append(b.consumers[:i:i], b.consumers[i+1:]...)
			return true
		}
	}
	return false
}

// Len 当前消费者数量。
func (b *SignalBus) Len() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.consumers)
}

// Publish 将事件依次交给每个消费者；返回本次失败的消费者数量。
func (b *SignalBus) Publish(ev SignalEvent) int {
	b.publishMu.Lock()
	defer b.publishMu.Unlock()

	b.mu.RLock()
	snapshot := make([]registration, len(b.consumers))
	copy(snapshot, b.consumers)
	b.mu.RUnlock()

	failed := 0
	for _, r := range snapshot {
		if err := deliver(r, ev); err != nil {
			failed++
			metrics.ConsumerFailures.WithLabelValues(r.name).Inc()
			b.logger.Warn("consumer failed, skipped for this event",
				zap.String("consumer", r.name),
				zap.String("channel", ev.Channel),
				zap.Error(err))
		}
	}
	return failed
}

func deliver(r registration, ev SignalEvent) (err error) {
	defer func() {
		if p := recover(); p != nil {
			err = fmt.Errorf("%w: %s panicked: %v", ErrConsumer, r.name, p)
		}
	}()
	if err := r.consumer.Consume(ev); err != nil {
		return fmt.Errorf("%w: %s: %w", ErrConsumer, r.name, err)
	}
	return nil
}
