package sink

import (
	"context"
	"time"

	"github.com/segmentio/kafka-go"

	"ofi-stream-go/market"
)

const kafkaWriteTimeout = 5 * time.Second

type kafkaWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// Kafka writes events keyed by channel so one channel stays on one partition.
type Kafka struct {
	w kafkaWriter
}

func NewKafka(brokers []string, topic string) *Kafka {
	return NewKafkaWithWriter(&kafka.Writer{
		Addr:         kafka.TCP(brokers...),
		Topic:        topic,
		Balancer:     &kafka.Hash{},
		BatchTimeout: 10 * time.Millisecond,
		Async:        true,
	})
}

func NewKafkaWithWriter(w kafkaWriter) *Kafka {
	return &Kafka{w: w}
}

func (k *Kafka) Name() string { return "kafka" }

func (k *Kafka) Consume(ev market.SignalEvent) error {
	data, err := Encode(ev)
	if err != nil {
		return err
	}
	ctx, cancel := context.WithTimeout(context.Background(), kafkaWriteTimeout)
	defer cancel()
	return k.w.WriteMessages(ctx, kafka.Message{
		Key:   []byte(ev.Channel),
		Value: data,
		Time:  ev.Timestamp,
	})
}

func (k *Kafka) Close() error { return k.w.Close() }
