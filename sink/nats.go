package sink

import (
	"fmt"
	"time"

	"github.com/nats-io/nats.go"

	"ofi-stream-go/market"
)

const DefaultNATSSubject = "ofi"

type natsPublisher interface {
	Publish(subj string, data []byte) error
}

// NATS publishes each event on <subject>.<channel>.
type NATS struct {
	pub     natsPublisher
	conn    *nats.Conn
	subject string
}

// DialNATS connects with unlimited reconnects.
func DialNATS(url, subject string) (*NATS, error) {
	conn, err := nats.Connect(url,
		nats.Name("ofi-stream"),
		nats.MaxReconnects(-1),
		nats.ReconnectWait(500*time.Millisecond),
	)
	if err != nil {
		return nil, fmt.Errorf("nats connect %s: %w", url, err)
	}
	n := NewNATS(conn, subject)
	n.conn = conn
	return n, nil
}

func NewNATS(pub natsPublisher, subject string) *NATS {
	if subject == "" {
		subject = DefaultNATSSubject
	}
	return &NATS{pub: pub, subject: subject}
}

func (n *NATS) Name() string { return "nats" }

func (n *NATS) Subject(channel string) string {
	return n.subject + "." + channel
}

func (n *NATS) Consume(ev market.SignalEvent) error {
	data, err := Encode(ev)
	if err != nil {
		return err
	}
	return n.pub.Publish(n.Subject(ev.Channel), data)
}

func (n *NATS) Close() error {
	if n.conn == nil {
		return nil
	}
	if err := n.conn.Drain(); err != nil {
		n.conn.Close()
		return err
	}
	return nil
}
