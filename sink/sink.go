// Package sink holds the SignalBus consumers that carry OFI events out of the
// process: terminal, CSV file, in-memory chart buffer and message brokers.
package sink

import (
	"github.com/segmentio/encoding/json"

	"ofi-stream-go/market"
)

// Sink is a named bus consumer that owns an external resource.
type Sink interface {
	market.Consumer
	Name() string
	Close() error
}

// Encode is the wire form shared by the broker sinks.
func Encode(ev market.SignalEvent) ([]byte, error) {
	return json.Marshal(ev)
}

// Decode is the inverse of Encode.
func Decode(data []byte) (market.SignalEvent, error) {
	var ev market.SignalEvent
	err := json.Unmarshal(data, &ev)
	return ev, err
}

// Attach registers every sink on the bus under its own name.
func Attach(bus *market.SignalBus, sinks ...Sink) []int {
	ids := make([]int, 0, len(sinks))
	for _, s := range sinks {
		ids = append(ids, bus.Register(s.Name(), s))
	}
	return ids
}
