package sink

import (
	"fmt"
	"io"
	"os"

	"ofi-stream-go/market"
)

// Console prints one line per event:
//
//	12:00:01 | OFI: +1.2500 | median(3): +0.7500
type Console struct {
	w io.Writer
	// WithChannel prefixes each line with the channel name.
	WithChannel bool
}

// NewConsole writes to w, or stdout when w is nil.
func NewConsole(w io.Writer) *Console {
	if w == nil {
		w = os.Stdout
	}
	return &Console{w: w}
}

func (c *Console) Name() string { return "console" }

func (c *Console) Consume(ev market.SignalEvent) error {
	prefix := ""
	if c.WithChannel {
		prefix = "[" + ev.Channel + "] "
	}
	_, err := fmt.Fprintf(c.w, "%s%s | OFI: %+.4f | median(%d): %+.4f\n",
		prefix, ev.Timestamp.UTC().Format("15:04:05"), ev.RawOFI, ev.Window, ev.Smoothed)
	return err
}

func (c *Console) Close() error { return nil }
