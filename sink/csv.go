package sink

import (
	"encoding/csv"
	"fmt"
	"os"
	"strconv"
	"sync"

	"ofi-stream-go/market"
)

const DefaultCSVPath = "data.csv"

// CSV appends ts,raw_ofi,smoothed rows, flushing after each event.
type CSV struct {
	mu   sync.Mutex
	path string
	f    *os.File
	w    *csv.Writer
	// TimeLayout formats the ts column; defaults to HH:MM:SS in UTC.
	TimeLayout string
}

// NewCSV opens path for appending, creating it if needed.
func NewCSV(path string) (*CSV, error) {
	if path == "" {
		path = DefaultCSVPath
	}
	f, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return nil, fmt.Errorf("open csv %s: %w", path, err)
	}
	return &CSV{path: path, f: f, w: csv.NewWriter(f), TimeLayout: "15:04:05"}, nil
}

func (c *CSV) Name() string { return "csv" }

func (c *CSV) Path() string { return c.path }

func (c *CSV) Consume(ev market.SignalEvent) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.f == nil {
		return os.ErrClosed
	}
	row := []string{
		ev.Timestamp.UTC().Format(c.TimeLayout),
		strconv.FormatFloat(ev.RawOFI, 'f', -1, 64),
		strconv.FormatFloat(ev.Smoothed, 'f', -1, 64),
	}
	if err := c.w.Write(row); err != nil {
		return err
	}
	c.w.Flush()
	return c.w.Error()
}

func (c *CSV) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.f == nil {
		return nil
	}
	c.w.Flush()
	err := c.f.Close()
	c.f = nil
	return err
}
