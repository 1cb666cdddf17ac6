package logger

import (
	"bytes"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ofi-stream-go/market"
)

func TestSetLevelAtRuntime(t *testing.T) {
	var buf bytes.Buffer
	l, err := NewWithWriter(Config{Level: "info", Format: "json"}, &buf)
	require.NoError(t, err)

	l.LogSignal(market.SignalEvent{Channel: "orderbook.1.BTCUSDT", RawOFI: 1})
	assert.Empty(t, buf.String(), "signals are debug level")

	require.NoError(t, l.SetLevel("debug"))
	assert.Equal(t, "debug", l.Level())
	l.LogSignal(market.SignalEvent{Channel: "orderbook.1.BTCUSDT", RawOFI: 1, Timestamp: time.Now()})
	assert.Contains(t, buf.String(), `"channel":"orderbook.1.BTCUSDT"`)

	assert.Error(t, l.SetLevel("loud"))
}

func TestInvalidConfig(t *testing.T) {
	_, err := New(Config{Level: "verbose"})
	assert.Error(t, err)
	_, err = New(Config{Level: "info", Outputs: []string{"syslog"}})
	assert.Error(t, err)
	_, err = New(Config{Level: "info", Outputs: []string{"file"}})
	assert.Error(t, err)
}

func TestFileAndErrorOutputs(t *testing.T) {
	dir := t.TempDir()
	cfg := Config{
		Level:      "info",
		Outputs:    []string{"file"},
		OutputFile: filepath.Join(dir, "app.log"),
		ErrorFile:  filepath.Join(dir, "error.log"),
		Format:     "json",
	}
	l, err := New(cfg)
	require.NoError(t, err)
	l.WithFields(map[string]interface{}{"component": "test"}).Info("hello")
	l.LogError(errors.New("boom"), map[string]interface{}{"channel": "c"})
	require.NoError(t, l.Close())

	app, err := os.ReadFile(cfg.OutputFile)
	require.NoError(t, err)
	assert.Contains(t, string(app), `"component":"test"`)

	errLog, err := os.ReadFile(cfg.ErrorFile)
	require.NoError(t, err)
	assert.Equal(t, 1, strings.Count(string(errLog), "error_event"))
	assert.Contains(t, string(errLog), `"error":"boom"`)
}
