package gateway

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestChannelName(t *testing.T) {
	ch, err := ChannelName("eth-usdt", 1)
	require.NoError(t, err)
	assert.Equal(t, "orderbook.1.ETHUSDT", ch)

	ch, err = ChannelName("BTCUSDT", 50)
	require.NoError(t, err)
	assert.Equal(t, "orderbook.50.BTCUSDT", ch)

	_, err = ChannelName("BTCUSDT", 25)
	assert.ErrorIs(t, err, ErrUnsupportedDepth)

	_, err = ChannelName("  ", 1)
	assert.Error(t, err)
}

func TestNewSubscribeRequestShape(t *testing.T) {
	req := NewSubscribeRequest("orderbook.1.ETHUSDT")
	assert.Equal(t, "subscribe", req.Op)
	assert.Equal(t, []string{"orderbook.1.ETHUSDT"}, req.Args)
}

func TestDecodeDelta(t *testing.T) {
	raw := []byte(`{"topic":"orderbook.1.ETHUSDT","type":"delta","ts":1700000000123,
		"data":{"s":"ETHUSDT","b":[["2000.5","1.25"],["2000.4","0"]],"a":[["2000.6","3"]],"u":42,"seq":7}}`)
	env, err := DecodeEnvelope(raw)
	require.NoError(t, err)
	assert.True(t, env.IsDelta("orderbook.1.ETHUSDT"))
	assert.False(t, env.IsDelta("orderbook.1.BTCUSDT"))
	assert.Equal(t, time.UnixMilli(1700000000123).UTC(), env.Timestamp())

	bids, asks, err := ParseDelta(env)
	require.NoError(t, err)
	require.Len(t, bids, 2)
	require.Len(t, asks, 1)
	assert.Equal(t, 2000.5, bids[0].Price)
	assert.Equal(t, 1.25, bids[0].Quantity)
	assert.Equal(t, 0.0, bids[1].Quantity)
	assert.Equal(t, 3.0, asks[0].Quantity)
}

func TestDecodeSnapshotIsNotDelta(t *testing.T) {
	env, err := DecodeEnvelope([]byte(`{"topic":"orderbook.1.ETHUSDT","type":"snapshot","data":{"b":[],"a":[]}}`))
	require.NoError(t, err)
	assert.False(t, env.IsDelta("orderbook.1.ETHUSDT"))
}

func TestDecodeControlReplies(t *testing.T) {
	env, err := DecodeEnvelope([]byte(`{"success":true,"ret_msg":"","conn_id":"x","op":"subscribe"}`))
	require.NoError(t, err)
	assert.Equal(t, "subscribe", env.Op)
	assert.False(t, env.IsDelta("orderbook.1.ETHUSDT"))

	env, err = DecodeEnvelope([]byte(`{"success":true,"ret_msg":"pong","op":"ping"}`))
	require.NoError(t, err)
	assert.Equal(t, "pong", env.RetMsg)

	_, err = DecodeEnvelope([]byte(`{"success":false,"ret_msg":"error:handler not found","op":"subscribe"}`))
	assert.ErrorIs(t, err, ErrSubscriptionRejected)
	assert.Contains(t, err.Error(), "handler not found")
}

func TestMalformedMessages(t *testing.T) {
	cases := map[string]string{
		"not json":      `{"topic":`,
		"missing data":  `{"topic":"orderbook.1.ETHUSDT","type":"delta"}`,
		"short level":   `{"topic":"t","type":"delta","data":{"b":[["1"]],"a":[]}}`,
		"bad price":     `{"topic":"t","type":"delta","data":{"b":[["abc","1"]],"a":[]}}`,
		"nan qty":       `{"topic":"t","type":"delta","data":{"b":[],"a":[["1","NaN"]]}}`,
		"negative qty":  `{"topic":"t","type":"delta","data":{"b":[["1","-2"]],"a":[]}}`,
		"zero price":    `{"topic":"t","type":"delta","data":{"b":[["0","1"]],"a":[]}}`,
		"numeric level": `{"topic":"t","type":"delta","data":{"b":[[1,2]],"a":[]}}`,
	}
	for name, raw := range cases {
		t.Run(name, func(t *testing.T) {
			env, err := DecodeEnvelope([]byte(raw))
			if err == nil {
				_, _, err = ParseDelta(env)
			}
			if !errors.Is(err, ErrMalformedMessage) {
				t.Fatalf("expected ErrMalformedMessage, got %v", err)
			}
		})
	}
}
