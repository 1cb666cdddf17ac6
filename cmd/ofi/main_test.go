package main

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"ofi-stream-go/config"
)

func TestOverrideSubscription(t *testing.T) {
	subs := []config.SubscriptionConfig{{Symbol: "BTCUSDT", Depth: 50}, {Symbol: "ETHUSDT", Depth: 1}}

	got := overrideSubscription(subs, "solusdt", 0)
	assert.Equal(t, []config.SubscriptionConfig{{Symbol: "SOLUSDT", Depth: 50}}, got)

	got = overrideSubscription(subs, "", 200)
	assert.Equal(t, []config.SubscriptionConfig{{Symbol: "BTCUSDT", Depth: 200}}, got)

	got = overrideSubscription(nil, "", 1)
	assert.Equal(t, []config.SubscriptionConfig{{Symbol: "BTCUSDT", Depth: 1}}, got)
	assert.Equal(t, "BTCUSDT:1", describe(got))
}
