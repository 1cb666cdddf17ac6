package gateway

import (
	"fmt"
	"time"

	"github.com/segmentio/encoding/json"
	"github.com/shopspring/decimal"

	"ofi-stream-go/market"
)

const (
	TypeDelta    = "delta"
	TypeSnapshot = "snapshot"
)

// Envelope 对应 Bybit v5 公共推送；控制回包（subscribe/ping）只带 op/success/ret_msg。
type Envelope struct {
	Topic   string    `json:"topic"`
	Type    string    `json:"type"`
	Ts      int64     `json:"ts"`
	Op      string    `json:"op"`
	Success *bool     `json:"success"`
	RetMsg  string    `json:"ret_msg"`
	Data    *BookData `json:"data"`
}

// BookData orderbook 推送的 data 字段。
type BookData struct {
	Symbol   string     `json:"s"`
	Bids     [][]string `json:"b"`
	Asks     [][]string `json:"a"`
	UpdateID int64      `json:"u"`
	Seq      int64      `json:"seq"`
}

// Timestamp 推送时间；缺失时返回零值。
func (e Envelope) Timestamp() time.Time {
	if e.Ts <= 0 {
		return time.Time{}
	}
	return time.UnixMilli(e.Ts).UTC()
}

// IsDelta topic 与 type 同时匹配时为 true。
func (e Envelope) IsDelta(channel string) bool {
	return e.Type == TypeDelta && e.Topic == channel
}

// DecodeEnvelope 解析一条原始消息。
// 订阅被拒绝时同时返回 envelope 与 ErrSubscriptionRejected。
func DecodeEnvelope(raw []byte) (Envelope, error) {
	var env Envelope
	if err := json.Unmarshal(raw, &env); err != nil {
		return Envelope{}, fmt.Errorf("%w: %v", ErrMalformedMessage, err)
	}
	if env.Op == "subscribe" && env.Success != nil && !*env.Success {
		return env, fmt.Errorf("%w: %s", ErrSubscriptionRejected, env.RetMsg)
	}
	return env, nil
}

// ParseDelta 将 data.b / data.a 解析为价格档位。
func ParseDelta(env Envelope) (bids, asks []market.PriceLevel, err error) {
	if env.Data == nil {
		return nil, nil, fmt.Errorf("%w: missing data", ErrMalformedMessage)
	}
	if bids, err = ParseLevels(env.Data.Bids); err != nil {
		return nil, nil, fmt.Errorf("bids: %w", err)
	}
	if asks, err = ParseLevels(env.Data.Asks); err != nil {
		return nil, nil, fmt.Errorf("asks: %w", err)
	}
	return bids, asks, nil
}

// ParseLevels 解析 [[price, qty], ...]。
// 使用 decimal 严格校验，拒绝 strconv 可接受的 NaN/Inf/十六进制写法。
func ParseLevels(raw [][]string) ([]market.PriceLevel, error) {
	out := make([]market.PriceLevel, 0, len(raw))
	for i, lvl := range raw {
		if len(lvl) < 2 {
			return nil, fmt.Errorf("%w: level %d has %d fields", ErrMalformedMessage, i, len(lvl))
		}
		price, err := decimal.NewFromString(lvl[0])
		if err != nil {
			return nil, fmt.Errorf("%w: price %q: %v", ErrMalformedMessage, lvl[0], err)
		}
		qty, err := decimal.NewFromString(lvl[1])
		if err != nil {
			return nil, fmt.Errorf("%w: qty %q: %v", ErrMalformedMessage, lvl[1], err)
		}
		if !price.IsPositive() || qty.IsNegative() {
			return nil, fmt.Errorf("%w: level %s/%s out of range", ErrMalformedMessage, lvl[0], lvl[1])
		}
		out = append(out, market.PriceLevel{
			Price:    price.InexactFloat64(),
			Quantity: qty.InexactFloat64(),
		})
	}
	return out, nil
}
