package gateway

import (
	"fmt"
	"strings"
)

// BybitLinearWSEndpoint v5 公共 USDT 永续行情地址。
const BybitLinearWSEndpoint = "wss://stream.bybit.com/v5/public/linear"

// SupportedDepths v5 linear orderbook 支持的档位。
var SupportedDepths = []int{1, 50, 200, 500, 1000}

// SubscribeRequest 订阅控制消息 {"op":"subscribe","args":[...]}。
type SubscribeRequest struct {
	Op   string   `json:"op"`
	Args []string `json:"args"`
}

// NewSubscribeRequest 为单个频道构造订阅请求。
func NewSubscribeRequest(channel string) SubscribeRequest {
	return SubscribeRequest{Op: "subscribe", Args: []string{channel}}
}

// PingRequest Bybit 应用层心跳。
type PingRequest struct {
	Op string `json:"op"`
}

// NormalizeSymbol 去掉分隔符并转大写，例如 btc-usdt -> BTCUSDT。
func NormalizeSymbol(s string) string {
	s = strings.TrimSpace(s)
	replacer := strings.NewReplacer("-", "", "_", "", "/", "", " ", "")
	return strings.ToUpper(replacer.Replace(s))
}

// ChannelName 由 symbol 与 depth 生成频道名，例如 orderbook.50.BTCUSDT。
func ChannelName(symbol string, depth int) (string, error) {
	sym := NormalizeSymbol(symbol)
	if sym == "" {
		return "", fmt.Errorf("symbol required")
	}
	if !supportedDepth(depth) {
		return "", fmt.Errorf("%w: %d (want one of %v)", ErrUnsupportedDepth, depth, SupportedDepths)
	}
	return fmt.Sprintf("orderbook.%d.%s", depth, sym), nil
}

func supportedDepth(depth int) bool {
	for _, d := range SupportedDepths {
		if d == depth {
			return true
		}
	}
	return false
}
