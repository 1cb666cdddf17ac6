package gateway

import "errors"

var (
	// ErrMalformedMessage 消息不是合法 JSON、缺少字段或数值格式错误；丢弃该消息，连接保持。
	ErrMalformedMessage = errors.New("malformed message")
	// ErrSubscriptionRejected 服务端对 subscribe 返回 success=false；按传输失败处理。
	ErrSubscriptionRejected = errors.New("subscription rejected")
	// ErrUnsupportedDepth depth 不在交易所支持的档位列表中。
	ErrUnsupportedDepth = errors.New("unsupported orderbook depth")
)
