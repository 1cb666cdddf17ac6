package alert

import (
	"errors"

	"ofi-stream-go/feed"
	"ofi-stream-go/gateway"
)

const (
	MsgFeedDisconnected     = "feed disconnected"
	MsgSubscriptionRejected = "subscription rejected"
	MsgFeedRecovered        = "feed recovered"
)

// FeedHook 返回 Supervisor.OnStateChange 回调：断线 WARNING，订阅被拒 ERROR，断线后重新订阅成功 INFO。
// 回调只在该 Supervisor 的 Run 协程中调用。
func (m *Manager) FeedHook(channel string) func(from, to feed.State, err error) {
	degraded := false
	return func(from, to feed.State, err error) {
		switch to {
		case feed.Degraded:
			degraded = true
			a := Alert{Level: LevelWarning, Channel: channel, Message: MsgFeedDisconnected}
			if errors.Is(err, gateway.ErrSubscriptionRejected) {
				a.Level, a.Message = LevelError, MsgSubscriptionRejected
			}
			if err != nil {
				a.Fields = map[string]interface{}{"error": err.Error(), "from": from.String()}
			}
			_ = m.Send(a)
		case feed.Subscribed:
			if !degraded {
				return
			}
			degraded = false
			_ = m.Send(Alert{Level: LevelInfo, Channel: channel, Message: MsgFeedRecovered})
		}
	}
}
