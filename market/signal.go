package market

import "time"

// OfiSample 每个增量（首个除外）产生一个原始 OFI。
type OfiSample struct {
	Timestamp time.Time
	Raw       float64
}

// SignalEvent 交付给消费者的最小单元。
type SignalEvent struct {
	Timestamp time.Time `json:"ts"`
	Channel   string    `json:"channel"`
	RawOFI    float64   `json:"raw_ofi"`
	Smoothed  float64   `json:"smoothed_ofi"`
	Window    int       `json:"window"`
	Mid       float64   `json:"mid,omitempty"`
	Imbalance float64   `json:"imbalance"`
	Seq       int64     `json:"seq"`
}

// Sample 返回事件对应的原始样本。
func (e SignalEvent) Sample() OfiSample {
	return OfiSample{Timestamp: e.Timestamp, Raw: e.RawOFI}
}
