package market

import "time"

// PriceLevel 一档价格与数量；增量中 Quantity 为 0 表示删除该档。
type PriceLevel struct {
	Price    float64
	Quantity float64
}

// BookSide price -> qty，键无序。
type BookSide map[float64]float64

// Clone 返回独立副本。
func (s BookSide) Clone() BookSide {
	out := make(BookSide, len(s))
	for p, q := range s {
		out[p] = q
	}
	return out
}

// BookState 某个订阅频道的最新买卖盘。
// 发布为 previous 之后不再修改，ApplyDelta 总是返回新实例。
type BookState struct {
	Bids      BookSide
	Asks      BookSide
	Channel   string
	Seq       int64
	UpdatedAt time.Time
}

// NewBookState 创建空盘口。
func NewBookState(channel string) BookState {
	return BookState{
		Bids:    make(BookSide),
		Asks:    make(BookSide),
		Channel: channel,
	}
}

// Empty 两侧都没有档位时为 true。
func (b BookState) Empty() bool {
	return len(b.Bids) == 0 && len(b.Asks) == 0
}

// Clone 深拷贝。
func (b BookState) Clone() BookState {
	out := b
	out.Bids = b.Bids.Clone()
	out.Asks = b.Asks.Clone()
	return out
}

// ApplyDelta 应用增量更新，qty 为 0 表示删除该档，未列出的价格保持不变。
// 接收者不会被修改；空盘口等价于直接设置这些档位。
func (b BookState) ApplyDelta(bids, asks []PriceLevel) BookState {
	next := b.Clone()
	applyLevels(next.Bids, bids)
	applyLevels(next.Asks, asks)
	next.Seq = b.Seq + 1
	return next
}

func applyLevels(side BookSide, levels []PriceLevel) {
	for _, lvl := range levels {
		if lvl.Quantity == 0 {
			delete(side, lvl.Price)
			continue
		}
		side[lvl.Price] = lvl.Quantity
	}
}

// Best 返回最好买/卖价；若不存在则为 0。
func (b BookState) Best() (bestBid float64, bestAsk float64) {
	for p := range b.Bids {
		if p > bestBid {
			bestBid = p
		}
	}
	for p := range b.Asks {
		if bestAsk == 0 || p < bestAsk {
			bestAsk = p
		}
	}
	return bestBid, bestAsk
}

// Mid 返回中间价；若缺失任一侧返回 0。
func (b BookState) Mid() float64 {
	bid, ask := b.Best()
	if bid == 0 || ask == 0 {
		return 0
	}
	return (bid + ask) / 2
}
