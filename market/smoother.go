package market

import "sort"

// DefaultSmoothingWindow 中位数平滑窗口默认长度。
const DefaultSmoothingWindow = 3

// Smoother 保存最近 N 个原始 OFI，按 FIFO 淘汰并给出中位数。
// 非并发安全，由单个 Session 独占。
type Smoother struct {
	capacity int
	values   []float64
}

// NewSmoother capacity <= 0 时使用默认值 3。
func NewSmoother(capacity int) *Smoother {
	if capacity <= 0 {
		capacity = DefaultSmoothingWindow
	}
	return &Smoother{
		capacity: capacity,
		values:   make([]float64, 0, capacity+1),
	}
}

// Push 追加一个值，超出容量先淘汰最旧的，再返回当前窗口的中位数。
func (s *Smoother) Push(v float64) float64 {
	s.values = append(s.values, v)
	if len(s.values) > s.capacity {
		s.values = s.values[len(s.values)-s.capacity:]
	}
	return Median(s.values)
}

// Capacity 窗口容量。
func (s *Smoother) Capacity() int { return s.capacity }

// Len 当前样本数。
func (s *Smoother) Len() int { return len(s.values) }

// Values 返回窗口内容副本（从旧到新）。
func (s *Smoother) Values() []float64 {
	out := make([]float64, len(s.values))
	copy(out, s.values)
	return out
}

// Reset 清空窗口。
func (s *Smoother) Reset() {
	s.values = s.values[:0]
}

// Median 偶数个取中间两数的平均；空切片返回 0。
func Median(values []float64) float64 {
	n := len(values)
	if n == 0 {
		return 0
	}
	sorted := make([]float64, n)
	copy(sorted, values)
	sort.Float64s(sorted)
	if n%2 == 1 {
		return sorted[n/2]
	}
	return (sorted[n/2-1] + sorted[n/2]) / 2
}
