package domain

// Series is the finalized sequence of klines for one symbol, ascending by Timestamp
// with no repeated timestamps.
type Series []*Kline

// Sorted reports whether timestamps never decrease across the series.
func (s Series) Sorted() bool {
	for i := 1; i < len(s); i++ {
		if s[i-1].Timestamp > s[i].Timestamp {
			return false
		}
	}
	return true
}

// Timestamps returns the timestamp of every kline in order.
func (s Series) Timestamps() []int64 {
	out := make([]int64, len(s))
	for i, k := range s {
		out[i] = k.Timestamp
	}
	return out
}

// First returns the earliest kline, or nil for an empty series.
func (s Series) First() *Kline {
	if len(s) == 0 {
		return nil
	}
	return s[0]
}

// Last returns the latest kline, or nil for an empty series.
func (s Series) Last() *Kline {
	if len(s) == 0 {
		return nil
	}
	return s[len(s)-1]
}

// TimeWindow is a [Start, End) millisecond range bounding one fetch request.
type TimeWindow struct {
	Start int64
	End   int64
}

// Duration returns the window width in milliseconds.
func (w TimeWindow) Duration() int64 {
	return w.End - w.Start
}
