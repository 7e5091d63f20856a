package service

import (
	"fmt"
	"math"

	"hypervisor-analytics/internal/twa"
)

// Query narrows an analysis to a block or timestamp range.
// Block bounds take precedence when both are given.
type Query struct {
	FromBlock *int64
	ToBlock   *int64
	FromTs    *int64
	ToTs      *int64
	Simple    bool // down-sample the series
}

func (q Query) hasBlocks() bool {
	return q.FromBlock != nil || q.ToBlock != nil
}

func (q Query) hasTimestamps() bool {
	return q.FromTs != nil || q.ToTs != nil
}

func bounds(from, to *int64) (int64, int64) {
	lo, hi := int64(0), int64(math.MaxInt64)
	if from != nil {
		lo = *from
	}
	if to != nil {
		hi = *to
	}
	return lo, hi
}

// key identifies the query in cache keys.
func (q Query) key() string {
	var k string
	switch {
	case q.hasBlocks():
		lo, hi := bounds(q.FromBlock, q.ToBlock)
		k = fmt.Sprintf("b%d-%d", lo, hi)
	case q.hasTimestamps():
		lo, hi := bounds(q.FromTs, q.ToTs)
		k = fmt.Sprintf("t%d-%d", lo, hi)
	default:
		k = "all"
	}
	if q.Simple {
		k += "-simple"
	}
	return k
}

// Window converts the bounds into a TWA window. It returns nil when no bound
// is given, so the calculator default applies. A range with only one bound is
// a configuration error rather than a silent fallback. Blocks take precedence.
func (q Query) Window() (*twa.Window, error) {
	switch {
	case q.FromBlock != nil || q.ToBlock != nil:
		if q.FromBlock == nil || q.ToBlock == nil {
			return nil, fmt.Errorf("%w: block range needs from_block and to_block", twa.ErrConfiguration)
		}
		w := twa.BlockWindow(*q.FromBlock, *q.ToBlock)
		return &w, nil
	case q.FromTs != nil || q.ToTs != nil:
		if q.FromTs == nil || q.ToTs == nil {
			return nil, fmt.Errorf("%w: timestamp range needs from_ts and to_ts", twa.ErrConfiguration)
		}
		w := twa.TimestampWindow(*q.FromTs, *q.ToTs)
		return &w, nil
	}
	return nil, nil
}
