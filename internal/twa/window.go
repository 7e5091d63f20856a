package twa

import (
	"errors"
	"fmt"
)

// ErrConfiguration is returned when a window has no usable bounds.
var ErrConfiguration = errors.New("twa window configuration")

// Unit is the clock a window is measured in.
type Unit string

// Window units.
const (
	UnitBlocks     Unit = "blocks"
	UnitTimestamps Unit = "seconds"
)

// Range is an inclusive [Start, End] interval.
type Range struct {
	Start int64 `json:"start"`
	End   int64 `json:"end"`
}

// Window selects the span a TWA is computed over. Blocks take precedence
// when both ranges are set.
type Window struct {
	Blocks     *Range `json:"blocks,omitempty"`
	Timestamps *Range `json:"timestamps,omitempty"`
}

// BlockWindow returns a window over blocks [start, end].
func BlockWindow(start, end int64) Window {
	return Window{Blocks: &Range{Start: start, End: end}}
}

// TimestampWindow returns a window over unix seconds [start, end].
func TimestampWindow(start, end int64) Window {
	return Window{Timestamps: &Range{Start: start, End: end}}
}

// Resolve picks the effective unit and range.
func (w Window) Resolve() (Unit, Range, error) {
	var (
		unit Unit
		r    Range
	)
	switch {
	case w.Blocks != nil:
		unit, r = UnitBlocks, *w.Blocks
	case w.Timestamps != nil:
		unit, r = UnitTimestamps, *w.Timestamps
	default:
		return "", Range{}, fmt.Errorf("%w: neither block nor timestamp bounds given", ErrConfiguration)
	}
	if r.End < r.Start {
		return "", Range{}, fmt.Errorf("%w: end %d before start %d", ErrConfiguration, r.End, r.Start)
	}
	return unit, r, nil
}

// Duration is End - Start.
func (r Range) Duration() int64 {
	return r.End - r.Start
}
