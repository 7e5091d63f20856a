package domain

import "time"

// TimeLocation is a point in chain time.
type TimeLocation struct {
	Timestamp int64 `json:"timestamp"` // unix seconds, 0 when unknown
	Block     int64 `json:"block"`
}

// Datetime returns the UTC time of the location, or nil when the timestamp is absent.
func (t TimeLocation) Datetime() *time.Time {
	if t.Timestamp == 0 {
		return nil
	}
	dt := time.Unix(t.Timestamp, 0).UTC()
	return &dt
}

// ToMap converts the location to its generic key/value form.
func (t TimeLocation) ToMap() map[string]any {
	return map[string]any{
		"timestamp": t.Timestamp,
		"block":     t.Block,
	}
}

// TimeLocationFromMap parses a location. Missing keys become zero.
func TimeLocationFromMap(m map[string]any) (TimeLocation, error) {
	ts, err := int64Field(m, "timestamp")
	if err != nil {
		return TimeLocation{}, err
	}
	block, err := int64Field(m, "block")
	if err != nil {
		return TimeLocation{}, err
	}
	return TimeLocation{Timestamp: ts, Block: block}, nil
}

// PeriodTimeframe is the interval between two time locations.
type PeriodTimeframe struct {
	Ini TimeLocation `json:"ini"`
	End TimeLocation `json:"end"`
}

// Seconds is the elapsed wall time of the period.
func (p PeriodTimeframe) Seconds() int64 {
	return p.End.Timestamp - p.Ini.Timestamp
}

// Blocks is the elapsed block count of the period.
func (p PeriodTimeframe) Blocks() int64 {
	return p.End.Block - p.Ini.Block
}

// Valid reports whether both derived spans are non-negative.
func (p PeriodTimeframe) Valid() bool {
	return p.Seconds() >= 0 && p.Blocks() >= 0
}

// ToMap converts the timeframe to its generic key/value form.
func (p PeriodTimeframe) ToMap() map[string]any {
	return map[string]any{
		"ini": p.Ini.ToMap(),
		"end": p.End.ToMap(),
	}
}

// PeriodTimeframeFromMap parses a timeframe.
func PeriodTimeframeFromMap(m map[string]any) (PeriodTimeframe, error) {
	ini, err := TimeLocationFromMap(subMap(m, "ini"))
	if err != nil {
		return PeriodTimeframe{}, err
	}
	end, err := TimeLocationFromMap(subMap(m, "end"))
	if err != nil {
		return PeriodTimeframe{}, err
	}
	return PeriodTimeframe{Ini: ini, End: end}, nil
}
