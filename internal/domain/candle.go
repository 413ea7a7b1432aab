package domain

import "time"

// Candle represents one 1-minute OHLCV bar.
// Timestamps are minute-truncated UTC; the candle file is the clock of the
// whole simulation.
type Candle struct {
	Timestamp time.Time
	Open      float64
	High      float64
	Low       float64
	Close     float64
	Volume    float64
}

// Minute truncates a timestamp to minute precision.
// Every lifecycle comparison in the simulator happens at minute granularity.
func Minute(t time.Time) time.Time {
	return t.Truncate(time.Minute)
}

// SameMinute reports whether two timestamps fall in the same minute.
func SameMinute(a, b time.Time) bool {
	return Minute(a).Equal(Minute(b))
}
