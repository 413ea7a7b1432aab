// Package timeframe parses the timeframe tags carried by instance files
// ("1m" .. "1w") and defines their canonical report ordering.
package timeframe

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
)

// ErrUnknownTimeframe is returned for tags that cannot be parsed.
var ErrUnknownTimeframe = errors.New("unknown timeframe")

// Minutes converts a timeframe tag to its candle duration in minutes.
func Minutes(tf string) (int, error) {
	tf = strings.TrimSpace(strings.ToLower(tf))
	if len(tf) < 2 {
		return 0, fmt.Errorf("%w: %q", ErrUnknownTimeframe, tf)
	}

	unit := tf[len(tf)-1]
	n, err := strconv.Atoi(tf[:len(tf)-1])
	if err != nil || n <= 0 {
		return 0, fmt.Errorf("%w: %q", ErrUnknownTimeframe, tf)
	}

	switch unit {
	case 'm':
		return n, nil
	case 'h':
		return n * 60, nil
	case 'd':
		return n * 60 * 24, nil
	case 'w':
		return n * 60 * 24 * 7, nil
	default:
		return 0, fmt.Errorf("%w: %q", ErrUnknownTimeframe, tf)
	}
}

// CanonicalOrder is the display order for per-timeframe report tables.
var CanonicalOrder = []string{
	"1m", "2m", "3m", "4m", "5m", "6m", "8m", "9m", "10m", "12m", "15m",
	"16m", "18m", "20m", "24m", "30m", "32m", "40m", "45m", "48m", "1h",
	"72m", "80m", "90m", "96m", "2h", "144m", "160m", "3h", "4h", "288m",
	"6h", "8h", "12h", "1d", "2d", "3d", "1w", "multi-day",
}

var orderIndex = func() map[string]int {
	m := make(map[string]int, len(CanonicalOrder))
	for i, tf := range CanonicalOrder {
		m[tf] = i
	}
	return m
}()

// OrderIndex returns the canonical position of a timeframe tag. Unknown tags
// sort after all known ones.
func OrderIndex(tf string) int {
	if i, ok := orderIndex[tf]; ok {
		return i
	}
	return len(CanonicalOrder)
}
