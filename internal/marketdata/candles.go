// Package marketdata is the CSV loading boundary of the simulator: 1-minute
// candle files and per-timeframe instance files come in, typed domain
// records and the activation-minute index come out. Malformed rows are
// skipped with a warning; they never abort a load.
package marketdata

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"fib-pattern-lab/internal/domain"
)

// LoadCandles reads a 1-minute OHLCV file and returns the candles inside
// [start, end], in file order (ascending time). Numeric fields that fail to
// parse default to 0 with a warning, matching the tolerance of the rest of
// the pipeline.
func LoadCandles(path string, start, end time.Time, logger zerolog.Logger) ([]domain.Candle, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open candles file: %w", err)
	}
	defer f.Close()

	r := csv.NewReader(f)
	r.FieldsPerRecord = -1

	header, err := r.Read()
	if err != nil {
		return nil, fmt.Errorf("read candles header: %w", err)
	}
	col := headerIndex(header)
	for _, required := range []string{"timestamp", "open", "high", "low", "close"} {
		if _, ok := col[required]; !ok {
			return nil, fmt.Errorf("candles file %s: missing column %q", path, required)
		}
	}

	var candles []domain.Candle
	line := 1
	for {
		record, err := r.Read()
		if err == io.EOF {
			break
		}
		line++
		if err != nil {
			logger.Warn().Err(err).Int("line", line).Msg("skipping malformed candle row")
			continue
		}

		ts, err := ParseTimestamp(field(record, col, "timestamp"))
		if err != nil {
			logger.Warn().Err(err).Int("line", line).Msg("skipping candle with bad timestamp")
			continue
		}
		if ts.After(end) {
			// Ascending file order: nothing later can be in range.
			break
		}
		if ts.Before(start) {
			continue
		}

		candles = append(candles, domain.Candle{
			Timestamp: ts,
			Open:      numericOrZero(field(record, col, "open"), logger, line, "open"),
			High:      numericOrZero(field(record, col, "high"), logger, line, "high"),
			Low:       numericOrZero(field(record, col, "low"), logger, line, "low"),
			Close:     numericOrZero(field(record, col, "close"), logger, line, "close"),
			Volume:    numericOrZero(field(record, col, "volume"), logger, line, "volume"),
		})
	}

	return candles, nil
}

func headerIndex(header []string) map[string]int {
	col := make(map[string]int, len(header))
	for i, name := range header {
		col[strings.TrimSpace(name)] = i
	}
	return col
}

func field(record []string, col map[string]int, name string) string {
	i, ok := col[name]
	if !ok || i >= len(record) {
		return ""
	}
	return strings.TrimSpace(record[i])
}

func numericOrZero(s string, logger zerolog.Logger, line int, name string) float64 {
	if s == "" {
		return 0
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		logger.Warn().Int("line", line).Str("column", name).Str("value", s).
			Msg("unparseable numeric field, using 0")
		return 0
	}
	return v
}
