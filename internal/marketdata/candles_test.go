package marketdata

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeCandleFile(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "candles.csv")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestLoadCandles_Window(t *testing.T) {
	path := writeCandleFile(t, `timestamp,open,high,low,close,volume
2024-01-01 00:00:00,100,101,99,100.5,10
2024-01-01 00:01:00,100.5,102,100,101,12
2024-01-01 00:02:00,101,103,100.5,102,8
2024-01-01 00:03:00,102,104,101,103,9
`)

	start := time.Date(2024, 1, 1, 0, 1, 0, 0, time.UTC)
	end := time.Date(2024, 1, 1, 0, 2, 0, 0, time.UTC)

	candles, err := LoadCandles(path, start, end, zerolog.Nop())
	require.NoError(t, err)
	require.Len(t, candles, 2)
	assert.Equal(t, start, candles[0].Timestamp)
	assert.Equal(t, 101.0, candles[0].Close)
	assert.Equal(t, end, candles[1].Timestamp)
	assert.Equal(t, 103.0, candles[1].High)
}

func TestLoadCandles_BadNumericDefaultsToZero(t *testing.T) {
	path := writeCandleFile(t, `timestamp,open,high,low,close,volume
2024-01-01 00:00:00,100,101,99,100.5,oops
`)

	candles, err := LoadCandles(path, time.Time{},
		time.Date(2030, 1, 1, 0, 0, 0, 0, time.UTC), zerolog.Nop())
	require.NoError(t, err)
	require.Len(t, candles, 1)
	assert.Equal(t, 0.0, candles[0].Volume)
	assert.Equal(t, 100.5, candles[0].Close)
}

func TestLoadCandles_SkipsBadTimestamp(t *testing.T) {
	path := writeCandleFile(t, `timestamp,open,high,low,close,volume
not-a-date,100,101,99,100.5,10
2024-01-01 00:01:00,100.5,102,100,101,12
`)

	candles, err := LoadCandles(path, time.Time{},
		time.Date(2030, 1, 1, 0, 0, 0, 0, time.UTC), zerolog.Nop())
	require.NoError(t, err)
	require.Len(t, candles, 1)
	assert.Equal(t, 101.0, candles[0].Close)
}

func TestLoadCandles_MissingColumn(t *testing.T) {
	path := writeCandleFile(t, `timestamp,open,high,low,volume
2024-01-01 00:00:00,100,101,99,10
`)

	_, err := LoadCandles(path, time.Time{}, time.Now(), zerolog.Nop())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "close")
}
