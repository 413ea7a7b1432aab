package marketdata

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"fib-pattern-lab/internal/domain"
)

const instanceHeader = "instance_id,situation,confirm_date,direction,target,entry," +
	"fib0.5,fib0.0,fib-0.5,fib-1.0,Active Date,Completed Date," +
	"DateReached0.5,MaxDrawdown,extreme_price,extreme_price_date,group_id\n"

func writeInstanceFolder(t *testing.T, files map[string]string) string {
	t.Helper()
	dir := t.TempDir()
	for name, content := range files {
		require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte(content), 0o644))
	}
	return dir
}

func TestLoadInstances(t *testing.T) {
	dir := writeInstanceFolder(t, map[string]string{
		"instances_SOL_1h.csv": instanceHeader +
			"a1,1v1,2024-01-01 00:00:00,long,110,100,97,95,93,90,2024-01-01 00:05:00,2024-01-01 02:00:00,2024-01-01 01:00:00,4.2,96.5,2024-01-01 01:30:00,NA\n" +
			"b2,1v1,2024-01-01 00:00:00,short,90,100,,,,,,,,,,,NA\n", // never activated
	})

	idx, err := LoadInstances(dir, LoadOptions{FullSet: true}, zerolog.Nop())
	require.NoError(t, err)
	require.Len(t, idx.All, 1) // the unactivated instance is dropped

	inst := idx.All[0]
	assert.Equal(t, "a1", inst.InstanceID)
	assert.Equal(t, "1h", inst.Timeframe) // from the filename suffix
	assert.Equal(t, domain.DirectionLong, inst.Direction)
	assert.Equal(t, 100.0, inst.Entry)
	assert.Equal(t, 110.0, inst.Target)
	require.NotNil(t, inst.Fib0_5.Price)
	assert.Equal(t, 97.0, *inst.Fib0_5.Price)
	require.NotNil(t, inst.Fib0_5.DateReached)
	require.NotNil(t, inst.ExtremePrice)
	assert.Equal(t, 96.5, *inst.ExtremePrice)

	active := time.Date(2024, 1, 1, 0, 5, 0, 0, time.UTC)
	got := idx.ActivatingAt(active)
	require.Len(t, got, 1)
	assert.Same(t, inst, got[0])
	assert.Empty(t, idx.ActivatingAt(active.Add(time.Minute)))
}

func TestLoadInstances_DateWindow(t *testing.T) {
	dir := writeInstanceFolder(t, map[string]string{
		"instances_SOL_1h.csv": instanceHeader +
			"in,1v1,2024-01-01 00:00:00,long,110,100,,,,,2024-02-01 00:00:00,,,,,,NA\n" +
			"out,1v1,2024-01-01 00:00:00,long,110,100,,,,,2024-06-01 00:00:00,,,,,,NA\n",
	})

	opts := LoadOptions{
		Start: time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC),
		End:   time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC),
	}
	idx, err := LoadInstances(dir, opts, zerolog.Nop())
	require.NoError(t, err)
	require.Len(t, idx.All, 1)
	assert.Equal(t, "in", idx.All[0].InstanceID)

	// FullSet loads both regardless of the window.
	opts.FullSet = true
	idx, err = LoadInstances(dir, opts, zerolog.Nop())
	require.NoError(t, err)
	assert.Len(t, idx.All, 2)
}

func TestLoadInstances_AvoidGroups(t *testing.T) {
	dir := writeInstanceFolder(t, map[string]string{
		"instances_SOL_1h.csv": instanceHeader +
			"solo,1v1,2024-01-01 00:00:00,long,110,100,,,,,2024-01-01 00:05:00,,,,,,NA\n" +
			"grouped,1v1,2024-01-01 00:00:00,long,110,100,,,,,2024-01-01 00:05:00,,,,,,g7\n",
	})

	idx, err := LoadInstances(dir, LoadOptions{FullSet: true, AvoidGroups: true}, zerolog.Nop())
	require.NoError(t, err)
	require.Len(t, idx.All, 1)
	assert.Equal(t, "solo", idx.All[0].InstanceID)
}

func TestLoadInstances_SkipsMalformedRows(t *testing.T) {
	dir := writeInstanceFolder(t, map[string]string{
		"instances_SOL_1h.csv": instanceHeader +
			"bad-entry,1v1,2024-01-01 00:00:00,long,110,not-a-price,,,,,2024-01-01 00:05:00,,,,,,NA\n" +
			"bad-dir,1v1,2024-01-01 00:00:00,sideways,110,100,,,,,2024-01-01 00:05:00,,,,,,NA\n" +
			"good,1v1,2024-01-01 00:00:00,long,110,100,,,,,2024-01-01 00:05:00,,,,,,NA\n",
	})

	idx, err := LoadInstances(dir, LoadOptions{FullSet: true}, zerolog.Nop())
	require.NoError(t, err)
	require.Len(t, idx.All, 1)
	assert.Equal(t, "good", idx.All[0].InstanceID)
}

func TestLoadInstances_SameMinuteSortedByID(t *testing.T) {
	dir := writeInstanceFolder(t, map[string]string{
		"instances_SOL_1h.csv": instanceHeader +
			"zz,1v1,2024-01-01 00:00:00,long,110,100,,,,,2024-01-01 00:05:00,,,,,,NA\n" +
			"aa,1v1,2024-01-01 00:00:00,long,110,100,,,,,2024-01-01 00:05:00,,,,,,NA\n",
	})

	idx, err := LoadInstances(dir, LoadOptions{FullSet: true}, zerolog.Nop())
	require.NoError(t, err)

	got := idx.ActivatingAt(time.Date(2024, 1, 1, 0, 5, 0, 0, time.UTC))
	require.Len(t, got, 2)
	assert.Equal(t, "aa", got[0].InstanceID)
	assert.Equal(t, "zz", got[1].InstanceID)
}

func TestTimeframeFromFilename(t *testing.T) {
	assert.Equal(t, "1h", timeframeFromFilename("instances_SOL_1h.csv"))
	assert.Equal(t, "90m", timeframeFromFilename("sol_90m.csv"))
	assert.Equal(t, "plain", timeframeFromFilename("plain.csv"))
}
