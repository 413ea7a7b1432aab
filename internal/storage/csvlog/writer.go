// Package csvlog is the primary persistence layer: append-only CSV journals
// partitioned the way the downstream analysis tooling expects them. The
// files may be open in a spreadsheet or read by a report run while the
// simulation writes, so every write retries briefly on contention before
// giving up on that single record.
package csvlog

import (
	"encoding/csv"
	"fmt"
	"os"
	"time"

	"github.com/rs/zerolog"
)

const (
	defaultRetries = 5
	defaultDelay   = 100 * time.Millisecond
)

// fileWriter appends rows to CSV files, creating them with a header on
// first touch.
type fileWriter struct {
	retries int
	delay   time.Duration
	logger  zerolog.Logger
}

func newFileWriter(logger zerolog.Logger) *fileWriter {
	return &fileWriter{retries: defaultRetries, delay: defaultDelay, logger: logger}
}

// appendRow appends one row, writing the header first if the file is new.
func (w *fileWriter) appendRow(path string, header, row []string) error {
	var lastErr error
	for attempt := 0; attempt <= w.retries; attempt++ {
		if attempt > 0 {
			time.Sleep(w.delay)
		}
		if lastErr = w.appendOnce(path, header, row); lastErr == nil {
			return nil
		}
	}
	return fmt.Errorf("append to %s after %d retries: %w", path, w.retries, lastErr)
}

func (w *fileWriter) appendOnce(path string, header, row []string) error {
	_, statErr := os.Stat(path)
	isNew := os.IsNotExist(statErr)

	f, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return err
	}
	defer f.Close()

	cw := csv.NewWriter(f)
	if isNew {
		if err := cw.Write(header); err != nil {
			return err
		}
	}
	if err := cw.Write(row); err != nil {
		return err
	}
	cw.Flush()
	return cw.Error()
}

// rewriteWithoutKey rewrites a CSV file dropping rows whose keyColumn equals
// key. Implemented as read-filter-rewrite through a temp file; acceptable
// because only the bounded open-positions file is ever rewritten.
func (w *fileWriter) rewriteWithoutKey(path, keyColumn, key string) (removed bool, err error) {
	var lastErr error
	for attempt := 0; attempt <= w.retries; attempt++ {
		if attempt > 0 {
			time.Sleep(w.delay)
		}
		removed, lastErr = rewriteOnce(path, keyColumn, key)
		if lastErr == nil {
			return removed, nil
		}
	}
	return false, fmt.Errorf("rewrite %s after %d retries: %w", path, w.retries, lastErr)
}

func rewriteOnce(path, keyColumn, key string) (bool, error) {
	rows, err := readAll(path)
	if err != nil {
		return false, err
	}
	if len(rows) == 0 {
		return false, nil
	}

	col := headerIndex(rows[0])
	keyIdx, ok := col[keyColumn]
	if !ok {
		return false, fmt.Errorf("column %q not in %s", keyColumn, path)
	}

	kept := rows[:1]
	removed := false
	for _, row := range rows[1:] {
		if keyIdx < len(row) && row[keyIdx] == key {
			removed = true
			continue
		}
		kept = append(kept, row)
	}
	if !removed {
		return false, nil
	}

	tmp := path + ".tmp"
	f, err := os.Create(tmp)
	if err != nil {
		return false, err
	}
	cw := csv.NewWriter(f)
	if err := cw.WriteAll(kept); err != nil {
		f.Close()
		os.Remove(tmp)
		return false, err
	}
	cw.Flush()
	if err := cw.Error(); err != nil {
		f.Close()
		os.Remove(tmp)
		return false, err
	}
	if err := f.Close(); err != nil {
		os.Remove(tmp)
		return false, err
	}
	return true, os.Rename(tmp, path)
}

// readAll reads a whole CSV file including the header row. A missing file
// yields no rows and no error.
func readAll(path string) ([][]string, error) {
	f, err := os.Open(path)
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	defer f.Close()

	r := csv.NewReader(f)
	r.FieldsPerRecord = -1
	return r.ReadAll()
}

func headerIndex(header []string) map[string]int {
	col := make(map[string]int, len(header))
	for i, name := range header {
		col[name] = i
	}
	return col
}
