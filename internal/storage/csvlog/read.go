package csvlog

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"fib-pattern-lab/internal/domain"
)

// AnalysisMonths lists the YYYYMM partitions present in a journal
// directory, sorted ascending.
func AnalysisMonths(dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, err
	}
	var months []string
	for _, e := range entries {
		name := e.Name()
		if e.IsDir() || !strings.HasPrefix(name, "analysis_") || !strings.HasSuffix(name, ".csv") {
			continue
		}
		month := strings.TrimSuffix(strings.TrimPrefix(name, "analysis_"), ".csv")
		if len(month) != 6 {
			continue
		}
		months = append(months, month)
	}
	sort.Strings(months)
	return months, nil
}

// ReadSnapshotFile decodes one analysis partition in file order.
func ReadSnapshotFile(path string) ([]*domain.MinuteSnapshot, error) {
	rows, err := readAll(path)
	if err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, nil
	}
	col := headerIndex(rows[0])
	snapshots := make([]*domain.MinuteSnapshot, 0, len(rows)-1)
	for i, row := range rows[1:] {
		s, err := decodeSnapshot(row, col)
		if err != nil {
			return nil, fmt.Errorf("%s row %d: %w", filepath.Base(path), i+2, err)
		}
		snapshots = append(snapshots, s)
	}
	return snapshots, nil
}
