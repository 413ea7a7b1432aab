package marketdata

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"fib-pattern-lab/internal/domain"
)

// LoadOptions controls instance loading.
type LoadOptions struct {
	Start time.Time
	End   time.Time

	// AvoidGroups drops instances whose group_id is anything but "NA".
	AvoidGroups bool

	// FullSet loads instances regardless of the date window. Required when
	// trigger-trade modes need to see activations outside the simulated
	// range.
	FullSet bool
}

// Index holds the loaded instance universe with the lookups the simulation
// loop and the trigger filters need. Built once at load time; read-only
// afterwards.
type Index struct {
	// ByMinute maps an activation minute to the instances activating then,
	// sorted by InstanceID for deterministic replay.
	ByMinute map[time.Time][]*domain.Instance

	// All lists every loaded instance (activated ones only).
	All []*domain.Instance
}

// ActivatingAt returns the instances whose activation minute equals ts.
func (x *Index) ActivatingAt(ts time.Time) []*domain.Instance {
	return x.ByMinute[domain.Minute(ts)]
}

// LoadInstances reads every *.csv in folder. The timeframe tag is taken
// from the filename suffix ("..._1h.csv" -> "1h"), as written by the
// labeling pipeline. Instances without an activation date are dropped;
// rows with unparseable identity fields are skipped with a warning.
func LoadInstances(folder string, opts LoadOptions, logger zerolog.Logger) (*Index, error) {
	entries, err := os.ReadDir(folder)
	if err != nil {
		return nil, fmt.Errorf("read instances folder: %w", err)
	}

	idx := &Index{ByMinute: make(map[time.Time][]*domain.Instance)}
	for _, e := range entries {
		if e.IsDir() || !strings.HasSuffix(e.Name(), ".csv") {
			continue
		}
		tf := timeframeFromFilename(e.Name())
		if err := loadInstanceFile(filepath.Join(folder, e.Name()), tf, opts, idx, logger); err != nil {
			logger.Error().Err(err).Str("file", e.Name()).Msg("skipping instance file")
		}
	}

	for _, list := range idx.ByMinute {
		sort.Slice(list, func(i, j int) bool { return list[i].InstanceID < list[j].InstanceID })
	}

	logger.Info().
		Int("instances", len(idx.All)).
		Int("activation_minutes", len(idx.ByMinute)).
		Msg("loaded instance universe")
	return idx, nil
}

/// timeframeFromFilename extracts the trailing tag: "instances_SOL_1h.csv" -> "1h".
func timeframeFromFilename(name string) string {
	base := strings.TrimSuffix(name, ".csv")
	if i := strings.LastIndex(base, "_"); i >= 0 {
		return base[i+1:]
	}
	return base
}

func loadInstanceFile(path, tf string, opts LoadOptions, idx *Index, logger zerolog.Logger) error {
	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("open instance file: %w", err)
	}
	defer f.Close()

	r := csv.NewReader(f)
	r.FieldsPerRecord = -1

	header, err := r.Read()
	if err != nil {
		return fmt.Errorf("read instance header: %w", err)
	}
	col := headerIndex(header)

	line := 1
	for {
		record, err := r.Read()
		if err == io.EOF {
			return nil
		}
		line++
		if err != nil {
			logger.Warn().Err(err).Int("line", line).Str("file", path).Msg("skipping malformed instance row")
			continue
		}

		inst, err := parseInstance(record, col, tf)
		if err != nil {
			logger.Warn().Err(err).Int("line", line).Str("file", path).Msg("skipping instance")
			continue
		}

		if opts.AvoidGroups && inst.GroupID != "" && inst.GroupID != "NA" {
			continue
		}
		if inst.ActiveDate == nil {
			continue
		}
		if !opts.FullSet {
			if inst.ActiveDate.Before(opts.Start) || inst.ActiveDate.After(opts.End) {
				continue
			}
		}

		minute := domain.Minute(*inst.ActiveDate)
		idx.ByMinute[minute] = append(idx.ByMinute[minute], inst)
		idx.All = append(idx.All, inst)
	}
}

func parseInstance(record []string, col map[string]int, tf string) (*domain.Instance, error) {
	id := field(record, col, "instance_id")
	if id == "" {
		return nil, fmt.Errorf("missing instance_id")
	}

	dir, err := domain.ParseDirection(field(record, col, "direction"))
	if err != nil {
		return nil, fmt.Errorf("instance %s: %w", id, err)
	}

	entry, err := strconv.ParseFloat(field(record, col, "entry"), 64)
	if err != nil {
		return nil, fmt.Errorf("instance %s: bad entry price: %w", id, err)
	}
	target, err := strconv.ParseFloat(field(record, col, "target"), 64)
	if err != nil {
		return nil, fmt.Errorf("instance %s: bad target price: %w", id, err)
	}

	confirm, err := ParseDate(field(record, col, "confirm_date"))
	if err != nil {
		return nil, fmt.Errorf("instance %s: bad confirm date: %w", id, err)
	}

	active, err := ParseOptionalDate(field(record, col, "Active Date"))
	if err != nil {
		return nil, fmt.Errorf("instance %s: bad active date: %w", id, err)
	}
	completed, err := ParseOptionalDate(field(record, col, "Completed Date"))
	if err != nil {
		return nil, fmt.Errorf("instance %s: bad completed date: %w", id, err)
	}

	inst := &domain.Instance{
		InstanceID:    id,
		Situation:     field(record, col, "situation"),
		Timeframe:     tf,
		Direction:     dir,
		GroupID:       field(record, col, "group_id"),
		Entry:         entry,
		Target:        target,
		ConfirmDate:   confirm,
		ActiveDate:    active,
		CompletedDate: completed,
		MaxFib:        field(record, col, "MaxFib"),
	}

	inst.Fib0_5 = parseFibPoint(record, col, "fib0.5", "DateReached0.5")
	inst.Fib0_0 = parseFibPoint(record, col, "fib0.0", "DateReached0.0")
	inst.FibNeg0_5 = parseFibPoint(record, col, "fib-0.5", "DateReached-0.5")
	inst.FibNeg1_0 = parseFibPoint(record, col, "fib-1.0", "DateReached-1.0")

	inst.MaxDrawdown = optionalFloat(field(record, col, "MaxDrawdown"))
	inst.MaxDrawdownDate = optionalDateOrNil(field(record, col, "MaxDrawdown Date"))
	inst.ExtremePrice = optionalFloat(field(record, col, "extreme_price"))
	inst.ExtremePriceDate = optionalDateOrNil(field(record, col, "extreme_price_date"))

	return inst, nil
}

// parseFibPoint reads a level price and its touch date. Either may be
// absent or unparseable; a bad value degrades to nil rather than failing
// the row, since fib data is optional input to optional features.
func parseFibPoint(record []string, col map[string]int, priceCol, dateCol string) domain.FibPoint {
	return domain.FibPoint{
		Price:       optionalFloat(field(record, col, priceCol)),
		DateReached: optionalDateOrNil(field(record, col, dateCol)),
	}
}

func optionalFloat(s string) *float64 {
	if s == "" {
		return nil
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return nil
	}
	return &v
}

func optionalDateOrNil(s string) *time.Time {
	t, err := ParseOptionalDate(s)
	if err != nil {
		return nil
	}
	return t
}
