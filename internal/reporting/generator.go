package reporting

import (
	"context"
	"fmt"
	"path/filepath"
	"sort"
	"time"

	"github.com/rs/zerolog"

	"fib-pattern-lab/internal/domain"
	"fib-pattern-lab/internal/storage/csvlog"
	"fib-pattern-lab/internal/timeframe"
)

// Generator builds the summary report from a journal directory.
type Generator struct {
	dir    string
	logger zerolog.Logger
	now    func() time.Time // injectable clock for deterministic output
}

// NewGenerator creates a report generator over one output folder.
func NewGenerator(dir string, logger zerolog.Logger) *Generator {
	return &Generator{
		dir:    dir,
		logger: logger,
		now:    func() time.Time { return time.Now().UTC() },
	}
}

// WithClock sets a custom clock function for deterministic output.
func (g *Generator) WithClock(now func() time.Time) *Generator {
	g.now = now
	return g
}

// Generate computes the monthly and per-timeframe tables from the journals.
func (g *Generator) Generate(ctx context.Context) (*Summary, error) {
	months, err := csvlog.AnalysisMonths(g.dir)
	if err != nil {
		return nil, fmt.Errorf("list analysis partitions: %w", err)
	}
	if len(months) == 0 {
		return nil, fmt.Errorf("no analysis partitions in %s", g.dir)
	}

	events, err := csvlog.NewTradeLog(g.dir, false, g.logger).All(ctx)
	if err != nil {
		return nil, fmt.Errorf("read trade log: %w", err)
	}
	eventsByMonth := make(map[string][]*domain.TradeEvent)
	for _, e := range events {
		m := e.TradeDate.UTC().Format("200601")
		eventsByMonth[m] = append(eventsByMonth[m], e)
	}

	summary := &Summary{
		GeneratedAt: g.now(),
		FirstMonth:  months[0],
		LastMonth:   months[len(months)-1],
	}

	tfStats := make(map[string]*TimeframeRow)
	tfClosed := make(map[string]int)
	cumulativeLongs, cumulativeShorts := 0, 0

	for _, month := range months {
		row, err := g.monthlyRow(month)
		if err != nil {
			return nil, err
		}

		for _, e := range eventsByMonth[month] {
			row.TotalTrades++
			switch e.OrderType {
			case domain.OrderOpenLong:
				row.OpenLongTrades++
			case domain.OrderOpenShort:
				row.OpenShortTrades++
			case domain.OrderCloseLong:
				row.CloseLongTrades++
			case domain.OrderCloseShort:
				row.CloseShortTrades++
			}
			if !e.OrderType.IsClose() {
				continue
			}

			row.SumOfPnL += e.IndPnL
			if e.IndPnL > 0 {
				row.Wins++
			} else if e.IndPnL < 0 {
				row.Losses++
			}

			tf := tfStats[e.Timeframe]
			if tf == nil {
				tf = &TimeframeRow{Timeframe: e.Timeframe}
				tfStats[e.Timeframe] = tf
			}
			tfClosed[e.Timeframe]++
			tf.AveragePnL += e.IndPnL // running sum, divided below
			if e.IndPnL > 0 {
				tf.Wins++
			} else if e.IndPnL < 0 {
				tf.Losses++
			}
		}

		if row.Wins+row.Losses > 0 {
			row.WinRate = float64(row.Wins) / float64(row.Wins+row.Losses)
		}

		cumulativeLongs += row.OpenLongTrades - row.CloseLongTrades
		cumulativeShorts += row.OpenShortTrades - row.CloseShortTrades
		row.CurrentLongs = cumulativeLongs
		row.CurrentShorts = cumulativeShorts

		summary.Months = append(summary.Months, row)
	}

	summary.Timeframes = finishTimeframes(tfStats, tfClosed)
	return summary, nil
}

// monthlyRow extracts the bankroll trajectory of one analysis partition.
func (g *Generator) monthlyRow(month string) (MonthlyRow, error) {
	path := filepath.Join(g.dir, fmt.Sprintf("analysis_%s.csv", month))
	snapshots, err := csvlog.ReadSnapshotFile(path)
	if err != nil {
		return MonthlyRow{}, fmt.Errorf("read analysis partition %s: %w", month, err)
	}
	row := MonthlyRow{Month: month}
	if len(snapshots) == 0 {
		return row, nil
	}

	row.OpeningBankroll = snapshots[0].TotalBankroll
	last := snapshots[len(snapshots)-1]
	row.ClosingBankroll = last.TotalBankroll
	row.ClosePrice = last.Close
	row.ClosingLongBalance = last.TotalLongPosition
	row.ClosingShortBalance = last.TotalShortPosition
	row.ClosingBalance = last.TotalLongPosition - last.TotalShortPosition

	for _, s := range snapshots {
		if row.BankrollHighDate == "" || s.TotalBankroll > row.BankrollHigh {
			row.BankrollHigh = s.TotalBankroll
			row.BankrollHighDate = s.Timestamp.Format("2006-01-02")
		}
		if row.BankrollLowDate == "" || s.TotalBankroll < row.BankrollLow {
			row.BankrollLow = s.TotalBankroll
			row.BankrollLowDate = s.Timestamp.Format("2006-01-02")
		}
	}
	return row, nil
}

func finishTimeframes(tfStats map[string]*TimeframeRow, tfClosed map[string]int) []TimeframeRow {
	rows := make([]TimeframeRow, 0, len(tfStats))
	for tf, row := range tfStats {
		if n := tfClosed[tf]; n > 0 {
			row.AveragePnL /= float64(n)
		}
		total := row.Wins + row.Losses
		if total > 0 {
			row.WinRate = float64(row.Wins) / float64(total)
		}
		rows = append(rows, *row)
	}
	sort.Slice(rows, func(i, j int) bool {
		oi, oj := timeframe.OrderIndex(rows[i].Timeframe), timeframe.OrderIndex(rows[j].Timeframe)
		if oi != oj {
			return oi < oj
		}
		return rows[i].Timeframe < rows[j].Timeframe
	})
	return rows
}
