package reporting

import (
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
)

var monthlyColumns = []string{
	"Month", "Opening Bankroll", "Closing Bankroll", "Close Price",
	"Total Trades", "Open Long Trades", "Open Short Trades",
	"Close Long Trades", "Close Short Trades", "Sum of PnL",
	"Wins", "Losses", "Win Rate", "Current Longs", "Current Shorts",
	"Closing Long Balance", "Closing Short Balance", "Closing Balance",
	"Bankroll High", "BR High Date", "Bankroll Low", "BR Low Date",
}

var timeframeColumns = []string{
	"Timeframe", "Wins", "Losses", "Average PnL", "Win Rate",
}

// WriteCSV writes the two-table summary file into the journal directory,
// named "{folder}_{firstMonth}_{lastMonth}.csv". Returns the written path.
func (g *Generator) WriteCSV(summary *Summary) (string, error) {
	name := fmt.Sprintf("%s_%s_%s.csv", filepath.Base(g.dir), summary.FirstMonth, summary.LastMonth)
	path := filepath.Join(g.dir, name)

	f, err := os.Create(path)
	if err != nil {
		return "", fmt.Errorf("create summary file: %w", err)
	}
	defer f.Close()

	w := csv.NewWriter(f)

	if err := w.Write(monthlyColumns); err != nil {
		return "", err
	}
	for _, m := range summary.Months {
		row := []string{
			m.Month,
			f4(m.OpeningBankroll), f4(m.ClosingBankroll), f4(m.ClosePrice),
			strconv.Itoa(m.TotalTrades),
			strconv.Itoa(m.OpenLongTrades), strconv.Itoa(m.OpenShortTrades),
			strconv.Itoa(m.CloseLongTrades), strconv.Itoa(m.CloseShortTrades),
			f4(m.SumOfPnL),
			strconv.Itoa(m.Wins), strconv.Itoa(m.Losses), f4(m.WinRate),
			strconv.Itoa(m.CurrentLongs), strconv.Itoa(m.CurrentShorts),
			f4(m.ClosingLongBalance), f4(m.ClosingShortBalance), f4(m.ClosingBalance),
			f4(m.BankrollHigh), m.BankrollHighDate,
			f4(m.BankrollLow), m.BankrollLowDate,
		}
		if err := w.Write(row); err != nil {
			return "", err
		}
	}

	// Blank line between the two tables.
	if err := w.Write([]string{""}); err != nil {
		return "", err
	}

	if err := w.Write(timeframeColumns); err != nil {
		return "", err
	}
	for _, t := range summary.Timeframes {
		row := []string{
			t.Timeframe,
			strconv.Itoa(t.Wins), strconv.Itoa(t.Losses),
			f4(t.AveragePnL), f4(t.WinRate),
		}
		if err := w.Write(row); err != nil {
			return "", err
		}
	}

	w.Flush()
	if err := w.Error(); err != nil {
		return "", err
	}
	g.logger.Info().Str("file", path).Msg("summary report written")
	return path, nil
}

func f4(v float64) string {
	return strconv.FormatFloat(v, 'f', 4, 64)
}
