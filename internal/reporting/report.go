// Package reporting post-processes the simulation journals into monthly and
// per-timeframe summary tables. It only reads persisted output; it never
// touches live simulation state.
package reporting

import "time"

// MonthlyRow is one month of the summary report.
type MonthlyRow struct {
	Month string

	OpeningBankroll float64
	ClosingBankroll float64
	ClosePrice      float64

	TotalTrades     int
	OpenLongTrades  int
	OpenShortTrades int
	CloseLongTrades int
	CloseShortTrades int

	SumOfPnL float64
	Wins     int
	Losses   int
	WinRate  float64

	// Cumulative net open trade counts through the end of the month.
	CurrentLongs  int
	CurrentShorts int

	ClosingLongBalance  float64
	ClosingShortBalance float64
	ClosingBalance      float64

	BankrollHigh     float64
	BankrollHighDate string
	BankrollLow      float64
	BankrollLowDate  string
}

// TimeframeRow is one timeframe's win-rate line, aggregated over the whole
// run.
type TimeframeRow struct {
	Timeframe  string
	Wins       int
	Losses     int
	AveragePnL float64
	WinRate    float64
}

// Summary is the full report: one row per simulated month plus the
// per-timeframe table.
type Summary struct {
	GeneratedAt time.Time
	FirstMonth  string
	LastMonth   string
	Months      []MonthlyRow
	Timeframes  []TimeframeRow
}
