package config

import (
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog"

	"fib-pattern-lab/internal/sizing"
)

const dateLayout = "2006-01-02"

// Load builds a Config from defaults overlaid with .env and environment
// variables, then validates it. A missing .env file is not an error.
func Load(logger zerolog.Logger) (Config, error) {
	if err := godotenv.Load(); err != nil {
		logger.Debug().Msg("no .env file found, using environment only")
	}

	cfg := Default()

	cfg.StartingBankroll = envFloat("SIM_STARTING_BANKROLL", cfg.StartingBankroll)
	cfg.FeeRate = envFloat("SIM_FEE_RATE", cfg.FeeRate)
	cfg.StartDate = envDate("SIM_START_DATE", cfg.StartDate)
	cfg.EndDate = envDate("SIM_END_DATE", cfg.EndDate)

	cfg.SizingMode = sizingMode(envInt("SIM_SIZING_MODE", int(cfg.SizingMode)))
	cfg.SizingQuantity = envFloat("SIM_SIZING_QUANTITY", cfg.SizingQuantity)
	cfg.SizingAmount = envFloat("SIM_SIZING_AMOUNT", cfg.SizingAmount)
	cfg.SizingPercent = envFloat("SIM_SIZING_PERCENT", cfg.SizingPercent)
	cfg.UseDescaling = envBool("SIM_USE_DESCALING", cfg.UseDescaling)
	cfg.DescalingFactor = envFloat("SIM_DESCALING_FACTOR", cfg.DescalingFactor)

	cfg.AllowedSituations = envList("SIM_ALLOWED_SITUATIONS", cfg.AllowedSituations)
	cfg.AvoidGroups = envBool("SIM_AVOID_GROUPS", cfg.AvoidGroups)

	cfg.UseMinPendingAge = envBool("SIM_USE_MIN_PENDING_AGE", cfg.UseMinPendingAge)
	cfg.MinPendingAge = envFloat("SIM_MIN_PENDING_AGE", cfg.MinPendingAge)
	cfg.UseMaxPendingAge = envBool("SIM_USE_MAX_PENDING_AGE", cfg.UseMaxPendingAge)
	cfg.MaxPendingAge = envFloat("SIM_MAX_PENDING_AGE", cfg.MaxPendingAge)
	cfg.PendingAgeInCandles = envBool("SIM_PENDING_AGE_IN_CANDLES", cfg.PendingAgeInCandles)

	cfg.TriggerAnyInsideActivation = envBool("SIM_TT_ANY_INSIDE_ACTIVATION", cfg.TriggerAnyInsideActivation)
	cfg.TriggerSameMinute = envBool("SIM_TT_SAME_MINUTE", cfg.TriggerSameMinute)
	cfg.TriggerWithinCandles = envBool("SIM_TT_WITHIN_CANDLES", cfg.TriggerWithinCandles)
	cfg.TriggerWithinCandlesCount = envInt("SIM_TT_WITHIN_CANDLES_COUNT", cfg.TriggerWithinCandlesCount)
	cfg.TriggerWithinMinutes = envBool("SIM_TT_WITHIN_MINUTES", cfg.TriggerWithinMinutes)
	cfg.TriggerWithinMinutesCount = envInt("SIM_TT_WITHIN_MINUTES_COUNT", cfg.TriggerWithinMinutesCount)

	cfg.EntryFib0_5 = envBool("SIM_ENTRY_FIB_0_5", cfg.EntryFib0_5)
	cfg.EntryFib0_0 = envBool("SIM_ENTRY_FIB_0_0", cfg.EntryFib0_0)
	cfg.EntryFibNeg0_5 = envBool("SIM_ENTRY_FIB_NEG_0_5", cfg.EntryFibNeg0_5)
	cfg.EntryFibNeg1_0 = envBool("SIM_ENTRY_FIB_NEG_1_0", cfg.EntryFibNeg1_0)
	cfg.ExitFib0_5 = envBool("SIM_EXIT_FIB_0_5", cfg.ExitFib0_5)
	cfg.ExitFib0_0 = envBool("SIM_EXIT_FIB_0_0", cfg.ExitFib0_0)
	cfg.ExitFibNeg0_5 = envBool("SIM_EXIT_FIB_NEG_0_5", cfg.ExitFibNeg0_5)
	cfg.ExitFibNeg1_0 = envBool("SIM_EXIT_FIB_NEG_1_0", cfg.ExitFibNeg1_0)

	cfg.UseLeverageCap = envBool("SIM_USE_LEVERAGE_CAP", cfg.UseLeverageCap)
	cfg.Leverage = envFloat("SIM_LEVERAGE", cfg.Leverage)

	cfg.UseStaticTimeCapit = envBool("SIM_USE_STATIC_TIME_CAPIT", cfg.UseStaticTimeCapit)
	cfg.StaticTimeCapitHours = envFloat("SIM_STATIC_TIME_CAPIT_HOURS", cfg.StaticTimeCapitHours)

	cfg.UseStaticDrawdown = envBool("SIM_USE_STATIC_DRAWDOWN", cfg.UseStaticDrawdown)
	cfg.StaticDrawdownPercent = envFloat("SIM_STATIC_DRAWDOWN_PERCENT", cfg.StaticDrawdownPercent)

	cfg.UseAdvancedDrawdown = envBool("SIM_USE_ADVANCED_DRAWDOWN", cfg.UseAdvancedDrawdown)
	cfg.AMPDPercentBase = envFloat("SIM_AMPD_PERCENT_BASE", cfg.AMPDPercentBase)
	cfg.AMPDPercentMax = envFloat("SIM_AMPD_PERCENT_MAX", cfg.AMPDPercentMax)
	cfg.AMPDUsePendingTime = envBool("SIM_AMPD_USE_PENDING_TIME", cfg.AMPDUsePendingTime)
	cfg.AMPDUseTriggerTime = envBool("SIM_AMPD_USE_TRIGGER_TIME", cfg.AMPDUseTriggerTime)
	cfg.AMPDPendingWeight = envFloat("SIM_AMPD_PENDING_WEIGHT", cfg.AMPDPendingWeight)
	cfg.AMPDPendingHighDays = envFloat("SIM_AMPD_PENDING_HIGH_DAYS", cfg.AMPDPendingHighDays)
	cfg.AMPDTriggerHighMins = envFloat("SIM_AMPD_TRIGGER_HIGH_MINS", cfg.AMPDTriggerHighMins)

	cfg.UseBankrollFloor = envBool("SIM_USE_BANKROLL_FLOOR", cfg.UseBankrollFloor)
	cfg.BankrollFloorFraction = envFloat("SIM_BANKROLL_FLOOR_FRACTION", cfg.BankrollFloorFraction)
	cfg.UseMonthlyVolumeFloor = envBool("SIM_USE_MONTHLY_VOLUME_FLOOR", cfg.UseMonthlyVolumeFloor)
	cfg.MonthlyVolumeFloor = envInt("SIM_MONTHLY_VOLUME_FLOOR", cfg.MonthlyVolumeFloor)

	cfg.CreateTradesByMonth = envBool("SIM_CREATE_TRADES_BY_MONTH", cfg.CreateTradesByMonth)
	cfg.CreateAnalysisAll = envBool("SIM_CREATE_ANALYSIS_ALL", cfg.CreateAnalysisAll)

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func sizingMode(n int) sizing.Mode {
	return sizing.Mode(n)
}

func envFloat(key string, def float64) float64 {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return def
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return def
	}
	return f
}

func envInt(key string, def int) int {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return def
	}
	return n
}

func envBool(key string, def bool) bool {
	switch strings.ToLower(strings.TrimSpace(os.Getenv(key))) {
	case "1", "true", "y", "yes", "on":
		return true
	case "0", "false", "n", "no", "off":
		return false
	default:
		return def
	}
}

func envDate(key string, def time.Time) time.Time {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return def
	}
	t, err := time.ParseInLocation(dateLayout, v, time.UTC)
	if err != nil {
		return def
	}
	return t
}

func envList(key string, def []string) []string {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return def
	}
	parts := strings.Split(v, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
