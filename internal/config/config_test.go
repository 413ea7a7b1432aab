package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"fib-pattern-lab/internal/domain"
	"fib-pattern-lab/internal/sizing"
)

func TestDefault_IsValid(t *testing.T) {
	require.NoError(t, Default().Validate())
}

func TestValidate_FailsFast(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr error
	}{
		{
			"unknown sizing mode",
			func(c *Config) { c.SizingMode = sizing.Mode(7) },
			ErrInvalidSizingMode,
		},
		{
			"end before start",
			func(c *Config) { c.EndDate = c.StartDate.Add(-time.Hour) },
			ErrInvalidDateRange,
		},
		{
			"negative fee",
			func(c *Config) { c.FeeRate = -0.01 },
			ErrInvalidFeeRate,
		},
		{
			"percent mode without percent",
			func(c *Config) { c.SizingPercent = 0 },
			ErrInvalidPercent,
		},
		{
			"descaling factor out of range",
			func(c *Config) { c.UseDescaling = true; c.DescalingFactor = 1.5 },
			ErrInvalidPercent,
		},
		{
			"drawdown stop with fixed-quantity sizing",
			func(c *Config) { c.UseStaticDrawdown = true; c.SizingMode = sizing.ModeFixedQuantity },
			ErrDrawdownNeedsPercent,
		},
		{
			"leverage cap with fixed-dollar sizing",
			func(c *Config) { c.UseLeverageCap = true; c.SizingMode = sizing.ModeFixedDollar },
			ErrLeverageNeedsPercent,
		},
		{
			"advanced drawdown max below base",
			func(c *Config) { c.UseAdvancedDrawdown = true; c.AMPDPercentMax = 1 },
			ErrInvalidAMPD,
		},
		{
			"advanced drawdown with no factor",
			func(c *Config) {
				c.UseAdvancedDrawdown = true
				c.AMPDUsePendingTime = false
				c.AMPDUseTriggerTime = false
			},
			ErrInvalidAMPD,
		},
		{
			"bankroll floor out of range",
			func(c *Config) { c.UseBankrollFloor = true; c.BankrollFloorFraction = 1.0 },
			ErrInvalidFloor,
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			cfg := Default()
			tc.mutate(&cfg)
			assert.ErrorIs(t, cfg.Validate(), tc.wantErr)
		})
	}
}

func TestSituationAllowed(t *testing.T) {
	cfg := Config{AllowedSituations: []string{"1v1", "2v1"}}
	assert.True(t, cfg.SituationAllowed("1v1"))
	assert.False(t, cfg.SituationAllowed("3v1"))

	// Empty allow-list allows everything.
	cfg.AllowedSituations = nil
	assert.True(t, cfg.SituationAllowed("anything"))
}

func TestMaxOpenPositions(t *testing.T) {
	cfg := Config{UseLeverageCap: true, Leverage: 2, SizingPercent: 70}
	// floor(2*100/70) = 2
	assert.Equal(t, 2, cfg.MaxOpenPositions())

	cfg.SizingPercent = 10
	assert.Equal(t, 20, cfg.MaxOpenPositions())

	cfg.UseLeverageCap = false
	assert.Equal(t, 0, cfg.MaxOpenPositions())
}

func TestFibToggles(t *testing.T) {
	cfg := Config{EntryFib0_0: true, ExitFibNeg1_0: true}

	assert.True(t, cfg.EntryOnFib(domain.FibLevel0_0))
	assert.False(t, cfg.EntryOnFib(domain.FibLevel0_5))
	assert.True(t, cfg.ExitOnFib(domain.FibLevelNeg1_0))
	assert.False(t, cfg.ExitOnFib(domain.FibLevel0_0))
}

func TestNeedsFullInstanceSet(t *testing.T) {
	assert.False(t, Config{}.NeedsFullInstanceSet())
	assert.False(t, Config{TriggerSameMinute: true}.NeedsFullInstanceSet())
	assert.True(t, Config{TriggerWithinMinutes: true}.NeedsFullInstanceSet())
	assert.True(t, Config{TriggerAnyInsideActivation: true}.NeedsFullInstanceSet())
}

func TestSizer_CarriesConfig(t *testing.T) {
	cfg := Default()
	cfg.UseDescaling = true
	s := cfg.Sizer()

	assert.Equal(t, cfg.SizingMode, s.Mode)
	assert.Equal(t, cfg.SizingPercent, s.Percent)
	assert.Equal(t, cfg.StartingBankroll, s.StartingBankroll)
	assert.True(t, s.UseDescaling)
}
