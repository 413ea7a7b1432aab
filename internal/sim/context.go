// Package sim is the minute-by-minute simulation engine: the entry and exit
// processors, the per-run lookup context and the loop that drives them.
package sim

import (
	"sort"
	"time"

	"fib-pattern-lab/internal/config"
	"fib-pattern-lab/internal/domain"
	"fib-pattern-lab/internal/marketdata"
	"fib-pattern-lab/internal/timeframe"
)

type cohortKey struct {
	timeframe string
	direction domain.Direction
}

// RunContext holds the derived lookup structures for one simulation run:
// per-(timeframe, direction) instance cohorts and their sorted activation
// minutes, used by the trigger-trade filters and the advanced drawdown
// factors. Built once at startup, read-only afterwards.
type RunContext struct {
	cfg config.Config

	cohorts     map[cohortKey][]*domain.Instance
	activations map[cohortKey][]time.Time
}

// NewRunContext builds the lookup structures from the loaded instance
// universe.
func NewRunContext(cfg config.Config, idx *marketdata.Index) *RunContext {
	rc := &RunContext{
		cfg:         cfg,
		cohorts:     make(map[cohortKey][]*domain.Instance),
		activations: make(map[cohortKey][]time.Time),
	}

	for _, inst := range idx.All {
		if inst.ActiveDate == nil {
			continue
		}
		k := cohortKey{inst.Timeframe, inst.Direction}
		rc.cohorts[k] = append(rc.cohorts[k], inst)
		rc.activations[k] = append(rc.activations[k], domain.Minute(*inst.ActiveDate))
	}

	for k := range rc.activations {
		mins := rc.activations[k]
		sort.Slice(mins, func(i, j int) bool { return mins[i].Before(mins[j]) })
	}
	return rc
}

// HasTrigger reports whether a corroborating instance of the same timeframe
// and direction exists for the candidate. Enabled modes are conjunctive:
// every one of them must find a qualifying trigger.
func (rc *RunContext) HasTrigger(inst *domain.Instance) bool {
	if inst.ActiveDate == nil {
		return false
	}

	if rc.cfg.TriggerAnyInsideActivation && !rc.hasNestedTrigger(inst) {
		return false
	}
	if rc.cfg.TriggerSameMinute && !rc.hasActivationIn(inst, 0) {
		return false
	}
	if rc.cfg.TriggerWithinCandles {
		tfMinutes, err := timeframe.Minutes(inst.Timeframe)
		if err != nil {
			return false
		}
		window := time.Duration(rc.cfg.TriggerWithinCandlesCount*tfMinutes) * time.Minute
		if !rc.hasActivationIn(inst, window) {
			return false
		}
	}
	if rc.cfg.TriggerWithinMinutes {
		window := time.Duration(rc.cfg.TriggerWithinMinutesCount) * time.Minute
		if !rc.hasActivationIn(inst, window) {
			return false
		}
	}
	return true
}

// hasNestedTrigger looks for another instance whose confirm-to-activation
// window nests fully inside the candidate's and that did not complete before
// the candidate activated.
func (rc *RunContext) hasNestedTrigger(cand *domain.Instance) bool {
	active := domain.Minute(*cand.ActiveDate)
	for _, other := range rc.cohorts[cohortKey{cand.Timeframe, cand.Direction}] {
		if other.InstanceID == cand.InstanceID || other.ActiveDate == nil {
			continue
		}
		if other.ConfirmDate.Before(cand.ConfirmDate) {
			continue
		}
		otherActive := domain.Minute(*other.ActiveDate)
		if otherActive.After(active) {
			continue
		}
		if other.CompletedDate != nil && !domain.Minute(*other.CompletedDate).After(active) {
			continue
		}
		return true
	}
	return false
}

// hasActivationIn reports whether another instance of the cohort activated
// within the window ending at the candidate's activation minute. A zero
// window means the exact same minute.
func (rc *RunContext) hasActivationIn(cand *domain.Instance, window time.Duration) bool {
	active := domain.Minute(*cand.ActiveDate)
	from := active.Add(-window)

	mins := rc.activations[cohortKey{cand.Timeframe, cand.Direction}]
	i := sort.Search(len(mins), func(i int) bool { return !mins[i].Before(from) })
	matches := 0
	for ; i < len(mins) && !mins[i].After(active); i++ {
		matches++
	}
	// The candidate's own activation always falls inside the window.
	matches--
	return matches > 0
}

// NearestTriggerBefore returns the minutes elapsed since the closest
// activation of the cohort at or before the candidate's own activation,
// excluding the candidate itself. Used by the advanced drawdown trigger
// factor. Returns false when the cohort has no earlier activation.
func (rc *RunContext) NearestTriggerBefore(cand *domain.Instance) (float64, bool) {
	if cand.ActiveDate == nil {
		return 0, false
	}
	active := domain.Minute(*cand.ActiveDate)

	mins := rc.activations[cohortKey{cand.Timeframe, cand.Direction}]
	i := sort.Search(len(mins), func(i int) bool { return mins[i].After(active) })
	skippedSelf := false
	for i--; i >= 0; i-- {
		if !skippedSelf && mins[i].Equal(active) {
			// First hit at the candidate's own minute is the candidate.
			skippedSelf = true
			continue
		}
		return active.Sub(mins[i]).Minutes(), true
	}
	return 0, false
}
