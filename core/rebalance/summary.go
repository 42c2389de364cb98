package rebalance

import (
	"gonum.org/v1/gonum/stat"

	"github.com/coparent/rota/core/model"
)

// Summary describes the outcome of a rebalancing pass.
type Summary struct {
	ChangedCount    int `json:"changedCount"`
	GuardianADays   int `json:"guardianADays"`
	GuardianBDays   int `json:"guardianBDays"`
	TransitionCount int `json:"transitionCount"`
	// TransitionDelta is result transitions minus base transitions.
	TransitionDelta int `json:"transitionDelta"`
	// WindowImbalanceMean and WindowImbalanceStd summarize the absolute
	// per-window night-count gap between the guardians.
	WindowImbalanceMean float64 `json:"windowImbalanceMean"`
	WindowImbalanceStd  float64 `json:"windowImbalanceStd"`
}

// Summarize diffs base against result and computes fairness statistics over
// the configured accounting windows.
func Summarize(base, result model.Calendar, cfg Config) Summary {
	cfg.SetDefaults()
	s := Summary{TransitionCount: result.Transitions()}
	s.TransitionDelta = s.TransitionCount - base.Transitions()

	for _, day := range result {
		if prev, ok := base.At(day.Date); ok && prev.AssignedTo != day.AssignedTo {
			s.ChangedCount++
		}
	}
	counts := result.GuardianDays()
	s.GuardianADays = counts[cfg.GuardianA]
	s.GuardianBDays = counts[cfg.GuardianB]

	var gaps []float64
	for start := 0; start < len(result); start += cfg.WindowDays {
		end := start + cfg.WindowDays
		if end > len(result) {
			end = len(result)
		}
		a := 0
		for i := start; i < end; i++ {
			if result[i].AssignedTo == cfg.GuardianA {
				a++
			}
		}
		gap := float64(a - (end - start - a))
		if gap < 0 {
			gap = -gap
		}
		gaps = append(gaps, gap)
	}
	if len(gaps) > 0 {
		s.WindowImbalanceMean = stat.Mean(gaps, nil)
	}
	if len(gaps) > 1 {
		s.WindowImbalanceStd = stat.StdDev(gaps, nil)
	}
	return s
}
