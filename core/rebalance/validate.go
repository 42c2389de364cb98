package rebalance

import (
	"fmt"
	"strings"

	"github.com/coparent/rota/core/model"
)

// Check inspects a calendar against the custody invariants and returns a
// human-readable reason per violation. An empty slice means the calendar is
// valid. The same checks gate optimizer output before it is trusted.
func Check(cal model.Calendar, cfg Config) []string {
	var reasons []string

	// Interior single-night islands. The horizon's first and last day may
	// be a fragment of a run continuing outside the visible range.
	for i := 1; i < len(cal)-1; i++ {
		g := cal[i].AssignedTo
		if cal[i-1].AssignedTo != g && cal[i+1].AssignedTo != g {
			reasons = append(reasons, fmt.Sprintf("single-night island for %s on %s", g, cal[i].Date))
		}
	}

	// Run-length cap.
	runStart := 0
	for i := 1; i <= len(cal); i++ {
		if i == len(cal) || cal[i].AssignedTo != cal[runStart].AssignedTo {
			if n := i - runStart; n > cfg.MaxRunLength {
				reasons = append(reasons, fmt.Sprintf("%d-night run for %s starting %s exceeds cap %d",
					n, cal[runStart].AssignedTo, cal[runStart].Date, cfg.MaxRunLength))
			}
			runStart = i
		}
	}

	// Whole-horizon fairness bound.
	counts := cal.GuardianDays()
	diff := counts[cfg.GuardianA] - counts[cfg.GuardianB]
	if diff < 0 {
		diff = -diff
	}
	bound := cfg.FairnessSlack
	if pct := int(cfg.FairnessPct * float64(len(cal))); pct > bound {
		bound = pct
	}
	if diff > bound {
		reasons = append(reasons, fmt.Sprintf("night-count difference %d exceeds fairness bound %d", diff, bound))
	}

	// A disrupted night must never sit with the unavailable guardian.
	for _, day := range cal {
		if day.IsDisrupted && day.DisruptedBy != "" && day.AssignedTo == day.DisruptedBy {
			reasons = append(reasons, fmt.Sprintf("disrupted night %s assigned to unavailable guardian %s", day.Date, day.DisruptedBy))
		}
	}

	return reasons
}

// Validate wraps Check into a single error.
func Validate(cal model.Calendar, cfg Config) error {
	if reasons := Check(cal, cfg); len(reasons) > 0 {
		return fmt.Errorf("invalid calendar: %s", strings.Join(reasons, "; "))
	}
	return nil
}
