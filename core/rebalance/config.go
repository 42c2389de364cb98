package rebalance

import (
	"fmt"

	"github.com/coparent/rota/core/model"
)

// Defaults for the balancing constraints.
const (
	DefaultMaxRunLength  = 4
	DefaultWindowDays    = 14
	DefaultFairnessSlack = 3
	DefaultFairnessPct   = 0.15
)

// Config defines the constraints the rebalancer enforces.
type Config struct {
	// GuardianA and GuardianB are the two guardians sharing custody.
	GuardianA model.GuardianID `json:"guardian_a" yaml:"guardian_a"`
	GuardianB model.GuardianID `json:"guardian_b" yaml:"guardian_b"`
	// MaxRunLength caps consecutive nights with the same guardian.
	MaxRunLength int `json:"max_run_length" yaml:"max_run_length"`
	// WindowDays is the size of the non-overlapping fairness accounting
	// window. Each guardian's night count per window is pushed towards
	// windowDays/2 plus or minus one.
	WindowDays int `json:"window_days" yaml:"window_days"`
	// FairnessSlack and FairnessPct bound the whole-horizon imbalance:
	// the night-count difference may not exceed the larger of
	// FairnessSlack or FairnessPct of the total scheduled days.
	FairnessSlack int     `json:"fairness_slack" yaml:"fairness_slack"`
	FairnessPct   float64 `json:"fairness_pct" yaml:"fairness_pct"`
}

// SetDefaults applies sane defaults.
func (c *Config) SetDefaults() {
	if c.MaxRunLength <= 0 {
		c.MaxRunLength = DefaultMaxRunLength
	}
	if c.WindowDays <= 0 {
		c.WindowDays = DefaultWindowDays
	}
	if c.FairnessSlack <= 0 {
		c.FairnessSlack = DefaultFairnessSlack
	}
	if c.FairnessPct <= 0 {
		c.FairnessPct = DefaultFairnessPct
	}
}

// Validate checks mandatory fields.
func (c Config) Validate() error {
	if c.GuardianA == "" || c.GuardianB == "" {
		return fmt.Errorf("both guardians are required")
	}
	if c.GuardianA == c.GuardianB {
		return fmt.Errorf("guardians must be distinct")
	}
	if c.MaxRunLength < 2 {
		return fmt.Errorf("max_run_length must be at least 2")
	}
	return nil
}

// window bounds for a span of n days: each guardian's count should land in
// [lo, hi], one day either side of an even split.
func windowBand(n int) (lo, hi int) {
	lo = n/2 - 1
	if lo < 0 {
		lo = 0
	}
	hi = n - lo
	return lo, hi
}
