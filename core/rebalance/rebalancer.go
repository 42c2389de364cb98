// Package rebalance repairs a custody calendar after one or more disruptions.
// Unavailability always wins: disrupted nights are force-flipped to the other
// guardian first, then local repairs and a windowed fairness pass restore the
// block-length and balance invariants with as few extra reassignments as the
// greedy search can manage. When the local passes cannot untangle a knot of
// nearby disruptions, an exact minimum-change reassignment takes over. All
// operations return new calendars; nothing is shared or mutated across calls.
package rebalance

import (
	"github.com/coparent/rota/core/logger"
	"github.com/coparent/rota/core/model"
)

// Rebalancer repairs calendars under the configured constraints.
type Rebalancer struct {
	cfg Config
	log logger.Logger
}

// New creates a Rebalancer. A nil logger falls back to a no-op logger.
func New(cfg Config, log logger.Logger) *Rebalancer {
	cfg.SetDefaults()
	if log == nil {
		log = logger.NopLogger{}
	}
	return &Rebalancer{cfg: cfg, log: log}
}

// Config returns the active constraint configuration.
func (r *Rebalancer) Config() Config { return r.cfg }

// Rebalance returns a repaired copy of base honoring the disruptions.
// Disrupted dates missing from the calendar are skipped. All entries are
// processed in one pass so the outcome does not depend on submission order.
func (r *Rebalancer) Rebalance(base model.Calendar, disruptions model.DisruptionSet) model.Calendar {
	return r.RebalanceWithBlocks(base, disruptions, nil)
}

// RebalanceWithBlocks additionally honors soft blocks: advisory unavailability
// that steers the fairness pass away from handing a night to a guardian who
// flagged it, without the hard guarantee a disruption carries.
func (r *Rebalancer) RebalanceWithBlocks(base model.Calendar, disruptions, softBlocks model.DisruptionSet) model.Calendar {
	cal := base.Clone()
	forced := r.applyDisruptions(cal, disruptions)
	r.repairRuns(cal)
	r.repairIslands(cal)
	if islandOrRunViolation(cal, r.cfg.MaxRunLength) {
		r.repairExact(cal)
	}
	moved := r.balanceWindows(cal, softBlocks)
	r.log.Debugw("rebalance complete", map[string]any{
		"days":        len(cal),
		"forced":      forced,
		"fairnessMov": moved,
		"transitions": cal.Transitions(),
	})
	return cal
}

// applyDisruptions force-assigns every disrupted night to the other guardian
// and stamps the disruption flags. Returns the number of forced flips.
func (r *Rebalancer) applyDisruptions(cal model.Calendar, disruptions model.DisruptionSet) int {
	forced := 0
	for _, date := range disruptions.Dates() {
		g := disruptions[date]
		i, ok := cal.Find(date)
		if !ok {
			r.log.Warnf("disruption for %s ignored: date not in calendar", date)
			continue
		}
		cal[i].IsDisrupted = true
		cal[i].DisruptedBy = g
		if cal[i].AssignedTo == g {
			flip(cal, i, model.Other(g, r.cfg.GuardianA, r.cfg.GuardianB))
			forced++
		}
	}
	return forced
}

// flip reassigns one night in place, recording write-once provenance.
func flip(cal model.Calendar, i int, to model.GuardianID) {
	if cal[i].AssignedTo == to {
		return
	}
	if cal[i].OriginalAssignedTo == "" {
		cal[i].OriginalAssignedTo = cal[i].AssignedTo
	}
	cal[i].AssignedTo = to
}

// canAssign reports whether the night may be handed to g. A hard disruption
// by g forbids it.
func canAssign(day model.Day, g model.GuardianID) bool {
	return !(day.IsDisrupted && day.DisruptedBy == g)
}

// runLeft counts consecutive nights assigned to g immediately left of i.
func runLeft(cal model.Calendar, i int, g model.GuardianID) int {
	n := 0
	for j := i - 1; j >= 0 && cal[j].AssignedTo == g; j-- {
		n++
	}
	return n
}

// runRight counts consecutive nights assigned to g immediately right of i.
func runRight(cal model.Calendar, i int, g model.GuardianID) int {
	n := 0
	for j := i + 1; j < len(cal) && cal[j].AssignedTo == g; j++ {
		n++
	}
	return n
}

// flipWouldViolate simulates reassigning night i to `to` and reports whether
// the flip would create a single-night island or an over-length run in its
// local neighborhood. Only index-bounded lookback/lookahead is used; the
// calendar is never copied.
func flipWouldViolate(cal model.Calendar, i int, to model.GuardianID, maxRun int) bool {
	from := cal[i].AssignedTo

	// The flipped night itself must not become an interior island.
	if i > 0 && i < len(cal)-1 &&
		cal[i-1].AssignedTo != to && cal[i+1].AssignedTo != to {
		return true
	}

	// Neither neighbor may be stranded as a new island of `from`.
	for _, j := range []int{i - 1, i + 1} {
		if j <= 0 || j >= len(cal)-1 || cal[j].AssignedTo != from {
			continue
		}
		far := 2*j - i // neighbor on the far side of j
		if far < 0 || far >= len(cal) || cal[far].AssignedTo != from {
			return true
		}
	}

	// The merged run of `to` must stay within the cap.
	if runLeft(cal, i, to)+1+runRight(cal, i, to) > maxRun {
		return true
	}
	return false
}

// repairRuns trims runs that exceed the cap after forced flips, folding
// trimmed nights into the adjacent run (or an exempt horizon-edge fragment).
func (r *Rebalancer) repairRuns(cal model.Calendar) {
	for s := 0; s < len(cal); {
		g := cal[s].AssignedTo
		e := s
		for e+1 < len(cal) && cal[e+1].AssignedTo == g {
			e++
		}
		other := model.Other(g, r.cfg.GuardianA, r.cfg.GuardianB)
		for e-s+1 > r.cfg.MaxRunLength {
			if r.trimRunEnd(cal, s, other) {
				s++
			} else if r.trimRunEnd(cal, e, other) {
				e--
			} else {
				r.log.Warnf("cannot shorten %d-night run starting %s", e-s+1, cal[s].Date)
				break
			}
		}
		s = e + 1
	}
}

// trimRunEnd flips the run end at index end to `to` when that is allowed and
// does not overgrow the neighboring run it folds into.
func (r *Rebalancer) trimRunEnd(cal model.Calendar, end int, to model.GuardianID) bool {
	if !canAssign(cal[end], to) {
		return false
	}
	if runLeft(cal, end, to)+1+runRight(cal, end, to) > r.cfg.MaxRunLength {
		return false
	}
	flip(cal, end, to)
	return true
}

// repairIslands removes interior single-night islands left by forced flips.
// Pinned islands go first: a night held in place by a disruption can only
// grow by absorbing a neighbor, and a nearby free island folded too eagerly
// would block both absorb directions. Passes repeat until a full round makes
// no change; every repair strictly reduces the island count, so the loop
// terminates.
func (r *Rebalancer) repairIslands(cal model.Calendar) {
	for r.islandPass(cal, true) || r.islandPass(cal, false) {
	}
}

// islandPass repairs islands in one left-to-right scan. With pinned set, only
// islands whose night cannot be flipped away are handled; otherwise only free
// ones, folded into the surrounding run when the merge stays within the cap
// and absorbed like pinned islands when it does not. Reports whether any
// night changed.
func (r *Rebalancer) islandPass(cal model.Calendar, pinned bool) bool {
	changed := false
	for i := 1; i < len(cal)-1; i++ {
		g := cal[i].AssignedTo
		if cal[i-1].AssignedTo == g || cal[i+1].AssignedTo == g {
			continue
		}
		other := model.Other(g, r.cfg.GuardianA, r.cfg.GuardianB)
		if canAssign(cal[i], other) == pinned {
			continue
		}
		if !pinned &&
			runLeft(cal, i, other)+1+runRight(cal, i, other) <= r.cfg.MaxRunLength {
			flip(cal, i, other)
			changed = true
			continue
		}
		if r.absorbNeighbor(cal, i, +1) || r.absorbNeighbor(cal, i, -1) {
			changed = true
		}
	}
	return changed
}

// absorbNeighbor grows the island at i by flipping the neighbor in direction
// dir to the island's guardian. If the merge exceeds the run cap, nights are
// shaved off the far end of the merged run, which must terminate at a
// horizon edge or fold into the opposing run without overgrowing it. All
// checks run on indices before any night is touched.
func (r *Rebalancer) absorbNeighbor(cal model.Calendar, i, dir int) bool {
	g := cal[i].AssignedTo
	other := model.Other(g, r.cfg.GuardianA, r.cfg.GuardianB)
	j := i + dir
	if j < 0 || j >= len(cal) || !canAssign(cal[j], g) {
		return false
	}

	// Flipping j must not strand the next night of the opposing guardian.
	k := j + dir
	if k > 0 && k < len(cal)-1 && cal[k].AssignedTo == other {
		beyond := k + dir
		if beyond < 0 || beyond >= len(cal) || cal[beyond].AssignedTo != other {
			return false
		}
	}

	// Length of the merged run [i..far end] in direction dir.
	var extent int
	if dir > 0 {
		extent = runRight(cal, j, g)
	} else {
		extent = runLeft(cal, j, g)
	}
	merged := 2 + extent
	trims := merged - r.cfg.MaxRunLength
	if trims > 0 {
		farEnd := j + dir*(extent)
		// Every shaved night must be assignable to the opposing guardian.
		for t := 0; t < trims; t++ {
			d := farEnd - dir*t
			if !canAssign(cal[d], other) {
				return false
			}
		}
		edge := farEnd + dir
		if edge >= 0 && edge < len(cal) {
			// Folding into the opposing run: it must stay within the cap.
			var neighborRun int
			if dir > 0 {
				neighborRun = runRight(cal, farEnd, other)
			} else {
				neighborRun = runLeft(cal, farEnd, other)
			}
			if neighborRun+trims > r.cfg.MaxRunLength {
				return false
			}
		} else if trims > r.cfg.MaxRunLength {
			// Horizon-edge fragment, still capped.
			return false
		}
		flip(cal, j, g)
		for t := 0; t < trims; t++ {
			flip(cal, farEnd-dir*t, other)
		}
		return true
	}
	flip(cal, j, g)
	return true
}

// islandOrRunViolation reports a leftover interior island or over-cap run.
func islandOrRunViolation(cal model.Calendar, maxRun int) bool {
	run := 1
	for i := 1; i < len(cal); i++ {
		if cal[i].AssignedTo == cal[i-1].AssignedTo {
			run++
			if run > maxRun {
				return true
			}
		} else {
			run = 1
		}
	}
	for i := 1; i < len(cal)-1; i++ {
		g := cal[i].AssignedTo
		if cal[i-1].AssignedTo != g && cal[i+1].AssignedTo != g {
			return true
		}
	}
	return false
}

// repairExact reassigns nights with a run-length dynamic program when the
// local passes leave an interior island or an over-cap run behind. Among all
// assignments honoring the pins, the run cap, and the island rule it picks
// one moving the fewest nights away from the current calendar. A horizon
// whose pins cannot be honored at all is left as it is, with a warning.
func (r *Rebalancer) repairExact(cal model.Calendar) {
	n := len(cal)
	if n == 0 {
		return
	}
	maxRun := r.cfg.MaxRunLength
	gs := [2]model.GuardianID{r.cfg.GuardianA, r.cfg.GuardianB}

	const inf = 1 << 30
	// cost[i][g][l]: fewest reassignments over nights 0..i with night i held
	// by gs[g] in a run of length l+1 so far. Runs may only end at length one
	// when they open or close the horizon; interior runs need two nights.
	cost := make([][2][]int, n)
	for i := range cost {
		for g := 0; g < 2; g++ {
			cost[i][g] = make([]int, maxRun)
			for l := range cost[i][g] {
				cost[i][g][l] = inf
			}
		}
	}
	// switchFrom[i][g]: run length index of the opposing run ending at i-1
	// that the optimal switch into state (i, g, 0) came from.
	switchFrom := make([][2]int, n)

	move := func(i, g int) int {
		if cal[i].AssignedTo == gs[g] {
			return 0
		}
		return 1
	}
	for g := 0; g < 2; g++ {
		if canAssign(cal[0], gs[g]) {
			cost[0][g][0] = move(0, g)
		}
	}
	for i := 1; i < n; i++ {
		for g := 0; g < 2; g++ {
			if !canAssign(cal[i], gs[g]) {
				continue
			}
			c := move(i, g)
			for l := 1; l < maxRun; l++ {
				if cost[i-1][g][l-1] < inf {
					cost[i][g][l] = cost[i-1][g][l-1] + c
				}
			}
			best, bestL := inf, -1
			for l := 0; l < maxRun; l++ {
				// A one-night run may only be left behind when it opened
				// the horizon.
				if l == 0 && i != 1 {
					continue
				}
				if cost[i-1][1-g][l] < best {
					best, bestL = cost[i-1][1-g][l], l
				}
			}
			if bestL >= 0 {
				cost[i][g][0] = best + c
				switchFrom[i][g] = bestL
			}
		}
	}

	bestG, bestL, best := -1, -1, inf
	for g := 0; g < 2; g++ {
		for l := 0; l < maxRun; l++ {
			if cost[n-1][g][l] < best {
				best, bestG, bestL = cost[n-1][g][l], g, l
			}
		}
	}
	if bestG < 0 {
		r.log.Warnf("no assignment honors every disrupted night between %s and %s",
			cal[0].Date, cal[n-1].Date)
		return
	}

	assign := make([]int, n)
	for i, g, l := n-1, bestG, bestL; i >= 0; i-- {
		assign[i] = g
		if l > 0 {
			l--
		} else {
			l = switchFrom[i][g]
			g = 1 - g
		}
	}
	moved := 0
	for i := range cal {
		if cal[i].AssignedTo != gs[assign[i]] {
			flip(cal, i, gs[assign[i]])
			moved++
		}
	}
	r.log.Debugf("exact repair moved %d night(s)", moved)
}

// balanceWindows runs the fairness pass over full accounting windows and
// returns the number of fairness-driven reassignments. Trailing partial
// windows are left alone; the horizon-wide bound is the validator's concern.
func (r *Rebalancer) balanceWindows(cal model.Calendar, softBlocks model.DisruptionSet) int {
	_, hi := windowBand(r.cfg.WindowDays)
	moved := 0
	for start := 0; start+r.cfg.WindowDays <= len(cal); start += r.cfg.WindowDays {
		end := start + r.cfg.WindowDays

		countA := 0
		for i := start; i < end; i++ {
			if cal[i].AssignedTo == r.cfg.GuardianA {
				countA++
			}
		}
		countB := r.cfg.WindowDays - countA

		var over, under model.GuardianID
		var moves int
		switch {
		case countA > hi:
			over, under, moves = r.cfg.GuardianA, r.cfg.GuardianB, countA-hi
		case countB > hi:
			over, under, moves = r.cfg.GuardianB, r.cfg.GuardianA, countB-hi
		default:
			continue
		}

		candidates := make([]int, 0, moves*2)
		for i := start; i < end; i++ {
			day := cal[i]
			if day.AssignedTo != over || day.IsDisrupted {
				continue
			}
			if softBlocks != nil && softBlocks[day.Date] == under {
				continue
			}
			candidates = append(candidates, i)
		}

		for m := 0; m < moves; m++ {
			best, bestScore := -1, -1
			for ci, i := range candidates {
				if i < 0 || flipWouldViolate(cal, i, under, r.cfg.MaxRunLength) {
					continue
				}
				if s := swapScore(cal, i, under); s > bestScore {
					best, bestScore = ci, s
				}
			}
			if best < 0 {
				// Partial correction beats breaking a run invariant.
				r.log.Debugf("window %s..%s: no viable swap, %d move(s) left",
					cal[start].Date, cal[end-1].Date, moves-m)
				break
			}
			flip(cal, candidates[best], under)
			candidates[best] = -1
			moved++
		}
	}
	return moved
}

// swapScore ranks a candidate flip of night i to `to`. Adjacency to an
// existing run earns +3, bridging two runs into one earns +5 more, and a
// resulting run of three or more nights earns its length as a consolidation
// bonus.
func swapScore(cal model.Calendar, i int, to model.GuardianID) int {
	prev := i > 0 && cal[i-1].AssignedTo == to
	next := i < len(cal)-1 && cal[i+1].AssignedTo == to
	s := 0
	if prev || next {
		s += 3
	}
	if prev && next {
		s += 5
	}
	if l := runLeft(cal, i, to) + 1 + runRight(cal, i, to); l >= 3 {
		s += l
	}
	return s
}
