// Package schedule produces baseline custody rotations. The generator emits
// fixed-length alternating blocks and can extend an existing calendar while
// staying in phase with its trailing block.
package schedule

import "github.com/coparent/rota/core/model"

// DefaultBlockLength is the number of consecutive nights per guardian in a
// freshly generated rotation.
const DefaultBlockLength = 3

// Config defines rotation parameters loaded from configuration.
type Config struct {
	BlockLength int `json:"block_length" yaml:"block_length"`
}

// SetDefaults applies sane defaults.
func (c *Config) SetDefaults() {
	if c.BlockLength <= 0 {
		c.BlockLength = DefaultBlockLength
	}
}

// Generator builds alternating-block rotations between two guardians.
type Generator struct {
	GuardianA   model.GuardianID
	GuardianB   model.GuardianID
	BlockLength int
}

// NewGenerator returns a generator with the default block length.
func NewGenerator(a, b model.GuardianID) *Generator {
	return &Generator{GuardianA: a, GuardianB: b, BlockLength: DefaultBlockLength}
}

func (g *Generator) blockLength() int {
	if g.BlockLength <= 0 {
		return DefaultBlockLength
	}
	return g.BlockLength
}

// Generate produces a strict alternating block pattern of totalDays days
// starting on start, with first holding the opening block. A non-positive
// totalDays yields an empty calendar.
func (g *Generator) Generate(start model.DateKey, first model.GuardianID, totalDays int) model.Calendar {
	if totalDays <= 0 {
		return model.Calendar{}
	}
	block := g.blockLength()
	cal := make(model.Calendar, 0, totalDays)
	current := first
	for i := 0; i < totalDays; i++ {
		if i > 0 && i%block == 0 {
			current = model.Other(current, g.GuardianA, g.GuardianB)
		}
		cal = append(cal, model.Day{Date: start.AddDays(i), AssignedTo: current})
	}
	return cal
}

// Extend continues the rotation through target, inclusive. The trailing run
// of the existing calendar is inspected so the block boundary resumes in
// phase: a trailing run shorter than the block length is completed before
// the next handoff, never restarted. Targets at or before the calendar's
// last day return the calendar unchanged.
func (g *Generator) Extend(cal model.Calendar, target model.DateKey) model.Calendar {
	if len(cal) == 0 {
		return cal
	}
	last := cal[len(cal)-1].Date
	missing := model.DaysBetween(last, target)
	if missing <= 0 {
		return cal
	}
	block := g.blockLength()

	current := cal[len(cal)-1].AssignedTo
	runLen := 0
	for i := len(cal) - 1; i >= 0 && cal[i].AssignedTo == current; i-- {
		runLen++
	}

	out := cal.Clone()
	for i := 1; i <= missing; i++ {
		if runLen >= block {
			current = model.Other(current, g.GuardianA, g.GuardianB)
			runLen = 0
		}
		out = append(out, model.Day{Date: last.AddDays(i), AssignedTo: current})
		runLen++
	}
	return out
}
