// Package model holds the custody domain types shared by every other
// package: calendar days keyed by date, guardian identities, disruption
// declarations, and change records. Values are plain and copyable; mutation
// helpers return fresh values and record write-once provenance.
package model

import (
	"fmt"
	"sort"
	"time"
)

// DateKey is a calendar date in YYYY-MM-DD form. Keys compare and sort
// correctly as plain strings.
type DateKey string

const dateLayout = "2006-01-02"

// ParseDateKey validates the YYYY-MM-DD form and returns the parsed time.
func ParseDateKey(k DateKey) (time.Time, error) {
	t, err := time.Parse(dateLayout, string(k))
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid date %q: want YYYY-MM-DD", k)
	}
	return t, nil
}

// AddDays returns the key n days after k. Invalid keys are returned as-is.
func (k DateKey) AddDays(n int) DateKey {
	t, err := ParseDateKey(k)
	if err != nil {
		return k
	}
	return DateKey(t.AddDate(0, 0, n).Format(dateLayout))
}

// DaysBetween returns the signed day count from a to b. Invalid keys count
// as zero distance.
func DaysBetween(a, b DateKey) int {
	ta, err := ParseDateKey(a)
	if err != nil {
		return 0
	}
	tb, err := ParseDateKey(b)
	if err != nil {
		return 0
	}
	return int(tb.Sub(ta).Hours() / 24)
}

// GuardianID identifies one of the two guardians sharing custody.
type GuardianID string

// Other returns the guardian in {a, b} that is not g.
func Other(g, a, b GuardianID) GuardianID {
	if g == a {
		return b
	}
	return a
}

// Day is one custody night. OriginalAssignedTo is write-once provenance: it
// is set on the first reassignment and never overwritten, so the pre-change
// guardian survives any number of later flips.
type Day struct {
	Date               DateKey    `json:"date"`
	AssignedTo         GuardianID `json:"assignedTo"`
	OriginalAssignedTo GuardianID `json:"originalAssignedTo,omitempty"`
	IsDisrupted        bool       `json:"isDisrupted,omitempty"`
	DisruptedBy        GuardianID `json:"disruptedBy,omitempty"`
	Note               string     `json:"note,omitempty"`
}

// Calendar is a gap-free, date-ascending run of days.
type Calendar []Day

// Find returns the index of date, using binary search over the sorted dates.
func (c Calendar) Find(date DateKey) (int, bool) {
	i := sort.Search(len(c), func(i int) bool { return c[i].Date >= date })
	if i < len(c) && c[i].Date == date {
		return i, true
	}
	return 0, false
}

// At returns the day on date.
func (c Calendar) At(date DateKey) (Day, bool) {
	if i, ok := c.Find(date); ok {
		return c[i], true
	}
	return Day{}, false
}

// Clone returns an independent copy.
func (c Calendar) Clone() Calendar {
	out := make(Calendar, len(c))
	copy(out, c)
	return out
}

// DayPatch describes a partial update to one day. Nil fields are untouched.
type DayPatch struct {
	AssignedTo  *GuardianID
	IsDisrupted *bool
	DisruptedBy *GuardianID
	Note        *string
}

// WithChange returns a copy with the patch applied to date, recording
// write-once provenance on reassignment. An unknown date is a no-op.
func (c Calendar) WithChange(date DateKey, p DayPatch) Calendar {
	i, ok := c.Find(date)
	if !ok {
		return c
	}
	out := c.Clone()
	day := out[i]
	if p.AssignedTo != nil && *p.AssignedTo != day.AssignedTo {
		if day.OriginalAssignedTo == "" {
			day.OriginalAssignedTo = day.AssignedTo
		}
		day.AssignedTo = *p.AssignedTo
	}
	if p.IsDisrupted != nil {
		day.IsDisrupted = *p.IsDisrupted
	}
	if p.DisruptedBy != nil {
		day.DisruptedBy = *p.DisruptedBy
	}
	if p.Note != nil {
		day.Note = *p.Note
	}
	out[i] = day
	return out
}

// Validate checks that the calendar is date-ascending without gaps and that
// every night is assigned to one of the two known guardians.
func (c Calendar) Validate(a, b GuardianID) error {
	for i, day := range c {
		if _, err := ParseDateKey(day.Date); err != nil {
			return err
		}
		if day.AssignedTo != a && day.AssignedTo != b {
			return fmt.Errorf("day %s assigned to unknown guardian %q", day.Date, day.AssignedTo)
		}
		if i > 0 {
			if gap := DaysBetween(c[i-1].Date, day.Date); gap != 1 {
				return fmt.Errorf("calendar gap between %s and %s", c[i-1].Date, day.Date)
			}
		}
	}
	return nil
}

// Transitions counts handoffs between consecutive nights.
func (c Calendar) Transitions() int {
	n := 0
	for i := 1; i < len(c); i++ {
		if c[i].AssignedTo != c[i-1].AssignedTo {
			n++
		}
	}
	return n
}

// GuardianDays counts nights per guardian.
func (c Calendar) GuardianDays() map[GuardianID]int {
	counts := make(map[GuardianID]int, 2)
	for _, day := range c {
		counts[day.AssignedTo]++
	}
	return counts
}

// DisruptionSet maps disrupted dates to the guardian who is unavailable.
type DisruptionSet map[DateKey]GuardianID

// Dates returns the disrupted dates in ascending order, so batch processing
// does not depend on map iteration order.
func (s DisruptionSet) Dates() []DateKey {
	out := make([]DateKey, 0, len(s))
	for k := range s {
		out = append(out, k)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}
