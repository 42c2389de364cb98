// Package preview stages tentative calendar edits in a layered overlay so a
// user can try out, compare, and commit or discard a batch of changes before
// they become permanent. The effective value of a night is resolved manual >
// proposed > base. Every operation returns a new overlay value; undo/redo and
// equality checks come for free.
package preview

import (
	"sort"

	"github.com/coparent/rota/core/model"
)

// Overlay layers tentative edits over a base calendar.
type Overlay struct {
	Base        model.Calendar              `json:"base"`
	Disruptions model.DisruptionSet         `json:"disruptions"`
	Proposed    map[model.DateKey]model.Day `json:"proposed"`
	Manual      map[model.DateKey]model.Day `json:"manual"`
	Dirty       bool                        `json:"dirty"`
}

// New returns a clean overlay over base.
func New(base model.Calendar) Overlay {
	return Overlay{
		Base:        base,
		Disruptions: model.DisruptionSet{},
		Proposed:    map[model.DateKey]model.Day{},
		Manual:      map[model.DateKey]model.Day{},
	}
}

func (o Overlay) clone() Overlay {
	out := Overlay{Base: o.Base, Dirty: o.Dirty}
	out.Disruptions = make(model.DisruptionSet, len(o.Disruptions))
	for k, v := range o.Disruptions {
		out.Disruptions[k] = v
	}
	out.Proposed = make(map[model.DateKey]model.Day, len(o.Proposed))
	for k, v := range o.Proposed {
		out.Proposed[k] = v
	}
	out.Manual = make(map[model.DateKey]model.Day, len(o.Manual))
	for k, v := range o.Manual {
		out.Manual[k] = v
	}
	return out
}

func (o Overlay) recomputeDirty() Overlay {
	o.Dirty = len(o.Disruptions) > 0 || len(o.Proposed) > 0 || len(o.Manual) > 0
	return o
}

// MarkDisrupted declares guardian g unavailable on date. Declaring the fact
// is separate from computing a response; no rebalancing happens here.
func (o Overlay) MarkDisrupted(date model.DateKey, g model.GuardianID) Overlay {
	out := o.clone()
	out.Disruptions[date] = g
	return out.recomputeDirty()
}

// ClearDisruption withdraws a declared disruption. A proposed night that
// existed only because of this disruption is dropped with it.
func (o Overlay) ClearDisruption(date model.DateKey) Overlay {
	out := o.clone()
	g, had := out.Disruptions[date]
	delete(out.Disruptions, date)
	if had {
		if p, ok := out.Proposed[date]; ok && p.IsDisrupted && p.DisruptedBy == g {
			delete(out.Proposed, date)
		}
	}
	return out.recomputeDirty()
}

// ApplyManual pins date to guardian g. Manual intent always wins over
// whatever rebalancing proposes for that night, until the overlay is reset.
func (o Overlay) ApplyManual(date model.DateKey, g model.GuardianID) Overlay {
	day, ok := o.Base.At(date)
	if !ok {
		return o
	}
	out := o.clone()
	if day.AssignedTo != g && day.OriginalAssignedTo == "" {
		day.OriginalAssignedTo = day.AssignedTo
	}
	day.AssignedTo = g
	out.Manual[date] = day
	return out.recomputeDirty()
}

// withProposed replaces the proposed layer wholesale.
func (o Overlay) withProposed(proposed map[model.DateKey]model.Day) Overlay {
	out := o.clone()
	out.Proposed = proposed
	return out.recomputeDirty()
}

// Effective flattens the overlay into a calendar: base overlaid by proposed
// overlaid by manual.
func (o Overlay) Effective() model.Calendar {
	out := o.Base.Clone()
	for i := range out {
		if day, ok := o.Proposed[out[i].Date]; ok {
			out[i] = day
		}
		if day, ok := o.Manual[out[i].Date]; ok {
			out[i] = day
		}
	}
	return out
}

// Diff returns one record per night whose effective assignment differs from
// the base, sorted by date. The cause follows layer precedence: a manual
// entry wins, then a declared disruption, then automatic balancing.
func (o Overlay) Diff() []model.ChangeRecord {
	effective := o.Effective()
	var records []model.ChangeRecord
	for i, day := range effective {
		base := o.Base[i]
		if base.AssignedTo == day.AssignedTo {
			continue
		}
		cause := model.CauseAutoBalance
		if _, ok := o.Manual[day.Date]; ok {
			cause = model.CauseManual
		} else if _, ok := o.Disruptions[day.Date]; ok {
			cause = model.CauseDisruption
		}
		records = append(records, model.ChangeRecord{
			Date:  day.Date,
			From:  base.AssignedTo,
			To:    day.AssignedTo,
			Cause: cause,
		})
	}
	sort.Slice(records, func(i, j int) bool { return records[i].Date < records[j].Date })
	return records
}

// Commit flattens the overlay into a new source-of-truth base. The caller is
// expected to drop the overlay afterwards.
func (o Overlay) Commit() model.Calendar {
	return o.Effective()
}
