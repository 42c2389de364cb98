package preview

import (
	"context"
	"reflect"
	"testing"

	"github.com/coparent/rota/core/model"
	"github.com/coparent/rota/core/optimize"
	"github.com/coparent/rota/core/rebalance"
)

func testConfig() rebalance.Config {
	cfg := rebalance.Config{GuardianA: "A", GuardianB: "B"}
	cfg.SetDefaults()
	return cfg
}

func blocks(start model.DateKey, totalDays int) model.Calendar {
	cal := make(model.Calendar, totalDays)
	current := model.GuardianID("A")
	for i := 0; i < totalDays; i++ {
		if i > 0 && i%3 == 0 {
			current = model.Other(current, "A", "B")
		}
		cal[i] = model.Day{Date: start.AddDays(i), AssignedTo: current}
	}
	return cal
}

func TestNewOverlayIsClean(t *testing.T) {
	o := New(blocks("2024-06-01", 9))
	if o.Dirty {
		t.Fatalf("fresh overlay must not be dirty")
	}
	if len(o.Diff()) != 0 {
		t.Fatalf("fresh overlay must have an empty diff")
	}
}

func TestMarkDisruptedDoesNotRebalance(t *testing.T) {
	base := blocks("2024-06-01", 9)
	o := New(base).MarkDisrupted("2024-06-04", "B")
	if !o.Dirty {
		t.Fatalf("overlay should be dirty")
	}
	// Declaring the fact computes nothing: the effective calendar still
	// matches the base until RunRebalance is called.
	if !reflect.DeepEqual(o.Effective(), base) {
		t.Fatalf("MarkDisrupted must not change the effective calendar")
	}
}

func TestOverlayValueSemantics(t *testing.T) {
	base := blocks("2024-06-01", 9)
	o := New(base)
	o2 := o.MarkDisrupted("2024-06-04", "B")
	if len(o.Disruptions) != 0 {
		t.Fatalf("operation mutated its receiver")
	}
	o3 := o2.ApplyManual("2024-06-01", "B")
	if len(o2.Manual) != 0 {
		t.Fatalf("ApplyManual mutated its receiver")
	}
	_ = o3
}

func TestManualWinsOverProposed(t *testing.T) {
	base := blocks("2024-06-01", 9)
	stage := NewStage(rebalance.New(testConfig(), nil), nil, nil)

	o := New(base).MarkDisrupted("2024-06-04", "A")
	o, _ = stage.RunRebalance(context.Background(), o)

	// The rebalance is free to propose anything for 06-01; pinning it
	// manually must win regardless.
	o = o.ApplyManual("2024-06-01", "B")
	day, _ := o.Effective().At("2024-06-01")
	if day.AssignedTo != "B" {
		t.Fatalf("manual layer lost: %+v", day)
	}
}

func TestRunRebalanceStagesIntoProposed(t *testing.T) {
	base := blocks("2024-06-01", 9)
	stage := NewStage(rebalance.New(testConfig(), nil), nil, nil)

	o := New(base).MarkDisrupted("2024-06-04", "B")
	o, _ = stage.RunRebalance(context.Background(), o)

	if !reflect.DeepEqual(o.Base, base) {
		t.Fatalf("RunRebalance must not touch the base layer")
	}
	if len(o.Proposed) == 0 {
		t.Fatalf("expected staged changes")
	}
	day, _ := o.Effective().At("2024-06-04")
	if day.AssignedTo != "A" {
		t.Fatalf("disrupted night not flipped in effective view")
	}
}

func TestClearDisruptionDropsItsProposedNight(t *testing.T) {
	base := blocks("2024-06-01", 9)
	stage := NewStage(rebalance.New(testConfig(), nil), nil, nil)

	o := New(base).MarkDisrupted("2024-06-04", "B")
	o, _ = stage.RunRebalance(context.Background(), o)
	if _, ok := o.Proposed["2024-06-04"]; !ok {
		t.Fatalf("expected proposed entry for the disrupted night")
	}

	o = o.ClearDisruption("2024-06-04")
	if _, ok := o.Proposed["2024-06-04"]; ok {
		t.Fatalf("proposed night should vanish with its disruption")
	}
	if _, ok := o.Disruptions["2024-06-04"]; ok {
		t.Fatalf("disruption not cleared")
	}
}

func TestClearLastDisruptionResetsDirty(t *testing.T) {
	o := New(blocks("2024-06-01", 9)).MarkDisrupted("2024-06-04", "B")
	o = o.ClearDisruption("2024-06-04")
	if o.Dirty {
		t.Fatalf("overlay with all layers empty must not be dirty")
	}
}

func TestDiffSoundness(t *testing.T) {
	base := blocks("2024-06-01", 9)
	stage := NewStage(rebalance.New(testConfig(), nil), nil, nil)

	o := New(base).MarkDisrupted("2024-06-04", "B")
	o, _ = stage.RunRebalance(context.Background(), o)
	o = o.ApplyManual("2024-06-09", "B")

	effective := o.Effective()
	recorded := map[model.DateKey]bool{}
	for _, rec := range o.Diff() {
		recorded[rec.Date] = true
		base, _ := o.Base.At(rec.Date)
		eff, _ := effective.At(rec.Date)
		if base.AssignedTo == eff.AssignedTo {
			t.Errorf("diff entry for unchanged night %s", rec.Date)
		}
		if rec.From != base.AssignedTo || rec.To != eff.AssignedTo {
			t.Errorf("diff record mismatch for %s: %+v", rec.Date, rec)
		}
	}
	for i := range base {
		if base[i].AssignedTo != effective[i].AssignedTo && !recorded[base[i].Date] {
			t.Errorf("changed night %s missing from diff", base[i].Date)
		}
	}
}

func TestDiffCausePrecedence(t *testing.T) {
	base := blocks("2024-06-01", 9)
	stage := NewStage(rebalance.New(testConfig(), nil), nil, nil)

	o := New(base).MarkDisrupted("2024-06-04", "B")
	o, _ = stage.RunRebalance(context.Background(), o)
	o = o.ApplyManual("2024-06-09", "B")

	causes := map[model.DateKey]model.ChangeCause{}
	for _, rec := range o.Diff() {
		causes[rec.Date] = rec.Cause
	}
	if causes["2024-06-04"] != model.CauseDisruption {
		t.Errorf("expected disruption cause for 06-04, got %s", causes["2024-06-04"])
	}
	if causes["2024-06-09"] != model.CauseManual {
		t.Errorf("expected manual cause for 06-09, got %s", causes["2024-06-09"])
	}
	for date, cause := range causes {
		if date != "2024-06-04" && date != "2024-06-09" && cause != model.CauseAutoBalance {
			t.Errorf("expected auto_balance cause for %s, got %s", date, cause)
		}
	}
}

func TestDiffSortedAscending(t *testing.T) {
	base := blocks("2024-06-01", 14)
	o := New(base).
		ApplyManual("2024-06-10", "A").
		ApplyManual("2024-06-02", "B")
	recs := o.Diff()
	for i := 1; i < len(recs); i++ {
		if recs[i-1].Date >= recs[i].Date {
			t.Fatalf("diff not sorted: %v", recs)
		}
	}
}

func TestCommitFlattens(t *testing.T) {
	base := blocks("2024-06-01", 9)
	stage := NewStage(rebalance.New(testConfig(), nil), nil, nil)

	o := New(base).MarkDisrupted("2024-06-04", "B")
	o, _ = stage.RunRebalance(context.Background(), o)
	committed := o.Commit()

	if !reflect.DeepEqual(committed, o.Effective()) {
		t.Fatalf("commit must equal the effective calendar")
	}
	if err := committed.Validate("A", "B"); err != nil {
		t.Fatalf("committed calendar invalid: %v", err)
	}
	// Committing again over the new base is clean.
	if next := New(committed); next.Dirty || len(next.Diff()) != 0 {
		t.Fatalf("fresh overlay over committed base should be clean")
	}
}

type fixedOptimizer struct {
	resp optimize.Response
}

func (f fixedOptimizer) Propose(context.Context, optimize.Request) (optimize.Response, error) {
	return f.resp, nil
}

func TestRunRebalanceRejectsBadOptimizer(t *testing.T) {
	// The optimizer proposes welding a five-night run; the validator must
	// discard it and the staged result must equal the pure rebalancer
	// output, with the rejection reason surfaced.
	base := blocks("2024-06-01", 9)
	disruptions := model.DisruptionSet{"2024-06-04": "B"}
	cfg := testConfig()
	reb := rebalance.New(cfg, nil)
	pure := reb.Rebalance(base, disruptions)

	bad := fixedOptimizer{resp: optimize.Response{Changes: []optimize.Change{
		{Date: "2024-06-05", From: "B", To: "A"},
		{Date: "2024-06-06", From: "B", To: "A"},
	}}}
	stage := NewStage(reb, optimize.NewRefiner(bad, cfg, 0, nil), nil)

	o := New(base).MarkDisrupted("2024-06-04", "B")
	o, explanation := stage.RunRebalance(context.Background(), o)

	if explanation == "" {
		t.Fatalf("expected a rejection reason")
	}
	if !reflect.DeepEqual(o.Effective(), pure) {
		t.Fatalf("staged result must fall back to the rebalancer output")
	}
}
