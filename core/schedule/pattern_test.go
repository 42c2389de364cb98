package schedule

import (
	"testing"

	"github.com/coparent/rota/core/model"
)

func assignments(cal model.Calendar) []model.GuardianID {
	out := make([]model.GuardianID, len(cal))
	for i, d := range cal {
		out[i] = d.AssignedTo
	}
	return out
}

func TestGenerateAlternatingBlocks(t *testing.T) {
	gen := NewGenerator("A", "B")
	cal := gen.Generate("2024-06-01", "A", 9)
	want := []model.GuardianID{"A", "A", "A", "B", "B", "B", "A", "A", "A"}
	got := assignments(cal)
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("day %d: got %s want %s (full: %v)", i, got[i], want[i], got)
		}
	}
	if cal[0].Date != "2024-06-01" || cal[8].Date != "2024-06-09" {
		t.Fatalf("unexpected date range %s..%s", cal[0].Date, cal[8].Date)
	}
	if err := cal.Validate("A", "B"); err != nil {
		t.Fatalf("generated calendar invalid: %v", err)
	}
}

func TestGenerateEmptyInput(t *testing.T) {
	gen := NewGenerator("A", "B")
	if cal := gen.Generate("2024-06-01", "A", 0); len(cal) != 0 {
		t.Fatalf("expected empty calendar, got %d days", len(cal))
	}
	if cal := gen.Generate("2024-06-01", "A", -3); len(cal) != 0 {
		t.Fatalf("expected empty calendar for negative length")
	}
}

func TestExtendStaysInPhase(t *testing.T) {
	gen := NewGenerator("A", "B")
	// Seven days ends mid-block: A,A,A,B,B,B,A. The trailing A run has
	// length 1 and must be completed before the next handoff.
	cal := gen.Generate("2024-06-01", "A", 7)
	out := gen.Extend(cal, "2024-06-12")
	want := []model.GuardianID{"A", "A", "A", "B", "B", "B", "A", "A", "A", "B", "B", "B"}
	got := assignments(out)
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("day %d: got %s want %s (full: %v)", i, got[i], want[i], got)
		}
	}
	if err := out.Validate("A", "B"); err != nil {
		t.Fatalf("extended calendar invalid: %v", err)
	}
}

func TestExtendNoSeamIsland(t *testing.T) {
	gen := NewGenerator("A", "B")
	cal := gen.Generate("2024-06-01", "A", 9)
	out := gen.Extend(cal, "2024-06-30")

	// No interior single-day run anywhere, including at the seam.
	for i := 1; i < len(out)-1; i++ {
		if out[i].AssignedTo != out[i-1].AssignedTo && out[i].AssignedTo != out[i+1].AssignedTo {
			t.Fatalf("island at %s: %v", out[i].Date, assignments(out))
		}
	}
}

func TestExtendPastTargetIsNoop(t *testing.T) {
	gen := NewGenerator("A", "B")
	cal := gen.Generate("2024-06-01", "A", 9)
	out := gen.Extend(cal, "2024-06-05")
	if len(out) != len(cal) {
		t.Fatalf("expected no-op, got %d days", len(out))
	}
}

func TestExtendEmptyCalendar(t *testing.T) {
	gen := NewGenerator("A", "B")
	if out := gen.Extend(model.Calendar{}, "2024-06-05"); len(out) != 0 {
		t.Fatalf("expected empty result")
	}
}

func TestGenerateCustomBlockLength(t *testing.T) {
	gen := NewGenerator("A", "B")
	gen.BlockLength = 2
	cal := gen.Generate("2024-06-01", "B", 6)
	want := []model.GuardianID{"B", "B", "A", "A", "B", "B"}
	got := assignments(cal)
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("day %d: got %s want %s", i, got[i], want[i])
		}
	}
}
