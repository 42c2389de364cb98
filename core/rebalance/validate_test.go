package rebalance

import (
	"strings"
	"testing"

	"github.com/coparent/rota/core/model"
)

func TestCheckAcceptsValidCalendar(t *testing.T) {
	cal := blocks("2024-06-01", 12)
	if reasons := Check(cal, testConfig()); len(reasons) != 0 {
		t.Fatalf("unexpected violations: %v", reasons)
	}
}

func TestCheckFlagsInteriorIsland(t *testing.T) {
	cal := model.Calendar{
		{Date: "2024-06-01", AssignedTo: "A"},
		{Date: "2024-06-02", AssignedTo: "A"},
		{Date: "2024-06-03", AssignedTo: "B"},
		{Date: "2024-06-04", AssignedTo: "A"},
		{Date: "2024-06-05", AssignedTo: "A"},
	}
	reasons := Check(cal, testConfig())
	if len(reasons) != 1 || !strings.Contains(reasons[0], "island") {
		t.Fatalf("expected single island violation, got %v", reasons)
	}
}

func TestCheckAllowsBoundaryFragments(t *testing.T) {
	// A lone first or last night may continue a run outside the horizon.
	cal := model.Calendar{
		{Date: "2024-06-01", AssignedTo: "B"},
		{Date: "2024-06-02", AssignedTo: "A"},
		{Date: "2024-06-03", AssignedTo: "A"},
		{Date: "2024-06-04", AssignedTo: "B"},
		{Date: "2024-06-05", AssignedTo: "B"},
		{Date: "2024-06-06", AssignedTo: "A"},
	}
	if reasons := Check(cal, testConfig()); len(reasons) != 0 {
		t.Fatalf("boundary fragments flagged: %v", reasons)
	}
}

func TestCheckFlagsOverlongRun(t *testing.T) {
	cal := blocks("2024-06-01", 12)
	for i := 3; i < 8; i++ {
		cal[i].AssignedTo = "A"
	}
	reasons := Check(cal, testConfig())
	found := false
	for _, r := range reasons {
		if strings.Contains(r, "exceeds cap") {
			found = true
		}
	}
	if !found {
		t.Fatalf("expected run-length violation, got %v", reasons)
	}
}

func TestCheckFlagsUnfairHorizon(t *testing.T) {
	cal := model.Calendar{}
	start := model.DateKey("2024-06-01")
	for i := 0; i < 20; i++ {
		g := model.GuardianID("A")
		if i >= 16 {
			g = "B"
		}
		cal = append(cal, model.Day{Date: start.AddDays(i), AssignedTo: g})
	}
	reasons := Check(cal, testConfig())
	found := false
	for _, r := range reasons {
		if strings.Contains(r, "fairness") {
			found = true
		}
	}
	if !found {
		t.Fatalf("expected fairness violation, got %v", reasons)
	}
}

func TestCheckFlagsDisruptedAssignment(t *testing.T) {
	cal := blocks("2024-06-01", 9)
	cal[3].IsDisrupted = true
	cal[3].DisruptedBy = cal[3].AssignedTo
	reasons := Check(cal, testConfig())
	found := false
	for _, r := range reasons {
		if strings.Contains(r, "unavailable guardian") {
			found = true
		}
	}
	if !found {
		t.Fatalf("expected disruption violation, got %v", reasons)
	}
}
