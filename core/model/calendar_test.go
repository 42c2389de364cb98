package model

import "testing"

func mkCalendar(start DateKey, assignments ...GuardianID) Calendar {
	cal := make(Calendar, len(assignments))
	for i, g := range assignments {
		cal[i] = Day{Date: start.AddDays(i), AssignedTo: g}
	}
	return cal
}

func TestParseDateKey(t *testing.T) {
	if _, err := ParseDateKey("2024-06-01"); err != nil {
		t.Fatalf("valid key rejected: %v", err)
	}
	for _, bad := range []DateKey{"2024-6-1", "01-06-2024", "2024/06/01", "tomorrow", ""} {
		if _, err := ParseDateKey(bad); err == nil {
			t.Errorf("expected error for %q", bad)
		}
	}
}

func TestDateArithmetic(t *testing.T) {
	if got := DateKey("2024-06-28").AddDays(3); got != "2024-07-01" {
		t.Fatalf("month rollover: got %s", got)
	}
	if got := DateKey("2024-02-28").AddDays(1); got != "2024-02-29" {
		t.Fatalf("leap day: got %s", got)
	}
	if got := DaysBetween("2024-06-01", "2024-06-15"); got != 14 {
		t.Fatalf("DaysBetween forward: got %d", got)
	}
	if got := DaysBetween("2024-06-15", "2024-06-01"); got != -14 {
		t.Fatalf("DaysBetween backward: got %d", got)
	}
}

func TestFindAndAt(t *testing.T) {
	cal := mkCalendar("2024-06-01", "A", "A", "B", "B")
	i, ok := cal.Find("2024-06-03")
	if !ok || i != 2 {
		t.Fatalf("Find: got %d %v", i, ok)
	}
	if _, ok := cal.Find("2024-07-01"); ok {
		t.Fatalf("Find should miss out-of-range date")
	}
	day, ok := cal.At("2024-06-02")
	if !ok || day.AssignedTo != "A" {
		t.Fatalf("At: got %+v", day)
	}
}

func TestWithChangeProvenanceIsWriteOnce(t *testing.T) {
	cal := mkCalendar("2024-06-01", "A", "B")
	to := GuardianID("B")
	once := cal.WithChange("2024-06-01", DayPatch{AssignedTo: &to})
	day, _ := once.At("2024-06-01")
	if day.AssignedTo != "B" || day.OriginalAssignedTo != "A" {
		t.Fatalf("first flip: %+v", day)
	}

	// Flipping back must not overwrite the recorded origin.
	back := GuardianID("A")
	twice := once.WithChange("2024-06-01", DayPatch{AssignedTo: &back})
	day, _ = twice.At("2024-06-01")
	if day.OriginalAssignedTo != "A" {
		t.Fatalf("provenance overwritten: %+v", day)
	}

	// The input calendar is untouched.
	if cal[0].AssignedTo != "A" || cal[0].OriginalAssignedTo != "" {
		t.Fatalf("input mutated: %+v", cal[0])
	}
}

func TestValidateGap(t *testing.T) {
	cal := Calendar{
		{Date: "2024-06-01", AssignedTo: "A"},
		{Date: "2024-06-03", AssignedTo: "B"},
	}
	if err := cal.Validate("A", "B"); err == nil {
		t.Fatalf("expected gap error")
	}
}

func TestValidateUnknownGuardian(t *testing.T) {
	cal := mkCalendar("2024-06-01", "A", "C")
	if err := cal.Validate("A", "B"); err == nil {
		t.Fatalf("expected unknown guardian error")
	}
}

func TestTransitionsAndCounts(t *testing.T) {
	cal := mkCalendar("2024-06-01", "A", "A", "B", "B", "A")
	if got := cal.Transitions(); got != 2 {
		t.Fatalf("transitions: got %d", got)
	}
	counts := cal.GuardianDays()
	if counts["A"] != 3 || counts["B"] != 2 {
		t.Fatalf("counts: %v", counts)
	}
}

func TestDisruptionSetDatesSorted(t *testing.T) {
	s := DisruptionSet{"2024-06-20": "A", "2024-06-02": "B", "2024-06-11": "A"}
	dates := s.Dates()
	want := []DateKey{"2024-06-02", "2024-06-11", "2024-06-20"}
	for i, d := range want {
		if dates[i] != d {
			t.Fatalf("order: got %v", dates)
		}
	}
}
