package domain

import (
	"testing"
	"time"
)

func date(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func TestHolidayMatchesExact(t *testing.T) {
	h := &Holiday{Name: "Founders Day", Date: date(2025, time.April, 14)}

	if !h.Matches(date(2025, time.April, 14)) {
		t.Error("exact date should match")
	}
	if h.Matches(date(2026, time.April, 14)) {
		t.Error("non-recurring holiday should not match other years")
	}
}

func TestHolidayMatchesRecurring(t *testing.T) {
	h := &Holiday{Name: "Republic Day", Date: date(2020, time.January, 26), IsRecurring: true}

	if !h.Matches(date(2025, time.January, 26)) {
		t.Error("recurring holiday should match any year")
	}
	if h.Matches(date(2025, time.January, 27)) {
		t.Error("different day should not match")
	}
}

func TestCirculationOverdue(t *testing.T) {
	now := time.Date(2025, 5, 20, 10, 0, 0, 0, time.UTC)

	c := &CirculationRecord{DueDate: date(2025, time.May, 20)}
	if c.IsOverdue(now) {
		t.Error("due today is not overdue")
	}

	c.DueDate = date(2025, time.May, 19)
	if !c.IsOverdue(now) {
		t.Error("due yesterday is overdue")
	}

	ret := date(2025, time.May, 21)
	c.ReturnDate = &ret
	if c.IsOverdue(now) {
		t.Error("returned record is never overdue")
	}
}

func TestGateDirectionOpposite(t *testing.T) {
	if GateIn.Opposite() != GateOut {
		t.Error("in should flip to out")
	}
	if GateOut.Opposite() != GateIn {
		t.Error("out should flip to in")
	}
}
