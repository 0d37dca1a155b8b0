package core

import (
	"testing"
	"time"
)

func TestMonthWindow(t *testing.T) {
	m := Month{Year: 2024, Month: time.February}
	w := m.Window()
	if w.From.String() != "2024-02-01" || w.To.String() != "2024-02-29" {
		t.Fatalf("unexpected window %s..%s", w.From, w.To)
	}
	if !w.Contains(NewDate(2024, 2, 29)) || w.Contains(NewDate(2024, 3, 1)) {
		t.Fatal("window bounds are not inclusive of the month only")
	}
}

func TestMonthPreviousAcrossYear(t *testing.T) {
	m := Month{Year: 2024, Month: time.January}
	if got := m.Previous(); got != (Month{Year: 2023, Month: time.December}) {
		t.Fatalf("Previous() = %v", got)
	}
	if got := m.Previous().Next(); got != m {
		t.Fatalf("Next(Previous()) = %v", got)
	}
}

func TestMonthClamp(t *testing.T) {
	cases := []struct {
		month Month
		day   int
		want  string
	}{
		{Month{2023, time.February}, 31, "2023-02-28"},
		{Month{2024, time.February}, 31, "2024-02-29"},
		{Month{2024, time.April}, 31, "2024-04-30"},
		{Month{2024, time.March}, 15, "2024-03-15"},
	}
	for _, tc := range cases {
		if got := tc.month.Clamp(tc.day).String(); got != tc.want {
			t.Fatalf("%s.Clamp(%d) = %s, want %s", tc.month, tc.day, got, tc.want)
		}
	}
}

func TestParseMonth(t *testing.T) {
	m, err := ParseMonth("2024-03")
	if err != nil || m.String() != "2024-03" {
		t.Fatalf("ParseMonth = %v, %v", m, err)
	}
	if _, err := ParseMonth("March"); err == nil {
		t.Fatal("expected error")
	}
}

func TestAllTimeWindow(t *testing.T) {
	if !AllTime.IsAllTime() || !AllTime.Contains(NewDate(1990, 1, 1)) {
		t.Fatal("AllTime should contain every date")
	}
}
