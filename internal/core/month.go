package core

import (
	"fmt"
	"strings"
	"time"
)

// Month identifies a calendar month.
type Month struct {
	Year  int
	Month time.Month
}

// Window is an inclusive date range. A zero bound is unbounded on that side.
type Window struct {
	From Date
	To   Date
}

// AllTime is the unbounded window.
var AllTime = Window{}

// MonthOf returns the month a date belongs to.
func MonthOf(d Date) Month {
	return Month{Year: d.Year(), Month: time.Month(d.Month())}
}

// CurrentMonth returns the month of today's UTC date.
func CurrentMonth() Month {
	return MonthOf(Today())
}

// ParseMonth parses "YYYY-MM".
func ParseMonth(s string) (Month, error) {
	t, err := time.Parse("2006-01", strings.TrimSpace(s))
	if err != nil {
		return Month{}, invalid("month", fmt.Errorf("expected YYYY-MM, got %q", s))
	}
	return Month{Year: t.Year(), Month: t.Month()}, nil
}

func (m Month) String() string {
	return fmt.Sprintf("%04d-%02d", m.Year, int(m.Month))
}

func (m Month) IsZero() bool { return m.Year == 0 && m.Month == 0 }

// First returns the first day of the month.
func (m Month) First() Date {
	return NewDate(m.Year, int(m.Month), 1)
}

// LastDay returns the number of days in the month.
func (m Month) LastDay() int {
	return time.Date(m.Year, m.Month+1, 0, 0, 0, 0, 0, time.UTC).Day()
}

// Last returns the last day of the month.
func (m Month) Last() Date {
	return NewDate(m.Year, int(m.Month), m.LastDay())
}

// Window returns [first day, last day].
func (m Month) Window() Window {
	return Window{From: m.First(), To: m.Last()}
}

// Previous returns the calendar month before m.
func (m Month) Previous() Month {
	return MonthOf(NewDate(m.Year, int(m.Month)-1, 1))
}

// Next returns the calendar month after m.
func (m Month) Next() Month {
	return MonthOf(NewDate(m.Year, int(m.Month)+1, 1))
}

// Clamp returns the date in m for the given day-of-month, pulled back to the
// month's last day when the day does not exist (31 -> 30, 29 -> 28, ...).
func (m Month) Clamp(day int) Date {
	if last := m.LastDay(); day > last {
		day = last
	}
	if day < 1 {
		day = 1
	}
	return NewDate(m.Year, int(m.Month), day)
}

func (m Month) Contains(d Date) bool {
	return m.Window().Contains(d)
}

// Contains reports whether d falls within the window, bounds inclusive.
func (w Window) Contains(d Date) bool {
	if !w.From.IsZero() && d.Before(w.From) {
		return false
	}
	if !w.To.IsZero() && d.After(w.To) {
		return false
	}
	return true
}

func (w Window) IsAllTime() bool {
	return w.From.IsZero() && w.To.IsZero()
}
