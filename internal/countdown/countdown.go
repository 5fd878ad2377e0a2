// Package countdown counts business days to the target and resolves whether
// the count is currently paused.
//
// A business day is any date that is neither a Sunday nor a holiday. While
// today is excluded the displayed count freezes at the previous business
// day's value; it only drops on the first countable day afterwards.
package countdown

import (
	"countdown/internal/calendar"
	"countdown/internal/holiday"
)

// Status is the state of the countdown for today.
type Status string

const (
	StatusActive     Status = "active"
	StatusWeeklyRest Status = "paused-weekly-rest"
	StatusHoliday    Status = "paused-holiday"
	StatusPassed     Status = "passed"
)

// Paused reports whether counting is frozen for today.
func (s Status) Paused() bool {
	return s == StatusWeeklyRest || s == StatusHoliday
}

// Calendar is the holiday view the resolver needs.
type Calendar interface {
	IsExcluded(d calendar.Date) bool
	Lookup(d calendar.Date) (holiday.Entry, bool)
}

// State is the resolved countdown for one day.
type State struct {
	Today         calendar.Date
	Target        calendar.Date
	NextCountable calendar.Date
	Days          int
	Status        Status
	HolidayLabel  string
}

// Message is the human status line for the state.
func (s State) Message() string {
	switch s.Status {
	case StatusPassed:
		return "Target reached or passed"
	case StatusWeeklyRest:
		return "Paused: Sunday (IST)"
	case StatusHoliday:
		if s.HolidayLabel != "" {
			return "Paused: Holiday - " + s.HolidayLabel
		}
		return "Paused: Holiday"
	default:
		return "Counting active"
	}
}

// Count returns the number of non-excluded days in [from, to], inclusive of
// both ends. It is 0 when from is after to.
func Count(from, to calendar.Date, excluded func(calendar.Date) bool) int {
	if from.After(to) {
		return 0
	}
	n := 0
	for cur := from; ; cur = cur.AddDays(1) {
		if !excluded(cur) {
			n++
		}
		if calendar.Compare(cur, to) >= 0 {
			break
		}
	}
	return n
}

// NextCountable walks forward from today while the candidate is excluded.
// The walk stops once it has stepped past target, so the result may be the
// day after target when the whole remaining range is excluded.
func NextCountable(today, target calendar.Date, excluded func(calendar.Date) bool) calendar.Date {
	cur := today
	for excluded(cur) {
		cur = cur.AddDays(1)
		if cur.After(target) {
			break
		}
	}
	return cur
}

// Resolve computes the displayed count and status for today.
func Resolve(today, target calendar.Date, cal Calendar) State {
	excluded := cal.IsExcluded

	next := NextCountable(today, target, excluded)
	days := Count(next, target, excluded)

	todayExcluded := excluded(today)
	passed := today.After(target)
	if todayExcluded && !passed {
		days++
	}

	st := State{
		Today:         today,
		Target:        target,
		NextCountable: next,
		Days:          days,
		Status:        StatusActive,
	}

	switch {
	case passed:
		st.Status = StatusPassed
	case today.IsSunday():
		st.Status = StatusWeeklyRest
	case todayExcluded:
		st.Status = StatusHoliday
		if e, ok := cal.Lookup(today); ok {
			st.HolidayLabel = e.Label
		}
	}

	return st
}
