// Package quote picks the quote of the day.
package quote

import "countdown/internal/calendar"

// Book holds per-date overrides and the rotating fallback list.
type Book struct {
	ByDate   map[string]string
	Fallback []string
}

// For returns the quote for d.
func (b Book) For(d calendar.Date) string {
	return Resolve(d, b.ByDate, b.Fallback)
}

// Resolve returns the override keyed by d's DateKey verbatim when present.
// Otherwise it picks fallback[|days since epoch| mod len], which is stable
// for a given date and list. An empty list yields "".
func Resolve(d calendar.Date, overrides map[string]string, fallback []string) string {
	if q, ok := overrides[d.Key()]; ok {
		return q
	}
	if len(fallback) == 0 {
		return ""
	}
	n := d.DaysSinceEpoch()
	if n < 0 {
		n = -n
	}
	return fallback[n%int64(len(fallback))]
}
