// Package calendar provides the date arithmetic used by the countdown.
//
// Every calendar boundary (day rollover, weekday) is taken in a single fixed
// +05:30 offset. Instants are shifted by that offset and the UTC fields of
// the shifted instant are read; the host timezone is never consulted.
package calendar

import (
	"errors"
	"fmt"
	"regexp"
	"strconv"
	"time"
)

// Offset is the fixed UTC offset all countdown math runs in (IST).
const Offset = 5*time.Hour + 30*time.Minute

// Zone is Offset as a *time.Location, for display formatting only.
var Zone = time.FixedZone("IST", int(Offset/time.Second))

// ErrInvalidDate is returned by Parse for strings that are not YYYY-MM-DD.
var ErrInvalidDate = errors.New("calendar: invalid date, want YYYY-MM-DD")

const secondsPerDay = 24 * 60 * 60

var keyPattern = regexp.MustCompile(`^([0-9]{4})-([0-9]{2})-([0-9]{2})$`)

// Date is a civil calendar date. It is a plain value; equality is by
// (Year, Month, Day) and two Dates can be compared with ==.
type Date struct {
	Year  int
	Month time.Month
	Day   int
}

// Moment is the current date plus clock fields in the fixed offset.
type Moment struct {
	Date
	Hour   int
	Minute int
	Second int
}

// NewDate builds a Date from its fields without normalizing them.
func NewDate(year int, month time.Month, day int) Date {
	return Date{Year: year, Month: month, Day: day}
}

// At resolves t to a Moment in the fixed offset.
func At(t time.Time) Moment {
	shifted := t.UTC().Add(Offset)
	y, m, d := shifted.Date()
	return Moment{
		Date:   Date{Year: y, Month: m, Day: d},
		Hour:   shifted.Hour(),
		Minute: shifted.Minute(),
		Second: shifted.Second(),
	}
}

// Now returns the current Moment in the fixed offset.
func Now() Moment {
	return At(time.Now())
}

// Label renders the moment the way the status line shows it,
// e.g. "Fri, 16 Oct 2026 14:05:09 IST".
func (m Moment) Label() string {
	t := time.Date(m.Year, m.Month, m.Day, m.Hour, m.Minute, m.Second, 0, Zone)
	return t.Format("Mon, 02 Jan 2006 15:04:05 MST")
}

// midnight is the UTC midnight instant of the date. Out-of-range fields are
// normalized by time.Date, which is what gives AddDays its rollover.
func (d Date) midnight() time.Time {
	return time.Date(d.Year, d.Month, d.Day, 0, 0, 0, 0, time.UTC)
}

func fromMidnight(t time.Time) Date {
	y, m, day := t.Date()
	return Date{Year: y, Month: m, Day: day}
}

// Weekday returns 0 (Sunday) through 6 (Saturday).
func (d Date) Weekday() time.Weekday {
	return d.midnight().Weekday()
}

// IsSunday reports whether the date is the weekly rest day.
func (d Date) IsSunday() bool {
	return d.Weekday() == time.Sunday
}

// AddDays shifts the date by n days; n may be negative.
func (d Date) AddDays(n int) Date {
	return fromMidnight(d.midnight().AddDate(0, 0, n))
}

// Key returns the canonical YYYY-MM-DD form used for all lookups.
func (d Date) Key() string {
	return fmt.Sprintf("%04d-%02d-%02d", d.Year, int(d.Month), d.Day)
}

func (d Date) String() string {
	return d.Key()
}

// IsZero reports whether d is the zero Date.
func (d Date) IsZero() bool {
	return d == Date{}
}

// Before reports whether d falls strictly before o.
func (d Date) Before(o Date) bool {
	return Compare(d, o) < 0
}

// After reports whether d falls strictly after o.
func (d Date) After(o Date) bool {
	return Compare(d, o) > 0
}

// DaysSinceEpoch is the signed number of days between 1970-01-01 and d.
func (d Date) DaysSinceEpoch() int64 {
	secs := d.midnight().Unix()
	days := secs / secondsPerDay
	if secs%secondsPerDay != 0 && secs < 0 {
		days--
	}
	return days
}

// Compare orders a and b by their UTC midnight instants.
func Compare(a, b Date) int {
	return a.midnight().Compare(b.midnight())
}

// Parse reads a YYYY-MM-DD string. Only the shape and the numeric groups are
// checked; "2026-02-30" parses and rolls over when used in arithmetic.
func Parse(s string) (Date, error) {
	m := keyPattern.FindStringSubmatch(s)
	if m == nil {
		return Date{}, fmt.Errorf("%w: %q", ErrInvalidDate, s)
	}
	y, errY := strconv.Atoi(m[1])
	mo, errM := strconv.Atoi(m[2])
	d, errD := strconv.Atoi(m[3])
	if errY != nil || errM != nil || errD != nil {
		return Date{}, fmt.Errorf("%w: %q", ErrInvalidDate, s)
	}
	return Date{Year: y, Month: time.Month(mo), Day: d}, nil
}

// MustParse is Parse for compile-time constants; it panics on bad input.
func MustParse(s string) Date {
	d, err := Parse(s)
	if err != nil {
		panic(err)
	}
	return d
}

// MarshalText encodes the date as its key, so Dates read and write as
// plain strings in JSON and YAML.
func (d Date) MarshalText() ([]byte, error) {
	return []byte(d.Key()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (d *Date) UnmarshalText(b []byte) error {
	parsed, err := Parse(string(b))
	if err != nil {
		return err
	}
	*d = parsed
	return nil
}
