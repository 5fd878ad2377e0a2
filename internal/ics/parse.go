// Package ics turns public holiday calendars (iCalendar feeds) into holiday
// entries for the countdown.
package ics

import (
	"bytes"
	"errors"
	"strings"
	"time"

	ical "github.com/arran4/golang-ical"

	"countdown/internal/calendar"
	appLog "countdown/internal/log"
)

// Feed is a single holiday calendar subscription.
type Feed struct {
	ID    string
	Name  string
	URL   string
	Theme string
}

// ParsedEvent is a VEVENT reduced to what holiday expansion needs.
type ParsedEvent struct {
	FeedID  string
	UID     string
	Summary string

	AllDay bool
	// For all-day events the civil dates straight from DTSTART/DTEND
	// (end exclusive). The DTSTART value is read as written so no zone
	// conversion can shift the day.
	StartDate calendar.Date
	EndDate   calendar.Date
	// For timed events the absolute start.
	Start time.Time

	RawRRule string
	ExDates  []time.Time
}

// Days is how many civil dates an all-day event covers.
func (ev ParsedEvent) Days() int {
	if !ev.AllDay {
		return 1
	}
	n := int(ev.EndDate.DaysSinceEpoch() - ev.StartDate.DaysSinceEpoch())
	if n < 1 {
		return 1
	}
	return n
}

// ParseICS parses one ICS payload. Events that cannot be read are logged
// and skipped.
func ParseICS(feed Feed, body []byte) ([]ParsedEvent, error) {
	if len(body) == 0 {
		return nil, errors.New("ics: empty body")
	}

	cal, err := ical.ParseCalendar(bytes.NewReader(body))
	if err != nil {
		appLog.Error("ics parse failed", err, "feed", feed.ID)
		return nil, err
	}

	events := make([]ParsedEvent, 0)
	for _, ve := range cal.Events() {
		ev, perr := parseVEvent(feed, ve)
		if perr != nil {
			appLog.Warn("ics vevent skipped", "feed", feed.ID, "err", perr)
			continue
		}
		events = append(events, ev)
	}

	appLog.Info("ics parse completed", "feed", feed.ID, "event_count", len(events))
	return events, nil
}

func parseVEvent(feed Feed, ve *ical.VEvent) (ParsedEvent, error) {
	out := ParsedEvent{FeedID: feed.ID}

	if p := ve.GetProperty(ical.ComponentPropertyUniqueId); p != nil {
		out.UID = p.Value
	}
	if p := ve.GetProperty(ical.ComponentPropertySummary); p != nil {
		out.Summary = strings.TrimSpace(p.Value)
	}
	if out.Summary == "" {
		out.Summary = feed.Name
	}

	dtStart := ve.GetProperty(ical.ComponentPropertyDtStart)
	if dtStart == nil || strings.TrimSpace(dtStart.Value) == "" {
		return out, errors.New("missing DTSTART")
	}
	out.AllDay = isDateValue(dtStart)

	if out.AllDay {
		start, err := parseDate(dtStart.Value)
		if err != nil {
			return out, err
		}
		out.StartDate = start
		out.EndDate = start.AddDays(1)
		if dtEnd := ve.GetProperty(ical.ComponentPropertyDtEnd); dtEnd != nil {
			if end, err := parseDate(dtEnd.Value); err == nil && end.After(start) {
				out.EndDate = end
			}
		}
	} else {
		start, err := ve.GetStartAt()
		if err != nil {
			return out, err
		}
		out.Start = start
	}

	if p := ve.GetProperty(ical.ComponentPropertyRrule); p != nil {
		out.RawRRule = p.Value
	}

	for _, p := range ve.GetProperties(ical.ComponentPropertyExdate) {
		loc := zoneParam(p)
		for _, part := range strings.Split(p.Value, ",") {
			part = strings.TrimSpace(part)
			if part == "" {
				continue
			}
			if t, err := parseICSTime(part, loc); err == nil {
				out.ExDates = append(out.ExDates, t)
			}
		}
	}

	return out, nil
}

// isDateValue reports VALUE=DATE or a bare YYYYMMDD value.
func isDateValue(p *ical.IANAProperty) bool {
	if vs, ok := p.ICalParameters["VALUE"]; ok && len(vs) > 0 && strings.EqualFold(vs[0], "DATE") {
		return true
	}
	return !strings.Contains(p.Value, "T")
}

func zoneParam(p *ical.IANAProperty) *time.Location {
	if tzs, ok := p.ICalParameters["TZID"]; ok && len(tzs) > 0 {
		if loc, err := time.LoadLocation(tzs[0]); err == nil {
			return loc
		}
	}
	return calendar.Zone
}

func parseDate(v string) (calendar.Date, error) {
	v = strings.TrimSpace(v)
	if len(v) >= 8 {
		v = v[:8]
	}
	t, err := time.Parse("20060102", v)
	if err != nil {
		return calendar.Date{}, calendar.ErrInvalidDate
	}
	return calendar.NewDate(t.Year(), t.Month(), t.Day()), nil
}

// parseICSTime parses DATE and DATE-TIME values. Dates become UTC midnight,
// matching how all-day recurrences are expanded. Floating times are read in
// loc.
func parseICSTime(v string, loc *time.Location) (time.Time, error) {
	v = strings.TrimSpace(v)
	switch {
	case v == "":
		return time.Time{}, errors.New("empty time value")
	case strings.HasSuffix(v, "Z"):
		return time.Parse("20060102T150405Z", v)
	case strings.Contains(v, "T"):
		return time.ParseInLocation("20060102T150405", v, loc)
	default:
		return time.Parse("20060102", v)
	}
}
