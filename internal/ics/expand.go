package ics

import (
	"errors"
	"time"

	"github.com/teambition/rrule-go"

	"countdown/internal/calendar"
	"countdown/internal/holiday"
	appLog "countdown/internal/log"
)

const defaultMaxOccurrencesPerEvent = 1000

// Window is the inclusive range of civil dates holidays are produced for.
type Window struct {
	From calendar.Date
	To   calendar.Date
}

// WindowFor covers the recent past (so a holiday that is "today" after a
// late reload is still present) through the day after the target.
func WindowFor(today, target calendar.Date) Window {
	to := target.AddDays(1)
	if today.After(to) {
		to = today
	}
	return Window{From: today.AddDays(-31), To: to}
}

func (w Window) contains(d calendar.Date) bool {
	return !d.Before(w.From) && !d.After(w.To)
}

func utcMidnight(d calendar.Date) time.Time {
	return time.Date(d.Year, d.Month, d.Day, 0, 0, 0, 0, time.UTC)
}

func dateOfUTC(t time.Time) calendar.Date {
	t = t.UTC()
	return calendar.NewDate(t.Year(), t.Month(), t.Day())
}

// Expand turns parsed events into holiday entries inside win. Entries carry
// the feed's theme and the event summary as label.
func Expand(feed Feed, events []ParsedEvent, win Window) ([]holiday.Entry, error) {
	if win.To.Before(win.From) {
		return nil, errors.New("ics: window end before start")
	}

	out := make([]holiday.Entry, 0)
	for _, ev := range events {
		for _, d := range expandEvent(ev, win) {
			out = append(out, holiday.Entry{
				Date:   d,
				Label:  ev.Summary,
				Theme:  feed.Theme,
				Source: holiday.SourceFeed,
			})
		}
	}
	return out, nil
}

// expandEvent returns the civil dates the event covers within win.
func expandEvent(ev ParsedEvent, win Window) []calendar.Date {
	starts := occurrenceDates(ev, win)

	out := make([]calendar.Date, 0, len(starts))
	for _, s := range starts {
		for i := 0; i < ev.Days(); i++ {
			d := s.AddDays(i)
			if win.contains(d) {
				out = append(out, d)
			}
		}
	}
	return out
}

// occurrenceDates yields the start date of every instance that may touch
// win. Multi-day all-day events are looked up from span-1 days before the
// window so an instance starting just outside still contributes its tail.
func occurrenceDates(ev ParsedEvent, win Window) []calendar.Date {
	if ev.RawRRule == "" {
		if ev.AllDay {
			return []calendar.Date{ev.StartDate}
		}
		return []calendar.Date{calendar.At(ev.Start).Date}
	}

	r, err := rrule.StrToRRule(ev.RawRRule)
	if err != nil {
		appLog.Warn("ics rrule parse failed", "feed", ev.FeedID, "uid", ev.UID, "rrule", ev.RawRRule, "err", err)
		return nil
	}

	var after, before time.Time
	if ev.AllDay {
		r.DTStart(utcMidnight(ev.StartDate))
		after = utcMidnight(win.From.AddDays(1 - ev.Days()))
		before = utcMidnight(win.To)
	} else {
		r.DTStart(ev.Start)
		after = time.Date(win.From.Year, win.From.Month, win.From.Day, 0, 0, 0, 0, calendar.Zone)
		before = time.Date(win.To.Year, win.To.Month, win.To.Day, 23, 59, 59, 0, calendar.Zone)
	}

	var set rrule.Set
	set.RRule(r)
	for _, ex := range ev.ExDates {
		set.ExDate(ex)
	}

	times := set.Between(after, before, true)
	if len(times) > defaultMaxOccurrencesPerEvent {
		appLog.Warn("ics occurrences truncated", "feed", ev.FeedID, "uid", ev.UID, "cap", defaultMaxOccurrencesPerEvent)
		times = times[:defaultMaxOccurrencesPerEvent]
	}

	out := make([]calendar.Date, 0, len(times))
	for _, t := range times {
		if ev.AllDay {
			out = append(out, dateOfUTC(t))
		} else {
			out = append(out, calendar.At(t).Date)
		}
	}
	return out
}
