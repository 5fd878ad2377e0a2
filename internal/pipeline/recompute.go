// Package pipeline owns the live countdown: it builds immutable snapshots
// from the loaded documents, feeds and user holidays, recomputes the output
// frame on every tick and hands it to the presentation surfaces.
package pipeline

import (
	"time"

	"countdown/internal/calendar"
	"countdown/internal/countdown"
	"countdown/internal/document"
	"countdown/internal/holiday"
	"countdown/internal/model"
	"countdown/internal/quote"
	"countdown/internal/store"
	"countdown/internal/theme"
)

// StatusUnconfigured is reported when no usable target date exists.
const (
	StatusUnconfigured  = "unconfigured"
	messageUnconfigured = "Failed to load configuration"
)

// Snapshot is everything Recompute needs. It is never mutated after
// construction; reloads and holiday edits build a new one.
type Snapshot struct {
	Target    calendar.Date
	HasTarget bool
	Origin    document.Origin

	// Configured holds document and feed holidays, User the persisted list.
	Configured []holiday.Entry
	User       []store.Holiday
	Registry   *holiday.Registry

	Themes theme.Set
	Quotes quote.Book

	BuiltAt time.Time
}

// withUser returns a copy of s with a new user list and registry.
func (s *Snapshot) withUser(user []store.Holiday) *Snapshot {
	next := *s
	next.User = user
	next.Registry = holiday.Build(s.Configured, store.ToEntries(user))
	next.BuiltAt = time.Now()
	return &next
}

// Overrides are the query-time knobs: a simulated today, a preview theme
// and a forced daypart. Malformed values are ignored.
type Overrides struct {
	Today   string
	Theme   string
	Daypart string
}

// Recompute builds the output frame for now. It has no side effects.
func Recompute(snap *Snapshot, now calendar.Moment, ov Overrides) model.Output {
	today := now.Date
	if ov.Today != "" {
		if d, err := calendar.Parse(ov.Today); err == nil {
			today = d
		}
	}

	dp := theme.DaypartAt(now.Hour)
	if forced, ok := theme.ParseDaypart(ov.Daypart); ok {
		dp = forced
	}

	if snap == nil || !snap.HasTarget {
		key := theme.Default
		if ov.Theme != "" {
			key = ov.Theme
		}
		return model.Output{
			Status:        StatusUnconfigured,
			StatusMessage: messageUnconfigured,
			ThemeKey:      key,
			Daypart:       string(dp),
			Today:         today.Key(),
			Now:           now.Label(),
			Effects:       theme.Effects(key, dp),
		}
	}

	st := countdown.Resolve(today, snap.Target, snap.Registry)
	key := theme.Resolve(today, snap.Registry, ov.Theme)

	return model.Output{
		DisplayDays:   st.Days,
		Status:        string(st.Status),
		StatusMessage: st.Message(),
		ThemeKey:      key,
		Daypart:       string(dp),
		Quote:         snap.Quotes.For(today),
		Today:         today.Key(),
		Target:        snap.Target.Key(),
		NextCountable: st.NextCountable.Key(),
		HolidayLabel:  st.HolidayLabel,
		Now:           now.Label(),
		Palette:       snap.Themes.Palette(key),
		Effects:       theme.Effects(key, dp),
	}
}
