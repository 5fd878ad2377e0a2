// Package holiday merges configured and user-added holidays into a single
// lookup used for the exclusion test and for theme/status resolution.
package holiday

import (
	"sort"

	"countdown/internal/calendar"
)

// Source records where a holiday entry came from.
type Source string

const (
	SourceConfigured Source = "configured"
	SourceFeed       Source = "feed"
	SourceUser       Source = "user"
)

// Entry is a single holiday on a calendar date.
type Entry struct {
	Date   calendar.Date `json:"date"`
	Label  string        `json:"label,omitempty"`
	Theme  string        `json:"theme,omitempty"`
	Source Source        `json:"source"`
}

// Key returns the entry's DateKey.
func (e Entry) Key() string {
	return e.Date.Key()
}

// Registry is an immutable holiday set plus per-date metadata. Build a new
// one whenever either source changes.
type Registry struct {
	entries map[string]Entry
}

// Build merges the two sources.
//
// Configured entries (including feed entries) are authoritative for their
// date. A user entry on a configured date only fills the label or theme the
// configured entry left empty. Among duplicates within one source the first
// entry wins.
func Build(configured, user []Entry) *Registry {
	r := &Registry{entries: make(map[string]Entry, len(configured)+len(user))}

	for _, e := range configured {
		k := e.Key()
		if _, ok := r.entries[k]; ok {
			continue
		}
		r.entries[k] = e
	}

	seenUser := make(map[string]bool, len(user))
	for _, e := range user {
		k := e.Key()
		if seenUser[k] {
			continue
		}
		seenUser[k] = true

		existing, ok := r.entries[k]
		if !ok {
			e.Source = SourceUser
			r.entries[k] = e
			continue
		}
		if existing.Label == "" {
			existing.Label = e.Label
		}
		if existing.Theme == "" {
			existing.Theme = e.Theme
		}
		r.entries[k] = existing
	}

	return r
}

// IsHoliday reports whether d is in the holiday set.
func (r *Registry) IsHoliday(d calendar.Date) bool {
	if r == nil {
		return false
	}
	_, ok := r.entries[d.Key()]
	return ok
}

// IsExcluded reports whether d is a non-business day: a Sunday or a holiday.
func (r *Registry) IsExcluded(d calendar.Date) bool {
	return d.IsSunday() || r.IsHoliday(d)
}

// Lookup returns the holiday metadata for d, if any.
func (r *Registry) Lookup(d calendar.Date) (Entry, bool) {
	if r == nil {
		return Entry{}, false
	}
	e, ok := r.entries[d.Key()]
	return e, ok
}

// Len is the number of distinct holiday dates.
func (r *Registry) Len() int {
	if r == nil {
		return 0
	}
	return len(r.entries)
}

// Entries returns all merged entries ordered by date.
func (r *Registry) Entries() []Entry {
	if r == nil {
		return nil
	}
	out := make([]Entry, 0, len(r.entries))
	for _, e := range r.entries {
		out = append(out, e)
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].Date.Before(out[j].Date)
	})
	return out
}
