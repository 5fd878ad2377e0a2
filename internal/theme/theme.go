// Package theme maps a date to its visual theme and a clock hour to a
// daypart, and derives the palette and effect plan a renderer draws.
package theme

import (
	"strings"

	"countdown/internal/calendar"
	"countdown/internal/holiday"
	"countdown/internal/model"
)

// Built-in theme keys. Holiday themes are free-form strings from config.
const (
	Default    = "base"
	WeeklyRest = "sunday"
)

// Daypart is one of four clock-hour buckets.
type Daypart string

const (
	Morning Daypart = "morning"
	Midday  Daypart = "midday"
	Evening Daypart = "evening"
	Night   Daypart = "night"
)

// Lookup is the holiday metadata source.
type Lookup interface {
	Lookup(d calendar.Date) (holiday.Entry, bool)
}

// Resolve picks the theme key for d. A non-empty override (preview) wins;
// then a holiday theme; then the weekly-rest theme on Sundays.
func Resolve(d calendar.Date, lookup Lookup, override string) string {
	if override != "" {
		return override
	}
	if lookup != nil {
		if e, ok := lookup.Lookup(d); ok && e.Theme != "" {
			return e.Theme
		}
	}
	if d.IsSunday() {
		return WeeklyRest
	}
	return Default
}

// DaypartAt buckets an hour of day in the fixed offset. Ranges are
// half-open: [6,11) morning, [11,16) midday, [16,19) evening, rest night.
func DaypartAt(hour int) Daypart {
	switch {
	case hour >= 19 || hour < 6:
		return Night
	case hour < 11:
		return Morning
	case hour < 16:
		return Midday
	default:
		return Evening
	}
}

// ParseDaypart accepts the four daypart names and the legacy "noon".
func ParseDaypart(s string) (Daypart, bool) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "morning":
		return Morning, true
	case "midday", "noon":
		return Midday, true
	case "evening":
		return Evening, true
	case "night":
		return Night, true
	}
	return "", false
}

// Set maps a theme key to its CSS variables. The Default entry is the shared
// base palette every theme starts from.
type Set map[string]map[string]string

// Has reports whether key has its own palette.
func (s Set) Has(key string) bool {
	_, ok := s[key]
	return ok
}

// Palette merges the base variables with key's variables; key wins.
func (s Set) Palette(key string) map[string]string {
	out := make(map[string]string, len(s[Default])+len(s[key]))
	for k, v := range s[Default] {
		out[k] = v
	}
	for k, v := range s[key] {
		out[k] = v
	}
	return out
}

// Effects returns the particle layers to draw for key at daypart.
// Holiday themes get their own particles; the base and weekly-rest themes
// get sparse daypart sprites (moon and stars at night, sun and clouds by day).
func Effects(key string, dp Daypart) []model.Effect {
	switch key {
	case "christmas":
		return []model.Effect{{Kind: "snow", Count: 60}}
	case "newyear":
		return []model.Effect{{Kind: "confetti", Count: 120}}
	case "karnataka":
		return []model.Effect{{Kind: "petals", Count: 48}}
	case "diwali":
		return []model.Effect{{Kind: "lights", Count: 24}}
	case Default:
		return []model.Effect{{Kind: "sprites-" + string(dp), Count: 6}}
	case WeeklyRest:
		return []model.Effect{{Kind: "sprites-" + string(dp), Count: 10}}
	}
	return nil
}
