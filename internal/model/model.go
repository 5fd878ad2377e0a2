package model

// Output is one recomputed countdown frame as consumed by every presentation
// surface (HTTP viewer, terminal, MQTT screens, captured PNG). It is
// rebuilt as a unit on every refresh tick.
type Output struct {
	DisplayDays   int    `json:"display_days"`
	Status        string `json:"status"`
	StatusMessage string `json:"status_message"`
	ThemeKey      string `json:"theme_key"`
	Daypart       string `json:"daypart"`
	Quote         string `json:"quote"`

	// Today / Target / NextCountable are DateKeys (YYYY-MM-DD).
	Today         string `json:"today"`
	Target        string `json:"target"`
	NextCountable string `json:"next_countable"`

	// HolidayLabel is set when today is a labelled holiday.
	HolidayLabel string `json:"holiday_label,omitempty"`

	// Now is the human clock line in the fixed offset. It changes every
	// tick, so change detection ignores it.
	Now string `json:"now"`

	// Palette holds the merged CSS variables for ThemeKey.
	Palette map[string]string `json:"palette,omitempty"`

	// Effects is the particle plan for ThemeKey and Daypart.
	Effects []Effect `json:"effects,omitempty"`
}

// Effect is one visual effect layer: what to draw and how many particles.
// Pixel-level parameters belong to the renderer.
type Effect struct {
	Kind  string `json:"kind"`
	Count int    `json:"count"`
}

// SameFrame reports whether a and b would render identically, ignoring the
// clock line.
func SameFrame(a, b Output) bool {
	if a.DisplayDays != b.DisplayDays ||
		a.Status != b.Status ||
		a.StatusMessage != b.StatusMessage ||
		a.ThemeKey != b.ThemeKey ||
		a.Daypart != b.Daypart ||
		a.Quote != b.Quote ||
		a.Today != b.Today ||
		a.Target != b.Target ||
		a.NextCountable != b.NextCountable ||
		a.HolidayLabel != b.HolidayLabel {
		return false
	}
	if len(a.Palette) != len(b.Palette) || len(a.Effects) != len(b.Effects) {
		return false
	}
	for k, v := range a.Palette {
		if b.Palette[k] != v {
			return false
		}
	}
	for i := range a.Effects {
		if a.Effects[i] != b.Effects[i] {
			return false
		}
	}
	return true
}
