package theme

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"countdown/internal/calendar"
	"countdown/internal/holiday"
	"countdown/internal/model"
)

func TestResolve(t *testing.T) {
	reg := holiday.Build([]holiday.Entry{
		{Date: calendar.MustParse("2025-12-25"), Label: "Christmas", Theme: "christmas", Source: holiday.SourceConfigured},
		{Date: calendar.MustParse("2025-12-28"), Label: "Sunday festival", Theme: "diwali", Source: holiday.SourceConfigured},
		{Date: calendar.MustParse("2025-12-30"), Label: "No theme", Source: holiday.SourceConfigured},
	}, nil)

	tests := []struct {
		name     string
		date     string
		override string
		want     string
	}{
		{"plain weekday", "2025-12-29", "", Default},
		{"sunday", "2025-12-21", "", WeeklyRest},
		{"holiday theme", "2025-12-25", "", "christmas"},
		{"holiday theme beats sunday", "2025-12-28", "", "diwali"},
		{"holiday without theme falls through", "2025-12-30", "", Default},
		{"override wins", "2025-12-25", "newyear", "newyear"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Resolve(calendar.MustParse(tt.date), reg, tt.override))
		})
	}

	assert.Equal(t, WeeklyRest, Resolve(calendar.MustParse("2025-12-21"), nil, ""))
}

func TestDaypartAt(t *testing.T) {
	want := map[int]Daypart{
		0: Night, 5: Night,
		6: Morning, 10: Morning,
		11: Midday, 15: Midday,
		16: Evening, 18: Evening,
		19: Night, 23: Night,
	}
	for hour, dp := range want {
		assert.Equal(t, dp, DaypartAt(hour), "hour %d", hour)
	}
}

func TestParseDaypart(t *testing.T) {
	for in, want := range map[string]Daypart{
		"morning": Morning, "Midday": Midday, "noon": Midday, " evening ": Evening, "NIGHT": Night,
	} {
		got, ok := ParseDaypart(in)
		assert.True(t, ok, in)
		assert.Equal(t, want, got, in)
	}
	_, ok := ParseDaypart("dusk")
	assert.False(t, ok)
}

func TestPalette(t *testing.T) {
	s := Set{
		Default:     {"--bg": "#fdfaf3", "--fg": "#1f2933"},
		"christmas": {"--bg": "#0b3d2e", "--accent": "#d62828"},
	}
	assert.Equal(t, map[string]string{"--bg": "#0b3d2e", "--fg": "#1f2933", "--accent": "#d62828"}, s.Palette("christmas"))
	assert.Equal(t, map[string]string{"--bg": "#fdfaf3", "--fg": "#1f2933"}, s.Palette("unknown"))
	assert.True(t, s.Has("christmas"))
	assert.False(t, s.Has("unknown"))
	assert.Empty(t, Set(nil).Palette(Default))
}

func TestEffects(t *testing.T) {
	assert.Equal(t, []model.Effect{{Kind: "snow", Count: 60}}, Effects("christmas", Night))
	assert.Equal(t, []model.Effect{{Kind: "confetti", Count: 120}}, Effects("newyear", Morning))
	assert.Equal(t, []model.Effect{{Kind: "petals", Count: 48}}, Effects("karnataka", Midday))
	assert.Equal(t, []model.Effect{{Kind: "lights", Count: 24}}, Effects("diwali", Evening))
	assert.Equal(t, []model.Effect{{Kind: "sprites-night", Count: 6}}, Effects(Default, Night))
	assert.Equal(t, []model.Effect{{Kind: "sprites-morning", Count: 10}}, Effects(WeeklyRest, Morning))
	assert.Nil(t, Effects("pongal", Morning))
}
