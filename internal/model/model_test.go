package model

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSameFrame(t *testing.T) {
	base := Output{
		DisplayDays: 3,
		Status:      "active",
		ThemeKey:    "base",
		Daypart:     "morning",
		Now:         "Sat, 03 Jan 2026 09:00:00 IST",
		Palette:     map[string]string{"--bg": "#fff"},
		Effects:     []Effect{{Kind: "sprites-morning", Count: 6}},
	}

	later := base
	later.Now = "Sat, 03 Jan 2026 09:00:30 IST"
	assert.True(t, SameFrame(base, later), "clock line is ignored")

	changed := base
	changed.DisplayDays = 2
	assert.False(t, SameFrame(base, changed))

	repainted := base
	repainted.Palette = map[string]string{"--bg": "#000"}
	assert.False(t, SameFrame(base, repainted))

	moreFx := base
	moreFx.Effects = []Effect{{Kind: "sprites-morning", Count: 10}}
	assert.False(t, SameFrame(base, moreFx))
}
