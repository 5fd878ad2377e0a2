// Package term draws the countdown in a terminal.
package term

import (
	"context"
	"fmt"
	"io"
	"strings"
	"sync"

	"github.com/charmbracelet/lipgloss"

	"countdown/internal/model"
	"countdown/internal/theme"
)

const (
	fallbackFG     = "#F8FAFC"
	fallbackAccent = "#38BDF8"
	fallbackMuted  = "#94A3B8"
)

func color(palette map[string]string, key, fallback string) lipgloss.Color {
	if v := strings.TrimSpace(palette[key]); strings.HasPrefix(v, "#") {
		return lipgloss.Color(v)
	}
	return lipgloss.Color(fallback)
}

// Render formats one frame as a bordered block coloured from its palette.
func Render(out model.Output) string {
	accent := color(out.Palette, "--accent", fallbackAccent)
	fg := color(out.Palette, "--fg", fallbackFG)
	muted := color(out.Palette, "--muted", fallbackMuted)

	daysStyle := lipgloss.NewStyle().Foreground(accent).Bold(true)
	statusStyle := lipgloss.NewStyle().Foreground(fg)
	dimStyle := lipgloss.NewStyle().Foreground(muted)
	quoteStyle := dimStyle.Italic(true)
	box := lipgloss.NewStyle().
		Padding(1, 3).
		Border(lipgloss.RoundedBorder()).
		BorderForeground(accent)

	days := "-"
	if out.Status != "unconfigured" {
		days = fmt.Sprintf("%d", out.DisplayDays)
	}

	lines := []string{
		daysStyle.Render(days) + dimStyle.Render(" working days to "+out.Target),
		statusStyle.Render(out.StatusMessage),
	}
	if out.Quote != "" {
		lines = append(lines, "", quoteStyle.Render("“"+out.Quote+"”"))
	}
	lines = append(lines, "", dimStyle.Render(out.Now+" · "+out.ThemeKey+" / "+out.Daypart))

	return box.Render(lipgloss.JoinVertical(lipgloss.Left, lines...))
}

// Renderer writes frames to w. It serves as both the terminal output sink
// and a theme renderer that notes theme switches.
type Renderer struct {
	mu sync.Mutex
	w  io.Writer
}

func New(w io.Writer) *Renderer {
	return &Renderer{w: w}
}

func (r *Renderer) Publish(_ context.Context, out model.Output) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	_, err := fmt.Fprintln(r.w, Render(out))
	return err
}

func (r *Renderer) RenderTheme(_ context.Context, key string, dp theme.Daypart) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	style := lipgloss.NewStyle().Foreground(lipgloss.Color(fallbackMuted))
	_, err := fmt.Fprintln(r.w, style.Render("theme → "+key+" ("+string(dp)+")"))
	return err
}
