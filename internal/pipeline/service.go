package pipeline

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"time"

	"countdown/internal/calendar"
	"countdown/internal/document"
	"countdown/internal/fetch"
	"countdown/internal/holiday"
	"countdown/internal/ics"
	appLog "countdown/internal/log"
	"countdown/internal/model"
	"countdown/internal/quote"
	"countdown/internal/store"
	"countdown/internal/theme"
)

// ErrNotLoaded is returned by holiday edits before the first Reload.
var ErrNotLoaded = errors.New("pipeline: configuration not loaded yet")

// ThemeRenderer is told when the theme key or daypart changes.
type ThemeRenderer interface {
	RenderTheme(ctx context.Context, key string, dp theme.Daypart) error
}

// OutputSink receives the output frame whenever it changes.
type OutputSink interface {
	Publish(ctx context.Context, out model.Output) error
}

// Options wires the service to its sources.
type Options struct {
	DocumentURL string
	ThemesURL   string
	Feeds       []ics.Feed
	Fetcher     *fetch.Fetcher
	Store       store.Store
	// Clock defaults to time.Now.
	Clock func() time.Time
}

// Service holds the current snapshot and drives the presentation surfaces.
type Service struct {
	opts Options
	snap atomic.Pointer[Snapshot]

	// mu serializes holiday edits and reloads.
	mu sync.Mutex

	// applyMu guards the last-applied state and the surface lists.
	applyMu     sync.Mutex
	renderers   []ThemeRenderer
	sinks       []OutputSink
	lastTheme   string
	lastDaypart theme.Daypart
	lastOut     *model.Output
}

func New(opts Options) *Service {
	if opts.Clock == nil {
		opts.Clock = time.Now
	}
	return &Service{opts: opts}
}

// AddRenderer registers a theme renderer.
func (s *Service) AddRenderer(r ThemeRenderer) {
	s.applyMu.Lock()
	defer s.applyMu.Unlock()
	s.renderers = append(s.renderers, r)
}

// AddSink registers an output sink.
func (s *Service) AddSink(o OutputSink) {
	s.applyMu.Lock()
	defer s.applyMu.Unlock()
	s.sinks = append(s.sinks, o)
}

func (s *Service) now() calendar.Moment {
	return calendar.At(s.opts.Clock())
}

// Snapshot returns the current snapshot, nil before the first Reload.
func (s *Service) Snapshot() *Snapshot {
	return s.snap.Load()
}

// Reload fetches the documents, feeds and user holidays, swaps in a new
// snapshot and runs a tick. Source failures degrade to defaults or cached
// copies and are logged; only an unusable target is returned.
func (s *Service) Reload(ctx context.Context) error {
	s.mu.Lock()
	start := time.Now()

	loaded, docErr := document.Load(ctx, s.opts.Fetcher, s.opts.DocumentURL)
	themes := document.LoadThemes(ctx, s.opts.Fetcher, s.opts.ThemesURL)

	var user []store.Holiday
	if s.opts.Store != nil {
		list, err := s.opts.Store.Load(ctx)
		if err != nil {
			appLog.Error("user holidays load failed", err)
			if prev := s.snap.Load(); prev != nil {
				list = prev.User
			}
		}
		user = list
	}

	configured := loaded.HolidayEntries()
	if docErr == nil && len(s.opts.Feeds) > 0 {
		win := ics.WindowFor(s.now().Date, loaded.Target)
		configured = append(configured, ics.Collect(ctx, s.opts.Fetcher, s.opts.Feeds, win)...)
	}

	snap := &Snapshot{
		Target:     loaded.Target,
		HasTarget:  docErr == nil,
		Origin:     loaded.Origin,
		Configured: configured,
		User:       user,
		Registry:   holiday.Build(configured, store.ToEntries(user)),
		Themes:     themes,
		Quotes:     quote.Book{ByDate: loaded.QuotesByDate, Fallback: loaded.Quotes},
		BuiltAt:    time.Now(),
	}
	s.snap.Store(snap)
	s.mu.Unlock()

	if docErr != nil {
		appLog.Error("no usable target date", docErr, "origin", loaded.Origin)
	} else {
		appLog.Info("configuration reloaded",
			"origin", loaded.Origin,
			"target", snap.Target.Key(),
			"holidays", snap.Registry.Len(),
			"user_holidays", len(user),
			"themes", len(themes),
			"duration", time.Since(start),
		)
	}

	s.Tick(ctx)
	return docErr
}

// Tick recomputes the frame for the current clock and hands it to the
// surfaces. It does nothing until the first snapshot exists.
func (s *Service) Tick(ctx context.Context) (model.Output, bool) {
	snap := s.snap.Load()
	if snap == nil {
		return model.Output{}, false
	}
	out := Recompute(snap, s.now(), Overrides{})
	s.apply(ctx, out)
	return out, true
}

// Current is the frame for the current clock without overrides.
func (s *Service) Current() model.Output {
	return s.Evaluate(Overrides{})
}

// Evaluate computes a frame with overrides. Surfaces are not notified.
func (s *Service) Evaluate(ov Overrides) model.Output {
	return Recompute(s.snap.Load(), s.now(), ov)
}

// apply calls renderers when the theme/daypart pair changed and sinks when
// the frame changed.
func (s *Service) apply(ctx context.Context, out model.Output) {
	s.applyMu.Lock()
	defer s.applyMu.Unlock()

	dp := theme.Daypart(out.Daypart)
	if out.ThemeKey != s.lastTheme || dp != s.lastDaypart {
		rendered := true
		for _, r := range s.renderers {
			if err := r.RenderTheme(ctx, out.ThemeKey, dp); err != nil {
				appLog.Error("theme render failed", err, "theme", out.ThemeKey, "daypart", out.Daypart)
				rendered = false
			}
		}
		// A failed render is retried on the next tick.
		if rendered {
			s.lastTheme, s.lastDaypart = out.ThemeKey, dp
		}
	}

	if s.lastOut != nil && model.SameFrame(*s.lastOut, out) {
		return
	}
	published := true
	for _, o := range s.sinks {
		if err := o.Publish(ctx, out); err != nil {
			appLog.Error("output publish failed", err, "status", out.Status)
			published = false
		}
	}
	if published {
		s.lastOut = &out
	}
}

// AddHoliday validates and persists a user holiday.
func (s *Service) AddHoliday(ctx context.Context, h store.Holiday) error {
	return s.editHolidays(ctx, func(list []store.Holiday) ([]store.Holiday, error) {
		return store.Add(list, h)
	})
}

// RemoveHoliday drops user holidays matching date and label.
func (s *Service) RemoveHoliday(ctx context.Context, date, label string) error {
	return s.editHolidays(ctx, func(list []store.Holiday) ([]store.Holiday, error) {
		return store.Remove(list, date, label), nil
	})
}

// ClearHolidays empties the user list.
func (s *Service) ClearHolidays(ctx context.Context) error {
	return s.editHolidays(ctx, func([]store.Holiday) ([]store.Holiday, error) {
		return []store.Holiday{}, nil
	})
}

func (s *Service) editHolidays(ctx context.Context, edit func([]store.Holiday) ([]store.Holiday, error)) error {
	s.mu.Lock()
	cur := s.snap.Load()
	if cur == nil {
		s.mu.Unlock()
		return ErrNotLoaded
	}

	next, err := edit(cur.User)
	if err != nil {
		s.mu.Unlock()
		return err
	}
	if s.opts.Store != nil {
		if err := s.opts.Store.Save(ctx, next); err != nil {
			s.mu.Unlock()
			return err
		}
	}
	s.snap.Store(cur.withUser(next))
	s.mu.Unlock()

	appLog.Info("user holidays updated", "count", len(next))
	s.Tick(ctx)
	return nil
}
