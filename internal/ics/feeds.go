package ics

import (
	"context"

	"countdown/internal/fetch"
	"countdown/internal/holiday"
	appLog "countdown/internal/log"
)

// Collect fetches every feed and returns the holidays they contribute to
// win. A feed that fails to fetch or parse contributes nothing; the others
// are unaffected.
func Collect(ctx context.Context, f *fetch.Fetcher, feeds []Feed, win Window) []holiday.Entry {
	if len(feeds) == 0 || f == nil {
		return nil
	}

	byID := make(map[string]Feed, len(feeds))
	sources := make([]fetch.Source, 0, len(feeds))
	for _, feed := range feeds {
		byID[feed.ID] = feed
		sources = append(sources, fetch.Source{ID: feed.ID, URL: feed.URL})
	}

	results, _ := f.FetchAll(ctx, sources)

	out := make([]holiday.Entry, 0)
	for _, res := range results {
		feed := byID[res.Source.ID]
		events, err := ParseICS(feed, res.Body)
		if err != nil {
			continue
		}
		entries, err := Expand(feed, events, win)
		if err != nil {
			appLog.Error("ics expand failed", err, "feed", feed.ID)
			continue
		}
		appLog.Debug("ics feed expanded", "feed", feed.ID, "holidays", len(entries), "from_cache", res.FromCache)
		out = append(out, entries...)
	}
	return out
}
