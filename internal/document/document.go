// Package document loads the countdown document (target date, holidays,
// quotes) and the themes document, falling back to compiled-in defaults
// whenever the configured source cannot be fetched or parsed.
package document

import (
	"context"
	_ "embed"
	"encoding/json"
	"errors"
	"fmt"

	"countdown/internal/calendar"
	"countdown/internal/fetch"
	"countdown/internal/holiday"
	appLog "countdown/internal/log"
	"countdown/internal/theme"
)

// ErrNoTarget means neither the loaded nor the default document has a
// usable target date.
var ErrNoTarget = errors.New("document: no usable target date")

//go:embed defaults/config.json
var defaultConfigJSON []byte

//go:embed defaults/themes.json
var defaultThemesJSON []byte

// Holiday is a holiday as written in the document. Older documents use
// "name" instead of "label"; both are accepted.
type Holiday struct {
	Date  string `json:"date"`
	Label string `json:"label,omitempty"`
	Name  string `json:"name,omitempty"`
	Theme string `json:"theme,omitempty"`
}

// DisplayLabel prefers label over name.
func (h Holiday) DisplayLabel() string {
	if h.Label != "" {
		return h.Label
	}
	return h.Name
}

// Document is the countdown configuration. Every field is optional on the
// wire; absent fields are empty.
type Document struct {
	Target       string            `json:"target"`
	Holidays     []Holiday         `json:"holidays,omitempty"`
	QuotesByDate map[string]string `json:"quotesByDate,omitempty"`
	Quotes       []string          `json:"quotes,omitempty"`
}

// Origin says where a loaded document came from.
type Origin string

const (
	OriginRemote  Origin = "remote"
	OriginCache   Origin = "cache"
	OriginDefault Origin = "default"
)

// Loaded is a document with its target resolved.
type Loaded struct {
	Document
	Target calendar.Date
	Origin Origin
}

// Parse decodes a document.
func Parse(b []byte) (Document, error) {
	var d Document
	if err := json.Unmarshal(b, &d); err != nil {
		return Document{}, fmt.Errorf("document: %w", err)
	}
	return d, nil
}

// Default returns the compiled-in document.
func Default() Document {
	d, err := Parse(defaultConfigJSON)
	if err != nil {
		// The embedded file is part of the build; a parse failure here is a
		// packaging bug, surfaced as an unusable target later.
		appLog.Error("embedded default document is invalid", err)
		return Document{}
	}
	return d
}

// HolidayEntries converts the document's holidays, skipping entries whose
// date does not parse.
func (d Document) HolidayEntries() []holiday.Entry {
	out := make([]holiday.Entry, 0, len(d.Holidays))
	for _, h := range d.Holidays {
		date, err := calendar.Parse(h.Date)
		if err != nil {
			appLog.Warn("skipping holiday with malformed date", "date", h.Date, "label", h.DisplayLabel())
			continue
		}
		out = append(out, holiday.Entry{
			Date:   date,
			Label:  h.DisplayLabel(),
			Theme:  h.Theme,
			Source: holiday.SourceConfigured,
		})
	}
	return out
}

// resolve fixes the target: the document's own when it parses, otherwise
// the fallback document's.
func resolve(d Document, origin Origin, fallback Document) (Loaded, error) {
	if t, err := calendar.Parse(d.Target); err == nil {
		return Loaded{Document: d, Target: t, Origin: origin}, nil
	}
	if origin != OriginDefault {
		appLog.Warn("document target invalid, using default target", "target", d.Target, "default", fallback.Target)
	}
	if t, err := calendar.Parse(fallback.Target); err == nil {
		return Loaded{Document: d, Target: t, Origin: origin}, nil
	}
	return Loaded{Document: d, Origin: origin}, ErrNoTarget
}

// Load fetches the document at url. An empty url, a fetch failure or a
// parse failure all yield the default document; the only error returned is
// ErrNoTarget.
func Load(ctx context.Context, f *fetch.Fetcher, url string) (Loaded, error) {
	def := Default()
	if url == "" || f == nil {
		return resolve(def, OriginDefault, def)
	}

	res, err := f.Fetch(ctx, fetch.Source{ID: "document", URL: url})
	if err != nil {
		appLog.Error("document fetch failed, using default", err, "url", fetch.RedactURL(url))
		return resolve(def, OriginDefault, def)
	}
	doc, err := Parse(res.Body)
	if err != nil {
		appLog.Error("document parse failed, using default", err, "url", fetch.RedactURL(url))
		return resolve(def, OriginDefault, def)
	}

	origin := OriginRemote
	if res.FromCache {
		origin = OriginCache
	}
	return resolve(doc, origin, def)
}

// DefaultThemes returns the compiled-in theme palettes.
func DefaultThemes() theme.Set {
	var s theme.Set
	if err := json.Unmarshal(defaultThemesJSON, &s); err != nil {
		appLog.Error("embedded default themes are invalid", err)
		return theme.Set{}
	}
	return s
}

// LoadThemes fetches the themes document with the same fallback rules as
// Load.
func LoadThemes(ctx context.Context, f *fetch.Fetcher, url string) theme.Set {
	if url == "" || f == nil {
		return DefaultThemes()
	}
	res, err := f.Fetch(ctx, fetch.Source{ID: "themes", URL: url})
	if err != nil {
		appLog.Error("themes fetch failed, using default", err, "url", fetch.RedactURL(url))
		return DefaultThemes()
	}
	var s theme.Set
	if err := json.Unmarshal(res.Body, &s); err != nil || s == nil {
		appLog.Error("themes parse failed, using default", err, "url", fetch.RedactURL(url))
		return DefaultThemes()
	}
	return s
}
