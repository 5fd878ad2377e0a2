// Package store persists the user-added holiday list. The whole list is
// replaced on every save; drivers exist for a JSON file, a Redis key and a
// SQLite table.
package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"countdown/internal/calendar"
	"countdown/internal/config"
	"countdown/internal/holiday"
	appLog "countdown/internal/log"
)

// ErrInvalidHoliday is returned by Add for a holiday whose date does not
// parse.
var ErrInvalidHoliday = errors.New("store: invalid holiday date")

// Holiday is the persisted shape of one user holiday.
type Holiday struct {
	Date  string `json:"date"`
	Label string `json:"label,omitempty"`
}

// Store loads and saves the full user holiday list.
type Store interface {
	Load(ctx context.Context) ([]Holiday, error)
	Save(ctx context.Context, list []Holiday) error
	Close() error
}

// New opens the driver named in cfg.
func New(ctx context.Context, cfg config.StoreConfig) (Store, error) {
	switch cfg.Driver {
	case "", "file":
		return NewFile(cfg.Path), nil
	case "redis":
		return NewRedis(ctx, cfg.RedisURL, cfg.Key)
	case "sqlite":
		return NewSQLite(cfg.Path)
	default:
		return nil, fmt.Errorf("store: unknown driver %q", cfg.Driver)
	}
}

// Add validates h and appends it. The date is normalized to its canonical
// key.
func Add(list []Holiday, h Holiday) ([]Holiday, error) {
	d, err := calendar.Parse(strings.TrimSpace(h.Date))
	if err != nil {
		return list, fmt.Errorf("%w: %q", ErrInvalidHoliday, h.Date)
	}
	out := make([]Holiday, 0, len(list)+1)
	out = append(out, list...)
	return append(out, Holiday{Date: d.Key(), Label: strings.TrimSpace(h.Label)}), nil
}

// Remove drops every entry matching both date and label.
func Remove(list []Holiday, date, label string) []Holiday {
	out := make([]Holiday, 0, len(list))
	for _, h := range list {
		if h.Date == date && h.Label == label {
			continue
		}
		out = append(out, h)
	}
	return out
}

// ToEntries converts the list for the holiday registry, skipping entries
// whose date does not parse.
func ToEntries(list []Holiday) []holiday.Entry {
	out := make([]holiday.Entry, 0, len(list))
	for _, h := range list {
		d, err := calendar.Parse(h.Date)
		if err != nil {
			continue
		}
		out = append(out, holiday.Entry{Date: d, Label: h.Label, Source: holiday.SourceUser})
	}
	return out
}

// decode reads a persisted list. Corrupt payloads load as empty and
// entries with bad dates are dropped; neither is an error.
func decode(driver string, data []byte) []Holiday {
	if len(strings.TrimSpace(string(data))) == 0 {
		return nil
	}
	var list []Holiday
	if err := json.Unmarshal(data, &list); err != nil {
		appLog.Warn("stored holidays unreadable, starting empty", "driver", driver, "err", err)
		return nil
	}
	return sanitize(driver, list)
}

func sanitize(driver string, list []Holiday) []Holiday {
	out := make([]Holiday, 0, len(list))
	for _, h := range list {
		if _, err := calendar.Parse(h.Date); err != nil {
			appLog.Warn("dropping stored holiday with bad date", "driver", driver, "date", h.Date)
			continue
		}
		out = append(out, h)
	}
	return out
}

func encode(list []Holiday) ([]byte, error) {
	if list == nil {
		list = []Holiday{}
	}
	return json.Marshal(list)
}
