// Package log is the process-wide structured logger. Call sites pass a
// message followed by alternating key/value pairs:
//
//	log.Info("snapshot rebuilt", "holidays", n, "target", target)
//	log.Error("store save failed", err, "driver", "redis")
package log

import (
	"io"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"
)

type Level string

const (
	LevelDebug Level = "debug"
	LevelInfo  Level = "info"
	LevelWarn  Level = "warn"
	LevelError Level = "error"
)

var (
	mu     sync.RWMutex
	logger = newLogger(os.Stderr, "json")
)

func newLogger(w io.Writer, format string) zerolog.Logger {
	if format == "console" {
		w = zerolog.ConsoleWriter{Out: w, TimeFormat: time.RFC3339}
	}
	return zerolog.New(w).With().Timestamp().Logger().Level(zerolog.InfoLevel)
}

// SetOutput redirects logging to w using format "json" or "console".
// The current level is kept.
func SetOutput(w io.Writer, format string) {
	mu.Lock()
	defer mu.Unlock()
	lvl := logger.GetLevel()
	logger = newLogger(w, format).Level(lvl)
}

// SetFormat switches stderr output between "json" and "console".
func SetFormat(format string) {
	SetOutput(os.Stderr, format)
}

// SetLevel sets the minimum level. Unknown values mean info.
func SetLevel(l Level) {
	mu.Lock()
	defer mu.Unlock()
	logger = logger.Level(toZerolog(l))
}

// ParseLevel maps a config string to a Level, defaulting to info.
func ParseLevel(s string) Level {
	switch Level(strings.ToLower(strings.TrimSpace(s))) {
	case LevelDebug:
		return LevelDebug
	case LevelWarn, "warning":
		return LevelWarn
	case LevelError:
		return LevelError
	default:
		return LevelInfo
	}
}

func toZerolog(l Level) zerolog.Level {
	switch l {
	case LevelDebug:
		return zerolog.DebugLevel
	case LevelWarn:
		return zerolog.WarnLevel
	case LevelError:
		return zerolog.ErrorLevel
	default:
		return zerolog.InfoLevel
	}
}

func current() *zerolog.Logger {
	mu.RLock()
	defer mu.RUnlock()
	l := logger
	return &l
}

func Debug(msg string, kv ...any) {
	withKVs(current().Debug(), kv).Msg(msg)
}

func Info(msg string, kv ...any) {
	withKVs(current().Info(), kv).Msg(msg)
}

func Warn(msg string, kv ...any) {
	withKVs(current().Warn(), kv).Msg(msg)
}

// Error logs at error level with err attached under "error".
func Error(msg string, err error, kv ...any) {
	withKVs(current().Error().Err(err), kv).Msg(msg)
}

// withKVs appends key/value pairs. Non-string keys and a trailing key
// without a value are dropped.
func withKVs(ev *zerolog.Event, kv []any) *zerolog.Event {
	if ev == nil {
		return nil
	}
	for i := 0; i+1 < len(kv); i += 2 {
		key, ok := kv[i].(string)
		if !ok {
			continue
		}
		switch v := kv[i+1].(type) {
		case error:
			ev = ev.AnErr(key, v)
		case time.Duration:
			ev = ev.Dur(key, v)
		default:
			ev = ev.Interface(key, v)
		}
	}
	return ev
}
