// Package slogx provides the attribute constructors used across the service,
// so call sites never build raw slog attributes with ad-hoc keys.
package slogx

import (
	"fmt"
	"log/slog"
	"time"
)

// Keys shared by handlers and middlewares.
const (
	ErrorKey        = "error"
	ErrorVerboseKey = "error_verbose"
	StackTraceKey   = "stack_trace"
	EventKey        = "event"
)

func Any(key string, value any) slog.Attr {
	return slog.Any(key, value)
}

// Group collects several key-value pairs under a single key.
func Group(key string, args ...any) slog.Attr {
	return slog.Group(key, args...)
}

// Error returns an slog.Attr for an error value. A nil error yields an empty attribute,
// which handlers drop.
func Error(err error) slog.Attr {
	if err == nil {
		return slog.Attr{}
	}
	return slog.Any(ErrorKey, err)
}

// Event tags a record as an operator incident.
func Event(name string) slog.Attr {
	return slog.String(EventKey, name)
}

func String(key, value string) slog.Attr {
	return slog.String(key, value)
}

func Stringer(key string, value fmt.Stringer) slog.Attr {
	if value == nil {
		return slog.String(key, "<nil>")
	}
	return slog.String(key, value.String())
}

func Int(key string, value int) slog.Attr {
	return slog.Int64(key, int64(value))
}

func Int64(key string, value int64) slog.Attr {
	return slog.Int64(key, value)
}

func Uint64(key string, v uint64) slog.Attr {
	return slog.Uint64(key, v)
}

func Bool(key string, v bool) slog.Attr {
	return slog.Bool(key, v)
}

// Time returns an slog.Attr for a [time.Time]. It discards the monotonic portion.
func Time(key string, v time.Time) slog.Attr {
	return slog.Time(key, v)
}

func Duration(key string, v time.Duration) slog.Attr {
	return slog.Duration(key, v)
}
