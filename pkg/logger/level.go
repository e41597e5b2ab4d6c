package logger

import (
	"fmt"
	"log/slog"
)

// Levels above [slog.LevelError]. CRITICAL is reserved for operator incidents:
// something happened that the service cannot repair on its own.
const (
	LevelCritical = slog.Level(12)
	LevelPanic    = slog.Level(14)
	LevelFatal    = slog.Level(16)
)

func levelAttrReplacer(groups []string, attr slog.Attr) slog.Attr {
	if len(groups) != 0 || attr.Key != slog.LevelKey {
		return attr
	}
	l, ok := attr.Value.Any().(slog.Level)
	if !ok || l < LevelCritical {
		return attr
	}

	name := func(base string, offset slog.Level) slog.Value {
		if offset == 0 {
			return slog.StringValue(base)
		}
		return slog.StringValue(fmt.Sprintf("%s%+d", base, offset))
	}
	switch {
	case l < LevelPanic:
		return slog.Attr{Key: attr.Key, Value: name("CRITICAL", l-LevelCritical)}
	case l < LevelFatal:
		return slog.Attr{Key: attr.Key, Value: name("PANIC", l-LevelPanic)}
	default:
		return slog.Attr{Key: attr.Key, Value: name("FATAL", l-LevelFatal)}
	}
}
