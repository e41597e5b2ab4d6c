package logger

import (
	"context"
	"fmt"
	"log/slog"
	"runtime"
	"strings"

	"github.com/cockroachdb/errors/errbase"
	"github.com/gaze-network/batchsale/pkg/logger/slogx"
)

// middlewareErrorStackTrace expands every error attribute into its verbose form
// and, when the error carries one, its stack trace. Enabled in debug mode only.
func middlewareErrorStackTrace() middleware {
	return func(next handleFunc) handleFunc {
		return func(ctx context.Context, rec slog.Record) error {
			var extra []slog.Attr
			rec.Attrs(func(attr slog.Attr) bool {
				if attr.Key != slogx.ErrorKey {
					return true
				}
				err, ok := attr.Value.Any().(error)
				if !ok || err == nil {
					return true
				}
				extra = append(extra, slog.String(slogx.ErrorVerboseKey, fmt.Sprintf("%+v", err)))
				if st, ok := err.(errbase.StackTraceProvider); ok {
					extra = append(extra, slog.Any(slogx.StackTraceKey, traceLines(st.StackTrace())))
				}
				return false
			})
			rec.AddAttrs(extra...)
			return next(ctx, rec)
		}
	}
}

func traceLines(frames errbase.StackTrace) []string {
	lines := make([]string, 0, len(frames))

	// walk from the bottom so leading runtime frames can be skipped
	skipping := true
	for i := len(frames) - 1; i >= 0; i-- {
		pc := uintptr(frames[i]) - 1
		fn := runtime.FuncForPC(pc)
		if fn == nil {
			lines = append(lines, "unknown")
			skipping = false
			continue
		}

		name := fn.Name()
		if skipping && strings.HasPrefix(name, "runtime.") {
			continue
		}
		skipping = false

		file, line := fn.FileLine(pc)
		lines = append(lines, fmt.Sprintf("%s %s:%d", name, file, line))
	}
	return lines
}
