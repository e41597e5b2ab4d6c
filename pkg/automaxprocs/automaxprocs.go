// Package automaxprocs sets GOMAXPROCS from the container CPU quota and logs
// the change through the service logger.
package automaxprocs

import (
	"context"
	"fmt"
	"os"
	"runtime"

	"github.com/Cleverse/go-utilities/utils"
	"github.com/cockroachdb/errors"
	"github.com/gaze-network/batchsale/pkg/logger"
	"github.com/gaze-network/batchsale/pkg/logger/slogx"
	"go.uber.org/automaxprocs/maxprocs"
)

// Init adjusts GOMAXPROCS once. A GOMAXPROCS environment variable wins over
// the quota. It returns the value in effect afterwards.
func Init(ctx context.Context) (int, error) {
	ctx = logger.WithContext(ctx,
		slogx.String("package", "automaxprocs"),
		slogx.Int("prev_maxprocs", Current()),
	)

	_, err := maxprocs.Set(maxprocs.Min(1), maxprocs.Logger(func(format string, v ...any) {
		attrs := []any{slogx.Event("set_gomaxprocs")}
		if _, exists := os.LookupEnv("GOMAXPROCS"); exists {
			attrs = append(attrs, slogx.Int("set_maxprocs", Current()))
		} else if val, ok := utils.Optional(v); ok {
			if n, ok := val.(int); ok {
				attrs = append(attrs, slogx.Int("set_maxprocs", n))
			}
		}
		logger.InfoContext(ctx, fmt.Sprintf(format, v...), attrs...)
	}))
	if err != nil {
		return Current(), errors.Wrap(err, "can't set GOMAXPROCS")
	}
	return Current(), nil
}

// Current returns the current value of GOMAXPROCS.
func Current() int {
	return runtime.GOMAXPROCS(0)
}
