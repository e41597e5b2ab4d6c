package requestlogger

import (
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/gaze-network/batchsale/pkg/logger"
	"github.com/gofiber/fiber/v2"
)

type Config struct {
	WithRequestHeader    bool     `mapstructure:"request_header"`
	WithRequestQuery     bool     `mapstructure:"request_query"`
	Disable              bool     `mapstructure:"disable"` // drop INFO request logs, errors are still logged
	HiddenRequestHeaders []string `mapstructure:"hidden_request_headers"`
}

// alwaysHidden carry credentials and are never logged.
var alwaysHidden = []string{fiber.HeaderAuthorization, "BTCPay-Sig"}

// New logs one record per completed request.
func New(config Config) fiber.Handler {
	hidden := make(map[string]struct{}, len(config.HiddenRequestHeaders)+len(alwaysHidden))
	for _, header := range append(config.HiddenRequestHeaders, alwaysHidden...) {
		hidden[strings.TrimSpace(strings.ToLower(header))] = struct{}{}
	}
	return func(c *fiber.Ctx) error {
		start := time.Now()
		err := c.Next()
		latency := time.Since(start)
		status := c.Response().StatusCode()

		attrs := []slog.Attr{
			slog.String("event", "api_request"),
			slog.Int64("latency", latency.Milliseconds()),
		}

		request := []slog.Attr{
			slog.String("method", c.Method()),
			slog.String("path", c.Path()),
			slog.String("route", c.Route().Path),
			slog.String("ip", c.IP()),
			slog.String("user-agent", string(c.Context().UserAgent())),
			slog.Int("length", len(c.Body())),
		}
		if config.WithRequestQuery {
			request = append(request, slog.String("query", string(c.Request().URI().QueryString())))
		}
		if config.WithRequestHeader {
			kv := []any{}
			for k, v := range c.GetReqHeaders() {
				if _, found := hidden[strings.ToLower(k)]; found {
					continue
				}
				kv = append(kv, slog.Any(k, v))
			}
			request = append(request, slog.Group("header", kv...))
		}

		level := slog.LevelInfo
		if err != nil || status >= http.StatusInternalServerError {
			level = slog.LevelError
			logErr := err
			if logErr == nil {
				logErr = fiber.NewError(status)
			}
			attrs = append(attrs, slog.Any("error", logErr))
		}
		if config.Disable && level == slog.LevelInfo {
			return errors.WithStack(err)
		}

		attrs = append(attrs,
			slog.Attr{Key: "request", Value: slog.GroupValue(request...)},
			slog.Attr{Key: "response", Value: slog.GroupValue(slog.Int("status", status), slog.Int("length", len(c.Response().Body())))},
		)
		logger.FromContext(c.UserContext()).LogAttrs(c.UserContext(), level, "Request Completed", attrs...)

		return errors.WithStack(err)
	}
}
