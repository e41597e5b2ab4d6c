package requestcontext

import (
	"context"
	"net/http"

	"github.com/gaze-network/batchsale/pkg/logger"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/requestid"
	fiberutils "github.com/gofiber/fiber/v2/utils"
)

// MaxRequestIdLength bounds client supplied request ids.
const MaxRequestIdLength = 128

type requestIdKey struct{}

// GetRequestId returns the request id from ctx, or an empty string.
func GetRequestId(ctx context.Context) string {
	if id, ok := ctx.Value(requestIdKey{}).(string); ok {
		return id
	}
	return ""
}

// WithRequestId reuses the id set by the requestid middleware or the client,
// generating one otherwise, and attaches it to the context logger.
func WithRequestId() Option {
	return func(ctx context.Context, c *fiber.Ctx) (context.Context, error) {
		requestId, ok := c.Locals(requestid.ConfigDefault.ContextKey).(string)
		if !ok || requestId == "" {
			requestId = c.Get(requestid.ConfigDefault.Header, fiberutils.UUID())
			if len(requestId) > MaxRequestIdLength {
				return ctx, requestcontextError{status: http.StatusBadRequest, message: "request id is too long"}
			}
			c.Set(requestid.ConfigDefault.Header, requestId)
			c.Locals(requestid.ConfigDefault.ContextKey, requestId)
		}

		ctx = context.WithValue(ctx, requestIdKey{}, requestId)
		ctx = logger.WithContext(ctx, "requestId", requestId)
		return ctx, nil
	}
}
