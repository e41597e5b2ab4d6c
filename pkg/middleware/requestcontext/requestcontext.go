package requestcontext

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/cockroachdb/errors"
	"github.com/gaze-network/batchsale/pkg/logger"
	"github.com/gofiber/fiber/v2"
)

type Response struct {
	Error string `json:"error,omitempty"`
}

// Option derives request-scoped values into the user context.
type Option func(ctx context.Context, c *fiber.Ctx) (context.Context, error)

// New runs every option in order and stores the result as the fiber user context.
func New(opts ...Option) fiber.Handler {
	return func(c *fiber.Ctx) error {
		var err error
		ctx := c.UserContext()
		for i, opt := range opts {
			ctx, err = opt(ctx, c)
			if err != nil {
				rErr := requestcontextError{}
				if errors.As(err, &rErr) {
					return c.Status(rErr.status).JSON(Response{Error: rErr.message})
				}

				logger.ErrorContext(ctx, "failed to extract request context", err,
					slog.String("event", "requestcontext/error"),
					slog.Int("optionIndex", i),
				)
				return c.Status(http.StatusInternalServerError).JSON(Response{Error: "internal server error"})
			}
		}
		c.SetUserContext(ctx)
		return c.Next()
	}
}
