package errorhandler

import (
	"net/http"

	"github.com/cockroachdb/errors"
	"github.com/gaze-network/batchsale/common/errs"
	"github.com/gaze-network/batchsale/pkg/logger"
	"github.com/gaze-network/batchsale/pkg/logger/slogx"
	"github.com/gofiber/fiber/v2"
)

// Response is the error body every failed request gets.
type Response struct {
	Error string `json:"error"`
	Code  string `json:"code,omitempty"`
}

var kindStatus = map[errs.ErrorKind]int{
	errs.InvalidArgument: http.StatusBadRequest,
	errs.NotFound:        http.StatusNotFound,
	errs.Conflict:        http.StatusConflict,
	errs.Unsupported:     http.StatusNotImplemented,
	errs.Timeout:         http.StatusGatewayTimeout,
	errs.Closed:          http.StatusServiceUnavailable,
}

// NewHTTPErrorHandler returns the fiber error handler. Public errors are returned
// verbatim with their status, bare error kinds are mapped to a status without
// leaking their message, everything else is logged and hidden behind a 500.
func NewHTTPErrorHandler() fiber.ErrorHandler {
	return func(ctx *fiber.Ctx, err error) error {
		if e := new(errs.PublicError); errors.As(err, &e) {
			return errors.WithStack(ctx.Status(e.Status()).JSON(Response{Error: e.Message(), Code: e.Code()}))
		}
		if e := new(fiber.Error); errors.As(err, &e) {
			return errors.WithStack(ctx.Status(e.Code).JSON(Response{Error: e.Message}))
		}
		for kind, status := range kindStatus {
			if errors.Is(err, kind) {
				return errors.WithStack(ctx.Status(status).JSON(Response{Error: http.StatusText(status)}))
			}
		}

		logger.ErrorContext(ctx.UserContext(), "Something went wrong, unhandled api error", err,
			slogx.String("event", "api_unhandled_error"),
		)
		return errors.WithStack(ctx.Status(http.StatusInternalServerError).JSON(Response{Error: "Internal Server Error"}))
	}
}
