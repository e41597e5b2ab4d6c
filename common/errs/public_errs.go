package errs

import (
	"net/http"

	"github.com/cockroachdb/errors"
	"github.com/cockroachdb/errors/withstack"
)

// PublicError is an error that, when caught by the error handler, is returned to
// the client as-is. Everything else is reported as an internal error.
type PublicError struct {
	err     error
	message string
	code    string // optional machine-readable error type
	status  int
}

func (p PublicError) Error() string {
	return p.err.Error()
}

func (p PublicError) Message() string {
	return p.message
}

func (p PublicError) Code() string {
	return p.code
}

// Status is the HTTP status code of the error, 400 unless set.
func (p PublicError) Status() int {
	if p.status == 0 {
		return http.StatusBadRequest
	}
	return p.status
}

func (p PublicError) Unwrap() error {
	return p.err
}

func NewPublicError(message string) error {
	return withstack.WithStackDepth(&PublicError{err: errors.New(message), message: message}, 1)
}

func NewPublicErrorWithCode(message string, code string) error {
	return withstack.WithStackDepth(&PublicError{err: errors.New(message), message: message, code: code}, 1)
}

// WithPublicStatus exposes err to the client with the given status and code.
// The original error stays in the chain for errors.Is and for logging.
func WithPublicStatus(err error, status int, code string, message string) error {
	if err == nil {
		return nil
	}
	if message == "" {
		message = err.Error()
	}
	return withstack.WithStackDepth(&PublicError{err: err, message: message, code: code, status: status}, 1)
}
