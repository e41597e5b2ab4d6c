package errs

// ErrorKind identifies a kind of internal error.
// Fully supports errors.Is and errors.As.
type ErrorKind string

const (
	// NotFound is returned when a requested item is not found.
	NotFound = ErrorKind("not found")

	// InvalidArgument is returned when a caller passes a value that violates a contract.
	InvalidArgument = ErrorKind("invalid argument")

	// Unsupported is returned when a feature or option is not supported.
	Unsupported = ErrorKind("unsupported")

	// Conflict is returned when a write loses against a concurrent write,
	// e.g. a unique key or a compare-and-set on a status.
	Conflict = ErrorKind("conflict")

	// Timeout is returned when an operation exceeds its deadline.
	Timeout = ErrorKind("timeout")

	// Closed is returned when a component is used after shutdown.
	Closed = ErrorKind("closed")

	// InternalError is returned when an invariant of the service is broken.
	InternalError = ErrorKind("internal error")

	// SomethingWentWrong is the fallback when nothing more specific is known.
	SomethingWentWrong = ErrorKind("something went wrong")
)

// Error satisfies the error interface and prints human-readable errors.
func (e ErrorKind) Error() string {
	return string(e)
}
