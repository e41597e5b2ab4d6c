package entity

import "fmt"

// ErrorKind is the sale error taxonomy. Kinds are comparable sentinels and
// work with errors.Is directly or through an IssuanceError.
type ErrorKind string

const (
	InvalidRequest             = ErrorKind("invalid request")
	ProcessorUnavailable       = ErrorKind("processor unavailable")
	InvoiceExpired             = ErrorKind("invoice expired")
	SupplyExhausted            = ErrorKind("supply exhausted")
	DuplicateSettlementAttempt = ErrorKind("duplicate settlement attempt")
)

func (e ErrorKind) Error() string {
	return string(e)
}

// IssuanceError is returned by invoice issuance.
type IssuanceError struct {
	Kind   ErrorKind
	Reason string
	Err    error
}

func (e *IssuanceError) Error() string {
	msg := string(e.Kind)
	if e.Reason != "" {
		msg = fmt.Sprintf("%s: %s", msg, e.Reason)
	}
	if e.Err != nil {
		msg = fmt.Sprintf("%s: %v", msg, e.Err)
	}
	return msg
}

func (e *IssuanceError) Unwrap() error {
	return e.Err
}

func (e *IssuanceError) Is(target error) bool {
	kind, ok := target.(ErrorKind)
	return ok && kind == e.Kind
}

func NewInvalidRequest(reason string) *IssuanceError {
	return &IssuanceError{Kind: InvalidRequest, Reason: reason}
}

func NewProcessorUnavailable(err error) *IssuanceError {
	return &IssuanceError{Kind: ProcessorUnavailable, Err: err}
}

func NewInvoiceExpired(invoiceID string) *IssuanceError {
	return &IssuanceError{Kind: InvoiceExpired, Reason: "invoice " + invoiceID + " expired, start a new purchase"}
}
