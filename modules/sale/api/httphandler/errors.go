package httphandler

import (
	"net/http"

	"github.com/cockroachdb/errors"
	"github.com/gaze-network/batchsale/common/errs"
	"github.com/gaze-network/batchsale/modules/sale/internal/entity"
)

// publicIssueError exposes issuance failures with their status. Anything
// else is left to the error handler.
func publicIssueError(err error) error {
	var issuanceErr *entity.IssuanceError
	if !errors.As(err, &issuanceErr) {
		return errors.WithStack(err)
	}
	switch issuanceErr.Kind {
	case entity.InvalidRequest:
		return errs.WithPublicStatus(err, http.StatusBadRequest, "INVALID_REQUEST", issuanceErr.Reason)
	case entity.InvoiceExpired:
		return errs.WithPublicStatus(err, http.StatusGone, "INVOICE_EXPIRED", issuanceErr.Reason)
	case entity.ProcessorUnavailable:
		return errs.WithPublicStatus(err, http.StatusServiceUnavailable, "PROCESSOR_UNAVAILABLE",
			"payment processor is unavailable, retry with the same idempotency key")
	}
	return errors.WithStack(err)
}
