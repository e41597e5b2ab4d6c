package sale

import (
	"github.com/cockroachdb/errors"
	"github.com/gaze-network/batchsale/common/errs"
	"go.jetify.com/typeid/v2"
)

// NewInvoiceID returns a K-sortable invoice id such as "inv_01h2xcejqtf2nbrexx3vqjhp41".
func NewInvoiceID() (string, error) {
	tid, err := typeid.Generate(InvoiceIDPrefix)
	if err != nil {
		return "", errors.Wrap(err, "can't generate invoice id")
	}
	return tid.String(), nil
}

// ValidateInvoiceID checks that id is an invoice TypeID.
func ValidateInvoiceID(id string) error {
	tid, err := typeid.Parse(id)
	if err != nil {
		return errors.Wrapf(errs.InvalidArgument, "malformed invoice id %q", id)
	}
	if tid.Prefix() != InvoiceIDPrefix {
		return errors.Wrapf(errs.InvalidArgument, "%q is not an invoice id", id)
	}
	return nil
}
