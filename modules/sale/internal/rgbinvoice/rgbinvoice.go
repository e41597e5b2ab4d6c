// Package rgbinvoice parses the parts of an RGB invoice the sale depends on:
// the scheme and the blinded UTXO the allocation is bound to.
package rgbinvoice

import (
	"strings"

	"github.com/cockroachdb/errors"
	"github.com/gaze-network/batchsale/common/errs"
	"github.com/mr-tron/base58"
)

const (
	Scheme       = "rgb:"
	bindingLabel = "utxob:"
)

// separators that may precede the binding segment
const bindingSeparators = ":+/"

// separators that end the binding payload
const payloadTerminators = "?/+#&"

// Invoice is a parsed RGB invoice.
type Invoice struct {
	Raw string

	// RecipientID is the blinded UTXO including its label, e.g. "utxob:2Hf5...".
	RecipientID string

	// Blinding is the decoded payload of the blinded UTXO.
	Blinding []byte
}

// Parse validates the invoice grammar: the "rgb:" scheme, a "utxob:" segment
// preceded by one of ':', '+' or '/', and a non-empty base58 payload. Dashes
// inside the payload are chunk separators and are ignored.
func Parse(raw string) (*Invoice, error) {
	s := strings.TrimSpace(raw)
	if !strings.HasPrefix(strings.ToLower(s), Scheme) {
		return nil, errors.Wrap(errs.InvalidArgument, `rgb invoice must start with "rgb:"`)
	}

	start := bindingIndex(s)
	if start < 0 {
		return nil, errors.Wrap(errs.InvalidArgument, "rgb invoice has no utxob binding segment")
	}

	payload := s[start+len(bindingLabel):]
	if end := strings.IndexAny(payload, payloadTerminators); end >= 0 {
		payload = payload[:end]
	}
	compact := strings.ReplaceAll(payload, "-", "")
	if compact == "" {
		return nil, errors.Wrap(errs.InvalidArgument, "rgb invoice has an empty utxob payload")
	}
	blinding, err := base58.Decode(compact)
	if err != nil {
		return nil, errors.Wrapf(errs.InvalidArgument, "utxob payload is not base58: %v", err)
	}

	return &Invoice{
		Raw:         s,
		RecipientID: bindingLabel + payload,
		Blinding:    blinding,
	}, nil
}

// Validate reports whether raw is a well-formed RGB invoice.
func Validate(raw string) error {
	_, err := Parse(raw)
	return err
}

func bindingIndex(s string) int {
	offset := 0
	for {
		i := strings.Index(s[offset:], bindingLabel)
		if i < 0 {
			return -1
		}
		i += offset
		if i > 0 && strings.IndexByte(bindingSeparators, s[i-1]) >= 0 {
			return i
		}
		offset = i + len(bindingLabel)
	}
}
