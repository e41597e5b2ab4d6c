package btcutils

import (
	"regexp"
	"strings"

	"github.com/btcsuite/btcd/btcutil/bech32"
	"github.com/btcsuite/btcd/chaincfg"
	"github.com/cockroachdb/errors"
	"github.com/gaze-network/batchsale/common/errs"
)

// amount part of a BOLT11 human readable prefix, e.g. "20u"
var bolt11AmountPattern = regexp.MustCompile(`^([0-9]+[munp]?)?$`)

// ValidatePaymentRequest checks that pr is a bech32 BOLT11 payment request for
// the given network. Only the envelope is checked: the checksum, the "ln"
// prefix with the network's segwit HRP, and the amount field.
func ValidatePaymentRequest(pr string, params *chaincfg.Params) error {
	if params == nil {
		return errors.Wrap(errs.InvalidArgument, "network params are required")
	}
	pr = strings.TrimSpace(pr)
	if len(pr) > len("lightning:") && strings.EqualFold(pr[:len("lightning:")], "lightning:") {
		pr = pr[len("lightning:"):]
	}
	if pr == "" {
		return errors.Wrap(errs.InvalidArgument, "empty payment request")
	}

	hrp, _, err := bech32.DecodeNoLimit(pr)
	if err != nil {
		return errors.Wrapf(errs.InvalidArgument, "payment request is not bech32: %v", err)
	}

	prefix := "ln" + params.Bech32HRPSegwit
	if !strings.HasPrefix(hrp, prefix) || !bolt11AmountPattern.MatchString(hrp[len(prefix):]) {
		return errors.Wrapf(errs.InvalidArgument, "payment request prefix %q is not for network %q", hrp, params.Name)
	}
	return nil
}
