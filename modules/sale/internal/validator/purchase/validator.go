package purchasevalidator

import (
	"context"
	"regexp"

	"github.com/cockroachdb/errors"
	"github.com/gaze-network/batchsale/common/errs"
	"github.com/gaze-network/batchsale/modules/sale/datagateway"
	"github.com/gaze-network/batchsale/modules/sale/internal/entity"
	"github.com/gaze-network/batchsale/modules/sale/internal/rgbinvoice"
	"github.com/gaze-network/batchsale/modules/sale/internal/validator"
	"github.com/gaze-network/batchsale/modules/sale/tier"
)

var idempotencyKeyPattern = regexp.MustCompile(`^[A-Za-z0-9._:\-]{8,128}$`)

type PurchaseValidator struct {
	validator.Validator
}

func New() *PurchaseValidator {
	v := validator.New()
	return &PurchaseValidator{
		Validator: *v,
	}
}

func (v *PurchaseValidator) ValidRGBInvoice(raw string) bool {
	if !v.Valid {
		return false
	}
	if err := rgbinvoice.Validate(raw); err != nil {
		return v.Fail(INVALID_RGB_INVOICE)
	}
	return v.Valid
}

func (v *PurchaseValidator) WithinTierLimit(t tier.Tier, batchCount int) bool {
	if !v.Valid {
		return false
	}
	if !t.IsGated() {
		return v.Fail(TIER_NOT_GATED)
	}
	if batchCount < 1 {
		return v.Fail(INVALID_BATCH_COUNT)
	}
	if batchCount > t.MaxBatches {
		return v.Fail(OVER_LIMIT_PER_TIER)
	}
	return v.Valid
}

func (v *PurchaseValidator) ValidIdempotencyKey(key string) bool {
	if !v.Valid {
		return false
	}
	if key == "" {
		return v.Fail(MISSING_IDEMPOTENCY_KEY)
	}
	if !idempotencyKeyPattern.MatchString(key) {
		return v.Fail(INVALID_IDEMPOTENCY_KEY)
	}
	return v.Valid
}

// MatchesPreviousIssue checks the key against the store. When an invoice was
// already issued under the key with the same fingerprint it is returned as
// the replay; a different fingerprint fails the chain.
func (v *PurchaseValidator) MatchesPreviousIssue(
	ctx context.Context,
	store datagateway.InvoiceDataGateway,
	key string,
	fingerprint string,
) (bool, *entity.Invoice, error) {
	if !v.Valid {
		return false, nil, nil
	}
	existing, err := store.GetInvoiceByIdempotencyKey(ctx, key)
	if err != nil {
		if errors.Is(err, errs.NotFound) {
			return v.Valid, nil, nil
		}
		return false, nil, errors.Wrap(err, "failed to get invoice by idempotency key")
	}
	if existing.Fingerprint != fingerprint {
		return v.Fail(IDEMPOTENCY_KEY_REUSED), nil, nil
	}
	return v.Valid, existing, nil
}
