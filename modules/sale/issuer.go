package sale

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/btcsuite/btcd/chaincfg"
	"github.com/btcsuite/btcd/chaincfg/chainhash"
	"github.com/cockroachdb/errors"
	"github.com/gaze-network/batchsale/common/errs"
	"github.com/gaze-network/batchsale/modules/sale/datagateway"
	"github.com/gaze-network/batchsale/modules/sale/internal/entity"
	purchasevalidator "github.com/gaze-network/batchsale/modules/sale/internal/validator/purchase"
	"github.com/gaze-network/batchsale/modules/sale/tier"
	"github.com/gaze-network/batchsale/pkg/btcutils"
	"github.com/gaze-network/batchsale/pkg/logger"
	"github.com/gaze-network/batchsale/pkg/logger/slogx"
	"golang.org/x/sync/singleflight"
)

// InvoiceCreator creates invoices at the payment processor.
type InvoiceCreator interface {
	CreateInvoice(ctx context.Context, amountSats int64, orderID string) (*entity.ProcessorInvoice, error)
}

// InvoiceRegistrar takes ownership of a newly issued invoice.
type InvoiceRegistrar interface {
	Register(ctx context.Context, invoice *entity.Invoice) error
}

type Issuer struct {
	store     datagateway.InvoiceDataGateway
	processor InvoiceCreator
	monitor   InvoiceRegistrar
	params    *chaincfg.Params
	ttl       time.Duration
	now       func() time.Time

	inflight singleflight.Group
}

func NewIssuer(store datagateway.InvoiceDataGateway, processor InvoiceCreator, monitor InvoiceRegistrar, params *chaincfg.Params) *Issuer {
	return &Issuer{
		store:     store,
		processor: processor,
		monitor:   monitor,
		params:    params,
		ttl:       InvoiceTTL,
		now:       time.Now,
	}
}

// WithTTL overrides the payment deadline of issued invoices.
func (is *Issuer) WithTTL(ttl time.Duration) *Issuer {
	if ttl > 0 {
		is.ttl = ttl
	}
	return is
}

// Issue validates a purchase and issues its invoice. Checks run in order and
// stop at the first failure: RGB invoice grammar, batch count against the
// tier, then the idempotency key. A key seen before with the same purchase
// returns the original invoice; with a different purchase it is rejected.
// Nothing reaches the processor unless every check passes.
func (is *Issuer) Issue(ctx context.Context, req entity.PurchaseRequest) (*entity.Invoice, error) {
	ctx = logger.WithContext(ctx, slogx.String("idempotency_key", req.IdempotencyKey))

	t, err := tier.Parse(req.Tier)
	if err != nil {
		t = tier.Ungated
	}

	validator := purchasevalidator.New()
	validator.ValidRGBInvoice(req.RGBInvoice)
	validator.WithinTierLimit(t, req.BatchCount)
	validator.ValidIdempotencyKey(req.IdempotencyKey)
	if !validator.Valid {
		return nil, errors.WithStack(entity.NewInvalidRequest(validator.Reason))
	}

	fingerprint := Fingerprint(req.RGBInvoice, req.BatchCount, t)
	// only identical purchases share a call, a reused key with other
	// parameters must reach the store and be rejected there
	v, err, _ := is.inflight.Do(req.IdempotencyKey+"\x00"+fingerprint, func() (any, error) {
		return is.issue(ctx, req, t, fingerprint)
	})
	if err != nil {
		return nil, errors.WithStack(err)
	}
	return v.(*entity.Invoice).Clone(), nil
}

func (is *Issuer) issue(ctx context.Context, req entity.PurchaseRequest, t tier.Tier, fingerprint string) (*entity.Invoice, error) {
	validator := purchasevalidator.New()
	valid, replay, err := validator.MatchesPreviousIssue(ctx, is.store, req.IdempotencyKey, fingerprint)
	if err != nil {
		return nil, errors.WithStack(err)
	}
	if !valid {
		return nil, errors.WithStack(entity.NewInvalidRequest(validator.Reason))
	}
	if replay != nil {
		if replay.Status == entity.InvoiceStatusExpired {
			return nil, errors.WithStack(entity.NewInvoiceExpired(replay.ID))
		}
		logger.DebugContext(ctx, "replaying invoice for idempotency key", slogx.String("invoice_id", replay.ID))
		return replay, nil
	}

	amountSats := int64(req.BatchCount) * PricePerBatchSats
	id, err := NewInvoiceID()
	if err != nil {
		return nil, errors.WithStack(err)
	}
	ctx = logger.WithContext(ctx, slogx.String("invoice_id", id))

	pinv, err := is.processor.CreateInvoice(ctx, amountSats, id)
	if err != nil {
		logger.WarnContext(ctx, "payment processor failed to create invoice", slogx.Error(err))
		return nil, errors.WithStack(entity.NewProcessorUnavailable(err))
	}
	if err := btcutils.ValidatePaymentRequest(pinv.PaymentRequest, is.params); err != nil {
		logger.WarnContext(ctx, "payment processor returned an invalid payment request", slogx.Error(err))
		return nil, errors.WithStack(entity.NewProcessorUnavailable(err))
	}

	now := is.now()
	invoice := &entity.Invoice{
		ID:                 id,
		ProcessorInvoiceID: pinv.ID,
		PaymentRequest:     pinv.PaymentRequest,
		AmountSats:         amountSats,
		BatchCount:         req.BatchCount,
		TokenAmount:        uint64(req.BatchCount) * TokensPerBatch,
		RGBInvoice:         req.RGBInvoice,
		Tier:               t.Name,
		IdempotencyKey:     req.IdempotencyKey,
		Fingerprint:        fingerprint,
		Status:             entity.InvoiceStatusPending,
		CreatedAt:          now,
		ExpiresAt:          now.Add(is.ttl),
		UpdatedAt:          now,
	}

	if err := is.store.CreateInvoice(ctx, invoice); err != nil {
		if !errors.Is(err, errs.Conflict) {
			return nil, errors.Wrap(err, "failed to store invoice")
		}
		// another process issued under the same key first, its invoice wins
		winner, err := is.store.GetInvoiceByIdempotencyKey(ctx, req.IdempotencyKey)
		if err != nil {
			return nil, errors.Wrap(err, "failed to load invoice issued concurrently")
		}
		if winner.Fingerprint != fingerprint {
			return nil, errors.WithStack(entity.NewInvalidRequest(purchasevalidator.IDEMPOTENCY_KEY_REUSED))
		}
		logger.InfoContext(ctx, "lost concurrent issuance, returning winning invoice",
			slogx.String("winner_invoice_id", winner.ID),
			slogx.String("orphan_processor_invoice_id", pinv.ID),
		)
		return winner, nil
	}

	if err := is.monitor.Register(ctx, invoice.Clone()); err != nil {
		return nil, errors.Wrap(err, "failed to register invoice with payment monitor")
	}
	logger.InfoContext(ctx, "issued invoice",
		slog.Int64("amount_sats", invoice.AmountSats),
		slog.Int("batch_count", invoice.BatchCount),
		slogx.String("tier", invoice.Tier),
		slogx.Time("expires_at", invoice.ExpiresAt),
	)
	return invoice, nil
}

// Fingerprint identifies the parameters of a purchase, so a replayed
// idempotency key can be told apart from a reused one.
func Fingerprint(rgbInvoice string, batchCount int, t tier.Tier) string {
	return chainhash.HashH([]byte(fmt.Sprintf("%s\x00%d\x00%s", rgbInvoice, batchCount, t.Name))).String()
}
