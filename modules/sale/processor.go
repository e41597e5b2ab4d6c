package sale

import (
	"context"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/gaze-network/batchsale/common/errs"
	"github.com/gaze-network/batchsale/modules/sale/internal/entity"
	"github.com/gaze-network/batchsale/modules/sale/internal/rgbinvoice"
	"github.com/gaze-network/batchsale/pkg/btcpay"
	"github.com/gaze-network/batchsale/pkg/btcutils"
	"github.com/gaze-network/batchsale/pkg/logger"
	"github.com/gaze-network/batchsale/pkg/logger/slogx"
	"github.com/gaze-network/batchsale/pkg/rgbnode"
)

// additional status BTCPay sets on an expired invoice that was paid anyway
const btcpayPaidLate = "PaidLate"

// BTCPayProcessor adapts the BTCPay client to invoice issuance and payment monitoring.
type BTCPayProcessor struct {
	client *btcpay.Client
	ttl    time.Duration
}

func NewBTCPayProcessor(client *btcpay.Client, ttl time.Duration) *BTCPayProcessor {
	return &BTCPayProcessor{client: client, ttl: ttl}
}

func (p *BTCPayProcessor) CreateInvoice(ctx context.Context, amountSats int64, orderID string) (*entity.ProcessorInvoice, error) {
	invoice, err := p.client.CreateInvoice(ctx, amountSats, orderID, p.ttl)
	if err != nil {
		return nil, errors.WithStack(err)
	}
	paymentRequest, err := p.client.LightningPaymentRequest(ctx, invoice.ID)
	if err != nil {
		return nil, errors.WithStack(err)
	}
	return &entity.ProcessorInvoice{
		ID:             invoice.ID,
		PaymentRequest: paymentRequest,
		ExpiresAt:      time.Unix(invoice.ExpirationTime, 0),
	}, nil
}

func (p *BTCPayProcessor) GetInvoiceStatus(ctx context.Context, processorInvoiceID string) (*entity.PaymentStatus, error) {
	invoice, err := p.client.GetInvoice(ctx, processorInvoiceID)
	if err != nil {
		return nil, errors.WithStack(err)
	}
	status := &entity.PaymentStatus{}
	switch invoice.Status {
	case btcpay.InvoiceStatusSettled:
		status.Paid = true
		status.PaidAmountSats = invoiceAmountSats(invoice)
	case btcpay.InvoiceStatusExpired, btcpay.InvoiceStatusInvalid:
		status.Expired = true
		if invoice.AdditionalStatus == btcpayPaidLate {
			status.Paid = true
			status.PaidAmountSats = invoiceAmountSats(invoice)
		}
	}
	return status, nil
}

func invoiceAmountSats(invoice *btcpay.Invoice) int64 {
	if invoice.Currency == btcpay.CurrencySats {
		return invoice.Amount.IntPart()
	}
	return btcutils.BitcoinToSatoshi(invoice.Amount)
}

// RGBConsigner sends the sold allocation to the buyer's blinded UTXO through
// the RGB node.
type RGBConsigner struct {
	client *rgbnode.Client
	now    func() time.Time
}

func NewRGBConsigner(client *rgbnode.Client) *RGBConsigner {
	return &RGBConsigner{client: client, now: time.Now}
}

func (c *RGBConsigner) GenerateConsignment(ctx context.Context, rgbInvoice string, tokenAmount uint64) (*entity.TransferArtifact, error) {
	invoice, err := rgbinvoice.Parse(rgbInvoice)
	if err != nil {
		return nil, errors.WithStack(err)
	}

	// a retry after a lost response must not send twice
	sent, err := c.client.FindSentTransfer(ctx, invoice.RecipientID)
	switch {
	case err == nil:
		logger.InfoContext(ctx, "transfer to recipient already sent, reusing it",
			slogx.String("recipient_id", invoice.RecipientID),
			slogx.String("txid", sent.TxID),
		)
		return c.artifact(invoice.RecipientID, sent.TxID, tokenAmount), nil
	case !errors.Is(err, errs.NotFound):
		return nil, errors.Wrap(err, "can't look up previous transfers")
	}

	resp, err := c.client.SendAsset(ctx, invoice.RecipientID, tokenAmount)
	if err != nil {
		return nil, errors.WithStack(err)
	}
	return c.artifact(invoice.RecipientID, resp.TxID, tokenAmount), nil
}

func (c *RGBConsigner) artifact(recipientID, txID string, tokenAmount uint64) *entity.TransferArtifact {
	return &entity.TransferArtifact{
		TxID:        txID,
		RecipientID: recipientID,
		AssetID:     c.client.AssetID(),
		Amount:      tokenAmount,
		CreatedAt:   c.now(),
	}
}
