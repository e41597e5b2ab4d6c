package httphandler

import (
	"context"

	"github.com/gaze-network/batchsale/modules/sale/datagateway"
	"github.com/gaze-network/batchsale/modules/sale/internal/entity"
	"github.com/gaze-network/batchsale/modules/sale/stats"
	"github.com/gaze-network/batchsale/pkg/btcutils"
	"github.com/samber/lo"
	"github.com/shopspring/decimal"
)

type Issuer interface {
	Issue(ctx context.Context, req entity.PurchaseRequest) (*entity.Invoice, error)
}

// PaymentNotifier receives processor push events.
type PaymentNotifier interface {
	OnPaymentConfirmed(ctx context.Context, processorInvoiceID string) error
	OnStatusChanged(ctx context.Context, processorInvoiceID string) error
}

type StatsReader interface {
	Snapshot() stats.Snapshot
}

type HttpHandler struct {
	issuer        Issuer
	store         datagateway.InvoiceDataGateway
	notifier      PaymentNotifier
	stats         StatsReader
	webhookSecret string
}

func New(issuer Issuer, store datagateway.InvoiceDataGateway, notifier PaymentNotifier, stats StatsReader, webhookSecret string) *HttpHandler {
	return &HttpHandler{
		issuer:        issuer,
		store:         store,
		notifier:      notifier,
		stats:         stats,
		webhookSecret: webhookSecret,
	}
}

type transferResult struct {
	TxID        string `json:"txId"`
	RecipientID string `json:"recipientId"`
	AssetID     string `json:"assetId"`
	Amount      uint64 `json:"amount"`
	CreatedAt   int64  `json:"createdAt"` // unix timestamp
}

type invoiceResult struct {
	ID             string          `json:"id"`
	PaymentRequest string          `json:"paymentRequest"`
	AmountSats     int64           `json:"amountSats"`
	AmountBTC      decimal.Decimal `json:"amountBtc"`
	BatchCount     int             `json:"batchCount"`
	TokenAmount    uint64          `json:"tokenAmount"`
	Tier           string          `json:"tier"`
	Status         string          `json:"status"`
	PaidAmountSats int64           `json:"paidAmountSats,omitempty"`
	CreatedAt      int64           `json:"createdAt"` // unix timestamp
	ExpiresAt      int64           `json:"expiresAt"` // unix timestamp
	PaidAt         *int64          `json:"paidAt"`    // unix timestamp
	Transfer       *transferResult `json:"transfer"`
}

func mapInvoice(src *entity.Invoice) invoiceResult {
	result := invoiceResult{
		ID:             src.ID,
		PaymentRequest: src.PaymentRequest,
		AmountSats:     src.AmountSats,
		AmountBTC:      btcutils.SatoshiToBitcoin(src.AmountSats),
		BatchCount:     src.BatchCount,
		TokenAmount:    src.TokenAmount,
		Tier:           src.Tier,
		Status:         src.Status.String(),
		PaidAmountSats: src.PaidAmountSats,
		CreatedAt:      src.CreatedAt.Unix(),
		ExpiresAt:      src.ExpiresAt.Unix(),
	}
	if !src.PaidAt.IsZero() {
		result.PaidAt = lo.ToPtr(src.PaidAt.Unix())
	}
	if src.Transfer != nil {
		result.Transfer = &transferResult{
			TxID:        src.Transfer.TxID,
			RecipientID: src.Transfer.RecipientID,
			AssetID:     src.Transfer.AssetID,
			Amount:      src.Transfer.Amount,
			CreatedAt:   src.Transfer.CreatedAt.Unix(),
		}
	}
	return result
}
