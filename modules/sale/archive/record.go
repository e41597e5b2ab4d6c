package archive

import (
	"github.com/gaze-network/batchsale/modules/sale/internal/entity"
)

// InvoiceRecord is the parquet row of an archived invoice.
type InvoiceRecord struct {
	ID                 string  `parquet:"name=id, type=BYTE_ARRAY, convertedtype=UTF8"`
	ProcessorInvoiceID string  `parquet:"name=processor_invoice_id, type=BYTE_ARRAY, convertedtype=UTF8"`
	PaymentRequest     string  `parquet:"name=payment_request, type=BYTE_ARRAY, convertedtype=UTF8"`
	AmountSats         int64   `parquet:"name=amount_sats, type=INT64"`
	BatchCount         int32   `parquet:"name=batch_count, type=INT32"`
	TokenAmount        int64   `parquet:"name=token_amount, type=INT64"`
	RGBInvoice         string  `parquet:"name=rgb_invoice, type=BYTE_ARRAY, convertedtype=UTF8"`
	Tier               string  `parquet:"name=tier, type=BYTE_ARRAY, convertedtype=UTF8, encoding=PLAIN_DICTIONARY"`
	IdempotencyKey     string  `parquet:"name=idempotency_key, type=BYTE_ARRAY, convertedtype=UTF8"`
	Status             string  `parquet:"name=status, type=BYTE_ARRAY, convertedtype=UTF8, encoding=PLAIN_DICTIONARY"`
	PaidAmountSats     int64   `parquet:"name=paid_amount_sats, type=INT64"`
	PaidAt             *int64  `parquet:"name=paid_at, type=INT64, convertedtype=TIMESTAMP_MILLIS, repetitiontype=OPTIONAL"`
	TransferTxID       *string `parquet:"name=transfer_txid, type=BYTE_ARRAY, convertedtype=UTF8, repetitiontype=OPTIONAL"`
	TransferAssetID    *string `parquet:"name=transfer_asset_id, type=BYTE_ARRAY, convertedtype=UTF8, repetitiontype=OPTIONAL"`
	CreatedAt          int64   `parquet:"name=created_at, type=INT64, convertedtype=TIMESTAMP_MILLIS"`
	ExpiresAt          int64   `parquet:"name=expires_at, type=INT64, convertedtype=TIMESTAMP_MILLIS"`
	UpdatedAt          int64   `parquet:"name=updated_at, type=INT64, convertedtype=TIMESTAMP_MILLIS"`
}

func mapInvoiceToRecord(src *entity.Invoice) InvoiceRecord {
	rec := InvoiceRecord{
		ID:                 src.ID,
		ProcessorInvoiceID: src.ProcessorInvoiceID,
		PaymentRequest:     src.PaymentRequest,
		AmountSats:         src.AmountSats,
		BatchCount:         int32(src.BatchCount),
		TokenAmount:        int64(src.TokenAmount),
		RGBInvoice:         src.RGBInvoice,
		Tier:               src.Tier,
		IdempotencyKey:     src.IdempotencyKey,
		Status:             src.Status.String(),
		PaidAmountSats:     src.PaidAmountSats,
		CreatedAt:          src.CreatedAt.UnixMilli(),
		ExpiresAt:          src.ExpiresAt.UnixMilli(),
		UpdatedAt:          src.UpdatedAt.UnixMilli(),
	}
	if !src.PaidAt.IsZero() {
		paidAt := src.PaidAt.UnixMilli()
		rec.PaidAt = &paidAt
	}
	if src.Transfer != nil {
		txID, assetID := src.Transfer.TxID, src.Transfer.AssetID
		rec.TransferTxID = &txID
		rec.TransferAssetID = &assetID
	}
	return rec
}
