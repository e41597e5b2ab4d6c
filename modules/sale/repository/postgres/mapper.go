package postgres

import (
	"time"

	"github.com/gaze-network/batchsale/modules/sale/internal/entity"
	"github.com/gaze-network/batchsale/modules/sale/repository/postgres/gen"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/samber/lo"
)

func timestamptz(t time.Time) pgtype.Timestamptz {
	if t.IsZero() {
		return pgtype.Timestamptz{}
	}
	return pgtype.Timestamptz{Time: t, Valid: true}
}

func text(s string, valid bool) pgtype.Text {
	return pgtype.Text{String: s, Valid: valid}
}

func mapInvoiceModelToType(src *entity.Invoice) gen.CreateInvoiceParams {
	params := gen.CreateInvoiceParams{
		ID:                 src.ID,
		ProcessorInvoiceID: src.ProcessorInvoiceID,
		PaymentRequest:     src.PaymentRequest,
		AmountSats:         src.AmountSats,
		BatchCount:         int32(src.BatchCount),
		TokenAmount:        int64(src.TokenAmount),
		RgbInvoice:         src.RGBInvoice,
		Tier:               src.Tier,
		IdempotencyKey:     src.IdempotencyKey,
		Fingerprint:        src.Fingerprint,
		Status:             src.Status.String(),
		PaidAmountSats:     src.PaidAmountSats,
		PaidAt:             timestamptz(src.PaidAt),
		CreatedAt:          timestamptz(src.CreatedAt),
		ExpiresAt:          timestamptz(src.ExpiresAt),
		UpdatedAt:          timestamptz(src.UpdatedAt),
	}
	if t := src.Transfer; t != nil {
		params.TransferTxid = text(t.TxID, true)
		params.TransferRecipientID = text(t.RecipientID, true)
		params.TransferAssetID = text(t.AssetID, true)
		params.TransferAmount = pgtype.Int8{Int64: int64(t.Amount), Valid: true}
		params.TransferCreatedAt = timestamptz(t.CreatedAt)
	}
	return params
}

func mapInvoiceTypeToModel(src gen.SaleInvoice) *entity.Invoice {
	inv := &entity.Invoice{
		ID:                 src.ID,
		ProcessorInvoiceID: src.ProcessorInvoiceID,
		PaymentRequest:     src.PaymentRequest,
		AmountSats:         src.AmountSats,
		BatchCount:         int(src.BatchCount),
		TokenAmount:        uint64(src.TokenAmount),
		RGBInvoice:         src.RgbInvoice,
		Tier:               src.Tier,
		IdempotencyKey:     src.IdempotencyKey,
		Fingerprint:        src.Fingerprint,
		Status:             entity.InvoiceStatus(src.Status),
		PaidAmountSats:     src.PaidAmountSats,
		CreatedAt:          src.CreatedAt.Time,
		ExpiresAt:          src.ExpiresAt.Time,
		UpdatedAt:          src.UpdatedAt.Time,
	}
	if src.PaidAt.Valid {
		inv.PaidAt = src.PaidAt.Time
	}
	if src.TransferTxid.Valid {
		inv.Transfer = &entity.TransferArtifact{
			TxID:        src.TransferTxid.String,
			RecipientID: src.TransferRecipientID.String,
			AssetID:     src.TransferAssetID.String,
			Amount:      uint64(src.TransferAmount.Int64),
			CreatedAt:   src.TransferCreatedAt.Time,
		}
	}
	return inv
}

func mapInvoiceTypesToModels(src []gen.SaleInvoice) []*entity.Invoice {
	return lo.Map(src, func(item gen.SaleInvoice, _ int) *entity.Invoice {
		return mapInvoiceTypeToModel(item)
	})
}

func mapSettlementTypeToModel(src gen.SaleSettlement) entity.Settlement {
	return entity.Settlement{
		InvoiceID:   src.InvoiceID,
		TokenAmount: uint64(src.TokenAmount),
		SettledAt:   src.SettledAt.Time,
	}
}
