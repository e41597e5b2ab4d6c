package memory

import (
	"context"
	"testing"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/gaze-network/batchsale/common/errs"
	"github.com/gaze-network/batchsale/modules/sale/datagateway"
	"github.com/gaze-network/batchsale/modules/sale/internal/entity"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newInvoice(id, key string, createdAt time.Time) *entity.Invoice {
	return &entity.Invoice{
		ID:                 id,
		ProcessorInvoiceID: "btcpay-" + id,
		IdempotencyKey:     key,
		Status:             entity.InvoiceStatusPending,
		AmountSats:         2000,
		BatchCount:         1,
		TokenAmount:        700,
		CreatedAt:          createdAt,
		UpdatedAt:          createdAt,
		ExpiresAt:          createdAt.Add(15 * time.Minute),
	}
}

func TestInvoiceLifecycle(t *testing.T) {
	ctx := context.Background()
	repo := NewRepository()
	now := time.Now()

	inv := newInvoice("inv_1", "key-00000001", now)
	require.NoError(t, repo.CreateInvoice(ctx, inv))

	err := repo.CreateInvoice(ctx, newInvoice("inv_2", "key-00000001", now))
	assert.True(t, errors.Is(err, errs.Conflict))

	got, err := repo.GetInvoiceByIdempotencyKey(ctx, "key-00000001")
	require.NoError(t, err)
	assert.Equal(t, "inv_1", got.ID)

	got, err = repo.GetInvoiceByProcessorID(ctx, "btcpay-inv_1")
	require.NoError(t, err)
	assert.Equal(t, "inv_1", got.ID)

	// returned values are copies
	got.Status = entity.InvoiceStatusSettled
	got, err = repo.GetInvoiceByID(ctx, "inv_1")
	require.NoError(t, err)
	assert.Equal(t, entity.InvoiceStatusPending, got.Status)

	require.NoError(t, repo.UpdateInvoiceStatus(ctx, datagateway.UpdateInvoiceStatusParams{
		ID: "inv_1", From: entity.InvoiceStatusPending, To: entity.InvoiceStatusPaid,
		PaidAmountSats: 2000, PaidAt: now, UpdatedAt: now,
	}))
	err = repo.UpdateInvoiceStatus(ctx, datagateway.UpdateInvoiceStatusParams{
		ID: "inv_1", From: entity.InvoiceStatusPending, To: entity.InvoiceStatusExpired, UpdatedAt: now,
	})
	assert.True(t, errors.Is(err, errs.Conflict), "compare-and-set must fail on a stale status")

	got, err = repo.GetInvoiceByID(ctx, "inv_1")
	require.NoError(t, err)
	assert.Equal(t, entity.InvoiceStatusPaid, got.Status)
	assert.Equal(t, int64(2000), got.PaidAmountSats)

	_, err = repo.GetInvoiceByID(ctx, "inv_404")
	assert.True(t, errors.Is(err, errs.NotFound))
}

func TestArchivableInvoices(t *testing.T) {
	ctx := context.Background()
	repo := NewRepository()
	old := time.Now().Add(-48 * time.Hour)

	statuses := map[string]entity.InvoiceStatus{
		"inv_expired": entity.InvoiceStatusExpired,
		"inv_settled": entity.InvoiceStatusSettled,
		"inv_nopay":   entity.InvoiceStatusSettled,
		"inv_failed":  entity.InvoiceStatusSettlementFailed,
		"inv_pending": entity.InvoiceStatusPending,
	}
	for id, status := range statuses {
		inv := newInvoice(id, "key-"+id, old)
		inv.Status = status
		if id == "inv_settled" {
			inv.Transfer = &entity.TransferArtifact{TxID: "tx"}
		}
		require.NoError(t, repo.CreateInvoice(ctx, inv))
	}

	got, err := repo.GetArchivableInvoices(ctx, time.Now().Add(-24*time.Hour), 10)
	require.NoError(t, err)
	ids := make([]string, 0, len(got))
	for _, inv := range got {
		ids = append(ids, inv.ID)
	}
	assert.ElementsMatch(t, []string{"inv_expired", "inv_settled"}, ids)

	deleted, err := repo.DeleteInvoices(ctx, ids)
	require.NoError(t, err)
	assert.Equal(t, int64(2), deleted)

	_, err = repo.GetInvoiceByIdempotencyKey(ctx, "key-inv_expired")
	assert.True(t, errors.Is(err, errs.NotFound))
}

func TestLedgerJournal(t *testing.T) {
	ctx := context.Background()
	repo := NewRepository()

	_, err := repo.GetLedgerSnapshot(ctx)
	assert.True(t, errors.Is(err, errs.NotFound))

	require.NoError(t, repo.InitLedger(ctx, 1000))
	require.NoError(t, repo.InitLedger(ctx, 5), "second init keeps the original supply")

	require.NoError(t, repo.CreateSettlement(ctx, entity.Settlement{InvoiceID: "inv_1", TokenAmount: 700}))
	err = repo.CreateSettlement(ctx, entity.Settlement{InvoiceID: "inv_1", TokenAmount: 700})
	assert.True(t, errors.Is(err, errs.Conflict))
	err = repo.CreateSettlement(ctx, entity.Settlement{InvoiceID: "inv_2", TokenAmount: 700})
	assert.True(t, errors.Is(err, entity.SupplyExhausted))

	stats, err := repo.GetLedgerStats(ctx)
	require.NoError(t, err)
	assert.Equal(t, entity.LedgerStats{TotalSupply: 1000, TotalDistributed: 700, Remaining: 300}, *stats)

	snapshot, err := repo.GetLedgerSnapshot(ctx)
	require.NoError(t, err)
	assert.Equal(t, uint64(1000), snapshot.TotalSupply)
	assert.Equal(t, uint64(700), snapshot.TotalDistributed)
	require.Len(t, snapshot.Settlements, 1)
	assert.Equal(t, "inv_1", snapshot.Settlements[0].InvoiceID)
}
