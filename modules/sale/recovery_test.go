package sale

import (
	"context"
	"testing"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/gaze-network/batchsale/modules/sale/internal/entity"
	"github.com/gaze-network/batchsale/modules/sale/ledger"
	"github.com/gaze-network/batchsale/modules/sale/repository/memory"
	"github.com/gaze-network/batchsale/pkg/rgbnode"
	"github.com/samber/lo"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRestoreLedger(t *testing.T) {
	ctx := context.Background()
	repo := memory.NewRepository()

	l, err := RestoreLedger(ctx, repo, 1400)
	require.NoError(t, err)
	res, err := l.Settle(ctx, "inv_a", 700)
	require.NoError(t, err)
	assert.Equal(t, ledger.Settled, res)

	// a restart sees the journaled settlement and keeps the persisted supply
	l, err = RestoreLedger(ctx, repo, 99999)
	require.NoError(t, err)
	assert.True(t, l.IsSettled("inv_a"))
	assert.Equal(t, entity.LedgerStats{TotalSupply: 1400, TotalDistributed: 700, Remaining: 700}, l.Stats())

	res, err = l.Settle(ctx, "inv_a", 700)
	require.NoError(t, err)
	assert.Equal(t, ledger.DuplicateSettlementAttempt, res)
}

func TestResumeInvoices(t *testing.T) {
	ctx := context.Background()
	repo := memory.NewRepository()
	now := time.Now()

	invoices := map[string]entity.InvoiceStatus{
		"inv_pending":  entity.InvoiceStatusPending,
		"inv_paid":     entity.InvoiceStatusPaid,
		"inv_settling": entity.InvoiceStatusSettling,
		"inv_settled":  entity.InvoiceStatusSettled,
		"inv_done":     entity.InvoiceStatusSettled,
		"inv_expired":  entity.InvoiceStatusExpired,
		"inv_failed":   entity.InvoiceStatusSettlementFailed,
	}
	for id, status := range invoices {
		inv := &entity.Invoice{
			ID:                 id,
			ProcessorInvoiceID: "p-" + id,
			IdempotencyKey:     "key-" + id,
			Status:             status,
			CreatedAt:          now,
			ExpiresAt:          now.Add(InvoiceTTL),
			UpdatedAt:          now,
		}
		if id == "inv_done" {
			inv.Transfer = &entity.TransferArtifact{TxID: "tx"}
		}
		require.NoError(t, repo.CreateInvoice(ctx, inv))
	}

	registrar := &fakeRegistrar{}
	n, err := ResumeInvoices(ctx, repo, registrar)
	require.NoError(t, err)
	assert.Equal(t, 4, n)

	ids := lo.Map(registrar.invoices, func(inv *entity.Invoice, _ int) string { return inv.ID })
	assert.ElementsMatch(t, []string{"inv_pending", "inv_paid", "inv_settling", "inv_settled"}, ids)
}

type fakeBalance struct {
	spendable uint64
	err       error
}

func (f fakeBalance) AssetBalance(context.Context) (*rgbnode.AssetBalance, error) {
	if f.err != nil {
		return nil, f.err
	}
	return &rgbnode.AssetBalance{Settled: f.spendable, Spendable: f.spendable}, nil
}

func TestCheckAssetBalance(t *testing.T) {
	ctx := context.Background()

	covered, err := CheckAssetBalance(ctx, fakeBalance{spendable: 7000}, 7000)
	require.NoError(t, err)
	assert.True(t, covered)

	covered, err = CheckAssetBalance(ctx, fakeBalance{spendable: 6999}, 7000)
	require.NoError(t, err)
	assert.False(t, covered)

	_, err = CheckAssetBalance(ctx, fakeBalance{err: errors.New("connection refused")}, 7000)
	assert.Error(t, err)
}
