package purchasevalidator

import (
	"context"
	"testing"
	"time"

	"github.com/gaze-network/batchsale/modules/sale/internal/entity"
	"github.com/gaze-network/batchsale/modules/sale/repository/memory"
	"github.com/gaze-network/batchsale/modules/sale/tier"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const validRGBInvoice = "rgb:contract:utxob:5Kd3NBUAdUnhyzenEwVLy9pBKxSwXvE9FMPyR4UKZvpe6E3AgLr"

func TestPurchaseValidator(t *testing.T) {
	testCases := []struct {
		name       string
		rgbInvoice string
		tier       tier.Tier
		batchCount int
		key        string
		reason     string
	}{
		{"valid", validRGBInvoice, tier.Bronze, 5, "purchase-0001", ""},
		{"bad rgb invoice", "bitcoin:bc1q", tier.Bronze, 1, "purchase-0001", INVALID_RGB_INVOICE},
		{"ungated", validRGBInvoice, tier.Ungated, 1, "purchase-0001", TIER_NOT_GATED},
		{"zero batches", validRGBInvoice, tier.Gold, 0, "purchase-0001", INVALID_BATCH_COUNT},
		{"over tier limit", validRGBInvoice, tier.Silver, 11, "purchase-0001", OVER_LIMIT_PER_TIER},
		{"missing key", validRGBInvoice, tier.Silver, 10, "", MISSING_IDEMPOTENCY_KEY},
		{"short key", validRGBInvoice, tier.Silver, 10, "abc", INVALID_IDEMPOTENCY_KEY},
		{"key with spaces", validRGBInvoice, tier.Silver, 10, "purchase 0001", INVALID_IDEMPOTENCY_KEY},
		{"first failure wins", "nope", tier.Ungated, 0, "", INVALID_RGB_INVOICE},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			v := New()
			v.ValidRGBInvoice(tc.rgbInvoice)
			v.WithinTierLimit(tc.tier, tc.batchCount)
			v.ValidIdempotencyKey(tc.key)

			assert.Equal(t, tc.reason == "", v.Valid)
			assert.Equal(t, tc.reason, v.Reason)
		})
	}
}

func TestMatchesPreviousIssue(t *testing.T) {
	ctx := context.Background()
	store := memory.NewRepository()
	now := time.Now()
	require.NoError(t, store.CreateInvoice(ctx, &entity.Invoice{
		ID:             "inv_1",
		IdempotencyKey: "purchase-0001",
		Fingerprint:    "fp-1",
		Status:         entity.InvoiceStatusPending,
		CreatedAt:      now,
		ExpiresAt:      now.Add(15 * time.Minute),
	}))

	t.Run("unused key", func(t *testing.T) {
		v := New()
		valid, replay, err := v.MatchesPreviousIssue(ctx, store, "purchase-0002", "fp-2")
		require.NoError(t, err)
		assert.True(t, valid)
		assert.Nil(t, replay)
	})

	t.Run("same purchase", func(t *testing.T) {
		v := New()
		valid, replay, err := v.MatchesPreviousIssue(ctx, store, "purchase-0001", "fp-1")
		require.NoError(t, err)
		assert.True(t, valid)
		require.NotNil(t, replay)
		assert.Equal(t, "inv_1", replay.ID)
	})

	t.Run("different purchase", func(t *testing.T) {
		v := New()
		valid, replay, err := v.MatchesPreviousIssue(ctx, store, "purchase-0001", "fp-other")
		require.NoError(t, err)
		assert.False(t, valid)
		assert.Nil(t, replay)
		assert.Equal(t, IDEMPOTENCY_KEY_REUSED, v.Reason)
	})

	t.Run("skipped after a failure", func(t *testing.T) {
		v := New()
		v.Fail(INVALID_RGB_INVOICE)
		valid, replay, err := v.MatchesPreviousIssue(ctx, store, "purchase-0001", "fp-other")
		require.NoError(t, err)
		assert.False(t, valid)
		assert.Nil(t, replay)
		assert.Equal(t, INVALID_RGB_INVOICE, v.Reason)
	})
}
