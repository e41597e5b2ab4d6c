package ledger

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/gaze-network/batchsale/common/errs"
	"github.com/gaze-network/batchsale/modules/sale/internal/entity"
	"github.com/gaze-network/batchsale/modules/sale/repository/memory"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type failingJournal struct {
	*memory.Repository
	err error
}

func (f failingJournal) CreateSettlement(context.Context, entity.Settlement) error {
	return f.err
}

func TestSettle(t *testing.T) {
	ctx := context.Background()
	l := New(1400)

	result, err := l.Settle(ctx, "inv_1", 700)
	require.NoError(t, err)
	assert.Equal(t, Settled, result)

	result, err = l.Settle(ctx, "inv_1", 700)
	require.NoError(t, err)
	assert.Equal(t, DuplicateSettlementAttempt, result)

	result, err = l.Settle(ctx, "inv_2", 700)
	require.NoError(t, err)
	assert.Equal(t, Settled, result)

	result, err = l.Settle(ctx, "inv_3", 700)
	require.NoError(t, err)
	assert.Equal(t, SupplyExhausted, result)

	assert.Equal(t, entity.LedgerStats{TotalSupply: 1400, TotalDistributed: 1400, Remaining: 0}, l.Stats())
	assert.True(t, l.IsSettled("inv_2"))
	assert.False(t, l.IsSettled("inv_3"))
}

func TestSettleSupplyExhaustedLeavesLedgerUnchanged(t *testing.T) {
	l := New(1000)
	_, err := l.Settle(context.Background(), "inv_1", 700)
	require.NoError(t, err)

	result, err := l.Settle(context.Background(), "inv_2", 700)
	require.NoError(t, err)
	assert.Equal(t, SupplyExhausted, result)
	assert.Equal(t, uint64(700), l.Stats().TotalDistributed)
	assert.Equal(t, uint64(300), l.Stats().Remaining)
}

func TestSettleInvalidArguments(t *testing.T) {
	l := New(1000)
	_, err := l.Settle(context.Background(), "", 700)
	assert.True(t, errors.Is(err, errs.InvalidArgument))
	_, err = l.Settle(context.Background(), "inv_1", 0)
	assert.True(t, errors.Is(err, errs.InvalidArgument))
}

func TestSettleConcurrentSameInvoice(t *testing.T) {
	l := New(70000)

	var (
		wg      sync.WaitGroup
		mu      sync.Mutex
		results = map[SettleResult]int{}
	)
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			result, err := l.Settle(context.Background(), "inv_same", 700)
			assert.NoError(t, err)
			mu.Lock()
			results[result]++
			mu.Unlock()
		}()
	}
	wg.Wait()

	assert.Equal(t, 1, results[Settled])
	assert.Equal(t, 49, results[DuplicateSettlementAttempt])
	assert.Equal(t, uint64(700), l.Stats().TotalDistributed)
}

func TestSettleConcurrentNeverOversells(t *testing.T) {
	// supply for exactly 10 batches, 25 buyers
	l := New(7000)

	var wg sync.WaitGroup
	for i := 0; i < 25; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, err := l.Settle(context.Background(), fmt.Sprintf("inv_%d", i), 700)
			assert.NoError(t, err)
		}(i)
	}
	wg.Wait()

	stats := l.Stats()
	assert.Equal(t, uint64(7000), stats.TotalDistributed)
	assert.Equal(t, uint64(0), stats.Remaining)
}

func TestSettleJournal(t *testing.T) {
	ctx := context.Background()

	t.Run("writes through", func(t *testing.T) {
		repo := memory.NewRepository()
		require.NoError(t, repo.InitLedger(ctx, 1400))
		l := New(1400, WithJournal(repo))

		result, err := l.Settle(ctx, "inv_1", 700)
		require.NoError(t, err)
		assert.Equal(t, Settled, result)

		snapshot, err := repo.GetLedgerSnapshot(ctx)
		require.NoError(t, err)
		assert.Equal(t, uint64(700), snapshot.TotalDistributed)
	})

	t.Run("failure rolls back", func(t *testing.T) {
		l := New(1400, WithJournal(failingJournal{err: errors.New("connection reset")}))

		_, err := l.Settle(ctx, "inv_1", 700)
		require.Error(t, err)
		assert.False(t, l.IsSettled("inv_1"))
		assert.Equal(t, uint64(0), l.Stats().TotalDistributed)
	})

	t.Run("already durable", func(t *testing.T) {
		l := New(1400, WithJournal(failingJournal{err: errors.Wrap(errs.Conflict, "duplicate key")}))

		result, err := l.Settle(ctx, "inv_1", 700)
		require.NoError(t, err)
		assert.Equal(t, DuplicateSettlementAttempt, result)
		assert.True(t, l.IsSettled("inv_1"))
	})

	t.Run("durable supply exhausted", func(t *testing.T) {
		l := New(1400, WithJournal(failingJournal{err: errors.WithStack(entity.SupplyExhausted)}))

		result, err := l.Settle(ctx, "inv_1", 700)
		require.NoError(t, err)
		assert.Equal(t, SupplyExhausted, result)
		assert.Equal(t, uint64(0), l.Stats().TotalDistributed)
	})
}

func TestRestore(t *testing.T) {
	l, err := Restore(entity.LedgerSnapshot{
		TotalSupply:      2100,
		TotalDistributed: 1400,
		Settlements: []entity.Settlement{
			{InvoiceID: "inv_1", TokenAmount: 700},
			{InvoiceID: "inv_2", TokenAmount: 700},
		},
	})
	require.NoError(t, err)
	assert.Equal(t, uint64(700), l.Stats().Remaining)

	result, err := l.Settle(context.Background(), "inv_2", 700)
	require.NoError(t, err)
	assert.Equal(t, DuplicateSettlementAttempt, result)

	_, err = Restore(entity.LedgerSnapshot{TotalSupply: 100, TotalDistributed: 700, Settlements: []entity.Settlement{{InvoiceID: "inv_1", TokenAmount: 700}}})
	assert.True(t, errors.Is(err, errs.InternalError))

	_, err = Restore(entity.LedgerSnapshot{TotalSupply: 2100, TotalDistributed: 0, Settlements: []entity.Settlement{{InvoiceID: "inv_1", TokenAmount: 700}}})
	assert.True(t, errors.Is(err, errs.InternalError))
}

type blockingJournal struct {
	*memory.Repository
	release chan error
	entered chan string
}

func (j blockingJournal) CreateSettlement(_ context.Context, s entity.Settlement) error {
	j.entered <- s.InvoiceID
	return <-j.release
}

func TestSettleWaitsForPendingAllocation(t *testing.T) {
	ctx := context.Background()

	t.Run("rolled back allocation frees the supply", func(t *testing.T) {
		journal := blockingJournal{release: make(chan error, 2), entered: make(chan string, 2)}
		l := New(1000, WithJournal(journal))

		first := make(chan error, 1)
		go func() {
			_, err := l.Settle(ctx, "inv_1", 700)
			first <- err
		}()
		require.Equal(t, "inv_1", <-journal.entered)

		type outcome struct {
			result SettleResult
			err    error
		}
		second := make(chan outcome, 1)
		go func() {
			result, err := l.Settle(ctx, "inv_2", 700)
			second <- outcome{result, err}
		}()

		select {
		case o := <-second:
			t.Fatalf("settlement decided before the pending allocation resolved: %v", o.result)
		case <-time.After(20 * time.Millisecond):
		}

		journal.release <- errors.New("connection reset")
		require.Error(t, <-first)
		require.Equal(t, "inv_2", <-journal.entered)
		journal.release <- nil

		o := <-second
		require.NoError(t, o.err)
		assert.Equal(t, Settled, o.result)
		assert.False(t, l.IsSettled("inv_1"))
		assert.True(t, l.IsSettled("inv_2"))
		assert.Equal(t, uint64(700), l.Stats().TotalDistributed)
	})

	t.Run("committed allocation exhausts the supply", func(t *testing.T) {
		journal := blockingJournal{release: make(chan error, 2), entered: make(chan string, 2)}
		l := New(1000, WithJournal(journal))

		go func() { _, _ = l.Settle(ctx, "inv_1", 700) }()
		require.Equal(t, "inv_1", <-journal.entered)

		second := make(chan SettleResult, 1)
		go func() {
			result, err := l.Settle(ctx, "inv_2", 700)
			assert.NoError(t, err)
			second <- result
		}()
		journal.release <- nil

		assert.Equal(t, SupplyExhausted, <-second)
		assert.Equal(t, uint64(700), l.Stats().TotalDistributed)
	})

	t.Run("waiting respects the context", func(t *testing.T) {
		journal := blockingJournal{release: make(chan error, 1), entered: make(chan string, 1)}
		l := New(1000, WithJournal(journal))
		t.Cleanup(func() { journal.release <- nil })

		go func() { _, _ = l.Settle(ctx, "inv_1", 700) }()
		require.Equal(t, "inv_1", <-journal.entered)

		wctx, cancel := context.WithTimeout(ctx, 20*time.Millisecond)
		defer cancel()
		_, err := l.Settle(wctx, "inv_2", 700)
		assert.ErrorIs(t, err, context.DeadlineExceeded)
	})
}
