package stats

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/gaze-network/batchsale/modules/sale/internal/entity"
	"github.com/gaze-network/batchsale/pkg/backoff"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type clock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *clock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *clock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

var testStats = entity.LedgerStats{TotalSupply: 21_000_000, TotalDistributed: 7000, Remaining: 20_993_000}

func TestBackoffSequence(t *testing.T) {
	p := New(func(context.Context) (entity.LedgerStats, error) {
		return entity.LedgerStats{}, errors.New("unavailable")
	}, Config{})

	var delays []int64
	for i := 0; i < 4; i++ {
		p.Poll(context.Background())
		delays = append(delays, p.NextDelay().Milliseconds())
	}
	assert.Equal(t, []int64{15000, 30000, 60000, 60000}, delays)
}

func TestStaleThenDegraded(t *testing.T) {
	c := &clock{now: time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)}
	var fail atomic.Bool
	p := New(func(context.Context) (entity.LedgerStats, error) {
		if fail.Load() {
			return entity.LedgerStats{}, errors.New("store down")
		}
		return testStats, nil
	}, Config{Now: c.Now})

	snap := p.Snapshot()
	assert.True(t, snap.Degraded, "no data before the first poll")

	snap = p.Poll(context.Background())
	assert.False(t, snap.Stale)
	assert.False(t, snap.Degraded)
	assert.Equal(t, testStats, snap.LedgerStats)
	fetchedAt := snap.FetchedAt

	fail.Store(true)
	c.Advance(time.Minute)
	snap = p.Poll(context.Background())
	assert.True(t, snap.Stale)
	assert.False(t, snap.Degraded)
	assert.Equal(t, testStats, snap.LedgerStats)
	assert.Equal(t, fetchedAt, snap.FetchedAt)
	assert.Contains(t, snap.Error, "store down")

	c.Advance(4 * time.Minute)
	snap = p.Poll(context.Background())
	assert.True(t, snap.Degraded)
	assert.Zero(t, snap.TotalSupply)

	fail.Store(false)
	snap = p.Poll(context.Background())
	assert.False(t, snap.Degraded)
	assert.False(t, snap.Stale)
	assert.Empty(t, snap.Error)
	assert.Equal(t, backoff.DefaultBase, p.NextDelay())
}

func TestPauseResume(t *testing.T) {
	p := New(func(context.Context) (entity.LedgerStats, error) {
		return entity.LedgerStats{}, errors.New("unavailable")
	}, Config{})
	p.Poll(context.Background())
	p.Poll(context.Background())
	require.Equal(t, 30*time.Second, p.NextDelay())

	p.Pause()
	assert.True(t, p.Snapshot().Paused)

	// the read resumed the poller and reset its attempts
	assert.False(t, p.Snapshot().Paused)
	assert.Equal(t, 15*time.Second, p.NextDelay())
}

func TestRunPausesWhenIdle(t *testing.T) {
	var fetches atomic.Int32
	p := New(func(context.Context) (entity.LedgerStats, error) {
		fetches.Add(1)
		return testStats, nil
	}, Config{
		Policy:      backoff.Policy{Base: 5 * time.Millisecond, Max: 20 * time.Millisecond},
		IdleTimeout: 30 * time.Millisecond,
	})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go p.Run(ctx)

	require.Eventually(t, func() bool {
		p.mu.Lock()
		defer p.mu.Unlock()
		return p.paused
	}, time.Second, 5*time.Millisecond)

	paused := fetches.Load()
	time.Sleep(30 * time.Millisecond)
	assert.Equal(t, paused, fetches.Load())

	snap := p.Snapshot()
	assert.Equal(t, testStats, snap.LedgerStats)
	require.Eventually(t, func() bool { return fetches.Load() > paused }, time.Second, 5*time.Millisecond)
}
