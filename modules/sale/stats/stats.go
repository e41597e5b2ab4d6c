// Package stats keeps a cached view of the distribution ledger totals for
// readers that must never wait on the store.
package stats

import (
	"context"
	"sync"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/gaze-network/batchsale/modules/sale/internal/entity"
	"github.com/gaze-network/batchsale/pkg/backoff"
	"github.com/gaze-network/batchsale/pkg/logger"
	"github.com/gaze-network/batchsale/pkg/logger/slogx"
)

const (
	DefaultMaxStale    = 5 * time.Minute
	DefaultIdleTimeout = 10 * time.Minute
)

type FetchFunc func(ctx context.Context) (entity.LedgerStats, error)

type Config struct {
	Policy      backoff.Policy
	MaxStale    time.Duration
	IdleTimeout time.Duration // 0 never pauses on idle
	Now         func() time.Time
}

// Snapshot is what readers get. When the last fetch failed the last good
// stats are served with Stale set, until they are older than MaxStale; after
// that the snapshot is Degraded and carries no stats.
type Snapshot struct {
	entity.LedgerStats
	FetchedAt time.Time
	Stale     bool
	Degraded  bool
	Error     string
	Paused    bool
}

type Poller struct {
	fetch  FetchFunc
	config Config

	mu       sync.Mutex
	state    *backoff.State
	lastGood *entity.LedgerStats
	goodAt   time.Time
	lastErr  error
	paused   bool
	lastRead time.Time

	wake chan struct{}
}

func New(fetch FetchFunc, config Config) *Poller {
	if config.Policy.Base <= 0 {
		config.Policy = backoff.DefaultPolicy()
	}
	if config.MaxStale <= 0 {
		config.MaxStale = DefaultMaxStale
	}
	if config.Now == nil {
		config.Now = time.Now
	}
	return &Poller{
		fetch:    fetch,
		config:   config,
		state:    config.Policy.NewState(),
		lastRead: config.Now(),
		wake:     make(chan struct{}, 1),
	}
}

// Poll fetches the stats once and returns the resulting snapshot.
func (p *Poller) Poll(ctx context.Context) Snapshot {
	stats, err := p.fetch(ctx)
	now := p.config.Now()

	p.mu.Lock()
	defer p.mu.Unlock()
	if err != nil {
		p.lastErr = errors.WithStack(err)
		delay := p.state.Failure(now)
		logger.WarnContext(ctx, "failed to fetch ledger stats",
			slogx.Error(err),
			slogx.Int("attempts", p.state.Attempts),
			slogx.Duration("next_poll", delay),
		)
		return p.snapshotLocked(now)
	}
	p.state.Success(now)
	p.lastGood = &stats
	p.goodAt = now
	p.lastErr = nil
	return p.snapshotLocked(now)
}

// Snapshot returns the current view without blocking. Reading marks the
// poller as in use and resumes it if it was paused.
func (p *Poller) Snapshot() Snapshot {
	now := p.config.Now()
	p.mu.Lock()
	p.lastRead = now
	resume := p.paused
	snap := p.snapshotLocked(now)
	p.mu.Unlock()

	if resume {
		p.Resume()
	}
	return snap
}

func (p *Poller) snapshotLocked(now time.Time) Snapshot {
	snap := Snapshot{Paused: p.paused}
	if p.lastErr != nil {
		snap.Error = p.lastErr.Error()
	}
	if p.lastGood == nil || now.Sub(p.goodAt) >= p.config.MaxStale {
		snap.Degraded = true
		snap.FetchedAt = p.goodAt
		return snap
	}
	snap.LedgerStats = *p.lastGood
	snap.FetchedAt = p.goodAt
	snap.Stale = p.lastErr != nil
	return snap
}

// Pause stops polling until Resume or the next read.
func (p *Poller) Pause() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.paused = true
}

// Resume restarts polling right away with a fresh attempt counter.
func (p *Poller) Resume() {
	p.mu.Lock()
	p.paused = false
	p.state.Reset()
	p.mu.Unlock()

	select {
	case p.wake <- struct{}{}:
	default:
	}
}

// NextDelay is the wait before the next poll.
func (p *Poller) NextDelay() time.Duration {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.state.NextDelay()
}

func (p *Poller) shouldPause(now time.Time) bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	if !p.paused && p.config.IdleTimeout > 0 && now.Sub(p.lastRead) >= p.config.IdleTimeout {
		p.paused = true
		logger.Info("no stats readers, pausing ledger stats polling", slogx.Duration("idle", now.Sub(p.lastRead)))
	}
	return p.paused
}

// Run polls until ctx is done.
func (p *Poller) Run(ctx context.Context) {
	ctx = logger.WithContext(ctx, slogx.String("package", "sale/stats"))
	timer := time.NewTimer(0)
	defer timer.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-timer.C:
			if p.shouldPause(p.config.Now()) {
				continue
			}
			p.Poll(ctx)
			timer.Reset(p.NextDelay())
		case <-p.wake:
			timer.Reset(0)
		}
	}
}
