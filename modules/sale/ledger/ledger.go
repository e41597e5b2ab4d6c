// Package ledger owns the token distribution ledger. There is one Ledger per
// process; every allocation goes through Settle, which serialises the
// check-and-reserve on a mutex and journals the result afterwards.
package ledger

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/gaze-network/batchsale/common/errs"
	"github.com/gaze-network/batchsale/modules/sale/datagateway"
	"github.com/gaze-network/batchsale/modules/sale/internal/entity"
)

type SettleResult int

const (
	Settled SettleResult = iota + 1
	DuplicateSettlementAttempt
	SupplyExhausted
)

func (r SettleResult) String() string {
	switch r {
	case Settled:
		return "settled"
	case DuplicateSettlementAttempt:
		return "duplicate_settlement_attempt"
	case SupplyExhausted:
		return "supply_exhausted"
	}
	return fmt.Sprintf("SettleResult(%d)", int(r))
}

type Ledger struct {
	mu               sync.Mutex
	totalSupply      uint64
	totalDistributed uint64
	settled          map[string]uint64

	// allocations taken under mu whose journal write has not returned yet
	reserved uint64
	pending  map[string]uint64
	// closed and replaced whenever a pending allocation resolves
	resolved chan struct{}

	journal datagateway.LedgerJournal // optional
	now     func() time.Time
}

type Option func(*Ledger)

// WithJournal makes every settlement durable through j.
func WithJournal(j datagateway.LedgerJournal) Option {
	return func(l *Ledger) { l.journal = j }
}

// WithClock overrides time.Now for settlement timestamps.
func WithClock(now func() time.Time) Option {
	return func(l *Ledger) { l.now = now }
}

// New returns an empty ledger over totalSupply tokens.
func New(totalSupply uint64, opts ...Option) *Ledger {
	l := &Ledger{
		totalSupply: totalSupply,
		settled:     make(map[string]uint64),
		pending:     make(map[string]uint64),
		resolved:    make(chan struct{}),
		now:         time.Now,
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// Restore rebuilds a ledger from a persisted snapshot. A snapshot that breaks
// the ledger invariants is rejected.
func Restore(snapshot entity.LedgerSnapshot, opts ...Option) (*Ledger, error) {
	l := New(snapshot.TotalSupply, opts...)
	for _, s := range snapshot.Settlements {
		if _, ok := l.settled[s.InvoiceID]; ok {
			return nil, errors.Wrapf(errs.InternalError, "snapshot settles invoice %q twice", s.InvoiceID)
		}
		l.settled[s.InvoiceID] = s.TokenAmount
		l.totalDistributed += s.TokenAmount
	}
	if l.totalDistributed != snapshot.TotalDistributed {
		return nil, errors.Wrapf(errs.InternalError, "snapshot distributed total %d does not match settlements sum %d",
			snapshot.TotalDistributed, l.totalDistributed)
	}
	if err := l.checkInvariants(); err != nil {
		return nil, errors.WithStack(err)
	}
	return l, nil
}

// Settle allocates tokenAmount to invoiceID exactly once. A second call for
// the same invoice is a no-op reported as DuplicateSettlementAttempt, and an
// amount above the remaining supply leaves the ledger unchanged.
//
// With a journal the allocation is only reserved until the journal write
// returns. A settlement that fits the remaining supply but not the remaining
// supply minus open reservations waits for them to resolve, so an allocation
// that is rolled back never turns another invoice away.
func (l *Ledger) Settle(ctx context.Context, invoiceID string, tokenAmount uint64) (SettleResult, error) {
	if invoiceID == "" {
		return 0, errors.Wrap(errs.InvalidArgument, "empty invoice id")
	}
	if tokenAmount == 0 {
		return 0, errors.Wrap(errs.InvalidArgument, "token amount must be positive")
	}

	for {
		result, wait, err := l.reserve(invoiceID, tokenAmount)
		if err != nil {
			return 0, errors.WithStack(err)
		}
		if wait == nil {
			if result != Settled || l.journal == nil {
				return result, nil
			}
			break
		}
		select {
		case <-ctx.Done():
			return 0, errors.WithStack(ctx.Err())
		case <-wait:
		}
	}

	err := l.journal.CreateSettlement(ctx, entity.Settlement{
		InvoiceID:   invoiceID,
		TokenAmount: tokenAmount,
		SettledAt:   l.now(),
	})
	switch {
	case err == nil:
		return Settled, errors.WithStack(l.resolve(invoiceID, tokenAmount, true))
	case errors.Is(err, errs.Conflict):
		// already durable, written by another process or an earlier run
		return DuplicateSettlementAttempt, errors.WithStack(l.resolve(invoiceID, tokenAmount, true))
	case errors.Is(err, entity.SupplyExhausted):
		_ = l.resolve(invoiceID, tokenAmount, false)
		return SupplyExhausted, nil
	default:
		_ = l.resolve(invoiceID, tokenAmount, false)
		return 0, errors.Wrapf(err, "failed to journal settlement of invoice %q", invoiceID)
	}
}

// reserve decides a settlement under mu. A non-nil wait channel means the
// outcome depends on a pending allocation and the caller must retry once it
// is closed. Without a journal a Settled result is final; with one it is a
// reservation to be resolved.
func (l *Ledger) reserve(invoiceID string, tokenAmount uint64) (SettleResult, <-chan struct{}, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if _, ok := l.settled[invoiceID]; ok {
		return DuplicateSettlementAttempt, nil, nil
	}
	if _, ok := l.pending[invoiceID]; ok {
		return 0, l.resolved, nil
	}
	remaining := l.totalSupply - l.totalDistributed
	if tokenAmount > remaining {
		return SupplyExhausted, nil, nil
	}
	if tokenAmount > remaining-l.reserved {
		return 0, l.resolved, nil
	}

	if l.journal != nil {
		l.pending[invoiceID] = tokenAmount
		l.reserved += tokenAmount
		return Settled, nil, nil
	}
	l.settled[invoiceID] = tokenAmount
	l.totalDistributed += tokenAmount
	if err := l.checkInvariants(); err != nil {
		delete(l.settled, invoiceID)
		l.totalDistributed -= tokenAmount
		return 0, nil, errors.WithStack(err)
	}
	return Settled, nil, nil
}

// resolve turns a reservation into an allocation, or releases it, and wakes
// every settlement waiting on it.
func (l *Ledger) resolve(invoiceID string, tokenAmount uint64, commit bool) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	defer func() {
		close(l.resolved)
		l.resolved = make(chan struct{})
	}()

	if _, ok := l.pending[invoiceID]; !ok {
		return errors.Wrapf(errs.InternalError, "invoice %q has no pending allocation", invoiceID)
	}
	delete(l.pending, invoiceID)
	l.reserved -= tokenAmount
	if !commit {
		return nil
	}
	l.settled[invoiceID] = tokenAmount
	l.totalDistributed += tokenAmount
	return errors.WithStack(l.checkInvariants())
}

// checkInvariants must be called with mu held.
func (l *Ledger) checkInvariants() error {
	if l.totalDistributed+l.reserved > l.totalSupply {
		return errors.Wrapf(errs.InternalError, "distributed %d with %d reserved exceeds supply %d", l.totalDistributed, l.reserved, l.totalSupply)
	}
	var sum uint64
	for _, amount := range l.settled {
		sum += amount
	}
	if sum != l.totalDistributed {
		return errors.Wrapf(errs.InternalError, "distributed %d does not match settlements sum %d", l.totalDistributed, sum)
	}
	return nil
}

// IsSettled reports whether the invoice holds an allocation.
func (l *Ledger) IsSettled(invoiceID string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	_, ok := l.settled[invoiceID]
	return ok
}

func (l *Ledger) Stats() entity.LedgerStats {
	l.mu.Lock()
	defer l.mu.Unlock()
	return entity.LedgerStats{
		TotalSupply:      l.totalSupply,
		TotalDistributed: l.totalDistributed,
		Remaining:        l.totalSupply - l.totalDistributed,
	}
}
