package monitor

import (
	"context"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/gaze-network/batchsale/common/errs"
	"github.com/gaze-network/batchsale/modules/sale/datagateway"
	"github.com/gaze-network/batchsale/modules/sale/internal/entity"
	"github.com/gaze-network/batchsale/modules/sale/ledger"
	"github.com/gaze-network/batchsale/pkg/logger"
	"github.com/gaze-network/batchsale/pkg/logger/slogx"
)

type event int

const (
	// processor confirmed the payment
	eventConfirmed event = iota + 1
	// processor side changed, check now
	eventChanged
)

const eventBuffer = 8

type pollResult struct {
	seq    uint64
	status *entity.PaymentStatus
	err    error
}

// task owns one invoice. Only the task goroutine reads or writes invoice.
type task struct {
	m                  *Monitor
	invoiceID          string
	processorInvoiceID string
	invoice            *entity.Invoice
	events             chan event
	done               chan struct{}
}

func newTask(m *Monitor, invoice *entity.Invoice) *task {
	return &task{
		m:                  m,
		invoiceID:          invoice.ID,
		processorInvoiceID: invoice.ProcessorInvoiceID,
		invoice:            invoice,
		events:             make(chan event, eventBuffer),
		done:               make(chan struct{}),
	}
}

// send never blocks the caller. While the task is busy settling or
// delivering nobody reads events, and a full buffer already holds a pending
// check, so the event is dropped. Confirmations are idempotent and the poll
// path reaches the same transition.
func (t *task) send(ctx context.Context, ev event) {
	select {
	case t.events <- ev:
	case <-t.done:
		// task finished, the invoice no longer waits for events
	default:
		logger.DebugContext(ctx, "invoice task busy, dropping event",
			slogx.String("invoice_id", t.invoiceID),
			slogx.Int("event", int(ev)),
		)
	}
}

func (t *task) run(ctx context.Context) {
	ctx = logger.WithContext(ctx,
		slogx.String("invoice_id", t.invoiceID),
		slogx.String("processor_invoice_id", t.processorInvoiceID),
	)
	for ctx.Err() == nil {
		var err error
		switch t.invoice.Status {
		case entity.InvoiceStatusPending:
			err = t.awaitPayment(ctx)
		case entity.InvoiceStatusPaid, entity.InvoiceStatusSettling:
			err = t.settle(ctx)
		case entity.InvoiceStatusSettled:
			if t.invoice.Transfer != nil {
				return
			}
			err = t.deliver(ctx)
		default:
			return
		}
		if err != nil {
			if ctx.Err() != nil {
				return
			}
			logger.ErrorContext(ctx, "invoice step failed, retrying", err, slogx.Stringer("status", t.invoice.Status))
			if !sleep(ctx, t.m.config.Policy.Base) {
				return
			}
		}
	}
}

// awaitPayment runs the PENDING state until the invoice is paid or expired.
func (t *task) awaitPayment(ctx context.Context) error {
	if t.invoice.IsExpiredAt(t.m.now()) {
		return t.expire(ctx)
	}

	state := t.m.config.Policy.NewState()
	expiry := time.NewTimer(t.invoice.ExpiresAt.Sub(t.m.now()))
	defer expiry.Stop()
	poll := time.NewTimer(state.NextDelay())
	defer poll.Stop()

	pushes := make(chan struct{}, 1)
	var streamErr <-chan error
	if t.m.streamer != nil {
		sub, err := t.m.streamer.SubscribeStatus(ctx, t.processorInvoiceID, pushes)
		if err != nil {
			logger.WarnContext(ctx, "can't open status stream, relying on polling", slogx.Error(err))
		} else {
			defer sub.Unsubscribe()
			streamErr = sub.Err()
		}
	}

	var (
		seq        uint64
		cancelPoll context.CancelFunc = func() {}
		results                       = make(chan pollResult, 1)
	)
	defer func() { cancelPoll() }()

	// at most one status request is in flight, a newer one cancels it
	startPoll := func() {
		cancelPoll()
		seq++
		pctx, cancel := context.WithCancel(ctx)
		cancelPoll = cancel
		go t.check(pctx, seq, results)
		poll.Reset(state.NextDelay())
	}

	for {
		select {
		case <-ctx.Done():
			return errors.WithStack(ctx.Err())

		case <-expiry.C:
			return t.expire(ctx)

		case <-poll.C:
			if t.invoice.IsExpiredAt(t.m.now()) {
				return t.expire(ctx)
			}
			startPoll()

		case <-pushes:
			if t.invoice.IsExpiredAt(t.m.now()) {
				return t.expire(ctx)
			}
			startPoll()

		case err := <-streamErr:
			logger.DebugContext(ctx, "status stream closed", slogx.Error(err))
			streamErr = nil

		case ev := <-t.events:
			if t.invoice.IsExpiredAt(t.m.now()) {
				if ev == eventConfirmed {
					t.latePayment(ctx, t.invoice.AmountSats)
				}
				return t.expire(ctx)
			}
			if ev == eventConfirmed {
				return t.confirm(ctx, t.invoice.AmountSats)
			}
			startPoll()

		case r := <-results:
			if r.seq != seq {
				continue
			}
			now := t.m.now()
			if r.err != nil {
				delay := state.Failure(now)
				attrs := []any{
					slogx.Error(r.err),
					slogx.Int("attempts", state.Attempts),
					slogx.Duration("next_poll", delay),
				}
				if state.IsPaused(now) {
					logger.WarnContext(ctx, "status polling keeps failing, pausing", attrs...)
				} else {
					logger.DebugContext(ctx, "status poll failed", attrs...)
				}
				poll.Reset(delay)
				continue
			}
			poll.Reset(state.Success(now))

			switch {
			case r.status.Expired:
				if r.status.Paid {
					t.latePayment(ctx, r.status.PaidAmountSats)
				}
				return t.expire(ctx)
			case r.status.Paid && r.status.PaidAmountSats >= t.invoice.AmountSats:
				if t.invoice.IsExpiredAt(now) {
					t.latePayment(ctx, r.status.PaidAmountSats)
					return t.expire(ctx)
				}
				return t.confirm(ctx, r.status.PaidAmountSats)
			case r.status.Paid:
				logger.WarnContext(ctx, "invoice underpaid, still waiting",
					slogx.Int64("paid_amount_sats", r.status.PaidAmountSats),
					slogx.Int64("amount_sats", t.invoice.AmountSats),
				)
			}
		}
	}
}

func (t *task) check(ctx context.Context, seq uint64, results chan<- pollResult) {
	status, err := t.m.checker.GetInvoiceStatus(ctx, t.processorInvoiceID)
	if err == nil && status == nil {
		err = errors.Wrap(errs.InternalError, "processor returned no status")
	}
	select {
	case results <- pollResult{seq: seq, status: status, err: err}:
	case <-ctx.Done():
	}
}

func (t *task) confirm(ctx context.Context, paidAmountSats int64) error {
	now := t.m.now()
	err := t.transition(ctx, entity.InvoiceStatusPaid, func(arg *datagateway.UpdateInvoiceStatusParams) {
		arg.PaidAmountSats = paidAmountSats
		arg.PaidAt = now
	})
	if err != nil {
		return errors.WithStack(err)
	}
	logger.InfoContext(ctx, "invoice paid", slogx.Int64("paid_amount_sats", t.invoice.PaidAmountSats))
	return nil
}

func (t *task) expire(ctx context.Context) error {
	if err := t.transition(ctx, entity.InvoiceStatusExpired, nil); err != nil {
		return errors.WithStack(err)
	}
	logger.InfoContext(ctx, "invoice expired", slogx.Time("expires_at", t.invoice.ExpiresAt))
	return nil
}

func (t *task) latePayment(ctx context.Context, paidAmountSats int64) {
	logger.IncidentContext(ctx, "late_payment", "payment confirmed after invoice deadline, refund required",
		slogx.Int64("paid_amount_sats", paidAmountSats),
		slogx.Time("expires_at", t.invoice.ExpiresAt),
	)
}

// settle runs PAID and SETTLING. Ledger errors other than a business result
// leave the invoice SETTLING and are retried by run.
func (t *task) settle(ctx context.Context) error {
	if t.invoice.Status == entity.InvoiceStatusPaid {
		if err := t.transition(ctx, entity.InvoiceStatusSettling, nil); err != nil {
			return errors.WithStack(err)
		}
		if t.invoice.Status != entity.InvoiceStatusSettling {
			return nil
		}
	}

	result, err := t.m.settler.Settle(ctx, t.invoiceID, t.invoice.TokenAmount)
	if err != nil {
		return errors.Wrap(err, "failed to settle invoice")
	}

	switch result {
	case ledger.Settled, ledger.DuplicateSettlementAttempt:
		if err := t.transition(ctx, entity.InvoiceStatusSettled, nil); err != nil {
			return errors.WithStack(err)
		}
		logger.InfoContext(ctx, "invoice settled",
			slogx.Uint64("token_amount", t.invoice.TokenAmount),
			slogx.Stringer("ledger_result", result),
		)
		return nil
	case ledger.SupplyExhausted:
		if err := t.transition(ctx, entity.InvoiceStatusSettlementFailed, nil); err != nil {
			return errors.WithStack(err)
		}
		logger.IncidentContext(ctx, "settlement_failed", "paid invoice can't be settled, supply exhausted, refund required",
			slogx.Uint64("token_amount", t.invoice.TokenAmount),
			slogx.Int64("paid_amount_sats", t.invoice.PaidAmountSats),
		)
		return nil
	}
	return errors.Wrapf(errs.InternalError, "unexpected settle result %s", result)
}

// deliver obtains the transfer artifact of a SETTLED invoice. The invoice
// stays SETTLED with a pending artifact until the RGB engine answers.
func (t *task) deliver(ctx context.Context) error {
	state := t.m.config.ConsignPolicy.NewState()

	var artifact *entity.TransferArtifact
	for artifact == nil {
		a, err := t.m.consigner.GenerateConsignment(ctx, t.invoice.RGBInvoice, t.invoice.TokenAmount)
		if err == nil && a == nil {
			err = errors.Wrap(errs.InternalError, "rgb engine returned no artifact")
		}
		if err == nil {
			artifact = a
			break
		}
		if ctx.Err() != nil {
			return errors.WithStack(ctx.Err())
		}
		now := t.m.now()
		delay := state.Failure(now)
		if state.IsPaused(now) {
			logger.IncidentContext(ctx, "transfer_pending", "settled invoice has no transfer artifact, rgb engine keeps failing",
				slogx.Error(err),
				slogx.Int("attempts", state.Attempts),
				slogx.Duration("retry_in", delay),
			)
		} else {
			logger.WarnContext(ctx, "failed to generate consignment", slogx.Error(err), slogx.Duration("retry_in", delay))
		}
		if !sleep(ctx, delay) {
			return errors.WithStack(ctx.Err())
		}
	}

	// the asset is sent, only the record write is retried from here
	state.Reset()
	for {
		err := t.m.store.SetInvoiceTransfer(ctx, t.invoiceID, *artifact)
		if err == nil {
			break
		}
		logger.ErrorContext(ctx, "failed to store transfer artifact", err, slogx.String("txid", artifact.TxID))
		if !sleep(ctx, state.Failure(t.m.now())) {
			return errors.WithStack(ctx.Err())
		}
	}
	t.invoice.Transfer = artifact
	logger.InfoContext(ctx, "transfer artifact attached", slogx.String("txid", artifact.TxID))
	return nil
}

// transition moves the stored invoice from its current status to next. When
// the store holds a different status the invoice is reloaded and the caller
// continues from whatever state it is in now.
func (t *task) transition(ctx context.Context, next entity.InvoiceStatus, mutate func(*datagateway.UpdateInvoiceStatusParams)) error {
	if !t.invoice.Status.CanTransitionTo(next) {
		return errors.Wrapf(errs.InternalError, "illegal transition %s -> %s", t.invoice.Status, next)
	}
	arg := datagateway.UpdateInvoiceStatusParams{
		ID:             t.invoiceID,
		From:           t.invoice.Status,
		To:             next,
		PaidAmountSats: t.invoice.PaidAmountSats,
		PaidAt:         t.invoice.PaidAt,
		UpdatedAt:      t.m.now(),
	}
	if mutate != nil {
		mutate(&arg)
	}

	err := t.m.store.UpdateInvoiceStatus(ctx, arg)
	if errors.Is(err, errs.Conflict) {
		current, err := t.m.store.GetInvoiceByID(ctx, t.invoiceID)
		if err != nil {
			return errors.Wrap(err, "failed to reload invoice")
		}
		logger.InfoContext(ctx, "invoice status changed elsewhere",
			slogx.Stringer("expected", arg.From),
			slogx.Stringer("actual", current.Status),
		)
		t.invoice = current
		return nil
	}
	if err != nil {
		return errors.Wrapf(err, "failed to move invoice to %s", next)
	}

	t.invoice.Status = next
	t.invoice.PaidAmountSats = arg.PaidAmountSats
	t.invoice.PaidAt = arg.PaidAt
	t.invoice.UpdatedAt = arg.UpdatedAt
	return nil
}

func sleep(ctx context.Context, d time.Duration) bool {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-timer.C:
		return true
	}
}
