// Package monitor drives every issued invoice through its payment lifecycle.
// Each non-terminal invoice is owned by one task goroutine; webhook pushes,
// status stream pushes, poll ticks and the expiry timer are events delivered
// to that task, so transitions of one invoice never interleave.
package monitor

import (
	"context"
	"sync"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/gaze-network/batchsale/common/errs"
	"github.com/gaze-network/batchsale/internal/subscription"
	"github.com/gaze-network/batchsale/modules/sale/datagateway"
	"github.com/gaze-network/batchsale/modules/sale/internal/entity"
	"github.com/gaze-network/batchsale/modules/sale/ledger"
	"github.com/gaze-network/batchsale/pkg/backoff"
	"github.com/gaze-network/batchsale/pkg/logger"
	"github.com/gaze-network/batchsale/pkg/logger/slogx"
)

// StatusChecker reads the payment status of an invoice from the processor.
type StatusChecker interface {
	GetInvoiceStatus(ctx context.Context, processorInvoiceID string) (*entity.PaymentStatus, error)
}

// StatusStreamer pushes a notification whenever the processor side of an
// invoice changes.
type StatusStreamer interface {
	SubscribeStatus(ctx context.Context, processorInvoiceID string, ch chan<- struct{}) (*subscription.ClientSubscription[struct{}], error)
}

// Settler allocates tokens to a paid invoice.
type Settler interface {
	Settle(ctx context.Context, invoiceID string, tokenAmount uint64) (ledger.SettleResult, error)
}

// Consigner produces the transfer artifact of a settled invoice.
type Consigner interface {
	GenerateConsignment(ctx context.Context, rgbInvoice string, tokenAmount uint64) (*entity.TransferArtifact, error)
}

type Config struct {
	Policy        backoff.Policy
	ConsignPolicy backoff.Policy
	Now           func() time.Time
}

type Monitor struct {
	store     datagateway.InvoiceDataGateway
	checker   StatusChecker
	streamer  StatusStreamer // optional
	settler   Settler
	consigner Consigner
	config    Config

	mu          sync.Mutex
	tasks       map[string]*task  // invoice id -> task
	byProcessor map[string]string // processor invoice id -> invoice id
	ctx         context.Context
	cancel      context.CancelFunc
	wg          sync.WaitGroup
	started     bool
	closed      bool
}

func New(
	store datagateway.InvoiceDataGateway,
	checker StatusChecker,
	settler Settler,
	consigner Consigner,
	config Config,
) *Monitor {
	if config.Now == nil {
		config.Now = time.Now
	}
	if config.Policy.Base <= 0 {
		config.Policy = backoff.DefaultPolicy()
	}
	if config.ConsignPolicy.Base <= 0 {
		config.ConsignPolicy = config.Policy
	}
	return &Monitor{
		store:       store,
		checker:     checker,
		settler:     settler,
		consigner:   consigner,
		config:      config,
		tasks:       make(map[string]*task),
		byProcessor: make(map[string]string),
	}
}

// WithStreamer enables push notifications from the processor status stream.
// Polling continues regardless.
func (m *Monitor) WithStreamer(streamer StatusStreamer) *Monitor {
	m.streamer = streamer
	return m
}

// Start makes the monitor accept invoices. Tasks run until ctx is done or
// Shutdown is called.
func (m *Monitor) Start(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return errors.Wrap(errs.Closed, "monitor is shut down")
	}
	if m.started {
		return nil
	}
	m.ctx, m.cancel = context.WithCancel(logger.WithContext(ctx, slogx.String("package", "sale/monitor")))
	m.started = true
	return nil
}

// Shutdown stops every task and waits for them to return, or for ctx.
func (m *Monitor) Shutdown(ctx context.Context) error {
	m.mu.Lock()
	if !m.started || m.closed {
		m.closed = true
		m.mu.Unlock()
		return nil
	}
	m.closed = true
	m.cancel()
	m.mu.Unlock()

	done := make(chan struct{})
	go func() {
		m.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return errors.Wrap(ctx.Err(), "monitor tasks did not stop in time")
	}
}

// Register hands a non-terminal invoice to the monitor. Registering an
// invoice that already has a task is a no-op.
func (m *Monitor) Register(ctx context.Context, invoice *entity.Invoice) error {
	_, err := m.register(invoice)
	return errors.WithStack(err)
}

func (m *Monitor) register(invoice *entity.Invoice) (*task, error) {
	if invoice == nil || invoice.ID == "" {
		return nil, errors.Wrap(errs.InvalidArgument, "invoice is required")
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if !m.started || m.closed {
		return nil, errors.Wrap(errs.Closed, "monitor is not running")
	}
	if t, ok := m.tasks[invoice.ID]; ok {
		return t, nil
	}
	if invoice.Status.IsTerminal() && !invoice.TransferPending() {
		return nil, nil
	}

	t := newTask(m, invoice.Clone())
	m.tasks[invoice.ID] = t
	if invoice.ProcessorInvoiceID != "" {
		m.byProcessor[invoice.ProcessorInvoiceID] = invoice.ID
	}
	m.wg.Add(1)
	go func() {
		defer m.wg.Done()
		defer m.remove(t)
		t.run(m.ctx)
	}()
	return t, nil
}

func (m *Monitor) remove(t *task) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.tasks[t.invoiceID] == t {
		delete(m.tasks, t.invoiceID)
		delete(m.byProcessor, t.processorInvoiceID)
	}
	close(t.done)
}

// OnPaymentConfirmed is the processor push confirmation of an invoice. It
// converges with the poll path on the same transition and is idempotent.
// A confirmation for an invoice past its deadline expires it instead.
func (m *Monitor) OnPaymentConfirmed(ctx context.Context, processorInvoiceID string) error {
	return errors.WithStack(m.dispatch(ctx, processorInvoiceID, eventConfirmed))
}

// OnStatusChanged asks the task of the invoice to re-check its status now.
func (m *Monitor) OnStatusChanged(ctx context.Context, processorInvoiceID string) error {
	return errors.WithStack(m.dispatch(ctx, processorInvoiceID, eventChanged))
}

func (m *Monitor) dispatch(ctx context.Context, processorInvoiceID string, ev event) error {
	m.mu.Lock()
	t := m.tasks[m.byProcessor[processorInvoiceID]]
	m.mu.Unlock()

	if t == nil {
		invoice, err := m.store.GetInvoiceByProcessorID(ctx, processorInvoiceID)
		if err != nil {
			return errors.Wrapf(err, "can't find invoice of processor invoice %q", processorInvoiceID)
		}
		if invoice.Status == entity.InvoiceStatusExpired && ev == eventConfirmed {
			// the expiry timer won, the money still arrived
			logger.IncidentContext(ctx, "late_payment", "payment confirmed after invoice deadline, refund required",
				slogx.String("invoice_id", invoice.ID),
				slogx.String("processor_invoice_id", processorInvoiceID),
				slogx.Int64("amount_sats", invoice.AmountSats),
				slogx.Time("expires_at", invoice.ExpiresAt),
			)
			return nil
		}
		if invoice.Status.IsTerminal() {
			logger.DebugContext(ctx, "ignoring event for terminal invoice",
				slogx.String("invoice_id", invoice.ID),
				slogx.Stringer("status", invoice.Status),
			)
			return nil
		}
		if t, err = m.register(invoice); err != nil {
			return errors.WithStack(err)
		}
		if t == nil {
			return nil
		}
	}
	t.send(ctx, ev)
	return nil
}

// Active returns the number of invoices with a running task.
func (m *Monitor) Active() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.tasks)
}

func (m *Monitor) now() time.Time {
	return m.config.Now()
}
