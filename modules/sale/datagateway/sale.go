package datagateway

import (
	"context"
	"time"

	"github.com/gaze-network/batchsale/modules/sale/internal/entity"
)

type SaleDataGateway interface {
	InvoiceDataGateway
	LedgerJournal
	LedgerStatsReader

	// BeginSaleTx starts a transaction. Rows read through the returned gateway
	// with a locking read stay locked until Commit or Rollback.
	BeginSaleTx(ctx context.Context) (SaleDataGatewayWithTx, error)
}

type SaleDataGatewayWithTx interface {
	SaleDataGateway
	Tx
}

// InvoiceDataGateway persists invoices and the idempotency key index.
// Lookups of a missing invoice return errs.NotFound.
type InvoiceDataGateway interface {
	// CreateInvoice stores the invoice and its idempotency key. A key that is
	// already taken returns errs.Conflict and stores nothing.
	CreateInvoice(ctx context.Context, invoice *entity.Invoice) error
	GetInvoiceByID(ctx context.Context, id string) (*entity.Invoice, error)
	GetInvoiceByIdempotencyKey(ctx context.Context, key string) (*entity.Invoice, error)
	GetInvoiceByProcessorID(ctx context.Context, processorInvoiceID string) (*entity.Invoice, error)
	GetInvoicesByStatus(ctx context.Context, statuses ...entity.InvoiceStatus) ([]*entity.Invoice, error)

	// UpdateInvoiceStatus moves an invoice from arg.From to arg.To. It returns
	// errs.Conflict when the stored status is no longer arg.From.
	UpdateInvoiceStatus(ctx context.Context, arg UpdateInvoiceStatusParams) error
	SetInvoiceTransfer(ctx context.Context, id string, transfer entity.TransferArtifact) error

	// GetArchivableInvoices returns at most limit invoices that are SETTLED with
	// a transfer artifact, or EXPIRED, last updated before the given time.
	GetArchivableInvoices(ctx context.Context, before time.Time, limit int) ([]*entity.Invoice, error)
	DeleteInvoices(ctx context.Context, ids []string) (int64, error)
}

// LedgerJournal is the durable side of the distribution ledger.
type LedgerJournal interface {
	// InitLedger creates the ledger totals with the given supply if absent.
	InitLedger(ctx context.Context, totalSupply uint64) error
	GetLedgerSnapshot(ctx context.Context) (*entity.LedgerSnapshot, error)

	// CreateSettlement records the settlement and adds its amount to the
	// distributed total. A settlement for the same invoice returns
	// errs.Conflict; an amount above the remaining supply returns
	// entity.SupplyExhausted. Either way nothing is written.
	CreateSettlement(ctx context.Context, settlement entity.Settlement) error
}

// LedgerStatsReader reads the persisted ledger totals without the settlements.
type LedgerStatsReader interface {
	GetLedgerStats(ctx context.Context) (*entity.LedgerStats, error)
}

type UpdateInvoiceStatusParams struct {
	ID             string
	From           entity.InvoiceStatus
	To             entity.InvoiceStatus
	PaidAmountSats int64
	PaidAt         time.Time
	UpdatedAt      time.Time
}
