package sale

import (
	"context"

	"github.com/cockroachdb/errors"
	"github.com/gaze-network/batchsale/modules/sale/datagateway"
	"github.com/gaze-network/batchsale/modules/sale/internal/entity"
	"github.com/gaze-network/batchsale/modules/sale/ledger"
	"github.com/gaze-network/batchsale/pkg/logger"
	"github.com/gaze-network/batchsale/pkg/logger/slogx"
	"github.com/gaze-network/batchsale/pkg/rgbnode"
	"github.com/samber/lo"
	"golang.org/x/sync/errgroup"
)

const resumeConcurrency = 16

// RestoreLedger loads the ledger from its journal, creating the totals with
// totalSupply on first start. Later settlements are journaled.
func RestoreLedger(ctx context.Context, journal datagateway.LedgerJournal, totalSupply uint64) (*ledger.Ledger, error) {
	if err := journal.InitLedger(ctx, totalSupply); err != nil {
		return nil, errors.Wrap(err, "can't init ledger")
	}
	snapshot, err := journal.GetLedgerSnapshot(ctx)
	if err != nil {
		return nil, errors.Wrap(err, "can't get ledger snapshot")
	}
	if snapshot.TotalSupply != totalSupply {
		logger.WarnContext(ctx, "configured total supply differs from the persisted ledger, using the persisted one",
			slogx.Uint64("configured", totalSupply),
			slogx.Uint64("persisted", snapshot.TotalSupply),
		)
	}
	l, err := ledger.Restore(*snapshot, ledger.WithJournal(journal))
	if err != nil {
		return nil, errors.Wrap(err, "can't restore ledger")
	}
	return l, nil
}

// ResumeInvoices hands every invoice with work left back to the monitor:
// unpaid and unsettled invoices, and settled ones still missing their
// transfer artifact. Settlement of an invoice the ledger already holds
// completes without a second allocation.
func ResumeInvoices(ctx context.Context, store datagateway.InvoiceDataGateway, monitor InvoiceRegistrar) (int, error) {
	invoices, err := store.GetInvoicesByStatus(ctx,
		entity.InvoiceStatusPending,
		entity.InvoiceStatusPaid,
		entity.InvoiceStatusSettling,
		entity.InvoiceStatusSettled,
	)
	if err != nil {
		return 0, errors.Wrap(err, "can't list unfinished invoices")
	}
	invoices = lo.Filter(invoices, func(invoice *entity.Invoice, _ int) bool {
		return invoice.Status != entity.InvoiceStatusSettled || invoice.TransferPending()
	})

	group, gctx := errgroup.WithContext(ctx)
	group.SetLimit(resumeConcurrency)
	for _, invoice := range invoices {
		group.Go(func() error {
			if err := monitor.Register(gctx, invoice); err != nil {
				return errors.Wrapf(err, "can't resume invoice %q", invoice.ID)
			}
			return nil
		})
	}
	if err := group.Wait(); err != nil {
		return 0, errors.WithStack(err)
	}
	return len(invoices), nil
}

type AssetBalanceReader interface {
	AssetBalance(ctx context.Context) (*rgbnode.AssetBalance, error)
}

// CheckAssetBalance reports whether the spendable asset balance of the RGB
// node covers the tokens still for sale. A shortfall means later settlements
// will keep failing to deliver.
func CheckAssetBalance(ctx context.Context, node AssetBalanceReader, remaining uint64) (bool, error) {
	balance, err := node.AssetBalance(ctx)
	if err != nil {
		return false, errors.Wrap(err, "can't read asset balance")
	}
	if balance.Spendable < remaining {
		logger.IncidentContext(ctx, "asset_shortfall", "RGB node can't cover the remaining supply",
			slogx.Uint64("spendable", balance.Spendable),
			slogx.Uint64("remaining_supply", remaining),
		)
		return false, nil
	}
	return true, nil
}
