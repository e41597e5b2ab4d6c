package postgres

import (
	"context"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/gaze-network/batchsale/common/errs"
	"github.com/gaze-network/batchsale/internal/postgres"
	"github.com/gaze-network/batchsale/modules/sale/datagateway"
	"github.com/gaze-network/batchsale/modules/sale/internal/entity"
	"github.com/gaze-network/batchsale/modules/sale/repository/postgres/gen"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/samber/lo"
)

const pgUniqueViolation = "23505"

var _ datagateway.SaleDataGatewayWithTx = (*Repository)(nil)

type Repository struct {
	db      postgres.DB
	queries *gen.Queries
	tx      pgx.Tx
}

func NewRepository(db postgres.DB) *Repository {
	return &Repository{
		db:      db,
		queries: gen.New(db),
	}
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == pgUniqueViolation
}

func (r *Repository) CreateInvoice(ctx context.Context, invoice *entity.Invoice) error {
	if err := r.queries.CreateInvoice(ctx, mapInvoiceModelToType(invoice)); err != nil {
		if isUniqueViolation(err) {
			return errors.Wrapf(errs.Conflict, "invoice %q or its idempotency key already exists", invoice.ID)
		}
		return errors.Wrap(err, "error during exec")
	}
	return nil
}

func (r *Repository) getInvoice(ctx context.Context, get func(context.Context, string) (gen.SaleInvoice, error), key string) (*entity.Invoice, error) {
	row, err := get(ctx, key)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, errors.Wrapf(errs.NotFound, "invoice %q", key)
		}
		return nil, errors.Wrap(err, "error during query")
	}
	return mapInvoiceTypeToModel(row), nil
}

func (r *Repository) GetInvoiceByID(ctx context.Context, id string) (*entity.Invoice, error) {
	return r.getInvoice(ctx, r.queries.GetInvoiceByID, id)
}

func (r *Repository) GetInvoiceByIdempotencyKey(ctx context.Context, key string) (*entity.Invoice, error) {
	return r.getInvoice(ctx, r.queries.GetInvoiceByIdempotencyKey, key)
}

func (r *Repository) GetInvoiceByProcessorID(ctx context.Context, processorInvoiceID string) (*entity.Invoice, error) {
	return r.getInvoice(ctx, r.queries.GetInvoiceByProcessorInvoiceID, processorInvoiceID)
}

func (r *Repository) GetInvoicesByStatus(ctx context.Context, statuses ...entity.InvoiceStatus) ([]*entity.Invoice, error) {
	rows, err := r.queries.GetInvoicesByStatuses(ctx, lo.Map(statuses, func(s entity.InvoiceStatus, _ int) string {
		return s.String()
	}))
	if err != nil {
		return nil, errors.Wrap(err, "error during query")
	}
	return mapInvoiceTypesToModels(rows), nil
}

func (r *Repository) UpdateInvoiceStatus(ctx context.Context, arg datagateway.UpdateInvoiceStatusParams) error {
	affected, err := r.queries.UpdateInvoiceStatus(ctx, gen.UpdateInvoiceStatusParams{
		ToStatus:       arg.To.String(),
		PaidAmountSats: arg.PaidAmountSats,
		PaidAt:         timestamptz(arg.PaidAt),
		UpdatedAt:      timestamptz(arg.UpdatedAt),
		ID:             arg.ID,
		FromStatus:     arg.From.String(),
	})
	if err != nil {
		return errors.Wrap(err, "error during exec")
	}
	if affected > 0 {
		return nil
	}
	current, err := r.GetInvoiceByID(ctx, arg.ID)
	if err != nil {
		return errors.WithStack(err)
	}
	return errors.Wrapf(errs.Conflict, "invoice %q is %s, not %s", arg.ID, current.Status, arg.From)
}

func (r *Repository) SetInvoiceTransfer(ctx context.Context, id string, transfer entity.TransferArtifact) error {
	affected, err := r.queries.SetInvoiceTransfer(ctx, gen.SetInvoiceTransferParams{
		ID:                  id,
		TransferTxid:        text(transfer.TxID, true),
		TransferRecipientID: text(transfer.RecipientID, true),
		TransferAssetID:     text(transfer.AssetID, true),
		TransferAmount:      pgtype.Int8{Int64: int64(transfer.Amount), Valid: true},
		TransferCreatedAt:   timestamptz(transfer.CreatedAt),
	})
	if err != nil {
		return errors.Wrap(err, "error during exec")
	}
	if affected == 0 {
		return errors.Wrapf(errs.NotFound, "invoice %q", id)
	}
	return nil
}

func (r *Repository) GetArchivableInvoices(ctx context.Context, before time.Time, limit int) ([]*entity.Invoice, error) {
	rows, err := r.queries.GetArchivableInvoices(ctx, gen.GetArchivableInvoicesParams{
		UpdatedBefore: timestamptz(before),
		RowLimit:      int32(limit),
	})
	if err != nil {
		return nil, errors.Wrap(err, "error during query")
	}
	return mapInvoiceTypesToModels(rows), nil
}

func (r *Repository) DeleteInvoices(ctx context.Context, ids []string) (int64, error) {
	affected, err := r.queries.DeleteInvoices(ctx, ids)
	if err != nil {
		return 0, errors.Wrap(err, "error during exec")
	}
	return affected, nil
}

func (r *Repository) InitLedger(ctx context.Context, totalSupply uint64) error {
	if err := r.queries.InitLedger(ctx, int64(totalSupply)); err != nil {
		return errors.Wrap(err, "error during exec")
	}
	return nil
}

func (r *Repository) GetLedgerSnapshot(ctx context.Context) (*entity.LedgerSnapshot, error) {
	ledger, err := r.queries.GetLedger(ctx)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, errors.Wrap(errs.NotFound, "ledger is not initialized")
		}
		return nil, errors.Wrap(err, "error during query")
	}
	settlements, err := r.queries.GetSettlements(ctx)
	if err != nil {
		return nil, errors.Wrap(err, "error during query")
	}
	return &entity.LedgerSnapshot{
		TotalSupply:      uint64(ledger.TotalSupply),
		TotalDistributed: uint64(ledger.TotalDistributed),
		Settlements:      lo.Map(settlements, func(s gen.SaleSettlement, _ int) entity.Settlement { return mapSettlementTypeToModel(s) }),
	}, nil
}

func (r *Repository) GetLedgerStats(ctx context.Context) (*entity.LedgerStats, error) {
	ledger, err := r.queries.GetLedger(ctx)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, errors.Wrap(errs.NotFound, "ledger is not initialized")
		}
		return nil, errors.Wrap(err, "error during query")
	}
	return &entity.LedgerStats{
		TotalSupply:      uint64(ledger.TotalSupply),
		TotalDistributed: uint64(ledger.TotalDistributed),
		Remaining:        uint64(ledger.TotalSupply - ledger.TotalDistributed),
	}, nil
}

// CreateSettlement inserts the settlement and bumps the distributed total in
// one transaction, joining the current one if the repository has one.
func (r *Repository) CreateSettlement(ctx context.Context, settlement entity.Settlement) (err error) {
	repo := r
	if r.tx == nil {
		if repo, err = r.begin(ctx); err != nil {
			return errors.WithStack(err)
		}
		defer func() {
			if err == nil {
				err = errors.WithStack(repo.Commit(ctx))
				return
			}
			_ = repo.Rollback(ctx)
		}()
	}

	err = repo.queries.CreateSettlement(ctx, gen.CreateSettlementParams{
		InvoiceID:   settlement.InvoiceID,
		TokenAmount: int64(settlement.TokenAmount),
		SettledAt:   timestamptz(settlement.SettledAt),
	})
	if err != nil {
		if isUniqueViolation(err) {
			return errors.Wrapf(errs.Conflict, "invoice %q is already settled", settlement.InvoiceID)
		}
		return errors.Wrap(err, "error during exec")
	}

	affected, err := repo.queries.AddDistributed(ctx, int64(settlement.TokenAmount))
	if err != nil {
		return errors.Wrap(err, "error during exec")
	}
	if affected == 0 {
		return errors.Wrapf(entity.SupplyExhausted, "can't distribute %d tokens to invoice %q", settlement.TokenAmount, settlement.InvoiceID)
	}
	return nil
}
