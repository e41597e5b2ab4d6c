// Package memory is the in-process sale store used for development and tests.
// It has the same conflict semantics as the postgres store but no durability,
// and its transactions are no-ops.
package memory

import (
	"context"
	"slices"
	"sort"
	"sync"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/gaze-network/batchsale/common/errs"
	"github.com/gaze-network/batchsale/modules/sale/datagateway"
	"github.com/gaze-network/batchsale/modules/sale/internal/entity"
)

var _ datagateway.SaleDataGatewayWithTx = (*Repository)(nil)

type Repository struct {
	*store
}

type store struct {
	mu              sync.RWMutex
	invoices        map[string]*entity.Invoice
	byKey           map[string]string
	byProcessorID   map[string]string
	ledgerInit      bool
	totalSupply     uint64
	distributed     uint64
	settlements     map[string]entity.Settlement
	settlementOrder []string
}

func NewRepository() *Repository {
	return &Repository{
		store: &store{
			invoices:      make(map[string]*entity.Invoice),
			byKey:         make(map[string]string),
			byProcessorID: make(map[string]string),
			settlements:   make(map[string]entity.Settlement),
		},
	}
}

func (r *Repository) BeginSaleTx(context.Context) (datagateway.SaleDataGatewayWithTx, error) {
	return r, nil
}

func (r *Repository) Commit(context.Context) error   { return nil }
func (r *Repository) Rollback(context.Context) error { return nil }

func (s *store) CreateInvoice(_ context.Context, invoice *entity.Invoice) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.byKey[invoice.IdempotencyKey]; ok {
		return errors.Wrapf(errs.Conflict, "idempotency key %q already used", invoice.IdempotencyKey)
	}
	if _, ok := s.invoices[invoice.ID]; ok {
		return errors.Wrapf(errs.Conflict, "invoice %q already exists", invoice.ID)
	}
	s.invoices[invoice.ID] = invoice.Clone()
	s.byKey[invoice.IdempotencyKey] = invoice.ID
	if invoice.ProcessorInvoiceID != "" {
		s.byProcessorID[invoice.ProcessorInvoiceID] = invoice.ID
	}
	return nil
}

func (s *store) GetInvoiceByID(_ context.Context, id string) (*entity.Invoice, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.get(id)
}

func (s *store) GetInvoiceByIdempotencyKey(_ context.Context, key string) (*entity.Invoice, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	id, ok := s.byKey[key]
	if !ok {
		return nil, errors.Wrapf(errs.NotFound, "invoice with idempotency key %q", key)
	}
	return s.get(id)
}

func (s *store) GetInvoiceByProcessorID(_ context.Context, processorInvoiceID string) (*entity.Invoice, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	id, ok := s.byProcessorID[processorInvoiceID]
	if !ok {
		return nil, errors.Wrapf(errs.NotFound, "invoice with processor id %q", processorInvoiceID)
	}
	return s.get(id)
}

func (s *store) GetInvoicesByStatus(_ context.Context, statuses ...entity.InvoiceStatus) ([]*entity.Invoice, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var result []*entity.Invoice
	for _, inv := range s.invoices {
		if slices.Contains(statuses, inv.Status) {
			result = append(result, inv.Clone())
		}
	}
	sortByCreatedAt(result)
	return result, nil
}

func (s *store) UpdateInvoiceStatus(_ context.Context, arg datagateway.UpdateInvoiceStatusParams) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	inv, ok := s.invoices[arg.ID]
	if !ok {
		return errors.Wrapf(errs.NotFound, "invoice %q", arg.ID)
	}
	if inv.Status != arg.From {
		return errors.Wrapf(errs.Conflict, "invoice %q is %s, not %s", arg.ID, inv.Status, arg.From)
	}
	inv.Status = arg.To
	if arg.To == entity.InvoiceStatusPaid {
		inv.PaidAmountSats = arg.PaidAmountSats
		inv.PaidAt = arg.PaidAt
	}
	inv.UpdatedAt = arg.UpdatedAt
	return nil
}

func (s *store) SetInvoiceTransfer(_ context.Context, id string, transfer entity.TransferArtifact) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	inv, ok := s.invoices[id]
	if !ok {
		return errors.Wrapf(errs.NotFound, "invoice %q", id)
	}
	inv.Transfer = &transfer
	inv.UpdatedAt = transfer.CreatedAt
	return nil
}

func (s *store) GetArchivableInvoices(_ context.Context, before time.Time, limit int) ([]*entity.Invoice, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var result []*entity.Invoice
	for _, inv := range s.invoices {
		archivable := inv.Status == entity.InvoiceStatusExpired ||
			(inv.Status == entity.InvoiceStatusSettled && inv.Transfer != nil)
		if archivable && inv.UpdatedAt.Before(before) {
			result = append(result, inv.Clone())
		}
	}
	sortByCreatedAt(result)
	if limit > 0 && len(result) > limit {
		result = result[:limit]
	}
	return result, nil
}

func (s *store) DeleteInvoices(_ context.Context, ids []string) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var deleted int64
	for _, id := range ids {
		inv, ok := s.invoices[id]
		if !ok {
			continue
		}
		delete(s.invoices, id)
		delete(s.byKey, inv.IdempotencyKey)
		delete(s.byProcessorID, inv.ProcessorInvoiceID)
		deleted++
	}
	return deleted, nil
}

func (s *store) InitLedger(_ context.Context, totalSupply uint64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.ledgerInit {
		s.ledgerInit = true
		s.totalSupply = totalSupply
	}
	return nil
}

func (s *store) GetLedgerSnapshot(context.Context) (*entity.LedgerSnapshot, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if !s.ledgerInit {
		return nil, errors.Wrap(errs.NotFound, "ledger is not initialized")
	}
	snapshot := &entity.LedgerSnapshot{
		TotalSupply:      s.totalSupply,
		TotalDistributed: s.distributed,
		Settlements:      make([]entity.Settlement, 0, len(s.settlementOrder)),
	}
	for _, id := range s.settlementOrder {
		snapshot.Settlements = append(snapshot.Settlements, s.settlements[id])
	}
	return snapshot, nil
}

func (s *store) GetLedgerStats(context.Context) (*entity.LedgerStats, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if !s.ledgerInit {
		return nil, errors.Wrap(errs.NotFound, "ledger is not initialized")
	}
	return &entity.LedgerStats{
		TotalSupply:      s.totalSupply,
		TotalDistributed: s.distributed,
		Remaining:        s.totalSupply - s.distributed,
	}, nil
}

func (s *store) CreateSettlement(_ context.Context, settlement entity.Settlement) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.ledgerInit {
		return errors.Wrap(errs.NotFound, "ledger is not initialized")
	}
	if _, ok := s.settlements[settlement.InvoiceID]; ok {
		return errors.Wrapf(errs.Conflict, "invoice %q already settled", settlement.InvoiceID)
	}
	if settlement.TokenAmount > s.totalSupply-s.distributed {
		return errors.WithStack(entity.SupplyExhausted)
	}
	s.settlements[settlement.InvoiceID] = settlement
	s.settlementOrder = append(s.settlementOrder, settlement.InvoiceID)
	s.distributed += settlement.TokenAmount
	return nil
}

func (s *store) get(id string) (*entity.Invoice, error) {
	inv, ok := s.invoices[id]
	if !ok {
		return nil, errors.Wrapf(errs.NotFound, "invoice %q", id)
	}
	return inv.Clone(), nil
}

func sortByCreatedAt(invoices []*entity.Invoice) {
	sort.SliceStable(invoices, func(i, j int) bool {
		return invoices[i].CreatedAt.Before(invoices[j].CreatedAt)
	})
}
