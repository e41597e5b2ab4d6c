package httphandler

import (
	"github.com/cockroachdb/errors"
	"github.com/gaze-network/batchsale/common"
	"github.com/gaze-network/batchsale/modules/sale/internal/entity"
	"github.com/gofiber/fiber/v2"
	"github.com/samber/lo"
)

const (
	incidentSettlementFailed = "settlement_failed"
	incidentTransferPending  = "transfer_pending"
)

type incident struct {
	Event   string        `json:"event"`
	Invoice invoiceResult `json:"invoice"`
}

type getIncidentsResponse = common.HttpResponse[[]incident]

// GetIncidents lists invoices that need an operator: failed settlements
// waiting for a refund and settled invoices with no transfer artifact yet.
func (h *HttpHandler) GetIncidents(ctx *fiber.Ctx) (err error) {
	invoices, err := h.store.GetInvoicesByStatus(ctx.UserContext(),
		entity.InvoiceStatusSettlementFailed,
		entity.InvoiceStatusSettled,
	)
	if err != nil {
		return errors.Wrap(err, "error during GetInvoicesByStatus")
	}

	incidents := lo.FilterMap(invoices, func(invoice *entity.Invoice, _ int) (incident, bool) {
		switch {
		case invoice.Status == entity.InvoiceStatusSettlementFailed:
			return incident{Event: incidentSettlementFailed, Invoice: mapInvoice(invoice)}, true
		case invoice.TransferPending():
			return incident{Event: incidentTransferPending, Invoice: mapInvoice(invoice)}, true
		}
		return incident{}, false
	})
	return errors.WithStack(ctx.JSON(getIncidentsResponse{
		Result: &incidents,
	}))
}
