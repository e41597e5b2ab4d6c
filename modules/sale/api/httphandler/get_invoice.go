package httphandler

import (
	"github.com/cockroachdb/errors"
	"github.com/gaze-network/batchsale/common"
	"github.com/gaze-network/batchsale/common/errs"
	"github.com/gofiber/fiber/v2"
)

type getInvoiceRequest struct {
	ID string `params:"id"`
}

type getInvoiceResponse = common.HttpResponse[invoiceResult]

func (h *HttpHandler) GetInvoice(ctx *fiber.Ctx) (err error) {
	var req getInvoiceRequest
	if err := ctx.ParamsParser(&req); err != nil {
		return errors.WithStack(err)
	}
	if req.ID == "" {
		return errs.NewPublicError("invoice id is required")
	}

	invoice, err := h.store.GetInvoiceByID(ctx.UserContext(), req.ID)
	if err != nil {
		if errors.Is(err, errs.NotFound) {
			return errs.WithPublicStatus(err, fiber.StatusNotFound, "NOT_FOUND", "invoice not found")
		}
		return errors.Wrap(err, "error during GetInvoiceByID")
	}

	result := mapInvoice(invoice)
	return errors.WithStack(ctx.JSON(getInvoiceResponse{
		Result: &result,
	}))
}
