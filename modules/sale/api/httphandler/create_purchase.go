package httphandler

import (
	"net/http"

	"github.com/cockroachdb/errors"
	"github.com/gaze-network/batchsale/common"
	"github.com/gaze-network/batchsale/common/errs"
	"github.com/gaze-network/batchsale/modules/sale/internal/entity"
	"github.com/gaze-network/batchsale/modules/sale/tier"
	"github.com/gofiber/fiber/v2"
)

const idempotencyKeyHeader = "Idempotency-Key"

type createPurchaseRequest struct {
	RGBInvoice     string `json:"rgbInvoice"`
	BatchCount     int    `json:"batchCount"`
	Score          *int   `json:"score"`
	Tier           string `json:"tier"`
	IdempotencyKey string `json:"idempotencyKey"`
}

// resolveTier prefers an explicit tier name over the game score.
func (r *createPurchaseRequest) resolveTier() (string, error) {
	if r.Tier != "" || r.Score == nil {
		return r.Tier, nil
	}
	t, err := tier.Resolve(*r.Score)
	if err != nil {
		return "", errs.WithPublicStatus(err, http.StatusBadRequest, "INVALID_REQUEST", "score must not be negative")
	}
	return t.Name, nil
}

type createPurchaseResponse = common.HttpResponse[invoiceResult]

func (h *HttpHandler) CreatePurchase(ctx *fiber.Ctx) (err error) {
	var req createPurchaseRequest
	if err := ctx.BodyParser(&req); err != nil {
		return errs.WithPublicStatus(err, http.StatusBadRequest, "INVALID_REQUEST", "can't parse request body")
	}
	if req.IdempotencyKey == "" {
		req.IdempotencyKey = ctx.Get(idempotencyKeyHeader)
	}
	tierName, err := req.resolveTier()
	if err != nil {
		return errors.WithStack(err)
	}

	invoice, err := h.issuer.Issue(ctx.UserContext(), entity.PurchaseRequest{
		RGBInvoice:     req.RGBInvoice,
		BatchCount:     req.BatchCount,
		Tier:           tierName,
		IdempotencyKey: req.IdempotencyKey,
	})
	if err != nil {
		return publicIssueError(err)
	}

	result := mapInvoice(invoice)
	return errors.WithStack(ctx.Status(http.StatusCreated).JSON(createPurchaseResponse{
		Result: &result,
	}))
}
