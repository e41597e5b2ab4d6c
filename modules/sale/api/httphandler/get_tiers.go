package httphandler

import (
	"net/http"
	"strconv"

	"github.com/cockroachdb/errors"
	"github.com/gaze-network/batchsale/common"
	"github.com/gaze-network/batchsale/common/errs"
	"github.com/gaze-network/batchsale/modules/sale/tier"
	"github.com/gofiber/fiber/v2"
)

type getTiersResponse = common.HttpResponse[[]tier.Tier]

func (h *HttpHandler) GetTiers(ctx *fiber.Ctx) (err error) {
	tiers := tier.All()
	return errors.WithStack(ctx.JSON(getTiersResponse{
		Result: &tiers,
	}))
}

type resolveTierResult struct {
	Score int `json:"score"`
	tier.Tier
	Gated bool `json:"gated"`
}

type resolveTierResponse = common.HttpResponse[resolveTierResult]

func (h *HttpHandler) ResolveTier(ctx *fiber.Ctx) (err error) {
	raw := ctx.Query("score")
	if raw == "" {
		return errs.NewPublicError("score is required")
	}
	score, err := strconv.Atoi(raw)
	if err != nil {
		return errs.WithPublicStatus(err, http.StatusBadRequest, "INVALID_REQUEST", "score must be an integer")
	}
	t, err := tier.Resolve(score)
	if err != nil {
		return errs.WithPublicStatus(err, http.StatusBadRequest, "INVALID_REQUEST", "score must not be negative")
	}
	return errors.WithStack(ctx.JSON(resolveTierResponse{
		Result: &resolveTierResult{
			Score: score,
			Tier:  t,
			Gated: t.IsGated(),
		},
	}))
}
