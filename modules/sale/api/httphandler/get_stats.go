package httphandler

import (
	"github.com/cockroachdb/errors"
	"github.com/gaze-network/batchsale/common"
	"github.com/gofiber/fiber/v2"
)

type getStatsResult struct {
	TotalSupply      uint64 `json:"totalSupply"`
	TotalDistributed uint64 `json:"totalDistributed"`
	Remaining        uint64 `json:"remaining"`
	FetchedAt        *int64 `json:"fetchedAt"` // unix timestamp
	Stale            bool   `json:"stale"`
	Degraded         bool   `json:"degraded"`
	Paused           bool   `json:"paused"`
}

type getStatsResponse = common.HttpResponse[getStatsResult]

func (h *HttpHandler) GetStats(ctx *fiber.Ctx) (err error) {
	snapshot := h.stats.Snapshot()

	result := getStatsResult{
		TotalSupply:      snapshot.TotalSupply,
		TotalDistributed: snapshot.TotalDistributed,
		Remaining:        snapshot.Remaining,
		Stale:            snapshot.Stale,
		Degraded:         snapshot.Degraded,
		Paused:           snapshot.Paused,
	}
	if !snapshot.FetchedAt.IsZero() {
		fetchedAt := snapshot.FetchedAt.Unix()
		result.FetchedAt = &fetchedAt
	}
	resp := getStatsResponse{Result: &result}
	if snapshot.Degraded {
		resp.Error = &snapshot.Error
	}
	return errors.WithStack(ctx.JSON(resp))
}
