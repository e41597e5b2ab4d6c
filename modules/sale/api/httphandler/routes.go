package httphandler

import (
	"github.com/gofiber/fiber/v2"
)

func (h *HttpHandler) Mount(router fiber.Router) error {
	r := router.Group("/sale/v1")

	r.Post("/purchases", h.CreatePurchase)
	r.Get("/invoices/:id", h.GetInvoice)
	r.Get("/stats", h.GetStats)
	r.Get("/tiers", h.GetTiers)
	r.Get("/tiers/resolve", h.ResolveTier)
	r.Post("/webhooks/btcpay", h.HandleBTCPayWebhook)
	r.Get("/incidents", h.GetIncidents)
	return nil
}
