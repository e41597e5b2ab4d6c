package httphandler

import (
	"net/http"

	"github.com/cockroachdb/errors"
	"github.com/gaze-network/batchsale/common/errs"
	"github.com/gaze-network/batchsale/pkg/btcpay"
	"github.com/gaze-network/batchsale/pkg/logger"
	"github.com/gaze-network/batchsale/pkg/logger/slogx"
	"github.com/gofiber/fiber/v2"
)

// HandleBTCPayWebhook verifies a BTCPay delivery and forwards it to the
// monitor. A settled invoice is a payment confirmation; other invoice events
// only trigger a status check. Deliveries for unknown invoices are
// acknowledged so BTCPay stops redelivering them.
func (h *HttpHandler) HandleBTCPayWebhook(ctx *fiber.Ctx) (err error) {
	event, err := btcpay.ParseWebhook(ctx.Body(), ctx.Get(btcpay.SignatureHeader), h.webhookSecret)
	if errors.Is(err, btcpay.ErrInvalidSignature) {
		return errs.WithPublicStatus(err, http.StatusUnauthorized, "INVALID_SIGNATURE", "invalid webhook signature")
	}
	if err != nil {
		return errs.WithPublicStatus(err, http.StatusBadRequest, "INVALID_WEBHOOK_BODY", "invalid webhook body")
	}

	c := logger.WithContext(ctx.UserContext(),
		slogx.String("delivery_id", event.DeliveryID),
		slogx.String("webhook_event", string(event.Type)),
		slogx.String("processor_invoice_id", event.InvoiceID),
	)

	switch event.Type {
	case btcpay.EventInvoiceSettled:
		err = h.notifier.OnPaymentConfirmed(c, event.InvoiceID)
	case btcpay.EventInvoiceReceivedPayment, btcpay.EventInvoiceProcessing,
		btcpay.EventInvoiceExpired, btcpay.EventInvoiceInvalid:
		err = h.notifier.OnStatusChanged(c, event.InvoiceID)
	default:
		logger.DebugContext(c, "Ignoring webhook event")
		return errors.WithStack(ctx.SendStatus(http.StatusOK))
	}
	if err != nil {
		if errors.Is(err, errs.NotFound) {
			logger.WarnContext(c, "Webhook event for unknown invoice", slogx.Error(err))
			return errors.WithStack(ctx.SendStatus(http.StatusOK))
		}
		return errors.Wrap(err, "error during webhook dispatch")
	}
	return errors.WithStack(ctx.SendStatus(http.StatusOK))
}
