package btcpay

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"strings"

	"github.com/cockroachdb/errors"
	"github.com/gaze-network/batchsale/common/errs"
)

// SignatureHeader carries the HMAC of a webhook delivery.
const SignatureHeader = "BTCPay-Sig"

const signaturePrefix = "sha256="

// ErrInvalidSignature marks a delivery that can't be authenticated. Other
// ParseWebhook errors are about a signed body that doesn't decode.
var ErrInvalidSignature = errors.Wrap(errs.InvalidArgument, "invalid webhook signature")

type WebhookEventType string

const (
	EventInvoiceCreated         WebhookEventType = "InvoiceCreated"
	EventInvoiceReceivedPayment WebhookEventType = "InvoiceReceivedPayment"
	EventInvoiceProcessing      WebhookEventType = "InvoiceProcessing"
	EventInvoiceSettled         WebhookEventType = "InvoiceSettled"
	EventInvoiceExpired         WebhookEventType = "InvoiceExpired"
	EventInvoiceInvalid         WebhookEventType = "InvoiceInvalid"
)

type WebhookEvent struct {
	DeliveryID   string           `json:"deliveryId"`
	WebhookID    string           `json:"webhookId"`
	IsRedelivery bool             `json:"isRedelivery"`
	Type         WebhookEventType `json:"type"`
	Timestamp    int64            `json:"timestamp"`
	StoreID      string           `json:"storeId"`
	InvoiceID    string           `json:"invoiceId"`
}

// Sign returns the BTCPay-Sig header value of body.
func Sign(body []byte, secret string) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(body)
	return signaturePrefix + hex.EncodeToString(mac.Sum(nil))
}

// VerifySignature checks the BTCPay-Sig header against body in constant time.
func VerifySignature(body []byte, header string, secret string) error {
	if secret == "" {
		return errors.Wrap(ErrInvalidSignature, "webhook secret is not configured")
	}
	if !strings.HasPrefix(header, signaturePrefix) {
		return errors.Wrap(ErrInvalidSignature, "missing or malformed webhook signature")
	}
	expected := Sign(body, secret)
	if !hmac.Equal([]byte(header), []byte(expected)) {
		return errors.Wrap(ErrInvalidSignature, "webhook signature mismatch")
	}
	return nil
}

// ParseWebhook verifies and decodes a webhook delivery.
func ParseWebhook(body []byte, header string, secret string) (*WebhookEvent, error) {
	if err := VerifySignature(body, header, secret); err != nil {
		return nil, errors.WithStack(err)
	}
	var event WebhookEvent
	if err := json.Unmarshal(body, &event); err != nil {
		return nil, errors.Wrapf(errs.InvalidArgument, "can't decode webhook body: %v", err)
	}
	if event.Type == "" {
		return nil, errors.Wrap(errs.InvalidArgument, "webhook event has no type")
	}
	return &event, nil
}
