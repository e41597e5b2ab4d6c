// Package btcpay is a client for the BTCPay Server Greenfield API, limited to
// what a Lightning checkout needs: invoices, their payment methods, webhook
// verification and the checkout status stream.
package btcpay

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/Cleverse/go-utilities/utils"
	"github.com/cockroachdb/errors"
	"github.com/gaze-network/batchsale/common/errs"
	"github.com/gaze-network/batchsale/pkg/httpclient"
	"github.com/shopspring/decimal"
)

type Config struct {
	URL           string        `mapstructure:"url"`
	StoreID       string        `mapstructure:"store_id"`
	APIKey        string        `mapstructure:"api_key"`
	WebhookSecret string        `mapstructure:"webhook_secret"`
	PaymentMethod string        `mapstructure:"payment_method"`
	Websocket     bool          `mapstructure:"websocket"`
	Timeout       time.Duration `mapstructure:"timeout"`
	Debug         bool          `mapstructure:"debug"`
}

type Client struct {
	http          *httpclient.Client
	baseURL       *url.URL
	storeID       string
	paymentMethod string
}

func New(conf Config) (*Client, error) {
	if conf.URL == "" || conf.StoreID == "" || conf.APIKey == "" {
		return nil, errors.Wrap(errs.InvalidArgument, "btcpay url, store id and api key are required")
	}
	baseURL, err := url.Parse(conf.URL)
	if err != nil {
		return nil, errors.Wrap(err, "can't parse btcpay url")
	}
	client, err := httpclient.New(conf.URL, httpclient.Config{
		Debug:   conf.Debug,
		Timeout: conf.Timeout,
		Headers: map[string]string{
			"Authorization": "token " + conf.APIKey,
			"Accept":        "application/json",
		},
	})
	if err != nil {
		return nil, errors.Wrap(err, "can't create http client")
	}
	return &Client{
		http:          client,
		baseURL:       baseURL,
		storeID:       conf.StoreID,
		paymentMethod: utils.Default(conf.PaymentMethod, PaymentMethodLightning),
	}, nil
}

func (c *Client) storePath(parts ...string) string {
	return "/api/v1/stores/" + url.PathEscape(c.storeID) + "/" + strings.Join(parts, "/")
}

// CreateInvoice creates a Lightning-only invoice for amountSats, expiring after expiration.
func (c *Client) CreateInvoice(ctx context.Context, amountSats int64, orderID string, expiration time.Duration) (*Invoice, error) {
	if amountSats <= 0 {
		return nil, errors.Wrap(errs.InvalidArgument, "invoice amount must be positive")
	}
	body, err := json.Marshal(CreateInvoiceRequest{
		Amount:   decimal.NewFromInt(amountSats),
		Currency: CurrencySats,
		Metadata: map[string]any{"orderId": orderID},
		Checkout: CheckoutOptions{
			ExpirationMinutes: int(expiration.Round(time.Minute) / time.Minute),
			PaymentMethods:    []string{c.paymentMethod},
		},
	})
	if err != nil {
		return nil, errors.Wrap(err, "can't marshal create invoice request")
	}

	resp, err := c.http.Post(ctx, c.storePath("invoices"), httpclient.RequestOptions{Body: body})
	if err != nil {
		return nil, errors.Wrap(err, "can't create invoice")
	}
	var invoice Invoice
	if err := decode(resp, &invoice); err != nil {
		return nil, errors.Wrap(err, "can't create invoice")
	}
	return &invoice, nil
}

func (c *Client) GetInvoice(ctx context.Context, invoiceID string) (*Invoice, error) {
	resp, err := c.http.Get(ctx, c.storePath("invoices", url.PathEscape(invoiceID)), httpclient.RequestOptions{})
	if err != nil {
		return nil, errors.Wrapf(err, "can't get invoice %q", invoiceID)
	}
	var invoice Invoice
	if err := decode(resp, &invoice); err != nil {
		return nil, errors.Wrapf(err, "can't get invoice %q", invoiceID)
	}
	return &invoice, nil
}

func (c *Client) GetPaymentMethods(ctx context.Context, invoiceID string) ([]PaymentMethod, error) {
	resp, err := c.http.Get(ctx, c.storePath("invoices", url.PathEscape(invoiceID), "payment-methods"), httpclient.RequestOptions{})
	if err != nil {
		return nil, errors.Wrapf(err, "can't get payment methods of invoice %q", invoiceID)
	}
	var methods []PaymentMethod
	if err := decode(resp, &methods); err != nil {
		return nil, errors.Wrapf(err, "can't get payment methods of invoice %q", invoiceID)
	}
	return methods, nil
}

// LightningPaymentRequest returns the BOLT11 destination of the invoice.
func (c *Client) LightningPaymentRequest(ctx context.Context, invoiceID string) (string, error) {
	methods, err := c.GetPaymentMethods(ctx, invoiceID)
	if err != nil {
		return "", errors.WithStack(err)
	}
	for _, m := range methods {
		if m.IsLightning() && m.Destination != "" {
			return m.Destination, nil
		}
	}
	return "", errors.Wrapf(errs.NotFound, "invoice %q has no lightning payment method", invoiceID)
}

func decode(resp *httpclient.HttpResponse, out any) error {
	if resp.IsSuccess() {
		return errors.WithStack(resp.UnmarshalBody(out))
	}

	status := resp.StatusCode()
	message := http.StatusText(status)
	var apiErr apiError
	var validation []validationError
	switch {
	case resp.UnmarshalBody(&apiErr) == nil && apiErr.Message != "":
		message = fmt.Sprintf("%s: %s", apiErr.Code, apiErr.Message)
	case resp.UnmarshalBody(&validation) == nil && len(validation) > 0:
		parts := make([]string, 0, len(validation))
		for _, v := range validation {
			parts = append(parts, v.Path+": "+v.Message)
		}
		message = strings.Join(parts, "; ")
	}

	switch status {
	case http.StatusNotFound:
		return errors.Wrap(errs.NotFound, message)
	case http.StatusBadRequest, http.StatusUnprocessableEntity:
		return errors.Wrap(errs.InvalidArgument, message)
	}
	return errors.Newf("btcpay responded %d: %s", status, message)
}
