package btcpay

import (
	"github.com/shopspring/decimal"
)

// InvoiceStatus is the Greenfield invoice status.
type InvoiceStatus string

const (
	InvoiceStatusNew        InvoiceStatus = "New"
	InvoiceStatusProcessing InvoiceStatus = "Processing"
	InvoiceStatusSettled    InvoiceStatus = "Settled"
	InvoiceStatusExpired    InvoiceStatus = "Expired"
	InvoiceStatusInvalid    InvoiceStatus = "Invalid"
)

const (
	CurrencySats = "SATS"

	// PaymentMethodLightning is the Lightning payment method id. Servers before
	// 2.0 call it BTC-LightningNetwork.
	PaymentMethodLightning       = "BTC-LN"
	PaymentMethodLightningLegacy = "BTC-LightningNetwork"
)

type Invoice struct {
	ID               string          `json:"id"`
	StoreID          string          `json:"storeId"`
	Amount           decimal.Decimal `json:"amount"`
	Currency         string          `json:"currency"`
	Status           InvoiceStatus   `json:"status"`
	AdditionalStatus string          `json:"additionalStatus"`
	CheckoutLink     string          `json:"checkoutLink"`
	CreatedTime      int64           `json:"createdTime"`
	ExpirationTime   int64           `json:"expirationTime"`
	Metadata         map[string]any  `json:"metadata"`
}

type CreateInvoiceRequest struct {
	Amount   decimal.Decimal `json:"amount"`
	Currency string          `json:"currency"`
	Metadata map[string]any  `json:"metadata,omitempty"`
	Checkout CheckoutOptions `json:"checkout"`
}

type CheckoutOptions struct {
	ExpirationMinutes int      `json:"expirationMinutes,omitempty"`
	PaymentMethods    []string `json:"paymentMethods,omitempty"`
}

type PaymentMethod struct {
	PaymentMethod     string          `json:"paymentMethod"`
	PaymentMethodID   string          `json:"paymentMethodId"`
	Destination       string          `json:"destination"`
	PaymentLink       string          `json:"paymentLink"`
	Amount            decimal.Decimal `json:"amount"`
	TotalPaid         decimal.Decimal `json:"totalPaid"`
	PaymentMethodPaid decimal.Decimal `json:"paymentMethodPaid"`
	Due               decimal.Decimal `json:"due"`
	Activated         bool            `json:"activated"`
}

// ID returns the payment method id whichever field the server filled.
func (p PaymentMethod) ID() string {
	if p.PaymentMethodID != "" {
		return p.PaymentMethodID
	}
	return p.PaymentMethod
}

// IsLightning reports whether the payment method is on-chain Bitcoin over Lightning.
func (p PaymentMethod) IsLightning() bool {
	id := p.ID()
	return id == PaymentMethodLightning || id == PaymentMethodLightningLegacy
}

// apiError is the Greenfield error body.
type apiError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

type validationError struct {
	Path    string `json:"path"`
	Message string `json:"message"`
}
