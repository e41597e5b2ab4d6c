package entity

import "time"

type InvoiceStatus string

const (
	InvoiceStatusPending          InvoiceStatus = "PENDING"
	InvoiceStatusPaid             InvoiceStatus = "PAID"
	InvoiceStatusSettling         InvoiceStatus = "SETTLING"
	InvoiceStatusSettled          InvoiceStatus = "SETTLED"
	InvoiceStatusExpired          InvoiceStatus = "EXPIRED"
	InvoiceStatusSettlementFailed InvoiceStatus = "SETTLEMENT_FAILED"
)

// transitions lists every legal forward move of the invoice state machine.
var transitions = map[InvoiceStatus][]InvoiceStatus{
	InvoiceStatusPending:  {InvoiceStatusPaid, InvoiceStatusExpired},
	InvoiceStatusPaid:     {InvoiceStatusSettling, InvoiceStatusSettlementFailed},
	InvoiceStatusSettling: {InvoiceStatusSettled, InvoiceStatusSettlementFailed},
}

func (s InvoiceStatus) String() string {
	return string(s)
}

func (s InvoiceStatus) IsValid() bool {
	switch s {
	case InvoiceStatusPending, InvoiceStatusPaid, InvoiceStatusSettling,
		InvoiceStatusSettled, InvoiceStatusExpired, InvoiceStatusSettlementFailed:
		return true
	}
	return false
}

// IsTerminal reports whether no further transition is possible.
func (s InvoiceStatus) IsTerminal() bool {
	return len(transitions[s]) == 0
}

func (s InvoiceStatus) CanTransitionTo(next InvoiceStatus) bool {
	for _, allowed := range transitions[s] {
		if allowed == next {
			return true
		}
	}
	return false
}

// Invoice is a Lightning invoice issued for one batch purchase.
type Invoice struct {
	ID                 string
	ProcessorInvoiceID string
	PaymentRequest     string // BOLT11
	AmountSats         int64
	BatchCount         int
	TokenAmount        uint64
	RGBInvoice         string
	Tier               string
	IdempotencyKey     string
	Fingerprint        string
	Status             InvoiceStatus
	PaidAmountSats     int64
	PaidAt             time.Time
	Transfer           *TransferArtifact
	CreatedAt          time.Time
	ExpiresAt          time.Time
	UpdatedAt          time.Time
}

// IsExpiredAt reports whether the invoice deadline has passed at now.
func (i *Invoice) IsExpiredAt(now time.Time) bool {
	return now.After(i.ExpiresAt)
}

// TransferPending reports whether the invoice is settled but the buyer has no artifact yet.
func (i *Invoice) TransferPending() bool {
	return i.Status == InvoiceStatusSettled && i.Transfer == nil
}

// Clone returns a deep copy, safe to hand to another goroutine.
func (i *Invoice) Clone() *Invoice {
	if i == nil {
		return nil
	}
	c := *i
	if i.Transfer != nil {
		t := *i.Transfer
		c.Transfer = &t
	}
	return &c
}

// TransferArtifact is what the RGB engine hands back for a delivered allocation.
type TransferArtifact struct {
	TxID        string
	RecipientID string
	AssetID     string
	Amount      uint64
	CreatedAt   time.Time
}

// PurchaseRequest is the buyer input of an issuance.
type PurchaseRequest struct {
	RGBInvoice     string
	BatchCount     int
	Tier           string
	IdempotencyKey string
}

// ProcessorInvoice is the processor side of an issued invoice.
type ProcessorInvoice struct {
	ID             string
	PaymentRequest string
	ExpiresAt      time.Time
}

// PaymentStatus is the processor view of an invoice payment.
type PaymentStatus struct {
	Paid           bool
	PaidAmountSats int64
	Expired        bool
}
