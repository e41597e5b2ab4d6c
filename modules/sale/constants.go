package sale

import "time"

const (
	Version = "v0.1.0"

	// PricePerBatchSats is the price of one batch.
	PricePerBatchSats int64 = 2000

	// TokensPerBatch is the token allocation of one batch.
	TokensPerBatch uint64 = 700

	// InvoiceTTL is the hard deadline for paying an invoice.
	InvoiceTTL = 15 * time.Minute

	// DefaultTotalSupply is the sale allocation when none is configured.
	DefaultTotalSupply uint64 = 21_000_000

	InvoiceIDPrefix = "inv"
)
